package session

// Record is the persisted state of one session.
type Record struct {
	SessionID string
	UserID    string
	CreatedAt int64
	ExpiresAt int64
}
