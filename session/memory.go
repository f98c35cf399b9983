package session

import (
	"context"
	"sync"
)

// Memory is an in-process session. The zero value is an anonymous session.
type Memory struct {
	mu     sync.Mutex
	userID string
}

// NewMemory returns a session already holding userID; pass "" for anonymous.
func NewMemory(userID string) *Memory {
	return &Memory{userID: userID}
}

func (m *Memory) UserID(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userID, nil
}

func (m *Memory) Establish(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userID = userID
	return nil
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userID = ""
	return nil
}
