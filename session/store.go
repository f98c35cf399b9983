package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps Redis failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrConcurrentUpdate is returned when a session changed while it was being
// replaced and the retry budget ran out.
var ErrConcurrentUpdate = errors.New("session changed concurrently")

const establishMaxRetries = 3

const deleteSessionScript = `
local data = redis.call("GET", KEYS[1])
if not data then
  return 0
end
redis.call("DEL", KEYS[1])
if ARGV[1] ~= "" then
  redis.call("SREM", ARGV[2] .. ARGV[1], ARGV[3])
end
return 1
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

// Store is a Redis-backed session store. Each session is a binary record
// under <prefix>:<sessionID>; a per-user set indexes a user's session IDs.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewStore creates a Store. ttl bounds the lifetime of an established session.
func NewStore(client redis.UniversalClient, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = "lgs"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{
		redis:  client,
		prefix: prefix,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

func (s *Store) userKeyPrefix() string {
	return s.prefix + ":u:"
}

func (s *Store) userKey(userID string) string {
	return s.userKeyPrefix() + userID
}

// Handle binds sessionID to the store.
func (s *Store) Handle(sessionID string) *Handle {
	return &Handle{store: s, id: sessionID}
}

// Get returns the record for sessionID, or (nil, nil) when there is none.
func (s *Store) Get(ctx context.Context, sessionID string) (*Record, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	r, err := Decode(data)
	if err != nil {
		return nil, err
	}
	r.SessionID = sessionID
	return r, nil
}

// Establish replaces whatever identity sessionID holds with userID. The old
// owner's index entry and the new record change in one transaction.
func (s *Store) Establish(ctx context.Context, sessionID, userID string) error {
	key := s.key(sessionID)

	for attempt := 0; attempt < establishMaxRetries; attempt++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			var previous string
			data, err := tx.Get(ctx, key).Bytes()
			switch {
			case err == nil:
				if old, decErr := Decode(data); decErr == nil {
					previous = old.UserID
				}
			case errors.Is(err, redis.Nil):
			default:
				return err
			}

			now := s.now()
			encoded, err := Encode(&Record{
				UserID:    userID,
				CreatedAt: now.Unix(),
				ExpiresAt: now.Add(s.ttl).Unix(),
			})
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				if previous != "" && previous != userID {
					pipe.SRem(ctx, s.userKey(previous), sessionID)
				}
				pipe.Set(ctx, key, encoded, s.ttl)
				pipe.SAdd(ctx, s.userKey(userID), sessionID)
				return nil
			})
			return err
		}, key)

		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return ErrConcurrentUpdate
}

// Delete removes sessionID. Deleting a missing session is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	r, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	owner := ""
	if r != nil {
		owner = r.UserID
	}

	if err := deleteSessionLua.Run(ctx, s.redis, []string{s.key(sessionID)}, owner, s.userKeyPrefix(), sessionID).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// ActiveSessionIDs lists the sessions indexed under userID.
func (s *Store) ActiveSessionIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ids, nil
}

// DeleteAllForUser removes every session indexed under userID.
//
// Not fully atomic: a session established between the SMEMBERS read and the
// delete survives until its TTL or the next call.
func (s *Store) DeleteAllForUser(ctx context.Context, userID string) error {
	ids, err := s.ActiveSessionIDs(ctx, userID)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, s.key(id))
	}
	keys = append(keys, s.userKey(userID))

	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Handle is one session in a Store.
type Handle struct {
	store *Store
	id    string
}

// ID returns the session ID.
func (h *Handle) ID() string {
	return h.id
}

// UserID returns the authenticated user, or "" when the session is anonymous.
func (h *Handle) UserID(ctx context.Context) (string, error) {
	r, err := h.store.Get(ctx, h.id)
	if err != nil || r == nil {
		return "", err
	}
	return r.UserID, nil
}

func (h *Handle) Establish(ctx context.Context, userID string) error {
	return h.store.Establish(ctx, h.id, userID)
}

func (h *Handle) Clear(ctx context.Context) error {
	return h.store.Delete(ctx, h.id)
}
