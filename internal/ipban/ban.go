package ipban

import (
	"context"
	"errors"
	"time"
)

// Category is the severity of a ban.
type Category string

const (
	// Full bans block authentication from the address.
	Full Category = "full"
	// Partial bans are informational only.
	Partial Category = "partial"
)

// Ban is one IP restriction record.
type Ban struct {
	ID        string
	IP        string
	Category  Category
	Deleted   bool
	Hits      int64
	LastHitAt time.Time
}

// Verdict is the result of evaluating an address.
type Verdict uint8

const (
	// Clear means authentication may proceed.
	Clear Verdict = iota
	// Blocked means a full ban matched.
	Blocked
)

func (v Verdict) String() string {
	if v == Blocked {
		return "blocked"
	}
	return "clear"
}

var (
	// ErrBackendUnavailable wraps store failures.
	ErrBackendUnavailable = errors.New("ip ban backend unavailable")
	// ErrBanNotFound is returned when a hit is recorded against an unknown or
	// deleted ban.
	ErrBanNotFound = errors.New("ip ban not found")
)

// Store persists bans and their hit statistics.
//
// RecordHit must increment atomically so concurrent blocked attempts from the
// same address are each counted exactly once.
type Store interface {
	BansFor(ctx context.Context, ip string) ([]Ban, error)
	RecordHit(ctx context.Context, banID string, at time.Time) error
}

// Registry evaluates addresses against a [Store].
type Registry struct {
	store Store
}

// NewRegistry creates a registry over store.
func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

// Evaluate returns Blocked when a live full ban exists for ip, recording the
// hit on it. Partial and deleted bans never block and are never mutated.
func (r *Registry) Evaluate(ctx context.Context, ip string, now time.Time) (Verdict, error) {
	if r == nil || r.store == nil || ip == "" {
		return Clear, nil
	}

	bans, err := r.store.BansFor(ctx, ip)
	if err != nil {
		return Clear, err
	}

	ban, ok := mostRestrictive(bans)
	if !ok || ban.Category != Full {
		return Clear, nil
	}
	if err := r.store.RecordHit(ctx, ban.ID, now); err != nil {
		if errors.Is(err, ErrBanNotFound) {
			// Deleted since BansFor.
			return Clear, nil
		}
		return Clear, err
	}
	return Blocked, nil
}

func mostRestrictive(bans []Ban) (Ban, bool) {
	var (
		picked Ban
		found  bool
	)
	for _, b := range bans {
		if b.Deleted {
			continue
		}
		switch b.Category {
		case Full:
			return b, true
		case Partial:
			if !found {
				picked, found = b, true
			}
		}
	}
	return picked, found
}
