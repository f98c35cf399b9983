package session

import (
	"errors"
	"testing"
)

func TestNewIDIsParseableAndUnique(t *testing.T) {
	seen := make(map[string]struct{}, 64)
	for i := 0; i < 64; i++ {
		id, err := NewID()
		if err != nil {
			t.Fatalf("NewID: %v", err)
		}
		if len(id) != 22 {
			t.Fatalf("expected 22 chars, got %d (%q)", len(id), id)
		}
		if err := ParseID(id); err != nil {
			t.Fatalf("ParseID(%q): %v", id, err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestParseIDRejectsMalformed(t *testing.T) {
	for _, id := range []string{"", "short", "AAAAAAAAAAAAAAAAAAAAAAAA", "AAAAAAAAAAAAAAAAAAAA+/", "lgs:u:alice"} {
		if err := ParseID(id); !errors.Is(err, ErrInvalidID) {
			t.Fatalf("ParseID(%q): expected ErrInvalidID, got %v", id, err)
		}
	}
}
