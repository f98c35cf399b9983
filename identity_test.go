package loginguard

import (
	"context"
	"errors"
	"testing"
)

func TestNormalizeEmail(t *testing.T) {
	cases := map[string]string{
		"Alice@Example.com":          "alice@example.com",
		"  bob@example.org ":         "bob@example.org",
		"first.last@example.com":     "first.last@example.com",
		"first.last+tag@example.com": "first.last+tag@example.com",
		"First.Last@gmail.com":       "firstlast@gmail.com",
		"first.last+news@gmail.com":  "firstlast@gmail.com",
		"firstlast@googlemail.com":   "firstlast@gmail.com",
		"f.i.r.s.t@GoogleMail.com":   "first@gmail.com",
		"+only@gmail.com":            "+only@gmail.com",
		"no-at-sign":                 "no-at-sign",
		"two@@gmail.com":             "two@@gmail.com",
		"trailing@":                  "trailing@",
	}

	for in, want := range cases {
		if got := NormalizeEmail(in); got != want {
			t.Fatalf("NormalizeEmail(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeHandle(t *testing.T) {
	if got := NormalizeHandle("  AliCe "); got != "alice" {
		t.Fatalf("NormalizeHandle = %q", got)
	}
}

func TestResolveIdentityFallsBackToUsername(t *testing.T) {
	cfg := testConfig()
	f := newTestEngine(t, cfg)

	odd := aliceRecord(t, cfg)
	odd.UserID = "u3"
	odd.Username = "carol@legacy"
	odd.Email = "carol@example.net"
	f.users.put(odd)

	u, found, err := f.engine.resolveIdentity(context.Background(), "Carol@Legacy")
	if err != nil || !found {
		t.Fatalf("expected username fallback, found=%v err=%v", found, err)
	}
	if u.UserID != "u3" {
		t.Fatalf("expected u3, got %s", u.UserID)
	}
}

func TestResolveIdentityEmptyHandle(t *testing.T) {
	f := newTestEngine(t, testConfig())

	_, found, err := f.engine.resolveIdentity(context.Background(), "   ")
	if err != nil || found {
		t.Fatalf("expected not found, found=%v err=%v", found, err)
	}
}

func TestResolveIdentityProviderFault(t *testing.T) {
	f := newTestEngine(t, testConfig())
	f.users.failLookup = errors.New("timeout")

	for _, h := range []string{"alice", "alice@example.com"} {
		_, _, err := f.engine.resolveIdentity(context.Background(), h)
		if !errors.Is(err, ErrUserProviderUnavailable) {
			t.Fatalf("resolveIdentity(%q) expected ErrUserProviderUnavailable, got %v", h, err)
		}
	}
}
