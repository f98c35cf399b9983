package jwt

import (
	"testing"
	"time"
)

// FuzzParsePending feeds arbitrary strings to the parser. Malformed input must
// be rejected without panicking.
func FuzzParsePending(f *testing.F) {
	mgr, err := NewManager(Config{
		TTL:           5 * time.Minute,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
		Issuer:        "fuzz-test",
		Leeway:        30 * time.Second,
	}, nil)
	if err != nil {
		f.Fatal(err)
	}

	validToken, _, err := mgr.CreatePending("uid1", time.Now())
	if err != nil {
		f.Fatal(err)
	}

	f.Add(validToken)
	f.Add("")
	f.Add("not.a.jwt")
	f.Add("eyJhbGciOiJub25lIn0.eyJ1aWQiOiJ0ZXN0In0.")

	f.Fuzz(func(t *testing.T, input string) {
		claims, err := mgr.ParsePending(input)
		if err != nil {
			return
		}
		if claims.Purpose != PurposeVerifyTOTP || claims.Subject == "" {
			t.Fatalf("parser accepted claims without purpose or subject: %+v", claims)
		}
	})
}
