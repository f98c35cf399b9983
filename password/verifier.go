package password

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
)

// ErrUnsupportedHash is returned for stored hashes in an unknown format.
var ErrUnsupportedHash = errors.New("unsupported password hash format")

// Verifier dispatches verification on the stored hash format. Argon2id is the
// current format; bcrypt is accepted for migrated accounts.
//
// Verifier is safe for concurrent use.
type Verifier struct {
	argon2    *Argon2
	bcrypt    *Bcrypt
	maxBytes  int
	dummyHash string
}

// NewVerifier builds a Verifier. It hashes a random password once so that
// VerifyDummy can burn the same work as a real check.
func NewVerifier(cfg Config, bcryptCost int) (*Verifier, error) {
	a, err := NewArgon2(cfg)
	if err != nil {
		return nil, err
	}

	seed := make([]byte, 24)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}
	dummy, err := a.Hash(base64.RawStdEncoding.EncodeToString(seed))
	if err != nil {
		return nil, err
	}

	return &Verifier{
		argon2:    a,
		bcrypt:    NewBcrypt(bcryptCost),
		maxBytes:  a.config.MaxPasswordBytes,
		dummyHash: dummy,
	}, nil
}

// Hash produces an Argon2id hash for storage.
func (v *Verifier) Hash(password string) (string, error) {
	if len(password) > v.maxBytes {
		return "", ErrPasswordTooLong
	}
	return v.argon2.Hash(password)
}

// Verify reports whether password matches encodedHash. A password longer than
// MaxPasswordBytes is refused with ErrPasswordTooLong after the same work as a
// dummy check, whatever format encodedHash is in.
func (v *Verifier) Verify(password string, encodedHash string) (bool, error) {
	if len(password) > v.maxBytes {
		v.VerifyDummy(password)
		return false, ErrPasswordTooLong
	}

	switch {
	case strings.HasPrefix(encodedHash, argon2idPrefix):
		return v.argon2.Verify(password, encodedHash)
	case isBcryptHash(encodedHash):
		return v.bcrypt.Verify(password, encodedHash)
	default:
		return false, ErrUnsupportedHash
	}
}

// VerifyDummy performs a verification against a throwaway hash and discards
// the result. Callers use it when no account matched so that response time
// does not reveal whether the account exists. Oversized input is truncated
// to MaxPasswordBytes first.
func (v *Verifier) VerifyDummy(password string) {
	if len(password) > v.maxBytes {
		password = password[:v.maxBytes]
	}
	_, _ = v.argon2.Verify(password, v.dummyHash)
}

// NeedsUpgrade reports whether encodedHash should be replaced by a fresh
// Argon2id hash. Every bcrypt hash qualifies.
func (v *Verifier) NeedsUpgrade(encodedHash string) (bool, error) {
	switch {
	case strings.HasPrefix(encodedHash, argon2idPrefix):
		return v.argon2.NeedsUpgrade(encodedHash)
	case isBcryptHash(encodedHash):
		return true, nil
	default:
		return false, ErrUnsupportedHash
	}
}
