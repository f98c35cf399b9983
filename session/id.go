package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

const idSize = 16

// ErrInvalidID is returned by ParseID for values NewID could not have produced.
var ErrInvalidID = errors.New("invalid session id")

// NewID returns a random session ID, base64url without padding.
func NewID() (string, error) {
	var raw [idSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// ParseID checks that id is a well-formed session ID. Cookie values are
// untrusted, so callers should reject anything that fails here before
// touching the store.
func ParseID(id string) error {
	raw, err := base64.RawURLEncoding.DecodeString(id)
	if err != nil {
		return ErrInvalidID
	}
	if len(raw) != idSize {
		return ErrInvalidID
	}
	return nil
}
