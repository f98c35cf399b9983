package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Floors applied both to Config and to parameters read back from stored
// hashes. A stored hash below them is treated as malformed rather than
// verified cheaply.
const (
	floorMemoryKB    uint32 = 8 * 1024
	floorTime        uint32 = 1
	floorParallelism uint8  = 1
	floorSaltBytes          = 16
	floorKeyBytes           = 16

	argon2idPrefix = "$argon2id$"

	// DefaultMaxPasswordBytes bounds hashing work for oversized inputs.
	DefaultMaxPasswordBytes = 1024
)

var (
	// ErrPasswordTooLong is returned when a password exceeds Config.MaxPasswordBytes.
	ErrPasswordTooLong = errors.New("password exceeds maximum length")
	// ErrMalformedHash is returned for a stored Argon2id string that cannot be decoded.
	ErrMalformedHash = errors.New("malformed argon2id hash")
)

// Config holds Argon2id cost parameters. A zero MaxPasswordBytes means
// DefaultMaxPasswordBytes.
type Config struct {
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
}

// DefaultConfig returns the parameters used when none are configured.
func DefaultConfig() Config {
	return Config{
		Memory:           64 * 1024,
		Time:             3,
		Parallelism:      2,
		SaltLength:       16,
		KeyLength:        32,
		MaxPasswordBytes: DefaultMaxPasswordBytes,
	}
}

func (c Config) validate() error {
	switch {
	case c.Memory < floorMemoryKB:
		return fmt.Errorf("password memory must be >= %d KB", floorMemoryKB)
	case c.Time < floorTime:
		return fmt.Errorf("password time must be >= %d", floorTime)
	case c.Parallelism < floorParallelism:
		return fmt.Errorf("password parallelism must be >= %d", floorParallelism)
	case c.SaltLength < floorSaltBytes:
		return fmt.Errorf("password salt length must be >= %d", floorSaltBytes)
	case c.KeyLength < floorKeyBytes:
		return fmt.Errorf("password key length must be >= %d", floorKeyBytes)
	case c.MaxPasswordBytes < 0:
		return errors.New("password max bytes must be >= 0")
	}
	return nil
}

func (c Config) cost() cost {
	return cost{memory: c.Memory, time: c.Time, threads: c.Parallelism}
}

// cost is the m, t, p triple carried in a PHC string.
type cost struct {
	memory  uint32
	time    uint32
	threads uint8
}

func (c cost) below(target cost) bool {
	return c.memory < target.memory || c.time < target.time || c.threads < target.threads
}

// phc is a decoded $argon2id$v=19$m=..,t=..,p=..$salt$key string.
type phc struct {
	cost
	salt []byte
	key  []byte
}

// String encodes h in PHC form with unpadded base64, as the PHC string
// format specifies.
func (h phc) String() string {
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2idPrefix,
		argon2.Version,
		h.memory, h.time, h.threads,
		base64.RawStdEncoding.EncodeToString(h.salt),
		base64.RawStdEncoding.EncodeToString(h.key),
	)
}

func malformed(what string) error {
	return fmt.Errorf("%w: %s", ErrMalformedHash, what)
}

// decodePHC parses an Argon2id PHC string. Padded base64 segments are
// accepted so hashes written by other libraries still verify.
func decodePHC(encoded string) (phc, error) {
	rest, ok := strings.CutPrefix(encoded, argon2idPrefix)
	if !ok {
		return phc{}, malformed("not argon2id")
	}
	fields := strings.Split(rest, "$")
	if len(fields) != 4 {
		return phc{}, malformed("field count")
	}

	if fields[0] != fmt.Sprintf("v=%d", argon2.Version) {
		return phc{}, malformed("version")
	}

	var h phc
	if _, err := fmt.Sscanf(fields[1], "m=%d,t=%d,p=%d", &h.memory, &h.time, &h.threads); err != nil {
		return phc{}, malformed("parameters")
	}
	// Sscanf stops at the last verb; the round trip rejects trailing bytes.
	if fields[1] != fmt.Sprintf("m=%d,t=%d,p=%d", h.memory, h.time, h.threads) {
		return phc{}, malformed("parameters")
	}
	if h.memory < floorMemoryKB || h.time < floorTime || h.threads < floorParallelism {
		return phc{}, malformed("parameters below floor")
	}

	var err error
	if h.salt, err = decodeSegment(fields[2]); err != nil || len(h.salt) < floorSaltBytes {
		return phc{}, malformed("salt")
	}
	if h.key, err = decodeSegment(fields[3]); err != nil || len(h.key) < floorKeyBytes {
		return phc{}, malformed("key")
	}
	return h, nil
}

func decodeSegment(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

// Argon2 hashes and verifies Argon2id PHC strings.
type Argon2 struct {
	config Config
}

// NewArgon2 validates cfg and returns a hasher.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.MaxPasswordBytes == 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	return &Argon2{config: cfg}, nil
}

func derive(password string, salt []byte, c cost, keyLen uint32) []byte {
	return argon2.IDKey([]byte(password), salt, c.time, c.memory, c.threads, keyLen)
}

// Hash returns a PHC-encoded Argon2id hash of password with a fresh salt.
// Password bytes are used as provided, without Unicode normalization.
// Length and strength policy belong to the caller.
func (a *Argon2) Hash(password string) (string, error) {
	salt := make([]byte, a.config.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	c := a.config.cost()
	return phc{cost: c, salt: salt, key: derive(password, salt, c, a.config.KeyLength)}.String(), nil
}

// Verify reports whether password matches encodedHash, deriving with the
// parameters stored in the hash. A malformed hash is an error; a mismatch is not.
func (a *Argon2) Verify(password string, encodedHash string) (bool, error) {
	h, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}
	computed := derive(password, h.salt, h.cost, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(computed, h.key) == 1, nil
}

// NeedsUpgrade reports whether encodedHash is cheaper than the current
// configuration or uses a different key or shorter salt length. A stored hash
// stronger than the configuration is left alone.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	h, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}
	return h.cost.below(a.config.cost()) ||
		uint32(len(h.key)) != a.config.KeyLength ||
		uint32(len(h.salt)) < a.config.SaltLength, nil
}
