package loginguard

import (
	"errors"
	"net/netip"
	"strings"
	"time"

	"github.com/MrEthical07/loginguard/password"
)

// Config defines a public type used by loginguard APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	RateLimit    RateLimitConfig
	Ban          BanConfig
	TOTP         TOTPConfig
	PendingToken PendingTokenConfig
	Trust        TrustConfig
	Redirect     RedirectConfig
	Password     PasswordConfig
	Metrics      MetricsConfig
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig bounds login attempts per source IP. Enabled is the single
// switch operators flip to turn limiting off in test or development setups.
type RateLimitConfig struct {
	Enabled     bool
	MaxAttempts int
	Window      time.Duration
	RedisPrefix string
}

/*
====================================
BAN CONFIG
====================================
*/

// BanConfig configures the Redis ban store created by Build when no store is
// supplied explicitly.
type BanConfig struct {
	RedisPrefix string
}

/*
====================================
TOTP CONFIG
====================================
*/

// TOTPConfig defines a public type used by loginguard APIs.
//
// TOTPConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TOTPConfig struct {
	Issuer    string
	Period    uint
	Digits    int    // 6 or 8
	Algorithm string // "SHA1" (default), "SHA256", "SHA512"
	Skew      uint   // accepted steps either side of the current one
}

/*
====================================
PENDING TOKEN CONFIG
====================================
*/

// PendingTokenConfig controls the token handed out between password and TOTP
// checks. With an empty PrivateKey and hs256, Build generates a random
// process-local secret; set a shared key when several instances serve traffic.
type PendingTokenConfig struct {
	TTL           time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	KeyID         string
	Issuer        string
	Leeway        time.Duration
	SingleUse     bool
	LedgerPrefix  string

	// VerifyKeys maps a retired kid to its key (Ed25519 public key or HS256
	// secret) so tokens issued before a rotation still verify. Requires KeyID.
	VerifyKeys map[string][]byte
}

/*
====================================
TRUST CONFIG
====================================
*/

// TrustConfig drives the default trust policy. Accounts at or above
// PrivilegedTier, and accounts whose last login is older than InactiveAfter,
// must log in from a trusted source: their last recorded IP or one of
// TrustedCIDRs.
type TrustConfig struct {
	InactiveAfter  time.Duration
	PrivilegedTier PrivilegeTier
	TrustedCIDRs   []string
}

/*
====================================
REDIRECT CONFIG
====================================
*/

// RedirectConfig holds the landing location used when a request names none.
type RedirectConfig struct {
	Default string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by loginguard APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
	BcryptCost       int
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by loginguard APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the configuration Build starts from.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	pw := password.DefaultConfig()
	return Config{
		RateLimit: RateLimitConfig{
			Enabled:     true,
			MaxAttempts: 10,
			Window:      60 * time.Second,
			RedisPrefix: "lgr",
		},
		Ban: BanConfig{
			RedisPrefix: "lgb",
		},
		TOTP: TOTPConfig{
			Issuer:    "loginguard",
			Period:    30,
			Digits:    6,
			Algorithm: "SHA1",
			Skew:      1,
		},
		PendingToken: PendingTokenConfig{
			TTL:           5 * time.Minute,
			SigningMethod: "hs256",
			Issuer:        "loginguard",
			SingleUse:     true,
			LedgerPrefix:  "lgp",
		},
		Trust: TrustConfig{
			InactiveAfter:  180 * 24 * time.Hour,
			PrivilegedTier: TierAdmin,
		},
		Redirect: RedirectConfig{
			Default: "/",
		},
		Password: PasswordConfig{
			Memory:           pw.Memory,
			Time:             pw.Time,
			Parallelism:      pw.Parallelism,
			SaltLength:       pw.SaltLength,
			KeyLength:        pw.KeyLength,
			MaxPasswordBytes: pw.MaxPasswordBytes,
			BcryptCost:       10,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.PendingToken.PrivateKey = cloneBytes(cfg.PendingToken.PrivateKey)
	out.PendingToken.PublicKey = cloneBytes(cfg.PendingToken.PublicKey)
	if cfg.PendingToken.VerifyKeys != nil {
		out.PendingToken.VerifyKeys = make(map[string][]byte, len(cfg.PendingToken.VerifyKeys))
		for kid, key := range cfg.PendingToken.VerifyKeys {
			out.PendingToken.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	if cfg.Trust.TrustedCIDRs != nil {
		out.Trust.TrustedCIDRs = append([]string(nil), cfg.Trust.TrustedCIDRs...)
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	// Rate limit
	if c.RateLimit.Enabled {
		if c.RateLimit.MaxAttempts <= 0 {
			return errors.New("RateLimit MaxAttempts must be > 0")
		}
		if c.RateLimit.Window <= 0 {
			return errors.New("RateLimit Window must be > 0")
		}
	}

	// TOTP
	if c.TOTP.Period == 0 {
		return errors.New("TOTP Period must be > 0")
	}
	if c.TOTP.Digits != 6 && c.TOTP.Digits != 8 {
		return errors.New("TOTP Digits must be 6 or 8")
	}
	switch strings.ToUpper(c.TOTP.Algorithm) {
	case "SHA1", "SHA256", "SHA512":
	default:
		return errors.New("TOTP Algorithm must be SHA1, SHA256, or SHA512")
	}
	if c.TOTP.Skew > 3 {
		return errors.New("TOTP Skew must be <= 3")
	}

	// Pending token
	if c.PendingToken.TTL <= 0 {
		return errors.New("PendingToken TTL must be > 0")
	}
	if c.PendingToken.TTL > 30*time.Minute {
		return errors.New("PendingToken TTL must be <= 30m")
	}
	switch c.PendingToken.SigningMethod {
	case "hs256":
		if n := len(c.PendingToken.PrivateKey); n > 0 && n < 32 {
			return errors.New("PendingToken hs256 key must be at least 32 bytes")
		}
	case "ed25519":
		if len(c.PendingToken.PrivateKey) == 0 {
			return errors.New("PendingToken ed25519 requires PrivateKey")
		}
	default:
		return errors.New("PendingToken SigningMethod must be hs256 or ed25519")
	}
	if len(c.PendingToken.VerifyKeys) > 0 && strings.TrimSpace(c.PendingToken.KeyID) == "" {
		return errors.New("PendingToken VerifyKeys requires KeyID")
	}

	// Trust
	if c.Trust.InactiveAfter <= 0 {
		return errors.New("Trust InactiveAfter must be > 0")
	}
	for _, cidr := range c.Trust.TrustedCIDRs {
		if _, err := netip.ParsePrefix(strings.TrimSpace(cidr)); err != nil {
			return errors.New("Trust TrustedCIDRs contains invalid prefix " + cidr)
		}
	}

	// Redirect
	if !IsSafeRedirect(c.Redirect.Default) || c.Redirect.Default == "" {
		return errors.New("Redirect Default must be a safe, non-empty path")
	}

	// Password
	if c.Password.Memory == 0 || c.Password.Time == 0 || c.Password.Parallelism == 0 {
		return errors.New("Password cost parameters must be > 0")
	}
	if c.Password.SaltLength < 16 || c.Password.KeyLength < 16 {
		return errors.New("Password SaltLength and KeyLength must be >= 16")
	}

	return nil
}
