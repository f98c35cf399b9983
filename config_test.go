package loginguard

import (
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.RateLimit.MaxAttempts != 10 || cfg.RateLimit.Window != 60*time.Second {
		t.Fatalf("unexpected rate limit defaults %+v", cfg.RateLimit)
	}
	if cfg.TOTP.Period != 30 || cfg.TOTP.Skew != 1 || cfg.TOTP.Digits != 6 {
		t.Fatalf("unexpected TOTP defaults %+v", cfg.TOTP)
	}
	if cfg.PendingToken.TTL != 5*time.Minute || !cfg.PendingToken.SingleUse {
		t.Fatalf("unexpected pending token defaults %+v", cfg.PendingToken)
	}
}

func TestConfigValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero attempts", func(c *Config) { c.RateLimit.MaxAttempts = 0 }},
		{"zero window", func(c *Config) { c.RateLimit.Window = 0 }},
		{"zero period", func(c *Config) { c.TOTP.Period = 0 }},
		{"seven digits", func(c *Config) { c.TOTP.Digits = 7 }},
		{"md5", func(c *Config) { c.TOTP.Algorithm = "MD5" }},
		{"wide skew", func(c *Config) { c.TOTP.Skew = 4 }},
		{"zero pending ttl", func(c *Config) { c.PendingToken.TTL = 0 }},
		{"long pending ttl", func(c *Config) { c.PendingToken.TTL = time.Hour }},
		{"short hs256 key", func(c *Config) { c.PendingToken.PrivateKey = []byte("short") }},
		{"ed25519 without key", func(c *Config) { c.PendingToken.SigningMethod = "ed25519" }},
		{"unknown method", func(c *Config) { c.PendingToken.SigningMethod = "rs256" }},
		{"verify keys without kid", func(c *Config) { c.PendingToken.VerifyKeys = map[string][]byte{"k1": []byte("x")} }},
		{"zero inactive", func(c *Config) { c.Trust.InactiveAfter = 0 }},
		{"bad cidr", func(c *Config) { c.Trust.TrustedCIDRs = []string{"10.0.0.1"} }},
		{"unsafe default redirect", func(c *Config) { c.Redirect.Default = "//evil" }},
		{"empty default redirect", func(c *Config) { c.Redirect.Default = "" }},
		{"weak argon2", func(c *Config) { c.Password.Time = 0 }},
		{"short salt", func(c *Config) { c.Password.SaltLength = 8 }},
	}

	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestConfigRateLimitDisabledSkipsBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimit.Enabled = false
	cfg.RateLimit.MaxAttempts = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected disabled limiter to skip bounds, got %v", err)
	}
}

func TestCloneConfigIsDeep(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PendingToken.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.PendingToken.VerifyKeys = map[string][]byte{"k1": []byte("old-secret-old-secret-old-secret")}
	cfg.Trust.TrustedCIDRs = []string{"10.0.0.0/8"}

	out := cloneConfig(cfg)
	cfg.PendingToken.PrivateKey[0] = 'X'
	cfg.PendingToken.VerifyKeys["k1"][0] = 'X'
	cfg.PendingToken.VerifyKeys["k2"] = nil
	cfg.Trust.TrustedCIDRs[0] = "192.0.2.0/24"

	if out.PendingToken.PrivateKey[0] != '0' {
		t.Fatal("private key shared with clone")
	}
	if len(out.PendingToken.VerifyKeys) != 1 || out.PendingToken.VerifyKeys["k1"][0] != 'o' {
		t.Fatal("verify keys shared with clone")
	}
	if out.Trust.TrustedCIDRs[0] != "10.0.0.0/8" {
		t.Fatal("trusted CIDRs shared with clone")
	}
}
