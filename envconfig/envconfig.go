package envconfig

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/MrEthical07/loginguard"
)

// Prefix is the namespace of every recognized key.
const Prefix = "LOGINGUARD_"

// Settings is the loaded configuration plus the process-level values that sit
// outside the engine.
type Settings struct {
	Engine    loginguard.Config
	RedisAddr string
	LogLevel  string
}

// Load reads path (skipped when empty or absent) and then the environment on
// top of base. The merged engine configuration is validated before return.
func Load(path string, base loginguard.Config) (Settings, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), dotenv.Parser()); err != nil {
				return Settings{}, fmt.Errorf("load %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Settings{}, fmt.Errorf("stat %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(Prefix, ".", nil), nil); err != nil {
		return Settings{}, fmt.Errorf("load environment: %w", err)
	}

	return decode(k, base)
}

func decode(k *koanf.Koanf, base loginguard.Config) (Settings, error) {
	s := Settings{
		Engine:   base,
		LogLevel: "info",
	}
	cfg := &s.Engine
	r := reader{k: k}

	r.str("REDIS_ADDR", &s.RedisAddr)
	r.str("LOG_LEVEL", &s.LogLevel)

	r.boolean("RATE_LIMIT_ENABLED", &cfg.RateLimit.Enabled)
	r.integer("RATE_LIMIT_MAX_ATTEMPTS", &cfg.RateLimit.MaxAttempts)
	r.duration("RATE_LIMIT_WINDOW", &cfg.RateLimit.Window)
	r.str("RATE_LIMIT_PREFIX", &cfg.RateLimit.RedisPrefix)

	r.str("BAN_PREFIX", &cfg.Ban.RedisPrefix)

	r.str("TOTP_ISSUER", &cfg.TOTP.Issuer)
	r.uinteger("TOTP_PERIOD", &cfg.TOTP.Period)
	r.integer("TOTP_DIGITS", &cfg.TOTP.Digits)
	r.str("TOTP_ALGORITHM", &cfg.TOTP.Algorithm)
	r.uinteger("TOTP_SKEW", &cfg.TOTP.Skew)

	r.duration("PENDING_TTL", &cfg.PendingToken.TTL)
	r.str("PENDING_SIGNING_METHOD", &cfg.PendingToken.SigningMethod)
	r.secret("PENDING_KEY", &cfg.PendingToken.PrivateKey)
	r.secret("PENDING_PUBLIC_KEY", &cfg.PendingToken.PublicKey)
	r.str("PENDING_KEY_ID", &cfg.PendingToken.KeyID)
	r.keyring("PENDING_VERIFY_KEYS", &cfg.PendingToken.VerifyKeys)
	r.str("PENDING_ISSUER", &cfg.PendingToken.Issuer)
	r.duration("PENDING_LEEWAY", &cfg.PendingToken.Leeway)
	r.boolean("PENDING_SINGLE_USE", &cfg.PendingToken.SingleUse)
	r.str("PENDING_LEDGER_PREFIX", &cfg.PendingToken.LedgerPrefix)

	r.duration("TRUST_INACTIVE_AFTER", &cfg.Trust.InactiveAfter)
	r.tier("TRUST_PRIVILEGED_TIER", &cfg.Trust.PrivilegedTier)
	r.list("TRUST_CIDRS", &cfg.Trust.TrustedCIDRs)

	r.str("REDIRECT_DEFAULT", &cfg.Redirect.Default)

	r.integer("PASSWORD_BCRYPT_COST", &cfg.Password.BcryptCost)

	r.boolean("METRICS_ENABLED", &cfg.Metrics.Enabled)
	r.boolean("METRICS_LATENCY", &cfg.Metrics.EnableLatencyHistograms)

	if r.err != nil {
		return Settings{}, r.err
	}
	if err := cfg.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return s, nil
}

// reader applies present keys onto destinations and keeps the first error.
type reader struct {
	k   *koanf.Koanf
	err error
}

func (r *reader) raw(key string) (string, bool) {
	if r.err != nil || !r.k.Exists(Prefix+key) {
		return "", false
	}
	return strings.TrimSpace(r.k.String(Prefix + key)), true
}

func (r *reader) fail(key, format string, args ...any) {
	r.err = fmt.Errorf("%s%s: "+format, append([]any{Prefix, key}, args...)...)
}

func (r *reader) str(key string, dst *string) {
	if v, ok := r.raw(key); ok {
		*dst = v
	}
}

func (r *reader) boolean(key string, dst *bool) {
	v, ok := r.raw(key)
	if !ok {
		return
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		*dst = true
	case "0", "false", "no", "off":
		*dst = false
	default:
		r.fail(key, "not a boolean: %q", v)
	}
}

func (r *reader) integer(key string, dst *int) {
	v, ok := r.raw(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, "not an integer: %q", v)
		return
	}
	*dst = n
}

func (r *reader) uinteger(key string, dst *uint) {
	v, ok := r.raw(key)
	if !ok {
		return
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		r.fail(key, "not a non-negative integer: %q", v)
		return
	}
	*dst = uint(n)
}

func (r *reader) duration(key string, dst *time.Duration) {
	v, ok := r.raw(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, "%v", err)
		return
	}
	*dst = d
}

func (r *reader) secret(key string, dst *[]byte) {
	v, ok := r.raw(key)
	if !ok || v == "" {
		return
	}
	b, err := base64.StdEncoding.DecodeString(v)
	if err != nil {
		r.fail(key, "not base64: %v", err)
		return
	}
	*dst = b
}

// keyring reads comma-separated kid:base64 pairs.
func (r *reader) keyring(key string, dst *map[string][]byte) {
	v, ok := r.raw(key)
	if !ok || v == "" {
		return
	}
	out := make(map[string][]byte)
	for _, part := range strings.Split(v, ",") {
		kid, enc, found := strings.Cut(strings.TrimSpace(part), ":")
		kid = strings.TrimSpace(kid)
		if !found || kid == "" {
			r.fail(key, "expected kid:base64, got %q", part)
			return
		}
		b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(enc))
		if err != nil {
			r.fail(key, "kid %q not base64: %v", kid, err)
			return
		}
		out[kid] = b
	}
	*dst = out
}

func (r *reader) list(key string, dst *[]string) {
	v, ok := r.raw(key)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func (r *reader) tier(key string, dst *loginguard.PrivilegeTier) {
	v, ok := r.raw(key)
	if !ok {
		return
	}
	switch strings.ToLower(v) {
	case "user":
		*dst = loginguard.TierUser
	case "staff":
		*dst = loginguard.TierStaff
	case "admin":
		*dst = loginguard.TierAdmin
	default:
		r.fail(key, "unknown tier %q", v)
	}
}
