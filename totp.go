package loginguard

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
	"github.com/pquerna/otp/totp"
)

const totpSecretBytes = 20

type totpManager struct {
	config TOTPConfig
	opts   hotp.ValidateOpts
}

func newTOTPManager(cfg TOTPConfig) *totpManager {
	return &totpManager{
		config: cfg,
		opts: hotp.ValidateOpts{
			Digits:    otp.Digits(cfg.Digits),
			Algorithm: otpAlgorithm(cfg.Algorithm),
		},
	}
}

// Provision generates a new base32 secret for account along with the
// otpauth:// URI authenticator apps scan.
func (m *totpManager) Provision(account string) (*TOTPProvision, error) {
	if m == nil {
		return nil, ErrEngineNotReady
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      m.config.Issuer,
		AccountName: account,
		Period:      m.config.Period,
		SecretSize:  totpSecretBytes,
		Digits:      m.opts.Digits,
		Algorithm:   m.opts.Algorithm,
	})
	if err != nil {
		return nil, errors.Join(ErrTOTPUnavailable, err)
	}
	return &TOTPProvision{Secret: key.Secret(), URI: key.URL()}, nil
}

// VerifyCode checks code against the current step and Skew steps either side,
// all derived from the single instant now. A malformed code is a mismatch; a
// malformed secret is an error.
func (m *totpManager) VerifyCode(secretBase32 string, code string, now time.Time) (bool, error) {
	if m == nil {
		return false, ErrEngineNotReady
	}

	trimmed := strings.TrimSpace(code)
	if len(trimmed) != m.config.Digits || !isNumericString(trimmed) {
		return false, nil
	}
	if secretBase32 == "" {
		return false, errors.New("empty totp secret")
	}

	baseCounter := now.Unix() / int64(m.config.Period)
	skew := int64(m.config.Skew)
	matched := false
	for step := -skew; step <= skew; step++ {
		counter := baseCounter + step
		if counter < 0 {
			continue
		}
		generated, err := hotp.GenerateCodeCustom(secretBase32, uint64(counter), m.opts)
		if err != nil {
			return false, err
		}
		if subtle.ConstantTimeCompare([]byte(generated), []byte(trimmed)) == 1 {
			matched = true
		}
	}

	return matched, nil
}

func otpAlgorithm(name string) otp.Algorithm {
	switch strings.ToUpper(name) {
	case "SHA256":
		return otp.AlgorithmSHA256
	case "SHA512":
		return otp.AlgorithmSHA512
	default:
		return otp.AlgorithmSHA1
	}
}

func isNumericString(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
