//go:build integration
// +build integration

package test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/loginguard"
	"github.com/MrEthical07/loginguard/password"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"
)

const (
	integrationPassword = "correct-horse-battery"
	integrationSecret   = "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP"
)

// memProvider is a minimal UserProvider for suites that exercise Redis
// backends rather than account storage.
type memProvider struct {
	mu    sync.Mutex
	users map[string]loginguard.UserRecord
}

func newMemProvider(users ...loginguard.UserRecord) *memProvider {
	p := &memProvider{users: make(map[string]loginguard.UserRecord)}
	for _, u := range users {
		p.users[u.UserID] = u
	}
	return p
}

func (p *memProvider) find(match func(loginguard.UserRecord) bool) (loginguard.UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, u := range p.users {
		if match(u) {
			return u, nil
		}
	}
	return loginguard.UserRecord{}, loginguard.ErrUserNotFound
}

func (p *memProvider) FindByUsername(_ context.Context, username string) (loginguard.UserRecord, error) {
	return p.find(func(u loginguard.UserRecord) bool { return strings.ToLower(u.Username) == username })
}

func (p *memProvider) FindByEmail(_ context.Context, email string) (loginguard.UserRecord, error) {
	return p.find(func(u loginguard.UserRecord) bool { return u.Email == email })
}

func (p *memProvider) GetUserByID(_ context.Context, userID string) (loginguard.UserRecord, error) {
	return p.find(func(u loginguard.UserRecord) bool { return u.UserID == userID })
}

func (p *memProvider) RecordLogin(_ context.Context, userID, ip string, at time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[userID]
	if !ok {
		return loginguard.ErrUserNotFound
	}
	u.LastLoginAt = at
	u.LastLoginIP = ip
	p.users[userID] = u
	return nil
}

func integrationConfig() loginguard.Config {
	cfg := loginguard.DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.BcryptCost = 4
	cfg.PendingToken.PrivateKey = []byte("integration-signing-key-32-bytes")
	return cfg
}

func hashPassword(t *testing.T, cfg loginguard.Config) string {
	t.Helper()

	v, err := password.NewVerifier(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	}, cfg.Password.BcryptCost)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	hash, err := v.Hash(integrationPassword)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	return hash
}

// integrationUsers returns an account without a second factor ("alice") and
// one with TOTP enabled ("bob").
func integrationUsers(t *testing.T, cfg loginguard.Config) []loginguard.UserRecord {
	hash := hashPassword(t, cfg)
	return []loginguard.UserRecord{
		{UserID: "u-alice", Username: "alice", Email: "alice@example.com", PasswordHash: hash, Active: true},
		{UserID: "u-bob", Username: "bob", Email: "bob@example.com", PasswordHash: hash, Active: true, TOTPSecret: integrationSecret},
	}
}

func newRedisEngine(t *testing.T, rdb redis.UniversalClient, cfg loginguard.Config) *loginguard.Engine {
	t.Helper()

	engine, err := loginguard.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(newMemProvider(integrationUsers(t, cfg)...)).
		WithLogger(zaptest.NewLogger(t)).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func currentCode(t *testing.T) string {
	t.Helper()

	code, err := totp.GenerateCodeCustom(integrationSecret, time.Now(), totp.ValidateOpts{
		Period:    30,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		t.Fatalf("GenerateCodeCustom: %v", err)
	}
	return code
}
