package loginguard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"

	"github.com/MrEthical07/loginguard/password"
)

const (
	testPassword = "correct-password-123"
	testSecret   = "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP"
)

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: testEpoch}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type loginRecord struct {
	IP string
	At time.Time
}

type mockUserProvider struct {
	mu     sync.Mutex
	users  map[string]UserRecord
	logins map[string][]loginRecord

	failLookup      error
	failRecordLogin error
}

func newMockUserProvider() *mockUserProvider {
	return &mockUserProvider{
		users:  make(map[string]UserRecord),
		logins: make(map[string][]loginRecord),
	}
}

func (m *mockUserProvider) put(u UserRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.UserID] = u
}

func (m *mockUserProvider) FindByUsername(_ context.Context, username string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLookup != nil {
		return UserRecord{}, m.failLookup
	}
	for _, u := range m.users {
		if strings.ToLower(u.Username) == username {
			return u, nil
		}
	}
	return UserRecord{}, ErrUserNotFound
}

func (m *mockUserProvider) FindByEmail(_ context.Context, email string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLookup != nil {
		return UserRecord{}, m.failLookup
	}
	for _, u := range m.users {
		if u.Email != "" && u.Email == email {
			return u, nil
		}
	}
	return UserRecord{}, ErrUserNotFound
}

func (m *mockUserProvider) GetUserByID(_ context.Context, userID string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLookup != nil {
		return UserRecord{}, m.failLookup
	}
	u, ok := m.users[userID]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return u, nil
}

func (m *mockUserProvider) RecordLogin(_ context.Context, userID, ip string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRecordLogin != nil {
		return m.failRecordLogin
	}
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.LastLoginAt = at
	u.LastLoginIP = ip
	m.users[userID] = u
	m.logins[userID] = append(m.logins[userID], loginRecord{IP: ip, At: at})
	return nil
}

func (m *mockUserProvider) loginCount(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.logins[userID])
}

func (m *mockUserProvider) user(userID string) UserRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[userID]
}

// failingAuditLog rejects appends while failing is set.
type failingAuditLog struct {
	mu      sync.Mutex
	failing bool
	events  []AuditEvent
}

func (f *failingAuditLog) setFailing(v bool) {
	f.mu.Lock()
	f.failing = v
	f.mu.Unlock()
}

func (f *failingAuditLog) Append(_ context.Context, e AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("disk full")
	}
	f.events = append(f.events, e)
	return nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.BcryptCost = 4
	cfg.PendingToken.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	return cfg
}

func testHash(t *testing.T, cfg Config, plain string) string {
	t.Helper()

	v, err := password.NewVerifier(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	}, cfg.Password.BcryptCost)
	if err != nil {
		t.Fatalf("NewVerifier failed: %v", err)
	}
	h, err := v.Hash(plain)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	return h
}

func aliceRecord(t *testing.T, cfg Config) UserRecord {
	t.Helper()
	return UserRecord{
		UserID:       "u1",
		Username:     "Alice",
		Email:        "alice@example.com",
		PasswordHash: testHash(t, cfg, testPassword),
		Active:       true,
		Tier:         TierUser,
	}
}

type engineFixture struct {
	engine *Engine
	users  *mockUserProvider
	audit  *MemoryAuditLog
	bans   *MemoryBanStore
	clock  *fakeClock
}

func newTestEngine(t *testing.T, cfg Config) *engineFixture {
	t.Helper()

	f := &engineFixture{
		users: newMockUserProvider(),
		audit: NewMemoryAuditLog(),
		bans:  NewMemoryBanStore(),
		clock: newFakeClock(),
	}
	f.users.put(aliceRecord(t, cfg))

	engine, err := New().
		WithConfig(cfg).
		WithUserProvider(f.users).
		WithAuditLog(f.audit).
		WithBanStore(f.bans).
		WithLogger(zaptest.NewLogger(t)).
		WithClock(f.clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	f.engine = engine
	return f
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func codeAt(t *testing.T, secret string, at time.Time) string {
	t.Helper()

	code, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    30,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		t.Fatalf("GenerateCodeCustom failed: %v", err)
	}
	return code
}
