package loginguard_test

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/loginguard"
	"github.com/MrEthical07/loginguard/session"
	"github.com/redis/go-redis/v9"
)

// ExampleNew demonstrates engine construction with production-style dependencies.
func ExampleNew() {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	provider := &exampleUserProvider{}

	engine, _ := loginguard.New().
		WithRedis(rdb).
		WithUserProvider(provider).
		Build()
	_ = engine
}

// ExampleEngine_Login shows a login call and how each outcome maps to a response.
func ExampleEngine_Login() {
	var engine *loginguard.Engine
	sessions := session.NewStore(redis.NewClient(&redis.Options{}), "app", 0)

	res, err := engine.Login(context.Background(), loginguard.LoginRequest{
		Handle:   "alice@example.com",
		Password: "password",
		IP:       "203.0.113.7",
		Redirect: "/dashboard",
		Session:  sessions.Handle("cookie-session-id"),
	})
	if err != nil {
		// infrastructure fault, nothing was committed
		return
	}
	switch res.Outcome {
	case loginguard.OutcomeSuccess:
		_ = res.Redirect
	case loginguard.OutcomeTOTPRequired:
		_ = res.PendingToken
	}
}

// ExampleEngine_MetricsSnapshot shows how to read in-process metrics counters.
func ExampleEngine_MetricsSnapshot() {
	var engine *loginguard.Engine
	snapshot := engine.MetricsSnapshot()
	_ = snapshot.Counters[loginguard.MetricLoginSuccess]
}

func ExampleNormalizeEmail() {
	fmt.Println(loginguard.NormalizeEmail(" Alice.Smith+news@GoogleMail.com "))
	fmt.Println(loginguard.NormalizeEmail("Bob.Jones+x@Example.com"))
	// Output:
	// alicesmith@gmail.com
	// bob.jones+x@example.com
}

func ExampleIsSafeRedirect() {
	for _, target := range []string{"/dashboard", "//evil.example", "/\\evil.example", " \t//evil.example"} {
		fmt.Println(loginguard.IsSafeRedirect(target))
	}
	// Output:
	// true
	// false
	// false
	// false
}

type exampleUserProvider struct{}

func (e *exampleUserProvider) FindByUsername(ctx context.Context, username string) (loginguard.UserRecord, error) {
	return loginguard.UserRecord{}, loginguard.ErrUserNotFound
}
func (e *exampleUserProvider) FindByEmail(ctx context.Context, email string) (loginguard.UserRecord, error) {
	return loginguard.UserRecord{}, loginguard.ErrUserNotFound
}
func (e *exampleUserProvider) GetUserByID(ctx context.Context, userID string) (loginguard.UserRecord, error) {
	return loginguard.UserRecord{}, loginguard.ErrUserNotFound
}
func (e *exampleUserProvider) RecordLogin(ctx context.Context, userID, ip string, at time.Time) error {
	return nil
}
