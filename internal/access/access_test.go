package access

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type captureNotifier struct {
	mu    sync.Mutex
	sends []sentMail
	fail  bool
}

func (n *captureNotifier) Send(ctx context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("smtp unreachable")
	}
	n.sends = append(n.sends, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (n *captureNotifier) last(t *testing.T) sentMail {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sends) == 0 {
		t.Fatal("expected a notification to be sent")
	}
	return n.sends[len(n.sends)-1]
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testEnv struct {
	svc      *Service
	store    *MemoryStore
	notifier *captureNotifier
	clock    *fakeClock
}

func newTestEnv(t *testing.T, opts ...ServiceOption) *testEnv {
	t.Helper()
	store := NewMemoryStore()
	issuer, err := NewIssuer([]byte("test-signing-secret"))
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	notifier := &captureNotifier{}
	clock := &fakeClock{t: time.Now().UTC()}
	base := []ServiceOption{
		WithNotifier(notifier),
		WithFrontendURL("https://app.example.com"),
		WithClock(clock.Now),
	}
	svc, err := NewService(store, issuer, append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &testEnv{svc: svc, store: store, notifier: notifier, clock: clock}
}

// seedUser creates an active user with a bcrypt-hashed password.
func (e *testEnv) seedUser(t *testing.T, email, password string, role Role, mutate func(*User)) *User {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	u := &User{
		Name:         "Test User",
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       StatusActive,
		MFA:          MFAState{Method: MFANone},
	}
	if mutate != nil {
		mutate(u)
	}
	if err := e.store.Users(context.Background()).Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}
