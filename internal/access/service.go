package access

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"
)

const defaultBrand = "AccessFlow"

// Service orchestrates the invitation, authentication, MFA and password reset
// flows over an externally-owned store. It holds no mutable state of its own;
// every call is a short read-then-write sequence against the store.
type Service struct {
	store    Store
	issuer   *Issuer
	notifier Notifier

	now         func() time.Time
	genCode     func() (string, error)
	frontendURL string
	brand       string
	logf        func(format string, args ...any)
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithNotifier sets the outbound email dispatcher. Without one, notification
// side effects are skipped.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) error {
		s.notifier = n
		return nil
	}
}

// WithFrontendURL sets the base URL embedded into acceptance and reset links.
func WithFrontendURL(url string) ServiceOption {
	return func(s *Service) error {
		s.frontendURL = url
		return nil
	}
}

// WithBrand overrides the issuer name embedded into TOTP provisioning URIs
// and email subjects.
func WithBrand(name string) ServiceOption {
	return func(s *Service) error {
		if name != "" {
			s.brand = name
		}
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
			s.issuer.now = fn
		}
		return nil
	}
}

// WithCodeGenerator overrides OTP code generation (useful for tests).
func WithCodeGenerator(fn func() (string, error)) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.genCode = fn
		}
		return nil
	}
}

// NewService constructs the orchestration service.
func NewService(store Store, issuer *Issuer, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("access: store is required")
	}
	if issuer == nil {
		return nil, errors.New("access: token issuer is required")
	}
	s := &Service{
		store:   store,
		issuer:  issuer,
		now:     time.Now,
		genCode: generateOTPCode,
		brand:   defaultBrand,
		logf:    log.Printf,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Issuer exposes the token issuer for transport-layer verification.
func (s *Service) Issuer() *Issuer { return s.issuer }

// ListUsers returns public profiles of all principals.
func (s *Service) ListUsers(ctx context.Context) ([]Profile, error) {
	users, err := s.store.Users(ctx).List(ctx)
	if err != nil {
		return nil, err
	}
	profiles := make([]Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Profile())
	}
	return profiles, nil
}

// notify dispatches an email best-effort. Delivery failure is logged and
// never surfaced to the caller of the primary flow.
func (s *Service) notify(ctx context.Context, to, subject, body string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, to, subject, body); err != nil {
		s.logf("notify %q to %s: %v", subject, to, err)
	}
}

// generateOTPCode returns a 6-digit numeric code uniform over 100000-999999.
func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate otp code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
