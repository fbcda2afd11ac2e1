package access

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// LoginNext tells the caller which step the login stopped at.
type LoginNext string

const (
	// NextMFASetup: the account has no MFA method yet; the token is
	// setup-scoped and login is not yet granted.
	NextMFASetup LoginNext = "mfa_setup"
	// NextOTPSent: a fresh code was emailed; the token is mfa-verify-scoped.
	NextOTPSent LoginNext = "otp_sent"
	// NextTOTPRequired: the caller supplies an authenticator code; the token
	// is mfa-verify-scoped.
	NextTOTPRequired LoginNext = "totp_required"
)

// LoginResult carries the scoped token produced by a credential check. A
// session token is never issued here; it is minted by VerifyCode only.
type LoginResult struct {
	Next      LoginNext
	Token     string
	ExpiresAt time.Time
	User      Profile
}

// Login checks credentials and routes the principal into MFA enrollment or
// verification. The branch order is part of the contract: the mfa-none
// short-circuit comes before the status gate, so an unenrolled account
// reaches setup even when not active.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	user, err := s.store.Users(ctx).FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	if user.MFA.Method == MFANone || user.MFA.Method == "" {
		token, err := s.issuer.Issue(user.ID, ScopeSetup, SetupTokenTTL)
		if err != nil {
			return nil, err
		}
		return &LoginResult{
			Next:      NextMFASetup,
			Token:     token,
			ExpiresAt: s.now().UTC().Add(SetupTokenTTL),
			User:      user.Profile(),
		}, nil
	}

	if user.Status != StatusActive {
		return nil, fmt.Errorf("%w: user is %s", ErrForbidden, user.Status)
	}

	switch user.MFA.Method {
	case MFAOTP:
		// Every login re-rolls the pending code.
		code, err := s.genCode()
		if err != nil {
			return nil, err
		}
		user.MFA.PendingCode = code
		user.MFA.CodeExpiresAt = s.now().UTC().Add(otpCodeTTL)
		if err := s.store.Users(ctx).Save(ctx, user); err != nil {
			return nil, err
		}
		s.notify(ctx, user.Email, s.brand+" Login OTP",
			fmt.Sprintf("Your OTP code is %s. It expires in 5 minutes.", code))

		token, err := s.issuer.Issue(user.ID, ScopeMFAVerify, MFATokenTTL)
		if err != nil {
			return nil, err
		}
		return &LoginResult{
			Next:      NextOTPSent,
			Token:     token,
			ExpiresAt: s.now().UTC().Add(MFATokenTTL),
			User:      user.Profile(),
		}, nil
	case MFATOTP:
		token, err := s.issuer.Issue(user.ID, ScopeMFAVerify, MFATokenTTL)
		if err != nil {
			return nil, err
		}
		return &LoginResult{
			Next:      NextTOTPRequired,
			Token:     token,
			ExpiresAt: s.now().UTC().Add(MFATokenTTL),
			User:      user.Profile(),
		}, nil
	}

	// Method set but not otp or totp.
	return nil, fmt.Errorf("access: unsupported mfa method %q", user.MFA.Method)
}

// Authenticate resolves a session token to its principal. Disabled accounts
// are rejected even when the token itself is still valid.
func (s *Service) Authenticate(ctx context.Context, sessionToken string) (*User, error) {
	claims, err := s.issuer.Verify(sessionToken, ScopeSession)
	if err != nil {
		return nil, err
	}
	user, err := s.store.Users(ctx).Find(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if user.Status == StatusDisabled {
		return nil, fmt.Errorf("%w: account is disabled", ErrForbidden)
	}
	return user, nil
}
