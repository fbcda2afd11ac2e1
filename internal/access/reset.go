package access

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// RequestReset mints a reset token for the account and stores a copy of it on
// the principal. The stored copy is what ResetPassword checks, so clearing
// the field revokes the token regardless of its embedded expiry.
func (s *Service) RequestReset(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	user, err := s.store.Users(ctx).FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("%w: no user found", ErrNotFound)
	}
	if err != nil {
		return "", err
	}

	token, err := s.issuer.Issue(user.ID, ScopeReset, ResetTokenTTL)
	if err != nil {
		return "", err
	}
	user.ResetToken = token
	user.ResetExpiresAt = s.now().UTC().Add(ResetTokenTTL)
	if err := s.store.Users(ctx).Save(ctx, user); err != nil {
		return "", err
	}

	link := s.frontendURL + "/reset-password?token=" + token
	s.notify(ctx, user.Email, "Reset Your Password", "Click here to reset: "+link)
	return link, nil
}

// ResetPassword replaces the credential for the principal whose stored reset
// token matches the supplied one and whose stored expiry is still in the
// future. A syntactically valid token that is not currently stored fails.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new password is required", ErrInvalidInput)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidToken
	}

	user, err := s.store.Users(ctx).FindByResetToken(ctx, token, s.now().UTC())
	if errors.Is(err, ErrNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.ResetToken = ""
	user.ResetExpiresAt = time.Time{}
	return s.store.Users(ctx).Save(ctx, user)
}
