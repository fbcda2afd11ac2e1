package access

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	otpCodeTTL   = 5 * time.Minute
	totpPeriod   = 30
	totpSkew     = 1
	qrPayloadDim = 256
)

// Enrollment is returned by ChooseMethod. For TOTP it carries the otpauth
// provisioning URI and a scannable PNG rendering of it; for OTP the code is
// delivered out of band.
type Enrollment struct {
	Method     MFAMethod
	OTPAuthURL string
	QRCode     string
}

// SessionResult is returned after a successful MFA verification.
type SessionResult struct {
	Token     string
	ExpiresAt time.Time
	User      Profile
}

// ChooseMethod enrolls the principal identified by the setup token into the
// requested MFA method. For TOTP a shared secret is generated and returned as
// a provisioning URI; no code exchange happens at enrollment time. For OTP a
// single-use code is generated, persisted with an absolute expiry and emailed.
func (s *Service) ChooseMethod(ctx context.Context, setupToken string, method MFAMethod) (*Enrollment, error) {
	claims, err := s.issuer.Verify(setupToken, ScopeSetup)
	if err != nil {
		return nil, err
	}
	user, err := s.store.Users(ctx).Find(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}

	switch method {
	case MFATOTP:
		key, err := totp.Generate(totp.GenerateOpts{
			Issuer:      s.brand,
			AccountName: user.Email,
		})
		if err != nil {
			return nil, fmt.Errorf("generate totp secret: %w", err)
		}
		user.MFA = MFAState{Method: MFATOTP, Secret: key.Secret()}
		if err := s.store.Users(ctx).Save(ctx, user); err != nil {
			return nil, err
		}
		png, err := qrcode.Encode(key.URL(), qrcode.Medium, qrPayloadDim)
		if err != nil {
			return nil, fmt.Errorf("render provisioning qr: %w", err)
		}
		return &Enrollment{
			Method:     MFATOTP,
			OTPAuthURL: key.URL(),
			QRCode:     "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		}, nil
	case MFAOTP:
		code, err := s.genCode()
		if err != nil {
			return nil, err
		}
		user.MFA = MFAState{
			Method:        MFAOTP,
			PendingCode:   code,
			CodeExpiresAt: s.now().UTC().Add(otpCodeTTL),
		}
		if err := s.store.Users(ctx).Save(ctx, user); err != nil {
			return nil, err
		}
		s.notify(ctx, user.Email, "Your OTP Code",
			fmt.Sprintf("Your OTP code is: %s. It expires in 5 minutes.", code))
		return &Enrollment{Method: MFAOTP}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported mfa method %q", ErrInvalidInput, method)
	}
}

// VerifyCode checks an MFA code against the principal's enrolled method and,
// on success, issues the session token.
func (s *Service) VerifyCode(ctx context.Context, mfaToken, code string) (*SessionResult, error) {
	claims, err := s.issuer.Verify(mfaToken, ScopeMFAVerify)
	if err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: mfa code is required", ErrInvalidInput)
	}
	user, err := s.store.Users(ctx).Find(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}

	switch user.MFA.Method {
	case MFATOTP:
		valid, err := totp.ValidateCustom(code, user.MFA.Secret, s.now().UTC(), totp.ValidateOpts{
			Period:    totpPeriod,
			Skew:      totpSkew,
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		})
		if err != nil || !valid {
			return nil, ErrInvalidCode
		}
	case MFAOTP:
		if user.MFA.PendingCode == "" {
			return nil, ErrCodeExpired
		}
		if user.MFA.PendingCode != code {
			return nil, ErrInvalidCode
		}
		if s.now().After(user.MFA.CodeExpiresAt) {
			return nil, ErrCodeExpired
		}
		// Single use: clear the consumed code.
		user.MFA.PendingCode = ""
		user.MFA.CodeExpiresAt = time.Time{}
		if err := s.store.Users(ctx).Save(ctx, user); err != nil {
			return nil, err
		}
	default:
		// Unreachable when login routes through enrollment first.
		return nil, ErrMFANotConfigured
	}

	token, err := s.issuer.Issue(user.ID, ScopeSession, SessionTokenTTL)
	if err != nil {
		return nil, err
	}
	return &SessionResult{
		Token:     token,
		ExpiresAt: s.now().UTC().Add(SessionTokenTTL),
		User:      user.Profile(),
	}, nil
}
