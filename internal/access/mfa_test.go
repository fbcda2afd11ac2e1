package access

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
)

func setupToken(t *testing.T, env *testEnv, userID string) string {
	t.Helper()
	token, err := env.svc.Issuer().Issue(userID, ScopeSetup, SetupTokenTTL)
	if err != nil {
		t.Fatalf("issue setup token: %v", err)
	}
	return token
}

func mfaToken(t *testing.T, env *testEnv, userID string) string {
	t.Helper()
	token, err := env.svc.Issuer().Issue(userID, ScopeMFAVerify, MFATokenTTL)
	if err != nil {
		t.Fatalf("issue mfa token: %v", err)
	}
	return token
}

func TestChooseMethodRequiresSetupScope(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t, "u@x.com", "pw", RoleOperator, nil)

	session, err := env.svc.Issuer().Issue(user.ID, ScopeSession, SessionTokenTTL)
	if err != nil {
		t.Fatalf("issue session token: %v", err)
	}
	if _, err := env.svc.ChooseMethod(ctx, session, MFATOTP); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("session token accepted for enrollment, err=%v", err)
	}
	if _, err := env.svc.ChooseMethod(ctx, "garbage", MFATOTP); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage token accepted, err=%v", err)
	}
}

func TestChooseMethodRejectsUnknownMethod(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t, "u@x.com", "pw", RoleOperator, nil)

	for _, method := range []MFAMethod{MFANone, MFAMethod("sms"), MFAMethod("")} {
		if _, err := env.svc.ChooseMethod(ctx, setupToken(t, env, user.ID), method); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("method %q: want ErrInvalidInput, got %v", method, err)
		}
	}
}

func TestChooseMethodTOTP(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t, "u@x.com", "pw", RoleOperator, nil)

	enrollment, err := env.svc.ChooseMethod(ctx, setupToken(t, env, user.ID), MFATOTP)
	if err != nil {
		t.Fatalf("ChooseMethod: %v", err)
	}
	if !strings.HasPrefix(enrollment.OTPAuthURL, "otpauth://totp/") {
		t.Fatalf("unexpected provisioning uri %q", enrollment.OTPAuthURL)
	}
	if !strings.Contains(enrollment.OTPAuthURL, "AccessFlow") || !strings.Contains(enrollment.OTPAuthURL, "u@x.com") {
		t.Fatalf("uri must embed issuer and account: %q", enrollment.OTPAuthURL)
	}
	if !strings.HasPrefix(enrollment.QRCode, "data:image/png;base64,") {
		t.Fatalf("expected scannable payload, got %q", enrollment.QRCode[:min(len(enrollment.QRCode), 40)])
	}

	stored, err := env.store.Users(ctx).Find(ctx, user.ID)
	if err != nil {
		t.Fatalf("user lookup: %v", err)
	}
	if stored.MFA.Method != MFATOTP || stored.MFA.Secret == "" {
		t.Fatalf("enrollment not persisted: %+v", stored.MFA)
	}
	if len(env.notifier.sends) != 0 {
		t.Fatal("totp enrollment must not send mail")
	}
}

func TestChooseMethodOTP(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t, "u@x.com", "pw", RoleOperator, nil)

	if _, err := env.svc.ChooseMethod(ctx, setupToken(t, env, user.ID), MFAOTP); err != nil {
		t.Fatalf("ChooseMethod: %v", err)
	}
	stored, err := env.store.Users(ctx).Find(ctx, user.ID)
	if err != nil {
		t.Fatalf("user lookup: %v", err)
	}
	if stored.MFA.Method != MFAOTP {
		t.Fatalf("method not persisted: %s", stored.MFA.Method)
	}
	if len(stored.MFA.PendingCode) != 6 {
		t.Fatalf("expected 6-digit code, got %q", stored.MFA.PendingCode)
	}
	if !stored.MFA.CodeExpiresAt.Equal(env.clock.Now().Add(5 * time.Minute)) {
		t.Fatalf("unexpected code expiry %v", stored.MFA.CodeExpiresAt)
	}
	mail := env.notifier.last(t)
	if !strings.Contains(mail.Body, stored.MFA.PendingCode) {
		t.Fatalf("mail does not carry the code: %+v", mail)
	}
}

func TestVerifyCodeTOTPWindow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.clock.Set(time.Unix(1700000000, 0).UTC())
	user := env.seedUser(t, "u@x.com", "pw", RoleOperator, nil)

	if _, err := env.svc.ChooseMethod(ctx, setupToken(t, env, user.ID), MFATOTP); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	stored, _ := env.store.Users(ctx).Find(ctx, user.ID)
	secret := stored.MFA.Secret

	now := env.clock.Now()
	codeNow, err := totp.GenerateCode(secret, now)
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}
	res, err := env.svc.VerifyCode(ctx, mfaToken(t, env, user.ID), codeNow)
	if err != nil {
		t.Fatalf("code at current step rejected: %v", err)
	}
	if _, err := env.svc.Issuer().Verify(res.Token, ScopeSession); err != nil {
		t.Fatalf("verification must yield a session token: %v", err)
	}

	// One step away stays inside the ±1 tolerance.
	codePrev, err := totp.GenerateCode(secret, now.Add(-30*time.Second))
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}
	if _, err := env.svc.VerifyCode(ctx, mfaToken(t, env, user.ID), codePrev); err != nil {
		t.Fatalf("code at step N-1 rejected: %v", err)
	}

	// Two steps away falls outside the window.
	codeFar, err := totp.GenerateCode(secret, now.Add(2*30*time.Second))
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}
	if codeFar == codeNow || codeFar == codePrev {
		t.Skip("rare code collision across steps")
	}
	if _, err := env.svc.VerifyCode(ctx, mfaToken(t, env, user.ID), codeFar); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("code at step N+2 accepted, err=%v", err)
	}
}

func TestVerifyCodeOTPSingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t, "u@x.com", "pw", RoleOperator, func(u *User) {
		u.MFA = MFAState{Method: MFAOTP}
	})

	res, err := env.svc.Login(ctx, "u@x.com", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	stored, _ := env.store.Users(ctx).Find(ctx, user.ID)
	code := stored.MFA.PendingCode

	if _, err := env.svc.VerifyCode(ctx, res.Token, "000000"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("wrong code: want ErrInvalidCode, got %v", err)
	}

	session, err := env.svc.VerifyCode(ctx, res.Token, code)
	if err != nil {
		t.Fatalf("VerifyCode: %v", err)
	}
	if _, err := env.svc.Issuer().Verify(session.Token, ScopeSession); err != nil {
		t.Fatalf("expected session token: %v", err)
	}
	if session.User.Email != "u@x.com" {
		t.Fatalf("unexpected profile %+v", session.User)
	}

	// The consumed code is cleared; reuse fails.
	stored, _ = env.store.Users(ctx).Find(ctx, user.ID)
	if stored.MFA.PendingCode != "" {
		t.Fatal("pending code not cleared after use")
	}
	if _, err := env.svc.VerifyCode(ctx, mfaToken(t, env, user.ID), code); !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("reused code: want ErrCodeExpired, got %v", err)
	}
}

func TestVerifyCodeOTPExpiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t, "u@x.com", "pw", RoleOperator, func(u *User) {
		u.MFA = MFAState{Method: MFAOTP}
	})

	res, err := env.svc.Login(ctx, "u@x.com", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	stored, _ := env.store.Users(ctx).Find(ctx, user.ID)

	// At 6 minutes the mfa token (10m) is still valid; only the code is stale.
	env.clock.Advance(6 * time.Minute)
	if _, err := env.svc.VerifyCode(ctx, res.Token, stored.MFA.PendingCode); !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("want ErrCodeExpired, got %v", err)
	}
}

func TestVerifyCodeWithoutEnrollment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t, "u@x.com", "pw", RoleOperator, nil)

	if _, err := env.svc.VerifyCode(ctx, mfaToken(t, env, user.ID), "123456"); !errors.Is(err, ErrMFANotConfigured) {
		t.Fatalf("want ErrMFANotConfigured, got %v", err)
	}
}
