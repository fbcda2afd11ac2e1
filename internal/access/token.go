package access

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Scope names the single operation category a token authorizes. The verifier
// enforces it; a token presented outside its scope is rejected.
type Scope string

const (
	// ScopeSetup permits MFA method selection only.
	ScopeSetup Scope = "setup"
	// ScopeMFAVerify permits one MFA code submission.
	ScopeMFAVerify Scope = "mfa-verify"
	// ScopeSession grants general API access.
	ScopeSession Scope = "session"
	// ScopeReset permits one password change.
	ScopeReset Scope = "reset"
	// ScopeInvite embeds the invitee's email/role/org and permits one acceptance.
	ScopeInvite Scope = "invite"
)

// Token lifetimes. Compromise mitigation for non-session scopes is the short
// ttl alone; there is no revocation list.
const (
	SetupTokenTTL   = 10 * time.Minute
	MFATokenTTL     = 10 * time.Minute
	SessionTokenTTL = 30 * 24 * time.Hour
	ResetTokenTTL   = 15 * time.Minute
	InviteTokenTTL  = 3 * 24 * time.Hour
)

const tokenIssuer = "accessflow"

// Claims are the JWT claims carried by every scoped token. The invite fields
// are populated only for invite-scoped tokens.
type Claims struct {
	Scope   Scope  `json:"scope"`
	Email   string `json:"email,omitempty"`
	Role    Role   `json:"role,omitempty"`
	OrgName string `json:"org_name,omitempty"`
	jwt.RegisteredClaims
}

// InviteClaims are the scope-specific claims embedded into invite tokens.
type InviteClaims struct {
	Email   string
	Role    Role
	OrgName string
}

// Issuer mints and verifies signed, expiring, scoped tokens with HS256 over a
// process-wide secret supplied at startup.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

// NewIssuer constructs an Issuer. The secret is opaque bytes; rotation is out
// of scope.
func NewIssuer(secret []byte) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("access: signing secret is required")
	}
	return &Issuer{secret: secret, now: time.Now}, nil
}

// Issue signs a token for subject with the given scope and ttl.
func (i *Issuer) Issue(subject string, scope Scope, ttl time.Duration) (string, error) {
	return i.issue(subject, scope, InviteClaims{}, ttl)
}

// IssueInvite signs an invite token embedding the invitee's email, role and
// organization name.
func (i *Issuer) IssueInvite(claims InviteClaims, ttl time.Duration) (string, error) {
	return i.issue("", ScopeInvite, claims, ttl)
}

func (i *Issuer) issue(subject string, scope Scope, invite InviteClaims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("access: ttl must be greater than zero")
	}
	now := i.now().UTC()
	claims := Claims{
		Scope:   scope,
		Email:   invite.Email,
		Role:    invite.Role,
		OrgName: invite.OrgName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Verify checks the signature, expiry and scope. Any failure collapses to
// ErrInvalidToken; callers never learn which check failed.
func (i *Issuer) Verify(token string, expected Scope) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return i.now() }))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != tokenIssuer {
		return nil, ErrInvalidToken
	}
	if expected != "" && claims.Scope != expected {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
