package access

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// InviteResult is returned by CreateInvite.
type InviteResult struct {
	Invitation *Invitation
	Link       string
}

// AcceptResult is returned by AcceptInvite. The setup token must be exchanged
// for an MFA enrollment before any session token is issuable.
type AcceptResult struct {
	User       Profile
	MFA        MFAMethod
	SetupToken string
}

// CreateInvite provisions an invitation from inviterID to email for the
// target role, resolving or creating the organization as the role demands.
func (s *Service) CreateInvite(ctx context.Context, inviterID, email string, role Role, orgName string) (*InviteResult, error) {
	email = strings.TrimSpace(email)
	orgName = strings.TrimSpace(orgName)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}

	inviter, err := s.store.Users(ctx).Find(ctx, inviterID)
	if err != nil {
		return nil, err
	}
	if !CanInvite(inviter.Role, role) {
		return nil, fmt.Errorf("%w: role %s may not invite %s", ErrForbidden, inviter.Role, role)
	}

	if existing, err := s.store.Users(ctx).FindByEmail(ctx, email); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: user already exists", ErrConflict)
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	var org *Organization
	switch role {
	case RoleClientAdmin:
		if orgName == "" {
			return nil, fmt.Errorf("%w: organization name is required", ErrInvalidInput)
		}
		org, err = s.store.Organizations(ctx).FindOrCreate(ctx, orgName)
		if err != nil {
			return nil, err
		}
		if org.ClientAdminID != "" {
			return nil, fmt.Errorf("%w: organization already has a client admin", ErrConflict)
		}
	case RoleClientUser:
		// The invitee joins the inviter's own organization; the orgName
		// argument is ignored for this role.
		org, err = s.store.Organizations(ctx).FindByClientAdmin(ctx, inviter.ID)
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: inviter has no organization", ErrConflict)
		}
		if err != nil {
			return nil, err
		}
		orgName = org.Name
	default:
		org = nil
		orgName = ""
	}

	token, err := s.issuer.IssueInvite(InviteClaims{Email: email, Role: role, OrgName: orgName}, InviteTokenTTL)
	if err != nil {
		return nil, err
	}

	inv := &Invitation{
		Email:     email,
		Role:      role,
		InvitedBy: inviter.ID,
		Token:     token,
		Accepted:  false,
		// The stored row has its own, shorter acceptance window than the
		// embedded token's expiry; acceptance checks both.
		ExpiresAt: s.now().UTC().Add(24 * time.Hour),
	}
	if org != nil {
		inv.OrganizationID = org.ID
	}
	if err := s.store.Invitations(ctx).Create(ctx, inv); err != nil {
		return nil, err
	}

	link := s.frontendURL + "/accept-invite?token=" + token
	body := fmt.Sprintf("You've been invited to join %s as a %s.\n", s.brand, role)
	if orgName != "" {
		body += fmt.Sprintf("Organization: %s\n", orgName)
	}
	body += "\nClick below to accept your invite:\n" + link
	s.notify(ctx, email, s.brand+" Invitation", body)

	return &InviteResult{Invitation: inv, Link: link}, nil
}

// AcceptInvite consumes an invitation exactly once, creating the principal
// and linking it to its organization when one was embedded.
func (s *Service) AcceptInvite(ctx context.Context, token, name, password string) (*AcceptResult, error) {
	name = strings.TrimSpace(name)
	if name == "" || password == "" {
		return nil, fmt.Errorf("%w: name and password are required", ErrInvalidInput)
	}

	claims, err := s.issuer.Verify(token, ScopeInvite)
	if err != nil {
		return nil, err
	}

	inv, err := s.store.Invitations(ctx).FindPending(ctx, claims.Email, token)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: invite not found", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	// Dual expiry: the stored 24h acceptance window binds in addition to the
	// token's own 3-day expiry, whichever is tighter.
	if s.now().After(inv.ExpiresAt) {
		return nil, fmt.Errorf("%w: invite window elapsed", ErrInvalidToken)
	}

	if existing, err := s.store.Users(ctx).FindByEmail(ctx, claims.Email); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: user already exists", ErrConflict)
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &User{
		Name:         name,
		Email:        claims.Email,
		PasswordHash: hash,
		Role:         claims.Role,
		Status:       StatusActive,
		MFA:          MFAState{Method: MFANone},
		InvitedBy:    inv.InvitedBy,
	}
	if err := s.store.Users(ctx).Create(ctx, user); err != nil {
		return nil, err
	}

	if claims.OrgName != "" {
		org, err := s.store.Organizations(ctx).FindOrCreate(ctx, claims.OrgName)
		if err != nil {
			return nil, err
		}
		switch claims.Role {
		case RoleClientAdmin:
			org.ClientAdminID = user.ID
		case RoleClientUser:
			org.UserIDs = append(org.UserIDs, user.ID)
		}
		user.OrganizationID = org.ID
		if err := s.store.Users(ctx).Save(ctx, user); err != nil {
			return nil, err
		}
		if err := s.store.Organizations(ctx).Save(ctx, org); err != nil {
			return nil, err
		}
	}

	inv.Accepted = true
	if err := s.store.Invitations(ctx).Save(ctx, inv); err != nil {
		return nil, err
	}

	setupToken, err := s.issuer.Issue(user.ID, ScopeSetup, SetupTokenTTL)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, user.Email, "Welcome to "+s.brand,
		fmt.Sprintf("Hi %s, your account has been successfully created.", name))

	return &AcceptResult{
		User:       user.Profile(),
		MFA:        user.MFA.Method,
		SetupToken: setupToken,
	}, nil
}
