package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"accessflow.dev/internal/access"
	"accessflow.dev/internal/ids"
)

type invitationStore Store

func (s *invitationStore) Create(ctx context.Context, inv *access.Invitation) error {
	if inv.ID == "" {
		inv.ID = ids.New()
	}
	inv.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		insert into invitations (id, email, role, invited_by, organization_id, token, accepted, expires_at, created_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, inv.ID, inv.Email, inv.Role, inv.InvitedBy, inv.OrganizationID,
		inv.Token, inv.Accepted, inv.ExpiresAt, inv.CreatedAt)
	return err
}

func (s *invitationStore) FindPending(ctx context.Context, email, token string) (*access.Invitation, error) {
	var inv access.Invitation
	err := s.db.QueryRowContext(ctx, `
		select id, email, role, invited_by, organization_id, token, accepted, expires_at, created_at
		from invitations
		where email=$1 and token=$2 and accepted=false
	`, email, token).Scan(&inv.ID, &inv.Email, &inv.Role, &inv.InvitedBy,
		&inv.OrganizationID, &inv.Token, &inv.Accepted, &inv.ExpiresAt, &inv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, access.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *invitationStore) Save(ctx context.Context, inv *access.Invitation) error {
	res, err := s.db.ExecContext(ctx, `
		update invitations set organization_id=$2, accepted=$3, expires_at=$4
		where id=$1
	`, inv.ID, inv.OrganizationID, inv.Accepted, inv.ExpiresAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return access.ErrNotFound
	}
	return nil
}
