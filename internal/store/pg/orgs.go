package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"accessflow.dev/internal/access"
	"accessflow.dev/internal/ids"
)

type orgStore Store

// FindOrCreate resolves an organization by unique name. The no-op upsert
// makes concurrent provisioning of the same name converge on a single row.
func (s *orgStore) FindOrCreate(ctx context.Context, name string) (*access.Organization, error) {
	now := time.Now().UTC()
	row := s.db.QueryRowContext(ctx, `
		insert into organizations (id, name, client_admin_id, user_ids, created_at, updated_at)
		values ($1, $2, '', '[]', $3, $3)
		on conflict (name) do update set name = excluded.name
		returning id, name, client_admin_id, user_ids, created_at, updated_at
	`, ids.New(), name, now)
	return scanOrg(row)
}

func (s *orgStore) Find(ctx context.Context, id string) (*access.Organization, error) {
	org, err := scanOrg(s.db.QueryRowContext(ctx, `
		select id, name, client_admin_id, user_ids, created_at, updated_at
		from organizations where id=$1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, access.ErrNotFound
	}
	return org, err
}

func (s *orgStore) FindByClientAdmin(ctx context.Context, userID string) (*access.Organization, error) {
	org, err := scanOrg(s.db.QueryRowContext(ctx, `
		select id, name, client_admin_id, user_ids, created_at, updated_at
		from organizations where client_admin_id=$1
	`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, access.ErrNotFound
	}
	return org, err
}

func (s *orgStore) Save(ctx context.Context, org *access.Organization) error {
	org.UpdatedAt = time.Now().UTC()
	members, err := encodeUserIDs(org.UserIDs)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		update organizations set name=$2, client_admin_id=$3, user_ids=$4, updated_at=$5
		where id=$1
	`, org.ID, org.Name, org.ClientAdminID, members, org.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return access.ErrConflict
		}
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

func scanOrg(row rowScanner) (*access.Organization, error) {
	var (
		org     access.Organization
		members []byte
	)
	if err := row.Scan(&org.ID, &org.Name, &org.ClientAdminID, &members,
		&org.CreatedAt, &org.UpdatedAt); err != nil {
		return nil, err
	}
	if len(members) > 0 {
		if err := json.Unmarshal(members, &org.UserIDs); err != nil {
			return nil, fmt.Errorf("decode user_ids: %w", err)
		}
	}
	return &org, nil
}

func encodeUserIDs(ids []string) ([]byte, error) {
	if len(ids) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(ids)
}
