package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"accessflow.dev/internal/access"
	"accessflow.dev/internal/ids"
)

type userStore Store

const userColumns = `
	id, name, email, password_hash, role, organization_id, status,
	mfa_method, mfa_secret, mfa_pending_code, mfa_code_expires_at,
	invited_by, reset_token, reset_expires_at, created_at, updated_at`

func (s *userStore) Create(ctx context.Context, u *access.User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.MFA.Method == "" {
		u.MFA.Method = access.MFANone
	}
	_, err := s.db.ExecContext(ctx, `
		insert into users (
			id, name, email, password_hash, role, organization_id, status,
			mfa_method, mfa_secret, mfa_pending_code, mfa_code_expires_at,
			invited_by, reset_token, reset_expires_at, created_at, updated_at
		) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`, u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.OrganizationID, u.Status,
		u.MFA.Method, u.MFA.Secret, u.MFA.PendingCode, nullTime(u.MFA.CodeExpiresAt),
		u.InvitedBy, u.ResetToken, nullTime(u.ResetExpiresAt), u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return access.ErrConflict
		}
		return err
	}
	return nil
}

func (s *userStore) Find(ctx context.Context, id string) (*access.User, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`select`+userColumns+` from users where id=$1`, id))
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*access.User, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`select`+userColumns+` from users where email=$1`, email))
}

func (s *userStore) FindByResetToken(ctx context.Context, token string, now time.Time) (*access.User, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`select`+userColumns+` from users where reset_token=$1 and reset_expires_at > $2`,
		token, now))
}

func (s *userStore) FindByRole(ctx context.Context, role access.Role) (*access.User, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`select`+userColumns+` from users where role=$1 order by created_at asc limit 1`, role))
}

func (s *userStore) List(ctx context.Context) ([]*access.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`select`+userColumns+` from users order by created_at asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*access.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (s *userStore) Save(ctx context.Context, u *access.User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		update users set
			name=$2, email=$3, password_hash=$4, role=$5, organization_id=$6,
			status=$7, mfa_method=$8, mfa_secret=$9, mfa_pending_code=$10,
			mfa_code_expires_at=$11, invited_by=$12, reset_token=$13,
			reset_expires_at=$14, updated_at=$15
		where id=$1
	`, u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.OrganizationID, u.Status,
		u.MFA.Method, u.MFA.Secret, u.MFA.PendingCode, nullTime(u.MFA.CodeExpiresAt),
		u.InvitedBy, u.ResetToken, nullTime(u.ResetExpiresAt), u.UpdatedAt)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *userStore) scanOne(row rowScanner) (*access.User, error) {
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, access.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func scanUser(row rowScanner) (*access.User, error) {
	var (
		u            access.User
		codeExpires  sql.NullTime
		resetExpires sql.NullTime
	)
	if err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.OrganizationID,
		&u.Status, &u.MFA.Method, &u.MFA.Secret, &u.MFA.PendingCode, &codeExpires,
		&u.InvitedBy, &u.ResetToken, &resetExpires, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	u.MFA.CodeExpiresAt = fromNullTime(codeExpires)
	u.ResetExpiresAt = fromNullTime(resetExpires)
	return &u, nil
}
