package pg

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"accessflow.dev/internal/access"
)

var userCols = []string{
	"id", "name", "email", "password_hash", "role", "organization_id", "status",
	"mfa_method", "mfa_secret", "mfa_pending_code", "mfa_code_expires_at",
	"invited_by", "reset_token", "reset_expires_at", "created_at", "updated_at",
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db), mock
}

func TestUserCreateAssignsIdentity(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("insert into users").
		WithArgs(
			sqlmock.AnyArg(), "Ada", "ada@example.com", sqlmock.AnyArg(),
			access.RoleOperator, "", access.StatusActive,
			access.MFANone, "", "", nil, "", "", nil,
			sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u := &access.User{
		Name:   "Ada",
		Email:  "ada@example.com",
		Role:   access.RoleOperator,
		Status: access.StatusActive,
	}
	if err := store.Users(context.Background()).Create(context.Background(), u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID == "" {
		t.Fatal("expected assigned id")
	}
	if u.CreatedAt.IsZero() || u.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be set")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("insert into users").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	u := &access.User{Email: "ada@example.com", Role: access.RoleOperator, Status: access.StatusActive}
	err := store.Users(context.Background()).Create(context.Background(), u)
	if !errors.Is(err, access.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestUserFindByEmailRoundTrip(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	mock.ExpectQuery("select id, name, email(.+)from users where email=").
		WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(
			"u-1", "Ada", "ada@example.com", "hash", "operator", "", "active",
			"otp", "", "482913", now.Add(5*time.Minute),
			"u-0", "", nil, now, now,
		))

	u, err := store.Users(context.Background()).FindByEmail(context.Background(), "ada@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if u.ID != "u-1" || u.Role != access.RoleOperator || u.Status != access.StatusActive {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.MFA.Method != access.MFAOTP || u.MFA.PendingCode != "482913" {
		t.Fatalf("unexpected mfa state: %+v", u.MFA)
	}
	if !u.ResetExpiresAt.IsZero() {
		t.Fatalf("expected zero reset expiry, got %v", u.ResetExpiresAt)
	}
}

func TestUserFindNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select id, name, email(.+)from users where id=").
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Users(context.Background()).Find(context.Background(), "nope")
	if !errors.Is(err, access.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUserFindByResetTokenBoundsWindow(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("from users where reset_token=(.+)reset_expires_at >").
		WithArgs("tok", now).
		WillReturnError(sql.ErrNoRows)

	_, err := store.Users(context.Background()).FindByResetToken(context.Background(), "tok", now)
	if !errors.Is(err, access.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUserSaveMissingRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("update users set").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Users(context.Background()).Save(context.Background(), &access.User{ID: "ghost"})
	if !errors.Is(err, access.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestOrgFindOrCreateReturnsRow(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("insert into organizations(.+)on conflict \\(name\\) do update").
		WithArgs(sqlmock.AnyArg(), "Globex", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "client_admin_id", "user_ids", "created_at", "updated_at",
		}).AddRow("org-1", "Globex", "u-9", []byte(`["u-9","u-10"]`), now, now))

	org, err := store.Organizations(context.Background()).FindOrCreate(context.Background(), "Globex")
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}
	if org.ID != "org-1" || org.ClientAdminID != "u-9" {
		t.Fatalf("unexpected org: %+v", org)
	}
	if len(org.UserIDs) != 2 || org.UserIDs[1] != "u-10" {
		t.Fatalf("unexpected members: %v", org.UserIDs)
	}
}

func TestOrgFindByClientAdminNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("from organizations where client_admin_id=").
		WithArgs("u-9").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Organizations(context.Background()).FindByClientAdmin(context.Background(), "u-9")
	if !errors.Is(err, access.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestOrgSaveEncodesMembers(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("update organizations set").
		WithArgs("org-1", "Globex", "u-9", []byte(`["u-9"]`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	org := &access.Organization{ID: "org-1", Name: "Globex", ClientAdminID: "u-9", UserIDs: []string{"u-9"}}
	if err := store.Organizations(context.Background()).Save(context.Background(), org); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestInvitationPendingMatch(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("from invitations where email=(.+)accepted=false").
		WithArgs("ada@example.com", "tok").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "role", "invited_by", "organization_id",
			"token", "accepted", "expires_at", "created_at",
		}).AddRow("inv-1", "ada@example.com", "operator", "u-0", "", "tok", false, now.Add(time.Hour), now))

	inv, err := store.Invitations(context.Background()).FindPending(context.Background(), "ada@example.com", "tok")
	if err != nil {
		t.Fatalf("FindPending: %v", err)
	}
	if inv.ID != "inv-1" || inv.Accepted {
		t.Fatalf("unexpected invitation: %+v", inv)
	}

	mock.ExpectQuery("from invitations where email=").
		WithArgs("ada@example.com", "other").
		WillReturnError(sql.ErrNoRows)
	if _, err := store.Invitations(context.Background()).FindPending(context.Background(), "ada@example.com", "other"); !errors.Is(err, access.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
