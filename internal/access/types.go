package access

import "time"

// MFAMethod identifies the second factor a user enrolled with.
type MFAMethod string

const (
	MFANone MFAMethod = "none"
	MFAOTP  MFAMethod = "otp"
	MFATOTP MFAMethod = "totp"
)

// UserStatus gates login regardless of credential validity.
type UserStatus string

const (
	StatusInvited  UserStatus = "invited"
	StatusActive   UserStatus = "active"
	StatusDisabled UserStatus = "disabled"
)

// MFAState carries a user's enrollment and any pending email code.
type MFAState struct {
	Method        MFAMethod
	Secret        string
	PendingCode   string
	CodeExpiresAt time.Time
}

// User is an account with a role, credential and MFA state. Email is stored
// case-sensitively; the organization reference is set only for client roles.
type User struct {
	ID             string
	Name           string
	Email          string
	PasswordHash   string
	Role           Role
	OrganizationID string
	Status         UserStatus
	MFA            MFAState
	InvitedBy      string
	ResetToken     string
	ResetExpiresAt time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Profile is the public projection of a user returned by the flows.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Profile strips credential and recovery material from the user.
func (u *User) Profile() Profile {
	return Profile{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// Organization is created implicitly the first time an invite names it and is
// never deleted by this core. At most one client admin per organization.
type Organization struct {
	ID            string
	Name          string
	ClientAdminID string
	UserIDs       []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Invitation is a single-use acceptance record. The stored ExpiresAt is a
// separate, shorter acceptance window than the embedded token's own expiry;
// acceptance honors whichever bound is tighter.
type Invitation struct {
	ID             string
	Email          string
	Role           Role
	InvitedBy      string
	OrganizationID string
	Token          string
	Accepted       bool
	ExpiresAt      time.Time
	CreatedAt      time.Time
}
