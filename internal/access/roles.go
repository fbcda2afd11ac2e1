package access

// Role identifies the fixed set of account roles. The set is closed; there is
// no runtime role registration.
type Role string

const (
	RoleSuperAdmin  Role = "super_admin"
	RoleSiteAdmin   Role = "site_admin"
	RoleOperator    Role = "operator"
	RoleClientAdmin Role = "client_admin"
	RoleClientUser  Role = "client_user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleSiteAdmin, RoleOperator, RoleClientAdmin, RoleClientUser:
		return true
	}
	return false
}

// RequiresOrganization reports whether the role implies organization membership.
func (r Role) RequiresOrganization() bool {
	return r == RoleClientAdmin || r == RoleClientUser
}

// inviteMatrix maps an inviter role to the roles it may provision. Read the
// table literally: pairs absent here are denied, including self-invites.
var inviteMatrix = map[Role][]Role{
	RoleSuperAdmin:  {RoleSiteAdmin, RoleOperator, RoleClientAdmin},
	RoleSiteAdmin:   {RoleClientAdmin, RoleOperator},
	RoleOperator:    {RoleClientAdmin},
	RoleClientAdmin: {RoleClientUser},
}

// CanInvite reports whether inviter may create an invitation for target.
// Denial is a normal outcome, not a fault.
func CanInvite(inviter, target Role) bool {
	for _, allowed := range inviteMatrix[inviter] {
		if allowed == target {
			return true
		}
	}
	return false
}
