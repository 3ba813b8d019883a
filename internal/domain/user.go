package domain

// Role is the closed set of actor roles resolved from a bearer token.
type Role string

const (
	RoleRider  Role = "rider"
	RoleDriver Role = "driver"
)

// ParseRole validates a role claim.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleRider:
		return RoleRider, true
	case RoleDriver:
		return RoleDriver, true
	}
	return "", false
}

// Identity is the authenticated caller of a request.
type Identity struct {
	ID   string
	Role Role
}
