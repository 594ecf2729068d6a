package domain

// Role is the side of the marketplace an authenticated user acts for.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleCleaner  Role = "cleaner"
)

// ParseRole converts a token claim into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleCustomer, RoleCleaner:
		return Role(s), nil
	default:
		return "", ErrUnknownRole
	}
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string
	Role   Role
}
