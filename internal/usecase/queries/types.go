package queries

import (
	"github.com/google/uuid"
)

// Role strings as stored on the users table. Access checks on the read side
// compare against these rather than importing the domain type.
const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
	RoleAdmin    = "admin"
)

// AuthorizedUserView represents read-optimized user data with authorization info
type AuthorizedUserView struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	IsActive bool      `json:"is_active"`
}

func isStaff(role string) bool {
	return role == RoleStaff || role == RoleAdmin
}
