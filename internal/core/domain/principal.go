package domain

import "github.com/google/uuid"

// Roles carried in the access token.
const (
	RoleCustomer = "customer"
	RoleOperator = "operator"
)

// Principal is the authenticated caller, passed explicitly to every
// operation that acts on a user's resources.
type Principal struct {
	UserID uuid.UUID
	Role   string
}

// IsOperator reports whether the caller may drive fulfilment transitions.
func (p Principal) IsOperator() bool {
	return p.Role == RoleOperator
}
