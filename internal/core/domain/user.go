package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role classifies what a user is allowed to do. See policy.go for the
// capability mapping.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleMerchant Role = "merchant"
	RoleCustomer Role = "customer"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleMerchant, RoleCustomer:
		return true
	}
	return false
}

// User is an authenticated account. Passwords are stored as Argon2id hashes.
type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Role           Role      `json:"role"`
	PhoneNumber    string    `json:"phone_number,omitempty"`
	MarketingOptIn bool      `json:"marketing_opt_in"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
