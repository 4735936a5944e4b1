package org

import (
	"fmt"
	"time"

	"github.com/stackpad/stackpad/internal/domain"
)

// Role represents the privilege level of a membership, ordered owner > admin > member.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// roleLevel maps roles to their position in the privilege order.
var roleLevel = map[Role]int{
	RoleMember: 1,
	RoleAdmin:  2,
	RoleOwner:  3,
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	_, ok := roleLevel[r]
	return ok
}

// AtLeast reports whether r carries at least the privilege of required.
// Admin implies member-level permission; owner implies all.
func (r Role) AtLeast(required Role) bool {
	return roleLevel[r] >= roleLevel[required]
}

// Membership is the ternary relation granting an account a role within an organization.
// At most one membership exists per (organization, account) pair.
type Membership struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	AccountID      string    `json:"account_id"`
	Role           Role      `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Member is a membership joined with the account's profile details for listings.
type Member struct {
	Membership
	Email string `json:"email"`
	Name  string `json:"name"`
}

// WithRole pairs an organization with the requesting account's role in it.
type WithRole struct {
	Organization
	Role Role `json:"role"`
}

// AddMemberRequest is the input for adding an account to an organization.
type AddMemberRequest struct {
	AccountID string `json:"account_id"`
	Role      Role   `json:"role"`
}

// Validate checks the add-member fields.
func (r *AddMemberRequest) Validate() error {
	if r.AccountID == "" {
		return fmt.Errorf("%w: account_id is required", domain.ErrValidation)
	}
	if !r.Role.Valid() {
		return fmt.Errorf("%w: role must be owner, admin, or member", domain.ErrValidation)
	}
	return nil
}

// UpdateRoleRequest is the input for changing a member's role.
type UpdateRoleRequest struct {
	Role Role `json:"role"`
}

// Validate checks the new role value.
func (r *UpdateRoleRequest) Validate() error {
	if !r.Role.Valid() {
		return fmt.Errorf("%w: role must be owner, admin, or member", domain.ErrValidation)
	}
	return nil
}
