// Package todo defines the tenant-scoped demo resource. A todo either
// belongs to an organization (visible to its members) or is personal
// (organization id nil, visible only to its creator).
package todo

import (
	"fmt"
	"strings"
	"time"

	"github.com/stackpad/stackpad/internal/domain"
)

// Todo is a task optionally affiliated with an organization.
type Todo struct {
	ID             string    `json:"id"`
	OrganizationID *string   `json:"organization_id,omitempty"`
	CreatorID      string    `json:"creator_id"`
	Title          string    `json:"title"`
	Body           string    `json:"body,omitempty"`
	Done           bool      `json:"done"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CreateRequest is the input for creating a todo. A nil OrganizationID
// creates a personal todo.
type CreateRequest struct {
	OrganizationID *string `json:"organization_id,omitempty"`
	Title          string  `json:"title"`
	Body           string  `json:"body,omitempty"`
}

// Validate checks the create fields.
func (r *CreateRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	return nil
}

// UpdateRequest holds the fields that can be updated on a todo. Setting
// OrganizationID re-parents the todo, which requires admin rights on both
// the old and the new organization.
type UpdateRequest struct {
	Title          *string `json:"title,omitempty"`
	Body           *string `json:"body,omitempty"`
	Done           *bool   `json:"done,omitempty"`
	OrganizationID *string `json:"organization_id,omitempty"`
	// MoveToPersonal re-parents the todo to no organization. Distinct from
	// OrganizationID because a nil pointer means "unchanged" in JSON patch terms.
	MoveToPersonal bool `json:"move_to_personal,omitempty"`
}

// Validate checks the update fields.
func (r *UpdateRequest) Validate() error {
	if r.Title != nil && strings.TrimSpace(*r.Title) == "" {
		return fmt.Errorf("%w: title must not be empty", domain.ErrValidation)
	}
	if r.OrganizationID != nil && r.MoveToPersonal {
		return fmt.Errorf("%w: organization_id and move_to_personal are mutually exclusive", domain.ErrValidation)
	}
	return nil
}
