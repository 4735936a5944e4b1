// Package org defines the organization (tenant) domain model.
package org

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/stackpad/stackpad/internal/domain"
)

// Organization represents a tenant: an isolated grouping of accounts and resources.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	LogoURL   string    `json:"logo_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// slugRegex enforces lowercase alphanumeric plus hyphens, at least 3 chars,
// never starting or ending with a hyphen.
var slugRegex = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]*[a-z0-9])+$`)

// NormalizeSlug lowercases and trims a slug before validation or lookup.
// Slug uniqueness is global and case-normalized.
func NormalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

// ValidateName checks the organization name constraint (at least 2 characters).
func ValidateName(name string) error {
	if utf8.RuneCountInString(strings.TrimSpace(name)) < 2 {
		return fmt.Errorf("%w: name must be at least 2 characters", domain.ErrValidation)
	}
	return nil
}

// ValidateSlug checks the normalized slug against the slug format rules.
func ValidateSlug(slug string) error {
	if len(slug) < 3 {
		return fmt.Errorf("%w: slug must be at least 3 characters", domain.ErrValidation)
	}
	if !slugRegex.MatchString(slug) {
		return fmt.Errorf("%w: slug must be lowercase alphanumeric or hyphens and must not start or end with a hyphen", domain.ErrValidation)
	}
	return nil
}

// CreateRequest holds the fields required to create a new organization.
type CreateRequest struct {
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	LogoURL string `json:"logo_url,omitempty"`
}

// Validate normalizes the slug and checks all field constraints.
func (r *CreateRequest) Validate() error {
	if err := ValidateName(r.Name); err != nil {
		return err
	}
	r.Slug = NormalizeSlug(r.Slug)
	return ValidateSlug(r.Slug)
}

// UpdateRequest holds the fields that can be updated on an organization.
// Nil pointers leave the current value unchanged.
type UpdateRequest struct {
	Name    *string `json:"name,omitempty"`
	Slug    *string `json:"slug,omitempty"`
	LogoURL *string `json:"logo_url,omitempty"`
}

// Validate checks the provided fields; absent fields are skipped.
func (r *UpdateRequest) Validate() error {
	if r.Name != nil {
		if err := ValidateName(*r.Name); err != nil {
			return err
		}
	}
	if r.Slug != nil {
		*r.Slug = NormalizeSlug(*r.Slug)
		if err := ValidateSlug(*r.Slug); err != nil {
			return err
		}
	}
	return nil
}
