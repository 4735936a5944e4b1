// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a concurrent modification conflict (optimistic locking).
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrValidation indicates malformed input against field constraints.
// Wrap it with the failing field and rule so callers can surface the detail.
var ErrValidation = errors.New("validation failed")

// ErrUnauthenticated indicates no verified principal was present on the request.
var ErrUnauthenticated = errors.New("authentication required")

// ErrNotAuthorized indicates the principal is authenticated but lacks the
// required role for the target organization or resource.
var ErrNotAuthorized = errors.New("not authorized")

// ErrSlugTaken indicates the organization slug is already in use.
var ErrSlugTaken = errors.New("slug is already taken")

// ErrAlreadyMember indicates the account already has a membership in the organization.
var ErrAlreadyMember = errors.New("account is already a member of this organization")

// ErrNotAMember indicates the principal has no membership in the organization.
var ErrNotAMember = errors.New("not a member of this organization")

// ErrMemberNotFound indicates the membership id does not resolve.
var ErrMemberNotFound = errors.New("member not found")

// ErrPrivilegeEscalation indicates an attempted role grant beyond the caller's privilege.
var ErrPrivilegeEscalation = errors.New("only an owner may grant the owner role")

// ErrMustTransferOwnership indicates an owner tried to leave an organization
// that still has other members. Ownership must be transferred first.
var ErrMustTransferOwnership = errors.New("must transfer ownership before leaving")

// ErrCannotRemoveOwner indicates an owner tried to remove themself via the
// remove-member path instead of the dedicated leave procedure.
var ErrCannotRemoveOwner = errors.New("owners cannot be removed: transfer ownership or leave")

// ErrNoRemainingOwner indicates a role change would leave the organization
// without any owner.
var ErrNoRemainingOwner = errors.New("organization must keep at least one owner")
