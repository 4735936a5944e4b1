// Package events defines the event publishing port (interface).
package events

import "context"

// Publisher is the port interface for emitting organization lifecycle
// events. Publishing is fire-and-forget from the caller's perspective and
// must never happen inside a store transaction: locks are scoped strictly
// to the store, never held across a network call.
type Publisher interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Drain gracefully drains pending messages before closing.
	Drain() error

	// Close shuts down the connection immediately.
	Close() error

	// IsConnected reports whether the publisher is currently connected.
	IsConnected() bool
}

// Subject constants for organization lifecycle events.
const (
	SubjectOrgCreated        = "orgs.created"
	SubjectOrgUpdated        = "orgs.updated"
	SubjectOrgDeleted        = "orgs.deleted"
	SubjectMemberAdded       = "members.added"
	SubjectMemberRemoved     = "members.removed"
	SubjectMemberLeft        = "members.left"
	SubjectMemberRoleChanged = "members.role_changed"
)

// OrgPayload is the schema for orgs.* messages.
type OrgPayload struct {
	EventID        string `json:"event_id"`
	OrganizationID string `json:"organization_id"`
	Slug           string `json:"slug"`
	ActorID        string `json:"actor_id"`
}

// MemberPayload is the schema for members.* messages.
type MemberPayload struct {
	EventID        string `json:"event_id"`
	OrganizationID string `json:"organization_id"`
	AccountID      string `json:"account_id"`
	Role           string `json:"role,omitempty"`
	ActorID        string `json:"actor_id"`
}
