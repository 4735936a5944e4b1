package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/stackpad/stackpad/internal/port/events"
)

// broadcaster is the slice of the hub the relay needs.
type broadcaster interface {
	Broadcast(ctx context.Context, orgID string, msg Message)
}

// Relay bridges the JetStream event subjects onto the WebSocket hub so
// connected clients see organization activity live.
type Relay struct {
	hub broadcaster
}

// NewRelay creates a relay feeding the given hub.
func NewRelay(hub broadcaster) *Relay {
	return &Relay{hub: hub}
}

// Handle is a subscription callback for orgs.> and members.> subjects. It
// extracts the organization from the payload and fans the raw event out to
// the hub under the subject as message type.
func (r *Relay) Handle(subject string, data []byte) error {
	var envelope struct {
		OrganizationID string `json:"organization_id"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		slog.Warn("ws relay: unparseable event", "subject", subject, "error", err)
		return nil // do not redeliver malformed payloads
	}

	r.hub.Broadcast(context.Background(), envelope.OrganizationID, Message{
		Type:    subject,
		Payload: json.RawMessage(data),
	})
	return nil
}

// Subjects returns the subject filters a relay consumes.
func Subjects() []string {
	return []string{
		events.SubjectOrgCreated,
		events.SubjectOrgUpdated,
		events.SubjectOrgDeleted,
		events.SubjectMemberAdded,
		events.SubjectMemberRemoved,
		events.SubjectMemberLeft,
		events.SubjectMemberRoleChanged,
	}
}
