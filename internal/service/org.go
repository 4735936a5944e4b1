package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stackpad/stackpad/internal/adapter/otel"
	"github.com/stackpad/stackpad/internal/domain"
	"github.com/stackpad/stackpad/internal/domain/org"
	"github.com/stackpad/stackpad/internal/port/cache"
	"github.com/stackpad/stackpad/internal/port/database"
	"github.com/stackpad/stackpad/internal/port/events"
)

// OrgService implements organization and membership management: the
// authorization predicates, the guarded mutation protocol, and the
// operation surface consumed by the HTTP handlers.
//
// Every mutation re-derives the caller's role from the membership store;
// neither the cache nor the profile pointer is ever consulted for an
// authorization decision.
type OrgService struct {
	store    database.Store
	cache    cache.Cache
	pub      events.Publisher
	metrics  *otel.Metrics
	cacheTTL time.Duration
}

// NewOrgService creates an OrgService. cache, pub, and metrics may be nil;
// the corresponding side channels are then skipped.
func NewOrgService(store database.Store, c cache.Cache, pub events.Publisher, m *otel.Metrics, cacheTTL time.Duration) *OrgService {
	return &OrgService{store: store, cache: c, pub: pub, metrics: m, cacheTTL: cacheTTL}
}

// --- Authorization predicates ---
//
// Read-only and side-effect free. They are the sole admission gate for the
// mutations below and for the todo row-scoping rules.

// RoleOf returns the principal's role in the organization, and whether a
// membership exists at all.
func (s *OrgService) RoleOf(ctx context.Context, principalID, orgID string) (org.Role, bool, error) {
	m, err := s.store.GetMembership(ctx, orgID, principalID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return m.Role, true, nil
}

// IsMember reports whether a membership row exists for (org, principal).
func (s *OrgService) IsMember(ctx context.Context, principalID, orgID string) (bool, error) {
	_, ok, err := s.RoleOf(ctx, principalID, orgID)
	return ok, err
}

// IsAdmin reports whether the principal holds admin or owner in the organization.
func (s *OrgService) IsAdmin(ctx context.Context, principalID, orgID string) (bool, error) {
	return s.HasRoleOrHigher(ctx, principalID, orgID, org.RoleAdmin)
}

// IsOwner reports whether the principal is an owner of the organization.
func (s *OrgService) IsOwner(ctx context.Context, principalID, orgID string) (bool, error) {
	return s.HasRoleOrHigher(ctx, principalID, orgID, org.RoleOwner)
}

// HasRoleOrHigher reports whether the principal's role carries at least the
// required privilege. Owner implies admin implies member.
func (s *OrgService) HasRoleOrHigher(ctx context.Context, principalID, orgID string, required org.Role) (bool, error) {
	role, ok, err := s.RoleOf(ctx, principalID, orgID)
	if err != nil || !ok {
		return false, err
	}
	return role.AtLeast(required), nil
}

// MemberOrganizations returns every organization the principal belongs to,
// paired with their role.
func (s *OrgService) MemberOrganizations(ctx context.Context, principalID string) ([]org.WithRole, error) {
	return s.store.ListOrganizationsByAccount(ctx, principalID)
}

// ActiveOrganization resolves the profile's current organization pointer,
// but only when a live membership still backs it. The pointer is a cache;
// a stale value yields nil rather than access.
func (s *OrgService) ActiveOrganization(ctx context.Context, principalID string) (*org.Organization, error) {
	p, err := s.store.GetProfile(ctx, principalID)
	if err != nil {
		return nil, err
	}
	if p.CurrentOrganizationID == nil {
		return nil, nil
	}
	ok, err := s.IsMember(ctx, principalID, *p.CurrentOrganizationID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	o, err := s.store.GetOrganization(ctx, *p.CurrentOrganizationID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return o, err
}

// --- Organization operations ---

// CreateOrganization creates an organization with the caller as owner, in
// one atomic store operation. The unique constraint on the slug arbitrates
// concurrent claims; there is no check-then-insert window.
func (s *OrgService) CreateOrganization(ctx context.Context, principalID string, req *org.CreateRequest) (*org.Organization, error) {
	if principalID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	o := &org.Organization{Name: req.Name, Slug: req.Slug, LogoURL: req.LogoURL}
	if _, err := s.store.CreateOrganizationWithOwner(ctx, o, principalID); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.OrgsCreated.Add(ctx, 1)
	}
	s.publishOrg(ctx, events.SubjectOrgCreated, o, principalID)
	return o, nil
}

// GetOrganization returns an organization by id. Non-members get ErrNotFound;
// organizations a principal may not see are indistinguishable from absent ones.
func (s *OrgService) GetOrganization(ctx context.Context, principalID, id string) (*org.Organization, error) {
	o, err := s.store.GetOrganization(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.IsMember(ctx, principalID, o.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("get organization %s: %w", id, domain.ErrNotFound)
	}
	return o, nil
}

// GetOrganizationBySlug resolves a slug to an organization. The resolution
// step is cached; the membership check that gates visibility is not.
func (s *OrgService) GetOrganizationBySlug(ctx context.Context, principalID, slug string) (*org.Organization, error) {
	slug = org.NormalizeSlug(slug)

	o, err := s.lookupBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	ok, err := s.IsMember(ctx, principalID, o.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("get organization by slug %s: %w", slug, domain.ErrNotFound)
	}
	return o, nil
}

func (s *OrgService) lookupBySlug(ctx context.Context, slug string) (*org.Organization, error) {
	key := "org:slug:" + slug
	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var o org.Organization
			if err := json.Unmarshal(data, &o); err == nil {
				return &o, nil
			}
		}
	}

	o, err := s.store.GetOrganizationBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(o); err == nil {
			_ = s.cache.Set(ctx, key, data, s.cacheTTL)
		}
	}
	return o, nil
}

// UpdateOrganization patches name, slug, or logo. Requires admin.
func (s *OrgService) UpdateOrganization(ctx context.Context, principalID, id string, req *org.UpdateRequest) (*org.Organization, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ok, err := s.IsAdmin(ctx, principalID, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("update organization %s: %w", id, domain.ErrNotAuthorized)
	}

	o, err := s.store.GetOrganization(ctx, id)
	if err != nil {
		return nil, err
	}

	oldSlug := o.Slug
	if req.Name != nil {
		o.Name = *req.Name
	}
	if req.Slug != nil {
		o.Slug = *req.Slug
	}
	if req.LogoURL != nil {
		o.LogoURL = *req.LogoURL
	}

	if err := s.store.UpdateOrganization(ctx, o); err != nil {
		return nil, err
	}

	s.invalidateSlug(ctx, oldSlug)
	s.invalidateSlug(ctx, o.Slug)
	s.publishOrg(ctx, events.SubjectOrgUpdated, o, principalID)
	return o, nil
}

// DeleteOrganization removes an organization and everything scoped to it.
// Requires owner.
func (s *OrgService) DeleteOrganization(ctx context.Context, principalID, id string) error {
	ok, err := s.IsOwner(ctx, principalID, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("delete organization %s: %w", id, domain.ErrNotAuthorized)
	}

	o, err := s.store.GetOrganization(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteOrganization(ctx, id); err != nil {
		return err
	}

	s.invalidateSlug(ctx, o.Slug)
	if s.metrics != nil {
		s.metrics.OrgsDeleted.Add(ctx, 1)
	}
	s.publishOrg(ctx, events.SubjectOrgDeleted, o, principalID)
	return nil
}

// CheckSlugAvailable reports whether the normalized slug is free. It always
// asks the store: availability must reflect the current state, never a
// cached one.
func (s *OrgService) CheckSlugAvailable(ctx context.Context, slug string) (bool, error) {
	slug = org.NormalizeSlug(slug)
	if err := org.ValidateSlug(slug); err != nil {
		return false, err
	}
	exists, err := s.store.SlugExists(ctx, slug)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// SetActiveOrganization points the caller's profile at orgID. A nil orgID
// clears the pointer. Fails with ErrNotAMember when the caller does not
// belong to the organization.
func (s *OrgService) SetActiveOrganization(ctx context.Context, principalID string, orgID *string) error {
	if orgID != nil {
		ok, err := s.IsMember(ctx, principalID, *orgID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("set active organization %s: %w", *orgID, domain.ErrNotAMember)
		}
	}
	return s.store.SetCurrentOrganization(ctx, principalID, orgID)
}

// --- Membership operations ---

// ListMembers returns the members of an organization with account details.
// Any member may list; outsiders get ErrNotFound.
func (s *OrgService) ListMembers(ctx context.Context, principalID, orgID string) ([]org.Member, error) {
	ok, err := s.IsMember(ctx, principalID, orgID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("list members of %s: %w", orgID, domain.ErrNotFound)
	}
	return s.store.ListMembers(ctx, orgID)
}

// AddMember grants an existing account a role in the organization. The
// caller must be admin; only an owner may mint another owner.
func (s *OrgService) AddMember(ctx context.Context, principalID, orgID string, req *org.AddMemberRequest) (*org.Membership, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	callerRole, ok, err := s.RoleOf(ctx, principalID, orgID)
	if err != nil {
		return nil, err
	}
	if !ok || !callerRole.AtLeast(org.RoleAdmin) {
		return nil, fmt.Errorf("add member to %s: %w", orgID, domain.ErrNotAuthorized)
	}
	if req.Role == org.RoleOwner && callerRole != org.RoleOwner {
		return nil, fmt.Errorf("add member to %s: %w", orgID, domain.ErrPrivilegeEscalation)
	}

	// The target must resolve to a real account before a membership is minted.
	if _, err := s.store.GetAccount(ctx, req.AccountID); err != nil {
		return nil, fmt.Errorf("resolve account %s: %w", req.AccountID, err)
	}

	ctx, span := otel.StartMembershipSpan(ctx, "add", orgID)
	defer span.End()

	m := &org.Membership{OrganizationID: orgID, AccountID: req.AccountID, Role: req.Role}
	if err := s.store.CreateMembership(ctx, m); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.MembersAdded.Add(ctx, 1)
	}
	s.publishMember(ctx, events.SubjectMemberAdded, m, principalID)
	return m, nil
}

// UpdateMemberRole changes a member's role, with precedence rules evaluated
// against the caller's current role:
//
//  1. a plain member may change nothing;
//  2. an admin may only promote or adjust a target who is currently a plain
//     member, and never to owner (ownership transfer is reserved to owners);
//  3. an owner may set any target to any role, subject to the store's
//     remaining-owner guard.
func (s *OrgService) UpdateMemberRole(ctx context.Context, principalID, membershipID string, newRole org.Role) (*org.Membership, error) {
	if !newRole.Valid() {
		return nil, fmt.Errorf("%w: role must be owner, admin, or member", domain.ErrValidation)
	}

	target, err := s.store.GetMembershipByID(ctx, membershipID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("membership %s: %w", membershipID, domain.ErrMemberNotFound)
		}
		return nil, err
	}

	callerRole, ok, err := s.RoleOf(ctx, principalID, target.OrganizationID)
	if err != nil {
		return nil, err
	}
	switch {
	case !ok || callerRole == org.RoleMember:
		return nil, fmt.Errorf("update member role: %w", domain.ErrNotAuthorized)
	case callerRole == org.RoleAdmin:
		if target.Role != org.RoleMember || newRole == org.RoleOwner {
			return nil, fmt.Errorf("update member role: %w", domain.ErrNotAuthorized)
		}
	}

	ctx, span := otel.StartMembershipSpan(ctx, "role_change", target.OrganizationID)
	defer span.End()

	m, err := s.store.UpdateMembershipRole(ctx, membershipID, newRole)
	if err != nil {
		return nil, err
	}

	s.publishMember(ctx, events.SubjectMemberRoleChanged, m, principalID)
	return m, nil
}

// RemoveMember deletes a membership. Three disjoint paths authorize it:
// self-removal (except owners, who must use Leave), an admin removing a
// plain member, or an owner removing anyone but themself.
func (s *OrgService) RemoveMember(ctx context.Context, principalID, membershipID string) error {
	target, err := s.store.GetMembershipByID(ctx, membershipID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("membership %s: %w", membershipID, domain.ErrMemberNotFound)
		}
		return err
	}

	if target.AccountID == principalID {
		if target.Role == org.RoleOwner {
			return fmt.Errorf("remove member: %w", domain.ErrCannotRemoveOwner)
		}
		// Self-removal of a non-owner is always permitted.
	} else {
		callerRole, ok, err := s.RoleOf(ctx, principalID, target.OrganizationID)
		if err != nil {
			return err
		}
		switch {
		case !ok:
			return fmt.Errorf("remove member: %w", domain.ErrNotAuthorized)
		case callerRole == org.RoleOwner:
			// may remove any other member
		case callerRole == org.RoleAdmin && target.Role == org.RoleMember:
			// may remove plain members only
		default:
			return fmt.Errorf("remove member: %w", domain.ErrNotAuthorized)
		}
	}

	ctx, span := otel.StartMembershipSpan(ctx, "remove", target.OrganizationID)
	defer span.End()

	if err := s.store.DeleteMembership(ctx, membershipID); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.MembersRemoved.Add(ctx, 1)
	}
	s.publishMember(ctx, events.SubjectMemberRemoved, target, principalID)
	return nil
}

// LeaveOrganization removes the caller's own membership via the store's
// locked protocol. A sole owner leaving members behind is refused with
// ErrMustTransferOwnership; the locks make the decision race-free against
// concurrent leaves and role changes.
func (s *OrgService) LeaveOrganization(ctx context.Context, principalID, orgID string) error {
	if principalID == "" {
		return domain.ErrUnauthenticated
	}

	ctx, span := otel.StartLeaveSpan(ctx, orgID, principalID)
	defer span.End()
	start := time.Now()

	err := s.store.LeaveOrganization(ctx, orgID, principalID)

	if s.metrics != nil {
		s.metrics.LeaveDuration.Record(ctx, time.Since(start).Seconds())
		if errors.Is(err, domain.ErrMustTransferOwnership) {
			s.metrics.LeavesRefused.Add(ctx, 1)
		}
	}
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.MembersRemoved.Add(ctx, 1)
	}
	s.publishMember(ctx, events.SubjectMemberLeft, &org.Membership{
		OrganizationID: orgID,
		AccountID:      principalID,
	}, principalID)
	return nil
}

// --- Event publishing ---
//
// Events go out only after the store transaction committed. Failures are
// logged and dropped; the state change already happened and must not be
// rolled back over a messaging hiccup.

func (s *OrgService) publishOrg(ctx context.Context, subject string, o *org.Organization, actorID string) {
	s.publish(ctx, subject, events.OrgPayload{
		EventID:        uuid.NewString(),
		OrganizationID: o.ID,
		Slug:           o.Slug,
		ActorID:        actorID,
	})
}

func (s *OrgService) publishMember(ctx context.Context, subject string, m *org.Membership, actorID string) {
	s.publish(ctx, subject, events.MemberPayload{
		EventID:        uuid.NewString(),
		OrganizationID: m.OrganizationID,
		AccountID:      m.AccountID,
		Role:           string(m.Role),
		ActorID:        actorID,
	})
}

func (s *OrgService) publish(ctx context.Context, subject string, payload any) {
	if s.pub == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal event", "subject", subject, "error", err)
		return
	}
	if err := s.pub.Publish(ctx, subject, data); err != nil {
		slog.Warn("publish event failed", "subject", subject, "error", err)
	}
}

func (s *OrgService) invalidateSlug(ctx context.Context, slug string) {
	if s.cache == nil || slug == "" {
		return
	}
	_ = s.cache.Delete(ctx, "org:slug:"+slug)
}
