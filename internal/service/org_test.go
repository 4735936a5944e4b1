package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stackpad/stackpad/internal/domain"
	"github.com/stackpad/stackpad/internal/domain/account"
	"github.com/stackpad/stackpad/internal/domain/org"
)

// seedOrg creates three accounts (owner, admin, member), an organization
// owned by the first, and memberships for the other two. It also creates a
// fourth account that belongs to nothing.
func seedOrg(t *testing.T, store *mockStore) (svc *OrgService, orgID string, owner, admin, member, outsider string) {
	t.Helper()
	ctx := context.Background()

	ids := make([]string, 0, 4)
	for _, email := range []string{"owner@x.dev", "admin@x.dev", "member@x.dev", "outsider@x.dev"} {
		a := &account.Account{Email: email, Name: email}
		if err := store.CreateAccount(ctx, a); err != nil {
			t.Fatalf("CreateAccount(%s): %v", email, err)
		}
		ids = append(ids, a.ID)
	}
	owner, admin, member, outsider = ids[0], ids[1], ids[2], ids[3]

	svc = NewOrgService(store, nil, nil, nil, 0)
	o, err := svc.CreateOrganization(ctx, owner, &org.CreateRequest{Name: "Acme", Slug: "acme"})
	if err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}
	orgID = o.ID

	for acct, role := range map[string]org.Role{admin: org.RoleAdmin, member: org.RoleMember} {
		if _, err := svc.AddMember(ctx, owner, orgID, &org.AddMemberRequest{AccountID: acct, Role: role}); err != nil {
			t.Fatalf("AddMember(%s): %v", acct, err)
		}
	}
	return svc, orgID, owner, admin, member, outsider
}

func membershipID(t *testing.T, store *mockStore, orgID, accountID string) string {
	t.Helper()
	m, err := store.GetMembership(context.Background(), orgID, accountID)
	if err != nil {
		t.Fatalf("GetMembership: %v", err)
	}
	return m.ID
}

func TestRolePredicates(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	svc, orgID, owner, admin, member, outsider := seedOrg(t, store)

	tests := []struct {
		name     string
		account  string
		isMember bool
		isAdmin  bool
		isOwner  bool
	}{
		{"owner", owner, true, true, true},
		{"admin", admin, true, true, false},
		{"member", member, true, false, false},
		{"outsider", outsider, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := svc.IsMember(ctx, tt.account, orgID); got != tt.isMember {
				t.Errorf("IsMember = %v, want %v", got, tt.isMember)
			}
			if got, _ := svc.IsAdmin(ctx, tt.account, orgID); got != tt.isAdmin {
				t.Errorf("IsAdmin = %v, want %v", got, tt.isAdmin)
			}
			if got, _ := svc.IsOwner(ctx, tt.account, orgID); got != tt.isOwner {
				t.Errorf("IsOwner = %v, want %v", got, tt.isOwner)
			}
		})
	}
}

func TestRoleOfAbsentMembership(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	svc, orgID, _, _, _, outsider := seedOrg(t, store)

	role, ok, err := svc.RoleOf(ctx, outsider, orgID)
	if err != nil {
		t.Fatalf("RoleOf: %v", err)
	}
	if ok || role != "" {
		t.Errorf("RoleOf outsider = (%q, %v), want (\"\", false)", role, ok)
	}
}

func TestRoleOfPropagatesStoreError(t *testing.T) {
	store := newMockStore()
	svc, orgID, owner, _, _, _ := seedOrg(t, store)

	store.getMembershipErr = errors.New("connection reset")
	if _, _, err := svc.RoleOf(context.Background(), owner, orgID); err == nil {
		t.Fatal("RoleOf should surface store errors, not treat them as absence")
	}
}

func TestCreateOrganization(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	svc, _, owner, _, _, _ := seedOrg(t, store)

	t.Run("unauthenticated", func(t *testing.T) {
		_, err := svc.CreateOrganization(ctx, "", &org.CreateRequest{Name: "X", Slug: "xyz"})
		if !errors.Is(err, domain.ErrUnauthenticated) {
			t.Errorf("err = %v, want ErrUnauthenticated", err)
		}
	})

	t.Run("invalid slug", func(t *testing.T) {
		_, err := svc.CreateOrganization(ctx, owner, &org.CreateRequest{Name: "X", Slug: "Bad Slug!"})
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("err = %v, want ErrValidation", err)
		}
	})

	t.Run("slug taken", func(t *testing.T) {
		_, err := svc.CreateOrganization(ctx, owner, &org.CreateRequest{Name: "Other", Slug: "acme"})
		if !errors.Is(err, domain.ErrSlugTaken) {
			t.Errorf("err = %v, want ErrSlugTaken", err)
		}
	})

	t.Run("creator becomes owner and active org is set", func(t *testing.T) {
		o, err := svc.CreateOrganization(ctx, owner, &org.CreateRequest{Name: "Beta", Slug: "beta"})
		if err != nil {
			t.Fatalf("CreateOrganization: %v", err)
		}
		ok, _ := svc.IsOwner(ctx, owner, o.ID)
		if !ok {
			t.Error("creator should be owner")
		}
		active, err := svc.ActiveOrganization(ctx, owner)
		if err != nil {
			t.Fatalf("ActiveOrganization: %v", err)
		}
		if active == nil || active.ID != o.ID {
			t.Errorf("active organization = %+v, want %s", active, o.ID)
		}
	})
}

func TestGetOrganizationVisibility(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	svc, orgID, _, _, member, outsider := seedOrg(t, store)

	if _, err := svc.GetOrganization(ctx, member, orgID); err != nil {
		t.Fatalf("member GetOrganization: %v", err)
	}
	if _, err := svc.GetOrganization(ctx, outsider, orgID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("outsider err = %v, want ErrNotFound", err)
	}
	if _, err := svc.GetOrganizationBySlug(ctx, outsider, "acme"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("outsider by slug err = %v, want ErrNotFound", err)
	}
}

func TestCheckSlugAvailable(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	svc, _, _, _, _, _ := seedOrg(t, store)

	free, err := svc.CheckSlugAvailable(ctx, "  Acme ")
	if err != nil {
		t.Fatalf("CheckSlugAvailable: %v", err)
	}
	if free {
		t.Error("normalized taken slug reported available")
	}
	free, err = svc.CheckSlugAvailable(ctx, "fresh-slug")
	if err != nil || !free {
		t.Errorf("fresh slug = (%v, %v), want (true, nil)", free, err)
	}
	if _, err := svc.CheckSlugAvailable(ctx, "x"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("short slug err = %v, want ErrValidation", err)
	}
}

func TestUpdateOrganizationRequiresAdmin(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	svc, orgID, _, admin, member, _ := seedOrg(t, store)

	name := "Renamed"
	if _, err := svc.UpdateOrganization(ctx, member, orgID, &org.UpdateRequest{Name: &name}); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Errorf("member err = %v, want ErrNotAuthorized", err)
	}
	o, err := svc.UpdateOrganization(ctx, admin, orgID, &org.UpdateRequest{Name: &name})
	if err != nil {
		t.Fatalf("admin UpdateOrganization: %v", err)
	}
	if o.Name != "Renamed" {
		t.Errorf("name = %q, want Renamed", o.Name)
	}
}

func TestDeleteOrganizationRequiresOwner(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	svc, orgID, owner, admin, _, _ := seedOrg(t, store)

	if err := svc.DeleteOrganization(ctx, admin, orgID); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Errorf("admin err = %v, want ErrNotAuthorized", err)
	}
	if err := svc.DeleteOrganization(ctx, owner, orgID); err != nil {
		t.Fatalf("owner DeleteOrganization: %v", err)
	}
	if _, err := store.GetOrganization(ctx, orgID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("organization survived delete: %v", err)
	}
}

func TestAddMember(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	svc, orgID, owner, admin, member, outsider := seedOrg(t, store)

	t.Run("member may not add", func(t *testing.T) {
		_, err := svc.AddMember(ctx, member, orgID, &org.AddMemberRequest{AccountID: outsider, Role: org.RoleMember})
		if !errors.Is(err, domain.ErrNotAuthorized) {
			t.Errorf("err = %v, want ErrNotAuthorized", err)
		}
	})

	t.Run("admin may not mint owner", func(t *testing.T) {
		_, err := svc.AddMember(ctx, admin, orgID, &org.AddMemberRequest{AccountID: outsider, Role: org.RoleOwner})
		if !errors.Is(err, domain.ErrPrivilegeEscalation) {
			t.Errorf("err = %v, want ErrPrivilegeEscalation", err)
		}
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := svc.AddMember(ctx, owner, orgID, &org.AddMemberRequest{AccountID: "acct-nope", Role: org.RoleMember})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("duplicate membership", func(t *testing.T) {
		_, err := svc.AddMember(ctx, owner, orgID, &org.AddMemberRequest{AccountID: member, Role: org.RoleMember})
		if !errors.Is(err, domain.ErrAlreadyMember) {
			t.Errorf("err = %v, want ErrAlreadyMember", err)
		}
	})

	t.Run("owner mints co-owner", func(t *testing.T) {
		m, err := svc.AddMember(ctx, owner, orgID, &org.AddMemberRequest{AccountID: outsider, Role: org.RoleOwner})
		if err != nil {
			t.Fatalf("AddMember: %v", err)
		}
		if m.Role != org.RoleOwner {
			t.Errorf("role = %s, want owner", m.Role)
		}
	})
}

func TestUpdateMemberRolePrecedence(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		caller  func(owner, admin, member string) string
		target  func(store *mockStore, orgID, owner, admin, member string) string
		newRole org.Role
		wantErr error
	}{
		{
			name:    "member may change nothing",
			caller:  func(_, _, member string) string { return member },
			target:  func(s *mockStore, o, _, admin, _ string) string { return membershipID(t, s, o, admin) },
			newRole: org.RoleMember,
			wantErr: domain.ErrNotAuthorized,
		},
		{
			name:    "admin may promote a plain member to admin",
			caller:  func(_, admin, _ string) string { return admin },
			target:  func(s *mockStore, o, _, _, member string) string { return membershipID(t, s, o, member) },
			newRole: org.RoleAdmin,
			wantErr: nil,
		},
		{
			name:    "admin may not promote to owner",
			caller:  func(_, admin, _ string) string { return admin },
			target:  func(s *mockStore, o, _, _, member string) string { return membershipID(t, s, o, member) },
			newRole: org.RoleOwner,
			wantErr: domain.ErrNotAuthorized,
		},
		{
			name:    "admin may not touch another admin",
			caller:  func(_, admin, _ string) string { return admin },
			target:  func(s *mockStore, o, owner, _, _ string) string { return membershipID(t, s, o, owner) },
			newRole: org.RoleMember,
			wantErr: domain.ErrNotAuthorized,
		},
		{
			name:    "owner may transfer ownership",
			caller:  func(owner, _, _ string) string { return owner },
			target:  func(s *mockStore, o, _, _, member string) string { return membershipID(t, s, o, member) },
			newRole: org.RoleOwner,
			wantErr: nil,
		},
		{
			name:    "sole owner may not demote themself",
			caller:  func(owner, _, _ string) string { return owner },
			target:  func(s *mockStore, o, owner, _, _ string) string { return membershipID(t, s, o, owner) },
			newRole: org.RoleAdmin,
			wantErr: domain.ErrNoRemainingOwner,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore()
			svc, orgID, owner, admin, member, _ := seedOrg(t, store)

			caller := tt.caller(owner, admin, member)
			targetID := tt.target(store, orgID, owner, admin, member)
			_, err := svc.UpdateMemberRole(ctx, caller, targetID, tt.newRole)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("unknown membership", func(t *testing.T) {
		store := newMockStore()
		svc, _, owner, _, _, _ := seedOrg(t, store)
		_, err := svc.UpdateMemberRole(ctx, owner, "mem-nope", org.RoleAdmin)
		if !errors.Is(err, domain.ErrMemberNotFound) {
			t.Errorf("err = %v, want ErrMemberNotFound", err)
		}
	})

	t.Run("invalid role", func(t *testing.T) {
		store := newMockStore()
		svc, orgID, owner, _, member, _ := seedOrg(t, store)
		_, err := svc.UpdateMemberRole(ctx, owner, membershipID(t, store, orgID, member), "superuser")
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("err = %v, want ErrValidation", err)
		}
	})
}

func TestRemoveMember(t *testing.T) {
	ctx := context.Background()

	t.Run("self removal of non-owner", func(t *testing.T) {
		store := newMockStore()
		svc, orgID, _, _, member, _ := seedOrg(t, store)
		if err := svc.RemoveMember(ctx, member, membershipID(t, store, orgID, member)); err != nil {
			t.Fatalf("RemoveMember: %v", err)
		}
		if ok, _ := svc.IsMember(ctx, member, orgID); ok {
			t.Error("membership survived removal")
		}
	})

	t.Run("owner self removal is refused", func(t *testing.T) {
		store := newMockStore()
		svc, orgID, owner, _, _, _ := seedOrg(t, store)
		err := svc.RemoveMember(ctx, owner, membershipID(t, store, orgID, owner))
		if !errors.Is(err, domain.ErrCannotRemoveOwner) {
			t.Errorf("err = %v, want ErrCannotRemoveOwner", err)
		}
	})

	t.Run("admin removes plain member", func(t *testing.T) {
		store := newMockStore()
		svc, orgID, _, admin, member, _ := seedOrg(t, store)
		if err := svc.RemoveMember(ctx, admin, membershipID(t, store, orgID, member)); err != nil {
			t.Fatalf("RemoveMember: %v", err)
		}
	})

	t.Run("admin may not remove an owner", func(t *testing.T) {
		store := newMockStore()
		svc, orgID, owner, admin, _, _ := seedOrg(t, store)
		err := svc.RemoveMember(ctx, admin, membershipID(t, store, orgID, owner))
		if !errors.Is(err, domain.ErrNotAuthorized) {
			t.Errorf("err = %v, want ErrNotAuthorized", err)
		}
	})

	t.Run("owner removes an admin", func(t *testing.T) {
		store := newMockStore()
		svc, orgID, owner, admin, _, _ := seedOrg(t, store)
		if err := svc.RemoveMember(ctx, owner, membershipID(t, store, orgID, admin)); err != nil {
			t.Fatalf("RemoveMember: %v", err)
		}
	})

	t.Run("outsider may not remove", func(t *testing.T) {
		store := newMockStore()
		svc, orgID, _, _, member, outsider := seedOrg(t, store)
		err := svc.RemoveMember(ctx, outsider, membershipID(t, store, orgID, member))
		if !errors.Is(err, domain.ErrNotAuthorized) {
			t.Errorf("err = %v, want ErrNotAuthorized", err)
		}
	})

	t.Run("removal clears the stale profile pointer", func(t *testing.T) {
		store := newMockStore()
		svc, orgID, owner, _, member, _ := seedOrg(t, store)
		if err := svc.SetActiveOrganization(ctx, member, &orgID); err != nil {
			t.Fatalf("SetActiveOrganization: %v", err)
		}
		if err := svc.RemoveMember(ctx, owner, membershipID(t, store, orgID, member)); err != nil {
			t.Fatalf("RemoveMember: %v", err)
		}
		active, err := svc.ActiveOrganization(ctx, member)
		if err != nil {
			t.Fatalf("ActiveOrganization: %v", err)
		}
		if active != nil {
			t.Errorf("active organization = %+v, want nil", active)
		}
	})
}

func TestLeaveOrganization(t *testing.T) {
	ctx := context.Background()

	t.Run("unauthenticated", func(t *testing.T) {
		store := newMockStore()
		svc, orgID, _, _, _, _ := seedOrg(t, store)
		if err := svc.LeaveOrganization(ctx, "", orgID); !errors.Is(err, domain.ErrUnauthenticated) {
			t.Errorf("err = %v, want ErrUnauthenticated", err)
		}
	})

	t.Run("not a member", func(t *testing.T) {
		store := newMockStore()
		svc, orgID, _, _, _, outsider := seedOrg(t, store)
		if err := svc.LeaveOrganization(ctx, outsider, orgID); !errors.Is(err, domain.ErrNotAMember) {
			t.Errorf("err = %v, want ErrNotAMember", err)
		}
	})

	t.Run("sole owner with other members must transfer first", func(t *testing.T) {
		store := newMockStore()
		svc, orgID, owner, _, _, _ := seedOrg(t, store)
		err := svc.LeaveOrganization(ctx, owner, orgID)
		if !errors.Is(err, domain.ErrMustTransferOwnership) {
			t.Errorf("err = %v, want ErrMustTransferOwnership", err)
		}
		if ok, _ := svc.IsOwner(ctx, owner, orgID); !ok {
			t.Error("refused leave must not mutate the membership")
		}
	})

	t.Run("co-owner may leave", func(t *testing.T) {
		store := newMockStore()
		svc, orgID, owner, admin, _, _ := seedOrg(t, store)
		if _, err := svc.UpdateMemberRole(ctx, owner, membershipID(t, store, orgID, admin), org.RoleOwner); err != nil {
			t.Fatalf("promote co-owner: %v", err)
		}
		if err := svc.LeaveOrganization(ctx, owner, orgID); err != nil {
			t.Fatalf("LeaveOrganization: %v", err)
		}
	})

	t.Run("member leave clears active pointer", func(t *testing.T) {
		store := newMockStore()
		svc, orgID, _, _, member, _ := seedOrg(t, store)
		if err := svc.SetActiveOrganization(ctx, member, &orgID); err != nil {
			t.Fatalf("SetActiveOrganization: %v", err)
		}
		if err := svc.LeaveOrganization(ctx, member, orgID); err != nil {
			t.Fatalf("LeaveOrganization: %v", err)
		}
		active, _ := svc.ActiveOrganization(ctx, member)
		if active != nil {
			t.Errorf("active organization = %+v, want nil", active)
		}
	})
}

func TestSetActiveOrganization(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	svc, orgID, _, _, member, outsider := seedOrg(t, store)

	if err := svc.SetActiveOrganization(ctx, outsider, &orgID); !errors.Is(err, domain.ErrNotAMember) {
		t.Errorf("outsider err = %v, want ErrNotAMember", err)
	}
	if err := svc.SetActiveOrganization(ctx, member, &orgID); err != nil {
		t.Fatalf("SetActiveOrganization: %v", err)
	}
	if err := svc.SetActiveOrganization(ctx, member, nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	active, _ := svc.ActiveOrganization(ctx, member)
	if active != nil {
		t.Errorf("active organization = %+v, want nil", active)
	}
}

func TestActiveOrganizationStalePointer(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	svc, orgID, _, _, member, _ := seedOrg(t, store)

	if err := svc.SetActiveOrganization(ctx, member, &orgID); err != nil {
		t.Fatalf("SetActiveOrganization: %v", err)
	}
	// Simulate a pointer that outlived the membership.
	mem, _ := store.GetMembership(ctx, orgID, member)
	kept := store.memberships[:0]
	for _, m := range store.memberships {
		if m.ID != mem.ID {
			kept = append(kept, m)
		}
	}
	store.memberships = kept
	store.profiles[member] = &orgID

	active, err := svc.ActiveOrganization(ctx, member)
	if err != nil {
		t.Fatalf("ActiveOrganization: %v", err)
	}
	if active != nil {
		t.Errorf("stale pointer resolved to %+v, want nil", active)
	}
}

func TestListMembersVisibility(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	svc, orgID, _, _, member, outsider := seedOrg(t, store)

	members, err := svc.ListMembers(ctx, member, orgID)
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if len(members) != 3 {
		t.Errorf("len(members) = %d, want 3", len(members))
	}
	if _, err := svc.ListMembers(ctx, outsider, orgID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("outsider err = %v, want ErrNotFound", err)
	}
}

func TestMemberOrganizations(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	svc, _, owner, _, _, _ := seedOrg(t, store)

	if _, err := svc.CreateOrganization(ctx, owner, &org.CreateRequest{Name: "Beta", Slug: "beta"}); err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}
	list, err := svc.MemberOrganizations(ctx, owner)
	if err != nil {
		t.Fatalf("MemberOrganizations: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	for _, w := range list {
		if w.Role != org.RoleOwner {
			t.Errorf("role in %s = %s, want owner", w.ID, w.Role)
		}
	}
}
