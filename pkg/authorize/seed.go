package authorize

import (
	"context"
	"fmt"
	"log/slog"
)

var (
	crud     = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionList}
	readOnly = []Action{ActionRead, ActionList}
	all      = []Action{WildcardAction}
)

var clinicalResources = []Resource{
	ResourcePatient, ResourcePatientNote, ResourcePatientAttachment,
	ResourceObservation, ResourceFluidBalance, ResourcePrescription,
	ResourceInvestigation, ResourceReport,
}

var catalogResources = []Resource{ResourceDrugCatalog, ResourceInvestigationCatalog}

// grant expands role x resources x actions into allow rows valid in every
// organisation domain.
func grant(role Role, actions []Action, resources ...Resource) []PermissionPolicy {
	out := make([]PermissionPolicy, 0, len(actions)*len(resources))
	for _, r := range resources {
		for _, a := range actions {
			out = append(out, PermissionPolicy{role, WildcardDomain, r, a, EffectAllow})
		}
	}
	return out
}

// DefaultPolicies returns the baseline RBAC matrix for organisation roles.
// The superadmin needs no rows because Enforce short-circuits for it.
func DefaultPolicies() []PermissionPolicy {
	var ps []PermissionPolicy
	add := func(p []PermissionPolicy) { ps = append(ps, p...) }

	// Admin: everything inside the organisation, billing included.
	add(grant(RoleOrgAdmin, all, clinicalResources...))
	add(grant(RoleOrgAdmin, all, catalogResources...))
	add(grant(RoleOrgAdmin, all, ResourceUser, ResourceSession, ResourceFile, ResourceNotification, ResourceBilling))
	add(grant(RoleOrgAdmin, []Action{ActionRead, ActionUpdate}, ResourceOrganisation))
	add(grant(RoleOrgAdmin, readOnly, ResourceActivityLog))
	add(grant(RoleOrgAdmin, []Action{ActionGrant, ActionRevoke}, ResourceRBAC))

	// Administrator: runs the organisation day to day, billing is read-only.
	add(grant(RoleOrgAdministrator, all, clinicalResources...))
	add(grant(RoleOrgAdministrator, all, catalogResources...))
	add(grant(RoleOrgAdministrator, all, ResourceUser, ResourceSession, ResourceFile, ResourceNotification))
	add(grant(RoleOrgAdministrator, []Action{ActionRead, ActionUpdate}, ResourceOrganisation))
	add(grant(RoleOrgAdministrator, readOnly, ResourceActivityLog, ResourceBilling))
	add(grant(RoleOrgAdministrator, []Action{ActionGrant, ActionRevoke}, ResourceRBAC))

	// Faculty: authors scenarios and runs sessions.
	add(grant(RoleOrgFaculty, all, clinicalResources...))
	add(grant(RoleOrgFaculty, crud, catalogResources...))
	add(grant(RoleOrgFaculty, all, ResourceSession, ResourceFile, ResourceNotification))
	add(grant(RoleOrgFaculty, readOnly, ResourceUser, ResourceOrganisation))

	// User: learners record care but cannot delete records.
	add(grant(RoleOrgUser, readOnly, clinicalResources...))
	add(grant(RoleOrgUser, []Action{ActionCreate}, ResourcePatientNote, ResourceObservation,
		ResourceFluidBalance, ResourcePrescription, ResourceInvestigation, ResourcePatientAttachment))
	add(grant(RoleOrgUser, []Action{ActionUpdate, ActionExecute}, ResourcePrescription))
	add(grant(RoleOrgUser, readOnly, catalogResources...))
	add(grant(RoleOrgUser, readOnly, ResourceSession, ResourceOrganisation))
	add(grant(RoleOrgUser, []Action{ActionCreate, ActionRead}, ResourceFile))
	add(grant(RoleOrgUser, all, ResourceNotification))

	// Observer: read-only.
	add(grant(RoleOrgObserver, readOnly, clinicalResources...))
	add(grant(RoleOrgObserver, readOnly, catalogResources...))
	add(grant(RoleOrgObserver, readOnly, ResourceSession, ResourceOrganisation))
	add(grant(RoleOrgObserver, []Action{ActionRead}, ResourceFile))
	add(grant(RoleOrgObserver, all, ResourceNotification))

	return ps
}

// SeedDefaultPolicies writes the baseline RBAC policies. Existing rows are
// left untouched so the call is idempotent.
func SeedDefaultPolicies(ctx context.Context, auth IAuthorization) error {
	logger := slog.Default()
	policies := DefaultPolicies()

	added := 0
	for _, p := range policies {
		ok, err := auth.AddPermission(ctx, p.Subject, p.Domain, p.Object, p.Action, p.Effect)
		if err != nil {
			logger.Error("failed to add policy", "policy", p, "error", err)
			return err
		}
		if ok {
			added++
			logger.Debug("added policy", "role", p.Subject, "domain", p.Domain, "resource", p.Object, "action", p.Action)
		}
	}

	logger.Info("seeded default RBAC policies", "count", len(policies), "added", added)
	return nil
}

// AssignUserRole grants the Casbin role matching a users.role value in the
// user's domain.
func AssignUserRole(ctx context.Context, auth IAuthorization, userID, role, orgID string) error {
	r, ok := UserRoleToRBACRole[role]
	if !ok {
		return fmt.Errorf("%w: unknown user role %q", ErrInvalidArgs, role)
	}
	if role != UserRoleSuperAdmin && orgID == "" {
		return fmt.Errorf("%w: organisation required for role %q", ErrInvalidArgs, role)
	}

	_, err := auth.AddRoleForUserInDomain(ctx, GroupSubject(userID), r, DomainForUser(role, orgID))
	return err
}

// SyncUserRole replaces every grouping row of the user with the one for role.
func SyncUserRole(ctx context.Context, auth IAuthorization, userID, role, orgID string) error {
	if err := auth.RemoveAllRolesForUser(ctx, GroupSubject(userID)); err != nil {
		return err
	}
	return AssignUserRole(ctx, auth, userID, role, orgID)
}

// RevokeUserRoles removes every grouping row of the user.
func RevokeUserRoles(ctx context.Context, auth IAuthorization, userID string) error {
	return auth.RemoveAllRolesForUser(ctx, GroupSubject(userID))
}
