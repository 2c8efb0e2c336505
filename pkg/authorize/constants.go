package authorize

import (
	"fmt"
	"regexp"
)

type Action string
type Resource string
type Role string
type Domain string

// ----------------------------
// Actions
// ----------------------------

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionList   Action = "list"

	// Power actions
	ActionExecute Action = "execute" // start/end a session, record an administration

	// Lifecycle actions
	ActionRecover Action = "recover" // undo a soft delete

	// RBAC-specific actions
	ActionGrant  Action = "grant"
	ActionRevoke Action = "revoke"
)

const (
	WildcardAction Action = "*"
)

var KnownActions = map[Action]struct{}{
	ActionCreate: {}, ActionRead: {}, ActionUpdate: {}, ActionDelete: {}, ActionList: {},
	ActionExecute: {}, ActionRecover: {},
	ActionGrant: {}, ActionRevoke: {},
}

// ----------------------------
// Resources
// ----------------------------

const (
	WildcardResource Resource = "*"

	// Tenant management
	ResourceOrganisation Resource = "organisation"
	ResourceUser         Resource = "user"

	// Clinical records
	ResourcePatient           Resource = "patient"
	ResourcePatientNote       Resource = "patient_note"
	ResourcePatientAttachment Resource = "patient_attachment"
	ResourceObservation       Resource = "observation"
	ResourceFluidBalance      Resource = "fluid_balance"
	ResourcePrescription      Resource = "prescription"
	ResourceInvestigation     Resource = "investigation"
	ResourceReport            Resource = "investigation_report"

	// Catalogues
	ResourceDrugCatalog          Resource = "drug_catalog"
	ResourceInvestigationCatalog Resource = "investigation_catalog"

	// Simulation
	ResourceSession Resource = "session"

	// Communication
	ResourceNotification Resource = "notification"

	// Platform
	ResourceActivityLog Resource = "activity_log"
	ResourceBilling     Resource = "billing"
	ResourceFile        Resource = "file"
	ResourceSystem      Resource = "system"
	ResourceRBAC        Resource = "rbac"
)

var KnownResources = map[Resource]struct{}{
	ResourceOrganisation: {}, ResourceUser: {},
	ResourcePatient: {}, ResourcePatientNote: {}, ResourcePatientAttachment: {},
	ResourceObservation: {}, ResourceFluidBalance: {}, ResourcePrescription: {},
	ResourceInvestigation: {}, ResourceReport: {},
	ResourceDrugCatalog: {}, ResourceInvestigationCatalog: {},
	ResourceSession: {}, ResourceNotification: {},
	ResourceActivityLog: {}, ResourceBilling: {}, ResourceFile: {}, ResourceSystem: {}, ResourceRBAC: {},
}

// ----------------------------
// Roles
// ----------------------------
//
// These are the "policy subjects" we assign to users via grouping policies.

const (
	WildcardRole Role = "*"

	// Platform role (domain = sys)
	RoleSuperAdmin Role = "role:sys:superadmin"

	// Organisation roles (domain = org:<uuid>)
	RoleOrgAdmin         Role = "role:org:admin"
	RoleOrgAdministrator Role = "role:org:administrator"
	RoleOrgFaculty       Role = "role:org:faculty"
	RoleOrgUser          Role = "role:org:user"
	RoleOrgObserver      Role = "role:org:observer"
)

var KnownRoles = map[Role]struct{}{
	RoleSuperAdmin:       {},
	RoleOrgAdmin:         {},
	RoleOrgAdministrator: {},
	RoleOrgFaculty:       {},
	RoleOrgUser:          {},
	RoleOrgObserver:      {},
}

var RoleDisplayNames = map[Role]string{
	RoleSuperAdmin:       "Superadmin",
	RoleOrgAdmin:         "Admin",
	RoleOrgAdministrator: "Administrator",
	RoleOrgFaculty:       "Faculty",
	RoleOrgUser:          "User",
	RoleOrgObserver:      "Observer",
}

// User role strings (stored in DB users.role column)
const (
	UserRoleSuperAdmin    = "superadmin"
	UserRoleAdmin         = "admin"
	UserRoleAdministrator = "administrator"
	UserRoleFaculty       = "faculty"
	UserRoleUser          = "user"
	UserRoleObserver      = "observer"
)

// UserRoleToRBACRole maps DB role values to Casbin roles
var UserRoleToRBACRole = map[string]Role{
	UserRoleSuperAdmin:    RoleSuperAdmin,
	UserRoleAdmin:         RoleOrgAdmin,
	UserRoleAdministrator: RoleOrgAdministrator,
	UserRoleFaculty:       RoleOrgFaculty,
	UserRoleUser:          RoleOrgUser,
	UserRoleObserver:      RoleOrgObserver,
}

// IsValidUserRole reports whether r is a known users.role value.
func IsValidUserRole(r string) bool {
	_, ok := UserRoleToRBACRole[r]
	return ok
}

// IsStaffRole reports whether r is faculty or above inside an organisation.
func IsStaffRole(r string) bool {
	switch r {
	case UserRoleSuperAdmin, UserRoleAdmin, UserRoleAdministrator, UserRoleFaculty:
		return true
	}
	return false
}

// IsOrgManagerRole reports whether r may manage users of its organisation.
func IsOrgManagerRole(r string) bool {
	switch r {
	case UserRoleSuperAdmin, UserRoleAdmin, UserRoleAdministrator:
		return true
	}
	return false
}

// ----------------------------
// Domains
// ----------------------------

const (
	DomainSys Domain = "sys"
)

// Domain prefixes (for exact domains we generate per entity)
const (
	DomainPrefixOrg Domain = "org:"
)

const (
	WildcardDomain Domain = "*"
)

var (
	reUUID = regexp.MustCompile(`^[0-9a-fA-F-]{36}$`)
)

// OrgDomain builds the casbin domain for an organisation.
func OrgDomain(orgID string) Domain {
	return Domain(fmt.Sprintf("%s%s", DomainPrefixOrg, orgID))
}

// DomainForUser returns the domain a user's role lives in: sys for the
// superadmin, the organisation's domain otherwise.
func DomainForUser(role, orgID string) Domain {
	if role == UserRoleSuperAdmin || orgID == "" {
		return DomainSys
	}
	return OrgDomain(orgID)
}

// IsValidDomain checks whether d is a recognised domain string.
func IsValidDomain(d Domain) bool {
	if d == DomainSys || d == WildcardDomain {
		return true
	}

	s := string(d)
	if len(s) > len(DomainPrefixOrg) && s[:len(DomainPrefixOrg)] == string(DomainPrefixOrg) {
		return reUUID.MatchString(s[len(DomainPrefixOrg):])
	}
	return false
}

// ----------------------------
// Casbin tuple helpers
// ----------------------------

type PolicyEffect string

const (
	EffectAllow PolicyEffect = "allow"
	EffectDeny  PolicyEffect = "deny"
)

// GroupSubject is the g.sub in Casbin: a concrete principal id (user_id or service_id).
type GroupSubject string

// Grouping rows: g, user_id, role, domain
type GroupingPolicy struct {
	Subject GroupSubject
	Role    Role
	Domain  Domain
}

// Permission rows: p, role, domain, resource, action, eft
type PermissionPolicy struct {
	Subject Role
	Domain  Domain
	Object  Resource
	Action  Action
	Effect  PolicyEffect
}
