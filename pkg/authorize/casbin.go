package authorize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	casbin "github.com/casbin/casbin/v2"
)

var (
	ErrForbidden   = errors.New("forbidden")
	ErrInvalidArgs = errors.New("invalid authorization arguments")
)

// IAuthorization is what services and middleware depend on. Subjects are
// user ids, domains are "sys" or "org:<uuid>", and every resource, action
// and role must be one of the known constants.
type IAuthorization interface {
	Enforce(ctx context.Context, subject GroupSubject, domain Domain, object Resource, action Action) (bool, error)
	// MustEnforce returns ErrForbidden when Enforce says no.
	MustEnforce(ctx context.Context, subject GroupSubject, domain Domain, object Resource, action Action) error

	// g rows: subject, role, domain
	AddRoleForUserInDomain(ctx context.Context, subject GroupSubject, role Role, domain Domain) (bool, error)
	RemoveRoleForUserInDomain(ctx context.Context, subject GroupSubject, role Role, domain Domain) (bool, error)
	GetRolesForUserInDomain(ctx context.Context, subject GroupSubject, domain Domain) ([]Role, error)
	RemoveAllRolesForUser(ctx context.Context, subject GroupSubject) error
	IsSuperAdmin(ctx context.Context, subject GroupSubject) bool

	// p rows: role, domain, resource, action, effect
	AddPermission(ctx context.Context, role Role, domain Domain, object Resource, action Action, effect PolicyEffect) (bool, error)
	RemovePermission(ctx context.Context, role Role, domain Domain, object Resource, action Action, effect PolicyEffect) (bool, error)

	Raw() *casbin.DistributedEnforcer
}

type Authorization struct {
	enforcer       *casbin.DistributedEnforcer
	superAdminRole Role
	bypass         bool
}

// NewAuthorization wraps a configured enforcer with the superadmin bypass
// enabled and loads its policy.
func NewAuthorization(e *casbin.DistributedEnforcer) (IAuthorization, error) {
	return newAuthorization(e, true)
}

func newAuthorization(e *casbin.DistributedEnforcer, bypass bool) (*Authorization, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: enforcer is nil", ErrInvalidArgs)
	}
	if err := e.LoadPolicy(); err != nil {
		return nil, err
	}
	return &Authorization{enforcer: e, superAdminRole: RoleSuperAdmin, bypass: bypass}, nil
}

func (a *Authorization) Raw() *casbin.DistributedEnforcer { return a.enforcer }

func invalidArg(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidArgs}, args...)...)
}

func checkDomain(d Domain) error {
	if d == "" || !IsValidDomain(d) {
		return invalidArg("invalid domain: %q", d)
	}
	return nil
}

func checkResource(r Resource) error {
	if _, ok := KnownResources[r]; !ok && r != WildcardResource {
		return invalidArg("unknown resource: %q", r)
	}
	return nil
}

func checkAction(act Action) error {
	if _, ok := KnownActions[act]; !ok && act != WildcardAction {
		return invalidArg("unknown action: %q", act)
	}
	return nil
}

func checkRole(r Role) error {
	if _, ok := KnownRoles[r]; !ok && r != WildcardRole {
		return invalidArg("unknown role: %q", r)
	}
	return nil
}

// firstErr runs checks in order and returns the first failure.
func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *Authorization) Enforce(ctx context.Context, subject GroupSubject, domain Domain, object Resource, action Action) (bool, error) {
	if subject == "" {
		return false, invalidArg("subject is empty")
	}
	if err := firstErr(checkDomain(domain), checkResource(object), checkAction(action)); err != nil {
		return false, err
	}
	if a.bypass && a.IsSuperAdmin(ctx, subject) {
		return true, nil
	}
	return a.enforcer.Enforce(string(subject), string(domain), string(object), string(action))
}

func (a *Authorization) MustEnforce(ctx context.Context, subject GroupSubject, domain Domain, object Resource, action Action) error {
	ok, err := a.Enforce(ctx, subject, domain, object, action)
	switch {
	case err != nil:
		return err
	case !ok:
		return ErrForbidden
	}
	return nil
}

func (a *Authorization) AddRoleForUserInDomain(_ context.Context, subject GroupSubject, role Role, domain Domain) (bool, error) {
	if subject == "" || role == "" {
		return false, invalidArg("empty subject or role")
	}
	if err := firstErr(checkRole(role), checkDomain(domain)); err != nil {
		return false, err
	}
	return a.enforcer.AddGroupingPolicy(string(subject), string(role), string(domain))
}

func (a *Authorization) RemoveRoleForUserInDomain(_ context.Context, subject GroupSubject, role Role, domain Domain) (bool, error) {
	if subject == "" || role == "" {
		return false, invalidArg("empty subject or role")
	}
	if err := checkDomain(domain); err != nil {
		return false, err
	}
	return a.enforcer.RemoveGroupingPolicy(string(subject), string(role), string(domain))
}

func (a *Authorization) GetRolesForUserInDomain(_ context.Context, subject GroupSubject, domain Domain) ([]Role, error) {
	if subject == "" {
		return nil, invalidArg("subject is empty")
	}
	if err := checkDomain(domain); err != nil {
		return nil, err
	}
	names := a.enforcer.GetRolesForUserInDomain(string(subject), string(domain))
	roles := make([]Role, len(names))
	for i, n := range names {
		roles[i] = Role(n)
	}
	return roles, nil
}

// RemoveAllRolesForUser drops every g row for subject in every domain.
func (a *Authorization) RemoveAllRolesForUser(_ context.Context, subject GroupSubject) error {
	if subject == "" {
		return invalidArg("subject is empty")
	}
	_, err := a.enforcer.RemoveFilteredGroupingPolicy(0, string(subject))
	return err
}

// IsSuperAdmin reports false when the grouping lookup fails.
func (a *Authorization) IsSuperAdmin(ctx context.Context, subject GroupSubject) bool {
	if subject == "" || a.superAdminRole == "" {
		return false
	}
	ok, err := a.enforcer.HasGroupingPolicy(string(subject), string(a.superAdminRole), string(DomainSys))
	if err != nil {
		slog.WarnContext(ctx, "authz: superadmin lookup failed", "subject", subject, "err", err)
		return false
	}
	return ok
}

func (a *Authorization) AddPermission(_ context.Context, role Role, domain Domain, object Resource, action Action, effect PolicyEffect) (bool, error) {
	if role == "" || domain == "" || object == "" || action == "" || effect == "" {
		return false, invalidArg("empty permission fields")
	}
	if effect != EffectAllow && effect != EffectDeny {
		return false, invalidArg("invalid effect: %q", effect)
	}
	if err := firstErr(checkRole(role), checkDomain(domain), checkResource(object), checkAction(action)); err != nil {
		return false, err
	}
	return a.enforcer.AddPolicy(string(role), string(domain), string(object), string(action), string(effect))
}

func (a *Authorization) RemovePermission(_ context.Context, role Role, domain Domain, object Resource, action Action, effect PolicyEffect) (bool, error) {
	if role == "" || domain == "" || object == "" || action == "" || effect == "" {
		return false, invalidArg("empty permission fields")
	}
	if err := checkDomain(domain); err != nil {
		return false, err
	}
	return a.enforcer.RemovePolicy(string(role), string(domain), string(object), string(action), string(effect))
}
