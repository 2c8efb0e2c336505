package authorize

import (
	"context"
	"log/slog"
	"time"

	casbin "github.com/casbin/casbin/v2"

	"github.com/Alijeyrad/simward_backend/pkg/reqctx"
)

// AuditedAuthorization logs every decision and every policy mutation made
// through inner. Reads pass straight through.
type AuditedAuthorization struct {
	inner  IAuthorization
	logger *slog.Logger
}

func NewAuditedAuthorization(inner IAuthorization, logger *slog.Logger) IAuthorization {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditedAuthorization{inner: inner, logger: logger.With("component", "authz")}
}

// record logs at error when err is set, warn when denied is set and info
// otherwise. The request id is attached when ctx carries one.
func (a *AuditedAuthorization) record(ctx context.Context, msg string, err error, denied bool, attrs ...slog.Attr) {
	if id := reqctx.RequestIDFromContext(ctx); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	level := slog.LevelInfo
	switch {
	case err != nil:
		level = slog.LevelError
		attrs = append(attrs, slog.String("error", err.Error()))
	case denied:
		level = slog.LevelWarn
	}
	a.logger.LogAttrs(ctx, level, msg, attrs...)
}

func (a *AuditedAuthorization) Enforce(ctx context.Context, subject GroupSubject, domain Domain, object Resource, action Action) (bool, error) {
	start := time.Now()
	allowed, err := a.inner.Enforce(ctx, subject, domain, object, action)
	a.record(ctx, "authz decision", err, !allowed,
		slog.String("subject", string(subject)),
		slog.String("domain", string(domain)),
		slog.String("resource", string(object)),
		slog.String("action", string(action)),
		slog.Bool("allowed", allowed),
		slog.Duration("took", time.Since(start)),
	)
	return allowed, err
}

func (a *AuditedAuthorization) MustEnforce(ctx context.Context, subject GroupSubject, domain Domain, object Resource, action Action) error {
	ok, err := a.Enforce(ctx, subject, domain, object, action)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func (a *AuditedAuthorization) AddRoleForUserInDomain(ctx context.Context, subject GroupSubject, role Role, domain Domain) (bool, error) {
	changed, err := a.inner.AddRoleForUserInDomain(ctx, subject, role, domain)
	a.roleChange(ctx, "grant", subject, role, domain, changed, err)
	return changed, err
}

func (a *AuditedAuthorization) RemoveRoleForUserInDomain(ctx context.Context, subject GroupSubject, role Role, domain Domain) (bool, error) {
	changed, err := a.inner.RemoveRoleForUserInDomain(ctx, subject, role, domain)
	a.roleChange(ctx, "revoke", subject, role, domain, changed, err)
	return changed, err
}

func (a *AuditedAuthorization) RemoveAllRolesForUser(ctx context.Context, subject GroupSubject) error {
	err := a.inner.RemoveAllRolesForUser(ctx, subject)
	a.record(ctx, "authz role change", err, false,
		slog.String("op", "revoke_all"),
		slog.String("subject", string(subject)),
	)
	return err
}

func (a *AuditedAuthorization) roleChange(ctx context.Context, op string, subject GroupSubject, role Role, domain Domain, changed bool, err error) {
	a.record(ctx, "authz role change", err, false,
		slog.String("op", op),
		slog.String("subject", string(subject)),
		slog.String("role", string(role)),
		slog.String("domain", string(domain)),
		slog.Bool("changed", changed),
	)
}

func (a *AuditedAuthorization) AddPermission(ctx context.Context, role Role, domain Domain, object Resource, action Action, effect PolicyEffect) (bool, error) {
	changed, err := a.inner.AddPermission(ctx, role, domain, object, action, effect)
	a.permissionChange(ctx, "add", role, domain, object, action, effect, changed, err)
	return changed, err
}

func (a *AuditedAuthorization) RemovePermission(ctx context.Context, role Role, domain Domain, object Resource, action Action, effect PolicyEffect) (bool, error) {
	changed, err := a.inner.RemovePermission(ctx, role, domain, object, action, effect)
	a.permissionChange(ctx, "remove", role, domain, object, action, effect, changed, err)
	return changed, err
}

func (a *AuditedAuthorization) permissionChange(ctx context.Context, op string, role Role, domain Domain, object Resource, action Action, effect PolicyEffect, changed bool, err error) {
	a.record(ctx, "authz permission change", err, false,
		slog.String("op", op),
		slog.String("role", string(role)),
		slog.String("domain", string(domain)),
		slog.String("resource", string(object)),
		slog.String("action", string(action)),
		slog.String("effect", string(effect)),
		slog.Bool("changed", changed),
	)
}

func (a *AuditedAuthorization) GetRolesForUserInDomain(ctx context.Context, subject GroupSubject, domain Domain) ([]Role, error) {
	return a.inner.GetRolesForUserInDomain(ctx, subject, domain)
}

func (a *AuditedAuthorization) IsSuperAdmin(ctx context.Context, subject GroupSubject) bool {
	return a.inner.IsSuperAdmin(ctx, subject)
}

func (a *AuditedAuthorization) Raw() *casbin.DistributedEnforcer { return a.inner.Raw() }
