package authorize

import (
	"context"
	"log/slog"

	"github.com/Alijeyrad/simward_backend/config"
)

const defaultModelPath = "casbin_model.conf"

// Options selects how Open assembles the enforcer.
type Options struct {
	ModelPath string
	// Audit logs every decision and every policy mutation.
	Audit bool
	// SuperadminBypass lets sys superadmins pass every Enforce call.
	SuperadminBypass bool
	// Watch reloads policy when another instance changes it.
	Watch bool
	// TrackHealth lets a failed reload mark the instance unready.
	TrackHealth bool
}

func OptionsFrom(c config.AuthorizationConfig) Options {
	o := Options{
		ModelPath:        c.CasbinModelPath,
		Audit:            c.EnableAudit,
		SuperadminBypass: c.SuperadminBypass,
		Watch:            c.PolicySyncEnabled,
		TrackHealth:      c.HealthCheckEnabled,
	}
	if o.ModelPath == "" {
		o.ModelPath = defaultModelPath
	}
	return o
}

// Open connects to the policy store at dsn and returns the authorization
// used by services and middleware. cleanup must run on shutdown.
func Open(ctx context.Context, opts Options, dsn string, logger *slog.Logger) (IAuthorization, CleanupFunc, error) {
	e, cleanup, err := NewEnforcer(ctx, opts, dsn)
	if err != nil {
		return nil, nil, err
	}
	base, err := newAuthorization(e, opts.SuperadminBypass)
	if err != nil {
		cleanup(ctx)
		return nil, nil, err
	}
	var auth IAuthorization = base
	if opts.Audit {
		auth = NewAuditedAuthorization(base, logger)
	}
	return auth, cleanup, nil
}
