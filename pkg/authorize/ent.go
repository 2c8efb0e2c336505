package authorize

import (
	"context"
	"log/slog"
	"sync/atomic"

	psqlwatcher "github.com/IguteChung/casbin-psql-watcher"
	casbin "github.com/casbin/casbin/v2"
	entadapter "github.com/casbin/ent-adapter"
)

// policyHealthy is false after a watcher-triggered reload fails and true
// again once a later reload succeeds. Readiness probes read it.
var policyHealthy atomic.Bool

func init() { policyHealthy.Store(true) }

func IsPolicyHealthy() bool { return policyHealthy.Load() }

type CleanupFunc func(ctx context.Context)

// WatcherChannel is the LISTEN/NOTIFY channel carrying policy changes
// between instances.
const WatcherChannel = "simward_casbin_policy_update"

// NewEnforcer builds a DistributedEnforcer persisted through the ent
// adapter. With opts.Watch it also listens on WatcherChannel.
func NewEnforcer(ctx context.Context, opts Options, dsn string) (*casbin.DistributedEnforcer, CleanupFunc, error) {
	adapter, err := entadapter.NewAdapter("postgres", dsn)
	if err != nil {
		return nil, nil, err
	}
	e, err := casbin.NewDistributedEnforcer(opts.ModelPath, adapter)
	if err != nil {
		return nil, nil, err
	}
	e.EnableAutoSave(true)
	e.EnableEnforce(true)

	if !opts.Watch {
		return e, func(context.Context) {}, nil
	}

	w, err := psqlwatcher.NewWatcherWithConnString(ctx, dsn, psqlwatcher.Option{Channel: WatcherChannel})
	if err != nil {
		return nil, nil, err
	}
	reload := func(msg string) {
		slog.Debug("authorize: policy change received", "message", msg)
		err := e.LoadPolicy()
		if err != nil {
			slog.Error("authorize: policy reload failed", "error", err)
		}
		if opts.TrackHealth {
			policyHealthy.Store(err == nil)
		}
	}
	if err := w.SetUpdateCallback(reload); err != nil {
		w.Close()
		return nil, nil, err
	}
	if err := e.SetWatcher(w); err != nil {
		w.Close()
		return nil, nil, err
	}

	return e, func(context.Context) {
		w.Close()
		e.StopAutoLoadPolicy()
		slog.Info("authorize: policy watcher closed")
	}, nil
}
