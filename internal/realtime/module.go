package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/fx"

	"github.com/Alijeyrad/simward_backend/config"
	"github.com/Alijeyrad/simward_backend/pkg/observability"
)

// Module provides the Hub and runs the realtime listener when enabled.
var Module = fx.Module("realtime",
	fx.Provide(ProvideHub),
	fx.Invoke(RegisterServer),
)

type HubParams struct {
	fx.In

	Lc      fx.Lifecycle
	NC      *nats.Conn                    `optional:"true"`
	Metrics *observability.DomainMetrics `optional:"true"`
}

func ProvideHub(p HubParams) *Hub {
	var m Metrics
	if p.Metrics != nil {
		m = p.Metrics
	}
	h := NewHub(p.NC, m)
	p.Lc.Append(fx.Hook{
		OnStart: func(context.Context) error { return h.Start() },
		OnStop: func(context.Context) error {
			h.Stop()
			return nil
		},
	})
	return h
}

type ServerParams struct {
	fx.In

	Lc      fx.Lifecycle
	Cfg     *config.Config
	Hub     *Hub
	Auth    Authenticator
	Members Membership
}

func RegisterServer(p ServerParams) {
	if !p.Cfg.Realtime.Enabled {
		slog.Info("realtime: listener disabled")
		return
	}

	handler := NewHandler(p.Hub, p.Auth, p.Members, HandlerConfig{
		AllowedOrigins: p.Cfg.Realtime.AllowedOrigins,
		SendBuffer:     p.Cfg.Realtime.SendBuffer,
	})

	mux := http.NewServeMux()
	mux.Handle("GET /ws", handler)
	mux.HandleFunc("GET /livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", p.Cfg.Realtime.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	p.Lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return fmt.Errorf("realtime listen: %w", err)
			}
			slog.Info("realtime: listening", "addr", srv.Addr)
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					slog.Error("realtime server error", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
