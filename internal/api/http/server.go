package http

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/logger"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/Alijeyrad/simward_backend/config"
	"github.com/Alijeyrad/simward_backend/internal/api/http/handler"
	"github.com/Alijeyrad/simward_backend/internal/api/http/middleware"
	"github.com/Alijeyrad/simward_backend/internal/api/http/router"
	"github.com/Alijeyrad/simward_backend/pkg/observability"
)

// Module provides the Server to the fx graph.
var Module = fx.Module("http", fx.Provide(NewServer))

const defaultBodyLimitMB = 10

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Cfg       *config.Config
	Redis     *redis.Client
	Router    *router.Router
	OTel      *observability.Provider `optional:"true"`
}

func NewServer(p Params) *fiber.App {
	app := fiber.New(appConfig(p.Cfg))

	if p.OTel != nil && p.Cfg.Observability.Tracing.Enabled {
		app.Use(observability.FiberMiddleware("/livez", "/readyz", "/startupz", "/metrics"))
	}

	configureGlobalMiddleware(app, p.Cfg, p.Redis)

	p.Router.Register(app)

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			addr := fmt.Sprintf(":%d", p.Cfg.Server.Port)
			go func() {
				if err := app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
					slog.Error("HTTP server error", "error", err)
				}
			}()
			slog.Info("http: listening", "addr", addr)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.ShutdownWithContext(ctx)
		},
	})

	return app
}

func appConfig(cfg *config.Config) fiber.Config {
	bodyMB := cfg.Server.BodyLimitMB
	if bodyMB <= 0 {
		bodyMB = defaultBodyLimitMB
	}
	c := fiber.Config{
		AppName:      "simward",
		ErrorHandler: handler.ErrorHandler,
		BodyLimit:    bodyMB << 20,
	}
	if cfg.Server.TimeoutSeconds > 0 {
		t := time.Duration(cfg.Server.TimeoutSeconds) * time.Second
		c.ReadTimeout = t
		c.WriteTimeout = t
	}
	return c
}

func configureGlobalMiddleware(app *fiber.App, cfg *config.Config, rdb *redis.Client) {
	app.Use(middleware.RequestID())
	app.Use(recoverer.New())

	if cfg.Server.CORS.Enabled {
		app.Use(cors.New(corsConfig(cfg.Server.CORS)))
	}

	if cfg.Server.Environment == "production" {
		app.Use(helmet.New())
		app.Use(middleware.NewLimiterWithRedis(rdb, cfg.Server.RateLimit))
	}

	app.Use(logger.New(logger.Config{
		Format: "${ip} - [${time}] [req_id=${requestId}] ${method} ${url} ${status}\n",
	}))
}

func corsConfig(c config.CORSConfig) cors.Config {
	cc := cors.Config{
		AllowOrigins:     c.AllowOrigins,
		AllowMethods:     c.AllowMethods,
		AllowHeaders:     c.AllowHeaders,
		ExposeHeaders:    c.ExposeHeaders,
		AllowCredentials: c.AllowCredentials,
		MaxAge:           c.MaxAgeSeconds,
	}
	// Credentials cannot be combined with a wildcard origin.
	for _, o := range c.AllowOrigins {
		if strings.TrimSpace(o) == "*" {
			cc.AllowCredentials = false
			break
		}
	}
	return cc
}
