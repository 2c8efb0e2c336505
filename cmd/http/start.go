package http

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/Alijeyrad/simward_backend/config"
	"github.com/Alijeyrad/simward_backend/internal/api/http"
	"github.com/Alijeyrad/simward_backend/internal/api/http/router"
	"github.com/Alijeyrad/simward_backend/internal/app"
	"github.com/Alijeyrad/simward_backend/internal/realtime"
	"github.com/Alijeyrad/simward_backend/pkg/logs"
)

func NewStartCommand() *cobra.Command {
	var (
		shutdownTimeout time.Duration
		traceDI         bool
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Serve the REST API, the realtime relay and the event workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			slog.SetDefault(logs.New(cfg))

			fxApp := fx.New(
				fx.Supply(cfg),
				app.InfraModule,
				realtime.Module,
				app.ServiceModule,
				app.WorkerModule,
				router.Module,
				http.Module,
				// Nothing else depends on *fiber.App, so ask for it here.
				fx.Invoke(func(*fiber.App) {}),
				fx.StopTimeout(shutdownTimeout),
				fx.WithLogger(func() fxevent.Logger {
					if traceDI {
						return &fxevent.SlogLogger{Logger: slog.Default()}
					}
					return fxevent.NopLogger
				}),
			)
			fxApp.Run()
			return fxApp.Err()
		},
	}

	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second, "grace period for in-flight work on shutdown")
	cmd.Flags().BoolVar(&traceDI, "trace-di", false, "log dependency injection events")
	return cmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, err
	}
	return config.ReadConfig(configDir(path))
}
