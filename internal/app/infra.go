package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/Alijeyrad/simward_backend/config"
	"github.com/Alijeyrad/simward_backend/internal/events"
	"github.com/Alijeyrad/simward_backend/internal/repo"
	"github.com/Alijeyrad/simward_backend/internal/repo/migrations"
	"github.com/Alijeyrad/simward_backend/pkg/authorize"
	"github.com/Alijeyrad/simward_backend/pkg/crypto"
	"github.com/Alijeyrad/simward_backend/pkg/database"
	"github.com/Alijeyrad/simward_backend/pkg/email"
	"github.com/Alijeyrad/simward_backend/pkg/firebase"
	"github.com/Alijeyrad/simward_backend/pkg/observability"
	pasetotoken "github.com/Alijeyrad/simward_backend/pkg/paseto"
	"github.com/Alijeyrad/simward_backend/pkg/payments"
	redispkg "github.com/Alijeyrad/simward_backend/pkg/redis"
	s3pkg "github.com/Alijeyrad/simward_backend/pkg/s3"
	"github.com/Alijeyrad/simward_backend/pkg/util/codes"
)

// joinCodeTTL bounds how long a join code stays in the Redis fast path.
// Lookups past it fall back to Postgres.
const joinCodeTTL = 7 * 24 * time.Hour

// InfraModule provides all infrastructure dependencies.
var InfraModule = fx.Module("infra",
	fx.Provide(ProvideDatabase),
	fx.Provide(ProvideRepoClient),
	fx.Provide(ProvideRedis),
	fx.Provide(ProvideAuthorization),
	fx.Provide(ProvideEmailClient),
	fx.Provide(ProvideOTel),
	fx.Provide(ProvideDomainMetrics),
	fx.Provide(ProvideS3Client),
	fx.Provide(ProvideFirebase),
	fx.Provide(ProvideStripe),
	fx.Provide(ProvideNatsClient),
	fx.Provide(ProvidePublisher),
	fx.Provide(ProvideFieldCipher),
	fx.Provide(ProvideCodeGenerator),
	fx.Provide(ProvideSessionStore),
	fx.Provide(ProvideJoinCodeCache),
	fx.Provide(ProvidePasetoManager),
)

func ProvideDatabase(lc fx.Lifecycle, cfg *config.Config) (*database.DB, error) {
	db, err := database.NewFromCentralConfig(context.Background(), cfg.Database)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if !cfg.Database.Migrations.AutoMigrate {
				return nil
			}
			n, err := database.NewMigrator(db.GetConnection(), migrations.FS).Up(ctx)
			if err != nil {
				return err
			}
			slog.Info("migrations applied", "count", n)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			slog.Debug("closing main database connection")
			return db.Close()
		},
	})
	return db, nil
}

func ProvideRepoClient(db *database.DB) *repo.Client {
	return repo.NewClient(db.GetConnection())
}

func ProvideRedis(lc fx.Lifecycle, cfg *config.Config) (*redis.Client, error) {
	rdb, err := redispkg.NewRedisFromCentral(context.Background(), cfg.Redis)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("closing Redis connection")
			return rdb.Close()
		},
	})
	return rdb, nil
}

func ProvideAuthorization(lc fx.Lifecycle, cfg *config.Config) (authorize.IAuthorization, error) {
	ctx := context.Background()
	auth, cleanup, err := authorize.Open(ctx, authorize.OptionsFrom(cfg.Authorization), database.NewDSN(cfg.CasbinDatabase), slog.Default())
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			cleanup(ctx)
			return nil
		},
	})
	return auth, nil
}

func ProvideEmailClient(cfg *config.Config) (*email.Client, error) {
	return email.NewFromCentral(cfg.Email)
}

func ProvideS3Client(cfg *config.Config) (*s3pkg.Client, error) {
	return s3pkg.New(cfg.S3)
}

func ProvideFirebase(cfg *config.Config) (*firebase.Client, error) {
	return firebase.New(context.Background(), cfg.Firebase)
}

func ProvideStripe(cfg *config.Config) *payments.Client {
	return payments.New(cfg.Stripe)
}

// ProvideNatsClient returns nil when no URL is configured: events are then
// dropped and the realtime hub stays local.
func ProvideNatsClient(lc fx.Lifecycle, cfg *config.Config) (*nats.Conn, error) {
	if cfg.Nats.URL == "" {
		slog.Info("nats: no url configured, running without a broker")
		return nil, nil
	}
	nc, err := nats.Connect(cfg.Nats.URL,
		nats.Name("simward"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("draining NATS connection")
			return nc.Drain()
		},
	})
	return nc, nil
}

func ProvidePublisher(nc *nats.Conn, metrics *observability.DomainMetrics) events.Publisher {
	return events.NewNATS(nc, metrics)
}

func ProvideFieldCipher(cfg *config.Config) (*crypto.FieldCipher, error) {
	return crypto.NewFieldCipher(cfg.Authentication.EncryptionKey)
}

func ProvideCodeGenerator(cfg *config.Config) *codes.Generator {
	return codes.NewGenerator(codes.FromCentralConfig(cfg.Codes))
}

func ProvideSessionStore(rdb *redis.Client, cfg *config.Config) *redispkg.SessionStore {
	return redispkg.NewSessionStore(rdb, time.Duration(cfg.Authentication.SessionTTLHours)*time.Hour)
}

func ProvideJoinCodeCache(rdb *redis.Client) *redispkg.JoinCodeCache {
	return redispkg.NewJoinCodeCache(rdb, joinCodeTTL)
}

func ProvidePasetoManager(cfg *config.Config) (*pasetotoken.Manager, error) {
	return pasetotoken.NewPasetoManager(cfg)
}

func ProvideOTel(lc fx.Lifecycle, cfg *config.Config) (*observability.Provider, error) {
	if !cfg.Observability.Enabled {
		return nil, nil
	}
	provider, err := observability.InitTelemetry(context.Background(), observability.FromCentralConfig(cfg))
	if err != nil {
		return nil, err
	}
	slog.Info("observability initialized",
		"tracing", cfg.Observability.Tracing.Enabled,
		"metrics", cfg.Observability.Metrics.Enabled,
	)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("shutting down observability providers")
			return provider.Shutdown(ctx)
		},
	})
	return provider, nil
}

// ProvideDomainMetrics takes the provider so instruments bind to the
// configured meter rather than the no-op default.
func ProvideDomainMetrics(_ *observability.Provider) *observability.DomainMetrics {
	return observability.NewDomainMetrics()
}
