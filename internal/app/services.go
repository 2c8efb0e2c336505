package app

import (
	"context"

	"go.uber.org/fx"

	"github.com/Alijeyrad/simward_backend/internal/events"
	"github.com/Alijeyrad/simward_backend/internal/realtime"
	"github.com/Alijeyrad/simward_backend/internal/repo"
	"github.com/Alijeyrad/simward_backend/internal/service/activity"
	"github.com/Alijeyrad/simward_backend/internal/service/auth"
	"github.com/Alijeyrad/simward_backend/internal/service/billing"
	svcfile "github.com/Alijeyrad/simward_backend/internal/service/file"
	"github.com/Alijeyrad/simward_backend/internal/service/fluidbalance"
	"github.com/Alijeyrad/simward_backend/internal/service/investigation"
	"github.com/Alijeyrad/simward_backend/internal/service/notification"
	"github.com/Alijeyrad/simward_backend/internal/service/observation"
	"github.com/Alijeyrad/simward_backend/internal/service/organisation"
	"github.com/Alijeyrad/simward_backend/internal/service/patient"
	"github.com/Alijeyrad/simward_backend/internal/service/prescription"
	"github.com/Alijeyrad/simward_backend/internal/service/session"
	"github.com/Alijeyrad/simward_backend/internal/service/user"
	"github.com/Alijeyrad/simward_backend/pkg/authorize"
	"github.com/Alijeyrad/simward_backend/pkg/crypto"
	"github.com/Alijeyrad/simward_backend/pkg/firebase"
	"github.com/Alijeyrad/simward_backend/pkg/observability"
	pasetotoken "github.com/Alijeyrad/simward_backend/pkg/paseto"
	"github.com/Alijeyrad/simward_backend/pkg/payments"
	redispkg "github.com/Alijeyrad/simward_backend/pkg/redis"
	s3pkg "github.com/Alijeyrad/simward_backend/pkg/s3"
	"github.com/Alijeyrad/simward_backend/pkg/util/codes"
)

// ServiceModule provides all application service dependencies.
var ServiceModule = fx.Module("services",
	fx.Provide(
		ProvideOrganisationService,
		ProvideUserService,
		ProvideAuthService,
		ProvidePatientService,
		ProvideObservationService,
		ProvideFluidBalanceService,
		ProvideDrugCatalogService,
		ProvidePrescriptionService,
		ProvideInvestigationCatalogService,
		ProvideInvestigationService,
		ProvideSessionService,
		ProvideNotificationService,
		ProvideActivityService,
		ProvideBillingService,
		ProvideFileService,
		ProvideRealtimeAuthenticator,
		ProvideRealtimeMembership,
	),
)

func ProvideOrganisationService(db *repo.Client) organisation.Service {
	return organisation.New(db.Organisations)
}

func ProvideUserService(
	db *repo.Client,
	idp *firebase.Client,
	authz authorize.IAuthorization,
	pub events.Publisher,
) user.Service {
	return user.New(db.Users, db.Organisations, idp, authz, pub)
}

func ProvideAuthService(
	db *repo.Client,
	idp *firebase.Client,
	sessions *redispkg.SessionStore,
	paseto *pasetotoken.Manager,
) auth.Service {
	return auth.New(db.Users, db.Organisations, idp, sessions, paseto)
}

func ProvidePatientService(db *repo.Client, cipher *crypto.FieldCipher, objects *s3pkg.Client) patient.Service {
	return patient.New(db.Patients, cipher, objects)
}

func ProvideObservationService(
	db *repo.Client,
	metrics *observability.DomainMetrics,
	pub events.Publisher,
) observation.Service {
	return observation.New(db.Observations, db.Patients, metrics, pub)
}

func ProvideFluidBalanceService(db *repo.Client) fluidbalance.Service {
	return fluidbalance.New(db.FluidBalance, db.Patients)
}

func ProvideDrugCatalogService(db *repo.Client) prescription.CatalogService {
	return prescription.NewCatalog(db.Drugs)
}

func ProvidePrescriptionService(db *repo.Client) prescription.Service {
	return prescription.New(db.Prescriptions, db.Drugs, db.Patients)
}

func ProvideInvestigationCatalogService(db *repo.Client) investigation.CatalogService {
	return investigation.NewCatalog(db.Investigations)
}

// ProvideInvestigationService resolves patients through patient.Service so
// report exports carry decrypted demographics.
func ProvideInvestigationService(
	db *repo.Client,
	patients patient.Service,
	pub events.Publisher,
) investigation.Service {
	return investigation.New(db.Investigations, patients, db.Users, db.Organisations, pub)
}

func ProvideSessionService(
	db *repo.Client,
	gen *codes.Generator,
	joinCodes *redispkg.JoinCodeCache,
	hub *realtime.Hub,
	pub events.Publisher,
) session.Service {
	return session.New(db.Sessions, db.Patients, db.Users, gen, joinCodes, hub, pub)
}

func ProvideNotificationService(db *repo.Client) notification.Service {
	return notification.New(db.Notifications)
}

// ProvideActivityService starts the background writer with the app and
// drains it on shutdown.
func ProvideActivityService(
	lc fx.Lifecycle,
	db *repo.Client,
	metrics *observability.DomainMetrics,
) activity.Service {
	svc := activity.New(db.ActivityLogs, metrics, activity.DefaultQueueSize)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			svc.Start()
			return nil
		},
		OnStop: svc.Stop,
	})
	return svc
}

func ProvideBillingService(
	db *repo.Client,
	gateway *payments.Client,
	pub events.Publisher,
) billing.Service {
	return billing.New(gateway, db.Billing, db.Organisations, db.Users, pub)
}

func ProvideFileService(objects *s3pkg.Client) svcfile.Service {
	return svcfile.New(objects)
}

func ProvideRealtimeAuthenticator(s auth.Service) realtime.Authenticator { return s }

func ProvideRealtimeMembership(s session.Service) realtime.Membership { return s }
