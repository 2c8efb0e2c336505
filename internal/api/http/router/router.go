package router

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/Alijeyrad/simward_backend/config"
	"github.com/Alijeyrad/simward_backend/internal/api/http/handler"
	"github.com/Alijeyrad/simward_backend/internal/api/http/middleware"
	"github.com/Alijeyrad/simward_backend/internal/repo"
	"github.com/Alijeyrad/simward_backend/internal/service/activity"
	"github.com/Alijeyrad/simward_backend/internal/service/auth"
	"github.com/Alijeyrad/simward_backend/internal/service/billing"
	"github.com/Alijeyrad/simward_backend/internal/service/file"
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
)

// Module provides the Router to the fx graph.
var Module = fx.Module("router", fx.Provide(NewRouter))

type Params struct {
	fx.In

	Cfg  *config.Config
	Auth authorize.IAuthorization
	DB   *repo.Client

	AuthSvc          auth.Service
	OrganisationSvc  organisation.Service
	UserSvc          user.Service
	PatientSvc       patient.Service
	ObservationSvc   observation.Service
	FluidBalanceSvc  fluidbalance.Service
	PrescriptionSvc  prescription.Service
	DrugCatalogSvc   prescription.CatalogService
	InvestigationSvc investigation.Service
	InvCatalogSvc    investigation.CatalogService
	SessionSvc       session.Service
	NotificationSvc  notification.Service
	ActivitySvc      activity.Service
	BillingSvc       billing.Service
	FileSvc          file.Service
}

type Router struct {
	p Params
}

func NewRouter(p Params) *Router {
	return &Router{p: p}
}

// permFunc builds a permission guard for one resource and action.
type permFunc func(authorize.Resource, authorize.Action) fiber.Handler

// orgChain is what every organisation-scoped route runs before its
// permission check, in this order.
type orgChain struct {
	auth     fiber.Handler
	org      fiber.Handler
	activity fiber.Handler
}

func (r *Router) Register(app *fiber.App) {
	// 1. Health & Metrics
	r.registerSystemRoutes(app)

	// 2. Initialize Middlewares
	authRequired := middleware.AuthRequired(r.p.AuthSvc)
	orgCtx := middleware.OrgContext(r.p.OrganisationSvc)
	activityLog := middleware.ActivityLog(r.p.ActivitySvc)

	requirePerm := func(res authorize.Resource, act authorize.Action) fiber.Handler {
		return middleware.RequirePermission(r.p.Auth, res, act)
	}

	// 3. Initialize Handlers
	authH := handler.NewAuthHandler(r.p.AuthSvc)
	orgH := handler.NewOrganisationHandler(r.p.OrganisationSvc)
	userH := handler.NewUserHandler(r.p.UserSvc)
	patientH := handler.NewPatientHandler(r.p.PatientSvc)
	obsH := handler.NewObservationHandler(r.p.ObservationSvc)
	fluidH := handler.NewFluidBalanceHandler(r.p.FluidBalanceSvc)
	rxH := handler.NewPrescriptionHandler(r.p.PrescriptionSvc, r.p.DrugCatalogSvc)
	invH := handler.NewInvestigationHandler(r.p.InvestigationSvc, r.p.InvCatalogSvc)
	sessionH := handler.NewSessionHandler(r.p.SessionSvc)
	notificationH := handler.NewNotificationHandler(r.p.NotificationSvc)
	activityH := handler.NewActivityHandler(r.p.ActivitySvc)
	billingH := handler.NewBillingHandler(r.p.BillingSvc)
	fileH := handler.NewFileHandler(r.p.FileSvc)

	api := app.Group("/api/v1")

	scoped := orgChain{auth: authRequired, org: orgCtx, activity: activityLog}

	// 4. Delegate to sub-files
	r.registerAuthRoutes(api, authH, authRequired)
	r.registerOrganisationRoutes(api, orgH, scoped, requirePerm)
	r.registerUserRoutes(api, userH, scoped, requirePerm)
	patient := r.registerPatientRoutes(api, patientH, scoped, requirePerm)
	r.registerClinicalRoutes(api, patient, obsH, fluidH, rxH, invH, scoped, requirePerm)
	r.registerCatalogRoutes(api, rxH, invH, scoped, requirePerm)
	r.registerSessionRoutes(api, sessionH, scoped, requirePerm)
	r.registerNotificationRoutes(api, notificationH, authRequired)
	r.registerActivityRoutes(api, activityH, scoped, requirePerm)
	r.registerBillingRoutes(api, billingH, scoped, requirePerm)
	r.registerFileRoutes(api, fileH, scoped, requirePerm)
}

func (r *Router) registerSystemRoutes(app *fiber.App) {
	app.Get(healthcheck.LivenessEndpoint, healthcheck.New())
	app.Get(healthcheck.ReadinessEndpoint, healthcheck.New(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool {
			if !authorize.IsPolicyHealthy() {
				return false
			}
			ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
			defer cancel()
			return r.p.DB.Ping(ctx) == nil
		},
	}))
	app.Get(healthcheck.StartupEndpoint, healthcheck.New())

	if r.p.Cfg.Observability.Enabled && r.p.Cfg.Observability.Metrics.Enabled {
		path := r.p.Cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}
}
