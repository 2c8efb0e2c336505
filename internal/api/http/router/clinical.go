package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/simward_backend/internal/api/http/handler"
	"github.com/Alijeyrad/simward_backend/pkg/authorize"
)

// registerClinicalRoutes mounts the per-patient chart on the patient group p,
// which already carries the organisation chain.
func (r *Router) registerClinicalRoutes(
	api fiber.Router,
	p fiber.Router,
	obs *handler.ObservationHandler,
	fluid *handler.FluidBalanceHandler,
	rx *handler.PrescriptionHandler,
	inv *handler.InvestigationHandler,
	scoped orgChain,
	requirePerm permFunc,
) {
	// Stateless scoring preview
	api.Post("/ews/calculate", scoped.auth, scoped.org,
		requirePerm(authorize.ResourceObservation, authorize.ActionRead), obs.Calculate)

	// Observations
	p.Get("/observations", requirePerm(authorize.ResourceObservation, authorize.ActionList), obs.List)
	p.Post("/observations", requirePerm(authorize.ResourceObservation, authorize.ActionCreate), obs.Record)
	p.Get("/observations/latest", requirePerm(authorize.ResourceObservation, authorize.ActionRead), obs.Latest)
	p.Get("/observations/trend", requirePerm(authorize.ResourceObservation, authorize.ActionRead), obs.Trend)
	p.Get("/observations/:oid", requirePerm(authorize.ResourceObservation, authorize.ActionRead), obs.Get)
	p.Delete("/observations/:oid", requirePerm(authorize.ResourceObservation, authorize.ActionDelete), obs.Delete)

	// Fluid balance
	p.Get("/fluid-balance", requirePerm(authorize.ResourceFluidBalance, authorize.ActionList), fluid.List)
	p.Post("/fluid-balance", requirePerm(authorize.ResourceFluidBalance, authorize.ActionCreate), fluid.Create)
	p.Get("/fluid-balance/summary", requirePerm(authorize.ResourceFluidBalance, authorize.ActionRead), fluid.Summary)
	p.Delete("/fluid-balance/:eid", requirePerm(authorize.ResourceFluidBalance, authorize.ActionDelete), fluid.Delete)

	// Prescriptions
	p.Get("/prescriptions", requirePerm(authorize.ResourcePrescription, authorize.ActionList), rx.List)
	p.Post("/prescriptions", requirePerm(authorize.ResourcePrescription, authorize.ActionCreate), rx.Create)
	p.Get("/prescriptions/:rxid", requirePerm(authorize.ResourcePrescription, authorize.ActionRead), rx.Get)
	p.Patch("/prescriptions/:rxid", requirePerm(authorize.ResourcePrescription, authorize.ActionUpdate), rx.Update)
	p.Put("/prescriptions/:rxid/status", requirePerm(authorize.ResourcePrescription, authorize.ActionUpdate), rx.ChangeStatus)
	p.Delete("/prescriptions/:rxid", requirePerm(authorize.ResourcePrescription, authorize.ActionDelete), rx.Delete)
	p.Get("/prescriptions/:rxid/administrations", requirePerm(authorize.ResourcePrescription, authorize.ActionRead), rx.Administrations)
	p.Post("/prescriptions/:rxid/administrations", requirePerm(authorize.ResourcePrescription, authorize.ActionExecute), rx.Administer)

	// Investigations
	p.Get("/investigations", requirePerm(authorize.ResourceInvestigation, authorize.ActionList), inv.ListRequests)
	p.Post("/investigations", requirePerm(authorize.ResourceInvestigation, authorize.ActionCreate), inv.Request)
	p.Get("/investigations/:rid", requirePerm(authorize.ResourceInvestigation, authorize.ActionRead), inv.GetRequest)
	p.Put("/investigations/:rid/status", requirePerm(authorize.ResourceInvestigation, authorize.ActionUpdate), inv.ChangeStatus)
	p.Post("/investigations/:rid/report", requirePerm(authorize.ResourceReport, authorize.ActionCreate), inv.Report)

	// Reports
	p.Get("/reports", requirePerm(authorize.ResourceReport, authorize.ActionList), inv.ListReports)
	p.Get("/reports/:rid", requirePerm(authorize.ResourceReport, authorize.ActionRead), inv.GetReport)
	p.Get("/reports/:rid/pdf", requirePerm(authorize.ResourceReport, authorize.ActionRead), inv.ExportReport)
}
