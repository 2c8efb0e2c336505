package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/simward_backend/internal/api/http/handler"
	"github.com/Alijeyrad/simward_backend/pkg/authorize"
)

func (r *Router) registerCatalogRoutes(
	api fiber.Router,
	rx *handler.PrescriptionHandler,
	inv *handler.InvestigationHandler,
	scoped orgChain,
	requirePerm permFunc,
) {
	drugs := api.Group("/drugs", scoped.auth, scoped.org, scoped.activity)
	drugs.Get("/", requirePerm(authorize.ResourceDrugCatalog, authorize.ActionRead), rx.Catalog)
	drugs.Post("/groups", requirePerm(authorize.ResourceDrugCatalog, authorize.ActionCreate), rx.CreateGroup)
	drugs.Patch("/groups/:id", requirePerm(authorize.ResourceDrugCatalog, authorize.ActionUpdate), rx.RenameGroup)
	drugs.Delete("/groups/:id", requirePerm(authorize.ResourceDrugCatalog, authorize.ActionDelete), rx.DeleteGroup)
	drugs.Post("/sub-groups", requirePerm(authorize.ResourceDrugCatalog, authorize.ActionCreate), rx.CreateSubGroup)
	drugs.Patch("/sub-groups/:id", requirePerm(authorize.ResourceDrugCatalog, authorize.ActionUpdate), rx.RenameSubGroup)
	drugs.Delete("/sub-groups/:id", requirePerm(authorize.ResourceDrugCatalog, authorize.ActionDelete), rx.DeleteSubGroup)
	drugs.Post("/types", requirePerm(authorize.ResourceDrugCatalog, authorize.ActionCreate), rx.CreateType)
	drugs.Put("/types/:id", requirePerm(authorize.ResourceDrugCatalog, authorize.ActionUpdate), rx.UpdateType)
	drugs.Delete("/types/:id", requirePerm(authorize.ResourceDrugCatalog, authorize.ActionDelete), rx.DeleteType)

	invs := api.Group("/investigations", scoped.auth, scoped.org, scoped.activity)
	invs.Get("/catalog", requirePerm(authorize.ResourceInvestigationCatalog, authorize.ActionRead), inv.Catalog)
	invs.Post("/categories", requirePerm(authorize.ResourceInvestigationCatalog, authorize.ActionCreate), inv.CreateCategory)
	invs.Patch("/categories/:id", requirePerm(authorize.ResourceInvestigationCatalog, authorize.ActionUpdate), inv.RenameCategory)
	invs.Delete("/categories/:id", requirePerm(authorize.ResourceInvestigationCatalog, authorize.ActionDelete), inv.DeleteCategory)
	invs.Post("/tests", requirePerm(authorize.ResourceInvestigationCatalog, authorize.ActionCreate), inv.CreateTest)
	invs.Delete("/tests/:id", requirePerm(authorize.ResourceInvestigationCatalog, authorize.ActionDelete), inv.DeleteTest)
	invs.Get("/tests/:id/parameters", requirePerm(authorize.ResourceInvestigationCatalog, authorize.ActionRead), inv.ListParameters)
	invs.Post("/tests/:id/parameters", requirePerm(authorize.ResourceInvestigationCatalog, authorize.ActionCreate), inv.AddParameter)
	invs.Delete("/tests/:id/parameters/:paramId", requirePerm(authorize.ResourceInvestigationCatalog, authorize.ActionDelete), inv.DeleteParameter)
}
