package investigation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/Alijeyrad/simward_backend/internal/repo"
	"github.com/Alijeyrad/simward_backend/pkg/reqctx"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type CategoryRequest struct {
	Name     string     `json:"name"`
	ParentID *uuid.UUID `json:"parent_id"`
	Global   bool       `json:"global"`
}

type TestRequest struct {
	CategoryID uuid.UUID `json:"category_id"`
	Name       string    `json:"name"`
	Specimen   string    `json:"specimen"`
}

type ParameterRequest struct {
	Name      string   `json:"name"`
	Unit      string   `json:"unit"`
	NormalMin *float64 `json:"normal_min"`
	NormalMax *float64 `json:"normal_max"`
	SortOrder int      `json:"sort_order"`
}

type TestNode struct {
	repo.InvestigationTest
	Parameters []repo.InvestigationParameter `json:"parameters"`
}

type CategoryNode struct {
	repo.InvestigationCategory
	Global        bool           `json:"global"`
	SubCategories []CategoryNode `json:"sub_categories"`
	Tests         []TestNode     `json:"tests"`
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

// CatalogStore is satisfied by *repo.InvestigationRepo.
type CatalogStore interface {
	CreateCategory(ctx context.Context, c *repo.InvestigationCategory) error
	GetCategory(ctx context.Context, id uuid.UUID) (*repo.InvestigationCategory, error)
	RenameCategory(ctx context.Context, id uuid.UUID, name string) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	CreateTest(ctx context.Context, t *repo.InvestigationTest) error
	GetTest(ctx context.Context, id uuid.UUID) (*repo.InvestigationTest, error)
	DeleteTest(ctx context.Context, id uuid.UUID) error
	TestOwner(ctx context.Context, testID uuid.UUID) (*uuid.UUID, error)
	CreateParameter(ctx context.Context, p *repo.InvestigationParameter) error
	ListParameters(ctx context.Context, testID uuid.UUID) ([]repo.InvestigationParameter, error)
	DeleteParameter(ctx context.Context, testID, id uuid.UUID) error
	Catalog(ctx context.Context, orgID uuid.UUID) (*repo.InvestigationCatalog, error)
}

// CatalogService manages categories, tests and their parameters.
type CatalogService interface {
	Tree(ctx context.Context, scope *reqctx.Scope) ([]CategoryNode, error)

	CreateCategory(ctx context.Context, scope *reqctx.Scope, req CategoryRequest) (*repo.InvestigationCategory, error)
	RenameCategory(ctx context.Context, scope *reqctx.Scope, id uuid.UUID, name string) error
	DeleteCategory(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) error

	CreateTest(ctx context.Context, scope *reqctx.Scope, req TestRequest) (*repo.InvestigationTest, error)
	DeleteTest(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) error

	AddParameter(ctx context.Context, scope *reqctx.Scope, testID uuid.UUID, req ParameterRequest) (*repo.InvestigationParameter, error)
	ListParameters(ctx context.Context, scope *reqctx.Scope, testID uuid.UUID) ([]repo.InvestigationParameter, error)
	DeleteParameter(ctx context.Context, scope *reqctx.Scope, testID, id uuid.UUID) error
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type catalogService struct {
	store CatalogStore
}

func NewCatalog(store CatalogStore) CatalogService {
	return &catalogService{store: store}
}

func (s *catalogService) Tree(ctx context.Context, scope *reqctx.Scope) ([]CategoryNode, error) {
	c, err := s.store.Catalog(ctx, scope.OrgID)
	if err != nil {
		return nil, fmt.Errorf("load investigation catalogue: %w", err)
	}
	return BuildTree(c), nil
}

// BuildTree nests categories, sub-categories, tests and parameters. The
// resulting tree feeds the cascading selection in the request form.
func BuildTree(c *repo.InvestigationCatalog) []CategoryNode {
	paramsByTest := lo.GroupBy(c.Parameters, func(p repo.InvestigationParameter) uuid.UUID { return p.TestID })
	testsByCat := lo.GroupBy(c.Tests, func(t repo.InvestigationTest) uuid.UUID { return t.CategoryID })
	children := lo.GroupBy(
		lo.Filter(c.Categories, func(cat repo.InvestigationCategory, _ int) bool { return cat.ParentID != nil }),
		func(cat repo.InvestigationCategory) uuid.UUID { return *cat.ParentID },
	)

	var node func(cat repo.InvestigationCategory) CategoryNode
	node = func(cat repo.InvestigationCategory) CategoryNode {
		return CategoryNode{
			InvestigationCategory: cat,
			Global:                cat.OrganisationID == nil,
			SubCategories:         lo.Map(children[cat.ID], func(ch repo.InvestigationCategory, _ int) CategoryNode { return node(ch) }),
			Tests: lo.Map(testsByCat[cat.ID], func(t repo.InvestigationTest, _ int) TestNode {
				return TestNode{InvestigationTest: t, Parameters: lo.Ternary(paramsByTest[t.ID] == nil, []repo.InvestigationParameter{}, paramsByTest[t.ID])}
			}),
		}
	}

	roots := lo.Filter(c.Categories, func(cat repo.InvestigationCategory, _ int) bool { return cat.ParentID == nil })
	return lo.Map(roots, func(cat repo.InvestigationCategory, _ int) CategoryNode { return node(cat) })
}

func (s *catalogService) CreateCategory(ctx context.Context, scope *reqctx.Scope, req CategoryRequest) (*repo.InvestigationCategory, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	c := &repo.InvestigationCategory{Name: name}

	if req.ParentID != nil {
		parent, err := s.writableCategory(ctx, scope, *req.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.ParentID != nil {
			return nil, ErrNestingTooDeep
		}
		// Sub-categories inherit the parent's owner.
		c.ParentID = &parent.ID
		c.OrganisationID = parent.OrganisationID
	} else if req.Global {
		if !scope.IsSuperAdmin {
			return nil, ErrGlobalCatalogForbidden
		}
	} else {
		orgID := scope.OrgID
		c.OrganisationID = &orgID
	}

	if err := s.store.CreateCategory(ctx, c); err != nil {
		return nil, mapCatalogErr(err)
	}
	return c, nil
}

func (s *catalogService) RenameCategory(ctx context.Context, scope *reqctx.Scope, id uuid.UUID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	if _, err := s.writableCategory(ctx, scope, id); err != nil {
		return err
	}
	return mapCatalogErr(s.store.RenameCategory(ctx, id, name))
}

func (s *catalogService) DeleteCategory(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) error {
	if _, err := s.writableCategory(ctx, scope, id); err != nil {
		return err
	}
	return mapCatalogErr(s.store.DeleteCategory(ctx, id))
}

func (s *catalogService) CreateTest(ctx context.Context, scope *reqctx.Scope, req TestRequest) (*repo.InvestigationTest, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if _, err := s.writableCategory(ctx, scope, req.CategoryID); err != nil {
		return nil, err
	}
	t := &repo.InvestigationTest{CategoryID: req.CategoryID, Name: name, Specimen: strings.TrimSpace(req.Specimen)}
	if err := s.store.CreateTest(ctx, t); err != nil {
		return nil, mapCatalogErr(err)
	}
	return t, nil
}

func (s *catalogService) DeleteTest(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) error {
	if err := s.writableTest(ctx, scope, id); err != nil {
		return err
	}
	err := s.store.DeleteTest(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrTestNotFound
	}
	return mapCatalogErr(err)
}

func (s *catalogService) AddParameter(ctx context.Context, scope *reqctx.Scope, testID uuid.UUID, req ParameterRequest) (*repo.InvestigationParameter, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if req.NormalMin != nil && req.NormalMax != nil && *req.NormalMin > *req.NormalMax {
		return nil, ErrInvalidRange
	}
	if err := s.writableTest(ctx, scope, testID); err != nil {
		return nil, err
	}
	p := &repo.InvestigationParameter{
		TestID:    testID,
		Name:      name,
		Unit:      strings.TrimSpace(req.Unit),
		NormalMin: req.NormalMin,
		NormalMax: req.NormalMax,
		SortOrder: req.SortOrder,
	}
	if err := s.store.CreateParameter(ctx, p); err != nil {
		return nil, mapCatalogErr(err)
	}
	return p, nil
}

func (s *catalogService) ListParameters(ctx context.Context, scope *reqctx.Scope, testID uuid.UUID) ([]repo.InvestigationParameter, error) {
	owner, err := s.store.TestOwner(ctx, testID)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && !visible(scope.OrgID, owner)) {
		return nil, ErrTestNotFound
	}
	if err != nil {
		return nil, err
	}
	out, err := s.store.ListParameters(ctx, testID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []repo.InvestigationParameter{}
	}
	return out, nil
}

func (s *catalogService) DeleteParameter(ctx context.Context, scope *reqctx.Scope, testID, id uuid.UUID) error {
	if err := s.writableTest(ctx, scope, testID); err != nil {
		return err
	}
	err := s.store.DeleteParameter(ctx, testID, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrParameterNotFound
	}
	return mapCatalogErr(err)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *catalogService) writableCategory(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) (*repo.InvestigationCategory, error) {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return nil, mapCatalogErr(err)
	}
	if err := checkWritable(scope, c.OrganisationID); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *catalogService) writableTest(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) error {
	owner, err := s.store.TestOwner(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrTestNotFound
	}
	if err != nil {
		return err
	}
	if err := checkWritable(scope, owner); errors.Is(err, ErrCategoryNotFound) {
		return ErrTestNotFound
	} else if err != nil {
		return err
	}
	return nil
}

func checkWritable(scope *reqctx.Scope, owner *uuid.UUID) error {
	if owner == nil {
		if !scope.IsSuperAdmin {
			return ErrGlobalCatalogForbidden
		}
		return nil
	}
	if *owner != scope.OrgID {
		return ErrCategoryNotFound
	}
	return nil
}

func visible(orgID uuid.UUID, owner *uuid.UUID) bool {
	return owner == nil || *owner == orgID
}

func mapCatalogErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrNotFound):
		return ErrCategoryNotFound
	case errors.Is(err, repo.ErrInUse):
		return ErrCatalogEntryInUse
	case errors.Is(err, repo.ErrConflict):
		return ErrCatalogEntryExists
	}
	return err
}
