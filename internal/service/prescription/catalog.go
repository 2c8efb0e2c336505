package prescription

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

type GroupRequest struct {
	Name string `json:"name"`
	// Global puts the group in the shared catalogue. Superadmin only.
	Global bool `json:"global"`
}

type SubGroupRequest struct {
	GroupID uuid.UUID `json:"group_id"`
	Name    string    `json:"name"`
}

type TypeRequest struct {
	SubGroupID   uuid.UUID `json:"sub_group_id"`
	Name         string    `json:"name"`
	Form         string    `json:"form"`
	Strength     string    `json:"strength"`
	DefaultRoute string    `json:"default_route"`
	DefaultUnit  string    `json:"default_unit"`
}

type SubGroupNode struct {
	repo.DrugSubGroup
	Types []repo.DrugType `json:"types"`
}

type GroupNode struct {
	repo.DrugGroup
	Global    bool           `json:"global"`
	SubGroups []SubGroupNode `json:"sub_groups"`
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

// CatalogStore is satisfied by *repo.DrugRepo.
type CatalogStore interface {
	CreateGroup(ctx context.Context, g *repo.DrugGroup) error
	GetGroup(ctx context.Context, id uuid.UUID) (*repo.DrugGroup, error)
	RenameGroup(ctx context.Context, id uuid.UUID, name string) error
	DeleteGroup(ctx context.Context, id uuid.UUID) error
	CreateSubGroup(ctx context.Context, s *repo.DrugSubGroup) error
	GetSubGroup(ctx context.Context, id uuid.UUID) (*repo.DrugSubGroup, error)
	RenameSubGroup(ctx context.Context, id uuid.UUID, name string) error
	DeleteSubGroup(ctx context.Context, id uuid.UUID) error
	CreateType(ctx context.Context, t *repo.DrugType) error
	GetType(ctx context.Context, id uuid.UUID) (*repo.DrugType, error)
	UpdateType(ctx context.Context, t *repo.DrugType) error
	DeleteType(ctx context.Context, id uuid.UUID) error
	TypeOwner(ctx context.Context, typeID uuid.UUID) (*uuid.UUID, error)
	Catalog(ctx context.Context, orgID uuid.UUID) (*repo.DrugCatalog, error)
}

// CatalogService manages the drug group, sub-group and type hierarchy.
type CatalogService interface {
	Tree(ctx context.Context, scope *reqctx.Scope) ([]GroupNode, error)

	CreateGroup(ctx context.Context, scope *reqctx.Scope, req GroupRequest) (*repo.DrugGroup, error)
	RenameGroup(ctx context.Context, scope *reqctx.Scope, id uuid.UUID, name string) error
	DeleteGroup(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) error

	CreateSubGroup(ctx context.Context, scope *reqctx.Scope, req SubGroupRequest) (*repo.DrugSubGroup, error)
	RenameSubGroup(ctx context.Context, scope *reqctx.Scope, id uuid.UUID, name string) error
	DeleteSubGroup(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) error

	CreateType(ctx context.Context, scope *reqctx.Scope, req TypeRequest) (*repo.DrugType, error)
	UpdateType(ctx context.Context, scope *reqctx.Scope, id uuid.UUID, req TypeRequest) (*repo.DrugType, error)
	DeleteType(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) error
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

func (s *catalogService) Tree(ctx context.Context, scope *reqctx.Scope) ([]GroupNode, error) {
	c, err := s.store.Catalog(ctx, scope.OrgID)
	if err != nil {
		return nil, fmt.Errorf("load drug catalogue: %w", err)
	}
	return BuildTree(c), nil
}

// BuildTree nests a flat catalogue. Children keep the order they were
// loaded in.
func BuildTree(c *repo.DrugCatalog) []GroupNode {
	typesBySub := lo.GroupBy(c.Types, func(t repo.DrugType) uuid.UUID { return t.SubGroupID })
	subsByGroup := lo.GroupBy(c.SubGroups, func(s repo.DrugSubGroup) uuid.UUID { return s.GroupID })

	return lo.Map(c.Groups, func(g repo.DrugGroup, _ int) GroupNode {
		subs := lo.Map(subsByGroup[g.ID], func(sg repo.DrugSubGroup, _ int) SubGroupNode {
			return SubGroupNode{DrugSubGroup: sg, Types: lo.Ternary(typesBySub[sg.ID] == nil, []repo.DrugType{}, typesBySub[sg.ID])}
		})
		return GroupNode{DrugGroup: g, Global: g.OrganisationID == nil, SubGroups: subs}
	})
}

func (s *catalogService) CreateGroup(ctx context.Context, scope *reqctx.Scope, req GroupRequest) (*repo.DrugGroup, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	g := &repo.DrugGroup{Name: name}
	if req.Global {
		if !scope.IsSuperAdmin {
			return nil, ErrGlobalCatalogForbidden
		}
	} else {
		orgID := scope.OrgID
		g.OrganisationID = &orgID
	}
	if err := s.store.CreateGroup(ctx, g); err != nil {
		return nil, mapCatalogErr(err)
	}
	return g, nil
}

func (s *catalogService) RenameGroup(ctx context.Context, scope *reqctx.Scope, id uuid.UUID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	if _, err := s.writableGroup(ctx, scope, id); err != nil {
		return err
	}
	return mapCatalogErr(s.store.RenameGroup(ctx, id, name))
}

func (s *catalogService) DeleteGroup(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) error {
	if _, err := s.writableGroup(ctx, scope, id); err != nil {
		return err
	}
	return mapCatalogErr(s.store.DeleteGroup(ctx, id))
}

func (s *catalogService) CreateSubGroup(ctx context.Context, scope *reqctx.Scope, req SubGroupRequest) (*repo.DrugSubGroup, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if _, err := s.writableGroup(ctx, scope, req.GroupID); err != nil {
		return nil, err
	}
	sg := &repo.DrugSubGroup{GroupID: req.GroupID, Name: name}
	if err := s.store.CreateSubGroup(ctx, sg); err != nil {
		return nil, mapCatalogErr(err)
	}
	return sg, nil
}

func (s *catalogService) RenameSubGroup(ctx context.Context, scope *reqctx.Scope, id uuid.UUID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	if _, err := s.writableSubGroup(ctx, scope, id); err != nil {
		return err
	}
	return mapCatalogErr(s.store.RenameSubGroup(ctx, id, name))
}

func (s *catalogService) DeleteSubGroup(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) error {
	if _, err := s.writableSubGroup(ctx, scope, id); err != nil {
		return err
	}
	return mapCatalogErr(s.store.DeleteSubGroup(ctx, id))
}

func (s *catalogService) CreateType(ctx context.Context, scope *reqctx.Scope, req TypeRequest) (*repo.DrugType, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if _, err := s.writableSubGroup(ctx, scope, req.SubGroupID); err != nil {
		return nil, err
	}
	t := &repo.DrugType{
		SubGroupID:   req.SubGroupID,
		Name:         name,
		Form:         strings.TrimSpace(req.Form),
		Strength:     strings.TrimSpace(req.Strength),
		DefaultRoute: strings.TrimSpace(req.DefaultRoute),
		DefaultUnit:  strings.TrimSpace(req.DefaultUnit),
	}
	if err := s.store.CreateType(ctx, t); err != nil {
		return nil, mapCatalogErr(err)
	}
	return t, nil
}

func (s *catalogService) UpdateType(ctx context.Context, scope *reqctx.Scope, id uuid.UUID, req TypeRequest) (*repo.DrugType, error) {
	if err := s.writableType(ctx, scope, id); err != nil {
		return nil, err
	}
	t, err := s.store.GetType(ctx, id)
	if err != nil {
		return nil, mapCatalogErr(err)
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		t.Name = name
	}
	t.Form = strings.TrimSpace(req.Form)
	t.Strength = strings.TrimSpace(req.Strength)
	t.DefaultRoute = strings.TrimSpace(req.DefaultRoute)
	t.DefaultUnit = strings.TrimSpace(req.DefaultUnit)
	if err := s.store.UpdateType(ctx, t); err != nil {
		return nil, mapCatalogErr(err)
	}
	return t, nil
}

func (s *catalogService) DeleteType(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) error {
	if err := s.writableType(ctx, scope, id); err != nil {
		return err
	}
	return mapCatalogErr(s.store.DeleteType(ctx, id))
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *catalogService) writableGroup(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) (*repo.DrugGroup, error) {
	g, err := s.store.GetGroup(ctx, id)
	if err != nil {
		return nil, mapCatalogErr(err)
	}
	if err := checkWritable(scope, g.OrganisationID); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *catalogService) writableSubGroup(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) (*repo.DrugSubGroup, error) {
	sg, err := s.store.GetSubGroup(ctx, id)
	if err != nil {
		return nil, mapCatalogErr(err)
	}
	if _, err := s.writableGroup(ctx, scope, sg.GroupID); err != nil {
		return nil, err
	}
	return sg, nil
}

func (s *catalogService) writableType(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) error {
	owner, err := s.store.TypeOwner(ctx, id)
	if err != nil {
		return mapCatalogErr(err)
	}
	return checkWritable(scope, owner)
}

// checkWritable: global entries belong to superadmins, org entries to their
// organisation. Other organisations' entries are reported as missing.
func checkWritable(scope *reqctx.Scope, owner *uuid.UUID) error {
	if owner == nil {
		if !scope.IsSuperAdmin {
			return ErrGlobalCatalogForbidden
		}
		return nil
	}
	if *owner != scope.OrgID {
		return ErrDrugNotFound
	}
	return nil
}

// visible reports whether an organisation may prescribe from owner's entries.
func visible(orgID uuid.UUID, owner *uuid.UUID) bool {
	return owner == nil || *owner == orgID
}

func mapCatalogErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrNotFound):
		return ErrDrugNotFound
	case errors.Is(err, repo.ErrInUse):
		return ErrCatalogEntryInUse
	case errors.Is(err, repo.ErrConflict):
		return ErrCatalogEntryExists
	}
	return err
}
