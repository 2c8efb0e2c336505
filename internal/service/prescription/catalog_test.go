package prescription

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/simward_backend/internal/repo"
	"github.com/Alijeyrad/simward_backend/pkg/reqctx"
)

type fakeCatalog struct {
	groups map[uuid.UUID]*repo.DrugGroup
	subs   map[uuid.UUID]*repo.DrugSubGroup
	types  map[uuid.UUID]*repo.DrugType
	order  []uuid.UUID
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		groups: map[uuid.UUID]*repo.DrugGroup{},
		subs:   map[uuid.UUID]*repo.DrugSubGroup{},
		types:  map[uuid.UUID]*repo.DrugType{},
	}
}

func (f *fakeCatalog) CreateGroup(_ context.Context, g *repo.DrugGroup) error {
	for _, o := range f.groups {
		if o.Name == g.Name && ownerEq(o.OrganisationID, g.OrganisationID) {
			return repo.ErrConflict
		}
	}
	g.ID = uuid.New()
	c := *g
	f.groups[g.ID] = &c
	f.order = append(f.order, g.ID)
	return nil
}

func (f *fakeCatalog) GetGroup(_ context.Context, id uuid.UUID) (*repo.DrugGroup, error) {
	g, ok := f.groups[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	c := *g
	return &c, nil
}

func (f *fakeCatalog) RenameGroup(_ context.Context, id uuid.UUID, name string) error {
	g, ok := f.groups[id]
	if !ok {
		return repo.ErrNotFound
	}
	g.Name = name
	return nil
}

func (f *fakeCatalog) DeleteGroup(_ context.Context, id uuid.UUID) error {
	if _, ok := f.groups[id]; !ok {
		return repo.ErrNotFound
	}
	for _, s := range f.subs {
		if s.GroupID == id {
			return repo.ErrInUse
		}
	}
	delete(f.groups, id)
	return nil
}

func (f *fakeCatalog) CreateSubGroup(_ context.Context, s *repo.DrugSubGroup) error {
	s.ID = uuid.New()
	c := *s
	f.subs[s.ID] = &c
	f.order = append(f.order, s.ID)
	return nil
}

func (f *fakeCatalog) GetSubGroup(_ context.Context, id uuid.UUID) (*repo.DrugSubGroup, error) {
	s, ok := f.subs[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	c := *s
	return &c, nil
}

func (f *fakeCatalog) RenameSubGroup(_ context.Context, id uuid.UUID, name string) error {
	s, ok := f.subs[id]
	if !ok {
		return repo.ErrNotFound
	}
	s.Name = name
	return nil
}

func (f *fakeCatalog) DeleteSubGroup(_ context.Context, id uuid.UUID) error {
	if _, ok := f.subs[id]; !ok {
		return repo.ErrNotFound
	}
	for _, t := range f.types {
		if t.SubGroupID == id {
			return repo.ErrInUse
		}
	}
	delete(f.subs, id)
	return nil
}

func (f *fakeCatalog) CreateType(_ context.Context, t *repo.DrugType) error {
	t.ID = uuid.New()
	c := *t
	f.types[t.ID] = &c
	f.order = append(f.order, t.ID)
	return nil
}

func (f *fakeCatalog) GetType(_ context.Context, id uuid.UUID) (*repo.DrugType, error) {
	t, ok := f.types[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (f *fakeCatalog) UpdateType(_ context.Context, t *repo.DrugType) error {
	if _, ok := f.types[t.ID]; !ok {
		return repo.ErrNotFound
	}
	c := *t
	f.types[t.ID] = &c
	return nil
}

func (f *fakeCatalog) DeleteType(_ context.Context, id uuid.UUID) error {
	if _, ok := f.types[id]; !ok {
		return repo.ErrNotFound
	}
	delete(f.types, id)
	return nil
}

func (f *fakeCatalog) TypeOwner(_ context.Context, typeID uuid.UUID) (*uuid.UUID, error) {
	t, ok := f.types[typeID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return f.groups[f.subs[t.SubGroupID].GroupID].OrganisationID, nil
}

func (f *fakeCatalog) Catalog(_ context.Context, orgID uuid.UUID) (*repo.DrugCatalog, error) {
	c := &repo.DrugCatalog{}
	visibleGroup := func(id uuid.UUID) bool {
		g, ok := f.groups[id]
		return ok && visible(orgID, g.OrganisationID)
	}
	for _, id := range f.order {
		if g, ok := f.groups[id]; ok && visible(orgID, g.OrganisationID) {
			c.Groups = append(c.Groups, *g)
		}
		if s, ok := f.subs[id]; ok && visibleGroup(s.GroupID) {
			c.SubGroups = append(c.SubGroups, *s)
		}
		if t, ok := f.types[id]; ok {
			if s, ok := f.subs[t.SubGroupID]; ok && visibleGroup(s.GroupID) {
				c.Types = append(c.Types, *t)
			}
		}
	}
	return c, nil
}

func ownerEq(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// seedCatalog builds one global and one organisation-owned branch.
func seedCatalog(t *testing.T, svc CatalogService, org, admin *reqctx.Scope) (global, local *repo.DrugType) {
	t.Helper()
	ctx := context.Background()

	g, err := svc.CreateGroup(ctx, admin, GroupRequest{Name: "Analgesics", Global: true})
	require.NoError(t, err)
	sg, err := svc.CreateSubGroup(ctx, admin, SubGroupRequest{GroupID: g.ID, Name: "Non-opioid"})
	require.NoError(t, err)
	global, err = svc.CreateType(ctx, admin, TypeRequest{
		SubGroupID: sg.ID, Name: "Paracetamol", Form: "tablet", Strength: "500mg",
		DefaultRoute: "PO", DefaultUnit: "mg",
	})
	require.NoError(t, err)

	lg, err := svc.CreateGroup(ctx, org, GroupRequest{Name: "Ward stock"})
	require.NoError(t, err)
	lsg, err := svc.CreateSubGroup(ctx, org, SubGroupRequest{GroupID: lg.ID, Name: "Fluids"})
	require.NoError(t, err)
	local, err = svc.CreateType(ctx, org, TypeRequest{SubGroupID: lsg.ID, Name: "Hartmann's", DefaultRoute: "IV", DefaultUnit: "ml"})
	require.NoError(t, err)
	return global, local
}

func TestCatalogTreeIsScopedToOrganisation(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalog(newFakeCatalog())
	org := &reqctx.Scope{UserID: uuid.New(), OrgID: uuid.New()}
	admin := &reqctx.Scope{UserID: uuid.New(), IsSuperAdmin: true}
	seedCatalog(t, svc, org, admin)

	tree, err := svc.Tree(ctx, org)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.True(t, tree[0].Global)
	assert.Equal(t, "Paracetamol", tree[0].SubGroups[0].Types[0].Name)
	assert.False(t, tree[1].Global)
	assert.Equal(t, "Hartmann's", tree[1].SubGroups[0].Types[0].Name)

	other := &reqctx.Scope{UserID: uuid.New(), OrgID: uuid.New()}
	tree, err = svc.Tree(ctx, other)
	require.NoError(t, err)
	require.Len(t, tree, 1, "other organisations only see the global catalogue")
	assert.Equal(t, "Analgesics", tree[0].Name)
}

func TestBuildTreeEmptySubGroupHasNoNilTypes(t *testing.T) {
	g := repo.DrugGroup{ID: uuid.New(), Name: "Empty"}
	tree := BuildTree(&repo.DrugCatalog{
		Groups:    []repo.DrugGroup{g},
		SubGroups: []repo.DrugSubGroup{{ID: uuid.New(), GroupID: g.ID, Name: "Nothing yet"}},
	})
	require.Len(t, tree, 1)
	require.Len(t, tree[0].SubGroups, 1)
	assert.NotNil(t, tree[0].SubGroups[0].Types)
}

func TestCatalogWriteRules(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalog(newFakeCatalog())
	org := &reqctx.Scope{UserID: uuid.New(), OrgID: uuid.New()}
	admin := &reqctx.Scope{UserID: uuid.New(), IsSuperAdmin: true}
	global, local := seedCatalog(t, svc, org, admin)

	_, err := svc.CreateGroup(ctx, org, GroupRequest{Name: "Shared", Global: true})
	assert.ErrorIs(t, err, ErrGlobalCatalogForbidden)

	_, err = svc.CreateGroup(ctx, org, GroupRequest{Name: "  "})
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = svc.CreateGroup(ctx, org, GroupRequest{Name: "Ward stock"})
	assert.ErrorIs(t, err, ErrCatalogEntryExists)

	assert.ErrorIs(t, svc.DeleteType(ctx, org, global.ID), ErrGlobalCatalogForbidden)

	other := &reqctx.Scope{UserID: uuid.New(), OrgID: uuid.New()}
	assert.ErrorIs(t, svc.DeleteType(ctx, other, local.ID), ErrDrugNotFound)

	updated, err := svc.UpdateType(ctx, org, local.ID, TypeRequest{Name: "Compound sodium lactate", DefaultRoute: "IV", DefaultUnit: "ml"})
	require.NoError(t, err)
	assert.Equal(t, "Compound sodium lactate", updated.Name)
}

func TestCatalogDeleteInUse(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalog(newFakeCatalog())
	org := &reqctx.Scope{UserID: uuid.New(), OrgID: uuid.New()}

	g, err := svc.CreateGroup(ctx, org, GroupRequest{Name: "Antibiotics"})
	require.NoError(t, err)
	sg, err := svc.CreateSubGroup(ctx, org, SubGroupRequest{GroupID: g.ID, Name: "Penicillins"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteGroup(ctx, org, g.ID), ErrCatalogEntryInUse)
	require.NoError(t, svc.DeleteSubGroup(ctx, org, sg.ID))
	require.NoError(t, svc.DeleteGroup(ctx, org, g.ID))
	assert.ErrorIs(t, svc.RenameGroup(ctx, org, g.ID, "Gone"), ErrDrugNotFound)
}
