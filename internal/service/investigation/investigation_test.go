package investigation

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/simward_backend/internal/events"
	"github.com/Alijeyrad/simward_backend/internal/repo"
	"github.com/Alijeyrad/simward_backend/internal/service/patient"
	"github.com/Alijeyrad/simward_backend/pkg/reqctx"
)

type fakeStore struct {
	categories []repo.InvestigationCategory
	tests      []repo.InvestigationTest
	params     []repo.InvestigationParameter
	requests   map[uuid.UUID]*repo.RequestedInvestigation
	reports    map[uuid.UUID]*repo.InvestigationReport
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		requests: map[uuid.UUID]*repo.RequestedInvestigation{},
		reports:  map[uuid.UUID]*repo.InvestigationReport{},
	}
}

func (f *fakeStore) CreateCategory(_ context.Context, c *repo.InvestigationCategory) error {
	c.ID = uuid.New()
	f.categories = append(f.categories, *c)
	return nil
}

func (f *fakeStore) GetCategory(_ context.Context, id uuid.UUID) (*repo.InvestigationCategory, error) {
	for _, c := range f.categories {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeStore) RenameCategory(_ context.Context, id uuid.UUID, name string) error {
	for i := range f.categories {
		if f.categories[i].ID == id {
			f.categories[i].Name = name
			return nil
		}
	}
	return repo.ErrNotFound
}

func (f *fakeStore) DeleteCategory(_ context.Context, id uuid.UUID) error {
	for _, t := range f.tests {
		if t.CategoryID == id {
			return repo.ErrInUse
		}
	}
	for i, c := range f.categories {
		if c.ID == id {
			f.categories = append(f.categories[:i], f.categories[i+1:]...)
			return nil
		}
	}
	return repo.ErrNotFound
}

func (f *fakeStore) CreateTest(_ context.Context, t *repo.InvestigationTest) error {
	t.ID = uuid.New()
	f.tests = append(f.tests, *t)
	return nil
}

func (f *fakeStore) GetTest(_ context.Context, id uuid.UUID) (*repo.InvestigationTest, error) {
	for _, t := range f.tests {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeStore) DeleteTest(_ context.Context, id uuid.UUID) error {
	for i, t := range f.tests {
		if t.ID == id {
			f.tests = append(f.tests[:i], f.tests[i+1:]...)
			return nil
		}
	}
	return repo.ErrNotFound
}

func (f *fakeStore) TestOwner(ctx context.Context, testID uuid.UUID) (*uuid.UUID, error) {
	t, err := f.GetTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	c, err := f.GetCategory(ctx, t.CategoryID)
	if err != nil {
		return nil, err
	}
	return c.OrganisationID, nil
}

func (f *fakeStore) CreateParameter(_ context.Context, p *repo.InvestigationParameter) error {
	p.ID = uuid.New()
	f.params = append(f.params, *p)
	return nil
}

func (f *fakeStore) ListParameters(_ context.Context, testID uuid.UUID) ([]repo.InvestigationParameter, error) {
	var out []repo.InvestigationParameter
	for _, p := range f.params {
		if p.TestID == testID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteParameter(_ context.Context, testID, id uuid.UUID) error {
	for i, p := range f.params {
		if p.ID == id && p.TestID == testID {
			f.params = append(f.params[:i], f.params[i+1:]...)
			return nil
		}
	}
	return repo.ErrNotFound
}

func (f *fakeStore) Catalog(_ context.Context, orgID uuid.UUID) (*repo.InvestigationCatalog, error) {
	c := &repo.InvestigationCatalog{}
	seen := map[uuid.UUID]bool{}
	for _, cat := range f.categories {
		if visible(orgID, cat.OrganisationID) {
			c.Categories = append(c.Categories, cat)
			seen[cat.ID] = true
		}
	}
	tests := map[uuid.UUID]bool{}
	for _, t := range f.tests {
		if seen[t.CategoryID] {
			c.Tests = append(c.Tests, t)
			tests[t.ID] = true
		}
	}
	for _, p := range f.params {
		if tests[p.TestID] {
			c.Parameters = append(c.Parameters, p)
		}
	}
	return c, nil
}

func (f *fakeStore) CreateRequests(_ context.Context, reqs []repo.RequestedInvestigation) error {
	for i := range reqs {
		reqs[i].ID = uuid.New()
		c := reqs[i]
		f.requests[c.ID] = &c
	}
	return nil
}

func (f *fakeStore) GetRequest(_ context.Context, patientID, id uuid.UUID) (*repo.RequestedInvestigation, error) {
	r, ok := f.requests[id]
	if !ok || r.PatientID != patientID {
		return nil, repo.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (f *fakeStore) ListRequests(_ context.Context, patientID uuid.UUID, status string, _ repo.Page) ([]repo.RequestedInvestigation, int, error) {
	var out []repo.RequestedInvestigation
	for _, r := range f.requests {
		if r.PatientID == patientID && (status == "" || r.Status == status) {
			out = append(out, *r)
		}
	}
	return out, len(out), nil
}

func (f *fakeStore) SetRequestStatus(_ context.Context, id uuid.UUID, from, to string) error {
	r, ok := f.requests[id]
	if !ok || r.Status != from {
		return repo.ErrNotFound
	}
	r.Status = to
	return nil
}

func (f *fakeStore) CreateReport(ctx context.Context, rep *repo.InvestigationReport, fromStatus string) error {
	if err := f.SetRequestStatus(ctx, rep.RequestedInvestigationID, fromStatus, repo.InvestigationReported); err != nil {
		return err
	}
	rep.ID = uuid.New()
	c := *rep
	f.reports[rep.ID] = &c
	return nil
}

func (f *fakeStore) GetReport(_ context.Context, patientID, id uuid.UUID) (*repo.InvestigationReport, error) {
	r, ok := f.reports[id]
	if !ok || r.PatientID != patientID {
		return nil, repo.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (f *fakeStore) ListReports(_ context.Context, patientID uuid.UUID, _ repo.Page) ([]repo.InvestigationReport, int, error) {
	var out []repo.InvestigationReport
	for _, r := range f.reports {
		if r.PatientID == patientID {
			out = append(out, *r)
		}
	}
	return out, len(out), nil
}

type fakePatients map[uuid.UUID]*repo.Patient

func (f fakePatients) Get(_ context.Context, scope *reqctx.Scope, id uuid.UUID) (*repo.Patient, error) {
	p, ok := f[id]
	if !ok || p.OrganisationID != scope.OrgID {
		return nil, patient.ErrPatientNotFound
	}
	return p, nil
}

type fakeUsers map[uuid.UUID]*repo.User

func (f fakeUsers) Get(_ context.Context, id uuid.UUID) (*repo.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, repo.ErrNotFound
}

type fakeOrgs map[uuid.UUID]*repo.Organisation

func (f fakeOrgs) Get(_ context.Context, id uuid.UUID) (*repo.Organisation, error) {
	if o, ok := f[id]; ok {
		return o, nil
	}
	return nil, repo.ErrNotFound
}

func ptr[T any](v T) *T { return &v }

type fixture struct {
	svc       Service
	catalog   CatalogService
	store     *fakeStore
	pub       *events.Recorder
	scope     *reqctx.Scope
	patientID uuid.UUID
	fbc       *repo.InvestigationTest
	hb, crp   *repo.InvestigationParameter
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := newFakeStore()
	catalog := NewCatalog(store)
	scope := &reqctx.Scope{UserID: uuid.New(), OrgID: uuid.New()}
	admin := &reqctx.Scope{UserID: uuid.New(), IsSuperAdmin: true}

	haem, err := catalog.CreateCategory(ctx, admin, CategoryRequest{Name: "Haematology", Global: true})
	require.NoError(t, err)
	fbc, err := catalog.CreateTest(ctx, admin, TestRequest{CategoryID: haem.ID, Name: "Full Blood Count", Specimen: "EDTA"})
	require.NoError(t, err)
	hb, err := catalog.AddParameter(ctx, admin, fbc.ID, ParameterRequest{Name: "Haemoglobin", Unit: "g/L", NormalMin: ptr(115.0), NormalMax: ptr(165.0)})
	require.NoError(t, err)
	crp, err := catalog.AddParameter(ctx, admin, fbc.ID, ParameterRequest{Name: "Film comment", SortOrder: 1})
	require.NoError(t, err)

	patientID := uuid.New()
	pub := &events.Recorder{}
	svc := New(store,
		fakePatients{patientID: {ID: patientID, OrganisationID: scope.OrgID, FirstName: "Jane", LastName: "Doe", HospitalNumber: "H123"}},
		fakeUsers{scope.UserID: {ID: scope.UserID, FirstName: "Sam", LastName: "Reid"}},
		fakeOrgs{scope.OrgID: {ID: scope.OrgID, Name: "Northgate"}},
		pub)
	return &fixture{svc: svc, catalog: catalog, store: store, pub: pub, scope: scope, patientID: patientID, fbc: fbc, hb: hb, crp: crp}
}

func TestFlag(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		min, max *float64
		want     string
	}{
		{"below range", "98", ptr(115.0), ptr(165.0), FlagLow},
		{"inside range", "130", ptr(115.0), ptr(165.0), FlagNormal},
		{"on the bound", "165", ptr(115.0), ptr(165.0), FlagNormal},
		{"above range", "170.5", ptr(115.0), ptr(165.0), FlagHigh},
		{"upper bound only", "12", nil, ptr(5.0), FlagHigh},
		{"non-numeric", "haemolysed", ptr(115.0), ptr(165.0), FlagUnknown},
		{"no range", "7", nil, nil, FlagUnknown},
		{"not a number", "NaN", ptr(115.0), ptr(165.0), FlagUnknown},
		{"positive infinity", "Inf", ptr(115.0), ptr(165.0), FlagUnknown},
		{"negative infinity", "-Inf", ptr(115.0), ptr(165.0), FlagUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Flag(tt.value, tt.min, tt.max))
		})
	}
}

func TestTree(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	parent, err := f.catalog.CreateCategory(ctx, f.scope, CategoryRequest{Name: "Local"})
	require.NoError(t, err)
	child, err := f.catalog.CreateCategory(ctx, f.scope, CategoryRequest{Name: "Point of care", ParentID: &parent.ID})
	require.NoError(t, err)
	assert.Equal(t, parent.OrganisationID, child.OrganisationID, "sub-category inherits the owner")

	_, err = f.catalog.CreateCategory(ctx, f.scope, CategoryRequest{Name: "Too deep", ParentID: &child.ID})
	assert.ErrorIs(t, err, ErrNestingTooDeep)

	_, err = f.catalog.CreateTest(ctx, f.scope, TestRequest{CategoryID: child.ID, Name: "Blood gas"})
	require.NoError(t, err)

	tree, err := f.catalog.Tree(ctx, f.scope)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.True(t, tree[0].Global)
	assert.Len(t, tree[0].Tests[0].Parameters, 2)
	require.Len(t, tree[1].SubCategories, 1)
	assert.Equal(t, "Blood gas", tree[1].SubCategories[0].Tests[0].Name)
	assert.NotNil(t, tree[1].SubCategories[0].Tests[0].Parameters)

	assert.ErrorIs(t, f.catalog.DeleteCategory(ctx, f.scope, tree[0].ID), ErrGlobalCatalogForbidden)
	assert.ErrorIs(t, f.catalog.DeleteCategory(ctx, f.scope, child.ID), ErrCatalogEntryInUse)

	_, err = f.catalog.AddParameter(ctx, f.scope, tree[1].SubCategories[0].Tests[0].ID, ParameterRequest{Name: "pH", NormalMin: ptr(7.45), NormalMax: ptr(7.35)})
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestRequestBatch(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	batch, err := f.svc.Request(ctx, f.scope, f.patientID, RequestBatch{TestIDs: []uuid.UUID{f.fbc.ID, f.fbc.ID}, ClinicalInfo: "pallor"})
	require.NoError(t, err)
	require.Len(t, batch, 1, "duplicate ids collapse")
	assert.Equal(t, PriorityRoutine, batch[0].Priority)
	assert.Equal(t, repo.InvestigationRequested, batch[0].Status)
	assert.Equal(t, "Full Blood Count", batch[0].TestName)

	_, err = f.svc.Request(ctx, f.scope, f.patientID, RequestBatch{})
	assert.ErrorIs(t, err, ErrNoTests)
	_, err = f.svc.Request(ctx, f.scope, f.patientID, RequestBatch{TestIDs: []uuid.UUID{f.fbc.ID}, Priority: "whenever"})
	assert.ErrorIs(t, err, ErrInvalidPriority)
	_, err = f.svc.Request(ctx, f.scope, f.patientID, RequestBatch{TestIDs: []uuid.UUID{f.fbc.ID, uuid.New()}})
	assert.ErrorIs(t, err, ErrTestNotFound)
	assert.Len(t, f.store.requests, 1, "a failed batch saves nothing")

	_, err = f.svc.Request(ctx, f.scope, uuid.New(), RequestBatch{TestIDs: []uuid.UUID{f.fbc.ID}})
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestStatusTransitions(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	batch, err := f.svc.Request(ctx, f.scope, f.patientID, RequestBatch{TestIDs: []uuid.UUID{f.fbc.ID}, Priority: PriorityStat})
	require.NoError(t, err)
	id := batch[0].ID

	_, err = f.svc.ChangeStatus(ctx, f.scope, f.patientID, id, repo.InvestigationReported)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	ri, err := f.svc.ChangeStatus(ctx, f.scope, f.patientID, id, repo.InvestigationInProgress)
	require.NoError(t, err)
	assert.Equal(t, repo.InvestigationInProgress, ri.Status)

	_, err = f.svc.ChangeStatus(ctx, f.scope, f.patientID, id, repo.InvestigationCancelled)
	require.NoError(t, err)

	_, err = f.svc.Report(ctx, f.scope, f.patientID, id, ReportRequest{Values: []ValueInput{{ParameterID: f.hb.ID, Value: "120"}}})
	assert.ErrorIs(t, err, ErrAlreadyReported)
}

func TestReportFlagsValuesAndNotifies(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	batch, err := f.svc.Request(ctx, f.scope, f.patientID, RequestBatch{TestIDs: []uuid.UUID{f.fbc.ID}})
	require.NoError(t, err)
	id := batch[0].ID

	_, err = f.svc.Report(ctx, f.scope, f.patientID, id, ReportRequest{Values: []ValueInput{{ParameterID: uuid.New(), Value: "1"}}})
	assert.ErrorIs(t, err, ErrUnknownParameter)

	rep, err := f.svc.Report(ctx, f.scope, f.patientID, id, ReportRequest{
		Summary: "Microcytic picture",
		Values: []ValueInput{
			{ParameterID: f.hb.ID, Value: " 98 "},
			{ParameterID: f.crp.ID, Value: "target cells"},
		},
	})
	require.NoError(t, err)
	require.Len(t, rep.Values, 2)
	assert.Equal(t, FlagLow, rep.Values[0].Flag)
	assert.Equal(t, "98", rep.Values[0].Value)
	assert.Equal(t, FlagUnknown, rep.Values[1].Flag)

	ri, err := f.svc.GetRequest(ctx, f.scope, f.patientID, id)
	require.NoError(t, err)
	assert.Equal(t, repo.InvestigationReported, ri.Status)

	assert.Equal(t, []string{events.Subject(events.EntityInvestigation, events.EventReported, id)}, f.pub.Subjects())
	payload := f.pub.Events[0].Payload.(events.InvestigationReported)
	assert.Equal(t, f.scope.UserID, payload.RequestedBy)

	_, err = f.svc.Report(ctx, f.scope, f.patientID, id, ReportRequest{Values: []ValueInput{{ParameterID: f.hb.ID, Value: "1"}}})
	assert.ErrorIs(t, err, ErrAlreadyReported)

	list, err := f.svc.ListReports(ctx, f.scope, f.patientID, repo.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)

	var buf bytes.Buffer
	require.NoError(t, f.svc.ExportReport(ctx, f.scope, f.patientID, rep.ID, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	assert.ErrorIs(t, f.svc.ExportReport(ctx, f.scope, f.patientID, uuid.New(), &buf), ErrReportNotFound)
}
