package prescription

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/simward_backend/internal/repo"
	"github.com/Alijeyrad/simward_backend/pkg/reqctx"
)

type fakeStore struct {
	rx    map[uuid.UUID]*repo.Prescription
	admin []repo.Administration
}

func (f *fakeStore) Create(_ context.Context, p *repo.Prescription) error {
	p.ID = uuid.New()
	c := *p
	f.rx[p.ID] = &c
	return nil
}

func (f *fakeStore) Get(_ context.Context, patientID, id uuid.UUID) (*repo.Prescription, error) {
	p, ok := f.rx[id]
	if !ok || p.PatientID != patientID {
		return nil, repo.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (f *fakeStore) List(_ context.Context, patientID uuid.UUID, status string, _ repo.Page) ([]repo.Prescription, int, error) {
	var out []repo.Prescription
	for _, p := range f.rx {
		if p.PatientID == patientID && (status == "" || p.Status == status) {
			out = append(out, *p)
		}
	}
	return out, len(out), nil
}

func (f *fakeStore) Update(_ context.Context, p *repo.Prescription) error {
	if _, ok := f.rx[p.ID]; !ok {
		return repo.ErrNotFound
	}
	c := *p
	f.rx[p.ID] = &c
	return nil
}

func (f *fakeStore) SetStatus(_ context.Context, id uuid.UUID, from, to string) error {
	p, ok := f.rx[id]
	if !ok || p.Status != from {
		return repo.ErrNotFound
	}
	p.Status = to
	return nil
}

func (f *fakeStore) Delete(_ context.Context, patientID, id uuid.UUID) error {
	p, ok := f.rx[id]
	if !ok || p.PatientID != patientID {
		return repo.ErrNotFound
	}
	delete(f.rx, id)
	return nil
}

func (f *fakeStore) CreateAdministration(_ context.Context, a *repo.Administration) error {
	a.ID = uuid.New()
	f.admin = append(f.admin, *a)
	return nil
}

func (f *fakeStore) ListAdministrations(_ context.Context, prescriptionID uuid.UUID) ([]repo.Administration, error) {
	var out []repo.Administration
	for _, a := range f.admin {
		if a.PrescriptionID == prescriptionID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakePatients map[uuid.UUID]*repo.Patient

func (f fakePatients) Get(_ context.Context, orgID, id uuid.UUID) (*repo.Patient, error) {
	p, ok := f[id]
	if !ok || p.OrganisationID != orgID {
		return nil, repo.ErrNotFound
	}
	return p, nil
}

type fixture struct {
	svc       Service
	store     *fakeStore
	scope     *reqctx.Scope
	patientID uuid.UUID
	global    *repo.DrugType
	local     *repo.DrugType
	foreign   *repo.DrugType
}

func setup(t *testing.T) *fixture {
	t.Helper()
	drugs := newFakeCatalog()
	catalog := NewCatalog(drugs)
	scope := &reqctx.Scope{UserID: uuid.New(), OrgID: uuid.New()}
	admin := &reqctx.Scope{UserID: uuid.New(), IsSuperAdmin: true}
	global, local := seedCatalog(t, catalog, scope, admin)

	other := &reqctx.Scope{UserID: uuid.New(), OrgID: uuid.New()}
	g, err := catalog.CreateGroup(context.Background(), other, GroupRequest{Name: "Private"})
	require.NoError(t, err)
	sg, err := catalog.CreateSubGroup(context.Background(), other, SubGroupRequest{GroupID: g.ID, Name: "Private"})
	require.NoError(t, err)
	foreign, err := catalog.CreateType(context.Background(), other, TypeRequest{SubGroupID: sg.ID, Name: "Secret"})
	require.NoError(t, err)

	patientID := uuid.New()
	store := &fakeStore{rx: map[uuid.UUID]*repo.Prescription{}}
	svc := New(store, drugs, fakePatients{patientID: {ID: patientID, OrganisationID: scope.OrgID}})
	return &fixture{svc: svc, store: store, scope: scope, patientID: patientID, global: global, local: local, foreign: foreign}
}

func (f *fixture) prescribe(t *testing.T) *repo.Prescription {
	t.Helper()
	rx, err := f.svc.Create(context.Background(), f.scope, f.patientID, CreateRequest{
		DrugTypeID: f.global.ID, Dose: 1000, Frequency: "QDS",
	})
	require.NoError(t, err)
	return rx
}

func TestCreateDefaultsFromDrugType(t *testing.T) {
	f := setup(t)
	rx := f.prescribe(t)

	assert.Equal(t, "Paracetamol", rx.DrugName)
	assert.Equal(t, "mg", rx.Unit)
	assert.Equal(t, "PO", rx.Route)
	assert.Equal(t, repo.PrescriptionActive, rx.Status)
	assert.Equal(t, f.scope.UserID, rx.PrescribedBy)
	assert.Equal(t, f.scope.OrgID, rx.OrganisationID)

	rx, err := f.svc.Create(context.Background(), f.scope, f.patientID, CreateRequest{
		DrugTypeID: f.local.ID, Dose: 500, Route: "SC", PRN: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "SC", rx.Route, "explicit route wins over the default")
	assert.Equal(t, "ml", rx.Unit)
}

func TestCreateValidation(t *testing.T) {
	f := setup(t)
	start := time.Now().Add(-time.Hour)
	before := start.Add(-time.Minute)

	tests := []struct {
		name string
		req  CreateRequest
		want error
	}{
		{"zero dose", CreateRequest{DrugTypeID: f.global.ID, Frequency: "OD"}, ErrInvalidDose},
		{"missing frequency", CreateRequest{DrugTypeID: f.global.ID, Dose: 1}, ErrFrequencyRequired},
		{"end before start", CreateRequest{DrugTypeID: f.global.ID, Dose: 1, Frequency: "OD", StartAt: &start, EndAt: &before}, ErrInvalidPeriod},
		{"unknown drug", CreateRequest{DrugTypeID: uuid.New(), Dose: 1, Frequency: "OD"}, ErrDrugNotFound},
		{"other organisation's drug", CreateRequest{DrugTypeID: f.foreign.ID, Dose: 1, Frequency: "OD"}, ErrDrugNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), f.scope, f.patientID, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := f.svc.Create(context.Background(), f.scope, uuid.New(), CreateRequest{DrugTypeID: f.global.ID, Dose: 1, Frequency: "OD"})
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{repo.PrescriptionActive, repo.PrescriptionHeld, true},
		{repo.PrescriptionHeld, repo.PrescriptionActive, true},
		{repo.PrescriptionActive, repo.PrescriptionStopped, true},
		{repo.PrescriptionHeld, repo.PrescriptionCompleted, true},
		{repo.PrescriptionActive, repo.PrescriptionActive, false},
		{repo.PrescriptionStopped, repo.PrescriptionActive, false},
		{repo.PrescriptionCompleted, repo.PrescriptionHeld, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestStatusLifecycle(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	rx := f.prescribe(t)

	held, err := f.svc.ChangeStatus(ctx, f.scope, f.patientID, rx.ID, repo.PrescriptionHeld)
	require.NoError(t, err)
	assert.Equal(t, repo.PrescriptionHeld, held.Status)

	_, err = f.svc.Administer(ctx, f.scope, f.patientID, rx.ID, AdministerRequest{})
	assert.ErrorIs(t, err, ErrNotActive)

	_, err = f.svc.ChangeStatus(ctx, f.scope, f.patientID, rx.ID, repo.PrescriptionStopped)
	require.NoError(t, err)

	_, err = f.svc.ChangeStatus(ctx, f.scope, f.patientID, rx.ID, repo.PrescriptionActive)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.ChangeStatus(ctx, f.scope, f.patientID, rx.ID, "paused")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	dose := 2.0
	_, err = f.svc.Update(ctx, f.scope, f.patientID, rx.ID, UpdateRequest{Dose: &dose})
	assert.ErrorIs(t, err, ErrFinalised)

	active, err := f.svc.List(ctx, f.scope, f.patientID, repo.PrescriptionActive, repo.Page{})
	require.NoError(t, err)
	assert.Empty(t, active.Items)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	rx := f.prescribe(t)

	dose, freq := 500.0, "BD"
	updated, err := f.svc.Update(ctx, f.scope, f.patientID, rx.ID, UpdateRequest{Dose: &dose, Frequency: &freq})
	require.NoError(t, err)
	assert.Equal(t, 500.0, updated.Dose)
	assert.Equal(t, "BD", updated.Frequency)

	zero := 0.0
	_, err = f.svc.Update(ctx, f.scope, f.patientID, rx.ID, UpdateRequest{Dose: &zero})
	assert.ErrorIs(t, err, ErrInvalidDose)

	got, err := f.svc.Get(ctx, f.scope, f.patientID, rx.ID)
	require.NoError(t, err)
	assert.Equal(t, 500.0, got.Dose, "rejected update is not persisted")
}

func TestAdminister(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	rx := f.prescribe(t)

	a, err := f.svc.Administer(ctx, f.scope, f.patientID, rx.ID, AdministerRequest{Notes: " given with food "})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, a.Dose, "defaults to the prescribed dose")
	assert.Equal(t, "given with food", a.Notes)
	assert.Equal(t, f.scope.UserID, a.AdministeredBy)

	half := 500.0
	_, err = f.svc.Administer(ctx, f.scope, f.patientID, rx.ID, AdministerRequest{Dose: &half})
	require.NoError(t, err)

	bad := -1.0
	_, err = f.svc.Administer(ctx, f.scope, f.patientID, rx.ID, AdministerRequest{Dose: &bad})
	assert.ErrorIs(t, err, ErrInvalidDose)

	list, err := f.svc.ListAdministrations(ctx, f.scope, f.patientID, rx.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, f.svc.Delete(ctx, f.scope, f.patientID, rx.ID))
	_, err = f.svc.ListAdministrations(ctx, f.scope, f.patientID, rx.ID)
	assert.ErrorIs(t, err, ErrPrescriptionNotFound)
}
