package fluidbalance

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/simward_backend/internal/repo"
	"github.com/Alijeyrad/simward_backend/pkg/reqctx"
)

type fakeStore struct {
	entries []repo.FluidBalanceEntry
}

func (f *fakeStore) Create(_ context.Context, e *repo.FluidBalanceEntry) error {
	e.ID = uuid.New()
	f.entries = append(f.entries, *e)
	return nil
}

func (f *fakeStore) inWindow(patientID uuid.UUID, tr repo.TimeRange) []repo.FluidBalanceEntry {
	var out []repo.FluidBalanceEntry
	for _, e := range f.entries {
		if e.PatientID != patientID {
			continue
		}
		if (!tr.From.IsZero() && e.RecordedAt.Before(tr.From)) || (!tr.To.IsZero() && e.RecordedAt.After(tr.To)) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (f *fakeStore) List(_ context.Context, patientID uuid.UUID, tr repo.TimeRange, _ repo.Page) ([]repo.FluidBalanceEntry, int, error) {
	out := f.inWindow(patientID, tr)
	return out, len(out), nil
}

func (f *fakeStore) Totals(_ context.Context, patientID uuid.UUID, tr repo.TimeRange) ([]repo.RouteTotal, error) {
	sums := map[[2]string]int{}
	for _, e := range f.inWindow(patientID, tr) {
		sums[[2]string{e.Direction, e.Route}] += e.VolumeMl
	}
	var out []repo.RouteTotal
	for k, v := range sums {
		out = append(out, repo.RouteTotal{Direction: k[0], Route: k[1], VolumeMl: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Direction+out[i].Route < out[j].Direction+out[j].Route })
	return out, nil
}

func (f *fakeStore) Delete(_ context.Context, patientID, id uuid.UUID) error {
	for i, e := range f.entries {
		if e.ID == id && e.PatientID == patientID {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			return nil
		}
	}
	return repo.ErrNotFound
}

type fakePatients map[uuid.UUID]*repo.Patient

func (f fakePatients) Get(_ context.Context, orgID, id uuid.UUID) (*repo.Patient, error) {
	p, ok := f[id]
	if !ok || p.OrganisationID != orgID {
		return nil, repo.ErrNotFound
	}
	return p, nil
}

func setup() (Service, *fakeStore, *reqctx.Scope, uuid.UUID) {
	scope := &reqctx.Scope{UserID: uuid.New(), OrgID: uuid.New()}
	patientID := uuid.New()
	store := &fakeStore{}
	return New(store, fakePatients{patientID: {ID: patientID, OrganisationID: scope.OrgID}}), store, scope, patientID
}

func TestCreateValidation(t *testing.T) {
	svc, _, scope, patientID := setup()
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name    string
		req     CreateRequest
		wantErr error
	}{
		{"bad direction", CreateRequest{Direction: "sideways", Route: "oral", VolumeMl: 100}, ErrInvalidDirection},
		{"no route", CreateRequest{Direction: "intake", VolumeMl: 100}, ErrRouteRequired},
		{"zero volume", CreateRequest{Direction: "intake", Route: "oral"}, ErrInvalidVolume},
		{"future", CreateRequest{Direction: "intake", Route: "oral", VolumeMl: 100, RecordedAt: &future}, ErrRecordedInFuture},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), scope, patientID, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := svc.Create(context.Background(), scope, uuid.New(), CreateRequest{Direction: "intake", Route: "oral", VolumeMl: 1})
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestSummaryDefaultsToLastDay(t *testing.T) {
	svc, _, scope, patientID := setup()
	ctx := context.Background()

	add := func(direction, route string, ml int, ago time.Duration) {
		at := time.Now().Add(-ago)
		_, err := svc.Create(ctx, scope, patientID, CreateRequest{Direction: direction, Route: route, VolumeMl: ml, RecordedAt: &at})
		require.NoError(t, err)
	}
	add("intake", "Oral", 500, time.Hour)
	add("intake", "iv", 1000, 2*time.Hour)
	add("intake", "oral", 250, 3*time.Hour)
	add("output", "urine", 900, 4*time.Hour)
	add("intake", "oral", 2000, 30*time.Hour)

	sum, err := svc.Summary(ctx, scope, patientID, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1750, sum.TotalIntakeMl)
	assert.Equal(t, 900, sum.TotalOutputMl)
	assert.Equal(t, 850, sum.NetBalanceMl)
	assert.WithinDuration(t, sum.To.Add(-DefaultWindow), sum.From, time.Second)
	assert.Equal(t, []repo.RouteTotal{
		{Direction: "intake", Route: "iv", VolumeMl: 1000},
		{Direction: "intake", Route: "oral", VolumeMl: 750},
		{Direction: "output", Route: "urine", VolumeMl: 900},
	}, sum.Routes)

	_, err = svc.Summary(ctx, scope, patientID, time.Now(), time.Now().Add(-time.Hour))
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestDelete(t *testing.T) {
	svc, store, scope, patientID := setup()
	ctx := context.Background()

	e, err := svc.Create(ctx, scope, patientID, CreateRequest{Direction: "output", Route: "drain", VolumeMl: 40})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, scope, patientID, e.ID))
	assert.Empty(t, store.entries)
	assert.ErrorIs(t, svc.Delete(ctx, scope, patientID, e.ID), ErrEntryNotFound)
}
