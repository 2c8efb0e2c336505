package fluidbalance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/Alijeyrad/simward_backend/internal/repo"
	"github.com/Alijeyrad/simward_backend/pkg/reqctx"
)

// DefaultWindow is the summary window when the caller gives no start.
const DefaultWindow = 24 * time.Hour

const clockSkew = 5 * time.Minute

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type CreateRequest struct {
	Direction  string     `json:"direction"`
	Route      string     `json:"route"`
	VolumeMl   int        `json:"volume_ml"`
	Notes      string     `json:"notes"`
	RecordedAt *time.Time `json:"recorded_at"`
}

type ListRequest struct {
	From time.Time
	To   time.Time
	Page repo.Page
}

type Summary struct {
	From          time.Time         `json:"from"`
	To            time.Time         `json:"to"`
	TotalIntakeMl int               `json:"total_intake_ml"`
	TotalOutputMl int               `json:"total_output_ml"`
	NetBalanceMl  int               `json:"net_balance_ml"`
	Routes        []repo.RouteTotal `json:"routes"`
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

// Store is satisfied by *repo.FluidBalanceRepo.
type Store interface {
	Create(ctx context.Context, e *repo.FluidBalanceEntry) error
	List(ctx context.Context, patientID uuid.UUID, tr repo.TimeRange, pg repo.Page) ([]repo.FluidBalanceEntry, int, error)
	Totals(ctx context.Context, patientID uuid.UUID, tr repo.TimeRange) ([]repo.RouteTotal, error)
	Delete(ctx context.Context, patientID, id uuid.UUID) error
}

// Patients is satisfied by *repo.PatientRepo.
type Patients interface {
	Get(ctx context.Context, orgID, id uuid.UUID) (*repo.Patient, error)
}

type Service interface {
	Create(ctx context.Context, scope *reqctx.Scope, patientID uuid.UUID, req CreateRequest) (*repo.FluidBalanceEntry, error)
	List(ctx context.Context, scope *reqctx.Scope, patientID uuid.UUID, req ListRequest) (*repo.Paginated[repo.FluidBalanceEntry], error)
	Delete(ctx context.Context, scope *reqctx.Scope, patientID, id uuid.UUID) error
	// Summary totals the window [from, to]; zero to means now and zero from
	// means DefaultWindow before to.
	Summary(ctx context.Context, scope *reqctx.Scope, patientID uuid.UUID, from, to time.Time) (*Summary, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type fluidBalanceService struct {
	store    Store
	patients Patients
	now      func() time.Time
}

func New(store Store, patients Patients) Service {
	return &fluidBalanceService{store: store, patients: patients, now: time.Now}
}

func (s *fluidBalanceService) Create(ctx context.Context, scope *reqctx.Scope, patientID uuid.UUID, req CreateRequest) (*repo.FluidBalanceEntry, error) {
	direction := strings.ToLower(strings.TrimSpace(req.Direction))
	if direction != repo.FluidIntake && direction != repo.FluidOutput {
		return nil, ErrInvalidDirection
	}
	route := strings.ToLower(strings.TrimSpace(req.Route))
	if route == "" {
		return nil, ErrRouteRequired
	}
	if req.VolumeMl <= 0 {
		return nil, ErrInvalidVolume
	}

	now := s.now()
	recordedAt := now
	if req.RecordedAt != nil {
		if req.RecordedAt.After(now.Add(clockSkew)) {
			return nil, ErrRecordedInFuture
		}
		recordedAt = *req.RecordedAt
	}

	p, err := s.patient(ctx, scope, patientID)
	if err != nil {
		return nil, err
	}

	e := &repo.FluidBalanceEntry{
		PatientID:      p.ID,
		OrganisationID: p.OrganisationID,
		RecordedBy:     scope.UserID,
		Direction:      direction,
		Route:          route,
		VolumeMl:       req.VolumeMl,
		Notes:          strings.TrimSpace(req.Notes),
		RecordedAt:     recordedAt.UTC(),
	}
	if err := s.store.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("create fluid entry: %w", err)
	}
	return e, nil
}

func (s *fluidBalanceService) List(ctx context.Context, scope *reqctx.Scope, patientID uuid.UUID, req ListRequest) (*repo.Paginated[repo.FluidBalanceEntry], error) {
	if _, err := s.patient(ctx, scope, patientID); err != nil {
		return nil, err
	}
	pg := req.Page.Normalize()
	items, total, err := s.store.List(ctx, patientID, repo.TimeRange{From: req.From, To: req.To}, pg)
	if err != nil {
		return nil, fmt.Errorf("list fluid entries: %w", err)
	}
	return repo.NewPaginated(items, total, pg), nil
}

func (s *fluidBalanceService) Delete(ctx context.Context, scope *reqctx.Scope, patientID, id uuid.UUID) error {
	if _, err := s.patient(ctx, scope, patientID); err != nil {
		return err
	}
	err := s.store.Delete(ctx, patientID, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrEntryNotFound
	}
	return err
}

func (s *fluidBalanceService) Summary(ctx context.Context, scope *reqctx.Scope, patientID uuid.UUID, from, to time.Time) (*Summary, error) {
	if to.IsZero() {
		to = s.now()
	}
	if from.IsZero() {
		from = to.Add(-DefaultWindow)
	}
	if !from.Before(to) {
		return nil, ErrInvalidWindow
	}
	if _, err := s.patient(ctx, scope, patientID); err != nil {
		return nil, err
	}

	routes, err := s.store.Totals(ctx, patientID, repo.TimeRange{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("fluid totals: %w", err)
	}

	sum := func(direction string) int {
		return lo.SumBy(routes, func(r repo.RouteTotal) int {
			return lo.Ternary(r.Direction == direction, r.VolumeMl, 0)
		})
	}
	out := &Summary{
		From:          from.UTC(),
		To:            to.UTC(),
		TotalIntakeMl: sum(repo.FluidIntake),
		TotalOutputMl: sum(repo.FluidOutput),
		Routes:        lo.Ternary(routes == nil, []repo.RouteTotal{}, routes),
	}
	out.NetBalanceMl = out.TotalIntakeMl - out.TotalOutputMl
	return out, nil
}

func (s *fluidBalanceService) patient(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) (*repo.Patient, error) {
	p, err := s.patients.Get(ctx, scope.OrgID, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrPatientNotFound
	}
	return p, err
}
