package prescription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/simward_backend/internal/repo"
	"github.com/Alijeyrad/simward_backend/pkg/reqctx"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type CreateRequest struct {
	DrugTypeID uuid.UUID  `json:"drug_type_id"`
	Dose       float64    `json:"dose"`
	Unit       string     `json:"unit"`
	Route      string     `json:"route"`
	Frequency  string     `json:"frequency"`
	PRN        bool       `json:"prn"`
	StartAt    *time.Time `json:"start_at"`
	EndAt      *time.Time `json:"end_at"`
	Indication string     `json:"indication"`
}

type UpdateRequest struct {
	Dose       *float64   `json:"dose"`
	Unit       *string    `json:"unit"`
	Route      *string    `json:"route"`
	Frequency  *string    `json:"frequency"`
	PRN        *bool      `json:"prn"`
	StartAt    *time.Time `json:"start_at"`
	EndAt      *time.Time `json:"end_at"`
	Indication *string    `json:"indication"`
}

type AdministerRequest struct {
	// Dose defaults to the prescribed dose.
	Dose           *float64   `json:"dose"`
	AdministeredAt *time.Time `json:"administered_at"`
	Notes          string     `json:"notes"`
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

// Store is satisfied by *repo.PrescriptionRepo.
type Store interface {
	Create(ctx context.Context, p *repo.Prescription) error
	Get(ctx context.Context, patientID, id uuid.UUID) (*repo.Prescription, error)
	List(ctx context.Context, patientID uuid.UUID, status string, pg repo.Page) ([]repo.Prescription, int, error)
	Update(ctx context.Context, p *repo.Prescription) error
	SetStatus(ctx context.Context, id uuid.UUID, from, to string) error
	Delete(ctx context.Context, patientID, id uuid.UUID) error
	CreateAdministration(ctx context.Context, a *repo.Administration) error
	ListAdministrations(ctx context.Context, prescriptionID uuid.UUID) ([]repo.Administration, error)
}

// Drugs is the part of CatalogStore prescribing needs.
type Drugs interface {
	GetType(ctx context.Context, id uuid.UUID) (*repo.DrugType, error)
	TypeOwner(ctx context.Context, typeID uuid.UUID) (*uuid.UUID, error)
}

// Patients is satisfied by *repo.PatientRepo.
type Patients interface {
	Get(ctx context.Context, orgID, id uuid.UUID) (*repo.Patient, error)
}

type Service interface {
	Create(ctx context.Context, scope *reqctx.Scope, patientID uuid.UUID, req CreateRequest) (*repo.Prescription, error)
	Get(ctx context.Context, scope *reqctx.Scope, patientID, id uuid.UUID) (*repo.Prescription, error)
	List(ctx context.Context, scope *reqctx.Scope, patientID uuid.UUID, status string, pg repo.Page) (*repo.Paginated[repo.Prescription], error)
	Update(ctx context.Context, scope *reqctx.Scope, patientID, id uuid.UUID, req UpdateRequest) (*repo.Prescription, error)
	ChangeStatus(ctx context.Context, scope *reqctx.Scope, patientID, id uuid.UUID, status string) (*repo.Prescription, error)
	Delete(ctx context.Context, scope *reqctx.Scope, patientID, id uuid.UUID) error

	Administer(ctx context.Context, scope *reqctx.Scope, patientID, id uuid.UUID, req AdministerRequest) (*repo.Administration, error)
	ListAdministrations(ctx context.Context, scope *reqctx.Scope, patientID, id uuid.UUID) ([]repo.Administration, error)
}

// ---------------------------------------------------------------------------
// Status machine
// ---------------------------------------------------------------------------

var transitions = map[string][]string{
	repo.PrescriptionActive: {repo.PrescriptionHeld, repo.PrescriptionStopped, repo.PrescriptionCompleted},
	repo.PrescriptionHeld:   {repo.PrescriptionActive, repo.PrescriptionStopped, repo.PrescriptionCompleted},
}

// CanTransition reports whether a prescription may move from one status to
// another. Stopped and completed are terminal.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func isStatus(s string) bool {
	switch s {
	case repo.PrescriptionActive, repo.PrescriptionHeld, repo.PrescriptionStopped, repo.PrescriptionCompleted:
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type prescriptionService struct {
	store    Store
	drugs    Drugs
	patients Patients
	now      func() time.Time
}

func New(store Store, drugs Drugs, patients Patients) Service {
	return &prescriptionService{store: store, drugs: drugs, patients: patients, now: time.Now}
}

func (s *prescriptionService) Create(ctx context.Context, scope *reqctx.Scope, patientID uuid.UUID, req CreateRequest) (*repo.Prescription, error) {
	p, err := s.patient(ctx, scope, patientID)
	if err != nil {
		return nil, err
	}
	drug, err := s.drug(ctx, scope, req.DrugTypeID)
	if err != nil {
		return nil, err
	}

	rx := &repo.Prescription{
		PatientID:      p.ID,
		OrganisationID: p.OrganisationID,
		DrugTypeID:     drug.ID,
		DrugName:       drug.Name,
		PrescribedBy:   scope.UserID,
		Dose:           req.Dose,
		Unit:           firstNonEmpty(req.Unit, drug.DefaultUnit),
		Route:          firstNonEmpty(req.Route, drug.DefaultRoute),
		Frequency:      strings.TrimSpace(req.Frequency),
		PRN:            req.PRN,
		StartAt:        s.now().UTC(),
		EndAt:          req.EndAt,
		Indication:     strings.TrimSpace(req.Indication),
		Status:         repo.PrescriptionActive,
	}
	if req.StartAt != nil {
		rx.StartAt = req.StartAt.UTC()
	}
	if err := validate(rx); err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, rx); err != nil {
		if errors.Is(err, repo.ErrInUse) {
			return nil, ErrDrugNotFound
		}
		return nil, fmt.Errorf("create prescription: %w", err)
	}
	return rx, nil
}

func (s *prescriptionService) Get(ctx context.Context, scope *reqctx.Scope, patientID, id uuid.UUID) (*repo.Prescription, error) {
	if _, err := s.patient(ctx, scope, patientID); err != nil {
		return nil, err
	}
	rx, err := s.store.Get(ctx, patientID, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrPrescriptionNotFound
	}
	return rx, err
}

func (s *prescriptionService) List(ctx context.Context, scope *reqctx.Scope, patientID uuid.UUID, status string, pg repo.Page) (*repo.Paginated[repo.Prescription], error) {
	if status != "" && !isStatus(status) {
		return nil, ErrInvalidStatus
	}
	if _, err := s.patient(ctx, scope, patientID); err != nil {
		return nil, err
	}
	pg = pg.Normalize()
	items, total, err := s.store.List(ctx, patientID, status, pg)
	if err != nil {
		return nil, fmt.Errorf("list prescriptions: %w", err)
	}
	return repo.NewPaginated(items, total, pg), nil
}

func (s *prescriptionService) Update(ctx context.Context, scope *reqctx.Scope, patientID, id uuid.UUID, req UpdateRequest) (*repo.Prescription, error) {
	rx, err := s.Get(ctx, scope, patientID, id)
	if err != nil {
		return nil, err
	}
	if !isOpen(rx.Status) {
		return nil, ErrFinalised
	}

	if req.Dose != nil {
		rx.Dose = *req.Dose
	}
	if req.Unit != nil {
		rx.Unit = strings.TrimSpace(*req.Unit)
	}
	if req.Route != nil {
		rx.Route = strings.TrimSpace(*req.Route)
	}
	if req.Frequency != nil {
		rx.Frequency = strings.TrimSpace(*req.Frequency)
	}
	if req.PRN != nil {
		rx.PRN = *req.PRN
	}
	if req.StartAt != nil {
		rx.StartAt = req.StartAt.UTC()
	}
	if req.EndAt != nil {
		rx.EndAt = req.EndAt
	}
	if req.Indication != nil {
		rx.Indication = strings.TrimSpace(*req.Indication)
	}
	if err := validate(rx); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, rx); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPrescriptionNotFound
		}
		return nil, fmt.Errorf("update prescription: %w", err)
	}
	return rx, nil
}

func (s *prescriptionService) ChangeStatus(ctx context.Context, scope *reqctx.Scope, patientID, id uuid.UUID, status string) (*repo.Prescription, error) {
	if !isStatus(status) {
		return nil, ErrInvalidStatus
	}
	rx, err := s.Get(ctx, scope, patientID, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(rx.Status, status) {
		return nil, ErrInvalidTransition
	}

	// The conditional update loses against a concurrent change of status.
	if err := s.store.SetStatus(ctx, rx.ID, rx.Status, status); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("set prescription status: %w", err)
	}
	rx.Status = status
	return rx, nil
}

func (s *prescriptionService) Delete(ctx context.Context, scope *reqctx.Scope, patientID, id uuid.UUID) error {
	if _, err := s.patient(ctx, scope, patientID); err != nil {
		return err
	}
	err := s.store.Delete(ctx, patientID, id)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return ErrPrescriptionNotFound
	case errors.Is(err, repo.ErrInUse):
		return ErrFinalised
	}
	return err
}

func (s *prescriptionService) Administer(ctx context.Context, scope *reqctx.Scope, patientID, id uuid.UUID, req AdministerRequest) (*repo.Administration, error) {
	rx, err := s.Get(ctx, scope, patientID, id)
	if err != nil {
		return nil, err
	}
	if rx.Status != repo.PrescriptionActive {
		return nil, ErrNotActive
	}

	a := &repo.Administration{
		PrescriptionID: rx.ID,
		AdministeredBy: scope.UserID,
		Dose:           rx.Dose,
		AdministeredAt: s.now().UTC(),
		Notes:          strings.TrimSpace(req.Notes),
	}
	if req.Dose != nil {
		if *req.Dose <= 0 {
			return nil, ErrInvalidDose
		}
		a.Dose = *req.Dose
	}
	if req.AdministeredAt != nil {
		a.AdministeredAt = req.AdministeredAt.UTC()
	}

	if err := s.store.CreateAdministration(ctx, a); err != nil {
		return nil, fmt.Errorf("record administration: %w", err)
	}
	return a, nil
}

func (s *prescriptionService) ListAdministrations(ctx context.Context, scope *reqctx.Scope, patientID, id uuid.UUID) ([]repo.Administration, error) {
	rx, err := s.Get(ctx, scope, patientID, id)
	if err != nil {
		return nil, err
	}
	out, err := s.store.ListAdministrations(ctx, rx.ID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []repo.Administration{}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *prescriptionService) patient(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) (*repo.Patient, error) {
	p, err := s.patients.Get(ctx, scope.OrgID, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrPatientNotFound
	}
	return p, err
}

func (s *prescriptionService) drug(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) (*repo.DrugType, error) {
	owner, err := s.drugs.TypeOwner(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrDrugNotFound
	}
	if err != nil {
		return nil, err
	}
	if !visible(scope.OrgID, owner) {
		return nil, ErrDrugNotFound
	}
	t, err := s.drugs.GetType(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrDrugNotFound
	}
	return t, err
}

func validate(rx *repo.Prescription) error {
	if rx.Dose <= 0 {
		return ErrInvalidDose
	}
	if rx.Frequency == "" && !rx.PRN {
		return ErrFrequencyRequired
	}
	if rx.EndAt != nil && !rx.EndAt.After(rx.StartAt) {
		return ErrInvalidPeriod
	}
	return nil
}

func isOpen(status string) bool {
	return status == repo.PrescriptionActive || status == repo.PrescriptionHeld
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
