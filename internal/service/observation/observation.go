package observation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Alijeyrad/simward_backend/internal/events"
	"github.com/Alijeyrad/simward_backend/internal/repo"
	"github.com/Alijeyrad/simward_backend/pkg/ews"
	"github.com/Alijeyrad/simward_backend/pkg/reqctx"
)

const (
	defaultTrendLimit = 50
	maxTrendLimit     = 500
	// clockSkew tolerates client clocks running slightly ahead.
	clockSkew = 5 * time.Minute
	// paediatricAgeYears is the age below which pews2 applies.
	paediatricAgeYears = 16
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type VitalsInput struct {
	RespiratoryRate    *int     `json:"respiratory_rate"`
	SpO2               *int     `json:"spo2"`
	SpO2Scale          int      `json:"spo2_scale"`
	OnOxygen           bool     `json:"on_oxygen"`
	O2FlowLpm          *float64 `json:"o2_flow_lpm"`
	SystolicBP         *int     `json:"systolic_bp"`
	DiastolicBP        *int     `json:"diastolic_bp"`
	HeartRate          *int     `json:"heart_rate"`
	Consciousness      string   `json:"consciousness"`
	Temperature        *float64 `json:"temperature"`
	CapillaryRefillSec *float64 `json:"capillary_refill_sec"`
	PainScore          *int     `json:"pain_score"`
	BloodGlucose       *float64 `json:"blood_glucose"`
}

type RecordRequest struct {
	VitalsInput
	ScoreType  string     `json:"score_type"`
	Notes      string     `json:"notes"`
	RecordedAt *time.Time `json:"recorded_at"`
}

type CalculateRequest struct {
	VitalsInput
	ScoreType string `json:"score_type"`
	AgeMonths *int   `json:"age_months"`
}

type ListRequest struct {
	From time.Time
	To   time.Time
	Page repo.Page
}

type TrendRequest struct {
	From  time.Time
	To    time.Time
	Limit int
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

// Store is satisfied by *repo.ObservationRepo.
type Store interface {
	Create(ctx context.Context, o *repo.Observation) error
	Get(ctx context.Context, patientID, id uuid.UUID) (*repo.Observation, error)
	List(ctx context.Context, patientID uuid.UUID, tr repo.TimeRange, pg repo.Page) ([]repo.Observation, int, error)
	Latest(ctx context.Context, patientID uuid.UUID) (*repo.Observation, error)
	Trend(ctx context.Context, patientID uuid.UUID, tr repo.TimeRange, limit int) ([]repo.ScorePoint, error)
	Delete(ctx context.Context, patientID, id uuid.UUID) error
}

// Patients is satisfied by *repo.PatientRepo.
type Patients interface {
	Get(ctx context.Context, orgID, id uuid.UUID) (*repo.Patient, error)
}

// Metrics is satisfied by *observability.DomainMetrics.
type Metrics interface {
	ObservationScored(ctx context.Context, scoreType, risk string)
}

type Service interface {
	Record(ctx context.Context, scope *reqctx.Scope, patientID uuid.UUID, req RecordRequest) (*repo.Observation, error)
	Get(ctx context.Context, scope *reqctx.Scope, patientID, id uuid.UUID) (*repo.Observation, error)
	List(ctx context.Context, scope *reqctx.Scope, patientID uuid.UUID, req ListRequest) (*repo.Paginated[repo.Observation], error)
	Latest(ctx context.Context, scope *reqctx.Scope, patientID uuid.UUID) (*repo.Observation, error)
	Trend(ctx context.Context, scope *reqctx.Scope, patientID uuid.UUID, req TrendRequest) ([]repo.ScorePoint, error)
	Delete(ctx context.Context, scope *reqctx.Scope, patientID, id uuid.UUID) error
	// Calculate scores vitals without touching storage.
	Calculate(ctx context.Context, req CalculateRequest) (*ews.Result, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type observationService struct {
	store    Store
	patients Patients
	metrics  Metrics
	events   events.Publisher
	now      func() time.Time
}

func New(store Store, patients Patients, metrics Metrics, pub events.Publisher) Service {
	return &observationService{store: store, patients: patients, metrics: metrics, events: pub, now: time.Now}
}

func (s *observationService) Record(ctx context.Context, scope *reqctx.Scope, patientID uuid.UUID, req RecordRequest) (*repo.Observation, error) {
	p, err := s.patient(ctx, scope, patientID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	recordedAt := now
	if req.RecordedAt != nil {
		if req.RecordedAt.After(now.Add(clockSkew)) {
			return nil, ErrRecordedInFuture
		}
		recordedAt = *req.RecordedAt
	}

	st := ews.ScoreType(req.ScoreType)
	if st == "" {
		st = ScoreTypeFor(p, recordedAt)
	}
	if !st.Valid() {
		return nil, ErrInvalidScoreType
	}

	v, err := req.vitals()
	if err != nil {
		return nil, err
	}
	_, months := p.AgeAt(recordedAt)
	v.AgeMonths = &months

	res, err := ews.Calculate(st, v)
	if err != nil {
		return nil, err
	}

	o := &repo.Observation{
		PatientID:          p.ID,
		OrganisationID:     p.OrganisationID,
		RecordedBy:         scope.UserID,
		RespiratoryRate:    req.RespiratoryRate,
		SpO2:               req.SpO2,
		SpO2Scale:          max(req.SpO2Scale, 1),
		OnOxygen:           req.OnOxygen,
		O2FlowLpm:          req.O2FlowLpm,
		SystolicBP:         req.SystolicBP,
		DiastolicBP:        req.DiastolicBP,
		HeartRate:          req.HeartRate,
		Consciousness:      string(v.Consciousness),
		Temperature:        req.Temperature,
		CapillaryRefillSec: req.CapillaryRefillSec,
		PainScore:          req.PainScore,
		BloodGlucose:       req.BloodGlucose,
		Notes:              req.Notes,
		ScoreType:          string(res.Type),
		ScoreTotal:         res.Total,
		RiskLevel:          string(res.Risk),
		ClinicalResponse:   res.Response,
		Breakdown:          repo.NewJSONB(res.Breakdown),
		Missing:            pq.StringArray(res.Missing),
		RecordedAt:         recordedAt.UTC(),
	}
	if err := s.store.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create observation: %w", err)
	}

	s.metrics.ObservationScored(ctx, o.ScoreType, o.RiskLevel)
	if res.Risk == ews.RiskHigh {
		events.PublishAsync(ctx, s.events, events.Subject(events.EntityObservation, events.EventEscalated, p.ID), events.ObservationEscalated{
			ObservationID:  o.ID,
			PatientID:      p.ID,
			OrganisationID: p.OrganisationID,
			ScoreType:      o.ScoreType,
			Score:          o.ScoreTotal,
			RiskLevel:      o.RiskLevel,
		})
	}
	return o, nil
}

func (s *observationService) Get(ctx context.Context, scope *reqctx.Scope, patientID, id uuid.UUID) (*repo.Observation, error) {
	if _, err := s.patient(ctx, scope, patientID); err != nil {
		return nil, err
	}
	o, err := s.store.Get(ctx, patientID, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrObservationNotFound
	}
	return o, err
}

func (s *observationService) List(ctx context.Context, scope *reqctx.Scope, patientID uuid.UUID, req ListRequest) (*repo.Paginated[repo.Observation], error) {
	if _, err := s.patient(ctx, scope, patientID); err != nil {
		return nil, err
	}
	pg := req.Page.Normalize()
	items, total, err := s.store.List(ctx, patientID, repo.TimeRange{From: req.From, To: req.To}, pg)
	if err != nil {
		return nil, fmt.Errorf("list observations: %w", err)
	}
	return repo.NewPaginated(items, total, pg), nil
}

func (s *observationService) Latest(ctx context.Context, scope *reqctx.Scope, patientID uuid.UUID) (*repo.Observation, error) {
	if _, err := s.patient(ctx, scope, patientID); err != nil {
		return nil, err
	}
	o, err := s.store.Latest(ctx, patientID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrObservationNotFound
	}
	return o, err
}

func (s *observationService) Trend(ctx context.Context, scope *reqctx.Scope, patientID uuid.UUID, req TrendRequest) ([]repo.ScorePoint, error) {
	if _, err := s.patient(ctx, scope, patientID); err != nil {
		return nil, err
	}
	limit := req.Limit
	switch {
	case limit <= 0:
		limit = defaultTrendLimit
	case limit > maxTrendLimit:
		limit = maxTrendLimit
	}
	points, err := s.store.Trend(ctx, patientID, repo.TimeRange{From: req.From, To: req.To}, limit)
	if err != nil {
		return nil, fmt.Errorf("observation trend: %w", err)
	}
	if points == nil {
		points = []repo.ScorePoint{}
	}
	return points, nil
}

func (s *observationService) Delete(ctx context.Context, scope *reqctx.Scope, patientID, id uuid.UUID) error {
	if _, err := s.patient(ctx, scope, patientID); err != nil {
		return err
	}
	err := s.store.Delete(ctx, patientID, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrObservationNotFound
	}
	return err
}

func (s *observationService) Calculate(_ context.Context, req CalculateRequest) (*ews.Result, error) {
	st := ews.ScoreType(req.ScoreType)
	if st == "" {
		st = ews.TypeNEWS2
	}
	if !st.Valid() {
		return nil, ErrInvalidScoreType
	}
	if st == ews.TypePEWS2 && req.AgeMonths == nil {
		return nil, ErrAgeRequired
	}

	v, err := req.vitals()
	if err != nil {
		return nil, err
	}
	v.AgeMonths = req.AgeMonths
	return ews.Calculate(st, v)
}

// ScoreTypeFor picks the scoring system for a patient: maternity patients
// get mews2, under-16s pews2, everyone else news2.
func ScoreTypeFor(p *repo.Patient, at time.Time) ews.ScoreType {
	if p.Category == repo.PatientCategoryMaternity {
		return ews.TypeMEWS2
	}
	if years, _ := p.AgeAt(at); years < paediatricAgeYears {
		return ews.TypePEWS2
	}
	return ews.TypeNEWS2
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *observationService) patient(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) (*repo.Patient, error) {
	p, err := s.patients.Get(ctx, scope.OrgID, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrPatientNotFound
	}
	return p, err
}

func (in VitalsInput) vitals() (ews.Vitals, error) {
	if err := in.validate(); err != nil {
		return ews.Vitals{}, err
	}
	c, err := ews.ParseConsciousness(in.Consciousness)
	if err != nil {
		return ews.Vitals{}, err
	}
	return ews.Vitals{
		RespiratoryRate:    in.RespiratoryRate,
		SpO2:               in.SpO2,
		SpO2Scale:          in.SpO2Scale,
		OnOxygen:           in.OnOxygen,
		SystolicBP:         in.SystolicBP,
		HeartRate:          in.HeartRate,
		Consciousness:      c,
		Temperature:        in.Temperature,
		CapillaryRefillSec: in.CapillaryRefillSec,
	}, nil
}

func (in VitalsInput) validate() error {
	ints := []struct {
		v        *int
		min, max int
	}{
		{in.RespiratoryRate, 0, 100},
		{in.SpO2, 0, 100},
		{in.SystolicBP, 0, 350},
		{in.DiastolicBP, 0, 250},
		{in.HeartRate, 0, 350},
		{in.PainScore, 0, 10},
	}
	for _, c := range ints {
		if c.v != nil && (*c.v < c.min || *c.v > c.max) {
			return ErrInvalidVital
		}
	}

	floats := []struct {
		v        *float64
		min, max float64
	}{
		{in.Temperature, 25, 45},
		{in.O2FlowLpm, 0, 60},
		{in.CapillaryRefillSec, 0, 20},
		{in.BloodGlucose, 0, 60},
	}
	for _, c := range floats {
		if c.v != nil && (*c.v < c.min || *c.v > c.max) {
			return ErrInvalidVital
		}
	}

	if in.SpO2Scale != 0 && in.SpO2Scale != 1 && in.SpO2Scale != 2 {
		return ErrInvalidVital
	}
	return nil
}
