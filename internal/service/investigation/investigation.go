package investigation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/Alijeyrad/simward_backend/internal/events"
	"github.com/Alijeyrad/simward_backend/internal/repo"
	"github.com/Alijeyrad/simward_backend/internal/service/patient"
	"github.com/Alijeyrad/simward_backend/pkg/report"
	"github.com/Alijeyrad/simward_backend/pkg/reqctx"
)

const (
	PriorityRoutine = "routine"
	PriorityUrgent  = "urgent"
	PriorityStat    = "stat"

	FlagLow     = "low"
	FlagNormal  = "normal"
	FlagHigh    = "high"
	FlagUnknown = "unknown"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

// RequestBatch saves several tests for one patient in one call.
type RequestBatch struct {
	TestIDs      []uuid.UUID `json:"test_ids"`
	Priority     string      `json:"priority"`
	ClinicalInfo string      `json:"clinical_info"`
}

type ValueInput struct {
	ParameterID uuid.UUID `json:"parameter_id"`
	Value       string    `json:"value"`
}

type ReportRequest struct {
	Summary string       `json:"summary"`
	Values  []ValueInput `json:"values"`
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

// Store is satisfied by *repo.InvestigationRepo.
type Store interface {
	GetTest(ctx context.Context, id uuid.UUID) (*repo.InvestigationTest, error)
	TestOwner(ctx context.Context, testID uuid.UUID) (*uuid.UUID, error)
	ListParameters(ctx context.Context, testID uuid.UUID) ([]repo.InvestigationParameter, error)
	CreateRequests(ctx context.Context, reqs []repo.RequestedInvestigation) error
	GetRequest(ctx context.Context, patientID, id uuid.UUID) (*repo.RequestedInvestigation, error)
	ListRequests(ctx context.Context, patientID uuid.UUID, status string, pg repo.Page) ([]repo.RequestedInvestigation, int, error)
	SetRequestStatus(ctx context.Context, id uuid.UUID, from, to string) error
	CreateReport(ctx context.Context, rep *repo.InvestigationReport, fromStatus string) error
	GetReport(ctx context.Context, patientID, id uuid.UUID) (*repo.InvestigationReport, error)
	ListReports(ctx context.Context, patientID uuid.UUID, pg repo.Page) ([]repo.InvestigationReport, int, error)
}

// Patients is satisfied by patient.Service; reports print the decrypted
// hospital number.
type Patients interface {
	Get(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) (*repo.Patient, error)
}

type Users interface {
	Get(ctx context.Context, id uuid.UUID) (*repo.User, error)
}

type Organisations interface {
	Get(ctx context.Context, id uuid.UUID) (*repo.Organisation, error)
}

type Service interface {
	Request(ctx context.Context, scope *reqctx.Scope, patientID uuid.UUID, req RequestBatch) ([]repo.RequestedInvestigation, error)
	GetRequest(ctx context.Context, scope *reqctx.Scope, patientID, id uuid.UUID) (*repo.RequestedInvestigation, error)
	ListRequests(ctx context.Context, scope *reqctx.Scope, patientID uuid.UUID, status string, pg repo.Page) (*repo.Paginated[repo.RequestedInvestigation], error)
	ChangeStatus(ctx context.Context, scope *reqctx.Scope, patientID, id uuid.UUID, status string) (*repo.RequestedInvestigation, error)

	Report(ctx context.Context, scope *reqctx.Scope, patientID, requestID uuid.UUID, req ReportRequest) (*repo.InvestigationReport, error)
	GetReport(ctx context.Context, scope *reqctx.Scope, patientID, id uuid.UUID) (*repo.InvestigationReport, error)
	ListReports(ctx context.Context, scope *reqctx.Scope, patientID uuid.UUID, pg repo.Page) (*repo.Paginated[repo.InvestigationReport], error)
	ExportReport(ctx context.Context, scope *reqctx.Scope, patientID, id uuid.UUID, w io.Writer) error
}

// ---------------------------------------------------------------------------
// Flags
// ---------------------------------------------------------------------------

// Flag grades a result against a parameter's normal range. Non-numeric
// values and parameters without any bound are unknown.
func Flag(value string, min, max *float64) string {
	if min == nil && max == nil {
		return FlagUnknown
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return FlagUnknown
	}
	switch {
	case min != nil && v < *min:
		return FlagLow
	case max != nil && v > *max:
		return FlagHigh
	}
	return FlagNormal
}

func formatRange(min, max *float64) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	switch {
	case min != nil && max != nil:
		return f(*min) + " - " + f(*max)
	case min != nil:
		return ">= " + f(*min)
	case max != nil:
		return "<= " + f(*max)
	}
	return ""
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type investigationService struct {
	store    Store
	patients Patients
	users    Users
	orgs     Organisations
	pub      events.Publisher
}

func New(store Store, patients Patients, users Users, orgs Organisations, pub events.Publisher) Service {
	return &investigationService{store: store, patients: patients, users: users, orgs: orgs, pub: pub}
}

func (s *investigationService) Request(ctx context.Context, scope *reqctx.Scope, patientID uuid.UUID, req RequestBatch) ([]repo.RequestedInvestigation, error) {
	ids := lo.Uniq(req.TestIDs)
	if len(ids) == 0 {
		return nil, ErrNoTests
	}
	priority := lo.Ternary(req.Priority == "", PriorityRoutine, req.Priority)
	if !lo.Contains([]string{PriorityRoutine, PriorityUrgent, PriorityStat}, priority) {
		return nil, ErrInvalidPriority
	}
	p, err := s.patient(ctx, scope, patientID)
	if err != nil {
		return nil, err
	}

	batch := make([]repo.RequestedInvestigation, 0, len(ids))
	for _, id := range ids {
		t, err := s.test(ctx, scope, id)
		if err != nil {
			return nil, err
		}
		batch = append(batch, repo.RequestedInvestigation{
			PatientID:      p.ID,
			OrganisationID: p.OrganisationID,
			TestID:         t.ID,
			TestName:       t.Name,
			RequestedBy:    scope.UserID,
			Priority:       priority,
			ClinicalInfo:   strings.TrimSpace(req.ClinicalInfo),
			Status:         repo.InvestigationRequested,
		})
	}

	if err := s.store.CreateRequests(ctx, batch); err != nil {
		return nil, fmt.Errorf("save requested investigations: %w", err)
	}
	return batch, nil
}

func (s *investigationService) GetRequest(ctx context.Context, scope *reqctx.Scope, patientID, id uuid.UUID) (*repo.RequestedInvestigation, error) {
	if _, err := s.patient(ctx, scope, patientID); err != nil {
		return nil, err
	}
	ri, err := s.store.GetRequest(ctx, patientID, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrRequestNotFound
	}
	return ri, err
}

func (s *investigationService) ListRequests(ctx context.Context, scope *reqctx.Scope, patientID uuid.UUID, status string, pg repo.Page) (*repo.Paginated[repo.RequestedInvestigation], error) {
	if status != "" && !isStatus(status) {
		return nil, ErrInvalidStatus
	}
	if _, err := s.patient(ctx, scope, patientID); err != nil {
		return nil, err
	}
	pg = pg.Normalize()
	items, total, err := s.store.ListRequests(ctx, patientID, status, pg)
	if err != nil {
		return nil, fmt.Errorf("list requested investigations: %w", err)
	}
	return repo.NewPaginated(items, total, pg), nil
}

// ChangeStatus handles the manual transitions. Reported is only reached by
// filing a report.
func (s *investigationService) ChangeStatus(ctx context.Context, scope *reqctx.Scope, patientID, id uuid.UUID, status string) (*repo.RequestedInvestigation, error) {
	if !isStatus(status) {
		return nil, ErrInvalidStatus
	}
	ri, err := s.GetRequest(ctx, scope, patientID, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(ri.Status, status) {
		return nil, ErrInvalidTransition
	}
	if err := s.store.SetRequestStatus(ctx, ri.ID, ri.Status, status); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("set investigation status: %w", err)
	}
	ri.Status = status
	return ri, nil
}

func (s *investigationService) Report(ctx context.Context, scope *reqctx.Scope, patientID, requestID uuid.UUID, req ReportRequest) (*repo.InvestigationReport, error) {
	if len(req.Values) == 0 {
		return nil, ErrNoValues
	}
	ri, err := s.GetRequest(ctx, scope, patientID, requestID)
	if err != nil {
		return nil, err
	}
	if !isOpen(ri.Status) {
		return nil, ErrAlreadyReported
	}

	params, err := s.store.ListParameters(ctx, ri.TestID)
	if err != nil {
		return nil, fmt.Errorf("load parameters: %w", err)
	}
	byID := lo.KeyBy(params, func(p repo.InvestigationParameter) uuid.UUID { return p.ID })

	values := make([]repo.ReportValue, 0, len(req.Values))
	for _, in := range req.Values {
		p, ok := byID[in.ParameterID]
		if !ok {
			return nil, ErrUnknownParameter
		}
		value := strings.TrimSpace(in.Value)
		values = append(values, repo.ReportValue{
			ParameterID:   p.ID,
			ParameterName: p.Name,
			Unit:          p.Unit,
			NormalMin:     p.NormalMin,
			NormalMax:     p.NormalMax,
			Value:         value,
			Flag:          Flag(value, p.NormalMin, p.NormalMax),
		})
	}

	rep := &repo.InvestigationReport{
		RequestedInvestigationID: ri.ID,
		PatientID:                ri.PatientID,
		OrganisationID:           ri.OrganisationID,
		TestName:                 ri.TestName,
		ReportedBy:               scope.UserID,
		Summary:                  strings.TrimSpace(req.Summary),
		Values:                   values,
	}
	if err := s.store.CreateReport(ctx, rep, ri.Status); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAlreadyReported
		}
		return nil, fmt.Errorf("create report: %w", err)
	}

	events.PublishAsync(ctx, s.pub, events.Subject(events.EntityInvestigation, events.EventReported, ri.ID), events.InvestigationReported{
		RequestID:      ri.ID,
		ReportID:       rep.ID,
		PatientID:      ri.PatientID,
		OrganisationID: ri.OrganisationID,
		RequestedBy:    ri.RequestedBy,
		TestName:       ri.TestName,
	})
	return rep, nil
}

func (s *investigationService) GetReport(ctx context.Context, scope *reqctx.Scope, patientID, id uuid.UUID) (*repo.InvestigationReport, error) {
	if _, err := s.patient(ctx, scope, patientID); err != nil {
		return nil, err
	}
	rep, err := s.store.GetReport(ctx, patientID, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrReportNotFound
	}
	return rep, err
}

func (s *investigationService) ListReports(ctx context.Context, scope *reqctx.Scope, patientID uuid.UUID, pg repo.Page) (*repo.Paginated[repo.InvestigationReport], error) {
	if _, err := s.patient(ctx, scope, patientID); err != nil {
		return nil, err
	}
	pg = pg.Normalize()
	items, total, err := s.store.ListReports(ctx, patientID, pg)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return repo.NewPaginated(items, total, pg), nil
}

func (s *investigationService) ExportReport(ctx context.Context, scope *reqctx.Scope, patientID, id uuid.UUID, w io.Writer) error {
	p, err := s.patient(ctx, scope, patientID)
	if err != nil {
		return err
	}
	rep, err := s.store.GetReport(ctx, patientID, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrReportNotFound
	}
	if err != nil {
		return err
	}

	doc := report.Document{
		Title:       rep.TestName,
		Patient:     strings.TrimSpace(p.FirstName + " " + p.LastName),
		HospitalNo:  p.HospitalNumber,
		DateOfBirth: p.DateOfBirth.Format("02 Jan 2006"),
		ReportedBy:  s.userName(ctx, rep.ReportedBy),
		ReportedAt:  rep.ReportedAt,
		Summary:     rep.Summary,
		Rows: lo.Map(rep.Values, func(v repo.ReportValue, _ int) report.Row {
			return report.Row{
				Parameter: v.ParameterName,
				Value:     v.Value,
				Unit:      v.Unit,
				Range:     formatRange(v.NormalMin, v.NormalMax),
				Flag:      v.Flag,
			}
		}),
	}
	if ri, err := s.store.GetRequest(ctx, patientID, rep.RequestedInvestigationID); err == nil {
		doc.RequestedBy = s.userName(ctx, ri.RequestedBy)
	}
	if org, err := s.orgs.Get(ctx, rep.OrganisationID); err == nil {
		doc.Organisation = org.Name
	}
	return report.Render(w, doc)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *investigationService) patient(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) (*repo.Patient, error) {
	p, err := s.patients.Get(ctx, scope, id)
	if errors.Is(err, patient.ErrPatientNotFound) {
		return nil, ErrPatientNotFound
	}
	return p, err
}

func (s *investigationService) test(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) (*repo.InvestigationTest, error) {
	owner, err := s.store.TestOwner(ctx, id)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && !visible(scope.OrgID, owner)) {
		return nil, ErrTestNotFound
	}
	if err != nil {
		return nil, err
	}
	t, err := s.store.GetTest(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrTestNotFound
	}
	return t, err
}

func (s *investigationService) userName(ctx context.Context, id uuid.UUID) string {
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return ""
	}
	return u.FullName()
}

func isStatus(s string) bool {
	switch s {
	case repo.InvestigationRequested, repo.InvestigationInProgress, repo.InvestigationReported, repo.InvestigationCancelled:
		return true
	}
	return false
}

func isOpen(status string) bool {
	return status == repo.InvestigationRequested || status == repo.InvestigationInProgress
}

func canTransition(from, to string) bool {
	switch to {
	case repo.InvestigationInProgress:
		return from == repo.InvestigationRequested
	case repo.InvestigationCancelled:
		return isOpen(from)
	}
	return false
}
