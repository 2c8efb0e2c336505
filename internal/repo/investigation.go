package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	InvestigationRequested  = "requested"
	InvestigationInProgress = "in_progress"
	InvestigationReported   = "reported"
	InvestigationCancelled  = "cancelled"
)

type InvestigationCategory struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	OrganisationID *uuid.UUID `db:"organisation_id" json:"organisation_id,omitempty"`
	ParentID       *uuid.UUID `db:"parent_id" json:"parent_id,omitempty"`
	Name           string     `db:"name" json:"name"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

type InvestigationTest struct {
	ID         uuid.UUID `db:"id" json:"id"`
	CategoryID uuid.UUID `db:"category_id" json:"category_id"`
	Name       string    `db:"name" json:"name"`
	Specimen   string    `db:"specimen" json:"specimen"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type InvestigationParameter struct {
	ID        uuid.UUID `db:"id" json:"id"`
	TestID    uuid.UUID `db:"test_id" json:"test_id"`
	Name      string    `db:"name" json:"name"`
	Unit      string    `db:"unit" json:"unit"`
	NormalMin *float64  `db:"normal_min" json:"normal_min,omitempty"`
	NormalMax *float64  `db:"normal_max" json:"normal_max,omitempty"`
	SortOrder int       `db:"sort_order" json:"sort_order"`
}

// InvestigationCatalog is the flat hierarchy visible to one organisation.
type InvestigationCatalog struct {
	Categories []InvestigationCategory
	Tests      []InvestigationTest
	Parameters []InvestigationParameter
}

type RequestedInvestigation struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PatientID      uuid.UUID `db:"patient_id" json:"patient_id"`
	OrganisationID uuid.UUID `db:"organisation_id" json:"organisation_id"`
	TestID         uuid.UUID `db:"test_id" json:"test_id"`
	TestName       string    `db:"test_name" json:"test_name"`
	RequestedBy    uuid.UUID `db:"requested_by" json:"requested_by"`
	Priority       string    `db:"priority" json:"priority"`
	ClinicalInfo   string    `db:"clinical_info" json:"clinical_info"`
	Status         string    `db:"status" json:"status"`
	RequestedAt    time.Time `db:"requested_at" json:"requested_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

type InvestigationReport struct {
	ID                       uuid.UUID     `db:"id" json:"id"`
	RequestedInvestigationID uuid.UUID     `db:"requested_investigation_id" json:"requested_investigation_id"`
	PatientID                uuid.UUID     `db:"patient_id" json:"patient_id"`
	OrganisationID           uuid.UUID     `db:"organisation_id" json:"organisation_id"`
	TestName                 string        `db:"test_name" json:"test_name"`
	ReportedBy               uuid.UUID     `db:"reported_by" json:"reported_by"`
	Summary                  string        `db:"summary" json:"summary"`
	ReportedAt               time.Time     `db:"reported_at" json:"reported_at"`
	Values                   []ReportValue `db:"-" json:"values"`
}

type ReportValue struct {
	ID            uuid.UUID `db:"id" json:"id"`
	ReportID      uuid.UUID `db:"report_id" json:"report_id"`
	ParameterID   uuid.UUID `db:"parameter_id" json:"parameter_id"`
	ParameterName string    `db:"parameter_name" json:"parameter_name"`
	Unit          string    `db:"unit" json:"unit"`
	NormalMin     *float64  `db:"normal_min" json:"normal_min,omitempty"`
	NormalMax     *float64  `db:"normal_max" json:"normal_max,omitempty"`
	Value         string    `db:"value" json:"value"`
	Flag          string    `db:"flag" json:"flag"`
}

type InvestigationRepo struct {
	db *sqlx.DB
}

// ---------------------------------------------------------------------------
// Catalogue
// ---------------------------------------------------------------------------

func (r *InvestigationRepo) CreateCategory(ctx context.Context, c *InvestigationCategory) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.Must(uuid.NewV7())
	}
	c.CreatedAt = time.Now().UTC()
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO investigation_categories (id, organisation_id, parent_id, name, created_at)
		VALUES (:id, :organisation_id, :parent_id, :name, :created_at)`, c)
	return mapErr(err)
}

func (r *InvestigationRepo) GetCategory(ctx context.Context, id uuid.UUID) (*InvestigationCategory, error) {
	var c InvestigationCategory
	err := r.db.GetContext(ctx, &c, `
		SELECT id, organisation_id, parent_id, name, created_at
		FROM investigation_categories WHERE id = $1`, id)
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (r *InvestigationRepo) RenameCategory(ctx context.Context, id uuid.UUID, name string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE investigation_categories SET name = $2 WHERE id = $1`, id, name)
	return requireAffected(res, err)
}

func (r *InvestigationRepo) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM investigation_categories WHERE id = $1`, id)
	return requireAffected(res, err)
}

func (r *InvestigationRepo) CreateTest(ctx context.Context, t *InvestigationTest) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.Must(uuid.NewV7())
	}
	t.CreatedAt = time.Now().UTC()
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO investigation_tests (id, category_id, name, specimen, created_at)
		VALUES (:id, :category_id, :name, :specimen, :created_at)`, t)
	return mapErr(err)
}

func (r *InvestigationRepo) GetTest(ctx context.Context, id uuid.UUID) (*InvestigationTest, error) {
	var t InvestigationTest
	err := r.db.GetContext(ctx, &t,
		`SELECT id, category_id, name, specimen, created_at FROM investigation_tests WHERE id = $1`, id)
	if err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func (r *InvestigationRepo) DeleteTest(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM investigation_tests WHERE id = $1`, id)
	return requireAffected(res, err)
}

// TestOwner resolves the organisation owning the test's category.
func (r *InvestigationRepo) TestOwner(ctx context.Context, testID uuid.UUID) (*uuid.UUID, error) {
	var owner *uuid.UUID
	err := r.db.GetContext(ctx, &owner, `
		SELECT c.organisation_id FROM investigation_tests t
		JOIN investigation_categories c ON c.id = t.category_id
		WHERE t.id = $1`, testID)
	if err != nil {
		return nil, mapErr(err)
	}
	return owner, nil
}

func (r *InvestigationRepo) CreateParameter(ctx context.Context, p *InvestigationParameter) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.Must(uuid.NewV7())
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO investigation_parameters (id, test_id, name, unit, normal_min, normal_max, sort_order)
		VALUES (:id, :test_id, :name, :unit, :normal_min, :normal_max, :sort_order)`, p)
	return mapErr(err)
}

func (r *InvestigationRepo) ListParameters(ctx context.Context, testID uuid.UUID) ([]InvestigationParameter, error) {
	var out []InvestigationParameter
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, test_id, name, unit, normal_min, normal_max, sort_order
		FROM investigation_parameters WHERE test_id = $1 ORDER BY sort_order, name`, testID)
	if err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (r *InvestigationRepo) DeleteParameter(ctx context.Context, testID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM investigation_parameters WHERE id = $1 AND test_id = $2`, id, testID)
	return requireAffected(res, err)
}

// Catalog loads global entries plus the organisation's own entries.
func (r *InvestigationRepo) Catalog(ctx context.Context, orgID uuid.UUID) (*InvestigationCatalog, error) {
	var c InvestigationCatalog
	if err := r.db.SelectContext(ctx, &c.Categories, `
		SELECT id, organisation_id, parent_id, name, created_at FROM investigation_categories
		WHERE organisation_id IS NULL OR organisation_id = $1
		ORDER BY name`, orgID); err != nil {
		return nil, mapErr(err)
	}
	if err := r.db.SelectContext(ctx, &c.Tests, `
		SELECT t.id, t.category_id, t.name, t.specimen, t.created_at FROM investigation_tests t
		JOIN investigation_categories c ON c.id = t.category_id
		WHERE c.organisation_id IS NULL OR c.organisation_id = $1
		ORDER BY t.name`, orgID); err != nil {
		return nil, mapErr(err)
	}
	if err := r.db.SelectContext(ctx, &c.Parameters, `
		SELECT p.id, p.test_id, p.name, p.unit, p.normal_min, p.normal_max, p.sort_order
		FROM investigation_parameters p
		JOIN investigation_tests t ON t.id = p.test_id
		JOIN investigation_categories c ON c.id = t.category_id
		WHERE c.organisation_id IS NULL OR c.organisation_id = $1
		ORDER BY p.sort_order, p.name`, orgID); err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

// ---------------------------------------------------------------------------
// Requests
// ---------------------------------------------------------------------------

const requestedSelect = `
	SELECT r.id, r.patient_id, r.organisation_id, r.test_id, t.name AS test_name, r.requested_by,
	       r.priority, r.clinical_info, r.status, r.requested_at, r.updated_at
	FROM requested_investigations r
	JOIN investigation_tests t ON t.id = r.test_id `

// CreateRequests stores the batch atomically.
func (r *InvestigationRepo) CreateRequests(ctx context.Context, reqs []RequestedInvestigation) error {
	now := time.Now().UTC()
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for i := range reqs {
			if reqs[i].ID == uuid.Nil {
				reqs[i].ID = uuid.Must(uuid.NewV7())
			}
			if reqs[i].Status == "" {
				reqs[i].Status = InvestigationRequested
			}
			reqs[i].RequestedAt, reqs[i].UpdatedAt = now, now
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO requested_investigations (id, patient_id, organisation_id, test_id, requested_by,
				    priority, clinical_info, status, requested_at, updated_at)
				VALUES (:id, :patient_id, :organisation_id, :test_id, :requested_by,
				    :priority, :clinical_info, :status, :requested_at, :updated_at)`, reqs[i]); err != nil {
				return mapErr(err)
			}
		}
		return nil
	})
}

func (r *InvestigationRepo) GetRequest(ctx context.Context, patientID, id uuid.UUID) (*RequestedInvestigation, error) {
	var ri RequestedInvestigation
	err := r.db.GetContext(ctx, &ri, requestedSelect+`WHERE r.id = $1 AND r.patient_id = $2`, id, patientID)
	if err != nil {
		return nil, mapErr(err)
	}
	return &ri, nil
}

func (r *InvestigationRepo) ListRequests(ctx context.Context, patientID uuid.UUID, status string, pg Page) ([]RequestedInvestigation, int, error) {
	where := `WHERE r.patient_id = $1 AND ($2 = '' OR r.status = $2)`

	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM requested_investigations r `+where, patientID, status); err != nil {
		return nil, 0, mapErr(err)
	}

	var out []RequestedInvestigation
	err := r.db.SelectContext(ctx, &out,
		requestedSelect+where+` ORDER BY r.requested_at DESC LIMIT $3 OFFSET $4`,
		patientID, status, pg.PerPage, pg.Offset())
	if err != nil {
		return nil, 0, mapErr(err)
	}
	return out, total, nil
}

// SetRequestStatus moves a request only when it is still in from.
func (r *InvestigationRepo) SetRequestStatus(ctx context.Context, id uuid.UUID, from, to string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE requested_investigations SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`, id, from, to)
	return requireAffected(res, err)
}

// ---------------------------------------------------------------------------
// Reports
// ---------------------------------------------------------------------------

// CreateReport stores the report and its values and marks the request
// reported in one transaction. fromStatus guards concurrent reporting.
func (r *InvestigationRepo) CreateReport(ctx context.Context, rep *InvestigationReport, fromStatus string) error {
	if rep.ID == uuid.Nil {
		rep.ID = uuid.Must(uuid.NewV7())
	}
	rep.ReportedAt = time.Now().UTC()

	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE requested_investigations SET status = $3, updated_at = NOW()
			WHERE id = $1 AND status = $2`, rep.RequestedInvestigationID, fromStatus, InvestigationReported)
		if err := requireAffected(res, err); err != nil {
			return err
		}

		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO investigation_reports (id, requested_investigation_id, patient_id, organisation_id,
			    reported_by, summary, reported_at)
			VALUES (:id, :requested_investigation_id, :patient_id, :organisation_id,
			    :reported_by, :summary, :reported_at)`, rep); err != nil {
			return mapErr(err)
		}

		for i := range rep.Values {
			v := &rep.Values[i]
			if v.ID == uuid.Nil {
				v.ID = uuid.Must(uuid.NewV7())
			}
			v.ReportID = rep.ID
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO investigation_report_values (id, report_id, parameter_id, value, flag)
				VALUES (:id, :report_id, :parameter_id, :value, :flag)`, v); err != nil {
				return mapErr(err)
			}
		}
		return nil
	})
}

const reportSelect = `
	SELECT rp.id, rp.requested_investigation_id, rp.patient_id, rp.organisation_id, t.name AS test_name,
	       rp.reported_by, rp.summary, rp.reported_at
	FROM investigation_reports rp
	JOIN requested_investigations r ON r.id = rp.requested_investigation_id
	JOIN investigation_tests t ON t.id = r.test_id `

// GetReport returns the report with its values in parameter order.
func (r *InvestigationRepo) GetReport(ctx context.Context, patientID, id uuid.UUID) (*InvestigationReport, error) {
	var rep InvestigationReport
	if err := r.db.GetContext(ctx, &rep, reportSelect+`WHERE rp.id = $1 AND rp.patient_id = $2`, id, patientID); err != nil {
		return nil, mapErr(err)
	}
	if err := r.db.SelectContext(ctx, &rep.Values, `
		SELECT v.id, v.report_id, v.parameter_id, p.name AS parameter_name, p.unit, p.normal_min, p.normal_max,
		       v.value, v.flag
		FROM investigation_report_values v
		JOIN investigation_parameters p ON p.id = v.parameter_id
		WHERE v.report_id = $1
		ORDER BY p.sort_order, p.name`, rep.ID); err != nil {
		return nil, mapErr(err)
	}
	return &rep, nil
}

// ListReports returns report headers without values.
func (r *InvestigationRepo) ListReports(ctx context.Context, patientID uuid.UUID, pg Page) ([]InvestigationReport, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM investigation_reports WHERE patient_id = $1`, patientID); err != nil {
		return nil, 0, mapErr(err)
	}
	var out []InvestigationReport
	err := r.db.SelectContext(ctx, &out,
		reportSelect+`WHERE rp.patient_id = $1 ORDER BY rp.reported_at DESC LIMIT $2 OFFSET $3`,
		patientID, pg.PerPage, pg.Offset())
	if err != nil {
		return nil, 0, mapErr(err)
	}
	return out, total, nil
}
