package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Alijeyrad/simward_backend/pkg/ews"
)

type Observation struct {
	ID                 uuid.UUID                   `db:"id" json:"id"`
	PatientID          uuid.UUID                   `db:"patient_id" json:"patient_id"`
	OrganisationID     uuid.UUID                   `db:"organisation_id" json:"organisation_id"`
	RecordedBy         uuid.UUID                   `db:"recorded_by" json:"recorded_by"`
	RespiratoryRate    *int                        `db:"respiratory_rate" json:"respiratory_rate,omitempty"`
	SpO2               *int                        `db:"spo2" json:"spo2,omitempty"`
	SpO2Scale          int                         `db:"spo2_scale" json:"spo2_scale"`
	OnOxygen           bool                        `db:"on_oxygen" json:"on_oxygen"`
	O2FlowLpm          *float64                    `db:"o2_flow_lpm" json:"o2_flow_lpm,omitempty"`
	SystolicBP         *int                        `db:"systolic_bp" json:"systolic_bp,omitempty"`
	DiastolicBP        *int                        `db:"diastolic_bp" json:"diastolic_bp,omitempty"`
	HeartRate          *int                        `db:"heart_rate" json:"heart_rate,omitempty"`
	Consciousness      string                      `db:"consciousness" json:"consciousness"`
	Temperature        *float64                    `db:"temperature" json:"temperature,omitempty"`
	CapillaryRefillSec *float64                    `db:"capillary_refill_sec" json:"capillary_refill_sec,omitempty"`
	PainScore          *int                        `db:"pain_score" json:"pain_score,omitempty"`
	BloodGlucose       *float64                    `db:"blood_glucose" json:"blood_glucose,omitempty"`
	Notes              string                      `db:"notes" json:"notes"`
	ScoreType          string                      `db:"score_type" json:"score_type"`
	ScoreTotal         int                         `db:"score_total" json:"score_total"`
	RiskLevel          string                      `db:"risk_level" json:"risk_level"`
	ClinicalResponse   string                      `db:"clinical_response" json:"clinical_response"`
	Breakdown          JSONB[[]ews.ParameterScore] `db:"breakdown" json:"breakdown"`
	Missing            pq.StringArray              `db:"missing" json:"missing"`
	RecordedAt         time.Time                   `db:"recorded_at" json:"recorded_at"`
	CreatedAt          time.Time                   `db:"created_at" json:"created_at"`
}

// ScorePoint is one entry of a patient's score trend.
type ScorePoint struct {
	ObservationID uuid.UUID `db:"id" json:"observation_id"`
	ScoreType     string    `db:"score_type" json:"score_type"`
	ScoreTotal    int       `db:"score_total" json:"score_total"`
	RiskLevel     string    `db:"risk_level" json:"risk_level"`
	RecordedAt    time.Time `db:"recorded_at" json:"recorded_at"`
}

// TimeRange bounds a time-series query; zero values are open ends.
type TimeRange struct {
	From time.Time
	To   time.Time
}

func (tr TimeRange) args() (from, to *time.Time) {
	if !tr.From.IsZero() {
		from = &tr.From
	}
	if !tr.To.IsZero() {
		to = &tr.To
	}
	return from, to
}

type ObservationRepo struct {
	db *sqlx.DB
}

const observationColumns = `id, patient_id, organisation_id, recorded_by, respiratory_rate, spo2, spo2_scale,
	on_oxygen, o2_flow_lpm, systolic_bp, diastolic_bp, heart_rate, consciousness, temperature,
	capillary_refill_sec, pain_score, blood_glucose, notes, score_type, score_total, risk_level,
	clinical_response, breakdown, missing, recorded_at, created_at`

func (r *ObservationRepo) Create(ctx context.Context, o *Observation) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.Must(uuid.NewV7())
	}
	if o.Missing == nil {
		o.Missing = pq.StringArray{}
	}
	o.CreatedAt = time.Now().UTC()

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO observations (`+observationColumns+`)
		VALUES (:id, :patient_id, :organisation_id, :recorded_by, :respiratory_rate, :spo2, :spo2_scale,
		    :on_oxygen, :o2_flow_lpm, :systolic_bp, :diastolic_bp, :heart_rate, :consciousness, :temperature,
		    :capillary_refill_sec, :pain_score, :blood_glucose, :notes, :score_type, :score_total, :risk_level,
		    :clinical_response, :breakdown, :missing, :recorded_at, :created_at)`, o)
	return mapErr(err)
}

func (r *ObservationRepo) Get(ctx context.Context, patientID, id uuid.UUID) (*Observation, error) {
	var o Observation
	err := r.db.GetContext(ctx, &o,
		`SELECT `+observationColumns+` FROM observations WHERE id = $1 AND patient_id = $2`, id, patientID)
	if err != nil {
		return nil, mapErr(err)
	}
	return &o, nil
}

func (r *ObservationRepo) List(ctx context.Context, patientID uuid.UUID, tr TimeRange, pg Page) ([]Observation, int, error) {
	from, to := tr.args()
	where := `WHERE patient_id = $1
		AND ($2::timestamptz IS NULL OR recorded_at >= $2)
		AND ($3::timestamptz IS NULL OR recorded_at <= $3)`

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM observations `+where, patientID, from, to); err != nil {
		return nil, 0, mapErr(err)
	}

	var out []Observation
	err := r.db.SelectContext(ctx, &out,
		`SELECT `+observationColumns+` FROM observations `+where+` ORDER BY recorded_at DESC LIMIT $4 OFFSET $5`,
		patientID, from, to, pg.PerPage, pg.Offset())
	if err != nil {
		return nil, 0, mapErr(err)
	}
	return out, total, nil
}

func (r *ObservationRepo) Latest(ctx context.Context, patientID uuid.UUID) (*Observation, error) {
	var o Observation
	err := r.db.GetContext(ctx, &o, `
		SELECT `+observationColumns+` FROM observations
		WHERE patient_id = $1 ORDER BY recorded_at DESC LIMIT 1`, patientID)
	if err != nil {
		return nil, mapErr(err)
	}
	return &o, nil
}

// Trend returns score points in chronological order.
func (r *ObservationRepo) Trend(ctx context.Context, patientID uuid.UUID, tr TimeRange, limit int) ([]ScorePoint, error) {
	from, to := tr.args()
	var out []ScorePoint
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, score_type, score_total, risk_level, recorded_at FROM (
			SELECT id, score_type, score_total, risk_level, recorded_at FROM observations
			WHERE patient_id = $1
			  AND ($2::timestamptz IS NULL OR recorded_at >= $2)
			  AND ($3::timestamptz IS NULL OR recorded_at <= $3)
			ORDER BY recorded_at DESC LIMIT $4
		) t ORDER BY recorded_at ASC`, patientID, from, to, limit)
	if err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (r *ObservationRepo) Delete(ctx context.Context, patientID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM observations WHERE id = $1 AND patient_id = $2`, id, patientID)
	return requireAffected(res, err)
}
