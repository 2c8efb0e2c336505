package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	PrescriptionActive    = "active"
	PrescriptionHeld      = "held"
	PrescriptionStopped   = "stopped"
	PrescriptionCompleted = "completed"
)

type Prescription struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	OrganisationID uuid.UUID  `db:"organisation_id" json:"organisation_id"`
	DrugTypeID     uuid.UUID  `db:"drug_type_id" json:"drug_type_id"`
	DrugName       string     `db:"drug_name" json:"drug_name"`
	PrescribedBy   uuid.UUID  `db:"prescribed_by" json:"prescribed_by"`
	Dose           float64    `db:"dose" json:"dose"`
	Unit           string     `db:"unit" json:"unit"`
	Route          string     `db:"route" json:"route"`
	Frequency      string     `db:"frequency" json:"frequency"`
	PRN            bool       `db:"prn" json:"prn"`
	StartAt        time.Time  `db:"start_at" json:"start_at"`
	EndAt          *time.Time `db:"end_at" json:"end_at,omitempty"`
	Indication     string     `db:"indication" json:"indication"`
	Status         string     `db:"status" json:"status"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

type Administration struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PrescriptionID uuid.UUID `db:"prescription_id" json:"prescription_id"`
	AdministeredBy uuid.UUID `db:"administered_by" json:"administered_by"`
	Dose           float64   `db:"dose" json:"dose"`
	AdministeredAt time.Time `db:"administered_at" json:"administered_at"`
	Notes          string    `db:"notes" json:"notes"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

type PrescriptionRepo struct {
	db *sqlx.DB
}

const prescriptionSelect = `
	SELECT p.id, p.patient_id, p.organisation_id, p.drug_type_id, t.name AS drug_name, p.prescribed_by,
	       p.dose, p.unit, p.route, p.frequency, p.prn, p.start_at, p.end_at, p.indication, p.status,
	       p.created_at, p.updated_at
	FROM prescriptions p
	JOIN drug_types t ON t.id = p.drug_type_id `

func (r *PrescriptionRepo) Create(ctx context.Context, p *Prescription) error {
	now := time.Now().UTC()
	if p.ID == uuid.Nil {
		p.ID = uuid.Must(uuid.NewV7())
	}
	if p.Status == "" {
		p.Status = PrescriptionActive
	}
	p.CreatedAt, p.UpdatedAt = now, now

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO prescriptions (id, patient_id, organisation_id, drug_type_id, prescribed_by, dose, unit,
		    route, frequency, prn, start_at, end_at, indication, status, created_at, updated_at)
		VALUES (:id, :patient_id, :organisation_id, :drug_type_id, :prescribed_by, :dose, :unit,
		    :route, :frequency, :prn, :start_at, :end_at, :indication, :status, :created_at, :updated_at)`, p)
	return mapErr(err)
}

func (r *PrescriptionRepo) Get(ctx context.Context, patientID, id uuid.UUID) (*Prescription, error) {
	var p Prescription
	err := r.db.GetContext(ctx, &p, prescriptionSelect+`WHERE p.id = $1 AND p.patient_id = $2`, id, patientID)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r *PrescriptionRepo) List(ctx context.Context, patientID uuid.UUID, status string, pg Page) ([]Prescription, int, error) {
	where := `WHERE p.patient_id = $1 AND ($2 = '' OR p.status = $2)`

	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM prescriptions p `+where, patientID, status); err != nil {
		return nil, 0, mapErr(err)
	}

	var out []Prescription
	err := r.db.SelectContext(ctx, &out,
		prescriptionSelect+where+` ORDER BY p.start_at DESC LIMIT $3 OFFSET $4`,
		patientID, status, pg.PerPage, pg.Offset())
	if err != nil {
		return nil, 0, mapErr(err)
	}
	return out, total, nil
}

func (r *PrescriptionRepo) Update(ctx context.Context, p *Prescription) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE prescriptions
		SET dose = :dose, unit = :unit, route = :route, frequency = :frequency, prn = :prn,
		    start_at = :start_at, end_at = :end_at, indication = :indication, updated_at = :updated_at
		WHERE id = :id AND patient_id = :patient_id`, p)
	return requireAffected(res, err)
}

// SetStatus moves the prescription only when it is still in from.
func (r *PrescriptionRepo) SetStatus(ctx context.Context, id uuid.UUID, from, to string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE prescriptions SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`, id, from, to)
	return requireAffected(res, err)
}

func (r *PrescriptionRepo) Delete(ctx context.Context, patientID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM prescriptions WHERE id = $1 AND patient_id = $2`, id, patientID)
	return requireAffected(res, err)
}

// ---------------------------------------------------------------------------
// Administrations
// ---------------------------------------------------------------------------

func (r *PrescriptionRepo) CreateAdministration(ctx context.Context, a *Administration) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.Must(uuid.NewV7())
	}
	a.CreatedAt = time.Now().UTC()
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO medication_administrations (id, prescription_id, administered_by, dose, administered_at, notes, created_at)
		VALUES (:id, :prescription_id, :administered_by, :dose, :administered_at, :notes, :created_at)`, a)
	return mapErr(err)
}

func (r *PrescriptionRepo) ListAdministrations(ctx context.Context, prescriptionID uuid.UUID) ([]Administration, error) {
	var out []Administration
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, prescription_id, administered_by, dose, administered_at, notes, created_at
		FROM medication_administrations
		WHERE prescription_id = $1 ORDER BY administered_at DESC`, prescriptionID)
	if err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}
