package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	PatientCategoryAdult      = "adult"
	PatientCategoryPaediatric = "paediatric"
	PatientCategoryMaternity  = "maternity"

	PatientStatusActive   = "active"
	PatientStatusArchived = "archived"
)

type Patient struct {
	ID                 uuid.UUID      `db:"id" json:"id"`
	OrganisationID     uuid.UUID      `db:"organisation_id" json:"organisation_id"`
	FirstName          string         `db:"first_name" json:"first_name"`
	LastName           string         `db:"last_name" json:"last_name"`
	DateOfBirth        time.Time      `db:"date_of_birth" json:"date_of_birth"`
	Gender             string         `db:"gender" json:"gender"`
	HospitalNumberEnc  string         `db:"hospital_number_enc" json:"-"`
	HospitalNumberHash *string        `db:"hospital_number_hash" json:"-"`
	HospitalNumber     string         `db:"-" json:"hospital_number"`
	Ward               string         `db:"ward" json:"ward"`
	Bed                string         `db:"bed" json:"bed"`
	Diagnosis          string         `db:"diagnosis" json:"diagnosis"`
	Allergies          pq.StringArray `db:"allergies" json:"allergies"`
	HeightCm           *float64       `db:"height_cm" json:"height_cm,omitempty"`
	WeightKg           *float64       `db:"weight_kg" json:"weight_kg,omitempty"`
	Category           string         `db:"category" json:"category"`
	Status             string         `db:"status" json:"status"`
	CreatedBy          *uuid.UUID     `db:"created_by" json:"created_by,omitempty"`
	DeletedAt          *time.Time     `db:"deleted_at" json:"-"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// AgeAt returns completed years and months between birth and t.
func (p *Patient) AgeAt(t time.Time) (years, months int) {
	dob := p.DateOfBirth
	months = (t.Year()-dob.Year())*12 + int(t.Month()) - int(dob.Month())
	if t.Day() < dob.Day() {
		months--
	}
	if months < 0 {
		months = 0
	}
	return months / 12, months
}

type PatientNote struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	AuthorID  uuid.UUID `db:"author_id" json:"author_id"`
	Title     string    `db:"title" json:"title"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type PatientAttachment struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PatientID      uuid.UUID `db:"patient_id" json:"patient_id"`
	OrganisationID uuid.UUID `db:"organisation_id" json:"organisation_id"`
	UploadedBy     uuid.UUID `db:"uploaded_by" json:"uploaded_by"`
	FileKey        string    `db:"file_key" json:"file_key"`
	FileName       string    `db:"file_name" json:"file_name"`
	ContentType    string    `db:"content_type" json:"content_type"`
	SizeBytes      int64     `db:"size_bytes" json:"size_bytes"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

type PatientFilter struct {
	Status   string
	Category string
	Ward     string
	Search   string
}

type PatientRepo struct {
	db *sqlx.DB
}

const patientColumns = `id, organisation_id, first_name, last_name, date_of_birth, gender,
	hospital_number_enc, hospital_number_hash, ward, bed, diagnosis, allergies, height_cm, weight_kg,
	category, status, created_by, deleted_at, created_at, updated_at`

func (r *PatientRepo) Create(ctx context.Context, p *Patient) error {
	now := time.Now().UTC()
	if p.ID == uuid.Nil {
		p.ID = uuid.Must(uuid.NewV7())
	}
	if p.Allergies == nil {
		p.Allergies = pq.StringArray{}
	}
	p.CreatedAt, p.UpdatedAt = now, now

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO patients (id, organisation_id, first_name, last_name, date_of_birth, gender,
		    hospital_number_enc, hospital_number_hash, ward, bed, diagnosis, allergies, height_cm, weight_kg,
		    category, status, created_by, created_at, updated_at)
		VALUES (:id, :organisation_id, :first_name, :last_name, :date_of_birth, :gender,
		    :hospital_number_enc, :hospital_number_hash, :ward, :bed, :diagnosis, :allergies, :height_cm, :weight_kg,
		    :category, :status, :created_by, :created_at, :updated_at)`, p)
	return mapErr(err)
}

// Get returns a non-deleted patient inside the organisation.
func (r *PatientRepo) Get(ctx context.Context, orgID, id uuid.UUID) (*Patient, error) {
	var p Patient
	err := r.db.GetContext(ctx, &p, `
		SELECT `+patientColumns+` FROM patients
		WHERE id = $1 AND organisation_id = $2 AND deleted_at IS NULL`, id, orgID)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r *PatientRepo) List(ctx context.Context, orgID uuid.UUID, f PatientFilter, pg Page) ([]Patient, int, error) {
	where := `WHERE organisation_id = $1 AND deleted_at IS NULL
		AND ($2 = '' OR status = $2)
		AND ($3 = '' OR category = $3)
		AND ($4 = '' OR ward = $4)
		AND ($5 = '' OR (first_name || ' ' || last_name) ILIKE '%' || $5 || '%')`
	args := []any{orgID, f.Status, f.Category, f.Ward, f.Search}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM patients `+where, args...); err != nil {
		return nil, 0, mapErr(err)
	}

	var out []Patient
	err := r.db.SelectContext(ctx, &out,
		`SELECT `+patientColumns+` FROM patients `+where+` ORDER BY last_name, first_name LIMIT $6 OFFSET $7`,
		append(args, pg.PerPage, pg.Offset())...)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	return out, total, nil
}

func (r *PatientRepo) Update(ctx context.Context, p *Patient) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE patients
		SET first_name = :first_name, last_name = :last_name, date_of_birth = :date_of_birth, gender = :gender,
		    hospital_number_enc = :hospital_number_enc, hospital_number_hash = :hospital_number_hash,
		    ward = :ward, bed = :bed, diagnosis = :diagnosis, allergies = :allergies,
		    height_cm = :height_cm, weight_kg = :weight_kg, category = :category, status = :status,
		    updated_at = :updated_at
		WHERE id = :id AND organisation_id = :organisation_id AND deleted_at IS NULL`, p)
	return requireAffected(res, err)
}

func (r *PatientRepo) SoftDelete(ctx context.Context, orgID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE patients SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND organisation_id = $2 AND deleted_at IS NULL`, id, orgID)
	return requireAffected(res, err)
}

// ---------------------------------------------------------------------------
// Notes
// ---------------------------------------------------------------------------

func (r *PatientRepo) CreateNote(ctx context.Context, n *PatientNote) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.Must(uuid.NewV7())
	}
	n.CreatedAt = time.Now().UTC()
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO patient_notes (id, patient_id, author_id, title, body, created_at)
		VALUES (:id, :patient_id, :author_id, :title, :body, :created_at)`, n)
	return mapErr(err)
}

func (r *PatientRepo) ListNotes(ctx context.Context, patientID uuid.UUID, pg Page) ([]PatientNote, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM patient_notes WHERE patient_id = $1`, patientID); err != nil {
		return nil, 0, mapErr(err)
	}
	var out []PatientNote
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, patient_id, author_id, title, body, created_at FROM patient_notes
		WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		patientID, pg.PerPage, pg.Offset())
	if err != nil {
		return nil, 0, mapErr(err)
	}
	return out, total, nil
}

func (r *PatientRepo) DeleteNote(ctx context.Context, patientID, noteID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM patient_notes WHERE id = $1 AND patient_id = $2`, noteID, patientID)
	return requireAffected(res, err)
}

// ---------------------------------------------------------------------------
// Attachments
// ---------------------------------------------------------------------------

const attachmentColumns = `id, patient_id, organisation_id, uploaded_by, file_key, file_name,
	content_type, size_bytes, created_at`

func (r *PatientRepo) CreateAttachment(ctx context.Context, a *PatientAttachment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.Must(uuid.NewV7())
	}
	a.CreatedAt = time.Now().UTC()
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO patient_attachments (`+attachmentColumns+`)
		VALUES (:id, :patient_id, :organisation_id, :uploaded_by, :file_key, :file_name,
		        :content_type, :size_bytes, :created_at)`, a)
	return mapErr(err)
}

func (r *PatientRepo) ListAttachments(ctx context.Context, patientID uuid.UUID) ([]PatientAttachment, error) {
	var out []PatientAttachment
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+attachmentColumns+` FROM patient_attachments
		WHERE patient_id = $1 ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (r *PatientRepo) GetAttachment(ctx context.Context, patientID, id uuid.UUID) (*PatientAttachment, error) {
	var a PatientAttachment
	err := r.db.GetContext(ctx, &a, `
		SELECT `+attachmentColumns+` FROM patient_attachments
		WHERE id = $1 AND patient_id = $2`, id, patientID)
	if err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

func (r *PatientRepo) DeleteAttachment(ctx context.Context, patientID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM patient_attachments WHERE id = $1 AND patient_id = $2`, id, patientID)
	return requireAffected(res, err)
}
