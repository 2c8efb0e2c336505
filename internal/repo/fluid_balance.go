package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	FluidIntake = "intake"
	FluidOutput = "output"
)

type FluidBalanceEntry struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PatientID      uuid.UUID `db:"patient_id" json:"patient_id"`
	OrganisationID uuid.UUID `db:"organisation_id" json:"organisation_id"`
	RecordedBy     uuid.UUID `db:"recorded_by" json:"recorded_by"`
	Direction      string    `db:"direction" json:"direction"`
	Route          string    `db:"route" json:"route"`
	VolumeMl       int       `db:"volume_ml" json:"volume_ml"`
	Notes          string    `db:"notes" json:"notes"`
	RecordedAt     time.Time `db:"recorded_at" json:"recorded_at"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// RouteTotal is the summed volume of one direction/route pair.
type RouteTotal struct {
	Direction string `db:"direction" json:"direction"`
	Route     string `db:"route" json:"route"`
	VolumeMl  int    `db:"volume_ml" json:"volume_ml"`
}

type FluidBalanceRepo struct {
	db *sqlx.DB
}

const fluidColumns = `id, patient_id, organisation_id, recorded_by, direction, route, volume_ml, notes,
	recorded_at, created_at`

func (r *FluidBalanceRepo) Create(ctx context.Context, e *FluidBalanceEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.Must(uuid.NewV7())
	}
	e.CreatedAt = time.Now().UTC()
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO fluid_balance_entries (`+fluidColumns+`)
		VALUES (:id, :patient_id, :organisation_id, :recorded_by, :direction, :route, :volume_ml, :notes,
		        :recorded_at, :created_at)`, e)
	return mapErr(err)
}

func (r *FluidBalanceRepo) List(ctx context.Context, patientID uuid.UUID, tr TimeRange, pg Page) ([]FluidBalanceEntry, int, error) {
	from, to := tr.args()
	where := `WHERE patient_id = $1
		AND ($2::timestamptz IS NULL OR recorded_at >= $2)
		AND ($3::timestamptz IS NULL OR recorded_at <= $3)`

	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM fluid_balance_entries `+where, patientID, from, to); err != nil {
		return nil, 0, mapErr(err)
	}

	var out []FluidBalanceEntry
	err := r.db.SelectContext(ctx, &out,
		`SELECT `+fluidColumns+` FROM fluid_balance_entries `+where+` ORDER BY recorded_at DESC LIMIT $4 OFFSET $5`,
		patientID, from, to, pg.PerPage, pg.Offset())
	if err != nil {
		return nil, 0, mapErr(err)
	}
	return out, total, nil
}

// Totals groups volumes by direction and route inside the window.
func (r *FluidBalanceRepo) Totals(ctx context.Context, patientID uuid.UUID, tr TimeRange) ([]RouteTotal, error) {
	from, to := tr.args()
	var out []RouteTotal
	err := r.db.SelectContext(ctx, &out, `
		SELECT direction, route, SUM(volume_ml)::int AS volume_ml
		FROM fluid_balance_entries
		WHERE patient_id = $1
		  AND ($2::timestamptz IS NULL OR recorded_at >= $2)
		  AND ($3::timestamptz IS NULL OR recorded_at <= $3)
		GROUP BY direction, route
		ORDER BY direction, route`, patientID, from, to)
	if err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (r *FluidBalanceRepo) Delete(ctx context.Context, patientID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM fluid_balance_entries WHERE id = $1 AND patient_id = $2`, id, patientID)
	return requireAffected(res, err)
}
