package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type DrugGroup struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	OrganisationID *uuid.UUID `db:"organisation_id" json:"organisation_id,omitempty"`
	Name           string     `db:"name" json:"name"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

type DrugSubGroup struct {
	ID        uuid.UUID `db:"id" json:"id"`
	GroupID   uuid.UUID `db:"group_id" json:"group_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type DrugType struct {
	ID           uuid.UUID `db:"id" json:"id"`
	SubGroupID   uuid.UUID `db:"sub_group_id" json:"sub_group_id"`
	Name         string    `db:"name" json:"name"`
	Form         string    `db:"form" json:"form"`
	Strength     string    `db:"strength" json:"strength"`
	DefaultRoute string    `db:"default_route" json:"default_route"`
	DefaultUnit  string    `db:"default_unit" json:"default_unit"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// DrugCatalog is the flat content of the hierarchy visible to one
// organisation; the service nests it.
type DrugCatalog struct {
	Groups    []DrugGroup
	SubGroups []DrugSubGroup
	Types     []DrugType
}

type DrugRepo struct {
	db *sqlx.DB
}

// ---------------------------------------------------------------------------
// Groups
// ---------------------------------------------------------------------------

func (r *DrugRepo) CreateGroup(ctx context.Context, g *DrugGroup) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.Must(uuid.NewV7())
	}
	g.CreatedAt = time.Now().UTC()
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO drug_groups (id, organisation_id, name, created_at)
		VALUES (:id, :organisation_id, :name, :created_at)`, g)
	return mapErr(err)
}

func (r *DrugRepo) GetGroup(ctx context.Context, id uuid.UUID) (*DrugGroup, error) {
	var g DrugGroup
	err := r.db.GetContext(ctx, &g,
		`SELECT id, organisation_id, name, created_at FROM drug_groups WHERE id = $1`, id)
	if err != nil {
		return nil, mapErr(err)
	}
	return &g, nil
}

func (r *DrugRepo) RenameGroup(ctx context.Context, id uuid.UUID, name string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE drug_groups SET name = $2 WHERE id = $1`, id, name)
	return requireAffected(res, err)
}

// DeleteGroup fails with ErrInUse while sub-groups remain.
func (r *DrugRepo) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM drug_groups WHERE id = $1`, id)
	return requireAffected(res, err)
}

// ---------------------------------------------------------------------------
// Sub-groups
// ---------------------------------------------------------------------------

func (r *DrugRepo) CreateSubGroup(ctx context.Context, s *DrugSubGroup) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.Must(uuid.NewV7())
	}
	s.CreatedAt = time.Now().UTC()
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO drug_sub_groups (id, group_id, name, created_at)
		VALUES (:id, :group_id, :name, :created_at)`, s)
	return mapErr(err)
}

func (r *DrugRepo) GetSubGroup(ctx context.Context, id uuid.UUID) (*DrugSubGroup, error) {
	var s DrugSubGroup
	err := r.db.GetContext(ctx, &s,
		`SELECT id, group_id, name, created_at FROM drug_sub_groups WHERE id = $1`, id)
	if err != nil {
		return nil, mapErr(err)
	}
	return &s, nil
}

func (r *DrugRepo) RenameSubGroup(ctx context.Context, id uuid.UUID, name string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE drug_sub_groups SET name = $2 WHERE id = $1`, id, name)
	return requireAffected(res, err)
}

func (r *DrugRepo) DeleteSubGroup(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM drug_sub_groups WHERE id = $1`, id)
	return requireAffected(res, err)
}

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

const drugTypeColumns = `id, sub_group_id, name, form, strength, default_route, default_unit, created_at`

func (r *DrugRepo) CreateType(ctx context.Context, t *DrugType) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.Must(uuid.NewV7())
	}
	t.CreatedAt = time.Now().UTC()
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO drug_types (`+drugTypeColumns+`)
		VALUES (:id, :sub_group_id, :name, :form, :strength, :default_route, :default_unit, :created_at)`, t)
	return mapErr(err)
}

func (r *DrugRepo) GetType(ctx context.Context, id uuid.UUID) (*DrugType, error) {
	var t DrugType
	err := r.db.GetContext(ctx, &t, `SELECT `+drugTypeColumns+` FROM drug_types WHERE id = $1`, id)
	if err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func (r *DrugRepo) UpdateType(ctx context.Context, t *DrugType) error {
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE drug_types
		SET name = :name, form = :form, strength = :strength,
		    default_route = :default_route, default_unit = :default_unit
		WHERE id = :id`, t)
	return requireAffected(res, err)
}

// DeleteType fails with ErrInUse while prescriptions reference the drug.
func (r *DrugRepo) DeleteType(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM drug_types WHERE id = $1`, id)
	return requireAffected(res, err)
}

// TypeOwner resolves the organisation owning the group a type sits under.
// A nil owner means the entry is global.
func (r *DrugRepo) TypeOwner(ctx context.Context, typeID uuid.UUID) (*uuid.UUID, error) {
	var owner *uuid.UUID
	err := r.db.GetContext(ctx, &owner, `
		SELECT g.organisation_id FROM drug_types t
		JOIN drug_sub_groups s ON s.id = t.sub_group_id
		JOIN drug_groups g ON g.id = s.group_id
		WHERE t.id = $1`, typeID)
	if err != nil {
		return nil, mapErr(err)
	}
	return owner, nil
}

// Catalog loads every global entry plus the organisation's own entries.
func (r *DrugRepo) Catalog(ctx context.Context, orgID uuid.UUID) (*DrugCatalog, error) {
	var c DrugCatalog
	if err := r.db.SelectContext(ctx, &c.Groups, `
		SELECT id, organisation_id, name, created_at FROM drug_groups
		WHERE organisation_id IS NULL OR organisation_id = $1
		ORDER BY name`, orgID); err != nil {
		return nil, mapErr(err)
	}
	if err := r.db.SelectContext(ctx, &c.SubGroups, `
		SELECT s.id, s.group_id, s.name, s.created_at FROM drug_sub_groups s
		JOIN drug_groups g ON g.id = s.group_id
		WHERE g.organisation_id IS NULL OR g.organisation_id = $1
		ORDER BY s.name`, orgID); err != nil {
		return nil, mapErr(err)
	}
	if err := r.db.SelectContext(ctx, &c.Types, `
		SELECT t.id, t.sub_group_id, t.name, t.form, t.strength, t.default_route, t.default_unit, t.created_at
		FROM drug_types t
		JOIN drug_sub_groups s ON s.id = t.sub_group_id
		JOIN drug_groups g ON g.id = s.group_id
		WHERE g.organisation_id IS NULL OR g.organisation_id = $1
		ORDER BY t.name`, orgID); err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}
