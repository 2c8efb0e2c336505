package organisation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Alijeyrad/simward_backend/internal/repo"
	"github.com/Alijeyrad/simward_backend/pkg/util/phone"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type CreateRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Plan    string `json:"plan"`
}

type UpdateRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
	LogoKey *string `json:"logo_key"`
}

type ListRequest struct {
	Search         string
	IncludeDeleted bool
	Page           repo.Page
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

// Store is the persistence the service needs; *repo.OrganisationRepo satisfies it.
type Store interface {
	Create(ctx context.Context, o *repo.Organisation) error
	Get(ctx context.Context, id uuid.UUID) (*repo.Organisation, error)
	List(ctx context.Context, f repo.OrganisationFilter, p repo.Page) ([]repo.OrganisationWithCounts, int, error)
	Update(ctx context.Context, o *repo.Organisation) error
	SetDeleted(ctx context.Context, id uuid.UUID, deleted bool) error
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*repo.Organisation, error)
	Get(ctx context.Context, id uuid.UUID) (*repo.Organisation, error)
	List(ctx context.Context, req ListRequest) (*repo.Paginated[repo.OrganisationWithCounts], error)
	Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*repo.Organisation, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Recover(ctx context.Context, id uuid.UUID) error
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type organisationService struct {
	store Store
}

func New(store Store) Service {
	return &organisationService{store: store}
}

func (s *organisationService) Create(ctx context.Context, req CreateRequest) (*repo.Organisation, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	plan := req.Plan
	if plan == "" {
		plan = repo.PlanStarter
	}
	if !repo.IsValidPlan(plan) {
		return nil, ErrInvalidPlan
	}
	tel, err := phone.Normalize(req.Phone, "")
	if err != nil {
		return nil, ErrInvalidPhone
	}

	o := &repo.Organisation{
		Name:    name,
		Email:   strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:   tel,
		Address: strings.TrimSpace(req.Address),
		Plan:    plan,
	}
	if err := s.store.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create organisation: %w", err)
	}
	return o, nil
}

func (s *organisationService) Get(ctx context.Context, id uuid.UUID) (*repo.Organisation, error) {
	o, err := s.store.Get(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrOrganisationNotFound
	}
	return o, err
}

func (s *organisationService) List(ctx context.Context, req ListRequest) (*repo.Paginated[repo.OrganisationWithCounts], error) {
	pg := req.Page.Normalize()
	rows, total, err := s.store.List(ctx, repo.OrganisationFilter{
		Search:         strings.TrimSpace(req.Search),
		IncludeDeleted: req.IncludeDeleted,
	}, pg)
	if err != nil {
		return nil, fmt.Errorf("list organisations: %w", err)
	}
	return repo.NewPaginated(rows, total, pg), nil
}

func (s *organisationService) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*repo.Organisation, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		o.Name = name
	}
	if req.Email != nil {
		o.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Phone != nil {
		tel, err := phone.Normalize(*req.Phone, "")
		if err != nil {
			return nil, ErrInvalidPhone
		}
		o.Phone = tel
	}
	if req.Address != nil {
		o.Address = strings.TrimSpace(*req.Address)
	}
	if req.LogoKey != nil {
		o.LogoKey = req.LogoKey
	}

	if err := s.store.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("update organisation: %w", err)
	}
	return o, nil
}

// Delete sets org_delete. Members keep their rows but can no longer sign in.
func (s *organisationService) Delete(ctx context.Context, id uuid.UUID) error {
	o, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if o.OrgDelete {
		return ErrAlreadyDeleted
	}
	return s.store.SetDeleted(ctx, id, true)
}

func (s *organisationService) Recover(ctx context.Context, id uuid.UUID) error {
	o, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !o.OrgDelete {
		return ErrNotDeleted
	}
	return s.store.SetDeleted(ctx, id, false)
}
