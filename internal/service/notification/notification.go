package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/Alijeyrad/simward_backend/internal/repo"
	"github.com/Alijeyrad/simward_backend/pkg/reqctx"
)

// Notification types, one per domain event that produces them.
const (
	TypeWelcome               = "welcome"
	TypeObservationEscalated  = "observation_escalated"
	TypeInvestigationReported = "investigation_reported"
	TypeSessionStarted        = "session_started"
	TypeSessionEnded          = "session_ended"
	TypePaymentReceived       = "payment_received"
	TypePaymentFailed         = "payment_failed"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

// Content is one notification fanned out to several recipients.
type Content struct {
	OrganisationID *uuid.UUID
	Type           string
	Title          string
	Body           string
	Data           map[string]string
}

type ListRequest struct {
	UnreadOnly bool
	Page       repo.Page
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

// Store is satisfied by *repo.NotificationRepo.
type Store interface {
	CreateMany(ctx context.Context, ns []repo.Notification) error
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, pg repo.Page) ([]repo.Notification, int, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type Service interface {
	// Notify stores one notification per distinct recipient.
	Notify(ctx context.Context, recipients []uuid.UUID, c Content) (int, error)

	List(ctx context.Context, scope *reqctx.Scope, req ListRequest) (*repo.Paginated[repo.Notification], error)
	UnreadCount(ctx context.Context, scope *reqctx.Scope) (int, error)
	MarkRead(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) error
	MarkAllRead(ctx context.Context, scope *reqctx.Scope) (int64, error)
	Delete(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) error
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type notificationService struct {
	store Store
}

func New(store Store) Service {
	return &notificationService{store: store}
}

func (s *notificationService) Notify(ctx context.Context, recipients []uuid.UUID, c Content) (int, error) {
	title := strings.TrimSpace(c.Title)
	if title == "" {
		return 0, ErrTitleRequired
	}
	ids := lo.Uniq(lo.Without(recipients, uuid.Nil))
	if len(ids) == 0 {
		return 0, nil
	}
	data := lo.Ternary(c.Data == nil, map[string]string{}, c.Data)

	ns := lo.Map(ids, func(id uuid.UUID, _ int) repo.Notification {
		return repo.Notification{
			UserID:         id,
			OrganisationID: c.OrganisationID,
			Type:           c.Type,
			Title:          title,
			Body:           c.Body,
			Data:           repo.NewJSONB(data),
		}
	})
	if err := s.store.CreateMany(ctx, ns); err != nil {
		return 0, fmt.Errorf("create notifications: %w", err)
	}
	return len(ns), nil
}

func (s *notificationService) List(ctx context.Context, scope *reqctx.Scope, req ListRequest) (*repo.Paginated[repo.Notification], error) {
	pg := req.Page.Normalize()
	items, total, err := s.store.List(ctx, scope.UserID, req.UnreadOnly, pg)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return repo.NewPaginated(items, total, pg), nil
}

func (s *notificationService) UnreadCount(ctx context.Context, scope *reqctx.Scope) (int, error) {
	return s.store.UnreadCount(ctx, scope.UserID)
}

func (s *notificationService) MarkRead(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) error {
	err := s.store.MarkRead(ctx, scope.UserID, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *notificationService) MarkAllRead(ctx context.Context, scope *reqctx.Scope) (int64, error) {
	return s.store.MarkAllRead(ctx, scope.UserID)
}

func (s *notificationService) Delete(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) error {
	err := s.store.Delete(ctx, scope.UserID, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
