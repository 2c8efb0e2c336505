// Package activity records mutating API requests and lists them for
// organisation managers.
package activity

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/simward_backend/internal/repo"
	"github.com/Alijeyrad/simward_backend/pkg/reqctx"
)

// DefaultQueueSize bounds entries waiting to be written.
const DefaultQueueSize = 1024

var ErrInvalidRange = errors.New("from must not be after to")

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type ListRequest struct {
	UserID *uuid.UUID
	Entity string
	From   time.Time
	To     time.Time
	Page   repo.Page
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

// Store is satisfied by *repo.ActivityLogRepo.
type Store interface {
	Create(ctx context.Context, l *repo.ActivityLog) error
	List(ctx context.Context, f repo.ActivityLogFilter, pg repo.Page) ([]repo.ActivityLog, int, error)
}

// Metrics is satisfied by *observability.DomainMetrics.
type Metrics interface {
	ActivityDropped(ctx context.Context)
}

type Service interface {
	// Record queues an entry and never blocks; a full queue drops it.
	Record(l repo.ActivityLog)
	List(ctx context.Context, scope *reqctx.Scope, req ListRequest) (*repo.Paginated[repo.ActivityLog], error)

	Start()
	// Stop drains the queue until ctx ends.
	Stop(ctx context.Context) error
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type activityService struct {
	store   Store
	metrics Metrics
	queue   chan repo.ActivityLog
	wg      sync.WaitGroup
	once    sync.Once
}

func New(store Store, metrics Metrics, queueSize int) Service {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &activityService{store: store, metrics: metrics, queue: make(chan repo.ActivityLog, queueSize)}
}

func (s *activityService) Record(l repo.ActivityLog) {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	select {
	case s.queue <- l:
	default:
		slog.Warn("activity: queue full, dropping entry", "route", l.Route, "method", l.Method)
		if s.metrics != nil {
			s.metrics.ActivityDropped(context.Background())
		}
	}
}

func (s *activityService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for l := range s.queue {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := s.store.Create(ctx, &l); err != nil {
				slog.Warn("activity: write failed", "route", l.Route, "err", err)
			}
			cancel()
		}
	}()
}

func (s *activityService) Stop(ctx context.Context) error {
	s.once.Do(func() { close(s.queue) })

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// List is organisation-scoped; a superadmin without an organisation sees
// every entry.
func (s *activityService) List(ctx context.Context, scope *reqctx.Scope, req ListRequest) (*repo.Paginated[repo.ActivityLog], error) {
	if !req.From.IsZero() && !req.To.IsZero() && req.From.After(req.To) {
		return nil, ErrInvalidRange
	}
	f := repo.ActivityLogFilter{
		UserID:    req.UserID,
		Entity:    req.Entity,
		TimeRange: repo.TimeRange{From: req.From, To: req.To},
	}
	if scope.HasOrg() {
		orgID := scope.OrgID
		f.OrganisationID = &orgID
	}

	pg := req.Page.Normalize()
	items, total, err := s.store.List(ctx, f, pg)
	if err != nil {
		return nil, err
	}
	return repo.NewPaginated(items, total, pg), nil
}
