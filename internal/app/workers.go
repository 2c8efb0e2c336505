package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/fx"

	"github.com/Alijeyrad/simward_backend/config"
	"github.com/Alijeyrad/simward_backend/internal/events"
	"github.com/Alijeyrad/simward_backend/internal/repo"
	"github.com/Alijeyrad/simward_backend/internal/service/billing"
	"github.com/Alijeyrad/simward_backend/internal/service/notification"
	"github.com/Alijeyrad/simward_backend/pkg/authorize"
	"github.com/Alijeyrad/simward_backend/pkg/email"
	"github.com/Alijeyrad/simward_backend/pkg/firebase"
)

// WorkerModule registers all NATS event workers.
var WorkerModule = fx.Module("workers",
	fx.Invoke(RegisterWorkers),
)

type WorkerParams struct {
	fx.In

	Lc       fx.Lifecycle
	Cfg      *config.Config
	NC       *nats.Conn
	DB       *repo.Client
	NotifSvc notification.Service
	Email    *email.Client
	IDP      *firebase.Client
}

func RegisterWorkers(p WorkerParams) {
	if p.NC == nil {
		slog.Info("workers: no nats connection, event workers disabled")
		return
	}
	w := &workers{
		users:    p.DB.Users,
		orgs:     p.DB.Organisations,
		sessions: p.DB.Sessions,
		notify:   p.NotifSvc,
		mailer:   p.Email,
		idp:      p.IDP,
		appName:  p.Cfg.Email.AppName,
		baseURL:  p.Cfg.Email.BaseURL,
	}
	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return w.subscribe(p.NC)
		},
		OnStop: func(ctx context.Context) error {
			// Drain handled by ProvideNatsClient
			return nil
		},
	})
}

// ---------------------------------------------------------------------------
// dependencies
// ---------------------------------------------------------------------------

type workerUsers interface {
	Get(ctx context.Context, id uuid.UUID) (*repo.User, error)
	ListIDsByRoles(ctx context.Context, orgID uuid.UUID, roles []string) ([]uuid.UUID, error)
}

type workerOrgs interface {
	Get(ctx context.Context, id uuid.UUID) (*repo.Organisation, error)
}

type workerSessions interface {
	ListParticipants(ctx context.Context, sessionID uuid.UUID) ([]repo.Participant, error)
}

type notifier interface {
	Notify(ctx context.Context, recipients []uuid.UUID, c notification.Content) (int, error)
}

type mailer interface {
	Send(ctx context.Context, m email.Message) error
}

type resetLinker interface {
	PasswordResetLink(ctx context.Context, email string) (string, error)
}

type workers struct {
	users    workerUsers
	orgs     workerOrgs
	sessions workerSessions
	notify   notifier
	mailer   mailer
	idp      resetLinker
	appName  string
	baseURL  string
}

var (
	staffRoles = []string{
		authorize.UserRoleAdmin,
		authorize.UserRoleAdministrator,
		authorize.UserRoleFaculty,
	}
	billingRoles = []string{
		authorize.UserRoleAdmin,
		authorize.UserRoleAdministrator,
	}
)

func (w *workers) subscribe(nc *nats.Conn) error {
	subs := []struct {
		entity, event string
		handle        func(ctx context.Context, data []byte) error
	}{
		{events.EntityUser, events.EventCreated, decoded(w.userCreated)},
		{events.EntityObservation, events.EventEscalated, decoded(w.observationEscalated)},
		{events.EntityInvestigation, events.EventReported, decoded(w.investigationReported)},
		{events.EntitySession, events.EventStarted, decoded(w.sessionChanged)},
		{events.EntitySession, events.EventEnded, decoded(w.sessionChanged)},
		{events.EntityPayment, events.EventReceived, decoded(w.paymentChanged)},
		{events.EntityPayment, events.EventFailed, decoded(w.paymentChanged)},
	}
	for _, s := range subs {
		subject := events.Wildcard(s.entity, s.event)
		handle := s.handle
		if _, err := nc.Subscribe(subject, func(msg *nats.Msg) {
			if err := handle(context.Background(), msg.Data); err != nil {
				slog.Warn("worker: handling event failed", "subject", msg.Subject, "err", err)
			}
		}); err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
	}
	return nil
}

// decoded adapts a typed handler to raw message bytes.
func decoded[T any](fn func(ctx context.Context, payload T) error) func(context.Context, []byte) error {
	return func(ctx context.Context, data []byte) error {
		var payload T
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return fn(ctx, payload)
	}
}

// ---------------------------------------------------------------------------
// welcome_worker
// ---------------------------------------------------------------------------

// userCreated emails the new user a welcome with a link to set their password.
func (w *workers) userCreated(ctx context.Context, e events.UserCreated) error {
	u, err := w.users.Get(ctx, e.UserID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	orgName := ""
	if e.OrganisationID != uuid.Nil {
		if org, err := w.orgs.Get(ctx, e.OrganisationID); err == nil {
			orgName = org.Name
		}
	}

	resetURL, err := w.idp.PasswordResetLink(ctx, u.Email)
	if err != nil {
		// Users can still request a reset from the login page.
		slog.Warn("welcome_worker: reset link failed", "user_id", u.ID, "err", err)
		resetURL = w.baseURL
	}

	return w.mailer.Send(ctx, email.BuildWelcomeEmail(email.WelcomeEmailData{
		FirstName:        u.FirstName,
		Email:            u.Email,
		OrganisationName: orgName,
		Role:             u.Role,
		ResetURL:         resetURL,
		AppName:          w.appName,
	}))
}

// ---------------------------------------------------------------------------
// notification_worker
// ---------------------------------------------------------------------------

func (w *workers) observationEscalated(ctx context.Context, e events.ObservationEscalated) error {
	ids, err := w.users.ListIDsByRoles(ctx, e.OrganisationID, staffRoles)
	if err != nil {
		return fmt.Errorf("list staff: %w", err)
	}
	return w.send(ctx, ids, notification.Content{
		OrganisationID: &e.OrganisationID,
		Type:           "observation_escalated",
		Title:          fmt.Sprintf("%s score %d (%s risk)", e.ScoreType, e.Score, e.RiskLevel),
		Body:           "A patient observation needs review.",
		Data: map[string]string{
			"patient_id":     e.PatientID.String(),
			"observation_id": e.ObservationID.String(),
		},
	})
}

func (w *workers) investigationReported(ctx context.Context, e events.InvestigationReported) error {
	return w.send(ctx, []uuid.UUID{e.RequestedBy}, notification.Content{
		OrganisationID: &e.OrganisationID,
		Type:           "investigation_reported",
		Title:          e.TestName + " report is ready",
		Data: map[string]string{
			"patient_id": e.PatientID.String(),
			"request_id": e.RequestID.String(),
			"report_id":  e.ReportID.String(),
		},
	})
}

func (w *workers) sessionChanged(ctx context.Context, e events.SessionChanged) error {
	parts, err := w.sessions.ListParticipants(ctx, e.SessionID)
	if err != nil {
		return fmt.Errorf("list participants: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(parts))
	for _, p := range parts {
		ids = append(ids, p.UserID)
	}
	return w.send(ctx, ids, notification.Content{
		OrganisationID: &e.OrganisationID,
		Type:           "session_" + e.Status,
		Title:          fmt.Sprintf("Session %q is %s", e.Name, e.Status),
		Data:           map[string]string{"session_id": e.SessionID.String()},
	})
}

func (w *workers) paymentChanged(ctx context.Context, e events.PaymentChanged) error {
	ids, err := w.users.ListIDsByRoles(ctx, e.OrganisationID, billingRoles)
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}
	c := notification.Content{
		OrganisationID: &e.OrganisationID,
		Type:           "payment_" + e.Status,
		Title:          "Payment received",
		Body:           fmt.Sprintf("%.2f %s", float64(e.AmountCents)/100, e.Currency),
		Data:           map[string]string{"invoice_id": e.InvoiceID},
	}
	if e.Status != billing.PaymentSucceeded {
		c.Title = "Payment failed"
		w.emailUsers(ctx, ids, c, w.baseURL+"/billing")
	}
	return w.send(ctx, ids, c)
}

// emailUsers mirrors a notification to each user's inbox. Failures are
// logged per recipient.
func (w *workers) emailUsers(ctx context.Context, ids []uuid.UUID, c notification.Content, actionURL string) {
	for _, id := range ids {
		u, err := w.users.Get(ctx, id)
		if err != nil {
			slog.Warn("notification_worker: load recipient failed", "user_id", id, "err", err)
			continue
		}
		msg := email.BuildNotificationEmail(email.NotificationEmailData{
			FirstName: u.FirstName,
			Email:     u.Email,
			Title:     c.Title,
			Body:      c.Body,
			ActionURL: actionURL,
			AppName:   w.appName,
		})
		if err := w.mailer.Send(ctx, msg); err != nil {
			slog.Warn("notification_worker: email failed", "user_id", id, "err", err)
		}
	}
}

func (w *workers) send(ctx context.Context, ids []uuid.UUID, c notification.Content) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := w.notify.Notify(ctx, ids, c)
	return err
}
