package events

import "github.com/google/uuid"

const (
	EntityUser          = "user"
	EntityObservation   = "observation"
	EntityInvestigation = "investigation"
	EntitySession       = "session"
	EntityPayment       = "payment"
)

const (
	EventCreated   = "created"
	EventEscalated = "escalated"
	EventReported  = "reported"
	EventStarted   = "started"
	EventEnded     = "ended"
	EventReceived  = "received"
	EventFailed    = "failed"
)

// UserCreated is published on simward.user.created.<user>.
type UserCreated struct {
	UserID         uuid.UUID `json:"user_id"`
	OrganisationID uuid.UUID `json:"organisation_id"`
	Role           string    `json:"role"`
}

// ObservationEscalated is published on simward.observation.escalated.<patient>.
type ObservationEscalated struct {
	ObservationID  uuid.UUID `json:"observation_id"`
	PatientID      uuid.UUID `json:"patient_id"`
	OrganisationID uuid.UUID `json:"organisation_id"`
	ScoreType      string    `json:"score_type"`
	Score          int       `json:"score"`
	RiskLevel      string    `json:"risk_level"`
}

// InvestigationReported is published on simward.investigation.reported.<request>.
type InvestigationReported struct {
	RequestID      uuid.UUID `json:"request_id"`
	ReportID       uuid.UUID `json:"report_id"`
	PatientID      uuid.UUID `json:"patient_id"`
	OrganisationID uuid.UUID `json:"organisation_id"`
	RequestedBy    uuid.UUID `json:"requested_by"`
	TestName       string    `json:"test_name"`
}

// SessionChanged is published on simward.session.{started,ended}.<session>.
type SessionChanged struct {
	SessionID      uuid.UUID `json:"session_id"`
	OrganisationID uuid.UUID `json:"organisation_id"`
	Name           string    `json:"name"`
	Status         string    `json:"status"`
}

// PaymentChanged is published on simward.payment.{received,failed}.<org>.
type PaymentChanged struct {
	OrganisationID uuid.UUID `json:"organisation_id"`
	InvoiceID      string    `json:"invoice_id"`
	AmountCents    int64     `json:"amount_cents"`
	Currency       string    `json:"currency"`
	Status         string    `json:"status"`
}
