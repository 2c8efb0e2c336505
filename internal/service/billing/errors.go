package billing

import "errors"

var (
	ErrOrganisationRequired = errors.New("an organisation context is required")
	ErrOrganisationNotFound = errors.New("organisation not found")
	ErrInvalidPlan          = errors.New("unknown plan")
	ErrNoCustomer           = errors.New("organisation has no billing account yet")
	ErrNoSubscription       = errors.New("organisation has no subscription")
	ErrBillingDisabled      = errors.New("billing is not configured")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrUnknownCustomer      = errors.New("webhook does not match any organisation")
)
