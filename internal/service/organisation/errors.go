package organisation

import "errors"

var (
	ErrOrganisationNotFound = errors.New("organisation not found")
	ErrNameRequired         = errors.New("organisation name is required")
	ErrInvalidPlan          = errors.New("invalid plan")
	ErrInvalidPhone         = errors.New("invalid phone number")
	ErrAlreadyDeleted       = errors.New("organisation is already deleted")
	ErrNotDeleted           = errors.New("organisation is not deleted")
)
