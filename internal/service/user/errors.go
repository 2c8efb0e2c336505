package user

import "errors"

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrInvalidRole            = errors.New("invalid user role")
	ErrInvalidStatus          = errors.New("invalid user status")
	ErrInvalidEmail           = errors.New("invalid email address")
	ErrInvalidPhone           = errors.New("invalid phone number")
	ErrEmailAlreadyExists     = errors.New("email address is already in use")
	ErrOrganisationRequired   = errors.New("organisation is required for this role")
	ErrOrganisationNotFound   = errors.New("organisation not found")
	ErrOrganisationDeleted    = errors.New("organisation is deleted")
	ErrCannotModifySelf       = errors.New("you cannot change your own role, status or account")
	ErrCannotModifySuperAdmin = errors.New("superadmin accounts cannot be changed through the organisation API")
	ErrSuperAdminOnly         = errors.New("only a superadmin can grant the superadmin role")
	ErrAlreadyDeleted         = errors.New("user is already deleted")
	ErrNotDeleted             = errors.New("user is not deleted")
)
