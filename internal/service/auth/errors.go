package auth

import "errors"

var (
	ErrInvalidIDToken      = errors.New("firebase ID token is invalid or expired")
	ErrEmailNotVerified    = errors.New("email address is not verified")
	ErrUserNotRegistered   = errors.New("no account is registered for this identity")
	ErrAccountDeleted      = errors.New("account has been deleted")
	ErrAccountInactive     = errors.New("account is inactive")
	ErrOrganisationDeleted = errors.New("organisation has been deleted")
	ErrSessionNotFound     = errors.New("session not found or expired")
	ErrInvalidToken        = errors.New("invalid or expired token")
)
