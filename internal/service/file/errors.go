package file

import "errors"

var (
	ErrOrganisationRequired  = errors.New("an organisation context is required")
	ErrInvalidPurpose        = errors.New("purpose must be one of attachment, logo, avatar, report")
	ErrContentTypeNotAllowed = errors.New("content type is not allowed for this purpose")
	ErrFileNameRequired      = errors.New("file name is required")
	ErrKeyRequired           = errors.New("key is required")
	ErrAccessDenied          = errors.New("access denied")
)
