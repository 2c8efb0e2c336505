package notification

import "errors"

var (
	ErrNotFound      = errors.New("notification not found")
	ErrTitleRequired = errors.New("notification title is required")
)
