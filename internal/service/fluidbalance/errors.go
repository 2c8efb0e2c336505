package fluidbalance

import "errors"

var (
	ErrPatientNotFound  = errors.New("patient not found")
	ErrEntryNotFound    = errors.New("fluid balance entry not found")
	ErrInvalidDirection = errors.New("direction must be intake or output")
	ErrRouteRequired    = errors.New("route is required")
	ErrInvalidVolume    = errors.New("volume_ml must be greater than zero")
	ErrInvalidWindow    = errors.New("window start must be before its end")
	ErrRecordedInFuture = errors.New("recorded_at cannot be in the future")
)
