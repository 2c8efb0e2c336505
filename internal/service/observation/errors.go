package observation

import "errors"

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrObservationNotFound = errors.New("observation not found")
	ErrInvalidScoreType    = errors.New("score type must be news2, pews2 or mews2")
	ErrInvalidVital        = errors.New("vital sign out of plausible range")
	ErrRecordedInFuture    = errors.New("recorded_at cannot be in the future")
	ErrAgeRequired         = errors.New("age_months is required to preview a pews2 score")
)
