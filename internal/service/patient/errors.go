package patient

import "errors"

var (
	ErrPatientNotFound       = errors.New("patient not found")
	ErrNameRequired          = errors.New("first and last name are required")
	ErrInvalidDateOfBirth    = errors.New("date of birth is missing or in the future")
	ErrInvalidGender         = errors.New("invalid gender")
	ErrInvalidCategory       = errors.New("invalid patient category")
	ErrInvalidStatus         = errors.New("invalid patient status")
	ErrInvalidMeasurement    = errors.New("height and weight must be positive")
	ErrHospitalNumberTaken   = errors.New("hospital number is already used by another patient")
	ErrNoteNotFound          = errors.New("note not found")
	ErrNoteBodyRequired      = errors.New("note body is required")
	ErrAttachmentNotFound    = errors.New("attachment not found")
	ErrAttachmentKeyNotInOrg = errors.New("file key does not belong to this organisation")
	ErrFileNameRequired      = errors.New("file name is required")
)
