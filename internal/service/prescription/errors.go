package prescription

import "errors"

var (
	ErrPatientNotFound        = errors.New("patient not found")
	ErrPrescriptionNotFound   = errors.New("prescription not found")
	ErrDrugNotFound           = errors.New("drug catalogue entry not found")
	ErrNameRequired           = errors.New("name is required")
	ErrGlobalCatalogForbidden = errors.New("only a superadmin can change the global catalogue")
	ErrCatalogEntryInUse      = errors.New("catalogue entry still has children or prescriptions")
	ErrCatalogEntryExists     = errors.New("a catalogue entry with this name already exists")
	ErrInvalidDose            = errors.New("dose must be greater than zero")
	ErrFrequencyRequired      = errors.New("frequency is required unless the prescription is PRN")
	ErrInvalidPeriod          = errors.New("end must be after start")
	ErrInvalidStatus          = errors.New("invalid prescription status")
	ErrInvalidTransition      = errors.New("prescription cannot move to that status")
	ErrNotActive              = errors.New("prescription is not active")
	ErrFinalised              = errors.New("stopped or completed prescriptions cannot be edited")
)
