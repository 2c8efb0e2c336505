package investigation

import "errors"

var (
	ErrPatientNotFound        = errors.New("patient not found")
	ErrCategoryNotFound       = errors.New("investigation category not found")
	ErrTestNotFound           = errors.New("investigation test not found")
	ErrParameterNotFound      = errors.New("investigation parameter not found")
	ErrRequestNotFound        = errors.New("requested investigation not found")
	ErrReportNotFound         = errors.New("investigation report not found")
	ErrNameRequired           = errors.New("name is required")
	ErrGlobalCatalogForbidden = errors.New("only a superadmin can change the global catalogue")
	ErrCatalogEntryInUse      = errors.New("catalogue entry still has children or requests")
	ErrCatalogEntryExists     = errors.New("catalogue entry already exists")
	ErrNestingTooDeep         = errors.New("sub-categories cannot have children")
	ErrInvalidRange           = errors.New("normal minimum must not exceed maximum")
	ErrNoTests                = errors.New("at least one test is required")
	ErrInvalidPriority        = errors.New("priority must be routine, urgent or stat")
	ErrInvalidStatus          = errors.New("invalid investigation status")
	ErrInvalidTransition      = errors.New("status change not allowed")
	ErrAlreadyReported        = errors.New("investigation is already reported or cancelled")
	ErrNoValues               = errors.New("report needs at least one value")
	ErrUnknownParameter       = errors.New("value for a parameter the test does not have")
)
