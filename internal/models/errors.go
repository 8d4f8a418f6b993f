package models

import "errors"

var (
	ErrGeneral          = errors.New("an error occurred on the server during your request")
	ErrResourceNotFound = errors.New("there is no")

	ErrCashFlowNameNotUnique = errors.New("the cash flow name is already in use")
	ErrCategoryNameNotUnique = errors.New("the category name is already in use for this cash flow and type")
	ErrMappingNotUnique      = errors.New("a mapping for this bank category and type already exists")
	ErrImportJobActive       = errors.New("an import job is already running for this staging session")

	ErrMappingActionInvalid = errors.New("the mapping action is invalid")
	ErrStagedInconsistent   = errors.New("mapped data must be set exactly when the validation status is not PENDING_MAPPING")
)
