package v1

import (
	"errors"
	"net/http"

	"github.com/flowledger/backend/internal/importer"
	"github.com/flowledger/backend/internal/ledger"
	"github.com/flowledger/backend/internal/models"
)

type httpError struct {
	Error string `json:"error" example:"an ID specified in the query string was not a valid UUID"`
}

// status returns the appropriate HTTP status for an error.
func status(err error) int {
	if errors.Is(err, models.ErrGeneral) || errors.Is(err, ledger.ErrCommunication) {
		return http.StatusInternalServerError
	}

	if errors.Is(err, models.ErrResourceNotFound) ||
		errors.Is(err, ledger.ErrCashFlowNotFound) ||
		errors.Is(err, importer.ErrSessionNotFound) {
		return http.StatusNotFound
	}

	if errors.Is(err, importer.ErrSessionExpired) {
		return http.StatusGone
	}

	if errors.Is(err, importer.ErrImportJobAlreadyRunning) ||
		errors.Is(err, importer.ErrSessionNotFullyMapped) ||
		errors.Is(err, importer.ErrStagingSessionNotReady) ||
		errors.Is(err, importer.ErrJobNotRollbackable) ||
		errors.Is(err, importer.ErrRollbackWindowExpired) {
		return http.StatusConflict
	}

	// Everything else, including binding and body errors, is the client's fault
	return http.StatusBadRequest
}

var (
	errNoFilePost      = errors.New("you must send a file to this endpoint")
	errWrongFileSuffix = errors.New("this endpoint only supports files of the following types")
)
