package importer

import (
	"time"

	"github.com/flowledger/backend/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Engine drives the staging, revalidation and import operations. All
// collaborators are injected, the engine itself keeps no state between calls.
type Engine struct {
	ledger   Ledger
	mappings MappingStore
	staged   StagedTransactionStore
	jobs     ImportJobStore
	clock    Clock
	settings config.Settings
	log      zerolog.Logger
}

// New returns an engine using the given collaborators.
func New(l Ledger, stores Stores, clock Clock, settings config.Settings) *Engine {
	return &Engine{
		ledger:   l,
		mappings: stores.Mappings,
		staged:   stores.Staged,
		jobs:     stores.Jobs,
		clock:    clock,
		settings: settings,
		log:      log.With().Str("component", "importer").Logger(),
	}
}

func (e *Engine) stagingTTL() time.Duration {
	return time.Duration(e.settings.StagingTTLHours) * time.Hour
}

func (e *Engine) rollbackWindow() time.Duration {
	return time.Duration(e.settings.RollbackWindowHours) * time.Hour
}
