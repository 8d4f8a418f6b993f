package importer

import (
	"errors"

	"github.com/flowledger/backend/internal/ledger"
	"github.com/flowledger/backend/internal/models"
	"github.com/flowledger/backend/internal/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"
)

// StartImport commits a staging session into the ledger through a two-phase
// import job: first the categories that need to be created, then the valid
// transactions.
//
// Per-item failures are recorded on the job and never abort the batch. Only
// structural failures (a ledger communication error or a failing job store)
// fail the whole job; the job record then carries the message and all
// progress checkpointed so far. The returned job is COMPLETED or FAILED, the
// error return covers precondition failures only.
func (e *Engine) StartImport(cashFlowID, sessionID uuid.UUID) (models.ImportJob, error) {
	info, err := e.ledger.GetInfo(cashFlowID)
	if err != nil {
		return models.ImportJob{}, err
	}

	if info.Status != models.CashFlowStatusSetup {
		return models.ImportJob{}, ErrStagingSessionNotReady
	}

	active, err := e.jobs.ExistsActiveByStagingSessionID(sessionID)
	if err != nil {
		return models.ImportJob{}, err
	}
	if active {
		return models.ImportJob{}, ErrImportJobAlreadyRunning
	}

	staged, err := e.staged.FindByStagingSessionID(sessionID)
	if err != nil {
		return models.ImportJob{}, err
	}

	if len(staged) == 0 || staged[0].CashFlowID != cashFlowID {
		return models.ImportJob{}, ErrSessionNotFound
	}

	if staged[0].Expired(e.clock.Now()) {
		return models.ImportJob{}, ErrSessionExpired
	}

	valid := make([]models.StagedTransaction, 0, len(staged))
	input := models.ImportJobInput{
		TotalTransactions: len(staged),
		BatchSize:         e.settings.ImportBatchSize,
	}
	for _, s := range staged {
		switch s.Validation.Status {
		case models.ValidationValid:
			input.ValidTransactions++
			valid = append(valid, s)
		case models.ValidationDuplicate:
			input.DuplicateTransactions++
		case models.ValidationPendingMapping:
			return models.ImportJob{}, ErrSessionNotFullyMapped
		}
	}

	toCreate := categoriesToCreate(valid, info)
	input.CategoriesToCreate = len(toCreate)

	job := models.ImportJob{
		CashFlowID:       cashFlowID,
		StagingSessionID: sessionID,
		Status:           models.ImportJobCreated,
		Input:            input,
		Result: models.ImportJobResult{
			CategoriesCreated:    []string{},
			LedgerTransactionIDs: []uuid.UUID{},
		},
		Rollback: models.RollbackData{
			CreatedTransactionIDs: []uuid.UUID{},
			CreatedCategories:     []models.RollbackCategory{},
		},
	}

	err = e.jobs.Save(&job)
	if errors.Is(err, models.ErrImportJobActive) {
		return models.ImportJob{}, ErrImportJobAlreadyRunning
	}
	if err != nil {
		return models.ImportJob{}, err
	}

	startedAt := e.clock.Now()
	job.Status = models.ImportJobProcessing
	job.StartedAt = &startedAt
	if err := e.jobs.Save(&job); err != nil {
		return models.ImportJob{}, err
	}

	e.log.Info().
		Str("job", job.ID.String()).
		Str("stagingSession", sessionID.String()).
		Int("transactions", input.ValidTransactions).
		Int("categories", input.CategoriesToCreate).
		Msg("import job started")

	totalItems := len(toCreate) + len(valid)
	processedItems := 0

	// Phase 1: create the missing categories. A category that already exists
	// is a success so that a retried import stays idempotent.
	phase := e.beginPhase(&job, models.PhaseCreatingCategories, len(toCreate))
	for i, c := range toCreate {
		err := e.ledger.CreateCategory(cashFlowID, c.Name, c.Parent, c.Type)
		switch {
		case err == nil:
			job.Result.CategoriesCreated = append(job.Result.CategoriesCreated, c.Name)
			job.Rollback.CreatedCategories = append(job.Rollback.CreatedCategories, models.RollbackCategory{Name: c.Name, Type: c.Type})
		case errors.Is(err, ledger.ErrCategoryAlreadyExists):
			job.Result.CategoriesCreated = append(job.Result.CategoriesCreated, c.Name)
		case errors.Is(err, ledger.ErrCommunication):
			return e.failJob(&job, err)
		default:
			e.log.Warn().Str("job", job.ID.String()).Str("category", c.Name).Err(err).Msg("category creation failed, skipping")
		}

		processedItems++
		job.Progress.Phases[phase].Processed = i + 1
		e.checkpoint(&job, processedItems, totalItems)
	}
	e.completePhase(&job, phase)

	// Phase 2: import the valid transactions. A single failing transaction
	// never aborts the batch, the error is recorded on the job instead.
	imported := make([]models.StagedTransaction, 0, len(valid))

	phase = e.beginPhase(&job, models.PhaseImportingTransactions, len(valid))
	for i, s := range valid {
		transactionID, err := e.ledger.ImportHistoricalTransaction(cashFlowID, ledger.HistoricalTransaction{
			Category:          s.Mapped.Category,
			Name:              s.Mapped.Name,
			Description:       s.Mapped.Description,
			Amount:            s.Mapped.Amount,
			Currency:          s.Mapped.Currency,
			Type:              s.Mapped.Type,
			DueDate:           s.Mapped.PaidDate,
			PaidDate:          s.Mapped.PaidDate,
			BankTransactionID: s.Original.BankTransactionID,
		})

		switch {
		case err == nil:
			job.Result.LedgerTransactionIDs = append(job.Result.LedgerTransactionIDs, transactionID)
			job.Rollback.CreatedTransactionIDs = append(job.Rollback.CreatedTransactionIDs, transactionID)
			job.Result.TransactionsImported++
			imported = append(imported, s)
		case errors.Is(err, ledger.ErrCommunication):
			return e.failJob(&job, err)
		default:
			job.Result.TransactionsFailed++
			job.Result.Errors = append(job.Result.Errors, models.TransactionError{
				BankTransactionID: s.Original.BankTransactionID,
				Message:           err.Error(),
			})
		}

		processedItems++
		job.Progress.Phases[phase].Processed = i + 1
		e.checkpoint(&job, processedItems, totalItems)
	}
	e.completePhase(&job, phase)

	completedAt := e.clock.Now()
	job.Status = models.ImportJobCompleted
	job.CompletedAt = &completedAt
	job.FinalizedAt = &completedAt
	job.Progress.Percentage = 100
	job.Progress.CurrentPhase = ""
	job.Summary = buildSummary(imported, job.Rollback.CreatedCategories, completedAt.Sub(startedAt).Milliseconds())
	job.Rollback.CanRollback = true
	job.Rollback.Deadline = completedAt.Add(e.rollbackWindow())

	if err := e.jobs.Save(&job); err != nil {
		return models.ImportJob{}, err
	}

	e.log.Info().
		Str("job", job.ID.String()).
		Int("imported", job.Result.TransactionsImported).
		Int("failed", job.Result.TransactionsFailed).
		Msg("import job completed")

	return job, nil
}

// Job returns the import job with the given id.
func (e *Engine) Job(jobID uuid.UUID) (models.ImportJob, error) {
	return e.jobs.FindByID(jobID)
}

// RollbackJob reverses a completed import while its rollback window is open.
// The created ledger transactions are deleted; the created categories only
// when deleteCategories is set.
func (e *Engine) RollbackJob(jobID uuid.UUID, deleteCategories bool) (models.ImportJob, error) {
	job, err := e.jobs.FindByID(jobID)
	if err != nil {
		return models.ImportJob{}, err
	}

	now := e.clock.Now()
	if job.Status != models.ImportJobCompleted {
		return models.ImportJob{}, ErrJobNotRollbackable
	}
	if !job.RollbackEligible(now) {
		return models.ImportJob{}, ErrRollbackWindowExpired
	}

	result, err := e.ledger.RollbackImport(job.CashFlowID, job.Rollback.CreatedTransactionIDs, job.Rollback.CreatedCategories, deleteCategories)
	if err != nil {
		return models.ImportJob{}, err
	}

	job.Status = models.ImportJobRolledBack
	job.RolledBackAt = &now
	job.Rollback.CanRollback = false

	if job.Summary == nil {
		job.Summary = &models.ImportJobSummary{}
	}
	job.Summary.Rollback = &models.RollbackSummary{
		TransactionsDeleted: result.TransactionsDeleted,
		CategoriesDeleted:   result.CategoriesDeleted,
		RolledBackAt:        now,
	}

	if err := e.jobs.Save(&job); err != nil {
		return models.ImportJob{}, err
	}

	e.log.Info().
		Str("job", job.ID.String()).
		Int("transactionsDeleted", result.TransactionsDeleted).
		Int("categoriesDeleted", result.CategoriesDeleted).
		Msg("import job rolled back")

	return job, nil
}

// categoriesToCreate returns the categories the import has to create, in
// order of first use, deduplicated by name and type. The fallback category
// for MAP_TO_UNCATEGORIZED is created on demand like any other.
func categoriesToCreate(valid []models.StagedTransaction, info ledger.Info) []CategoryToCreate {
	var toCreate []CategoryToCreate
	seen := make(map[mappingKey]struct{})

	for _, s := range valid {
		if !s.Mapped.Action.CreatesCategory() && s.Mapped.Action != models.ActionMapToUncategorized {
			continue
		}

		if info.HasCategory(s.Mapped.Category, s.Mapped.Type) {
			continue
		}

		key := mappingKey{s.Mapped.Category, s.Mapped.Type}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		toCreate = append(toCreate, CategoryToCreate{
			Name:   s.Mapped.Category,
			Parent: s.Mapped.ParentCategory,
			Type:   s.Mapped.Type,
		})
	}

	return toCreate
}

// beginPhase appends a new entry to the phase log and returns its index.
func (e *Engine) beginPhase(job *models.ImportJob, phase models.ImportPhase, total int) int {
	job.Progress.CurrentPhase = phase
	job.Progress.Phases = append(job.Progress.Phases, models.PhaseProgress{
		Phase:     phase,
		Status:    "RUNNING",
		Total:     total,
		StartedAt: e.clock.Now(),
	})

	return len(job.Progress.Phases) - 1
}

// checkpoint persists the job every ProgressUpdateInterval processed items.
// A failing checkpoint is logged, not escalated: losing a progress update
// must not fail an otherwise healthy import.
func (e *Engine) checkpoint(job *models.ImportJob, processed, total int) {
	if total > 0 {
		job.Progress.Percentage = processed * 100 / total
	}

	if processed%e.settings.ProgressUpdateInterval != 0 {
		return
	}

	if err := e.jobs.Save(job); err != nil {
		e.log.Error().Str("job", job.ID.String()).Err(err).Msg("progress checkpoint failed")
	}
}

// completePhase closes the phase log entry and persists the job.
func (e *Engine) completePhase(job *models.ImportJob, index int) {
	now := e.clock.Now()
	entry := &job.Progress.Phases[index]
	entry.Status = "COMPLETED"
	entry.CompletedAt = &now
	entry.DurationMS = now.Sub(entry.StartedAt).Milliseconds()

	if err := e.jobs.Save(job); err != nil {
		e.log.Error().Str("job", job.ID.String()).Err(err).Msg("phase checkpoint failed")
	}
}

// failJob marks the job as failed after a structural error. Progress
// checkpointed so far stays on the record for diagnostics.
func (e *Engine) failJob(job *models.ImportJob, cause error) (models.ImportJob, error) {
	now := e.clock.Now()
	job.Status = models.ImportJobFailed
	job.FailedAt = &now
	job.FinalizedAt = &now
	job.Error = cause.Error()

	e.log.Error().Str("job", job.ID.String()).Err(cause).Msg("import job failed")

	if err := e.jobs.Save(job); err != nil {
		return models.ImportJob{}, err
	}

	return *job, nil
}

// buildSummary computes the category and monthly breakdowns over the
// transactions that were actually imported.
func buildSummary(imported []models.StagedTransaction, createdCategories []models.RollbackCategory, durationMS int64) *models.ImportJobSummary {
	created := make(map[mappingKey]struct{}, len(createdCategories))
	for _, c := range createdCategories {
		created[mappingKey{c.Name, c.Type}] = struct{}{}
	}

	summary := &models.ImportJobSummary{
		Categories: []models.CategorySummary{},
		Months:     []models.MonthSummary{},
		DurationMS: durationMS,
	}

	categoryIndex := make(map[mappingKey]int)
	monthIndex := make(map[types.Month]int)

	for _, s := range imported {
		key := mappingKey{s.Mapped.Category, s.Mapped.Type}
		i, ok := categoryIndex[key]
		if !ok {
			i = len(summary.Categories)
			categoryIndex[key] = i

			_, newlyCreated := created[key]
			summary.Categories = append(summary.Categories, models.CategorySummary{
				Category:     s.Mapped.Category,
				Type:         s.Mapped.Type,
				Currency:     s.Mapped.Currency,
				NewlyCreated: newlyCreated,
			})
		}
		summary.Categories[i].Count++
		summary.Categories[i].Total = summary.Categories[i].Total.Add(s.Mapped.Amount)

		month := types.MonthOf(s.Mapped.PaidDate)
		j, ok := monthIndex[month]
		if !ok {
			j = len(summary.Months)
			monthIndex[month] = j
			summary.Months = append(summary.Months, models.MonthSummary{Month: month, Inflow: decimal.Zero, Outflow: decimal.Zero})
		}

		if s.Mapped.Type == models.CategoryTypeInflow {
			summary.Months[j].Inflow = summary.Months[j].Inflow.Add(s.Mapped.Amount)
		} else {
			summary.Months[j].Outflow = summary.Months[j].Outflow.Add(s.Mapped.Amount)
		}
	}

	// Chronological, matching the staging breakdowns
	slices.SortFunc(summary.Months, func(a, b models.MonthSummary) int {
		if a.Month.Before(b.Month) {
			return -1
		} else if a.Month.After(b.Month) {
			return 1
		}
		return 0
	})

	return summary
}
