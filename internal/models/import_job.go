package models

import (
	"time"

	"github.com/flowledger/backend/internal/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ImportJobStatus is the state of an import job.
//
// CREATED → PROCESSING → {COMPLETED | FAILED}, COMPLETED → ROLLED_BACK while
// the rollback window is open. FAILED and ROLLED_BACK are terminal.
type ImportJobStatus string

const (
	ImportJobCreated    ImportJobStatus = "CREATED"
	ImportJobProcessing ImportJobStatus = "PROCESSING"
	ImportJobCompleted  ImportJobStatus = "COMPLETED"
	ImportJobFailed     ImportJobStatus = "FAILED"
	ImportJobRolledBack ImportJobStatus = "ROLLED_BACK"
)

// ImportPhase is one of the two phases an import job runs through.
type ImportPhase string

const (
	PhaseCreatingCategories    ImportPhase = "CREATING_CATEGORIES"
	PhaseImportingTransactions ImportPhase = "IMPORTING_TRANSACTIONS"
)

// PhaseProgress is one entry of the append-only phase log. Completed phases
// keep their timings for diagnostics.
type PhaseProgress struct {
	Phase       ImportPhase `json:"phase" example:"CREATING_CATEGORIES"`
	Status      string      `json:"status" example:"COMPLETED"` // RUNNING or COMPLETED
	Processed   int         `json:"processed" example:"10"`
	Total       int         `json:"total" example:"10"`
	StartedAt   time.Time   `json:"startedAt"`
	CompletedAt *time.Time  `json:"completedAt,omitempty"`
	DurationMS  int64       `json:"durationMs" example:"174"`
}

// ImportJobInput is the snapshot of the staging session taken when the job
// was created.
type ImportJobInput struct {
	TotalTransactions     int `json:"totalTransactions" example:"3"`
	ValidTransactions     int `json:"validTransactions" example:"2"`
	DuplicateTransactions int `json:"duplicateTransactions" example:"1"`
	CategoriesToCreate    int `json:"categoriesToCreate" example:"1"`
	BatchSize             int `json:"batchSize" example:"50"` // Configured batch size at job creation
}

// ImportJobProgress tracks how far the job has come.
type ImportJobProgress struct {
	Percentage   int             `json:"percentage" example:"100"`
	CurrentPhase ImportPhase     `json:"currentPhase,omitempty" example:"IMPORTING_TRANSACTIONS"`
	Phases       []PhaseProgress `json:"phases"`
}

// TransactionError is a single failed ledger import, recorded without
// aborting the batch.
type TransactionError struct {
	BankTransactionID string `json:"bankTransactionId" example:"BANK-TX-0815"`
	Message           string `json:"message"`
}

// ImportJobResult collects what the job actually did.
type ImportJobResult struct {
	CategoriesCreated    []string           `json:"categoriesCreated"`
	LedgerTransactionIDs []uuid.UUID        `json:"ledgerTransactionIds"`
	TransactionsImported int                `json:"transactionsImported" example:"2"`
	TransactionsFailed   int                `json:"transactionsFailed" example:"0"`
	Errors               []TransactionError `json:"errors,omitempty"`
}

// RollbackCategory identifies a category created by the import. Name alone is
// not enough since the same name may exist for both flow directions.
type RollbackCategory struct {
	Name string       `json:"name" example:"Groceries"`
	Type CategoryType `json:"type" example:"OUTFLOW"`
}

// RollbackData is everything needed to reverse a completed import.
type RollbackData struct {
	CanRollback           bool               `json:"canRollback" example:"true"`
	Deadline              time.Time          `json:"deadline"`
	CreatedTransactionIDs []uuid.UUID        `json:"createdTransactionIds"`
	CreatedCategories     []RollbackCategory `json:"createdCategories"`
}

// CategorySummary is the per-category part of the job summary.
type CategorySummary struct {
	Category     string          `json:"category" example:"Groceries"`
	Type         CategoryType    `json:"type" example:"OUTFLOW"`
	Count        int             `json:"count" example:"12"`
	Total        decimal.Decimal `json:"total" example:"503.17"`
	Currency     string          `json:"currency" example:"EUR"`
	NewlyCreated bool            `json:"newlyCreated" example:"true"`
}

// MonthSummary is the per-month part of the job summary.
type MonthSummary struct {
	Month   types.Month     `json:"month" example:"2026-05"`
	Inflow  decimal.Decimal `json:"inflow" example:"2500"`
	Outflow decimal.Decimal `json:"outflow" example:"1874.13"`
}

// RollbackSummary describes a performed rollback.
type RollbackSummary struct {
	TransactionsDeleted int       `json:"transactionsDeleted" example:"2"`
	CategoriesDeleted   int       `json:"categoriesDeleted" example:"1"`
	RolledBackAt        time.Time `json:"rolledBackAt"`
}

// ImportJobSummary is built over the transactions that were actually
// processed, not over the staged input.
type ImportJobSummary struct {
	Categories []CategorySummary `json:"categories"`
	Months     []MonthSummary    `json:"months"`
	DurationMS int64             `json:"durationMs" example:"1337"`
	Rollback   *RollbackSummary  `json:"rollback,omitempty"`
}

// ImportJob is the record of one two-phase commit of a staging session into
// the ledger. It is mutated through an append-only sequence of phase
// transitions and never after FAILED or ROLLED_BACK.
type ImportJob struct {
	DefaultModel
	CashFlowID       uuid.UUID         `json:"cashFlowId"`
	CashFlow         CashFlow          `json:"-"`
	StagingSessionID uuid.UUID         `json:"stagingSessionId" gorm:"index"`
	Status           ImportJobStatus   `json:"status" example:"COMPLETED"`
	StartedAt        *time.Time        `json:"startedAt,omitempty"`
	CompletedAt      *time.Time        `json:"completedAt,omitempty"`
	FailedAt         *time.Time        `json:"failedAt,omitempty"`
	RolledBackAt     *time.Time        `json:"rolledBackAt,omitempty"`
	FinalizedAt      *time.Time        `json:"finalizedAt,omitempty"` // Set when processing ends, successfully or not
	Input            ImportJobInput    `json:"input" gorm:"serializer:json"`
	Progress         ImportJobProgress `json:"progress" gorm:"serializer:json"`
	Result           ImportJobResult   `json:"result" gorm:"serializer:json"`
	Rollback         RollbackData      `json:"rollback" gorm:"serializer:json"`
	Summary          *ImportJobSummary `json:"summary,omitempty" gorm:"serializer:json"`
	Error            string            `json:"error,omitempty"` // Message of the structural failure for FAILED jobs
}

// Active reports whether the job blocks another import of the same session.
func (j ImportJob) Active() bool {
	return j.Status == ImportJobCreated || j.Status == ImportJobProcessing
}

// RollbackEligible reports whether the job can still be rolled back at the
// given instant.
func (j ImportJob) RollbackEligible(now time.Time) bool {
	return j.Status == ImportJobCompleted && j.Rollback.CanRollback && now.Before(j.Rollback.Deadline)
}
