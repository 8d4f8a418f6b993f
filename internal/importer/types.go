// Package importer implements the staging → revalidation → phased import
// pipeline for historical bank transactions.
package importer

import (
	"errors"
	"time"

	"github.com/flowledger/backend/internal/models"
	"github.com/flowledger/backend/internal/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrBatchEmpty              = errors.New("the batch must contain at least one transaction")
	ErrSessionNotFound         = errors.New("there is no staging session with this id")
	ErrSessionExpired          = errors.New("the staging session has expired, upload the transactions again")
	ErrSessionNotFullyMapped   = errors.New("the staging session still contains transactions without a mapping")
	ErrStagingSessionNotReady  = errors.New("historical imports require the cash flow to be in setup mode")
	ErrImportJobAlreadyRunning = errors.New("an import job is already running for this staging session")
	ErrJobNotRollbackable      = errors.New("only completed import jobs can be rolled back")
	ErrRollbackWindowExpired   = errors.New("the rollback window for this import job has passed")
)

// RawBankTransaction is one transaction exactly as the bank reported it.
type RawBankTransaction struct {
	BankTransactionID string              `json:"bankTransactionId" binding:"required" example:"BANK-TX-0815"`
	Name              string              `json:"name" binding:"required" example:"REWE SAGT DANKE"`
	Description       string              `json:"description"`
	BankCategory      string              `json:"bankCategory" binding:"required" example:"LEBENSMITTEL"`
	Amount            decimal.Decimal     `json:"amount" example:"42.12"`
	Currency          string              `json:"currency" example:"EUR"`
	Type              models.CategoryType `json:"type" binding:"required" example:"OUTFLOW"`
	PaidDate          time.Time           `json:"paidDate" binding:"required"`
}

// StagingStatus is the outcome of a staging call.
type StagingStatus string

const (
	StagingReadyForImport        StagingStatus = "READY_FOR_IMPORT"
	StagingHasValidationErrors   StagingStatus = "HAS_VALIDATION_ERRORS"
	StagingHasUnmappedCategories StagingStatus = "HAS_UNMAPPED_CATEGORIES"
)

// UnmappedCategory is a bank category/type pair with no configured mapping.
type UnmappedCategory struct {
	BankCategory string              `json:"bankCategory" example:"FREELANCE"`
	Type         models.CategoryType `json:"type" example:"INFLOW"`
	Occurrences  int                 `json:"occurrences" example:"1"`
}

// CategoryBreakdown sums the valid transactions of one target category.
type CategoryBreakdown struct {
	Category string              `json:"category" example:"Groceries"`
	Type     models.CategoryType `json:"type" example:"OUTFLOW"`
	Count    int                 `json:"count" example:"12"`
	Total    decimal.Decimal     `json:"total" example:"503.17"`
	Currency string              `json:"currency" example:"EUR"`
	IsNew    bool                `json:"isNew" example:"true"` // The target category does not exist in the ledger yet
}

// CategoryToCreate is a category the import will have to create.
type CategoryToCreate struct {
	Name   string              `json:"name" example:"Groceries"`
	Parent string              `json:"parent,omitempty" example:"Living"`
	Type   models.CategoryType `json:"type" example:"OUTFLOW"`
}

// MonthBreakdown sums the valid transactions of one calendar month.
type MonthBreakdown struct {
	Month   types.Month     `json:"month" example:"2026-05"`
	Inflow  decimal.Decimal `json:"inflow" example:"2500"`
	Outflow decimal.Decimal `json:"outflow" example:"1874.13"`
}

// DuplicateTransaction identifies a staged transaction that already exists in
// the ledger.
type DuplicateTransaction struct {
	BankTransactionID string `json:"bankTransactionId" example:"BANK-TX-0815"`
	Name              string `json:"name" example:"REWE SAGT DANKE"`
}

// StagingResult fully describes the outcome of a staging call. With status
// HAS_UNMAPPED_CATEGORIES, nothing was persisted and only UnmappedCategories
// is populated.
type StagingResult struct {
	Status             StagingStatus          `json:"status" example:"READY_FOR_IMPORT"`
	StagingSessionID   uuid.UUID              `json:"stagingSessionId,omitempty"`
	ExpiresAt          time.Time              `json:"expiresAt,omitzero"`
	TotalCount         int                    `json:"totalCount" example:"3"`
	ValidCount         int                    `json:"validCount" example:"2"`
	InvalidCount       int                    `json:"invalidCount" example:"0"`
	DuplicateCount     int                    `json:"duplicateCount" example:"1"`
	PendingCount       int                    `json:"pendingCount" example:"0"`
	UnmappedCategories []UnmappedCategory     `json:"unmappedCategories,omitempty"`
	CategoryBreakdowns []CategoryBreakdown    `json:"categoryBreakdowns,omitempty"`
	CategoriesToCreate []CategoryToCreate     `json:"categoriesToCreate,omitempty"`
	MonthlyBreakdowns  []MonthBreakdown       `json:"monthlyBreakdowns,omitempty"`
	Duplicates         []DuplicateTransaction `json:"duplicates,omitempty"`
}

// StageOptions modifies the behavior of a staging call.
type StageOptions struct {
	// KeepUnmapped persists transactions with unmapped categories as
	// PENDING_MAPPING instead of aborting the whole call. The session can
	// then be completed via revalidation once the mappings are configured.
	KeepUnmapped bool
}

// RevalidationStatus is the outcome of a revalidation call.
type RevalidationStatus string

const (
	RevalidationSuccess       RevalidationStatus = "SUCCESS"
	RevalidationStillUnmapped RevalidationStatus = "STILL_UNMAPPED"
)

// RevalidationResult summarizes a revalidation pass over a staging session.
type RevalidationResult struct {
	Status            RevalidationStatus `json:"status" example:"SUCCESS"`
	StagingSessionID  uuid.UUID          `json:"stagingSessionId"`
	StillUnmapped     []UnmappedCategory `json:"stillUnmapped,omitempty"`
	TotalCount        int                `json:"totalCount" example:"3"`
	RevalidatedCount  int                `json:"revalidatedCount" example:"1"`
	StillPendingCount int                `json:"stillPendingCount" example:"0"`
	ValidCount        int                `json:"validCount" example:"2"`
	InvalidCount      int                `json:"invalidCount" example:"0"`
	DuplicateCount    int                `json:"duplicateCount" example:"1"`
}
