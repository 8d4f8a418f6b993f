package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ValidationStatus is the state of a staged transaction's validation.
type ValidationStatus string

const (
	ValidationValid          ValidationStatus = "VALID"
	ValidationInvalid        ValidationStatus = "INVALID"
	ValidationDuplicate      ValidationStatus = "DUPLICATE"
	ValidationPendingMapping ValidationStatus = "PENDING_MAPPING"
)

// TransactionValidation is a tagged union: exactly one status holds at a time.
// Errors is set only for INVALID, DuplicateOf only for DUPLICATE.
type TransactionValidation struct {
	Status      ValidationStatus `json:"status" example:"VALID"`
	Errors      []string         `json:"errors,omitempty"`
	DuplicateOf string           `json:"duplicateOf,omitempty" example:"BANK-TX-0815"` // Bank transaction id of the duplicated transaction
}

// ValidationResultValid returns the VALID validation state.
func ValidationResultValid() TransactionValidation {
	return TransactionValidation{Status: ValidationValid}
}

// ValidationResultInvalid returns the INVALID validation state with the
// accumulated errors.
func ValidationResultInvalid(errs []string) TransactionValidation {
	return TransactionValidation{Status: ValidationInvalid, Errors: errs}
}

// ValidationResultDuplicate returns the DUPLICATE validation state.
func ValidationResultDuplicate(duplicateOf string) TransactionValidation {
	return TransactionValidation{Status: ValidationDuplicate, DuplicateOf: duplicateOf}
}

// ValidationResultPending returns the PENDING_MAPPING validation state.
func ValidationResultPending() TransactionValidation {
	return TransactionValidation{Status: ValidationPendingMapping}
}

// OriginalTransactionData holds the raw fields of a bank transaction exactly
// as they were uploaded.
type OriginalTransactionData struct {
	BankTransactionID string          `json:"bankTransactionId" example:"BANK-TX-0815"`
	Name              string          `json:"name" example:"REWE SAGT DANKE"`
	Description       string          `json:"description,omitempty"`
	BankCategory      string          `json:"bankCategory" example:"LEBENSMITTEL"`
	Amount            decimal.Decimal `json:"amount" example:"42.12"`
	Currency          string          `json:"currency" example:"EUR"`
	Type              CategoryType    `json:"type" example:"OUTFLOW"`
	PaidDate          time.Time       `json:"paidDate"`
}

// MappedTransactionData is the snapshot of the mapping resolution for a
// staged transaction. It is nil exactly while the transaction is in
// PENDING_MAPPING.
type MappedTransactionData struct {
	Name           string          `json:"name" example:"REWE SAGT DANKE"`
	Description    string          `json:"description,omitempty"`
	Category       string          `json:"category" example:"Groceries"`
	ParentCategory string          `json:"parentCategory,omitempty"`
	Action         MappingAction   `json:"action" example:"CREATE_NEW"`
	Amount         decimal.Decimal `json:"amount" example:"42.12"`
	Currency       string          `json:"currency" example:"EUR"`
	Type           CategoryType    `json:"type" example:"OUTFLOW"`
	PaidDate       time.Time       `json:"paidDate"`
}

// StagedTransaction is one raw bank transaction held in a staging session
// until it is imported or the session expires.
type StagedTransaction struct {
	DefaultModel
	CashFlowID       uuid.UUID               `json:"cashFlowId" gorm:"index"`
	StagingSessionID uuid.UUID               `json:"stagingSessionId" gorm:"index"`
	Original         OriginalTransactionData `json:"original" gorm:"serializer:json"`
	Mapped           *MappedTransactionData  `json:"mapped" gorm:"serializer:json"`
	Validation       TransactionValidation   `json:"validation" gorm:"serializer:json"`
	ExpiresAt        time.Time               `json:"expiresAt" gorm:"index"` // The store drops the record after this instant
}

// BeforeSave enforces that mapped data is present exactly when the
// validation status is not PENDING_MAPPING.
func (s *StagedTransaction) BeforeSave(_ *gorm.DB) error {
	pending := s.Validation.Status == ValidationPendingMapping
	if pending != (s.Mapped == nil) {
		return ErrStagedInconsistent
	}

	return nil
}

// Expired reports whether the staged transaction is past its expiry.
// Store-side expiry is eventually consistent, callers re-check before acting.
func (s StagedTransaction) Expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}
