package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transaction represents a transaction in a cash flow.
type Transaction struct {
	DefaultModel
	CashFlowID        uuid.UUID       `json:"cashFlowId"`
	CashFlow          CashFlow        `json:"-"`
	CategoryID        uuid.UUID       `json:"categoryId"`
	Category          Category        `json:"-"`
	Name              string          `json:"name" example:"Weekly groceries"`
	Description       string          `json:"description,omitempty"`
	Amount            decimal.Decimal `json:"amount" gorm:"type:DECIMAL(20,8)" example:"42.12"`
	Currency          string          `json:"currency" example:"USD"`
	Type              CategoryType    `json:"type" example:"OUTFLOW"`
	DueDate           time.Time       `json:"dueDate"`
	PaidDate          time.Time       `json:"paidDate"`
	BankTransactionID string          `json:"bankTransactionId,omitempty" gorm:"index"` // The bank's own id, used for duplicate detection on import
	Historical        bool            `json:"historical"`                               // Set for transactions created by a historical import
}

// AfterFind updates the timestamps to use UTC as
// timezone, not +0000. Yes, this is different.
//
// We already store them in UTC, but somehow reading
// them from the database returns them as +0000.
func (t *Transaction) AfterFind(tx *gorm.DB) error {
	err := t.DefaultModel.AfterFind(tx)
	if err != nil {
		return err
	}

	t.DueDate = t.DueDate.In(time.UTC)
	t.PaidDate = t.PaidDate.In(time.UTC)
	return nil
}

// BeforeSave sets the timezone for the dates to UTC and trims whitespace
// from string fields.
func (t *Transaction) BeforeSave(_ *gorm.DB) error {
	t.Name = strings.TrimSpace(t.Name)
	t.Description = strings.TrimSpace(t.Description)
	t.BankTransactionID = strings.TrimSpace(t.BankTransactionID)

	if t.PaidDate.IsZero() {
		t.PaidDate = time.Now().In(time.UTC)
	} else {
		t.PaidDate = t.PaidDate.In(time.UTC)
	}

	if t.DueDate.IsZero() {
		t.DueDate = t.PaidDate
	} else {
		t.DueDate = t.DueDate.In(time.UTC)
	}

	return nil
}
