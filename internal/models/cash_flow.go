package models

import (
	"strings"

	"github.com/flowledger/backend/internal/types"
	"gorm.io/gorm"
)

// CashFlowStatus is the lifecycle state of a cash flow.
type CashFlowStatus string

const (
	// CashFlowStatusSetup allows historical (backdated) imports.
	CashFlowStatusSetup CashFlowStatus = "SETUP"

	// CashFlowStatusActive is the regular accounting state.
	CashFlowStatusActive CashFlowStatus = "ACTIVE"
)

// CashFlow is the ledger a user keeps their transactions in.
//
// A cash flow is the highest level of organization, all other resources
// reference it directly or transitively.
type CashFlow struct {
	DefaultModel
	Name         string         `json:"name" gorm:"uniqueIndex" example:"Household"` // Name of the cash flow
	Currency     string         `json:"currency" example:"USD"`                      // Currency all amounts are kept in
	Status       CashFlowStatus `json:"status" example:"SETUP"`                      // Lifecycle status
	StartPeriod  types.Month    `json:"startPeriod" example:"2025-01"`               // First accounting period
	ActivePeriod types.Month    `json:"activePeriod" example:"2026-08"`              // Current accounting period
}

func (c *CashFlow) BeforeSave(_ *gorm.DB) error {
	c.Name = strings.TrimSpace(c.Name)

	if c.Status == "" {
		c.Status = CashFlowStatusSetup
	}

	return nil
}
