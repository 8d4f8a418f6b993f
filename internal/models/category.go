package models

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CategoryType is the flow direction of a category and its transactions.
type CategoryType string

const (
	CategoryTypeInflow  CategoryType = "INFLOW"
	CategoryTypeOutflow CategoryType = "OUTFLOW"
)

// UncategorizedName is the name of the fallback category that transactions
// with a MAP_TO_UNCATEGORIZED mapping resolve to.
const UncategorizedName = "Uncategorized"

// Category represents a category of the cash flow's own taxonomy.
// A category with a parent is a subcategory.
type Category struct {
	DefaultModel
	CashFlowID uuid.UUID    `json:"cashFlowId" gorm:"uniqueIndex:category_cash_flow_name_type" example:"52d967d3-33f4-4b04-9ba7-772e5ab9d0ce"` // ID of the cash flow the category belongs to
	CashFlow   CashFlow     `json:"-"`
	Name       string       `json:"name" gorm:"uniqueIndex:category_cash_flow_name_type" example:"Groceries"` // Name of the category
	Type       CategoryType `json:"type" gorm:"uniqueIndex:category_cash_flow_name_type" example:"OUTFLOW"`   // Flow direction
	ParentID   *uuid.UUID   `json:"parentId"`                                                                 // ID of the parent category, set for subcategories
	Parent     *Category    `json:"-"`
}

func (c *Category) BeforeSave(tx *gorm.DB) error {
	c.Name = strings.TrimSpace(c.Name)
	return nil
}
