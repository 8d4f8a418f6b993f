package models

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MappingAction decides what happens to a bank category when a transaction
// carrying it is imported.
type MappingAction string

const (
	// ActionReuseExisting maps to a category that already exists.
	ActionReuseExisting MappingAction = "REUSE_EXISTING"

	// ActionCreateNew creates the target category during import.
	ActionCreateNew MappingAction = "CREATE_NEW"

	// ActionCreateSubcategory creates the target category as a subcategory
	// of the configured parent during import.
	ActionCreateSubcategory MappingAction = "CREATE_SUBCATEGORY"

	// ActionMapToUncategorized maps to the fallback category.
	ActionMapToUncategorized MappingAction = "MAP_TO_UNCATEGORIZED"
)

// CategoryMapping translates a bank's category label into a category of the
// cash flow's own taxonomy.
//
// The bank category may be a glob pattern. During resolution, exact matches
// win over pattern matches.
type CategoryMapping struct {
	DefaultModel
	CashFlowID     uuid.UUID     `json:"cashFlowId" gorm:"uniqueIndex:mapping_cash_flow_bank_type" example:"52d967d3-33f4-4b04-9ba7-772e5ab9d0ce"` // ID of the cash flow the mapping belongs to
	CashFlow       CashFlow      `json:"-"`
	BankCategory   string        `json:"bankCategory" gorm:"uniqueIndex:mapping_cash_flow_bank_type" example:"LEBENSMITTEL"` // The bank's category label, may be a glob pattern
	Type           CategoryType  `json:"type" gorm:"uniqueIndex:mapping_cash_flow_bank_type" example:"OUTFLOW"`              // Flow direction the mapping applies to
	TargetCategory string        `json:"targetCategory" example:"Groceries"`                                                 // Name of the target category
	ParentCategory string        `json:"parentCategory,omitempty" example:"Living"`                                          // Parent for CREATE_SUBCATEGORY
	Action         MappingAction `json:"action" example:"CREATE_NEW"`                                                        // What to do with the target category on import
}

func (m *CategoryMapping) BeforeSave(_ *gorm.DB) error {
	m.BankCategory = strings.TrimSpace(m.BankCategory)
	m.TargetCategory = strings.TrimSpace(m.TargetCategory)
	m.ParentCategory = strings.TrimSpace(m.ParentCategory)

	switch m.Action {
	case ActionReuseExisting, ActionCreateNew, ActionCreateSubcategory:
		if m.TargetCategory == "" {
			return ErrMappingActionInvalid
		}
	case ActionMapToUncategorized:
		m.TargetCategory = UncategorizedName
	default:
		return ErrMappingActionInvalid
	}

	if m.Action != ActionCreateSubcategory {
		m.ParentCategory = ""
	}

	return nil
}

// ResolvedTarget returns the category name and parent a transaction with this
// mapping resolves to.
func (m CategoryMapping) ResolvedTarget() (name string, parent string) {
	if m.Action == ActionMapToUncategorized {
		return UncategorizedName, ""
	}

	return m.TargetCategory, m.ParentCategory
}

// CreatesCategory reports whether the action requires its target category to
// be created during import when it does not exist yet.
func (a MappingAction) CreatesCategory() bool {
	return a == ActionCreateNew || a == ActionCreateSubcategory
}

// CreatesCategory reports whether the mapping requires its target category to
// be created during import when it does not exist yet.
func (m CategoryMapping) CreatesCategory() bool {
	return m.Action.CreatesCategory()
}
