// Package ledger is the query/command facade the import pipeline uses to talk
// to the cash flow's own domain model.
//
// Errors come in two flavors: typed domain errors (ErrCashFlowNotFound,
// ErrCategoryAlreadyExists, ErrCategoryNotFound) that callers can recover from
// per item, and ErrCommunication, which wraps unexpected storage errors and is
// structural: it fails the whole surrounding operation.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/flowledger/backend/internal/models"
	"github.com/flowledger/backend/internal/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrCashFlowNotFound      = errors.New("there is no cash flow with this id")
	ErrCategoryAlreadyExists = errors.New("the category already exists")
	ErrCategoryNotFound      = errors.New("the category does not exist")
	ErrCommunication         = errors.New("communication with the ledger failed")
)

// CategoryInfo is one node of the category tree in an Info snapshot.
type CategoryInfo struct {
	ID     uuid.UUID
	Name   string
	Parent string
	Type   models.CategoryType
}

// Info is a point-in-time snapshot of a cash flow, read once per staging,
// revalidation or import operation.
type Info struct {
	Status                 models.CashFlowStatus
	Currency               string
	StartPeriod            types.Month
	ActivePeriod           types.Month
	Categories             []CategoryInfo
	ExistingTransactionIDs map[string]struct{} // Bank transaction ids already present in the ledger
}

// HasCategory reports whether a category with this name and type exists in
// the snapshot.
func (i Info) HasCategory(name string, categoryType models.CategoryType) bool {
	for _, c := range i.Categories {
		if c.Name == name && c.Type == categoryType {
			return true
		}
	}

	return false
}

// HistoricalTransaction is the payload for importing one backdated
// transaction into the ledger.
type HistoricalTransaction struct {
	Category          string
	Name              string
	Description       string
	Amount            decimal.Decimal
	Currency          string
	Type              models.CategoryType
	DueDate           time.Time
	PaidDate          time.Time
	BankTransactionID string
}

// RollbackResult reports what a rollback deleted.
type RollbackResult struct {
	TransactionsDeleted int
	CategoriesDeleted   int
}

// Facade implements the ledger contract on the gorm-backed models.
type Facade struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Facade {
	return &Facade{db: db}
}

// GetInfo reads the snapshot for a cash flow.
func (f *Facade) GetInfo(cashFlowID uuid.UUID) (Info, error) {
	var cashFlow models.CashFlow
	err := f.db.First(&cashFlow, "id = ?", cashFlowID).Error
	if errors.Is(err, models.ErrResourceNotFound) {
		return Info{}, ErrCashFlowNotFound
	}
	if err != nil {
		return Info{}, fmt.Errorf("%w: %s", ErrCommunication, err)
	}

	var categories []models.Category
	err = f.db.Where(&models.Category{CashFlowID: cashFlowID}).Find(&categories).Error
	if err != nil {
		return Info{}, fmt.Errorf("%w: %s", ErrCommunication, err)
	}

	namesByID := make(map[uuid.UUID]string, len(categories))
	for _, c := range categories {
		namesByID[c.ID] = c.Name
	}

	info := Info{
		Status:                 cashFlow.Status,
		Currency:               cashFlow.Currency,
		StartPeriod:            cashFlow.StartPeriod,
		ActivePeriod:           cashFlow.ActivePeriod,
		ExistingTransactionIDs: make(map[string]struct{}),
	}

	for _, c := range categories {
		node := CategoryInfo{ID: c.ID, Name: c.Name, Type: c.Type}
		if c.ParentID != nil {
			node.Parent = namesByID[*c.ParentID]
		}
		info.Categories = append(info.Categories, node)
	}

	var bankIDs []string
	err = f.db.Model(&models.Transaction{}).
		Where("cash_flow_id = ? AND bank_transaction_id != ''", cashFlowID).
		Pluck("bank_transaction_id", &bankIDs).Error
	if err != nil {
		return Info{}, fmt.Errorf("%w: %s", ErrCommunication, err)
	}

	for _, id := range bankIDs {
		info.ExistingTransactionIDs[id] = struct{}{}
	}

	return info, nil
}

// CreateCategory creates a category for the cash flow. A missing parent is
// created on the fly so that subcategories can be created in any order.
func (f *Facade) CreateCategory(cashFlowID uuid.UUID, name, parent string, categoryType models.CategoryType) error {
	var existing models.Category
	err := f.db.Where(&models.Category{CashFlowID: cashFlowID, Name: name, Type: categoryType}, "CashFlowID", "Name", "Type").
		First(&existing).Error
	if err == nil {
		return ErrCategoryAlreadyExists
	}
	if !errors.Is(err, models.ErrResourceNotFound) {
		return fmt.Errorf("%w: %s", ErrCommunication, err)
	}

	category := models.Category{CashFlowID: cashFlowID, Name: name, Type: categoryType}

	if parent != "" {
		parentCategory, err := f.findOrCreateParent(cashFlowID, parent, categoryType)
		if err != nil {
			return err
		}
		category.ParentID = &parentCategory.ID
	}

	err = f.db.Create(&category).Error
	if errors.Is(err, models.ErrCategoryNameNotUnique) {
		return ErrCategoryAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("%w: %s", ErrCommunication, err)
	}

	return nil
}

func (f *Facade) findOrCreateParent(cashFlowID uuid.UUID, name string, categoryType models.CategoryType) (models.Category, error) {
	var parent models.Category
	err := f.db.Where(&models.Category{CashFlowID: cashFlowID, Name: name, Type: categoryType}, "CashFlowID", "Name", "Type").
		First(&parent).Error
	if err == nil {
		return parent, nil
	}
	if !errors.Is(err, models.ErrResourceNotFound) {
		return models.Category{}, fmt.Errorf("%w: %s", ErrCommunication, err)
	}

	parent = models.Category{CashFlowID: cashFlowID, Name: name, Type: categoryType}
	err = f.db.Create(&parent).Error
	if err != nil {
		return models.Category{}, fmt.Errorf("%w: %s", ErrCommunication, err)
	}

	return parent, nil
}

// ImportHistoricalTransaction writes one backdated transaction into the
// ledger and returns the id of the created transaction.
func (f *Facade) ImportHistoricalTransaction(cashFlowID uuid.UUID, t HistoricalTransaction) (uuid.UUID, error) {
	var category models.Category
	err := f.db.Where(&models.Category{CashFlowID: cashFlowID, Name: t.Category, Type: t.Type}, "CashFlowID", "Name", "Type").
		First(&category).Error
	if errors.Is(err, models.ErrResourceNotFound) {
		return uuid.Nil, fmt.Errorf("%w: %s (%s)", ErrCategoryNotFound, t.Category, t.Type)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrCommunication, err)
	}

	transaction := models.Transaction{
		CashFlowID:        cashFlowID,
		CategoryID:        category.ID,
		Name:              t.Name,
		Description:       t.Description,
		Amount:            t.Amount,
		Currency:          t.Currency,
		Type:              t.Type,
		DueDate:           t.DueDate,
		PaidDate:          t.PaidDate,
		BankTransactionID: t.BankTransactionID,
		Historical:        true,
	}

	err = f.db.Create(&transaction).Error
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrCommunication, err)
	}

	return transaction.ID, nil
}

// RollbackImport deletes the transactions created by an import and, if
// requested, the categories that were created for it. Categories that still
// have transactions are kept.
func (f *Facade) RollbackImport(cashFlowID uuid.UUID, transactionIDs []uuid.UUID, categories []models.RollbackCategory, deleteCategories bool) (RollbackResult, error) {
	var result RollbackResult

	// Roll back everything if any single deletion fails
	tx := f.db.Begin()

	if len(transactionIDs) > 0 {
		res := tx.Where("cash_flow_id = ?", cashFlowID).Delete(&models.Transaction{}, transactionIDs)
		if res.Error != nil {
			tx.Rollback()
			return RollbackResult{}, fmt.Errorf("%w: %s", ErrCommunication, res.Error)
		}
		result.TransactionsDeleted = int(res.RowsAffected)
	}

	if deleteCategories {
		for _, category := range categories {
			var count int64
			err := tx.Model(&models.Transaction{}).
				Joins("JOIN categories ON categories.id = transactions.category_id").
				Where("transactions.cash_flow_id = ? AND categories.name = ? AND categories.type = ?", cashFlowID, category.Name, category.Type).
				Count(&count).Error
			if err != nil {
				tx.Rollback()
				return RollbackResult{}, fmt.Errorf("%w: %s", ErrCommunication, err)
			}

			if count > 0 {
				continue
			}

			res := tx.Where("cash_flow_id = ? AND name = ? AND type = ?", cashFlowID, category.Name, category.Type).Delete(&models.Category{})
			if res.Error != nil {
				tx.Rollback()
				return RollbackResult{}, fmt.Errorf("%w: %s", ErrCommunication, res.Error)
			}
			result.CategoriesDeleted += int(res.RowsAffected)
		}
	}

	tx.Commit()
	return result, nil
}
