package importer

import (
	"github.com/flowledger/backend/internal/ledger"
	"github.com/flowledger/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ledger is the query/command facade of the cash flow domain, implemented by
// the ledger package.
type Ledger interface {
	GetInfo(cashFlowID uuid.UUID) (ledger.Info, error)
	CreateCategory(cashFlowID uuid.UUID, name, parent string, categoryType models.CategoryType) error
	ImportHistoricalTransaction(cashFlowID uuid.UUID, t ledger.HistoricalTransaction) (uuid.UUID, error)
	RollbackImport(cashFlowID uuid.UUID, transactionIDs []uuid.UUID, categories []models.RollbackCategory, deleteCategories bool) (ledger.RollbackResult, error)
}

// MappingStore provides the configured category mappings.
type MappingStore interface {
	FindByCashFlowID(cashFlowID uuid.UUID) ([]models.CategoryMapping, error)
}

// StagedTransactionStore holds the staged transactions of staging sessions.
// The store is responsible for dropping expired records eventually, callers
// still re-check expiry before acting.
type StagedTransactionStore interface {
	FindByStagingSessionID(sessionID uuid.UUID) ([]models.StagedTransaction, error)
	SaveAll(staged []models.StagedTransaction) error
}

// ImportJobStore persists import job records.
type ImportJobStore interface {
	Save(job *models.ImportJob) error
	FindByID(id uuid.UUID) (models.ImportJob, error)
	ExistsActiveByStagingSessionID(sessionID uuid.UUID) (bool, error)
}

// Stores bundles the gorm-backed implementations of the store contracts.
type Stores struct {
	Mappings MappingStore
	Staged   StagedTransactionStore
	Jobs     ImportJobStore
}

// NewStores returns gorm-backed stores on the given database.
func NewStores(db *gorm.DB) Stores {
	return Stores{
		Mappings: gormMappingStore{db: db},
		Staged:   gormStagedTransactionStore{db: db},
		Jobs:     gormImportJobStore{db: db},
	}
}

type gormMappingStore struct {
	db *gorm.DB
}

func (s gormMappingStore) FindByCashFlowID(cashFlowID uuid.UUID) ([]models.CategoryMapping, error) {
	var mappings []models.CategoryMapping
	err := s.db.Where(&models.CategoryMapping{CashFlowID: cashFlowID}).Order("created_at ASC").Find(&mappings).Error
	return mappings, err
}

type gormStagedTransactionStore struct {
	db *gorm.DB
}

func (s gormStagedTransactionStore) FindByStagingSessionID(sessionID uuid.UUID) ([]models.StagedTransaction, error) {
	var staged []models.StagedTransaction
	err := s.db.Where(&models.StagedTransaction{StagingSessionID: sessionID}).Order("created_at ASC, id ASC").Find(&staged).Error
	return staged, err
}

// SaveAll upserts the whole batch in one transaction so that a staging
// session is never persisted partially.
func (s gormStagedTransactionStore) SaveAll(staged []models.StagedTransaction) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for i := range staged {
			if err := tx.Save(&staged[i]).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

type gormImportJobStore struct {
	db *gorm.DB
}

func (s gormImportJobStore) Save(job *models.ImportJob) error {
	return s.db.Save(job).Error
}

func (s gormImportJobStore) FindByID(id uuid.UUID) (models.ImportJob, error) {
	var job models.ImportJob
	err := s.db.First(&job, "id = ?", id).Error
	return job, err
}

func (s gormImportJobStore) ExistsActiveByStagingSessionID(sessionID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.Model(&models.ImportJob{}).
		Where("staging_session_id = ? AND status IN ?", sessionID, []models.ImportJobStatus{models.ImportJobCreated, models.ImportJobProcessing}).
		Count(&count).Error

	return count > 0, err
}
