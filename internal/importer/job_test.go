package importer_test

import (
	"time"

	"github.com/flowledger/backend/internal/config"
	"github.com/flowledger/backend/internal/importer"
	"github.com/flowledger/backend/internal/ledger"
	"github.com/flowledger/backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// fakeLedger fails selected operations to test structural error handling.
type fakeLedger struct {
	info      ledger.Info
	infoErr   error
	createErr error
	importErr error
}

func (f *fakeLedger) GetInfo(_ uuid.UUID) (ledger.Info, error) {
	return f.info, f.infoErr
}

func (f *fakeLedger) CreateCategory(_ uuid.UUID, _, _ string, _ models.CategoryType) error {
	return f.createErr
}

func (f *fakeLedger) ImportHistoricalTransaction(_ uuid.UUID, _ ledger.HistoricalTransaction) (uuid.UUID, error) {
	if f.importErr != nil {
		return uuid.Nil, f.importErr
	}

	return uuid.New(), nil
}

func (f *fakeLedger) RollbackImport(_ uuid.UUID, _ []uuid.UUID, _ []models.RollbackCategory, _ bool) (ledger.RollbackResult, error) {
	return ledger.RollbackResult{}, nil
}

func (suite *TestSuiteStandard) TestImportHappyPath() {
	clock := newTestClock()
	e := suite.engine(clock)

	cashFlow, staged := suite.stageReady(e, []importer.RawBankTransaction{
		rawTransaction("TX-1", "LEBENSMITTEL", 42.12),
		rawTransaction("TX-2", "LEBENSMITTEL", 7.88),
	})
	suite.Require().Equal(importer.StagingReadyForImport, staged.Status)

	job, err := e.StartImport(cashFlow.ID, staged.StagingSessionID)
	suite.Require().Nil(err)

	suite.Assert().Equal(models.ImportJobCompleted, job.Status)
	suite.Require().NotNil(job.StartedAt)
	suite.Require().NotNil(job.CompletedAt)
	suite.Require().NotNil(job.FinalizedAt)
	suite.Assert().Equal(*job.CompletedAt, *job.FinalizedAt)

	suite.Assert().Equal(2, job.Input.TotalTransactions)
	suite.Assert().Equal(2, job.Input.ValidTransactions)
	suite.Assert().Equal(1, job.Input.CategoriesToCreate)
	suite.Assert().Equal(50, job.Input.BatchSize)

	suite.Assert().Equal([]string{"Groceries"}, job.Result.CategoriesCreated)
	suite.Assert().Equal(2, job.Result.TransactionsImported)
	suite.Assert().Equal(0, job.Result.TransactionsFailed)
	suite.Require().Len(job.Result.LedgerTransactionIDs, 2)

	// Both phases completed, in order
	suite.Assert().Equal(100, job.Progress.Percentage)
	suite.Require().Len(job.Progress.Phases, 2)
	suite.Assert().Equal(models.PhaseCreatingCategories, job.Progress.Phases[0].Phase)
	suite.Assert().Equal("COMPLETED", job.Progress.Phases[0].Status)
	suite.Assert().Equal(models.PhaseImportingTransactions, job.Progress.Phases[1].Phase)
	suite.Assert().Equal("COMPLETED", job.Progress.Phases[1].Status)
	suite.Assert().Equal(2, job.Progress.Phases[1].Processed)

	// The rollback window is open
	suite.Assert().True(job.Rollback.CanRollback)
	suite.Assert().Equal(clock.Now().Add(time.Hour), job.Rollback.Deadline)
	suite.Assert().Len(job.Rollback.CreatedTransactionIDs, 2)
	suite.Assert().Equal([]models.RollbackCategory{{Name: "Groceries", Type: models.CategoryTypeOutflow}}, job.Rollback.CreatedCategories)

	suite.Require().NotNil(job.Summary)
	suite.Require().Len(job.Summary.Categories, 1)
	suite.Assert().Equal("Groceries", job.Summary.Categories[0].Category)
	suite.Assert().Equal(2, job.Summary.Categories[0].Count)
	suite.Assert().True(decimal.NewFromInt(50).Equal(job.Summary.Categories[0].Total))
	suite.Assert().True(job.Summary.Categories[0].NewlyCreated)
	suite.Require().Len(job.Summary.Months, 1)
	suite.Assert().Equal("2026-05", job.Summary.Months[0].Month.String())

	// The ledger now holds the transactions and the created category
	var transactions []models.Transaction
	models.DB.Where(&models.Transaction{CashFlowID: cashFlow.ID}).Find(&transactions)
	suite.Require().Len(transactions, 2)
	suite.Assert().True(transactions[0].Historical)

	var category models.Category
	err = models.DB.Where(&models.Category{CashFlowID: cashFlow.ID, Name: "Groceries"}).First(&category).Error
	suite.Assert().Nil(err)
}

func (suite *TestSuiteStandard) TestImportNotSetup() {
	e := suite.engine(newTestClock())

	cashFlow, staged := suite.stageReady(e, []importer.RawBankTransaction{rawTransaction("TX-1", "LEBENSMITTEL", 10)})

	err := models.DB.Model(&models.CashFlow{}).Where("id = ?", cashFlow.ID).Update("status", models.CashFlowStatusActive).Error
	suite.Require().Nil(err)

	_, err = e.StartImport(cashFlow.ID, staged.StagingSessionID)
	suite.Assert().ErrorIs(err, importer.ErrStagingSessionNotReady)
}

func (suite *TestSuiteStandard) TestImportSessionNotFound() {
	e := suite.engine(newTestClock())
	cashFlow := suite.createTestCashFlow(models.CashFlow{})

	_, err := e.StartImport(cashFlow.ID, uuid.New())
	suite.Assert().ErrorIs(err, importer.ErrSessionNotFound)
}

func (suite *TestSuiteStandard) TestImportSessionExpired() {
	clock := newTestClock()
	e := suite.engine(clock)

	cashFlow, staged := suite.stageReady(e, []importer.RawBankTransaction{rawTransaction("TX-1", "LEBENSMITTEL", 10)})

	clock.now = clock.now.Add(25 * time.Hour)

	_, err := e.StartImport(cashFlow.ID, staged.StagingSessionID)
	suite.Assert().ErrorIs(err, importer.ErrSessionExpired)
}

func (suite *TestSuiteStandard) TestImportSessionNotFullyMapped() {
	e := suite.engine(newTestClock())
	cashFlow := suite.createTestCashFlow(models.CashFlow{})

	staged, err := e.Stage(cashFlow.ID, []importer.RawBankTransaction{rawTransaction("TX-1", "LEBENSMITTEL", 10)}, importer.StageOptions{KeepUnmapped: true})
	suite.Require().Nil(err)

	_, err = e.StartImport(cashFlow.ID, staged.StagingSessionID)
	suite.Assert().ErrorIs(err, importer.ErrSessionNotFullyMapped)
}

func (suite *TestSuiteStandard) TestImportAlreadyRunning() {
	e := suite.engine(newTestClock())

	cashFlow, staged := suite.stageReady(e, []importer.RawBankTransaction{rawTransaction("TX-1", "LEBENSMITTEL", 10)})

	err := models.DB.Create(&models.ImportJob{
		CashFlowID:       cashFlow.ID,
		StagingSessionID: staged.StagingSessionID,
		Status:           models.ImportJobProcessing,
	}).Error
	suite.Require().Nil(err)

	_, err = e.StartImport(cashFlow.ID, staged.StagingSessionID)
	suite.Assert().ErrorIs(err, importer.ErrImportJobAlreadyRunning)
}

func (suite *TestSuiteStandard) TestImportDuplicatesSkipped() {
	e := suite.engine(newTestClock())
	cashFlow := suite.createTestCashFlow(models.CashFlow{})
	category := suite.createTestCategory(models.Category{CashFlowID: cashFlow.ID, Name: "Groceries"})
	suite.createTestMapping(models.CategoryMapping{
		CashFlowID:     cashFlow.ID,
		BankCategory:   "LEBENSMITTEL",
		TargetCategory: "Groceries",
		Action:         models.ActionReuseExisting,
	})

	err := models.DB.Create(&models.Transaction{
		CashFlowID:        cashFlow.ID,
		CategoryID:        category.ID,
		Name:              "REWE SAGT DANKE",
		Amount:            decimal.NewFromInt(10),
		Currency:          "EUR",
		Type:              models.CategoryTypeOutflow,
		PaidDate:          time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC),
		BankTransactionID: "TX-1",
		Historical:        true,
	}).Error
	suite.Require().Nil(err)

	staged, err := e.Stage(cashFlow.ID, []importer.RawBankTransaction{
		rawTransaction("TX-1", "LEBENSMITTEL", 10),
		rawTransaction("TX-2", "LEBENSMITTEL", 20),
	}, importer.StageOptions{})
	suite.Require().Nil(err)

	job, err := e.StartImport(cashFlow.ID, staged.StagingSessionID)
	suite.Require().Nil(err)

	suite.Assert().Equal(models.ImportJobCompleted, job.Status)
	suite.Assert().Equal(1, job.Input.DuplicateTransactions)
	suite.Assert().Equal(1, job.Result.TransactionsImported)

	// The duplicate stays untouched, only the new transaction was written
	var count int64
	models.DB.Model(&models.Transaction{}).Where("cash_flow_id = ?", cashFlow.ID).Count(&count)
	suite.Assert().Equal(int64(2), count)
}

func (suite *TestSuiteStandard) TestImportStructuralFailure() {
	clock := newTestClock()
	real := suite.engine(clock)

	cashFlow, staged := suite.stageReady(real, []importer.RawBankTransaction{
		rawTransaction("TX-1", "LEBENSMITTEL", 10),
		rawTransaction("TX-2", "LEBENSMITTEL", 20),
	})

	// The ledger accepts the category but fails on every transaction
	fake := &fakeLedger{
		info: ledger.Info{
			Status:       models.CashFlowStatusSetup,
			Currency:     "EUR",
			StartPeriod:  cashFlow.StartPeriod,
			ActivePeriod: cashFlow.ActivePeriod,
		},
		importErr: ledger.ErrCommunication,
	}

	e := importer.New(fake, importer.NewStores(models.DB), clock, config.Defaults())

	job, err := e.StartImport(cashFlow.ID, staged.StagingSessionID)
	suite.Require().Nil(err)

	suite.Assert().Equal(models.ImportJobFailed, job.Status)
	suite.Require().NotNil(job.FailedAt)
	suite.Require().NotNil(job.FinalizedAt)
	suite.Assert().NotEmpty(job.Error)
	suite.Assert().Nil(job.CompletedAt)
	suite.Assert().False(job.Rollback.CanRollback)

	// Progress up to the failure is retained
	suite.Require().Len(job.Progress.Phases, 2)
	suite.Assert().Equal("COMPLETED", job.Progress.Phases[0].Status)
	suite.Assert().Equal("RUNNING", job.Progress.Phases[1].Status)

	// The failed state is persisted
	persisted, err := e.Job(job.ID)
	suite.Require().Nil(err)
	suite.Assert().Equal(models.ImportJobFailed, persisted.Status)
}

func (suite *TestSuiteStandard) TestImportPerItemFailure() {
	clock := newTestClock()
	e := suite.engine(clock)

	cashFlow := suite.createTestCashFlow(models.CashFlow{})
	suite.createTestMapping(models.CategoryMapping{
		CashFlowID:     cashFlow.ID,
		BankCategory:   "LEBENSMITTEL",
		TargetCategory: "Groceries",
		Action:         models.ActionReuseExisting,
	})

	// REUSE_EXISTING with a missing category fails per item at import time
	staged, err := e.Stage(cashFlow.ID, []importer.RawBankTransaction{rawTransaction("TX-1", "LEBENSMITTEL", 10)}, importer.StageOptions{})
	suite.Require().Nil(err)

	job, err := e.StartImport(cashFlow.ID, staged.StagingSessionID)
	suite.Require().Nil(err)

	suite.Assert().Equal(models.ImportJobCompleted, job.Status)
	suite.Assert().Equal(0, job.Result.TransactionsImported)
	suite.Assert().Equal(1, job.Result.TransactionsFailed)
	suite.Require().Len(job.Result.Errors, 1)
	suite.Assert().Equal("TX-1", job.Result.Errors[0].BankTransactionID)
}

func (suite *TestSuiteStandard) TestRollback() {
	clock := newTestClock()
	e := suite.engine(clock)

	cashFlow, staged := suite.stageReady(e, []importer.RawBankTransaction{
		rawTransaction("TX-1", "LEBENSMITTEL", 10),
		rawTransaction("TX-2", "LEBENSMITTEL", 20),
	})

	job, err := e.StartImport(cashFlow.ID, staged.StagingSessionID)
	suite.Require().Nil(err)
	suite.Require().Equal(models.ImportJobCompleted, job.Status)

	rolledBack, err := e.RollbackJob(job.ID, true)
	suite.Require().Nil(err)

	suite.Assert().Equal(models.ImportJobRolledBack, rolledBack.Status)
	suite.Require().NotNil(rolledBack.RolledBackAt)
	suite.Assert().False(rolledBack.Rollback.CanRollback)
	suite.Require().NotNil(rolledBack.Summary.Rollback)
	suite.Assert().Equal(2, rolledBack.Summary.Rollback.TransactionsDeleted)
	suite.Assert().Equal(1, rolledBack.Summary.Rollback.CategoriesDeleted)

	var count int64
	models.DB.Model(&models.Transaction{}).Where("cash_flow_id = ?", cashFlow.ID).Count(&count)
	suite.Assert().Equal(int64(0), count)

	// A rolled back job cannot be rolled back again
	_, err = e.RollbackJob(job.ID, true)
	suite.Assert().ErrorIs(err, importer.ErrJobNotRollbackable)
}

func (suite *TestSuiteStandard) TestRollbackKeepsCategories() {
	clock := newTestClock()
	e := suite.engine(clock)

	cashFlow, staged := suite.stageReady(e, []importer.RawBankTransaction{rawTransaction("TX-1", "LEBENSMITTEL", 10)})

	job, err := e.StartImport(cashFlow.ID, staged.StagingSessionID)
	suite.Require().Nil(err)

	rolledBack, err := e.RollbackJob(job.ID, false)
	suite.Require().Nil(err)

	suite.Assert().Equal(1, rolledBack.Summary.Rollback.TransactionsDeleted)
	suite.Assert().Equal(0, rolledBack.Summary.Rollback.CategoriesDeleted)

	var category models.Category
	err = models.DB.Where(&models.Category{CashFlowID: cashFlow.ID, Name: "Groceries"}).First(&category).Error
	suite.Assert().Nil(err)
}

func (suite *TestSuiteStandard) TestRollbackWindowExpired() {
	clock := newTestClock()
	e := suite.engine(clock)

	cashFlow, staged := suite.stageReady(e, []importer.RawBankTransaction{rawTransaction("TX-1", "LEBENSMITTEL", 10)})

	job, err := e.StartImport(cashFlow.ID, staged.StagingSessionID)
	suite.Require().Nil(err)

	clock.now = clock.now.Add(2 * time.Hour)

	_, err = e.RollbackJob(job.ID, true)
	suite.Assert().ErrorIs(err, importer.ErrRollbackWindowExpired)
}

func (suite *TestSuiteStandard) TestRollbackFailedJob() {
	clock := newTestClock()
	real := suite.engine(clock)

	cashFlow, staged := suite.stageReady(real, []importer.RawBankTransaction{rawTransaction("TX-1", "LEBENSMITTEL", 10)})

	fake := &fakeLedger{
		info: ledger.Info{
			Status:       models.CashFlowStatusSetup,
			Currency:     "EUR",
			StartPeriod:  cashFlow.StartPeriod,
			ActivePeriod: cashFlow.ActivePeriod,
		},
		createErr: ledger.ErrCommunication,
	}

	e := importer.New(fake, importer.NewStores(models.DB), clock, config.Defaults())

	job, err := e.StartImport(cashFlow.ID, staged.StagingSessionID)
	suite.Require().Nil(err)
	suite.Require().Equal(models.ImportJobFailed, job.Status)

	_, err = e.RollbackJob(job.ID, true)
	suite.Assert().ErrorIs(err, importer.ErrJobNotRollbackable)
}
