package v1_test

import (
	"fmt"
	"net/http"

	v1 "github.com/flowledger/backend/internal/controllers/v1"
	"github.com/flowledger/backend/internal/importer"
	"github.com/flowledger/backend/internal/models"
	fl_uuid "github.com/flowledger/backend/internal/uuid"
	"github.com/flowledger/backend/test"
	"github.com/google/uuid"
)

// stageReady creates a cash flow with a mapping and stages a transaction that
// is ready for import.
func (suite *TestSuiteStandard) stageReady() (v1.CashFlowResponse, v1.StagingResponse) {
	cashFlow := suite.createTestCashFlow(v1.CashFlowEditable{})
	_ = suite.createTestMapping(v1.MappingEditable{
		CashFlowID:     fl_uuid.UUID{UUID: cashFlow.Data.ID},
		BankCategory:   "LEBENSMITTEL",
		TargetCategory: "Groceries",
	})

	r := test.Request(suite.T(), http.MethodPost, fmt.Sprintf("http://example.com/v1/cash-flows/%s/import/staging", cashFlow.Data.ID), v1.StagingEditable{
		Transactions: []importer.RawBankTransaction{rawTransaction("TX-1", "LEBENSMITTEL", 42.12)},
	})
	test.AssertHTTPStatus(suite.T(), http.StatusCreated, &r)

	var staging v1.StagingResponse
	test.DecodeResponse(suite.T(), &r, &staging)
	suite.Require().Equal(importer.StagingReadyForImport, staging.Data.Status)

	return cashFlow, staging
}

func (suite *TestSuiteStandard) TestOptionsImport() {
	cashFlow := suite.createTestCashFlow(v1.CashFlowEditable{})
	prefix := fmt.Sprintf("http://example.com/v1/cash-flows/%s/import", cashFlow.Data.ID)

	for path, allow := range map[string]string{
		"/staging":     "OPTIONS, POST",
		"/staging/csv": "OPTIONS, POST",
		"/staging/5b95e1a9-522d-4a36-9074-32f7c15846a9/revalidation": "OPTIONS, POST",
		"/jobs": "OPTIONS, POST",
		"/jobs/5b95e1a9-522d-4a36-9074-32f7c15846a9":          "OPTIONS, GET",
		"/jobs/5b95e1a9-522d-4a36-9074-32f7c15846a9/rollback": "OPTIONS, POST",
	} {
		r := test.Request(suite.T(), http.MethodOptions, prefix+path, "")
		test.AssertHTTPStatus(suite.T(), http.StatusNoContent, &r)
		suite.Assert().Equal(allow, r.Header().Get("allow"), "wrong allow header for %s", path)
	}
}

func (suite *TestSuiteStandard) TestCreateStaging() {
	_, staging := suite.stageReady()

	suite.Assert().NotEqual(uuid.Nil, staging.Data.StagingSessionID)
	suite.Assert().Equal(1, staging.Data.TotalCount)
	suite.Assert().Equal(1, staging.Data.ValidCount)
	suite.Require().Len(staging.Data.CategoriesToCreate, 1)
	suite.Assert().Equal("Groceries", staging.Data.CategoriesToCreate[0].Name)
}

func (suite *TestSuiteStandard) TestCreateStagingCashFlowNotFound() {
	r := test.Request(suite.T(), http.MethodPost, "http://example.com/v1/cash-flows/5b95e1a9-522d-4a36-9074-32f7c15846a9/import/staging", v1.StagingEditable{
		Transactions: []importer.RawBankTransaction{rawTransaction("TX-1", "LEBENSMITTEL", 10)},
	})
	test.AssertHTTPStatus(suite.T(), http.StatusNotFound, &r)
}

func (suite *TestSuiteStandard) TestCreateStagingUnmapped() {
	cashFlow := suite.createTestCashFlow(v1.CashFlowEditable{})
	url := fmt.Sprintf("http://example.com/v1/cash-flows/%s/import/staging", cashFlow.Data.ID)

	// Without keepUnmapped, nothing is persisted
	r := test.Request(suite.T(), http.MethodPost, url, v1.StagingEditable{
		Transactions: []importer.RawBankTransaction{rawTransaction("TX-1", "LEBENSMITTEL", 10)},
	})
	test.AssertHTTPStatus(suite.T(), http.StatusUnprocessableEntity, &r)

	var staging v1.StagingResponse
	test.DecodeResponse(suite.T(), &r, &staging)
	suite.Assert().Equal(importer.StagingHasUnmappedCategories, staging.Data.Status)
	suite.Assert().Equal(uuid.Nil, staging.Data.StagingSessionID)
	suite.Require().Len(staging.Data.UnmappedCategories, 1)
	suite.Assert().Equal("LEBENSMITTEL", staging.Data.UnmappedCategories[0].BankCategory)

	// With keepUnmapped, the session is created with pending transactions
	r = test.Request(suite.T(), http.MethodPost, url, v1.StagingEditable{
		Transactions: []importer.RawBankTransaction{rawTransaction("TX-1", "LEBENSMITTEL", 10)},
		KeepUnmapped: true,
	})
	test.AssertHTTPStatus(suite.T(), http.StatusCreated, &r)

	test.DecodeResponse(suite.T(), &r, &staging)
	suite.Assert().Equal(importer.StagingHasUnmappedCategories, staging.Data.Status)
	suite.Assert().NotEqual(uuid.Nil, staging.Data.StagingSessionID)
	suite.Assert().Equal(1, staging.Data.PendingCount)
}

func (suite *TestSuiteStandard) TestCreateStagingCSV() {
	cashFlow := suite.createTestCashFlow(v1.CashFlowEditable{})
	_ = suite.createTestMapping(v1.MappingEditable{
		CashFlowID:     fl_uuid.UUID{UUID: cashFlow.Data.ID},
		BankCategory:   "LEBENSMITTEL",
		TargetCategory: "Groceries",
	})

	body, headers := multipartFile(suite.T(), "export.csv",
		"bankTransactionId,name,description,bankCategory,amount,currency,type,paidDate\n"+
			"TX-1,REWE SAGT DANKE,,LEBENSMITTEL,42.12,EUR,OUTFLOW,2026-05-02\n")

	r := test.Request(suite.T(), http.MethodPost, fmt.Sprintf("http://example.com/v1/cash-flows/%s/import/staging/csv", cashFlow.Data.ID), body, headers)
	test.AssertHTTPStatus(suite.T(), http.StatusCreated, &r)

	var staging v1.StagingResponse
	test.DecodeResponse(suite.T(), &r, &staging)
	suite.Assert().Equal(importer.StagingReadyForImport, staging.Data.Status)
	suite.Assert().Equal(1, staging.Data.ValidCount)
}

func (suite *TestSuiteStandard) TestCreateStagingCSVErrors() {
	cashFlow := suite.createTestCashFlow(v1.CashFlowEditable{})
	url := fmt.Sprintf("http://example.com/v1/cash-flows/%s/import/staging/csv", cashFlow.Data.ID)

	// No file at all
	r := test.Request(suite.T(), http.MethodPost, url, "")
	test.AssertHTTPStatus(suite.T(), http.StatusBadRequest, &r)

	// Wrong suffix
	body, headers := multipartFile(suite.T(), "export.txt", "whatever")
	r = test.Request(suite.T(), http.MethodPost, url, body, headers)
	test.AssertHTTPStatus(suite.T(), http.StatusBadRequest, &r)

	// Unparseable content
	body, headers = multipartFile(suite.T(), "export.csv",
		"bankTransactionId,name,description,bankCategory,amount,currency,type,paidDate\n"+
			"TX-1,REWE SAGT DANKE,,LEBENSMITTEL,not-a-number,EUR,OUTFLOW,2026-05-02\n")
	r = test.Request(suite.T(), http.MethodPost, url, body, headers)
	test.AssertHTTPStatus(suite.T(), http.StatusBadRequest, &r)
}

func (suite *TestSuiteStandard) TestCreateRevalidation() {
	cashFlow := suite.createTestCashFlow(v1.CashFlowEditable{})

	r := test.Request(suite.T(), http.MethodPost, fmt.Sprintf("http://example.com/v1/cash-flows/%s/import/staging", cashFlow.Data.ID), v1.StagingEditable{
		Transactions: []importer.RawBankTransaction{rawTransaction("TX-1", "LEBENSMITTEL", 10)},
		KeepUnmapped: true,
	})
	test.AssertHTTPStatus(suite.T(), http.StatusCreated, &r)

	var staging v1.StagingResponse
	test.DecodeResponse(suite.T(), &r, &staging)

	url := fmt.Sprintf("http://example.com/v1/cash-flows/%s/import/staging/%s/revalidation", cashFlow.Data.ID, staging.Data.StagingSessionID)

	// Still nothing mapped
	r = test.Request(suite.T(), http.MethodPost, url, "")
	test.AssertHTTPStatus(suite.T(), http.StatusOK, &r)

	var revalidation v1.RevalidationResponse
	test.DecodeResponse(suite.T(), &r, &revalidation)
	suite.Assert().Equal(importer.RevalidationStillUnmapped, revalidation.Data.Status)

	// After configuring the mapping the session becomes importable
	_ = suite.createTestMapping(v1.MappingEditable{
		CashFlowID:     fl_uuid.UUID{UUID: cashFlow.Data.ID},
		BankCategory:   "LEBENSMITTEL",
		TargetCategory: "Groceries",
	})

	r = test.Request(suite.T(), http.MethodPost, url, "")
	test.AssertHTTPStatus(suite.T(), http.StatusOK, &r)

	test.DecodeResponse(suite.T(), &r, &revalidation)
	suite.Assert().Equal(importer.RevalidationSuccess, revalidation.Data.Status)
	suite.Assert().Equal(1, revalidation.Data.RevalidatedCount)
}

func (suite *TestSuiteStandard) TestCreateRevalidationSessionNotFound() {
	cashFlow := suite.createTestCashFlow(v1.CashFlowEditable{})

	r := test.Request(suite.T(), http.MethodPost, fmt.Sprintf("http://example.com/v1/cash-flows/%s/import/staging/5b95e1a9-522d-4a36-9074-32f7c15846a9/revalidation", cashFlow.Data.ID), "")
	test.AssertHTTPStatus(suite.T(), http.StatusNotFound, &r)
}

func (suite *TestSuiteStandard) TestImportJobLifecycle() {
	cashFlow, staging := suite.stageReady()
	prefix := fmt.Sprintf("http://example.com/v1/cash-flows/%s/import", cashFlow.Data.ID)

	r := test.Request(suite.T(), http.MethodPost, prefix+"/jobs", v1.ImportJobEditable{
		StagingSessionID: fl_uuid.UUID{UUID: staging.Data.StagingSessionID},
	})
	test.AssertHTTPStatus(suite.T(), http.StatusCreated, &r)

	var job v1.ImportJobResponse
	test.DecodeResponse(suite.T(), &r, &job)
	suite.Assert().Equal(models.ImportJobCompleted, job.Data.Status)
	suite.Assert().Equal(1, job.Data.Result.TransactionsImported)
	suite.Assert().Equal([]string{"Groceries"}, job.Data.Result.CategoriesCreated)
	suite.Assert().True(job.Data.Rollback.CanRollback)

	r = test.Request(suite.T(), http.MethodGet, fmt.Sprintf("%s/jobs/%s", prefix, job.Data.ID), "")
	test.AssertHTTPStatus(suite.T(), http.StatusOK, &r)

	test.DecodeResponse(suite.T(), &r, &job)
	suite.Assert().Equal(models.ImportJobCompleted, job.Data.Status)

	// Roll the import back within the window
	r = test.Request(suite.T(), http.MethodPost, fmt.Sprintf("%s/jobs/%s/rollback?deleteCategories=true", prefix, job.Data.ID), "")
	test.AssertHTTPStatus(suite.T(), http.StatusOK, &r)

	test.DecodeResponse(suite.T(), &r, &job)
	suite.Assert().Equal(models.ImportJobRolledBack, job.Data.Status)
	suite.Assert().False(job.Data.Rollback.CanRollback)

	// A rolled back job cannot be rolled back again
	r = test.Request(suite.T(), http.MethodPost, fmt.Sprintf("%s/jobs/%s/rollback", prefix, job.Data.ID), "")
	test.AssertHTTPStatus(suite.T(), http.StatusConflict, &r)
}

func (suite *TestSuiteStandard) TestCreateImportJobSessionNotFound() {
	cashFlow := suite.createTestCashFlow(v1.CashFlowEditable{})

	r := test.Request(suite.T(), http.MethodPost, fmt.Sprintf("http://example.com/v1/cash-flows/%s/import/jobs", cashFlow.Data.ID), v1.ImportJobEditable{
		StagingSessionID: fl_uuid.UUID{UUID: uuid.New()},
	})
	test.AssertHTTPStatus(suite.T(), http.StatusNotFound, &r)
}

func (suite *TestSuiteStandard) TestCreateImportJobNotFullyMapped() {
	cashFlow := suite.createTestCashFlow(v1.CashFlowEditable{})

	r := test.Request(suite.T(), http.MethodPost, fmt.Sprintf("http://example.com/v1/cash-flows/%s/import/staging", cashFlow.Data.ID), v1.StagingEditable{
		Transactions: []importer.RawBankTransaction{rawTransaction("TX-1", "LEBENSMITTEL", 10)},
		KeepUnmapped: true,
	})
	test.AssertHTTPStatus(suite.T(), http.StatusCreated, &r)

	var staging v1.StagingResponse
	test.DecodeResponse(suite.T(), &r, &staging)

	r = test.Request(suite.T(), http.MethodPost, fmt.Sprintf("http://example.com/v1/cash-flows/%s/import/jobs", cashFlow.Data.ID), v1.ImportJobEditable{
		StagingSessionID: fl_uuid.UUID{UUID: staging.Data.StagingSessionID},
	})
	test.AssertHTTPStatus(suite.T(), http.StatusConflict, &r)
}

func (suite *TestSuiteStandard) TestGetImportJobNotFound() {
	cashFlow := suite.createTestCashFlow(v1.CashFlowEditable{})

	r := test.Request(suite.T(), http.MethodGet, fmt.Sprintf("http://example.com/v1/cash-flows/%s/import/jobs/5b95e1a9-522d-4a36-9074-32f7c15846a9", cashFlow.Data.ID), "")
	test.AssertHTTPStatus(suite.T(), http.StatusNotFound, &r)
}

func (suite *TestSuiteStandard) TestGetImportJobInvalidUUID() {
	cashFlow := suite.createTestCashFlow(v1.CashFlowEditable{})

	r := test.Request(suite.T(), http.MethodGet, fmt.Sprintf("http://example.com/v1/cash-flows/%s/import/jobs/NotAUUID", cashFlow.Data.ID), "")
	test.AssertHTTPStatus(suite.T(), http.StatusBadRequest, &r)
}
