package v1

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/flowledger/backend/internal/httputil"
	"github.com/flowledger/backend/internal/importer"
	"github.com/flowledger/backend/internal/importer/bankcsv"
	"github.com/flowledger/backend/internal/models"
	fl_uuid "github.com/flowledger/backend/internal/uuid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RegisterImportRoutes registers the import pipeline routes with the
// RouterGroup that is passed. The group must carry the cash flow ID as the
// ":id" URI parameter.
func RegisterImportRoutes(r *gin.RouterGroup) {
	// Staging
	{
		r.OPTIONS("/staging", OptionsStaging)
		r.POST("/staging", CreateStaging)

		r.OPTIONS("/staging/csv", OptionsStagingCSV)
		r.POST("/staging/csv", CreateStagingCSV)

		r.OPTIONS("/staging/:sessionId/revalidation", OptionsRevalidation)
		r.POST("/staging/:sessionId/revalidation", CreateRevalidation)
	}

	// Import jobs
	{
		r.OPTIONS("/jobs", OptionsImportJobList)
		r.POST("/jobs", CreateImportJob)

		r.OPTIONS("/jobs/:jobId", OptionsImportJobDetail)
		r.GET("/jobs/:jobId", GetImportJob)

		r.OPTIONS("/jobs/:jobId/rollback", OptionsImportJobRollback)
		r.POST("/jobs/:jobId/rollback", RollbackImportJob)
	}
}

// StagingEditable is the request body for creating a staging session.
type StagingEditable struct {
	Transactions []importer.RawBankTransaction `json:"transactions" binding:"required"` // The raw bank transactions to stage
	KeepUnmapped bool                          `json:"keepUnmapped"`                    // Persist transactions with unmapped categories as PENDING_MAPPING
}

// StagingCSVQuery is the query string for the CSV staging endpoint.
type StagingCSVQuery struct {
	KeepUnmapped bool `form:"keepUnmapped"` // Persist transactions with unmapped categories as PENDING_MAPPING
}

// ImportJobEditable is the request body for starting an import job.
type ImportJobEditable struct {
	StagingSessionID fl_uuid.UUID `json:"stagingSessionId" binding:"required"` // ID of the staging session to import
}

// RollbackQuery is the query string for the rollback endpoint.
type RollbackQuery struct {
	DeleteCategories bool `form:"deleteCategories"` // Also delete the categories the import created
}

type StagingResponse struct {
	Data  *importer.StagingResult `json:"data"`  // The staging result
	Error *string                 `json:"error"` // The error, if any occurred
}

type RevalidationResponse struct {
	Data  *importer.RevalidationResult `json:"data"`  // The revalidation result
	Error *string                      `json:"error"` // The error, if any occurred
}

type ImportJobResponse struct {
	Data  *models.ImportJob `json:"data"`  // The import job
	Error *string           `json:"error"` // The error, if any occurred
}

// getUploadedFile returns the form file and handles potential errors.
func getUploadedFile(c *gin.Context, suffix string) (multipart.File, error) {
	formFile, err := c.FormFile("file")
	if formFile == nil {
		return nil, errNoFilePost
	}

	if err != nil {
		return nil, err
	}

	if !strings.HasSuffix(formFile.Filename, suffix) {
		return nil, fmt.Errorf("%w: %s", errWrongFileSuffix, suffix)
	}

	f, err := formFile.Open()
	if err != nil {
		return nil, err
	}

	return f, nil
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Import
// @Success		204
// @Router			/v1/cash-flows/{id}/import/staging [options]
func OptionsStaging(c *gin.Context) {
	httputil.OptionsPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Import
// @Success		204
// @Router			/v1/cash-flows/{id}/import/staging/csv [options]
func OptionsStagingCSV(c *gin.Context) {
	httputil.OptionsPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Import
// @Success		204
// @Router			/v1/cash-flows/{id}/import/staging/{sessionId}/revalidation [options]
func OptionsRevalidation(c *gin.Context) {
	httputil.OptionsPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Import
// @Success		204
// @Router			/v1/cash-flows/{id}/import/jobs [options]
func OptionsImportJobList(c *gin.Context) {
	httputil.OptionsPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Import
// @Success		204
// @Router			/v1/cash-flows/{id}/import/jobs/{jobId} [options]
func OptionsImportJobDetail(c *gin.Context) {
	httputil.OptionsGet(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Import
// @Success		204
// @Router			/v1/cash-flows/{id}/import/jobs/{jobId}/rollback [options]
func OptionsImportJobRollback(c *gin.Context) {
	httputil.OptionsPost(c)
}

// @Summary		Stage transactions
// @Description	Validates a batch of raw bank transactions and stores it as a staging session
// @Tags			Import
// @Produce		json
// @Success		201		{object}	StagingResponse
// @Failure		400		{object}	StagingResponse
// @Failure		404		{object}	StagingResponse
// @Failure		500		{object}	StagingResponse
// @Param			id		path		URIID			true	"ID of the cash flow"
// @Param			staging	body		StagingEditable	true	"Transactions to stage"
// @Router			/v1/cash-flows/{id}/import/staging [post]
func CreateStaging(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		e := httputil.ErrInvalidUUID.Error()
		c.JSON(status(err), StagingResponse{Error: &e})
		return
	}

	var editable StagingEditable
	err = httputil.BindData(c, &editable)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), StagingResponse{Error: &e})
		return
	}

	result, err := engine.Stage(uri.ID.UUID, editable.Transactions, importer.StageOptions{
		KeepUnmapped: editable.KeepUnmapped,
	})
	if err != nil {
		e := err.Error()
		c.JSON(status(err), StagingResponse{Error: &e})
		return
	}

	// Nothing was persisted, tell the client what is missing
	if result.Status == importer.StagingHasUnmappedCategories && result.StagingSessionID == (uuid.Nil) {
		c.JSON(http.StatusUnprocessableEntity, StagingResponse{Data: &result})
		return
	}

	c.JSON(http.StatusCreated, StagingResponse{Data: &result})
}

// @Summary		Stage transactions from CSV
// @Description	Parses a CSV export and stages the contained transactions
// @Tags			Import
// @Accept			multipart/form-data
// @Produce		json
// @Success		201		{object}	StagingResponse
// @Failure		400		{object}	StagingResponse
// @Failure		404		{object}	StagingResponse
// @Failure		500		{object}	StagingResponse
// @Param			id		path		URIID	true	"ID of the cash flow"
// @Param			file	formData	file	true	"File to import"
// @Router			/v1/cash-flows/{id}/import/staging/csv [post]
func CreateStagingCSV(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		e := httputil.ErrInvalidUUID.Error()
		c.JSON(status(err), StagingResponse{Error: &e})
		return
	}

	var query StagingCSVQuery
	_ = c.BindQuery(&query)

	f, err := getUploadedFile(c, ".csv")
	if err != nil {
		e := err.Error()
		c.JSON(status(err), StagingResponse{Error: &e})
		return
	}

	transactions, err := bankcsv.Parse(f)
	if err != nil {
		// bankcsv.Parse returns a usable error already
		e := err.Error()
		c.JSON(http.StatusBadRequest, StagingResponse{Error: &e})
		return
	}

	result, err := engine.Stage(uri.ID.UUID, transactions, importer.StageOptions{
		KeepUnmapped: query.KeepUnmapped,
	})
	if err != nil {
		e := err.Error()
		c.JSON(status(err), StagingResponse{Error: &e})
		return
	}

	if result.Status == importer.StagingHasUnmappedCategories && result.StagingSessionID == (uuid.Nil) {
		c.JSON(http.StatusUnprocessableEntity, StagingResponse{Data: &result})
		return
	}

	c.JSON(http.StatusCreated, StagingResponse{Data: &result})
}

// @Summary		Revalidate staging session
// @Description	Re-applies the current mappings to the pending transactions of a staging session
// @Tags			Import
// @Produce		json
// @Success		200	{object}	RevalidationResponse
// @Failure		400	{object}	RevalidationResponse
// @Failure		404	{object}	RevalidationResponse
// @Failure		410	{object}	RevalidationResponse
// @Param			id			path	URIID	true	"ID of the cash flow"
// @Param			sessionId	path	string	true	"ID of the staging session"
// @Router			/v1/cash-flows/{id}/import/staging/{sessionId}/revalidation [post]
func CreateRevalidation(c *gin.Context) {
	var uri URISession
	err := c.ShouldBindUri(&uri)
	if err != nil {
		e := httputil.ErrInvalidUUID.Error()
		c.JSON(status(err), RevalidationResponse{Error: &e})
		return
	}

	result, err := engine.Revalidate(uri.ID.UUID, uri.SessionID.UUID)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), RevalidationResponse{Error: &e})
		return
	}

	c.JSON(http.StatusOK, RevalidationResponse{Data: &result})
}

// @Summary		Start import job
// @Description	Commits a staging session into the ledger with a two-phase import job
// @Tags			Import
// @Produce		json
// @Success		201	{object}	ImportJobResponse
// @Failure		400	{object}	ImportJobResponse
// @Failure		404	{object}	ImportJobResponse
// @Failure		409	{object}	ImportJobResponse
// @Failure		410	{object}	ImportJobResponse
// @Param			id	path		URIID				true	"ID of the cash flow"
// @Param			job	body		ImportJobEditable	true	"Import job"
// @Router			/v1/cash-flows/{id}/import/jobs [post]
func CreateImportJob(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		e := httputil.ErrInvalidUUID.Error()
		c.JSON(status(err), ImportJobResponse{Error: &e})
		return
	}

	var editable ImportJobEditable
	err = httputil.BindData(c, &editable)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ImportJobResponse{Error: &e})
		return
	}

	job, err := engine.StartImport(uri.ID.UUID, editable.StagingSessionID.UUID)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ImportJobResponse{Error: &e})
		return
	}

	c.JSON(http.StatusCreated, ImportJobResponse{Data: &job})
}

// @Summary		Get import job
// @Description	Returns an import job with its progress, result and rollback state
// @Tags			Import
// @Produce		json
// @Success		200	{object}	ImportJobResponse
// @Failure		400	{object}	ImportJobResponse
// @Failure		404	{object}	ImportJobResponse
// @Param			id		path	URIID	true	"ID of the cash flow"
// @Param			jobId	path	string	true	"ID of the import job"
// @Router			/v1/cash-flows/{id}/import/jobs/{jobId} [get]
func GetImportJob(c *gin.Context) {
	var uri URIJob
	err := c.ShouldBindUri(&uri)
	if err != nil {
		e := httputil.ErrInvalidUUID.Error()
		c.JSON(status(err), ImportJobResponse{Error: &e})
		return
	}

	job, err := engine.Job(uri.JobID.UUID)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ImportJobResponse{Error: &e})
		return
	}

	c.JSON(http.StatusOK, ImportJobResponse{Data: &job})
}

// @Summary		Roll back import job
// @Description	Reverses a completed import job while its rollback window is open
// @Tags			Import
// @Produce		json
// @Success		200	{object}	ImportJobResponse
// @Failure		400	{object}	ImportJobResponse
// @Failure		404	{object}	ImportJobResponse
// @Failure		409	{object}	ImportJobResponse
// @Param			id		path	URIID	true	"ID of the cash flow"
// @Param			jobId	path	string	true	"ID of the import job"
// @Router			/v1/cash-flows/{id}/import/jobs/{jobId}/rollback [post]
func RollbackImportJob(c *gin.Context) {
	var uri URIJob
	err := c.ShouldBindUri(&uri)
	if err != nil {
		e := httputil.ErrInvalidUUID.Error()
		c.JSON(status(err), ImportJobResponse{Error: &e})
		return
	}

	var query RollbackQuery
	_ = c.BindQuery(&query)

	job, err := engine.RollbackJob(uri.JobID.UUID, query.DeleteCategories)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ImportJobResponse{Error: &e})
		return
	}

	c.JSON(http.StatusOK, ImportJobResponse{Data: &job})
}
