package v1

import (
	"net/http"

	"github.com/flowledger/backend/internal/httputil"
	"github.com/flowledger/backend/internal/models"
	"github.com/flowledger/backend/internal/types"
	"github.com/gin-gonic/gin"
)

// RegisterCashFlowRoutes registers the routes for cash flows with the
// RouterGroup that is passed.
func RegisterCashFlowRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", OptionsCashFlowList)
		r.GET("", GetCashFlows)
		r.POST("", CreateCashFlow)
	}

	// Cash flow with ID
	{
		r.OPTIONS("/:id", OptionsCashFlowDetail)
		r.GET("/:id", GetCashFlow)
		r.PATCH("/:id", UpdateCashFlow)
		r.DELETE("/:id", DeleteCashFlow)

		r.POST("/:id/activate", ActivateCashFlow)
	}
}

// CashFlowEditable contains all fields of a cash flow that can be set by the
// client.
type CashFlowEditable struct {
	Name         string      `json:"name" example:"Household"`       // Name of the cash flow
	Currency     string      `json:"currency" example:"USD"`         // Currency all amounts are kept in
	StartPeriod  types.Month `json:"startPeriod" example:"2025-01"`  // First accounting period
	ActivePeriod types.Month `json:"activePeriod" example:"2026-08"` // Current accounting period
}

func (editable CashFlowEditable) model() models.CashFlow {
	return models.CashFlow{
		Name:         editable.Name,
		Currency:     editable.Currency,
		StartPeriod:  editable.StartPeriod,
		ActivePeriod: editable.ActivePeriod,
	}
}

type CashFlowResponse struct {
	Data  *models.CashFlow `json:"data"`  // The cash flow
	Error *string          `json:"error"` // The error, if any occurred
}

type CashFlowListResponse struct {
	Data  []models.CashFlow `json:"data"`  // List of cash flows
	Error *string           `json:"error"` // The error, if any occurred
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			CashFlows
// @Success		204
// @Router			/v1/cash-flows [options]
func OptionsCashFlowList(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			CashFlows
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id	path		URIID	true	"ID of the cash flow"
// @Router			/v1/cash-flows/{id} [options]
func OptionsCashFlowDetail(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{Error: httputil.ErrInvalidUUID.Error()})
		return
	}

	err = models.DB.First(&models.CashFlow{}, uri.ID.UUID).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	httputil.OptionsGetPatchDelete(c)
}

// @Summary		Create cash flow
// @Description	Creates a new cash flow in SETUP status
// @Tags			CashFlows
// @Produce		json
// @Success		201			{object}	CashFlowResponse
// @Failure		400			{object}	CashFlowResponse
// @Failure		500			{object}	CashFlowResponse
// @Param			cashFlow	body		CashFlowEditable	true	"Cash flow"
// @Router			/v1/cash-flows [post]
func CreateCashFlow(c *gin.Context) {
	var editable CashFlowEditable

	err := httputil.BindData(c, &editable)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), CashFlowResponse{Error: &e})
		return
	}

	cashFlow := editable.model()

	err = models.DB.Create(&cashFlow).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), CashFlowResponse{Error: &e})
		return
	}

	c.JSON(http.StatusCreated, CashFlowResponse{Data: &cashFlow})
}

// @Summary		List cash flows
// @Description	Returns a list of all cash flows
// @Tags			CashFlows
// @Produce		json
// @Success		200	{object}	CashFlowListResponse
// @Failure		500	{object}	CashFlowListResponse
// @Router			/v1/cash-flows [get]
func GetCashFlows(c *gin.Context) {
	var cashFlows []models.CashFlow
	err := models.DB.Find(&cashFlows).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), CashFlowListResponse{Error: &e})
		return
	}

	// When there are no resources, we want an empty list, not null
	if cashFlows == nil {
		cashFlows = make([]models.CashFlow, 0)
	}

	c.JSON(http.StatusOK, CashFlowListResponse{Data: cashFlows})
}

// @Summary		Get cash flow
// @Description	Returns a specific cash flow
// @Tags			CashFlows
// @Produce		json
// @Success		200	{object}	CashFlowResponse
// @Failure		400	{object}	CashFlowResponse
// @Failure		404	{object}	CashFlowResponse
// @Param			id	path		URIID	true	"ID of the cash flow"
// @Router			/v1/cash-flows/{id} [get]
func GetCashFlow(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		e := httputil.ErrInvalidUUID.Error()
		c.JSON(status(err), CashFlowResponse{Error: &e})
		return
	}

	var cashFlow models.CashFlow
	err = models.DB.First(&cashFlow, uri.ID.UUID).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), CashFlowResponse{Error: &e})
		return
	}

	c.JSON(http.StatusOK, CashFlowResponse{Data: &cashFlow})
}

// @Summary		Update cash flow
// @Description	Updates an existing cash flow
// @Tags			CashFlows
// @Produce		json
// @Success		200			{object}	CashFlowResponse
// @Failure		400			{object}	CashFlowResponse
// @Failure		404			{object}	CashFlowResponse
// @Param			id			path		URIID				true	"ID of the cash flow"
// @Param			cashFlow	body		CashFlowEditable	true	"Cash flow"
// @Router			/v1/cash-flows/{id} [patch]
func UpdateCashFlow(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		e := httputil.ErrInvalidUUID.Error()
		c.JSON(status(err), CashFlowResponse{Error: &e})
		return
	}

	var cashFlow models.CashFlow
	err = models.DB.First(&cashFlow, uri.ID.UUID).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), CashFlowResponse{Error: &e})
		return
	}

	updateFields, err := httputil.GetBodyFields(c, CashFlowEditable{})
	if err != nil {
		e := err.Error()
		c.JSON(status(err), CashFlowResponse{Error: &e})
		return
	}

	var data CashFlowEditable
	err = httputil.BindData(c, &data)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), CashFlowResponse{Error: &e})
		return
	}

	err = models.DB.Model(&cashFlow).Select("", updateFields...).Updates(data.model()).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), CashFlowResponse{Error: &e})
		return
	}

	c.JSON(http.StatusOK, CashFlowResponse{Data: &cashFlow})
}

// @Summary		Delete cash flow
// @Description	Deletes a cash flow
// @Tags			CashFlows
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id	path		URIID	true	"ID of the cash flow"
// @Router			/v1/cash-flows/{id} [delete]
func DeleteCashFlow(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{Error: httputil.ErrInvalidUUID.Error()})
		return
	}

	var cashFlow models.CashFlow
	err = models.DB.First(&cashFlow, uri.ID.UUID).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	err = models.DB.Delete(&cashFlow).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary		Activate cash flow
// @Description	Moves a cash flow from SETUP to ACTIVE, ending historical imports
// @Tags			CashFlows
// @Produce		json
// @Success		200	{object}	CashFlowResponse
// @Failure		400	{object}	CashFlowResponse
// @Failure		404	{object}	CashFlowResponse
// @Param			id	path		URIID	true	"ID of the cash flow"
// @Router			/v1/cash-flows/{id}/activate [post]
func ActivateCashFlow(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		e := httputil.ErrInvalidUUID.Error()
		c.JSON(status(err), CashFlowResponse{Error: &e})
		return
	}

	var cashFlow models.CashFlow
	err = models.DB.First(&cashFlow, uri.ID.UUID).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), CashFlowResponse{Error: &e})
		return
	}

	err = models.DB.Model(&cashFlow).Update("status", models.CashFlowStatusActive).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), CashFlowResponse{Error: &e})
		return
	}

	c.JSON(http.StatusOK, CashFlowResponse{Data: &cashFlow})
}
