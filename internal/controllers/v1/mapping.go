package v1

import (
	"net/http"

	"github.com/flowledger/backend/internal/httputil"
	"github.com/flowledger/backend/internal/models"
	fl_uuid "github.com/flowledger/backend/internal/uuid"
	"github.com/gin-gonic/gin"
)

// RegisterMappingRoutes registers the routes for category mappings with the
// RouterGroup that is passed.
func RegisterMappingRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", OptionsMappingList)
		r.GET("", GetMappings)
		r.POST("", CreateMappings)
	}

	// Mapping with ID
	{
		r.OPTIONS("/:id", OptionsMappingDetail)
		r.GET("/:id", GetMapping)
		r.PATCH("/:id", UpdateMapping)
		r.DELETE("/:id", DeleteMapping)
	}
}

// MappingEditable contains all fields of a category mapping that can be set
// by the client.
type MappingEditable struct {
	CashFlowID     fl_uuid.UUID         `json:"cashFlowId" example:"52d967d3-33f4-4b04-9ba7-772e5ab9d0ce"` // ID of the cash flow the mapping belongs to
	BankCategory   string               `json:"bankCategory" example:"LEBENSMITTEL"`                       // The bank's category label, may be a glob pattern
	Type           models.CategoryType  `json:"type" example:"OUTFLOW"`                                    // Flow direction the mapping applies to
	TargetCategory string               `json:"targetCategory" example:"Groceries"`                        // Name of the target category
	ParentCategory string               `json:"parentCategory" example:"Living"`                           // Parent for CREATE_SUBCATEGORY
	Action         models.MappingAction `json:"action" example:"CREATE_NEW"`                               // What to do with the target category on import
}

func (editable MappingEditable) model() models.CategoryMapping {
	return models.CategoryMapping{
		CashFlowID:     editable.CashFlowID.UUID,
		BankCategory:   editable.BankCategory,
		Type:           editable.Type,
		TargetCategory: editable.TargetCategory,
		ParentCategory: editable.ParentCategory,
		Action:         editable.Action,
	}
}

// MappingQueryFilter narrows the mapping list down.
type MappingQueryFilter struct {
	CashFlowID   fl_uuid.UUID        `form:"cashFlowId"`   // Only mappings of this cash flow
	BankCategory string              `form:"bankCategory"` // Only mappings with this exact bank category
	Type         models.CategoryType `form:"type"`         // Only mappings for this flow direction
}

type MappingResponse struct {
	Data  *models.CategoryMapping `json:"data"`  // The category mapping
	Error *string                 `json:"error"` // The error, if any occurred
}

type MappingCreateResponse struct {
	Data  []MappingResponse `json:"data"`            // The created category mappings
	Error *string           `json:"error,omitempty"` // The error for the whole request, if any
}

func (r *MappingCreateResponse) appendError(err error, currentStatus int) int {
	s := err.Error()
	r.Data = append(r.Data, MappingResponse{Error: &s})

	// The first error sets the status code for the response
	if currentStatus == http.StatusCreated {
		return status(err)
	}

	return currentStatus
}

type MappingListResponse struct {
	Data  []models.CategoryMapping `json:"data"`  // List of category mappings
	Error *string                  `json:"error"` // The error, if any occurred
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Mappings
// @Success		204
// @Router			/v1/mappings [options]
func OptionsMappingList(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Mappings
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id	path		URIID	true	"ID of the mapping"
// @Router			/v1/mappings/{id} [options]
func OptionsMappingDetail(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{Error: httputil.ErrInvalidUUID.Error()})
		return
	}

	err = models.DB.First(&models.CategoryMapping{}, uri.ID.UUID).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	httputil.OptionsGetPatchDelete(c)
}

// @Summary		Create mappings
// @Description	Creates new category mappings
// @Tags			Mappings
// @Produce		json
// @Success		201			{object}	MappingCreateResponse
// @Failure		400			{object}	MappingCreateResponse
// @Failure		404			{object}	MappingCreateResponse
// @Failure		500			{object}	MappingCreateResponse
// @Param			mappings	body		[]MappingEditable	true	"Mappings"
// @Router			/v1/mappings [post]
func CreateMappings(c *gin.Context) {
	var editables []MappingEditable

	err := httputil.BindData(c, &editables)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), MappingCreateResponse{Error: &e})
		return
	}

	// The final http status. Will be modified when errors occur
	responseStatus := http.StatusCreated
	r := MappingCreateResponse{}

	for _, editable := range editables {
		mapping := editable.model()

		// The cash flow must exist
		err := models.DB.First(&models.CashFlow{}, mapping.CashFlowID).Error
		if err != nil {
			responseStatus = r.appendError(err, responseStatus)
			continue
		}

		err = models.DB.Create(&mapping).Error
		if err != nil {
			responseStatus = r.appendError(err, responseStatus)
			continue
		}

		r.Data = append(r.Data, MappingResponse{Data: &mapping})
	}

	c.JSON(responseStatus, r)
}

// @Summary		List mappings
// @Description	Returns a list of category mappings
// @Tags			Mappings
// @Produce		json
// @Success		200			{object}	MappingListResponse
// @Failure		400			{object}	MappingListResponse
// @Failure		500			{object}	MappingListResponse
// @Param			cashFlowId	query		string	false	"Filter by cash flow ID"
// @Router			/v1/mappings [get]
func GetMappings(c *gin.Context) {
	var filter MappingQueryFilter
	if err := c.BindQuery(&filter); err != nil {
		e := httputil.ErrInvalidUUID.Error()
		c.JSON(http.StatusBadRequest, MappingListResponse{Error: &e})
		return
	}

	query := models.DB.Order("created_at asc")
	query = query.Where(&models.CategoryMapping{
		CashFlowID:   filter.CashFlowID.UUID,
		BankCategory: filter.BankCategory,
		Type:         filter.Type,
	})

	var mappings []models.CategoryMapping
	err := query.Find(&mappings).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), MappingListResponse{Error: &e})
		return
	}

	// When there are no resources, we want an empty list, not null
	if mappings == nil {
		mappings = make([]models.CategoryMapping, 0)
	}

	c.JSON(http.StatusOK, MappingListResponse{Data: mappings})
}

// @Summary		Get mapping
// @Description	Returns a specific category mapping
// @Tags			Mappings
// @Produce		json
// @Success		200	{object}	MappingResponse
// @Failure		400	{object}	MappingResponse
// @Failure		404	{object}	MappingResponse
// @Param			id	path		URIID	true	"ID of the mapping"
// @Router			/v1/mappings/{id} [get]
func GetMapping(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		e := httputil.ErrInvalidUUID.Error()
		c.JSON(status(err), MappingResponse{Error: &e})
		return
	}

	var mapping models.CategoryMapping
	err = models.DB.First(&mapping, uri.ID.UUID).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), MappingResponse{Error: &e})
		return
	}

	c.JSON(http.StatusOK, MappingResponse{Data: &mapping})
}

// @Summary		Update mapping
// @Description	Updates an existing category mapping
// @Tags			Mappings
// @Produce		json
// @Success		200		{object}	MappingResponse
// @Failure		400		{object}	MappingResponse
// @Failure		404		{object}	MappingResponse
// @Param			id		path		URIID			true	"ID of the mapping"
// @Param			mapping	body		MappingEditable	true	"Mapping"
// @Router			/v1/mappings/{id} [patch]
func UpdateMapping(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		e := httputil.ErrInvalidUUID.Error()
		c.JSON(status(err), MappingResponse{Error: &e})
		return
	}

	var mapping models.CategoryMapping
	err = models.DB.First(&mapping, uri.ID.UUID).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), MappingResponse{Error: &e})
		return
	}

	updateFields, err := httputil.GetBodyFields(c, MappingEditable{})
	if err != nil {
		e := err.Error()
		c.JSON(status(err), MappingResponse{Error: &e})
		return
	}

	var data MappingEditable
	err = httputil.BindData(c, &data)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), MappingResponse{Error: &e})
		return
	}

	err = models.DB.Model(&mapping).Select("", updateFields...).Updates(data.model()).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), MappingResponse{Error: &e})
		return
	}

	c.JSON(http.StatusOK, MappingResponse{Data: &mapping})
}

// @Summary		Delete mapping
// @Description	Deletes a category mapping
// @Tags			Mappings
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id	path		URIID	true	"ID of the mapping"
// @Router			/v1/mappings/{id} [delete]
func DeleteMapping(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{Error: httputil.ErrInvalidUUID.Error()})
		return
	}

	var mapping models.CategoryMapping
	err = models.DB.First(&mapping, uri.ID.UUID).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	err = models.DB.Delete(&mapping).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}
