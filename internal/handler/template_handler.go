package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-idcard/internal/models"
	appErrors "github.com/noah-isme/sma-idcard/pkg/errors"
	"github.com/noah-isme/sma-idcard/pkg/response"
)

type templateService interface {
	List() []models.Template
	Current(ctx context.Context) models.Template
	Select(ctx context.Context, id string) (models.Template, error)
}

// SelectTemplateRequest picks the current template.
type SelectTemplateRequest struct {
	ID string `json:"id" binding:"required"`
}

// TemplateHandler exposes the template registry.
type TemplateHandler struct {
	service templateService
}

// NewTemplateHandler constructs the handler.
func NewTemplateHandler(service templateService) *TemplateHandler {
	return &TemplateHandler{service: service}
}

// List godoc
// @Summary List card templates
// @Tags Templates
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /templates [get]
func (h *TemplateHandler) List(c *gin.Context) {
	current := h.service.Current(c.Request.Context())
	response.JSON(c, http.StatusOK, h.service.List(), map[string]interface{}{"currentId": current.ID})
}

// Current godoc
// @Summary Current card template
// @Tags Templates
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /templates/current [get]
func (h *TemplateHandler) Current(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Current(c.Request.Context()))
}

// Select godoc
// @Summary Select the current card template
// @Tags Templates
// @Accept json
// @Produce json
// @Param payload body SelectTemplateRequest true "Template id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /templates/current [put]
func (h *TemplateHandler) Select(c *gin.Context) {
	var req SelectTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid template payload"))
		return
	}
	tpl, err := h.service.Select(c.Request.Context(), req.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tpl)
}
