package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-idcard/internal/card"
	"github.com/noah-isme/sma-idcard/internal/models"
	"github.com/noah-isme/sma-idcard/internal/service"
	appErrors "github.com/noah-isme/sma-idcard/pkg/errors"
	"github.com/noah-isme/sma-idcard/pkg/response"
)

type cardService interface {
	Views(ctx context.Context) (*service.CardDeck, error)
	Locate(ctx context.Context, viewID string) (card.View, error)
}

type cardExporter interface {
	Export(ctx context.Context, viewID string, format models.ExportFormat) (*service.ExportResult, error)
}

type exportJobService interface {
	CreateJob(ctx context.Context, viewID string, format models.ExportFormat, done service.ExportCallback) (*models.ExportJob, error)
	GetStatus(id string) (*models.ExportJob, error)
}

// CardHandler exposes rendered cards and their exports.
type CardHandler struct {
	cards    cardService
	exporter cardExporter
	jobs     exportJobService
}

// NewCardHandler constructs the handler.
func NewCardHandler(cards cardService, exporter cardExporter, jobs exportJobService) *CardHandler {
	return &CardHandler{cards: cards, exporter: exporter, jobs: jobs}
}

// List godoc
// @Summary Rendered card views with the current template
// @Tags Cards
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /cards [get]
func (h *CardHandler) List(c *gin.Context) {
	deck, err := h.cards.Views(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := map[string]interface{}{"templateId": deck.Template.ID, "count": len(deck.Views)}
	if len(deck.Views) == 0 {
		meta["message"] = service.EmptyStateMessage
	}
	response.JSON(c, http.StatusOK, deck.Views, meta)
}

// Get godoc
// @Summary A single rendered card view
// @Tags Cards
// @Produce json
// @Param viewId path string true "current-id-card or previous-id-card"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /cards/{viewId} [get]
func (h *CardHandler) Get(c *gin.Context) {
	view, err := h.cards.Locate(c.Request.Context(), c.Param("viewId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// Download godoc
// @Summary Capture a card and download it
// @Tags Cards
// @Produce octet-stream
// @Param viewId path string true "current-id-card or previous-id-card"
// @Param format query string false "png (default) or pdf"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /cards/{viewId}/download [get]
func (h *CardHandler) Download(c *gin.Context) {
	format, err := models.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export format"))
		return
	}
	result, err := h.exporter.Export(c.Request.Context(), c.Param("viewId"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Artifact.Filename, result.Artifact.ContentType, result.Artifact.Data)
}

// CreateExport godoc
// @Summary Queue a card export
// @Tags Cards
// @Produce json
// @Param viewId path string true "current-id-card or previous-id-card"
// @Param format query string false "png (default) or pdf"
// @Success 202 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /cards/{viewId}/exports [post]
func (h *CardHandler) CreateExport(c *gin.Context) {
	format, err := models.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export format"))
		return
	}
	job, err := h.jobs.CreateJob(c.Request.Context(), c.Param("viewId"), format, nil)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}
