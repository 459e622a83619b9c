package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-idcard/internal/models"
	appErrors "github.com/noah-isme/sma-idcard/pkg/errors"
	"github.com/noah-isme/sma-idcard/pkg/response"
)

type studentService interface {
	Submit(ctx context.Context, req models.SubmitStudentRequest) (*models.StudentRecord, error)
	LoadHistory(ctx context.Context) models.RecordHistory
	Current(ctx context.Context) (*models.StudentRecord, error)
}

type historyExporter interface {
	HistoryCSV(ctx context.Context) ([]byte, error)
}

// StudentHandler exposes the registration form and the stored history.
type StudentHandler struct {
	service studentService
	export  historyExporter
}

// NewStudentHandler constructs the handler.
func NewStudentHandler(service studentService, export historyExporter) *StudentHandler {
	return &StudentHandler{service: service, export: export}
}

// Submit godoc
// @Summary Register a student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body models.SubmitStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Submit(c *gin.Context) {
	var req models.SubmitStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid student payload"))
		return
	}
	record, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// History godoc
// @Summary List retained submissions, newest first
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students/history [get]
func (h *StudentHandler) History(c *gin.Context) {
	history := h.service.LoadHistory(c.Request.Context())
	response.JSON(c, http.StatusOK, history, map[string]interface{}{"count": history.Len()})
}

// Current godoc
// @Summary Most recent submission
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/current [get]
func (h *StudentHandler) Current(c *gin.Context) {
	record, err := h.service.Current(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}

// HistoryCSV godoc
// @Summary Download retained submissions as CSV
// @Tags Students
// @Produce text/csv
// @Success 200 {file} binary
// @Router /students/history.csv [get]
func (h *StudentHandler) HistoryCSV(c *gin.Context) {
	if h.export == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "export service not configured"))
		return
	}
	data, err := h.export.HistoryCSV(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, "student-history.csv", "text/csv", data)
}
