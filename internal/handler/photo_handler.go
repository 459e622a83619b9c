package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-idcard/internal/service"
	appErrors "github.com/noah-isme/sma-idcard/pkg/errors"
	"github.com/noah-isme/sma-idcard/pkg/response"
)

type photoService interface {
	Upload(ctx context.Context, upload service.PhotoUpload) (*service.StoredPhoto, error)
}

// PhotoHandler accepts portrait uploads.
type PhotoHandler struct {
	service photoService
}

// NewPhotoHandler constructs the handler.
func NewPhotoHandler(service photoService) *PhotoHandler {
	return &PhotoHandler{service: service}
}

// Upload godoc
// @Summary Upload a student portrait
// @Tags Photos
// @Accept multipart/form-data
// @Produce json
// @Param photo formData file true "Portrait image"
// @Success 201 {object} response.Envelope
// @Failure 415 {object} response.Envelope
// @Router /photos [post]
func (h *PhotoHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("photo")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "photo file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read photo"))
		return
	}
	defer file.Close() //nolint:errcheck

	stored, err := h.service.Upload(c.Request.Context(), service.PhotoUpload{Filename: header.Filename, Reader: file})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, stored)
}
