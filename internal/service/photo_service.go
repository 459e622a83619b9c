package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sma-idcard/pkg/errors"
)

// PhotoReferencePrefix marks references served by PhotoService.
const PhotoReferencePrefix = "photos/"

var photoExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

type photoStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

// PhotoServiceConfig bounds accepted uploads.
type PhotoServiceConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
}

// PhotoUpload is a portrait file submitted with the form.
type PhotoUpload struct {
	Filename string
	Reader   io.Reader
}

// StoredPhoto identifies a saved portrait.
type StoredPhoto struct {
	Reference   string `json:"reference"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// PhotoService stores portraits and opens them for capture.
type PhotoService struct {
	storage photoStorage
	logger  *zap.Logger
	cfg     PhotoServiceConfig
	allowed map[string]struct{}
}

// NewPhotoService constructs the service.
func NewPhotoService(storage photoStorage, logger *zap.Logger, cfg PhotoServiceConfig) *PhotoService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 5 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"image/png", "image/jpeg", "image/webp"}
	}
	allowed := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mime := range cfg.AllowedMIMEs {
		allowed[strings.ToLower(strings.TrimSpace(mime))] = struct{}{}
	}
	return &PhotoService{storage: storage, logger: logger, cfg: cfg, allowed: allowed}
}

// Upload validates and stores a portrait, returning its reference.
func (s *PhotoService) Upload(ctx context.Context, upload PhotoUpload) (*StoredPhoto, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if upload.Reader == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "photo file is required")
	}
	data, err := io.ReadAll(io.LimitReader(upload.Reader, s.cfg.MaxFileSize+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read photo")
	}
	if len(data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "photo file is empty")
	}
	if int64(len(data)) > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("photo exceeds %d bytes", s.cfg.MaxFileSize))
	}

	contentType := http.DetectContentType(data)
	ext, known := photoExtensions[contentType]
	if _, ok := s.allowed[contentType]; !ok || !known {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedMedia, fmt.Sprintf("unsupported photo type %s", contentType))
	}

	filename, err := s.storage.Save(uuid.NewString()+ext, data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store photo")
	}
	stored := &StoredPhoto{
		Reference:   PhotoReferencePrefix + filename,
		Name:        path.Base(strings.ReplaceAll(upload.Filename, "\\", "/")),
		ContentType: contentType,
		Size:        int64(len(data)),
	}
	if upload.Filename == "" {
		stored.Name = filename
	}
	s.logger.Info("photo stored", zap.String("reference", stored.Reference), zap.Int64("size", stored.Size))
	return stored, nil
}

// UploadFile stores the portrait at a local path.
func (s *PhotoService) UploadFile(ctx context.Context, filePath string) (*StoredPhoto, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to open photo")
	}
	defer f.Close()
	return s.Upload(ctx, PhotoUpload{Filename: filePath, Reader: f})
}

// Open returns the stored portrait for reference.
func (s *PhotoService) Open(ctx context.Context, reference string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, ok := strings.CutPrefix(reference, PhotoReferencePrefix)
	if !ok || name == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("photo %q not found", reference))
	}
	f, err := s.storage.Open(name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "photo not found")
	}
	return f, nil
}

