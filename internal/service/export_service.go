package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-idcard/internal/card"
	"github.com/noah-isme/sma-idcard/internal/models"
	appErrors "github.com/noah-isme/sma-idcard/pkg/errors"
	"github.com/noah-isme/sma-idcard/pkg/export"
	"github.com/noah-isme/sma-idcard/pkg/storage"
)

type viewLocator interface {
	Locate(ctx context.Context, viewID string) (card.View, error)
}

type cardCapturer interface {
	Capture(ctx context.Context, view card.View) (image.Image, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type pngRenderer interface {
	Render(img image.Image) ([]byte, error)
}

type pdfRenderer interface {
	Render(img image.Image, title string) ([]byte, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix       string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ExportResult captures a finished export.
type ExportResult struct {
	Artifact     models.Artifact
	RelativePath string
	Token        string
	URL          string
	ExpiresAt    time.Time
}

// ExportDownload is a resolved signed download.
type ExportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
	ExpiresAt   time.Time
}

// ExportService captures rendered cards and stores the encoded artefacts.
type ExportService struct {
	views    viewLocator
	capturer cardCapturer
	records  historyReader
	storage  fileStorage
	signer   *storage.SignedURLSigner
	png      pngRenderer
	pdf      pdfRenderer
	csv      csvRenderer
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      ExportConfig
	now      func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults in pkg/export.
func NewExportService(views viewLocator, capturer cardCapturer, records historyReader, storage fileStorage, signer *storage.SignedURLSigner, metrics *MetricsService, logger *zap.Logger, cfg ExportConfig, png pngRenderer, pdf pdfRenderer, csv csvRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if png == nil {
		png = export.NewPNGExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	return &ExportService{
		views:    views,
		capturer: capturer,
		records:  records,
		storage:  storage,
		signer:   signer,
		png:      png,
		pdf:      pdf,
		csv:      csv,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Export captures the view and stores it as a downloadable artefact.
// A missing view fails with reason "not found" before anything is captured or stored.
// Failures are logged here and returned; they are never retried.
func (s *ExportService) Export(ctx context.Context, viewID string, format models.ExportFormat) (*ExportResult, error) {
	start := s.now()
	result, err := s.export(ctx, viewID, format)
	outcome := ExportResultSuccess
	if err != nil {
		outcome = ExportResultFailure
		s.logger.Error("card export failed", zap.String("view_id", viewID), zap.String("format", string(format)), zap.Error(err))
	} else {
		s.logger.Info("card exported", zap.String("view_id", viewID), zap.String("file", result.RelativePath))
	}
	s.metrics.ObserveExport(string(format), outcome, s.now().Sub(start))
	return result, err
}

func (s *ExportService) export(ctx context.Context, viewID string, format models.ExportFormat) (*ExportResult, error) {
	img, view, err := s.capture(ctx, viewID)
	if err != nil {
		return nil, err
	}
	return s.download(view, img, format)
}

// capture locates the view and rasterises it.
func (s *ExportService) capture(ctx context.Context, viewID string) (image.Image, card.View, error) {
	view, err := s.views.Locate(ctx, viewID)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil, card.View{}, appErrors.ExportFailure(appErrors.ExportReasonNotFound, err)
		}
		return nil, card.View{}, appErrors.ExportFailure(appErrors.ExportReasonCaptureFailed, err)
	}
	img, err := s.capturer.Capture(ctx, view)
	if err != nil {
		return nil, card.View{}, appErrors.ExportFailure(appErrors.ExportReasonCaptureFailed, err)
	}
	return img, view, nil
}

// download encodes the captured image and stores it under its deterministic name.
func (s *ExportService) download(view card.View, img image.Image, format models.ExportFormat) (*ExportResult, error) {
	var (
		payload []byte
		err     error
	)
	switch format {
	case models.ExportFormatPNG:
		payload, err = s.png.Render(img)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(img, fmt.Sprintf("%s - %s", card.Title, view.Record.Name))
	default:
		err = fmt.Errorf("unsupported format %s", format)
	}
	if err != nil {
		return nil, appErrors.ExportFailure(appErrors.ExportReasonEncodeFailed, err)
	}

	id := uuid.NewString()
	filename := models.ArtifactFilename(view.ID, format)
	relPath, err := s.storage.Save(path.Join(id, filename), payload)
	if err != nil {
		return nil, appErrors.ExportFailure(appErrors.ExportReasonStoreFailed, err)
	}

	result := &ExportResult{
		Artifact: models.Artifact{
			ID:          id,
			ViewID:      view.ID,
			Filename:    filename,
			Format:      format,
			ContentType: format.ContentType(),
			Data:        payload,
			CreatedAt:   s.now().UTC(),
		},
		RelativePath: relPath,
	}
	if s.signer == nil {
		return result, nil
	}
	token, expiresAt, err := s.signer.Generate(id, relPath)
	if err != nil {
		return nil, appErrors.ExportFailure(appErrors.ExportReasonStoreFailed, err)
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	result.Token = token
	result.URL = fmt.Sprintf("%s/exports/%s", prefix, token)
	result.ExpiresAt = expiresAt
	return result, nil
}

// ResolveDownload validates a signed token and opens the artefact.
func (s *ExportService) ResolveDownload(token string) (*ExportDownload, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "downloads are disabled")
	}
	_, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "download link invalid or expired")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export file not found")
	}
	filename := path.Base(relPath)
	contentType := models.ExportFormatPNG.ContentType()
	if strings.HasSuffix(filename, "."+string(models.ExportFormatPDF)) {
		contentType = models.ExportFormatPDF.ContentType()
	}
	return &ExportDownload{File: file, Filename: filename, ContentType: contentType, ExpiresAt: expiresAt}, nil
}

// Cleanup removes artefacts older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

// StartCleanup boots a goroutine that purges expired artefacts periodically.
func (s *ExportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := s.Cleanup(0)
				if err != nil {
					s.logger.Sugar().Warnw("export cleanup failed", "error", err)
					continue
				}
				if len(removed) > 0 {
					s.logger.Sugar().Infow("expired exports removed", "count", len(removed))
				}
			}
		}
	}()
}

// HistoryCSV renders the retained records, newest first.
func (s *ExportService) HistoryCSV(ctx context.Context) ([]byte, error) {
	dataset := export.Dataset{
		Headers: []string{"Slot", "Name", "Roll Number", "Class", "Rack Number", "Bus Route", "Allergies", "Photo", "Created At"},
	}
	for i, record := range s.records.LoadHistory(ctx).Records() {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Slot":        viewSlots[i],
			"Name":        record.Name,
			"Roll Number": record.RollNumber,
			"Class":       record.ClassDivision,
			"Rack Number": record.RackNumber,
			"Bus Route":   record.BusRoute,
			"Allergies":   strings.Join(record.Allergies, "; "),
			"Photo":       record.PhotoName,
			"Created At":  record.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	payload, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render history csv")
	}
	return payload, nil
}
