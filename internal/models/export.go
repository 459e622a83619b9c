package models

import (
	"fmt"
	"strings"
	"time"
)

// View ids of the two rendered cards.
const (
	ViewCurrent  = "current-id-card"
	ViewPrevious = "previous-id-card"
)

// ExportFormat selects the artefact encoding.
type ExportFormat string

const (
	ExportFormatPNG ExportFormat = "png"
	ExportFormatPDF ExportFormat = "pdf"
)

// ParseExportFormat accepts "png", "pdf" or empty (png).
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ExportFormatPNG:
		return ExportFormatPNG, nil
	case ExportFormatPDF:
		return ExportFormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// ContentType returns the MIME type of the format.
func (f ExportFormat) ContentType() string {
	if f == ExportFormatPDF {
		return "application/pdf"
	}
	return "image/png"
}

// ArtifactFilename is the deterministic download name for a view.
func ArtifactFilename(viewID string, format ExportFormat) string {
	return fmt.Sprintf("student-id-card-%s.%s", viewID, format)
}

// Artifact is a captured and encoded card ready to be downloaded.
type Artifact struct {
	ID          string       `json:"id"`
	ViewID      string       `json:"viewId"`
	Filename    string       `json:"filename"`
	Format      ExportFormat `json:"format"`
	ContentType string       `json:"contentType"`
	Data        []byte       `json:"-"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// ExportJobStatus tracks an asynchronous export.
type ExportJobStatus string

const (
	ExportJobQueued   ExportJobStatus = "QUEUED"
	ExportJobRunning  ExportJobStatus = "RUNNING"
	ExportJobFinished ExportJobStatus = "FINISHED"
	ExportJobFailed   ExportJobStatus = "FAILED"
)

// ExportJob is the observable state of an asynchronous export.
type ExportJob struct {
	ID          string          `json:"id"`
	ViewID      string          `json:"viewId"`
	Format      ExportFormat    `json:"format"`
	Status      ExportJobStatus `json:"status"`
	Filename    string          `json:"filename,omitempty"`
	DownloadURL string          `json:"downloadUrl,omitempty"`
	ExpiresAt   *time.Time      `json:"expiresAt,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	FinishedAt  *time.Time      `json:"finishedAt,omitempty"`
}
