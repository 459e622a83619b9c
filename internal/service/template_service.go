package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-idcard/internal/models"
	appErrors "github.com/noah-isme/sma-idcard/pkg/errors"
)

type templateCatalog interface {
	List() []models.Template
	Find(id string) (models.Template, bool)
	Fallback() models.Template
}

// TemplateService is the registry of card templates and the persisted selection.
type TemplateService struct {
	catalog templateCatalog
	store   kvStore
	metrics *MetricsService
	logger  *zap.Logger

	mu sync.Mutex
}

// NewTemplateService constructs the registry.
func NewTemplateService(catalog templateCatalog, store kvStore, metrics *MetricsService, logger *zap.Logger) *TemplateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateService{catalog: catalog, store: store, metrics: metrics, logger: logger}
}

// List returns the catalogue in its fixed order.
func (s *TemplateService) List() []models.Template {
	return s.catalog.List()
}

// Current returns the persisted selection, or the fallback when nothing valid is stored.
func (s *TemplateService) Current(ctx context.Context) models.Template {
	raw := readTolerant(ctx, s.store, KeySelectedTemplateID, s.metrics, s.logger)
	if raw == nil {
		return s.catalog.Fallback()
	}
	id := decodeTemplateID(raw)
	if tpl, ok := s.catalog.Find(id); ok {
		return tpl
	}
	s.logger.Warn("stored template not in catalogue, using fallback", zap.String("template_id", id))
	return s.catalog.Fallback()
}

// Select makes id the current template and persists it immediately.
// An id outside the catalogue is rejected and leaves the selection unchanged.
func (s *TemplateService) Select(ctx context.Context, id string) (models.Template, error) {
	tpl, ok := s.catalog.Find(id)
	if !ok {
		s.metrics.RecordTemplateSelection(SelectionRejected)
		return models.Template{}, appErrors.Clone(appErrors.ErrUnknownTemplate, fmt.Sprintf("unknown template %q", id))
	}

	raw, err := json.Marshal(tpl.ID)
	if err != nil {
		return models.Template{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode template id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Set(ctx, KeySelectedTemplateID, raw); err != nil {
		return models.Template{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist template selection")
	}
	s.metrics.RecordTemplateSelection(SelectionAccepted)
	s.logger.Info("template selected", zap.String("template_id", tpl.ID))
	return tpl, nil
}

// decodeTemplateID accepts a JSON string or a bare id.
func decodeTemplateID(raw []byte) string {
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return strings.TrimSpace(id)
	}
	return strings.TrimSpace(string(raw))
}
