package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-idcard/internal/models"
	appErrors "github.com/noah-isme/sma-idcard/pkg/errors"
)

// RecordServiceConfig tunes the record store.
type RecordServiceConfig struct {
	Clock func() time.Time
}

// RecordService keeps the two most recent student submissions.
type RecordService struct {
	store     kvStore
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time

	mu sync.Mutex
}

// NewRecordService constructs the record store and registers the form validation tags.
func NewRecordService(store kvStore, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, cfg RecordServiceConfig) *RecordService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	svc := &RecordService{store: store, validator: validate, metrics: metrics, logger: logger, now: cfg.Clock}
	svc.validator.RegisterValidation("classdivision", func(fl validator.FieldLevel) bool {
		return models.IsClassDivision(fl.Field().String())
	})
	svc.validator.RegisterValidation("busroute", func(fl validator.FieldLevel) bool {
		return models.IsBusRoute(fl.Field().String())
	})
	svc.validator.RegisterValidation("allergy", func(fl validator.FieldLevel) bool {
		return models.IsAllergy(fl.Field().String())
	})
	return svc
}

// Submit validates the form, stamps the record and rotates it into history.
// The history and the current-student copy are written together: both change or neither does.
func (s *RecordService) Submit(ctx context.Context, req models.SubmitStudentRequest) (*models.StudentRecord, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.RollNumber = strings.TrimSpace(req.RollNumber)
	req.RackNumber = strings.TrimSpace(req.RackNumber)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	record := models.StudentRecord{
		Name:           req.Name,
		RollNumber:     req.RollNumber,
		ClassDivision:  req.ClassDivision,
		Allergies:      models.NormalizeAllergies(req.Allergies),
		RackNumber:     req.RackNumber,
		BusRoute:       req.BusRoute,
		PhotoReference: strings.TrimSpace(req.PhotoReference),
		PhotoName:      strings.TrimSpace(req.PhotoName),
		CreatedAt:      s.now().UTC().Truncate(time.Millisecond),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.historyForUpdate(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read history")
	}
	history := stored.Push(record)
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode history")
	}
	recordJSON, err := json.Marshal(record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode student")
	}
	if err := s.store.SetMany(ctx, map[string][]byte{
		KeyStudentData:    historyJSON,
		KeyCurrentStudent: recordJSON,
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist student")
	}

	s.metrics.RecordSubmission()
	s.logger.Info("student submitted", zap.String("roll_number", record.RollNumber), zap.Int("history_len", history.Len()))
	return &record, nil
}

// LoadHistory returns the stored history, newest first. Missing or corrupt data yields an empty history.
func (s *RecordService) LoadHistory(ctx context.Context) models.RecordHistory {
	return s.loadHistory(ctx)
}

// Current returns the most recent submission.
func (s *RecordService) Current(ctx context.Context) (*models.StudentRecord, error) {
	if raw := readTolerant(ctx, s.store, KeyCurrentStudent, s.metrics, s.logger); raw != nil {
		var record models.StudentRecord
		err := json.Unmarshal(raw, &record)
		if err == nil {
			return &record, nil
		}
		reportUnreadable(KeyCurrentStudent, err, s.metrics, s.logger)
	}
	if latest, ok := s.loadHistory(ctx).Latest(); ok {
		return &latest, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "no student data found")
}

func (s *RecordService) loadHistory(ctx context.Context) models.RecordHistory {
	raw := readTolerant(ctx, s.store, KeyStudentData, s.metrics, s.logger)
	if raw == nil {
		return models.RecordHistory{}
	}
	return s.decodeHistory(raw)
}

// historyForUpdate reads the history for a rotation. Absent or corrupt data is
// an empty history; a store that cannot be read is an error, so a submit never
// overwrites records it failed to load.
func (s *RecordService) historyForUpdate(ctx context.Context) (models.RecordHistory, error) {
	raw, err := s.store.Get(ctx, KeyStudentData)
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return models.RecordHistory{}, nil
		}
		return models.RecordHistory{}, err
	}
	return s.decodeHistory(raw), nil
}

func (s *RecordService) decodeHistory(raw []byte) models.RecordHistory {
	var history models.RecordHistory
	if err := json.Unmarshal(raw, &history); err != nil {
		reportUnreadable(KeyStudentData, err, s.metrics, s.logger)
		return models.RecordHistory{}
	}
	return history
}
