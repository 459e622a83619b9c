package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-idcard/internal/models"
	appErrors "github.com/noah-isme/sma-idcard/pkg/errors"
	"github.com/noah-isme/sma-idcard/pkg/jobs"
)

// ExportJobType labels card export jobs on the queue.
const ExportJobType = "card_export"

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportGenerator interface {
	Export(ctx context.Context, viewID string, format models.ExportFormat) (*ExportResult, error)
}

// ExportCallback receives the final state of an asynchronous export.
type ExportCallback func(job models.ExportJob)

type exportJobPayload struct {
	ViewID string
	Format models.ExportFormat
	Done   ExportCallback
}

// ExportJobService tracks asynchronous exports dispatched to the worker queue.
type ExportJobService struct {
	views    viewLocator
	exporter exportGenerator
	queue    jobDispatcher
	logger   *zap.Logger
	now      func() time.Time

	mu   sync.RWMutex
	jobs map[string]*models.ExportJob
}

// NewExportJobService constructs the service. The queue may be attached later with AttachQueue.
func NewExportJobService(views viewLocator, exporter exportGenerator, queue jobDispatcher, logger *zap.Logger) *ExportJobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportJobService{
		views:    views,
		exporter: exporter,
		queue:    queue,
		logger:   logger,
		now:      time.Now,
		jobs:     make(map[string]*models.ExportJob),
	}
}

// AttachQueue sets the dispatcher used by CreateJob.
func (s *ExportJobService) AttachQueue(queue jobDispatcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = queue
}

// CreateJob checks the view exists and enqueues its export. done, when set, is
// called once with the finished or failed job.
func (s *ExportJobService) CreateJob(ctx context.Context, viewID string, format models.ExportFormat, done ExportCallback) (*models.ExportJob, error) {
	if _, err := s.views.Locate(ctx, viewID); err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.ExportFailure(appErrors.ExportReasonNotFound, err)
		}
		return nil, err
	}

	job := &models.ExportJob{
		ID:        uuid.NewString(),
		ViewID:    viewID,
		Format:    format,
		Status:    models.ExportJobQueued,
		CreatedAt: s.now().UTC(),
	}

	s.mu.Lock()
	queue := s.queue
	s.jobs[job.ID] = job
	snapshot := *job
	s.mu.Unlock()

	if queue == nil {
		s.finish(job.ID, nil, fmt.Errorf("export queue not configured"))
		return nil, appErrors.Clone(appErrors.ErrInternal, "export queue not configured")
	}
	payload := exportJobPayload{ViewID: viewID, Format: format, Done: done}
	if err := queue.Enqueue(jobs.Job{ID: job.ID, Type: ExportJobType, Payload: payload}); err != nil {
		s.finish(job.ID, nil, err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	return &snapshot, nil
}

// GetStatus returns a copy of the job.
func (s *ExportJobService) GetStatus(id string) (*models.ExportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	snapshot := *job
	return &snapshot, nil
}

// Handle processes a queue job. It is the queue handler for ExportJobType.
func (s *ExportJobService) Handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(exportJobPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for job %s", job.ID)
	}
	s.update(job.ID, func(j *models.ExportJob) { j.Status = models.ExportJobRunning })

	result, err := s.exporter.Export(ctx, payload.ViewID, payload.Format)
	final := s.finish(job.ID, result, err)
	if payload.Done != nil && final != nil {
		payload.Done(*final)
	}
	return err
}

// Abandon fails jobs the queue accepted but never ran, typically the ones
// returned by Queue.Stop, and delivers their callbacks.
func (s *ExportJobService) Abandon(unhandled []jobs.Job, reason string) int {
	failed := 0
	for _, job := range unhandled {
		final := s.finish(job.ID, nil, errors.New(reason))
		if final == nil {
			continue
		}
		failed++
		if payload, ok := job.Payload.(exportJobPayload); ok && payload.Done != nil {
			payload.Done(*final)
		}
	}
	if failed > 0 {
		s.logger.Warn("export jobs abandoned", zap.Int("count", failed), zap.String("reason", reason))
	}
	return failed
}

// Prune forgets finished and failed jobs that ended more than retention ago.
// Queued and running jobs are kept.
func (s *ExportJobService) Prune(retention time.Duration) int {
	cutoff := s.now().UTC().Add(-retention)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, job := range s.jobs {
		if job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

// StartCleanup prunes settled jobs every interval until ctx is done.
func (s *ExportJobService) StartCleanup(ctx context.Context, interval, retention time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := s.Prune(retention); removed > 0 {
					s.logger.Sugar().Infow("settled export jobs pruned", "count", removed)
				}
			}
		}
	}()
}

func (s *ExportJobService) finish(id string, result *ExportResult, err error) *models.ExportJob {
	var snapshot *models.ExportJob
	s.update(id, func(j *models.ExportJob) {
		now := s.now().UTC()
		j.FinishedAt = &now
		if err != nil {
			j.Status = models.ExportJobFailed
			j.Error = err.Error()
		} else {
			j.Status = models.ExportJobFinished
			j.Filename = result.Artifact.Filename
			j.DownloadURL = result.URL
			if !result.ExpiresAt.IsZero() {
				expires := result.ExpiresAt
				j.ExpiresAt = &expires
			}
		}
		copied := *j
		snapshot = &copied
	})
	return snapshot
}

func (s *ExportJobService) update(id string, mutate func(*models.ExportJob)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		s.logger.Warn("export job vanished", zap.String("job_id", id))
		return
	}
	mutate(job)
}
