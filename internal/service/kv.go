package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sma-idcard/pkg/errors"
)

// Persisted keys.
const (
	KeyStudentData        = "studentData"
	KeyCurrentStudent     = "currentStudent"
	KeySelectedTemplateID = "selectedTemplateId"
)

type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetMany(ctx context.Context, values map[string][]byte) error
}

// persistenceReadError marks a stored value that could not be read or decoded.
func persistenceReadError(key string, err error) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrPersistenceRead.Code, appErrors.ErrPersistenceRead.Status, fmt.Sprintf("stored %s unreadable", key))
}

// reportUnreadable logs and counts a persistence read error; callers fall back to defaults.
func reportUnreadable(key string, err error, metrics *MetricsService, logger *zap.Logger) {
	readErr := persistenceReadError(key, err)
	logger.Warn("persisted value unreadable, using default",
		zap.String("key", key),
		zap.String("code", readErr.Code),
		zap.Error(readErr),
	)
	metrics.RecordPersistenceReadError(key)
}

// readTolerant returns the raw value for key, or nil when it is absent or
// unreadable. Unreadable values are logged and counted, never returned as errors.
func readTolerant(ctx context.Context, store kvStore, key string, metrics *MetricsService, logger *zap.Logger) []byte {
	raw, err := store.Get(ctx, key)
	if err == nil {
		return raw
	}
	if !errors.Is(err, appErrors.ErrCacheMiss) {
		reportUnreadable(key, err, metrics, logger)
	}
	return nil
}
