package repository

import (
	"context"
	"sync"

	appErrors "github.com/noah-isme/sma-idcard/pkg/errors"
)

// MemoryKVRepository keeps values in process memory.
type MemoryKVRepository struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryKVRepository constructs an empty in-memory store.
func NewMemoryKVRepository() *MemoryKVRepository {
	return &MemoryKVRepository{values: make(map[string][]byte)}
}

// Get returns a copy of the stored value or appErrors.ErrCacheMiss.
func (r *MemoryKVRepository) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[key]
	if !ok {
		return nil, appErrors.ErrCacheMiss
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value.
func (r *MemoryKVRepository) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = append([]byte(nil), value...)
	return nil
}

// SetMany stores copies of all values under one lock.
func (r *MemoryKVRepository) SetMany(ctx context.Context, values map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, value := range values {
		r.values[key] = append([]byte(nil), value...)
	}
	return nil
}
