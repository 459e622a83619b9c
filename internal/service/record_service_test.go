package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/sma-idcard/internal/models"
	"github.com/noah-isme/sma-idcard/internal/repository"
	appErrors "github.com/noah-isme/sma-idcard/pkg/errors"
)

type failingStore struct {
	getErr error
	setErr error
	sets   int
}

func (f *failingStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return nil, appErrors.ErrCacheMiss
}

func (f *failingStore) Set(ctx context.Context, key string, value []byte) error {
	f.sets++
	return f.setErr
}

func (f *failingStore) SetMany(ctx context.Context, values map[string][]byte) error {
	f.sets++
	return f.setErr
}

// outageStore is a memory store whose reads or batched writes can be made to fail.
type outageStore struct {
	*repository.MemoryKVRepository
	getErr  error
	failKey string
	batches [][]string
}

func newOutageStore() *outageStore {
	return &outageStore{MemoryKVRepository: repository.NewMemoryKVRepository()}
}

func (o *outageStore) Get(ctx context.Context, key string) ([]byte, error) {
	if o.getErr != nil {
		return nil, o.getErr
	}
	return o.MemoryKVRepository.Get(ctx, key)
}

func (o *outageStore) SetMany(ctx context.Context, values map[string][]byte) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	o.batches = append(o.batches, keys)
	if _, ok := values[o.failKey]; ok && o.failKey != "" {
		return errors.New("redis: i/o timeout")
	}
	return o.MemoryKVRepository.SetMany(ctx, values)
}

func historyNames(h models.RecordHistory) []string {
	names := make([]string, 0, h.Len())
	for _, r := range h.Records() {
		names = append(names, r.Name)
	}
	return names
}

func studentRequest(name string) models.SubmitStudentRequest {
	return models.SubmitStudentRequest{
		Name:          name,
		RollNumber:    "7",
		ClassDivision: "2A",
		Allergies:     []string{"Dust", "Peanuts"},
		RackNumber:    "R2",
		BusRoute:      "Route 1",
	}
}

func fixedClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func newRecordService(store kvStore, metrics *MetricsService) *RecordService {
	return NewRecordService(store, nil, metrics, zap.NewNop(), RecordServiceConfig{
		Clock: fixedClock(time.Date(2024, 5, 1, 8, 0, 0, 999_999, time.FixedZone("WIB", 7*3600))),
	})
}

func TestRecordServiceKeepsTwoNewest(t *testing.T) {
	store := repository.NewMemoryKVRepository()
	svc := newRecordService(store, nil)
	ctx := context.Background()

	for _, name := range []string{"Asha", "B", "C"} {
		_, err := svc.Submit(ctx, studentRequest(name))
		require.NoError(t, err)
	}

	history := svc.LoadHistory(ctx)
	require.Equal(t, 2, history.Len())
	latest, _ := history.Latest()
	previous, _ := history.Previous()
	assert.Equal(t, "C", latest.Name)
	assert.Equal(t, "B", previous.Name)

	current, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "C", current.Name)

	raw, err := store.Get(ctx, KeyStudentData)
	require.NoError(t, err)
	var stored []models.StudentRecord
	require.NoError(t, json.Unmarshal(raw, &stored))
	require.Len(t, stored, 2)
	assert.Equal(t, "C", stored[0].Name)
	assert.Equal(t, "B", stored[1].Name)
}

func TestRecordServiceStampsRecord(t *testing.T) {
	svc := newRecordService(repository.NewMemoryKVRepository(), nil)
	record, err := svc.Submit(context.Background(), studentRequest("  Asha  "))
	require.NoError(t, err)

	assert.Equal(t, "Asha", record.Name)
	assert.Equal(t, []string{"Peanuts", "Dust"}, record.Allergies)
	assert.Equal(t, time.UTC, record.CreatedAt.Location())
	assert.Equal(t, time.Date(2024, 5, 1, 1, 0, 1, 0, time.UTC), record.CreatedAt)

	current, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, *record, *current)
}

func TestRecordServiceValidation(t *testing.T) {
	svc := newRecordService(repository.NewMemoryKVRepository(), nil)
	ctx := context.Background()

	cases := map[string]func(*models.SubmitStudentRequest){
		"missing name":     func(r *models.SubmitStudentRequest) { r.Name = "  " },
		"unknown class":    func(r *models.SubmitStudentRequest) { r.ClassDivision = "9Z" },
		"unknown route":    func(r *models.SubmitStudentRequest) { r.BusRoute = "Route 9" },
		"unknown allergy":  func(r *models.SubmitStudentRequest) { r.Allergies = []string{"Mango"} },
		"missing rack":     func(r *models.SubmitStudentRequest) { r.RackNumber = "" },
		"missing roll no.": func(r *models.SubmitStudentRequest) { r.RollNumber = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := studentRequest("Asha")
			mutate(&req)
			_, err := svc.Submit(ctx, req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrValidation))
		})
	}
	assert.Equal(t, 0, svc.LoadHistory(ctx).Len())
}

func TestRecordServiceToleratesCorruptHistory(t *testing.T) {
	store := repository.NewMemoryKVRepository()
	metrics := NewMetricsService()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, KeyStudentData, []byte("{not json")))

	svc := newRecordService(store, metrics)
	assert.Equal(t, 0, svc.LoadHistory(ctx).Len())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.readErrors.WithLabelValues(KeyStudentData)))

	_, err := svc.Submit(ctx, studentRequest("Asha"))
	require.NoError(t, err)
	history := svc.LoadHistory(ctx)
	require.Equal(t, 1, history.Len())
}

func TestRecordServiceToleratesStoreReadFailure(t *testing.T) {
	metrics := NewMetricsService()
	svc := newRecordService(&failingStore{getErr: errors.New("disk on fire")}, metrics)

	assert.Equal(t, 0, svc.LoadHistory(context.Background()).Len())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.readErrors.WithLabelValues(KeyStudentData)))
}

func TestRecordServiceCurrentFallsBackToHistory(t *testing.T) {
	store := repository.NewMemoryKVRepository()
	ctx := context.Background()
	svc := newRecordService(store, nil)

	_, err := svc.Current(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Submit(ctx, studentRequest("Asha"))
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, KeyCurrentStudent, []byte("garbage")))

	current, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Asha", current.Name)
}

func TestRecordServicePersistFailure(t *testing.T) {
	store := &failingStore{setErr: errors.New("read-only")}
	metrics := NewMetricsService()
	svc := newRecordService(store, metrics)

	_, err := svc.Submit(context.Background(), studentRequest("Asha"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.submissions))
}

func TestRecordServiceSubmitKeepsHistoryWhenStoreUnreachable(t *testing.T) {
	store := newOutageStore()
	svc := newRecordService(store, nil)
	ctx := context.Background()
	for _, name := range []string{"A", "B"} {
		_, err := svc.Submit(ctx, studentRequest(name))
		require.NoError(t, err)
	}
	writes := len(store.batches)

	store.getErr = errors.New("redis: i/o timeout")
	_, err := svc.Submit(ctx, studentRequest("C"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
	assert.Len(t, store.batches, writes)

	store.getErr = nil
	assert.Equal(t, []string{"B", "A"}, historyNames(svc.LoadHistory(ctx)))

	_, err = svc.Submit(ctx, studentRequest("C"))
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B"}, historyNames(svc.LoadHistory(ctx)))
}

func TestRecordServiceWritesHistoryAndCurrentTogether(t *testing.T) {
	store := newOutageStore()
	svc := newRecordService(store, nil)
	ctx := context.Background()

	_, err := svc.Submit(ctx, studentRequest("A"))
	require.NoError(t, err)
	require.Equal(t, [][]string{{KeyCurrentStudent, KeyStudentData}}, store.batches)

	store.failKey = KeyCurrentStudent
	_, err = svc.Submit(ctx, studentRequest("B"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))

	assert.Equal(t, []string{"A"}, historyNames(svc.LoadHistory(ctx)))
	current, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A", current.Name)
}

func TestRecordServiceLogsUnreadableValuesAsPersistenceReadErrors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	metrics := NewMetricsService()
	svc := NewRecordService(&failingStore{getErr: errors.New("disk on fire")}, nil, metrics, zap.New(core), RecordServiceConfig{})

	assert.Equal(t, 0, svc.LoadHistory(context.Background()).Len())

	entries := logs.FilterField(zap.String("key", KeyStudentData)).All()
	require.Len(t, entries, 1)
	assert.Equal(t, appErrors.ErrPersistenceRead.Code, entries[0].ContextMap()["code"])
	assert.Contains(t, entries[0].ContextMap()["error"], "disk on fire")
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.readErrors.WithLabelValues(KeyStudentData)))
	assert.True(t, errors.Is(persistenceReadError(KeyStudentData, errors.New("x")), appErrors.ErrPersistenceRead))
}
