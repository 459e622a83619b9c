package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-idcard/internal/capture"
	"github.com/noah-isme/sma-idcard/internal/catalog"
	"github.com/noah-isme/sma-idcard/internal/models"
	"github.com/noah-isme/sma-idcard/internal/repository"
	"github.com/noah-isme/sma-idcard/internal/service"
	"github.com/noah-isme/sma-idcard/pkg/config"
	"github.com/noah-isme/sma-idcard/pkg/jobs"
	"github.com/noah-isme/sma-idcard/pkg/storage"
)

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta map[string]interface{} `json:"meta"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Env: config.EnvProduction, APIPrefix: "/api/v1"}
	logr := zap.NewNop()

	store := repository.NewMemoryKVRepository()
	cat, err := catalog.Load()
	require.NoError(t, err)
	metrics := service.NewMetricsService()

	photoStore, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	exportStore, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	records := service.NewRecordService(store, nil, metrics, logr, service.RecordServiceConfig{})
	templates := service.NewTemplateService(cat, store, metrics, logr)
	cards := service.NewCardService(records, templates, logr)
	photos := service.NewPhotoService(photoStore, logr, service.PhotoServiceConfig{})
	rasterizer, err := capture.NewRasterizer(capture.Options{}, photos)
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	exports := service.NewExportService(cards, rasterizer, records, exportStore, signer, metrics, logr, service.ExportConfig{APIPrefix: cfg.APIPrefix}, nil, nil, nil)
	exportJobs := service.NewExportJobService(cards, exports, nil, logr)
	queue := jobs.NewQueue("card-exports", exportJobs.Handle, jobs.QueueConfig{Logger: logr})
	queue.Start(context.Background())
	t.Cleanup(func() { queue.Stop() })
	exportJobs.AttachQueue(queue)

	return NewRouter(cfg, logr, metrics, Handlers{
		Students:  NewStudentHandler(records, exports),
		Photos:    NewPhotoHandler(photos),
		Templates: NewTemplateHandler(templates),
		Cards:     NewCardHandler(cards, exports, exportJobs),
		Exports:   NewExportHandler(exportJobs, exports),
		Metrics:   NewMetricsHandler(metrics, func(ctx context.Context) error { return nil }),
	})
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func submit(t *testing.T, r http.Handler, name string, allergies ...string) {
	t.Helper()
	w, _ := doJSON(t, r, http.MethodPost, "/api/v1/students", models.SubmitStudentRequest{
		Name:          name,
		RollNumber:    "1",
		ClassDivision: "1A",
		Allergies:     allergies,
		RackNumber:    "R1",
		BusRoute:      "Route 1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestRouterEndToEnd(t *testing.T) {
	r := newTestRouter(t)

	w, env := doJSON(t, r, http.MethodGet, "/api/v1/cards", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "No student data found. Please register a student first.", env.Meta["message"])

	submit(t, r, "Asha", "Peanuts")
	submit(t, r, "B")
	submit(t, r, "C")

	w, env = doJSON(t, r, http.MethodGet, "/api/v1/students/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []models.StudentRecord
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 2)
	assert.Equal(t, "C", history[0].Name)
	assert.Equal(t, "B", history[1].Name)

	w, env = doJSON(t, r, http.MethodPut, "/api/v1/templates/current", map[string]string{"id": "neon"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNKNOWN_TEMPLATE", env.Error.Code)

	w, _ = doJSON(t, r, http.MethodPut, "/api/v1/templates/current", map[string]string{"id": "dark"})
	require.Equal(t, http.StatusOK, w.Code)

	w, env = doJSON(t, r, http.MethodGet, "/api/v1/cards", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dark", env.Meta["templateId"])
	assert.Equal(t, float64(2), env.Meta["count"])

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cards/previous-id-card/download", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "student-id-card-previous-id-card.png")
	_, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)

	w, env = doJSON(t, r, http.MethodGet, "/api/v1/cards/third-id-card/download", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "EXPORT_FAILED", env.Error.Code)
	assert.Equal(t, "not found", env.Error.Message)
}

func TestRouterAsyncExport(t *testing.T) {
	r := newTestRouter(t)
	submit(t, r, "Asha")

	w, env := doJSON(t, r, http.MethodPost, "/api/v1/cards/current-id-card/exports?format=pdf", nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var job models.ExportJob
	require.NoError(t, json.Unmarshal(env.Data, &job))

	deadline := time.Now().Add(5 * time.Second)
	for job.Status != models.ExportJobFinished && job.Status != models.ExportJobFailed {
		require.True(t, time.Now().Before(deadline), "export job did not finish")
		time.Sleep(20 * time.Millisecond)
		w, env = doJSON(t, r, http.MethodGet, "/api/v1/exports/jobs/"+job.ID, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(env.Data, &job))
	}
	require.Equal(t, models.ExportJobFinished, job.Status, job.Error)
	assert.Equal(t, "student-id-card-current-id-card.pdf", job.Filename)

	req := httptest.NewRequest(http.MethodGet, job.DownloadURL, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestRouterPhotoUpload(t *testing.T) {
	r := newTestRouter(t)

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 8, 8))))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("photo", "asha.png")
	require.NoError(t, err)
	_, err = part.Write(img.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/photos", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var stored service.StoredPhoto
	require.NoError(t, json.Unmarshal(env.Data, &stored))
	assert.True(t, strings.HasPrefix(stored.Reference, service.PhotoReferencePrefix))

	w, _ := doJSON(t, r, http.MethodPost, "/api/v1/students", models.SubmitStudentRequest{
		Name: "Asha", RollNumber: "1", ClassDivision: "1A", RackNumber: "R1", BusRoute: "Route 1",
		PhotoReference: stored.Reference, PhotoName: stored.Name,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/cards/current-id-card/download", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRouterHealthAndReadiness(t *testing.T) {
	r := newTestRouter(t)

	w, _ := doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = doJSON(t, r, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "goroutines_total")
}
