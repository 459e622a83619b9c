package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-idcard/internal/card"
	"github.com/noah-isme/sma-idcard/internal/catalog"
	"github.com/noah-isme/sma-idcard/internal/models"
)

type stubPhotos struct {
	data []byte
	err  error
	refs []string
}

func (s *stubPhotos) Open(_ context.Context, reference string) (io.ReadCloser, error) {
	s.refs = append(s.refs, reference)
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

func renderView(t *testing.T, mutate func(*models.StudentRecord)) card.View {
	t.Helper()
	cat, err := catalog.Load()
	require.NoError(t, err)
	rec := models.StudentRecord{
		Name:          "Asha",
		RollNumber:    "12",
		ClassDivision: "1A",
		Allergies:     []string{"Peanuts", "Dust"},
		RackNumber:    "R4",
		BusRoute:      "Route 2",
		CreatedAt:     time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
	}
	if mutate != nil {
		mutate(&rec)
	}
	view, err := card.Render(rec, cat.Fallback())
	require.NoError(t, err)
	view.ID = models.ViewCurrent
	return view
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		for y := 0; y < 20; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCaptureDrawsCard(t *testing.T) {
	r, err := NewRasterizer(Options{Width: 480, QRSize: 128}, nil)
	require.NoError(t, err)

	view := renderView(t, nil)
	img, err := r.Capture(context.Background(), view)
	require.NoError(t, err)

	assert.Equal(t, 480, img.Bounds().Dx())
	assert.Greater(t, img.Bounds().Dy(), 128)

	got := color.RGBAModel.Convert(img.At(10, 10)).(color.RGBA)
	assert.Equal(t, view.Header.Background.Token.RGBA, got)
}

func TestCaptureLoadsPhoto(t *testing.T) {
	photos := &stubPhotos{data: pngBytes(t)}
	r, err := NewRasterizer(Options{}, photos)
	require.NoError(t, err)

	view := renderView(t, func(rec *models.StudentRecord) { rec.PhotoReference = "photos/a.png" })
	_, err = r.Capture(context.Background(), view)
	require.NoError(t, err)
	assert.Equal(t, []string{"photos/a.png"}, photos.refs)
}

func TestCaptureFailsWhenPhotoUnreadable(t *testing.T) {
	photos := &stubPhotos{err: errors.New("gone")}
	r, err := NewRasterizer(Options{}, photos)
	require.NoError(t, err)

	view := renderView(t, func(rec *models.StudentRecord) { rec.PhotoReference = "photos/a.png" })
	_, err = r.Capture(context.Background(), view)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load photo")

	r, err = NewRasterizer(Options{}, nil)
	require.NoError(t, err)
	_, err = r.Capture(context.Background(), view)
	assert.True(t, errors.Is(err, ErrMissingPhotoSource))
}

func TestCaptureAcceptsDataURIPhoto(t *testing.T) {
	r, err := NewRasterizer(Options{}, nil)
	require.NoError(t, err)

	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t))
	view := renderView(t, func(rec *models.StudentRecord) { rec.PhotoReference = uri })
	view.Code.Payload = "short"
	_, err = r.Capture(context.Background(), view)
	require.NoError(t, err)
}

func TestCaptureRejectsOversizedPayload(t *testing.T) {
	r, err := NewRasterizer(Options{}, nil)
	require.NoError(t, err)

	view := renderView(t, nil)
	view.Code.Payload = strings.Repeat("x", 5000)
	_, err = r.Capture(context.Background(), view)
	require.Error(t, err)
}

func TestCaptureHonoursCancelledContext(t *testing.T) {
	r, err := NewRasterizer(Options{}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Capture(ctx, renderView(t, nil))
	assert.True(t, errors.Is(err, context.Canceled))
}
