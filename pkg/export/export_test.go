package export

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 40, 60))
	for y := 0; y < 60; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.RGBA{R: 37, G: 99, B: 235, A: 255})
		}
	}
	return img
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(Dataset{
		Headers: []string{"name", "bus_route"},
		Rows: []map[string]string{
			{"name": "Asha", "bus_route": "Route 1"},
			{"name": "Ravi"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "name,bus_route\nAsha,Route 1\nRavi,\n", string(out))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPNGExporterRender(t *testing.T) {
	out, err := NewPNGExporter().Render(sampleImage())
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 40, decoded.Bounds().Dx())
	assert.Equal(t, 60, decoded.Bounds().Dy())

	_, err = NewPNGExporter().Render(nil)
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleImage(), "Student ID Card")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	_, err = NewPDFExporter().Render(image.NewRGBA(image.Rect(0, 0, 0, 0)), "")
	require.Error(t, err)
}
