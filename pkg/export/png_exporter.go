package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
)

// PNGExporter encodes a captured card surface as PNG.
type PNGExporter struct {
	encoder png.Encoder
}

// NewPNGExporter constructs a PNG exporter using best compression.
func NewPNGExporter() *PNGExporter {
	return &PNGExporter{encoder: png.Encoder{CompressionLevel: png.BestCompression}}
}

// Render encodes img.
func (e *PNGExporter) Render(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("png requires an image")
	}
	buf := &bytes.Buffer{}
	if err := e.encoder.Encode(buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
