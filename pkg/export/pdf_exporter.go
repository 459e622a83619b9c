package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Card width on the printed page, in millimetres.
const pdfCardWidthMM = 90.0

// PDFExporter places a captured card on a printable A4 page.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title above the centred card image.
func (e *PDFExporter) Render(img image.Image, title string) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("pdf requires an image")
	}
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("pdf requires a non-empty image")
	}

	raw := &bytes.Buffer{}
	if err := png.Encode(raw, img); err != nil {
		return nil, fmt.Errorf("encode card image: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetTitle(title, true)
	pdf.AddPage()

	y := 15.0
	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		pdf.Ln(5)
		y = pdf.GetY()
	}

	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	pdf.RegisterImageOptionsReader("card", opts, raw)
	pageWidth, _ := pdf.GetPageSize()
	height := pdfCardWidthMM * float64(bounds.Dy()) / float64(bounds.Dx())
	x := (pageWidth - pdfCardWidthMM) / 2
	pdf.ImageOptions("card", x, y, pdfCardWidthMM, height, false, opts, 0, "")

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
