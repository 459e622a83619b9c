// Package capture rasterises card views into images.
package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/skip2/go-qrcode"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	_ "golang.org/x/image/webp"

	"github.com/noah-isme/sma-idcard/internal/card"
)

// Layout constants in pixels.
const (
	padding        = 24.0
	headerHeight   = 56.0
	portraitSize   = 128.0
	portraitBorder = 4.0
	nameHeight     = 44.0
	rowHeight      = 28.0
	badgeHeight    = 24.0
	badgeGap       = 6.0
	actionHeight   = 72.0
	cardBorder     = 2.0
)

// ErrMissingPhotoSource is returned when a view has a photo but no source was configured.
var ErrMissingPhotoSource = errors.New("capture: no photo source configured")

// PhotoSource opens stored portrait files.
type PhotoSource interface {
	Open(ctx context.Context, reference string) (io.ReadCloser, error)
}

// Options configures the rasteriser geometry.
type Options struct {
	Width  int
	QRSize int
}

// Rasterizer draws card views with gg.
type Rasterizer struct {
	width   float64
	qrSize  int
	photos  PhotoSource
	regular *truetype.Font
	bold    *truetype.Font
}

// NewRasterizer parses the bundled fonts and returns a rasteriser.
func NewRasterizer(opts Options, photos PhotoSource) (*Rasterizer, error) {
	if opts.Width <= 0 {
		opts.Width = 480
	}
	if opts.QRSize <= 0 {
		opts.QRSize = card.CodeSize
	}
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	return &Rasterizer{
		width:   float64(opts.Width),
		qrSize:  opts.QRSize,
		photos:  photos,
		regular: regular,
		bold:    bold,
	}, nil
}

// Capture renders the view. Any error means the surface could not be captured.
func (r *Rasterizer) Capture(ctx context.Context, view card.View) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var photo image.Image
	if view.Portrait.PhotoReference != "" {
		img, err := r.loadPhoto(ctx, view.Portrait.PhotoReference)
		if err != nil {
			return nil, fmt.Errorf("load photo: %w", err)
		}
		photo = img
	}

	qr, err := qrcode.New(view.Code.Payload, qrcode.Highest)
	if err != nil {
		return nil, fmt.Errorf("build qr code: %w", err)
	}
	qr.ForegroundColor = view.Code.Foreground.Token.RGBA
	qr.BackgroundColor = view.Code.Background.Token.RGBA
	qr.DisableBorder = !view.Code.IncludeMargin
	qrImage := qr.Image(r.qrSize)
	qrSide := qrImage.Bounds().Dx()

	badgeFace := r.face(r.regular, 12)
	badgeRows := r.layoutBadges(badgeFace, view.Allergies)

	height := headerHeight + padding + portraitSize + padding/2 + nameHeight +
		float64(len(view.Identity.Fields))*rowHeight + padding +
		padding + float64(qrSide) + padding + actionHeight
	if view.Allergies != nil {
		height += rowHeight + float64(len(badgeRows))*(badgeHeight+badgeGap) + padding/2
	}

	dc := gg.NewContext(int(r.width), int(height))
	dc.SetColor(view.Surface.Token.RGBA)
	dc.Clear()

	// header
	dc.SetColor(view.Header.Background.Token.RGBA)
	dc.DrawRectangle(0, 0, r.width, headerHeight)
	dc.Fill()
	dc.SetFontFace(r.face(r.bold, 20))
	dc.SetColor(view.Header.Foreground.Token.RGBA)
	dc.DrawStringAnchored(view.Header.Title, r.width/2, headerHeight/2, 0.5, 0.5)
	y := headerHeight + padding

	// portrait
	cx, cy := r.width/2, y+portraitSize/2
	if photo != nil {
		dc.DrawCircle(cx, cy, portraitSize/2)
		dc.Clip()
		dc.DrawImage(cover(photo, int(portraitSize)), int(cx-portraitSize/2), int(y))
		dc.ResetClip()
		dc.SetColor(view.Portrait.Border.Token.RGBA)
		dc.SetLineWidth(portraitBorder * 2)
		dc.DrawCircle(cx, cy, portraitSize/2-portraitBorder)
		dc.Stroke()
	} else {
		dc.SetColor(view.Portrait.Background.Token.RGBA)
		dc.DrawCircle(cx, cy, portraitSize/2)
		dc.Fill()
		dc.SetFontFace(r.face(r.regular, 36))
		dc.SetColor(view.Portrait.Foreground.Token.RGBA)
		dc.DrawStringAnchored(view.Portrait.Initial, cx, cy, 0.5, 0.5)
	}
	y += portraitSize + padding/2

	// name
	dc.SetFontFace(r.face(r.bold, 24))
	dc.SetColor(view.Name.Color.Token.RGBA)
	dc.DrawStringAnchored(view.Name.Text, r.width/2, y+nameHeight/2, 0.5, 0.5)
	y += nameHeight

	// identity grid
	boxHeight := float64(len(view.Identity.Fields))*rowHeight + padding/2
	dc.SetColor(view.Identity.Background.Token.RGBA)
	dc.DrawRoundedRectangle(padding, y, r.width-2*padding, boxHeight, 6)
	dc.Fill()
	rowY := y + padding/4
	for _, f := range view.Identity.Fields {
		dc.SetFontFace(r.face(r.regular, 15))
		dc.SetColor(view.Identity.Label.Token.RGBA)
		dc.DrawStringAnchored(f.Label+":", padding*1.5, rowY+rowHeight/2, 0, 0.5)
		dc.SetFontFace(r.face(r.bold, 15))
		dc.SetColor(view.Identity.Value.Token.RGBA)
		dc.DrawStringAnchored(f.Value, r.width/2, rowY+rowHeight/2, 0, 0.5)
		rowY += rowHeight
	}
	y += boxHeight + padding/2

	// allergies
	if view.Allergies != nil {
		dc.SetFontFace(r.face(r.bold, 15))
		dc.SetColor(view.Allergies.HeadingColor.Token.RGBA)
		dc.DrawStringAnchored(view.Allergies.Heading, padding, y+rowHeight/2, 0, 0.5)
		y += rowHeight
		dc.SetFontFace(badgeFace)
		for _, row := range badgeRows {
			x := padding
			for _, b := range row {
				dc.SetColor(view.Allergies.BadgeBackground.Token.RGBA)
				dc.DrawRoundedRectangle(x, y, b.width, badgeHeight, 4)
				dc.Fill()
				dc.SetColor(view.Allergies.BadgeForeground.Token.RGBA)
				dc.DrawStringAnchored(b.label, x+b.width/2, y+badgeHeight/2, 0.5, 0.5)
				x += b.width + badgeGap
			}
			y += badgeHeight + badgeGap
		}
		y += padding / 2
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// scannable code
	y += padding
	dc.DrawImage(qrImage, int(r.width/2)-qrSide/2, int(y))
	y += float64(qrSide) + padding

	// action bar
	dc.SetColor(view.Action.Background.Token.RGBA)
	dc.DrawRectangle(0, y, r.width, actionHeight)
	dc.Fill()
	dc.SetFontFace(r.face(r.bold, 15))
	labelWidth, _ := dc.MeasureString(view.Action.Label)
	buttonWidth := labelWidth + 2*padding
	dc.SetColor(view.Action.ButtonBackground.Token.RGBA)
	dc.DrawRoundedRectangle(r.width/2-buttonWidth/2, y+padding/2, buttonWidth, actionHeight-padding, 6)
	dc.Fill()
	dc.SetColor(view.Action.ButtonForeground.Token.RGBA)
	dc.DrawStringAnchored(view.Action.Label, r.width/2, y+actionHeight/2, 0.5, 0.5)

	// outline
	dc.SetColor(view.Border.Token.RGBA)
	dc.SetLineWidth(cardBorder * 2)
	dc.DrawRectangle(0, 0, r.width, height)
	dc.Stroke()

	return dc.Image(), nil
}

type badge struct {
	label string
	width float64
}

func (r *Rasterizer) layoutBadges(face font.Face, region *card.AllergyRegion) [][]badge {
	if region == nil {
		return nil
	}
	measure := gg.NewContext(1, 1)
	measure.SetFontFace(face)

	var rows [][]badge
	var row []badge
	used := 0.0
	limit := r.width - 2*padding
	for _, label := range region.Badges {
		w, _ := measure.MeasureString(label)
		b := badge{label: label, width: w + 16}
		if len(row) > 0 && used+b.width > limit {
			rows = append(rows, row)
			row, used = nil, 0
		}
		row = append(row, b)
		used += b.width + badgeGap
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}

func (r *Rasterizer) face(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: size})
}

func (r *Rasterizer) loadPhoto(ctx context.Context, reference string) (image.Image, error) {
	if strings.HasPrefix(reference, "data:") {
		return decodeDataURI(reference)
	}
	if r.photos == nil {
		return nil, ErrMissingPhotoSource
	}
	rc, err := r.photos.Open(ctx, reference)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	img, _, err := image.Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("decode photo: %w", err)
	}
	return img, nil
}

func decodeDataURI(uri string) (image.Image, error) {
	idx := strings.Index(uri, ",")
	if idx < 0 || !strings.HasSuffix(uri[:idx], ";base64") {
		return nil, fmt.Errorf("unsupported data uri")
	}
	raw, err := base64.StdEncoding.DecodeString(uri[idx+1:])
	if err != nil {
		return nil, fmt.Errorf("decode data uri: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode photo: %w", err)
	}
	return img, nil
}

// cover scales src to a size×size square, cropping the longer side.
func cover(src image.Image, size int) image.Image {
	b := src.Bounds()
	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}
	crop := image.Rect(0, 0, side, side).Add(image.Pt(b.Min.X+(b.Dx()-side)/2, b.Min.Y+(b.Dy()-side)/2))
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, xdraw.Over, nil)
	return dst
}
