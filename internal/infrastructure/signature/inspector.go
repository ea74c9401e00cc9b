package signature

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/kirillkom/handyman-docs/internal/core/domain"
)

const (
	defaultMaxBytes = 2 << 20
	defaultMaxWidth = 1200
	// decoded canvases above this many pixels are refused before decoding
	maxPixels = 4000 * 4000
	// pixels below this alpha are background whatever their colour
	inkAlpha = 0x40
	// channel distance from the background that counts as a stroke
	inkDistance  = 0x30
	minInkPixels = 20
)

// Inspector validates a drawn signature and re-encodes it as a bounded PNG.
type Inspector struct {
	maxBytes int
	maxWidth int
}

func NewInspector(maxBytes, maxWidth int) *Inspector {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	if maxWidth <= 0 {
		maxWidth = defaultMaxWidth
	}
	return &Inspector{maxBytes: maxBytes, maxWidth: maxWidth}
}

func (i *Inspector) Normalize(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, domain.WrapError(domain.ErrMissingRequiredField, "inspect signature", errors.New("signature image is empty"))
	}
	if len(raw) > i.maxBytes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "inspect signature", fmt.Errorf("signature image is %d bytes, limit %d", len(raw), i.maxBytes))
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "inspect signature", fmt.Errorf("decode image header: %w", err))
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, domain.WrapError(domain.ErrInvalidInput, "inspect signature", fmt.Errorf("signature canvas %dx%d exceeds %d pixels", cfg.Width, cfg.Height, maxPixels))
	}

	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "inspect signature", fmt.Errorf("decode image: %w", err))
	}
	canvas := imaging.Clone(img)
	if countInk(canvas) < minInkPixels {
		return nil, domain.WrapError(domain.ErrMissingRequiredField, "inspect signature", errors.New("signature is blank"))
	}
	if canvas.Bounds().Dx() > i.maxWidth {
		canvas = imaging.Resize(canvas, i.maxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode signature: %w", err)
	}
	return buf.Bytes(), nil
}

// countInk counts pixels that differ from the background, taken as the
// colour shared by most of the four corners.
func countInk(img *image.NRGBA) int {
	b := img.Bounds()
	if b.Empty() {
		return 0
	}
	bg := background(img)
	ink := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if !sameColor(img.NRGBAAt(x, y), bg) {
				ink++
			}
		}
	}
	return ink
}

func background(img *image.NRGBA) color.NRGBA {
	b := img.Bounds()
	corners := []color.NRGBA{
		img.NRGBAAt(b.Min.X, b.Min.Y),
		img.NRGBAAt(b.Max.X-1, b.Min.Y),
		img.NRGBAAt(b.Min.X, b.Max.Y-1),
		img.NRGBAAt(b.Max.X-1, b.Max.Y-1),
	}
	best, votes := corners[0], 0
	for _, c := range corners {
		n := 0
		for _, other := range corners {
			if sameColor(c, other) {
				n++
			}
		}
		if n > votes {
			best, votes = c, n
		}
	}
	return best
}

func sameColor(a, b color.NRGBA) bool {
	aClear, bClear := a.A < inkAlpha, b.A < inkAlpha
	if aClear || bClear {
		return aClear == bClear
	}
	return channelDistance(a.R, b.R) <= inkDistance &&
		channelDistance(a.G, b.G) <= inkDistance &&
		channelDistance(a.B, b.B) <= inkDistance
}

func channelDistance(a, b uint8) int {
	d := int(a) - int(b)
	if d < 0 {
		return -d
	}
	return d
}
