package layout

import (
	"image"
	"time"
)

// BuildOptions carries the collaborators a layout needs.
type BuildOptions struct {
	Fonts FontResolver
	QR    QREncoder
	Logo  image.Image // optional; placed in the margin
	Now   time.Time   // printed as the generation timestamp
}

// Metrics are the vertical font metrics in pixels.
type Metrics struct {
	Ascent     float64
	Descent    float64
	LineHeight float64
}

// Face measures text for one resolved font at one size.
type Face interface {
	TextWidth(s string) float64
	Metrics() Metrics
}

// FontResolver resolves a family and style at a pixel size. Implementations
// return an error carrying errors.ErrCodeFontUnavailable when neither the
// family nor the fallback can be loaded.
type FontResolver interface {
	Resolve(family string, bold, italic bool, size int) (Face, error)
}

// QREncoder turns a payload into a square matrix of dark modules, without
// quiet zone.
type QREncoder interface {
	Encode(payload string) ([][]bool, error)
}
