// Package renderer defines the drawing and encoding backends the exporter
// drives. Implementations live in the sub-packages.
package renderer

import (
	"image"

	"github.com/ByLCY/pulseira/layout"
)

// Renderer measures text for the layout engine and draws a laid-out card.
// One Renderer is not required to be safe for concurrent use; the exporter
// creates one per worker.
type Renderer interface {
	layout.FontResolver
	// Render returns a raster of exactly geo.Width x geo.Height pixels.
	Render(res *layout.Result, geo layout.Geometry) (*image.RGBA, error)
}

// RasterEncoder writes a single image file.
type RasterEncoder interface {
	WriteImage(img image.Image, path string) error
	Ext() string
}

// PageSize is the physical size of a document page.
type PageSize struct {
	WidthMM  float64
	HeightMM float64
}

// DocumentMeta is written into the document information dictionary.
type DocumentMeta struct {
	Title    string
	Subject  string
	Author   string
	Creator  string
	Keywords []string
}

// DocumentEncoder opens paginated documents.
type DocumentEncoder interface {
	Begin(path string, meta DocumentMeta) (Document, error)
}

// Document receives one rendered card per page. Close flushes it to disk.
type Document interface {
	AddPage(img image.Image, size PageSize) error
	Close() error
}
