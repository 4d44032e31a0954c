// Package raster encodes rendered cards as image files.
package raster

import (
	"bufio"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/ByLCY/pulseira/errors"
	"github.com/ByLCY/pulseira/renderer"
)

// Format is a raster file format.
type Format string

const (
	PNG  Format = "png"
	TIFF Format = "tiff"
	BMP  Format = "bmp"
)

// Formats lists the supported formats, default first.
var Formats = []Format{PNG, TIFF, BMP}

// Encoder writes images in one format.
type Encoder struct {
	Format Format
}

var _ renderer.RasterEncoder = (*Encoder)(nil)

// ByName returns the encoder for a format name or file extension.
func ByName(name string) (*Encoder, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), ".") {
	case "", "png":
		return &Encoder{Format: PNG}, nil
	case "tif", "tiff":
		return &Encoder{Format: TIFF}, nil
	case "bmp":
		return &Encoder{Format: BMP}, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown raster format %q (want png, tiff or bmp)", name)
}

// Ext returns the file extension without the dot.
func (e *Encoder) Ext() string {
	return string(e.Format)
}

// Encode writes img to w.
func (e *Encoder) Encode(w io.Writer, img image.Image) error {
	switch e.Format {
	case PNG, "":
		enc := png.Encoder{CompressionLevel: png.BestSpeed}
		return enc.Encode(w, img)
	case TIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	case BMP:
		return bmp.Encode(w, img)
	}
	return fmt.Errorf("unsupported raster format %q", e.Format)
}

// WriteImage encodes img into path, replacing any existing file.
func (e *Encoder) WriteImage(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "create %s", path)
	}
	w := bufio.NewWriter(f)
	if err := e.Encode(w, img); err != nil {
		f.Close()
		return errors.Wrap(errors.ErrCodeIO, err, "encode %s", path)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return errors.Wrap(errors.ErrCodeIO, err, "write %s", path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "close %s", path)
	}
	return nil
}
