package canvasrenderer

import (
	"bufio"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/pulseira/errors"
	"github.com/ByLCY/pulseira/renderer"
)

// DocumentEncoder writes PDF documents with the canvas PDF backend. Each
// page holds one raster card stretched to the page size.
type DocumentEncoder struct{}

var _ renderer.DocumentEncoder = DocumentEncoder{}

type document struct {
	path   string
	file   *os.File
	buf    *bufio.Writer
	writer *pdf.PDF
	meta   renderer.DocumentMeta
	pages  int
}

// Begin creates path. The PDF writer itself is created with the first page,
// since it needs the page size.
func (DocumentEncoder) Begin(path string, meta renderer.DocumentMeta) (renderer.Document, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "create %s", path)
	}
	return &document{path: path, file: f, buf: bufio.NewWriter(f), meta: meta}, nil
}

func (d *document) AddPage(img image.Image, size renderer.PageSize) error {
	if size.WidthMM <= 0 || size.HeightMM <= 0 {
		return fmt.Errorf("invalid page size %gx%gmm", size.WidthMM, size.HeightMM)
	}
	if d.writer == nil {
		d.writer = pdf.New(d.buf, size.WidthMM, size.HeightMM, nil)
		d.writer.SetInfo(d.meta.Title, d.meta.Subject, strings.Join(d.meta.Keywords, ", "), d.meta.Author, d.meta.Creator)
	} else {
		d.writer.NewPage(size.WidthMM, size.HeightMM)
	}

	c := canvas.New(size.WidthMM, size.HeightMM)
	ctx := canvas.NewContext(c)
	dpmm := float64(img.Bounds().Dx()) / size.WidthMM
	ctx.DrawImage(0, 0, img, canvas.DPMM(dpmm))
	c.RenderTo(d.writer)
	d.pages++
	return nil
}

// Close flushes the document. A document without pages is removed.
func (d *document) Close() error {
	if d.writer == nil {
		d.file.Close()
		os.Remove(d.path)
		return errors.New(errors.ErrCodeIO, "%s: document has no pages", d.path)
	}
	defer d.file.Close()
	if err := d.writer.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write pdf %s", d.path)
	}
	if err := d.buf.Flush(); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write pdf %s", d.path)
	}
	if err := d.file.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "close %s", d.path)
	}
	return nil
}
