// Package fpdfrenderer writes card documents with codeberg.org/go-pdf/fpdf.
package fpdfrenderer

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"

	"codeberg.org/go-pdf/fpdf"

	"github.com/ByLCY/pulseira/errors"
	"github.com/ByLCY/pulseira/renderer"
)

// DocumentEncoder embeds each card as a PNG image filling its page.
type DocumentEncoder struct{}

var _ renderer.DocumentEncoder = DocumentEncoder{}

type document struct {
	path  string
	file  *os.File
	meta  renderer.DocumentMeta
	pdf   *fpdf.Fpdf
	pages int
}

// Begin 立即创建目标文件，路径不可写时在渲染任何页面之前就报错。
// fpdf 本身要到 Close 才输出整个文档。
func (DocumentEncoder) Begin(path string, meta renderer.DocumentMeta) (renderer.Document, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "create %s", path)
	}
	return &document{path: path, file: f, meta: meta}, nil
}

func (d *document) init(size fpdf.SizeType) {
	d.pdf = fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           size,
	})
	d.pdf.SetMargins(0, 0, 0)
	d.pdf.SetAutoPageBreak(false, 0)
	d.pdf.SetTitle(d.meta.Title, true)
	d.pdf.SetSubject(d.meta.Subject, true)
	d.pdf.SetAuthor(d.meta.Author, true)
	d.pdf.SetCreator(d.meta.Creator, true)
	d.pdf.SetKeywords(strings.Join(d.meta.Keywords, " "), true)
}

func (d *document) AddPage(img image.Image, size renderer.PageSize) error {
	if size.WidthMM <= 0 || size.HeightMM <= 0 {
		return fmt.Errorf("invalid page size %gx%gmm", size.WidthMM, size.HeightMM)
	}
	st := fpdf.SizeType{Wd: size.WidthMM, Ht: size.HeightMM}
	if d.pdf == nil {
		d.init(st)
	}
	d.pdf.AddPageFormat("P", st)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode page %d: %w", d.pages+1, err)
	}
	name := fmt.Sprintf("card-%d", d.pages+1)
	opt := fpdf.ImageOptions{ImageType: "PNG"}
	d.pdf.RegisterImageOptionsReader(name, opt, &buf)
	d.pdf.ImageOptions(name, 0, 0, size.WidthMM, size.HeightMM, false, opt, 0, "")
	d.pages++
	if err := d.pdf.Error(); err != nil {
		return fmt.Errorf("add page %d: %w", d.pages, err)
	}
	return nil
}

// Close writes the document. A document without pages is removed.
func (d *document) Close() error {
	if d.pdf == nil {
		d.file.Close()
		os.Remove(d.path)
		return errors.New(errors.ErrCodeIO, "%s: document has no pages", d.path)
	}
	defer d.file.Close()
	w := bufio.NewWriter(d.file)
	if err := d.pdf.Output(w); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write pdf %s", d.path)
	}
	if err := w.Flush(); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write pdf %s", d.path)
	}
	if err := d.file.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "close %s", d.path)
	}
	return nil
}
