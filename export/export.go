// Package export drives layout and rendering over a batch of records and
// writes the results as raster images or paginated documents.
//
// Four modes exist, the product of two choices:
//
//   - raster, separate: one image per record
//   - raster, combined: all cards stacked vertically in one image, in input order
//   - document, separate: one single-page document per record
//   - document, combined: one document with one page per record, in input order
//
// Cards are rendered concurrently but always written in input order. The
// first failing record stops the batch; files written before it are kept and
// the returned *errors.BatchError says how many records completed.
package export

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"github.com/ByLCY/pulseira/binding"
	"github.com/ByLCY/pulseira/errors"
	"github.com/ByLCY/pulseira/layout"
	"github.com/ByLCY/pulseira/renderer"
)

// Format selects the output encoding.
type Format string

const (
	FormatRaster   Format = "raster"
	FormatDocument Format = "document"
)

// ParseFormat accepts the format names used on the command line.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "raster", "image", "png":
		return FormatRaster, nil
	case "document", "pdf":
		return FormatDocument, nil
	}
	return "", errors.New(errors.ErrCodeInvalidConfig, "unknown export format %q (want raster or document)", s)
}

// Default output names, without extension.
const (
	DefaultNameTemplate     = "pulseira_${index}_${card}"
	DefaultCombinedRaster   = "pulseiras_todas"
	DefaultCombinedDocument = "pulseiras"
)

// Options parameterize one export call. Font and Geometry apply to every
// record of the batch.
type Options struct {
	Format   Format
	Combined bool
	OutDir   string

	Font     layout.FontConfig
	Geometry layout.Geometry
	Logo     image.Image

	// Workers bounds concurrent rendering; zero means one.
	Workers int

	NameTemplate     string // separate outputs
	CombinedRaster   string
	CombinedDocument string

	// Now is printed on every card; zero means the time the export starts.
	Now time.Time
}

func (o *Options) setDefaults() {
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.NameTemplate == "" {
		o.NameTemplate = DefaultNameTemplate
	}
	if o.CombinedRaster == "" {
		o.CombinedRaster = DefaultCombinedRaster
	}
	if o.CombinedDocument == "" {
		o.CombinedDocument = DefaultCombinedDocument
	}
	if o.OutDir == "" {
		o.OutDir = "."
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
}

// Exporter 持有各个后端。渲染器内部缓存字体，不能跨 goroutine 共享，
// 因此每个 worker 调用一次 NewRenderer。
type Exporter struct {
	NewRenderer func() renderer.Renderer
	QR          layout.QREncoder
	Raster      renderer.RasterEncoder
	Document    renderer.DocumentEncoder
	Logger      *log.Logger
	Creator     string
}

// Report summarizes an export, complete or not.
type Report struct {
	BatchID    string
	Attempted  int
	Completed  int
	Files      []string
	Overflowed []int           // zero-based indices of cards that hit the auto-fit floor
	Warnings   []*errors.Error // one LAYOUT_OVERFLOW per overflowed card
	Elapsed    time.Duration
}

func (e *Exporter) logger() *log.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return log.New(io.Discard)
}

func (e *Exporter) validate(opts Options) error {
	if e.NewRenderer == nil || e.QR == nil {
		return fmt.Errorf("export: exporter needs a renderer and a qr encoder")
	}
	switch opts.Format {
	case FormatRaster:
		if e.Raster == nil {
			return errors.New(errors.ErrCodeInvalidConfig, "no raster encoder configured")
		}
	case FormatDocument:
		if e.Document == nil {
			return errors.New(errors.ErrCodeInvalidConfig, "no document encoder configured")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown export format %q", opts.Format)
	}
	if err := opts.Geometry.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid canvas geometry")
	}
	return nil
}

// Export writes records according to opts. The report is returned even when
// the batch fails part way.
func (e *Exporter) Export(ctx context.Context, records []layout.Record, opts Options) (*Report, error) {
	start := time.Now()
	rep := &Report{Attempted: len(records)}
	if len(records) == 0 {
		return rep, errors.New(errors.ErrCodeEmptyBatch, "no records to export")
	}
	opts.setDefaults()
	if err := e.validate(opts); err != nil {
		return rep, err
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return rep, errors.Wrap(errors.ErrCodeIO, err, "create output directory %s", opts.OutDir)
	}
	rep.BatchID = uuid.NewString()
	logger := e.logger().With("batch", rep.BatchID[:8])
	logger.Info("export started", "records", len(records), "format", opts.Format, "combined", opts.Combined, "workers", opts.Workers)

	var sink sink
	switch {
	case opts.Format == FormatRaster && opts.Combined:
		sink = e.stackedSink(opts, rep.BatchID, len(records))
	case opts.Format == FormatRaster:
		sink = e.rasterSink(opts, rep.BatchID)
	case opts.Combined:
		sink = e.documentSink(opts, rep.BatchID, len(records))
	default:
		sink = e.documentPerRecordSink(opts, rep.BatchID)
	}

	err := e.run(ctx, records, opts, func(i int, c card) error {
		if c.res.Overflow {
			w := errors.New(errors.ErrCodeLayoutOverflow, "record %d (%s) overflows at the minimum font size", i+1, records[i].CardNumber)
			rep.Overflowed = append(rep.Overflowed, i)
			rep.Warnings = append(rep.Warnings, w)
			logger.Warn("card overflows at the minimum font size", "index", i+1, "card", records[i].CardNumber, "code", w.Code)
		}
		logger.Debug("card rendered", "index", i+1, "card", records[i].CardNumber,
			"name_size", c.res.Config.NameSize, "base_size", c.res.Config.BaseSize, "attempts", c.res.Attempts)
		files, err := sink.add(i, records[i], c.img)
		rep.Files = append(rep.Files, files...)
		return err
	})
	files, ferr := sink.finish(err == nil)
	rep.Files = append(rep.Files, files...)
	rep.Completed = sink.persisted()
	rep.Elapsed = time.Since(start)

	// Completed 只统计已落盘的记录，合并输出写成功之前一律为 0。
	if be, ok := errors.AsBatch(err); ok {
		be.Completed = rep.Completed
	}
	if err == nil && ferr != nil {
		err = &errors.BatchError{Index: rep.Completed, Attempted: rep.Attempted, Completed: rep.Completed, Cause: ferr}
	} else if ferr != nil {
		logger.Error("could not finish partial output", "err", ferr)
	}
	if err != nil {
		logger.Error("export stopped", "completed", rep.Completed, "attempted", rep.Attempted, "err", err)
		return rep, err
	}
	logger.Info("export finished", "files", len(rep.Files), "overflowed", len(rep.Overflowed), "elapsed", rep.Elapsed.Round(time.Millisecond))
	return rep, nil
}

// sink receives rendered cards in input order.
type sink interface {
	add(i int, rec layout.Record, img *image.RGBA) ([]string, error)
	// finish completes the output. ok is false when the batch stopped early;
	// partial output is still flushed but not removed.
	finish(ok bool) ([]string, error)
	// persisted is the number of records whose output is on disk.
	persisted() int
}

type funcSink struct {
	addFn    func(i int, rec layout.Record, img *image.RGBA) ([]string, error)
	finishFn func(ok bool) ([]string, error)
	written  *int
}

func (s funcSink) add(i int, rec layout.Record, img *image.RGBA) ([]string, error) {
	return s.addFn(i, rec, img)
}

func (s funcSink) finish(ok bool) ([]string, error) {
	if s.finishFn == nil {
		return nil, nil
	}
	return s.finishFn(ok)
}

func (s funcSink) persisted() int { return *s.written }

func (e *Exporter) recordPath(opts Options, i int, rec layout.Record, batch, ext string) string {
	name := binding.FileName(opts.NameTemplate, binding.RecordData(i+1, rec, batch), ext)
	return filepath.Join(opts.OutDir, name)
}

func (e *Exporter) combinedPath(opts Options, tmpl, batch string, n int, ext string) string {
	name := binding.FileName(tmpl, binding.BatchData(batch, n), ext)
	return filepath.Join(opts.OutDir, name)
}

func (e *Exporter) rasterSink(opts Options, batch string) sink {
	written := 0
	return funcSink{written: &written, addFn: func(i int, rec layout.Record, img *image.RGBA) ([]string, error) {
		path := e.recordPath(opts, i, rec, batch, e.Raster.Ext())
		if err := e.Raster.WriteImage(img, path); err != nil {
			return nil, err
		}
		written++
		return []string{path}, nil
	}}
}

// stackedSink copies every card into one W x N*H image, row block i holding
// record i, and writes it once all cards are in. Nothing is persisted until
// that single write succeeds.
func (e *Exporter) stackedSink(opts Options, batch string, n int) sink {
	w, h := opts.Geometry.Width, opts.Geometry.Height
	var stacked *image.RGBA
	written := 0
	return funcSink{
		written: &written,
		addFn: func(i int, _ layout.Record, img *image.RGBA) ([]string, error) {
			if stacked == nil {
				stacked = image.NewRGBA(image.Rect(0, 0, w, n*h))
			}
			dst := image.Rect(0, i*h, w, (i+1)*h)
			draw.Draw(stacked, dst, img, img.Bounds().Min, draw.Src)
			return nil, nil
		},
		finishFn: func(ok bool) ([]string, error) {
			if !ok || stacked == nil {
				return nil, nil
			}
			path := e.combinedPath(opts, opts.CombinedRaster, batch, n, e.Raster.Ext())
			if err := e.Raster.WriteImage(stacked, path); err != nil {
				return nil, err
			}
			written = n
			return []string{path}, nil
		},
	}
}

func (e *Exporter) meta(batch string) renderer.DocumentMeta {
	creator := e.Creator
	if creator == "" {
		creator = "pulseira"
	}
	return renderer.DocumentMeta{
		Title:    "Pulseiras de identificação",
		Subject:  "batch " + batch,
		Creator:  creator,
		Keywords: []string{"pulseira", batch},
	}
}

func (e *Exporter) pageSize(opts Options) renderer.PageSize {
	w, h := opts.Geometry.PageSizeMM()
	return renderer.PageSize{WidthMM: w, HeightMM: h}
}

func (e *Exporter) documentPerRecordSink(opts Options, batch string) sink {
	size := e.pageSize(opts)
	written := 0
	return funcSink{written: &written, addFn: func(i int, rec layout.Record, img *image.RGBA) ([]string, error) {
		path := e.recordPath(opts, i, rec, batch, "pdf")
		doc, err := e.Document.Begin(path, e.meta(batch))
		if err != nil {
			return nil, err
		}
		if err := doc.AddPage(img, size); err != nil {
			doc.Close()
			os.Remove(path)
			return nil, errors.Wrap(errors.ErrCodeIO, err, "add page to %s", path)
		}
		if err := doc.Close(); err != nil {
			return nil, err
		}
		written++
		return []string{path}, nil
	}}
}

// documentSink 在第一页到来时才创建合并文档，第一条记录就失败时不会留下文件。
func (e *Exporter) documentSink(opts Options, batch string, n int) sink {
	size := e.pageSize(opts)
	path := e.combinedPath(opts, opts.CombinedDocument, batch, n, "pdf")
	var doc renderer.Document
	pages, written := 0, 0
	return funcSink{
		written: &written,
		addFn: func(i int, _ layout.Record, img *image.RGBA) ([]string, error) {
			if doc == nil {
				d, err := e.Document.Begin(path, e.meta(batch))
				if err != nil {
					return nil, err
				}
				doc = d
			}
			if err := doc.AddPage(img, size); err != nil {
				return nil, errors.Wrap(errors.ErrCodeIO, err, "add page %d to %s", i+1, path)
			}
			pages++
			return nil, nil
		},
		finishFn: func(bool) ([]string, error) {
			if doc == nil {
				return nil, nil
			}
			if err := doc.Close(); err != nil {
				return nil, err
			}
			written = pages
			return []string{path}, nil
		},
	}
}
