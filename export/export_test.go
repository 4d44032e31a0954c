package export

import (
	"bytes"
	"context"
	stderrors "errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/ByLCY/pulseira/errors"
	"github.com/ByLCY/pulseira/layout"
	"github.com/ByLCY/pulseira/qr"
	"github.com/ByLCY/pulseira/renderer"
)

type stubFace struct{ size float64 }

func (f stubFace) TextWidth(s string) float64 {
	return float64(utf8.RuneCountInString(s)) * 0.6 * f.size
}

func (f stubFace) Metrics() layout.Metrics {
	return layout.Metrics{Ascent: 0.8 * f.size, Descent: 0.2 * f.size, LineHeight: 1.2 * f.size}
}

// fakeRenderer paints the whole card in a gray level equal to the card
// number modulo 256, so tests can tell cards apart in combined outputs.
type fakeRenderer struct {
	failOn  string
	delay   time.Duration
	renders atomic.Int32
}

func (f *fakeRenderer) Resolve(family string, bold, italic bool, size int) (layout.Face, error) {
	return stubFace{size: float64(size)}, nil
}

func (f *fakeRenderer) Render(res *layout.Result, geo layout.Geometry) (*image.RGBA, error) {
	f.renders.Add(1)
	var payload string
	for _, e := range res.Elements {
		if e.Role == layout.RoleQR {
			payload = e.Payload
		}
	}
	if payload == f.failOn {
		return nil, errors.New(errors.ErrCodeFontUnavailable, "no font for card %s", payload)
	}
	// Later records finish first when rendering in parallel.
	if n, _ := strconv.Atoi(payload); f.delay > 0 && n < 500 {
		time.Sleep(f.delay)
	}
	img := image.NewRGBA(image.Rect(0, 0, geo.Width, geo.Height))
	g := shade(payload)
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = g, g, g, 0xff
	}
	return img, nil
}

func shade(card string) uint8 {
	n, _ := strconv.Atoi(card)
	return uint8(n % 256)
}

type fakeRaster struct {
	mu     sync.Mutex
	paths  []string
	images []image.Image
	failAt int // 1-based write that fails; zero never fails
}

func (f *fakeRaster) Ext() string { return "png" }

func (f *fakeRaster) WriteImage(img image.Image, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAt > 0 && len(f.paths)+1 == f.failAt {
		return errors.New(errors.ErrCodeIO, "disk full writing %s", path)
	}
	f.paths = append(f.paths, path)
	f.images = append(f.images, img)
	return nil
}

type fakeDoc struct {
	path      string
	meta      renderer.DocumentMeta
	pages     []uint8
	sizes     []renderer.PageSize
	closed    bool
	failClose bool
}

func (d *fakeDoc) AddPage(img image.Image, size renderer.PageSize) error {
	r, _, _, _ := img.At(1, 1).RGBA()
	d.pages = append(d.pages, uint8(r>>8))
	d.sizes = append(d.sizes, size)
	return nil
}

func (d *fakeDoc) Close() error {
	d.closed = true
	if d.failClose {
		return errors.New(errors.ErrCodeIO, "disk full writing %s", d.path)
	}
	return nil
}

type fakeDocuments struct {
	docs      []*fakeDoc
	failClose bool
}

func (f *fakeDocuments) Begin(path string, meta renderer.DocumentMeta) (renderer.Document, error) {
	d := &fakeDoc{path: path, meta: meta, failClose: f.failClose}
	f.docs = append(f.docs, d)
	return d, nil
}

func records(cards ...string) []layout.Record {
	out := make([]layout.Record, len(cards))
	for i, c := range cards {
		out[i] = layout.Record{CardNumber: c, Name: "Paciente " + c, Sex: "F"}
	}
	return out
}

type fixture struct {
	exp  *Exporter
	rend *fakeRenderer
	ras  *fakeRaster
	docs *fakeDocuments
	logs *bytes.Buffer
}

func newFixture() *fixture {
	f := &fixture{rend: &fakeRenderer{}, ras: &fakeRaster{}, docs: &fakeDocuments{}, logs: &bytes.Buffer{}}
	f.exp = &Exporter{
		NewRenderer: func() renderer.Renderer { return f.rend },
		QR:          qr.NewEncoder(),
		Raster:      f.ras,
		Document:    f.docs,
		Logger:      log.New(f.logs),
	}
	return f
}

func options(t *testing.T, format Format, combined bool) Options {
	return Options{
		Format:   format,
		Combined: combined,
		OutDir:   filepath.Join(t.TempDir(), "out"),
		Font:     layout.DefaultFontConfig(),
		Geometry: layout.DefaultGeometry(),
		Workers:  4,
		Now:      time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC),
	}
}

func TestEmptyBatch(t *testing.T) {
	for _, format := range []Format{FormatRaster, FormatDocument} {
		for _, combined := range []bool{false, true} {
			f := newFixture()
			opts := options(t, format, combined)
			rep, err := f.exp.Export(context.Background(), nil, opts)
			if !errors.Is(err, errors.ErrCodeEmptyBatch) {
				t.Fatalf("%s/%v: err = %v, want EMPTY_BATCH", format, combined, err)
			}
			if rep.Attempted != 0 || len(rep.Files) != 0 {
				t.Errorf("report = %+v", rep)
			}
			if _, err := os.Stat(opts.OutDir); !os.IsNotExist(err) {
				t.Errorf("output directory created for an empty batch")
			}
			if len(f.docs.docs) != 0 || len(f.ras.paths) != 0 {
				t.Errorf("encoders called for an empty batch")
			}
		}
	}
}

func TestRasterSeparate(t *testing.T) {
	f := newFixture()
	opts := options(t, FormatRaster, false)
	rep, err := f.exp.Export(context.Background(), records("111", "22/2", "333"), opts)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		filepath.Join(opts.OutDir, "pulseira_1_111.png"),
		filepath.Join(opts.OutDir, "pulseira_2_22_2.png"),
		filepath.Join(opts.OutDir, "pulseira_3_333.png"),
	}
	if diff := cmp.Diff(want, f.ras.paths); diff != "" {
		t.Fatalf("written files (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, rep.Files); diff != "" {
		t.Fatalf("reported files (-want +got):\n%s", diff)
	}
	if rep.Completed != 3 || rep.Attempted != 3 || rep.BatchID == "" {
		t.Fatalf("report = %+v", rep)
	}
}

func TestRasterCombinedKeepsOrder(t *testing.T) {
	f := newFixture()
	f.rend.delay = 20 * time.Millisecond
	opts := options(t, FormatRaster, true)
	cards := []string{"100", "900", "200", "800", "300"}
	rep, err := f.exp.Export(context.Background(), records(cards...), opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.ras.images) != 1 {
		t.Fatalf("wrote %d images, want 1", len(f.ras.images))
	}
	if want := filepath.Join(opts.OutDir, "pulseiras_todas.png"); f.ras.paths[0] != want || rep.Files[0] != want {
		t.Fatalf("combined path = %s", f.ras.paths[0])
	}
	img := f.ras.images[0]
	w, h := opts.Geometry.Width, opts.Geometry.Height
	if b := img.Bounds(); b.Dx() != w || b.Dy() != len(cards)*h {
		t.Fatalf("stacked bounds = %v, want %dx%d", b, w, len(cards)*h)
	}
	for i, c := range cards {
		for _, y := range []int{i * h, i*h + h/2, (i+1)*h - 1} {
			got := color.GrayModel.Convert(img.At(w/2, y)).(color.Gray).Y
			if got != shade(c) {
				t.Fatalf("row %d (record %d) has shade %d, want %d", y, i, got, shade(c))
			}
		}
	}
}

func TestDocumentCombined(t *testing.T) {
	f := newFixture()
	f.rend.delay = 10 * time.Millisecond
	opts := options(t, FormatDocument, true)
	cards := []string{"10", "700", "30", "600"}
	rep, err := f.exp.Export(context.Background(), records(cards...), opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.docs.docs) != 1 {
		t.Fatalf("opened %d documents, want 1", len(f.docs.docs))
	}
	doc := f.docs.docs[0]
	if doc.path != filepath.Join(opts.OutDir, "pulseiras.pdf") || !doc.closed {
		t.Fatalf("document = %s closed=%v", doc.path, doc.closed)
	}
	var want []uint8
	for _, c := range cards {
		want = append(want, shade(c))
	}
	if diff := cmp.Diff(want, doc.pages); diff != "" {
		t.Fatalf("page order (-want +got):\n%s", diff)
	}
	for _, s := range doc.sizes {
		if s.WidthMM < 294 || s.WidthMM > 296 || s.HeightMM < 19.9 || s.HeightMM > 20.1 {
			t.Fatalf("page size = %+v", s)
		}
	}
	if !strings.Contains(doc.meta.Subject, rep.BatchID) {
		t.Errorf("subject %q lacks batch id %s", doc.meta.Subject, rep.BatchID)
	}
}

func TestDocumentSeparate(t *testing.T) {
	f := newFixture()
	opts := options(t, FormatDocument, false)
	rep, err := f.exp.Export(context.Background(), records("1", "2"), opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.docs.docs) != 2 || len(rep.Files) != 2 {
		t.Fatalf("documents = %d, files = %v", len(f.docs.docs), rep.Files)
	}
	for i, d := range f.docs.docs {
		if len(d.pages) != 1 || !d.closed {
			t.Errorf("document %d has %d pages, closed=%v", i, len(d.pages), d.closed)
		}
		if want := filepath.Join(opts.OutDir, "pulseira_"+strconv.Itoa(i+1)+"_"+strconv.Itoa(i+1)+".pdf"); d.path != want {
			t.Errorf("document %d path = %s, want %s", i, d.path, want)
		}
	}
}

func TestRenderFailureStopsBatch(t *testing.T) {
	for _, workers := range []int{1, 4} {
		f := newFixture()
		f.rend.failOn = "333"
		opts := options(t, FormatRaster, false)
		opts.Workers = workers
		rep, err := f.exp.Export(context.Background(), records("111", "222", "333", "444", "555"), opts)
		be, ok := errors.AsBatch(err)
		if !ok {
			t.Fatalf("workers=%d: err = %v, want a batch error", workers, err)
		}
		if be.Index != 2 || be.Completed != 2 || be.Attempted != 5 {
			t.Fatalf("workers=%d: batch error = %+v", workers, be)
		}
		if !errors.Is(err, errors.ErrCodeFontUnavailable) {
			t.Fatalf("cause lost: %v", err)
		}
		if rep.Completed != 2 || len(f.ras.paths) != 2 || len(rep.Files) != 2 {
			t.Fatalf("workers=%d: completed=%d written=%v", workers, rep.Completed, f.ras.paths)
		}
	}
}

func TestWriteFailureStopsBatch(t *testing.T) {
	f := newFixture()
	f.ras.failAt = 2
	opts := options(t, FormatRaster, false)
	rep, err := f.exp.Export(context.Background(), records("1", "2", "3"), opts)
	be, ok := errors.AsBatch(err)
	if !ok || be.Index != 1 || !errors.Is(err, errors.ErrCodeIO) {
		t.Fatalf("err = %v", err)
	}
	if rep.Completed != 1 {
		t.Fatalf("completed = %d, want 1", rep.Completed)
	}
	if !strings.Contains(err.Error(), "record 2 failed (1/3 completed)") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestCombinedDocumentFailureKeepsPartialPages(t *testing.T) {
	f := newFixture()
	f.rend.failOn = "3"
	opts := options(t, FormatDocument, true)
	rep, err := f.exp.Export(context.Background(), records("1", "2", "3"), opts)
	be, ok := errors.AsBatch(err)
	if !ok {
		t.Fatalf("err = %v", err)
	}
	doc := f.docs.docs[0]
	if len(doc.pages) != 2 || !doc.closed || len(rep.Files) != 1 {
		t.Fatalf("partial document: pages=%d closed=%v files=%v", len(doc.pages), doc.closed, rep.Files)
	}
	if be.Index != 2 || be.Completed != 2 || rep.Completed != 2 {
		t.Fatalf("batch error = %+v, report completed = %d", be, rep.Completed)
	}
}

func TestCombinedRasterWriteFailure(t *testing.T) {
	f := newFixture()
	f.ras.failAt = 1
	opts := options(t, FormatRaster, true)
	rep, err := f.exp.Export(context.Background(), records("1", "2", "3"), opts)
	be, ok := errors.AsBatch(err)
	if !ok {
		t.Fatalf("err = %v, want a batch error", err)
	}
	if !errors.Is(err, errors.ErrCodeIO) {
		t.Fatalf("cause lost: %v", err)
	}
	if be.Index != 0 || be.Completed != 0 || be.Attempted != 3 {
		t.Fatalf("batch error = %+v", be)
	}
	if rep.Completed != 0 || len(rep.Files) != 0 {
		t.Fatalf("report = %+v", rep)
	}
}

func TestCombinedRasterFailureWritesNothing(t *testing.T) {
	f := newFixture()
	f.rend.failOn = "3"
	opts := options(t, FormatRaster, true)
	rep, err := f.exp.Export(context.Background(), records("1", "2", "3"), opts)
	be, ok := errors.AsBatch(err)
	if !ok {
		t.Fatalf("err = %v, want a batch error", err)
	}
	if be.Index != 2 || be.Completed != 0 || rep.Completed != 0 {
		t.Fatalf("batch error = %+v, report completed = %d", be, rep.Completed)
	}
	if len(f.ras.paths) != 0 || len(rep.Files) != 0 {
		t.Fatalf("written = %v, files = %v", f.ras.paths, rep.Files)
	}
	if !strings.Contains(err.Error(), "record 3 failed (0/3 completed)") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestCombinedDocumentCloseFailure(t *testing.T) {
	f := newFixture()
	f.docs.failClose = true
	opts := options(t, FormatDocument, true)
	rep, err := f.exp.Export(context.Background(), records("1", "2"), opts)
	be, ok := errors.AsBatch(err)
	if !ok || !errors.Is(err, errors.ErrCodeIO) {
		t.Fatalf("err = %v", err)
	}
	if be.Completed != 0 || rep.Completed != 0 || len(rep.Files) != 0 {
		t.Fatalf("batch error = %+v, report = %+v", be, rep)
	}
}

func TestOverflowIsReported(t *testing.T) {
	f := newFixture()
	opts := options(t, FormatRaster, false)
	opts.Font.AutoFit = true
	recs := records("1", "2")
	recs[1].Name = strings.Repeat("W", 200)
	rep, err := f.exp.Export(context.Background(), recs, opts)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{1}, rep.Overflowed); diff != "" {
		t.Fatalf("overflowed (-want +got):\n%s", diff)
	}
	if len(rep.Warnings) != 1 || !errors.Is(rep.Warnings[0], errors.ErrCodeLayoutOverflow) {
		t.Fatalf("warnings = %v", rep.Warnings)
	}
	if !strings.Contains(rep.Warnings[0].Error(), "record 2") {
		t.Errorf("warning = %v", rep.Warnings[0])
	}
	if !strings.Contains(f.logs.String(), "overflows") {
		t.Errorf("no overflow warning logged:\n%s", f.logs.String())
	}
}

func TestCancelledContext(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.exp.Export(ctx, records("1", "2"), options(t, FormatRaster, false))
	if !stderrors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"raster": FormatRaster, "png": FormatRaster, "pdf": FormatDocument, "document": FormatDocument} {
		if got, err := ParseFormat(in); err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("svg"); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("svg accepted: %v", err)
	}
}
