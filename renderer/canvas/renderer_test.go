package canvasrenderer

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"testing"
	"time"

	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"

	"github.com/ByLCY/pulseira/layout"
	"github.com/ByLCY/pulseira/qr"
)

func buildCard(t *testing.T, r *Renderer, rec layout.Record) (layout.Result, layout.Geometry) {
	t.Helper()
	geo := layout.DefaultGeometry()
	res, err := layout.Resolve(rec, layout.DefaultFontConfig(), geo, layout.BuildOptions{
		Fonts: r,
		QR:    qr.NewEncoder(),
		Now:   time.Date(2026, 10, 16, 9, 5, 3, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	return res, geo
}

func sample() layout.Record {
	return layout.Record{
		CardNumber:    "123456",
		Name:          "João Silva",
		BirthDate:     "01/01/1980",
		MotherName:    "Maria Silva",
		Insurance:     "SUS",
		Physician:     "Dr. Carlos",
		Sex:           "M",
		AdmissionDate: "15/10/2026",
		AdmissionTime: "08:30",
	}
}

func isDark(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r < 0x4000 && g < 0x4000 && b < 0x4000
}

func isWhite(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r > 0xf000 && g > 0xf000 && b > 0xf000
}

func darkPixels(img image.Image, box layout.Rect) int {
	n := 0
	for y := int(box.Y); y < int(box.Bottom()); y++ {
		for x := int(box.X); x < int(box.Right()); x++ {
			if isDark(img.At(x, y)) {
				n++
			}
		}
	}
	return n
}

func TestRenderCard(t *testing.T) {
	r := NewRenderer()
	res, geo := buildCard(t, r, sample())
	img, err := r.Render(&res, geo)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 3484 || b.Dy() != 236 {
		t.Fatalf("raster = %v, want 3484x236", b)
	}
	for _, p := range []image.Point{{0, 0}, {3483, 235}, {200, 118}, {3000, 10}} {
		if !isWhite(img.At(p.X, p.Y)) {
			t.Errorf("background at %v = %v, want white", p, img.At(p.X, p.Y))
		}
	}
	// The border is a 3px stroke centered on the printable edge.
	if !isDark(img.At(413, 120)) || !isDark(img.At(1000, 6)) {
		t.Errorf("printable border missing")
	}
	for _, e := range res.Elements {
		if e.Kind != layout.KindText || e.Text == "" {
			continue
		}
		if darkPixels(img, e.Box) == 0 {
			t.Errorf("%s %q left no ink in %+v", e.Role, e.Text, e.Box)
		}
	}
}

// TestRenderedQRDecodes decodes the symbol alone, cropped from the card and
// given a full quiet zone, so a failure here points at the QR drawing.
func TestRenderedQRDecodes(t *testing.T) {
	r := NewRenderer()
	for _, card := range []string{"123456", "987654", "00042"} {
		rec := sample()
		rec.CardNumber = card
		res, geo := buildCard(t, r, rec)
		img, err := r.Render(&res, geo)
		if err != nil {
			t.Fatal(err)
		}
		box := geo.QRBox()
		src := img.SubImage(image.Rect(int(box.X), int(box.Y), int(box.Right()), int(box.Bottom())))

		const quiet = 40
		padded := image.NewRGBA(image.Rect(0, 0, int(box.W)+2*quiet, int(box.H)+2*quiet))
		draw.Draw(padded, padded.Bounds(), image.White, image.Point{}, draw.Src)
		draw.Draw(padded, image.Rect(quiet, quiet, quiet+int(box.W), quiet+int(box.H)), src, src.Bounds().Min, draw.Src)

		bmp, err := gozxing.NewBinaryBitmapFromImage(padded)
		if err != nil {
			t.Fatal(err)
		}
		got, err := zxqr.NewQRCodeReader().Decode(bmp, nil)
		if err != nil {
			t.Fatalf("decode %s: %v", card, err)
		}
		if got.GetText() != card {
			t.Fatalf("decoded %q, want %q", got.GetText(), card)
		}
	}
}

// TestCardQRDecodes decodes the printable area exactly as printed: the QR
// keeps only the card padding as quiet zone, with the border and the text
// around it.
func TestCardQRDecodes(t *testing.T) {
	r := NewRenderer()
	hints := map[gozxing.DecodeHintType]interface{}{gozxing.DecodeHintType_TRY_HARDER: true}
	for _, card := range []string{"123456", "987654"} {
		rec := sample()
		rec.CardNumber = card
		res, geo := buildCard(t, r, rec)
		img, err := r.Render(&res, geo)
		if err != nil {
			t.Fatal(err)
		}
		p := geo.Printable
		printable := img.SubImage(image.Rect(int(p.X), int(p.Y), int(p.Right()), int(p.Bottom())))

		bmp, err := gozxing.NewBinaryBitmapFromImage(printable)
		if err != nil {
			t.Fatal(err)
		}
		got, err := zxqr.NewQRCodeReader().Decode(bmp, hints)
		if err != nil {
			t.Fatalf("decode %s from the card: %v", card, err)
		}
		if got.GetText() != card {
			t.Fatalf("decoded %q, want %q", got.GetText(), card)
		}
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	r := NewRenderer()
	res, geo := buildCard(t, r, sample())
	a, err := r.Render(&res, geo)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewRenderer().Render(&res, geo)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Fatal("two renders of the same layout differ")
	}
}

func TestRenderClipsOutOfBounds(t *testing.T) {
	geo := layout.DefaultGeometry()
	res := layout.Result{Elements: []layout.Element{
		{Kind: layout.KindText, Text: "fora do cartão", Font: layout.FontSpec{Family: "Go", Size: 40},
			Box: layout.Rect{X: 3400, Y: 200, W: 300, H: 40}, Baseline: 232},
		{Kind: layout.KindImage, Image: image.NewGray(image.Rect(0, 0, 50, 50)),
			Box: layout.Rect{X: -20, Y: -20, W: 50, H: 50}},
	}}
	img, err := NewRenderer().Render(&res, geo)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != geo.Width || b.Dy() != geo.Height {
		t.Fatalf("raster = %v", b)
	}
	if !isDark(img.At(5, 5)) {
		t.Errorf("clipped image not drawn at the canvas corner")
	}
}

func TestResolveMetrics(t *testing.T) {
	r := NewRenderer()
	face, err := r.Resolve("Go", true, false, 50)
	if err != nil {
		t.Fatal(err)
	}
	m := face.Metrics()
	if m.Ascent < 30 || m.Ascent > 50 || m.Descent <= 0 || m.Descent > 20 {
		t.Errorf("metrics at 50px = %+v", m)
	}
	if m.LineHeight < m.Ascent+m.Descent-1 {
		t.Errorf("line height %v below ink height %v", m.LineHeight, m.Ascent+m.Descent)
	}
	w := face.TextWidth("João Silva")
	if w <= 100 || w >= 500 {
		t.Errorf("width of name at 50px = %v", w)
	}
	if wide, _ := r.Resolve("Go", true, false, 100); wide.TextWidth("João Silva") <= w*1.9 {
		t.Errorf("width does not scale with size")
	}
}

func TestResolveFallsBack(t *testing.T) {
	r := NewRenderer()
	face, err := r.Resolve("Definitely Not Installed", false, true, 20)
	if err != nil {
		t.Fatalf("fallback failed: %v", err)
	}
	if face.TextWidth("abc") <= 0 {
		t.Fatalf("fallback face measures nothing")
	}
}
