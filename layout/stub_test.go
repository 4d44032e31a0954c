package layout

import (
	"image"
	"time"
	"unicode/utf8"

	"github.com/ByLCY/pulseira/errors"
)

// stubFace is a fixed-pitch face: every rune is 0.6em wide, ascent 0.8em,
// descent 0.2em, line height 1.2em. It keeps layout tests independent of
// real font files.
type stubFace struct{ size float64 }

func (f stubFace) TextWidth(s string) float64 {
	return float64(utf8.RuneCountInString(s)) * 0.6 * f.size
}

func (f stubFace) Metrics() Metrics {
	return Metrics{Ascent: 0.8 * f.size, Descent: 0.2 * f.size, LineHeight: 1.2 * f.size}
}

type stubFonts struct {
	missing string
	calls   int
}

func (s *stubFonts) Resolve(family string, bold, italic bool, size int) (Face, error) {
	s.calls++
	if family == s.missing {
		return nil, errors.New(errors.ErrCodeFontUnavailable, "font %q not found", family)
	}
	return stubFace{size: float64(size)}, nil
}

// stubQR returns a 21x21 checkerboard regardless of the payload.
type stubQR struct{ payloads []string }

func (s *stubQR) Encode(payload string) ([][]bool, error) {
	s.payloads = append(s.payloads, payload)
	m := make([][]bool, 21)
	for y := range m {
		m[y] = make([]bool, 21)
		for x := range m[y] {
			m[y][x] = (x+y)%2 == 0
		}
	}
	return m, nil
}

var fixedNow = time.Date(2026, 10, 16, 9, 5, 3, 0, time.UTC)

func testOptions() BuildOptions {
	return BuildOptions{Fonts: &stubFonts{}, QR: &stubQR{}, Now: fixedNow}
}

func sampleRecord() Record {
	return Record{
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

func solidImage(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = 0x20
		img.Pix[i+1] = 0x60
		img.Pix[i+2] = 0xa0
		img.Pix[i+3] = 0xff
	}
	return img
}

func roles(elems []Element) []Role {
	out := make([]Role, len(elems))
	for i, e := range elems {
		out[i] = e.Role
	}
	return out
}

func find(elems []Element, role Role) (Element, bool) {
	for _, e := range elems {
		if e.Role == role {
			return e, true
		}
	}
	return Element{}, false
}

func approx(a, b float64) bool {
	d := a - b
	return d < 1e-6 && d > -1e-6
}

