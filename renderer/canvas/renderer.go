package canvasrenderer

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"

	"github.com/ByLCY/pulseira/errors"
	"github.com/ByLCY/pulseira/fonts"
	"github.com/ByLCY/pulseira/layout"
	"github.com/ByLCY/pulseira/renderer"
)

// Renderer draws cards via github.com/tdewolff/canvas. One canvas unit is
// one pixel, so a font of n pixels is created at n*MmToPt points.
type Renderer struct {
	fontMu   sync.Mutex
	families map[familyKey]*canvas.FontFamily
}

var (
	_ renderer.Renderer   = (*Renderer)(nil)
	_ layout.FontResolver = (*Renderer)(nil)
)

type familyKey struct {
	family string
	style  fonts.Style
}

// NewRenderer returns a renderer with an empty font cache.
func NewRenderer() *Renderer {
	return &Renderer{families: map[familyKey]*canvas.FontFamily{}}
}

// Resolve implements layout.FontResolver. Unknown families fall back to the
// built-in Go font with the same style.
func (r *Renderer) Resolve(family string, bold, italic bool, size int) (layout.Face, error) {
	face, err := r.fontFace(layout.FontSpec{Family: family, Size: size, Bold: bold, Italic: italic})
	if err != nil {
		return nil, err
	}
	return measure{face}, nil
}

type measure struct{ face *canvas.FontFace }

func (m measure) TextWidth(s string) float64 { return m.face.TextWidth(s) }

func (m measure) Metrics() layout.Metrics {
	fm := m.face.Metrics()
	return layout.Metrics{
		Ascent:     math.Abs(fm.Ascent),
		Descent:    math.Abs(fm.Descent),
		LineHeight: fm.LineHeight,
	}
}

// Canvas 在卡片大小的新画布上绘制 res。布局以左上角为原点，canvas 以左下角为原点，
// 这里统一翻转 y。
func (r *Renderer) Canvas(res *layout.Result, geo layout.Geometry) (*canvas.Canvas, error) {
	if res == nil {
		return nil, fmt.Errorf("nothing to render")
	}
	w, h := float64(geo.Width), float64(geo.Height)
	c := canvas.New(w, h)
	ctx := canvas.NewContext(c)

	ctx.SetFillColor(canvas.White)
	ctx.SetStrokeColor(color.RGBA{0, 0, 0, 0})
	ctx.DrawPath(0, 0, canvas.Rectangle(w, h))

	// 按元素顺序绘制，边框最后画在最上层
	for _, e := range res.Elements {
		switch e.Kind {
		case layout.KindText:
			if e.Text == "" {
				continue
			}
			face, err := r.fontFace(e.Font)
			if err != nil {
				return nil, err
			}
			// 基线 y 翻转到 canvas 坐标
			ctx.DrawText(e.Box.X, h-e.Baseline, canvas.NewTextLine(face, e.Text, canvas.Left))
		case layout.KindImage:
			if e.Image == nil || e.Box.W <= 0 || e.Box.H <= 0 {
				continue
			}
			dpmm := float64(e.Image.Bounds().Dx()) / e.Box.W
			ctx.DrawImage(e.Box.X, h-e.Box.Bottom(), e.Image, canvas.DPMM(dpmm))
		case layout.KindRect:
			ctx.SetFillColor(color.RGBA{0, 0, 0, 0})
			ctx.SetStrokeColor(canvas.Black)
			ctx.SetStrokeWidth(e.StrokeWidth)
			ctx.DrawPath(e.Box.X, h-e.Box.Bottom(), canvas.Rectangle(e.Box.W, e.Box.H))
		}
	}
	return c, nil
}

// Render 以每个画布单位一个像素栅格化 res，超出画布的部分被裁掉。
func (r *Renderer) Render(res *layout.Result, geo layout.Geometry) (*image.RGBA, error) {
	c, err := r.Canvas(res, geo)
	if err != nil {
		return nil, err
	}
	return rasterizer.Draw(c, canvas.DPMM(1.0), canvas.DefaultColorSpace), nil
}

func (r *Renderer) fontFace(spec layout.FontSpec) (*canvas.FontFace, error) {
	style := fonts.Style{Bold: spec.Bold, Italic: spec.Italic}
	family, err := r.ensureFontFamily(spec.Family, style)
	if err != nil {
		return nil, err
	}
	return family.Face(toPt(float64(spec.Size)), canvas.Black, canvasStyle(style), canvas.FontNormal), nil
}

func (r *Renderer) ensureFontFamily(name string, style fonts.Style) (*canvas.FontFamily, error) {
	key := familyKey{family: name, style: style}
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if family, ok := r.families[key]; ok {
		return family, nil
	}
	family, err := loadFamily(name, style)
	if err != nil {
		fallback, fbErr := loadFamily(fonts.Fallback, style)
		if fbErr != nil {
			return nil, errors.Wrap(errors.ErrCodeFontUnavailable, err, "font %q (%s)", name, style)
		}
		family = fallback
	}
	r.families[key] = family
	return family, nil
}

func loadFamily(name string, style fonts.Style) (*canvas.FontFamily, error) {
	data, err := fonts.Load(name, style)
	if err != nil {
		return nil, err
	}
	family := canvas.NewFontFamily(name)
	if err := family.LoadFont(data, 0, canvasStyle(style)); err != nil {
		return nil, fmt.Errorf("load font %q: %w", name, err)
	}
	return family, nil
}

func canvasStyle(s fonts.Style) canvas.FontStyle {
	style := canvas.FontRegular
	if s.Bold {
		style = canvas.FontBold
	}
	if s.Italic {
		style |= canvas.FontItalic
	}
	return style
}

// toPt converts a size in canvas units (mm to the canvas, pixels to us) to
// points.
func toPt(mm float64) float64 { return mm * layout.MmToPt }
