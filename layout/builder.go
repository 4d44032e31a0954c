package layout

import (
	"fmt"
	"image"
	"strings"

	"github.com/ByLCY/pulseira/errors"
)

// artwork 保存与字号无关的图像（二维码、logo），自动缩放重试时无需重新编码。
type artwork struct {
	qr      image.Image
	logo    image.Image
	logoBox Rect
}

// Build places every element of one card at exactly the sizes in cfg. The
// result reports whether the fit predicate holds but never shrinks anything;
// see Resolve for auto-fit.
func Build(rec Record, cfg FontConfig, geo Geometry, opts BuildOptions) (Result, error) {
	art, err := prepare(rec, cfg, geo, opts)
	if err != nil {
		return Result{}, err
	}
	return build(rec, cfg, geo, opts, art)
}

func prepare(rec Record, cfg FontConfig, geo Geometry, opts BuildOptions) (artwork, error) {
	if opts.Fonts == nil {
		return artwork{}, fmt.Errorf("layout: missing font resolver")
	}
	if opts.QR == nil {
		return artwork{}, fmt.Errorf("layout: missing qr encoder")
	}
	if strings.TrimSpace(rec.CardNumber) == "" {
		return artwork{}, errors.New(errors.ErrCodeInvalidInput, "record has no card number")
	}
	if strings.TrimSpace(rec.Name) == "" {
		return artwork{}, errors.New(errors.ErrCodeInvalidInput, "record %s has no patient name", rec.CardNumber)
	}
	if cfg.BaseSize <= 0 || cfg.NameSize <= 0 {
		return artwork{}, errors.New(errors.ErrCodeInvalidConfig, "font sizes must be positive, got base=%d name=%d", cfg.BaseSize, cfg.NameSize)
	}
	if err := geo.Validate(); err != nil {
		return artwork{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid canvas geometry")
	}

	var art artwork
	matrix, err := opts.QR.Encode(rec.CardNumber)
	if err != nil {
		return artwork{}, fmt.Errorf("encode qr for %s: %w", rec.CardNumber, err)
	}
	if art.qr, err = QRImage(matrix, int(geo.QRSize)); err != nil {
		return artwork{}, err
	}
	if opts.Logo != nil {
		if art.logo, art.logoBox, err = FitLogo(opts.Logo, geo.Margin(), geo.LogoGap); err != nil {
			return artwork{}, err
		}
	}
	return art, nil
}

// ExtraSize is the size of the highlighted free text: halfway between base
// and name, always above base and below name when there is room.
func ExtraSize(base, name int) int {
	s := base + (name-base+1)/2
	if s <= base {
		s = base + 1
	}
	if name > base+1 && s >= name {
		s = name - 1
	}
	return s
}

type face struct {
	Face
	spec FontSpec
	m    Metrics
}

func (f face) height() float64 { return f.m.Ascent + f.m.Descent }

type builder struct {
	cfg   FontConfig
	fonts FontResolver
	cache map[FontSpec]face
	elems []Element
}

func (b *builder) face(size int, bold bool) (face, error) {
	spec := FontSpec{Family: b.cfg.Family, Size: size, Bold: bold, Italic: b.cfg.Italic}
	if f, ok := b.cache[spec]; ok {
		return f, nil
	}
	ff, err := b.fonts.Resolve(spec.Family, spec.Bold, spec.Italic, spec.Size)
	if err != nil {
		return face{}, err
	}
	f := face{Face: ff, spec: spec, m: ff.Metrics()}
	b.cache[spec] = f
	return f, nil
}

// text 用 f 把 s 放进 slot：slot 高度取字体的墨迹高度，box 为实测宽度并按对齐方式放在 slot 内。
func (b *builder) text(role Role, field FieldKey, s string, slot Rect, f face, align string) {
	slot.H = f.height()
	w := f.TextWidth(s)
	b.elems = append(b.elems, Element{
		Kind:     KindText,
		Role:     role,
		Zone:     ZonePrintable,
		Field:    field,
		Box:      Rect{X: slot.X + alignOffset(slot.W, w, align), Y: slot.Y, W: w, H: slot.H},
		Slot:     slot,
		Text:     s,
		Font:     f.spec,
		Baseline: slot.Y + f.m.Ascent,
	})
}

func build(rec Record, cfg FontConfig, geo Geometry, opts BuildOptions, art artwork) (Result, error) {
	b := &builder{cfg: cfg, fonts: opts.Fonts, cache: map[FontSpec]face{}}

	if art.logo != nil {
		b.elems = append(b.elems, Element{
			Kind:  KindImage,
			Role:  RoleLogo,
			Zone:  ZoneMargin,
			Box:   art.logoBox,
			Image: art.logo,
		})
	}

	nameFace, err := b.face(cfg.NameSize, true)
	if err != nil {
		return Result{}, err
	}
	baseFace, err := b.face(cfg.BaseSize, cfg.Bold)
	if err != nil {
		return Result{}, err
	}
	numberFace, err := b.face(cfg.BaseSize, false)
	if err != nil {
		return Result{}, err
	}

	// 文本从上到下依次排列：姓名、卡号、附加文本、两列网格。
	area := geo.TextArea()
	y := geo.Printable.Y + geo.HeaderOffset
	b.text(RoleName, "", rec.Name, Rect{X: area.X, Y: y, W: area.W}, nameFace, "center")
	y += nameFace.height() + geo.RowGap
	b.text(RoleCardNumber, "", CardNumberLabel+": "+rec.CardNumber, Rect{X: area.X, Y: y, W: area.W}, numberFace, "center")
	y += numberFace.height() + geo.RowGap

	// 附加文本行位于卡号与网格之间，仅在有附加文本时占位。
	var extraFace face
	extraY := y
	extra := strings.TrimSpace(rec.Extra)
	if extra != "" {
		if extraFace, err = b.face(ExtraSize(cfg.BaseSize, cfg.NameSize), true); err != nil {
			return Result{}, err
		}
		y += extraFace.height() + geo.RowGap
	}

	colW := (area.W - geo.ColumnGap) / 2
	pitch := baseFace.m.LineHeight
	for _, s := range SlotTable {
		slot := Rect{
			X: area.X + float64(s.Column)*(colW+geo.ColumnGap),
			Y: y + float64(s.Row)*pitch,
			W: colW,
		}
		b.text(RoleField, s.Field, labelled(s.Label, rec.Value(s.Field)), slot, baseFace, "left")
	}

	b.elems = append(b.elems, Element{
		Kind:    KindImage,
		Role:    RoleQR,
		Zone:    ZonePrintable,
		Box:     geo.QRBox(),
		Slot:    geo.QRBox(),
		Image:   art.qr,
		Payload: rec.CardNumber,
	})

	stampFace, err := b.face(cfg.BaseSize, false)
	if err != nil {
		return Result{}, err
	}
	// 时间戳贴着可打印区域底部右对齐
	footerBottom := geo.Printable.Bottom() - geo.HeaderOffset
	b.text(RoleTimestamp, "", opts.Now.Format(TimestampLayout),
		Rect{X: area.X, Y: footerBottom - stampFace.height(), W: area.W}, stampFace, "right")

	if extra != "" {
		b.text(RoleExtra, "", extra, Rect{X: area.X, Y: extraY, W: area.W}, extraFace, "center")
	}

	b.elems = append(b.elems, Element{
		Kind:        KindRect,
		Role:        RoleBorder,
		Zone:        ZonePrintable,
		Box:         geo.Printable,
		StrokeWidth: geo.BorderWidth,
	})

	res := Result{Config: cfg, Elements: b.elems, Attempts: 1}
	res.Fits = Fits(geo, res.Elements)
	return res, nil
}

func alignOffset(container, width float64, align string) float64 {
	if container <= width {
		return 0
	}
	switch align {
	case "center":
		return (container - width) / 2
	case "right":
		return container - width
	default:
		return 0
	}
}
