package layout

import (
	"fmt"
	"image"
	"math"
)

// Record is one patient entry. CardNumber and Name are required; every other
// field may be empty and then renders as an empty value.
type Record struct {
	CardNumber    string `json:"cardNumber"`
	Name          string `json:"name"`
	BirthDate     string `json:"birthDate"`
	MotherName    string `json:"motherName"`
	Insurance     string `json:"insurance"`
	Physician     string `json:"physician"`
	Sex           string `json:"sex"`
	AdmissionDate string `json:"admissionDate"`
	AdmissionTime string `json:"admissionTime"`
	Extra         string `json:"extra,omitempty"`
}

// FontConfig selects the typeface and the pixel sizes used for one batch.
// BaseSize applies to every text except the patient name, which uses
// NameSize. With AutoFit enabled the sizes are upper bounds.
type FontConfig struct {
	Family   string `json:"family"`
	BaseSize int    `json:"baseSize"`
	NameSize int    `json:"nameSize"`
	Bold     bool   `json:"bold"`
	Italic   bool   `json:"italic"`
	AutoFit  bool   `json:"autoFit"`
}

// Default font sizes in pixels.
const (
	DefaultBaseSize = 20
	DefaultNameSize = 50
)

// DefaultFontConfig returns the configuration used when no preferences exist.
func DefaultFontConfig() FontConfig {
	return FontConfig{
		Family:   "Go",
		BaseSize: DefaultBaseSize,
		NameSize: DefaultNameSize,
	}
}

// Rect 是以像素为单位的轴对齐矩形，原点在卡片左上角，y 向下增长。
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func (r Rect) Right() float64  { return r.X + r.W }
func (r Rect) Bottom() float64 { return r.Y + r.H }
func (r Rect) IsZero() bool    { return r == Rect{} }

const geomEpsilon = 1e-6

// Contains reports whether o lies inside r, edges included.
func (r Rect) Contains(o Rect) bool {
	return o.X >= r.X-geomEpsilon && o.Y >= r.Y-geomEpsilon &&
		o.Right() <= r.Right()+geomEpsilon && o.Bottom() <= r.Bottom()+geomEpsilon
}

// Intersects reports whether the interiors of r and o overlap. Rectangles
// that only share an edge, and empty rectangles, never intersect.
func (r Rect) Intersects(o Rect) bool {
	if r.W <= 0 || r.H <= 0 || o.W <= 0 || o.H <= 0 {
		return false
	}
	return r.X < o.Right()-geomEpsilon && o.X < r.Right()-geomEpsilon &&
		r.Y < o.Bottom()-geomEpsilon && o.Y < r.Bottom()-geomEpsilon
}

// Geometry is the fixed card template: canvas size, printable rectangle and
// the spacing constants every layout uses. All values are pixels.
type Geometry struct {
	DPI          float64 `json:"dpi"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	Printable    Rect    `json:"printable"`
	Padding      float64 `json:"padding"`      // inset of the QR inside the printable rectangle
	QRSize       float64 `json:"qrSize"`       // side of the QR square
	QRGap        float64 `json:"qrGap"`        // space between the QR and the text area
	HeaderOffset float64 `json:"headerOffset"` // distance from the printable top to the name
	RowGap       float64 `json:"rowGap"`       // space between header rows
	ColumnGap    float64 `json:"columnGap"`
	LogoGap      float64 `json:"logoGap"`
	BorderWidth  float64 `json:"borderWidth"`
}

// GeometrySpec describes the template in physical lengths.
type GeometrySpec struct {
	DPI            float64
	Width          Length
	Height         Length
	PrintableLeft  Length
	PrintableWidth Length
	PrintableInset Length // top and bottom
	Padding        Length
	QRSize         Length // zero derives the side from the printable height
	QRGap          Length
	HeaderOffset   Length
	RowGap         Length
	ColumnGap      Length
	LogoGap        Length
	BorderWidth    Length
}

// DefaultGeometrySpec is the 29.5cm x 2cm wristband with a 10cm printable
// window starting 3.5cm from the clasp end.
func DefaultGeometrySpec() GeometrySpec {
	return GeometrySpec{
		DPI:            DefaultDPI,
		Width:          CM(29.5),
		Height:         CM(2.0),
		PrintableLeft:  CM(3.5),
		PrintableWidth: CM(10),
		PrintableInset: CM(0.05),
		Padding:        CM(0.1),
		QRGap:          CM(0.2),
		HeaderOffset:   CM(0.05),
		RowGap:         PX(4),
		ColumnGap:      CM(0.1),
		LogoGap:        CM(0.05),
		BorderWidth:    PX(3),
	}
}

// DefaultGeometry resolves DefaultGeometrySpec. It cannot fail.
func DefaultGeometry() Geometry {
	g, err := DefaultGeometrySpec().Resolve()
	if err != nil {
		panic(err)
	}
	return g
}

// Resolve converts the physical template into pixels and validates it.
func (s GeometrySpec) Resolve() (Geometry, error) {
	dpi := s.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	px := func(l Length) float64 { return l.ToPx(dpi) }
	w, h := px(s.Width), px(s.Height)
	inset := px(s.PrintableInset)
	g := Geometry{
		DPI:    dpi,
		Width:  int(w),
		Height: int(h),
		Printable: Rect{
			X: px(s.PrintableLeft),
			Y: inset,
			W: px(s.PrintableWidth),
			H: h - 2*inset,
		},
		Padding:      px(s.Padding),
		QRGap:        px(s.QRGap),
		HeaderOffset: px(s.HeaderOffset),
		RowGap:       px(s.RowGap),
		ColumnGap:    px(s.ColumnGap),
		LogoGap:      px(s.LogoGap),
		BorderWidth:  px(s.BorderWidth),
	}
	g.QRSize = px(s.QRSize)
	if g.QRSize <= 0 {
		g.QRSize = g.Printable.H - 2*g.Padding
	}
	return g, g.Validate()
}

// Validate 检查可打印区域严格位于画布内，且二维码放得下。
func (g Geometry) Validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("canvas must have a positive size, got %dx%d", g.Width, g.Height)
	}
	p := g.Printable
	if p.W <= 0 || p.H <= 0 {
		return fmt.Errorf("printable area must have a positive size, got %gx%g", p.W, p.H)
	}
	if p.X <= 0 || p.Y <= 0 || p.Right() >= float64(g.Width) || p.Bottom() >= float64(g.Height) {
		return fmt.Errorf("printable area %+v must lie strictly inside the %dx%d canvas", p, g.Width, g.Height)
	}
	if g.QRSize <= 0 || g.QRSize+2*g.Padding > p.H || g.QRSize+2*g.Padding > p.W {
		return fmt.Errorf("qr side %g does not fit the printable area", g.QRSize)
	}
	if g.TextArea().W <= 0 {
		return fmt.Errorf("no room for text next to the qr code")
	}
	for name, v := range map[string]float64{
		"padding": g.Padding, "qr gap": g.QRGap, "header offset": g.HeaderOffset,
		"row gap": g.RowGap, "column gap": g.ColumnGap, "logo gap": g.LogoGap, "border width": g.BorderWidth,
	} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}

// Canvas returns the whole card rectangle.
func (g Geometry) Canvas() Rect {
	return Rect{W: float64(g.Width), H: float64(g.Height)}
}

// Margin 返回放 logo 的不可打印区域，即可打印矩形右侧的全部空间。
func (g Geometry) Margin() Rect {
	x := g.Printable.Right()
	return Rect{X: x, W: float64(g.Width) - x, H: float64(g.Height)}
}

// QRBox returns the QR square anchored in the top-left printable corner.
func (g Geometry) QRBox() Rect {
	return Rect{X: g.Printable.X + g.Padding, Y: g.Printable.Y + g.Padding, W: g.QRSize, H: g.QRSize}
}

// TextArea returns the strip right of the QR where all text is placed.
func (g Geometry) TextArea() Rect {
	x := g.QRBox().Right() + g.QRGap
	right := g.Printable.Right() - g.Padding
	return Rect{X: x, Y: g.Printable.Y, W: right - x, H: g.Printable.H}
}

// Zone returns the rectangle backing zone z.
func (g Geometry) Zone(z Zone) Rect {
	if z == ZoneMargin {
		return g.Margin()
	}
	return g.Printable
}

// PageSizeMM returns the physical size of one card for paginated output.
func (g Geometry) PageSizeMM() (float64, float64) {
	return PxToMM(float64(g.Width), g.DPI), PxToMM(float64(g.Height), g.DPI)
}

// Zone names the region of the card an element must stay inside.
type Zone int

const (
	ZonePrintable Zone = iota
	ZoneMargin
)

func (z Zone) String() string {
	if z == ZoneMargin {
		return "margin"
	}
	return "printable"
}

func (z Zone) MarshalText() ([]byte, error) { return []byte(z.String()), nil }

// Kind is the drawing primitive of an element.
type Kind int

const (
	KindText Kind = iota
	KindImage
	KindRect
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindRect:
		return "rect"
	default:
		return "text"
	}
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Role identifies what an element shows on the card.
type Role string

const (
	RoleLogo       Role = "logo"
	RoleName       Role = "name"
	RoleCardNumber Role = "card-number"
	RoleField      Role = "field"
	RoleQR         Role = "qr"
	RoleTimestamp  Role = "timestamp"
	RoleExtra      Role = "extra"
	RoleBorder     Role = "border"
)

// FontSpec is the resolved font of a text element.
type FontSpec struct {
	Family string `json:"family"`
	Size   int    `json:"size"`
	Bold   bool   `json:"bold,omitempty"`
	Italic bool   `json:"italic,omitempty"`
}

// Element is one placed drawable. Box is the ink bounding box; Slot, when
// set, is the area reserved for the element in the template.
type Element struct {
	Kind        Kind        `json:"kind"`
	Role        Role        `json:"role"`
	Zone        Zone        `json:"zone"`
	Field       FieldKey    `json:"field,omitempty"`
	Box         Rect        `json:"box"`
	Slot        Rect        `json:"slot"`
	Text        string      `json:"text,omitempty"`
	Font        FontSpec    `json:"font"`
	Baseline    float64     `json:"baseline,omitempty"`
	Image       image.Image `json:"-"`
	Payload     string      `json:"payload,omitempty"` // encoded QR data
	StrokeWidth float64     `json:"strokeWidth,omitempty"`
}

// Result is the outcome of resolving one record.
type Result struct {
	Config   FontConfig `json:"config"`
	Elements []Element  `json:"elements"`
	Fits     bool       `json:"fits"`
	Overflow bool       `json:"overflow"` // auto-fit stopped at the floor without a fit
	Attempts int        `json:"attempts"`
}
