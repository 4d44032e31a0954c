package layout

import (
	"math"
	"strconv"
	"strings"
)

// This file defines unit-safe lengths used by the canvas geometry.

// Unit represents the original unit of a length value as written in configuration.
type Unit int

const (
	UnitNone Unit = iota // unit-less numbers, read as pixels
	UnitMM               // millimeters
	UnitCM               // centimeters
	UnitIN               // inches
	UnitPT               // points
	UnitPX               // device pixels at the configured DPI
)

// Conversion constants between pt and mm.
const (
	PtToMm  = 0.352777
	MmToPt  = 1.0 / PtToMm
	MmPerIn = 25.4
)

// DefaultDPI is the print resolution of the wristband printer.
const DefaultDPI = 300.0

// UnitToString returns a short string for a Unit value.
func UnitToString(u Unit) string {
	switch u {
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitPT:
		return "pt"
	case UnitPX:
		return "px"
	default:
		return ""
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) IsZero() bool { return l.Value == 0 }

// String formats the length the way ParseRawLengthStr reads it.
func (l Length) String() string {
	return strconv.FormatFloat(l.Value, 'f', -1, 64) + UnitToString(l.Unit)
}

// ToMM converts a physical length to millimeters. Pixel lengths need a
// resolution and are returned unchanged.
func (l Length) ToMM() float64 {
	switch l.Unit {
	case UnitCM:
		return l.Value * 10
	case UnitIN:
		return l.Value * MmPerIn
	case UnitPT:
		return l.Value * PtToMm
	default:
		return l.Value
	}
}

// ToPx 按 dpi 换算为整数像素（四舍五入）。无单位的值视为像素。
func (l Length) ToPx(dpi float64) float64 {
	switch l.Unit {
	case UnitPX, UnitNone:
		return math.Round(l.Value)
	default:
		return math.Round(l.ToMM() / MmPerIn * dpi)
	}
}

// CM is shorthand for a centimeter length.
func CM(v float64) Length { return Length{Value: v, Unit: UnitCM} }

// PX is shorthand for a pixel length.
func PX(v float64) Length { return Length{Value: v, Unit: UnitPX} }

// ParseRawLengthStr parses a length string such as "29.5cm" or "4px",
// preserving its unit. ok is false for malformed input.
func ParseRawLengthStr(value string) (Length, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return Length{}, false
	}
	lower := strings.ToLower(v)
	unit := UnitNone
	num := lower
	for _, suf := range []struct {
		s string
		u Unit
	}{{"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}, {"px", UnitPX}} {
		if strings.HasSuffix(lower, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(lower, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, false
	}
	return Length{Value: f, Unit: unit}, true
}

// PxToMM converts a pixel distance to millimeters at dpi.
func PxToMM(px, dpi float64) float64 {
	return px / dpi * MmPerIn
}
