package layout

import (
	"math"
	"testing"
)

// TestPtMmRoundTrip checks the pt/mm conversion constants against each other.
func TestPtMmRoundTrip(t *testing.T) {
	samples := []float64{0, 0.001, 1, 12, 14.4, 72, 96, 144, 1000}
	for _, pt := range samples {
		back := pt * PtToMm * MmToPt
		if diff := math.Abs(back - pt); diff > 1e-9 {
			t.Fatalf("pt→mm→pt drift: in=%gpt back=%g diff=%g", pt, back, diff)
		}
	}
}

func TestLengthToPx(t *testing.T) {
	tests := []struct {
		in   Length
		dpi  float64
		want float64
	}{
		{CM(29.5), 300, 3484},
		{CM(2.0), 300, 236},
		{CM(3.5), 300, 413},
		{CM(10), 300, 1181},
		{CM(0.05), 300, 6},
		{CM(0.1), 300, 12},
		{Length{Value: 1, Unit: UnitIN}, 300, 300},
		{Length{Value: 25.4, Unit: UnitMM}, 150, 150},
		{Length{Value: 72, Unit: UnitPT}, 300, 300},
		{PX(4), 300, 4},
		{Length{Value: 7.4}, 300, 7},
	}
	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			if got := tt.in.ToPx(tt.dpi); got != tt.want {
				t.Fatalf("%s at %gdpi = %gpx, want %g", tt.in, tt.dpi, got, tt.want)
			}
		})
	}
}

func TestParseRawLengthStr(t *testing.T) {
	tests := []struct {
		in     string
		want   Length
		wantOK bool
	}{
		{"29.5cm", CM(29.5), true},
		{" 4px ", PX(4), true},
		{"12 mm", Length{Value: 12, Unit: UnitMM}, true},
		{"1IN", Length{Value: 1, Unit: UnitIN}, true},
		{"18", Length{Value: 18}, true},
		{"", Length{}, false},
		{"wide", Length{}, false},
		{"cm", Length{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseRawLengthStr(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseRawLengthStr(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
