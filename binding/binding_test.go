package binding

import (
	"reflect"
	"testing"

	"github.com/ByLCY/pulseira/layout"
)

func TestInterpolate(t *testing.T) {
	data := map[string]any{
		"card":   "123456",
		"index":  3,
		"record": map[string]any{"sex": "F"},
	}
	tests := []struct{ in, want string }{
		{"pulseira_${index}_${card}", "pulseira_3_123456"},
		{"${ card }", "123456"},
		{"${record.sex}", "F"},
		{"${record.missing}", "${record.missing}"},
		{"${card.x}", "${card.x}"},
		{"${}", "${}"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := Interpolate(tt.in, data); got != tt.want {
			t.Errorf("Interpolate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := Interpolate("${card}", nil); got != "${card}" {
		t.Errorf("nil data: %q", got)
	}
}

func TestMissing(t *testing.T) {
	got := Missing("${index}_${cardd}_${record.nope}", RecordData(1, layout.Record{CardNumber: "1"}, "b"))
	want := []string{"${cardd}", "${record.nope}"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Missing = %v, want %v", got, want)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"123456", "123456"},
		{"12/34 56", "12_34_56"},
		{"a//b", "a_b"},
		{"../etc", "_etc"},
		{"  ", "_"},
		{"João Silva", "João_Silva"},
		{"x:y*z?", "x_y_z"},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFileName(t *testing.T) {
	rec := layout.Record{CardNumber: "98/76", Name: "Ana Pereira"}
	data := RecordData(12, rec, "b1")
	tests := []struct{ tmpl, ext, want string }{
		{"pulseira_${index}_${card}", "png", "pulseira_12_98_76.png"},
		{"${index3}-${name}", ".pdf", "012-Ana_Pereira.pdf"},
		{"card", "", "card"},
	}
	for _, tt := range tests {
		if got := FileName(tt.tmpl, data, tt.ext); got != tt.want {
			t.Errorf("FileName(%q) = %q, want %q", tt.tmpl, got, tt.want)
		}
	}
}
