// Package config loads the optional TOML job file that describes the card
// template and the export defaults.
//
// Every field is optional. Lengths are strings with a unit ("29.5cm",
// "4px", "0.1in"); a bare number is read as pixels.
//
//	[canvas]
//	dpi = 300
//	width = "29.5cm"
//	height = "2cm"
//	printable_left = "3.5cm"
//	printable_width = "10cm"
//
//	[output]
//	dir = "out"
//	raster = "png"
//	backend = "canvas"
//	workers = 4
//	name = "pulseira_${index}_${card}"
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/ByLCY/pulseira/binding"
	"github.com/ByLCY/pulseira/errors"
	"github.com/ByLCY/pulseira/layout"
	"github.com/ByLCY/pulseira/renderer/raster"
)

// Document backends.
const (
	BackendCanvas = "canvas"
	BackendFPDF   = "fpdf"
)

// Job is the decoded job file.
type Job struct {
	Canvas Canvas `toml:"canvas"`
	Output Output `toml:"output"`
	Font   Font   `toml:"font"`
	Logo   string `toml:"logo"`
}

// Canvas holds the template lengths. Empty strings keep the defaults.
type Canvas struct {
	DPI            float64 `toml:"dpi"`
	Width          string  `toml:"width"`
	Height         string  `toml:"height"`
	PrintableLeft  string  `toml:"printable_left"`
	PrintableWidth string  `toml:"printable_width"`
	PrintableInset string  `toml:"printable_inset"`
	Padding        string  `toml:"padding"`
	QRSize         string  `toml:"qr_size"`
	QRGap          string  `toml:"qr_gap"`
	HeaderOffset   string  `toml:"header_offset"`
	RowGap         string  `toml:"row_gap"`
	ColumnGap      string  `toml:"column_gap"`
	LogoGap        string  `toml:"logo_gap"`
	BorderWidth    string  `toml:"border_width"`
}

// Output holds export defaults.
type Output struct {
	Dir              string `toml:"dir"`
	Raster           string `toml:"raster"`
	Backend          string `toml:"backend"`
	Workers          int    `toml:"workers"`
	Name             string `toml:"name"`
	CombinedRaster   string `toml:"combined_raster"`
	CombinedDocument string `toml:"combined_document"`
}

// Font overrides stored preferences for one job. Nil fields are unset.
type Font struct {
	Family   *string `toml:"family"`
	Size     *int    `toml:"size"`
	NameSize *int    `toml:"name_size"`
	Bold     *bool   `toml:"bold"`
	Italic   *bool   `toml:"italic"`
	AutoFit  *bool   `toml:"auto_fit"`
}

// Default returns a job that reproduces the built-in template.
func Default() *Job {
	return &Job{Output: Output{Raster: "png", Backend: BackendCanvas, Workers: 1}}
}

// Load reads and validates a job file. Unknown keys are rejected so typos do
// not silently fall back to defaults.
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read job file %s", path)
	}
	job, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return job, nil
}

// Parse decodes a job from TOML bytes on top of Default.
func Parse(data []byte) (*Job, error) {
	job := Default()
	md, err := toml.Decode(string(data), job)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse job file")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return job, nil
}

// Validate checks everything that can be checked without touching the
// filesystem.
func (j *Job) Validate() error {
	if _, err := j.Geometry(); err != nil {
		return err
	}
	switch j.Output.Backend {
	case "", BackendCanvas, BackendFPDF:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown document backend %q (want %s or %s)",
			j.Output.Backend, BackendCanvas, BackendFPDF)
	}
	if _, err := raster.ByName(j.Output.Raster); err != nil {
		return err
	}
	if j.Output.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "workers must not be negative, got %d", j.Output.Workers)
	}
	record := binding.RecordData(0, layout.Record{}, "")
	batch := binding.BatchData("", 0)
	for _, t := range []struct {
		key  string
		tmpl string
		data map[string]any
	}{
		{"output.name", j.Output.Name, record},
		{"output.combined_raster", j.Output.CombinedRaster, batch},
		{"output.combined_document", j.Output.CombinedDocument, batch},
	} {
		if missing := binding.Missing(t.tmpl, t.data); len(missing) > 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "%s references unknown placeholders: %s",
				t.key, strings.Join(missing, ", "))
		}
	}
	if f := j.Font; f.Size != nil && *f.Size <= 0 || f.NameSize != nil && *f.NameSize <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "font sizes must be positive")
	}
	return nil
}

// Geometry resolves the canvas section into pixels.
func (j *Job) Geometry() (layout.Geometry, error) {
	spec := layout.DefaultGeometrySpec()
	if j.Canvas.DPI < 0 {
		return layout.Geometry{}, errors.New(errors.ErrCodeInvalidConfig, "canvas.dpi must be positive, got %g", j.Canvas.DPI)
	}
	if j.Canvas.DPI > 0 {
		spec.DPI = j.Canvas.DPI
	}
	for _, f := range []struct {
		key string
		raw string
		dst *layout.Length
	}{
		{"width", j.Canvas.Width, &spec.Width},
		{"height", j.Canvas.Height, &spec.Height},
		{"printable_left", j.Canvas.PrintableLeft, &spec.PrintableLeft},
		{"printable_width", j.Canvas.PrintableWidth, &spec.PrintableWidth},
		{"printable_inset", j.Canvas.PrintableInset, &spec.PrintableInset},
		{"padding", j.Canvas.Padding, &spec.Padding},
		{"qr_size", j.Canvas.QRSize, &spec.QRSize},
		{"qr_gap", j.Canvas.QRGap, &spec.QRGap},
		{"header_offset", j.Canvas.HeaderOffset, &spec.HeaderOffset},
		{"row_gap", j.Canvas.RowGap, &spec.RowGap},
		{"column_gap", j.Canvas.ColumnGap, &spec.ColumnGap},
		{"logo_gap", j.Canvas.LogoGap, &spec.LogoGap},
		{"border_width", j.Canvas.BorderWidth, &spec.BorderWidth},
	} {
		if strings.TrimSpace(f.raw) == "" {
			continue
		}
		l, ok := layout.ParseRawLengthStr(f.raw)
		if !ok || l.Value < 0 {
			return layout.Geometry{}, errors.New(errors.ErrCodeInvalidConfig, "canvas.%s: invalid length %q", f.key, f.raw)
		}
		*f.dst = l
	}
	geo, err := spec.Resolve()
	if err != nil {
		return layout.Geometry{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid canvas geometry")
	}
	return geo, nil
}

// ApplyFont overlays the job's font section on cfg.
func (j *Job) ApplyFont(cfg layout.FontConfig) layout.FontConfig {
	f := j.Font
	if f.Family != nil && *f.Family != "" {
		cfg.Family = *f.Family
	}
	if f.Size != nil {
		cfg.BaseSize = *f.Size
	}
	if f.NameSize != nil {
		cfg.NameSize = *f.NameSize
	}
	if f.Bold != nil {
		cfg.Bold = *f.Bold
	}
	if f.Italic != nil {
		cfg.Italic = *f.Italic
	}
	if f.AutoFit != nil {
		cfg.AutoFit = *f.AutoFit
	}
	return cfg
}
