package cli

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/ByLCY/pulseira/config"
	"github.com/ByLCY/pulseira/errors"
	"github.com/ByLCY/pulseira/export"
	"github.com/ByLCY/pulseira/fonts"
	"github.com/ByLCY/pulseira/layout"
	"github.com/ByLCY/pulseira/prefs"
	"github.com/ByLCY/pulseira/qr"
	"github.com/ByLCY/pulseira/renderer"
	canvasrenderer "github.com/ByLCY/pulseira/renderer/canvas"
	fpdfrenderer "github.com/ByLCY/pulseira/renderer/fpdf"
	"github.com/ByLCY/pulseira/renderer/raster"
)

// fontFlags are the per-run font overrides shared by several commands.
// Only flags given on the command line override stored settings.
type fontFlags struct {
	family   string
	size     int
	nameSize int
	bold     bool
	italic   bool
	autoFit  bool
}

func (f *fontFlags) register(cmd *cobra.Command) {
	def := layout.DefaultFontConfig()
	cmd.Flags().StringVar(&f.family, "family", def.Family, "font family")
	cmd.Flags().IntVar(&f.size, "size", def.BaseSize, "base font size in pixels")
	cmd.Flags().IntVar(&f.nameSize, "name-size", def.NameSize, "patient name font size in pixels")
	cmd.Flags().BoolVar(&f.bold, "bold", false, "bold text")
	cmd.Flags().BoolVar(&f.italic, "italic", false, "italic text")
	cmd.Flags().BoolVar(&f.autoFit, "auto-fit", false, "shrink fonts until the card fits")
}

func (f *fontFlags) apply(cmd *cobra.Command, cfg layout.FontConfig) layout.FontConfig {
	changed := cmd.Flags().Changed
	if changed("family") {
		cfg.Family = f.family
	}
	if changed("size") {
		cfg.BaseSize = f.size
	}
	if changed("name-size") {
		cfg.NameSize = f.nameSize
	}
	if changed("bold") {
		cfg.Bold = f.bold
	}
	if changed("italic") {
		cfg.Italic = f.italic
	}
	if changed("auto-fit") {
		cfg.AutoFit = f.autoFit
	}
	return cfg
}

func (a *app) store() (*prefs.Store, error) {
	path := a.prefsPath
	if path == "" {
		var err error
		if path, err = prefs.DefaultPath(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeIO, err, "preferences")
		}
	}
	return prefs.NewStore(path), nil
}

func loadJob(path string) (*config.Job, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// fontConfig layers stored preferences, the job file and the flags, in that
// order.
func (a *app) fontConfig(cmd *cobra.Command, job *config.Job, ff *fontFlags) (layout.FontConfig, error) {
	store, err := a.store()
	if err != nil {
		return layout.FontConfig{}, err
	}
	cfg, err := store.Load()
	if err != nil {
		return layout.FontConfig{}, err
	}
	cfg = ff.apply(cmd, job.ApplyFont(cfg))
	if cfg.BaseSize <= 0 || cfg.NameSize <= 0 {
		return layout.FontConfig{}, errors.New(errors.ErrCodeInvalidConfig, "font sizes must be positive, got %d and %d", cfg.BaseSize, cfg.NameSize)
	}
	// The renderer falls back to Go silently; say so once here.
	if !fonts.IsBuiltin(cfg.Family) {
		if _, err := fonts.Locate(cfg.Family, fonts.Style{Bold: cfg.Bold, Italic: cfg.Italic}); err != nil {
			loggerFromContext(cmd.Context()).Warn("font family not found, using the built-in fallback",
				"family", cfg.Family, "fallback", fonts.Fallback)
		}
	}
	return cfg, nil
}

// loadLogo decodes the logo image. An empty path means no logo.
func loadLogo(path string) (image.Image, error) {
	if path == "" {
		return nil, nil
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "open logo %s", path)
	}
	return img, nil
}

func documentEncoder(backend string) (renderer.DocumentEncoder, error) {
	switch backend {
	case "", config.BackendCanvas:
		return canvasrenderer.DocumentEncoder{}, nil
	case config.BackendFPDF:
		return fpdfrenderer.DocumentEncoder{}, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown document backend %q (want %s or %s)",
		backend, config.BackendCanvas, config.BackendFPDF)
}

// newExporter wires the canvas renderer, the QR encoder and the selected
// output encoders.
func newExporter(rasterName, backend string, cmd *cobra.Command) (*export.Exporter, error) {
	rasterEnc, err := raster.ByName(rasterName)
	if err != nil {
		return nil, err
	}
	docEnc, err := documentEncoder(backend)
	if err != nil {
		return nil, err
	}
	return &export.Exporter{
		NewRenderer: func() renderer.Renderer { return canvasrenderer.NewRenderer() },
		QR:          qr.NewEncoder(),
		Raster:      rasterEnc,
		Document:    docEnc,
		Logger:      loggerFromContext(cmd.Context()),
		Creator:     "pulseira " + version,
	}, nil
}
