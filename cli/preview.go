package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ByLCY/pulseira/errors"
	"github.com/ByLCY/pulseira/export"
	"github.com/ByLCY/pulseira/layout"
	"github.com/ByLCY/pulseira/qr"
	"github.com/ByLCY/pulseira/records"
	canvasrenderer "github.com/ByLCY/pulseira/renderer/canvas"
	"github.com/ByLCY/pulseira/renderer/raster"
)

type previewOpts struct {
	csv    string
	index  int
	logo   string
	out    string
	debug  string
	config string
	font   fontFlags
}

func (a *app) previewCommand() *cobra.Command {
	opts := previewOpts{index: 1, out: "preview.png"}

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Render one record to an image",
		Long: `Preview renders a single record, the first one by default, to an image
file. With --debug the placed elements are also written as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPreview(cmd, &opts)
		},
	}

	cmd.Flags().StringVar(&opts.csv, "csv", "", "CSV file with the patient records (required)")
	cmd.Flags().IntVar(&opts.index, "index", opts.index, "1-based record to preview")
	cmd.Flags().StringVar(&opts.logo, "logo", "", "logo image placed in the margin")
	cmd.Flags().StringVarP(&opts.out, "out", "o", opts.out, "output image; the extension selects png, tiff or bmp")
	cmd.Flags().StringVar(&opts.debug, "debug", "", "write the layout as JSON to this file")
	cmd.Flags().StringVar(&opts.config, "config", "", "TOML job file")
	opts.font.register(cmd)
	cmd.MarkFlagRequired("csv")

	return cmd
}

func (a *app) runPreview(cmd *cobra.Command, opts *previewOpts) error {
	logger := loggerFromContext(cmd.Context())

	job, err := loadJob(opts.config)
	if err != nil {
		return err
	}
	font, err := a.fontConfig(cmd, job, &opts.font)
	if err != nil {
		return err
	}
	geo, err := job.Geometry()
	if err != nil {
		return err
	}
	recs, err := records.ReadFile(opts.csv)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return errors.New(errors.ErrCodeEmptyBatch, "%s has no records", opts.csv)
	}
	if opts.index < 1 || opts.index > len(recs) {
		return errors.New(errors.ErrCodeInvalidInput, "record %d out of range (1-%d)", opts.index, len(recs))
	}
	logo, err := loadLogo(firstNonEmpty(opts.logo, job.Logo))
	if err != nil {
		return err
	}
	enc, err := raster.ByName(filepath.Ext(opts.out))
	if err != nil {
		return err
	}

	exp := &export.Exporter{QR: qr.NewEncoder()}
	res, img, err := exp.Render(canvasrenderer.NewRenderer(), recs[opts.index-1], export.Options{
		Font:     font,
		Geometry: geo,
		Logo:     logo,
		Now:      time.Now(),
	})
	if err != nil {
		return err
	}
	if opts.debug != "" {
		if err := layout.WriteDebugJSON(&res, opts.debug); err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "write layout json %s", opts.debug)
		}
	}
	if err := enc.WriteImage(img, opts.out); err != nil {
		return err
	}

	logger.Debug("preview laid out", "fits", res.Fits, "attempts", res.Attempts,
		"name_size", res.Config.NameSize, "base_size", res.Config.BaseSize)
	if res.Overflow {
		w := errors.New(errors.ErrCodeLayoutOverflow, "record %d (%s) overflows at the minimum font size", opts.index, recs[opts.index-1].CardNumber)
		logger.Warn(w.Message, "code", w.Code)
	} else if !res.Fits {
		for _, v := range layout.Check(geo, res.Elements) {
			logger.Warn("layout violation", "detail", v.String())
		}
	}
	fmt.Fprintln(a.stdout, opts.out)
	return nil
}
