package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ByLCY/pulseira/errors"
	"github.com/ByLCY/pulseira/export"
	"github.com/ByLCY/pulseira/records"
)

// exportOpts holds the flags of the export command. Empty strings and zero
// values fall back to the job file.
type exportOpts struct {
	csv      string
	logo     string
	format   string
	combined bool
	out      string
	config   string
	workers  int
	backend  string
	raster   string
	font     fontFlags
}

func (a *app) exportCommand() *cobra.Command {
	opts := exportOpts{format: string(export.FormatRaster)}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the wristbands of every record in a CSV file",
		Long: `Export lays out one wristband per CSV record and writes them as raster
images or PDF documents, one file per record or a single combined file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runExport(cmd, &opts)
		},
	}

	cmd.Flags().StringVar(&opts.csv, "csv", "", "CSV file with the patient records (required)")
	cmd.Flags().StringVar(&opts.logo, "logo", "", "logo image placed in the margin")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: raster or document")
	cmd.Flags().BoolVar(&opts.combined, "combined", false, "write all cards into one file")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output directory (default: job file or current directory)")
	cmd.Flags().StringVar(&opts.config, "config", "", "TOML job file")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "cards rendered concurrently (default: job file or 1)")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "PDF backend: canvas or fpdf")
	cmd.Flags().StringVar(&opts.raster, "raster", "", "raster format: png, tiff or bmp")
	opts.font.register(cmd)
	cmd.MarkFlagRequired("csv")

	return cmd
}

func (a *app) runExport(cmd *cobra.Command, opts *exportOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	format, err := export.ParseFormat(opts.format)
	if err != nil {
		return err
	}
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

	prog := newProgress(logger)
	recs, err := records.ReadFile(opts.csv)
	if err != nil {
		return err
	}
	prog.done("records loaded", "count", len(recs), "file", opts.csv)

	logo, err := loadLogo(firstNonEmpty(opts.logo, job.Logo))
	if err != nil {
		return err
	}
	exp, err := newExporter(firstNonEmpty(opts.raster, job.Output.Raster), firstNonEmpty(opts.backend, job.Output.Backend), cmd)
	if err != nil {
		return err
	}

	workers := opts.workers
	if workers <= 0 {
		workers = job.Output.Workers
	}
	logger.Debug("font settings", "family", font.Family, "base_size", font.BaseSize, "name_size", font.NameSize,
		"bold", font.Bold, "italic", font.Italic, "auto_fit", font.AutoFit)

	rep, err := exp.Export(ctx, recs, export.Options{
		Format:           format,
		Combined:         opts.combined,
		OutDir:           firstNonEmpty(opts.out, job.Output.Dir),
		Font:             font,
		Geometry:         geo,
		Logo:             logo,
		Workers:          workers,
		NameTemplate:     job.Output.Name,
		CombinedRaster:   job.Output.CombinedRaster,
		CombinedDocument: job.Output.CombinedDocument,
	})
	printReport(a.stdout, rep, err)
	return err
}

// printReport writes the files and a one-line completed/attempted summary,
// followed by one line per layout warning.
func printReport(w io.Writer, rep *export.Report, err error) {
	if rep == nil {
		return
	}
	for _, f := range rep.Files {
		fmt.Fprintln(w, f)
	}
	be, partial := errors.AsBatch(err)
	switch {
	case partial:
		fmt.Fprintf(w, "partial export: %d/%d records completed, record %d failed\n", be.Completed, be.Attempted, be.Index+1)
	case err != nil:
		fmt.Fprintf(w, "export failed: %d/%d records completed\n", rep.Completed, rep.Attempted)
	default:
		fmt.Fprintf(w, "exported %d/%d records in %s\n", rep.Completed, rep.Attempted, rep.Elapsed.Round(time.Millisecond))
	}
	for _, warn := range rep.Warnings {
		fmt.Fprintf(w, "warning: %v\n", warn)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
