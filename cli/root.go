// Package cli implements the pulseira command-line interface.
//
// # Commands
//
//   - export: render every record of a CSV file as images or documents
//   - preview: render one record to a PNG, optionally with the layout as JSON
//   - template: write the example or the empty CSV template
//   - prefs: show or save the default font settings
//   - fonts: list the font families that can be used
//
// All commands accept --verbose (-v) for debug logging and --prefs to use a
// preferences file other than ~/.unipulso_prefs.json. The logger travels in the
// command context.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  string
	date    string
)

// SetVersion sets what --version prints. main calls it with values injected
// at build time.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// app holds the global flags and the output streams shared by commands.
type app struct {
	stdout    io.Writer
	stderr    io.Writer
	verbose   bool
	prefsPath string
}

// Execute runs the CLI with the process arguments.
func Execute(ctx context.Context) error {
	return NewRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx)
}

// NewRootCommand builds the command tree. Results go to stdout, logs to
// stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "pulseira",
		Short:         "Pulseira prints patient identification wristbands",
		Long:          `Pulseira lays out patient identification wristbands from CSV records, with a QR code of the card number, and exports them as images or PDF documents.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := log.InfoLevel
			if a.verbose {
				level = log.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(a.stderr, level)))
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate("pulseira {{.Version}}\ncommit: " + commit + "\nbuilt: " + date + "\n")

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&a.prefsPath, "prefs", "", "preferences file (default ~/.unipulso_prefs.json)")

	root.AddCommand(a.exportCommand())
	root.AddCommand(a.previewCommand())
	root.AddCommand(a.templateCommand())
	root.AddCommand(a.prefsCommand())
	root.AddCommand(a.fontsCommand())

	return root
}
