package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ByLCY/pulseira/records"
)

var defaultTemplateFiles = map[string]string{
	records.TemplateExample: "exemplo.csv",
	records.TemplateEmpty:   "modelo_vazio.csv",
}

func (a *app) templateCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:       "template example|empty",
		Short:     "Write a CSV template",
		Long:      `Template writes the example CSV with two sample patients, or an empty CSV holding only the header row.`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{records.TemplateExample, records.TemplateEmpty},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := out
			if path == "" {
				path = defaultTemplateFiles[args[0]]
			}
			if err := records.WriteTemplate(args[0], path); err != nil {
				return err
			}
			loggerFromContext(cmd.Context()).Debug("template written", "kind", args[0], "path", path)
			fmt.Fprintln(a.stdout, path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default exemplo.csv or modelo_vazio.csv)")
	return cmd
}
