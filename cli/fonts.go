package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ByLCY/pulseira/fonts"
)

func (a *app) fontsCommand() *cobra.Command {
	var files bool
	cmd := &cobra.Command{
		Use:   "fonts",
		Short: "List usable font families",
		Long:  `Fonts lists the built-in Go families followed by the families installed on this machine. Any of them can be passed to --family.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !files {
				for _, name := range fonts.Families() {
					fmt.Fprintln(a.stdout, name)
				}
				return nil
			}
			fmt.Fprintf(a.stdout, "%s\t(built-in)\n%s\t(built-in)\n", fonts.FamilyGo, fonts.FamilyGoMono)
			host := fonts.Host()
			keys := make([]string, 0, len(host))
			for k := range host {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				for _, f := range host[k] {
					fmt.Fprintf(a.stdout, "%s\t%s\t%s\n", f.Family, f.Style, f.Path)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&files, "files", false, "show the file behind every style")
	return cmd
}
