package cli

import (
	"github.com/spf13/cobra"

	"github.com/ByLCY/pulseira/prefs"
)

func (a *app) prefsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or save the default font settings",
	}
	cmd.AddCommand(a.prefsShowCommand())
	cmd.AddCommand(a.prefsSaveCommand())
	return cmd
}

func (a *app) prefsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored font settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			cfg, err := store.Load()
			if err != nil {
				return err
			}
			loggerFromContext(cmd.Context()).Debug("preferences", "path", store.Path())
			return prefs.Encode(a.stdout, cfg)
		},
	}
}

func (a *app) prefsSaveCommand() *cobra.Command {
	var ff fontFlags
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save font settings as the default",
		Long:  `Save merges the given font flags into the stored settings and writes them back. Flags that are not given keep their stored value.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			cfg, err := store.Load()
			if err != nil {
				return err
			}
			cfg = ff.apply(cmd, cfg)
			if err := store.Save(cfg); err != nil {
				return err
			}
			loggerFromContext(cmd.Context()).Info("preferences saved", "path", store.Path())
			return nil
		},
	}
	ff.register(cmd)
	return cmd
}
