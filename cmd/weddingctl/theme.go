package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wedding-os/client/internal/config"
	"github.com/wedding-os/client/internal/session"
)

func themeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "theme [light|dark]",
		Short:     "Show or set the colour theme preference",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(session.ThemeLight), string(session.ThemeDark)},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd.Context(), cfg, func(ctx context.Context, a *app) error {
				if len(args) == 0 {
					t, err := a.session.Theme(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), t)
					return nil
				}
				if err := a.session.SetTheme(ctx, session.Theme(args[0])); err != nil {
					return err
				}
				a.toasts.Success("Theme set to "+args[0], 0)
				return nil
			})
		},
	}
	return cmd
}
