package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-idcard/internal/app"
)

func newTemplatesCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List and select card templates",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List templates; the current one is marked with *",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return rt.withApp(func(a *app.App) error {
					current := a.Templates.Current(cmd.Context())
					for _, tpl := range a.Templates.List() {
						marker := " "
						if tpl.ID == current.ID {
							marker = "*"
						}
						swatch := lipgloss.NewStyle().
							Background(lipgloss.Color(tpl.Colors.Primary.Hex)).
							Foreground(lipgloss.Color(tpl.Colors.Surface.Hex)).
							Render(" " + tpl.DisplayName + " ")
						fmt.Fprintf(cmd.OutOrStdout(), "%s %-10s %s\n", marker, tpl.ID, swatch)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "current",
			Short: "Print the current template id",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return rt.withApp(func(a *app.App) error {
					fmt.Fprintln(cmd.OutOrStdout(), a.Templates.Current(cmd.Context()).ID)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "select <id>",
			Short: "Make a template current",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return rt.withApp(func(a *app.App) error {
					tpl, err := a.Templates.Select(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Template set to %s\n", tpl.DisplayName)
					return nil
				})
			},
		},
	)
	return cmd
}
