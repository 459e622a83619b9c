package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-idcard/internal/app"
	"github.com/noah-isme/sma-idcard/internal/card"
	"github.com/noah-isme/sma-idcard/internal/models"
	"github.com/noah-isme/sma-idcard/internal/service"
)

const previewWidth = 44

func newExportCommand(rt *runtime) *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export [viewId]",
		Short: "Capture a card and write it to a file",
		Long: `Capture a card and write it to a file.

viewId is current-id-card (default) or previous-id-card. The file is named
student-id-card-<viewId>.<format> unless --out is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			viewID := models.ViewCurrent
			if len(args) == 1 {
				viewID = args[0]
			}
			exportFormat, err := models.ParseExportFormat(format)
			if err != nil {
				return err
			}
			return rt.withApp(func(a *app.App) error {
				result, err := a.Exports.Export(cmd.Context(), viewID, exportFormat)
				if err != nil {
					return err
				}
				target := out
				if target == "" {
					target = result.Artifact.Filename
				}
				if dir := filepath.Dir(target); dir != "." {
					if err := os.MkdirAll(dir, 0o755); err != nil {
						return err
					}
				}
				if err := os.WriteFile(target, result.Artifact.Data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", target, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", target)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(models.ExportFormatPNG), "png or pdf")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file")
	return cmd
}

func newPreviewCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "preview [viewId]",
		Short: "Draw the cards in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(func(a *app.App) error {
				out := cmd.OutOrStdout()
				if len(args) == 1 {
					view, err := a.Cards.Locate(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					fmt.Fprintln(out, renderPreview(view))
					return nil
				}
				deck, err := a.Cards.Views(cmd.Context())
				if err != nil {
					return err
				}
				if len(deck.Views) == 0 {
					fmt.Fprintln(out, service.EmptyStateMessage)
					return nil
				}
				for _, view := range deck.Views {
					fmt.Fprintln(out, view.ID)
					fmt.Fprintln(out, renderPreview(view))
				}
				return nil
			})
		},
	}
}

func paint(p card.Paint) lipgloss.Color {
	return lipgloss.Color(p.Token.Hex)
}

// renderPreview draws a card view with the same colour roles the raster uses.
func renderPreview(v card.View) string {
	surface := paint(v.Surface)
	base := lipgloss.NewStyle().Background(surface)

	header := lipgloss.NewStyle().
		Bold(true).
		Width(previewWidth).
		Align(lipgloss.Center).
		Background(paint(v.Header.Background)).
		Foreground(paint(v.Header.Foreground)).
		Render(v.Header.Title)

	portraitText := v.Portrait.Initial
	if v.Portrait.PhotoReference != "" {
		portraitText = "photo"
		if v.Record.PhotoName != "" {
			portraitText = v.Record.PhotoName
		}
	}
	portrait := lipgloss.NewStyle().
		Bold(true).
		Padding(0, 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(paint(v.Portrait.Border)).
		Background(paint(v.Portrait.Background)).
		Foreground(paint(v.Portrait.Foreground)).
		Render(portraitText)
	name := base.Bold(true).Foreground(paint(v.Name.Color)).Render(v.Name.Text)

	identityLines := make([]string, 0, len(v.Identity.Fields))
	labelStyle := lipgloss.NewStyle().Bold(true).Foreground(paint(v.Identity.Label))
	valueStyle := lipgloss.NewStyle().Foreground(paint(v.Identity.Value))
	for _, f := range v.Identity.Fields {
		identityLines = append(identityLines, labelStyle.Render(f.Label+": ")+valueStyle.Render(f.Value))
	}
	identity := lipgloss.NewStyle().
		Width(previewWidth-2).
		Padding(0, 1).
		Background(paint(v.Identity.Background)).
		Render(strings.Join(identityLines, "\n"))

	sections := []string{header, lipgloss.PlaceHorizontal(previewWidth, lipgloss.Center, portrait), lipgloss.PlaceHorizontal(previewWidth, lipgloss.Center, name), identity}

	if v.Allergies != nil {
		badge := lipgloss.NewStyle().
			Padding(0, 1).
			Background(paint(v.Allergies.BadgeBackground)).
			Foreground(paint(v.Allergies.BadgeForeground))
		badges := make([]string, 0, len(v.Allergies.Badges))
		for _, b := range v.Allergies.Badges {
			badges = append(badges, badge.Render(b))
		}
		heading := lipgloss.NewStyle().Bold(true).Foreground(paint(v.Allergies.HeadingColor)).Render(v.Allergies.Heading)
		sections = append(sections, heading, strings.Join(badges, " "))
	}

	code := lipgloss.NewStyle().
		Padding(0, 1).
		Background(paint(v.Code.Background)).
		Foreground(paint(v.Code.Foreground)).
		Render(fmt.Sprintf("QR %dpx level %s, %d bytes", v.Code.Size, v.Code.Level, len(v.Code.Payload)))
	sections = append(sections, lipgloss.PlaceHorizontal(previewWidth, lipgloss.Center, code))

	button := lipgloss.NewStyle().
		Padding(0, 2).
		Background(paint(v.Action.ButtonBackground)).
		Foreground(paint(v.Action.ButtonForeground)).
		Render(v.Action.Label)
	action := lipgloss.NewStyle().
		Width(previewWidth).
		Align(lipgloss.Center).
		Background(paint(v.Action.Background)).
		Render(button)
	sections = append(sections, action)

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(paint(v.Border)).
		Background(surface).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}
