package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-idcard/internal/app"
	"github.com/noah-isme/sma-idcard/internal/models"
	"github.com/noah-isme/sma-idcard/internal/service"
)

func newSubmitCommand(rt *runtime) *cobra.Command {
	var (
		req   models.SubmitStudentRequest
		photo string
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Register a student",
		Example: `  idcard submit --name "Asha Rao" --roll 12 --class 1A --rack R4 --route "Route 2" --allergy Peanuts --allergy Dust
  idcard submit --name Bima --roll 3 --class 2B --rack R1 --route "Route 1" --photo ./bima.jpg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(func(a *app.App) error {
				if photo != "" {
					stored, err := a.Photos.UploadFile(cmd.Context(), photo)
					if err != nil {
						return err
					}
					req.PhotoReference = stored.Reference
					req.PhotoName = stored.Name
				}
				record, err := a.Records.Submit(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (roll %s, class %s)\n", record.Name, record.RollNumber, record.ClassDivision)
				return nil
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&req.Name, "name", "", "student name")
	flags.StringVar(&req.RollNumber, "roll", "", "roll number")
	flags.StringVar(&req.ClassDivision, "class", "", "class and division ("+strings.Join(models.ClassDivisions, ", ")+")")
	flags.StringVar(&req.RackNumber, "rack", "", "rack number")
	flags.StringVar(&req.BusRoute, "route", "", "bus route ("+strings.Join(models.BusRoutes, ", ")+")")
	flags.StringSliceVar(&req.Allergies, "allergy", nil, "allergy, repeatable ("+strings.Join(models.AllergyOptions, ", ")+")")
	flags.StringVar(&photo, "photo", "", "portrait image file (png, jpeg or webp)")
	return cmd
}

func newHistoryCommand(rt *runtime) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the retained submissions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(func(a *app.App) error {
				out := cmd.OutOrStdout()
				switch strings.ToLower(format) {
				case "json":
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(a.Records.LoadHistory(cmd.Context()))
				case "csv":
					data, err := a.Exports.HistoryCSV(cmd.Context())
					if err != nil {
						return err
					}
					_, err = out.Write(data)
					return err
				case "", "text":
					writeHistory(out, a.Records.LoadHistory(cmd.Context()))
					return nil
				default:
					return fmt.Errorf("unsupported history format %q", format)
				}
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or csv")
	return cmd
}

func writeHistory(w io.Writer, history models.RecordHistory) {
	if history.Len() == 0 {
		fmt.Fprintln(w, service.EmptyStateMessage)
		return
	}
	slots := []string{models.ViewCurrent, models.ViewPrevious}
	for i, r := range history.Records() {
		allergies := "none"
		if len(r.Allergies) > 0 {
			allergies = strings.Join(r.Allergies, ", ")
		}
		fmt.Fprintf(w, "%s\t%s\troll %s\tclass %s\track %s\t%s\tallergies: %s\n",
			slots[i], r.Name, r.RollNumber, r.ClassDivision, r.RackNumber, r.BusRoute, allergies)
	}
}
