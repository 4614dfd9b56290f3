package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvlzerz/loan-reminder/pkg/loan"
	"github.com/mvlzerz/loan-reminder/pkg/mail"
	"github.com/mvlzerz/loan-reminder/pkg/reminder"
)

func newPreviewCommand(rt *runtimeState) *cobra.Command {
	var (
		date         string
		outputFormat string
		showHTML     bool
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "List the overdue accounts without sending any mail",
		Long: "Loads the loan data file and lists every account that would receive a reminder. " +
			"No SMTP connection is made and no credentials are required.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := rt.cfg.ValidateSettings(); err != nil {
				return err
			}

			today := loan.DateOf(rt.now())
			if date != "" {
				d, err := loan.ParseDate(date)
				if err != nil {
					return fmt.Errorf("invalid --date: %w", err)
				}
				today = d
			}

			accounts, err := loan.NewFileLoader(rt.cfg.Data.File, rt.log).Load(cmd.Context())
			if err != nil {
				return err
			}
			defaulters := loan.FindDefaulters(today, accounts)
			w := rt.Writer()

			if showHTML {
				for _, account := range defaulters {
					body, err := mail.RenderReminder(reminder.NewReminderParams(account, rt.cfg.Mail.SenderName))
					if err != nil {
						return fmt.Errorf("rendering reminder for %s: %w", account.ID, err)
					}
					_, _ = fmt.Fprintf(w, "To: %s\nSubject: %s\n\n%s\n\n", account.Email, mail.ReminderSubject, body)
				}
				return nil
			}

			switch Format(outputFormat) {
			case FormatTable, "":
				if len(defaulters) == 0 {
					_, _ = fmt.Fprintf(w, "No overdue loans found as of %s\n", today)
					return nil
				}
				WriteDefaulterTable(w, defaulters)
				return nil
			default:
				return WriteObject(w, Format(outputFormat), NewDefaulterViews(defaulters))
			}
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Evaluate due dates as of this day (YYYY-MM-DD) instead of today")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "", "Output format: table, json, yaml")
	cmd.Flags().BoolVar(&showHTML, "html", false, "Print the rendered reminder for every overdue account")

	return cmd
}
