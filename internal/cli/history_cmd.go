package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/chrisskurda/csv-to-dg/internal/roster"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded runs and changes",
	}

	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryShowCmd())

	return cmd
}

func newHistoryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available rollback dates, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newHistoryApp()
			if err != nil {
				return err
			}
			defer a.close()

			dates, err := a.history.ListRunDates(cmd.Context())
			if err != nil {
				return err
			}
			if len(dates) == 0 {
				cmd.Println("no recorded runs")
				return nil
			}
			for _, d := range dates {
				cmd.Println(d)
			}
			return nil
		},
	}
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <date>",
		Short: "Show the changes recorded on a date (YYYY-MM-DD)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseDate(args[0])
			if err != nil {
				return err
			}

			a, err := newHistoryApp()
			if err != nil {
				return err
			}
			defer a.close()

			changes, err := a.history.ListChanges(cmd.Context(), date)
			if err != nil {
				return err
			}
			if len(changes) == 0 {
				cmd.Printf("no changes recorded on %s\n", date)
				return nil
			}
			for _, c := range changes {
				cmd.Printf("%s  %s  %-13s %s", c.ID, c.Timestamp.Format(time.RFC3339), c.Op, c.Target)
				if c.Before != "" || c.After != "" {
					cmd.Printf("  [%s] -> [%s]", c.Before, c.After)
				}
				cmd.Println()
			}
			return nil
		},
	}
}

// parseDate validates a YYYY-MM-DD argument and returns it normalized.
func parseDate(arg string) (string, error) {
	t, err := time.Parse(roster.DateLayout, arg)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: expected YYYY-MM-DD", arg)
	}
	return t.Format(roster.DateLayout), nil
}
