package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/chrisskurda/csv-to-dg/internal/domain"
)

func newRollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <date>",
		Short: "Re-synchronize membership to the roster archived on a date",
		Long: `Rollback retrieves the reduced roster archived for the given date and
re-runs reconciliation against it as if it were today's export. It
re-synchronizes membership to that historical state; it does not undo
individual changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseDate(args[0])
			if err != nil {
				return err
			}

			a, err := newSyncApp()
			if err != nil {
				return err
			}
			defer a.close()

			err = a.service.Rollback(cmd.Context(), date)
			var missing *domain.RollbackTargetError
			if errors.As(err, &missing) {
				// Reported, non-fatal: nothing to roll back to.
				cmd.Printf("%v\n", missing)
				return nil
			}
			return err
		},
	}
}
