package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/chrisskurda/csv-to-dg/internal/domain"
)

func newUndoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo <change-id>",
		Short: "Undo a specific recorded change (not implemented)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newHistoryApp()
			if err != nil {
				return err
			}
			defer a.close()

			// The semantics of reverting one change out of order are
			// undefined; show the record so the operator can act
			// manually, then refuse.
			c, err := a.history.GetChange(cmd.Context(), args[0])
			if err == nil {
				cmd.Printf("%s  %s  %s %s  [%s] -> [%s]\n",
					c.ID, c.Timestamp.Format(time.RFC3339), c.Op, c.Target, c.Before, c.After)
			}
			return domain.ErrNotSupported("undo of individual changes is not supported; use rollback <date>")
		},
	}
}
