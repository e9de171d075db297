package cli

import (
	"github.com/spf13/cobra"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the group against the live roster export",
		Example: `  csvdg sync
  csvdg sync --config /etc/csvdg/prod.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd)
		},
	}
}

func runSync(cmd *cobra.Command) error {
	a, err := newSyncApp()
	if err != nil {
		return err
	}
	defer a.close()

	return a.service.Sync(cmd.Context())
}
