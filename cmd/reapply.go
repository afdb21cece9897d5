package cmd

import (
	"github.com/smazurov/powerled/internal/logging"
	"github.com/smazurov/powerled/internal/nats"
	"github.com/spf13/cobra"
)

// CreateReapplyCmd creates the reapply command, which asks a running
// daemon to send its current LED presentation to the groups again.
func CreateReapplyCmd() *cobra.Command {
	var natsURL string
	var host int
	var reason string

	cmd := &cobra.Command{
		Use:          "reapply",
		Short:        "Ask a running daemon to reapply its LED presentation",
		Long:         `Publishes a reapply command on the NATS control subject of the selected host.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			sender, err := nats.NewControlSender(natsURL, logging.GetLogger("nats"))
			if err != nil {
				return err
			}
			defer sender.Close()
			return sender.Reapply(host, reason)
		},
	}

	cmd.Flags().StringVar(&natsURL, "server", "nats://127.0.0.1:4222", "NATS server URL of the daemon")
	cmd.Flags().IntVar(&host, "target-host", 0, "Host index of the target daemon")
	cmd.Flags().StringVar(&reason, "reason", "manual", "Reason recorded with the command")
	return cmd
}
