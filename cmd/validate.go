package cmd

import (
	"fmt"

	"github.com/smazurov/powerled/internal/config"
	"github.com/spf13/cobra"
)

// CreateValidateConfigCmd creates the validate-config command.
func CreateValidateConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config [path]",
		Short: "Validate a power LED document",
		Long: `Loads a power LED document (JSON, or TOML with a .toml extension), checks both ` +
			`reference codes and the three LED group names, and prints the resolved settings.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadPowerLED(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "POST_start:             %s\n", cfg.PostStart)
			fmt.Fprintf(out, "POST_end:               %s\n", cfg.PostEnd)
			fmt.Fprintf(out, "BMC_booted_group:       %s\n", cfg.BootedGroup)
			fmt.Fprintf(out, "POST_active_group:      %s\n", cfg.PostActiveGroup)
			fmt.Fprintf(out, "fully_powered_on_group: %s\n", cfg.PoweredOnGroup)
			return nil
		},
	}
}
