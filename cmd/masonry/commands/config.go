package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/masonry/pkg/observability"
	"github.com/Sumatoshi-tech/masonry/pkg/persist"
	"github.com/Sumatoshi-tech/masonry/pkg/version"
)

// NewConfigCommand creates the config subcommand.
func NewConfigCommand(env *Env) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after merging defaults, the config file and
MASONRY_* environment variables.`,
		Args: cobra.NoArgs,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return env.Setup(observability.ModeCLI)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			codec := persist.YAML
			if asJSON {
				codec = persist.JSON
			}

			return codec.Encode(cmd.OutOrStdout(), env.Config)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON instead of YAML")

	return cmd
}

// NewVersionCommand creates the version subcommand.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "masonry %s (commit: %s, built: %s)\n",
				version.Version, version.Commit, version.Date)
		},
	}
}
