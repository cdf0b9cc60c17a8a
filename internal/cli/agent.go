package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/wikichain/internal/ir"
)

// NewAgentCommand creates the agent command group.
func NewAgentCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Manage agent identities",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "new",
		Short: "Print a fresh agent id",
		Long: `Print a new time-ordered agent id (UUIDv7). Pass it with --agent or
set it as agent in the config file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ir.NewAgentID()
			return newFormatter(cmd, rootOpts).Success(map[string]ir.AgentID{"agent": id}, string(id))
		},
	})

	return cmd
}
