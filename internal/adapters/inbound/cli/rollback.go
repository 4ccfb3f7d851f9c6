package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fixforward/fixforward/internal/adapters/outbound/tui"
)

func newRollbackCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback [path]",
		Short: "Undo the pending fixforward patch",
		Long: "Check out the original branch, delete the fixforward branch, restore every patched file " +
			"and re-apply stashed changes.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(pathArg(args), root.log)
			if err != nil {
				return err
			}
			st, err := p.engine().Rollback(cmd.Context(), p.root)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderRollback(st))
			return nil
		},
	}
}

func newStatusCmd(root *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the pending rollback state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(".", root.log)
			if err != nil {
				return err
			}
			store := p.store()
			st, err := store.Load()
			if err != nil {
				return err
			}
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderStatus(st, store.Path()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the state as JSON")
	return cmd
}
