package cli

import (
	"github.com/spf13/cobra"

	"github.com/turtacn/docintel/pkg/errors"
)

func newRefreshCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Invalidate the index, fact registry, and query cache, then re-scan the corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if cliCtx.Root == "" {
				return errors.InvalidParam("corpus root is not configured; pass --root or set corpus.root_path")
			}

			if err := cliCtx.Core.Refresh(cmd.Context(), cliCtx.Root); err != nil {
				return err
			}
			PrintSuccess(cmd, "corpus refreshed")
			return nil
		},
	}

	return cmd
}

func newHealthzCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "healthz",
		Short: "Report the health of the core service and its configured dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			status := cliCtx.Core.Healthz(cmd.Context())
			return PrintResult(cmd, status)
		},
	}

	return cmd
}
