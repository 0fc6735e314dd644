package cli

import (
	"github.com/spf13/cobra"

	"github.com/turtacn/docintel/pkg/errors"
)

func newCompareReleasesCmd() *cobra.Command {
	var releases []string

	cmd := &cobra.Command{
		Use:   "compare-releases <feature>",
		Short: "Summarize how a feature's documentation differs across releases",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if cliCtx.Root == "" {
				return errors.InvalidParam("corpus root is not configured; pass --root or set corpus.root_path")
			}

			summaries, err := cliCtx.Core.CompareReleases(cmd.Context(), cliCtx.Root, args[0], releases)
			if err != nil {
				return err
			}
			return PrintResult(cmd, summaries)
		},
	}

	cmd.Flags().StringSliceVar(&releases, "release", nil, "restrict to these releases (repeatable); all releases if omitted")
	return cmd
}

func newServiceDepsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service-deps <service>",
		Short: "List the dependencies a service declares in its SERVICE_CONTRACTS docs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if cliCtx.Root == "" {
				return errors.InvalidParam("corpus root is not configured; pass --root or set corpus.root_path")
			}

			deps, err := cliCtx.Core.ServiceDependencies(cmd.Context(), cliCtx.Root, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, deps)
		},
	}

	return cmd
}
