package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/docintel/internal/lexical"
	"github.com/turtacn/docintel/pkg/errors"
)

func newSearchCmd() *cobra.Command {
	var topK int
	var release, service, docTypes string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the documentation corpus for matching chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if cliCtx.Root == "" {
				return errors.InvalidParam("corpus root is not configured; pass --root or set corpus.root_path")
			}

			filters := lexical.Filters{Release: release, Service: service}
			if docTypes != "" {
				filters.DocTypes = strings.Split(docTypes, ",")
			}

			hits, err := cliCtx.Core.Search(cmd.Context(), cliCtx.Root, args[0], filters, topK)
			if err != nil {
				return err
			}
			return PrintResult(cmd, hits)
		},
	}

	cmd.Flags().IntVar(&topK, "top-k", 10, "maximum number of hits to return")
	cmd.Flags().StringVar(&release, "release", "", "restrict to a release, e.g. R2")
	cmd.Flags().StringVar(&service, "service", "", "restrict to a service name")
	cmd.Flags().StringVar(&docTypes, "doc-types", "", "comma-separated list of document types to restrict to")
	return cmd
}
