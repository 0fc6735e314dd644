package cli

import (
	"github.com/spf13/cobra"

	"github.com/turtacn/docintel/internal/rag"
	"github.com/turtacn/docintel/pkg/errors"
)

func newAnswerCmd() *cobra.Command {
	var topK, maxTokens int
	var release, docType, service, file string

	cmd := &cobra.Command{
		Use:   "answer <question>",
		Short: "Answer a question with a grounded, cited synthesis over the corpus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if cliCtx.Root == "" {
				return errors.InvalidParam("corpus root is not configured; pass --root or set corpus.root_path")
			}

			filters := rag.Filters{Release: release, DocType: docType, Service: service, File: file}
			resp, err := cliCtx.Core.Answer(cmd.Context(), args[0], filters, topK, maxTokens)
			if err != nil {
				return err
			}
			return PrintResult(cmd, resp)
		},
	}

	cmd.Flags().IntVar(&topK, "top-k", 0, "number of chunks to retrieve before reranking (0 = pipeline default)")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "maximum length of the synthesized answer (0 = pipeline default)")
	cmd.Flags().StringVar(&release, "release", "", "restrict to a release, e.g. R2")
	cmd.Flags().StringVar(&docType, "doc-type", "", "restrict to a document type, e.g. SERVICE_CONTRACTS")
	cmd.Flags().StringVar(&service, "service", "", "restrict to a service name")
	cmd.Flags().StringVar(&file, "file", "", "restrict to a specific source file")
	return cmd
}
