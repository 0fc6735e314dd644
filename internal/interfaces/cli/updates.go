package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/turtacn/docintel/internal/docupdate"
	"github.com/turtacn/docintel/internal/domain/docmodel"
	"github.com/turtacn/docintel/pkg/errors"
)

func newSuggestUpdateCmd() *cobra.Command {
	var docContext, targetFile, targetRelease string

	cmd := &cobra.Command{
		Use:   "suggest-update <intent>",
		Short: "Draft a documentation change for the given intent without writing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if cliCtx.Root == "" {
				return errors.InvalidParam("corpus root is not configured; pass --root or set corpus.root_path")
			}

			suggestion, err := cliCtx.Core.SuggestUpdate(cmd.Context(), cliCtx.Root, docupdate.Intent{
				Intent:        args[0],
				Context:       docContext,
				TargetFile:    targetFile,
				TargetRelease: targetRelease,
			})
			if err != nil {
				return err
			}
			return PrintResult(cmd, suggestion)
		},
	}

	cmd.Flags().StringVar(&docContext, "context", "", "body text to fold into the drafted diff")
	cmd.Flags().StringVar(&targetFile, "target-file", "", "override keyword inference with an explicit doc-type suffix")
	cmd.Flags().StringVar(&targetRelease, "target-release", "", "override the default release prefix (R1)")
	return cmd
}

func newApplyUpdateCmd() *cobra.Command {
	var suggestionPath string
	var force bool

	cmd := &cobra.Command{
		Use:   "apply-update",
		Short: "Apply a previously drafted suggestion (read from --from or stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if cliCtx.Root == "" {
				return errors.InvalidParam("corpus root is not configured; pass --root or set corpus.root_path")
			}

			var r *os.File
			if suggestionPath != "" && suggestionPath != "-" {
				f, err := os.Open(suggestionPath)
				if err != nil {
					return errors.Wrap(err, errors.CodeIOError, "cli: failed to open suggestion file")
				}
				defer f.Close()
				r = f
			} else {
				r = os.Stdin
			}

			var suggestion docmodel.UpdateSuggestion
			if err := json.NewDecoder(r).Decode(&suggestion); err != nil {
				return errors.Wrap(err, errors.CodeInvalidParam, "cli: failed to decode suggestion")
			}

			result, err := cliCtx.Core.ApplyUpdate(cmd.Context(), cliCtx.Root, suggestion, force)
			if err != nil {
				return err
			}
			return PrintResult(cmd, result)
		},
	}

	cmd.Flags().StringVar(&suggestionPath, "from", "-", "path to a JSON suggestion file, or - for stdin")
	cmd.Flags().BoolVar(&force, "force", false, "apply even when blocked by an unresolved fact conflict")
	return cmd
}
