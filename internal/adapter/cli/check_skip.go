package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/braedonsaunders/codetriage/internal/usecase/skip"
)

// ErrShouldAnalyze is returned when no skip trigger is found,
// indicating the analysis should proceed. Use this as a sentinel
// error in CI workflows.
var ErrShouldAnalyze = errors.New("should analyze")

// checkSkipCommand creates the check-skip subcommand.
// This command checks commit messages and change metadata for skip triggers.
//
// Exit codes:
//   - 0: Skip trigger found, analysis should be skipped
//   - 1: No skip trigger, analysis should proceed
func checkSkipCommand() *cobra.Command {
	var commitMessages []string
	var title string
	var description string

	cmd := &cobra.Command{
		Use:   "check-skip",
		Short: "Check if analysis should be skipped",
		Long: `Check commit messages and change metadata for skip triggers.

Supported skip trigger patterns:
  [skip triage]
  [skip-triage]

Patterns are case-insensitive and can appear anywhere in the text.

Exit codes:
  0 - Skip trigger found, analysis should be skipped
  1 - No skip trigger, analysis should proceed

Example usage in CI:
  if ./ct check-skip --commit-message "$HEAD_COMMIT_MESSAGE"; then
    echo "Skipping analysis"
    exit 0
  fi`,
		RunE: func(cmd *cobra.Command, args []string) error {
			result := skip.Check(skip.CheckRequest{
				CommitMessages: commitMessages,
				Title:          title,
				Description:    description,
			})

			if result.ShouldSkip {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "skip: %s\n", result.Reason)
				return nil // Exit 0
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "analyze: no skip trigger found")
			return ErrShouldAnalyze // Exit 1
		},
	}

	cmd.Flags().StringArrayVar(&commitMessages, "commit-message", nil, "Commit message(s) to check (can be repeated)")
	cmd.Flags().StringVar(&title, "title", "", "Change title to check")
	cmd.Flags().StringVar(&description, "description", "", "Change description/body to check")

	return cmd
}
