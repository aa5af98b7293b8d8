package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"crudgen/internal/schema"
)

// ErrLintFailed is returned when lint finds a blocking issue.
var ErrLintFailed = errors.New("lint: blocking issues found")

// LintCmd returns the lint command.
func LintCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Report every problem in the entity descriptors",
		Long: `Check the descriptors without writing anything. Unlike migrate, lint does
not stop at the first fatal problem.

Exit status is non-zero when a blocking issue is found, or on any issue
with --strict.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			entities, err := e.load()
			if err != nil {
				return err
			}
			issues := schema.Lint(entities, e.cfg.SchemaDialect(), e.options())
			out := cmd.OutOrStdout()
			if len(issues) == 0 {
				fmt.Fprintln(out, color.New(color.FgHiGreen).Sprintf("%d entities, no issues", len(entities)))
				return nil
			}
			printIssues(out, issues)
			for _, it := range issues {
				if strict || fatalCode(it.Code) {
					return ErrLintFailed
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "treat warnings as failures")
	return cmd
}

func fatalCode(code string) bool {
	switch code {
	case schema.CodeUnresolvedTarget, schema.CodeInvalidJoinTable, schema.CodeInvalidSchema:
		return true
	}
	return false
}

func printIssues(out io.Writer, issues []schema.Issue) {
	for _, it := range issues {
		mark := color.New(color.FgYellow).Sprint("warn")
		if fatalCode(it.Code) {
			mark = color.New(color.FgRed).Sprint("error")
		}
		fmt.Fprintf(out, "%s %s\n", mark, it)
	}
}
