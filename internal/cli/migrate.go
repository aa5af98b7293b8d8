package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"crudgen/internal/migrate"
)

// MigrateCmd returns the migrate command.
func MigrateCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Write versioned migration scripts for changed entities",
		Long: `Compare the entity descriptors against the migration manifest and write
the next version of migration scripts under db/migrations.

Only additive changes are emitted. Removed columns, type changes and other
non-additive differences are reported as issues and left to a hand-written
migration.

Examples:
  crudgen migrate
  crudgen migrate --dialect mysql
  crudgen migrate --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			if watch {
				return e.watch(cmd.Context(), cmd.OutOrStdout())
			}
			_, err = e.migrate(cmd.OutOrStdout())
			return err
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-run whenever a descriptor changes")
	return cmd
}

func (e *env) migrate(out io.Writer) (*migrate.Report, error) {
	entities, err := e.load()
	if err != nil {
		return nil, err
	}
	rep, err := migrate.Generate(entities, e.cfg.SchemaDialect(), e.cfg.ProjectRoot, migrate.Options{Options: e.options()})
	if err != nil {
		return nil, err
	}
	printReport(out, e.cfg.ProjectRoot, rep)
	return rep, nil
}

func printReport(out io.Writer, root string, rep *migrate.Report) {
	fmt.Fprintf(out, "%d new, %d changed, %d unchanged\n",
		rep.Count(migrate.StatusNew), rep.Count(migrate.StatusChanged), rep.Count(migrate.StatusUnchanged))

	switch rep.State {
	case migrate.StateClean:
		fmt.Fprintln(out, color.New(color.FgHiGreen).Sprint("schema up to date"))
	case migrate.StatePersisted:
		fmt.Fprintf(out, "%s version %d (run %s)\n", color.New(color.FgHiGreen).Sprint("wrote"), rep.Version, rep.RunID)
		for _, s := range rep.Scripts {
			rel, err := filepath.Rel(root, s.Path)
			if err != nil {
				rel = s.Path
			}
			fmt.Fprintf(out, "  %s (%d statements)\n", rel, len(s.Statements))
		}
	}
	printIssues(out, rep.Issues)
}
