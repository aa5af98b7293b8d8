package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"crudgen/internal/migrate"
	"crudgen/internal/schema"
)

// SynthCmd returns the synth command.
func SynthCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Print the relational schema of the current descriptors",
		Long: `Synthesize the full schema and print it, without reading or writing the
migration manifest.

Examples:
  crudgen synth                     # create script for the configured dialect
  crudgen synth --dialect sqlite
  crudgen synth --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			entities, err := e.load()
			if err != nil {
				return err
			}
			d := e.cfg.SchemaDialect()
			s, err := schema.Synthesize(entities, d, e.options())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			case "ddl", "sql":
				r := migrate.Renderer{Dialect: d}
				_, err := fmt.Fprint(out, migrate.Format(fmt.Sprintf("schema\ndialect: %s", d), r.DDL(s)))
				if err != nil {
					return err
				}
				printIssues(cmd.ErrOrStderr(), s.Issues)
				return nil
			default:
				return fmt.Errorf("unknown format %q (want ddl or json)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "ddl", "output format: ddl or json")
	return cmd
}
