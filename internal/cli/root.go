// Package cli holds the crudgen subcommands.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"crudgen/internal/config"
	"crudgen/internal/dsl"
	"crudgen/internal/reference"
	"crudgen/internal/schema"
	"crudgen/internal/version"
)

// AddGlobalFlags registers the shared flags on the root command. Values are
// read back from the flag set of the command being run, so each root owns
// its own state.
func AddGlobalFlags(root *cobra.Command) {
	pf := root.PersistentFlags()
	pf.String("config", config.FileName, "path to the project config file")
	pf.String("root", "", "project root (overrides config)")
	pf.String("dialect", "", "target dialect: postgres, mysql, sqlite, sqlserver")
	pf.Bool("audit", false, "add audit columns to every entity by default")
	pf.Bool("lock", false, "add the optimistic locking column to every entity by default")
	pf.BoolP("verbose", "v", false, "debug logging")
}

// loadConfig layers explicitly set flags over the file and env config.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	pf := cmd.Flags()
	path, err := pf.GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if pf.Changed("root") {
		cfg.ProjectRoot, _ = pf.GetString("root")
	}
	if pf.Changed("dialect") {
		cfg.Dialect, _ = pf.GetString("dialect")
	}
	if pf.Changed("audit") {
		cfg.Audit, _ = pf.GetBool("audit")
	}
	if pf.Changed("lock") {
		cfg.OptimisticLock, _ = pf.GetBool("lock")
	}
	if verbose, _ := pf.GetBool("verbose"); verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, cfg.Validate()
}

func newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	lvl, _ := cfg.Level()
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// env is what every command needs after flag parsing.
type env struct {
	cfg    config.Config
	logger *slog.Logger
}

func setup(cmd *cobra.Command) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: newLogger(cmd.ErrOrStderr(), cfg)}, nil
}

func (e *env) loader() func() ([]*dsl.Entity, map[string]reference.EnumDirectory, error) {
	return func() ([]*dsl.Entity, map[string]reference.EnumDirectory, error) {
		return dsl.LoadProject(e.cfg.Path(e.cfg.EntitiesDir), e.cfg.Path(e.cfg.EnumsDir))
	}
}

func (e *env) load() ([]*dsl.Entity, error) {
	entities, enums, err := e.loader()()
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	e.logger.Debug("model loaded", "entities", len(entities), "catalogs", len(enums))
	return entities, nil
}

func (e *env) options() schema.Options {
	return e.cfg.SchemaOptions(e.logger)
}

// NewRootCmd assembles the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "crudgen",
		Short:   "crudgen - relational schema and migration generator",
		Version: version.String(),
		Long: `crudgen turns entity descriptors (.dsl and .yaml) into a relational schema
for PostgreSQL, MySQL, SQLite or SQL Server, and keeps a versioned trail of
migration scripts in step with them.`,
		SilenceUsage: true,
	}
	AddGlobalFlags(root)

	root.AddCommand(MigrateCmd())
	root.AddCommand(SynthCmd())
	root.AddCommand(LintCmd())
	root.AddCommand(ServeCmd())
	root.AddCommand(VersionCmd())
	return root
}
