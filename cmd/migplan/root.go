package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"migplan/internal/config"
	"migplan/internal/core"
	"migplan/internal/dialect"
	"migplan/internal/logger"
	"migplan/internal/migration"
	"migplan/internal/normalize"
	"migplan/internal/output"
	schema "migplan/internal/parser"
)

// app holds what every command shares. cfg and logger are set once the
// flags have been parsed.
type app struct {
	fs  afero.Fs
	out io.Writer
	now func() time.Time

	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "migplan",
		Short:        "Plan and run schema migrations from model definitions",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.Init(cmd); err != nil {
				return err
			}
			cfg := config.Load(cmd)
			if err := cfg.Validate(); err != nil {
				return err
			}
			l, err := logger.New(cfg.LogLevel)
			if err != nil {
				return err
			}
			a.cfg, a.logger = cfg, l
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetOut(a.out)
	config.RegisterFlags(root)

	root.AddCommand(newGenerateCmd(a))
	root.AddCommand(newPlanCmd(a))
	root.AddCommand(newUpCmd(a))
	root.AddCommand(newDownCmd(a))
	root.AddCommand(newStatusCmd(a))
	root.AddCommand(newVerifyCmd(a))
	return root
}

func (a *app) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}

func (a *app) store() (*migration.Store, error) {
	return migration.NewStore(a.fs, a.cfg.MigrationsDir)
}

// snapshot reads the model file and normalizes it.
func (a *app) snapshot() (*core.Snapshot, *core.Warnings, error) {
	models, err := schema.ParseFS(a.fs, a.cfg.ModelsFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read models: %w", err)
	}
	w := core.NewWarnings(a.logger)
	return normalize.Normalize(models, normalize.Options{TypePrefix: a.cfg.TypePrefix}, w), w, nil
}

func (a *app) dialect() (dialect.Dialect, error) {
	return dialect.GetDialect(a.cfg.Dialect, dialect.Options{TypePrefix: a.cfg.TypePrefix, Logger: a.logger})
}

func (a *app) formatter() (output.Formatter, error) {
	d, err := a.dialect()
	if err != nil {
		return nil, err
	}
	return output.NewFormatter(a.cfg.Format, d)
}
