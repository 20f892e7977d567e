package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"migplan/internal/apply"
	"migplan/internal/dialect"
	"migplan/internal/migration"
)

type runFlags struct {
	position int
	dryRun   bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.position, "position", "p", 0, "Index of the first command to run")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Print the SQL instead of running it")
}

func newUpCmd(a *app) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "up [revision]",
		Short: "Run the up commands of a migration (default: the latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			revision := -1
			if len(args) == 1 {
				rev, err := migration.ParseRevision(args[0])
				if err != nil {
					return err
				}
				revision = rev
			}
			return a.execute(cmd.Context(), revision, false, flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func newDownCmd(a *app) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "down <revision>",
		Short: "Run the rollback commands of a migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			revision, err := migration.ParseRevision(args[0])
			if err != nil {
				return err
			}
			return a.execute(cmd.Context(), revision, true, flags)
		},
	}
	flags.register(cmd)
	return cmd
}

// execute runs one direction of a migration. A negative revision selects the
// latest script in the store.
func (a *app) execute(ctx context.Context, revision int, rollback bool, flags runFlags) error {
	store, err := a.store()
	if err != nil {
		return err
	}
	if revision < 0 {
		entries, err := store.List()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return fmt.Errorf("no migrations found in %s", store.Dir())
		}
		revision = entries[len(entries)-1].Revision
	}
	art, err := store.Find(revision)
	if err != nil {
		return err
	}

	conn, err := a.connect(ctx, flags.dryRun)
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			a.logger.Warn("failed to close connection", zap.Error(err))
		}
	}()

	direction := "up"
	if rollback {
		direction = "down"
	}
	a.logger.Info("running migration", zap.Int("revision", revision), zap.String("direction", direction),
		zap.Int("position", flags.position), zap.Bool("transaction", a.cfg.UseTransaction))

	exec := apply.NewExecutor(conn, apply.Options{DryRun: flags.dryRun, Out: a.out, Logger: a.logger})
	if rollback {
		err = exec.Down(ctx, art, a.cfg.UseTransaction, flags.position)
	} else {
		err = exec.Up(ctx, art, a.cfg.UseTransaction, flags.position)
	}

	var execErr *apply.ExecutionError
	if errors.As(err, &execErr) && !a.cfg.UseTransaction {
		a.printf("Resume with: migplan %s %d --position %d\n", direction, revision, execErr.Position)
	}
	return err
}

func (a *app) connect(ctx context.Context, dryRun bool) (dialect.Conn, error) {
	d, err := a.dialect()
	if err != nil {
		return nil, err
	}
	if dryRun {
		return d.Detached(), nil
	}
	if err := a.cfg.RequireDSN(); err != nil {
		return nil, err
	}
	return d.Open(ctx, a.cfg.DSN)
}
