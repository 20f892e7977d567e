// Package apply runs migration commands against a query interface. Commands
// run strictly one after another, optionally inside a single transaction, and
// a failed run reports the position it can be resumed from.
package apply

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"migplan/internal/migration"
)

// ErrInvalidPosition is returned when the start position is outside the
// command list.
var ErrInvalidPosition = errors.New("invalid start position")

// Tx is a transaction handed out by a query interface.
type Tx interface {
	Commit() error
	Rollback() error
}

// CallOptions are the options of one query-interface call. Tx is the bound
// transaction, nil outside transactional runs. Options hold the remaining
// command options.
type CallOptions struct {
	Tx      Tx
	Options migration.Object
}

// IndexRef names an index to remove, by name or by its fields.
type IndexRef struct {
	Name   string
	Fields []string
}

// QueryInterface performs schema changes on a database.
type QueryInterface interface {
	Begin(ctx context.Context) (Tx, error)
	CreateTable(ctx context.Context, table string, attrs migration.Object, opts CallOptions) error
	DropTable(ctx context.Context, table string, opts CallOptions) error
	AddColumn(ctx context.Context, table, column string, attrs migration.Object, opts CallOptions) error
	RemoveColumn(ctx context.Context, table, column string, opts CallOptions) error
	ChangeColumn(ctx context.Context, table, column string, attrs migration.Object, opts CallOptions) error
	AddIndex(ctx context.Context, table string, fields []string, opts CallOptions) error
	RemoveIndex(ctx context.Context, table string, ref IndexRef, opts CallOptions) error
}

// Previewer is implemented by query interfaces that can describe a command
// without running it. Dry runs print the returned lines.
type Previewer interface {
	Preview(cmd migration.Command) ([]string, error)
}

// ExecutionError reports the command a run stopped at. Position is the index
// of that command; a run without transaction can be resumed from it.
type ExecutionError struct {
	Position   int
	ActionName string
	Table      string
	Err        error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("command %d (%s %s) failed: %v", e.Position, e.ActionName, e.Table, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Options configure an Executor.
type Options struct {
	DryRun bool
	Out    io.Writer
	Logger *zap.Logger
}

// Executor runs commands against a query interface.
type Executor struct {
	qi      QueryInterface
	options Options
	out     io.Writer
	logger  *zap.Logger
}

// NewExecutor returns an executor for qi.
func NewExecutor(qi QueryInterface, options Options) *Executor {
	out := options.Out
	if out == nil {
		out = io.Discard
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{qi: qi, options: options, out: out, logger: logger}
}

func (e *Executor) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(e.out, format, args...)
}

func (e *Executor) println(args ...any) {
	_, _ = fmt.Fprintln(e.out, args...)
}

// Up runs the up commands of a.
func (e *Executor) Up(ctx context.Context, a *migration.Artifact, useTransaction bool, position int) error {
	return e.Execute(ctx, a.Up, useTransaction, position)
}

// Down runs the down commands of a.
func (e *Executor) Down(ctx context.Context, a *migration.Artifact, useTransaction bool, position int) error {
	return e.Execute(ctx, a.Down, useTransaction, position)
}

// Execute runs cmds[position:]. With useTransaction all commands share one
// transaction that is rolled back on the first failure.
func (e *Executor) Execute(ctx context.Context, cmds []migration.Command, useTransaction bool, position int) error {
	if position < 0 || position > len(cmds) {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidPosition, position, len(cmds))
	}
	if e.options.DryRun {
		return e.dryRun(cmds, position)
	}
	if !useTransaction {
		return e.run(ctx, cmds, position, nil)
	}

	tx, err := e.qi.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := e.run(ctx, cmds, position, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return multierr.Append(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		e.logger.Warn("transaction rolled back", zap.Error(err))
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (e *Executor) run(ctx context.Context, cmds []migration.Command, position int, tx Tx) error {
	for i := position; i < len(cmds); i++ {
		cmd := cmds[i]
		if err := ctx.Err(); err != nil {
			return &ExecutionError{Position: i, ActionName: cmd.ActionName, Table: cmd.Table(), Err: err}
		}

		e.logger.Info("execute", zap.Int("index", i), zap.String("action", cmd.ActionName), zap.String("table", cmd.Table()))
		e.printf("[%d] execute: %s %s\n", i, cmd.ActionName, cmd.Table())
		if err := dispatch(ctx, e.qi, cmd, tx); err != nil {
			return &ExecutionError{Position: i, ActionName: cmd.ActionName, Table: cmd.Table(), Err: err}
		}
	}
	e.printf("Successfully applied %d commands\n", len(cmds)-position)
	return nil
}

func (e *Executor) dryRun(cmds []migration.Command, position int) error {
	e.println("=== DRY RUN MODE ===")
	previewer, _ := e.qi.(Previewer)
	for i := position; i < len(cmds); i++ {
		cmd := cmds[i]
		e.printf("%d. %s %s\n", i, cmd.ActionName, cmd.Table())
		if previewer == nil {
			continue
		}
		lines, err := previewer.Preview(cmd)
		if err != nil {
			return &ExecutionError{Position: i, ActionName: cmd.ActionName, Table: cmd.Table(), Err: err}
		}
		for _, line := range lines {
			e.printf("    %s\n", line)
		}
	}
	e.println("=== DRY RUN COMPLETE ===")
	return nil
}
