// Package mysql runs migration commands against MySQL. It renders each
// command as DDL, checks the statements with the TiDB parser and executes
// them over database/sql.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql" // registers the "mysql" database/sql driver
	"go.uber.org/zap"

	"migplan/internal/apply"
	"migplan/internal/dialect"
	"migplan/internal/introspect"
	introspectmysql "migplan/internal/introspect/mysql"
	"migplan/internal/migration"
)

func init() {
	dialect.RegisterDialect(dialect.MySQL, func(opts dialect.Options) dialect.Dialect {
		return NewDialect(opts)
	})
}

// Dialect is the MySQL entry of the dialect registry.
type Dialect struct {
	generator *Generator
	analyzer  *Analyzer
	logger    *zap.Logger
}

// NewDialect returns the MySQL dialect.
func NewDialect(opts dialect.Options) *Dialect {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dialect{generator: NewGenerator(opts.TypePrefix), analyzer: NewAnalyzer(), logger: logger}
}

// Name returns dialect.MySQL.
func (d *Dialect) Name() dialect.Type {
	return dialect.MySQL
}

// Statements renders cmd as DDL without a connection.
func (d *Dialect) Statements(cmd migration.Command) ([]string, error) {
	return d.generator.Statements(cmd)
}

// Annotate returns the analyzer findings of stmt.
func (d *Dialect) Annotate(stmt string) []string {
	var notes []string
	for _, f := range d.analyzer.Analyze(stmt).Findings {
		notes = append(notes, f.String())
	}
	return notes
}

// Open connects to dsn.
func (d *Dialect) Open(ctx context.Context, dsn string) (dialect.Conn, error) {
	db, err := Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return NewDB(db, d.generator, d.logger), nil
}

// Detached returns a connection without a database. It can preview
// commands; running them fails.
func (d *Dialect) Detached() dialect.Conn {
	return NewDB(nil, d.generator, d.logger)
}

// Inspect connects to dsn and reads the schema of its database.
func (d *Dialect) Inspect(ctx context.Context, dsn string) (*introspect.Database, error) {
	db, err := Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := db.Close(); err != nil {
			d.logger.Warn("failed to close connection", zap.Error(err))
		}
	}()

	live, err := introspectmysql.New().Introspect(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("inspect database: %w", err)
	}
	d.logger.Debug("inspected database", zap.String("database", live.Name),
		zap.String("flavor", live.Flavor), zap.String("version", live.Version), zap.Int("tables", len(live.Tables)))
	return live, nil
}

// Connect opens a connection pool and checks that the server answers.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("DSN is required")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if pingErr := db.PingContext(ctx); pingErr != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database: %v; additionally failed to close connection: %w", pingErr, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", pingErr)
	}
	return db, nil
}

// DB is a query interface over a MySQL connection pool.
type DB struct {
	db       *sql.DB
	gen      *Generator
	analyzer *Analyzer
	logger   *zap.Logger
}

// ErrNotConnected is returned when a detached DB is asked to run SQL.
var ErrNotConnected = errors.New("not connected to a database")

var (
	_ apply.QueryInterface = (*DB)(nil)
	_ apply.Previewer      = (*DB)(nil)
)

// NewDB wraps db. A nil logger discards log output.
func NewDB(db *sql.DB, gen *Generator, logger *zap.Logger) *DB {
	if gen == nil {
		gen = NewGenerator("")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DB{db: db, gen: gen, analyzer: NewAnalyzer(), logger: logger}
}

// Close closes the pool.
func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) Commit() error   { return t.tx.Commit() }
func (t *sqlTx) Rollback() error { return t.tx.Rollback() }

// Begin starts a transaction. MySQL commits DDL implicitly, so a rollback
// only undoes the statements that are not DDL.
func (d *DB) Begin(ctx context.Context) (apply.Tx, error) {
	if d.db == nil {
		return nil, ErrNotConnected
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlTx{tx: tx}, nil
}

// Preview returns the statements cmd would run, each followed by the
// findings of the analyzer as SQL comments.
func (d *DB) Preview(cmd migration.Command) ([]string, error) {
	stmts, err := d.gen.Statements(cmd)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, s := range stmts {
		lines = append(lines, s)
		for _, f := range d.analyzer.Analyze(s).Findings {
			lines = append(lines, "-- "+f.String())
		}
	}
	return lines, nil
}

func (d *DB) CreateTable(ctx context.Context, table string, attrs migration.Object, opts apply.CallOptions) error {
	stmt, err := d.gen.CreateTable(table, attrs, opts.Options)
	if err != nil {
		return err
	}
	return d.exec(ctx, stmt, opts.Tx)
}

func (d *DB) DropTable(ctx context.Context, table string, opts apply.CallOptions) error {
	return d.exec(ctx, d.gen.DropTable(table), opts.Tx)
}

func (d *DB) AddColumn(ctx context.Context, table, column string, attrs migration.Object, opts apply.CallOptions) error {
	stmt, err := d.gen.AddColumn(table, column, attrs)
	if err != nil {
		return err
	}
	return d.exec(ctx, stmt, opts.Tx)
}

func (d *DB) RemoveColumn(ctx context.Context, table, column string, opts apply.CallOptions) error {
	return d.exec(ctx, d.gen.RemoveColumn(table, column), opts.Tx)
}

func (d *DB) ChangeColumn(ctx context.Context, table, column string, attrs migration.Object, opts apply.CallOptions) error {
	stmt, err := d.gen.ChangeColumn(table, column, attrs)
	if err != nil {
		return err
	}
	return d.exec(ctx, stmt, opts.Tx)
}

func (d *DB) AddIndex(ctx context.Context, table string, fields []string, opts apply.CallOptions) error {
	stmt, err := d.gen.AddIndex(table, fields, opts.Options)
	if err != nil {
		return err
	}
	return d.exec(ctx, stmt, opts.Tx)
}

func (d *DB) RemoveIndex(ctx context.Context, table string, ref apply.IndexRef, opts apply.CallOptions) error {
	return d.exec(ctx, d.gen.RemoveIndex(table, ref), opts.Tx)
}

func (d *DB) exec(ctx context.Context, stmt string, tx apply.Tx) error {
	if d.db == nil {
		return ErrNotConnected
	}
	an := d.analyzer.Analyze(stmt)
	if !an.Parsed {
		d.logger.Debug("statement not understood by the analyzer", zap.String("sql", stmt))
	}
	for _, f := range an.Findings {
		d.logger.Info(f.Message, zap.String("level", string(f.Level)), zap.String("sql", stmt))
	}

	if tx == nil {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute %q: %w", stmt, err)
		}
		return nil
	}

	st, ok := tx.(*sqlTx)
	if !ok {
		return fmt.Errorf("transaction of type %T does not belong to this connection", tx)
	}
	if an.ImplicitCommit {
		d.logger.Warn("statement commits implicitly; a rollback will not undo it",
			zap.String("type", an.StatementType), zap.String("sql", stmt))
	}
	if _, err := st.tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to execute %q: %w", stmt, err)
	}
	return nil
}
