// Package dialect is the registry of database dialects. A dialect renders
// migration commands as SQL and opens connections that can run them.
package dialect

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"migplan/internal/apply"
	"migplan/internal/introspect"
	"migplan/internal/migration"
)

type Type string

const (
	MySQL Type = "mysql"
)

// Options are passed to dialect constructors.
type Options struct {
	TypePrefix string
	Logger     *zap.Logger
}

// Conn is an open connection able to run and preview commands.
type Conn interface {
	apply.QueryInterface
	apply.Previewer
	Close() error
}

// Dialect renders and runs migration commands for one database.
type Dialect interface {
	Name() Type
	Statements(cmd migration.Command) ([]string, error)
	Open(ctx context.Context, dsn string) (Conn, error)
	// Detached returns a Conn that previews commands without a database.
	Detached() Conn
	// Inspect reads the live schema of the database at dsn.
	Inspect(ctx context.Context, dsn string) (*introspect.Database, error)
}

var (
	mu       sync.RWMutex
	registry = map[Type]func(Options) Dialect{}
)

// RegisterDialect adds a dialect constructor to the registry.
func RegisterDialect(d Type, ctor func(Options) Dialect) {
	mu.Lock()
	defer mu.Unlock()
	registry[d] = ctor
}

// GetDialect builds the dialect registered under name. Names are matched
// case-insensitively.
func GetDialect(name string, opts Options) (Dialect, error) {
	mu.RLock()
	ctor, ok := registry[Type(strings.ToLower(strings.TrimSpace(name)))]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown dialect %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return ctor(opts), nil
}

// Names returns the registered dialect names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for t := range registry {
		names = append(names, string(t))
	}
	sort.Strings(names)
	return names
}
