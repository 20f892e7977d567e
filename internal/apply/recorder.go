package apply

import (
	"context"
	"slices"
	"sync"

	"migplan/internal/migration"
)

// Call is one recorded query-interface call.
type Call struct {
	Method  string
	Table   string
	Column  string
	Fields  []string
	Ref     IndexRef
	Attrs   migration.Object
	Options migration.Object
	InTx    bool
}

// Recorder is an in-memory QueryInterface. It records every call and fails
// the calls Fail returns an error for.
type Recorder struct {
	Fail        func(Call) error
	BeginErr    error
	CommitErr   error
	RollbackErr error

	mu        sync.Mutex
	calls     []Call
	commits   int
	rollbacks int
}

var _ QueryInterface = (*Recorder)(nil)

type recorderTx struct{ r *Recorder }

func (t recorderTx) Commit() error {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()
	t.r.commits++
	return t.r.CommitErr
}

func (t recorderTx) Rollback() error {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()
	t.r.rollbacks++
	return t.r.RollbackErr
}

// Calls returns the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// Methods returns the method names of the recorded calls.
func (r *Recorder) Methods() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.Method
	}
	return out
}

// Commits returns how many transactions were committed.
func (r *Recorder) Commits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.commits
}

// Rollbacks returns how many transactions were rolled back.
func (r *Recorder) Rollbacks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rollbacks
}

func (r *Recorder) Begin(context.Context) (Tx, error) {
	if r.BeginErr != nil {
		return nil, r.BeginErr
	}
	return recorderTx{r: r}, nil
}

func (r *Recorder) record(c Call, opts CallOptions) error {
	c.Options = opts.Options
	c.InTx = opts.Tx != nil
	if r.Fail != nil {
		if err := r.Fail(c); err != nil {
			return err
		}
	}
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) CreateTable(_ context.Context, table string, attrs migration.Object, opts CallOptions) error {
	return r.record(Call{Method: "createTable", Table: table, Attrs: attrs}, opts)
}

func (r *Recorder) DropTable(_ context.Context, table string, opts CallOptions) error {
	return r.record(Call{Method: "dropTable", Table: table}, opts)
}

func (r *Recorder) AddColumn(_ context.Context, table, column string, attrs migration.Object, opts CallOptions) error {
	return r.record(Call{Method: "addColumn", Table: table, Column: column, Attrs: attrs}, opts)
}

func (r *Recorder) RemoveColumn(_ context.Context, table, column string, opts CallOptions) error {
	return r.record(Call{Method: "removeColumn", Table: table, Column: column}, opts)
}

func (r *Recorder) ChangeColumn(_ context.Context, table, column string, attrs migration.Object, opts CallOptions) error {
	return r.record(Call{Method: "changeColumn", Table: table, Column: column, Attrs: attrs}, opts)
}

func (r *Recorder) AddIndex(_ context.Context, table string, fields []string, opts CallOptions) error {
	return r.record(Call{Method: "addIndex", Table: table, Fields: fields}, opts)
}

func (r *Recorder) RemoveIndex(_ context.Context, table string, ref IndexRef, opts CallOptions) error {
	return r.record(Call{Method: "removeIndex", Table: table, Ref: ref}, opts)
}
