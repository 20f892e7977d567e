// Package model describes live data-model definitions as an application holds
// them at runtime. They are the input of the normalizer and may carry things a
// snapshot cannot: behavior (getters, setters, validators), bookkeeping fields
// and function-valued defaults.
package model

import "migplan/internal/core"

// Constructor is implemented by default values that stand for a runtime
// constructor, such as the current timestamp. They are emitted as code
// expressions rather than literals.
type Constructor interface {
	ConstructorName() string
}

// Func is a Constructor identified by name.
type Func string

// ConstructorName implements Constructor.
func (f Func) ConstructorName() string { return string(f) }

// Common constructor defaults.
const (
	Now    Func = "NOW"
	UUIDV1 Func = "UUIDV1"
	UUIDV4 Func = "UUIDV4"
)

// Attribute is one attribute of a model.
type Attribute struct {
	Name  string
	Field string

	// Type is nil when the definition carries no type object. TypeHint is the
	// textual form of the type, when known.
	Type     *core.ColumnType
	TypeHint string

	AllowNull     *bool
	PrimaryKey    bool
	AutoIncrement bool
	Unique        bool
	Comment       string
	DefaultValue  any
	References    *core.Reference
	OnUpdate      string
	OnDelete      string

	// Properties holds everything else the definition carries.
	Properties map[string]any
}

// Index is an index declared on a model.
type Index struct {
	Fields []string
	Unique bool
	Name   string
	Type   string
	Using  string
	Parser string
}

// Model is a live model definition.
type Model struct {
	Name       string
	TableName  string
	Attributes []*Attribute
	Indexes    []Index
	Charset    string
}

// Table returns the table the model maps to.
func (m *Model) Table() string {
	if m.TableName != "" {
		return m.TableName
	}
	return m.Name
}

// Bool returns a pointer to b, for AllowNull.
func Bool(b bool) *bool { return &b }
