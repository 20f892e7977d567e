package mysql

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"

	"migplan/internal/apply"
	"migplan/internal/core"
	"migplan/internal/migration"
)

const mysqlMaxIdentLen = 64

var (
	reNonWord      = regexp.MustCompile(`\W+`)
	reIdentOption  = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
	validIndexAlgo = map[string]bool{"BTREE": true, "HASH": true}
)

// Generator renders migration commands as MySQL DDL. It is stateless apart
// from the type prefix used by the command type expressions.
type Generator struct {
	typePrefix string
}

// NewGenerator returns a generator reading type expressions with prefix.
// An empty prefix means core.DefaultTypePrefix.
func NewGenerator(typePrefix string) *Generator {
	if typePrefix == "" {
		typePrefix = core.DefaultTypePrefix
	}
	return &Generator{typePrefix: typePrefix}
}

// Statements returns the DDL statements of one command.
func (g *Generator) Statements(cmd migration.Command) ([]string, error) {
	a, err := apply.DecodeArgs(cmd)
	if err != nil {
		return nil, err
	}

	var stmt string
	switch cmd.ActionName {
	case "createTable":
		stmt, err = g.CreateTable(a.Table, a.Attrs, a.Options)
	case "dropTable":
		stmt = g.DropTable(a.Table)
	case "addColumn":
		stmt, err = g.AddColumn(a.Table, a.Column, a.Attrs)
	case "changeColumn":
		stmt, err = g.ChangeColumn(a.Table, a.Column, a.Attrs)
	case "removeColumn":
		stmt = g.RemoveColumn(a.Table, a.Column)
	case "addIndex":
		stmt, err = g.AddIndex(a.Table, a.Fields, a.Options)
	case "removeIndex":
		stmt = g.RemoveIndex(a.Table, a.Ref)
	}
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", cmd.ActionName, a.Table, err)
	}
	return []string{stmt}, nil
}

// CreateTable renders CREATE TABLE. Attribute keys are column names unless
// the attributes carry a field name.
func (g *Generator) CreateTable(table string, columns, opts migration.Object) (string, error) {
	var (
		lines []string
		pk    []string
		fks   []string
	)
	for _, p := range columns {
		attrs, ok := p.Value.(migration.Object)
		if !ok {
			return "", fmt.Errorf("column %s: attributes are not an object", p.Key)
		}
		name := p.Key
		if field := attrs.GetString("field"); field != "" {
			name = field
		}
		def, err := g.columnDefinition(name, attrs, false)
		if err != nil {
			return "", fmt.Errorf("column %s: %w", p.Key, err)
		}
		lines = append(lines, "  "+def)
		if attrs.GetBool("primaryKey") {
			pk = append(pk, name)
		}
		if fk := g.foreignKey(name, attrs); fk != "" {
			fks = append(fks, "  "+fk)
		}
	}
	if len(lines) == 0 {
		return "", fmt.Errorf("table %s has no columns", table)
	}
	if len(pk) > 0 {
		lines = append(lines, "  PRIMARY KEY "+g.formatColumns(pk))
	}
	lines = append(lines, fks...)

	return fmt.Sprintf("CREATE TABLE %s (\n%s\n)%s;", g.QuoteIdentifier(table), strings.Join(lines, ",\n"), g.tableOptions(opts)), nil
}

func (g *Generator) tableOptions(opts migration.Object) string {
	var parts []string
	if engine := strings.TrimSpace(opts.GetString("engine")); reIdentOption.MatchString(engine) {
		parts = append(parts, "ENGINE="+engine)
	}
	if charset := strings.TrimSpace(opts.GetString("charset")); reIdentOption.MatchString(charset) {
		parts = append(parts, "DEFAULT CHARSET="+charset)
	}
	if collate := strings.TrimSpace(opts.GetString("collate")); reIdentOption.MatchString(collate) {
		parts = append(parts, "COLLATE="+collate)
	}
	if comment := strings.TrimSpace(opts.GetString("comment")); comment != "" {
		parts = append(parts, "COMMENT="+g.QuoteString(comment))
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}

// DropTable renders DROP TABLE.
func (g *Generator) DropTable(table string) string {
	return fmt.Sprintf("DROP TABLE %s;", g.QuoteIdentifier(table))
}

// AddColumn renders ALTER TABLE ... ADD COLUMN, with the foreign key of the
// column when it references another table.
func (g *Generator) AddColumn(table, column string, attrs migration.Object) (string, error) {
	def, err := g.columnDefinition(column, attrs, true)
	if err != nil {
		return "", err
	}
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", g.QuoteIdentifier(table), def)
	if fk := g.foreignKey(column, attrs); fk != "" {
		stmt += ", ADD " + fk
	}
	return stmt + ";", nil
}

// ChangeColumn renders ALTER TABLE ... MODIFY COLUMN. Key attributes are not
// repeated: primary keys and foreign keys stay as they are.
func (g *Generator) ChangeColumn(table, column string, attrs migration.Object) (string, error) {
	def, err := g.columnDefinition(column, attrs.Without("primaryKey", "unique"), false)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s;", g.QuoteIdentifier(table), def), nil
}

// RemoveColumn renders ALTER TABLE ... DROP COLUMN.
func (g *Generator) RemoveColumn(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", g.QuoteIdentifier(table), g.QuoteIdentifier(column))
}

// AddIndex renders CREATE INDEX. Unnamed indexes get the name IndexName
// returns.
func (g *Generator) AddIndex(table string, fields []string, opts migration.Object) (string, error) {
	if len(fields) == 0 {
		return "", fmt.Errorf("index on %s has no fields", table)
	}
	name := strings.TrimSpace(opts.GetString("name"))
	if name == "" {
		name = IndexName(table, fields)
	}

	kind := ""
	switch typ := strings.ToUpper(strings.TrimSpace(opts.GetString("type"))); {
	case opts.GetBool("unique") || typ == "UNIQUE":
		kind = "UNIQUE "
	case typ == "FULLTEXT", typ == "SPATIAL":
		kind = typ + " "
	case typ != "":
		return "", fmt.Errorf("unknown index type %q", typ)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE %sINDEX %s ON %s %s", kind, g.QuoteIdentifier(name), g.QuoteIdentifier(table), g.formatColumns(fields))
	if using := strings.ToUpper(strings.TrimSpace(opts.GetString("using"))); using != "" {
		if !validIndexAlgo[using] {
			return "", fmt.Errorf("unknown index method %q", using)
		}
		b.WriteString(" USING " + using)
	}
	if parser := strings.TrimSpace(opts.GetString("parser")); parser != "" {
		if !reIdentOption.MatchString(parser) {
			return "", fmt.Errorf("invalid index parser %q", parser)
		}
		b.WriteString(" WITH PARSER " + parser)
	}
	b.WriteString(";")
	return b.String(), nil
}

// RemoveIndex renders DROP INDEX.
func (g *Generator) RemoveIndex(table string, ref apply.IndexRef) string {
	name := strings.TrimSpace(ref.Name)
	if name == "" {
		name = IndexName(table, ref.Fields)
	}
	return fmt.Sprintf("DROP INDEX %s ON %s;", g.QuoteIdentifier(name), g.QuoteIdentifier(table))
}

func (g *Generator) columnDefinition(name string, attrs migration.Object, inlinePK bool) (string, error) {
	typ, _ := attrs.Get("type")
	expr, ok := typeText(typ)
	if !ok {
		return "", fmt.Errorf("column %s has no type", name)
	}
	sqlType, err := g.columnType(expr)
	if err != nil {
		return "", err
	}

	parts := []string{g.QuoteIdentifier(name), sqlType}

	allowNull := true
	if v, ok := attrs.Get("allowNull"); ok {
		if b, ok := v.(bool); ok {
			allowNull = b
		}
	}
	pk := attrs.GetBool("primaryKey")
	if allowNull && !pk {
		parts = append(parts, "NULL")
	} else {
		parts = append(parts, "NOT NULL")
	}
	if attrs.GetBool("autoIncrement") {
		parts = append(parts, "AUTO_INCREMENT")
	}
	if attrs.GetBool("unique") {
		parts = append(parts, "UNIQUE")
	}
	if inlinePK && pk {
		parts = append(parts, "PRIMARY KEY")
	}
	if v, ok := attrs.Get("defaultValue"); ok {
		if def, ok := g.defaultValue(v); ok {
			parts = append(parts, "DEFAULT", def)
		}
	}
	if comment := attrs.GetString("comment"); comment != "" {
		parts = append(parts, "COMMENT", g.QuoteString(comment))
	}
	return strings.Join(parts, " "), nil
}

func typeText(v any) (string, bool) {
	switch v := v.(type) {
	case migration.Expr:
		return string(v), v != ""
	case string:
		return v, v != ""
	default:
		return "", false
	}
}

// defaultValue renders a default. Code defaults other than NOW are evaluated
// by the application and have no column default.
func (g *Generator) defaultValue(v any) (string, bool) {
	switch v := v.(type) {
	case migration.Expr:
		if core.ParseTypeExpr(string(v), g.typePrefix).Kind == core.KindNow {
			return "CURRENT_TIMESTAMP", true
		}
		return "", false
	case nil:
		return "NULL", true
	case bool:
		if v {
			return "TRUE", true
		}
		return "FALSE", true
	case json.Number:
		return v.String(), true
	case string:
		return g.QuoteString(v), true
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", false
		}
		return g.QuoteString(string(b)), true
	}
}

func (g *Generator) foreignKey(column string, attrs migration.Object) string {
	v, _ := attrs.Get("references")
	ref, ok := v.(migration.Object)
	if !ok || ref.GetString("model") == "" {
		return ""
	}
	key := ref.GetString("key")
	if key == "" {
		key = "id"
	}

	var sb strings.Builder
	sb.Grow(96)
	sb.WriteString("FOREIGN KEY ")
	sb.WriteString(g.formatColumns([]string{column}))
	sb.WriteString(" REFERENCES ")
	sb.WriteString(g.QuoteIdentifier(ref.GetString("model")))
	sb.WriteString(" ")
	sb.WriteString(g.formatColumns([]string{key}))
	if del := referentialAction(attrs.GetString("onDelete")); del != "" {
		sb.WriteString(" ON DELETE " + del)
	}
	if upd := referentialAction(attrs.GetString("onUpdate")); upd != "" {
		sb.WriteString(" ON UPDATE " + upd)
	}
	return sb.String()
}

func referentialAction(s string) string {
	switch a := strings.ToUpper(strings.Join(strings.Fields(s), " ")); a {
	case "CASCADE", "SET NULL", "SET DEFAULT", "RESTRICT", "NO ACTION":
		return a
	default:
		return ""
	}
}

func (g *Generator) formatColumns(cols []string) string {
	var quoted []string
	for _, c := range cols {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		quoted = append(quoted, g.QuoteIdentifier(c))
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}

// QuoteIdentifier quotes an identifier with backticks.
func (g *Generator) QuoteIdentifier(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "`", "``")
	return "`" + name + "`"
}

// QuoteString quotes a string literal.
func (g *Generator) QuoteString(value string) string {
	var b strings.Builder
	b.Grow(len(value) + len(value)/10 + 2)

	b.WriteByte('\'')
	for _, char := range value {
		switch char {
		case '\'':
			b.WriteString("''")
		case '\\':
			b.WriteString(`\\`)
		case '\x00':
			b.WriteString(`\0`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\x1A':
			b.WriteString(`\Z`)
		default:
			b.WriteRune(char)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// IndexName returns the name of an unnamed index: the table and field names
// joined by underscores. Names over the MySQL identifier limit are cut and
// suffixed with a hash of the full name.
func IndexName(table string, fields []string) string {
	base := strings.ToLower(reNonWord.ReplaceAllString(table+"_"+strings.Join(fields, "_"), "_"))
	if len(base) <= mysqlMaxIdentLen {
		return base
	}

	suffix := fmt.Sprintf("_%016x", xxhash.Sum64String(base))
	return base[:mysqlMaxIdentLen-len(suffix)] + suffix
}
