package mysql

import (
	"fmt"
	"strconv"
	"strings"

	"migplan/internal/core"
)

// UnsupportedTypeError is returned for column types MySQL cannot store.
type UnsupportedTypeError struct {
	Expr string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("type %s is not supported by MySQL", e.Expr)
}

// columnType maps a type expression to a MySQL column type.
func (g *Generator) columnType(expr string) (string, error) {
	t := core.ParseTypeExpr(expr, g.typePrefix)
	o := t.Options

	switch t.Kind {
	case core.KindChar:
		return withBinary(fmt.Sprintf("CHAR(%d)", lengthOr(o.Length, 255)), o.Binary), nil
	case core.KindString:
		return withBinary(fmt.Sprintf("VARCHAR(%d)", lengthOr(o.Length, 255)), o.Binary), nil
	case core.KindText:
		return sized("TEXT", o.Size), nil
	case core.KindBlob:
		return sized("BLOB", o.Size), nil
	case core.KindBoolean:
		return "TINYINT(1)", nil
	case core.KindTinyInt, core.KindSmallInt, core.KindMediumInt, core.KindInteger, core.KindBigInt,
		core.KindFloat, core.KindReal, core.KindDouble, core.KindDecimal, core.KindNumber:
		return numeric(t), nil
	case core.KindTime:
		return "TIME", nil
	case core.KindDate:
		return "DATETIME", nil
	case core.KindDateOnly:
		return "DATE", nil
	case core.KindJSON, core.KindJSONB:
		return "JSON", nil
	case core.KindUUID, core.KindUUIDV1, core.KindUUIDV4:
		return "CHAR(36) BINARY", nil
	case core.KindEnum:
		if len(o.Values) == 0 {
			return "", fmt.Errorf("enum %s has no values", expr)
		}
		values := make([]string, len(o.Values))
		for i, v := range o.Values {
			values[i] = g.QuoteString(v)
		}
		return "ENUM(" + strings.Join(values, ", ") + ")", nil
	default:
		return "", &UnsupportedTypeError{Expr: expr}
	}
}

func lengthOr(n, fallback int) int {
	if n > 0 {
		return n
	}
	return fallback
}

func withBinary(s string, binary bool) string {
	if binary {
		return s + " BINARY"
	}
	return s
}

func sized(base, size string) string {
	switch strings.ToLower(size) {
	case "tiny":
		return "TINY" + base
	case "medium":
		return "MEDIUM" + base
	case "long":
		return "LONG" + base
	default:
		return base
	}
}

var numericNames = map[core.TypeKind]string{
	core.KindTinyInt:   "TINYINT",
	core.KindSmallInt:  "SMALLINT",
	core.KindMediumInt: "MEDIUMINT",
	core.KindInteger:   "INT",
	core.KindBigInt:    "BIGINT",
	core.KindFloat:     "FLOAT",
	core.KindReal:      "REAL",
	core.KindDouble:    "DOUBLE",
	core.KindDecimal:   "DECIMAL",
	core.KindNumber:    "DECIMAL",
}

func numeric(t core.ColumnType) string {
	o := t.Options
	var b strings.Builder
	b.WriteString(numericNames[t.Kind])

	switch {
	case o.Precision > 0:
		b.WriteString("(" + strconv.Itoa(o.Precision))
		if o.Scale > 0 {
			b.WriteString(", " + strconv.Itoa(o.Scale))
		}
		b.WriteString(")")
	case o.Length > 0:
		b.WriteString("(" + strconv.Itoa(o.Length))
		if o.Decimals > 0 {
			b.WriteString(", " + strconv.Itoa(o.Decimals))
		}
		b.WriteString(")")
	}
	if o.Unsigned {
		b.WriteString(" UNSIGNED")
	}
	if o.Zerofill {
		b.WriteString(" ZEROFILL")
	}
	return b.String()
}
