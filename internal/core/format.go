package core

import (
	"regexp"
	"strconv"
	"strings"
)

// namespaceRe matches a namespace qualifier such as "DATATYPES." in an
// upper-cased expression.
var namespaceRe = regexp.MustCompile(`[A-Z_$][A-Z0-9_$]*\.`)

// FormatType renders t as a code expression such as DataTypes.STRING(255).BINARY.
// It returns "" when the kind is unresolved; callers then fall back to t.Raw.
// approximate is true when the expression is a best-effort rendering (RANGE)
// and the caller should warn about it.
func FormatType(t ColumnType, prefix string) (expr string, approximate bool) {
	o := t.Options
	name := prefix + string(t.Kind)

	switch t.Kind {
	case KindChar:
		if o.Binary {
			return name + ".BINARY", false
		}
		return name + parenInts(o.Length), false

	case KindString:
		s := name + parenInts(o.Length)
		if o.Binary {
			s += ".BINARY"
		}
		return s, false

	case KindText, KindBlob:
		switch {
		case o.Size != "":
			return name + "(" + strings.ToLower(o.Size) + ")", false
		case o.Length > 0:
			return name + "(" + strconv.Itoa(o.Length) + ")", false
		default:
			return name, false
		}

	case KindNumber, KindTinyInt, KindSmallInt, KindMediumInt, KindInteger, KindBigInt,
		KindFloat, KindReal, KindDouble, KindDecimal:
		var b strings.Builder
		b.WriteString(name)
		b.WriteString(parenInts(o.Length, o.Decimals))
		b.WriteString(parenInts(o.Precision, o.Scale))
		if o.Zerofill {
			b.WriteString(".ZEROFILL")
		}
		if o.Unsigned {
			b.WriteString(".UNSIGNED")
		}
		return b.String(), false

	case KindEnum:
		quoted := make([]string, len(o.Values))
		for i, v := range o.Values {
			quoted[i] = quoteSingle(v)
		}
		return name + "(" + strings.Join(quoted, ", ") + ")", false

	case KindGeometry:
		if o.Geometry == "" {
			return name, false
		}
		if o.SRID != 0 {
			return name + "(" + quoteSingle(o.Geometry) + ", " + strconv.Itoa(o.SRID) + ")", false
		}
		return name + "(" + quoteSingle(o.Geometry) + ")", false

	case KindArray:
		return name + "(" + prefix + string(arrayElement(t)) + ")", false

	case KindRange:
		if o.Subtype != "" {
			return name + "(" + prefix + string(o.Subtype) + ")", true
		}
		if t.Raw != "" {
			return prefix + t.Raw, true
		}
		return name, true

	case KindGeography, KindCIText, KindBoolean, KindTime, KindDate, KindDateOnly, KindHStore,
		KindJSON, KindJSONB, KindNow, KindUUID, KindUUIDV1, KindUUIDV4, KindVirtual, KindInet,
		KindCIDR, KindMacAddr:
		return name, false

	default:
		return "", false
	}
}

// arrayElement picks the element kind of an ARRAY column. Only INTEGER and
// STRING are recognized from the textual hint; everything else is STRING.
func arrayElement(t ColumnType) TypeKind {
	if t.Options.Element != "" {
		return t.Options.Element
	}
	if el, ok := ArrayHintElement(t.Raw); ok {
		return el
	}
	return KindString
}

// ArrayHintElement recognizes the textual array notations INTEGER[], STRING[],
// ARRAY(INTEGER) and ARRAY(STRING), with or without a namespace prefix.
func ArrayHintElement(hint string) (TypeKind, bool) {
	h := namespaceRe.ReplaceAllString(strings.ToUpper(strings.ReplaceAll(hint, " ", "")), "")
	switch h {
	case "INTEGER[]", "ARRAY(INTEGER)":
		return KindInteger, true
	case "STRING[]", "ARRAY(STRING)":
		return KindString, true
	default:
		return "", false
	}
}

// parenInts renders "(a)" or "(a, b)"; a zero first value renders nothing.
func parenInts(a int, rest ...int) string {
	if a <= 0 {
		return ""
	}
	s := "(" + strconv.Itoa(a)
	for _, r := range rest {
		if r > 0 {
			s += ", " + strconv.Itoa(r)
		}
	}
	return s + ")"
}

func quoteSingle(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}
