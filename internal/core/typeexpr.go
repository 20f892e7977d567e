package core

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseTypeExpr reads a type expression in the notation FormatType produces,
// for example "DataTypes.DECIMAL(10, 2).UNSIGNED" or "STRING(64).BINARY".
// The prefix is optional in the input. Expressions that do not name a known
// kind are returned unresolved with Raw set to the input.
func ParseTypeExpr(expr, prefix string) ColumnType {
	raw := strings.TrimSpace(expr)
	t, err := parseTypeExpr(raw, prefix)
	if err != nil {
		return ColumnType{Raw: raw}
	}
	return t
}

func parseTypeExpr(s, prefix string) (ColumnType, error) {
	if prefix != "" {
		s = strings.TrimPrefix(s, prefix)
	}
	s = strings.TrimPrefix(s, DefaultTypePrefix)

	end := 0
	for end < len(s) && isIdentByte(s[end]) {
		end++
	}
	kind, ok := LookupKind(s[:end])
	if !ok {
		return ColumnType{}, fmt.Errorf("unknown type %q", s[:end])
	}
	t := ColumnType{Kind: kind}
	rest := s[end:]

	if strings.HasPrefix(rest, "[]") {
		return ColumnType{Kind: KindArray, Options: TypeOptions{Element: kind}}, trailing(rest[2:])
	}

	if strings.HasPrefix(rest, "(") {
		args, n, err := splitArgs(rest)
		if err != nil {
			return ColumnType{}, err
		}
		if err := applyArgs(&t, args, prefix); err != nil {
			return ColumnType{}, err
		}
		rest = rest[n:]
	}

	for rest != "" {
		if rest[0] != '.' {
			return ColumnType{}, fmt.Errorf("unexpected %q", rest)
		}
		rest = rest[1:]
		end := 0
		for end < len(rest) && isIdentByte(rest[end]) {
			end++
		}
		switch strings.ToUpper(rest[:end]) {
		case "BINARY":
			t.Options.Binary = true
		case "UNSIGNED":
			t.Options.Unsigned = true
		case "ZEROFILL":
			t.Options.Zerofill = true
		default:
			return ColumnType{}, fmt.Errorf("unknown qualifier %q", rest[:end])
		}
		rest = rest[end:]
	}
	return t, nil
}

func trailing(rest string) error {
	if strings.TrimSpace(rest) != "" {
		return fmt.Errorf("unexpected %q", rest)
	}
	return nil
}

func applyArgs(t *ColumnType, args []string, prefix string) error {
	o := &t.Options
	switch {
	case t.Kind == KindChar || t.Kind == KindString:
		return atoiArgs(args, &o.Length)

	case t.Kind == KindText || t.Kind == KindBlob:
		if len(args) != 1 {
			return fmt.Errorf("%s takes one argument", t.Kind)
		}
		arg := unquote(args[0])
		if n, err := strconv.Atoi(arg); err == nil {
			o.Length = n
			return nil
		}
		o.Size = strings.ToLower(arg)
		return nil

	case t.Kind == KindDecimal:
		return atoiArgs(args, &o.Precision, &o.Scale)

	case t.Kind.IsNumeric():
		return atoiArgs(args, &o.Length, &o.Decimals)

	case t.Kind == KindEnum:
		for _, a := range args {
			o.Values = append(o.Values, unquote(a))
		}
		return nil

	case t.Kind == KindGeometry || t.Kind == KindGeography:
		if len(args) == 0 || len(args) > 2 {
			return fmt.Errorf("%s takes one or two arguments", t.Kind)
		}
		o.Geometry = unquote(args[0])
		if len(args) == 2 {
			return atoiArgs(args[1:], &o.SRID)
		}
		return nil

	case t.Kind == KindArray || t.Kind == KindRange:
		if len(args) != 1 {
			return fmt.Errorf("%s takes one argument", t.Kind)
		}
		inner, err := parseTypeExpr(args[0], prefix)
		if err != nil {
			return err
		}
		if t.Kind == KindArray {
			o.Element = inner.Kind
		} else {
			o.Subtype = inner.Kind
		}
		return nil

	default:
		return fmt.Errorf("%s takes no arguments", t.Kind)
	}
}

func atoiArgs(args []string, dst ...*int) error {
	if len(args) > len(dst) {
		return fmt.Errorf("too many arguments: %d", len(args))
	}
	for i, a := range args {
		n, err := strconv.Atoi(strings.TrimSpace(a))
		if err != nil {
			return fmt.Errorf("argument %q: %w", a, err)
		}
		*dst[i] = n
	}
	return nil
}

// splitArgs splits the parenthesized argument list at the start of s on
// top-level commas. It returns the arguments and the number of bytes consumed.
func splitArgs(s string) ([]string, int, error) {
	var (
		args  []string
		cur   strings.Builder
		depth int
		quote byte
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			cur.WriteByte(c)
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
			cur.WriteByte(c)
		case '(':
			depth++
			if depth > 1 {
				cur.WriteByte(c)
			}
		case ')':
			depth--
			if depth == 0 {
				if a := strings.TrimSpace(cur.String()); a != "" || len(args) > 0 {
					args = append(args, a)
				}
				return args, i + 1, nil
			}
			cur.WriteByte(c)
		case ',':
			if depth == 1 {
				args = append(args, strings.TrimSpace(cur.String()))
				cur.Reset()
				continue
			}
			cur.WriteByte(c)
		default:
			cur.WriteByte(c)
		}
	}
	return nil, 0, fmt.Errorf("unbalanced parentheses in %q", s)
}

// unquote strips one level of single or double quotes; doubled quote
// characters inside collapse to one.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		q := string(s[0])
		return strings.ReplaceAll(s[1:len(s)-1], q+q, q)
	}
	return s
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
