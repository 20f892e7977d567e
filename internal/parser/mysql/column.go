package mysql

import (
	"strconv"
	"strings"

	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/format"
	pmysql "github.com/pingcap/tidb/pkg/parser/mysql"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"
	"github.com/pingcap/tidb/pkg/parser/types"

	"migplan/internal/core"
	"migplan/internal/model"
)

func (p *Parser) parseColumns(cols []*ast.ColumnDef, m *model.Model) {
	for _, colDef := range cols {
		typ := columnType(colDef.Tp)
		a := &model.Attribute{
			Name:      colDef.Name.Name.O,
			Type:      &typ,
			AllowNull: model.Bool(true),
		}
		for _, opt := range colDef.Options {
			p.applyColumnOption(a, opt)
		}
		m.Attributes = append(m.Attributes, a)
	}
}

func (p *Parser) applyColumnOption(a *model.Attribute, opt *ast.ColumnOption) {
	if opt == nil {
		return
	}

	switch opt.Tp {
	case ast.ColumnOptionNotNull:
		a.AllowNull = model.Bool(false)
	case ast.ColumnOptionNull:
		a.AllowNull = model.Bool(true)
	case ast.ColumnOptionPrimaryKey:
		a.PrimaryKey = true
		a.AllowNull = model.Bool(false)
	case ast.ColumnOptionAutoIncrement:
		a.AutoIncrement = true
	case ast.ColumnOptionDefaultValue:
		a.DefaultValue = p.defaultValue(opt.Expr, a.Type.Kind)
	case ast.ColumnOptionUniqKey:
		a.Unique = true
	case ast.ColumnOptionComment:
		if s := p.exprToString(opt.Expr); s != nil {
			a.Comment = *s
		}
	case ast.ColumnOptionReference:
		applyReference(a, opt.Refer)
	}
}

func applyReference(a *model.Attribute, refer *ast.ReferenceDef) {
	if refer == nil {
		return
	}
	ref := &core.Reference{Model: refer.Table.Name.O}
	if len(refer.IndexPartSpecifications) > 0 && refer.IndexPartSpecifications[0].Column != nil {
		ref.Key = refer.IndexPartSpecifications[0].Column.Name.O
	}
	a.References = ref
	if refer.OnDelete != nil && refer.OnDelete.ReferOpt != ast.ReferOptionNoOption {
		a.OnDelete = strings.ToUpper(refer.OnDelete.ReferOpt.String())
	}
	if refer.OnUpdate != nil && refer.OnUpdate.ReferOpt != ast.ReferOptionNoOption {
		a.OnUpdate = strings.ToUpper(refer.OnUpdate.ReferOpt.String())
	}
}

// columnType maps a MySQL column type to its logical type. Types without a
// logical counterpart keep only their text in Raw.
func columnType(tp *types.FieldType) core.ColumnType {
	flen, decimals := tp.GetFlen(), tp.GetDecimal()
	flag := tp.GetFlag()
	binary := pmysql.HasBinaryFlag(flag) || tp.GetCharset() == "binary"
	opts := core.TypeOptions{
		Unsigned: pmysql.HasUnsignedFlag(flag),
		Zerofill: pmysql.HasZerofillFlag(flag),
	}

	kind := core.TypeKind("")
	switch tp.GetType() {
	case pmysql.TypeTiny:
		kind = core.KindTinyInt
		if flen == 1 && !opts.Unsigned {
			return core.ColumnType{Kind: core.KindBoolean}
		}
	case pmysql.TypeShort:
		kind = core.KindSmallInt
	case pmysql.TypeInt24:
		kind = core.KindMediumInt
	case pmysql.TypeLong:
		kind = core.KindInteger
	case pmysql.TypeLonglong:
		kind = core.KindBigInt
	case pmysql.TypeFloat, pmysql.TypeDouble:
		kind = core.KindFloat
		if tp.GetType() == pmysql.TypeDouble {
			kind = core.KindDouble
		}
		if flen > 0 && decimals > 0 {
			opts.Length, opts.Decimals = flen, decimals
		}
	case pmysql.TypeNewDecimal:
		kind = core.KindDecimal
		if flen > 0 {
			opts.Precision = flen
		}
		if decimals > 0 {
			opts.Scale = decimals
		}
	case pmysql.TypeVarchar, pmysql.TypeVarString:
		kind = core.KindString
		opts.Length, opts.Binary = positive(flen), binary
	case pmysql.TypeString:
		kind = core.KindChar
		opts.Length, opts.Binary = positive(flen), binary
	case pmysql.TypeTinyBlob, pmysql.TypeBlob, pmysql.TypeMediumBlob, pmysql.TypeLongBlob:
		kind = core.KindText
		if binary {
			kind = core.KindBlob
		}
		opts.Size = blobSize(tp.GetType())
	case pmysql.TypeDate:
		kind = core.KindDateOnly
	case pmysql.TypeDatetime, pmysql.TypeTimestamp:
		kind = core.KindDate
	case pmysql.TypeDuration:
		kind = core.KindTime
	case pmysql.TypeJSON:
		kind = core.KindJSON
	case pmysql.TypeEnum:
		kind = core.KindEnum
		opts.Values = append([]string(nil), tp.GetElems()...)
	case pmysql.TypeGeometry:
		kind = core.KindGeometry
	default:
		return core.ColumnType{Raw: strings.ToUpper(tp.String())}
	}
	return core.ColumnType{Kind: kind, Options: opts}
}

func positive(n int) int {
	if n > 0 {
		return n
	}
	return 0
}

func blobSize(tp byte) string {
	switch tp {
	case pmysql.TypeTinyBlob:
		return "tiny"
	case pmysql.TypeMediumBlob:
		return "medium"
	case pmysql.TypeLongBlob:
		return "long"
	default:
		return ""
	}
}

// defaultValue converts a DEFAULT expression. The current-timestamp functions
// become the NOW constructor; other function defaults are dropped.
func (p *Parser) defaultValue(expr ast.ExprNode, kind core.TypeKind) any {
	switch e := expr.(type) {
	case nil:
		return nil
	case *ast.FuncCallExpr:
		switch e.FnName.L {
		case "current_timestamp", "now", "localtime", "localtimestamp":
			return model.Now
		}
		return nil
	case ast.ValueExpr:
		switch v := e.GetValue().(type) {
		case nil:
			return nil
		case string:
			return v
		case int64:
			return integerDefault(v, kind)
		case uint64, float64:
			return v
		}
	}

	s := p.exprToString(expr)
	if s == nil {
		return nil
	}
	if i, err := strconv.ParseInt(*s, 10, 64); err == nil {
		return integerDefault(i, kind)
	}
	if f, err := strconv.ParseFloat(*s, 64); err == nil {
		return f
	}
	return *s
}

func integerDefault(v int64, kind core.TypeKind) any {
	if kind == core.KindBoolean {
		return v != 0
	}
	return v
}

func (p *Parser) exprToString(expr ast.ExprNode) *string {
	if expr == nil {
		return nil
	}

	var sb strings.Builder
	restoreCtx := format.NewRestoreCtx(format.DefaultRestoreFlags, &sb)
	if err := expr.Restore(restoreCtx); err != nil {
		return nil
	}
	s := strings.TrimSpace(sb.String())

	if unquoted, ok := tryUnquoteSQLStringLiteral(s); ok {
		return &unquoted
	}
	return &s
}

func tryUnquoteSQLStringLiteral(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[len(s)-1] != '\'' {
		return "", false
	}

	if s[0] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'"), true
	}

	q := strings.IndexByte(s, '\'')
	if q <= 0 {
		return "", false
	}
	prefix := strings.TrimSpace(s[:q])
	if !isSQLStringIntroducer(prefix) {
		return "", false
	}
	inner := s[q+1 : len(s)-1]
	return strings.ReplaceAll(inner, "''", "'"), true
}

// isSQLStringIntroducer reports whether prefix is N or a _charset introducer.
func isSQLStringIntroducer(prefix string) bool {
	if strings.EqualFold(prefix, "N") {
		return true
	}
	if !strings.HasPrefix(prefix, "_") || len(prefix) == 1 {
		return false
	}
	for _, r := range prefix[1:] {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_') {
			return false
		}
	}
	return true
}
