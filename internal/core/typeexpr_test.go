package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTypeExpr(t *testing.T) {
	tests := []struct {
		expr string
		want ColumnType
	}{
		{"DataTypes.STRING", ColumnType{Kind: KindString}},
		{"STRING(255)", ColumnType{Kind: KindString, Options: TypeOptions{Length: 255}}},
		{"DataTypes.STRING(64).BINARY", ColumnType{Kind: KindString, Options: TypeOptions{Length: 64, Binary: true}}},
		{"DataTypes.CHAR.BINARY", ColumnType{Kind: KindChar, Options: TypeOptions{Binary: true}}},
		{"text(long)", ColumnType{Kind: KindText, Options: TypeOptions{Size: "long"}}},
		{"DataTypes.DECIMAL(10, 2).UNSIGNED", ColumnType{Kind: KindDecimal, Options: TypeOptions{Precision: 10, Scale: 2, Unsigned: true}}},
		{"DataTypes.INTEGER(11).ZEROFILL.UNSIGNED", ColumnType{Kind: KindInteger, Options: TypeOptions{Length: 11, Zerofill: true, Unsigned: true}}},
		{"DataTypes.ENUM('a', 'b, c', 'it''s')", ColumnType{Kind: KindEnum, Options: TypeOptions{Values: []string{"a", "b, c", "it's"}}}},
		{"DataTypes.GEOMETRY('POINT', 4326)", ColumnType{Kind: KindGeometry, Options: TypeOptions{Geometry: "POINT", SRID: 4326}}},
		{"DataTypes.ARRAY(DataTypes.INTEGER)", ColumnType{Kind: KindArray, Options: TypeOptions{Element: KindInteger}}},
		{"INTEGER[]", ColumnType{Kind: KindArray, Options: TypeOptions{Element: KindInteger}}},
		{"DataTypes.RANGE(DataTypes.DATE)", ColumnType{Kind: KindRange, Options: TypeOptions{Subtype: KindDate}}},
		{"  boolean ", ColumnType{Kind: KindBoolean}},
		{"VARCHAR(255)", ColumnType{Raw: "VARCHAR(255)"}},
		{"DataTypes.STRING(abc)", ColumnType{Raw: "DataTypes.STRING(abc)"}},
		{"DataTypes.STRING.SIGNED", ColumnType{Raw: "DataTypes.STRING.SIGNED"}},
		{"DataTypes.BOOLEAN(1)", ColumnType{Raw: "DataTypes.BOOLEAN(1)"}},
		{"DataTypes.ENUM('a'", ColumnType{Raw: "DataTypes.ENUM('a'"}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTypeExpr(tt.expr, DefaultTypePrefix))
		})
	}
}

func TestParseTypeExprRoundTrip(t *testing.T) {
	types := []ColumnType{
		{Kind: KindChar, Options: TypeOptions{Length: 3}},
		{Kind: KindString, Options: TypeOptions{Length: 20, Binary: true}},
		{Kind: KindText, Options: TypeOptions{Size: "tiny"}},
		{Kind: KindBigInt, Options: TypeOptions{Length: 20, Unsigned: true}},
		{Kind: KindDouble, Options: TypeOptions{Length: 10, Decimals: 4, Zerofill: true}},
		{Kind: KindDecimal, Options: TypeOptions{Precision: 12, Scale: 3}},
		{Kind: KindEnum, Options: TypeOptions{Values: []string{"x", "y"}}},
		{Kind: KindGeometry, Options: TypeOptions{Geometry: "POLYGON"}},
		{Kind: KindArray, Options: TypeOptions{Element: KindString}},
		{Kind: KindJSON},
	}

	for _, ct := range types {
		expr, _ := FormatType(ct, "Sequelize.")
		t.Run(expr, func(t *testing.T) {
			assert.Equal(t, ct, ParseTypeExpr(expr, "Sequelize."))
		})
	}
}
