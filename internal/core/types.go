package core

import "strings"

// DefaultTypePrefix is the namespace prepended to every rendered type expression.
const DefaultTypePrefix = "DataTypes."

// TypeKind identifies a logical column type. The set is closed; an empty kind
// means the type could not be resolved from the model definition.
type TypeKind string

const (
	KindChar      TypeKind = "CHAR"
	KindString    TypeKind = "STRING"
	KindText      TypeKind = "TEXT"
	KindCIText    TypeKind = "CITEXT"
	KindNumber    TypeKind = "NUMBER"
	KindTinyInt   TypeKind = "TINYINT"
	KindSmallInt  TypeKind = "SMALLINT"
	KindMediumInt TypeKind = "MEDIUMINT"
	KindInteger   TypeKind = "INTEGER"
	KindBigInt    TypeKind = "BIGINT"
	KindFloat     TypeKind = "FLOAT"
	KindReal      TypeKind = "REAL"
	KindDouble    TypeKind = "DOUBLE"
	KindDecimal   TypeKind = "DECIMAL"
	KindBoolean   TypeKind = "BOOLEAN"
	KindTime      TypeKind = "TIME"
	KindDate      TypeKind = "DATE"
	KindDateOnly  TypeKind = "DATEONLY"
	KindHStore    TypeKind = "HSTORE"
	KindJSON      TypeKind = "JSON"
	KindJSONB     TypeKind = "JSONB"
	KindNow       TypeKind = "NOW"
	KindBlob      TypeKind = "BLOB"
	KindUUID      TypeKind = "UUID"
	KindUUIDV1    TypeKind = "UUIDV1"
	KindUUIDV4    TypeKind = "UUIDV4"
	KindVirtual   TypeKind = "VIRTUAL"
	KindEnum      TypeKind = "ENUM"
	KindArray     TypeKind = "ARRAY"
	KindRange     TypeKind = "RANGE"
	KindGeometry  TypeKind = "GEOMETRY"
	KindGeography TypeKind = "GEOGRAPHY"
	KindInet      TypeKind = "INET"
	KindCIDR      TypeKind = "CIDR"
	KindMacAddr   TypeKind = "MACADDR"
)

var knownKinds = toKindSet(
	KindChar, KindString, KindText, KindCIText, KindNumber, KindTinyInt, KindSmallInt,
	KindMediumInt, KindInteger, KindBigInt, KindFloat, KindReal, KindDouble, KindDecimal,
	KindBoolean, KindTime, KindDate, KindDateOnly, KindHStore, KindJSON, KindJSONB, KindNow,
	KindBlob, KindUUID, KindUUIDV1, KindUUIDV4, KindVirtual, KindEnum, KindArray, KindRange,
	KindGeometry, KindGeography, KindInet, KindCIDR, KindMacAddr,
)

func toKindSet(kinds ...TypeKind) map[TypeKind]bool {
	m := make(map[TypeKind]bool, len(kinds))
	for _, k := range kinds {
		m[k] = true
	}
	return m
}

// LookupKind resolves a type name (case-insensitive) to a known kind.
func LookupKind(name string) (TypeKind, bool) {
	k := TypeKind(strings.ToUpper(strings.TrimSpace(name)))
	if knownKinds[k] {
		return k, true
	}
	return "", false
}

// IsNumeric reports whether the kind accepts length/decimals and the
// ZEROFILL/UNSIGNED qualifiers.
func (k TypeKind) IsNumeric() bool {
	switch k {
	case KindNumber, KindTinyInt, KindSmallInt, KindMediumInt, KindInteger, KindBigInt,
		KindFloat, KindReal, KindDouble, KindDecimal:
		return true
	default:
		return false
	}
}

// TypeOptions is the structured option record of a ColumnType.
type TypeOptions struct {
	Length    int      `json:"length,omitempty"`
	Size      string   `json:"size,omitempty"` // tiny, medium or long for TEXT and BLOB
	Decimals  int      `json:"decimals,omitempty"`
	Precision int      `json:"precision,omitempty"`
	Scale     int      `json:"scale,omitempty"`
	Binary    bool     `json:"binary,omitempty"`
	Unsigned  bool     `json:"unsigned,omitempty"`
	Zerofill  bool     `json:"zerofill,omitempty"`
	Values    []string `json:"values,omitempty"`
	Element   TypeKind `json:"element,omitempty"`
	Subtype   TypeKind `json:"subtype,omitempty"`
	Geometry  string   `json:"geometry,omitempty"`
	SRID      int      `json:"srid,omitempty"`
}

// ColumnType is the logical type of a column together with its options.
// Raw holds the textual expression the definition carried, used when the
// kind is unresolved and as the array element fallback.
type ColumnType struct {
	Kind    TypeKind    `json:"kind,omitempty"`
	Options TypeOptions `json:"options"`
	Raw     string      `json:"raw,omitempty"`
}

// Resolved reports whether the type has a known kind.
func (t ColumnType) Resolved() bool {
	return knownKinds[t.Kind]
}
