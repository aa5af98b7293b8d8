package dsl

import (
	"regexp"
	"strings"
)

// Kind is an abstract field type, independent of any SQL dialect.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindString
	KindInt16
	KindInt32
	KindInt64
	KindBool
	KindFloat32
	KindFloat64
	KindDecimal
	KindBigInteger
	KindDate
	KindDateTime
	KindInstant
	KindUUID
	KindEnum
	KindJSON

	// NumKinds bounds the per-dialect type tables.
	NumKinds
)

var kindNames = [NumKinds]string{
	KindUnknown:    "unknown",
	KindString:     "string",
	KindInt16:      "int16",
	KindInt32:      "int32",
	KindInt64:      "int64",
	KindBool:       "bool",
	KindFloat32:    "float32",
	KindFloat64:    "float64",
	KindDecimal:    "decimal",
	KindBigInteger: "biginteger",
	KindDate:       "date",
	KindDateTime:   "datetime",
	KindInstant:    "instant",
	KindUUID:       "uuid",
	KindEnum:       "enum",
	KindJSON:       "json",
}

func (k Kind) String() string {
	if k < NumKinds {
		return kindNames[k]
	}
	return "unknown"
}

// Integral reports whether k is one of the fixed-width integer kinds.
func (k Kind) Integral() bool {
	return k == KindInt16 || k == KindInt32 || k == KindInt64
}

// Collection tells whether a field holds a simple collection.
type Collection uint8

const (
	CollectionNone Collection = iota
	CollectionList
	CollectionSet
)

func (c Collection) String() string {
	switch c {
	case CollectionList:
		return "List"
	case CollectionSet:
		return "Set"
	}
	return ""
}

// Type is the parsed abstract type of a field.
type Type struct {
	Kind       Kind
	Collection Collection // element kind is Kind when set
	Target     string     // entity carried by a JSON field
	Raw        string     // spelling in the descriptor
}

// Known reports whether the type was recognized.
func (t Type) Known() bool { return t.Kind != KindUnknown }

func (t Type) String() string {
	if t.Raw != "" {
		return t.Raw
	}
	return t.Kind.String()
}

var (
	genericRe = regexp.MustCompile(`^(?i)(list|set|json)\s*[<\[]\s*([A-Za-z0-9_.]+)\s*[>\]]$`)

	primitiveKinds = map[string]Kind{
		"string":         KindString,
		"text":           KindString,
		"short":          KindInt16,
		"int16":          KindInt16,
		"integer":        KindInt32,
		"int":            KindInt32,
		"int32":          KindInt32,
		"long":           KindInt64,
		"int64":          KindInt64,
		"boolean":        KindBool,
		"bool":           KindBool,
		"float":          KindFloat32,
		"float32":        KindFloat32,
		"double":         KindFloat64,
		"float64":        KindFloat64,
		"bigdecimal":     KindDecimal,
		"decimal":        KindDecimal,
		"money":          KindDecimal,
		"biginteger":     KindBigInteger,
		"localdate":      KindDate,
		"date":           KindDate,
		"localdatetime":  KindDateTime,
		"datetime":       KindDateTime,
		"instant":        KindInstant,
		"zoneddatetime":  KindInstant,
		"offsetdatetime": KindInstant,
		"timestamp":      KindInstant,
		"uuid":           KindUUID,
		"enum":           KindEnum,
	}
)

// ParseType turns a descriptor type name into a Type. Unrecognized names yield
// KindUnknown with Raw kept for diagnostics.
func ParseType(raw string) Type {
	s := strings.TrimSpace(raw)
	t := Type{Raw: s}
	if m := genericRe.FindStringSubmatch(s); m != nil {
		inner := m[2]
		switch strings.ToLower(m[1]) {
		case "json":
			t.Kind = KindJSON
			t.Target = inner
			return t
		case "list":
			t.Collection = CollectionList
		case "set":
			t.Collection = CollectionSet
		}
		t.Kind = primitiveKinds[strings.ToLower(inner)]
		return t
	}
	t.Kind = primitiveKinds[strings.ToLower(s)]
	return t
}
