package dsl

// Entity describes one relational unit (a table) declared in the DSL.
type Entity struct {
	Name   string // logical name, unique across the set
	Table  string // storage name; derived from Name when empty
	Fields []Field

	// nil inherits the generator-wide default
	Audit          *bool
	OptimisticLock *bool

	Unique [][]string // composite unique constraints, by field name

	Source string // file the entity was loaded from
}

// Field describes one entity attribute.
type Field struct {
	Name     string
	Type     Type
	Enum     []string // literal values of an enum field, declaration order
	EnumRef  string   // enum catalog the values come from
	ID       *Identifier
	Column   *Column
	Relation *Relation
}

// Strategy is a primary-key generation strategy.
type Strategy string

const (
	StrategyAuto     Strategy = "auto"
	StrategyIdentity Strategy = "identity"
	StrategySequence Strategy = "sequence"
	StrategyTable    Strategy = "table"
)

// Identifier marks a field as (part of) the primary key.
type Identifier struct {
	Strategy Strategy
	Sequence string // explicit sequence name for StrategySequence
}

// Column carries explicit column options.
type Column struct {
	Name     string
	Length   int
	Nullable *bool
	Unique   bool
}

// RelationKind is the cardinality of a relation.
type RelationKind string

const (
	OneToOne   RelationKind = "one-to-one"
	ManyToOne  RelationKind = "many-to-one"
	OneToMany  RelationKind = "one-to-many"
	ManyToMany RelationKind = "many-to-many"
)

// Relation links a field to another entity.
type Relation struct {
	Kind              RelationKind
	Target            string
	MappedBy          string // set on the inverse side of a bidirectional relation
	JoinColumn        string
	InverseJoinColumn string
	JoinTable         string
}

// Owning reports whether this side of the relation carries the mapping.
func (r *Relation) Owning() bool { return r != nil && r.MappedBy == "" }

// ColumnName returns the storage column name of a field.
func (f Field) ColumnName() string {
	if f.Column != nil && f.Column.Name != "" {
		return f.Column.Name
	}
	return f.Name
}

// Length returns the declared column length, or def when none was given.
func (f Field) Length(def int) int {
	if f.Column != nil && f.Column.Length > 0 {
		return f.Column.Length
	}
	return def
}

// NullableOr returns the declared nullability, or def when it was left open.
func (f Field) NullableOr(def bool) bool {
	if f.Column != nil && f.Column.Nullable != nil {
		return *f.Column.Nullable
	}
	return def
}

// Unique reports whether the column carries a uniqueness constraint.
func (f Field) Unique() bool { return f.Column != nil && f.Column.Unique }

// IsCollection reports whether the field is a simple collection of a primitive.
func (f Field) IsCollection() bool {
	return f.Relation == nil && f.Type.Collection != CollectionNone
}

// IDFields returns the identifier fields of an entity in declaration order.
func (e *Entity) IDFields() []Field {
	var out []Field
	for _, f := range e.Fields {
		if f.ID != nil {
			out = append(out, f)
		}
	}
	return out
}

// Bool returns a pointer to v; handy for the optional flags.
func Bool(v bool) *bool { return &v }
