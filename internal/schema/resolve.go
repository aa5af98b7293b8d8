package schema

import (
	"fmt"
	"log/slog"
	"strings"

	"crudgen/internal/dsl"
)

// FKColumn is a foreign-key column contributed to some table, together with
// the constraint it carries.
type FKColumn struct {
	Column Column
	FK     ForeignKey
	Entity string // entity whose field produced the column
	Field  string
}

// JoinFact describes the join table of an owning many-to-many relation.
type JoinFact struct {
	Entity string
	Field  string
	Table  string
	Left   FKColumn // references the owner
	Right  FKColumn // references the target
}

// CollectionFact describes the element-collection table of a List/Set field.
type CollectionFact struct {
	Entity string
	Field  string
	Table  string
	Owner  FKColumn
	Value  Column
	Order  *Column // List collections only
}

type entityInfo struct {
	entity *dsl.Entity
	table  string
}

// Resolution holds the relational facts derived from the whole entity set.
// Reverse contributions are keyed by the child table they are added to.
type Resolution struct {
	dialect Dialect
	order   []*entityInfo
	byName  map[string]*entityInfo

	Owned       map[string][]FKColumn
	Reverse     map[string][]FKColumn
	Joins       map[string][]JoinFact
	Collections map[string][]CollectionFact

	log *issueLog
}

type issueLog struct {
	logger *slog.Logger
	issues []Issue
}

func (l *issueLog) add(i Issue) {
	l.issues = append(l.issues, i)
	l.logger.Warn(i.Message, "entity", i.Entity, "field", i.Field, "code", i.Code)
}

func (l *issueLog) unrecognized(e *dsl.Entity, f dsl.Field, fallback string) {
	if f.Type.Known() {
		return
	}
	l.add(Issue{
		Entity:  e.Name,
		Field:   f.Name,
		Code:    CodeUnrecognizedType,
		Message: fmt.Sprintf("unrecognized type %q, using %s", f.Type.String(), fallback),
	})
}

// Resolve runs the pre-pass over every entity: owned foreign keys, reverse
// one-to-many contributions, join tables and element collections. It fails
// when a relation names an entity outside the set.
func Resolve(entities []*dsl.Entity, d Dialect, logger *slog.Logger) (*Resolution, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolution{
		dialect:     d,
		byName:      make(map[string]*entityInfo, len(entities)),
		Owned:       map[string][]FKColumn{},
		Reverse:     map[string][]FKColumn{},
		Joins:       map[string][]JoinFact{},
		Collections: map[string][]CollectionFact{},
		log:         &issueLog{logger: logger},
	}
	for _, e := range entities {
		info := &entityInfo{entity: e, table: TableName(e)}
		r.order = append(r.order, info)
		r.byName[e.Name] = info
	}

	for _, owner := range r.order {
		for _, f := range owner.entity.Fields {
			switch {
			case f.Relation != nil:
				if err := r.resolveRelation(owner, f); err != nil {
					return nil, err
				}
			case f.IsCollection():
				fact, err := r.collection(owner, f)
				if err != nil {
					return nil, err
				}
				r.Collections[owner.entity.Name] = append(r.Collections[owner.entity.Name], fact)
			}
		}
	}
	return r, nil
}

// Issues returns the warnings collected so far.
func (r *Resolution) Issues() []Issue { return r.log.issues }

func (r *Resolution) target(owner *entityInfo, f dsl.Field) (*entityInfo, error) {
	t, ok := r.byName[f.Relation.Target]
	if !ok {
		return nil, &RelationError{Entity: owner.entity.Name, Field: f.Name, Target: f.Relation.Target}
	}
	return t, nil
}

// refColumn returns the primary-key column a foreign key to info references
// and its SQL type.
func (r *Resolution) refColumn(info *entityInfo) (string, string, error) {
	ids := info.entity.IDFields()
	if len(ids) == 0 {
		return "", "", &DefinitionError{Entity: info.entity.Name, Message: "no identifier field to reference"}
	}
	return ColumnName(ids[0]), r.dialect.ColumnType(ids[0]), nil
}

func (r *Resolution) fkColumn(table, column, refTable, refColumn, typ string, nullable bool) FKColumn {
	return FKColumn{
		Column: Column{Name: column, Type: typ, Nullable: nullable},
		FK: ForeignKey{
			Name:      ConstraintName("fk", table, column),
			Column:    column,
			RefTable:  refTable,
			RefColumn: refColumn,
		},
	}
}

func (r *Resolution) resolveRelation(owner *entityInfo, f dsl.Field) error {
	rel := f.Relation
	target, err := r.target(owner, f)
	if err != nil {
		return err
	}
	ownerName := owner.entity.Name

	switch rel.Kind {
	case dsl.ManyToOne, dsl.OneToOne:
		if rel.Kind == dsl.OneToOne && !rel.Owning() {
			r.checkMappedBy(owner, target, f)
			return nil
		}
		refCol, typ, err := r.refColumn(target)
		if err != nil {
			return err
		}
		name := strings.TrimSpace(rel.JoinColumn)
		if name == "" {
			name = fkColumnName(target.entity.Name)
		}
		c := r.fkColumn(owner.table, name, target.table, refCol, typ, f.NullableOr(true))
		c.Column.Unique = rel.Kind == dsl.OneToOne || f.Unique()
		c.Entity, c.Field = ownerName, f.Name
		r.Owned[ownerName] = append(r.Owned[ownerName], c)

	case dsl.OneToMany:
		if !rel.Owning() {
			r.checkMappedBy(owner, target, f)
			return nil
		}
		refCol, typ, err := r.refColumn(owner)
		if err != nil {
			return err
		}
		name := strings.TrimSpace(rel.JoinColumn)
		if name == "" {
			name = fkColumnName(ownerName)
		}
		c := r.fkColumn(target.table, name, owner.table, refCol, typ, true)
		c.Entity, c.Field = ownerName, f.Name
		r.addReverse(target.table, c)

	case dsl.ManyToMany:
		if !rel.Owning() {
			r.checkMappedBy(owner, target, f)
			return nil
		}
		fact, err := r.joinFact(owner, f)
		if err != nil {
			return err
		}
		r.Joins[ownerName] = append(r.Joins[ownerName], fact)

	default:
		return &DefinitionError{Entity: ownerName, Field: f.Name, Message: fmt.Sprintf("unknown relation kind %q", rel.Kind)}
	}
	return nil
}

// addReverse records a reverse contribution. The first contribution of a
// column to a child table wins; later ones are dropped with a warning.
func (r *Resolution) addReverse(childTable string, c FKColumn) {
	for _, prev := range r.Reverse[childTable] {
		if prev.Column.Name == c.Column.Name {
			r.log.add(Issue{
				Entity: c.Entity,
				Field:  c.Field,
				Code:   CodeDuplicateReverseFK,
				Message: fmt.Sprintf("column %s.%s is already contributed by %s.%s; ignoring this one",
					childTable, c.Column.Name, prev.Entity, prev.Field),
			})
			return
		}
	}
	r.Reverse[childTable] = append(r.Reverse[childTable], c)
}

// checkMappedBy warns when the inverse side names a field the target lacks.
func (r *Resolution) checkMappedBy(owner, target *entityInfo, f dsl.Field) {
	for _, tf := range target.entity.Fields {
		if tf.Name == f.Relation.MappedBy && tf.Relation != nil && tf.Relation.Target == owner.entity.Name {
			return
		}
	}
	r.log.add(Issue{
		Entity:  owner.entity.Name,
		Field:   f.Name,
		Code:    CodeMappedByMismatch,
		Message: fmt.Sprintf("mappedBy %q is not a relation of %s back to %s", f.Relation.MappedBy, target.entity.Name, owner.entity.Name),
	})
}

// JoinTableFor resolves the join table of entity.field. It fails when the
// field is not an owning many-to-many relation with a usable join table.
func (r *Resolution) JoinTableFor(entity, field string) (*JoinFact, error) {
	info, ok := r.byName[entity]
	if !ok {
		return nil, &DefinitionError{Entity: entity, Message: "unknown entity"}
	}
	for _, f := range info.entity.Fields {
		if f.Name != field {
			continue
		}
		if f.Relation == nil || f.Relation.Kind != dsl.ManyToMany {
			return nil, &JoinTableError{Entity: entity, Field: field, Message: "field is not a many-to-many relation"}
		}
		if !f.Relation.Owning() {
			return nil, &JoinTableError{Entity: entity, Field: field, Message: "inverse side; the join table belongs to " + f.Relation.Target}
		}
		fact, err := r.joinFact(info, f)
		if err != nil {
			return nil, err
		}
		return &fact, nil
	}
	return nil, &DefinitionError{Entity: entity, Field: field, Message: "unknown field"}
}

func (r *Resolution) joinFact(owner *entityInfo, f dsl.Field) (JoinFact, error) {
	rel := f.Relation
	ownerName := owner.entity.Name
	name := strings.TrimSpace(rel.JoinTable)
	if name == "" {
		return JoinFact{}, &JoinTableError{Entity: ownerName, Field: f.Name, Message: "join table name is blank"}
	}
	target, err := r.target(owner, f)
	if err != nil {
		return JoinFact{}, err
	}

	left := strings.TrimSpace(rel.JoinColumn)
	if left == "" {
		left = fkColumnName(ownerName)
	}
	right := strings.TrimSpace(rel.InverseJoinColumn)
	if right == "" {
		right = fkColumnName(target.entity.Name)
	}
	if left == right {
		return JoinFact{}, &JoinTableError{
			Entity:  ownerName,
			Field:   f.Name,
			Message: fmt.Sprintf("both join columns are named %q; set explicit join columns", left),
		}
	}

	leftRef, leftType, err := r.refColumn(owner)
	if err != nil {
		return JoinFact{}, err
	}
	rightRef, rightType, err := r.refColumn(target)
	if err != nil {
		return JoinFact{}, err
	}
	fact := JoinFact{
		Entity: ownerName,
		Field:  f.Name,
		Table:  name,
		Left:   r.fkColumn(name, left, owner.table, leftRef, leftType, false),
		Right:  r.fkColumn(name, right, target.table, rightRef, rightType, false),
	}
	fact.Left.Entity, fact.Left.Field = ownerName, f.Name
	fact.Right.Entity, fact.Right.Field = ownerName, f.Name
	return fact, nil
}

func (r *Resolution) collection(owner *entityInfo, f dsl.Field) (CollectionFact, error) {
	refCol, refType, err := r.refColumn(owner)
	if err != nil {
		return CollectionFact{}, err
	}
	table := owner.table + "_" + snake(f.Name)
	valueName := ColumnName(f)
	valueType := r.dialect.ColumnType(f)
	r.log.unrecognized(owner.entity, f, valueType)

	fact := CollectionFact{
		Entity: owner.entity.Name,
		Field:  f.Name,
		Table:  table,
		Owner:  r.fkColumn(table, fkColumnName(owner.entity.Name), owner.table, refCol, refType, false),
		Value:  Column{Name: valueName, Type: valueType, Nullable: f.NullableOr(true)},
	}
	fact.Owner.Entity, fact.Owner.Field = owner.entity.Name, f.Name
	if f.Type.Collection == dsl.CollectionList {
		fact.Order = &Column{Name: valueName + "_order", Type: r.dialect.KindType(dsl.KindInt32, 0), Nullable: false}
	}
	return fact, nil
}
