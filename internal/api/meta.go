package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"crudgen/internal/schema"
)

// ===== META HANDLERS =====

type metaEntityListItem struct {
	Entity string `json:"entity"`
	Table  string `json:"table"`
	Fields int    `json:"fields"`
	Source string `json:"source,omitempty"`
}

func MetaListHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		entities, _ := storage.Model()
		out := make([]metaEntityListItem, 0, len(entities))
		for _, e := range entities {
			out = append(out, metaEntityListItem{
				Entity: e.Name,
				Table:  schema.TableName(e),
				Fields: len(e.Fields),
				Source: e.Source,
			})
		}
		c.JSON(http.StatusOK, out)
	}
}

type metaField struct {
	Name     string   `json:"name"`
	Type     string   `json:"type,omitempty"`
	Kind     string   `json:"kind,omitempty"`
	Relation string   `json:"relation,omitempty"`
	Target   string   `json:"target,omitempty"`
	MappedBy string   `json:"mappedBy,omitempty"`
	ID       string   `json:"id,omitempty"` // generation strategy
	Enum     []string `json:"enum,omitempty"`
	EnumRef  string   `json:"enumRef,omitempty"`
	Column   string   `json:"column,omitempty"`
}

type metaEntity struct {
	Entity  string            `json:"entity"`
	Dialect schema.Dialect    `json:"dialect"`
	Fields  []metaField       `json:"fields"`
	Unique  [][]string        `json:"unique,omitempty"`
	Schema  *schema.EntityDef `json:"schema"`
}

func MetaEntityHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		name, ok := storage.NormalizeEntityName(c.Param("entity"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Entity not found"})
			return
		}
		d, ok := dialectParam(c, storage.Dialect)
		if !ok {
			return
		}
		sc, err := storage.Schema(d)
		if err != nil {
			schemaError(c, err)
			return
		}
		e := storage.Entity(name)
		if e == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Entity not found"})
			return
		}

		fields := make([]metaField, 0, len(e.Fields))
		for _, f := range e.Fields {
			mf := metaField{Name: f.Name, Enum: f.Enum, EnumRef: f.EnumRef}
			if f.Relation != nil {
				mf.Relation = string(f.Relation.Kind)
				mf.Target = f.Relation.Target
				mf.MappedBy = f.Relation.MappedBy
			} else {
				mf.Type = f.Type.String()
				mf.Kind = f.Type.Kind.String()
				mf.Column = schema.ColumnName(f)
			}
			if f.ID != nil {
				mf.ID = string(f.ID.Strategy)
			}
			fields = append(fields, mf)
		}

		c.JSON(http.StatusOK, metaEntity{
			Entity:  e.Name,
			Dialect: d,
			Fields:  fields,
			Unique:  e.Unique,
			Schema:  sc.Entity(e.Name),
		})
	}
}

// JoinTableHandler resolves the join table of an owning many-to-many field.
func JoinTableHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		name, ok := storage.NormalizeEntityName(c.Param("entity"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Entity not found"})
			return
		}
		d, ok := dialectParam(c, storage.Dialect)
		if !ok {
			return
		}
		entities, _ := storage.Model()
		res, err := schema.Resolve(entities, d, storage.Options.Logger)
		if err != nil {
			schemaError(c, err)
			return
		}
		j, err := res.JoinTableFor(name, c.Param("field"))
		if err != nil {
			schemaError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"entity":      j.Entity,
			"field":       j.Field,
			"table":       j.Table,
			"joinColumn":  j.Left.Column.Name,
			"inverseJoin": j.Right.Column.Name,
			"foreignKeys": []schema.ForeignKey{j.Left.FK, j.Right.FK},
		})
	}
}

func MetaCatalogHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		_, enums := storage.Model()
		dir, ok := enums[name]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Catalog not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"name":  name,
			"items": dir.Items,
		})
	}
}

// dialectParam reads ?dialect=, falling back to def. It answers 400 itself
// when the value is unknown.
func dialectParam(c *gin.Context, def schema.Dialect) (schema.Dialect, bool) {
	raw := c.Query("dialect")
	if raw == "" {
		return def, true
	}
	d, err := schema.ParseDialect(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return 0, false
	}
	return d, true
}

// schemaError maps synthesis failures to responses: descriptor problems are
// the client's to fix, anything else is ours.
func schemaError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, schema.ErrUnresolvedRelationTarget),
		errors.Is(err, schema.ErrInvalidJoinTable),
		errors.Is(err, schema.ErrInvalidSchema):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
