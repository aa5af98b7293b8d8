// api/schema_lint.go
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"crudgen/internal/dsl"
	"crudgen/internal/schema"
)

// blocking reports whether an issue stops synthesis outright.
func blocking(i schema.Issue) bool {
	switch i.Code {
	case schema.CodeUnresolvedTarget, schema.CodeInvalidJoinTable, schema.CodeInvalidSchema:
		return true
	}
	return false
}

// SchemaLint lints entities for d with the storage's synthesis options.
func (s *Storage) SchemaLint(entities []*dsl.Entity, d schema.Dialect) (issues []schema.Issue, fatal bool) {
	issues = schema.Lint(entities, d, s.Options)
	for _, it := range issues {
		if blocking(it) {
			fatal = true
		}
	}
	return issues, fatal
}

func LintHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, ok := dialectParam(c, storage.Dialect)
		if !ok {
			return
		}
		entities, _ := storage.Model()
		issues, fatal := storage.SchemaLint(entities, d)
		if issues == nil {
			issues = []schema.Issue{}
		}
		c.JSON(http.StatusOK, gin.H{
			"dialect": d,
			"ok":      !fatal,
			"issues":  issues,
		})
	}
}
