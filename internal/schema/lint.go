package schema

import (
	"errors"
	"fmt"
	"strings"

	"crudgen/internal/dsl"
)

// Lint reports every problem it can find without stopping at the first fatal
// one: unresolved targets and blank join tables across all entities, then the
// warnings of a full synthesis pass.
func Lint(entities []*dsl.Entity, d Dialect, opts Options) []Issue {
	var issues []Issue
	known := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		known[e.Name] = struct{}{}
	}
	for _, e := range entities {
		for _, f := range e.Fields {
			rel := f.Relation
			if rel == nil {
				continue
			}
			if _, ok := known[rel.Target]; !ok {
				issues = append(issues, Issue{
					Entity:  e.Name,
					Field:   f.Name,
					Code:    CodeUnresolvedTarget,
					Message: fmt.Sprintf("relation targets unknown entity %q", rel.Target),
				})
			}
			if rel.Kind == dsl.ManyToMany && rel.Owning() && strings.TrimSpace(rel.JoinTable) == "" {
				issues = append(issues, Issue{
					Entity:  e.Name,
					Field:   f.Name,
					Code:    CodeInvalidJoinTable,
					Message: "many-to-many relation has no join table name",
				})
			}
		}
	}
	if len(issues) > 0 {
		return issues
	}

	s, err := Synthesize(entities, d, opts)
	if err != nil {
		return append(issues, errorIssue(err))
	}
	return s.Issues
}

func errorIssue(err error) Issue {
	var (
		relErr  *RelationError
		joinErr *JoinTableError
		defErr  *DefinitionError
	)
	switch {
	case errors.As(err, &relErr):
		return Issue{Entity: relErr.Entity, Field: relErr.Field, Code: CodeUnresolvedTarget, Message: err.Error()}
	case errors.As(err, &joinErr):
		return Issue{Entity: joinErr.Entity, Field: joinErr.Field, Code: CodeInvalidJoinTable, Message: joinErr.Message}
	case errors.As(err, &defErr):
		return Issue{Entity: defErr.Entity, Field: defErr.Field, Code: CodeInvalidSchema, Message: defErr.Message}
	}
	return Issue{Code: CodeInvalidSchema, Message: err.Error()}
}
