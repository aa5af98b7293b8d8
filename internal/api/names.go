// api/names.go
package api

import (
	"strings"

	"crudgen/internal/schema"
)

// NormalizeEntityName resolves a request path segment to an entity name.
// Exact names win; otherwise a case-insensitive match on the entity name or
// its table name is accepted when it is unique.
func (s *Storage) NormalizeEntityName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.Entities {
		if e.Name == name {
			return e.Name, true
		}
	}

	var found string
	for _, e := range s.Entities {
		if strings.EqualFold(e.Name, name) || strings.EqualFold(schema.TableName(e), name) {
			if found != "" && found != e.Name {
				return "", false
			}
			found = e.Name
		}
	}
	return found, found != ""
}
