package dsl

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"crudgen/internal/reference"
)

// LoadAllEntities walks root and loads every .dsl, .yaml and .yml file in
// lexical path order. Entities keep their declaration order within a file.
func LoadAllEntities(root string) ([]*Entity, error) {
	var result []*Entity

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		var (
			ents []*Entity
			err  error
		)
		switch strings.ToLower(filepath.Ext(d.Name())) {
		case ".dsl":
			ents, err = LoadEntities(path)
		case ".yaml", ".yml":
			ents, err = LoadYAML(path)
		default:
			return nil
		}
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		result = append(result, ents...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Validate performs the checks the schema engine expects its caller to have
// done: non-empty and unique entity names, at least one identifier per entity.
func Validate(entities []*Entity) error {
	var errs []error
	seen := make(map[string]string, len(entities))
	for _, e := range entities {
		if e == nil || strings.TrimSpace(e.Name) == "" {
			errs = append(errs, errors.New("entity with empty name"))
			continue
		}
		if prev, ok := seen[e.Name]; ok {
			errs = append(errs, fmt.Errorf("duplicate entity %q (%s, %s)", e.Name, prev, e.Source))
			continue
		}
		seen[e.Name] = e.Source
		if len(e.IDFields()) == 0 {
			errs = append(errs, fmt.Errorf("entity %q has no identifier field", e.Name))
		}
	}
	return errors.Join(errs...)
}

// ResolveEnums fills the literal values of enum fields that reference a
// catalog. Inline values win over the catalog.
func ResolveEnums(entities []*Entity, catalog map[string]reference.EnumDirectory) error {
	for _, e := range entities {
		for i := range e.Fields {
			f := &e.Fields[i]
			if f.Type.Kind != KindEnum || f.EnumRef == "" || len(f.Enum) > 0 {
				continue
			}
			dir, ok := catalog[f.EnumRef]
			if !ok {
				return fmt.Errorf("%s.%s: unknown enum catalog %q", e.Name, f.Name, f.EnumRef)
			}
			f.Enum = dir.Codes()
		}
	}
	return nil
}

// LoadProject loads the entities under entitiesDir, fills enum values from
// the catalogs in enumsDir and validates the set.
func LoadProject(entitiesDir, enumsDir string) ([]*Entity, map[string]reference.EnumDirectory, error) {
	entities, err := LoadAllEntities(entitiesDir)
	if err != nil {
		return nil, nil, err
	}
	catalog, err := reference.LoadEnumCatalog(enumsDir)
	if err != nil {
		return nil, nil, fmt.Errorf("enum catalog: %w", err)
	}
	if err := ResolveEnums(entities, catalog); err != nil {
		return nil, nil, err
	}
	if err := Validate(entities); err != nil {
		return nil, nil, err
	}
	return entities, catalog, nil
}
