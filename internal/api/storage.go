package api

import (
	"log/slog"
	"sync"

	"crudgen/internal/dsl"
	"crudgen/internal/reference"
	"crudgen/internal/schema"
)

// Loader reads the entity set and enum catalogs from their source.
type Loader func() ([]*dsl.Entity, map[string]reference.EnumDirectory, error)

// Storage holds the loaded model and the schemas synthesized from it, one
// per dialect, built on first use.
type Storage struct {
	mu       sync.RWMutex
	Entities []*dsl.Entity
	Enums    map[string]reference.EnumDirectory
	schemas  map[schema.Dialect]*schema.Schema
	gen      uint64 // bumped on every reload

	Dialect     schema.Dialect // used when a request names none
	Options     schema.Options
	ProjectRoot string

	load Loader
}

// NewStorage loads the model once through load.
func NewStorage(load Loader, d schema.Dialect, projectRoot string, opts schema.Options) (*Storage, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Storage{Dialect: d, Options: opts, ProjectRoot: projectRoot, load: load}
	entities, enums, err := load()
	if err != nil {
		return nil, err
	}
	s.replace(entities, enums)
	return s, nil
}

func (s *Storage) replace(entities []*dsl.Entity, enums map[string]reference.EnumDirectory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Entities = entities
	s.Enums = enums
	s.schemas = map[schema.Dialect]*schema.Schema{}
	s.gen++
}

// Model returns the current entity set and catalogs.
func (s *Storage) Model() ([]*dsl.Entity, map[string]reference.EnumDirectory) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Entities, s.Enums
}

// Schema synthesizes the model for d, reusing an earlier result.
func (s *Storage) Schema(d schema.Dialect) (*schema.Schema, error) {
	s.mu.RLock()
	cached, ok := s.schemas[d]
	entities, gen := s.Entities, s.gen
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	sc, err := schema.Synthesize(entities, d, s.Options)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.gen == gen {
		s.schemas[d] = sc
	}
	s.mu.Unlock()
	return sc, nil
}

// Entity returns the named entity.
func (s *Storage) Entity(name string) *dsl.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.Entities {
		if e.Name == name {
			return e
		}
	}
	return nil
}
