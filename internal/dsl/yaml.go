package dsl

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type yamlFile struct {
	Entities []yamlEntity `yaml:"entities"`
}

type yamlEntity struct {
	Name   string      `yaml:"name"`
	Table  string      `yaml:"table"`
	Audit  *bool       `yaml:"audit"`
	Lock   *bool       `yaml:"lock"`
	Unique [][]string  `yaml:"unique"`
	Fields []yamlField `yaml:"fields"`
}

type yamlField struct {
	Name     string   `yaml:"name"`
	Type     string   `yaml:"type"`
	Values   []string `yaml:"values"`
	EnumRef  string   `yaml:"enumRef"`
	ID       string   `yaml:"id"`
	Sequence string   `yaml:"sequence"`
	Column   string   `yaml:"column"`
	Length   int      `yaml:"length"`
	Nullable *bool    `yaml:"nullable"`
	Unique   bool     `yaml:"unique"`

	Relation          string `yaml:"relation"`
	Target            string `yaml:"target"`
	MappedBy          string `yaml:"mappedBy"`
	JoinColumn        string `yaml:"joinColumn"`
	InverseJoinColumn string `yaml:"inverseJoinColumn"`
	JoinTable         string `yaml:"joinTable"`
}

// LoadYAML reads entity descriptors from a YAML document.
func LoadYAML(path string) ([]*Entity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ents, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, e := range ents {
		e.Source = path
	}
	return ents, nil
}

// ParseYAML decodes a document with a top-level "entities" list.
func ParseYAML(data []byte) ([]*Entity, error) {
	var doc yamlFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	out := make([]*Entity, 0, len(doc.Entities))
	for _, ye := range doc.Entities {
		e := &Entity{
			Name:           ye.Name,
			Table:          ye.Table,
			Audit:          ye.Audit,
			OptimisticLock: ye.Lock,
			Unique:         ye.Unique,
		}
		for _, yf := range ye.Fields {
			f, err := yf.field()
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", ye.Name, yf.Name, err)
			}
			e.Fields = append(e.Fields, f)
		}
		out = append(out, e)
	}
	return out, nil
}

func (yf yamlField) field() (Field, error) {
	f := Field{Name: yf.Name, Enum: yf.Values, EnumRef: yf.EnumRef}

	if yf.Relation != "" {
		kind := RelationKind(strings.ToLower(yf.Relation))
		switch kind {
		case OneToOne, ManyToOne, OneToMany, ManyToMany:
		default:
			return f, fmt.Errorf("unknown relation %q", yf.Relation)
		}
		target := yf.Target
		if target == "" {
			target = yf.Type
		}
		f.Relation = &Relation{
			Kind:              kind,
			Target:            target,
			MappedBy:          yf.MappedBy,
			JoinColumn:        yf.JoinColumn,
			InverseJoinColumn: yf.InverseJoinColumn,
			JoinTable:         yf.JoinTable,
		}
	} else {
		f.Type = ParseType(yf.Type)
	}

	if yf.ID != "" {
		strategy := Strategy(strings.ToLower(yf.ID))
		switch strategy {
		case StrategyAuto, StrategyIdentity, StrategySequence, StrategyTable:
		default:
			return f, fmt.Errorf("unknown id strategy %q", yf.ID)
		}
		f.ID = &Identifier{Strategy: strategy, Sequence: yf.Sequence}
	}

	col := Column{Name: yf.Column, Length: yf.Length, Nullable: yf.Nullable, Unique: yf.Unique}
	if col != (Column{}) {
		f.Column = &col
	}
	return f, nil
}
