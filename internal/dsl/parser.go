package dsl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var (
	entityRe           = regexp.MustCompile(`^entity\s+(\w+)(.*):\s*$`)
	fieldRe            = regexp.MustCompile(`^\s*([\w_]+):\s*([^\s#]+)(.*)$`)
	enumRe             = regexp.MustCompile(`^enum\[(.*)\]$`)
	enumRefRe          = regexp.MustCompile(`^enum\((\w+)\)$`)
	refRe              = regexp.MustCompile(`^ref\[([A-Za-z0-9_]+)\]$`)
	relationRe         = regexp.MustCompile(`^(one-to-one|many-to-one|one-to-many|many-to-many)\[([A-Za-z0-9_]+)\]$`)
	reConstraintsStart = regexp.MustCompile(`^\s*constraints\s*:\s*$`)
	reUniqueLine       = regexp.MustCompile(`^\s*unique\s*\(\s*([^)]+)\s*\)\s*$`)
)

// splitOptionTokens splits "k=v k2='v 2' pattern=^[A-Z ]+$" into tokens without
// breaking inside quotes or brackets.
func splitOptionTokens(s string) []string {
	var out []string
	var buf []rune
	inSingle, inDouble := false, false
	bracketDepth := 0

	flush := func() {
		if len(buf) > 0 {
			out = append(out, string(buf))
			buf = buf[:0]
		}
	}

	for _, r := range s {
		switch r {
		case '\'':
			if !inDouble && bracketDepth == 0 {
				inSingle = !inSingle
			}
			buf = append(buf, r)
		case '"':
			if !inSingle && bracketDepth == 0 {
				inDouble = !inDouble
			}
			buf = append(buf, r)
		case '[':
			if !inSingle && !inDouble {
				bracketDepth++
			}
			buf = append(buf, r)
		case ']':
			if !inSingle && !inDouble && bracketDepth > 0 {
				bracketDepth--
			}
			buf = append(buf, r)
		default:
			if (r == ' ' || r == '\t') && !inSingle && !inDouble && bracketDepth == 0 {
				flush()
				continue
			}
			buf = append(buf, r)
		}
	}
	flush()
	return out
}

// parseOptions turns option tokens into a lower-cased key map. Bare flags map
// to "true".
func parseOptions(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	if strings.HasPrefix(strings.ToLower(raw), "options:") {
		raw = strings.TrimSpace(raw[len("options:"):])
	}
	raw = strings.ReplaceAll(raw, ",", " ")

	opts := map[string]string{}
	for _, tok := range splitOptionTokens(raw) {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if !strings.Contains(tok, "=") {
			opts[strings.ToLower(tok)] = "true"
			continue
		}
		kv := strings.SplitN(tok, "=", 2)
		k := strings.ToLower(strings.TrimSpace(kv[0]))
		v := strings.TrimSpace(kv[1])
		if len(v) >= 2 {
			if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
				v = v[1 : len(v)-1]
			}
		}
		if k != "" {
			opts[k] = v
		}
	}
	return opts
}

func optBool(opts map[string]string, key string) (*bool, error) {
	v, ok := opts[key]
	if !ok {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("option %s: %w", key, err)
	}
	return &b, nil
}

func splitEnumLiterals(inside string) []string {
	var out []string
	for _, p := range strings.Split(inside, ",") {
		s := strings.Trim(strings.TrimSpace(p), `"'`)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// LoadEntities reads one .dsl file.
func LoadEntities(path string) ([]*Entity, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	ents, err := ParseEntities(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, e := range ents {
		e.Source = path
	}
	return ents, nil
}

// ParseEntities parses the line-based entity language:
//
//	entity Order table=orders audit lock:
//	  id: Long id=identity
//	  status: enum[NEW, PAID] required
//	  customer: many-to-one[Customer] join=customer_ref
//	  constraints:
//	    unique(name, customer)
func ParseEntities(r io.Reader) ([]*Entity, error) {
	var entities []*Entity
	var current *Entity
	inConstraints := false
	lineNo := 0

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if m := entityRe.FindStringSubmatch(line); m != nil {
			if current != nil {
				entities = append(entities, current)
			}
			e, err := parseEntityHeader(m[1], m[2])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			current = e
			inConstraints = false
			continue
		}
		if current == nil {
			continue
		}

		if reConstraintsStart.MatchString(line) {
			inConstraints = true
			continue
		}
		if inConstraints {
			if m := reUniqueLine.FindStringSubmatch(line); m != nil {
				var set []string
				for _, p := range strings.Split(m[1], ",") {
					if p = strings.TrimSpace(p); p != "" {
						set = append(set, p)
					}
				}
				if len(set) > 0 {
					current.Unique = append(current.Unique, set)
				}
				continue
			}
			inConstraints = false
		}

		if m := fieldRe.FindStringSubmatch(line); m != nil {
			f, err := parseField(m[1], m[2], m[3])
			if err != nil {
				return nil, fmt.Errorf("line %d: %s.%s: %w", lineNo, current.Name, m[1], err)
			}
			current.Fields = append(current.Fields, f)
		}
	}

	if current != nil {
		entities = append(entities, current)
	}
	return entities, scanner.Err()
}

func parseEntityHeader(name, tail string) (*Entity, error) {
	opts := parseOptions(tail)
	e := &Entity{Name: name, Table: opts["table"]}

	var err error
	if e.Audit, err = optBool(opts, "audit"); err != nil {
		return nil, err
	}
	if e.OptimisticLock, err = optBool(opts, "lock"); err != nil {
		return nil, err
	}
	if _, ok := opts["noaudit"]; ok {
		e.Audit = Bool(false)
	}
	return e, nil
}

func parseField(name, rawType, tail string) (Field, error) {
	// enum[A, B] may have been split at the first space
	if strings.HasPrefix(rawType, "enum[") && !strings.Contains(rawType, "]") {
		if idx := strings.Index(tail, "]"); idx >= 0 {
			rawType += tail[:idx+1]
			tail = tail[idx+1:]
		}
	}
	opts := parseOptions(tail)
	f := Field{Name: name}

	switch {
	case enumRe.MatchString(rawType):
		f.Type = Type{Kind: KindEnum, Raw: "Enum"}
		f.Enum = splitEnumLiterals(enumRe.FindStringSubmatch(rawType)[1])
	case enumRefRe.MatchString(rawType):
		f.Type = Type{Kind: KindEnum, Raw: "Enum"}
		f.EnumRef = enumRefRe.FindStringSubmatch(rawType)[1]
	case refRe.MatchString(rawType):
		f.Relation = &Relation{Kind: ManyToOne, Target: refRe.FindStringSubmatch(rawType)[1]}
	case relationRe.MatchString(rawType):
		m := relationRe.FindStringSubmatch(rawType)
		f.Relation = &Relation{Kind: RelationKind(m[1]), Target: m[2]}
	default:
		f.Type = ParseType(rawType)
	}

	if f.Relation != nil {
		f.Relation.JoinColumn = opts["join"]
		f.Relation.InverseJoinColumn = opts["inversejoin"]
		f.Relation.JoinTable = opts["jointable"]
		f.Relation.MappedBy = opts["mappedby"]
	}

	if v, ok := opts["id"]; ok {
		strategy := StrategyAuto
		if v != "true" {
			strategy = Strategy(strings.ToLower(v))
		}
		switch strategy {
		case StrategyAuto, StrategyIdentity, StrategySequence, StrategyTable:
		default:
			return f, fmt.Errorf("unknown id strategy %q", v)
		}
		f.ID = &Identifier{Strategy: strategy, Sequence: opts["seq"]}
	}

	col := &Column{Name: opts["column"]}
	if v, ok := opts["length"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return f, fmt.Errorf("invalid length %q", v)
		}
		col.Length = n
	}
	if _, ok := opts["required"]; ok {
		col.Nullable = Bool(false)
	}
	nullable, err := optBool(opts, "nullable")
	if err != nil {
		return f, err
	}
	if nullable != nil {
		col.Nullable = nullable
	}
	_, col.Unique = opts["unique"]
	if *col != (Column{}) {
		f.Column = col
	}
	return f, nil
}
