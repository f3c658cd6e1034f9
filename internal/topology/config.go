// Package topology loads a pipeline definition, wires sources to sinks and
// runs them.
package topology

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/logship/internal/source"
	"github.com/bft-labs/logship/pkg/sinks"
)

// SourceSpec is a decoded [sources.<id>] table.
type SourceSpec struct {
	ID     string
	Kind   string
	Source source.Source
}

// SinkSpec is a decoded [sinks.<id>] table.
type SinkSpec struct {
	ID     string
	Kind   string
	Inputs []string
	Config sinks.Config
}

// Topology is a validated pipeline definition. Components are sorted by ID.
type Topology struct {
	Sources []SourceSpec
	Sinks   []SinkSpec
}

// Sink returns the sink with the given id.
func (t *Topology) Sink(id string) (SinkSpec, bool) {
	for _, s := range t.Sinks {
		if s.ID == id {
			return s, true
		}
	}
	return SinkSpec{}, false
}

// header holds the keys every component table shares.
type header struct {
	ID     string   `toml:"id" validate:"required,excludesall=. "`
	Type   string   `toml:"type" validate:"required"`
	Inputs []string `toml:"inputs" validate:"omitempty,dive,required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("toml"), ",", 2)[0]
	})
	return v
}

// Load reads the topology file at path, expands ${VAR} references from the
// environment and parses the result with reg.
func Load(path string, reg *sinks.Registry) (*Topology, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topology: %w", err)
	}
	expanded, err := Interpolate(b, os.LookupEnv)
	if err != nil {
		return nil, err
	}
	return Parse(expanded, reg)
}

var envRef = regexp.MustCompile(`\$\$|\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// Interpolate replaces ${VAR} and ${VAR:-default} with values from lookup.
// "$$" produces a literal "$". A variable that is unset and has no default
// is an error, so a missing secret never silently becomes an empty string.
//
// Values substituted inside a TOML basic string are escaped so that they
// decode to the raw value. Anywhere else they are pasted verbatim. Defaults
// are TOML source text and are never escaped.
func Interpolate(data []byte, lookup func(string) (string, bool)) ([]byte, error) {
	var (
		out     bytes.Buffer
		missing []string
		sc      tomlScanner
		last    int
	)
	for _, loc := range envRef.FindAllSubmatchIndex(data, -1) {
		sc.advance(data[last:loc[0]])
		out.Write(data[last:loc[0]])
		last = loc[1]

		if loc[2] < 0 { // "$$"
			out.WriteByte('$')
			continue
		}
		name := string(data[loc[2]:loc[3]])
		if v, ok := lookup(name); ok {
			if sc.inBasicString() {
				v = escapeBasic(v)
			}
			out.WriteString(v)
			continue
		}
		if loc[4] >= 0 {
			out.Write(data[loc[6]:loc[7]])
			continue
		}
		missing = append(missing, name)
	}
	out.Write(data[last:])

	if len(missing) > 0 {
		return nil, &sinks.ConfigError{
			Kind: sinks.KindInvalidValue,
			Msg:  fmt.Sprintf("undefined environment variables: %s", strings.Join(missing, ", ")),
		}
	}
	return out.Bytes(), nil
}

type tomlState int

const (
	tomlBare tomlState = iota
	tomlBasic
	tomlMultiBasic
	tomlLiteral
	tomlMultiLiteral
	tomlComment
)

// tomlScanner tracks whether the text seen so far ends inside a string or
// a comment. It knows just enough TOML to place ${VAR} references.
type tomlScanner struct {
	state tomlState
	// escaped marks that the next byte follows a backslash in a basic string.
	escaped bool
}

func (s *tomlScanner) inBasicString() bool {
	return s.state == tomlBasic || s.state == tomlMultiBasic
}

func (s *tomlScanner) advance(chunk []byte) {
	for i := 0; i < len(chunk); i++ {
		c := chunk[i]
		if s.escaped {
			s.escaped = false
			continue
		}
		switch s.state {
		case tomlBare:
			switch {
			case bytes.HasPrefix(chunk[i:], []byte(`"""`)):
				s.state = tomlMultiBasic
				i += 2
			case c == '"':
				s.state = tomlBasic
			case bytes.HasPrefix(chunk[i:], []byte("'''")):
				s.state = tomlMultiLiteral
				i += 2
			case c == '\'':
				s.state = tomlLiteral
			case c == '#':
				s.state = tomlComment
			}
		case tomlBasic:
			switch c {
			case '\\':
				s.escaped = true
			case '"', '\n':
				s.state = tomlBare
			}
		case tomlMultiBasic:
			switch {
			case c == '\\':
				s.escaped = true
			case bytes.HasPrefix(chunk[i:], []byte(`"""`)):
				s.state = tomlBare
				i += 2
			}
		case tomlLiteral:
			if c == '\'' || c == '\n' {
				s.state = tomlBare
			}
		case tomlMultiLiteral:
			if bytes.HasPrefix(chunk[i:], []byte("'''")) {
				s.state = tomlBare
				i += 2
			}
		case tomlComment:
			if c == '\n' {
				s.state = tomlBare
			}
		}
	}
}

// escapeBasic escapes v for use inside a TOML basic string.
func escapeBasic(v string) string {
	var b strings.Builder
	for _, r := range v {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04X`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Parse decodes a topology document. Each sink table is decoded strictly by
// the kind registered in reg, and every sink input must name a source whose
// output the sink accepts.
func Parse(data []byte, reg *sinks.Registry) (*Topology, error) {
	var raw struct {
		Sources map[string]map[string]any `toml:"sources"`
		Sinks   map[string]map[string]any `toml:"sinks"`
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, &sinks.ConfigError{Kind: sinks.KindInvalidValue, Msg: "unknown top-level table", Err: errors.New(strict.String())}
		}
		return nil, fmt.Errorf("parse topology: %w", err)
	}
	if len(raw.Sinks) == 0 {
		return nil, &sinks.ConfigError{Kind: sinks.KindInvalidValue, Field: "sinks", Msg: "at least one sink is required"}
	}

	t := &Topology{}
	outputs := make(map[string]SourceSpec, len(raw.Sources))

	for _, id := range sortedKeys(raw.Sources) {
		h, rest, err := splitHeader("sources", id, raw.Sources[id])
		if err != nil {
			return nil, err
		}
		if len(h.Inputs) > 0 {
			return nil, &sinks.ConfigError{Kind: sinks.KindInvalidValue, Field: "sources." + id + ".inputs", Msg: "sources do not take inputs"}
		}
		src, err := source.Decode(h.Type, rest)
		if err != nil {
			return nil, fmt.Errorf("sources.%s: %w", id, err)
		}
		spec := SourceSpec{ID: id, Kind: h.Type, Source: src}
		t.Sources = append(t.Sources, spec)
		outputs[id] = spec
	}

	for _, id := range sortedKeys(raw.Sinks) {
		h, rest, err := splitHeader("sinks", id, raw.Sinks[id])
		if err != nil {
			return nil, err
		}
		field := "sinks." + id + ".inputs"
		if len(h.Inputs) == 0 {
			return nil, &sinks.ConfigError{Kind: sinks.KindInvalidValue, Field: field, Msg: "at least one input is required"}
		}
		cfg, err := reg.Decode(h.Type, rest)
		if err != nil {
			return nil, fmt.Errorf("sinks.%s: %w", id, err)
		}

		for _, in := range h.Inputs {
			src, ok := outputs[in]
			if !ok {
				return nil, &sinks.ConfigError{Kind: sinks.KindInvalidValue, Field: field, Msg: fmt.Sprintf("unknown input %q", in)}
			}
			if produced := src.Source.OutputType(); !cfg.InputType().Accepts(produced) {
				return nil, &sinks.ConfigError{
					Kind:  sinks.KindTypeMismatch,
					Field: field,
					Msg: fmt.Sprintf("%s sink accepts %s events but input %q produces %s",
						cfg.SinkType(), cfg.InputType(), in, produced),
				}
			}
		}
		t.Sinks = append(t.Sinks, SinkSpec{ID: id, Kind: h.Type, Inputs: h.Inputs, Config: cfg})
	}
	return t, nil
}

// splitHeader separates the shared keys from the kind-specific ones.
func splitHeader(section, id string, table map[string]any) (header, map[string]any, error) {
	prefix := section + "." + id
	h := header{ID: id}
	rest := make(map[string]any, len(table))

	for k, v := range table {
		switch k {
		case "type":
			s, ok := v.(string)
			if !ok {
				return h, nil, &sinks.ConfigError{Kind: sinks.KindInvalidValue, Field: prefix + ".type", Msg: "must be a string"}
			}
			h.Type = s
		case "inputs":
			list, ok := v.([]any)
			if !ok {
				return h, nil, &sinks.ConfigError{Kind: sinks.KindInvalidValue, Field: prefix + ".inputs", Msg: "must be a list of strings"}
			}
			for _, item := range list {
				s, ok := item.(string)
				if !ok {
					return h, nil, &sinks.ConfigError{Kind: sinks.KindInvalidValue, Field: prefix + ".inputs", Msg: "must be a list of strings"}
				}
				h.Inputs = append(h.Inputs, s)
			}
		default:
			rest[k] = v
		}
	}

	if err := validate.Struct(h); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			name := fe.Field()
			if name == "id" {
				return h, nil, &sinks.ConfigError{Kind: sinks.KindInvalidValue, Field: prefix, Msg: "component ids must be non-empty and contain no dots or spaces"}
			}
			return h, nil, &sinks.ConfigError{Kind: sinks.KindInvalidValue, Field: prefix + "." + name, Msg: fmt.Sprintf("failed %q check", fe.Tag())}
		}
		return h, nil, err
	}
	return h, rest, nil
}

func sortedKeys(m map[string]map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
