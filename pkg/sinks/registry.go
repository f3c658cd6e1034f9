package sinks

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
)

// Description ties a kind name to a constructor for its zero configuration.
type Description struct {
	Name string
	New  func() Config
}

// NewDescription describes kind name backed by configuration type T.
// Decoded tables are unmarshalled into a fresh *T.
func NewDescription[T any, PT interface {
	*T
	Config
}](name string) Description {
	return Description{
		Name: name,
		New:  func() Config { return PT(new(T)) },
	}
}

// Registry maps sink kind names to their descriptions. Registration is
// append-only.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]Description
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]Description)}
}

// Register adds d. Registering a name twice is an error.
func (r *Registry) Register(d Description) error {
	if d.Name == "" || d.New == nil {
		return errors.New("sinks: description needs a name and a constructor")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.kinds[d.Name]; ok {
		return fmt.Errorf("sinks: kind %q already registered", d.Name)
	}
	r.kinds[d.Name] = d
	return nil
}

// MustRegister is Register that panics on error. Meant for startup code.
func (r *Registry) MustRegister(d Description) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Lookup returns the description registered under name.
func (r *Registry) Lookup(name string) (Description, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.kinds[name]
	return d, ok
}

// Kinds returns the registered names in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Decode builds the configuration of kind from a raw TOML table. Keys the
// kind does not know are rejected.
func (r *Registry) Decode(kind string, table map[string]any) (Config, error) {
	d, ok := r.Lookup(kind)
	if !ok {
		return nil, &ConfigError{
			Kind:  KindUnknownSinkKind,
			Field: "type",
			Msg:   fmt.Sprintf("unknown sink kind %q (registered: %v)", kind, r.Kinds()),
		}
	}

	b, err := toml.Marshal(table)
	if err != nil {
		return nil, fmt.Errorf("re-encode %s table: %w", kind, err)
	}

	cfg := d.New()
	dec := toml.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, &ConfigError{Kind: KindInvalidValue, Msg: "unknown field", Err: errors.New(strict.String())}
		}
		return nil, &ConfigError{Kind: KindInvalidValue, Msg: fmt.Sprintf("decode %s configuration", kind), Err: err}
	}
	return cfg, nil
}
