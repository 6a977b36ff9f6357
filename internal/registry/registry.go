package registry

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"github.com/jobrunner/refsys/internal/domain"
)

//go:embed builtin.yaml
var builtinYAML []byte

// Registry maps authority codes to CRS objects. It is immutable once built and safe
// for concurrent use.
type Registry struct {
	definitions []Definition
	index       map[string]int
	crs         map[string]domain.CRS
	codes       []string
}

// New builds a registry from definitions. A later definition replaces an earlier one
// with the same code; projected and compound definitions may reference any code
// defined before them.
func New(defs ...Definition) (*Registry, error) {
	r := &Registry{
		index: make(map[string]int),
		crs:   make(map[string]domain.CRS),
	}
	b := &builder{built: r.crs}

	for _, def := range defs {
		code, err := domain.ParseCode(def.Code)
		if err != nil {
			return nil, fmt.Errorf("definition %q: %w", def.Name, err)
		}
		c, err := b.build(def)
		if err != nil {
			return nil, fmt.Errorf("definition %s: %w", code, err)
		}

		def.Code = code
		if i, ok := r.index[code]; ok {
			r.definitions[i] = def
		} else {
			r.index[code] = len(r.definitions)
			r.definitions = append(r.definitions, def)
			r.codes = append(r.codes, code)
		}
		r.crs[code] = c
	}

	sort.Strings(r.codes)
	return r, nil
}

var builtin = sync.OnceValues(func() (*Registry, error) {
	defs, err := Parse(builtinYAML)
	if err != nil {
		return nil, fmt.Errorf("built-in definitions: %w", err)
	}
	return New(defs...)
})

// Builtin returns the registry of built-in definitions.
func Builtin() (*Registry, error) {
	return builtin()
}

// Extend returns a new registry with defs added to, or replacing, the definitions
// of r.
func (r *Registry) Extend(defs ...Definition) (*Registry, error) {
	all := make([]Definition, 0, len(r.definitions)+len(defs))
	all = append(all, r.definitions...)
	all = append(all, defs...)
	return New(all...)
}

// CRS returns the CRS registered under code. Codes are normalized first, so
// "4326", "epsg:4326" and "urn:ogc:def:crs:EPSG::4326" are equivalent.
func (r *Registry) CRS(code string) (domain.CRS, error) {
	normalized, err := domain.ParseCode(code)
	if err != nil {
		return nil, err
	}
	c, ok := r.crs[normalized]
	if !ok {
		return nil, fmt.Errorf("%s: %w", normalized, domain.ErrCRSNotFound)
	}
	return c, nil
}

// Definition returns the definition registered under code.
func (r *Registry) Definition(code string) (Definition, bool) {
	normalized, err := domain.ParseCode(code)
	if err != nil {
		return Definition{}, false
	}
	i, ok := r.index[normalized]
	if !ok {
		return Definition{}, false
	}
	return r.definitions[i], true
}

// Definitions returns all definitions in registration order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, len(r.definitions))
	copy(out, r.definitions)
	return out
}

// Codes returns the registered codes in sorted order.
func (r *Registry) Codes() []string {
	out := make([]string, len(r.codes))
	copy(out, r.codes)
	return out
}

// Len returns the number of registered codes.
func (r *Registry) Len() int {
	return len(r.codes)
}
