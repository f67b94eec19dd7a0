package run

import (
	"fmt"
	"sort"
	"strings"
)

// Param tags a run with one setting of a parametric study.
type Param struct {
	Name  string `json:"name" yaml:"name"`
	Value any    `json:"value" yaml:"value"`
}

// Params is an ordered set of uniquely named parameters.
type Params []Param

// NewParams keeps the caller's order and rejects empty or repeated names.
func NewParams(pairs ...Param) (Params, error) {
	seen := make(map[string]bool, len(pairs))
	for i, p := range pairs {
		if p.Name == "" {
			return nil, fmt.Errorf("%w: parameter %d has no name", ErrInvalidParams, i)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("%w: duplicate parameter %q", ErrInvalidParams, p.Name)
		}
		seen[p.Name] = true
	}
	return append(Params(nil), pairs...), nil
}

// ParamsFromMap orders the map by key.
func ParamsFromMap(m map[string]any) (Params, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]Param, len(keys))
	for i, k := range keys {
		pairs[i] = Param{Name: k, Value: m[k]}
	}
	return NewParams(pairs...)
}

// Get looks a parameter up by name.
func (p Params) Get(name string) (any, error) {
	for _, kv := range p {
		if kv.Name == name {
			return kv.Value, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownParam, name)
}

func (p Params) Names() []string {
	out := make([]string, len(p))
	for i, kv := range p {
		out[i] = kv.Name
	}
	return out
}

func (p Params) String() string {
	parts := make([]string, len(p))
	for i, kv := range p {
		parts[i] = fmt.Sprintf("%s=%v", kv.Name, kv.Value)
	}
	return strings.Join(parts, " ")
}
