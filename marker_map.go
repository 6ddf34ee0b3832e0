package attributeutils

import (
	"bytes"

	j "github.com/goccy/go-json"
)

// MarkerMap is an ordered collection of resolved child markers keyed by
// component name. A nil *MarkerMap reads as empty.
type MarkerMap struct {
	names  []string
	byName map[string]any
}

// NewMarkerMap returns an empty MarkerMap.
func NewMarkerMap() *MarkerMap { return &MarkerMap{byName: map[string]any{}} }

func newMarkerMapCap(n int) *MarkerMap {
	return &MarkerMap{names: make([]string, 0, n), byName: make(map[string]any, n)}
}

// Set inserts or replaces the marker stored under name, keeping first-insert
// order.
func (m *MarkerMap) Set(name string, marker any) {
	if m.byName == nil {
		m.byName = map[string]any{}
	}
	if _, ok := m.byName[name]; !ok {
		m.names = append(m.names, name)
	}
	m.byName[name] = marker
}

// Get returns the marker stored under name.
func (m *MarkerMap) Get(name string) (any, bool) {
	if m == nil || m.byName == nil {
		return nil, false
	}
	v, ok := m.byName[name]
	return v, ok
}

// Len reports the number of entries.
func (m *MarkerMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.names)
}

// Names returns the entry names in insertion order.
func (m *MarkerMap) Names() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// Range calls fn for each entry in insertion order until fn returns false.
func (m *MarkerMap) Range(fn func(name string, marker any) bool) {
	if m == nil {
		return
	}
	for _, n := range m.names {
		if !fn(n, m.byName[n]) {
			return
		}
	}
}

// MarkerAt returns the entry stored under name as *M. It follows embedded
// marker fields, so a subtype entry answers a request for its base type.
func MarkerAt[M any](m *MarkerMap, name string) (*M, bool) {
	v, ok := m.Get(name)
	if !ok {
		return nil, false
	}
	return markerAs[M](v)
}

// MarshalJSON renders the map as a JSON object in insertion order.
func (m *MarkerMap) MarshalJSON() ([]byte, error) {
	if m == nil || len(m.names) == 0 {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range m.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := j.Marshal(n)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := j.Marshal(m.byName[n])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
