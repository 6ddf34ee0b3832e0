package attributeutils

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// The marker registry maps stable names to marker types so descriptor files,
// caches and CLI tooling can refer to markers without Go type identity.
var (
	registryMu    sync.RWMutex
	markersByName = map[string]reflect.Type{}
	markerNames   = map[reflect.Type]string{}
)

// RegisterMarker registers marker type M under name. Registration precomputes
// the type's spec, so invalid marker declarations fail here instead of at
// first resolution. Re-registering the same pair is a no-op; conflicting
// registrations error.
func RegisterMarker[M any](name string) error {
	t := TypeOf[M]()
	if name == "" {
		return Issues{IssueAt("/", CodeInvalidMarker, map[string]any{"marker": t.String(), "name": ""})}
	}
	if _, err := specFor(t); err != nil {
		return err
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if prev, ok := markersByName[name]; ok {
		if prev == t {
			return nil
		}
		return Issues{IssueAt("/", CodeInvalidMarker, map[string]any{"name": name, "have": prev.String(), "want": t.String()})}
	}
	if prevName, ok := markerNames[t]; ok && prevName != name {
		return Issues{IssueAt("/", CodeInvalidMarker, map[string]any{"marker": t.String(), "have": prevName, "want": name})}
	}
	markersByName[name] = t
	markerNames[t] = name
	return nil
}

// MustRegisterMarker is like RegisterMarker but panics on error; intended for
// package init blocks.
func MustRegisterMarker[M any](name string) {
	if err := RegisterMarker[M](name); err != nil {
		panic(fmt.Sprintf("attributeutils: register %q: %v", name, err))
	}
}

// MarkerTypeByName returns the registered marker type for name.
func MarkerTypeByName(name string) (reflect.Type, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	t, ok := markersByName[name]
	return t, ok
}

// MarkerName returns the registered name for a marker type, accepting either
// the struct type or a pointer to it.
func MarkerName(t reflect.Type) (string, bool) {
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	registryMu.RLock()
	defer registryMu.RUnlock()
	n, ok := markerNames[t]
	return n, ok
}

// RegisteredMarkers returns all registered names in sorted order.
func RegisteredMarkers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(markersByName))
	for n := range markersByName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
