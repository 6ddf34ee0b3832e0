package attributeutils

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ResolveMarkerKey applies the repository-wide rule to resolve a marker
// field's external argument key.
// Priority: attr:"name=..." > json tag name > field name; "-" disables the field.
func ResolveMarkerKey(sf reflect.StructField) string {
	if at := sf.Tag.Get("attr"); at != "" {
		if at == "-" {
			return "-"
		}
		parts := strings.Split(at, ",")
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if strings.HasPrefix(p, "name=") {
				return strings.TrimPrefix(p, "name=")
			}
		}
	}
	if jt := sf.Tag.Get("json"); jt != "" {
		if jt == "-" {
			return "-"
		}
		if i := strings.IndexByte(jt, ','); i >= 0 {
			return jt[:i]
		}
		return jt
	}
	return sf.Name
}

// markerFieldRequired reports whether the attr tag carries the required flag.
func markerFieldRequired(sf reflect.StructField) bool {
	at := sf.Tag.Get("attr")
	if at == "" {
		return false
	}
	for _, p := range strings.Split(at, ",") {
		if strings.TrimSpace(p) == "required" {
			return true
		}
	}
	return false
}

// fieldSpec describes one bindable marker field.
type fieldSpec struct {
	key      string
	index    []int // flattened index path; embedded value structs included
	typ      reflect.Type
	required bool
	hasDef   bool
	def      reflect.Value // parsed default literal
}

// markerSpec is the cached reflection profile of a marker struct type.
type markerSpec struct {
	typ    reflect.Type
	caps   capSet
	fields []fieldSpec
	byKey  map[string]int
}

func (s *markerSpec) name() string { return s.typ.String() }

type specEntry struct {
	spec *markerSpec
	err  error
}

var specCache sync.Map // reflect.Type -> specEntry

// normalizeMarkerType strips one level of pointer so APIs accept either a
// marker struct type or a pointer to it.
func normalizeMarkerType(t reflect.Type) reflect.Type {
	if t != nil && t.Kind() == reflect.Pointer {
		return t.Elem()
	}
	return t
}

// specFor returns the cached spec for a marker type, accepting either the
// struct type or a pointer to it. Invalid marker types and unparsable default
// literals surface as Issues the first time the type is used.
func specFor(t reflect.Type) (*markerSpec, error) {
	t = normalizeMarkerType(t)
	if t == nil || t.Kind() != reflect.Struct {
		got := "nil"
		if t != nil {
			got = t.String()
		}
		return nil, Issues{IssueAt("/", CodeInvalidMarker, map[string]any{"got": got})}
	}
	if v, ok := specCache.Load(t); ok {
		e := v.(specEntry)
		return e.spec, e.err
	}
	spec, err := buildSpec(t)
	specCache.Store(t, specEntry{spec: spec, err: err})
	return spec, err
}

func buildSpec(t reflect.Type) (*markerSpec, error) {
	spec := &markerSpec{typ: t, caps: capsOf(t), byKey: map[string]int{}}
	var iss Issues
	// Breadth-first over embedded structs so shallower fields win key
	// conflicts, matching Go's own promotion rules.
	type node struct {
		t     reflect.Type
		index []int
	}
	level := []node{{t: t}}
	for len(level) > 0 {
		var next []node
		for _, n := range level {
			for i := 0; i < n.t.NumField(); i++ {
				sf := n.t.Field(i)
				idx := make([]int, len(n.index)+1)
				copy(idx, n.index)
				idx[len(n.index)] = i
				if sf.Anonymous {
					// Embedded pointers are not bindable: instantiation would
					// have to allocate through them.
					if sf.Type.Kind() == reflect.Struct {
						next = append(next, node{t: sf.Type, index: idx})
					}
					continue
				}
				if !sf.IsExported() {
					continue
				}
				key := ResolveMarkerKey(sf)
				if key == "-" || key == "" {
					continue
				}
				if _, dup := spec.byKey[key]; dup {
					continue
				}
				fs := fieldSpec{key: key, index: idx, typ: sf.Type, required: markerFieldRequired(sf)}
				if lit, ok := sf.Tag.Lookup("default"); ok {
					dv, err := parseDefaultLiteral(sf.Type, lit)
					if err != nil {
						it := IssueAt("/"+key, CodeInvalidDefault, map[string]any{"marker": t.String(), "field": key, "literal": lit})
						it.Cause = err
						iss = AppendIssues(iss, it)
						continue
					}
					fs.hasDef = true
					fs.def = dv
				}
				spec.byKey[key] = len(spec.fields)
				spec.fields = append(spec.fields, fs)
			}
		}
		level = next
	}
	if len(iss) > 0 {
		return nil, iss
	}
	return spec, nil
}

// ArgSpec is the public projection of one bindable marker field.
type ArgSpec struct {
	Key        string
	Type       reflect.Type
	Required   bool
	HasDefault bool
	Default    any
}

// ArgSpecs lists the bindable argument fields of a marker type in declaration
// order, embedded value structs flattened. It accepts the marker struct type
// or a pointer to it.
func ArgSpecs(t reflect.Type) ([]ArgSpec, error) {
	spec, err := specFor(t)
	if err != nil {
		return nil, err
	}
	out := make([]ArgSpec, 0, len(spec.fields))
	for _, f := range spec.fields {
		as := ArgSpec{Key: f.key, Type: f.typ, Required: f.required, HasDefault: f.hasDef}
		if f.hasDef {
			as.Default = f.def.Interface()
		}
		out = append(out, as)
	}
	return out, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// parseDefaultLiteral parses a default tag literal into the field's type.
func parseDefaultLiteral(t reflect.Type, lit string) (reflect.Value, error) {
	if t == durationType {
		d, err := time.ParseDuration(lit)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(d), nil
	}
	switch t.Kind() {
	case reflect.String:
		return reflect.ValueOf(lit).Convert(t), nil
	case reflect.Bool:
		b, err := strconv.ParseBool(lit)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(b).Convert(t), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(lit, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(n).Convert(t), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(lit, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(n).Convert(t), nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(lit, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(f).Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("default literal unsupported for %s", t)
}
