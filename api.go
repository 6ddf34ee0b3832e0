package attributeutils

import (
	"context"
	"reflect"
)

// Analyzer is the single entry point for marker resolution: one authoritative
// marker instance of the requested type for a subject structure. The subject
// may be a catalog name, a reflect.Type, or a live value; marker accepts the
// marker struct type or a pointer to it.
//
// Implementations return either a non-nil pointer to the concrete marker
// struct or an error carrying Issues. Decorators such as Memoized and the
// middleware caches wrap this interface.
type Analyzer interface {
	Resolve(ctx context.Context, subject any, marker reflect.Type) (any, error)
}

// TypeOf returns the reflect.Type of M without allocating an instance.
func TypeOf[M any]() reflect.Type {
	return reflect.TypeOf((*M)(nil)).Elem()
}

// StructureName normalizes a resolution subject to its catalog name. Strings
// pass through; reflect.Types and live values normalize to their package
// qualified type name with pointers stripped.
func StructureName(subject any) string {
	switch s := subject.(type) {
	case nil:
		return ""
	case string:
		return s
	case reflect.Type:
		return qualifiedTypeName(s)
	default:
		return qualifiedTypeName(reflect.TypeOf(subject))
	}
}

func qualifiedTypeName(t reflect.Type) string {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	if pkg := t.PkgPath(); pkg != "" {
		return pkg + "." + t.Name()
	}
	return t.String()
}

// Resolve resolves marker type M for subject and returns it typed. When a
// subtype of M answered the request, the embedded M view is returned; go
// through Analyzer.Resolve directly to reach the concrete instance.
func Resolve[M any](ctx context.Context, a Analyzer, subject any) (*M, error) {
	v, err := a.Resolve(ctx, subject, TypeOf[M]())
	if err != nil {
		return nil, err
	}
	m, ok := markerAs[M](v)
	if !ok {
		return nil, Issues{IssueAt("/", CodeResolveError, map[string]any{"marker": TypeOf[M]().String()})}
	}
	return m, nil
}

// ResolveWithMeta is Resolve plus origin and provenance metadata. It takes a
// concrete *Engine: metadata comes from the resolution itself and decorators
// do not carry it.
func ResolveWithMeta[M any](ctx context.Context, e *Engine, subject any) (Resolved[M], error) {
	rm, err := e.ResolveWithMeta(ctx, subject, TypeOf[M]())
	if err != nil {
		return Resolved[M]{}, err
	}
	m, ok := markerAs[M](rm.Value)
	if !ok {
		return Resolved[M]{}, Issues{IssueAt("/", CodeResolveError, map[string]any{"marker": TypeOf[M]().String()})}
	}
	return Resolved[M]{Value: m, Origin: rm.Origin, Provenance: rm.Provenance}, nil
}

// markerAs views an untyped marker instance as *M, following embedded marker
// fields so a subtype instance answers a base-type request.
func markerAs[M any](v any) (*M, bool) {
	if m, ok := v.(*M); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return nil, false
	}
	ev := rv.Elem()
	if ev.Kind() != reflect.Struct {
		return nil, false
	}
	if fv, ok := embeddedField(ev, TypeOf[M]()); ok {
		out, ok2 := fv.Addr().Interface().(*M)
		return out, ok2
	}
	return nil, false
}

// embeddedField finds the (possibly nested) embedded field of type want.
func embeddedField(v reflect.Value, want reflect.Type) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.Anonymous {
			continue
		}
		fv := v.Field(i)
		ft := sf.Type
		if ft.Kind() == reflect.Pointer {
			if fv.IsNil() {
				continue
			}
			fv = fv.Elem()
			ft = ft.Elem()
		}
		if ft == want {
			return fv, true
		}
		if ft.Kind() == reflect.Struct {
			if r, ok := embeddedField(fv, want); ok {
				return r, true
			}
		}
	}
	return reflect.Value{}, false
}
