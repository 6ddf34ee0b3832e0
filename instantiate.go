package attributeutils

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"time"
)

// Instantiate builds a marker value of the given type from named arguments,
// applying default tags for anything not supplied. The result is a pointer to
// a fresh struct; concurrent callers never share instances.
func Instantiate(marker reflect.Type, args Args) (any, error) {
	spec, err := specFor(marker)
	if err != nil {
		return nil, err
	}
	v, _, err := instantiateSpec(spec, args)
	return v, err
}

// ArgsOf captures the non-zero fields of a marker value as named arguments,
// using the same key resolution as Instantiate. Zero-valued fields count as
// unset so tag defaults still apply when the arguments are replayed.
func ArgsOf(v any) (reflect.Type, Args, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil, Issues{IssueAt("/", CodeInvalidMarker, map[string]any{"got": "nil"})}
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() || rv.Kind() != reflect.Struct {
		return nil, nil, Issues{IssueAt("/", CodeInvalidMarker, map[string]any{"got": fmt.Sprintf("%T", v)})}
	}
	spec, err := specFor(rv.Type())
	if err != nil {
		return nil, nil, err
	}
	args := Args{}
	for _, f := range spec.fields {
		fv := rv.FieldByIndex(f.index)
		if fv.IsZero() {
			continue
		}
		args[f.key] = fv.Interface()
	}
	return spec.typ, args, nil
}

// instantiateSpec binds args into a fresh instance of the spec's type and
// records per-field provenance. Binding problems are collected, not
// short-circuited, so one pass reports every bad argument.
func instantiateSpec(spec *markerSpec, args Args) (any, ProvenanceMap, error) {
	pv := reflect.New(spec.typ)
	rv := pv.Elem()
	prov := make(ProvenanceMap, len(spec.fields))
	var iss Issues
	for _, f := range spec.fields {
		v, supplied := args[f.key]
		if supplied && v == nil && !nillableKind(f.typ.Kind()) {
			// An explicit null on a value field counts as unset.
			supplied = false
		}
		if supplied {
			if err := assignArg(rv.FieldByIndex(f.index), v); err != nil {
				it := IssueAt("/"+f.key, CodeInvalidArgument, map[string]any{
					"marker":   spec.name(),
					"field":    f.key,
					"expected": f.typ.String(),
					"got":      fmt.Sprintf("%T", v),
				})
				it.Cause = err
				iss = AppendIssues(iss, it)
				continue
			}
			prov[f.key] = ProvSupplied
			continue
		}
		if f.hasDef {
			rv.FieldByIndex(f.index).Set(f.def)
			prov[f.key] = ProvDefault
			continue
		}
		if f.required {
			iss = AppendIssues(iss, IssueAt("/"+f.key, CodeMissingArgument, map[string]any{
				"marker": spec.name(),
				"field":  f.key,
			}))
			continue
		}
		// No argument, no default tag: the zero value is the default.
		prov[f.key] = ProvDefault
	}
	if len(args) > 0 {
		var unknown []string
		for k := range args {
			if _, ok := spec.byKey[k]; !ok {
				unknown = append(unknown, k)
			}
		}
		sort.Strings(unknown)
		for _, k := range unknown {
			iss = AppendIssues(iss, IssueAt("/"+k, CodeUnknownArgument, map[string]any{
				"marker": spec.name(),
				"key":    k,
			}))
		}
	}
	if len(iss) > 0 {
		return nil, nil, iss
	}
	return pv.Interface(), prov, nil
}

// assignArg binds one raw argument into a struct field, coercing the shapes
// wire decoders produce (json.Number, []any, map[string]any).
func assignArg(fv reflect.Value, val any) error {
	ft := fv.Type()
	if val == nil {
		// Null only reaches here for nillable fields; value fields treat it
		// as unset before binding.
		if nillableKind(fv.Kind()) {
			fv.Set(reflect.Zero(ft))
		}
		return nil
	}
	if n, ok := val.(json.Number); ok {
		if done, err := assignNumber(fv, n); done || err != nil {
			return err
		}
	}
	if ft == durationType {
		if s, ok := val.(string); ok {
			d, err := time.ParseDuration(s)
			if err != nil {
				return err
			}
			fv.Set(reflect.ValueOf(d))
			return nil
		}
	}
	vv := reflect.ValueOf(val)
	if vv.Type().AssignableTo(ft) {
		fv.Set(vv)
		return nil
	}
	// Conversion is limited to same-class kinds: int->string would smuggle a
	// rune cast past YAML-sourced arguments.
	if vv.Type().ConvertibleTo(ft) && sameKindClass(vv.Kind(), fv.Kind()) {
		fv.Set(vv.Convert(ft))
		return nil
	}
	switch ft.Kind() {
	case reflect.Slice:
		if items, ok := val.([]any); ok {
			out := reflect.MakeSlice(ft, len(items), len(items))
			for i, it := range items {
				if err := assignArg(out.Index(i), it); err != nil {
					return err
				}
			}
			fv.Set(out)
			return nil
		}
	case reflect.Map:
		if m, ok := val.(map[string]any); ok && ft.Key().Kind() == reflect.String {
			out := reflect.MakeMapWithSize(ft, len(m))
			for k, it := range m {
				ev := reflect.New(ft.Elem()).Elem()
				if err := assignArg(ev, it); err != nil {
					return err
				}
				out.SetMapIndex(reflect.ValueOf(k).Convert(ft.Key()), ev)
			}
			fv.Set(out)
			return nil
		}
	case reflect.Pointer:
		ev := reflect.New(ft.Elem())
		if err := assignArg(ev.Elem(), val); err != nil {
			return err
		}
		fv.Set(ev)
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", val, ft)
}

// assignNumber binds a json.Number into numeric and string targets. The bool
// result reports whether the target was handled here.
func assignNumber(fv reflect.Value, n json.Number) (bool, error) {
	switch fv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := n.Int64()
		if err != nil {
			return true, err
		}
		if fv.OverflowInt(i) {
			return true, fmt.Errorf("number %s overflows %s", n.String(), fv.Type())
		}
		fv.SetInt(i)
		return true, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(n.String(), 10, 64)
		if err != nil {
			return true, err
		}
		if fv.OverflowUint(u) {
			return true, fmt.Errorf("number %s overflows %s", n.String(), fv.Type())
		}
		fv.SetUint(u)
		return true, nil
	case reflect.Float32, reflect.Float64:
		f, err := n.Float64()
		if err != nil {
			return true, err
		}
		fv.SetFloat(f)
		return true, nil
	case reflect.String:
		fv.SetString(n.String())
		return true, nil
	}
	return false, nil
}

func nillableKind(k reflect.Kind) bool {
	switch k {
	case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return true
	}
	return false
}

func sameKindClass(from, to reflect.Kind) bool {
	if numericKind(from) && numericKind(to) {
		return true
	}
	return from == reflect.String && to == reflect.String
}

func numericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
