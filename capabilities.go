package attributeutils

import (
	"context"
	"reflect"
)

// Capability interfaces. A marker opts into optional resolution steps by
// implementing them; a plain struct marker skips every step and resolves to
// its instantiated arguments alone. The engine checks the pointer type, so
// value or pointer receivers both work.

// StructureReflectable markers receive metadata about the structure they were
// resolved for, right after instantiation.
type StructureReflectable interface {
	FromStructure(info StructureInfo)
}

// PropertyReflectable markers receive metadata about the property they were
// resolved for.
type PropertyReflectable interface {
	FromProperty(info ComponentInfo)
}

// MethodReflectable markers receive metadata about the method they were
// resolved for.
type MethodReflectable interface {
	FromMethod(info ComponentInfo)
}

// ConstantReflectable markers receive metadata about the constant they were
// resolved for.
type ConstantReflectable interface {
	FromConstant(info ComponentInfo)
}

// ParameterReflectable markers receive metadata about the method parameter
// they were resolved for.
type ParameterReflectable interface {
	FromParameter(info ComponentInfo)
}

// ChildSpec names the marker type resolved for each child component and
// whether components without a local attachment still produce an entry.
type ChildSpec struct {
	Marker           reflect.Type
	IncludeByDefault bool
}

// ChildrenOf builds a ChildSpec for marker type M.
func ChildrenOf[M any](includeByDefault bool) ChildSpec {
	return ChildSpec{Marker: TypeOf[M](), IncludeByDefault: includeByDefault}
}

// ParsesProperties markers collect a child marker per property of their
// structure. SetProperties receives the surviving entries keyed by property
// name, in declaration order.
type ParsesProperties interface {
	Properties() ChildSpec
	SetProperties(markers *MarkerMap)
}

// ParsesMethods markers collect a child marker per method of their structure.
type ParsesMethods interface {
	Methods() ChildSpec
	SetMethods(markers *MarkerMap)
}

// ParsesConstants markers collect a child marker per constant of their
// structure.
type ParsesConstants interface {
	Constants() ChildSpec
	SetConstants(markers *MarkerMap)
}

// ParsesParameters markers collect a child marker per parameter of the method
// they were resolved for.
type ParsesParameters interface {
	Parameters() ChildSpec
	SetParameters(markers *MarkerMap)
}

// HasSubMarkers markers fold companion markers from the same target into
// themselves after instantiation.
type HasSubMarkers interface {
	SubMarkers() []SubMarker
}

// SubMarker declares one sub-marker collected from the parent marker's target
// and handed back through a fold callback.
type SubMarker struct {
	typ   reflect.Type
	multi bool
	apply func(insts []any)
}

// Sub declares a single-valued sub-marker of type S. The callback receives
// the resolved instance, or nil when the target carries no attachment.
func Sub[S any](fn func(*S)) SubMarker {
	return SubMarker{typ: TypeOf[S](), apply: func(insts []any) {
		if fn == nil {
			return
		}
		if len(insts) == 0 {
			fn(nil)
			return
		}
		if s, ok := markerAs[S](insts[0]); ok {
			fn(s)
		}
	}}
}

// MultiSub declares a repeatable sub-marker of type S. The callback receives
// every resolved instance in attachment order; the slice is empty when the
// target carries none.
func MultiSub[S any](fn func([]*S)) SubMarker {
	return SubMarker{typ: TypeOf[S](), multi: true, apply: func(insts []any) {
		if fn == nil {
			return
		}
		out := make([]*S, 0, len(insts))
		for _, in := range insts {
			if s, ok := markerAs[S](in); ok {
				out = append(out, s)
			}
		}
		fn(out)
	}}
}

// Type returns the declared sub-marker type.
func (s SubMarker) Type() reflect.Type { return s.typ }

// Multi reports whether the sub-marker accepts repeated attachments.
func (s SubMarker) Multi() bool { return s.multi }

// Excludable markers can remove themselves from child-component maps after
// resolution completes.
type Excludable interface {
	Exclude() bool
}

// Inheritable tags a marker so a missing local attachment falls back to the
// target's ancestors: parent classes nearest-first, then for structure-level
// targets the contract closure.
type Inheritable interface {
	Inheritable()
}

// Transitive tags a marker so a property or parameter missing a local (and
// inherited) attachment falls back to the structure-level marker of the
// component's declared type.
type Transitive interface {
	Transitive()
}

// CustomResolver markers run a final hook with the resolving Analyzer once
// the standard steps finish. The hook runs for top-level resolutions only;
// re-entrant Resolve calls are the implementor's responsibility to bound.
type CustomResolver interface {
	CustomResolve(ctx context.Context, a Analyzer) error
}

// capSet flags the capabilities a marker type implements. Detection runs once
// per type and is cached on its spec.
type capSet uint16

const (
	capStructureReflect capSet = 1 << iota
	capPropertyReflect
	capMethodReflect
	capConstantReflect
	capParameterReflect
	capProperties
	capMethods
	capConstants
	capParameters
	capSubMarkers
	capExcludable
	capInheritable
	capTransitive
	capCustom
)

var capChecks = []struct {
	cap   capSet
	iface reflect.Type
}{
	{capStructureReflect, reflect.TypeOf((*StructureReflectable)(nil)).Elem()},
	{capPropertyReflect, reflect.TypeOf((*PropertyReflectable)(nil)).Elem()},
	{capMethodReflect, reflect.TypeOf((*MethodReflectable)(nil)).Elem()},
	{capConstantReflect, reflect.TypeOf((*ConstantReflectable)(nil)).Elem()},
	{capParameterReflect, reflect.TypeOf((*ParameterReflectable)(nil)).Elem()},
	{capProperties, reflect.TypeOf((*ParsesProperties)(nil)).Elem()},
	{capMethods, reflect.TypeOf((*ParsesMethods)(nil)).Elem()},
	{capConstants, reflect.TypeOf((*ParsesConstants)(nil)).Elem()},
	{capParameters, reflect.TypeOf((*ParsesParameters)(nil)).Elem()},
	{capSubMarkers, reflect.TypeOf((*HasSubMarkers)(nil)).Elem()},
	{capExcludable, reflect.TypeOf((*Excludable)(nil)).Elem()},
	{capInheritable, reflect.TypeOf((*Inheritable)(nil)).Elem()},
	{capTransitive, reflect.TypeOf((*Transitive)(nil)).Elem()},
	{capCustom, reflect.TypeOf((*CustomResolver)(nil)).Elem()},
}

func capsOf(t reflect.Type) capSet {
	pt := reflect.PointerTo(t)
	var cs capSet
	for _, c := range capChecks {
		if pt.Implements(c.iface) {
			cs |= c.cap
		}
	}
	return cs
}
