package attributeutils

import (
	"reflect"
	"strings"
	"sync"
)

// TargetKind enumerates the places a marker can be attached.
type TargetKind int

const (
	TargetStructure TargetKind = iota
	TargetProperty
	TargetMethod
	TargetConstant
	TargetParameter
)

func (k TargetKind) String() string {
	switch k {
	case TargetStructure:
		return "structure"
	case TargetProperty:
		return "property"
	case TargetMethod:
		return "method"
	case TargetConstant:
		return "constant"
	case TargetParameter:
		return "parameter"
	}
	return "unknown"
}

// Ref identifies a resolution target inside a catalog: a structure or one of
// its components. Refs are comparable and safe to use as map keys.
type Ref struct {
	Kind      TargetKind
	Structure string
	Component string // property/method/constant name; empty for structures; method name for parameters
	Parameter string // parameter name; set only for TargetParameter
}

// StructureRef addresses a structure itself.
func StructureRef(structure string) Ref {
	return Ref{Kind: TargetStructure, Structure: structure}
}

// PropertyRef addresses a named property of a structure.
func PropertyRef(structure, property string) Ref {
	return Ref{Kind: TargetProperty, Structure: structure, Component: property}
}

// MethodRef addresses a named method of a structure.
func MethodRef(structure, method string) Ref {
	return Ref{Kind: TargetMethod, Structure: structure, Component: method}
}

// ConstantRef addresses a named constant of a structure.
func ConstantRef(structure, constant string) Ref {
	return Ref{Kind: TargetConstant, Structure: structure, Component: constant}
}

// ParameterRef addresses a parameter of a structure's method.
func ParameterRef(structure, method, parameter string) Ref {
	return Ref{Kind: TargetParameter, Structure: structure, Component: method, Parameter: parameter}
}

// String renders the ref in dotted form, e.g. "Order.total" or
// "Order.Submit(force)".
func (r Ref) String() string {
	switch r.Kind {
	case TargetStructure:
		return r.Structure
	case TargetParameter:
		return r.Structure + "." + r.Component + "(" + r.Parameter + ")"
	}
	return r.Structure + "." + r.Component
}

// rebase returns ref readdressed to another structure, keeping the component
// coordinates. Inheritance walks use it to probe the same slot on ancestors.
func rebase(ref Ref, structure string) Ref {
	ref.Structure = structure
	return ref
}

// StructureInfo describes one structure of a catalog.
type StructureInfo struct {
	Name      string
	ShortName string
	Parent    string   // immediate parent; "" when none
	Ancestors []string // ordered ancestor chain, nearest first; excludes Name
	Contracts []string // contracts declared directly on the structure
}

// ComponentInfo describes one component (property, method, constant or
// parameter) of a structure.
type ComponentInfo struct {
	Name     string
	Kind     TargetKind
	Owner    string // declaring structure
	Method   string // owning method; parameters only
	Type     string // declared structure name of the component's type; "" when untyped
	Static   bool
	Position int // declaration order within its kind
}

// Ref returns the catalog address of the component.
func (c ComponentInfo) Ref() Ref {
	if c.Kind == TargetParameter {
		return ParameterRef(c.Owner, c.Method, c.Name)
	}
	return Ref{Kind: c.Kind, Structure: c.Owner, Component: c.Name}
}

// Args carries raw marker arguments keyed by resolved argument name.
type Args map[string]any

// Attachment records one marker attached to a target: the concrete marker
// struct type plus its raw arguments. Sources hand out attachments; the
// engine instantiates fresh values from them on every resolution.
type Attachment struct {
	Type reflect.Type
	Args Args
}

// Source supplies structure metadata to an Engine. Implementations must be
// safe for concurrent readers and must return stable data; the engine never
// mutates what a Source hands out.
type Source interface {
	// Lookup returns the structure info for name.
	Lookup(name string) (StructureInfo, bool)
	// Ancestors returns the ordered ancestor chain for name, nearest first.
	Ancestors(name string) []string
	// Contracts returns the contracts declared directly on name.
	Contracts(name string) []string
	// Attached returns the attachments on ref whose concrete type satisfies
	// marker, in attachment order. A nil marker matches every attachment.
	Attached(ref Ref, marker reflect.Type) []Attachment
	// Components lists the components of the given kind under owner in
	// declaration order. For TargetParameter the owner is a method ref.
	Components(owner Ref, kind TargetKind) []ComponentInfo
}

// satisfyCache memoizes Satisfies per (concrete, requested) pair.
var satisfyCache sync.Map // [2]reflect.Type -> bool

// Satisfies reports whether an attachment of the concrete marker type answers
// a request for the requested type: exact match, interface implementation, or
// transitive struct embedding of the requested type.
func Satisfies(concrete, requested reflect.Type) bool {
	if concrete == nil || requested == nil {
		return false
	}
	if concrete == requested {
		return true
	}
	key := [2]reflect.Type{concrete, requested}
	if v, ok := satisfyCache.Load(key); ok {
		return v.(bool)
	}
	ok := satisfiesSlow(concrete, requested)
	satisfyCache.Store(key, ok)
	return ok
}

func satisfiesSlow(concrete, requested reflect.Type) bool {
	if requested.Kind() == reflect.Interface {
		if concrete.Implements(requested) {
			return true
		}
		return concrete.Kind() == reflect.Struct && reflect.PointerTo(concrete).Implements(requested)
	}
	if concrete.Kind() != reflect.Struct || requested.Kind() != reflect.Struct {
		return false
	}
	return embedsType(concrete, requested)
}

// embedsType walks anonymous fields depth-first looking for want.
func embedsType(outer, want reflect.Type) bool {
	for i := 0; i < outer.NumField(); i++ {
		sf := outer.Field(i)
		if !sf.Anonymous {
			continue
		}
		ft := sf.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft == want {
			return true
		}
		if ft.Kind() == reflect.Struct && embedsType(ft, want) {
			return true
		}
	}
	return false
}

// ShortName trims a qualified structure name down to its last path segment.
// Both dotted and slashed qualifiers are understood ("app.model.Point" and
// "app/model/Point" shorten to "Point").
func ShortName(name string) string {
	if i := strings.LastIndexAny(name, "./\\"); i >= 0 && i+1 < len(name) {
		return name[i+1:]
	}
	return name
}
