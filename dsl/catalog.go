package dsl

import (
	"reflect"

	attributeutils "github.com/bwaidelich/AttributeUtils"
)

// Catalog accumulates structure declarations and builds an immutable
// Snapshot usable as an engine Source. Declaration problems are collected
// and reported by Build.
type Catalog struct {
	structures []*StructureBuilder
	index      map[string]int
	errs       attributeutils.Issues
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{index: map[string]int{}}
}

// Structure opens the builder for name, creating it on first use. Reopening
// an existing name continues its declaration.
func (c *Catalog) Structure(name string) *StructureBuilder {
	if i, ok := c.index[name]; ok {
		return c.structures[i]
	}
	if name == "" {
		c.addErr(attributeutils.Issues{attributeutils.IssueAt("/structures", attributeutils.CodeInvalidStructure, map[string]any{"name": ""})}, "")
	}
	sb := &StructureBuilder{c: c, name: name}
	c.index[name] = len(c.structures)
	c.structures = append(c.structures, sb)
	return sb
}

func (c *Catalog) addErr(err error, where string) {
	if iss, ok := attributeutils.AsIssues(err); ok {
		for _, it := range iss {
			if where != "" {
				it.Path = where + it.Path
			}
			c.errs = append(c.errs, it)
		}
		return
	}
	it := attributeutils.IssueAt(where, attributeutils.CodeInvalidMarker, nil)
	it.Cause = err
	c.errs = append(c.errs, it)
}

// StructureBuilder declares one structure: lineage, markers and components.
type StructureBuilder struct {
	c         *Catalog
	name      string
	parent    string
	contracts []string
	markers   []attributeutils.Attachment
	props     []*ComponentBuilder
	methods   []*ComponentBuilder
	consts    []*ComponentBuilder
	compIndex map[compKey]*ComponentBuilder
}

type compKey struct {
	kind   attributeutils.TargetKind
	name   string
	method string
}

// Extends declares the immediate parent structure.
func (s *StructureBuilder) Extends(parent string) *StructureBuilder {
	s.parent = parent
	return s
}

// Implements appends declared contracts. Duplicates are dropped at Build.
func (s *StructureBuilder) Implements(contracts ...string) *StructureBuilder {
	s.contracts = append(s.contracts, contracts...)
	return s
}

// Marker attaches a marker instance to the structure. The instance's
// non-zero fields become the attachment arguments, so tag defaults still
// fill the rest at resolution time.
func (s *StructureBuilder) Marker(v any) *StructureBuilder {
	t, args, err := attributeutils.ArgsOf(v)
	if err != nil {
		s.c.addErr(err, "/structures/"+s.name)
		return s
	}
	s.markers = append(s.markers, attributeutils.Attachment{Type: t, Args: args})
	return s
}

// MarkerArgs attaches a marker by type with explicit raw arguments.
func (s *StructureBuilder) MarkerArgs(t reflect.Type, args attributeutils.Args) *StructureBuilder {
	t, ok := normalizeType(t)
	if !ok {
		s.c.addErr(attributeutils.Issues{attributeutils.IssueAt("", attributeutils.CodeInvalidMarker, map[string]any{"structure": s.name})}, "/structures/"+s.name)
		return s
	}
	s.markers = append(s.markers, attributeutils.Attachment{Type: t, Args: args})
	return s
}

// Property opens (or reopens) the named property.
func (s *StructureBuilder) Property(name string) *ComponentBuilder {
	return s.component(attributeutils.TargetProperty, name)
}

// Method opens (or reopens) the named method.
func (s *StructureBuilder) Method(name string) *ComponentBuilder {
	return s.component(attributeutils.TargetMethod, name)
}

// Constant opens (or reopens) the named constant.
func (s *StructureBuilder) Constant(name string) *ComponentBuilder {
	return s.component(attributeutils.TargetConstant, name)
}

// Structure hops to another structure's builder on the same catalog.
func (s *StructureBuilder) Structure(name string) *StructureBuilder { return s.c.Structure(name) }

// Build forwards to the catalog.
func (s *StructureBuilder) Build() (*Snapshot, error) { return s.c.Build() }

// MustBuild forwards to the catalog.
func (s *StructureBuilder) MustBuild() *Snapshot { return s.c.MustBuild() }

func (s *StructureBuilder) component(kind attributeutils.TargetKind, name string) *ComponentBuilder {
	k := compKey{kind: kind, name: name}
	if s.compIndex == nil {
		s.compIndex = map[compKey]*ComponentBuilder{}
	}
	if cb, ok := s.compIndex[k]; ok {
		return cb
	}
	cb := &ComponentBuilder{s: s, kind: kind, name: name}
	s.compIndex[k] = cb
	switch kind {
	case attributeutils.TargetProperty:
		s.props = append(s.props, cb)
	case attributeutils.TargetMethod:
		s.methods = append(s.methods, cb)
	case attributeutils.TargetConstant:
		s.consts = append(s.consts, cb)
	}
	return cb
}

func (s *StructureBuilder) byKind(kind attributeutils.TargetKind) []*ComponentBuilder {
	switch kind {
	case attributeutils.TargetProperty:
		return s.props
	case attributeutils.TargetMethod:
		return s.methods
	case attributeutils.TargetConstant:
		return s.consts
	}
	return nil
}

// ComponentBuilder declares one property, method, constant or parameter.
type ComponentBuilder struct {
	s       *StructureBuilder
	owner   *ComponentBuilder // parameters: the declaring method
	kind    attributeutils.TargetKind
	name    string
	method  string
	typ     string
	static  bool
	markers []attributeutils.Attachment
	params  []*ComponentBuilder
}

// OfType declares the component's type as a structure name, enabling
// transitive resolution for properties and parameters.
func (p *ComponentBuilder) OfType(structure string) *ComponentBuilder {
	p.typ = structure
	return p
}

// Static flags the component as static.
func (p *ComponentBuilder) Static() *ComponentBuilder {
	p.static = true
	return p
}

// Marker attaches a marker instance to the component; non-zero fields become
// arguments.
func (p *ComponentBuilder) Marker(v any) *ComponentBuilder {
	t, args, err := attributeutils.ArgsOf(v)
	if err != nil {
		p.s.c.addErr(err, "/structures/"+p.s.name+"/"+p.name)
		return p
	}
	p.markers = append(p.markers, attributeutils.Attachment{Type: t, Args: args})
	return p
}

// MarkerArgs attaches a marker by type with explicit raw arguments.
func (p *ComponentBuilder) MarkerArgs(t reflect.Type, args attributeutils.Args) *ComponentBuilder {
	t, ok := normalizeType(t)
	if !ok {
		p.s.c.addErr(attributeutils.Issues{attributeutils.IssueAt("", attributeutils.CodeInvalidMarker, map[string]any{"component": p.name})}, "/structures/"+p.s.name+"/"+p.name)
		return p
	}
	p.markers = append(p.markers, attributeutils.Attachment{Type: t, Args: args})
	return p
}

// Param opens (or reopens) a parameter of the method. Calling Param on a
// parameter builder opens a sibling on the same method.
func (p *ComponentBuilder) Param(name string) *ComponentBuilder {
	if p.kind == attributeutils.TargetParameter {
		return p.owner.Param(name)
	}
	if p.kind != attributeutils.TargetMethod {
		p.s.c.addErr(attributeutils.Issues{attributeutils.IssueAt("", attributeutils.CodeInvalidStructure, map[string]any{"component": p.name, "param": name})}, "/structures/"+p.s.name+"/"+p.name)
		return &ComponentBuilder{s: p.s, kind: attributeutils.TargetParameter, name: name, owner: p}
	}
	k := compKey{kind: attributeutils.TargetParameter, name: name, method: p.name}
	if cb, ok := p.s.compIndex[k]; ok {
		return cb
	}
	cb := &ComponentBuilder{s: p.s, owner: p, kind: attributeutils.TargetParameter, name: name, method: p.name}
	p.s.compIndex[k] = cb
	p.params = append(p.params, cb)
	return cb
}

// Property hops to a property builder on the same structure.
func (p *ComponentBuilder) Property(name string) *ComponentBuilder { return p.s.Property(name) }

// Method hops to a method builder on the same structure.
func (p *ComponentBuilder) Method(name string) *ComponentBuilder { return p.s.Method(name) }

// Constant hops to a constant builder on the same structure.
func (p *ComponentBuilder) Constant(name string) *ComponentBuilder { return p.s.Constant(name) }

// Structure hops to another structure's builder on the same catalog.
func (p *ComponentBuilder) Structure(name string) *StructureBuilder { return p.s.c.Structure(name) }

// Build forwards to the catalog.
func (p *ComponentBuilder) Build() (*Snapshot, error) { return p.s.c.Build() }

// MustBuild forwards to the catalog.
func (p *ComponentBuilder) MustBuild() *Snapshot { return p.s.c.MustBuild() }

func (p *ComponentBuilder) ref() attributeutils.Ref {
	if p.kind == attributeutils.TargetParameter {
		return attributeutils.ParameterRef(p.s.name, p.method, p.name)
	}
	return attributeutils.Ref{Kind: p.kind, Structure: p.s.name, Component: p.name}
}

func (p *ComponentBuilder) info(pos int) attributeutils.ComponentInfo {
	return attributeutils.ComponentInfo{
		Name:     p.name,
		Kind:     p.kind,
		Owner:    p.s.name,
		Method:   p.method,
		Type:     p.typ,
		Static:   p.static,
		Position: pos,
	}
}

func normalizeType(t reflect.Type) (reflect.Type, bool) {
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, false
	}
	return t, true
}
