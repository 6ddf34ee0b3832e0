package dsl

import (
	"reflect"

	attributeutils "github.com/bwaidelich/AttributeUtils"
)

// Snapshot is an immutable structure catalog produced by Catalog.Build. It
// implements attributeutils.Source and is safe for concurrent readers.
type Snapshot struct {
	names      []string
	infos      map[string]attributeutils.StructureInfo
	components map[compSliceKey][]attributeutils.ComponentInfo
	attached   map[attributeutils.Ref][]attributeutils.Attachment
}

type compSliceKey struct {
	structure string
	method    string
	kind      attributeutils.TargetKind
}

// Build validates the accumulated declarations and produces a Snapshot.
// Inherited components are merged into each structure's component lists: own
// declarations first in declaration order, then ancestor declarations not
// shadowed by name, nearest ancestor first. Inherited components keep their
// declaring structure as owner, so their attachments stay reachable without
// marker-level inheritance.
func (c *Catalog) Build() (*Snapshot, error) {
	if len(c.errs) > 0 {
		return nil, append(attributeutils.Issues{}, c.errs...)
	}
	var iss attributeutils.Issues
	chains := make(map[string][]string, len(c.structures))
	for _, sb := range c.structures {
		chain, cerr := c.ancestryOf(sb)
		if cerr != nil {
			iss = append(iss, cerr...)
			continue
		}
		chains[sb.name] = chain
	}
	if len(iss) > 0 {
		return nil, iss
	}
	snap := &Snapshot{
		names:      make([]string, 0, len(c.structures)),
		infos:      make(map[string]attributeutils.StructureInfo, len(c.structures)),
		components: map[compSliceKey][]attributeutils.ComponentInfo{},
		attached:   map[attributeutils.Ref][]attributeutils.Attachment{},
	}
	for _, sb := range c.structures {
		chain := chains[sb.name]
		snap.names = append(snap.names, sb.name)
		snap.infos[sb.name] = attributeutils.StructureInfo{
			Name:      sb.name,
			ShortName: attributeutils.ShortName(sb.name),
			Parent:    sb.parent,
			Ancestors: chain,
			Contracts: dedupe(sb.contracts),
		}
		if len(sb.markers) > 0 {
			snap.attached[attributeutils.StructureRef(sb.name)] = append([]attributeutils.Attachment(nil), sb.markers...)
		}
		for _, kind := range []attributeutils.TargetKind{attributeutils.TargetProperty, attributeutils.TargetMethod, attributeutils.TargetConstant} {
			if merged := c.mergedComponents(sb, kind, chain); len(merged) > 0 {
				snap.components[compSliceKey{structure: sb.name, kind: kind}] = merged
			}
		}
		for _, cb := range sb.ownComponents() {
			if len(cb.markers) > 0 {
				snap.attached[cb.ref()] = append([]attributeutils.Attachment(nil), cb.markers...)
			}
			if len(cb.params) > 0 {
				ps := make([]attributeutils.ComponentInfo, len(cb.params))
				for i, pb := range cb.params {
					ps[i] = pb.info(i)
					if len(pb.markers) > 0 {
						snap.attached[pb.ref()] = append([]attributeutils.Attachment(nil), pb.markers...)
					}
				}
				snap.components[compSliceKey{structure: sb.name, method: cb.name, kind: attributeutils.TargetParameter}] = ps
			}
		}
	}
	return snap, nil
}

// MustBuild is like Build but panics on error; intended for tests and fixed
// catalogs.
func (c *Catalog) MustBuild() *Snapshot {
	s, err := c.Build()
	if err != nil {
		panic(err)
	}
	return s
}

// ancestryOf walks parent links into an ordered chain, nearest first. Chains
// may run through names the catalog never declares; the walk stops there.
func (c *Catalog) ancestryOf(sb *StructureBuilder) ([]string, attributeutils.Issues) {
	var chain []string
	seen := map[string]bool{sb.name: true}
	cur := sb.parent
	for cur != "" {
		if seen[cur] {
			return nil, attributeutils.Issues{attributeutils.IssueAt("/structures/"+sb.name, attributeutils.CodeInvalidStructure, map[string]any{"structure": sb.name, "cycle": cur})}
		}
		seen[cur] = true
		chain = append(chain, cur)
		i, ok := c.index[cur]
		if !ok {
			break
		}
		cur = c.structures[i].parent
	}
	return chain, nil
}

func (c *Catalog) mergedComponents(sb *StructureBuilder, kind attributeutils.TargetKind, ancs []string) []attributeutils.ComponentInfo {
	var out []attributeutils.ComponentInfo
	seen := map[string]bool{}
	add := func(owner *StructureBuilder) {
		for i, cb := range owner.byKind(kind) {
			if seen[cb.name] {
				continue
			}
			seen[cb.name] = true
			out = append(out, cb.info(i))
		}
	}
	add(sb)
	for _, a := range ancs {
		if i, ok := c.index[a]; ok {
			add(c.structures[i])
		}
	}
	return out
}

func (s *StructureBuilder) ownComponents() []*ComponentBuilder {
	out := make([]*ComponentBuilder, 0, len(s.props)+len(s.methods)+len(s.consts))
	out = append(out, s.props...)
	out = append(out, s.methods...)
	out = append(out, s.consts...)
	return out
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// Lookup implements attributeutils.Source.
func (s *Snapshot) Lookup(name string) (attributeutils.StructureInfo, bool) {
	info, ok := s.infos[name]
	return info, ok
}

// Ancestors implements attributeutils.Source.
func (s *Snapshot) Ancestors(name string) []string {
	return s.infos[name].Ancestors
}

// Contracts implements attributeutils.Source.
func (s *Snapshot) Contracts(name string) []string {
	return s.infos[name].Contracts
}

// Attached implements attributeutils.Source.
func (s *Snapshot) Attached(ref attributeutils.Ref, marker reflect.Type) []attributeutils.Attachment {
	atts := s.attached[ref]
	if len(atts) == 0 {
		return nil
	}
	out := make([]attributeutils.Attachment, 0, len(atts))
	for _, a := range atts {
		if marker == nil || attributeutils.Satisfies(a.Type, marker) {
			out = append(out, a)
		}
	}
	return out
}

// Components implements attributeutils.Source.
func (s *Snapshot) Components(owner attributeutils.Ref, kind attributeutils.TargetKind) []attributeutils.ComponentInfo {
	key := compSliceKey{structure: owner.Structure, kind: kind}
	if kind == attributeutils.TargetParameter {
		key.method = owner.Component
	}
	return s.components[key]
}

// Names returns the declared structure names in declaration order.
func (s *Snapshot) Names() []string {
	return append([]string(nil), s.names...)
}
