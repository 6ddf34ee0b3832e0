package attributeutils

import (
	"context"
	"reflect"
)

// Engine resolves markers against a Source snapshot. It holds no per-call
// state and is safe for concurrent use as long as its Source is.
type Engine struct {
	src    Source
	tracer *Tracer
}

// EngineOpt tunes engine construction. When multiple options are passed the
// last one wins.
type EngineOpt struct {
	Tracer *Tracer
}

// New builds an Engine over src.
func New(src Source, opts ...EngineOpt) *Engine {
	var opt EngineOpt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	return &Engine{src: src, tracer: opt.Tracer}
}

// Source returns the catalog the engine resolves against. Custom resolution
// hooks can use it to inspect neighboring structures.
func (e *Engine) Source() Source { return e.src }

// Resolve returns the authoritative marker instance of the given type for
// subject. The result is always a fresh pointer to the concrete marker
// struct; callers own it outright.
func (e *Engine) Resolve(ctx context.Context, subject any, marker reflect.Type) (any, error) {
	rm, err := e.ResolveWithMeta(ctx, subject, marker)
	if err != nil {
		return nil, err
	}
	return rm.Value, nil
}

// ResolveWithMeta is Resolve plus origin and per-field provenance metadata.
func (e *Engine) ResolveWithMeta(ctx context.Context, subject any, marker reflect.Type) (ResolvedMeta, error) {
	if err := ctx.Err(); err != nil {
		return ResolvedMeta{}, err
	}
	name := StructureName(subject)
	if _, ok := e.src.Lookup(name); !ok {
		return ResolvedMeta{}, Issues{IssueAt("/", CodeUnknownStructure, map[string]any{"structure": name})}
	}
	spec, err := specFor(marker)
	if err != nil {
		return ResolvedMeta{}, err
	}
	st := &resolveState{}
	inst, _, err := e.resolveRef(ctx, StructureRef(name), nil, spec, true, st)
	if err != nil {
		return ResolvedMeta{}, err
	}
	// Custom hooks run once per top-level resolution, after every standard
	// step, so they observe the fully assembled instance.
	if c, ok := inst.(CustomResolver); ok {
		if err := c.CustomResolve(ctx, e); err != nil {
			if _, ok := AsIssues(err); ok {
				return ResolvedMeta{}, err
			}
			it := IssueAt("/", CodeResolveError, map[string]any{"marker": spec.name()})
			it.Cause = err
			return ResolvedMeta{}, Issues{it}
		}
	}
	return ResolvedMeta{Value: inst, Origin: st.origin, Provenance: st.prov}, nil
}

// resolveState collects top-level resolution metadata. Child resolutions run
// without one.
type resolveState struct {
	origin string
	prov   ProvenanceMap
}

// resolveRef runs the per-target slice of the algorithm for one ref: base
// search, instantiation, reflection enrichment, sub-marker folding and child
// parsing. When mustBuild is false and no attachment backs the target, it
// reports found=false with a nil instance instead of building defaults.
func (e *Engine) resolveRef(ctx context.Context, ref Ref, comp *ComponentInfo, spec *markerSpec, mustBuild bool, st *resolveState) (any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	att, origin, found, err := e.findBase(ref, comp, spec)
	if err != nil {
		return nil, false, err
	}
	if !found && !mustBuild {
		return nil, false, nil
	}
	// A subtype attachment answers a base-type request; instantiate the
	// concrete type so its extra fields and capabilities stay live.
	ispec := spec
	var args Args
	if found {
		if att.Type != nil && att.Type != spec.typ {
			ispec, err = specFor(att.Type)
			if err != nil {
				return nil, false, err
			}
		}
		args = att.Args
	}
	inst, prov, err := instantiateSpec(ispec, args)
	if err != nil {
		return nil, false, err
	}
	e.tracer.instantiate(ispec.typ, provCount(prov, ProvSupplied), provCount(prov, ProvDefault))

	var snap []any
	if st != nil {
		snap = snapshotFields(ispec, inst)
	}
	// Enrichment always describes the requested target, never the structure
	// an inherited or transitive attachment came from.
	e.enrich(ref, comp, inst)
	if st != nil {
		markChanged(prov, ispec, inst, snap, ProvReflected)
		snap = snapshotFields(ispec, inst)
	}
	if h, ok := inst.(HasSubMarkers); ok {
		if err := e.foldSubMarkers(ref, ispec.typ, h.SubMarkers()); err != nil {
			return nil, false, err
		}
	}
	if err := e.parseChildren(ctx, ref, inst); err != nil {
		return nil, false, err
	}
	if st != nil {
		markChanged(prov, ispec, inst, snap, ProvFolded)
		st.origin = origin
		st.prov = prov
	}
	return inst, found, nil
}

// findBase locates the attachment that seeds the instance: local first, then
// the inheritance chain when the marker opts in, then the component's
// declared type when the marker is transitive. The returned origin names the
// structure whose attachment matched.
func (e *Engine) findBase(ref Ref, comp *ComponentInfo, spec *markerSpec) (Attachment, string, bool, error) {
	atts := e.src.Attached(ref, spec.typ)
	if len(atts) > 1 {
		return Attachment{}, "", false, Issues{IssueAt("/", CodeAmbiguousMarker, map[string]any{"marker": spec.name(), "target": ref.String()})}
	}
	if len(atts) == 1 {
		e.tracer.lookup(ref, spec.typ, ref.Structure, true)
		return atts[0], ref.Structure, true, nil
	}
	if spec.caps&capInheritable != 0 {
		for _, cand := range e.inheritanceChain(ref) {
			catts := e.src.Attached(cand, spec.typ)
			if len(catts) > 1 {
				return Attachment{}, "", false, Issues{IssueAt("/", CodeAmbiguousMarker, map[string]any{"marker": spec.name(), "target": cand.String()})}
			}
			if len(catts) == 1 {
				e.tracer.lookup(ref, spec.typ, cand.Structure, true)
				return catts[0], cand.Structure, true, nil
			}
		}
	}
	if spec.caps&capTransitive != 0 && (ref.Kind == TargetProperty || ref.Kind == TargetParameter) && comp != nil && comp.Type != "" {
		if _, ok := e.src.Lookup(comp.Type); ok {
			att, origin, found, err := e.findBase(StructureRef(comp.Type), nil, spec)
			if err != nil || found {
				return att, origin, found, err
			}
		}
	}
	e.tracer.lookup(ref, spec.typ, "", false)
	return Attachment{}, "", false, nil
}

// inheritanceChain lists the fallback targets for ref in priority order:
// class ancestors nearest-first, then for structure-level targets the
// contract closure. Component-level targets never fall back to contracts.
func (e *Engine) inheritanceChain(ref Ref) []Ref {
	ancs := e.src.Ancestors(ref.Structure)
	out := make([]Ref, 0, len(ancs))
	for _, a := range ancs {
		out = append(out, rebase(ref, a))
	}
	if ref.Kind == TargetStructure {
		for _, c := range e.contractClosure(ref.Structure, ancs) {
			out = append(out, StructureRef(c))
		}
	}
	return out
}

// contractClosure walks the contracts declared on name and its ancestors,
// breadth-first through contract extension, deduplicated in discovery order.
func (e *Engine) contractClosure(name string, ancs []string) []string {
	seen := map[string]bool{}
	var queue []string
	add := func(names []string) {
		for _, n := range names {
			if n == "" || seen[n] {
				continue
			}
			seen[n] = true
			queue = append(queue, n)
		}
	}
	add(e.src.Contracts(name))
	for _, a := range ancs {
		add(e.src.Contracts(a))
	}
	for i := 0; i < len(queue); i++ {
		add(e.src.Contracts(queue[i]))
		add(e.src.Ancestors(queue[i]))
	}
	return queue
}

// enrich hands target metadata to markers that asked for it.
func (e *Engine) enrich(ref Ref, comp *ComponentInfo, inst any) {
	switch ref.Kind {
	case TargetStructure:
		if r, ok := inst.(StructureReflectable); ok {
			if info, found := e.src.Lookup(ref.Structure); found {
				r.FromStructure(cloneInfo(info))
			}
		}
	case TargetProperty:
		if r, ok := inst.(PropertyReflectable); ok && comp != nil {
			r.FromProperty(*comp)
		}
	case TargetMethod:
		if r, ok := inst.(MethodReflectable); ok && comp != nil {
			r.FromMethod(*comp)
		}
	case TargetConstant:
		if r, ok := inst.(ConstantReflectable); ok && comp != nil {
			r.FromConstant(*comp)
		}
	case TargetParameter:
		if r, ok := inst.(ParameterReflectable); ok && comp != nil {
			r.FromParameter(*comp)
		}
	}
}

// foldSubMarkers collects each declared sub-marker from the parent's target
// and hands the instances to the fold callbacks.
func (e *Engine) foldSubMarkers(ref Ref, parent reflect.Type, subs []SubMarker) error {
	for _, sub := range subs {
		insts, err := e.collectSub(ref, sub)
		if err != nil {
			return err
		}
		sub.apply(insts)
		e.tracer.fold(parent, sub.typ, len(insts))
	}
	return nil
}

// collectSub gathers the attachments for one sub-marker declaration. The
// nearest level with at least one attachment contributes all of them and
// fully shadows deeper levels.
func (e *Engine) collectSub(ref Ref, sub SubMarker) ([]any, error) {
	sspec, err := specFor(sub.typ)
	if err != nil {
		return nil, err
	}
	targets := []Ref{ref}
	if sspec.caps&capInheritable != 0 {
		targets = append(targets, e.inheritanceChain(ref)...)
	}
	for _, t := range targets {
		atts := e.src.Attached(t, sspec.typ)
		if len(atts) == 0 {
			continue
		}
		if !sub.multi && len(atts) > 1 {
			return nil, Issues{IssueAt("/", CodeAmbiguousMarker, map[string]any{"marker": sspec.name(), "target": t.String()})}
		}
		out := make([]any, 0, len(atts))
		for _, a := range atts {
			ispec := sspec
			if a.Type != nil && a.Type != sspec.typ {
				ispec, err = specFor(a.Type)
				if err != nil {
					return nil, err
				}
			}
			in, _, err := instantiateSpec(ispec, a.Args)
			if err != nil {
				return nil, err
			}
			out = append(out, in)
		}
		return out, nil
	}
	return nil, nil
}

// parseChildren resolves child-component maps for markers that opted in.
// Structures can parse properties, methods and constants; methods parse
// their parameters. Deeper nesting stops there.
func (e *Engine) parseChildren(ctx context.Context, ref Ref, inst any) error {
	switch ref.Kind {
	case TargetStructure:
		if p, ok := inst.(ParsesProperties); ok {
			mm, err := e.resolveComponents(ctx, ref, TargetProperty, p.Properties())
			if err != nil {
				return err
			}
			p.SetProperties(mm)
		}
		if p, ok := inst.(ParsesMethods); ok {
			mm, err := e.resolveComponents(ctx, ref, TargetMethod, p.Methods())
			if err != nil {
				return err
			}
			p.SetMethods(mm)
		}
		if p, ok := inst.(ParsesConstants); ok {
			mm, err := e.resolveComponents(ctx, ref, TargetConstant, p.Constants())
			if err != nil {
				return err
			}
			p.SetConstants(mm)
		}
	case TargetMethod:
		if p, ok := inst.(ParsesParameters); ok {
			mm, err := e.resolveComponents(ctx, ref, TargetParameter, p.Parameters())
			if err != nil {
				return err
			}
			p.SetParameters(mm)
		}
	}
	return nil
}

// resolveComponents builds the child map for one component kind. Components
// whose marker resolves to Exclude drop out; without IncludeByDefault,
// components with no backing attachment never enter the map at all.
func (e *Engine) resolveComponents(ctx context.Context, owner Ref, kind TargetKind, cs ChildSpec) (*MarkerMap, error) {
	spec, err := specFor(cs.Marker)
	if err != nil {
		return nil, err
	}
	comps := e.src.Components(owner, kind)
	mm := newMarkerMapCap(len(comps))
	dropped := 0
	for i := range comps {
		c := comps[i]
		inst, found, err := e.resolveRef(ctx, c.Ref(), &c, spec, cs.IncludeByDefault, nil)
		if err != nil {
			return nil, err
		}
		if !found && inst == nil {
			dropped++
			continue
		}
		if ex, ok := inst.(Excludable); ok && ex.Exclude() {
			dropped++
			continue
		}
		mm.Set(c.Name, inst)
	}
	e.tracer.children(owner, kind, mm.Len(), dropped)
	return mm, nil
}

func cloneInfo(in StructureInfo) StructureInfo {
	in.Ancestors = append([]string(nil), in.Ancestors...)
	in.Contracts = append([]string(nil), in.Contracts...)
	return in
}

func provCount(pm ProvenanceMap, flag Provenance) int {
	n := 0
	for _, p := range pm {
		if p&flag != 0 {
			n++
		}
	}
	return n
}
