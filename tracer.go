package attributeutils

import (
	"fmt"
	"os"
	"reflect"
)

// Tracer receives resolution events. Every field is optional; nil callbacks
// and a nil *Tracer are both safe, so tracing costs nothing unless hooked.
type Tracer struct {
	// Lookup fires after the base-attachment search for a target. origin is
	// the structure whose attachment matched; found is false when the search
	// fell through to defaults.
	Lookup func(ref Ref, marker reflect.Type, origin string, found bool)
	// Instantiate fires after argument binding with per-source field counts.
	Instantiate func(marker reflect.Type, supplied, defaulted int)
	// Fold fires after a sub-marker fold with the instance count handed to
	// the parent marker.
	Fold func(parent, sub reflect.Type, count int)
	// Children fires after a child-component pass.
	Children func(owner Ref, kind TargetKind, kept, dropped int)
	// CacheHit and CacheStore fire from memoizing decorators.
	CacheHit   func(structure string, marker reflect.Type)
	CacheStore func(structure string, marker reflect.Type)
}

func (t *Tracer) lookup(ref Ref, marker reflect.Type, origin string, found bool) {
	if t == nil || t.Lookup == nil {
		return
	}
	t.Lookup(ref, marker, origin, found)
}

func (t *Tracer) instantiate(marker reflect.Type, supplied, defaulted int) {
	if t == nil || t.Instantiate == nil {
		return
	}
	t.Instantiate(marker, supplied, defaulted)
}

func (t *Tracer) fold(parent, sub reflect.Type, count int) {
	if t == nil || t.Fold == nil {
		return
	}
	t.Fold(parent, sub, count)
}

func (t *Tracer) children(owner Ref, kind TargetKind, kept, dropped int) {
	if t == nil || t.Children == nil {
		return
	}
	t.Children(owner, kind, kept, dropped)
}

func (t *Tracer) cacheHit(structure string, marker reflect.Type) {
	if t == nil || t.CacheHit == nil {
		return
	}
	t.CacheHit(structure, marker)
}

func (t *Tracer) cacheStore(structure string, marker reflect.Type) {
	if t == nil || t.CacheStore == nil {
		return
	}
	t.CacheStore(structure, marker)
}

// DefaultTracer returns a stderr tracer when ATTRIBUTEUTILS_DEBUG is set and
// nil otherwise, so callers can pass it unconditionally.
func DefaultTracer() *Tracer {
	if os.Getenv("ATTRIBUTEUTILS_DEBUG") == "" {
		return nil
	}
	return &Tracer{
		Lookup: func(ref Ref, marker reflect.Type, origin string, found bool) {
			fmt.Fprintf(os.Stderr, "attributeutils: lookup %s %s marker=%s origin=%q found=%v\n", ref.Kind, ref, marker, origin, found)
		},
		Instantiate: func(marker reflect.Type, supplied, defaulted int) {
			fmt.Fprintf(os.Stderr, "attributeutils: instantiate %s supplied=%d defaulted=%d\n", marker, supplied, defaulted)
		},
		Fold: func(parent, sub reflect.Type, count int) {
			fmt.Fprintf(os.Stderr, "attributeutils: fold %s <- %s count=%d\n", parent, sub, count)
		},
		Children: func(owner Ref, kind TargetKind, kept, dropped int) {
			fmt.Fprintf(os.Stderr, "attributeutils: children %s kind=%s kept=%d dropped=%d\n", owner, kind, kept, dropped)
		},
		CacheHit: func(structure string, marker reflect.Type) {
			fmt.Fprintf(os.Stderr, "attributeutils: cache hit %s marker=%s\n", structure, marker)
		},
		CacheStore: func(structure string, marker reflect.Type) {
			fmt.Fprintf(os.Stderr, "attributeutils: cache store %s marker=%s\n", structure, marker)
		},
	}
}
