package attributeutils

import (
	"context"
	"reflect"
	"sync"
)

// memoKey identifies one resolution: normalized structure name plus marker
// type identity.
type memoKey struct {
	structure string
	marker    reflect.Type
}

// Memo is a memoizing Analyzer decorator. Successful resolutions are cached
// per (structure, marker) pair and the stored instance is returned as-is on
// repeat calls. Errors are never cached. Callers of a memoized analyzer
// share instances and must treat them as read-only.
type Memo struct {
	inner  Analyzer
	tracer *Tracer

	mu    sync.RWMutex
	cache map[memoKey]any
}

// Memoized wraps inner with memoization.
func Memoized(inner Analyzer) *Memo {
	return MemoizedWithTracer(inner, nil)
}

// MemoizedWithTracer wraps inner with memoization, reporting hits and stores
// to tr.
func MemoizedWithTracer(inner Analyzer, tr *Tracer) *Memo {
	return &Memo{inner: inner, tracer: tr, cache: map[memoKey]any{}}
}

// Resolve implements Analyzer.
func (m *Memo) Resolve(ctx context.Context, subject any, marker reflect.Type) (any, error) {
	key := memoKey{structure: StructureName(subject), marker: normalizeMarkerType(marker)}
	m.mu.RLock()
	v, ok := m.cache[key]
	m.mu.RUnlock()
	if ok {
		m.tracer.cacheHit(key.structure, key.marker)
		return v, nil
	}
	v, err := m.inner.Resolve(ctx, subject, marker)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	if prev, ok := m.cache[key]; ok {
		// A concurrent resolution stored first; hand out that instance so
		// repeat callers always observe the same one.
		m.mu.Unlock()
		m.tracer.cacheHit(key.structure, key.marker)
		return prev, nil
	}
	m.cache[key] = v
	m.mu.Unlock()
	m.tracer.cacheStore(key.structure, key.marker)
	return v, nil
}

// Invalidate drops the cached entry for one (subject, marker) pair.
func (m *Memo) Invalidate(subject any, marker reflect.Type) {
	key := memoKey{structure: StructureName(subject), marker: normalizeMarkerType(marker)}
	m.mu.Lock()
	delete(m.cache, key)
	m.mu.Unlock()
}

// Reset drops every cached entry.
func (m *Memo) Reset() {
	m.mu.Lock()
	m.cache = map[memoKey]any{}
	m.mu.Unlock()
}

// Len reports the number of cached resolutions.
func (m *Memo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cache)
}
