package attributeutils

import "reflect"

// Provenance is the bit flag collected by WithMeta APIs.
type Provenance uint8

const (
	ProvSupplied  Provenance = 1 << iota // Argument was supplied by the attachment.
	ProvDefault                          // Default (tag literal or zero value) was applied.
	ProvReflected                        // Reflection enrichment wrote the field.
	ProvFolded                           // Sub-marker folding or child parsing wrote the field.
)

// ProvenanceMap maps argument keys to Provenance flags.
type ProvenanceMap map[string]Provenance

// ResolvedMeta carries an untyped resolution result along with the structure
// whose attachment produced the base instance ("" when the marker resolved
// from defaults alone) and per-field provenance.
type ResolvedMeta struct {
	Value      any
	Origin     string
	Provenance ProvenanceMap
}

// Resolved carries a typed resolution result along with metadata.
type Resolved[M any] struct {
	Value      *M
	Origin     string
	Provenance ProvenanceMap
}

// snapshotFields copies the current field values of a marker instance so a
// later diff can attribute changes to an enrichment step.
func snapshotFields(spec *markerSpec, inst any) []any {
	rv := reflect.ValueOf(inst).Elem()
	out := make([]any, len(spec.fields))
	for i, f := range spec.fields {
		out[i] = rv.FieldByIndex(f.index).Interface()
	}
	return out
}

// markChanged ORs flag into the provenance of every field whose value moved
// since the snapshot.
func markChanged(prov ProvenanceMap, spec *markerSpec, inst any, snap []any, flag Provenance) {
	rv := reflect.ValueOf(inst).Elem()
	for i, f := range spec.fields {
		cur := rv.FieldByIndex(f.index).Interface()
		if !reflect.DeepEqual(cur, snap[i]) {
			prov[f.key] |= flag
		}
	}
}
