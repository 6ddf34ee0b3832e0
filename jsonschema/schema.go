// Package jsonschema exports the argument shape of marker types as JSON
// Schema documents, for descriptor authoring aids and manifest consumers.
package jsonschema

import (
	"reflect"
	"sort"
	"time"

	attributeutils "github.com/bwaidelich/AttributeUtils"
)

// Schema is a minimal JSON Schema representation. Only the vocabulary needed
// to describe marker arguments is modeled.
type Schema struct {
	// Core
	Type    string `json:"type,omitempty"`
	Format  string `json:"format,omitempty"`
	Default any    `json:"default,omitempty"`

	// Object
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	AdditionalProperties any                `json:"additionalProperties,omitempty"`

	// Array
	Items *Schema `json:"items,omitempty"`
}

// ForMarker builds the argument schema of a marker type. Arguments outside
// the declared set are rejected by the instantiator, so the schema closes the
// object with additionalProperties: false.
func ForMarker(t reflect.Type) (*Schema, error) {
	specs, err := attributeutils.ArgSpecs(t)
	if err != nil {
		return nil, err
	}
	root := &Schema{Type: "object", Properties: map[string]*Schema{}, AdditionalProperties: false}
	for _, as := range specs {
		ps := forType(as.Type)
		if as.HasDefault {
			ps.Default = defaultValue(as.Default)
		}
		root.Properties[as.Key] = ps
		if as.Required {
			root.Required = append(root.Required, as.Key)
		}
	}
	sort.Strings(root.Required)
	return root, nil
}

// ForMarkerName builds the argument schema of a registered marker.
func ForMarkerName(name string) (*Schema, error) {
	t, ok := attributeutils.MarkerTypeByName(name)
	if !ok {
		return nil, attributeutils.Issues{attributeutils.IssueAt("/", attributeutils.CodeUnknownMarker, map[string]any{"marker": name})}
	}
	return ForMarker(t)
}

var durationType = reflect.TypeOf(time.Duration(0))

func forType(t reflect.Type) *Schema {
	if t == durationType {
		return &Schema{Type: "string", Format: "duration"}
	}
	switch t.Kind() {
	case reflect.Bool:
		return &Schema{Type: "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}
	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}
	case reflect.String:
		return &Schema{Type: "string"}
	case reflect.Slice, reflect.Array:
		return &Schema{Type: "array", Items: forType(t.Elem())}
	case reflect.Map, reflect.Struct:
		return &Schema{Type: "object", AdditionalProperties: true}
	case reflect.Pointer:
		return forType(t.Elem())
	}
	return &Schema{}
}

// defaultValue renders tag defaults the way descriptor documents would write
// them; durations keep their literal form.
func defaultValue(v any) any {
	if d, ok := v.(time.Duration); ok {
		return d.String()
	}
	return v
}
