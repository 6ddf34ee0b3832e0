// Package descriptor loads structure catalogs from YAML or JSON documents.
//
// A descriptor bundle declares structures (lineage, markers, components)
// without requiring the described types to exist as Go code. Marker type
// names resolve through the root package registry when the document is
// built, so a bundle can only attach markers the process has registered.
package descriptor

import (
	"bytes"
	"errors"
	"io"
	"reflect"

	j "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	attributeutils "github.com/bwaidelich/AttributeUtils"
)

// Document is the root of a descriptor bundle.
type Document struct {
	Structures []Structure `yaml:"structures" json:"structures"`
}

// Structure declares one class-like structure.
type Structure struct {
	Name       string      `yaml:"name" json:"name"`
	Extends    string      `yaml:"extends,omitempty" json:"extends,omitempty"`
	Implements []string    `yaml:"implements,omitempty" json:"implements,omitempty"`
	Markers    []Marker    `yaml:"markers,omitempty" json:"markers,omitempty"`
	Properties []Component `yaml:"properties,omitempty" json:"properties,omitempty"`
	Methods    []Component `yaml:"methods,omitempty" json:"methods,omitempty"`
	Constants  []Component `yaml:"constants,omitempty" json:"constants,omitempty"`
}

// Component declares a property, method, constant, or method parameter.
// Params is only meaningful on methods.
type Component struct {
	Name    string      `yaml:"name" json:"name"`
	Type    string      `yaml:"type,omitempty" json:"type,omitempty"`
	Static  bool        `yaml:"static,omitempty" json:"static,omitempty"`
	Markers []Marker    `yaml:"markers,omitempty" json:"markers,omitempty"`
	Params  []Component `yaml:"params,omitempty" json:"params,omitempty"`
}

// Marker references a registered marker type by name, with raw arguments.
type Marker struct {
	Type string              `yaml:"type" json:"type"`
	Args attributeutils.Args `yaml:"args,omitempty" json:"args,omitempty"`
}

// Parse decodes a YAML descriptor. Multi-document streams merge into a
// single Document in stream order, so split bundles load like one file.
func Parse(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var out Document
	for {
		var doc Document
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, parseIssue(err)
		}
		out.Structures = append(out.Structures, doc.Structures...)
	}
	normalizeDocument(&out)
	return &out, nil
}

// ParseJSON decodes a JSON descriptor. Numbers arrive as json.Number so
// integer arguments survive without float rounding.
func ParseJSON(data []byte) (*Document, error) {
	dec := j.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out Document
	if err := dec.Decode(&out); err != nil {
		return nil, parseIssue(err)
	}
	normalizeDocument(&out)
	return &out, nil
}

func parseIssue(cause error) error {
	iss := attributeutils.IssueAt("/", attributeutils.CodeInvalidStructure, nil)
	iss.Cause = cause
	return attributeutils.Issues{iss}
}

// normalizeDocument rewrites marker arguments into JSON-like values.
// YAML may hand back map[any]any for nested mappings; argument maps must be
// string-keyed all the way down so instantiation sees one shape regardless
// of the input format.
func normalizeDocument(doc *Document) {
	for i := range doc.Structures {
		s := &doc.Structures[i]
		normalizeMarkers(s.Markers)
		normalizeComponents(s.Properties)
		normalizeComponents(s.Methods)
		normalizeComponents(s.Constants)
	}
}

func normalizeComponents(cs []Component) {
	for i := range cs {
		normalizeMarkers(cs[i].Markers)
		normalizeComponents(cs[i].Params)
	}
}

func normalizeMarkers(ms []Marker) {
	for i := range ms {
		if len(ms[i].Args) == 0 {
			continue
		}
		out := make(attributeutils.Args, len(ms[i].Args))
		for k, v := range ms[i].Args {
			out[k] = normalizeValue(v)
		}
		ms[i].Args = out
	}
}

// normalizeValue works on map/slice kinds rather than concrete types:
// yaml.v3 hands nested mappings back typed after the enclosing map (an Args
// map yields Args inside), so a type switch would miss them.
func normalizeValue(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key()
			if k.Kind() == reflect.Interface {
				k = k.Elem()
			}
			if k.Kind() != reflect.String {
				continue
			}
			out[k.String()] = normalizeValue(iter.Value().Interface())
		}
		return out
	case reflect.Slice:
		if b, ok := v.([]byte); ok {
			return b
		}
		arr := make([]any, rv.Len())
		for i := range arr {
			arr[i] = normalizeValue(rv.Index(i).Interface())
		}
		return arr
	default:
		return v
	}
}
