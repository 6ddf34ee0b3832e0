// Package manifest projects structure catalogs and resolved markers into a
// serializable form, for build pipelines and catalog diffing.
//
// Two modes exist. Describe maps a descriptor document structurally, marker
// arguments as written. Build resolves registered marker types through an
// Analyzer and embeds the resolved values, so defaults, inherited state and
// folded children appear exactly as code would observe them.
package manifest

import (
	"context"
	"reflect"
	"time"

	j "github.com/goccy/go-json"

	attributeutils "github.com/bwaidelich/AttributeUtils"
	"github.com/bwaidelich/AttributeUtils/source/descriptor"
)

// Version identifies the manifest schema.
const Version = "1"

// Manifest is the root document.
type Manifest struct {
	Version     string      `json:"version"`
	GeneratedAt time.Time   `json:"generatedAt"`
	Structures  []Structure `json:"structures"`
}

// Structure carries one structure with its lineage and markers.
type Structure struct {
	Name       string      `json:"name"`
	Parent     string      `json:"parent,omitempty"`
	Ancestors  []string    `json:"ancestors,omitempty"`
	Contracts  []string    `json:"contracts,omitempty"`
	Markers    []Marker    `json:"markers,omitempty"`
	Properties []Component `json:"properties,omitempty"`
	Methods    []Component `json:"methods,omitempty"`
	Constants  []Component `json:"constants,omitempty"`
}

// Component carries one component with its raw attachments.
type Component struct {
	Name    string      `json:"name"`
	Owner   string      `json:"owner,omitempty"`
	Type    string      `json:"type,omitempty"`
	Static  bool        `json:"static,omitempty"`
	Markers []Marker    `json:"markers,omitempty"`
	Params  []Component `json:"params,omitempty"`
}

// Marker is either a raw attachment (Args set) or a resolved value.
type Marker struct {
	Name  string              `json:"name"`
	Args  attributeutils.Args `json:"args,omitempty"`
	Value any                 `json:"value,omitempty"`
}

// Request selects what Build resolves.
type Request struct {
	// Structures limits the manifest to the named structures. Empty walks
	// every structure the source can enumerate.
	Structures []string
	// Markers names the registered marker types to resolve per structure.
	Markers []string
}

// lister is the optional enumeration capability of a Source.
type lister interface {
	Names() []string
}

// Build produces a resolved manifest: per structure, the requested markers
// resolve through the analyzer (inheritance, defaults, capabilities and
// decorators included) and components list with their raw attachments.
func Build(ctx context.Context, a attributeutils.Analyzer, src attributeutils.Source, req Request) (*Manifest, error) {
	names := req.Structures
	if len(names) == 0 {
		l, ok := src.(lister)
		if !ok {
			bi := attributeutils.IssueAt("/structures", attributeutils.CodeUnknownStructure, nil)
			bi.Hint = "source cannot enumerate structures; name them in the request"
			return nil, attributeutils.Issues{bi}
		}
		names = l.Names()
	}

	var issues attributeutils.Issues
	m := &Manifest{Version: Version, GeneratedAt: time.Now().UTC(), Structures: make([]Structure, 0, len(names))}
	for _, name := range names {
		info, ok := src.Lookup(name)
		if !ok {
			issues = append(issues, attributeutils.IssueAt("/"+name, attributeutils.CodeUnknownStructure, map[string]any{"structure": name}))
			continue
		}
		st := Structure{
			Name:      info.Name,
			Parent:    info.Parent,
			Ancestors: src.Ancestors(name),
			Contracts: src.Contracts(name),
		}
		for _, mk := range req.Markers {
			t, ok := attributeutils.MarkerTypeByName(mk)
			if !ok {
				issues = append(issues, attributeutils.IssueAt("/"+name, attributeutils.CodeUnknownMarker, map[string]any{"marker": mk}))
				continue
			}
			v, err := a.Resolve(ctx, name, t)
			if err != nil {
				if iss, ok := attributeutils.AsIssues(err); ok {
					issues = attributeutils.AppendIssues(issues, iss...)
				} else {
					bi := attributeutils.IssueAt("/"+name, attributeutils.CodeResolveError, map[string]any{"marker": mk})
					bi.Cause = err
					issues = append(issues, bi)
				}
				continue
			}
			st.Markers = append(st.Markers, Marker{Name: mk, Value: v})
		}
		st.Properties = components(src, name, attributeutils.TargetProperty)
		st.Methods = components(src, name, attributeutils.TargetMethod)
		st.Constants = components(src, name, attributeutils.TargetConstant)
		m.Structures = append(m.Structures, st)
	}
	if len(issues) > 0 {
		return nil, issues
	}
	return m, nil
}

func components(src attributeutils.Source, structure string, kind attributeutils.TargetKind) []Component {
	infos := src.Components(attributeutils.StructureRef(structure), kind)
	if len(infos) == 0 {
		return nil
	}
	out := make([]Component, 0, len(infos))
	for _, ci := range infos {
		comp := Component{
			Name:    ci.Name,
			Type:    ci.Type,
			Static:  ci.Static,
			Markers: attachments(src, ci.Ref()),
		}
		if ci.Owner != structure {
			comp.Owner = ci.Owner
		}
		if kind == attributeutils.TargetMethod {
			comp.Params = parameters(src, ci)
		}
		out = append(out, comp)
	}
	return out
}

func parameters(src attributeutils.Source, method attributeutils.ComponentInfo) []Component {
	infos := src.Components(method.Ref(), attributeutils.TargetParameter)
	if len(infos) == 0 {
		return nil
	}
	out := make([]Component, 0, len(infos))
	for _, ci := range infos {
		out = append(out, Component{
			Name:    ci.Name,
			Type:    ci.Type,
			Markers: attachments(src, ci.Ref()),
		})
	}
	return out
}

func attachments(src attributeutils.Source, ref attributeutils.Ref) []Marker {
	atts := src.Attached(ref, nil)
	if len(atts) == 0 {
		return nil
	}
	out := make([]Marker, 0, len(atts))
	for _, att := range atts {
		out = append(out, Marker{Name: markerName(att.Type), Args: att.Args})
	}
	return out
}

// markerName prefers the registry name and falls back to the Go type.
func markerName(t reflect.Type) string {
	if name, ok := attributeutils.MarkerName(t); ok {
		return name
	}
	return t.String()
}

// Describe maps a parsed descriptor document structurally, without
// resolution. Marker names stay as written, unregistered ones included.
func Describe(doc *descriptor.Document) *Manifest {
	m := &Manifest{Version: Version, GeneratedAt: time.Now().UTC(), Structures: make([]Structure, 0, len(doc.Structures))}
	for _, s := range doc.Structures {
		m.Structures = append(m.Structures, Structure{
			Name:       s.Name,
			Parent:     s.Extends,
			Contracts:  s.Implements,
			Markers:    describeMarkers(s.Markers),
			Properties: describeComponents(s.Properties, false),
			Methods:    describeComponents(s.Methods, true),
			Constants:  describeComponents(s.Constants, false),
		})
	}
	return m
}

func describeComponents(cs []descriptor.Component, withParams bool) []Component {
	if len(cs) == 0 {
		return nil
	}
	out := make([]Component, 0, len(cs))
	for _, c := range cs {
		comp := Component{
			Name:    c.Name,
			Type:    c.Type,
			Static:  c.Static,
			Markers: describeMarkers(c.Markers),
		}
		if withParams {
			comp.Params = describeComponents(c.Params, false)
		}
		out = append(out, comp)
	}
	return out
}

func describeMarkers(ms []descriptor.Marker) []Marker {
	if len(ms) == 0 {
		return nil
	}
	out := make([]Marker, 0, len(ms))
	for _, mk := range ms {
		out = append(out, Marker{Name: mk.Type, Args: mk.Args})
	}
	return out
}

// JSON renders the manifest as indented JSON.
func (m *Manifest) JSON() ([]byte, error) {
	return j.MarshalIndent(m, "", "  ")
}
