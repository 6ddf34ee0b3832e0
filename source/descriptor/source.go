package descriptor

import (
	"fmt"
	"reflect"

	attributeutils "github.com/bwaidelich/AttributeUtils"
	"github.com/bwaidelich/AttributeUtils/dsl"
)

// FromYAML parses a YAML bundle and builds a Source in one step.
func FromYAML(data []byte) (attributeutils.Source, error) {
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return Build(doc)
}

// FromJSON parses a JSON document and builds a Source in one step.
func FromJSON(data []byte) (attributeutils.Source, error) {
	doc, err := ParseJSON(data)
	if err != nil {
		return nil, err
	}
	return Build(doc)
}

// Build validates a document, resolves every marker type name through the
// registry, and materializes an immutable Source. Unknown marker names and
// malformed declarations surface together as Issues with document paths.
func Build(doc *Document) (attributeutils.Source, error) {
	var issues attributeutils.Issues
	c := dsl.NewCatalog()
	for si := range doc.Structures {
		s := &doc.Structures[si]
		base := fmt.Sprintf("/structures/%d", si)
		if s.Name == "" {
			issues = append(issues, attributeutils.IssueAt(base+"/name", attributeutils.CodeInvalidStructure, nil))
			continue
		}
		sb := c.Structure(s.Name)
		if s.Extends != "" {
			sb.Extends(s.Extends)
		}
		if len(s.Implements) > 0 {
			sb.Implements(s.Implements...)
		}
		issues = attachMarkers(issues, sb.MarkerArgs, s.Markers, base+"/markers")
		issues = declareComponents(issues, sb.Property, s.Properties, false, base+"/properties")
		issues = declareComponents(issues, sb.Method, s.Methods, true, base+"/methods")
		issues = declareComponents(issues, sb.Constant, s.Constants, false, base+"/constants")
	}
	snap, err := c.Build()
	if err != nil {
		if iss, ok := attributeutils.AsIssues(err); ok {
			issues = attributeutils.AppendIssues(issues, iss...)
		} else {
			bi := attributeutils.IssueAt("/", attributeutils.CodeInvalidStructure, nil)
			bi.Cause = err
			issues = append(issues, bi)
		}
	}
	if len(issues) > 0 {
		return nil, issues
	}
	return snap, nil
}

func declareComponents(issues attributeutils.Issues, open func(string) *dsl.ComponentBuilder, cs []Component, isMethod bool, base string) attributeutils.Issues {
	for ci := range cs {
		comp := &cs[ci]
		path := fmt.Sprintf("%s/%d", base, ci)
		if comp.Name == "" {
			issues = append(issues, attributeutils.IssueAt(path+"/name", attributeutils.CodeInvalidStructure, nil))
			continue
		}
		cb := open(comp.Name)
		if comp.Type != "" {
			cb.OfType(comp.Type)
		}
		if comp.Static {
			cb.Static()
		}
		issues = attachMarkers(issues, cb.MarkerArgs, comp.Markers, path+"/markers")
		if !isMethod {
			continue
		}
		for pi := range comp.Params {
			param := &comp.Params[pi]
			ppath := fmt.Sprintf("%s/params/%d", path, pi)
			if param.Name == "" {
				issues = append(issues, attributeutils.IssueAt(ppath+"/name", attributeutils.CodeInvalidStructure, nil))
				continue
			}
			pb := cb.Param(param.Name)
			if param.Type != "" {
				pb.OfType(param.Type)
			}
			issues = attachMarkers(issues, pb.MarkerArgs, param.Markers, ppath+"/markers")
		}
	}
	return issues
}

// attachMarkers resolves marker names and forwards to a builder attach
// method. Both builder kinds share the signature modulo the return type,
// which the closure shape erases.
func attachMarkers[B any](issues attributeutils.Issues, attach func(reflect.Type, attributeutils.Args) B, ms []Marker, base string) attributeutils.Issues {
	for mi := range ms {
		path := fmt.Sprintf("%s/%d/type", base, mi)
		if ms[mi].Type == "" {
			issues = append(issues, attributeutils.IssueAt(path, attributeutils.CodeUnknownMarker, nil))
			continue
		}
		t, ok := attributeutils.MarkerTypeByName(ms[mi].Type)
		if !ok {
			issues = append(issues, attributeutils.IssueAt(path, attributeutils.CodeUnknownMarker, map[string]any{"marker": ms[mi].Type}))
			continue
		}
		attach(t, ms[mi].Args)
	}
	return issues
}
