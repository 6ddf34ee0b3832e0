package descriptor_test

import (
	"context"
	"encoding/json"
	"testing"

	attributeutils "github.com/bwaidelich/AttributeUtils"
	"github.com/bwaidelich/AttributeUtils/source/descriptor"
)

// Entity marks persisted structures; Col marks their columns.
type Entity struct {
	Store string `json:"store" attr:"required"`
}

func (*Entity) Inheritable() {}

type Col struct {
	Name string `json:"name"`
	Size int    `json:"size" default:"64"`
}

// Shard carries a typed map argument, the shape most sensitive to how the
// loader normalizes nested mappings.
type Shard struct {
	Labels map[string]string `json:"labels"`
}

func init() {
	attributeutils.MustRegisterMarker[Entity]("desc.Entity")
	attributeutils.MustRegisterMarker[Col]("desc.Column")
	attributeutils.MustRegisterMarker[Shard]("desc.Shard")
}

func TestParse_MultiDocumentMerge(t *testing.T) {
	const bundle = `
structures:
  - name: app.A
    markers:
      - type: desc.Entity
        args:
          store: a_store
          opts:
            nested: 1
          tags: [x, y]
---
structures:
  - name: app.B
`
	doc, err := descriptor.Parse([]byte(bundle))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(doc.Structures) != 2 || doc.Structures[0].Name != "app.A" || doc.Structures[1].Name != "app.B" {
		t.Fatalf("structures = %+v", doc.Structures)
	}
	args := doc.Structures[0].Markers[0].Args
	if args["store"] != "a_store" {
		t.Fatalf("args = %v", args)
	}
	// Nested argument maps are string-keyed all the way down.
	opts, ok := args["opts"].(map[string]any)
	if !ok || opts["nested"] != 1 {
		t.Fatalf("opts = %#v", args["opts"])
	}
	tags, ok := args["tags"].([]any)
	if !ok || len(tags) != 2 || tags[0] != "x" {
		t.Fatalf("tags = %#v", args["tags"])
	}
}

func TestNestedArgs_YAMLAndJSONResolveAlike(t *testing.T) {
	const yamlBundle = `
structures:
  - name: app.S
    markers:
      - type: desc.Shard
        args:
          labels:
            tier: gold
`
	const jsonBundle = `{
  "structures": [
    {
      "name": "app.S",
      "markers": [
        {"type": "desc.Shard", "args": {"labels": {"tier": "gold"}}}
      ]
    }
  ]
}`

	loaders := map[string]func() (attributeutils.Source, error){
		"yaml": func() (attributeutils.Source, error) { return descriptor.FromYAML([]byte(yamlBundle)) },
		"json": func() (attributeutils.Source, error) { return descriptor.FromJSON([]byte(jsonBundle)) },
	}
	for name, load := range loaders {
		t.Run(name, func(t *testing.T) {
			src, err := load()
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			sh, err := attributeutils.Resolve[Shard](context.Background(), attributeutils.New(src), "app.S")
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if sh.Labels["tier"] != "gold" {
				t.Fatalf("labels = %#v", sh.Labels)
			}
		})
	}
}

func TestFromYAML_EndToEnd(t *testing.T) {
	const bundle = `
structures:
  - name: app.BaseRecord
    markers:
      - type: desc.Entity
        args:
          store: records
  - name: app.Customer
    extends: app.BaseRecord
    properties:
      - name: email
        markers:
          - type: desc.Column
            args:
              name: email_addr
              size: 128
`
	src, err := descriptor.FromYAML([]byte(bundle))
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	// Structure-level marker resolution, including inheritance.
	ctx := context.Background()
	en, err := attributeutils.Resolve[Entity](ctx, attributeutils.New(src), "app.Customer")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if en.Store != "records" {
		t.Fatalf("store = %q", en.Store)
	}

	// Component attachments land on the right refs with usable args.
	atts := src.Attached(attributeutils.PropertyRef("app.Customer", "email"), attributeutils.TypeOf[Col]())
	if len(atts) != 1 {
		t.Fatalf("attachments = %+v", atts)
	}
	v, err := attributeutils.Instantiate(attributeutils.TypeOf[Col](), atts[0].Args)
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	if col := v.(*Col); col.Name != "email_addr" || col.Size != 128 {
		t.Fatalf("col = %+v", col)
	}
}

func TestFromJSON_NumbersBindAsIntegers(t *testing.T) {
	const bundle = `{
  "structures": [
    {
      "name": "app.X",
      "markers": [
        {"type": "desc.Column", "args": {"size": 128}}
      ]
    }
  ]
}`
	doc, err := descriptor.ParseJSON([]byte(bundle))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if n, ok := doc.Structures[0].Markers[0].Args["size"].(json.Number); !ok || n.String() != "128" {
		t.Fatalf("size arg = %#v", doc.Structures[0].Markers[0].Args["size"])
	}

	src, err := descriptor.Build(doc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	col, err := attributeutils.Resolve[Col](context.Background(), attributeutils.New(src), "app.X")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if col.Size != 128 || col.Name != "" {
		t.Fatalf("col = %+v", col)
	}
}

func TestBuild_UnknownMarkerName(t *testing.T) {
	doc := &descriptor.Document{Structures: []descriptor.Structure{{
		Name: "app.X",
		Markers: []descriptor.Marker{
			{Type: "desc.Nope"},
			{Type: ""},
		},
	}}}

	_, err := descriptor.Build(doc)
	iss, ok := attributeutils.AsIssues(err)
	if !ok || len(iss) != 2 {
		t.Fatalf("expected two issues, got: %v", err)
	}
	if iss[0].Code != attributeutils.CodeUnknownMarker || iss[0].Path != "/structures/0/markers/0/type" {
		t.Fatalf("issue 0 = %+v", iss[0])
	}
	if iss[1].Path != "/structures/0/markers/1/type" {
		t.Fatalf("issue 1 = %+v", iss[1])
	}
}

func TestBuild_MissingNames(t *testing.T) {
	doc := &descriptor.Document{Structures: []descriptor.Structure{
		{Name: ""},
		{Name: "app.Y", Properties: []descriptor.Component{{Name: ""}}},
	}}

	_, err := descriptor.Build(doc)
	iss, ok := attributeutils.AsIssues(err)
	if !ok || len(iss) != 2 {
		t.Fatalf("expected two issues, got: %v", err)
	}
	if iss[0].Path != "/structures/0/name" || iss[0].Code != attributeutils.CodeInvalidStructure {
		t.Fatalf("issue 0 = %+v", iss[0])
	}
	if iss[1].Path != "/structures/1/properties/0/name" {
		t.Fatalf("issue 1 = %+v", iss[1])
	}
}

func TestBuild_MethodParams(t *testing.T) {
	const bundle = `
structures:
  - name: app.Svc
    methods:
      - name: create
        params:
          - name: body
            type: app.Payload
            markers:
              - type: desc.Column
                args:
                  name: body_col
`
	src, err := descriptor.FromYAML([]byte(bundle))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	params := src.Components(attributeutils.MethodRef("app.Svc", "create"), attributeutils.TargetParameter)
	if len(params) != 1 || params[0].Name != "body" || params[0].Type != "app.Payload" {
		t.Fatalf("params = %+v", params)
	}
	if atts := src.Attached(attributeutils.ParameterRef("app.Svc", "create", "body"), nil); len(atts) != 1 {
		t.Fatalf("attachments = %+v", atts)
	}
}

func TestParse_Malformed(t *testing.T) {
	_, err := descriptor.Parse([]byte("structures: ["))
	if !attributeutils.HasCode(err, attributeutils.CodeInvalidStructure) {
		t.Fatalf("expected invalid_structure, got: %v", err)
	}
	iss, _ := attributeutils.AsIssues(err)
	if len(iss) != 1 || iss[0].Cause == nil {
		t.Fatalf("issue = %+v", iss)
	}

	if _, err = descriptor.ParseJSON([]byte("{")); !attributeutils.HasCode(err, attributeutils.CodeInvalidStructure) {
		t.Fatalf("expected invalid_structure for JSON, got: %v", err)
	}
}
