package attributeutils_test

import (
	"encoding/json"
	"testing"
	"time"

	attributeutils "github.com/bwaidelich/AttributeUtils"
)

type Knobs struct {
	Retry int           `json:"retry" default:"3"`
	Ratio float64       `json:"ratio" default:"0.5"`
	Fast  bool          `json:"fast" default:"true"`
	Wait  time.Duration `json:"wait" default:"1s"`
	Label string        `json:"label" default:"x"`
}

func instantiate[M any](t *testing.T, args attributeutils.Args) *M {
	t.Helper()
	v, err := attributeutils.Instantiate(attributeutils.TypeOf[M](), args)
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	return v.(*M)
}

func TestInstantiate_Defaults(t *testing.T) {
	k := instantiate[Knobs](t, nil)
	if k.Retry != 3 || k.Ratio != 0.5 || !k.Fast || k.Wait != time.Second || k.Label != "x" {
		t.Fatalf("defaults = %+v", k)
	}
}

func TestInstantiate_WireShapes(t *testing.T) {
	k := instantiate[Knobs](t, attributeutils.Args{
		"retry": json.Number("7"),
		"ratio": json.Number("2.5"),
		"wait":  "250ms",
		"fast":  false,
		"label": json.Number("9"),
	})
	if k.Retry != 7 || k.Ratio != 2.5 || k.Wait != 250*time.Millisecond || k.Fast || k.Label != "9" {
		t.Fatalf("bound = %+v", k)
	}
}

type Tiny struct {
	N int8 `json:"n"`
}

func TestInstantiate_NumberErrors(t *testing.T) {
	_, err := attributeutils.Instantiate(attributeutils.TypeOf[Tiny](), attributeutils.Args{"n": json.Number("300")})
	if !attributeutils.HasCode(err, attributeutils.CodeInvalidArgument) {
		t.Fatalf("expected overflow to report invalid_argument, got: %v", err)
	}
	iss, _ := attributeutils.AsIssues(err)
	if len(iss) != 1 || iss[0].Path != "/n" || iss[0].Cause == nil {
		t.Fatalf("issue = %+v", iss)
	}

	_, err = attributeutils.Instantiate(attributeutils.TypeOf[Knobs](), attributeutils.Args{"wait": "soon"})
	iss, _ = attributeutils.AsIssues(err)
	if len(iss) != 1 || iss[0].Path != "/wait" || iss[0].Code != attributeutils.CodeInvalidArgument {
		t.Fatalf("bad duration issue = %+v", iss)
	}
}

type Cross struct {
	S string  `json:"s"`
	F float64 `json:"f"`
}

func TestInstantiate_KindClassGuard(t *testing.T) {
	// An int never silently becomes a string (no rune casting).
	_, err := attributeutils.Instantiate(attributeutils.TypeOf[Cross](), attributeutils.Args{"s": 65})
	if !attributeutils.HasCode(err, attributeutils.CodeInvalidArgument) {
		t.Fatalf("expected cross-class conversion to fail, got: %v", err)
	}
	// Numeric widening stays allowed.
	c := instantiate[Cross](t, attributeutils.Args{"f": 2})
	if c.F != 2.0 {
		t.Fatalf("f = %v", c.F)
	}
}

type Bag struct {
	Tags []string          `json:"tags"`
	Meta map[string]string `json:"meta"`
	Note *string           `json:"note"`
}

func TestInstantiate_Composites(t *testing.T) {
	b := instantiate[Bag](t, attributeutils.Args{
		"tags": []any{"a", "b"},
		"meta": map[string]any{"k": "v"},
		"note": "hi",
	})
	if len(b.Tags) != 2 || b.Tags[1] != "b" || b.Meta["k"] != "v" || b.Note == nil || *b.Note != "hi" {
		t.Fatalf("composites = %+v", b)
	}

	b = instantiate[Bag](t, attributeutils.Args{"note": nil})
	if b.Note != nil {
		t.Fatalf("explicit null should leave the pointer nil, got %v", *b.Note)
	}

	_, err := attributeutils.Instantiate(attributeutils.TypeOf[Bag](), attributeutils.Args{"tags": []any{"a", 5}})
	iss, _ := attributeutils.AsIssues(err)
	if len(iss) != 1 || iss[0].Path != "/tags" || iss[0].Code != attributeutils.CodeInvalidArgument {
		t.Fatalf("bad element issue = %+v", iss)
	}
}

// A null on a value field counts as unset: the default tag applies, and a
// required field still reports missing_argument.
func TestInstantiate_NullOnValueField(t *testing.T) {
	k := instantiate[Knobs](t, attributeutils.Args{"retry": nil, "label": nil})
	if k.Retry != 3 || k.Label != "x" {
		t.Fatalf("nulled fields = %+v", k)
	}

	_, err := attributeutils.Instantiate(attributeutils.TypeOf[Strict](), attributeutils.Args{"a": nil})
	iss, _ := attributeutils.AsIssues(err)
	if len(iss) != 1 || iss[0].Path != "/a" || iss[0].Code != attributeutils.CodeMissingArgument {
		t.Fatalf("null required issue = %+v", iss)
	}
}

type Strict struct {
	A string `json:"a" attr:"required"`
	B int    `json:"b"`
}

// One pass reports every problem: bad bindings, missing required arguments
// and unknown keys together.
func TestInstantiate_CollectsAllIssues(t *testing.T) {
	_, err := attributeutils.Instantiate(attributeutils.TypeOf[Strict](), attributeutils.Args{"b": "nope", "zz": 1})
	iss, ok := attributeutils.AsIssues(err)
	if !ok || len(iss) != 3 {
		t.Fatalf("expected three issues, got: %v", err)
	}
	if iss[0].Path != "/a" || iss[0].Code != attributeutils.CodeMissingArgument {
		t.Fatalf("issue 0 = %+v", iss[0])
	}
	if iss[1].Path != "/b" || iss[1].Code != attributeutils.CodeInvalidArgument {
		t.Fatalf("issue 1 = %+v", iss[1])
	}
	if iss[2].Path != "/zz" || iss[2].Code != attributeutils.CodeUnknownArgument {
		t.Fatalf("issue 2 = %+v", iss[2])
	}
}

type Keys struct {
	A string `json:"a_json" attr:"name=a_attr"`
	B string `json:"b_json"`
	C string
	D string `json:"-"`
	E string `json:"e_json" attr:"-"`
}

func TestInstantiate_KeyResolution(t *testing.T) {
	k := instantiate[Keys](t, attributeutils.Args{"a_attr": "1", "b_json": "2", "C": "3"})
	if k.A != "1" || k.B != "2" || k.C != "3" {
		t.Fatalf("bound = %+v", k)
	}

	// The attr name fully replaces the json one, and "-" disables a field.
	for _, key := range []string{"a_json", "D", "e_json"} {
		_, err := attributeutils.Instantiate(attributeutils.TypeOf[Keys](), attributeutils.Args{key: "x"})
		if !attributeutils.HasCode(err, attributeutils.CodeUnknownArgument) {
			t.Fatalf("key %q should be unknown, got: %v", key, err)
		}
	}
}

type Common struct {
	Shared string `json:"shared"`
}

type Wide struct {
	Common
	Extra string `json:"extra"`
}

type Shadowing struct {
	Common
	Shared string `json:"shared"`
}

type ViaPointer struct {
	*Common
	Own string `json:"own"`
}

func TestInstantiate_EmbeddedPromotion(t *testing.T) {
	w := instantiate[Wide](t, attributeutils.Args{"shared": "s", "extra": "e"})
	if w.Shared != "s" || w.Extra != "e" {
		t.Fatalf("promoted = %+v", w)
	}

	// The outer field wins the key, like Go's own promotion rules.
	sh := instantiate[Shadowing](t, attributeutils.Args{"shared": "outer"})
	if sh.Shared != "outer" || sh.Common.Shared != "" {
		t.Fatalf("shadowed = %+v", sh)
	}

	// Fields behind embedded pointers are not bindable.
	_, err := attributeutils.Instantiate(attributeutils.TypeOf[ViaPointer](), attributeutils.Args{"shared": "x"})
	if !attributeutils.HasCode(err, attributeutils.CodeUnknownArgument) {
		t.Fatalf("expected pointer-embedded field to stay unbound, got: %v", err)
	}
}

type BadDef struct {
	N int `json:"n" default:"abc"`
}

func TestInstantiate_InvalidDefaultSticks(t *testing.T) {
	for i := 0; i < 2; i++ {
		_, err := attributeutils.Instantiate(attributeutils.TypeOf[BadDef](), nil)
		if !attributeutils.HasCode(err, attributeutils.CodeInvalidDefault) {
			t.Fatalf("call %d: expected invalid_default, got: %v", i, err)
		}
		iss, _ := attributeutils.AsIssues(err)
		if len(iss) != 1 || iss[0].Path != "/n" {
			t.Fatalf("call %d: issue = %+v", i, iss)
		}
	}
	// The broken spec surfaces through every entry point.
	if _, _, err := attributeutils.ArgsOf(&BadDef{}); !attributeutils.HasCode(err, attributeutils.CodeInvalidDefault) {
		t.Fatalf("ArgsOf should report the same spec error")
	}
}

func TestArgsOf_RoundTrip(t *testing.T) {
	typ, args, err := attributeutils.ArgsOf(&Knobs{Retry: 9})
	if err != nil {
		t.Fatalf("args: %v", err)
	}
	if typ != attributeutils.TypeOf[Knobs]() {
		t.Fatalf("type = %v", typ)
	}
	if len(args) != 1 || args["retry"] != 9 {
		t.Fatalf("zero fields must stay unset, got %v", args)
	}
	k := instantiate[Knobs](t, args)
	if k.Retry != 9 || k.Label != "x" {
		t.Fatalf("replay = %+v", k)
	}

	if _, _, err := attributeutils.ArgsOf((*Knobs)(nil)); !attributeutils.HasCode(err, attributeutils.CodeInvalidMarker) {
		t.Fatalf("nil pointer should be invalid_marker")
	}
	if _, _, err := attributeutils.ArgsOf(42); !attributeutils.HasCode(err, attributeutils.CodeInvalidMarker) {
		t.Fatalf("non-struct should be invalid_marker")
	}
}

func TestArgSpecs_ListsBindableFields(t *testing.T) {
	specs, err := attributeutils.ArgSpecs(attributeutils.TypeOf[Strict]())
	if err != nil {
		t.Fatalf("specs: %v", err)
	}
	if len(specs) != 2 || specs[0].Key != "a" || specs[1].Key != "b" {
		t.Fatalf("specs = %+v", specs)
	}
	if !specs[0].Required || specs[0].HasDefault || specs[1].Required {
		t.Fatalf("flags = %+v", specs)
	}

	specs, err = attributeutils.ArgSpecs(attributeutils.TypeOf[Knobs]())
	if err != nil {
		t.Fatalf("specs: %v", err)
	}
	if len(specs) != 5 || specs[3].Key != "wait" || !specs[3].HasDefault || specs[3].Default != time.Second {
		t.Fatalf("knobs = %+v", specs)
	}
}
