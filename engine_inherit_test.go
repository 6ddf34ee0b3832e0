package attributeutils_test

import (
	"context"
	"testing"

	attributeutils "github.com/bwaidelich/AttributeUtils"
	"github.com/bwaidelich/AttributeUtils/dsl"
)

// Lineage records which structure's attachment answered the request.
type Lineage struct {
	V string `json:"v"`
}

func (*Lineage) Inheritable() {}

// SpecialLineage is a subtype attachment: requests for Lineage accept it.
type SpecialLineage struct {
	Lineage
	Extra string `json:"extra"`
}

func TestInherit_NearestAncestorWins(t *testing.T) {
	ctx := context.Background()
	src := dsl.NewCatalog().
		Structure("app.P2").
		Marker(&Lineage{V: "p2"}).
		Structure("app.P1").
		Extends("app.P2").
		Marker(&Lineage{V: "p1"}).
		Structure("app.S").
		Extends("app.P1").
		MustBuild()

	ln, err := attributeutils.Resolve[Lineage](ctx, attributeutils.New(src), "app.S")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ln.V != "p1" {
		t.Fatalf("expected nearest ancestor's attachment, got %q", ln.V)
	}
}

// Class ancestors are searched to the end before any contract is considered.
func TestInherit_ClassesBeforeContracts(t *testing.T) {
	ctx := context.Background()
	src := dsl.NewCatalog().
		Structure("app.I1").
		Marker(&Lineage{V: "i1"}).
		Structure("app.P2").
		Marker(&Lineage{V: "p2"}).
		Structure("app.P1").
		Extends("app.P2").
		Structure("app.S").
		Extends("app.P1").
		Implements("app.I1").
		MustBuild()

	ln, err := attributeutils.Resolve[Lineage](ctx, attributeutils.New(src), "app.S")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ln.V != "p2" {
		t.Fatalf("expected distant class to beat near contract, got %q", ln.V)
	}
}

func TestInherit_ContractClosure(t *testing.T) {
	ctx := context.Background()
	// app.S implements app.I1; app.I1 extends app.IBase; app.P1 implements
	// app.I2. Only contracts carry the marker.
	build := func(attach func(c *dsl.Catalog)) attributeutils.Source {
		c := dsl.NewCatalog()
		c.Structure("app.IBase")
		c.Structure("app.I1").Extends("app.IBase")
		c.Structure("app.I2")
		c.Structure("app.P1").Implements("app.I2")
		c.Structure("app.S").Extends("app.P1").Implements("app.I1")
		attach(c)
		return c.MustBuild()
	}

	// Own contracts come before ancestor-declared ones.
	src := build(func(c *dsl.Catalog) {
		c.Structure("app.I1").Marker(&Lineage{V: "i1"})
		c.Structure("app.I2").Marker(&Lineage{V: "i2"})
	})
	ln, err := attributeutils.Resolve[Lineage](ctx, attributeutils.New(src), "app.S")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ln.V != "i1" {
		t.Fatalf("expected own contract first, got %q", ln.V)
	}

	// Ancestor-declared contracts are still reachable.
	src = build(func(c *dsl.Catalog) {
		c.Structure("app.I2").Marker(&Lineage{V: "i2"})
	})
	if ln, err = attributeutils.Resolve[Lineage](ctx, attributeutils.New(src), "app.S"); err != nil || ln.V != "i2" {
		t.Fatalf("expected ancestor's contract, got %q (err=%v)", ln.V, err)
	}

	// Contract extension is followed transitively.
	src = build(func(c *dsl.Catalog) {
		c.Structure("app.IBase").Marker(&Lineage{V: "ibase"})
	})
	if ln, err = attributeutils.Resolve[Lineage](ctx, attributeutils.New(src), "app.S"); err != nil || ln.V != "ibase" {
		t.Fatalf("expected extended contract, got %q (err=%v)", ln.V, err)
	}
}

// Without the capability, ancestors are never searched.
func TestInherit_RequiresCapability(t *testing.T) {
	ctx := context.Background()
	src := dsl.NewCatalog().
		Structure("app.P").
		Marker(&Label{Name: "p"}).
		Structure("app.C").
		Extends("app.P").
		MustBuild()

	lb, err := attributeutils.Resolve[Label](ctx, attributeutils.New(src), "app.C")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if lb.Name != "" {
		t.Fatalf("expected defaults, non-inheritable marker leaked: %+v", lb)
	}
}

func TestInherit_SubtypeSatisfiesBase(t *testing.T) {
	ctx := context.Background()
	src := dsl.NewCatalog().
		Structure("app.X").
		Marker(&SpecialLineage{Lineage: Lineage{V: "special"}, Extra: "e"}).
		MustBuild()
	e := attributeutils.New(src)

	// The typed helper hands out the embedded base view.
	ln, err := attributeutils.Resolve[Lineage](ctx, e, "app.X")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ln.V != "special" {
		t.Fatalf("expected subtype attachment to answer the base request, got %q", ln.V)
	}

	// The untyped entry point hands out the concrete subtype.
	v, err := e.Resolve(ctx, "app.X", attributeutils.TypeOf[Lineage]())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	sp, ok := v.(*SpecialLineage)
	if !ok {
		t.Fatalf("expected concrete *SpecialLineage, got %T", v)
	}
	if sp.Extra != "e" || sp.V != "special" {
		t.Fatalf("expected subtype fields bound, got %+v", sp)
	}
}

func TestInherit_AmbiguousAncestorLevel(t *testing.T) {
	ctx := context.Background()
	src := dsl.NewCatalog().
		Structure("app.P").
		Marker(&Lineage{V: "a"}).
		Marker(&Lineage{V: "b"}).
		Structure("app.C").
		Extends("app.P").
		MustBuild()

	_, err := attributeutils.Resolve[Lineage](ctx, attributeutils.New(src), "app.C")
	if !attributeutils.HasCode(err, attributeutils.CodeAmbiguousMarker) {
		t.Fatalf("expected ambiguous_marker from ancestor level, got: %v", err)
	}
}
