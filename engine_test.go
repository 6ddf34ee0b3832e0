package attributeutils_test

import (
	"context"
	"errors"
	"testing"

	attributeutils "github.com/bwaidelich/AttributeUtils"
	"github.com/bwaidelich/AttributeUtils/dsl"
)

func TestResolve_SuppliedAndDefaults(t *testing.T) {
	ctx := context.Background()
	src := dsl.NewCatalog().
		Structure("app.Orders").
		Marker(&Endpoint{Path: "/orders"}).
		MustBuild()

	ep, err := attributeutils.Resolve[Endpoint](ctx, attributeutils.New(src), "app.Orders")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ep.Path != "/orders" {
		t.Fatalf("expected supplied path, got %q", ep.Path)
	}
	if ep.Method != "GET" {
		t.Fatalf("expected default method, got %q", ep.Method)
	}
}

// A marker that is not attached anywhere still resolves: the instance is
// built from defaults alone.
func TestResolve_AbsentMarkerBuildsDefaults(t *testing.T) {
	ctx := context.Background()
	src := dsl.NewCatalog().
		Structure("app.Bare").
		MustBuild()

	lb, err := attributeutils.Resolve[Label](ctx, attributeutils.New(src), "app.Bare")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if lb.Name != "" || lb.Rank != 0 {
		t.Fatalf("expected zero-valued instance, got %+v", lb)
	}
}

func TestResolve_RequiredMissing(t *testing.T) {
	ctx := context.Background()
	src := dsl.NewCatalog().
		Structure("app.Broken").
		MarkerArgs(attributeutils.TypeOf[Endpoint](), nil).
		MustBuild()

	_, err := attributeutils.Resolve[Endpoint](ctx, attributeutils.New(src), "app.Broken")
	if err == nil {
		t.Fatalf("expected missing_argument error")
	}
	if !attributeutils.HasCode(err, attributeutils.CodeMissingArgument) {
		t.Fatalf("expected missing_argument, got: %v", err)
	}
	iss, _ := attributeutils.AsIssues(err)
	if len(iss) != 1 || iss[0].Path != "/path" {
		t.Fatalf("expected one issue at /path, got: %v", iss)
	}
}

func TestResolve_UnknownArgument(t *testing.T) {
	ctx := context.Background()
	src := dsl.NewCatalog().
		Structure("app.Sloppy").
		MarkerArgs(attributeutils.TypeOf[Label](), attributeutils.Args{"name": "x", "bogus": 1}).
		MustBuild()

	_, err := attributeutils.Resolve[Label](ctx, attributeutils.New(src), "app.Sloppy")
	if !attributeutils.HasCode(err, attributeutils.CodeUnknownArgument) {
		t.Fatalf("expected unknown_argument, got: %v", err)
	}
	iss, _ := attributeutils.AsIssues(err)
	if len(iss) != 1 || iss[0].Path != "/bogus" {
		t.Fatalf("expected one issue at /bogus, got: %v", iss)
	}
}

func TestResolve_UnknownStructure(t *testing.T) {
	ctx := context.Background()
	src := dsl.NewCatalog().Structure("app.Known").MustBuild()
	e := attributeutils.New(src)

	_, err := attributeutils.Resolve[Label](ctx, e, "app.Nope")
	if !attributeutils.HasCode(err, attributeutils.CodeUnknownStructure) {
		t.Fatalf("expected unknown_structure, got: %v", err)
	}
	// A nil subject normalizes to "" and is unknown as well.
	if _, err := e.Resolve(ctx, nil, attributeutils.TypeOf[Label]()); !attributeutils.HasCode(err, attributeutils.CodeUnknownStructure) {
		t.Fatalf("expected unknown_structure for nil subject, got: %v", err)
	}
}

func TestResolve_ContextCanceled(t *testing.T) {
	src := dsl.NewCatalog().Structure("app.Slow").MustBuild()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := attributeutils.Resolve[Label](ctx, attributeutils.New(src), "app.Slow")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got: %v", err)
	}
}

func TestResolve_AmbiguousMarker(t *testing.T) {
	ctx := context.Background()
	src := dsl.NewCatalog().
		Structure("app.Twice").
		Marker(&Label{Name: "a"}).
		Marker(&Label{Name: "b"}).
		MustBuild()

	_, err := attributeutils.Resolve[Label](ctx, attributeutils.New(src), "app.Twice")
	if !attributeutils.HasCode(err, attributeutils.CodeAmbiguousMarker) {
		t.Fatalf("expected ambiguous_marker, got: %v", err)
	}
}

// The bare engine instantiates per call; identity is the memo decorator's
// concern.
func TestResolve_FreshInstancePerCall(t *testing.T) {
	ctx := context.Background()
	src := dsl.NewCatalog().
		Structure("app.Orders").
		Marker(&Endpoint{Path: "/orders"}).
		MustBuild()
	e := attributeutils.New(src)

	first, err := attributeutils.Resolve[Endpoint](ctx, e, "app.Orders")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	first.Method = "mutated"

	second, err := attributeutils.Resolve[Endpoint](ctx, e, "app.Orders")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if first == second {
		t.Fatalf("expected a fresh instance per resolution")
	}
	if second.Method != "GET" {
		t.Fatalf("mutation leaked across resolutions: %+v", second)
	}
}

func TestResolve_InvalidMarkerType(t *testing.T) {
	ctx := context.Background()
	src := dsl.NewCatalog().Structure("app.Known").MustBuild()

	_, err := attributeutils.New(src).Resolve(ctx, "app.Known", nil)
	if !attributeutils.HasCode(err, attributeutils.CodeInvalidMarker) {
		t.Fatalf("expected invalid_marker for nil type, got: %v", err)
	}
}
