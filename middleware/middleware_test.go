package middleware_test

import (
	"context"
	"reflect"
	"testing"

	attributeutils "github.com/bwaidelich/AttributeUtils"
	"github.com/bwaidelich/AttributeUtils/dsl"
	"github.com/bwaidelich/AttributeUtils/middleware"
)

type Probe struct {
	Name string `json:"name"`
}

// taggingAnalyzer records the order resolutions pass through it.
type taggingAnalyzer struct {
	tag   string
	log   *[]string
	inner attributeutils.Analyzer
}

func (a *taggingAnalyzer) Resolve(ctx context.Context, subject any, marker reflect.Type) (any, error) {
	*a.log = append(*a.log, a.tag)
	return a.inner.Resolve(ctx, subject, marker)
}

func TestChain_Order(t *testing.T) {
	ctx := context.Background()
	src := dsl.NewCatalog().
		Structure("app.P").
		Marker(&Probe{Name: "p"}).
		MustBuild()

	var log []string
	wrap := func(tag string) middleware.Wrapper {
		return func(inner attributeutils.Analyzer) attributeutils.Analyzer {
			return &taggingAnalyzer{tag: tag, log: &log, inner: inner}
		}
	}
	a := middleware.Chain(attributeutils.New(src), wrap("outer"), wrap("inner"))

	p, err := attributeutils.Resolve[Probe](ctx, a, "app.P")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.Name != "p" {
		t.Fatalf("value = %+v", p)
	}
	if len(log) != 2 || log[0] != "outer" || log[1] != "inner" {
		t.Fatalf("order = %v", log)
	}

	// An empty chain is the base itself.
	base := attributeutils.New(src)
	if middleware.Chain(base) != attributeutils.Analyzer(base) {
		t.Fatalf("empty chain should return base unchanged")
	}
}

func TestContextResolved_RoundTrip(t *testing.T) {
	ctx := context.Background()
	if _, ok := middleware.ResolvedFromContext[Probe](ctx); ok {
		t.Fatalf("empty context reported a value")
	}

	want := attributeutils.Resolved[Probe]{
		Value:  &Probe{Name: "x"},
		Origin: "app.P",
	}
	ctx = middleware.ContextWithResolved(ctx, want)

	got, ok := middleware.ResolvedFromContext[Probe](ctx)
	if !ok || got.Value != want.Value || got.Origin != "app.P" {
		t.Fatalf("got = %+v (ok=%v)", got, ok)
	}

	// Keys are per marker type; a different T does not collide.
	if _, ok = middleware.ResolvedFromContext[struct{ Other string }](ctx); ok {
		t.Fatalf("foreign type resolved from context")
	}
}

func TestErrorPayload(t *testing.T) {
	iss := attributeutils.Issues{
		attributeutils.IssueAt("/path", attributeutils.CodeMissingArgument, map[string]any{"field": "path"}),
	}
	payload := middleware.ErrorPayload(iss)
	got, ok := payload["issues"].([]attributeutils.Issue)
	if !ok || len(got) != 1 || got[0].Path != "/path" {
		t.Fatalf("payload = %#v", payload)
	}
}
