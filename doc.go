package attributeutils

// Package attributeutils provides:
//
// - Authoritative marker resolution for class-like structures (Resolve/ResolveWithMeta)
// - A stable error model via Issues (JSON Pointer, code, message)
// - Capability-driven enrichment: reflection, sub-marker folding, child parsing,
//   exclusion, inheritance, transitivity and custom hooks
// - Memoization and cache decorators over the Analyzer interface
//
// Design policy:
// - Keep only public APIs in the root package; catalogs live under dsl/ and
//   source/descriptor/.
// - Place decorators under middleware/, reporting under manifest/, and the CLI
//   under cmd/attrs.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//  src := buildCatalog()
//  a := attributeutils.Memoized(attributeutils.New(src))
//  m, err := attributeutils.Resolve[Route](ctx, a, "app.OrderController")
//
//  rm, err := attributeutils.ResolveWithMeta[Route](ctx, attributeutils.New(src), "app.OrderController")
//
