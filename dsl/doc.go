// Package dsl provides a fluent builder for structure catalogs.
//
// Overview
//   - Builder API: declare structures (lineage, markers, components) with
//     NewCatalog()/Structure()/Extends()/Implements()/Marker()/Property()/
//     Method()/Constant()/Param() and finish with Build()/MustBuild().
//   - Snapshot: Build produces an immutable Snapshot implementing
//     attributeutils.Source, safe for concurrent resolution.
//   - Attachments: Marker(v) captures the non-zero fields of a marker value
//     as arguments; MarkerArgs(t, args) attaches raw argument maps, which is
//     what descriptor loading uses.
//
// Entry points
//   - NewCatalog(): create a catalog; chain Structure(...) declarations.
//   - Structure(name): open (or reopen) a structure builder.
//   - Build()/MustBuild(): validate and freeze the catalog into a Snapshot.
//
// Design guidelines
//   - Reopening by name instead of erroring on duplicates keeps incremental
//     declaration cheap and makes generated callers simple.
//   - Declaration problems accumulate and surface at Build as Issues with
//     descriptor-style JSON Pointer paths.
//
// Example (quickstart)
//
//	package main
//
//	import (
//	    "context"
//
//	    attributeutils "github.com/bwaidelich/AttributeUtils"
//	    "github.com/bwaidelich/AttributeUtils/dsl"
//	)
//
//	type Table struct {
//	    Name string `json:"name"`
//	}
//
//	func main() {
//	    ctx := context.Background()
//	    src := dsl.NewCatalog().
//	        Structure("app.Order").
//	        Marker(&Table{Name: "orders"}).
//	        Property("total").OfType("app.Money").
//	        MustBuild()
//
//	    a := attributeutils.New(src)
//	    tbl, _ := attributeutils.Resolve[Table](ctx, a, "app.Order")
//	    _ = tbl // => &Table{Name: "orders"}
//	}
package dsl
