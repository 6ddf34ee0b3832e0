package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	attributeutils "github.com/bwaidelich/AttributeUtils"
	"github.com/bwaidelich/AttributeUtils/dsl"
	"github.com/bwaidelich/AttributeUtils/jsonschema"
	"github.com/bwaidelich/AttributeUtils/manifest"
	"gopkg.in/yaml.v3"
)

// Table declares the relational mapping of an entity. Column markers on the
// entity's properties fold into Cols, Index markers on the entity itself fold
// into Indexes.
type Table struct {
	Name    string                    `json:"name"`
	Schema  string                    `json:"schema" default:"public"`
	Cols    *attributeutils.MarkerMap `json:"columns"`
	Indexes []*Index                  `json:"indexes,omitempty"`
}

func (t *Table) Properties() attributeutils.ChildSpec {
	return attributeutils.ChildrenOf[Column](false)
}

func (t *Table) SetProperties(m *attributeutils.MarkerMap) { t.Cols = m }

func (t *Table) SubMarkers() []attributeutils.SubMarker {
	return []attributeutils.SubMarker{
		attributeutils.MultiSub[Index](func(xs []*Index) { t.Indexes = xs }),
	}
}

// Column maps one property to a table column. The column name defaults to
// the property name.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type" attr:"required"`
	Nullable bool   `json:"nullable"`
	Primary  bool   `json:"primary"`
	Default  string `json:"default"`
}

// Index declares a secondary index on the entity's table.
type Index struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
}

// Mapper resolves persistence markers against the entity catalog.
type Mapper struct {
	snap     *dsl.Snapshot
	engine   *attributeutils.Engine
	analyzer attributeutils.Analyzer
}

func NewMapper() *Mapper {
	// Declare the entity catalog in code. shop.Record carries the audit
	// columns every entity inherits.
	c := dsl.NewCatalog()

	c.Structure("shop.Record").
		Property("id").Marker(&Column{Type: "bigserial", Primary: true}).
		Property("created_at").Marker(&Column{Type: "timestamptz", Default: "now()"})

	c.Structure("shop.Customer").
		Extends("shop.Record").
		Marker(&Table{Name: "customers"}).
		Marker(&Index{Name: "customers_email_key", Columns: []string{"email"}, Unique: true}).
		Property("email").Marker(&Column{Type: "text"}).
		Property("nickname").Marker(&Column{Type: "text", Nullable: true})

	c.Structure("shop.Order").
		Extends("shop.Record").
		Marker(&Table{Name: "orders"}).
		Marker(&Index{Name: "orders_customer_idx", Columns: []string{"customer_id"}}).
		Property("customer_id").Marker(&Column{Type: "bigint"}).
		Property("total_cents").Marker(&Column{Type: "bigint"}).
		Property("note").Marker(&Column{Type: "text", Nullable: true})

	snap := c.MustBuild()
	engine := attributeutils.New(snap)

	return &Mapper{
		snap:     snap,
		engine:   engine,
		analyzer: attributeutils.Memoized(engine),
	}
}

// GenerateDDL renders CREATE TABLE statements for the named entity, or for
// every entity carrying a Table marker when entity is empty.
func (m *Mapper) GenerateDDL(entity string) (string, error) {
	ctx := context.Background()

	names := m.snap.Names()
	if entity != "" {
		names = []string{entity}
	}

	var b strings.Builder
	for _, name := range names {
		r, err := attributeutils.ResolveWithMeta[Table](ctx, m.engine, name)
		if err != nil {
			return "", fmt.Errorf("failed to resolve %s: %w", name, err)
		}

		// Origin is empty when the entity declares no Table marker; base
		// structures like shop.Record fall through here.
		if r.Origin == "" {
			continue
		}

		writeCreateTable(&b, r.Value)
	}

	return b.String(), nil
}

func writeCreateTable(b *strings.Builder, t *Table) {
	fmt.Fprintf(b, "CREATE TABLE %s.%s (\n", t.Schema, t.Name)

	props := t.Cols.Names()
	for i, prop := range props {
		col, ok := attributeutils.MarkerAt[Column](t.Cols, prop)
		if !ok {
			continue
		}

		name := col.Name
		if name == "" {
			name = prop
		}

		line := fmt.Sprintf("  %s %s", name, col.Type)
		if col.Primary {
			line += " PRIMARY KEY"
		} else if !col.Nullable {
			line += " NOT NULL"
		}
		if col.Default != "" {
			line += " DEFAULT " + col.Default
		}
		if i < len(props)-1 {
			line += ","
		}
		b.WriteString(line + "\n")
	}
	b.WriteString(");\n")

	for _, idx := range t.Indexes {
		unique := ""
		if idx.Unique {
			unique = "UNIQUE "
		}
		fmt.Fprintf(b, "CREATE %sINDEX %s ON %s.%s (%s);\n",
			unique, idx.Name, t.Schema, t.Name, strings.Join(idx.Columns, ", "))
	}

	b.WriteString("\n")
}

// ShowEntity prints the resolved Table marker for one entity, including
// where every argument came from.
func (m *Mapper) ShowEntity(entity string) error {
	ctx := context.Background()

	r, err := attributeutils.ResolveWithMeta[Table](ctx, m.engine, entity)
	if err != nil {
		return err
	}

	doc := map[string]any{
		"entity":     entity,
		"table":      tableDoc(r.Value),
		"provenance": provenanceLabels(r.Provenance),
	}
	if r.Origin != "" {
		doc["origin"] = r.Origin
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	fmt.Printf("📋 Resolved mapping for %s\n", entity)
	fmt.Println("=" + strings.Repeat("=", len(entity)+22))
	fmt.Print(string(data))

	return nil
}

// tableDoc flattens a resolved Table into plain maps so YAML output keeps
// the column declaration order.
func tableDoc(t *Table) map[string]any {
	cols := make([]map[string]any, 0, t.Cols.Len())
	for _, prop := range t.Cols.Names() {
		col, ok := attributeutils.MarkerAt[Column](t.Cols, prop)
		if !ok {
			continue
		}

		entry := map[string]any{"property": prop, "type": col.Type}
		if col.Name != "" {
			entry["name"] = col.Name
		}
		if col.Nullable {
			entry["nullable"] = true
		}
		if col.Primary {
			entry["primary"] = true
		}
		if col.Default != "" {
			entry["default"] = col.Default
		}
		cols = append(cols, entry)
	}

	doc := map[string]any{
		"name":    t.Name,
		"schema":  t.Schema,
		"columns": cols,
	}
	if len(t.Indexes) > 0 {
		idxs := make([]map[string]any, 0, len(t.Indexes))
		for _, idx := range t.Indexes {
			idxs = append(idxs, map[string]any{
				"name":    idx.Name,
				"columns": idx.Columns,
				"unique":  idx.Unique,
			})
		}
		doc["indexes"] = idxs
	}
	return doc
}

func provenanceLabels(pm attributeutils.ProvenanceMap) map[string]string {
	out := make(map[string]string, len(pm))
	for key, p := range pm {
		var parts []string
		if p&attributeutils.ProvSupplied != 0 {
			parts = append(parts, "supplied")
		}
		if p&attributeutils.ProvDefault != 0 {
			parts = append(parts, "default")
		}
		if p&attributeutils.ProvReflected != 0 {
			parts = append(parts, "reflected")
		}
		if p&attributeutils.ProvFolded != 0 {
			parts = append(parts, "folded")
		}
		out[key] = strings.Join(parts, "+")
	}
	return out
}

// ShowManifest emits the resolved marker manifest for the whole catalog.
func (m *Mapper) ShowManifest() error {
	ctx := context.Background()

	doc, err := manifest.Build(ctx, m.analyzer, m.snap, manifest.Request{
		Markers: []string{"db.Table"},
	})
	if err != nil {
		return err
	}

	data, err := doc.JSON()
	if err != nil {
		return fmt.Errorf("failed to render manifest: %w", err)
	}

	fmt.Println(string(data))
	return nil
}

func showMarkerSchema(name string) error {
	schema, err := jsonschema.ForMarkerName(name)
	if err != nil {
		return err
	}

	// Round-trip through JSON so the YAML keys match the schema vocabulary.
	raw, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("failed to decode schema: %w", err)
	}

	data, err := yaml.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to marshal to YAML: %w", err)
	}

	fmt.Printf("📋 Argument schema for %s:\n", name)
	fmt.Println()
	fmt.Print(string(data))
	return nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	m := NewMapper()
	command := os.Args[1]

	switch command {
	case "ddl":
		ddl, err := m.GenerateDDL(getEntityFlag())
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ DDL generation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(ddl)

	case "show":
		entity := getEntityFlag()
		if entity == "" {
			fmt.Fprintf(os.Stderr, "❌ show requires --entity=<name>\n")
			os.Exit(1)
		}
		if err := m.ShowEntity(entity); err != nil {
			fmt.Fprintf(os.Stderr, "❌ Show failed: %v\n", err)
			os.Exit(1)
		}

	case "manifest":
		if err := m.ShowManifest(); err != nil {
			fmt.Fprintf(os.Stderr, "❌ Manifest generation failed: %v\n", err)
			os.Exit(1)
		}

	case "schema":
		name := "db.Column"
		if len(os.Args) > 2 && !strings.HasPrefix(os.Args[2], "--") {
			name = os.Args[2]
		}
		if err := showMarkerSchema(name); err != nil {
			fmt.Fprintf(os.Stderr, "❌ Schema generation failed: %v\n", err)
			os.Exit(1)
		}

	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`🎯 AttributeUtils Persistence Mapper Sample

Usage: %s <command> [flags...]

Commands:
  ddl [--entity=<name>]     Emit CREATE TABLE statements for the catalog
  show --entity=<name>      Show the resolved Table marker for one entity
  manifest                  Emit the resolved marker manifest as JSON
  schema [marker]           Show the argument schema for a marker type

Flags:
  --entity=<name>          Entity name, e.g. shop.Customer

Examples:
  %s ddl
  %s ddl --entity=shop.Order
  %s show --entity=shop.Customer
  %s manifest
  %s schema db.Table

`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}

func getEntityFlag() string {
	for _, arg := range os.Args {
		if strings.HasPrefix(arg, "--entity=") {
			return strings.TrimPrefix(arg, "--entity=")
		}
	}
	return ""
}

func init() {
	// Setup logging for better debug experience
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	attributeutils.MustRegisterMarker[Table]("db.Table")
	attributeutils.MustRegisterMarker[Column]("db.Column")
	attributeutils.MustRegisterMarker[Index]("db.Index")
}
