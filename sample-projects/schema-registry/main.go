package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	attributeutils "github.com/bwaidelich/AttributeUtils"
	"github.com/bwaidelich/AttributeUtils/jsonschema"
	"github.com/bwaidelich/AttributeUtils/manifest"
	"github.com/bwaidelich/AttributeUtils/source/descriptor"
	"gopkg.in/yaml.v3"
)

// Event registers a structure as a published event type. Field markers on
// its properties fold into Fields.
type Event struct {
	Topic   string                    `json:"topic" attr:"required"`
	Version int                       `json:"version" default:"1"`
	Fields  *attributeutils.MarkerMap `json:"fields"`
}

func (e *Event) Properties() attributeutils.ChildSpec {
	return attributeutils.ChildrenOf[Field](false)
}

func (e *Event) SetProperties(m *attributeutils.MarkerMap) { e.Fields = m }

// Field declares the wire type of one event property.
type Field struct {
	Type     string `json:"type" attr:"required"`
	Required bool   `json:"required"`
}

// Retention declares how long an event is kept. Event types inherit it from
// their base declarations.
type Retention struct {
	Days int `json:"days" default:"30"`
}

func (r *Retention) Inheritable() {}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	switch command {
	case "validate":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Usage: %s validate <file|->", os.Args[0])
			os.Exit(1)
		}
		data, err := readInput(os.Args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read input: %v\n", err)
			os.Exit(1)
		}
		if err := validateBundle(data); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("✅ Validation passed!")

	case "manifest":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Usage: %s manifest <file|-> [--raw]", os.Args[0])
			os.Exit(1)
		}
		data, err := readInput(os.Args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read input: %v\n", err)
			os.Exit(1)
		}
		if err := showManifest(data, hasFlag("--raw")); err != nil {
			fmt.Fprintf(os.Stderr, "Manifest generation failed: %v\n", err)
			os.Exit(1)
		}

	case "schema":
		name := "events.Event"
		if len(os.Args) > 2 {
			name = os.Args[2]
		}
		if err := showSchema(name); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to show schema: %v\n", err)
			os.Exit(1)
		}

	case "demo":
		if err := runDemo(); err != nil {
			fmt.Fprintf(os.Stderr, "Demo failed: %v\n", err)
			os.Exit(1)
		}

	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`🎯 AttributeUtils Schema Registry Sample

Usage: %s <command> [args...]

Commands:
  validate <file|->     Validate an event bundle from file or stdin
  manifest <file|->     Emit the resolved manifest for a bundle (--raw skips resolution)
  schema [marker]       Show the argument schema for a marker type
  demo                  Run validation demo with embedded bundles

Examples:
  %s validate events.yaml
  %s manifest events.yaml
  cat events.yaml | %s validate -
  %s schema events.Field
  %s demo

`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}

func readInput(filename string) ([]byte, error) {
	if filename == "-" {
		fmt.Fprintf(os.Stderr, "📖 Reading from stdin...\n")
		return io.ReadAll(os.Stdin)
	}
	fmt.Fprintf(os.Stderr, "📖 Reading %s...\n", filename)
	return os.ReadFile(filename)
}

// loadBundle parses a YAML bundle and materializes it as a resolvable
// source. Unknown marker names and malformed declarations surface here with
// document paths.
func loadBundle(data []byte) (*descriptor.Document, attributeutils.Source, error) {
	doc, err := descriptor.Parse(data)
	if err != nil {
		return nil, nil, err
	}
	src, err := descriptor.Build(doc)
	if err != nil {
		return nil, nil, err
	}
	return doc, src, nil
}

func validateBundle(data []byte) error {
	ctx := context.Background()

	doc, src, err := loadBundle(data)
	if err != nil {
		return handleValidationError(err)
	}

	engine := attributeutils.New(src)
	eventType, _ := attributeutils.MarkerTypeByName("events.Event")

	var issues attributeutils.Issues
	checked := 0
	for _, s := range doc.Structures {
		// Only structures carrying an Event marker are event types; bases
		// contribute inherited markers without being validated themselves.
		if len(src.Attached(attributeutils.StructureRef(s.Name), eventType)) == 0 {
			continue
		}
		checked++

		ev, err := attributeutils.Resolve[Event](ctx, engine, s.Name)
		if err != nil {
			if iss, ok := attributeutils.AsIssues(err); ok {
				for _, it := range iss {
					it.Path = "/" + s.Name + it.Path
					issues = append(issues, it)
				}
			} else {
				return fmt.Errorf("resolve %s: %w", s.Name, err)
			}
			continue
		}

		ret, err := attributeutils.ResolveWithMeta[Retention](ctx, engine, s.Name)
		if err != nil {
			return fmt.Errorf("resolve retention for %s: %w", s.Name, err)
		}

		fmt.Fprintf(os.Stderr, "   📛 %s\n", s.Name)
		fmt.Fprintf(os.Stderr, "      📨 Topic: %s (v%d)\n", ev.Topic, ev.Version)
		fmt.Fprintf(os.Stderr, "      🧾 Fields: %d\n", ev.Fields.Len())
		if ret.Origin != "" && ret.Origin != s.Name {
			fmt.Fprintf(os.Stderr, "      ⏳ Retention: %d days (inherited from %s)\n", ret.Value.Days, ret.Origin)
		} else {
			fmt.Fprintf(os.Stderr, "      ⏳ Retention: %d days\n", ret.Value.Days)
		}
	}

	if len(issues) > 0 {
		return handleValidationError(issues)
	}

	fmt.Fprintf(os.Stderr, "🎉 Bundle is valid! (%d event type(s) checked)\n", checked)
	return nil
}

func handleValidationError(err error) error {
	// Check if it's a resolution error with detailed issues
	if issues, ok := attributeutils.AsIssues(err); ok {
		fmt.Fprintf(os.Stderr, "❌ Validation failed with %d issue(s):\n\n", len(issues))

		for i, issue := range issues {
			fmt.Fprintf(os.Stderr, "  %d. 🚨 %s at %s\n", i+1, issue.Code, issue.Path)
			if issue.Message != "" {
				fmt.Fprintf(os.Stderr, "     Message: %s\n", issue.Message)
			}
			if issue.Hint != "" {
				fmt.Fprintf(os.Stderr, "     Hint: %s\n", issue.Hint)
			}
			if issue.Cause != nil {
				fmt.Fprintf(os.Stderr, "     Cause: %v\n", issue.Cause)
			}
			fmt.Fprintf(os.Stderr, "\n")
		}
		return fmt.Errorf("validation failed with %d issue(s)", len(issues))
	}

	return fmt.Errorf("validation error: %w", err)
}

func showManifest(data []byte, raw bool) error {
	ctx := context.Background()

	doc, src, err := loadBundle(data)
	if err != nil {
		return handleValidationError(err)
	}

	var m *manifest.Manifest
	if raw {
		// Structural mode: marker arguments exactly as written, no
		// resolution and no registry involvement.
		m = manifest.Describe(doc)
	} else {
		engine := attributeutils.Memoized(attributeutils.New(src))
		eventType, _ := attributeutils.MarkerTypeByName("events.Event")

		var eventNames []string
		for _, s := range doc.Structures {
			if len(src.Attached(attributeutils.StructureRef(s.Name), eventType)) > 0 {
				eventNames = append(eventNames, s.Name)
			}
		}

		m, err = manifest.Build(ctx, engine, src, manifest.Request{
			Structures: eventNames,
			Markers:    []string{"events.Event", "events.Retention"},
		})
		if err != nil {
			return handleValidationError(err)
		}
	}

	out, err := m.JSON()
	if err != nil {
		return fmt.Errorf("failed to render manifest: %w", err)
	}

	fmt.Println(string(out))
	return nil
}

func showSchema(name string) error {
	schema, err := jsonschema.ForMarkerName(name)
	if err != nil {
		return handleValidationError(err)
	}

	fmt.Printf("📋 Argument schema for %s:\n", name)
	fmt.Println()

	// Convert to YAML for readability
	raw, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("failed to decode schema: %w", err)
	}
	yamlData, err := yaml.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to marshal to YAML: %w", err)
	}

	fmt.Print(string(yamlData))
	return nil
}

const validBundle = `structures:
  - name: billing.BaseEvent
    markers:
      - type: events.Retention
        args: {days: 90}
  - name: billing.InvoiceCreated
    extends: billing.BaseEvent
    markers:
      - type: events.Event
        args: {topic: billing.invoices}
    properties:
      - name: invoiceId
        markers:
          - type: events.Field
            args: {type: uuid, required: true}
      - name: amountCents
        markers:
          - type: events.Field
            args: {type: long}
  - name: billing.InvoicePaid
    extends: billing.BaseEvent
    markers:
      - type: events.Event
        args: {topic: billing.payments, version: 2}
    properties:
      - name: invoiceId
        markers:
          - type: events.Field
            args: {type: uuid, required: true}
      - name: paidAt
        markers:
          - type: events.Field
            args: {type: timestamp}
`

const invalidBundle = `structures:
  - name: billing.Broken
    markers:
      - type: events.Event
        args: {version: 3}
  - name: billing.Mystery
    markers:
      - type: events.Audit
        args: {level: full}
`

func runDemo() error {
	fmt.Println("🎪 Running AttributeUtils Schema Registry Demo")
	fmt.Println("==============================================")
	fmt.Println()

	// Test valid bundle
	fmt.Println("1️⃣ Testing valid event bundle:")
	fmt.Println("-------------------------------")
	if err := validateBundle([]byte(validBundle)); err != nil {
		return fmt.Errorf("valid bundle test failed: %w", err)
	}
	fmt.Println()

	// Test invalid bundle
	fmt.Println("2️⃣ Testing invalid event bundle:")
	fmt.Println("---------------------------------")
	if err := validateBundle([]byte(invalidBundle)); err != nil {
		fmt.Fprintf(os.Stderr, "Expected validation failure: %v\n", err)
	}
	fmt.Println()

	// Show schema
	fmt.Println("3️⃣ Generated argument schema:")
	fmt.Println("------------------------------")
	if err := showSchema("events.Event"); err != nil {
		return fmt.Errorf("schema generation failed: %w", err)
	}

	fmt.Println()
	fmt.Println("✨ Demo completed!")
	fmt.Println()
	fmt.Println("🎯 Key Learning Points:")
	fmt.Println("  - Descriptor bundles declare structures without Go types")
	fmt.Println("  - Marker names resolve through the process-wide registry")
	fmt.Println("  - Required arguments and defaults apply at resolution time")
	fmt.Println("  - Inheritable markers fall back to base declarations")
	fmt.Println("  - Detailed error reporting with JSON Pointer paths")

	return nil
}

func hasFlag(flag string) bool {
	for _, arg := range os.Args {
		if arg == flag {
			return true
		}
	}
	return false
}

func init() {
	// Setup logging for better debug experience
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	attributeutils.MustRegisterMarker[Event]("events.Event")
	attributeutils.MustRegisterMarker[Field]("events.Field")
	attributeutils.MustRegisterMarker[Retention]("events.Retention")
}
