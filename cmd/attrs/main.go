package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/bwaidelich/AttributeUtils/manifest"
	"github.com/bwaidelich/AttributeUtils/source/descriptor"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	sub := os.Args[1]
	switch sub {
	case "inspect":
		inspectCmd(os.Args[2:])
	case "manifest":
		manifestCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "attrs CLI\n\nUsage:\n  attrs inspect -src catalog.yaml [-structure Name]\n  attrs manifest -src catalog.yaml [-o out.json]\n\nNotes:\n  - Catalogs load from YAML (default) or JSON (.json extension).\n  - Markers print as written; resolving marker types requires code.")
}

func inspectCmd(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	var src string
	var structure string
	fs.StringVar(&src, "src", "", "descriptor file (YAML or JSON)")
	fs.StringVar(&structure, "structure", "", "limit output to one structure")
	_ = fs.Parse(args)
	if src == "" {
		fs.Usage()
		os.Exit(2)
	}

	doc := loadDocument(src)
	byName := make(map[string]*descriptor.Structure, len(doc.Structures))
	for i := range doc.Structures {
		byName[doc.Structures[i].Name] = &doc.Structures[i]
	}

	printed := 0
	for i := range doc.Structures {
		s := &doc.Structures[i]
		if structure != "" && s.Name != structure {
			continue
		}
		printStructure(s, byName)
		printed++
	}
	if structure != "" && printed == 0 {
		fatalf("structure %q not found in %s", structure, src)
	}
}

func manifestCmd(args []string) {
	fs := flag.NewFlagSet("manifest", flag.ExitOnError)
	var src string
	var out string
	fs.StringVar(&src, "src", "", "descriptor file (YAML or JSON)")
	fs.StringVar(&out, "o", "", "output filename (default: stdout)")
	_ = fs.Parse(args)
	if src == "" {
		fs.Usage()
		os.Exit(2)
	}

	doc := loadDocument(src)
	data, err := manifest.Describe(doc).JSON()
	if err != nil {
		fatalf("render manifest: %v", err)
	}
	if out == "" {
		fmt.Println(string(data))
		return
	}
	if err := os.WriteFile(out, append(data, '\n'), 0o644); err != nil {
		fatalf("writing output: %v", err)
	}
}

func loadDocument(src string) *descriptor.Document {
	data, err := os.ReadFile(src)
	if err != nil {
		fatalf("reading %s: %v", src, err)
	}
	var doc *descriptor.Document
	if strings.HasSuffix(src, ".json") {
		doc, err = descriptor.ParseJSON(data)
	} else {
		doc, err = descriptor.Parse(data)
	}
	if err != nil {
		fatalf("parsing %s: %v", src, err)
	}
	return doc
}

func printStructure(s *descriptor.Structure, byName map[string]*descriptor.Structure) {
	head := s.Name
	if s.Extends != "" {
		head += " extends " + s.Extends
	}
	if len(s.Implements) > 0 {
		head += " implements " + strings.Join(s.Implements, ", ")
	}
	fmt.Println(head)
	if ancs := ancestryOf(s, byName); len(ancs) > 0 {
		fmt.Printf("  ancestors: %s\n", strings.Join(ancs, " -> "))
	}
	printMarkers("  ", s.Markers)
	printComponents("properties", s.Properties)
	printComponents("methods", s.Methods)
	printComponents("constants", s.Constants)
	fmt.Println()
}

// ancestryOf walks extends declarations present in the document. The chain
// stops at the first undeclared or repeated name, so cyclic input still
// terminates.
func ancestryOf(s *descriptor.Structure, byName map[string]*descriptor.Structure) []string {
	var out []string
	seen := map[string]bool{s.Name: true}
	for cur := s.Extends; cur != "" && !seen[cur]; {
		seen[cur] = true
		out = append(out, cur)
		next, ok := byName[cur]
		if !ok {
			break
		}
		cur = next.Extends
	}
	return out
}

func printComponents(label string, cs []descriptor.Component) {
	if len(cs) == 0 {
		return
	}
	fmt.Printf("  %s:\n", label)
	for i := range cs {
		c := &cs[i]
		line := "    " + c.Name
		if c.Type != "" {
			line += " " + c.Type
		}
		if c.Static {
			line += " (static)"
		}
		fmt.Println(line)
		printMarkers("    ", c.Markers)
		for pi := range c.Params {
			p := &c.Params[pi]
			pline := "      (" + p.Name
			if p.Type != "" {
				pline += " " + p.Type
			}
			pline += ")"
			fmt.Println(pline)
			printMarkers("      ", p.Markers)
		}
	}
}

func printMarkers(indent string, ms []descriptor.Marker) {
	for _, m := range ms {
		if len(m.Args) == 0 {
			fmt.Printf("%s@%s\n", indent, m.Type)
			continue
		}
		keys := make([]string, 0, len(m.Args))
		for k := range m.Args {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, m.Args[k]))
		}
		fmt.Printf("%s@%s{%s}\n", indent, m.Type, strings.Join(parts, ", "))
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
