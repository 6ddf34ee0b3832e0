package compare_test

import (
	"encoding/json"
	"testing"

	"github.com/bwaidelich/AttributeUtils/source/descriptor"
	jschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// Structural schema for descriptor documents: structures with names,
// unknown marker arguments allowed.
const jsonSchemaDescriptor = `{
  "type": "object",
  "properties": {
    "structures": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {"name": {"type": "string"}},
        "required": ["name"],
        "additionalProperties": true
      }
    }
  },
  "required": ["structures"],
  "additionalProperties": false
}`

const descriptorDoc = `{"structures":[{"name":"app.Customer","markers":[{"type":"cmp.Tag","args":{"name":"c","rank":2}}]},{"name":"app.Order"}]}`

// ValidateDescriptor: jsonschema/v5 checks shape only.
func Benchmark_ValidateDescriptor_jsonschema_v5(b *testing.B) {
	comp := jschema.MustCompileString("mem:descriptor", jsonSchemaDescriptor)
	data := []byte(descriptorDoc)
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := comp.Validate(bytesToAny(data)); err != nil {
			b.Fatal(err)
		}
	}
}

// Same document through descriptor.FromJSON, which also checks marker
// names against the registry and assembles a snapshot.
func Benchmark_ValidateDescriptor_attributeutils(b *testing.B) {
	data := []byte(descriptorDoc)
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := descriptor.FromJSON(data); err != nil {
			b.Fatal(err)
		}
	}
}

// bytesToAny decodes JSON into any using the stdlib for jsonschema v5 input.
func bytesToAny(b []byte) any {
	var v any
	_ = json.Unmarshal(b, &v)
	return v
}
