package attributeutils_test

// Shared marker fixtures. Capability-specific markers live next to the tests
// that exercise them.

// Label is a plain marker without capabilities.
type Label struct {
	Name string `json:"name"`
	Rank int    `json:"rank"`
}

// Endpoint exercises required arguments and tag defaults.
type Endpoint struct {
	Path   string `json:"path" attr:"required"`
	Method string `json:"method" default:"GET"`
}
