package attributeutils

import (
	"github.com/bwaidelich/AttributeUtils/i18n"
)

// IssueAt creates an Issue at the given path with the provided code and params
// map, filling Message from the i18n catalog. This is a convenience helper to
// improve readability at call sites with many parameters.
func IssueAt(path, code string, params map[string]any) Issue {
	return Issue{Path: path, Code: code, Message: i18n.T(code, nil), Params: params}
}

// HasCode reports whether err carries at least one Issue with the given code.
func HasCode(err error, code string) bool {
	iss, ok := AsIssues(err)
	if !ok {
		return false
	}
	for i := range iss {
		if iss[i].Code == code {
			return true
		}
	}
	return false
}
