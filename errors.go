package goserde

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	// Definition-time codes, surfaced by Build.
	CodeConflictingMeta = "conflicting_meta"
	CodeUnknownField    = "unknown_field"
	CodeInvalidField    = "invalid_field"
	CodeInvalidFormat   = "invalid_format"
	// Call-time codes, surfaced while resolving a field on an object.
	CodeMissingAttribute = "missing_attribute"
	CodeCoercion         = "coercion_error"
	CodeRecursionLimit   = "recursion_limit"
	CodeInvalidInput     = "invalid_input"
)

// Issue represents a single diagnostic entry.
type Issue struct {
	Path    string // JSON Pointer (for example: /items/2/price).
	Code    string // One of the codes listed above.
	Message string
	Hint    string // Optional: remediation hints, expected types, etc.
	Cause   error  // Optional: underlying error.
	// Params carries structured parameters (e.g., {"field":"email", "got":"int"})
	// for i18n and observability.
	Params map[string]any
}

// Issues is a collection of diagnostics that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. coercion_error at /email
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// IssueAt creates an Issue at the given path with the provided code, message
// and params map. Convenience for call sites with many parameters.
func IssueAt(path, code, msg string, params map[string]any) Issue {
	return Issue{Path: path, Code: code, Message: msg, Params: params}
}

// FieldPath renders a field name as a JSON Pointer token under the root,
// escaping '~' -> '~0' and '/' -> '~1' per RFC 6901.
func FieldPath(name string) string {
	return "/" + escapeToken(name)
}

// IndexPath renders a collection index as a JSON Pointer under the root.
func IndexPath(i int) string {
	return "/" + strconv.Itoa(i)
}

func escapeToken(name string) string {
	return strings.ReplaceAll(strings.ReplaceAll(name, "~", "~0"), "/", "~1")
}

// rebase prefixes every issue path with the given pointer segment so that
// diagnostics from nested definitions point into the parent document.
func rebase(prefix string, iss Issues) Issues {
	out := make(Issues, 0, len(iss))
	for _, it := range iss {
		switch it.Path {
		case "", "/":
			it.Path = prefix
		default:
			it.Path = prefix + it.Path
		}
		out = append(out, it)
	}
	return out
}

// rebaseErr applies rebase when err carries Issues; any other error is wrapped
// into a single issue at the prefix with the given code.
func rebaseErr(prefix, code string, err error) Issues {
	if iss, ok := AsIssues(err); ok {
		return rebase(prefix, iss)
	}
	return Issues{{Path: prefix, Code: code, Message: err.Error(), Cause: err}}
}
