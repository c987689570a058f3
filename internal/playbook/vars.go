// Variable-reference resolution over a playbook's execution context.
//
// DESIGN: Implemented as a small hand-written path walker over
// map[string]any/[]any rather than tidwall/gjson's path syntax,
// because gjson's dotted-path grammar diverges subtly from this
// closed three-form grammar ($name, $name.a.b, $name.a.b[0].c) around
// escaping and wildcard tokens, and the spec intentionally allows only
// these three forms - no wildcards, no array flattening. gjson is
// still used elsewhere in this module (capability response_path
// extraction); this is the one narrow,
// justified exception, not this module's default posture.
package playbook

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var segmentPattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)((?:\[\d+\])*)$`)

// resolveRef resolves a "$name.a.b[0].c" reference against ctx, where
// the leading "$" has already been stripped and the first segment
// names either "inputs" or a prior step. Missing paths resolve to nil.
func resolveRef(ref string, ctx map[string]any) (any, bool) {
	parts := splitRef(ref)
	if len(parts) == 0 {
		return nil, false
	}

	var cur any = ctx
	for _, seg := range parts {
		name, indices, ok := parseSegment(seg)
		if !ok {
			return nil, false
		}
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, exists := m[name]
		if !exists {
			return nil, false
		}
		cur = v
		for _, idx := range indices {
			arr, ok := cur.([]any)
			if !ok || idx < 0 || idx >= len(arr) {
				return nil, false
			}
			cur = arr[idx]
		}
	}
	return cur, true
}

// splitRef splits "a.b[0].c" into ["a", "b[0]", "c"].
func splitRef(ref string) []string {
	if ref == "" {
		return nil
	}
	return strings.Split(ref, ".")
}

// parseSegment splits "b[0][1]" into ("b", [0, 1]).
func parseSegment(seg string) (name string, indices []int, ok bool) {
	m := segmentPattern.FindStringSubmatch(seg)
	if m == nil {
		return "", nil, false
	}
	name = m[1]
	idxPart := m[2]
	for _, raw := range regexp.MustCompile(`\[(\d+)\]`).FindAllStringSubmatch(idxPart, -1) {
		n, err := strconv.Atoi(raw[1])
		if err != nil {
			return "", nil, false
		}
		indices = append(indices, n)
	}
	return name, indices, true
}

// isPureRef reports whether s is exactly a "$..." reference with
// nothing else around it.
func isPureRef(s string) bool {
	return strings.HasPrefix(s, "$") && !strings.ContainsAny(s, " \t\n")
}

// refPattern matches embedded "$name.a.b[0]" references inside a
// larger string, for stringified interpolation.
var refPattern = regexp.MustCompile(`\$[A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*(?:\[\d+\])*)*`)

// resolveValue resolves a template value: a pure reference returns the
// resolved value with its original type; a string containing embedded
// references has them stringified and substituted in place; any other
// value (including nested maps/slices) is walked recursively.
func resolveValue(v any, ctx map[string]any) any {
	switch t := v.(type) {
	case string:
		if isPureRef(t) {
			resolved, ok := resolveRef(strings.TrimPrefix(t, "$"), ctx)
			if !ok {
				return nil
			}
			return resolved
		}
		return refPattern.ReplaceAllStringFunc(t, func(m string) string {
			resolved, ok := resolveRef(strings.TrimPrefix(m, "$"), ctx)
			if !ok {
				return ""
			}
			return stringify(resolved)
		})
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = resolveValue(val, ctx)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = resolveValue(val, ctx)
		}
		return out
	default:
		return v
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
