// Closed condition grammar: bare reference (truthy check),
// `ref == 'literal'` (type-coerced string equality), or
// `ref | length > N` / `length >= N` on strings, arrays, and objects.
// Every other form is rejected at load time.
package playbook

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	equalityPattern = regexp.MustCompile(`^(\$[A-Za-z_][\w.\[\]]*)\s*==\s*'([^']*)'$`)
	lengthPattern   = regexp.MustCompile(`^(\$[A-Za-z_][\w.\[\]]*)\s*\|\s*length\s*(>=|>)\s*(\d+)$`)
	bareRefPattern  = regexp.MustCompile(`^\$[A-Za-z_][\w.\[\]]*$`)
)

// ValidateCondition rejects any condition string that does not match
// one of the three closed grammar forms, at playbook load time.
func ValidateCondition(cond string) error {
	if cond == "" {
		return nil
	}
	if bareRefPattern.MatchString(cond) || equalityPattern.MatchString(cond) || lengthPattern.MatchString(cond) {
		return nil
	}
	return fmt.Errorf("condition %q does not match the closed grammar (bare reference, == literal, or | length comparison)", cond)
}

// EvaluateCondition evaluates cond against ctx. An empty condition is
// always true (unconditional step).
func EvaluateCondition(cond string, ctx map[string]any) (bool, error) {
	if cond == "" {
		return true, nil
	}

	if bareRefPattern.MatchString(cond) {
		v, _ := resolveRef(strings.TrimPrefix(cond, "$"), ctx)
		return truthy(v), nil
	}

	if m := equalityPattern.FindStringSubmatch(cond); m != nil {
		v, _ := resolveRef(strings.TrimPrefix(m[1], "$"), ctx)
		return stringify(v) == m[2], nil
	}

	if m := lengthPattern.FindStringSubmatch(cond); m != nil {
		v, _ := resolveRef(strings.TrimPrefix(m[1], "$"), ctx)
		n, err := strconv.Atoi(m[3])
		if err != nil {
			return false, err
		}
		length := lengthOf(v)
		if m[2] == ">=" {
			return length >= n, nil
		}
		return length > n, nil
	}

	return false, fmt.Errorf("condition %q does not match the closed grammar", cond)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

func lengthOf(v any) int {
	switch t := v.(type) {
	case string:
		return len(t)
	case []any:
		return len(t)
	case map[string]any:
		return len(t)
	default:
		return 0
	}
}
