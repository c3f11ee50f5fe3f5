package util

import (
	"fmt"
	"strings"
)

// ReplaceTokens walks a decoded JSON value (maps, slices, scalars) and
// substitutes {{TOKEN}} placeholders from the replacements map. It is a pure
// function: the input is never mutated, a new structure is returned.
//
// Two substitution forms are supported:
//   - exact match: the entire string value equals a token, in which case the
//     replacement keeps its native type (int, float, bool, ...)
//   - substring: a token embedded in a longer string is replaced with the
//     replacement's string form
func ReplaceTokens(obj any, replacements map[string]any) any {
	switch v := obj.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = ReplaceTokens(item, replacements)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = ReplaceTokens(item, replacements)
		}
		return out
	case string:
		if repl, ok := replacements[v]; ok {
			return repl
		}
		result := v
		for token, value := range replacements {
			if strings.Contains(result, token) {
				result = strings.ReplaceAll(result, token, fmt.Sprintf("%v", value))
			}
		}
		return result
	default:
		return obj
	}
}
