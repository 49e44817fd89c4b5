package feedback

import (
	"encoding/json"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"goannotate/domain/trace"
)

// AttributeMatcher is a single path-based predicate over a raw step,
// interaction, or group. Exactly one of ContainsStr/MatchesRegex/EqualsValue
// should be set; a matcher with none set matches nothing.
type AttributeMatcher struct {
	AttributePath string  `json:"attribute_path"`
	ContainsStr   *string `json:"contains_str,omitempty"`
	MatchesRegex  *string `json:"matches_regex,omitempty"`
	EqualsValue   any     `json:"equals_value,omitempty"`
}

var indexSuffix = regexp.MustCompile(`^(.*)\[(\d+)\]$`)

// Matches evaluates the predicate against a raw object. It is fail-closed:
// a missing attribute, a non-sequence where an index was given, an
// out-of-range index, or an unparsable regex all yield false, never an error.
func (m AttributeMatcher) Matches(obj trace.Object) bool {
	value, ok := resolvePath(obj.Value(), m.AttributePath)
	if !ok {
		return false
	}

	switch {
	case m.ContainsStr != nil:
		return strings.Contains(stringify(value), *m.ContainsStr)
	case m.MatchesRegex != nil:
		re, err := regexp.Compile(*m.MatchesRegex)
		if err != nil {
			return false
		}
		return re.MatchString(stringify(value))
	case m.EqualsValue != nil:
		return reflect.DeepEqual(normalize(value), normalize(m.EqualsValue))
	}
	return false
}

// MatchesAll reports whether obj satisfies every matcher. An empty matcher
// list matches everything.
func MatchesAll(matchers []AttributeMatcher, obj trace.Object) bool {
	for _, m := range matchers {
		if !m.Matches(obj) {
			return false
		}
	}
	return true
}

// resolvePath walks a dot-separated path with optional [i] suffixes through
// the JSON shape of obj. Attribute names resolve uniformly against struct
// fields (by wire name) and map keys.
func resolvePath(obj any, path string) (any, bool) {
	current := normalize(obj)
	for _, part := range strings.Split(path, ".") {
		key := part
		index := -1
		if m := indexSuffix.FindStringSubmatch(part); m != nil {
			key = m[1]
			i, err := strconv.Atoi(m[2])
			if err != nil {
				return nil, false
			}
			index = i
		}

		container, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		next, ok := container[key]
		if !ok {
			return nil, false
		}

		if index >= 0 {
			seq, ok := next.([]any)
			if !ok || index >= len(seq) {
				return nil, false
			}
			next = seq[index]
		}
		current = next
	}
	return current, true
}

// normalize reduces a value to its JSON shape (maps, slices, strings,
// float64, bool, nil) so that resolution and equality behave uniformly
// across the three container kinds.
func normalize(v any) any {
	switch v.(type) {
	case nil, string, bool, float64, map[string]any, []any:
		return v
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

// stringify renders the resolved value for substring and regex predicates.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
