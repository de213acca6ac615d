package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/thywilljoshua/site-diary/internal/diary"
)

var errNoJSON = errors.New("no JSON object in response")

// stripCodeFences removes a surrounding ```json ... ``` block.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if i := strings.Index(s, "\n"); i != -1 {
			s = s[i+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

// findFirstJSON returns the first balanced {...} in s. Braces inside
// string literals are ignored.
func findFirstJSON(s string) string {
	start, depth := -1, 0
	inString, escaped := false, false
	for i, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			if start != -1 {
				inString = true
			}
		case '{':
			if start == -1 {
				start = i
			}
			depth++
		case '}':
			if start != -1 {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}

// extractObject pulls the JSON object out of a model answer.
func extractObject(answer string) ([]byte, error) {
	s := stripCodeFences(answer)
	if json.Valid([]byte(s)) && strings.HasPrefix(s, "{") {
		return []byte(s), nil
	}
	if obj := findFirstJSON(s); obj != "" {
		return []byte(obj), nil
	}
	return nil, errNoJSON
}

// keyAliases maps keys some models use to schema field names.
var keyAliases = map[string]string{
	"engineers_note":  "notes",
	"engineer_note":   "notes",
	"engineers_notes": "notes",
	"remarks":         "notes",
	"doc_no":          "document_number",
	"manpower":        "personnel",
	"plant":           "equipment",
}

// shiftKeys are boolean flags that map onto shift names.
var shiftKeys = map[string]string{
	"time_morning":   "Morning",
	"time_afternoon": "Afternoon",
	"time_night":     "Night",
}

// updates is the decoded model answer: values to apply, keyed by field.
type updates struct {
	values  map[string]diary.Value
	ignored []string
}

func decodeUpdates(obj []byte) (*updates, error) {
	var raw map[string]any
	if err := json.Unmarshal(obj, &raw); err != nil {
		return nil, err
	}
	if err := validateShape(raw); err != nil {
		return nil, err
	}

	u := &updates{values: map[string]diary.Value{}}
	var shifts []string

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := raw[k]
		if label, ok := shiftKeys[k]; ok {
			if b, _ := v.(bool); b {
				shifts = append(shifts, label)
			}
			continue
		}
		name := k
		if alias, ok := keyAliases[strings.ToLower(k)]; ok {
			name = alias
		}
		spec, ok := diary.Lookup(name)
		if !ok {
			u.ignored = append(u.ignored, k)
			continue
		}
		val, ok := toValue(spec, v)
		if !ok {
			continue
		}
		if _, dup := u.values[spec.Name]; dup && name != k {
			// The canonical key wins over an alias.
			continue
		}
		u.values[spec.Name] = val
	}

	if _, ok := u.values["shifts"]; !ok && len(shifts) > 0 {
		sort.Slice(shifts, func(i, j int) bool { return shiftOrder(shifts[i]) < shiftOrder(shifts[j]) })
		u.values["shifts"] = diary.List(shifts...)
	}
	return u, nil
}

func shiftOrder(s string) int {
	switch s {
	case "Morning":
		return 0
	case "Afternoon":
		return 1
	default:
		return 2
	}
}

// toValue converts a decoded JSON value to a field value. It reports false
// when v carries no information.
func toValue(spec diary.FieldSpec, v any) (diary.Value, bool) {
	switch spec.Kind {
	case diary.KindList:
		var items []string
		switch t := v.(type) {
		case string:
			for _, ln := range strings.Split(t, "\n") {
				if ln = clean(ln); ln != "" {
					items = append(items, ln)
				}
			}
		case []any:
			items = flattenItems(t, spec.Name == "equipment")
		}
		if len(items) == 0 {
			return diary.Value{}, false
		}
		return diary.List(items...), true
	default:
		var s string
		switch t := v.(type) {
		case string:
			s = clean(t)
		case []any:
			s = strings.Join(flattenItems(t, false), "; ")
		}
		if s == "" {
			return diary.Value{}, false
		}
		return diary.Text(s), true
	}
}

var spaceRe = regexp.MustCompile(`\s+`)

func clean(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// itemKeyOrder is the order in which object item fields are joined.
var itemKeyOrder = []string{
	"description", "equipment", "personnel", "type", "role", "no",
	"quantity", "unit", "location", "hours", "operating_hours", "idle_hours",
	"status", "severity", "action_taken", "remarks",
}

// flattenItems turns list entries into strings. Object entries are joined
// field by field. With dedupe set, entries are compared by their equipment
// number, or by their text when there is none, ignoring case and spaces.
func flattenItems(in []any, dedupe bool) []string {
	var (
		out  []string
		seen = map[string]bool{}
	)
	for _, it := range in {
		var text, key string
		switch t := it.(type) {
		case string:
			text = clean(t)
			key = text
		case map[string]any:
			text = joinObject(t)
			if no, ok := t["no"].(string); ok && clean(no) != "" {
				key = "no:" + no
			} else {
				key = text
			}
		}
		if text == "" {
			continue
		}
		if dedupe {
			k := strings.ToUpper(spaceRe.ReplaceAllString(key, ""))
			if seen[k] {
				continue
			}
			seen[k] = true
		}
		out = append(out, text)
	}
	return out
}

func joinObject(m map[string]any) string {
	used := map[string]bool{"sn": true}
	var parts []string
	add := func(k string) {
		used[k] = true
		switch v := m[k].(type) {
		case string:
			if s := clean(v); s != "" {
				parts = append(parts, s)
			}
		case float64:
			parts = append(parts, fmt.Sprint(v))
		}
	}
	for _, k := range itemKeyOrder {
		if _, ok := m[k]; ok {
			add(k)
		}
	}
	rest := make([]string, 0, len(m))
	for k := range m {
		if !used[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		add(k)
	}
	return strings.Join(parts, " ")
}
