package diary

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Value is the content of one field: either text or a list of text items.
type Value struct {
	Kind Kind
	Text string
	List []string
}

// Text builds a text value.
func Text(s string) Value { return Value{Kind: KindText, Text: s} }

// List builds a list value. A nil list is stored as empty.
func List(items ...string) Value {
	if items == nil {
		items = []string{}
	}
	return Value{Kind: KindList, List: items}
}

// IsEmpty reports whether the value carries no content.
func (v Value) IsEmpty() bool {
	if v.Kind == KindList {
		for _, it := range v.List {
			if strings.TrimSpace(it) != "" {
				return false
			}
		}
		return true
	}
	return strings.TrimSpace(v.Text) == ""
}

// Equal compares kind and content.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	if v.Kind == KindList {
		return slices.Equal(v.List, o.List)
	}
	return v.Text == o.Text
}

func (v Value) clone() Value {
	if v.Kind == KindList {
		return List(slices.Clone(v.List)...)
	}
	return v
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.Kind == KindList {
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	}
	return json.Marshal(v.Text)
}

func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) > 0 && b[0] == '[':
		var items []string
		if err := json.Unmarshal(b, &items); err != nil {
			return fmt.Errorf("list value: %w", err)
		}
		*v = List(items...)
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = Text(s)
	default:
		return fmt.Errorf("diary value must be a string or an array of strings, got %s", string(b))
	}
	return nil
}

// Record is one diary entry: a mapping from schema field names to values.
// The zero value is an empty record with no fields present; use NewRecord
// for a record with every field present and empty.
type Record struct {
	values map[string]Value
}

// NewRecord returns a record with every schema field present and empty.
func NewRecord() *Record {
	r := &Record{values: make(map[string]Value, len(schema))}
	for _, f := range schema {
		r.values[f.Name] = emptyValue(f.Kind)
	}
	return r
}

func emptyValue(k Kind) Value {
	if k == KindList {
		return List()
	}
	return Text("")
}

// Has reports whether the field is present.
func (r *Record) Has(name string) bool {
	spec, ok := Lookup(name)
	if !ok {
		return false
	}
	_, ok = r.values[spec.Name]
	return ok
}

// Get returns the value of a field. A known but absent field yields an
// empty value of the right kind and no error.
func (r *Record) Get(name string) (Value, error) {
	spec, ok := Lookup(name)
	if !ok {
		return Value{}, unknownField(name)
	}
	v, ok := r.values[spec.Name]
	if !ok {
		return emptyValue(spec.Kind), nil
	}
	return v.clone(), nil
}

// Set replaces the value of a field after checking its kind.
func (r *Record) Set(name string, v Value) error {
	spec, ok := Lookup(name)
	if !ok {
		return unknownField(name)
	}
	if v.Kind != spec.Kind {
		return &KindError{Field: spec.Name, Want: spec.Kind, Got: v.Kind}
	}
	if r.values == nil {
		r.values = make(map[string]Value, len(schema))
	}
	r.values[spec.Name] = v.clone()
	return nil
}

// Remove drops a field from the record. Used to model incomplete input.
func (r *Record) Remove(name string) {
	if spec, ok := Lookup(name); ok {
		delete(r.values, spec.Name)
	}
}

// Fill adds every missing schema field as an empty value.
func (r *Record) Fill() {
	if r.values == nil {
		r.values = make(map[string]Value, len(schema))
	}
	for _, f := range schema {
		if _, ok := r.values[f.Name]; !ok {
			r.values[f.Name] = emptyValue(f.Kind)
		}
	}
}

// TextOf returns the text of a text field, or "" for anything else.
func (r *Record) TextOf(name string) string {
	v, err := r.Get(name)
	if err != nil || v.Kind != KindText {
		return ""
	}
	return v.Text
}

// ListOf returns the items of a list field, or nil for anything else.
func (r *Record) ListOf(name string) []string {
	v, err := r.Get(name)
	if err != nil || v.Kind != KindList {
		return nil
	}
	return v.List
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	out := &Record{values: make(map[string]Value, len(r.values))}
	for k, v := range r.values {
		out.values[k] = v.clone()
	}
	return out
}

// Equal compares two records field by field.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	if len(r.values) != len(o.values) {
		return false
	}
	for k, v := range r.values {
		ov, ok := o.values[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Validate checks that every schema field is present, mandatory fields are
// non-empty and no list contains blank items. It does not judge content.
func (r *Record) Validate() error {
	var problems []Problem
	for _, f := range schema {
		v, ok := r.values[f.Name]
		if !ok {
			problems = append(problems, Problem{Field: f.Name, Message: "missing"})
			continue
		}
		if f.Mandatory && v.IsEmpty() {
			problems = append(problems, Problem{Field: f.Name, Message: f.Label + " is required"})
		}
		if v.Kind == KindList {
			for i, it := range v.List {
				if strings.TrimSpace(it) == "" {
					problems = append(problems, Problem{Field: f.Name, Message: fmt.Sprintf("item %d is empty", i+1)})
				}
			}
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Summary holds item counts for display.
type Summary struct {
	Activities int `json:"total_activities"`
	Equipment  int `json:"total_equipment"`
	Personnel  int `json:"total_personnel"`
	Materials  int `json:"total_materials"`
	UnsafeActs int `json:"total_unsafe_acts"`
}

// Summary counts the list fields.
func (r *Record) Summary() Summary {
	return Summary{
		Activities: len(r.ListOf("activities")),
		Equipment:  len(r.ListOf("equipment")),
		Personnel:  len(r.ListOf("personnel")),
		Materials:  len(r.ListOf("materials")),
		UnsafeActs: len(r.ListOf("unsafe_acts")),
	}
}

// MarshalJSON writes present fields as a flat object in template order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, f := range schema {
		v, ok := r.values[f.Name]
		if !ok {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, _ := json.Marshal(f.Name)
		buf.Write(key)
		buf.WriteByte(':')
		b, err := v.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a flat object. Absent fields stay absent so that
// validation can report them; unknown keys and wrong kinds are errors.
func (r *Record) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	r.values = make(map[string]Value, len(raw))
	for k, msg := range raw {
		var v Value
		if err := v.UnmarshalJSON(msg); err != nil {
			return fmt.Errorf("field %s: %w", k, err)
		}
		if err := r.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}
