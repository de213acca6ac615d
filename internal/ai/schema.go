package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/thywilljoshua/site-diary/internal/diary"
)

// responseSchema describes an acceptable model answer: an object whose known
// keys hold a string, a list of strings or item objects, or null. Other keys
// are allowed and ignored later.
func responseSchema() map[string]any {
	item := map[string]any{
		"anyOf": []any{
			map[string]any{"type": "string"},
			map[string]any{"type": "object"},
			map[string]any{"type": "null"},
		},
	}
	value := map[string]any{
		"anyOf": []any{
			map[string]any{"type": "string"},
			map[string]any{"type": "null"},
			map[string]any{"type": "array", "items": item},
		},
	}
	props := map[string]any{}
	for _, f := range diary.Schema() {
		props[f.Name] = value
	}
	for k := range keyAliases {
		props[k] = value
	}
	for k := range shiftKeys {
		props[k] = map[string]any{"type": []any{"boolean", "null"}}
	}
	return map[string]any{
		"$schema":    "http://json-schema.org/draft-07/schema#",
		"type":       "object",
		"properties": props,
	}
}

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		b, err := json.Marshal(responseSchema())
		if err != nil {
			compileErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("diary-update.json", bytes.NewReader(b)); err != nil {
			compileErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile("diary-update.json")
	})
	return compiledSchema, compileErr
}

// validateShape checks a decoded answer against responseSchema.
func validateShape(v map[string]any) error {
	s, err := schema()
	if err != nil {
		return err
	}
	if err := s.Validate(map[string]any(v)); err != nil {
		return fmt.Errorf("answer does not match schema: %w", err)
	}
	return nil
}
