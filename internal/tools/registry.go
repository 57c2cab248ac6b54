package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

var ErrUnknownTool = errors.New("unknown tool")

// ValidationError reports arguments that do not satisfy a tool schema.
type ValidationError struct {
	Tool   Name
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, e.Reason)
}

// Registry is the closed set of tools offered to the model.
type Registry struct {
	defs   []*Definition
	byName map[Name]*Definition
}

func NewRegistry() *Registry {
	defs := definitions()
	byName := make(map[Name]*Definition, len(defs))
	for _, def := range defs {
		if def.Schema.Parameters != nil {
			def.required = def.Schema.Parameters.Required
		}
		byName[def.Schema.Name] = def
	}
	return &Registry{defs: defs, byName: byName}
}

// Schemas returns the tool schemas in registration order.
func (r *Registry) Schemas() []Schema {
	schemas := make([]Schema, 0, len(r.defs))
	for _, def := range r.defs {
		schemas = append(schemas, def.Schema)
	}
	return schemas
}

func (r *Registry) Lookup(name string) (*Definition, error) {
	def, ok := r.byName[Name(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return def, nil
}

// Validate parses raw JSON arguments of the named tool into its typed Args.
func (r *Registry) Validate(name string, raw string) (Args, error) {
	def, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	tool := def.Schema.Name

	payload := map[string]any{}
	if strings.TrimSpace(raw) != "" {
		dec := json.NewDecoder(bytes.NewBufferString(raw))
		dec.UseNumber()
		if err := dec.Decode(&payload); err != nil {
			return nil, &ValidationError{Tool: tool, Reason: fmt.Sprintf("malformed JSON: %v", err)}
		}
	}

	for _, field := range def.required {
		if v, ok := payload[field]; !ok || v == nil {
			return nil, &ValidationError{Tool: tool, Reason: fmt.Sprintf("missing required field %q", field)}
		}
	}

	target := def.newArgs()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		ErrorUnused: true,
		DecodeHook:  wrapJobList,
		Result:      target,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(payload); err != nil {
		return nil, &ValidationError{Tool: tool, Reason: err.Error()}
	}

	var args Args
	switch v := target.(type) {
	case *SearchArgs:
		v.Query = strings.TrimSpace(v.Query)
		if v.Query == "" {
			return nil, &ValidationError{Tool: tool, Reason: "query must not be empty"}
		}
		if v.NResults <= 0 {
			return nil, &ValidationError{Tool: tool, Reason: "n_results must be positive"}
		}
		args = *v
	case *MatchArgs:
		args = *v
	case *TweakArgs:
		if strings.TrimSpace(v.JobDescription) == "" {
			return nil, &ValidationError{Tool: tool, Reason: "job_description must not be empty"}
		}
		args = *v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}

	return args, nil
}

// wrapJobList accepts a bare posting list where a {"jobs": [...]} object is expected.
func wrapJobList(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.Slice {
		return data, nil
	}
	if to.Kind() == reflect.Ptr {
		to = to.Elem()
	}
	if to.Kind() != reflect.Struct {
		return data, nil
	}
	if _, ok := to.FieldByName("Jobs"); !ok {
		return data, nil
	}
	return map[string]any{"jobs": data}, nil
}
