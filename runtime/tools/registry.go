// Package tools registers the travel data tools the pipeline may invoke and
// validates call arguments against each tool's JSON Schema.
package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/tripsmith/tripsmith/runtime/toolexec"
)

// ErrUnknownTool reports a lookup or validation against a name that was never
// registered.
var ErrUnknownTool = errors.New("unknown tool")

type (
	// Tool describes one registered travel data tool.
	Tool struct {
		// Name is the unique tool identifier, for example "weather.forecast".
		Name string
		// Description says what the tool returns, for operators and logs.
		Description string
		// Schema is the JSON Schema of the argument map. Empty skips
		// validation.
		Schema []byte
		// Call executes the tool.
		Call toolexec.Tool
	}

	// Registry holds registered tools by name and their compiled argument
	// schemas. Safe for concurrent use.
	Registry struct {
		mu      sync.RWMutex
		tools   map[string]Tool
		schemas map[string]*jsonschema.Schema
	}
)

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Register adds a tool. It fails on a missing name or callable, a duplicate
// name, or a schema that does not compile. Schemas compile here so a broken
// one surfaces at wiring time rather than on the first call.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("register tool: name is required")
	}
	if t.Call == nil {
		return fmt.Errorf("register tool %q: callable is required", t.Name)
	}

	var schema *jsonschema.Schema
	if len(t.Schema) > 0 {
		var err error
		schema, err = compileSchema(t.Name, t.Schema)
		if err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("register tool %q: already registered", t.Name)
	}
	r.tools[t.Name] = t
	if schema != nil {
		r.schemas[t.Name] = schema
	}
	return nil
}

// Lookup returns the registered tool and whether it exists.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateArgs checks args against the tool's registered schema. Failures
// come back as permanent validation errors so the executor will not retry
// them. Tools without a schema accept any arguments.
func (r *Registry) ValidateArgs(name string, args map[string]any) error {
	r.mu.RLock()
	_, known := r.tools[name]
	schema := r.schemas[name]
	r.mu.RUnlock()

	if !known {
		return fmt.Errorf("validate args: %w: %s", ErrUnknownTool, name)
	}
	if schema == nil {
		return nil
	}

	// Round-trip through JSON so native Go values (ints in particular) reach
	// the validator in the forms it expects.
	raw, err := json.Marshal(args)
	if err != nil {
		return toolexec.NewToolError(toolexec.ErrTypeValidation, "encode args for %s: %v", name, err)
	}
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return toolexec.NewToolError(toolexec.ErrTypeValidation, "decode args for %s: %v", name, err)
	}
	if err := schema.Validate(instance); err != nil {
		return toolexec.NewToolError(toolexec.ErrTypeValidation, "args for %s: %v", name, err)
	}
	return nil
}

// compileSchema parses and compiles a JSON Schema document.
func compileSchema(name string, schemaBytes []byte) (*jsonschema.Schema, error) {
	var doc any
	if err := json.Unmarshal(schemaBytes, &doc); err != nil {
		return nil, fmt.Errorf("register tool %q: unmarshal schema: %w", name, err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		return nil, fmt.Errorf("register tool %q: add schema resource: %w", name, err)
	}
	schema, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("register tool %q: compile schema: %w", name, err)
	}
	return schema, nil
}
