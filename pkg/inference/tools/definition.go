package tools

import (
	"context"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
)

// Parameter types understood by the schema builder.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
)

// Parameter describes one named argument of a tool.
type Parameter struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description" yaml:"description"`
	Required    bool   `json:"required" yaml:"required"`
}

// ToolSpec is the model-facing description of a tool.
type ToolSpec struct {
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description" yaml:"description"`
	Parameters  []Parameter `json:"parameters" yaml:"parameters"`
}

// Clone returns a copy that shares no memory with s.
func (s ToolSpec) Clone() ToolSpec {
	out := s
	if s.Parameters != nil {
		out.Parameters = append([]Parameter(nil), s.Parameters...)
	}
	return out
}

// Schema renders the JSON schema of the tool's arguments, keeping the
// declared parameter order.
func (s ToolSpec) Schema() *jsonschema.Schema {
	props := jsonschema.NewProperties()
	required := []string{}
	for _, p := range s.Parameters {
		typ := p.Type
		if typ == "" {
			typ = TypeString
		}
		props.Set(p.Name, &jsonschema.Schema{
			Type:        typ,
			Description: p.Description,
		})
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

func (s ToolSpec) validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("tool name cannot be empty")
	}
	seen := map[string]bool{}
	for _, p := range s.Parameters {
		if p.Name == "" {
			return errors.Errorf("tool %s has a parameter without a name", s.Name)
		}
		if seen[p.Name] {
			return errors.Errorf("tool %s declares parameter %s twice", s.Name, p.Name)
		}
		seen[p.Name] = true
		switch p.Type {
		case "", TypeString, TypeInteger, TypeNumber, TypeBoolean:
		default:
			return errors.Errorf("tool %s parameter %s has unsupported type %q", s.Name, p.Name, p.Type)
		}
	}
	return nil
}

// Arguments are the decoded arguments of a tool call.
type Arguments map[string]any

// String returns the named argument as a string.
func (a Arguments) String(name string) (string, bool) {
	v, ok := a[name]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// StringOr returns the named string argument, or def when it is absent or empty.
func (a Arguments) StringOr(name, def string) string {
	if s, ok := a.String(name); ok && s != "" {
		return s
	}
	return def
}

// Tool is a named capability the model can invoke.
type Tool interface {
	Spec() ToolSpec
	// Execute runs the tool. Returned errors become failure results; they
	// never abort the dialogue.
	Execute(ctx context.Context, args Arguments) (string, error)
}

// ToolFunc adapts a plain function to the Tool interface.
type ToolFunc struct {
	ToolSpec ToolSpec
	Fn       func(ctx context.Context, args Arguments) (string, error)
}

func (t *ToolFunc) Spec() ToolSpec { return t.ToolSpec }

func (t *ToolFunc) Execute(ctx context.Context, args Arguments) (string, error) {
	return t.Fn(ctx, args)
}

// NewToolFunc creates a Tool from a spec and a function.
func NewToolFunc(spec ToolSpec, fn func(ctx context.Context, args Arguments) (string, error)) *ToolFunc {
	return &ToolFunc{ToolSpec: spec, Fn: fn}
}

var _ Tool = (*ToolFunc)(nil)
