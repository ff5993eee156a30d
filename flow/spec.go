package flow

import (
	"errors"
	"fmt"

	"github.com/tluyben/lawyeredup/schema"
	"github.com/tluyben/lawyeredup/template"
)

// Spec declares one flow: the input and output schemas, the prompt
// template and optional output checks. A Spec must be compiled before use
// and is not modified afterwards
type Spec struct {
	Name        string       `yaml:"name" json:"name"`
	Description string       `yaml:"description,omitempty" json:"description,omitempty"`
	Model       string       `yaml:"model,omitempty" json:"model,omitempty"`
	System      string       `yaml:"system,omitempty" json:"system,omitempty"`
	Prompt      string       `yaml:"prompt" json:"prompt"`
	Input       *schema.Node `yaml:"input" json:"input"`
	Output      *schema.Node `yaml:"output" json:"output"`
	Checks      []Check      `yaml:"checks,omitempty" json:"checks,omitempty"`

	tmpl         *template.Template
	checks       []compiledCheck
	outputSchema []byte
}

var (
	ErrMissingName     = errors.New("flow has no name")
	ErrMissingSchema   = errors.New("input and output schemas are required")
	ErrInputNotObject  = errors.New("input schema must be an object")
	ErrUndeclaredField = errors.New("template references undeclared field")
)

// Compile checks the definition and prepares the template, the checks and
// the JSON Schema sent to providers. Every failure wraps ErrTemplate
func (s *Spec) Compile() error {
	if err := s.compile(); err != nil {
		name := s.Name
		if name == "" {
			name = "(unnamed)"
		}
		return fmt.Errorf("flow %s: %w: %w", name, ErrTemplate, err)
	}
	return nil
}

func (s *Spec) compile() error {
	if s.Name == "" {
		return ErrMissingName
	}
	if s.Input == nil || s.Output == nil {
		return ErrMissingSchema
	}
	if s.Input.Type != schema.Object {
		return ErrInputNotObject
	}
	if err := s.Input.Check(); err != nil {
		return fmt.Errorf("input: %w", err)
	}
	if err := s.Output.Check(); err != nil {
		return fmt.Errorf("output: %w", err)
	}

	tmpl, err := template.Parse(s.Name, s.Prompt)
	if err != nil {
		return err
	}
	for _, f := range tmpl.Fields() {
		if _, ok := s.Input.Field(f); !ok {
			return fmt.Errorf("%w: %s", ErrUndeclaredField, f)
		}
	}
	if err := checkBlocks(s.Input, nil, tmpl.Blocks()); err != nil {
		return err
	}

	checks, err := compileChecks(s.Name, s.Checks)
	if err != nil {
		return err
	}
	out, err := schema.MarshalJSONSchema(s.Output)
	if err != nil {
		return err
	}

	s.tmpl = tmpl
	s.checks = checks
	s.outputSchema = out
	return nil
}

// Compiled reports whether Compile has succeeded
func (s *Spec) Compiled() bool {
	return s.tmpl != nil
}

// OutputSchema returns the JSON Schema of the flow's output
func (s *Spec) OutputSchema() []byte {
	return s.outputSchema
}

// ValidateInput checks a raw input object against the input schema
func (s *Spec) ValidateInput(input any) (map[string]any, error) {
	if _, err := schema.Validate(s.Input, input); err != nil {
		return nil, err
	}
	return input.(map[string]any), nil
}

// Render substitutes a validated input object into the prompt template
func (s *Spec) Render(input map[string]any) (string, error) {
	return s.tmpl.Execute(input, s.Input.IsRequired)
}

// ValidateOutput checks a decoded model response against the output schema
// and the flow's checks
func (s *Spec) ValidateOutput(input map[string]any, output any) (any, error) {
	if _, err := schema.Validate(s.Output, output); err != nil {
		return nil, err
	}
	if err := evaluateChecks(s.checks, input, output); err != nil {
		return nil, err
	}
	return output, nil
}

// checkBlocks verifies that every name used inside an {{#each}} section
// resolves the way rendering resolves it: against the enclosing elements,
// innermost first, then the input. elems holds the element schema of each
// enclosing section
func checkBlocks(input *schema.Node, elems []*schema.Node, blocks []template.Block) error {
	for _, b := range blocks {
		arr, ok := resolve(input, elems, b.Array)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUndeclaredField, b.Array)
		}
		var elem *schema.Node
		if arr != nil && arr.Type == schema.Array {
			elem = arr.Items
		}
		inner := append(append([]*schema.Node(nil), elems...), elem)
		for _, f := range b.Fields {
			if _, ok := resolve(input, inner, f); !ok {
				return fmt.Errorf("%w: %s in {{#each %s}}", ErrUndeclaredField, f, b.Array)
			}
		}
		if err := checkBlocks(input, inner, b.Blocks); err != nil {
			return err
		}
	}
	return nil
}

// resolve finds the schema of name. A map element accepts any key, so the
// result is nil with ok set
func resolve(input *schema.Node, elems []*schema.Node, name string) (*schema.Node, bool) {
	for i := len(elems) - 1; i >= 0; i-- {
		switch e := elems[i]; {
		case e == nil:
		case e.Type == schema.Map:
			return nil, true
		case e.Type == schema.Object:
			if p, ok := e.Field(name); ok {
				return &p.Node, true
			}
		}
	}
	if p, ok := input.Field(name); ok {
		return &p.Node, true
	}
	return nil, false
}
