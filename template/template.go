// Package template renders prompt text with field substitution.
//
// Supported placeholders:
//
//	{field}                     scalar substitution
//	{{field}}                   scalar substitution
//	{{#each field}}...{{/each}} one copy of the block per array element
//	{{@this}}                   the current element inside a block
//	{{@index}}                  the zero-based element index inside a block
//
// Inside a block, {{name}} resolves against the current element first when
// that element is an object. Single-brace placeholders only match
// identifiers, so literal JSON in a prompt is left alone.
package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type (
	// Template is a parsed prompt. It is immutable and safe for concurrent
	// use
	Template struct {
		name  string
		nodes []node
	}

	// Error reports a template defect or a reference to a required field
	// that is absent from the input
	Error struct {
		Template string
		Field    string
		Msg      string
	}

	// RequiredFunc reports whether a missing top-level field is an error
	RequiredFunc func(field string) bool

	node interface {
		render(*strings.Builder, *scope) error
	}

	text string

	field struct {
		name string
	}

	each struct {
		name string
		body []node
	}

	// Block describes one {{#each}} section and the names used directly
	// inside it
	Block struct {
		Array  string
		Fields []string
		Blocks []Block
	}

	scope struct {
		tmpl     string
		input    map[string]any
		required RequiredFunc
		item     any
		index    int
		inBlock  bool
		parent   *scope
	}
)

const (
	thisVar  = "@this"
	indexVar = "@index"
)

var tokenPattern = regexp.MustCompile(
	`\{\{#each\s+([A-Za-z_][A-Za-z0-9_]*)\s*\}\}` +
		`|\{\{/each\}\}` +
		`|\{\{\s*(@?[A-Za-z_][A-Za-z0-9_]*)\s*\}\}` +
		`|\{([A-Za-z_][A-Za-z0-9_]*)\}`,
)

func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("template %s: %s", e.Template, e.Msg)
	}
	return fmt.Sprintf("template %s: field %q: %s", e.Template, e.Field, e.Msg)
}

// Parse compiles template text
func Parse(name, src string) (*Template, error) {
	type frame struct {
		name  string
		nodes []node
	}
	stack := []*frame{{}}
	top := func() *frame { return stack[len(stack)-1] }

	pos := 0
	for _, m := range tokenPattern.FindAllStringSubmatchIndex(src, -1) {
		if m[0] > pos {
			top().nodes = append(top().nodes, text(src[pos:m[0]]))
		}
		pos = m[1]

		switch {
		case m[2] >= 0:
			stack = append(stack, &frame{name: src[m[2]:m[3]]})
		case m[4] >= 0:
			top().nodes = append(top().nodes, field{name: src[m[4]:m[5]]})
		case m[6] >= 0:
			top().nodes = append(top().nodes, field{name: src[m[6]:m[7]]})
		default:
			if len(stack) == 1 {
				return nil, &Error{
					Template: name,
					Msg:      "{{/each}} without {{#each}}",
				}
			}
			f := top()
			stack = stack[:len(stack)-1]
			top().nodes = append(top().nodes, each{name: f.name, body: f.nodes})
		}
	}
	if len(stack) > 1 {
		return nil, &Error{
			Template: name,
			Field:    top().name,
			Msg:      "unclosed {{#each}}",
		}
	}
	if pos < len(src) {
		stack[0].nodes = append(stack[0].nodes, text(src[pos:]))
	}
	return &Template{name: name, nodes: stack[0].nodes}, nil
}

// MustParse is like Parse but panics on error
func MustParse(name, src string) *Template {
	t, err := Parse(name, src)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the name the template was parsed with
func (t *Template) Name() string {
	return t.name
}

// Fields returns the distinct input fields the template refers to outside
// of any block, plus the arrays it iterates, in order of first appearance.
// Names used inside a block may resolve against the block element and are
// reported by Blocks
func (t *Template) Fields() []string {
	return names(t.nodes)
}

// Blocks returns the top-level {{#each}} sections in order of appearance
func (t *Template) Blocks() []Block {
	return blocks(t.nodes)
}

func names(nodes []node) []string {
	var res []string
	seen := map[string]bool{}
	for _, n := range nodes {
		var name string
		switch n := n.(type) {
		case field:
			name = n.name
		case each:
			name = n.name
		default:
			continue
		}
		if strings.HasPrefix(name, "@") || seen[name] {
			continue
		}
		seen[name] = true
		res = append(res, name)
	}
	return res
}

func blocks(nodes []node) []Block {
	var res []Block
	for _, n := range nodes {
		if e, ok := n.(each); ok {
			res = append(res, Block{
				Array:  e.name,
				Fields: names(e.body),
				Blocks: blocks(e.body),
			})
		}
	}
	return res
}

// Execute renders the template against input. A nil required function
// treats every field as required
func (t *Template) Execute(input map[string]any, required RequiredFunc) (string, error) {
	if required == nil {
		required = func(string) bool { return true }
	}
	var buf strings.Builder
	s := &scope{tmpl: t.name, input: input, required: required}
	for _, n := range t.nodes {
		if err := n.render(&buf, s); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func (t text) render(buf *strings.Builder, _ *scope) error {
	buf.WriteString(string(t))
	return nil
}

func (f field) render(buf *strings.Builder, s *scope) error {
	v, ok, err := s.lookup(f.name)
	if err != nil || !ok {
		return err
	}
	str, err := format(v)
	if err != nil {
		return &Error{Template: s.tmpl, Field: f.name, Msg: err.Error()}
	}
	buf.WriteString(str)
	return nil
}

func (e each) render(buf *strings.Builder, s *scope) error {
	v, ok, err := s.lookup(e.name)
	if err != nil || !ok || v == nil {
		return err
	}
	items, ok := asSlice(v)
	if !ok {
		return &Error{
			Template: s.tmpl,
			Field:    e.name,
			Msg:      fmt.Sprintf("#each requires an array, got %T", v),
		}
	}
	for i, item := range items {
		inner := &scope{
			tmpl:     s.tmpl,
			input:    s.input,
			required: s.required,
			item:     item,
			index:    i,
			inBlock:  true,
			parent:   s,
		}
		for _, n := range e.body {
			if err := n.render(buf, inner); err != nil {
				return err
			}
		}
	}
	return nil
}

// lookup resolves a name against the innermost block element, then the
// enclosing blocks, then the input. A missing optional field yields ok=false
func (s *scope) lookup(name string) (any, bool, error) {
	switch name {
	case thisVar, indexVar:
		if !s.inBlock {
			return nil, false, &Error{
				Template: s.tmpl,
				Field:    name,
				Msg:      "used outside of {{#each}}",
			}
		}
		if name == thisVar {
			return s.item, true, nil
		}
		return s.index, true, nil
	}
	for c := s; c != nil && c.inBlock; c = c.parent {
		if m, ok := c.item.(map[string]any); ok {
			if v, ok := m[name]; ok {
				return v, true, nil
			}
		}
	}
	if v, ok := s.input[name]; ok {
		return v, true, nil
	}
	if s.required(name) {
		return nil, false, &Error{
			Template: s.tmpl,
			Field:    name,
			Msg:      "required field is missing from input",
		}
	}
	return nil, false, nil
}

func format(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case json.Number:
		return v.String(), nil
	}
	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func asSlice(v any) ([]any, bool) {
	switch v := v.(type) {
	case []any:
		return v, true
	case []string:
		res := make([]any, len(v))
		for i, s := range v {
			res[i] = s
		}
		return res, true
	default:
		return nil, false
	}
}
