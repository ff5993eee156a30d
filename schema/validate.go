package schema

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strconv"
)

// ValidationError names the first offending path in a value, along with the
// shape the schema expected and the shape that was found
type ValidationError struct {
	Path     string
	Expected string
	Actual   string
}

const rootPath = "(root)"

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

// Validate checks value against the node and returns it unchanged when it
// conforms. Object fields are visited in declaration order and map keys in
// sorted order, so the reported path is stable for a given value.
func Validate(n *Node, value any) (any, error) {
	if err := validate(n, value, ""); err != nil {
		return nil, err
	}
	return value, nil
}

func validate(n *Node, value any, path string) error {
	switch n.Type {
	case String:
		if _, ok := value.(string); !ok {
			return mismatch(n, value, path)
		}
	case Number:
		if !isNumber(value) {
			return mismatch(n, value, path)
		}
	case Boolean:
		if _, ok := value.(bool); !ok {
			return mismatch(n, value, path)
		}
	case Enum:
		s, ok := value.(string)
		if !ok || !slices.Contains(n.Values, s) {
			return mismatch(n, value, path)
		}
	case Array:
		items, ok := asSlice(value)
		if !ok {
			return mismatch(n, value, path)
		}
		for i, item := range items {
			if err := validate(n.Items, item, indexPath(path, i)); err != nil {
				return err
			}
		}
	case Map:
		m, ok := value.(map[string]any)
		if !ok {
			return mismatch(n, value, path)
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := validate(n.Items, m[k], keyPath(path, k)); err != nil {
				return err
			}
		}
	case Object:
		m, ok := value.(map[string]any)
		if !ok {
			return mismatch(n, value, path)
		}
		for i := range n.Properties {
			p := &n.Properties[i]
			fp := fieldPath(path, p.Name)
			v, ok := m[p.Name]
			if !ok {
				if p.Optional {
					continue
				}
				return &ValidationError{
					Path:     fp,
					Expected: p.Node.String(),
					Actual:   "missing",
				}
			}
			if v == nil && p.Optional {
				continue
			}
			if err := validate(&p.Node, v, fp); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%s: %w: %q", pathName(path), ErrUnknownKind, n.Type)
	}
	return nil
}

func mismatch(n *Node, value any, path string) *ValidationError {
	return &ValidationError{
		Path:     pathName(path),
		Expected: n.String(),
		Actual:   Describe(value),
	}
}

// Describe names the shape of a decoded value
func Describe(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return "string " + strconv.Quote(truncate(v, 40))
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any, []string:
		return "array"
	}
	if isNumber(value) {
		return "number"
	}
	return fmt.Sprintf("%T", value)
}

func isNumber(value any) bool {
	switch v := value.(type) {
	case float64, float32,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	case json.Number:
		_, err := v.Float64()
		return err == nil
	default:
		return false
	}
}

func asSlice(value any) ([]any, bool) {
	switch v := value.(type) {
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

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func pathName(path string) string {
	if path == "" {
		return rootPath
	}
	return path
}

func fieldPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func indexPath(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}

func keyPath(path, key string) string {
	return fmt.Sprintf("%s[%s]", path, strconv.Quote(key))
}
