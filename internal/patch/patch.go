// Package patch implements the small JSON Patch subset used for fix
// suggestions and change previews: add, replace, and remove operations
// addressed by RFC 6901 pointers.
package patch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Supported operation verbs.
const (
	OpAdd     = "add"
	OpReplace = "replace"
	OpRemove  = "remove"
)

// Op is one patch operation. Reason is informational and ignored by Apply.
type Op struct {
	Op     string `json:"op"`
	Path   string `json:"path"`
	Value  any    `json:"value,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// EscapeToken escapes a single pointer segment per RFC 6901.
func EscapeToken(s string) string {
	s = strings.ReplaceAll(s, "~", "~0")
	return strings.ReplaceAll(s, "/", "~1")
}

func unescapeToken(s string) string {
	s = strings.ReplaceAll(s, "~1", "/")
	return strings.ReplaceAll(s, "~0", "~")
}

// Pointer joins segments into an escaped JSON pointer.
func Pointer(segments ...string) string {
	var b strings.Builder
	for _, seg := range segments {
		b.WriteByte('/')
		b.WriteString(EscapeToken(seg))
	}
	return b.String()
}

var arrayIndexRe = regexp.MustCompile(`\[(\d+)\]`)

// FromDotPath converts a dotted diagnostic path ("functions.ship.pre[0].expr")
// into a JSON pointer ("/functions/ship/pre/0/expr").
func FromDotPath(dotted string) string {
	if dotted == "" {
		return ""
	}
	dotted = arrayIndexRe.ReplaceAllString(dotted, ".$1")
	return Pointer(strings.Split(dotted, ".")...)
}

func splitPointer(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("pointer %q must start with /", path)
	}
	raw := strings.Split(path[1:], "/")
	tokens := make([]string, len(raw))
	for i, t := range raw {
		tokens[i] = unescapeToken(t)
	}
	return tokens, nil
}

// DeepCopy clones a JSON-compatible tree. Scalars are shared; maps and
// slices are duplicated at every level.
func DeepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = DeepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = DeepCopy(val)
		}
		return out
	default:
		return v
	}
}

// Apply runs ops against doc and returns the patched tree. The input is
// never mutated; callers keep the original for comparison. Ops are applied
// in order and the first failure aborts the whole application.
func Apply(doc map[string]any, ops []Op) (map[string]any, error) {
	out := DeepCopy(doc).(map[string]any)
	for i, op := range ops {
		if err := applyOne(out, op); err != nil {
			return nil, fmt.Errorf("op %d (%s %s): %w", i, op.Op, op.Path, err)
		}
	}
	return out, nil
}

func applyOne(root map[string]any, op Op) error {
	tokens, err := splitPointer(op.Path)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return fmt.Errorf("empty pointer")
	}

	parent, err := walk(root, tokens[:len(tokens)-1])
	if err != nil {
		return err
	}
	last := tokens[len(tokens)-1]

	switch op.Op {
	case OpAdd, OpReplace:
		return setChild(parent, last, op.Value, op.Op)
	case OpRemove:
		return removeChild(parent, last)
	default:
		return fmt.Errorf("unsupported op %q", op.Op)
	}
}

func walk(root any, tokens []string) (any, error) {
	cur := root
	for _, tok := range tokens {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[tok]
			if !ok {
				return nil, fmt.Errorf("missing key %q", tok)
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(tok)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, fmt.Errorf("bad array index %q", tok)
			}
			cur = node[idx]
		default:
			return nil, fmt.Errorf("cannot descend into %T at %q", cur, tok)
		}
	}
	return cur, nil
}

func setChild(parent any, token string, value any, verb string) error {
	switch node := parent.(type) {
	case map[string]any:
		if verb == OpReplace {
			if _, ok := node[token]; !ok {
				return fmt.Errorf("replace target %q does not exist", token)
			}
		}
		node[token] = DeepCopy(value)
		return nil
	case []any:
		idx, err := strconv.Atoi(token)
		if err != nil || idx < 0 || idx >= len(node) {
			return fmt.Errorf("bad array index %q", token)
		}
		node[idx] = DeepCopy(value)
		return nil
	default:
		return fmt.Errorf("cannot set %q on %T", token, parent)
	}
}

func removeChild(parent any, token string) error {
	node, ok := parent.(map[string]any)
	if !ok {
		return fmt.Errorf("remove requires an object parent, got %T", parent)
	}
	if _, ok := node[token]; !ok {
		return fmt.Errorf("remove target %q does not exist", token)
	}
	delete(node, token)
	return nil
}
