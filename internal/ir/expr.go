package ir

// Expr is one node of the tagged-union expression AST. The "type" key is the
// discriminator; the remaining keys are the variant payload. Nodes are kept
// as generic maps rather than per-variant structs because the validator must
// report missing discriminators, unknown variants, and unexpected fields at
// the exact node path. A strict typed decode would reject the whole document
// before any of that can be diagnosed.
type Expr map[string]any

// Kind returns the discriminator value, or "" when the node has none.
func (e Expr) Kind() string {
	s, _ := e["type"].(string)
	return s
}

// Has reports whether the node carries the given key.
func (e Expr) Has(key string) bool {
	_, ok := e[key]
	return ok
}

// Str returns the string value at key, or "" for absent or non-string values.
func (e Expr) Str(key string) string {
	s, _ := e[key].(string)
	return s
}

// Child returns the nested expression at key, if the value is an object.
func (e Expr) Child(key string) (Expr, bool) {
	v, ok := e[key]
	if !ok {
		return nil, false
	}
	return AsExpr(v)
}

// ChildList returns the expression elements of the array at key. Non-object
// elements are skipped.
func (e Expr) ChildList(key string) []Expr {
	raw, ok := e[key].([]any)
	if !ok {
		return nil
	}
	out := make([]Expr, 0, len(raw))
	for _, item := range raw {
		if child, ok := AsExpr(item); ok {
			out = append(out, child)
		}
	}
	return out
}

// AsExpr converts a decoded JSON value into an Expr if it is an object.
func AsExpr(v any) (Expr, bool) {
	switch m := v.(type) {
	case Expr:
		return m, true
	case map[string]any:
		return Expr(m), true
	default:
		return nil, false
	}
}
