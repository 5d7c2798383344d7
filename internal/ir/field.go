package ir

import (
	"encoding/json"
	"fmt"
)

// FieldType is the polymorphic type tag of a field. In serialized form it is
// either a plain string ("string", "int", ...) or a single-key object:
// {"enum": [...]}, {"ref": "Entity"}, or {"list": <inner type>}.
type FieldType struct {
	Name string     `json:"-"` // primitive tag when not structured
	Enum []string   `json:"-"`
	Ref  string     `json:"-"`
	List *FieldType `json:"-"`
}

// IsEnum reports whether the type declares an enum value set.
func (t FieldType) IsEnum() bool { return t.Enum != nil }

// IsRef reports whether the type is a reference to another entity.
func (t FieldType) IsRef() bool { return t.Ref != "" }

// IsList reports whether the type is a list type.
func (t FieldType) IsList() bool { return t.List != nil }

// IsZero reports whether the type is entirely unset.
func (t FieldType) IsZero() bool {
	return t.Name == "" && t.Enum == nil && t.Ref == "" && t.List == nil
}

// Scalar reduces the type to its scalar kind for compatibility checks:
// enums and refs compare as "string", lists as "list", primitives as
// themselves.
func (t FieldType) Scalar() string {
	switch {
	case t.IsEnum(), t.IsRef():
		return "string"
	case t.IsList():
		return "list"
	default:
		return t.Name
	}
}

// String renders the type the way it appears in a spec document.
func (t FieldType) String() string {
	switch {
	case t.IsEnum():
		return fmt.Sprintf("enum%v", t.Enum)
	case t.IsRef():
		return "ref:" + t.Ref
	case t.IsList():
		return "list:" + t.List.String()
	default:
		return t.Name
	}
}

// UnmarshalJSON accepts both the plain-string and the structured forms.
func (t *FieldType) UnmarshalJSON(data []byte) error {
	*t = FieldType{}
	if len(data) == 0 {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &t.Name)
	}
	var obj struct {
		Enum []string        `json:"enum"`
		Ref  string          `json:"ref"`
		List json.RawMessage `json:"list"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("field type: %w", err)
	}
	t.Enum = obj.Enum
	t.Ref = obj.Ref
	if len(obj.List) > 0 {
		inner := &FieldType{}
		if err := inner.UnmarshalJSON(obj.List); err != nil {
			return err
		}
		t.List = inner
	}
	return nil
}

// MarshalJSON emits the same shape that was decoded.
func (t FieldType) MarshalJSON() ([]byte, error) {
	switch {
	case t.IsEnum():
		return json.Marshal(map[string][]string{"enum": t.Enum})
	case t.IsRef():
		return json.Marshal(map[string]string{"ref": t.Ref})
	case t.IsList():
		return json.Marshal(map[string]FieldType{"list": *t.List})
	default:
		return json.Marshal(t.Name)
	}
}

// Field is one declared field of an entity, event payload, or function
// input/output schema.
type Field struct {
	Type        FieldType `json:"type"`
	Required    bool      `json:"required,omitempty"`
	Min         *float64  `json:"min,omitempty"`
	Max         *float64  `json:"max,omitempty"`
	MinLength   *int      `json:"minLength,omitempty"`
	MaxLength   *int      `json:"maxLength,omitempty"`
	Pattern     string    `json:"pattern,omitempty"`
	Default     any       `json:"default,omitempty"`
	Description string    `json:"description,omitempty"`
}

// StringList decodes from either a bare string or an array of strings.
// Transition sources use it: "from" may name one state or several.
type StringList []string

// UnmarshalJSON accepts "a" and ["a", "b"].
func (l *StringList) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = StringList(many)
	return nil
}

// MarshalJSON emits a bare string for single-element lists.
func (l StringList) MarshalJSON() ([]byte, error) {
	if len(l) == 1 {
		return json.Marshal(l[0])
	}
	return json.Marshal([]string(l))
}
