package fix

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/specloom/loom/internal/ir"
)

// Suggestion proposes a default value for a structurally required field
// that a partial document left out.
type Suggestion struct {
	Path   string `json:"path"`
	Value  any    `json:"suggestion"`
	Reason string `json:"reason"`
}

// SuggestCompletions walks a partial document and proposes literal
// defaults for required-but-absent fields. Ordering is deterministic:
// sections in document order, names sorted within each.
func SuggestCompletions(doc *ir.Document) []Suggestion {
	var out []Suggestion

	if doc.Meta.ID == "" {
		out = append(out, Suggestion{
			Path:   "/meta/id",
			Value:  uuid.NewString(),
			Reason: "Meta requires 'id' field",
		})
	}
	if doc.Meta.Version == "" {
		out = append(out, Suggestion{
			Path:   "/meta/version",
			Value:  "1.0.0",
			Reason: "Meta requires 'version' field",
		})
	}
	if doc.Meta.Title == "" {
		out = append(out, Suggestion{
			Path:   "/meta/title",
			Value:  "My Specification",
			Reason: "Meta requires 'title' field",
		})
	}

	for _, name := range ir.SortedKeys(doc.Entities) {
		if len(doc.Entities[name].Fields) == 0 {
			out = append(out, Suggestion{
				Path:   fmt.Sprintf("/entities/%s/fields", name),
				Value:  map[string]any{"id": map[string]any{"type": "string"}},
				Reason: "Entity should have at least one field",
			})
		}
	}

	for _, name := range ir.SortedKeys(doc.Derived) {
		d := doc.Derived[name]
		if d.Returns == "" {
			out = append(out, Suggestion{
				Path:   fmt.Sprintf("/derived/%s/returns", name),
				Value:  "string",
				Reason: "DerivedFormula requires 'returns' field",
			})
		}
		if d.Entity == "" {
			out = append(out, Suggestion{
				Path:   fmt.Sprintf("/derived/%s/entity", name),
				Value:  "Entity",
				Reason: "DerivedFormula requires 'entity' field",
			})
		}
	}

	for _, name := range ir.SortedKeys(doc.Functions) {
		fn := doc.Functions[name]
		if fn.Description == "" {
			out = append(out, Suggestion{
				Path:   fmt.Sprintf("/functions/%s/description", name),
				Value:  fmt.Sprintf("Performs %s operation", name),
				Reason: "Function requires 'description' field",
			})
		}
		if fn.Input == nil {
			out = append(out, Suggestion{
				Path:   fmt.Sprintf("/functions/%s/input", name),
				Value:  map[string]any{},
				Reason: "Function requires 'input' field (can be empty object)",
			})
		}
		for i, post := range fn.Post {
			if post.Action.Update != "" && post.Action.Target == nil {
				out = append(out, Suggestion{
					Path:   fmt.Sprintf("/functions/%s/post/%d/action/target", name, i),
					Value:  map[string]any{"type": "input", "name": "id"},
					Reason: "UpdateAction requires 'target' field",
				})
			}
		}
	}

	for _, name := range ir.SortedKeys(doc.StateMachines) {
		sm := doc.StateMachines[name]
		if sm.Initial != "" {
			continue
		}
		initial := "INITIAL"
		if states := ir.SortedKeys(sm.States); len(states) > 0 {
			initial = states[0]
		}
		out = append(out, Suggestion{
			Path:   fmt.Sprintf("/stateMachines/%s/initial", name),
			Value:  initial,
			Reason: "StateMachine requires 'initial' field",
		})
	}

	for _, name := range ir.SortedKeys(doc.Sagas) {
		for i, step := range doc.Sagas[name].Steps {
			if step.Forward == "" {
				stepName := step.Name
				if stepName == "" {
					stepName = "step"
				}
				out = append(out, Suggestion{
					Path:   fmt.Sprintf("/sagas/%s/steps/%d/forward", name, i),
					Value:  stepName + "_action",
					Reason: "SagaStep requires 'forward' field",
				})
			}
			if step.Name == "" {
				out = append(out, Suggestion{
					Path:   fmt.Sprintf("/sagas/%s/steps/%d/name", name, i),
					Value:  fmt.Sprintf("step_%d", i+1),
					Reason: "SagaStep requires 'name' field",
				})
			}
		}
	}

	return out
}
