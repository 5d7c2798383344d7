package fix

import (
	"fmt"

	"github.com/specloom/loom/internal/patch"
	"github.com/specloom/loom/internal/validator"
)

// SuggestFix proposes a patch for one finding, dispatching on its code.
// Findings it has no recipe for yield nil.
func SuggestFix(err validator.Error) *patch.Op {
	switch err.Code {
	case validator.CodeTypeEnumMismatch:
		if len(err.ValidOptions) == 0 {
			return nil
		}
		closest, _ := ClosestMatch(fmt.Sprintf("%v", err.Actual), err.ValidOptions)
		return &patch.Op{
			Op:     patch.OpReplace,
			Path:   patch.FromDotPath(err.Path),
			Value:  closest,
			Reason: fmt.Sprintf("Replace '%v' with valid enum value '%s'", err.Actual, closest),
		}

	case validator.CodeRefUnknownField:
		if len(err.ValidOptions) == 0 {
			return nil
		}
		closest, _ := ClosestMatch(fmt.Sprintf("%v", err.Actual), err.ValidOptions)
		return &patch.Op{
			Op:     patch.OpReplace,
			Path:   patch.FromDotPath(err.Path),
			Value:  closest,
			Reason: fmt.Sprintf("Field '%v' not found, did you mean '%s'?", err.Actual, closest),
		}

	case validator.CodeTransitionAmbiguous:
		return &patch.Op{
			Op:     patch.OpAdd,
			Path:   patch.FromDotPath(err.Path) + "/guard",
			Value:  map[string]any{"type": "literal", "value": true},
			Reason: "Add guard condition to resolve transition conflict",
		}
	}

	return nil
}

// GeneratePatches collects applicable patches for a set of findings. A
// finding that already carries its own patch contributes that one;
// otherwise SuggestFix is consulted.
func GeneratePatches(errs []validator.Error) []patch.Op {
	var ops []patch.Op
	for _, err := range errs {
		if err.AutoFixable && err.FixPatch != nil {
			ops = append(ops, *err.FixPatch)
			continue
		}
		if op := SuggestFix(err); op != nil {
			ops = append(ops, *op)
		}
	}
	return ops
}
