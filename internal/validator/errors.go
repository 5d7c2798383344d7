package validator

import (
	"fmt"

	"github.com/specloom/loom/internal/patch"
)

// Validation error codes, grouped by concern.
const (
	// Reference errors (REF)
	CodeRefUnknownEntity   = "REF-001" // entity name does not resolve
	CodeRefUnknownField    = "REF-002" // field path or function reference does not resolve
	CodeRefUnknownEvent    = "REF-003" // event reference does not resolve
	CodeRefUnknownRole     = "REF-004" // role reference does not resolve

	// Type errors (TYP)
	CodeTypeEnumMismatch  = "TYP-001" // literal not in enum value set
	CodeTypeInputMismatch = "TYP-002" // input type incompatible with field type

	// Expression and state errors (VAL)
	CodeExprInvalid         = "VAL-001" // discriminator/structural AST error
	CodeValueNotInSet       = "VAL-002" // value outside a fixed option set
	CodeTransitionTrigger   = "VAL-003" // transition trigger not declared
	CodeStateUnreachable    = "VAL-004" // state unreachable from initial (warning)
	CodeStateDeadEnd        = "VAL-005" // non-final state with no exit (warning)
	CodeRelationInvalid     = "VAL-006" // relation shape or symmetry error
	CodeDepthExceeded       = "VAL-DEPTH"
	CodeTransitionAmbiguous = "TRANS-001" // overlapping unguarded transitions
	CodeDerivedCycle        = "CYC-001"   // derived formula dependency cycle
	CodeUnusedFunction      = "USE-001"   // function never referenced

	// Security errors (SEC)
	CodeRoleCycle    = "SEC-001" // role inheritance cycle
	CodeRoleBadGrant = "SEC-002" // invalid entity permission

	// Saga errors (SAGA)
	CodeSagaDuplicateStep = "SAGA-001"
	CodeSagaBadRef        = "SAGA-002" // forward/compensate not declared
	CodeSagaBadPolicy     = "SAGA-003" // failure policy or dependsOn invalid

	// Schedule errors (SCH)
	CodeScheduleBadCron    = "SCH-001"
	CodeScheduleBadAction  = "SCH-002"
	CodeScheduleBadOverlap = "SCH-003"

	// Gateway errors (GW)
	CodeGatewayBadType   = "GW-001"
	CodeGatewayBadTarget = "GW-002"
	CodeGatewayBadFlow   = "GW-003"

	// Deadline errors (DL)
	CodeDeadlineBadDuration = "DL-001"
	CodeDeadlineBadRef      = "DL-002"
	CodeDeadlineBadTrigger  = "DL-003"

	// External service errors (SVC)
	CodeServiceBadURL  = "SVC-001"
	CodeServiceBadAuth = "SVC-002"
	CodeServiceBadOp   = "SVC-003"

	// Policy errors (POL)
	CodePolicyBadField     = "POL-001" // policy field not declared on entity
	CodePolicyBadStrategy  = "POL-002"
	CodePolicyBadRetention = "POL-003"
	CodePolicyBadOperation = "POL-004"

	// Constraint errors (CNS)
	CodeConstraintMinMax     = "CNS-001" // numeric min greater than max
	CodeConstraintBadBound   = "CNS-002" // bound on a type that has none
	CodeConstraintBadPattern = "CNS-003" // pattern does not compile
	CodeConstraintLengths    = "CNS-004" // minLength greater than maxLength
)

// Severity levels. Warnings never block validity.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Error categories used for grouping in reports.
const (
	CategoryReference  = "reference"
	CategoryType       = "type"
	CategoryExpression = "expression"
	CategoryConstraint = "constraint"
	CategoryState      = "state"
	CategoryWorkflow   = "workflow"
	CategorySecurity   = "security"
	CategoryPolicy     = "policy"
	CategoryUsage      = "usage"
)

// Error is one validation finding. Path is dotted with [i] array indices
// ("functions.ship.pre[0].expr"); FixPatch, when set, addresses the same
// location as a JSON pointer.
type Error struct {
	Path         string    `json:"path"`
	Message      string    `json:"message"`
	Severity     string    `json:"severity"`
	Code         string    `json:"code,omitempty"`
	Category     string    `json:"category,omitempty"`
	Expected     any       `json:"expected,omitempty"`
	Actual       any       `json:"actual,omitempty"`
	ValidOptions []string  `json:"valid_options,omitempty"`
	AutoFixable  bool      `json:"auto_fixable,omitempty"`
	FixPatch     *patch.Op `json:"fix_patch,omitempty"`
}

// Error implements the error interface.
func (e Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Result is the outcome of one validation pass. Valid is false iff at least
// one error-severity finding exists; warnings never block validity.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Error `json:"errors"`
	Warnings []Error `json:"warnings"`
}

func newResult(findings []Error) *Result {
	res := &Result{Valid: true, Errors: []Error{}, Warnings: []Error{}}
	for _, f := range findings {
		if f.Severity == SeverityWarning {
			res.Warnings = append(res.Warnings, f)
		} else {
			res.Errors = append(res.Errors, f)
			res.Valid = false
		}
	}
	return res
}
