package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/specloom/loom/internal/ir"
)

// exprSchema describes one expression variant: which fields it requires,
// which it allows, and where child expressions live.
type exprSchema struct {
	required []string
	optional []string
	nested   []string // single child expression fields
	arrays   []string // expression array fields
	special  string   // "branches" or "orderBy"
}

// exprSchemas is the per-variant shape table the discriminator walker
// enforces. The "type" tag is the discriminator.
var exprSchemas = map[string]exprSchema{
	"literal": {required: []string{"type", "value"}},
	"ref":     {required: []string{"type", "path"}},
	"input":   {required: []string{"type", "name"}},
	"self":    {required: []string{"type", "field"}},
	"binary": {
		required: []string{"type", "op", "left", "right"},
		nested:   []string{"left", "right"},
	},
	"unary": {
		required: []string{"type", "op", "expr"},
		nested:   []string{"expr"},
	},
	"agg": {
		required: []string{"type", "op", "from"},
		optional: []string{"as", "expr", "where"},
		nested:   []string{"expr", "where"},
	},
	"call": {
		required: []string{"type", "name"},
		optional: []string{"args"},
		arrays:   []string{"args"},
	},
	"if": {
		required: []string{"type", "cond", "then", "else"},
		nested:   []string{"cond", "then", "else"},
	},
	"case": {
		required: []string{"type", "branches"},
		optional: []string{"else"},
		nested:   []string{"else"},
		special:  "branches",
	},
	"date": {
		required: []string{"type", "op"},
		optional: []string{"args", "unit"},
		arrays:   []string{"args"},
	},
	"list": {
		required: []string{"type", "op", "list"},
		optional: []string{"args"},
		nested:   []string{"list"},
		arrays:   []string{"args"},
	},
	"temporal": {
		required: []string{"type", "op"},
		optional: []string{"entity", "field", "time", "condition"},
		nested:   []string{"time", "condition"},
	},
	"window": {
		required: []string{"type", "op", "from"},
		optional: []string{"expr", "partitionBy", "orderBy", "frame", "args"},
		nested:   []string{"expr"},
		arrays:   []string{"partitionBy", "args"},
		special:  "orderBy",
	},
	"tree": {
		required: []string{"type", "op", "entity"},
		optional: []string{"node", "parentField", "maxDepth", "includeNode"},
		nested:   []string{"node"},
	},
	"transitive": {
		required: []string{"type", "op", "relation"},
		optional: []string{"from", "to", "maxHops"},
		nested:   []string{"from", "to"},
	},
	"state": {
		required: []string{"type", "op", "machine"},
		optional: []string{"entity", "state", "event"},
		nested:   []string{"entity"},
	},
	"principal": {
		required: []string{"type", "op"},
		optional: []string{"role", "permission", "resource", "attribute", "group"},
		nested:   []string{"resource"},
	},
}

// exprOperators lists the legal "op" values per variant.
var exprOperators = map[string][]string{
	"binary":     {"add", "sub", "mul", "div", "mod", "eq", "ne", "lt", "le", "gt", "ge", "and", "or", "in", "not_in", "like", "not_like"},
	"unary":      {"not", "neg", "is_null", "is_not_null"},
	"agg":        {"sum", "count", "avg", "min", "max", "exists", "not_exists", "all", "any"},
	"date":       {"diff", "add", "sub", "now", "today", "overlaps", "truncate"},
	"list":       {"contains", "length", "first", "last", "at", "slice"},
	"temporal":   {"at", "since", "until", "before", "after", "always", "eventually", "historically", "once", "previous", "next"},
	"window":     {"row_number", "rank", "dense_rank", "ntile", "lag", "lead", "first_value", "last_value", "nth_value", "sum", "avg", "min", "max", "count"},
	"tree":       {"ancestors", "descendants", "parent", "children", "siblings", "root", "leaves", "depth", "path", "subtree"},
	"transitive": {"closure", "reflexive_closure", "reachable", "connected", "path_exists"},
	"state":      {"current", "is_in", "can_transition", "history", "time_in_state", "previous_state", "available_transitions"},
	"principal":  {"current_user", "current_tenant", "has_role", "has_permission", "in_group", "is_owner", "attribute"},
}

// exprKindNames lists the known variant tags, sorted, for error messages.
func exprKindNames() []string {
	names := make([]string, 0, len(exprSchemas))
	for k := range exprSchemas {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// validateExprNode enforces the discriminator contract on one node and its
// children: discriminator present, variant known, required fields present,
// no unexpected fields, operator legal, recursion bounded.
func validateExprNode(node any, path string, depth int) []Error {
	if depth > MaxDepth {
		return []Error{{
			Path:     path,
			Message:  fmt.Sprintf("Expression nesting exceeds maximum depth (%d)", MaxDepth),
			Severity: SeverityError,
			Code:     CodeDepthExceeded,
			Category: CategoryConstraint,
			Expected: fmt.Sprintf("depth <= %d", MaxDepth),
			Actual:   depth,
		}}
	}

	expr, ok := ir.AsExpr(node)
	if !ok {
		// Primitive values are not expressions.
		return nil
	}

	var errs []Error

	if !expr.Has("type") {
		return []Error{{
			Path:     path,
			Message:  "Expression missing required 'type' discriminator field",
			Severity: SeverityError,
			Code:     CodeExprInvalid,
			Category: CategoryExpression,
		}}
	}

	kind := expr.Kind()
	schema, known := exprSchemas[kind]
	if !known {
		return []Error{{
			Path:     path,
			Message:  fmt.Sprintf("Unknown expression type '%s'. Valid types: %s", kind, strings.Join(exprKindNames(), ", ")),
			Severity: SeverityError,
			Code:     CodeExprInvalid,
			Category: CategoryExpression,
			Actual:   kind,
		}}
	}

	for _, req := range schema.required {
		if !expr.Has(req) {
			errs = append(errs, Error{
				Path:     path,
				Message:  fmt.Sprintf("Expression type '%s' missing required field '%s'", kind, req),
				Severity: SeverityError,
				Code:     CodeExprInvalid,
				Category: CategoryExpression,
			})
		}
	}

	allowed := map[string]bool{}
	for _, f := range schema.required {
		allowed[f] = true
	}
	for _, f := range schema.optional {
		allowed[f] = true
	}
	for _, f := range ir.SortedKeys(expr) {
		if !allowed[f] {
			errs = append(errs, Error{
				Path:     path,
				Message:  fmt.Sprintf("Expression type '%s' has unexpected field '%s'", kind, f),
				Severity: SeverityError,
				Code:     CodeExprInvalid,
				Category: CategoryExpression,
			})
		}
	}

	if ops, hasOps := exprOperators[kind]; hasOps && expr.Has("op") {
		op := expr.Str("op")
		if !contains(ops, op) {
			errs = append(errs, Error{
				Path:         path + ".op",
				Message:      fmt.Sprintf("Invalid operator '%s' for expression type '%s'. Valid operators: %s", op, kind, strings.Join(ops, ", ")),
				Severity:     SeverityError,
				Code:         CodeExprInvalid,
				Category:     CategoryExpression,
				Actual:       op,
				ValidOptions: ops,
			})
		}
	}

	for _, field := range schema.nested {
		if v, present := expr[field]; present && v != nil {
			errs = append(errs, validateExprNode(v, path+"."+field, depth+1)...)
		}
	}

	for _, field := range schema.arrays {
		items, _ := expr[field].([]any)
		for i, item := range items {
			errs = append(errs, validateExprNode(item, fmt.Sprintf("%s.%s[%d]", path, field, i), depth+1)...)
		}
	}

	switch schema.special {
	case "branches":
		branches, _ := expr["branches"].([]any)
		for i, raw := range branches {
			branch, ok := ir.AsExpr(raw)
			if !ok {
				continue
			}
			if when, present := branch["when"]; present {
				errs = append(errs, validateExprNode(when, fmt.Sprintf("%s.branches[%d].when", path, i), depth+1)...)
			}
			if then, present := branch["then"]; present {
				errs = append(errs, validateExprNode(then, fmt.Sprintf("%s.branches[%d].then", path, i), depth+1)...)
			}
		}
	case "orderBy":
		orders, _ := expr["orderBy"].([]any)
		for i, raw := range orders {
			order, ok := ir.AsExpr(raw)
			if !ok {
				continue
			}
			if sub, present := order["expr"]; present {
				errs = append(errs, validateExprNode(sub, fmt.Sprintf("%s.orderBy[%d].expr", path, i), depth+1)...)
			}
		}
	}

	return errs
}

// exprSite is one location in the document holding an expression.
type exprSite struct {
	path string
	expr ir.Expr
}

// exprSites enumerates every embedded expression in deterministic order:
// derived formulas, function preconditions, error conditions, post-action
// values, state machine guards, invariants, constraints, gateway flow
// conditions.
func exprSites(doc *ir.Document) []exprSite {
	var sites []exprSite
	add := func(path string, e ir.Expr) {
		if e != nil {
			sites = append(sites, exprSite{path: path, expr: e})
		}
	}

	for _, name := range ir.SortedKeys(doc.Derived) {
		add(fmt.Sprintf("derived.%s.formula", name), doc.Derived[name].Formula)
	}
	for _, name := range ir.SortedKeys(doc.Functions) {
		fn := doc.Functions[name]
		for i, pre := range fn.Pre {
			add(fmt.Sprintf("functions.%s.pre[%d].expr", name, i), pre.Expr)
		}
		for i, ec := range fn.Errors {
			add(fmt.Sprintf("functions.%s.error[%d].when", name, i), ec.When)
		}
		for i, post := range fn.Post {
			add(fmt.Sprintf("functions.%s.post[%d].condition", name, i), post.Condition)
			for _, field := range ir.SortedKeys(post.Action.With) {
				add(fmt.Sprintf("functions.%s.post[%d].action.with.%s", name, i, field), post.Action.With[field])
			}
			for _, field := range ir.SortedKeys(post.Action.Set) {
				add(fmt.Sprintf("functions.%s.post[%d].action.set.%s", name, i, field), post.Action.Set[field])
			}
		}
	}
	for _, name := range ir.SortedKeys(doc.StateMachines) {
		for i, trans := range doc.StateMachines[name].Transitions {
			add(fmt.Sprintf("stateMachines.%s.transitions[%d].guard", name, i), trans.Guard)
		}
	}
	for i, inv := range doc.Invariants {
		add(fmt.Sprintf("invariants[%d].assert", i), inv.Assert)
	}
	for _, name := range ir.SortedKeys(doc.Constraints) {
		add(fmt.Sprintf("constraints.%s.expr", name), doc.Constraints[name].Expr)
	}
	for _, name := range ir.SortedKeys(doc.Gateways) {
		for i, flow := range doc.Gateways[name].OutgoingFlows {
			add(fmt.Sprintf("gateways.%s.outgoingFlows[%d].condition", name, i), flow.Condition)
		}
	}

	return sites
}

// checkExpressions runs the discriminator walker over every expression
// embedded in the document.
func checkExpressions(ctx *docContext) []Error {
	var errs []Error
	for _, site := range exprSites(ctx.doc) {
		errs = append(errs, validateExprNode(map[string]any(site.expr), site.path, 0)...)
	}
	return errs
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
