package validator

import (
	"strings"

	"github.com/specloom/loom/internal/ir"
)

// checkDerivedCycles finds circular dependencies among derived formulas
// (CYC-001, warning). Only the first cycle discovered is reported; one
// broken strongly-connected cluster tends to produce many overlapping
// cycles and a single actionable finding beats a flood.
func checkDerivedCycles(ctx *docContext) []Error {
	derived := ctx.doc.Derived
	if len(derived) == 0 {
		return nil
	}

	// name -> set of derived formulas its formula calls.
	deps := map[string][]string{}
	for _, name := range ir.SortedKeys(derived) {
		seen := map[string]bool{}
		collectCalls(derived[name].Formula, derived, seen)
		deps[name] = ir.SortedKeys(seen)
	}

	var detect func(node string, visited, stack map[string]bool) []string
	detect = func(node string, visited, stack map[string]bool) []string {
		visited[node] = true
		stack[node] = true
		for _, dep := range deps[node] {
			if !visited[dep] {
				if cycle := detect(dep, visited, stack); cycle != nil {
					return append([]string{node}, cycle...)
				}
			} else if stack[dep] {
				return []string{node, dep}
			}
		}
		delete(stack, node)
		return nil
	}

	visited := map[string]bool{}
	for _, name := range ir.SortedKeys(derived) {
		if visited[name] {
			continue
		}
		if cycle := detect(name, visited, map[string]bool{}); cycle != nil {
			return []Error{{
				Path:     "derived",
				Message:  "Circular dependency detected: " + strings.Join(cycle, " -> "),
				Severity: SeverityWarning,
				Code:     CodeDerivedCycle,
				Category: CategoryExpression,
			}}
		}
	}
	return nil
}

// collectCalls walks an expression tree recording call targets that name
// derived formulas.
func collectCalls(e ir.Expr, derived map[string]ir.Derived, out map[string]bool) {
	if e == nil {
		return
	}
	if e.Kind() == "call" {
		if name := e.Str("name"); name != "" {
			if _, ok := derived[name]; ok {
				out[name] = true
			}
		}
	}
	for _, v := range e {
		switch t := v.(type) {
		case map[string]any:
			collectCalls(ir.Expr(t), derived, out)
		case []any:
			for _, item := range t {
				if child, ok := ir.AsExpr(item); ok {
					collectCalls(child, derived, out)
				}
			}
		}
	}
}
