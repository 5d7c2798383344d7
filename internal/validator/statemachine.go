package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/specloom/loom/internal/ir"
)

// checkStateMachines validates lifecycle machines: trigger existence
// (VAL-003), reachability (VAL-004, warning), dead ends (VAL-005, warning),
// declared from/to/initial states, and transition conflicts (TRANS-001).
func checkStateMachines(ctx *docContext) []Error {
	var errs []Error
	for _, name := range ir.SortedKeys(ctx.doc.StateMachines) {
		errs = append(errs, checkOneMachine(ctx, name, ctx.doc.StateMachines[name])...)
	}
	errs = append(errs, checkTransitionConflicts(ctx)...)
	return errs
}

func checkOneMachine(ctx *docContext, name string, sm ir.StateMachine) []Error {
	var errs []Error
	base := "stateMachines." + name

	// VAL-003: triggers must name a declared function or event.
	for i, trans := range sm.Transitions {
		trigger := trans.TriggerFunction
		if trigger != "" && !ctx.hasFunction(trigger) && !ctx.hasEvent(trigger) {
			errs = append(errs, Error{
				Path:     fmt.Sprintf("%s.transitions[%d]", base, i),
				Message:  fmt.Sprintf("Trigger '%s' not found in functions or events", trigger),
				Severity: SeverityError,
				Code:     CodeTransitionTrigger,
				Category: CategoryState,
				Actual:   trigger,
			})
		}
	}

	// VAL-004: fixpoint reachability from the initial state.
	reachable := map[string]bool{}
	if sm.Initial != "" {
		reachable[sm.Initial] = true
		for changed := true; changed; {
			changed = false
			for _, trans := range sm.Transitions {
				for _, from := range trans.From {
					if reachable[from] && !reachable[trans.To] {
						reachable[trans.To] = true
						changed = true
					}
				}
			}
		}
	}
	var unreachable []string
	for _, state := range ir.SortedKeys(sm.States) {
		if !reachable[state] {
			unreachable = append(unreachable, state)
		}
	}
	if len(unreachable) > 0 {
		errs = append(errs, Error{
			Path:     base,
			Message:  "Unreachable states: " + strings.Join(unreachable, ", "),
			Severity: SeverityWarning,
			Code:     CodeStateUnreachable,
			Category: CategoryState,
		})
	}

	// VAL-005: non-final states with no outgoing transition.
	hasExit := map[string]bool{}
	for _, trans := range sm.Transitions {
		for _, from := range trans.From {
			hasExit[from] = true
		}
	}
	var deadEnds []string
	for _, state := range ir.SortedKeys(sm.States) {
		if !hasExit[state] && !sm.States[state].Final {
			deadEnds = append(deadEnds, state)
		}
	}
	if len(deadEnds) > 0 {
		errs = append(errs, Error{
			Path:     base,
			Message:  "Dead-end states (not final, no outgoing transitions): " + strings.Join(deadEnds, ", "),
			Severity: SeverityWarning,
			Code:     CodeStateDeadEnd,
			Category: CategoryState,
		})
	}

	// Initial and transition endpoints must be declared states.
	if sm.Initial != "" {
		if _, ok := sm.States[sm.Initial]; !ok {
			errs = append(errs, Error{
				Path:     base,
				Message:  fmt.Sprintf("Initial state '%s' not defined in states", sm.Initial),
				Severity: SeverityError,
				Category: CategoryState,
				Actual:   sm.Initial,
			})
		}
	}
	for i, trans := range sm.Transitions {
		for _, from := range trans.From {
			if _, ok := sm.States[from]; from != "" && !ok {
				errs = append(errs, Error{
					Path:     fmt.Sprintf("%s.transitions[%d]", base, i),
					Message:  fmt.Sprintf("Transition 'from' state '%s' not defined", from),
					Severity: SeverityError,
					Category: CategoryState,
					Actual:   from,
				})
			}
		}
		if _, ok := sm.States[trans.To]; trans.To != "" && !ok {
			errs = append(errs, Error{
				Path:     fmt.Sprintf("%s.transitions[%d]", base, i),
				Message:  fmt.Sprintf("Transition 'to' state '%s' not defined", trans.To),
				Severity: SeverityError,
				Category: CategoryState,
				Actual:   trans.To,
			})
		}
	}

	return errs
}

// checkTransitionConflicts groups transitions by (from, trigger) and
// reports TRANS-001 when a group has more than one member and at least one
// carries no guard. Guards are assumed mutually exclusive, not proven:
// static overlap analysis on arbitrary expressions is out of reach, so a
// fully-guarded group passes.
func checkTransitionConflicts(ctx *docContext) []Error {
	var errs []Error

	for _, smName := range ir.SortedKeys(ctx.doc.StateMachines) {
		sm := ctx.doc.StateMachines[smName]

		type member struct {
			index   int
			guarded bool
		}
		groups := map[string][]member{}
		for i, trans := range sm.Transitions {
			trigger := trans.TriggerFunction
			if trigger == "" {
				trigger = trans.Trigger
			}
			if trigger == "" {
				continue
			}
			for _, from := range trans.From {
				key := from + "\x00" + trigger
				groups[key] = append(groups[key], member{index: i, guarded: trans.Guard != nil})
			}
		}

		keys := make([]string, 0, len(groups))
		for k := range groups {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, key := range keys {
			group := groups[key]
			if len(group) <= 1 {
				continue
			}
			hasUnguarded := false
			guarded := 0
			for _, m := range group {
				if m.guarded {
					guarded++
				} else {
					hasUnguarded = true
				}
			}
			if hasUnguarded {
				parts := strings.SplitN(key, "\x00", 2)
				errs = append(errs, Error{
					Path: fmt.Sprintf("stateMachines.%s.transitions", smName),
					Message: fmt.Sprintf("Potential transition conflict: multiple transitions from '%s' on trigger '%s' with at least one unguarded transition",
						parts[0], parts[1]),
					Severity: SeverityError,
					Code:     CodeTransitionAmbiguous,
					Category: CategoryState,
					Expected: "mutually exclusive guards or single transition",
					Actual:   fmt.Sprintf("%d transitions, %d guarded", len(group), guarded),
				})
			}
		}
	}

	return errs
}
