package validator

import (
	"fmt"
	"strings"

	"github.com/specloom/loom/internal/ir"
)

// checkUnusedFunctions warns (USE-001) about functions no subscription,
// saga, schedule, state machine, or deadline ever invokes. Names starting
// with an underscore are treated as internal and skipped.
func checkUnusedFunctions(ctx *docContext) []Error {
	doc := ctx.doc
	if len(doc.Functions) == 0 {
		return nil
	}

	used := map[string]bool{}
	for _, sub := range doc.Subscriptions {
		used[sub.Handler] = true
	}
	for _, saga := range doc.Sagas {
		for _, step := range saga.Steps {
			used[step.Forward] = true
			used[step.Compensate] = true
		}
	}
	for _, sched := range doc.Schedules {
		used[sched.Action] = true
	}
	for _, sm := range doc.StateMachines {
		for _, trans := range sm.Transitions {
			used[trans.TriggerFunction] = true
		}
	}
	for _, dl := range doc.Deadlines {
		used[dl.Action] = true
		for _, esc := range dl.Escalations {
			used[esc.Action] = true
		}
		if dl.OnExpire != nil {
			used[dl.OnExpire.Action] = true
		}
	}
	for _, gw := range doc.Gateways {
		for _, flow := range gw.OutgoingFlows {
			used[flow.Target] = true
		}
	}
	for _, sc := range doc.Scenarios {
		used[sc.When.Call] = true
	}

	var warnings []Error
	for _, name := range ir.SortedKeys(doc.Functions) {
		if used[name] || strings.HasPrefix(name, "_") {
			continue
		}
		warnings = append(warnings, Error{
			Path:     "functions." + name,
			Message:  fmt.Sprintf("Function '%s' is not used in any integration", name),
			Severity: SeverityWarning,
			Code:     CodeUnusedFunction,
			Category: CategoryUsage,
		})
	}
	return warnings
}
