package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/specloom/loom/internal/ir"
)

// Workflow primitive checks: sagas, schedules, gateways, and deadlines.

var (
	// ISO 8601 durations (P1D, PT2H) plus the shortcut form (24h, 7d).
	isoDurationRe      = regexp.MustCompile(`(?i)^P(\d+Y)?(\d+M)?(\d+D)?(T(\d+H)?(\d+M)?(\d+S)?)?$`)
	shortcutDurationRe = regexp.MustCompile(`(?i)^\d+[hdwms]$`)

	cronFieldRe = regexp.MustCompile(`^(\*|[0-9,\-\/\*]+)$`)
	timezoneRe  = regexp.MustCompile(`^[A-Za-z]+(/[A-Za-z_]+)?$`)
)

var (
	sagaFailurePolicies    = []string{"compensate_all", "compensate_completed", "fail_fast", "continue"}
	scheduleOverlapValues  = []string{"skip", "buffer_one", "cancel_other", "allow_all"}
	gatewayTypes           = []string{"exclusive", "parallel", "inclusive", "event_based"}
)

// checkSagas validates multi-step workflows: unique step names, resolvable
// forward and compensate functions, dependencies on earlier steps, and a
// legal failure policy.
func checkSagas(ctx *docContext) []Error {
	var errs []Error

	for _, sagaName := range ir.SortedKeys(ctx.doc.Sagas) {
		saga := ctx.doc.Sagas[sagaName]
		base := "sagas." + sagaName

		seen := map[string]bool{}
		for i, step := range saga.Steps {
			stepName := step.Name
			if stepName == "" {
				stepName = fmt.Sprintf("step_%d", i)
			}
			if seen[stepName] {
				errs = append(errs, Error{
					Path:     fmt.Sprintf("%s.steps[%d]", base, i),
					Message:  fmt.Sprintf("Duplicate step name '%s'", stepName),
					Severity: SeverityError,
					Code:     CodeSagaDuplicateStep,
					Category: CategoryWorkflow,
					Actual:   stepName,
				})
			}
			seen[stepName] = true

			if step.Forward != "" && !ctx.hasFunction(step.Forward) {
				errs = append(errs, Error{
					Path:     fmt.Sprintf("%s.steps[%d].forward", base, i),
					Message:  fmt.Sprintf("Forward function '%s' not found", step.Forward),
					Severity: SeverityError,
					Code:     CodeSagaBadRef,
					Category: CategoryWorkflow,
					Actual:   step.Forward,
				})
			}
			if step.Compensate != "" && !ctx.hasFunction(step.Compensate) {
				errs = append(errs, Error{
					Path:     fmt.Sprintf("%s.steps[%d].compensate", base, i),
					Message:  fmt.Sprintf("Compensate function '%s' not found", step.Compensate),
					Severity: SeverityError,
					Code:     CodeSagaBadRef,
					Category: CategoryWorkflow,
					Actual:   step.Compensate,
				})
			}

			// Dependencies must name a step declared before this one.
			for _, dep := range step.DependsOn {
				found := false
				for j := 0; j < i; j++ {
					if saga.Steps[j].Name == dep {
						found = true
						break
					}
				}
				if !found {
					errs = append(errs, Error{
						Path:     fmt.Sprintf("%s.steps[%d].dependsOn", base, i),
						Message:  fmt.Sprintf("Step dependency '%s' not found or defined after current step", dep),
						Severity: SeverityError,
						Code:     CodeSagaBadPolicy,
						Category: CategoryWorkflow,
						Actual:   dep,
					})
				}
			}
		}

		if saga.OnFailure != "" && !contains(sagaFailurePolicies, saga.OnFailure) {
			errs = append(errs, Error{
				Path:         base + ".onFailure",
				Message:      fmt.Sprintf("Invalid failure policy '%s'. Valid: %s", saga.OnFailure, strings.Join(sagaFailurePolicies, ", ")),
				Severity:     SeverityError,
				Code:         CodeSagaBadPolicy,
				Category:     CategoryWorkflow,
				Actual:       saga.OnFailure,
				ValidOptions: sagaFailurePolicies,
			})
		}
	}

	return errs
}

// checkSchedules validates cron syntax, timezone format, action existence,
// and overlap policy.
func checkSchedules(ctx *docContext) []Error {
	var errs []Error

	for _, name := range ir.SortedKeys(ctx.doc.Schedules) {
		sched := ctx.doc.Schedules[name]
		base := "schedules." + name

		if sched.Cron != "" {
			fields := strings.Fields(sched.Cron)
			if len(fields) < 5 || len(fields) > 6 {
				errs = append(errs, Error{
					Path:     base + ".cron",
					Message:  fmt.Sprintf("Invalid cron expression '%s'. Expected 5 or 6 fields (minute hour day month weekday [year])", sched.Cron),
					Severity: SeverityError,
					Code:     CodeScheduleBadCron,
					Category: CategoryWorkflow,
					Actual:   sched.Cron,
				})
			} else {
				for i, field := range fields {
					if !cronFieldRe.MatchString(field) {
						errs = append(errs, Error{
							Path:     base + ".cron",
							Message:  fmt.Sprintf("Invalid cron field '%s' at position %d", field, i),
							Severity: SeverityError,
							Code:     CodeScheduleBadCron,
							Category: CategoryWorkflow,
							Actual:   field,
						})
						break
					}
				}
			}
		}

		if sched.Timezone != "" && !timezoneRe.MatchString(sched.Timezone) {
			errs = append(errs, Error{
				Path:     base + ".timezone",
				Message:  fmt.Sprintf("Invalid timezone format '%s'. Use IANA format like 'Asia/Tokyo'", sched.Timezone),
				Severity: SeverityError,
				Code:     CodeScheduleBadCron,
				Category: CategoryWorkflow,
				Actual:   sched.Timezone,
			})
		}

		if sched.Action != "" && !ctx.hasFunction(sched.Action) {
			errs = append(errs, Error{
				Path:     base + ".action",
				Message:  fmt.Sprintf("Schedule references unknown function '%s'", sched.Action),
				Severity: SeverityError,
				Code:     CodeScheduleBadAction,
				Category: CategoryWorkflow,
				Actual:   sched.Action,
			})
		}

		if sched.OverlapPolicy != "" && !contains(scheduleOverlapValues, sched.OverlapPolicy) {
			errs = append(errs, Error{
				Path:         base + ".overlapPolicy",
				Message:      fmt.Sprintf("Invalid overlap policy '%s'. Valid: %s", sched.OverlapPolicy, strings.Join(scheduleOverlapValues, ", ")),
				Severity:     SeverityError,
				Code:         CodeScheduleBadOverlap,
				Category:     CategoryWorkflow,
				Actual:       sched.OverlapPolicy,
				ValidOptions: scheduleOverlapValues,
			})
		}
	}

	return errs
}

// checkGateways validates branch points: legal type, resolvable flow
// targets, no conditions on parallel flows, and declared events on
// event-based flows.
func checkGateways(ctx *docContext) []Error {
	doc := ctx.doc
	var errs []Error

	flowTargetExists := func(name string) bool {
		if ctx.hasFunction(name) || ctx.hasEvent(name) {
			return true
		}
		_, ok := doc.Gateways[name]
		return ok
	}

	for _, name := range ir.SortedKeys(doc.Gateways) {
		gw := doc.Gateways[name]
		base := "gateways." + name

		if gw.Type != "" && !contains(gatewayTypes, gw.Type) {
			errs = append(errs, Error{
				Path:         base + ".type",
				Message:      fmt.Sprintf("Invalid gateway type '%s'. Valid types: %s", gw.Type, strings.Join(gatewayTypes, ", ")),
				Severity:     SeverityError,
				Code:         CodeGatewayBadType,
				Category:     CategoryWorkflow,
				Actual:       gw.Type,
				ValidOptions: gatewayTypes,
			})
		}

		for i, flow := range gw.OutgoingFlows {
			if flow.Target != "" && !flowTargetExists(flow.Target) {
				errs = append(errs, Error{
					Path:     fmt.Sprintf("%s.outgoingFlows[%d].target", base, i),
					Message:  fmt.Sprintf("Outgoing flow target '%s' not found in functions, events, or gateways", flow.Target),
					Severity: SeverityError,
					Code:     CodeGatewayBadTarget,
					Category: CategoryWorkflow,
					Actual:   flow.Target,
				})
			}

			if gw.Type == "parallel" && flow.Condition != nil {
				errs = append(errs, Error{
					Path:     fmt.Sprintf("%s.outgoingFlows[%d]", base, i),
					Message:  "Parallel gateway flows should not have conditions - all paths execute",
					Severity: SeverityError,
					Code:     CodeGatewayBadFlow,
					Category: CategoryWorkflow,
				})
			}

			if gw.Type == "event_based" && flow.Event != "" && !ctx.hasEvent(flow.Event) {
				errs = append(errs, Error{
					Path:     fmt.Sprintf("%s.outgoingFlows[%d].event", base, i),
					Message:  fmt.Sprintf("Event-based gateway references unknown event '%s'", flow.Event),
					Severity: SeverityError,
					Code:     CodeGatewayBadTarget,
					Category: CategoryWorkflow,
					Actual:   flow.Event,
				})
			}
		}

		for i, source := range gw.IncomingFlows {
			if source != "" && !flowTargetExists(source) {
				errs = append(errs, Error{
					Path:     fmt.Sprintf("%s.incomingFlows[%d]", base, i),
					Message:  fmt.Sprintf("Incoming flow source '%s' not found in functions, events, or gateways", source),
					Severity: SeverityError,
					Code:     CodeGatewayBadTarget,
					Category: CategoryWorkflow,
					Actual:   source,
				})
			}
		}
	}

	return errs
}

// checkDeadlines validates SLA declarations: entity and start-condition
// field existence, action and escalation targets, and duration syntax.
func checkDeadlines(ctx *docContext) []Error {
	var errs []Error

	for _, name := range ir.SortedKeys(ctx.doc.Deadlines) {
		dl := ctx.doc.Deadlines[name]
		base := "deadlines." + name

		if dl.Entity != "" && !ctx.hasEntity(dl.Entity) {
			errs = append(errs, Error{
				Path:     base + ".entity",
				Message:  fmt.Sprintf("Deadline references unknown entity '%s'", dl.Entity),
				Severity: SeverityError,
				Code:     CodeDeadlineBadRef,
				Category: CategoryWorkflow,
				Actual:   dl.Entity,
			})
		}

		if dl.StartWhen != nil && dl.Entity != "" && ctx.hasEntity(dl.Entity) {
			if dl.StartWhen.Field != "" {
				if _, ok := ctx.entityField(dl.Entity, dl.StartWhen.Field); !ok {
					errs = append(errs, Error{
						Path:         base + ".startWhen.field",
						Message:      fmt.Sprintf("Start condition field '%s' not found in entity '%s'", dl.StartWhen.Field, dl.Entity),
						Severity:     SeverityError,
						Code:         CodeDeadlineBadRef,
						Category:     CategoryWorkflow,
						Actual:       dl.StartWhen.Field,
						ValidOptions: ctx.fieldNames(dl.Entity),
					})
				}
			}
		}

		if dl.Action != "" && !ctx.hasFunction(dl.Action) {
			errs = append(errs, Error{
				Path:     base + ".action",
				Message:  fmt.Sprintf("Deadline action references unknown function '%s'", dl.Action),
				Severity: SeverityError,
				Code:     CodeDeadlineBadRef,
				Category: CategoryWorkflow,
				Actual:   dl.Action,
			})
		}

		for i, esc := range dl.Escalations {
			if esc.Event != "" && !ctx.hasEvent(esc.Event) {
				errs = append(errs, Error{
					Path:     fmt.Sprintf("%s.escalations[%d].event", base, i),
					Message:  fmt.Sprintf("Escalation references unknown event '%s'", esc.Event),
					Severity: SeverityError,
					Code:     CodeDeadlineBadTrigger,
					Category: CategoryWorkflow,
					Actual:   esc.Event,
				})
			}
			if esc.Action != "" && !ctx.hasFunction(esc.Action) {
				errs = append(errs, Error{
					Path:     fmt.Sprintf("%s.escalations[%d].action", base, i),
					Message:  fmt.Sprintf("Escalation action references unknown function '%s'", esc.Action),
					Severity: SeverityError,
					Code:     CodeDeadlineBadTrigger,
					Category: CategoryWorkflow,
					Actual:   esc.Action,
				})
			}
		}

		if dl.OnExpire != nil {
			if dl.OnExpire.Action != "" && !ctx.hasFunction(dl.OnExpire.Action) {
				errs = append(errs, Error{
					Path:     base + ".onExpire.action",
					Message:  fmt.Sprintf("Expire action references unknown function '%s'", dl.OnExpire.Action),
					Severity: SeverityError,
					Code:     CodeDeadlineBadTrigger,
					Category: CategoryWorkflow,
					Actual:   dl.OnExpire.Action,
				})
			}
			if dl.OnExpire.Event != "" && !ctx.hasEvent(dl.OnExpire.Event) {
				errs = append(errs, Error{
					Path:     base + ".onExpire.event",
					Message:  fmt.Sprintf("Expire event references unknown event '%s'", dl.OnExpire.Event),
					Severity: SeverityError,
					Code:     CodeDeadlineBadTrigger,
					Category: CategoryWorkflow,
					Actual:   dl.OnExpire.Event,
				})
			}
		}

		if dl.Duration != "" && !isoDurationRe.MatchString(dl.Duration) && !shortcutDurationRe.MatchString(dl.Duration) {
			errs = append(errs, Error{
				Path:     base + ".duration",
				Message:  fmt.Sprintf("Invalid duration format '%s'. Use ISO 8601 (P1D, PT2H) or shortcut (24h, 7d)", dl.Duration),
				Severity: SeverityError,
				Code:     CodeDeadlineBadDuration,
				Category: CategoryWorkflow,
				Actual:   dl.Duration,
			})
		}
	}

	return errs
}
