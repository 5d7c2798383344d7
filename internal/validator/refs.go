package validator

import (
	"fmt"
	"strings"

	"github.com/specloom/loom/internal/ir"
)

// Reference checks resolve every cross-section name: entity refs in field
// types, function targets, event subscriptions, role inheritance, relation
// endpoints, and policy subjects.

func refError(path, code, message string, options []string, actual string) Error {
	return Error{
		Path:         path,
		Message:      message,
		Severity:     SeverityError,
		Code:         code,
		Category:     CategoryReference,
		Expected:     capOptions(options),
		Actual:       actual,
		ValidOptions: options,
	}
}

// capOptions limits the expected-value hint to a readable size.
func capOptions(options []string) []string {
	if len(options) > 10 {
		return options[:10]
	}
	return options
}

func checkEntityRef(path, name string, ctx *docContext, context string) (Error, bool) {
	if name == "" || ctx.hasEntity(name) {
		return Error{}, false
	}
	msg := fmt.Sprintf("Referenced entity '%s' does not exist", name)
	if context != "" {
		msg = context + ": " + msg
	}
	return refError(path, CodeRefUnknownEntity, msg, ir.SortedKeys(ctx.doc.Entities), name), true
}

func checkFunctionRef(path, name string, ctx *docContext, context string) (Error, bool) {
	if name == "" || ctx.hasFunction(name) {
		return Error{}, false
	}
	msg := fmt.Sprintf("Referenced function '%s' does not exist", name)
	if context != "" {
		msg = context + ": " + msg
	}
	return refError(path, CodeRefUnknownField, msg, ir.SortedKeys(ctx.doc.Functions), name), true
}

func checkEventRef(path, name string, ctx *docContext, context string) (Error, bool) {
	if name == "" || ctx.hasEvent(name) {
		return Error{}, false
	}
	msg := fmt.Sprintf("Referenced event '%s' does not exist", name)
	if context != "" {
		msg = context + ": " + msg
	}
	return refError(path, CodeRefUnknownEvent, msg, ir.SortedKeys(ctx.doc.Events), name), true
}

func checkRoleRef(path, name string, ctx *docContext, context string) (Error, bool) {
	if name == "" {
		return Error{}, false
	}
	if _, ok := ctx.doc.Roles[name]; ok {
		return Error{}, false
	}
	msg := fmt.Sprintf("Referenced role '%s' does not exist", name)
	if context != "" {
		msg = context + ": " + msg
	}
	return refError(path, CodeRefUnknownRole, msg, ir.SortedKeys(ctx.doc.Roles), name), true
}

// checkReferences validates every structural cross-reference in the
// document. Findings never short-circuit: all sections are checked even
// when earlier ones fail.
func checkReferences(ctx *docContext) []Error {
	doc := ctx.doc
	var errs []Error
	add := func(e Error, bad bool) {
		if bad {
			errs = append(errs, e)
		}
	}

	// Entity parents and ref-typed fields.
	for _, entName := range ir.SortedKeys(doc.Entities) {
		ent := doc.Entities[entName]
		add(checkEntityRef(fmt.Sprintf("entities.%s.parent", entName), ent.Parent, ctx, "Entity parent"))
		for _, fieldName := range ir.SortedKeys(ent.Fields) {
			errs = append(errs, checkFieldTypeRefs(
				fmt.Sprintf("entities.%s.fields.%s", entName, fieldName),
				ent.Fields[fieldName].Type, ctx)...)
		}
	}

	// Function entity links and post-action targets.
	for _, fnName := range ir.SortedKeys(doc.Functions) {
		fn := doc.Functions[fnName]
		add(checkEntityRef(fmt.Sprintf("functions.%s.entity", fnName), fn.Entity, ctx, "Function"))
		for i, pre := range fn.Pre {
			add(checkEntityRef(fmt.Sprintf("functions.%s.pre[%d]", fnName, i), pre.Entity, ctx, ""))
		}
		for i, post := range fn.Post {
			add(checkEntityRef(fmt.Sprintf("functions.%s.post[%d]", fnName, i), post.Action.TargetEntity(), ctx, ""))
		}
	}

	// Derived formulas attach to entities.
	for _, name := range ir.SortedKeys(doc.Derived) {
		add(checkEntityRef(fmt.Sprintf("derived.%s", name), doc.Derived[name].Entity, ctx, ""))
	}

	// State machines track entity fields.
	for _, name := range ir.SortedKeys(doc.StateMachines) {
		sm := doc.StateMachines[name]
		path := fmt.Sprintf("stateMachines.%s", name)
		if e, bad := checkEntityRef(path, sm.Entity, ctx, "State machine"); bad {
			errs = append(errs, e)
		} else if sm.Entity != "" && sm.Field != "" {
			if _, ok := ctx.entityField(sm.Entity, sm.Field); !ok {
				errs = append(errs, refError(path+".field", CodeRefUnknownField,
					fmt.Sprintf("State machine field '%s' not found in entity '%s'", sm.Field, sm.Entity),
					ctx.fieldNames(sm.Entity), sm.Field))
			}
		}
	}

	// Event payload refs.
	for _, evName := range ir.SortedKeys(doc.Events) {
		ev := doc.Events[evName]
		for _, fieldName := range ir.SortedKeys(ev.Payload) {
			errs = append(errs, checkFieldTypeRefs(
				fmt.Sprintf("events.%s.payload.%s", evName, fieldName),
				ev.Payload[fieldName].Type, ctx)...)
		}
	}

	// Subscriptions route declared events to declared functions.
	for _, name := range ir.SortedKeys(doc.Subscriptions) {
		sub := doc.Subscriptions[name]
		path := fmt.Sprintf("subscriptions.%s", name)
		add(checkEventRef(path, sub.Event, ctx, "Subscription"))
		add(checkFunctionRef(path, sub.Handler, ctx, "Subscription handler"))
	}

	// Role inheritance.
	for _, roleName := range ir.SortedKeys(doc.Roles) {
		for _, inherited := range doc.Roles[roleName].Inherits {
			add(checkRoleRef(fmt.Sprintf("roles.%s", roleName), inherited, ctx, "Role inherits from unknown"))
		}
	}

	// Relation endpoints.
	for _, name := range ir.SortedKeys(doc.Relations) {
		rel := doc.Relations[name]
		path := fmt.Sprintf("relations.%s", name)
		add(checkEntityRef(path, rel.From, ctx, "Relation 'from'"))
		add(checkEntityRef(path, rel.To, ctx, "Relation 'to'"))
	}

	// Constraint, policy, and deadline subjects.
	for _, name := range ir.SortedKeys(doc.Constraints) {
		add(checkEntityRef(fmt.Sprintf("constraints.%s", name), doc.Constraints[name].Entity, ctx, "Constraint"))
	}
	for _, name := range ir.SortedKeys(doc.DataPolicies) {
		add(checkEntityRef(fmt.Sprintf("dataPolicies.%s", name), doc.DataPolicies[name].Entity, ctx, "Data policy"))
	}
	for _, name := range ir.SortedKeys(doc.AuditPolicies) {
		add(checkEntityRef(fmt.Sprintf("auditPolicies.%s", name), doc.AuditPolicies[name].Entity, ctx, "Audit policy"))
	}
	for i, inv := range doc.Invariants {
		add(checkEntityRef(fmt.Sprintf("invariants[%d].entity", i), inv.Entity, ctx, "Invariant"))
	}

	return errs
}

// checkFieldTypeRefs validates ref targets and primitive type names inside
// a (possibly nested list) field type.
func checkFieldTypeRefs(path string, t ir.FieldType, ctx *docContext) []Error {
	var errs []Error
	for cur := &t; cur != nil; cur = cur.List {
		if cur.IsRef() && !ctx.hasEntity(cur.Ref) {
			errs = append(errs, refError(path, CodeRefUnknownEntity,
				fmt.Sprintf("Referenced entity '%s' does not exist", cur.Ref),
				ir.SortedKeys(ctx.doc.Entities), cur.Ref))
		}
		if cur.Name != "" && !ir.ScalarTypes[cur.Name] {
			scalars := ir.SortedKeys(ir.ScalarTypes)
			errs = append(errs, Error{
				Path:         path,
				Message:      fmt.Sprintf("Unknown field type '%s'. Valid: %s", cur.Name, strings.Join(scalars, ", ")),
				Severity:     SeverityError,
				Code:         CodeValueNotInSet,
				Category:     CategoryType,
				Actual:       cur.Name,
				ValidOptions: scalars,
			})
		}
	}
	return errs
}

// checkRelations enforces relation shape: valid type, cascade options,
// foreign-key presence, and inverse symmetry.
func checkRelations(ctx *docContext) []Error {
	doc := ctx.doc
	var errs []Error

	validTypes := []string{"one_to_one", "one_to_many", "many_to_one", "many_to_many"}
	validCascades := []string{"cascade", "restrict", "set_null", "no_action"}

	for _, name := range ir.SortedKeys(doc.Relations) {
		rel := doc.Relations[name]
		path := fmt.Sprintf("relations.%s", name)

		// Foreign-key presence on whichever side holds it.
		if rel.ForeignKey != "" && ctx.hasEntity(rel.From) && ctx.hasEntity(rel.To) {
			switch rel.Type {
			case "one_to_many":
				if !fkResolves(ctx, rel.To, rel.ForeignKey, rel.From) {
					errs = append(errs, relationError(path, fmt.Sprintf(
						"Foreign key '%s' or reference to '%s' not found in entity '%s'",
						rel.ForeignKey, rel.From, rel.To)))
				}
			case "many_to_one":
				if !fkResolves(ctx, rel.From, rel.ForeignKey, rel.To) {
					errs = append(errs, relationError(path, fmt.Sprintf(
						"Foreign key '%s' or reference to '%s' not found in entity '%s'",
						rel.ForeignKey, rel.To, rel.From)))
				}
			}
		}

		// Inverse symmetry: from/to swapped, inverse-of-inverse points back.
		if rel.Inverse != "" {
			if invRel, ok := doc.Relations[rel.Inverse]; ok {
				if invRel.From != rel.To || invRel.To != rel.From {
					errs = append(errs, relationError(path, fmt.Sprintf(
						"Bidirectional relation mismatch: '%s' (%s->%s) and inverse '%s' (%s->%s) are not symmetric",
						name, rel.From, rel.To, rel.Inverse, invRel.From, invRel.To)))
				}
				if invRel.Inverse != "" && invRel.Inverse != name {
					errs = append(errs, relationError(path, fmt.Sprintf(
						"Inverse chain broken: '%s'.inverse = '%s' but '%s'.inverse = '%s' (expected '%s')",
						name, rel.Inverse, rel.Inverse, invRel.Inverse, name)))
				}
			}
		}

		if rel.Type != "" && !contains(validTypes, rel.Type) {
			errs = append(errs, Error{
				Path:         path + ".type",
				Message:      fmt.Sprintf("Invalid relation type '%s'. Valid types: one_to_one, one_to_many, many_to_one, many_to_many", rel.Type),
				Severity:     SeverityError,
				Code:         CodeRelationInvalid,
				Category:     CategoryReference,
				Actual:       rel.Type,
				ValidOptions: validTypes,
			})
		}

		for _, op := range []string{"delete", "update"} {
			if cascade, ok := rel.Cascade[op]; ok && !contains(validCascades, cascade) {
				errs = append(errs, Error{
					Path:         fmt.Sprintf("%s.cascade.%s", path, op),
					Message:      fmt.Sprintf("Invalid cascade option '%s'. Valid options: cascade, restrict, set_null, no_action", cascade),
					Severity:     SeverityError,
					Code:         CodeRelationInvalid,
					Category:     CategoryReference,
					Actual:       cascade,
					ValidOptions: validCascades,
				})
			}
		}
	}

	return errs
}

func relationError(path, message string) Error {
	return Error{
		Path:     path,
		Message:  message,
		Severity: SeverityError,
		Code:     CodeRelationInvalid,
		Category: CategoryReference,
	}
}

// fkResolves reports whether holder declares the foreign-key field or any
// ref field pointing at target.
func fkResolves(ctx *docContext, holder, fk, target string) bool {
	fields := ctx.entityFields(holder)
	if _, ok := fields[fk]; ok {
		return true
	}
	for _, info := range fields {
		if info.ftype.Ref == target {
			return true
		}
	}
	return false
}
