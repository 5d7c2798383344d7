package validator

import (
	"fmt"
	"strings"

	"github.com/specloom/loom/internal/ir"
	"github.com/specloom/loom/internal/patch"
)

// Semantic expression checks: reference resolution inside expression trees,
// aggregation alias scoping, enum literal consistency, and function input
// type consistency. These run after the structural discriminator walk and
// assume nothing about its outcome.

// defaultAggAlias is the alias an agg node introduces when none is declared.
const defaultAggAlias = "item"

// checkSemantics validates every expression site against the declared
// entities, functions, relations, machines, and roles.
func checkSemantics(ctx *docContext) []Error {
	var errs []Error
	errs = append(errs, checkExprSemantics(ctx)...)
	errs = append(errs, checkEnumUsage(ctx)...)
	errs = append(errs, checkInputConsistency(ctx)...)
	errs = append(errs, checkReferencePaths(ctx)...)
	return errs
}

func checkExprSemantics(ctx *docContext) []Error {
	var errs []Error
	for _, site := range exprSites(ctx.doc) {
		errs = append(errs, walkSemantics(ctx, site.expr, site.path, map[string]bool{defaultAggAlias: true})...)
	}
	return errs
}

func semanticError(path, message string) Error {
	return Error{
		Path:     path,
		Message:  message,
		Severity: SeverityError,
		Category: CategoryExpression,
	}
}

// walkSemantics recursively checks one expression. aliases carries the
// aggregation aliases visible at this node; each agg extends the set for
// its own expr/where subtree only.
func walkSemantics(ctx *docContext, e ir.Expr, path string, aliases map[string]bool) []Error {
	if e == nil {
		return nil
	}
	doc := ctx.doc
	var errs []Error

	recurse := func(key string) {
		if child, ok := e.Child(key); ok {
			errs = append(errs, walkSemantics(ctx, child, path+"."+key, aliases)...)
		}
	}
	recurseList := func(key string) {
		items, _ := e[key].([]any)
		for i, item := range items {
			if child, ok := ir.AsExpr(item); ok {
				errs = append(errs, walkSemantics(ctx, child, fmt.Sprintf("%s.%s[%d]", path, key, i), aliases)...)
			}
		}
	}

	switch e.Kind() {
	case "ref":
		refPath := e.Str("path")
		parts := strings.Split(refPath, ".")
		if len(parts) >= 2 {
			head := parts[0]
			if !ctx.hasEntity(head) && !aliases[head] {
				errs = append(errs, semanticError(path,
					fmt.Sprintf("Unknown entity or alias '%s' in reference '%s'", head, refPath)))
			}
		}

	case "agg":
		if from := e.Str("from"); from != "" && !ctx.hasEntity(from) {
			errs = append(errs, semanticError(path,
				fmt.Sprintf("Aggregation from unknown entity '%s'", from)))
		}
		inner := map[string]bool{}
		for a := range aliases {
			inner[a] = true
		}
		alias := e.Str("as")
		if alias == "" {
			alias = defaultAggAlias
		}
		inner[alias] = true
		if child, ok := e.Child("expr"); ok {
			errs = append(errs, walkSemantics(ctx, child, path+".expr", inner)...)
		}
		if child, ok := e.Child("where"); ok {
			errs = append(errs, walkSemantics(ctx, child, path+".where", inner)...)
		}

	case "binary":
		recurse("left")
		recurse("right")

	case "unary":
		recurse("expr")

	case "call":
		name := e.Str("name")
		if _, isDerived := doc.Derived[name]; !isDerived && !ctx.hasFunction(name) {
			errs = append(errs, semanticError(path, fmt.Sprintf("Unknown function '%s'", name)))
		}
		recurseList("args")

	case "if":
		recurse("cond")
		recurse("then")
		recurse("else")

	case "case":
		branches, _ := e["branches"].([]any)
		for i, raw := range branches {
			branch, ok := ir.AsExpr(raw)
			if !ok {
				continue
			}
			if when, ok := branch.Child("when"); ok {
				errs = append(errs, walkSemantics(ctx, when, fmt.Sprintf("%s.branches[%d].when", path, i), aliases)...)
			}
			if then, ok := branch.Child("then"); ok {
				errs = append(errs, walkSemantics(ctx, then, fmt.Sprintf("%s.branches[%d].then", path, i), aliases)...)
			}
		}
		recurse("else")

	case "date":
		recurseList("args")

	case "list":
		recurse("list")
		recurseList("args")

	case "temporal":
		if ent := e.Str("entity"); ent != "" && !ctx.hasEntity(ent) {
			errs = append(errs, semanticError(path,
				fmt.Sprintf("Temporal expression references unknown entity '%s'", ent)))
		}
		recurse("time")
		recurse("condition")

	case "window":
		if from := e.Str("from"); from != "" && !ctx.hasEntity(from) {
			errs = append(errs, semanticError(path,
				fmt.Sprintf("Window function references unknown entity '%s'", from)))
		}
		recurse("expr")
		recurseList("partitionBy")
		orders, _ := e["orderBy"].([]any)
		for i, raw := range orders {
			order, ok := ir.AsExpr(raw)
			if !ok {
				continue
			}
			if sub, ok := order.Child("expr"); ok {
				errs = append(errs, walkSemantics(ctx, sub, fmt.Sprintf("%s.orderBy[%d].expr", path, i), aliases)...)
			}
		}
		recurseList("args")

	case "tree":
		if ent := e.Str("entity"); ent != "" && !ctx.hasEntity(ent) {
			errs = append(errs, semanticError(path,
				fmt.Sprintf("Tree operation references unknown entity '%s'", ent)))
		}
		recurse("node")

	case "transitive":
		rel := e.Str("relation")
		if rel != "" && len(doc.Relations) > 0 {
			if _, ok := doc.Relations[rel]; !ok {
				errs = append(errs, semanticError(path,
					fmt.Sprintf("Transitive closure references unknown relation '%s'", rel)))
			}
		}
		recurse("from")
		recurse("to")

	case "state":
		machine := e.Str("machine")
		if machine != "" && len(doc.StateMachines) > 0 {
			sm, ok := doc.StateMachines[machine]
			if !ok {
				errs = append(errs, semanticError(path,
					fmt.Sprintf("State query references unknown state machine '%s'", machine)))
			} else if e.Str("op") == "is_in" && e.Str("state") != "" {
				if _, declared := sm.States[e.Str("state")]; !declared {
					errs = append(errs, semanticError(path,
						fmt.Sprintf("State '%s' not defined in machine '%s'", e.Str("state"), machine)))
				}
			}
		}
		recurse("entity")

	case "principal":
		op := e.Str("op")
		if op == "has_role" && e.Str("role") != "" && len(doc.Roles) > 0 {
			if _, ok := doc.Roles[e.Str("role")]; !ok {
				errs = append(errs, semanticError(path,
					fmt.Sprintf("Principal check references unknown role '%s'", e.Str("role"))))
			}
		}
		if op == "has_permission" && e.Str("permission") != "" {
			all := map[string]bool{}
			for _, role := range doc.Roles {
				for _, p := range role.Permissions {
					all[p] = true
				}
			}
			if len(all) > 0 && !all[e.Str("permission")] {
				errs = append(errs, semanticError(path,
					fmt.Sprintf("Principal check references unknown permission '%s'", e.Str("permission"))))
			}
		}
		recurse("resource")
	}

	return errs
}

// checkEnumUsage flags literals compared against enum-typed fields that are
// not in the declared value set (TYP-001). The check works in both operand
// orders and inside in/not_in list literals. Case-only mismatches get an
// auto-fix patch replacing the literal with the declared spelling.
func checkEnumUsage(ctx *docContext) []Error {
	enums := enumDefinitions(ctx.doc)
	if len(enums) == 0 {
		return nil
	}
	var errs []Error
	for _, site := range exprSites(ctx.doc) {
		errs = append(errs, walkEnumUsage(ctx, enums, site.expr, site.path)...)
	}
	return errs
}

// enumDefinitions maps "Entity.field" to the declared enum value set.
func enumDefinitions(doc *ir.Document) map[string][]string {
	defs := map[string][]string{}
	for _, entName := range ir.SortedKeys(doc.Entities) {
		for _, fieldName := range ir.SortedKeys(doc.Entities[entName].Fields) {
			if t := doc.Entities[entName].Fields[fieldName].Type; t.IsEnum() {
				defs[entName+"."+fieldName] = t.Enum
			}
		}
	}
	return defs
}

func walkEnumUsage(ctx *docContext, enums map[string][]string, e ir.Expr, path string) []Error {
	if e == nil {
		return nil
	}
	var errs []Error

	op := e.Str("op")
	if e.Kind() == "binary" && contains([]string{"eq", "ne", "in", "not_in"}, op) {
		left, _ := e.Child("left")
		right, _ := e.Child("right")

		check := func(refSide, litSide ir.Expr, litPath string) {
			key := resolveEnumKey(ctx, refSide.Str("path"), enums)
			if key == "" {
				return
			}
			values := enums[key]
			litValue := litSide["value"]
			if items, isList := litValue.([]any); isList && (op == "in" || op == "not_in") {
				for i, item := range items {
					errs = append(errs, checkLiteralAgainstEnum(item, values, fmt.Sprintf("%s.value[%d]", litPath, i), key)...)
				}
			} else {
				errs = append(errs, checkLiteralAgainstEnum(litValue, values, litPath+".value", key)...)
			}
		}

		if left != nil && right != nil {
			if left.Kind() == "ref" && right.Kind() == "literal" {
				check(left, right, path+".right")
			} else if right.Kind() == "ref" && left.Kind() == "literal" {
				check(right, left, path+".left")
			}

			// ref in {type: list, items: [...]} form
			if (op == "in" || op == "not_in") && left.Kind() == "ref" && right.Kind() == "list" {
				key := resolveEnumKey(ctx, left.Str("path"), enums)
				if key != "" {
					items, _ := right["items"].([]any)
					if items == nil {
						items, _ = right["values"].([]any)
					}
					for i, item := range items {
						if node, ok := ir.AsExpr(item); ok && node.Kind() == "literal" {
							errs = append(errs, checkLiteralAgainstEnum(node["value"], enums[key], fmt.Sprintf("%s.right.items[%d].value", path, i), key)...)
						} else if !ok {
							errs = append(errs, checkLiteralAgainstEnum(item, enums[key], fmt.Sprintf("%s.right.items[%d]", path, i), key)...)
						}
					}
				}
			}
		}
	}

	// Recurse into every nested value in deterministic key order.
	for _, key := range ir.SortedKeys(e) {
		switch v := e[key].(type) {
		case map[string]any:
			errs = append(errs, walkEnumUsage(ctx, enums, ir.Expr(v), path+"."+key)...)
		case []any:
			for i, item := range v {
				if child, ok := ir.AsExpr(item); ok {
					errs = append(errs, walkEnumUsage(ctx, enums, child, fmt.Sprintf("%s.%s[%d]", path, key, i))...)
				}
			}
		}
	}

	return errs
}

// resolveEnumKey maps a ref path to an enum definition key. The entity
// segment matches case-insensitively and the last segment is the field:
// "invoice.status" resolves to "Invoice.status".
func resolveEnumKey(ctx *docContext, refPath string, enums map[string][]string) string {
	parts := strings.Split(refPath, ".")
	if len(parts) < 2 {
		return ""
	}
	for _, entName := range ir.SortedKeys(ctx.doc.Entities) {
		if strings.EqualFold(parts[0], entName) {
			key := entName + "." + parts[len(parts)-1]
			if _, ok := enums[key]; ok {
				return key
			}
		}
	}
	return ""
}

// checkLiteralAgainstEnum reports a TYP-001 when value is not in the
// declared set. A case-insensitive match makes the finding auto-fixable
// with a replace patch carrying the declared spelling.
func checkLiteralAgainstEnum(value any, values []string, path, enumKey string) []Error {
	if value == nil {
		return nil
	}
	str := fmt.Sprintf("%v", value)
	if contains(values, str) {
		return nil
	}

	for _, v := range values {
		if strings.EqualFold(v, str) {
			return []Error{{
				Path:         path,
				Message:      fmt.Sprintf("Enum value '%s' has wrong case for %s. Expected: '%s'", str, enumKey, v),
				Severity:     SeverityError,
				Code:         CodeTypeEnumMismatch,
				Category:     CategoryType,
				Expected:     v,
				Actual:       str,
				ValidOptions: values,
				AutoFixable:  true,
				FixPatch: &patch.Op{
					Op:    patch.OpReplace,
					Path:  patch.FromDotPath(path),
					Value: v,
				},
			}}
		}
	}

	return []Error{{
		Path:         path,
		Message:      fmt.Sprintf("Invalid enum value '%s' for %s. Valid values: %v", str, enumKey, values),
		Severity:     SeverityError,
		Code:         CodeTypeEnumMismatch,
		Category:     CategoryType,
		Expected:     fmt.Sprintf("one of %v", values),
		Actual:       str,
		ValidOptions: values,
	}}
}

// checkInputConsistency validates function input references (TYP-002):
// every input node must name a declared input, and inputs written into
// entity fields must carry a compatible type.
func checkInputConsistency(ctx *docContext) []Error {
	doc := ctx.doc
	var errs []Error

	for _, fnName := range ir.SortedKeys(doc.Functions) {
		fn := doc.Functions[fnName]
		declared := fn.Input

		checkRefs := func(e ir.Expr, path string) {
			errs = append(errs, walkInputRefs(e, path, fnName, declared)...)
		}

		for i, pre := range fn.Pre {
			checkRefs(pre.Expr, fmt.Sprintf("functions.%s.pre[%d].expr", fnName, i))
		}
		for i, ec := range fn.Errors {
			checkRefs(ec.When, fmt.Sprintf("functions.%s.error[%d].when", fnName, i))
		}
		for i, post := range fn.Post {
			for _, field := range ir.SortedKeys(post.Action.With) {
				checkRefs(post.Action.With[field], fmt.Sprintf("functions.%s.post[%d].action.with.%s", fnName, i, field))
			}
			for _, field := range ir.SortedKeys(post.Action.Set) {
				checkRefs(post.Action.Set[field], fmt.Sprintf("functions.%s.post[%d].action.set.%s", fnName, i, field))
			}
			checkRefs(post.Action.Target, fmt.Sprintf("functions.%s.post[%d].action.target", fnName, i))
		}

		// Inputs flowing into create/update fields must be type-compatible.
		for i, post := range fn.Post {
			target := post.Action.Create
			if target == "" {
				target = post.Action.Update
			}
			if target == "" || !ctx.hasEntity(target) {
				continue
			}
			for _, field := range ir.SortedKeys(post.Action.With) {
				value := post.Action.With[field]
				info, declared := ctx.entityField(target, field)
				if !declared || value.Kind() != "input" {
					continue
				}
				inputName := value.Str("name")
				inputDef, ok := fn.Input[inputName]
				if !ok {
					continue
				}
				if !typesCompatible(inputDef.Type, info.ftype) {
					errs = append(errs, Error{
						Path: fmt.Sprintf("functions.%s.post[%d].action.with.%s", fnName, i, field),
						Message: fmt.Sprintf("Type mismatch: input '%s' has type '%s' but field '%s.%s' expects '%s'",
							inputName, inputDef.Type, target, field, info.ftype),
						Severity: SeverityError,
						Code:     CodeTypeInputMismatch,
						Category: CategoryType,
						Expected: info.ftype.String(),
						Actual:   inputDef.Type.String(),
					})
				}
			}
		}
	}

	return errs
}

func walkInputRefs(e ir.Expr, path, fnName string, declared map[string]ir.Field) []Error {
	if e == nil {
		return nil
	}
	var errs []Error

	if e.Kind() == "input" {
		name := e.Str("name")
		if name != "" && len(declared) > 0 {
			if _, ok := declared[name]; !ok {
				names := ir.SortedKeys(declared)
				errs = append(errs, Error{
					Path:         path,
					Message:      fmt.Sprintf("Input '%s' not declared in function '%s' inputs", name, fnName),
					Severity:     SeverityError,
					Code:         CodeTypeInputMismatch,
					Category:     CategoryType,
					Expected:     "one of: " + strings.Join(names, ", "),
					Actual:       name,
					ValidOptions: names,
				})
			}
		}
	}

	for _, key := range ir.SortedKeys(e) {
		switch v := e[key].(type) {
		case map[string]any:
			errs = append(errs, walkInputRefs(ir.Expr(v), path+"."+key, fnName, declared)...)
		case []any:
			for i, item := range v {
				if child, ok := ir.AsExpr(item); ok {
					errs = append(errs, walkInputRefs(child, fmt.Sprintf("%s.%s[%d]", path, key, i), fnName, declared)...)
				}
			}
		}
	}

	return errs
}

// typesCompatible reports whether a value of source type may be assigned to
// a target-typed field. "any" is compatible with everything; refs accept
// strings or the referenced entity name; enums accept strings. Unknown
// combinations default to compatible.
func typesCompatible(source, target ir.FieldType) bool {
	if source.Name == "any" || target.Name == "any" {
		return true
	}
	if target.IsRef() {
		return source.Name == "string" || source.Name == target.Ref
	}
	if target.IsEnum() {
		return source.Name == "string"
	}
	if !source.IsZero() && !target.IsZero() && source.Name != "" && target.Name != "" {
		return source.Name == target.Name
	}
	return true
}

// checkReferencePaths resolves dotted ref paths segment by segment through
// entity fields and declared relations (REF-002). The failing segment is
// reported with the sibling field names as options. Resolutions are cached
// per path.
func checkReferencePaths(ctx *docContext) []Error {
	doc := ctx.doc

	// entity -> field -> target entity, from ref fields plus explicit
	// relations keyed by foreignKey.
	relationMap := map[string]map[string]string{}
	for _, entName := range ir.SortedKeys(doc.Entities) {
		relationMap[entName] = map[string]string{}
		for fieldName, f := range doc.Entities[entName].Fields {
			if f.Type.IsRef() {
				relationMap[entName][fieldName] = f.Type.Ref
			}
		}
	}
	for _, relName := range ir.SortedKeys(doc.Relations) {
		rel := doc.Relations[relName]
		if rel.From != "" && rel.To != "" && rel.ForeignKey != "" {
			if relationMap[rel.From] == nil {
				relationMap[rel.From] = map[string]string{}
			}
			relationMap[rel.From][rel.ForeignKey] = rel.To
		}
	}

	var errs []Error
	validate := func(refPath, contextPath string) {
		if cached, ok := ctx.cache.ref(refPath); ok {
			if !cached.ok {
				errs = append(errs, refPathErrorAt(contextPath, refPath, cached.segment, cached.entity, cached.siblings))
			}
			return
		}

		parts := strings.Split(refPath, ".")
		if len(parts) < 2 {
			ctx.cache.storeRef(refPath, refResolution{ok: true})
			return
		}

		var current string
		for _, entName := range ir.SortedKeys(doc.Entities) {
			if strings.EqualFold(parts[0], entName) {
				current = entName
				break
			}
		}
		if current == "" {
			// Aggregation aliases resolve here; not an error.
			ctx.cache.storeRef(refPath, refResolution{ok: true})
			return
		}

		for _, part := range parts[1:] {
			if current == "" {
				break
			}
			fields := doc.Entities[current].Fields
			if f, ok := fields[part]; ok {
				if f.Type.IsRef() {
					current = f.Type.Ref
				} else {
					current = "" // scalar, end of path
				}
			} else if target, ok := relationMap[current][part]; ok {
				current = target
			} else {
				res := refResolution{
					segment:  part,
					entity:   current,
					siblings: ir.SortedKeys(fields),
				}
				ctx.cache.storeRef(refPath, res)
				errs = append(errs, refPathErrorAt(contextPath, refPath, part, current, res.siblings))
				return
			}
		}
		ctx.cache.storeRef(refPath, refResolution{ok: true})
	}

	var findRefs func(e ir.Expr, path string)
	findRefs = func(e ir.Expr, path string) {
		if e == nil {
			return
		}
		if e.Kind() == "ref" {
			validate(e.Str("path"), path)
		}
		for _, key := range ir.SortedKeys(e) {
			switch v := e[key].(type) {
			case map[string]any:
				findRefs(ir.Expr(v), path+"."+key)
			case []any:
				for i, item := range v {
					if child, ok := ir.AsExpr(item); ok {
						findRefs(child, fmt.Sprintf("%s.%s[%d]", path, key, i))
					}
				}
			}
		}
	}

	for _, site := range exprSites(doc) {
		findRefs(site.expr, site.path)
	}

	return errs
}

func refPathErrorAt(contextPath, refPath, segment, entity string, siblings []string) Error {
	return Error{
		Path:         contextPath,
		Message:      fmt.Sprintf("Invalid reference path '%s': field '%s' not found in entity '%s'", refPath, segment, entity),
		Severity:     SeverityError,
		Code:         CodeRefUnknownField,
		Category:     CategoryReference,
		Expected:     "valid field of " + entity,
		Actual:       segment,
		ValidOptions: siblings,
	}
}

