// Package validator checks IR documents for referential, structural, and
// type consistency. All checks run unconditionally on every call and their
// findings are concatenated; one check failing never suppresses another.
// Expected findings are returned as Error values, never as Go errors.
package validator

import (
	"github.com/specloom/loom/internal/ir"
	"github.com/specloom/loom/internal/patch"
)

// MaxDepth bounds expression recursion and document traversal.
const MaxDepth = 50

// Validator runs the full check suite over IR documents. A zero-value
// Validator is not usable; construct with New.
type Validator struct {
	cache *cache
}

// Option configures a Validator.
type Option func(*Validator)

// WithoutCache disables lookup memoization. Intended for tests that compare
// cached and uncached behavior.
func WithoutCache() Option {
	return func(v *Validator) { v.cache = nil }
}

// New returns a Validator with caching enabled.
func New(opts ...Option) *Validator {
	v := &Validator{cache: newCache()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Stats reports cache hit/miss counts accumulated so far.
func (v *Validator) Stats() CacheStats {
	if v.cache == nil {
		return CacheStats{}
	}
	return CacheStats{Hits: v.cache.hits, Misses: v.cache.misses}
}

// Validate runs every check over doc and returns the combined result.
// Findings are ordered by check, then by sorted section key, so two runs
// over the same document produce identical output.
func (v *Validator) Validate(doc *ir.Document) *Result {
	v.cache.clear()
	ctx := newDocContext(doc, v.cache)

	var findings []Error
	findings = append(findings, checkReferences(ctx)...)
	findings = append(findings, checkRelations(ctx)...)
	findings = append(findings, checkExpressions(ctx)...)
	findings = append(findings, checkSemantics(ctx)...)
	findings = append(findings, checkStateMachines(ctx)...)
	findings = append(findings, checkSagas(ctx)...)
	findings = append(findings, checkSchedules(ctx)...)
	findings = append(findings, checkGateways(ctx)...)
	findings = append(findings, checkDeadlines(ctx)...)
	findings = append(findings, checkServices(ctx)...)
	findings = append(findings, checkRoles(ctx)...)
	findings = append(findings, checkPolicies(ctx)...)
	findings = append(findings, checkConstraints(ctx)...)
	findings = append(findings, checkDerivedCycles(ctx)...)
	findings = append(findings, checkUnusedFunctions(ctx)...)

	return newResult(findings)
}

// ValidateChanges previews a set of patch operations: it applies them to a
// copy of tree, re-validates the patched document in full, and returns the
// result together with the patched tree. The input tree is never mutated.
// A Go error is returned only when the patch cannot be applied or the
// patched tree no longer decodes.
func (v *Validator) ValidateChanges(tree map[string]any, ops []patch.Op) (*Result, map[string]any, error) {
	patched, err := patch.Apply(tree, ops)
	if err != nil {
		return nil, nil, err
	}
	doc, err := ir.FromValue(patched)
	if err != nil {
		return nil, nil, err
	}
	return v.Validate(doc), patched, nil
}

// fieldInfo is the resolved view of one declared field.
type fieldInfo struct {
	ftype ir.FieldType
}

// docContext carries the document plus lookup tables shared by all checks.
type docContext struct {
	doc   *ir.Document
	cache *cache
}

func newDocContext(doc *ir.Document, c *cache) *docContext {
	return &docContext{doc: doc, cache: c}
}

// entityFields returns the effective field set of an entity with parent
// fields folded in. Child declarations shadow parent ones. Returns nil for
// unknown entities. Inheritance chains with cycles terminate at the repeat.
func (ctx *docContext) entityFields(entity string) map[string]fieldInfo {
	if cached, ok := ctx.cache.fields(entity); ok {
		return cached
	}
	if _, ok := ctx.doc.Entities[entity]; !ok {
		ctx.cache.storeFields(entity, nil)
		return nil
	}

	fields := map[string]fieldInfo{}
	seen := map[string]bool{}
	for name := entity; name != "" && !seen[name]; {
		seen[name] = true
		ent, ok := ctx.doc.Entities[name]
		if !ok {
			break
		}
		for fname, f := range ent.Fields {
			if _, shadowed := fields[fname]; !shadowed {
				fields[fname] = fieldInfo{ftype: f.Type}
			}
		}
		name = ent.Parent
	}

	ctx.cache.storeFields(entity, fields)
	return fields
}

// entityField resolves one field on an entity, inheritance included.
func (ctx *docContext) entityField(entity, field string) (fieldInfo, bool) {
	f, ok := ctx.entityFields(entity)[field]
	return f, ok
}

// fieldNames lists the effective field names of an entity, sorted.
func (ctx *docContext) fieldNames(entity string) []string {
	return ir.SortedKeys(ctx.entityFields(entity))
}

// hasEntity reports whether an entity is declared.
func (ctx *docContext) hasEntity(name string) bool {
	_, ok := ctx.doc.Entities[name]
	return ok
}

// hasFunction reports whether a function is declared.
func (ctx *docContext) hasFunction(name string) bool {
	_, ok := ctx.doc.Functions[name]
	return ok
}

// hasEvent reports whether an event is declared.
func (ctx *docContext) hasEvent(name string) bool {
	_, ok := ctx.doc.Events[name]
	return ok
}
