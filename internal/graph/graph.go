// Package graph builds a typed dependency graph over a spec document and
// answers slice and impact queries against it.
package graph

import (
	"fmt"
	"sort"

	"github.com/specloom/loom/internal/ir"
)

// Kind tags a node with the spec section it came from.
type Kind string

const (
	KindEntity       Kind = "entity"
	KindField        Kind = "field"
	KindDerived      Kind = "derived"
	KindFunction     Kind = "function"
	KindScenario     Kind = "scenario"
	KindInvariant    Kind = "invariant"
	KindStateMachine Kind = "stateMachine"
	KindEvent        Kind = "event"
	KindSubscription Kind = "subscription"
	KindSaga         Kind = "saga"
	KindRole         Kind = "role"
	KindSchedule     Kind = "schedule"
	KindGateway      Kind = "gateway"
	KindDeadline     Kind = "deadline"
	KindService      Kind = "service"
	KindConstraint   Kind = "constraint"
	KindRelation     Kind = "relation"
	KindDataPolicy   Kind = "dataPolicy"
	KindAuditPolicy  Kind = "auditPolicy"
)

// NodeID forms the canonical "kind:name" identifier.
func NodeID(kind Kind, name string) string {
	return string(kind) + ":" + name
}

// Node is one element of the spec. Data points at the IR fragment the node
// was built from.
type Node struct {
	ID   string
	Kind Kind
	Name string
	Data any
}

// Edge is a directed, labeled dependency between two nodes.
type Edge struct {
	Source   string
	Target   string
	Relation string
}

// Graph is an immutable dependency graph over one document. Build it once
// per snapshot; queries do not mutate it.
type Graph struct {
	nodes map[string]Node
	edges []Edge
	out   map[string][]string
	in    map[string][]string
}

// Build constructs the graph in two phases: every node first, then every
// edge. An edge whose source or target was never declared is dropped
// silently; missing references are the validator's concern, not the
// graph's.
func Build(doc *ir.Document) *Graph {
	g := &Graph{
		nodes: map[string]Node{},
		out:   map[string][]string{},
		in:    map[string][]string{},
	}
	g.addNodes(doc)
	g.addEdges(doc)
	return g
}

func (g *Graph) addNodes(doc *ir.Document) {
	for _, name := range ir.SortedKeys(doc.Entities) {
		ent := doc.Entities[name]
		g.addNode(KindEntity, name, ent)
		for _, fieldName := range ir.SortedKeys(ent.Fields) {
			g.addNode(KindField, name+"."+fieldName, ent.Fields[fieldName])
		}
	}
	for _, name := range ir.SortedKeys(doc.Derived) {
		g.addNode(KindDerived, name, doc.Derived[name])
	}
	for _, name := range ir.SortedKeys(doc.Functions) {
		g.addNode(KindFunction, name, doc.Functions[name])
	}
	for _, name := range ir.SortedKeys(doc.Scenarios) {
		g.addNode(KindScenario, name, doc.Scenarios[name])
	}
	for i, inv := range doc.Invariants {
		g.addNode(KindInvariant, invariantName(inv, i), inv)
	}
	for _, name := range ir.SortedKeys(doc.StateMachines) {
		g.addNode(KindStateMachine, name, doc.StateMachines[name])
	}
	for _, name := range ir.SortedKeys(doc.Events) {
		g.addNode(KindEvent, name, doc.Events[name])
	}
	for _, name := range ir.SortedKeys(doc.Subscriptions) {
		g.addNode(KindSubscription, name, doc.Subscriptions[name])
	}
	for _, name := range ir.SortedKeys(doc.Sagas) {
		g.addNode(KindSaga, name, doc.Sagas[name])
	}
	for _, name := range ir.SortedKeys(doc.Roles) {
		g.addNode(KindRole, name, doc.Roles[name])
	}
	for _, name := range ir.SortedKeys(doc.Schedules) {
		g.addNode(KindSchedule, name, doc.Schedules[name])
	}
	for _, name := range ir.SortedKeys(doc.Gateways) {
		g.addNode(KindGateway, name, doc.Gateways[name])
	}
	for _, name := range ir.SortedKeys(doc.Deadlines) {
		g.addNode(KindDeadline, name, doc.Deadlines[name])
	}
	for _, name := range ir.SortedKeys(doc.ExternalServices) {
		g.addNode(KindService, name, doc.ExternalServices[name])
	}
	for _, name := range ir.SortedKeys(doc.Constraints) {
		g.addNode(KindConstraint, name, doc.Constraints[name])
	}
	for _, name := range ir.SortedKeys(doc.Relations) {
		g.addNode(KindRelation, name, doc.Relations[name])
	}
	for _, name := range ir.SortedKeys(doc.DataPolicies) {
		g.addNode(KindDataPolicy, name, doc.DataPolicies[name])
	}
	for _, name := range ir.SortedKeys(doc.AuditPolicies) {
		g.addNode(KindAuditPolicy, name, doc.AuditPolicies[name])
	}
}

func (g *Graph) addEdges(doc *ir.Document) {
	for _, name := range ir.SortedKeys(doc.Entities) {
		ent := doc.Entities[name]
		if ent.Parent != "" {
			g.addEdge(NodeID(KindEntity, name), NodeID(KindEntity, ent.Parent), "inherits_from")
		}
		for _, fieldName := range ir.SortedKeys(ent.Fields) {
			fieldID := NodeID(KindField, name+"."+fieldName)
			g.addEdge(fieldID, NodeID(KindEntity, name), "belongs_to")
			for _, ref := range fieldRefTargets(ent.Fields[fieldName].Type) {
				g.addEdge(fieldID, NodeID(KindEntity, ref), "references")
			}
		}
	}

	for _, name := range ir.SortedKeys(doc.Derived) {
		d := doc.Derived[name]
		id := NodeID(KindDerived, name)
		if d.Entity != "" {
			g.addEdge(id, NodeID(KindEntity, d.Entity), "applies_to")
		}
		g.addExprEdges(id, d.Formula)
	}

	for _, name := range ir.SortedKeys(doc.Functions) {
		fn := doc.Functions[name]
		id := NodeID(KindFunction, name)
		for _, pre := range fn.Pre {
			if pre.Entity != "" {
				g.addEdge(id, NodeID(KindEntity, pre.Entity), "reads")
			}
			g.addExprEdges(id, pre.Expr)
		}
		for _, errCase := range fn.Errors {
			g.addExprEdges(id, errCase.When)
		}
		for _, post := range fn.Post {
			if target := post.Action.TargetEntity(); target != "" {
				g.addEdge(id, NodeID(KindEntity, target), "modifies")
			}
			g.addExprEdges(id, post.Condition)
			for _, key := range ir.SortedKeys(post.Action.With) {
				g.addExprEdges(id, post.Action.With[key])
			}
			for _, key := range ir.SortedKeys(post.Action.Set) {
				g.addExprEdges(id, post.Action.Set[key])
			}
		}
	}

	for _, name := range ir.SortedKeys(doc.Scenarios) {
		sc := doc.Scenarios[name]
		id := NodeID(KindScenario, name)
		if sc.When.Call != "" {
			g.addEdge(id, NodeID(KindFunction, sc.When.Call), "tests")
		}
		for _, given := range sc.Given {
			g.addEdge(id, NodeID(KindEntity, given.Entity), "uses")
		}
	}

	for i, inv := range doc.Invariants {
		id := NodeID(KindInvariant, invariantName(inv, i))
		if inv.Entity != "" {
			g.addEdge(id, NodeID(KindEntity, inv.Entity), "constrains")
		}
		g.addExprEdges(id, inv.Assert)
	}

	for _, name := range ir.SortedKeys(doc.StateMachines) {
		sm := doc.StateMachines[name]
		id := NodeID(KindStateMachine, name)
		if sm.Entity != "" {
			g.addEdge(id, NodeID(KindEntity, sm.Entity), "tracks")
		}
		for _, trans := range sm.Transitions {
			if trans.TriggerFunction == "" {
				continue
			}
			g.addEdge(id, NodeID(KindFunction, trans.TriggerFunction), "triggered_by")
			g.addEdge(id, NodeID(KindEvent, trans.TriggerFunction), "triggered_by")
		}
	}

	for _, name := range ir.SortedKeys(doc.Events) {
		id := NodeID(KindEvent, name)
		for _, emitter := range doc.Events[name].EmittedBy {
			g.addEdge(id, NodeID(KindFunction, emitter), "emitted_by")
		}
	}

	for _, name := range ir.SortedKeys(doc.Subscriptions) {
		sub := doc.Subscriptions[name]
		id := NodeID(KindSubscription, name)
		if sub.Event != "" {
			g.addEdge(id, NodeID(KindEvent, sub.Event), "listens_to")
		}
		if sub.Handler != "" {
			g.addEdge(id, NodeID(KindFunction, sub.Handler), "invokes")
		}
	}

	for _, name := range ir.SortedKeys(doc.Sagas) {
		id := NodeID(KindSaga, name)
		for _, step := range doc.Sagas[name].Steps {
			if step.Forward != "" {
				g.addEdge(id, NodeID(KindFunction, step.Forward), "invokes")
			}
			if step.Compensate != "" {
				g.addEdge(id, NodeID(KindFunction, step.Compensate), "compensates_with")
			}
		}
	}

	for _, name := range ir.SortedKeys(doc.Roles) {
		role := doc.Roles[name]
		id := NodeID(KindRole, name)
		for _, parent := range role.Inherits {
			g.addEdge(id, NodeID(KindRole, parent), "inherits_from")
		}
		for _, ep := range role.EntityPermissions {
			g.addEdge(id, NodeID(KindEntity, ep.Entity), "grants_access")
		}
	}

	for _, name := range ir.SortedKeys(doc.Schedules) {
		if action := doc.Schedules[name].Action; action != "" {
			g.addEdge(NodeID(KindSchedule, name), NodeID(KindFunction, action), "invokes")
		}
	}

	for _, name := range ir.SortedKeys(doc.Gateways) {
		gw := doc.Gateways[name]
		id := NodeID(KindGateway, name)
		for _, flow := range gw.OutgoingFlows {
			for _, target := range flowEndpoints(flow.Target) {
				g.addEdge(id, target, "routes_to")
			}
			if flow.Event != "" {
				g.addEdge(id, NodeID(KindEvent, flow.Event), "listens_to")
			}
		}
		for _, source := range gw.IncomingFlows {
			for _, from := range flowEndpoints(source) {
				g.addEdge(from, id, "routes_to")
			}
		}
	}

	for _, name := range ir.SortedKeys(doc.Deadlines) {
		dl := doc.Deadlines[name]
		id := NodeID(KindDeadline, name)
		if dl.Entity != "" {
			g.addEdge(id, NodeID(KindEntity, dl.Entity), "applies_to")
		}
		if dl.Action != "" {
			g.addEdge(id, NodeID(KindFunction, dl.Action), "invokes")
		}
		for _, esc := range dl.Escalations {
			if esc.Action != "" {
				g.addEdge(id, NodeID(KindFunction, esc.Action), "invokes")
			}
			if esc.Event != "" {
				g.addEdge(id, NodeID(KindEvent, esc.Event), "emits")
			}
		}
		if dl.OnExpire != nil {
			if dl.OnExpire.Action != "" {
				g.addEdge(id, NodeID(KindFunction, dl.OnExpire.Action), "invokes")
			}
			if dl.OnExpire.Event != "" {
				g.addEdge(id, NodeID(KindEvent, dl.OnExpire.Event), "emits")
			}
		}
	}

	for _, name := range ir.SortedKeys(doc.Constraints) {
		c := doc.Constraints[name]
		id := NodeID(KindConstraint, name)
		if c.Entity != "" {
			g.addEdge(id, NodeID(KindEntity, c.Entity), "constrains")
		}
		if c.References != nil && c.References.Entity != "" {
			g.addEdge(id, NodeID(KindEntity, c.References.Entity), "references")
		}
		g.addExprEdges(id, c.Expr)
	}

	for _, name := range ir.SortedKeys(doc.Relations) {
		rel := doc.Relations[name]
		id := NodeID(KindRelation, name)
		if rel.From != "" {
			g.addEdge(id, NodeID(KindEntity, rel.From), "connects")
		}
		if rel.To != "" {
			g.addEdge(id, NodeID(KindEntity, rel.To), "connects")
		}
	}

	for _, name := range ir.SortedKeys(doc.DataPolicies) {
		if ent := doc.DataPolicies[name].Entity; ent != "" {
			g.addEdge(NodeID(KindDataPolicy, name), NodeID(KindEntity, ent), "governs")
		}
	}
	for _, name := range ir.SortedKeys(doc.AuditPolicies) {
		if ent := doc.AuditPolicies[name].Entity; ent != "" {
			g.addEdge(NodeID(KindAuditPolicy, name), NodeID(KindEntity, ent), "governs")
		}
	}
}

func (g *Graph) addNode(kind Kind, name string, data any) {
	id := NodeID(kind, name)
	g.nodes[id] = Node{ID: id, Kind: kind, Name: name, Data: data}
}

// addEdge materializes an edge only when both endpoints exist.
func (g *Graph) addEdge(source, target, relation string) {
	if _, ok := g.nodes[source]; !ok {
		return
	}
	if _, ok := g.nodes[target]; !ok {
		return
	}
	g.edges = append(g.edges, Edge{Source: source, Target: target, Relation: relation})
	g.out[source] = append(g.out[source], target)
	g.in[target] = append(g.in[target], source)
}

// addExprEdges records what an expression tree reads (entities) and calls
// (derived formulas) as edges from owner.
func (g *Graph) addExprEdges(owner string, e ir.Expr) {
	entities, derived := exprDeps(e)
	for _, ent := range entities {
		g.addEdge(owner, NodeID(KindEntity, ent), "reads")
	}
	for _, d := range derived {
		g.addEdge(owner, NodeID(KindDerived, d), "calls")
	}
}

// exprDeps walks a tagged-union expression tree and collects the entity
// names it references and the derived formulas it calls, sorted. Reference
// roots "item" and "self" are scope aliases, not entities.
func exprDeps(e ir.Expr) (entities, derived []string) {
	entitySet := map[string]bool{}
	derivedSet := map[string]bool{}

	var walk func(e ir.Expr)
	walk = func(e ir.Expr) {
		if e == nil {
			return
		}
		switch e.Kind() {
		case "ref":
			if root := pathRoot(e.Str("path")); root != "" && root != "item" && root != "self" {
				entitySet[root] = true
			}
		case "agg":
			if from := e.Str("from"); from != "" {
				entitySet[from] = true
			}
		case "call":
			if name := e.Str("name"); name != "" {
				derivedSet[name] = true
			}
		}
		for _, v := range e {
			switch t := v.(type) {
			case map[string]any:
				walk(ir.Expr(t))
			case []any:
				for _, item := range t {
					if child, ok := ir.AsExpr(item); ok {
						walk(child)
					}
				}
			}
		}
	}
	walk(e)

	return ir.SortedKeys(entitySet), ir.SortedKeys(derivedSet)
}

func pathRoot(path string) string {
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			return path[:i]
		}
	}
	return path
}

// fieldRefTargets collects the entities a field type points at, descending
// through list wrappers.
func fieldRefTargets(t ir.FieldType) []string {
	var out []string
	for {
		if t.IsRef() {
			out = append(out, t.Ref)
			return out
		}
		if !t.IsList() {
			return out
		}
		t = *t.List
	}
}

// flowEndpoints resolves a gateway flow name, which may refer to a
// function, an event, or another gateway. Nonexistent candidates are
// dropped by addEdge.
func flowEndpoints(name string) []string {
	if name == "" {
		return nil
	}
	return []string{
		NodeID(KindFunction, name),
		NodeID(KindEvent, name),
		NodeID(KindGateway, name),
	}
}

func invariantName(inv ir.Invariant, index int) string {
	if inv.ID != "" {
		return inv.ID
	}
	return fmt.Sprintf("inv%d", index)
}

// Nodes returns every node sorted by id.
func (g *Graph) Nodes() []Node {
	ids := ir.SortedKeys(g.nodes)
	out := make([]Node, len(ids))
	for i, id := range ids {
		out[i] = g.nodes[id]
	}
	return out
}

// Edges returns every materialized edge in build order.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// Node looks up one node by id.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Dependencies returns the ids a node points at, sorted and deduplicated.
func (g *Graph) Dependencies(id string) []string {
	return sortedUnique(g.out[id])
}

// Dependents returns the ids pointing at a node, sorted and deduplicated.
func (g *Graph) Dependents(id string) []string {
	return sortedUnique(g.in[id])
}

func sortedUnique(ids []string) []string {
	set := map[string]bool{}
	for _, id := range ids {
		set[id] = true
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
