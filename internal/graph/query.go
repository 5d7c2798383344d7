package graph

import (
	"fmt"
	"sort"

	"github.com/specloom/loom/internal/ir"
)

// Slice is the minimal spec subset needed to implement one function.
type Slice struct {
	Function   string   `json:"function"`
	Entities   []string `json:"entities"`
	Derived    []string `json:"derived"`
	Scenarios  []string `json:"scenarios"`
	Invariants []string `json:"invariants"`
}

// BreakingChange flags a dependent that stops working if the target is
// deleted.
type BreakingChange struct {
	Target string `json:"target"`
	Reason string `json:"reason"`
}

// Impact categorizes everything that transitively depends on a changed
// element.
type Impact struct {
	Entities   []string         `json:"affectedEntities"`
	Functions  []string         `json:"affectedFunctions"`
	Derived    []string         `json:"affectedDerived"`
	Scenarios  []string         `json:"affectedScenarios"`
	Invariants []string         `json:"affectedInvariants"`
	Breaking   []BreakingChange `json:"breakingChanges"`
}

// GetSlice computes the forward slice of one function: every entity and
// derived formula transitively reachable from it, the scenarios testing
// it, and the invariants constraining any entity in the slice.
func (g *Graph) GetSlice(functionName string) (*Slice, error) {
	funcID := NodeID(KindFunction, functionName)
	if _, ok := g.nodes[funcID]; !ok {
		return nil, fmt.Errorf("function %q not found", functionName)
	}

	reached := g.traverse(funcID, g.out)

	slice := &Slice{
		Function:   functionName,
		Entities:   []string{},
		Derived:    []string{},
		Scenarios:  []string{},
		Invariants: []string{},
	}
	entitySet := map[string]bool{}
	for id := range reached {
		node := g.nodes[id]
		switch node.Kind {
		case KindEntity:
			slice.Entities = append(slice.Entities, node.Name)
			entitySet[node.Name] = true
		case KindDerived:
			slice.Derived = append(slice.Derived, node.Name)
		}
	}

	for _, node := range g.Nodes() {
		switch node.Kind {
		case KindScenario:
			if sc, ok := node.Data.(ir.Scenario); ok && sc.When.Call == functionName {
				slice.Scenarios = append(slice.Scenarios, node.Name)
			}
		case KindInvariant:
			if inv, ok := node.Data.(ir.Invariant); ok && entitySet[inv.Entity] {
				slice.Invariants = append(slice.Invariants, node.Name)
			}
		}
	}

	sort.Strings(slice.Entities)
	sort.Strings(slice.Derived)
	return slice, nil
}

// AnalyzeImpact walks the graph backwards from the target and categorizes
// every dependent. With changeType "delete", dependent functions and
// derived formulas are flagged as breaking.
func (g *Graph) AnalyzeImpact(kind Kind, name, changeType string) (*Impact, error) {
	targetID := NodeID(kind, name)
	if _, ok := g.nodes[targetID]; !ok {
		return nil, fmt.Errorf("%s %q not found", kind, name)
	}

	affected := g.traverse(targetID, g.in)

	impact := &Impact{
		Entities:   []string{},
		Functions:  []string{},
		Derived:    []string{},
		Scenarios:  []string{},
		Invariants: []string{},
		Breaking:   []BreakingChange{},
	}
	for _, id := range sortedIDs(affected) {
		node := g.nodes[id]
		switch node.Kind {
		case KindEntity:
			impact.Entities = append(impact.Entities, node.Name)
		case KindFunction:
			impact.Functions = append(impact.Functions, node.Name)
		case KindDerived:
			impact.Derived = append(impact.Derived, node.Name)
		case KindScenario:
			impact.Scenarios = append(impact.Scenarios, node.Name)
		case KindInvariant:
			impact.Invariants = append(impact.Invariants, node.Name)
		}

		if changeType == "delete" && id != targetID &&
			(node.Kind == KindFunction || node.Kind == KindDerived) {
			impact.Breaking = append(impact.Breaking, BreakingChange{
				Target: node.Name,
				Reason: fmt.Sprintf("Depends on deleted %s '%s'", kind, name),
			})
		}
	}

	sort.Strings(impact.Entities)
	sort.Strings(impact.Functions)
	sort.Strings(impact.Derived)
	sort.Strings(impact.Scenarios)
	sort.Strings(impact.Invariants)
	return impact, nil
}

// traverse is a BFS over one adjacency direction, returning every node
// reached including the start.
func (g *Graph) traverse(start string, adjacency map[string][]string) map[string]bool {
	seen := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range adjacency[current] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return seen
}

func sortedIDs(set map[string]bool) []string {
	return ir.SortedKeys(set)
}
