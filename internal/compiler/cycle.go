package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/graphcfg/internal/ir"
)

// TemplateCycle is a set of templates that instantiate each other.
// Expanding any graph that uses one of them fails.
type TemplateCycle struct {
	Path    []string `json:"path"`    // Cycle path: ["A", "B", "A"]
	Message string   `json:"message"` // Human-readable description
}

// AnalyzeTemplateCycles reports every template cycle among templates.
//
// The expander stops at the first self-inclusion it meets while expanding
// one graph; this analysis covers all registered templates at once, so a
// cycle is found even when no loaded graph uses it yet.
//
// The algorithm:
//  1. Build template → template edges from node calculators that name a template
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1, or with a self-loop, as a cycle
//
// Results are sorted so reports are stable across runs.
func AnalyzeTemplateCycles(templates []ir.GraphConfig) []TemplateCycle {
	if len(templates) == 0 {
		return []TemplateCycle{}
	}

	graph := buildTemplateGraph(templates)
	sccs := tarjanSCC(graph)

	cycles := []TemplateCycle{}
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			cycles = append(cycles, sccToCycle(scc, graph))
		}
	}
	slices.SortFunc(cycles, func(a, b TemplateCycle) int {
		return strings.Compare(a.Path[0], b.Path[0])
	})
	return cycles
}

// dependencyGraph maps template type → template types its nodes use.
type dependencyGraph map[string][]string

func buildTemplateGraph(templates []ir.GraphConfig) dependencyGraph {
	graph := make(dependencyGraph, len(templates))
	for _, t := range templates {
		if graph[t.Type] == nil {
			graph[t.Type] = []string{}
		}
	}
	for _, t := range templates {
		for _, n := range t.Nodes {
			if _, isTemplate := graph[n.Calculator]; isTemplate && !slices.Contains(graph[t.Type], n.Calculator) {
				graph[t.Type] = append(graph[t.Type], n.Calculator)
			}
		}
	}
	for k := range graph {
		slices.Sort(graph[k])
	}
	return graph
}

func hasSelfLoop(node string, graph dependencyGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in sorted order.
func tarjanSCC(graph dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

func sccToCycle(scc []string, graph dependencyGraph) TemplateCycle {
	if len(scc) == 1 {
		return TemplateCycle{
			Path:    []string{scc[0], scc[0]},
			Message: fmt.Sprintf("template %s includes itself", scc[0]),
		}
	}

	path := reconstructCyclePath(scc, graph)
	return TemplateCycle{
		Path:    path,
		Message: fmt.Sprintf("templates include each other: %s", strings.Join(path, " → ")),
	}
}

// reconstructCyclePath walks from the smallest SCC member along edges that
// stay inside the SCC until it returns to the start.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	members := make(map[string]bool, len(scc))
	for _, node := range scc {
		members[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if members[neighbor] && !visited[neighbor] {
				next = neighbor
				break
			}
		}
		if next == "" {
			if slices.Contains(graph[current], start) {
				path = append(path, start)
			}
			break
		}

		path = append(path, next)
		current = next
	}

	return path
}
