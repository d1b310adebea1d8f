package analyzer

import "sort"

// ModuleUnit is the name of the inference unit for module-level code.
const ModuleUnit = ""

// CallGraph is the static call graph between inference units, keyed by
// qualified function name. It is built once during Pass 1.
type CallGraph struct {
	nodes []string
	index map[string]int
	edges map[string]map[string]bool
}

func NewCallGraph() *CallGraph {
	return &CallGraph{
		index: make(map[string]int),
		edges: make(map[string]map[string]bool),
	}
}

// AddNode registers a unit. Nodes keep insertion (program) order.
func (g *CallGraph) AddNode(name string) {
	if _, ok := g.index[name]; ok {
		return
	}
	g.index[name] = len(g.nodes)
	g.nodes = append(g.nodes, name)
	g.edges[name] = make(map[string]bool)
}

// AddEdge records that caller calls callee.
func (g *CallGraph) AddEdge(caller, callee string) {
	g.AddNode(caller)
	g.AddNode(callee)
	g.edges[caller][callee] = true
}

// Nodes returns the units in program order.
func (g *CallGraph) Nodes() []string {
	out := make([]string, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Callees returns the direct callees of name, sorted by program order.
func (g *CallGraph) Callees(name string) []string {
	var out []string
	for c := range g.edges[name] {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return g.index[out[i]] < g.index[out[j]] })
	return out
}

// SCCs returns the strongly connected components in reverse topological
// order: every component comes after all components it calls into.
func (g *CallGraph) SCCs() [][]string {
	t := &tarjan{
		g:       g,
		index:   make(map[string]int),
		lowlink: make(map[string]int),
		onStack: make(map[string]bool),
	}
	for _, n := range g.nodes {
		if _, seen := t.index[n]; !seen {
			t.strongConnect(n)
		}
	}
	return t.sccs
}

type tarjan struct {
	g       *CallGraph
	counter int
	index   map[string]int
	lowlink map[string]int
	onStack map[string]bool
	stack   []string
	sccs    [][]string
}

func (t *tarjan) strongConnect(v string) {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.g.Callees(v) {
		if _, seen := t.index[w]; !seen {
			t.strongConnect(w)
			t.lowlink[v] = min(t.lowlink[v], t.lowlink[w])
		} else if t.onStack[w] {
			t.lowlink[v] = min(t.lowlink[v], t.index[w])
		}
	}

	if t.lowlink[v] == t.index[v] {
		var scc []string
		for {
			w := t.stack[len(t.stack)-1]
			t.stack = t.stack[:len(t.stack)-1]
			t.onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		sort.Slice(scc, func(i, j int) bool { return t.g.index[scc[i]] < t.g.index[scc[j]] })
		t.sccs = append(t.sccs, scc)
	}
}

// Order ranks units for solving: callees before callers, module level last.
// Units in a recursive component share a rank and are reported in recursive.
func (g *CallGraph) Order() (rank map[string]int, recursive map[string]bool) {
	rank = make(map[string]int)
	recursive = make(map[string]bool)
	r := 0
	for _, scc := range g.SCCs() {
		self := len(scc) == 1 && g.edges[scc[0]][scc[0]]
		for _, n := range scc {
			if n == ModuleUnit {
				continue
			}
			rank[n] = r
			if len(scc) > 1 || self {
				recursive[n] = true
			}
		}
		r++
	}
	rank[ModuleUnit] = r
	return rank, recursive
}
