package schedule

import (
	"errors"
	"sort"
)

// ErrCycle is returned by TopologicalSort when the graph is not acyclic.
var ErrCycle = errors.New("graph contains a cycle")

// Graph is a directed graph over task IDs. Edges point from prerequisite to
// dependent, so a topological order lists prerequisites first. Node order is
// the insertion order and breaks ties wherever traversal order matters.
type Graph struct {
	order []string
	index map[string]int
	out   map[string][]string
	edges map[[2]string]bool
}

func NewGraph() *Graph {
	return &Graph{
		index: make(map[string]int),
		out:   make(map[string][]string),
		edges: make(map[[2]string]bool),
	}
}

// AddNode registers id. Adding an existing node is a no-op.
func (g *Graph) AddNode(id string) {
	if _, ok := g.index[id]; ok {
		return
	}
	g.index[id] = len(g.order)
	g.order = append(g.order, id)
}

// AddEdge adds from -> to, registering both nodes. Returns false when the
// edge already existed.
func (g *Graph) AddEdge(from, to string) bool {
	g.AddNode(from)
	g.AddNode(to)
	key := [2]string{from, to}
	if g.edges[key] {
		return false
	}
	g.edges[key] = true
	g.out[from] = append(g.out[from], to)
	return true
}

func (g *Graph) HasNode(id string) bool {
	_, ok := g.index[id]
	return ok
}

func (g *Graph) HasEdge(from, to string) bool {
	return g.edges[[2]string{from, to}]
}

// Nodes returns node IDs in insertion order.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.order...)
}

func (g *Graph) Successors(id string) []string {
	return append([]string(nil), g.out[id]...)
}

func (g *Graph) Len() int { return len(g.order) }

// Reachable reports whether to can be reached from from by following edges.
// A node reaches itself.
func (g *Graph) Reachable(from, to string) bool {
	if from == to {
		return true
	}
	seen := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range g.out[n] {
			if next == to {
				return true
			}
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

// FindCycle returns one cycle as a closed walk [a, b, ..., a], or nil when
// the graph is acyclic.
func (g *Graph) FindCycle() []string {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(g.order))
	parent := make(map[string]string, len(g.order))

	var cycle []string
	var visit func(n string) bool
	visit = func(n string) bool {
		color[n] = grey
		for _, next := range g.out[n] {
			switch color[next] {
			case grey:
				// Back edge: walk the DFS tree from n up to next.
				path := []string{n}
				for cur := n; cur != next; {
					cur = parent[cur]
					path = append(path, cur)
				}
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				cycle = append(path, next)
				return true
			case white:
				parent[next] = n
				if visit(next) {
					return true
				}
			}
		}
		color[n] = black
		return false
	}

	for _, n := range g.order {
		if color[n] == white && visit(n) {
			return cycle
		}
	}
	return nil
}

// TopologicalSort orders nodes with Kahn's algorithm, breaking ties by
// insertion order. Returns ErrCycle when some nodes could not be ordered.
func (g *Graph) TopologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(g.order))
	for _, n := range g.order {
		for _, next := range g.out[n] {
			inDegree[next]++
		}
	}

	var ready []string
	for _, n := range g.order {
		if inDegree[n] == 0 {
			ready = append(ready, n)
		}
	}

	result := make([]string, 0, len(g.order))
	for len(ready) > 0 {
		current := ready[0]
		ready = ready[1:]
		result = append(result, current)

		var newReady []string
		for _, next := range g.out[current] {
			inDegree[next]--
			if inDegree[next] == 0 {
				newReady = append(newReady, next)
			}
		}
		if len(newReady) > 0 {
			ready = append(ready, newReady...)
			sort.SliceStable(ready, func(i, j int) bool {
				return g.index[ready[i]] < g.index[ready[j]]
			})
		}
	}

	if len(result) != len(g.order) {
		return nil, ErrCycle
	}
	return result, nil
}
