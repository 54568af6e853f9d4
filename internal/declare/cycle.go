package declare

// refGraph maps a label to the labels its data references. Nodes keep
// declaration order so cycle detection is deterministic.
type refGraph struct {
	nodes []string
	edges map[string][]string
}

func newRefGraph() *refGraph {
	return &refGraph{edges: make(map[string][]string)}
}

func (g *refGraph) addNode(label string, refs []string) {
	g.nodes = append(g.nodes, label)
	g.edges[label] = refs
}

// findCycles returns one path per reference cycle, starting and ending at
// the earliest declared label of the cycle. An acyclic graph returns nil.
func (g *refGraph) findCycles() [][]string {
	order := make(map[string]int, len(g.nodes))
	for i, n := range g.nodes {
		order[n] = i
	}

	var cycles [][]string
	for _, scc := range tarjanSCC(g) {
		if len(scc) > 1 || hasSelfLoop(scc[0], g) {
			start := scc[0]
			for _, n := range scc[1:] {
				if order[n] < order[start] {
					start = n
				}
			}
			cycles = append(cycles, reconstructCyclePath(start, scc, g))
		}
	}

	// Report cycles in the order their first label was declared.
	for i := 1; i < len(cycles); i++ {
		for j := i; j > 0 && order[cycles[j][0]] < order[cycles[j-1][0]]; j-- {
			cycles[j], cycles[j-1] = cycles[j-1], cycles[j]
		}
	}
	return cycles
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, g *refGraph) bool {
	for _, neighbor := range g.edges[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(g *refGraph) [][]string {
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

		for _, w := range g.edges[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack into an SCC
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
			sccs = append(sccs, scc)
		}
	}

	for _, node := range g.nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// reconstructCyclePath returns the shortest path inside the SCC from start
// back to start. A self-loop yields [start, start].
func reconstructCyclePath(start string, scc []string, g *refGraph) []string {
	sccSet := make(map[string]bool, len(scc))
	for _, node := range scc {
		sccSet[node] = true
	}

	parent := make(map[string]string)
	seen := map[string]bool{start: true}
	queue := []string{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range g.edges[current] {
			if !sccSet[next] {
				continue
			}
			if next == start {
				var back []string
				for n := current; n != start; n = parent[n] {
					back = append(back, n)
				}
				path := []string{start}
				for i := len(back) - 1; i >= 0; i-- {
					path = append(path, back[i])
				}
				return append(path, start)
			}
			if !seen[next] {
				seen[next] = true
				parent[next] = current
				queue = append(queue, next)
			}
		}
	}

	return []string{start}
}
