// Package sequence orders a course graph for read-only presentation.
package sequence

// Edge is a directed dependency From -> To between two node ids
type Edge struct {
	From string
	To   string
}

// Result is an ordered node list. HadCycle reports that some nodes never
// became ready and were appended in input order instead.
type Result[T any] struct {
	Nodes    []T
	HadCycle bool
}

// Order runs Kahn's algorithm over nodes using a FIFO queue, so ties resolve in
// the order nodes became ready (input order for the initial zero in-degree set).
// Edges naming an unknown id are ignored. Nodes left over because of a cycle are
// appended at the end in their original input order; Order never fails.
func Order[T any](nodes []T, edges []Edge, id func(T) string) Result[T] {
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		key := id(n)
		if _, seen := index[key]; !seen {
			index[key] = i
		}
	}

	successors := make([][]int, len(nodes))
	inDegree := make([]int, len(nodes))
	for _, e := range edges {
		from, okFrom := index[e.From]
		to, okTo := index[e.To]
		if !okFrom || !okTo {
			continue
		}
		successors[from] = append(successors[from], to)
		inDegree[to]++
	}

	queue := make([]int, 0, len(nodes))
	for i := range nodes {
		if inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	ordered := make([]T, 0, len(nodes))
	emitted := make([]bool, len(nodes))
	for head := 0; head < len(queue); head++ {
		current := queue[head]
		emitted[current] = true
		ordered = append(ordered, nodes[current])

		for _, next := range successors[current] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	result := Result[T]{Nodes: ordered}
	for i, n := range nodes {
		if !emitted[i] {
			result.Nodes = append(result.Nodes, n)
			result.HadCycle = true
		}
	}
	return result
}
