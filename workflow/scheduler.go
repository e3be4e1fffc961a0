package workflow

import "github.com/BaSui01/canvasflow/types"

// ExecutionOrder computes a dependency-respecting execution order for the
// given graph snapshot using Kahn's algorithm. Every node appears after all
// nodes it depends on. The ready queue is seeded with in-degree-zero nodes
// in insertion order, which makes the tie-break between independent nodes
// deterministic and stable.
//
// If the graph contains cycles the function never hangs: it returns only
// the resolvable prefix. Nodes inside a cycle, or downstream of one, are
// excluded, so a result shorter than len(nodes) signals unresolvable nodes
// to the caller.
//
// ExecutionOrder is a pure function: it never mutates its inputs and is
// safe to call repeatedly.
func ExecutionOrder(nodes []types.Node, edges []types.Edge) []types.Node {
	if len(nodes) == 0 {
		return nil
	}

	inDegree := make(map[string]int, len(nodes))
	for _, n := range nodes {
		inDegree[n.ID] = 0
	}
	for _, e := range edges {
		if _, ok := inDegree[e.Target]; ok {
			inDegree[e.Target]++
		}
	}

	byID := make(map[string]types.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	queue := make([]types.Node, 0, len(nodes))
	for _, n := range nodes {
		if inDegree[n.ID] == 0 {
			queue = append(queue, n)
		}
	}

	order := make([]types.Node, 0, len(nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		for _, e := range edges {
			if e.Source != node.ID {
				continue
			}
			if _, ok := inDegree[e.Target]; !ok {
				continue
			}
			inDegree[e.Target]--
			if inDegree[e.Target] == 0 {
				if next, ok := byID[e.Target]; ok {
					queue = append(queue, next)
				}
			}
		}
	}

	return order
}
