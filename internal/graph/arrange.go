package graph

import (
	"constructure/internal/domain"
	"constructure/internal/sequence"
)

// Arrange orders nodes for display, each edge meaning source before target
func Arrange(nodes []domain.CourseNode, edges []domain.CourseEdge) sequence.Result[domain.CourseNode] {
	deps := make([]sequence.Edge, 0, len(edges))
	for _, e := range edges {
		deps = append(deps, sequence.Edge{From: e.SourceID, To: e.TargetID})
	}
	return sequence.Order(nodes, deps, func(n domain.CourseNode) string { return n.ID })
}

// FilterEdges drops edges whose source or target is not among nodes
func FilterEdges(nodes []domain.CourseNode, edges []domain.CourseEdge) []domain.CourseEdge {
	known := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		known[n.ID] = struct{}{}
	}

	kept := make([]domain.CourseEdge, 0, len(edges))
	for _, e := range edges {
		_, okSource := known[e.SourceID]
		_, okTarget := known[e.TargetID]
		if okSource && okTarget {
			kept = append(kept, e)
		}
	}
	return kept
}
