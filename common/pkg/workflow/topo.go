/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package workflow

import (
	"fmt"
	"sort"
)

// Order returns the definition's nodes in topological order using Kahn's
// algorithm. Ties are broken by declaration order so the result is
// deterministic. A remaining cycle is an error.
func Order(d *Definition) ([]*Node, error) {
	indegree := make(map[string]int, len(d.Nodes))
	position := make(map[string]int, len(d.Nodes))
	for i := range d.Nodes {
		indegree[d.Nodes[i].Id] = 0
		position[d.Nodes[i].Id] = i
	}
	for _, edge := range d.Edges {
		if _, ok := indegree[edge.Target]; ok {
			indegree[edge.Target]++
		}
	}

	var ready []string
	for i := range d.Nodes {
		if indegree[d.Nodes[i].Id] == 0 {
			ready = append(ready, d.Nodes[i].Id)
		}
	}

	ordered := make([]*Node, 0, len(d.Nodes))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool {
			return position[ready[i]] < position[ready[j]]
		})
		id := ready[0]
		ready = ready[1:]
		ordered = append(ordered, d.NodeById(id))

		for _, edge := range d.OutgoingEdges(id) {
			if _, ok := indegree[edge.Target]; !ok {
				continue
			}
			indegree[edge.Target]--
			if indegree[edge.Target] == 0 {
				ready = append(ready, edge.Target)
			}
		}
	}

	if len(ordered) != len(d.Nodes) {
		return nil, fmt.Errorf("workflow graph contains a cycle")
	}
	return ordered, nil
}
