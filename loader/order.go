// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package loader

import (
	"fmt"
	"strings"
)

// ResolveOrder sorts relations so that every relation comes after the relations it
// depends on. Relations without a mutual dependency keep their declaration order.
func ResolveOrder(relations []Relation) ([]Relation, error) {
	// Kahn's algorithm; the ready set is kept in declaration order for determinism
	index := make(map[string]int, len(relations))
	for i, rel := range relations {
		if err := rel.Validate(); err != nil {
			return nil, err
		}
		if _, dup := index[rel.Name]; dup {
			return nil, fmt.Errorf("%w: relation %q declared twice", ErrInvalidConfiguration, rel.Name)
		}
		index[rel.Name] = i
	}

	inDegree := make([]int, len(relations))
	children := make([][]int, len(relations))
	for i, rel := range relations {
		for _, parent := range rel.DependsOn {
			p, ok := index[parent]
			if !ok {
				return nil, fmt.Errorf("%w: relation %q depends on unknown relation %q",
					ErrInvalidConfiguration, rel.Name, parent)
			}
			inDegree[i]++
			children[p] = append(children[p], i)
		}
	}

	ready := make([]bool, len(relations))
	for i := range relations {
		ready[i] = inDegree[i] == 0
	}
	done := make([]bool, len(relations))

	result := make([]Relation, 0, len(relations))
	for len(result) < len(relations) {
		next := -1
		for i := range relations {
			if ready[i] && !done[i] {
				next = i
				break
			}
		}
		if next < 0 {
			var pending []string
			for i, rel := range relations {
				if !done[i] {
					pending = append(pending, rel.Name)
				}
			}
			return nil, fmt.Errorf("%w: circular dependency among relations %s",
				ErrInvalidConfiguration, strings.Join(pending, ", "))
		}

		done[next] = true
		result = append(result, relations[next])
		for _, child := range children[next] {
			inDegree[child]--
			if inDegree[child] == 0 {
				ready[child] = true
			}
		}
	}

	return result, nil
}
