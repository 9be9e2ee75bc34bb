package planner

import "github.com/starford/ansuz/internal/apperr"

// Draft is a ticket as submitted for batch creation: dependencies reference
// sibling tickets by title, not yet resolved to ids.
type Draft struct {
	Title     string
	DependsOn []string
}

// CheckSelfDependency rejects any draft naming itself as a dependency. Runs
// before cycle detection so the caller gets the dedicated error.
func CheckSelfDependency(drafts []Draft) error {
	for _, d := range drafts {
		for _, dep := range d.DependsOn {
			if dep == d.Title {
				return &apperr.SelfDependencyError{Title: d.Title}
			}
		}
	}
	return nil
}

// DetectCycle runs a depth-first search over the title graph and reports the
// first cycle found as the ordered title sequence from the repeated node
// back around to itself. Detection is fail-fast: one cycle is enough to
// reject the batch, so no further scanning happens. Dependencies on titles
// outside the batch are ignored here; resolution validates them separately.
func DetectCycle(drafts []Draft) error {
	idx := make(map[string]int, len(drafts))
	for i, d := range drafts {
		idx[d.Title] = i
	}
	adj := make([][]int, len(drafts))
	for i, d := range drafts {
		for _, dep := range d.DependsOn {
			if j, ok := idx[dep]; ok {
				adj[i] = append(adj[i], j)
			}
		}
	}

	const (
		white = iota // unvisited
		gray         // on the current DFS path
		black        // fully explored
	)
	color := make([]int, len(drafts))

	// Explicit stack with one mutable path; frames track how far into a
	// node's edge list the walk has progressed.
	type frame struct {
		node int
		edge int
	}
	var stack []frame
	var path []int

	for start := range drafts {
		if color[start] != white {
			continue
		}
		color[start] = gray
		stack = append(stack[:0], frame{node: start})
		path = append(path[:0], start)

		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			if f.edge < len(adj[f.node]) {
				next := adj[f.node][f.edge]
				f.edge++
				switch color[next] {
				case gray:
					// Back-edge into the current path: materialize the cycle.
					from := 0
					for i, n := range path {
						if n == next {
							from = i
							break
						}
					}
					titles := make([]string, 0, len(path)-from+1)
					for _, n := range path[from:] {
						titles = append(titles, drafts[n].Title)
					}
					titles = append(titles, drafts[next].Title)
					return &apperr.CycleError{Path: titles}
				case white:
					color[next] = gray
					stack = append(stack, frame{node: next})
					path = append(path, next)
				}
			} else {
				color[f.node] = black
				stack = stack[:len(stack)-1]
				path = path[:len(path)-1]
			}
		}
	}
	return nil
}
