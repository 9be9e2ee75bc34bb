// Package planner derives execution state from the ticket dependency graph:
// which tickets are unblocked, in what order to work them, and whether a
// submitted batch forms a DAG at all.
package planner

import "github.com/starford/ansuz/internal/models"

// Node holds the forward and reverse edges for one ticket.
type Node struct {
	Dependencies []string `json:"dependencies"`
	Dependents   []string `json:"dependents"`
}

// BuildGraph materializes the adjacency map for a project's tickets.
// Dependents are the inverted depends-on edges. A depends-on id that does
// not resolve to a ticket in the set is dropped; stale references left by
// deletions elsewhere must not poison planning.
func BuildGraph(tickets []models.Ticket) map[string]*Node {
	graph := make(map[string]*Node, len(tickets))
	for _, t := range tickets {
		graph[t.ID] = &Node{}
	}
	for _, t := range tickets {
		for _, dep := range t.DependsOn {
			target, ok := graph[dep]
			if !ok {
				continue
			}
			graph[t.ID].Dependencies = append(graph[t.ID].Dependencies, dep)
			target.Dependents = append(target.Dependents, t.ID)
		}
	}
	return graph
}
