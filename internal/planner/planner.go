package planner

import (
	"sort"

	"github.com/starford/ansuz/internal/models"
)

// ExecutionPlan partitions a project's tickets into available and blocked
// sets, with a single top recommendation when any ticket is available.
type ExecutionPlan struct {
	Available   []models.Ticket `json:"available"`
	Blocked     []models.Ticket `json:"blocked"`
	Recommended *models.Ticket  `json:"recommended,omitempty"`
}

// Compute derives the execution plan. State is derived, never stored:
// a ticket is available iff it is pending and every dependency is completed;
// blocked iff it is not completed and not all dependencies are completed.
// Completed and in-progress tickets pass through their stored status.
func Compute(tickets []models.Ticket) ExecutionPlan {
	graph := BuildGraph(tickets)
	byID := make(map[string]models.Ticket, len(tickets))
	for _, t := range tickets {
		byID[t.ID] = t
	}

	var plan ExecutionPlan
	for _, t := range tickets {
		depsDone := true
		for _, dep := range graph[t.ID].Dependencies {
			if byID[dep].Status != models.StatusCompleted {
				depsDone = false
				break
			}
		}
		if t.Status == models.StatusPending && depsDone {
			plan.Available = append(plan.Available, t)
		}
		if t.Status != models.StatusCompleted && !depsDone {
			plan.Blocked = append(plan.Blocked, t)
		}
	}

	// Total order: priority rank first, creation order as the tie-break.
	sort.Slice(plan.Available, func(i, j int) bool {
		a, b := plan.Available[i], plan.Available[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		return a.Order < b.Order
	})
	sort.Slice(plan.Blocked, func(i, j int) bool {
		return plan.Blocked[i].Order < plan.Blocked[j].Order
	})

	if len(plan.Available) > 0 {
		top := plan.Available[0]
		plan.Recommended = &top
	}
	return plan
}
