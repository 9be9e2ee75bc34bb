package models

import "time"

// TicketStatus is the stored workflow state of a ticket.
type TicketStatus string

const (
	StatusPending    TicketStatus = "pending"
	StatusInProgress TicketStatus = "in-progress"
	StatusCompleted  TicketStatus = "completed"
	StatusBlocked    TicketStatus = "blocked"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusBlocked:
		return true
	}
	return false
}

// TicketPriority orders recommendation ranking.
type TicketPriority string

const (
	PriorityCritical TicketPriority = "critical"
	PriorityHigh     TicketPriority = "high"
	PriorityMedium   TicketPriority = "medium"
	PriorityLow      TicketPriority = "low"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Rank maps priority to a sortable value; lower sorts first.
func (p TicketPriority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	}
	return 4
}

// Ticket is an atomic unit of work. DependsOn holds ticket ids; titles used
// at batch-creation time are resolved to ids before persisting.
type Ticket struct {
	ID        string         `json:"id"`
	ProjectID string         `json:"project_id"`
	Title     string         `json:"title"`
	Status    TicketStatus   `json:"status"`
	Priority  TicketPriority `json:"priority"`
	Order     int            `json:"order"`
	DependsOn []string       `json:"depends_on,omitempty"`
	Type      string         `json:"type,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
