package models

import "time"

// Project groups tickets and optionally inherits repo-level context.
// Project-scoped context writes are rejected unless InheritContext is set.
type Project struct {
	ID             string    `json:"id"`
	RepoID         string    `json:"repo_id"`
	Name           string    `json:"name"`
	InheritContext bool      `json:"inherit_context"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
