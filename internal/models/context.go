// Package models defines the domain types for Ansuz.
package models

import (
	"strings"
	"time"
)

// EntityType discriminates the context entity kinds.
type EntityType string

const (
	TypeBusinessRule  EntityType = "business_rule"
	TypeGlossaryEntry EntityType = "glossary_entry"
	TypePattern       EntityType = "pattern"
	TypeConvention    EntityType = "convention"
	TypeDocument      EntityType = "document"
)

// EntityTypes lists every context entity kind.
var EntityTypes = []EntityType{
	TypeBusinessRule, TypeGlossaryEntry, TypePattern, TypeConvention, TypeDocument,
}

// Valid reports whether t names a known entity kind.
func (t EntityType) Valid() bool {
	switch t {
	case TypeBusinessRule, TypeGlossaryEntry, TypePattern, TypeConvention, TypeDocument:
		return true
	}
	return false
}

// NewEntity returns an empty entity of kind t, or false for unknown kinds.
func NewEntity(t EntityType) (ContextEntity, bool) {
	switch t {
	case TypeBusinessRule:
		return &BusinessRule{}, true
	case TypeGlossaryEntry:
		return &GlossaryEntry{}, true
	case TypePattern:
		return &Pattern{}, true
	case TypeConvention:
		return &Convention{}, true
	case TypeDocument:
		return &Document{}, true
	}
	return nil, false
}

// Scope identifies who owns a context entity. ProjectID is empty for
// repo-level entries.
type Scope struct {
	RepoID    string `json:"repo_id"`
	ProjectID string `json:"project_id,omitempty"`
}

// ContextEntity is the interface shared by the five context kinds. The
// embedding lifecycle and search hydration dispatch on Type.
type ContextEntity interface {
	Type() EntityType
	EntityID() string
	EntityScope() Scope
	// CanonicalText concatenates the semantically meaningful fields in a
	// fixed order. The same string feeds both the content hash and the
	// embedding input so the two never diverge.
	CanonicalText() string
	// DisplayTitle is the human-addressable name shown in search results.
	DisplayTitle() string
	Updated() time.Time
}

// Meta carries identity and timestamps common to every context kind.
type Meta struct {
	ID        string    `json:"id"`
	Scope     Scope     `json:"scope"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m Meta) EntityID() string   { return m.ID }
func (m Meta) EntityScope() Scope { return m.Scope }
func (m Meta) Updated() time.Time { return m.UpdatedAt }

// BusinessRule captures a domain rule with optional validation logic.
type BusinessRule struct {
	Meta
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	ValidationLogic string   `json:"validation_logic,omitempty"`
	Examples        []string `json:"examples,omitempty"`
	RelatedDomains  []string `json:"related_domains,omitempty"`
	Category        string   `json:"category,omitempty"`
	Priority        string   `json:"priority,omitempty"`
}

func (r *BusinessRule) Type() EntityType     { return TypeBusinessRule }
func (r *BusinessRule) DisplayTitle() string { return r.Name }

func (r *BusinessRule) CanonicalText() string {
	return canonical(
		r.Name,
		r.Description,
		r.ValidationLogic,
		strings.Join(r.Examples, "\n"),
		strings.Join(r.RelatedDomains, ", "),
		r.Category,
	)
}

// GlossaryEntry defines a term of the project vocabulary.
type GlossaryEntry struct {
	Meta
	Term       string   `json:"term"`
	Definition string   `json:"definition"`
	Aliases    []string `json:"aliases,omitempty"`
	Examples   []string `json:"examples,omitempty"`
	Domain     string   `json:"domain,omitempty"`
}

func (g *GlossaryEntry) Type() EntityType     { return TypeGlossaryEntry }
func (g *GlossaryEntry) DisplayTitle() string { return g.Term }

func (g *GlossaryEntry) CanonicalText() string {
	return canonical(
		g.Term,
		g.Definition,
		strings.Join(g.Aliases, ", "),
		strings.Join(g.Examples, "\n"),
		g.Domain,
	)
}

// Pattern records a reusable implementation approach.
type Pattern struct {
	Meta
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	WhenToUse      string   `json:"when_to_use,omitempty"`
	Implementation string   `json:"implementation,omitempty"`
	Examples       []string `json:"examples,omitempty"`
}

func (p *Pattern) Type() EntityType     { return TypePattern }
func (p *Pattern) DisplayTitle() string { return p.Name }

func (p *Pattern) CanonicalText() string {
	return canonical(
		p.Name,
		p.Description,
		p.WhenToUse,
		p.Implementation,
		strings.Join(p.Examples, "\n"),
	)
}

// Convention records an agreed-upon team practice.
type Convention struct {
	Meta
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Rationale   string   `json:"rationale,omitempty"`
	Examples    []string `json:"examples,omitempty"`
}

func (c *Convention) Type() EntityType     { return TypeConvention }
func (c *Convention) DisplayTitle() string { return c.Name }

func (c *Convention) CanonicalText() string {
	return canonical(
		c.Name,
		c.Description,
		c.Rationale,
		strings.Join(c.Examples, "\n"),
	)
}

// Document stores free-form reference material; long documents are chunked
// before embedding.
type Document struct {
	Meta
	Title   string   `json:"title"`
	Content string   `json:"content"`
	DocType string   `json:"doc_type,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	// Source is the docs-directory path for imported files, empty for
	// documents created through the API.
	Source string `json:"source,omitempty"`
}

func (d *Document) Type() EntityType     { return TypeDocument }
func (d *Document) DisplayTitle() string { return d.Title }

func (d *Document) CanonicalText() string {
	return canonical(
		d.Title,
		d.Content,
		strings.Join(d.Tags, ", "),
	)
}

// canonical joins non-empty parts with double newlines, keeping the field
// order stable so identical entity state always hashes identically.
func canonical(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}
