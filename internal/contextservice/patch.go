package contextservice

import (
	"encoding/json"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

// Patch is a partial update for one entity kind. Fields are pointers so
// "not provided" is distinguishable from "set to zero value"; only supplied
// fields change.
type Patch interface{ patchFor() models.EntityType }

// BusinessRulePatch updates a business rule.
type BusinessRulePatch struct {
	Name            *string   `json:"name,omitempty"`
	Description     *string   `json:"description,omitempty"`
	ValidationLogic *string   `json:"validation_logic,omitempty"`
	Examples        *[]string `json:"examples,omitempty"`
	RelatedDomains  *[]string `json:"related_domains,omitempty"`
	Category        *string   `json:"category,omitempty"`
	Priority        *string   `json:"priority,omitempty"`
}

func (BusinessRulePatch) patchFor() models.EntityType { return models.TypeBusinessRule }

// GlossaryEntryPatch updates a glossary entry.
type GlossaryEntryPatch struct {
	Term       *string   `json:"term,omitempty"`
	Definition *string   `json:"definition,omitempty"`
	Aliases    *[]string `json:"aliases,omitempty"`
	Examples   *[]string `json:"examples,omitempty"`
	Domain     *string   `json:"domain,omitempty"`
}

func (GlossaryEntryPatch) patchFor() models.EntityType { return models.TypeGlossaryEntry }

// PatternPatch updates a pattern.
type PatternPatch struct {
	Name           *string   `json:"name,omitempty"`
	Description    *string   `json:"description,omitempty"`
	WhenToUse      *string   `json:"when_to_use,omitempty"`
	Implementation *string   `json:"implementation,omitempty"`
	Examples       *[]string `json:"examples,omitempty"`
}

func (PatternPatch) patchFor() models.EntityType { return models.TypePattern }

// ConventionPatch updates a convention.
type ConventionPatch struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Rationale   *string   `json:"rationale,omitempty"`
	Examples    *[]string `json:"examples,omitempty"`
}

func (ConventionPatch) patchFor() models.EntityType { return models.TypeConvention }

// DocumentPatch updates a document.
type DocumentPatch struct {
	Title   *string   `json:"title,omitempty"`
	Content *string   `json:"content,omitempty"`
	DocType *string   `json:"doc_type,omitempty"`
	Tags    *[]string `json:"tags,omitempty"`
}

func (DocumentPatch) patchFor() models.EntityType { return models.TypeDocument }

// DecodePatch unmarshals a JSON object into the patch type for t. Both the
// HTTP and MCP surfaces accept patches this way.
func DecodePatch(t models.EntityType, data []byte) (Patch, error) {
	switch t {
	case models.TypeBusinessRule:
		var p BusinessRulePatch
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, apperr.Validation("invalid JSON body")
		}
		return p, nil
	case models.TypeGlossaryEntry:
		var p GlossaryEntryPatch
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, apperr.Validation("invalid JSON body")
		}
		return p, nil
	case models.TypePattern:
		var p PatternPatch
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, apperr.Validation("invalid JSON body")
		}
		return p, nil
	case models.TypeConvention:
		var p ConventionPatch
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, apperr.Validation("invalid JSON body")
		}
		return p, nil
	case models.TypeDocument:
		var p DocumentPatch
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, apperr.Validation("invalid JSON body")
		}
		return p, nil
	default:
		return nil, apperr.Validation("unknown entity type " + string(t))
	}
}

// applyPatch copies supplied patch fields onto the loaded entity. The patch
// kind must match the entity kind.
func applyPatch(e models.ContextEntity, p Patch) error {
	if p == nil {
		return apperr.Validation("no fields to update")
	}
	if p.patchFor() != e.Type() {
		return apperr.Validation("patch type does not match entity type")
	}
	switch v := e.(type) {
	case *models.BusinessRule:
		patch := p.(BusinessRulePatch)
		setString(&v.Name, patch.Name)
		setString(&v.Description, patch.Description)
		setString(&v.ValidationLogic, patch.ValidationLogic)
		setList(&v.Examples, patch.Examples)
		setList(&v.RelatedDomains, patch.RelatedDomains)
		setString(&v.Category, patch.Category)
		setString(&v.Priority, patch.Priority)
	case *models.GlossaryEntry:
		patch := p.(GlossaryEntryPatch)
		setString(&v.Term, patch.Term)
		setString(&v.Definition, patch.Definition)
		setList(&v.Aliases, patch.Aliases)
		setList(&v.Examples, patch.Examples)
		setString(&v.Domain, patch.Domain)
	case *models.Pattern:
		patch := p.(PatternPatch)
		setString(&v.Name, patch.Name)
		setString(&v.Description, patch.Description)
		setString(&v.WhenToUse, patch.WhenToUse)
		setString(&v.Implementation, patch.Implementation)
		setList(&v.Examples, patch.Examples)
	case *models.Convention:
		patch := p.(ConventionPatch)
		setString(&v.Name, patch.Name)
		setString(&v.Description, patch.Description)
		setString(&v.Rationale, patch.Rationale)
		setList(&v.Examples, patch.Examples)
	case *models.Document:
		patch := p.(DocumentPatch)
		setString(&v.Title, patch.Title)
		setString(&v.Content, patch.Content)
		setString(&v.DocType, patch.DocType)
		setList(&v.Tags, patch.Tags)
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setList(dst *[]string, src *[]string) {
	if src != nil {
		*dst = *src
	}
}
