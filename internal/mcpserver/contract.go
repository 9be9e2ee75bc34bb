package mcpserver

// ContextFormatContract describes the entity kinds and ticket draft format
// that LLM consumers should follow when storing context or tickets.
const ContextFormatContract = `# Ansuz Context & Ticket Contract

Ansuz stores five kinds of context entities and project ticket batches.
Every store_context call takes a ` + "`" + `type` + "`" + ` plus a ` + "`" + `fields` + "`" + ` JSON object; every
store_tickets call takes a ` + "`" + `tickets` + "`" + ` JSON array.

## Context entity kinds

` + "```" + `json
// type: business_rule
{"name": "Refund window", "description": "Refunds allowed within 30 days.",
 "validation_logic": "order.age_days <= 30", "examples": ["..."],
 "related_domains": ["billing"], "category": "payments", "priority": "high"}

// type: glossary_entry
{"term": "SKU", "definition": "Stock keeping unit.",
 "aliases": ["product code"], "examples": ["..."], "domain": "catalog"}

// type: pattern
{"name": "Repository pattern", "description": "Wrap data access.",
 "when_to_use": "Any persistent aggregate.", "implementation": "...",
 "examples": ["..."]}

// type: convention
{"name": "Error wrapping", "description": "Wrap with package prefix.",
 "rationale": "Tracing failures across layers.", "examples": ["..."]}

// type: document
{"title": "Payment flow design", "content": "Markdown body...",
 "doc_type": "design", "tags": ["payments"]}
` + "```" + `

## Rules

1. ` + "`" + `repo_id` + "`" + ` is required on every store and query. It scopes all context.
2. ` + "`" + `project_id` + "`" + ` is optional. Omit it for repo-wide context. Project-scoped
   writes are rejected unless the project has context inheritance enabled.
3. Required fields per kind: business_rule needs name + description;
   glossary_entry needs term + definition; pattern and convention need
   name + description; document needs title + content.
4. Names and terms are unique per repo for business rules and glossary
   entries. Duplicate stores are rejected.
5. Queries search by meaning, not keywords. Phrase them as natural
   language ("how do we handle refunds"), not identifier fragments.

## Ticket drafts

` + "```" + `json
[{"title": "Design schema", "priority": "high", "type": "task"},
 {"title": "Write migrations", "priority": "critical",
  "depends_on": ["Design schema"]}]
` + "```" + `

1. ` + "`" + `depends_on` + "`" + ` references other tickets by exact title. Forward references
   within the same batch are allowed.
2. Priorities: critical, high, medium, low. Omitted priority means medium.
3. A batch containing a self-dependency or a dependency cycle is rejected
   as a whole; nothing from it is stored.
4. Ticket statuses: pending, in-progress, completed, blocked. New tickets
   start pending; availability is derived from dependencies, never stored.
`
