package filter

import "github.com/google/uuid"

// Scope names the document value a filter or order applies to.
// The set of scopes is closed: SuggestionScope, ResponseScope, MetadataScope, RecordScope.
type Scope interface {
	isScope()
}

// SuggestionScope targets a property of the suggestion for one question.
// An empty Property means the suggested value.
type SuggestionScope struct {
	Question string
	Property string
}

// ResponseScope targets the nested responses of a record.
// With a Question it targets that question's value; otherwise Property
// (for example "status") of the response itself. User restricts matching
// to responses of one user.
type ResponseScope struct {
	Question string
	Property string
	User     *uuid.UUID
}

// MetadataScope targets one metadata property.
type MetadataScope struct {
	Property string
}

// RecordScope targets a top-level record property such as status or inserted_at.
type RecordScope struct {
	Property string
}

func (SuggestionScope) isScope() {}
func (ResponseScope) isScope()   {}
func (MetadataScope) isScope()   {}
func (RecordScope) isScope()     {}

// ResponseStatusProperty is the response property holding the response status.
const ResponseStatusProperty = "status"

// IsStatus reports whether the scope targets the response status.
func (s ResponseScope) IsStatus() bool {
	return s.Question == "" && s.Property == ResponseStatusProperty
}

// WithUser returns a copy of the scope restricted to the given user.
func (s ResponseScope) WithUser(userID uuid.UUID) ResponseScope {
	s.User = &userID
	return s
}
