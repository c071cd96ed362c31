package domain

import (
	"time"

	"github.com/google/uuid"
)

// RecordStatus is the annotation progress of a record.
type RecordStatus string

const (
	RecordPending   RecordStatus = "pending"
	RecordCompleted RecordStatus = "completed"
)

// ResponseStatus is the status of a user response.
type ResponseStatus string

const (
	ResponseSubmitted ResponseStatus = "submitted"
	ResponseDiscarded ResponseStatus = "discarded"
	ResponseDraft     ResponseStatus = "draft"
	// ResponsePending matches records without a response (from the scoped user, if any).
	// It is never stored.
	ResponsePending ResponseStatus = "pending"
	// ResponseMissing is accepted by filters but never stored either.
	ResponseMissing ResponseStatus = "missing"
)

// SuggestionType is the origin of a suggestion.
type SuggestionType string

const (
	SuggestionModel SuggestionType = "model"
	SuggestionHuman SuggestionType = "human"
)

// Response is one user's answers for a record.
type Response struct {
	ID        uuid.UUID      `json:"id"`
	RecordID  uuid.UUID      `json:"record_id"`
	DatasetID uuid.UUID      `json:"dataset_id"`
	UserID    uuid.UUID      `json:"user_id"`
	Status    ResponseStatus `json:"status"`
	Values    map[string]any `json:"values,omitempty"`
}

// Suggestion is a pre-filled answer for one question of a record.
type Suggestion struct {
	ID        uuid.UUID      `json:"id"`
	RecordID  uuid.UUID      `json:"record_id"`
	DatasetID uuid.UUID      `json:"dataset_id"`
	Question  string         `json:"question"`
	Type      SuggestionType `json:"type,omitempty"`
	Score     any            `json:"score,omitempty"`
	Value     any            `json:"value"`
	Agent     string         `json:"agent,omitempty"`
}

// Vector is a record embedding in one vector space.
type Vector struct {
	RecordID         uuid.UUID `json:"record_id"`
	VectorSettingsID uuid.UUID `json:"vector_settings_id"`
	Value            []float32 `json:"value"`
}

// Record is the unit of indexing: one record is one search document.
type Record struct {
	ID          uuid.UUID      `json:"id"`
	DatasetID   uuid.UUID      `json:"dataset_id"`
	ExternalID  string         `json:"external_id,omitempty"`
	Fields      map[string]any `json:"fields"`
	Status      RecordStatus   `json:"status"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Responses   []Response     `json:"responses,omitempty"`
	Suggestions []Suggestion   `json:"suggestions,omitempty"`
	Vectors     []Vector       `json:"vectors,omitempty"`
	InsertedAt  time.Time      `json:"inserted_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// VectorFor returns the record's vector value for the given settings.
func (r *Record) VectorFor(settingsID uuid.UUID) ([]float32, bool) {
	for _, v := range r.Vectors {
		if v.VectorSettingsID == settingsID && len(v.Value) > 0 {
			return v.Value, true
		}
	}
	return nil, false
}
