package searchengine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kailas-cloud/annosearch/internal/domain"
)

// Document is the backend representation of a record.
type Document = map[string]any

// RecordDocument builds the full document of a record.
func RecordDocument(ds *domain.Dataset, r *domain.Record) (Document, error) {
	fields := make(map[string]any, len(r.Fields))
	for name, value := range r.Fields {
		f, ok := ds.FieldByName(name)
		if ok && f.Type == domain.FieldCustom {
			if _, isString := value.(string); !isString {
				b, err := json.Marshal(value)
				if err != nil {
					return nil, fmt.Errorf("serialize custom field %q: %w", name, err)
				}
				value = string(b)
			}
		}
		fields[name] = value
	}

	metadata := r.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	responses := make([]any, 0, len(r.Responses))
	for i := range r.Responses {
		responses = append(responses, ResponseDocument(&r.Responses[i]))
	}

	suggestions := make(map[string]any, len(r.Suggestions))
	for i := range r.Suggestions {
		suggestions[r.Suggestions[i].Question] = SuggestionDocument(&r.Suggestions[i])
	}

	vectors := make(map[string]any, len(r.Vectors))
	for _, v := range r.Vectors {
		vectors[v.VectorSettingsID.String()] = v.Value
	}

	return Document{
		PropID:          r.ID.String(),
		PropExternalID:  r.ExternalID,
		PropStatus:      string(r.Status),
		PropFields:      fields,
		PropMetadata:    metadata,
		PropResponses:   responses,
		PropSuggestions: suggestions,
		PropVectors:     vectors,
		PropInsertedAt:  formatTime(r.InsertedAt),
		PropUpdatedAt:   formatTime(r.UpdatedAt),
	}, nil
}

// ResponseDocument builds the nested document of a response.
func ResponseDocument(r *domain.Response) Document {
	values := r.Values
	if values == nil {
		values = map[string]any{}
	}
	return Document{
		"id":      r.ID.String(),
		"user_id": r.UserID.String(),
		"status":  string(r.Status),
		"values":  values,
	}
}

// SuggestionDocument builds the document of a suggestion keyed by its question.
func SuggestionDocument(s *domain.Suggestion) Document {
	return Document{
		"value": s.Value,
		"score": s.Score,
		"agent": s.Agent,
		"type":  string(s.Type),
	}
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// BulkOp is a bulk action type.
type BulkOp string

const (
	BulkIndex  BulkOp = "index"
	BulkDelete BulkOp = "delete"
)

// BulkAction is one bulk operation; Doc is empty for deletes.
type BulkAction struct {
	Op  BulkOp
	ID  string
	Doc Document
}

// BulkResult summarizes a bulk call.
type BulkResult struct {
	Total  int
	Failed int
}

// BulkItemError is the failure reported for one bulk item.
type BulkItemError struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// BulkItem is the outcome of one bulk item.
type BulkItem struct {
	Index  string         `json:"_index"`
	ID     string         `json:"_id"`
	Status int            `json:"status"`
	Result string         `json:"result"`
	Error  *BulkItemError `json:"error,omitempty"`
}

// BulkResponse is the bulk API response body shared by both backends.
type BulkResponse struct {
	Errors bool                  `json:"errors"`
	Items  []map[string]BulkItem `json:"items"`
}

// Failures returns the items that carry an error.
func (r *BulkResponse) Failures() []BulkItem {
	var failed []BulkItem
	for _, entry := range r.Items {
		for _, item := range entry {
			if item.Error != nil {
				failed = append(failed, item)
			}
		}
	}
	return failed
}

// EncodeBulk writes actions as a newline-delimited bulk body.
func EncodeBulk(actions []BulkAction) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, a := range actions {
		meta := map[string]any{string(a.Op): map[string]any{"_id": a.ID}}
		if err := enc.Encode(meta); err != nil {
			return nil, fmt.Errorf("encode bulk action %s: %w", a.ID, err)
		}
		if a.Op == BulkDelete {
			continue
		}
		if err := enc.Encode(a.Doc); err != nil {
			return nil, fmt.Errorf("encode bulk document %s: %w", a.ID, err)
		}
	}
	return &buf, nil
}

// Hit is one search hit.
type Hit struct {
	ID    string   `json:"_id"`
	Score *float64 `json:"_score"`
}

// SearchResponse is the search API response body shared by both backends.
type SearchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []Hit `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]json.RawMessage `json:"aggregations"`
}

// EncodeBody serializes a request body.
func EncodeBody(body any) (*bytes.Reader, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return bytes.NewReader(b), nil
}
