package result

import "github.com/google/uuid"

// Item is a single search hit. Score is nil for unranked results.
type Item struct {
	RecordID uuid.UUID `json:"record_id"`
	Score    *float64  `json:"score"`
}

// SearchResponses is one page of hits plus the total match count.
type SearchResponses struct {
	Items []Item `json:"items"`
	Total int    `json:"total"`
}

// RecordIDs returns the hit record ids in rank order.
func (r *SearchResponses) RecordIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(r.Items))
	for i, it := range r.Items {
		ids[i] = it.RecordID
	}
	return ids
}
