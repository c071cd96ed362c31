package searchengine

import "fmt"

// Op names an engine operation for error context, metrics and spans.
type Op string

const (
	OpPing                      Op = "ping"
	OpCreateIndex               Op = "create_index"
	OpDeleteIndex               Op = "delete_index"
	OpConfigureMetadataProperty Op = "configure_metadata_property"
	OpConfigureIndexVectors     Op = "configure_index_vectors"
	OpIndexRecords              Op = "index_records"
	OpPartialRecordUpdate       Op = "partial_record_update"
	OpDeleteRecords             Op = "delete_records"
	OpUpdateRecordResponse      Op = "update_record_response"
	OpDeleteRecordResponse      Op = "delete_record_response"
	OpUpdateRecordSuggestion    Op = "update_record_suggestion"
	OpDeleteRecordSuggestion    Op = "delete_record_suggestion"
	OpSearch                    Op = "search"
	OpSimilaritySearch          Op = "similarity_search"
	OpComputeMetrics            Op = "compute_metrics"
	OpClose                     Op = "close"
)

// Error wraps a backend failure with the operation and index for diagnostics.
// The backend error is kept as is and reachable with errors.As.
type Error struct {
	Op    Op
	Index string
	Err   error
}

func (e *Error) Error() string {
	if e.Index == "" {
		return string(e.Op) + ": " + e.Err.Error()
	}
	return string(e.Op) + " " + e.Index + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// BulkError reports bulk items rejected by the backend.
type BulkError struct {
	Op     BulkOp
	Failed int
	Total  int
}

func (e *BulkError) Error() string {
	return fmt.Sprintf("bulk %s: %d of %d items failed", e.Op, e.Failed, e.Total)
}

func wrap(op Op, index string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Index: index, Err: err}
}
