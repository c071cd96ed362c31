package elasticsearch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// APIError is an error response returned by the cluster.
type APIError struct {
	Status int
	Type   string
	Reason string
}

func (e *APIError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("elasticsearch: status %d", e.Status)
	}
	return fmt.Sprintf("elasticsearch: status %d: %s: %s", e.Status, e.Type, e.Reason)
}

// decodeError reads the error body of a failed response.
func decodeError(res *esapi.Response) error {
	body, _ := io.ReadAll(res.Body)
	apiErr := &APIError{Status: res.StatusCode}
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &envelope) != nil || len(envelope.Error) == 0 {
		return apiErr
	}
	var cause struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	}
	if json.Unmarshal(envelope.Error, &cause) == nil {
		apiErr.Type = cause.Type
		apiErr.Reason = cause.Reason
		return apiErr
	}
	// Some errors carry a plain string.
	_ = json.Unmarshal(envelope.Error, &apiErr.Reason)
	return apiErr
}

func isIndexNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Type == "index_not_found_exception"
}
