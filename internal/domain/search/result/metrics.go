package result

import (
	"encoding/json"
	"fmt"
)

// MetadataMetrics summarizes the values of one metadata property.
// The set is closed: TermsMetrics, IntegerMetrics, FloatMetrics.
type MetadataMetrics interface {
	isMetadataMetrics()
	Kind() string
}

// TermCount is the number of records carrying one term.
type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// TermsMetrics holds the term distribution of a terms property.
type TermsMetrics struct {
	Total  int         `json:"total"`
	Values []TermCount `json:"values"`
}

// IntegerMetrics holds the bounds of an integer property; nil when no record has a value.
type IntegerMetrics struct {
	Min *int64 `json:"min"`
	Max *int64 `json:"max"`
}

// FloatMetrics holds the bounds of a float property; nil when no record has a value.
type FloatMetrics struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

func (TermsMetrics) isMetadataMetrics()   {}
func (IntegerMetrics) isMetadataMetrics() {}
func (FloatMetrics) isMetadataMetrics()   {}

// Kind returns the metrics type tag.
func (TermsMetrics) Kind() string { return "terms" }

// Kind returns the metrics type tag.
func (IntegerMetrics) Kind() string { return "integer" }

// Kind returns the metrics type tag.
func (FloatMetrics) Kind() string { return "float" }

type envelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// MarshalMetrics encodes metrics with their type tag.
func MarshalMetrics(m MetadataMetrics) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal %s metrics: %w", m.Kind(), err)
	}
	return json.Marshal(envelope{Kind: m.Kind(), Data: data})
}

// UnmarshalMetrics decodes metrics encoded by MarshalMetrics.
func UnmarshalMetrics(b []byte) (MetadataMetrics, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("unmarshal metrics envelope: %w", err)
	}
	switch env.Kind {
	case "terms":
		var m TermsMetrics
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return nil, fmt.Errorf("unmarshal terms metrics: %w", err)
		}
		return m, nil
	case "integer":
		var m IntegerMetrics
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return nil, fmt.Errorf("unmarshal integer metrics: %w", err)
		}
		return m, nil
	case "float":
		var m FloatMetrics
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return nil, fmt.Errorf("unmarshal float metrics: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown metrics kind %q", env.Kind)
	}
}
