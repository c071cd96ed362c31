package searchengine

import (
	"github.com/google/uuid"

	"github.com/kailas-cloud/annosearch/internal/domain"
)

// Mapping is a backend index mapping fragment.
type Mapping = map[string]any

// Top-level document properties.
const (
	PropID          = "id"
	PropExternalID  = "external_id"
	PropStatus      = "status"
	PropFields      = "fields"
	PropMetadata    = "metadata"
	PropResponses   = "responses"
	PropSuggestions = "suggestions"
	PropVectors     = "vectors"
	PropInsertedAt  = "inserted_at"
	PropUpdatedAt   = "updated_at"

	// ResponseUserID is the user id path inside the nested responses.
	ResponseUserID = PropResponses + ".user_id"
)

// Mapping kinds recovered by KindOfMapping.
const (
	KindText    = "text"
	KindChat    = "chat"
	KindOpaque  = "opaque"
	KindKeyword = "keyword"
	KindLong    = "long"
	KindInteger = "integer"
	KindFloat   = "float"
	KindUnknown = "unknown"
)

func keyword() Mapping { return Mapping{"type": "keyword"} }

func opaque() Mapping { return Mapping{"type": "object", "enabled": false} }

// MappingForField returns the mapping of a record field.
// Custom fields are serialized to text before indexing.
func MappingForField(f domain.Field) (Mapping, error) {
	switch f.Type {
	case domain.FieldText, domain.FieldCustom:
		return Mapping{"type": "text"}, nil
	case domain.FieldChat:
		return Mapping{
			"type": "object",
			"properties": Mapping{
				"content": Mapping{"type": "text"},
				"role":    keyword(),
			},
		}, nil
	case domain.FieldImage:
		return opaque(), nil
	default:
		return nil, &domain.MappingUnsupportedError{Kind: "field", Type: string(f.Type)}
	}
}

// MappingForMetadataProperty returns the mapping of a metadata property.
func MappingForMetadataProperty(p domain.MetadataProperty) (Mapping, error) {
	switch p.Type {
	case domain.MetadataTerms:
		return keyword(), nil
	case domain.MetadataInteger:
		return Mapping{"type": "long"}, nil
	case domain.MetadataFloat:
		return Mapping{"type": "float"}, nil
	default:
		return nil, &domain.MappingUnsupportedError{Kind: "metadata property", Type: string(p.Type)}
	}
}

// MappingForQuestionResponseValue returns the mapping of a question answer.
// Question types without filter support are stored unindexed.
func MappingForQuestionResponseValue(q domain.Question) Mapping {
	switch q.Type {
	case domain.QuestionRating:
		return Mapping{"type": "integer"}
	case domain.QuestionLabelSelection, domain.QuestionMultiLabelSelection:
		return keyword()
	default:
		return opaque()
	}
}

// MappingForQuestionSuggestion returns the mapping of the suggestion for a question.
func MappingForQuestionSuggestion(q domain.Question) Mapping {
	return Mapping{
		"type": "object",
		"properties": Mapping{
			"value": MappingForQuestionResponseValue(q),
			"score": Mapping{"type": "float"},
			"agent": keyword(),
			"type":  keyword(),
		},
	}
}

// KindOfMapping classifies a mapping fragment produced by the MappingFor functions.
func KindOfMapping(m Mapping) string {
	typ, _ := m["type"].(string)
	switch typ {
	case "text":
		return KindText
	case "keyword":
		return KindKeyword
	case "long":
		return KindLong
	case "integer":
		return KindInteger
	case "float":
		return KindFloat
	case "object":
		if enabled, ok := m["enabled"].(bool); ok && !enabled {
			return KindOpaque
		}
		props, _ := m["properties"].(Mapping)
		if _, ok := props["content"]; ok {
			if _, ok := props["role"]; ok {
				return KindChat
			}
		}
	}
	return KindUnknown
}

// FieldPathForRecord returns the document path of a record field.
func FieldPathForRecord(name string) string { return PropFields + "." + name }

// FieldPathForMetadata returns the document path of a metadata property.
func FieldPathForMetadata(name string) string { return PropMetadata + "." + name }

// FieldPathForSuggestion returns the document path of a suggestion property.
// An empty property addresses the suggested value.
func FieldPathForSuggestion(question, property string) string {
	if property == "" {
		property = "value"
	}
	return PropSuggestions + "." + question + "." + property
}

// FieldPathForResponse returns the nested path of a response property.
func FieldPathForResponse(property string) string { return PropResponses + "." + property }

// FieldPathForResponseValue returns the nested path of a question answer.
func FieldPathForResponseValue(question string) string {
	return PropResponses + ".values." + question
}

// FieldPathForVector returns the document path of a vector.
func FieldPathForVector(settingsID uuid.UUID) string {
	return PropVectors + "." + settingsID.String()
}

// VectorMapper builds the backend-specific vector field mapping.
type VectorMapper func(vs domain.VectorSettings) Mapping

// IndexMapping builds the complete index mapping of a dataset.
// Any unsupported field or metadata type fails the whole mapping.
func IndexMapping(ds *domain.Dataset, vector VectorMapper) (Mapping, error) {
	fields := Mapping{}
	var excludes []string
	for _, f := range ds.Fields {
		m, err := MappingForField(f)
		if err != nil {
			return nil, err
		}
		fields[f.Name] = m
		if f.Type == domain.FieldImage {
			excludes = append(excludes, FieldPathForRecord(f.Name))
		}
	}

	metadata := Mapping{}
	for _, p := range ds.MetadataProperties {
		m, err := MappingForMetadataProperty(p)
		if err != nil {
			return nil, err
		}
		metadata[p.Name] = m
	}

	suggestions := Mapping{}
	values := Mapping{}
	for _, q := range ds.Questions {
		suggestions[q.Name] = MappingForQuestionSuggestion(q)
		values[q.Name] = MappingForQuestionResponseValue(q)
	}

	vectors := Mapping{}
	for _, vs := range ds.VectorSettings {
		vectors[vs.ID.String()] = vector(vs)
	}

	mapping := Mapping{
		"dynamic": "strict",
		"properties": Mapping{
			PropID:          keyword(),
			PropExternalID:  keyword(),
			PropStatus:      keyword(),
			PropInsertedAt:  Mapping{"type": "date"},
			PropUpdatedAt:   Mapping{"type": "date"},
			PropFields:      Mapping{"properties": fields},
			PropMetadata:    Mapping{"dynamic": false, "properties": metadata},
			PropSuggestions: Mapping{"properties": suggestions},
			PropResponses: Mapping{
				"type": "nested",
				"properties": Mapping{
					"id":      keyword(),
					"user_id": keyword(),
					"status":  keyword(),
					"values":  Mapping{"properties": values},
				},
			},
			PropVectors: Mapping{"dynamic": false, "properties": vectors},
		},
	}
	if len(excludes) > 0 {
		mapping["_source"] = Mapping{"excludes": excludes}
	}
	return mapping, nil
}

// IndexSettings returns the creation settings shared by both backends.
func IndexSettings(cfg Config) map[string]any {
	return map[string]any{
		"number_of_shards":                 cfg.NumberOfShards,
		"number_of_replicas":               cfg.NumberOfReplicas,
		"index.mapping.total_fields.limit": cfg.TotalFieldsLimit,
		"index.max_result_window":          cfg.MaxResultWindow,
	}
}

// IndexName returns the index name of a dataset.
func IndexName(datasetID uuid.UUID) string { return "rg." + datasetID.String() }
