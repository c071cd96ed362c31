package domain

import "github.com/google/uuid"

// FieldType is the content type of a record field.
type FieldType string

const (
	// FieldText is a plain text field.
	FieldText FieldType = "text"
	// FieldChat is a list of chat messages with role and content.
	FieldChat FieldType = "chat"
	// FieldCustom is opaque JSON indexed as text.
	FieldCustom FieldType = "custom"
	// FieldImage is an image URL or data URI, stored but never indexed.
	FieldImage FieldType = "image"
)

// IsSearchable reports whether the field participates in free-text search.
func (t FieldType) IsSearchable() bool {
	return t == FieldText || t == FieldChat || t == FieldCustom
}

// MetadataPropertyType is the value type of a metadata property.
type MetadataPropertyType string

const (
	// MetadataTerms is a keyword metadata property.
	MetadataTerms MetadataPropertyType = "terms"
	// MetadataInteger is a 64-bit integer metadata property.
	MetadataInteger MetadataPropertyType = "integer"
	// MetadataFloat is a 32-bit float metadata property.
	MetadataFloat MetadataPropertyType = "float"
)

// QuestionType is the answer type of a question.
type QuestionType string

const (
	QuestionText                QuestionType = "text"
	QuestionRating              QuestionType = "rating"
	QuestionLabelSelection      QuestionType = "label_selection"
	QuestionMultiLabelSelection QuestionType = "multi_label_selection"
	QuestionRanking             QuestionType = "ranking"
	QuestionSpan                QuestionType = "span"
)

// Field is a named record field of a dataset.
type Field struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}

// MetadataProperty is a typed metadata key of a dataset.
type MetadataProperty struct {
	DatasetID uuid.UUID            `json:"dataset_id"`
	Name      string               `json:"name"`
	Type      MetadataPropertyType `json:"type"`
}

// Question is an annotation question of a dataset.
type Question struct {
	DatasetID uuid.UUID    `json:"dataset_id"`
	Name      string       `json:"name"`
	Type      QuestionType `json:"type"`
}

// VectorSettings describes one embedding space of a dataset.
type VectorSettings struct {
	ID         uuid.UUID `json:"id"`
	DatasetID  uuid.UUID `json:"dataset_id"`
	Name       string    `json:"name"`
	Dimensions int       `json:"dimensions"`
}

// Dataset is the schema of one search index.
type Dataset struct {
	ID                 uuid.UUID          `json:"id"`
	Name               string             `json:"name"`
	Fields             []Field            `json:"fields"`
	Questions          []Question         `json:"questions"`
	MetadataProperties []MetadataProperty `json:"metadata_properties"`
	VectorSettings     []VectorSettings   `json:"vector_settings"`
}

// FieldByName returns the field with the given name.
func (d *Dataset) FieldByName(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// QuestionByName returns the question with the given name.
func (d *Dataset) QuestionByName(name string) (Question, bool) {
	for _, q := range d.Questions {
		if q.Name == name {
			return q, true
		}
	}
	return Question{}, false
}

// MetadataPropertyByName returns the metadata property with the given name.
func (d *Dataset) MetadataPropertyByName(name string) (MetadataProperty, bool) {
	for _, p := range d.MetadataProperties {
		if p.Name == name {
			return p, true
		}
	}
	return MetadataProperty{}, false
}

// VectorSettingsByID returns the vector settings with the given id.
func (d *Dataset) VectorSettingsByID(id uuid.UUID) (VectorSettings, bool) {
	for _, vs := range d.VectorSettings {
		if vs.ID == id {
			return vs, true
		}
	}
	return VectorSettings{}, false
}
