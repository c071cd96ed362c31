package searchengine

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/kailas-cloud/annosearch/internal/domain"
)

func TestMappingForField_RoundTrip(t *testing.T) {
	tests := []struct {
		typ  domain.FieldType
		kind string
	}{
		{domain.FieldText, KindText},
		{domain.FieldCustom, KindText},
		{domain.FieldChat, KindChat},
		{domain.FieldImage, KindOpaque},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			m, err := MappingForField(domain.Field{Name: "f", Type: tt.typ})
			if err != nil {
				t.Fatal(err)
			}
			if got := KindOfMapping(m); got != tt.kind {
				t.Errorf("kind = %q, want %q", got, tt.kind)
			}
		})
	}
}

func TestMappingForMetadataProperty_RoundTrip(t *testing.T) {
	tests := []struct {
		typ  domain.MetadataPropertyType
		kind string
	}{
		{domain.MetadataTerms, KindKeyword},
		{domain.MetadataInteger, KindLong},
		{domain.MetadataFloat, KindFloat},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			m, err := MappingForMetadataProperty(domain.MetadataProperty{Name: "p", Type: tt.typ})
			if err != nil {
				t.Fatal(err)
			}
			if got := KindOfMapping(m); got != tt.kind {
				t.Errorf("kind = %q, want %q", got, tt.kind)
			}
		})
	}
}

func TestMappingForQuestion_RoundTrip(t *testing.T) {
	tests := []struct {
		typ  domain.QuestionType
		kind string
	}{
		{domain.QuestionRating, KindInteger},
		{domain.QuestionLabelSelection, KindKeyword},
		{domain.QuestionMultiLabelSelection, KindKeyword},
		{domain.QuestionText, KindOpaque},
		{domain.QuestionRanking, KindOpaque},
		{domain.QuestionSpan, KindOpaque},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			q := domain.Question{Name: "q", Type: tt.typ}
			if got := KindOfMapping(MappingForQuestionResponseValue(q)); got != tt.kind {
				t.Errorf("response value kind = %q, want %q", got, tt.kind)
			}
			s := MappingForQuestionSuggestion(q)
			value := s["properties"].(Mapping)["value"].(Mapping)
			if got := KindOfMapping(value); got != tt.kind {
				t.Errorf("suggestion value kind = %q, want %q", got, tt.kind)
			}
		})
	}
}

func TestMapping_UnsupportedNamesType(t *testing.T) {
	_, err := MappingForField(domain.Field{Name: "f", Type: "video"})
	var mu *domain.MappingUnsupportedError
	if !errors.As(err, &mu) || mu.Type != "video" {
		t.Fatalf("expected MappingUnsupportedError for video, got %v", err)
	}
	if !strings.Contains(err.Error(), "video") {
		t.Errorf("message does not name the type: %v", err)
	}

	_, err = MappingForMetadataProperty(domain.MetadataProperty{Name: "p", Type: "geo_point"})
	if !errors.Is(err, domain.ErrMappingUnsupported) || !strings.Contains(err.Error(), "geo_point") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestFieldPaths(t *testing.T) {
	id := uuid.MustParse("55555555-5555-5555-5555-555555555555")
	tests := map[string]string{
		FieldPathForRecord("prompt"):             "fields.prompt",
		FieldPathForMetadata("topic"):            "metadata.topic",
		FieldPathForSuggestion("label", ""):      "suggestions.label.value",
		FieldPathForSuggestion("label", "agent"): "suggestions.label.agent",
		FieldPathForResponse("status"):           "responses.status",
		FieldPathForResponseValue("quality"):     "responses.values.quality",
		FieldPathForVector(id):                   "vectors.55555555-5555-5555-5555-555555555555",
		IndexName(id):                            "rg.55555555-5555-5555-5555-555555555555",
	}
	for got, want := range tests {
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}

func TestIndexMapping_Structure(t *testing.T) {
	ds := testDataset()
	m, err := IndexMapping(ds, func(vs domain.VectorSettings) Mapping { return Mapping{"type": "v"} })
	if err != nil {
		t.Fatal(err)
	}
	props := m["properties"].(Mapping)

	responses := props[PropResponses].(Mapping)
	if responses["type"] != "nested" {
		t.Errorf("responses type = %v", responses["type"])
	}
	values := responses["properties"].(Mapping)["values"].(Mapping)["properties"].(Mapping)
	if KindOfMapping(values["quality"].(Mapping)) != KindInteger {
		t.Errorf("quality mapping = %v", values["quality"])
	}
	if props[PropMetadata].(Mapping)["dynamic"] != false {
		t.Error("metadata must not map unknown keys")
	}
	if KindOfMapping(props[PropID].(Mapping)) != KindKeyword {
		t.Error("id must be a keyword")
	}
	fields := props[PropFields].(Mapping)["properties"].(Mapping)
	if KindOfMapping(fields["conversation"].(Mapping)) != KindChat {
		t.Error("chat field mapping")
	}
}
