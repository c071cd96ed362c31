package result

import (
	"testing"

	"github.com/google/uuid"
)

func TestSearchResponses_RecordIDs(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	score := 1.5
	r := SearchResponses{Items: []Item{{RecordID: a, Score: &score}, {RecordID: b}}, Total: 7}

	ids := r.RecordIDs()
	if len(ids) != 2 || ids[0] != a || ids[1] != b {
		t.Errorf("unexpected ids: %v", ids)
	}
}

func TestMetrics_Envelope(t *testing.T) {
	minV, maxV := int64(-3), int64(42)
	tests := []struct {
		name string
		in   MetadataMetrics
	}{
		{"terms", TermsMetrics{Total: 3, Values: []TermCount{{"sports", 2}, {"news", 1}}}},
		{"integer", IntegerMetrics{Min: &minV, Max: &maxV}},
		{"float empty", FloatMetrics{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := MarshalMetrics(tt.in)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			got, err := UnmarshalMetrics(b)
			if err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Kind() != tt.in.Kind() {
				t.Errorf("kind = %q, want %q", got.Kind(), tt.in.Kind())
			}
		})
	}
}

func TestUnmarshalMetrics_UnknownKind(t *testing.T) {
	if _, err := UnmarshalMetrics([]byte(`{"kind":"histogram","data":{}}`)); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
