package elasticsearch

import "github.com/kailas-cloud/annosearch/internal/searchengine"

const (
	responseUpdateSource = "if (ctx._source.responses == null) { ctx._source.responses = []; } " +
		"ctx._source.responses.removeIf(r -> r.id == params.response.id); " +
		"ctx._source.responses.add(params.response);"

	responseDeleteSource = "if (ctx._source.responses != null) { " +
		"ctx._source.responses.removeIf(r -> r.id == params.response_id); }"
)

// ResponseUpdateScript replaces the response with the same id, or appends it.
func (a *Adapter) ResponseUpdateScript(response searchengine.Document) map[string]any {
	return map[string]any{
		"lang":   "painless",
		"source": responseUpdateSource,
		"params": map[string]any{"response": response},
	}
}

// ResponseDeleteScript removes the response with the given id.
func (a *Adapter) ResponseDeleteScript(responseID string) map[string]any {
	return map[string]any{
		"lang":   "painless",
		"source": responseDeleteSource,
		"params": map[string]any{"response_id": responseID},
	}
}
