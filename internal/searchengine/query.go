package searchengine

import (
	"fmt"
	"slices"

	"github.com/kailas-cloud/annosearch/internal/domain"
	"github.com/kailas-cloud/annosearch/internal/domain/search/filter"
)

// Query is a backend query DSL clause.
type Query = map[string]any

// MatchAll matches every document; filters without constraints translate to it.
func MatchAll() Query { return Query{"match_all": Query{}} }

func matchNone() Query { return Query{"match_none": Query{}} }

// ScopeFieldPath resolves a scope to its document path.
func ScopeFieldPath(s filter.Scope) (string, error) {
	switch s := s.(type) {
	case filter.MetadataScope:
		return FieldPathForMetadata(s.Property), nil
	case filter.SuggestionScope:
		return FieldPathForSuggestion(s.Question, s.Property), nil
	case filter.RecordScope:
		if s.Property == "" {
			return "", domain.InvalidInput("record scope without property")
		}
		return s.Property, nil
	case filter.ResponseScope:
		if s.Question != "" {
			return FieldPathForResponseValue(s.Question), nil
		}
		if s.Property != "" {
			return FieldPathForResponse(s.Property), nil
		}
		return "", domain.InvalidInput("response scope needs a question or a property")
	default:
		return "", domain.InvalidInput("unknown filter scope %T", s)
	}
}

// TranslateFilter converts a filter tree into a backend query.
func TranslateFilter(f filter.Filter) (Query, error) {
	switch f := f.(type) {
	case filter.And:
		return translateAnd(f)
	case filter.Terms:
		return translateTerms(f)
	case filter.Range:
		return translateRange(f)
	default:
		return nil, domain.InvalidInput("unknown filter %T", f)
	}
}

func translateAnd(f filter.And) (Query, error) {
	if len(f.Filters) == 0 {
		return MatchAll(), nil
	}
	clauses := make([]any, 0, len(f.Filters))
	for _, child := range f.Filters {
		q, err := TranslateFilter(child)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, q)
	}
	return Query{"bool": Query{"filter": clauses}}, nil
}

func translateTerms(f filter.Terms) (Query, error) {
	if len(f.Values) == 0 {
		return MatchAll(), nil
	}
	if rs, ok := f.Scope.(filter.ResponseScope); ok {
		return translateResponseTerms(rs, f.Values)
	}
	path, err := ScopeFieldPath(f.Scope)
	if err != nil {
		return nil, err
	}
	return Query{"terms": Query{path: f.Values}}, nil
}

func translateResponseTerms(s filter.ResponseScope, values []string) (Query, error) {
	pending := string(domain.ResponsePending)
	if s.IsStatus() && slices.Contains(values, pending) {
		noResponse := Query{"bool": Query{"must_not": []any{responseExists(s)}}}
		rest := slices.DeleteFunc(slices.Clone(values), func(v string) bool { return v == pending })
		if len(rest) == 0 {
			return noResponse, nil
		}
		restQuery, err := translateResponseTerms(s, rest)
		if err != nil {
			return nil, err
		}
		return Query{"bool": Query{
			"should":               []any{noResponse, restQuery},
			"minimum_should_match": 1,
		}}, nil
	}

	path, err := ScopeFieldPath(s)
	if err != nil {
		return nil, err
	}
	return nestedResponses(s, Query{"terms": Query{path: values}}), nil
}

func translateRange(f filter.Range) (Query, error) {
	if f.IsEmpty() {
		return MatchAll(), nil
	}
	path, err := ScopeFieldPath(f.Scope)
	if err != nil {
		return nil, err
	}
	bounds := Query{}
	if f.GE != nil {
		bounds["gte"] = *f.GE
	}
	if f.LE != nil {
		bounds["lte"] = *f.LE
	}
	clause := Query{"range": Query{path: bounds}}
	if rs, ok := f.Scope.(filter.ResponseScope); ok {
		return nestedResponses(rs, clause), nil
	}
	return clause, nil
}

// nestedResponses scopes a clause to one nested response element, together
// with the user restriction when the scope has one.
func nestedResponses(s filter.ResponseScope, clause Query) Query {
	clauses := []any{clause}
	if s.User != nil {
		clauses = append(clauses, userTerm(s))
	}
	return Query{"nested": Query{
		"path":  PropResponses,
		"query": Query{"bool": Query{"filter": clauses}},
	}}
}

// responseExists matches records with any response, or with a response of the scoped user.
func responseExists(s filter.ResponseScope) Query {
	inner := MatchAll()
	if s.User != nil {
		inner = userTerm(s)
	}
	return Query{"nested": Query{"path": PropResponses, "query": inner}}
}

func userTerm(s filter.ResponseScope) Query {
	return Query{"term": Query{ResponseUserID: s.User.String()}}
}

// DefaultSort orders by relevance, then by insertion time.
func DefaultSort() []any {
	return []any{
		Query{"_score": Query{"order": string(filter.Desc)}},
		Query{PropInsertedAt: Query{"order": string(filter.Asc)}},
	}
}

// TranslateSort converts orders into a backend sort specification.
func TranslateSort(orders []filter.Order) ([]any, error) {
	if len(orders) == 0 {
		return DefaultSort(), nil
	}
	sort := make([]any, 0, len(orders))
	for _, o := range orders {
		path, err := ScopeFieldPath(o.Scope)
		if err != nil {
			return nil, err
		}
		spec := Query{"order": string(o.Direction)}
		if rs, ok := o.Scope.(filter.ResponseScope); ok {
			nested := Query{"path": PropResponses}
			if rs.User != nil {
				nested["filter"] = userTerm(rs)
			}
			spec["mode"] = "avg"
			spec["nested"] = nested
		}
		sort = append(sort, Query{path: spec})
	}
	return sort, nil
}

// TranslateTextQuery converts a text query into a backend query. A named
// field is matched alone, otherwise every searchable field of the dataset.
func TranslateTextQuery(ds *domain.Dataset, q *filter.TextQuery) (Query, error) {
	if q == nil || q.Text == "" {
		return MatchAll(), nil
	}
	if q.Field != "" {
		f, ok := ds.FieldByName(q.Field)
		if !ok {
			return nil, domain.InvalidInput("field %q not found in dataset %s", q.Field, ds.ID)
		}
		if !f.Type.IsSearchable() {
			return nil, domain.InvalidInput("field %q of type %q is not searchable", f.Name, f.Type)
		}
		return Query{"match": Query{searchPath(f): Query{"query": q.Text, "operator": "and"}}}, nil
	}

	var paths []string
	for _, f := range ds.Fields {
		if f.Type.IsSearchable() {
			paths = append(paths, searchPath(f))
		}
	}
	if len(paths) == 0 {
		return matchNone(), nil
	}
	return Query{"multi_match": Query{
		"query":    q.Text,
		"fields":   paths,
		"operator": "and",
		"type":     "cross_fields",
	}}, nil
}

func searchPath(f domain.Field) string {
	if f.Type == domain.FieldChat {
		return FieldPathForRecord(f.Name) + ".content"
	}
	return FieldPathForRecord(f.Name)
}

// combine builds the bool query of a text query and an optional filter.
func combine(ds *domain.Dataset, text *filter.TextQuery, f filter.Filter) (Query, error) {
	must, err := TranslateTextQuery(ds, text)
	if err != nil {
		return nil, err
	}
	b := Query{"must": []any{must}}
	if f != nil {
		fq, err := TranslateFilter(f)
		if err != nil {
			return nil, fmt.Errorf("translate filter: %w", err)
		}
		b["filter"] = []any{fq}
	}
	return Query{"bool": b}, nil
}
