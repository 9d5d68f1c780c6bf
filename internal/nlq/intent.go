package nlq

import "strings"

var searchTermMarkers = map[string]struct{}{"for": {}, "with": {}, "having": {}}

// ExtractIntent reads tables, search terms, limit and ordering out of query.
// Tables are catalog names appearing verbatim in the query, in catalog order.
func ExtractIntent(query string, tables []string) Intent {
	lower := strings.ToLower(query)
	intent := Intent{
		Type:        "SELECT",
		Tables:      []string{},
		Conditions:  []string{},
		SearchTerms: []string{},
	}

	for _, table := range tables {
		if table != "" && strings.Contains(lower, strings.ToLower(table)) {
			intent.Tables = append(intent.Tables, table)
		}
	}

	words := strings.Fields(lower)
	for idx, word := range words {
		if _, ok := searchTermMarkers[word]; ok && idx+1 < len(words) {
			intent.SearchTerms = append(intent.SearchTerms, words[idx+1])
		}
	}

	if n, ok := firstInteger(query); ok {
		intent.Limit = &n
	}
	if order, ok := orderByText(query); ok {
		intent.OrderBy = &order
	}
	return intent
}
