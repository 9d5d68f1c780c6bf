package nlq

import (
	"regexp"
	"strconv"
	"strings"
)

type conditionPhrase struct {
	phrase   string
	operator string
}

// conditionPhrases is scanned in this order. Phrases overlap on purpose:
// "is not null" also contains "is null", and "in" matches inside words.
var conditionPhrases = []conditionPhrase{
	{"greater than", ">"},
	{"less than", "<"},
	{"equal to", "="},
	{"not equal to", "!="},
	{"contains", "LIKE"},
	{"starts with", "LIKE"},
	{"ends with", "LIKE"},
	{"between", "BETWEEN"},
	{"in", "IN"},
	{"like", "LIKE"},
	{"is null", "IS NULL"},
	{"is not null", "IS NOT NULL"},
}

var (
	integerPattern = regexp.MustCompile(`\b\d+\b`)
	limitPattern   = regexp.MustCompile(`limit\s+(\d+)`)
)

// ExtractConditions returns query unchanged together with one fragment per
// phrase found in it: the operator followed by the lowercased text after the
// phrase's first occurrence.
func ExtractConditions(query string) (string, []string) {
	lower := strings.ToLower(query)
	conditions := []string{}
	for _, p := range conditionPhrases {
		idx := strings.Index(lower, p.phrase)
		if idx < 0 {
			continue
		}
		rest := strings.TrimSpace(lower[idx+len(p.phrase):])
		conditions = append(conditions, strings.TrimSpace(p.operator+" "+rest))
	}
	return query, conditions
}

// orderByText returns the lowercased text following "order by".
func orderByText(query string) (string, bool) {
	lower := strings.ToLower(query)
	idx := strings.Index(lower, "order by")
	if idx < 0 {
		return "", false
	}
	return strings.TrimSpace(lower[idx+len("order by"):]), true
}

// firstInteger returns the first standalone number in query that fits an
// int. Overflowing digit runs are skipped.
func firstInteger(query string) (int, bool) {
	for _, match := range integerPattern.FindAllString(query, -1) {
		if n, err := strconv.Atoi(match); err == nil {
			return n, true
		}
	}
	return 0, false
}

// explicitLimit prefers "limit N" and falls back to the first integer.
func explicitLimit(query string) (int, bool) {
	if match := limitPattern.FindStringSubmatch(strings.ToLower(query)); match != nil {
		if n, err := strconv.Atoi(match[1]); err == nil {
			return n, true
		}
	}
	return firstInteger(query)
}
