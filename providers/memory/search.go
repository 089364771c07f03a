package memory

import (
	"strings"

	"github.com/remiges-tech/searchquery/providers"
)

// scoreDocument matches query terms against a document's text fields and
// returns whether the document matches under the given mode, plus a naive
// term-frequency score: one point per term occurrence, so documents hitting
// more terms more often rank higher.
func scoreDocument(doc map[string]interface{}, terms, fields []string, mode providers.MatchMode) (bool, float64) {
	texts := collectText(doc, fields)

	score := 0.0
	matchedTerms := 0
	for _, term := range terms {
		hits := 0
		for _, text := range texts {
			hits += countWord(text, term)
		}
		if hits > 0 {
			matchedTerms++
			score += float64(hits)
		}
	}

	switch {
	case matchedTerms == 0:
		return false, 0
	case mode == providers.MatchAll && matchedTerms < len(terms):
		return false, 0
	}
	return true, score
}

// collectText gathers lowercased text values from the given fields, or from
// every string-bearing field when fields is empty.
func collectText(doc map[string]interface{}, fields []string) []string {
	var texts []string
	if len(fields) == 0 {
		for _, v := range doc {
			texts = appendText(texts, v)
		}
		return texts
	}
	for _, f := range fields {
		texts = appendText(texts, doc[f])
	}
	return texts
}

func appendText(texts []string, v interface{}) []string {
	switch t := v.(type) {
	case string:
		return append(texts, strings.ToLower(t))
	case []string:
		for _, s := range t {
			texts = append(texts, strings.ToLower(s))
		}
	case []interface{}:
		for _, e := range t {
			if s, ok := e.(string); ok {
				texts = append(texts, strings.ToLower(s))
			}
		}
	}
	return texts
}

// countWord counts whole-word occurrences of term in lowercased text.
func countWord(text, term string) int {
	n := 0
	for _, word := range strings.FieldsFunc(text, isWordSeparator) {
		if word == term {
			n++
		}
	}
	return n
}

func isWordSeparator(r rune) bool {
	return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
}

// highlight wraps whole-word term matches in the requested fields. Only
// fields that actually contain a match appear in the result.
func highlight(doc map[string]interface{}, fields, terms []string, preTag, postTag string) map[string][]string {
	var out map[string][]string
	for _, field := range fields {
		s, ok := doc[field].(string)
		if !ok {
			continue
		}
		fragment, matched := markTerms(s, terms, preTag, postTag)
		if !matched {
			continue
		}
		if out == nil {
			out = make(map[string][]string)
		}
		out[field] = []string{fragment}
	}
	return out
}

// markTerms wraps each whole-word, case-insensitive term occurrence.
func markTerms(text string, terms []string, preTag, postTag string) (string, bool) {
	var sb strings.Builder
	matched := false

	i := 0
	for i < len(text) {
		// Advance over a separator run.
		start := i
		for i < len(text) && isWordSeparator(rune(text[i])) {
			i++
		}
		sb.WriteString(text[start:i])
		if i >= len(text) {
			break
		}

		// Scan one word.
		start = i
		for i < len(text) && !isWordSeparator(rune(text[i])) {
			i++
		}
		word := text[start:i]
		lower := strings.ToLower(word)

		hit := false
		for _, term := range terms {
			if lower == term {
				hit = true
				break
			}
		}
		if hit {
			matched = true
			sb.WriteString(preTag)
			sb.WriteString(word)
			sb.WriteString(postTag)
		} else {
			sb.WriteString(word)
		}
	}
	return sb.String(), matched
}
