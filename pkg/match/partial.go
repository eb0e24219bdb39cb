package match

import "strings"

// PartialMatch returns the indices of labels the query fuzzily matches.
// Matching is word-based and case-insensitive: every query word must be
// a prefix of some label word, scanning the label left to right so each
// label word is consumed at most once and word order is preserved.
// "sh sw" matches "Sharp Sword of Doom"; "sw sh" does not. An empty
// query matches nothing.
func PartialMatch(query string, labels []string) []int {
	qwords := strings.Fields(strings.ToLower(query))
	if len(qwords) == 0 || len(labels) == 0 {
		return nil
	}
	var out []int
	for i, label := range labels {
		if matchWords(qwords, strings.Fields(strings.ToLower(label))) {
			out = append(out, i)
		}
	}
	return out
}

// matchWords consumes label words greedily: each query word binds to the
// first unused label word it prefixes, and later query words may only
// bind further right.
func matchWords(qwords, lwords []string) bool {
	next := 0
	for _, q := range qwords {
		found := -1
		for j := next; j < len(lwords); j++ {
			if strings.HasPrefix(lwords[j], q) {
				found = j
				break
			}
		}
		if found < 0 {
			return false
		}
		next = found + 1
	}
	return true
}
