package match

import (
	"strconv"
	"strings"
)

// DirectiveGrammar strips a multimatch directive from a raw query.
// Strip returns the 1-based ordinal, the remaining search string and
// whether a directive was present. When absent the original string comes
// back unchanged. A directive must leave a non-empty remainder and its
// ordinal must be positive; anything else is treated as plain text.
type DirectiveGrammar interface {
	Strip(raw string) (ordinal int, rest string, ok bool)
}

// OrdinalPrefix reads "N<sep>name" directives, e.g. "2-sword". The zero
// value uses "-" as the separator.
type OrdinalPrefix struct {
	Sep string
}

func (g OrdinalPrefix) Strip(raw string) (int, string, bool) {
	sep := g.Sep
	if sep == "" {
		sep = "-"
	}
	i := strings.Index(raw, sep)
	if i <= 0 {
		return 0, raw, false
	}
	n, ok := parseOrdinal(raw[:i])
	if !ok {
		return 0, raw, false
	}
	rest := raw[i+len(sep):]
	if rest == "" {
		return 0, raw, false
	}
	return n, rest, true
}

// OrdinalSuffix reads "name<sep>N" directives, e.g. "sword-2". The zero
// value uses "-" as the separator.
type OrdinalSuffix struct {
	Sep string
}

func (g OrdinalSuffix) Strip(raw string) (int, string, bool) {
	sep := g.Sep
	if sep == "" {
		sep = "-"
	}
	i := strings.LastIndex(raw, sep)
	if i <= 0 {
		return 0, raw, false
	}
	n, ok := parseOrdinal(raw[i+len(sep):])
	if !ok {
		return 0, raw, false
	}
	return n, raw[:i], true
}

// parseOrdinal accepts plain positive decimal digits only. Signs,
// spaces and zero are rejected so names like "+2 sword" or "0-day"
// never lose their prefix.
func parseOrdinal(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
