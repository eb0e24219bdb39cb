// Package match resolves free-form query strings to objects: literal
// "#N" references first, then exact key/alias matches, then a retry pass
// that strips a multimatch directive and falls back to fuzzy prefix
// matching with ordinal disambiguation.
package match

import (
	"strconv"
	"strings"

	"github.com/crystal-mush/objsearch/pkg/objdb"
)

// DefaultRefSigil prefixes literal object references.
const DefaultRefSigil = "#"

// ParseRef reads a literal object reference: the sigil followed by one
// or more digits and nothing else. Anything looser ("#", "#-1", "#12x",
// "# 12") is not a reference and falls through to name matching.
func ParseRef(token, sigil string) (objdb.DBRef, bool) {
	if sigil == "" {
		sigil = DefaultRefSigil
	}
	rest, ok := strings.CutPrefix(token, sigil)
	if !ok || rest == "" {
		return objdb.Nothing, false
	}
	for _, ch := range rest {
		if ch < '0' || ch > '9' {
			return objdb.Nothing, false
		}
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return objdb.Nothing, false
	}
	return objdb.DBRef(n), true
}
