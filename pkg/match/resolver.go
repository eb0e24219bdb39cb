package match

import "github.com/crystal-mush/objsearch/pkg/objdb"

// Query describes one resolution request.
type Query struct {
	// Raw is the search string: a "#N" reference, a key or alias, an
	// attribute value when Attribute is set, possibly carrying a
	// multimatch directive.
	Raw string

	// Exact disables the fuzzy retry: the second pass repeats the
	// whole-string comparison instead of prefix matching. It also gates
	// the literal-reference shortcut.
	Exact bool

	// Candidates restricts the search to these refs. nil searches the
	// whole store; a non-nil empty slice matches nothing. Refs that do
	// not exist or fail the type filter are dropped, never widened back.
	Candidates []objdb.DBRef

	// Attribute switches the search to property/attribute values: Raw
	// is compared against the named schema field, or against the
	// attribute table when no such field exists.
	Attribute string

	// Types admits only objects with one of these typeclass paths.
	Types []string
}

// Resolver turns queries into object lists. It is stateless apart from
// its collaborators and safe for concurrent use.
type Resolver struct {
	store   Storage
	conf    *Config
	grammar DirectiveGrammar
	metrics *Metrics
}

// NewResolver builds a Resolver over store. A nil conf uses defaults.
func NewResolver(store Storage, conf *Config) *Resolver {
	if conf == nil {
		conf = DefaultConfig()
	}
	return &Resolver{store: store, conf: conf, grammar: conf.Grammar()}
}

// SetMetrics attaches a metrics sink. A nil Resolver metrics field is
// fine; counting is skipped.
func (r *Resolver) SetMetrics(m *Metrics) {
	r.metrics = m
}

// Resolve runs the full pipeline. An empty Raw matches nothing. A
// literal reference is tried first (exact mode, no attribute search),
// then an exact key/alias or property pass, then a retry that strips a
// multimatch directive and applies the caller's exactness. When the
// retry still yields several objects and a directive was present, the
// ordinal picks one; an out-of-range ordinal keeps the whole set. Never
// returns an error: no match is an empty slice.
func (r *Resolver) Resolve(q Query) []*objdb.Object {
	if q.Raw == "" {
		r.metrics.observe(outcomeEmpty)
		return nil
	}
	restr := r.restriction(q)

	// A literal reference wins outright when the caller wants exact
	// matches and is not searching attribute values. A candidate set
	// still gates it; the type filter deliberately does not.
	if q.Exact && q.Attribute == "" {
		if ref, ok := ParseRef(q.Raw, r.conf.RefSigil); ok {
			if o, found := r.store.FindByRef(ref); found {
				if restr.Refs != nil {
					if _, in := restr.Refs[o.DBRef]; !in {
						r.metrics.observe(outcomeNone)
						return nil
					}
				}
				r.metrics.observe(outcomeReference)
				return []*objdb.Object{o}
			}
			// A reference to nothing falls through to name matching.
		}
	}

	matches := r.lookup(q.Raw, q.Attribute, true, restr)
	retried := false
	ordinal := 0
	hasOrdinal := false
	if len(matches) == 0 {
		rest := q.Raw
		if n, stripped, ok := r.grammar.Strip(q.Raw); ok {
			ordinal, rest, hasOrdinal = n, stripped, true
			r.metrics.countDirective()
		}
		matches = r.lookup(rest, q.Attribute, q.Exact, restr)
		retried = true
	}

	if hasOrdinal && len(matches) > 1 {
		if i := ordinal - 1; i < len(matches) {
			matches = matches[i : i+1]
			r.metrics.countOrdinalPick()
		} else {
			r.metrics.countOrdinalOverflow()
		}
	}

	switch {
	case len(matches) == 0:
		r.metrics.observe(outcomeNone)
	case retried:
		r.metrics.observe(outcomeRetry)
	default:
		r.metrics.observe(outcomeExact)
	}
	return matches
}

func (r *Resolver) lookup(raw, attribute string, exact bool, restr objdb.Restriction) []*objdb.Object {
	if attribute != "" {
		return r.MatchByAttr(attribute, raw, restr)
	}
	return r.MatchByName(raw, exact, restr)
}
