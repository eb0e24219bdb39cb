package match

import "github.com/crystal-mush/objsearch/pkg/objdb"

// MatchByName finds objects by key or alias. Exact mode is a whole-string
// case-insensitive comparison. Fuzzy mode prefix-matches word by word
// against keys first and falls back to aliases only when no key matched.
// Results are deduplicated, ref-ascending.
func (r *Resolver) MatchByName(query string, exact bool, restr objdb.Restriction) []*objdb.Object {
	if exact {
		return r.store.FindByKeyOrAlias(query, true, restr)
	}

	// Fuzzy pass. An explicit candidate set is used as the pool wholesale;
	// without one, a cheap whole-string prefix match over keys and aliases
	// preselects it. The two pools differ on purpose: multiword fuzzy
	// queries like "sw do" can only hit inside a candidate set.
	var pool []*objdb.Object
	if restr.Refs != nil {
		pool = r.store.ObjectsIn(restr)
	} else {
		pool = r.store.FindByKeyOrAlias(query, false, restr)
	}
	if len(pool) == 0 {
		return nil
	}

	keys := make([]string, len(pool))
	for i, o := range pool {
		keys[i] = o.Key
	}
	if idx := PartialMatch(query, keys); len(idx) > 0 {
		out := make([]*objdb.Object, len(idx))
		for i, j := range idx {
			out[i] = pool[j]
		}
		return out
	}

	// No key matched; try the pool's aliases.
	entries := r.store.AliasesOf(pool)
	if len(entries) == 0 {
		return nil
	}
	labels := make([]string, len(entries))
	for i, e := range entries {
		labels[i] = e.Alias
	}
	idx := PartialMatch(query, labels)
	if len(idx) == 0 {
		return nil
	}
	out := make([]*objdb.Object, 0, len(idx))
	seen := make(map[objdb.DBRef]struct{}, len(idx))
	for _, j := range idx {
		o := entries[j].Obj
		if _, dup := seen[o.DBRef]; dup {
			continue
		}
		seen[o.DBRef] = struct{}{}
		out = append(out, o)
	}
	return out
}
