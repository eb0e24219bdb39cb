package match

import "github.com/crystal-mush/objsearch/pkg/objdb"

// restriction translates the candidate set and type filter into an
// objdb.Restriction. A supplied candidate set always yields a non-nil
// ref set, so downstream code can tell "no candidates given" from
// "candidates given, none survived".
func (r *Resolver) restriction(q Query) objdb.Restriction {
	restr := objdb.Unrestricted()
	if len(q.Types) > 0 {
		restr = restr.WithTypes(q.Types...)
	}
	if q.Candidates == nil {
		return restr
	}
	live := make([]objdb.DBRef, 0, len(q.Candidates))
	for _, ref := range q.Candidates {
		o, ok := r.store.FindByRef(ref)
		if !ok {
			continue
		}
		if restr.Types != nil {
			if _, ok := restr.Types[o.TypePath]; !ok {
				continue
			}
		}
		live = append(live, ref)
	}
	return restr.WithRefs(live...)
}
