package match

import (
	"errors"
	"log"

	"github.com/crystal-mush/objsearch/pkg/objdb"
)

// MatchByAttr finds objects whose named property equals value. Schema
// fields are consulted first; only a name outside the schema falls
// through to the attribute table. A schema field that merely matches
// nothing stays a schema answer and returns empty.
func (r *Resolver) MatchByAttr(name, value string, restr objdb.Restriction) []*objdb.Object {
	objs, err := r.store.FindByFieldValue(name, value, restr)
	switch {
	case err == nil:
		return objs
	case errors.Is(err, objdb.ErrNoSuchField):
		return r.store.FindByAttrValue(name, value, restr)
	default:
		log.Printf("match: field lookup %q: %v", name, err)
		return nil
	}
}
