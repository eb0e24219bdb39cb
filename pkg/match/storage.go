package match

import "github.com/crystal-mush/objsearch/pkg/objdb"

// Storage is what the resolver needs from an object store. objdb.Database
// satisfies it directly; boltstore and sqlstore wrap their backends to
// do the same.
//
// Every multi-object result is deduplicated and ref-ascending, so ordinal
// selection over it is deterministic. The only error any method returns
// is objdb.ErrNoSuchField (from FindByFieldValue, wrapped); backends keep
// their own fault handling internal.
type Storage interface {
	// FindByRef returns the object a literal reference denotes.
	FindByRef(ref objdb.DBRef) (*objdb.Object, bool)

	// FindByFieldValue returns objects whose schema field equals value.
	// Unknown fields return objdb.ErrNoSuchField; a known field that
	// matches nothing returns an empty slice and nil error.
	FindByFieldValue(field, value string, r objdb.Restriction) ([]*objdb.Object, error)

	// FindByAttrValue returns objects carrying the named attribute with
	// exactly the given value. Names are case-insensitive, values not.
	FindByAttrValue(name, value string, r objdb.Restriction) []*objdb.Object

	// FindByAttr returns objects carrying the named attribute.
	FindByAttr(name string, r objdb.Restriction) []*objdb.Object

	// FindByKeyOrAlias matches keys and aliases case-insensitively,
	// whole-string when exact is set, prefix otherwise.
	FindByKeyOrAlias(pattern string, exact bool, r objdb.Restriction) []*objdb.Object

	// ObjectsIn materializes every object the restriction admits.
	ObjectsIn(r objdb.Restriction) []*objdb.Object

	// AliasesOf flattens the alias lists of the given objects in order.
	AliasesOf(objs []*objdb.Object) []objdb.AliasEntry
}
