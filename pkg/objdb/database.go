package objdb

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

type refSet map[DBRef]struct{}

// Database is the in-memory object store. All lookups run against
// secondary indexes (lowercased key, lowercased alias, attribute name,
// typeclass path) that Put and Delete keep current. Reads take a shared
// lock, so concurrent searches are safe; returned objects are shared
// pointers and must not be mutated while other queries run.
type Database struct {
	mu      sync.RWMutex
	objects map[DBRef]*Object
	byKey   map[string]refSet
	byAlias map[string]refSet
	byType  map[string]refSet
	byAttr  map[string]refSet
}

// NewDatabase creates an empty Database.
func NewDatabase() *Database {
	return &Database{
		objects: make(map[DBRef]*Object),
		byKey:   make(map[string]refSet),
		byAlias: make(map[string]refSet),
		byType:  make(map[string]refSet),
		byAttr:  make(map[string]refSet),
	}
}

// Put stores an object and refreshes every index entry for it. Attribute
// names are canonicalized to lower case in place.
func (db *Database) Put(o *Object) error {
	if o == nil {
		return fmt.Errorf("objdb: put: nil object")
	}
	if !o.DBRef.Valid() {
		return fmt.Errorf("objdb: put: invalid ref %s", o.DBRef)
	}
	canonicalizeAttrs(o)

	db.mu.Lock()
	defer db.mu.Unlock()
	if old, ok := db.objects[o.DBRef]; ok {
		db.unindex(old)
	}
	db.objects[o.DBRef] = o
	db.index(o)
	return nil
}

// Delete removes an object and its index entries. Unknown refs are a
// no-op.
func (db *Database) Delete(ref DBRef) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if o, ok := db.objects[ref]; ok {
		db.unindex(o)
		delete(db.objects, ref)
	}
}

// Len returns the number of stored objects.
func (db *Database) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.objects)
}

// All returns every object in ref-ascending order.
func (db *Database) All() []*Object {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]*Object, 0, len(db.objects))
	for _, o := range db.objects {
		out = append(out, o)
	}
	sortObjects(out)
	return out
}

// FindByRef returns the object stored under ref.
func (db *Database) FindByRef(ref DBRef) (*Object, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	o, ok := db.objects[ref]
	return o, ok
}

// FindByKeyOrAlias returns objects whose key or alias matches pattern,
// case-insensitively. With exact set the whole string must match;
// otherwise pattern is a prefix. Results are deduplicated and
// ref-ascending. An empty pattern matches nothing.
func (db *Database) FindByKeyOrAlias(pattern string, exact bool, r Restriction) []*Object {
	if pattern == "" {
		return nil
	}
	lower := strings.ToLower(pattern)

	db.mu.RLock()
	defer db.mu.RUnlock()
	hits := make(refSet)
	if exact {
		for ref := range db.byKey[lower] {
			hits[ref] = struct{}{}
		}
		for ref := range db.byAlias[lower] {
			hits[ref] = struct{}{}
		}
	} else {
		for k, refs := range db.byKey {
			if strings.HasPrefix(k, lower) {
				for ref := range refs {
					hits[ref] = struct{}{}
				}
			}
		}
		for k, refs := range db.byAlias {
			if strings.HasPrefix(k, lower) {
				for ref := range refs {
					hits[ref] = struct{}{}
				}
			}
		}
	}
	return db.collectLocked(hits, r)
}

// FindByFieldValue returns objects whose schema field equals value. Key
// comparison is case-sensitive; relation fields accept "#N" or a bare
// integer. Unknown fields return ErrNoSuchField; a known field with no
// matches returns an empty slice.
func (db *Database) FindByFieldValue(field, value string, r Restriction) ([]*Object, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	switch strings.ToLower(field) {
	case FieldKey:
		hits := make(refSet)
		for ref := range db.byKey[strings.ToLower(value)] {
			if o := db.objects[ref]; o != nil && o.Key == value {
				hits[ref] = struct{}{}
			}
		}
		return db.collectLocked(hits, r), nil
	case FieldTypePath:
		return db.collectLocked(db.byType[value], r), nil
	case FieldLocation:
		return db.scanRefFieldLocked(value, r, func(o *Object) DBRef { return o.Location }), nil
	case FieldHome:
		return db.scanRefFieldLocked(value, r, func(o *Object) DBRef { return o.Home }), nil
	case FieldDestination:
		return db.scanRefFieldLocked(value, r, func(o *Object) DBRef { return o.Destination }), nil
	case FieldOwner:
		return db.scanRefFieldLocked(value, r, func(o *Object) DBRef { return o.Owner }), nil
	}
	return nil, fmt.Errorf("objdb: field %q: %w", field, ErrNoSuchField)
}

// FindByField returns objects whose schema field is set: non-empty for
// key and typepath, anything but Nothing for relation fields. Unknown
// fields return ErrNoSuchField.
func (db *Database) FindByField(field string, r Restriction) ([]*Object, error) {
	var set func(*Object) bool
	switch strings.ToLower(field) {
	case FieldKey:
		set = func(o *Object) bool { return o.Key != "" }
	case FieldTypePath:
		set = func(o *Object) bool { return o.TypePath != "" }
	case FieldLocation:
		set = func(o *Object) bool { return o.Location != Nothing }
	case FieldHome:
		set = func(o *Object) bool { return o.Home != Nothing }
	case FieldDestination:
		set = func(o *Object) bool { return o.Destination != Nothing }
	case FieldOwner:
		set = func(o *Object) bool { return o.Owner != Nothing }
	default:
		return nil, fmt.Errorf("objdb: field %q: %w", field, ErrNoSuchField)
	}

	db.mu.RLock()
	defer db.mu.RUnlock()
	var out []*Object
	for _, o := range db.objects {
		if set(o) && r.Allows(o) {
			out = append(out, o)
		}
	}
	sortObjects(out)
	return out, nil
}

// FindByAttrValue returns objects carrying the named attribute with
// exactly the given value. Names are case-insensitive, values are not.
func (db *Database) FindByAttrValue(name, value string, r Restriction) []*Object {
	name = strings.ToLower(name)
	db.mu.RLock()
	defer db.mu.RUnlock()
	hits := make(refSet)
	for ref := range db.byAttr[name] {
		if o := db.objects[ref]; o != nil && o.Attrs[name] == value {
			hits[ref] = struct{}{}
		}
	}
	return db.collectLocked(hits, r)
}

// FindByAttr returns objects carrying the named attribute, whatever its
// value.
func (db *Database) FindByAttr(name string, r Restriction) []*Object {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.collectLocked(db.byAttr[strings.ToLower(name)], r)
}

// ObjectsIn materializes the restriction: every stored object it admits,
// ref-ascending.
func (db *Database) ObjectsIn(r Restriction) []*Object {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var out []*Object
	if r.Refs != nil {
		for ref := range r.Refs {
			if o := db.objects[ref]; o != nil && r.Allows(o) {
				out = append(out, o)
			}
		}
	} else {
		for _, o := range db.objects {
			if r.Allows(o) {
				out = append(out, o)
			}
		}
	}
	sortObjects(out)
	return out
}

// AliasesOf flattens the alias lists of the given objects, preserving
// their order.
func (db *Database) AliasesOf(objs []*Object) []AliasEntry {
	return CollectAliases(objs)
}

// RefRange returns objects with low <= ref <= high, ref-ascending.
func (db *Database) RefRange(low, high DBRef) []*Object {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var out []*Object
	for ref, o := range db.objects {
		if ref >= low && ref <= high {
			out = append(out, o)
		}
	}
	sortObjects(out)
	return out
}

// Totals counts stored objects per typeclass path.
func (db *Database) Totals() map[string]int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make(map[string]int, len(db.byType))
	for path, refs := range db.byType {
		out[path] = len(refs)
	}
	return out
}

// TypeSearch returns every object with exactly the given typeclass path.
func (db *Database) TypeSearch(path string) []*Object {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.collectLocked(db.byType[path], Restriction{})
}

// Contents returns the objects whose Location is loc, minus any excluded
// refs.
func (db *Database) Contents(loc DBRef, exclude ...DBRef) []*Object {
	skip := make(refSet, len(exclude))
	for _, ref := range exclude {
		skip[ref] = struct{}{}
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	var out []*Object
	for ref, o := range db.objects {
		if o.Location != loc {
			continue
		}
		if _, ok := skip[ref]; ok {
			continue
		}
		out = append(out, o)
	}
	sortObjects(out)
	return out
}

// FindByKeyAndType returns objects whose key matches case-insensitively
// and whose typeclass path matches exactly. Aliases do not count here.
func (db *Database) FindByKeyAndType(key, typepath string, r Restriction) []*Object {
	db.mu.RLock()
	defer db.mu.RUnlock()
	hits := make(refSet)
	for ref := range db.byKey[strings.ToLower(key)] {
		if o := db.objects[ref]; o != nil && o.TypePath == typepath {
			hits[ref] = struct{}{}
		}
	}
	return db.collectLocked(hits, r)
}

// CollectAliases flattens the alias lists of the given objects in order.
func CollectAliases(objs []*Object) []AliasEntry {
	var out []AliasEntry
	for _, o := range objs {
		for _, a := range o.Aliases {
			out = append(out, AliasEntry{Alias: a, Obj: o})
		}
	}
	return out
}

func (db *Database) scanRefFieldLocked(value string, r Restriction, get func(*Object) DBRef) []*Object {
	want, ok := ParseRefValue(value)
	if !ok {
		return []*Object{}
	}
	var out []*Object
	for _, o := range db.objects {
		if get(o) == want && r.Allows(o) {
			out = append(out, o)
		}
	}
	sortObjects(out)
	return out
}

func (db *Database) collectLocked(hits refSet, r Restriction) []*Object {
	out := make([]*Object, 0, len(hits))
	for ref := range hits {
		if o := db.objects[ref]; o != nil && r.Allows(o) {
			out = append(out, o)
		}
	}
	sortObjects(out)
	return out
}

func (db *Database) index(o *Object) {
	addRef(db.byKey, strings.ToLower(o.Key), o.DBRef)
	for _, a := range o.Aliases {
		addRef(db.byAlias, strings.ToLower(a), o.DBRef)
	}
	addRef(db.byType, o.TypePath, o.DBRef)
	for name := range o.Attrs {
		addRef(db.byAttr, name, o.DBRef)
	}
}

func (db *Database) unindex(o *Object) {
	dropRef(db.byKey, strings.ToLower(o.Key), o.DBRef)
	for _, a := range o.Aliases {
		dropRef(db.byAlias, strings.ToLower(a), o.DBRef)
	}
	dropRef(db.byType, o.TypePath, o.DBRef)
	for name := range o.Attrs {
		dropRef(db.byAttr, name, o.DBRef)
	}
}

func addRef(idx map[string]refSet, key string, ref DBRef) {
	set, ok := idx[key]
	if !ok {
		set = make(refSet)
		idx[key] = set
	}
	set[ref] = struct{}{}
}

func dropRef(idx map[string]refSet, key string, ref DBRef) {
	if set, ok := idx[key]; ok {
		delete(set, ref)
		if len(set) == 0 {
			delete(idx, key)
		}
	}
}

func canonicalizeAttrs(o *Object) {
	for k := range o.Attrs {
		if k != strings.ToLower(k) {
			rebuilt := make(map[string]string, len(o.Attrs))
			for name, v := range o.Attrs {
				rebuilt[strings.ToLower(name)] = v
			}
			o.Attrs = rebuilt
			return
		}
	}
}

func sortObjects(objs []*Object) {
	sort.Slice(objs, func(i, j int) bool { return objs[i].DBRef < objs[j].DBRef })
}
