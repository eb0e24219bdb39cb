package sqlstore

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/crystal-mush/objsearch/pkg/objdb"
)

// The read surface mirrors objdb.Database: every multi-object result is
// deduplicated and ref-ascending, restrictions only narrow, and the one
// error that escapes is objdb.ErrNoSuchField. Internal SQL faults are
// logged and surface as empty results, matching the resolver's
// never-errors contract.

// FindByRef returns the object a literal reference denotes.
func (s *Store) FindByRef(ref objdb.DBRef) (*objdb.Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	objs, err := s.materialize([]objdb.DBRef{ref}, nil, 0)
	if err != nil {
		log.Printf("sqlstore: find ref %s: %v", ref, err)
		return nil, false
	}
	if len(objs) == 0 {
		return nil, false
	}
	return objs[0], true
}

// FindByKeyOrAlias returns objects whose key or alias matches pattern,
// case-insensitively. With exact set the whole string must match;
// otherwise pattern is a prefix. An empty pattern matches nothing.
func (s *Store) FindByKeyOrAlias(pattern string, exact bool, r objdb.Restriction) []*objdb.Object {
	if pattern == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var query string
	var arg string
	if exact {
		query = `SELECT ref FROM objects WHERE key_lc = ?
			UNION SELECT obj FROM aliases WHERE alias_lc = ?`
		arg = strings.ToLower(pattern)
	} else {
		query = `SELECT ref FROM objects WHERE key_lc LIKE ? ESCAPE '\'
			UNION SELECT obj FROM aliases WHERE alias_lc LIKE ? ESCAPE '\'`
		arg = likePrefix(strings.ToLower(pattern))
	}
	refs, err := s.queryRefs(query, arg, arg)
	if err != nil {
		log.Printf("sqlstore: name search %q: %v", pattern, err)
		return nil
	}
	return s.collect(refs, r)
}

// FindByFieldValue returns objects whose schema field equals value. Key
// comparison is case-sensitive; relation fields accept "#N" or a bare
// integer. Unknown fields return objdb.ErrNoSuchField; a known field
// with no matches returns an empty slice.
func (s *Store) FindByFieldValue(field, value string, r objdb.Restriction) ([]*objdb.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var refs []objdb.DBRef
	var err error
	switch strings.ToLower(field) {
	case objdb.FieldKey:
		refs, err = s.queryRefs(`SELECT ref FROM objects WHERE key = ?`, value)
	case objdb.FieldTypePath:
		refs, err = s.queryRefs(`SELECT ref FROM objects WHERE typepath = ?`, value)
	case objdb.FieldLocation, objdb.FieldHome, objdb.FieldDestination, objdb.FieldOwner:
		want, ok := objdb.ParseRefValue(value)
		if !ok {
			return []*objdb.Object{}, nil
		}
		col := strings.ToLower(field)
		refs, err = s.queryRefs(`SELECT ref FROM objects WHERE `+col+` = ?`, int(want))
	default:
		return nil, fmt.Errorf("sqlstore: field %q: %w", field, objdb.ErrNoSuchField)
	}
	if err != nil {
		log.Printf("sqlstore: field search %s=%q: %v", field, value, err)
		return []*objdb.Object{}, nil
	}
	return s.collect(refs, r), nil
}

// FindByField returns objects whose schema field is set: non-empty for
// key and typepath, anything but Nothing for relation fields. Unknown
// fields return objdb.ErrNoSuchField.
func (s *Store) FindByField(field string, r objdb.Restriction) ([]*objdb.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var refs []objdb.DBRef
	var err error
	switch strings.ToLower(field) {
	case objdb.FieldKey:
		refs, err = s.queryRefs(`SELECT ref FROM objects WHERE key <> ''`)
	case objdb.FieldTypePath:
		refs, err = s.queryRefs(`SELECT ref FROM objects WHERE typepath <> ''`)
	case objdb.FieldLocation, objdb.FieldHome, objdb.FieldDestination, objdb.FieldOwner:
		col := strings.ToLower(field)
		refs, err = s.queryRefs(`SELECT ref FROM objects WHERE `+col+` <> ?`, int(objdb.Nothing))
	default:
		return nil, fmt.Errorf("sqlstore: field %q: %w", field, objdb.ErrNoSuchField)
	}
	if err != nil {
		log.Printf("sqlstore: field search %s: %v", field, err)
		return []*objdb.Object{}, nil
	}
	return s.collect(refs, r), nil
}

// FindByAttrValue returns objects carrying the named attribute with
// exactly the given value. Names are case-insensitive, values are not.
func (s *Store) FindByAttrValue(name, value string, r objdb.Restriction) []*objdb.Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs, err := s.queryRefs(
		`SELECT obj FROM attrs WHERE name = ? AND value = ?`,
		strings.ToLower(name), value,
	)
	if err != nil {
		log.Printf("sqlstore: attr search %s=%q: %v", name, value, err)
		return nil
	}
	return s.collect(refs, r)
}

// FindByAttr returns objects carrying the named attribute, whatever its
// value.
func (s *Store) FindByAttr(name string, r objdb.Restriction) []*objdb.Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs, err := s.queryRefs(`SELECT obj FROM attrs WHERE name = ?`, strings.ToLower(name))
	if err != nil {
		log.Printf("sqlstore: attr search %s: %v", name, err)
		return nil
	}
	return s.collect(refs, r)
}

// ObjectsIn materializes every object the restriction admits.
func (s *Store) ObjectsIn(r objdb.Restriction) []*objdb.Object {
	s.mu.Lock()
	defer s.mu.Unlock()

	var refs []objdb.DBRef
	if r.Refs != nil {
		refs = make([]objdb.DBRef, 0, len(r.Refs))
		for ref := range r.Refs {
			refs = append(refs, ref)
		}
	} else {
		var err error
		refs, err = s.allRefs()
		if err != nil {
			log.Printf("sqlstore: list objects: %v", err)
			return nil
		}
	}
	return s.collect(refs, r)
}

// AliasesOf flattens the alias lists of the given objects in order.
func (s *Store) AliasesOf(objs []*objdb.Object) []objdb.AliasEntry {
	return objdb.CollectAliases(objs)
}

// collect materializes the given refs under a restriction. Candidate
// refs intersect in Go, the type filter rides the SQL query, and any
// Where predicate runs over the loaded objects. Results come back
// ref-ascending and capped at the store's query limit.
func (s *Store) collect(refs []objdb.DBRef, r objdb.Restriction) []*objdb.Object {
	if r.Refs != nil {
		kept := refs[:0]
		for _, ref := range refs {
			if _, ok := r.Refs[ref]; ok {
				kept = append(kept, ref)
			}
		}
		refs = kept
	}
	if len(refs) == 0 {
		return nil
	}
	if r.Types != nil && len(r.Types) == 0 {
		return nil
	}
	objs, err := s.materialize(refs, r.Types, s.queryLimit)
	if err != nil {
		log.Printf("sqlstore: load objects: %v", err)
		return nil
	}
	if r.Where == nil {
		return objs
	}
	kept := objs[:0]
	for _, o := range objs {
		if r.Where(o) {
			kept = append(kept, o)
		}
	}
	return kept
}

// materialize loads full objects for the given refs, type-filtered and
// ref-ascending. A limit of zero means unbounded.
func (s *Store) materialize(refs []objdb.DBRef, types map[string]struct{}, limit int) ([]*objdb.Object, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	args := make([]any, 0, len(refs)+len(types)+1)
	for _, ref := range refs {
		args = append(args, int(ref))
	}
	query := `SELECT ref, key, typepath, location, home, destination, owner
		FROM objects WHERE ref IN (` + placeholders(len(refs)) + `)`
	if types != nil {
		query += ` AND typepath IN (` + placeholders(len(types)) + `)`
		for path := range types {
			args = append(args, path)
		}
	}
	query += ` ORDER BY ref`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byRef := make(map[objdb.DBRef]*objdb.Object)
	var out []*objdb.Object
	for rows.Next() {
		var ref, loc, home, dest, owner int
		o := &objdb.Object{Attrs: make(map[string]string)}
		if err := rows.Scan(&ref, &o.Key, &o.TypePath, &loc, &home, &dest, &owner); err != nil {
			return nil, err
		}
		o.DBRef = objdb.DBRef(ref)
		o.Location = objdb.DBRef(loc)
		o.Home = objdb.DBRef(home)
		o.Destination = objdb.DBRef(dest)
		o.Owner = objdb.DBRef(owner)
		byRef[o.DBRef] = o
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}

	loaded := make([]any, 0, len(out))
	for _, o := range out {
		loaded = append(loaded, int(o.DBRef))
	}
	in := placeholders(len(loaded))

	arows, err := s.db.QueryContext(ctx,
		`SELECT obj, alias FROM aliases WHERE obj IN (`+in+`) ORDER BY rowid`, loaded...)
	if err != nil {
		return nil, err
	}
	defer arows.Close()
	for arows.Next() {
		var obj int
		var alias string
		if err := arows.Scan(&obj, &alias); err != nil {
			return nil, err
		}
		if o := byRef[objdb.DBRef(obj)]; o != nil {
			o.Aliases = append(o.Aliases, alias)
		}
	}
	if err := arows.Err(); err != nil {
		return nil, err
	}

	trows, err := s.db.QueryContext(ctx,
		`SELECT obj, name, value FROM attrs WHERE obj IN (`+in+`)`, loaded...)
	if err != nil {
		return nil, err
	}
	defer trows.Close()
	for trows.Next() {
		var obj int
		var name, value string
		if err := trows.Scan(&obj, &name, &value); err != nil {
			return nil, err
		}
		if o := byRef[objdb.DBRef(obj)]; o != nil {
			o.Attrs[name] = value
		}
	}
	if err := trows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// queryRefs runs a single-column ref query.
func (s *Store) queryRefs(query string, args ...any) ([]objdb.DBRef, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var refs []objdb.DBRef
	for rows.Next() {
		var ref int
		if err := rows.Scan(&ref); err != nil {
			return nil, err
		}
		refs = append(refs, objdb.DBRef(ref))
	}
	return refs, rows.Err()
}

func (s *Store) allRefs() ([]objdb.DBRef, error) {
	return s.queryRefs(`SELECT ref FROM objects ORDER BY ref`)
}

// placeholders renders "?, ?, ?" for an IN clause of n values.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// likePrefix turns a literal string into a LIKE prefix pattern,
// escaping the wildcard characters with backslash.
func likePrefix(literal string) string {
	var b strings.Builder
	for _, r := range literal {
		switch r {
		case '%', '_', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('%')
	return b.String()
}
