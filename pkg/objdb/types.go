// Package objdb holds the object database model: entities addressed by
// dbref, carrying a primary key name, aliases, a typeclass path, relation
// fields and a free-form attribute table. The Database type keeps the
// whole world in memory with secondary indexes for name, alias, attribute
// and typeclass lookups.
package objdb

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DBRef is the fundamental object reference type.
type DBRef int

const (
	Nothing   DBRef = -1
	Ambiguous DBRef = -2
)

// String renders the canonical "#N" form.
func (r DBRef) String() string {
	return fmt.Sprintf("#%d", int(r))
}

// Valid reports whether the ref can address a stored object.
func (r DBRef) Valid() bool {
	return r >= 0
}

// Object is a single database entity.
type Object struct {
	DBRef       DBRef
	Key         string
	Aliases     []string
	TypePath    string
	Location    DBRef
	Home        DBRef
	Destination DBRef
	Owner       DBRef
	Attrs       map[string]string
}

// NewObject returns an entity with all relation fields unset.
func NewObject(ref DBRef, key string) *Object {
	return &Object{
		DBRef:       ref,
		Key:         key,
		Location:    Nothing,
		Home:        Nothing,
		Destination: Nothing,
		Owner:       Nothing,
		Attrs:       make(map[string]string),
	}
}

// Attr returns the value of a named attribute. Attribute names are
// case-insensitive; values are stored verbatim.
func (o *Object) Attr(name string) (string, bool) {
	v, ok := o.Attrs[strings.ToLower(name)]
	return v, ok
}

// SetAttr stores an attribute value under the canonical lowercased name.
func (o *Object) SetAttr(name, value string) {
	if o.Attrs == nil {
		o.Attrs = make(map[string]string)
	}
	o.Attrs[strings.ToLower(name)] = value
}

// AliasEntry pairs one alias string with the object that carries it.
type AliasEntry struct {
	Alias string
	Obj   *Object
}

// ErrNoSuchField marks a property lookup against a name that is not part
// of the object schema. Callers distinguish it from a valid field that
// simply matched nothing.
var ErrNoSuchField = errors.New("no such schema field")

// Schema field names accepted by Property and the field searches.
const (
	FieldKey         = "key"
	FieldTypePath    = "typepath"
	FieldLocation    = "location"
	FieldHome        = "home"
	FieldDestination = "destination"
	FieldOwner       = "owner"
)

// Property returns the canonical string form of a schema field: the key
// and typepath verbatim, relation fields as "#N". Unknown field names
// return ErrNoSuchField.
func (o *Object) Property(field string) (string, error) {
	switch strings.ToLower(field) {
	case FieldKey:
		return o.Key, nil
	case FieldTypePath:
		return o.TypePath, nil
	case FieldLocation:
		return o.Location.String(), nil
	case FieldHome:
		return o.Home.String(), nil
	case FieldDestination:
		return o.Destination.String(), nil
	case FieldOwner:
		return o.Owner.String(), nil
	}
	return "", fmt.Errorf("objdb: property %q: %w", field, ErrNoSuchField)
}

// ParseRefValue reads a relation-field query value. Accepts both the
// canonical "#N" form and a bare integer.
func ParseRefValue(value string) (DBRef, bool) {
	s := strings.TrimPrefix(value, "#")
	n, err := strconv.Atoi(s)
	if err != nil {
		return Nothing, false
	}
	return DBRef(n), true
}
