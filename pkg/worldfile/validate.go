package worldfile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/crystal-mush/objsearch/pkg/objdb"
)

// Issue is one consistency problem found in a world. Issues are
// advisory; a world with issues still loads and searches.
type Issue struct {
	Ref     objdb.DBRef
	Problem string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Ref, i.Problem)
}

// Validate checks a loaded world for the problems that make searches
// confusing: blank keys, relations pointing at missing objects, objects
// located inside themselves, and co-located objects answering to the
// same name. Results are sorted by ref.
func Validate(db *objdb.Database) []Issue {
	var issues []Issue

	type locName struct {
		loc  objdb.DBRef
		name string
	}
	byName := make(map[locName][]objdb.DBRef)

	for _, o := range db.All() {
		if strings.TrimSpace(o.Key) == "" {
			issues = append(issues, Issue{o.DBRef, "blank key"})
		}
		if o.Location == o.DBRef {
			issues = append(issues, Issue{o.DBRef, "located inside itself"})
		}
		issues = append(issues, danglingRelations(db, o)...)

		// Objects at no location cannot shadow each other.
		if o.Location == objdb.Nothing {
			continue
		}
		names := make(map[string]struct{}, len(o.Aliases)+1)
		names[strings.ToLower(o.Key)] = struct{}{}
		for _, a := range o.Aliases {
			names[strings.ToLower(a)] = struct{}{}
		}
		for name := range names {
			k := locName{o.Location, name}
			byName[k] = append(byName[k], o.DBRef)
		}
	}

	for k, refs := range byName {
		if len(refs) < 2 {
			continue
		}
		issues = append(issues, Issue{
			Ref:     refs[0],
			Problem: fmt.Sprintf("name %q also answers for %s at %s", k.name, refList(refs[1:]), k.loc),
		})
	}

	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Ref != issues[j].Ref {
			return issues[i].Ref < issues[j].Ref
		}
		return issues[i].Problem < issues[j].Problem
	})
	return issues
}

func danglingRelations(db *objdb.Database, o *objdb.Object) []Issue {
	relations := []struct {
		field string
		ref   objdb.DBRef
	}{
		{objdb.FieldLocation, o.Location},
		{objdb.FieldHome, o.Home},
		{objdb.FieldDestination, o.Destination},
		{objdb.FieldOwner, o.Owner},
	}
	var issues []Issue
	for _, rel := range relations {
		if rel.ref == objdb.Nothing {
			continue
		}
		if _, ok := db.FindByRef(rel.ref); !ok {
			issues = append(issues, Issue{o.DBRef, fmt.Sprintf("%s %s does not exist", rel.field, rel.ref)})
		}
	}
	return issues
}

func refList(refs []objdb.DBRef) string {
	parts := make([]string, len(refs))
	for i, r := range refs {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}
