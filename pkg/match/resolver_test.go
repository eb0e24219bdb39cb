package match

import (
	"testing"

	"github.com/crystal-mush/objsearch/pkg/objdb"
)

const (
	typeRoom  = "typeclasses.rooms.Room"
	typeChar  = "typeclasses.characters.Character"
	typeThing = "typeclasses.objects.Object"
	typeExit  = "typeclasses.exits.Exit"
)

// newTestStore builds the shared search corpus:
//   - Room #0 (Limbo)
//   - Character #1 (Wizard, alias "wiz") in #0
//   - Thing #2 (sword, alias "blade") in #0, damage=5 metal=iron
//   - Thing #3 (sword) in #0, damage=7 metal=iron
//   - Thing #4 (Sharp Sword of Doom, alias "doomblade") carried by #1
//   - Thing #5 (shield) carried by #1, with an attribute named
//     "location" shadowing the schema field
//   - Exit #6 (north) in #0 leading to #7
//   - Room #7 (Treasury, alias "vault")
//   - Thing #8 (keyed "#2", a name that looks like a reference)
//   - Thing #9 (will-o-wisp, a name full of separators)
//   - Thing #10 (bladesmith)
func newTestStore(t *testing.T) *objdb.Database {
	t.Helper()
	db := objdb.NewDatabase()
	put := func(o *objdb.Object) {
		t.Helper()
		if err := db.Put(o); err != nil {
			t.Fatalf("Put(#%d): %v", o.DBRef, err)
		}
	}

	limbo := objdb.NewObject(0, "Limbo")
	limbo.TypePath = typeRoom
	put(limbo)

	wizard := objdb.NewObject(1, "Wizard")
	wizard.TypePath = typeChar
	wizard.Aliases = []string{"wiz"}
	wizard.Location = 0
	wizard.Home = 0
	put(wizard)

	sword1 := objdb.NewObject(2, "sword")
	sword1.TypePath = typeThing
	sword1.Aliases = []string{"blade"}
	sword1.Location = 0
	sword1.Owner = 1
	sword1.SetAttr("damage", "5")
	sword1.SetAttr("metal", "iron")
	put(sword1)

	sword2 := objdb.NewObject(3, "sword")
	sword2.TypePath = typeThing
	sword2.Location = 0
	sword2.Owner = 1
	sword2.SetAttr("damage", "7")
	sword2.SetAttr("metal", "iron")
	put(sword2)

	doom := objdb.NewObject(4, "Sharp Sword of Doom")
	doom.TypePath = typeThing
	doom.Aliases = []string{"doomblade"}
	doom.Location = 1
	doom.Owner = 1
	put(doom)

	shield := objdb.NewObject(5, "shield")
	shield.TypePath = typeThing
	shield.Location = 1
	shield.Home = 0
	shield.Owner = 1
	shield.SetAttr("location", "#12")
	put(shield)

	north := objdb.NewObject(6, "north")
	north.TypePath = typeExit
	north.Location = 0
	north.Destination = 7
	put(north)

	treasury := objdb.NewObject(7, "Treasury")
	treasury.TypePath = typeRoom
	treasury.Aliases = []string{"vault"}
	put(treasury)

	hashling := objdb.NewObject(8, "#2")
	hashling.TypePath = typeThing
	put(hashling)

	wisp := objdb.NewObject(9, "will-o-wisp")
	wisp.TypePath = typeThing
	put(wisp)

	smith := objdb.NewObject(10, "bladesmith")
	smith.TypePath = typeThing
	put(smith)

	return db
}

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	return NewResolver(newTestStore(t), nil)
}

func gotRefs(objs []*objdb.Object) []objdb.DBRef {
	out := make([]objdb.DBRef, len(objs))
	for i, o := range objs {
		out[i] = o.DBRef
	}
	return out
}

func checkRefs(t *testing.T, q Query, got []*objdb.Object, want []objdb.DBRef) {
	t.Helper()
	if len(got) != len(want) {
		t.Errorf("Resolve(%+v) = %v, want %v", q, gotRefs(got), want)
		return
	}
	for i, o := range got {
		if o.DBRef != want[i] {
			t.Errorf("Resolve(%+v) = %v, want %v", q, gotRefs(got), want)
			return
		}
	}
}

func TestResolveReferences(t *testing.T) {
	r := newTestResolver(t)

	tests := []struct {
		name string
		q    Query
		want []objdb.DBRef
	}{
		{"literal reference", Query{Raw: "#2", Exact: true}, []objdb.DBRef{2}},
		{"reference beats name match", Query{Raw: "#2", Exact: true, Candidates: nil}, []objdb.DBRef{2}},
		{"inexact treats it as a name", Query{Raw: "#2"}, []objdb.DBRef{8}},
		{"dangling reference falls through", Query{Raw: "#99", Exact: true}, nil},
		{"candidates gate the reference", Query{Raw: "#2", Exact: true, Candidates: []objdb.DBRef{3, 4}}, nil},
		{"candidates admit the reference", Query{Raw: "#2", Exact: true, Candidates: []objdb.DBRef{2, 3}}, []objdb.DBRef{2}},
		// The type filter alone does not gate a literal reference.
		{"type filter skips the reference shortcut", Query{Raw: "#2", Exact: true, Types: []string{typeRoom}}, []objdb.DBRef{2}},
		// Attribute searches never take the reference shortcut.
		{"attribute search ignores references", Query{Raw: "#2", Exact: true, Attribute: "damage"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkRefs(t, tt.q, r.Resolve(tt.q), tt.want)
		})
	}
}

func TestResolveExactNames(t *testing.T) {
	r := newTestResolver(t)

	tests := []struct {
		name string
		q    Query
		want []objdb.DBRef
	}{
		{"empty query", Query{Raw: ""}, nil},
		{"key case-insensitive", Query{Raw: "SWORD", Exact: true}, []objdb.DBRef{2, 3}},
		{"alias", Query{Raw: "blade", Exact: true}, []objdb.DBRef{2}},
		{"alias case-insensitive", Query{Raw: "WIZ", Exact: true}, []objdb.DBRef{1}},
		{"separator-laden key", Query{Raw: "will-o-wisp", Exact: true}, []objdb.DBRef{9}},
		{"unknown name", Query{Raw: "dagger", Exact: true}, nil},
		// Exact callers get the exact pass twice, never fuzzy.
		{"no fuzzy for exact callers", Query{Raw: "swor", Exact: true}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkRefs(t, tt.q, r.Resolve(tt.q), tt.want)
		})
	}
}

func TestResolveFuzzy(t *testing.T) {
	r := newTestResolver(t)

	tests := []struct {
		name string
		q    Query
		want []objdb.DBRef
	}{
		{"key prefix", Query{Raw: "swo"}, []objdb.DBRef{2, 3}},
		{"multiword prefix", Query{Raw: "sharp sw"}, []objdb.DBRef{4}},
		// Without candidates the pool preselection needs the raw string
		// to be a literal prefix of a key or alias.
		{"word-skipping query misses globally", Query{Raw: "sw do"}, nil},
		{"word-skipping query hits candidates", Query{Raw: "sw do", Candidates: []objdb.DBRef{2, 3, 4}}, []objdb.DBRef{4}},
		{"candidate pool matches mid-name words", Query{Raw: "sw", Candidates: []objdb.DBRef{2, 3, 4}}, []objdb.DBRef{2, 3, 4}},
		{"global pool needs the literal prefix", Query{Raw: "sw"}, []objdb.DBRef{2, 3}},
		// Keys shadow aliases in the fuzzy pass: the alias "blade" put
		// #2 in the pool, but bladesmith's key match wins it all.
		{"keys shadow aliases", Query{Raw: "blad"}, []objdb.DBRef{10}},
		// The whole string "blade" is an exact alias hit, so the first
		// pass answers before fuzzy ever sees bladesmith.
		{"exact hit preempts fuzzy", Query{Raw: "blade"}, []objdb.DBRef{2}},
		// No key matches "doombl" anywhere, so the alias pass runs.
		{"alias fallback", Query{Raw: "doombl"}, []objdb.DBRef{4}},
		{"fuzzy respects the type filter", Query{Raw: "swo", Types: []string{typeRoom}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkRefs(t, tt.q, r.Resolve(tt.q), tt.want)
		})
	}
}

func TestResolveOrdinals(t *testing.T) {
	r := newTestResolver(t)

	tests := []struct {
		name string
		q    Query
		want []objdb.DBRef
	}{
		{"first", Query{Raw: "1-sword", Exact: true}, []objdb.DBRef{2}},
		{"second", Query{Raw: "2-sword", Exact: true}, []objdb.DBRef{3}},
		{"second, fuzzy", Query{Raw: "2-swo"}, []objdb.DBRef{3}},
		{"overflow keeps the set", Query{Raw: "5-sword", Exact: true}, []objdb.DBRef{2, 3}},
		{"unique match ignores the ordinal", Query{Raw: "7-shield", Exact: true}, []objdb.DBRef{5}},
		{"ordinal on alias", Query{Raw: "1-blade", Exact: true}, []objdb.DBRef{2}},
		{"no directive in hyphenated name", Query{Raw: "will-o-wisp", Exact: true}, []objdb.DBRef{9}},
		{"zero is not an ordinal", Query{Raw: "0-sword", Exact: true}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkRefs(t, tt.q, r.Resolve(tt.q), tt.want)
		})
	}
}

func TestResolveSuffixGrammar(t *testing.T) {
	conf := DefaultConfig()
	conf.MultimatchStyle = "suffix"
	r := NewResolver(newTestStore(t), conf)

	q := Query{Raw: "sword-2", Exact: true}
	checkRefs(t, q, r.Resolve(q), []objdb.DBRef{3})

	// The prefix form is plain text under the suffix grammar.
	q = Query{Raw: "2-sword", Exact: true}
	checkRefs(t, q, r.Resolve(q), nil)
}

func TestResolveAttributes(t *testing.T) {
	r := newTestResolver(t)

	tests := []struct {
		name string
		q    Query
		want []objdb.DBRef
	}{
		{"attribute value", Query{Attribute: "damage", Raw: "7"}, []objdb.DBRef{3}},
		{"attribute values compare verbatim", Query{Attribute: "damage", Raw: "7 "}, nil},
		{"schema field", Query{Attribute: "location", Raw: "#0"}, []objdb.DBRef{1, 2, 3, 6}},
		// #5 carries an attribute named "location" with value "#12";
		// the schema field still answers, and emptily.
		{"schema field shadows the attribute table", Query{Attribute: "location", Raw: "#12"}, nil},
		{"key field is case-sensitive", Query{Attribute: "key", Raw: "sword"}, []objdb.DBRef{2, 3}},
		{"key field wrong case", Query{Attribute: "key", Raw: "Sword"}, nil},
		{"typepath field", Query{Attribute: "typepath", Raw: typeRoom}, []objdb.DBRef{0, 7}},
		{"ordinal over attribute matches", Query{Attribute: "metal", Raw: "2-iron"}, []objdb.DBRef{3}},
		{"candidates restrict attribute search", Query{Attribute: "damage", Raw: "5", Candidates: []objdb.DBRef{3}}, nil},
		{"types restrict attribute search", Query{Attribute: "metal", Raw: "iron", Types: []string{typeRoom}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkRefs(t, tt.q, r.Resolve(tt.q), tt.want)
		})
	}
}

func TestResolveRestrictions(t *testing.T) {
	r := newTestResolver(t)

	tests := []struct {
		name string
		q    Query
		want []objdb.DBRef
	}{
		{"candidates narrow", Query{Raw: "sword", Exact: true, Candidates: []objdb.DBRef{2}}, []objdb.DBRef{2}},
		{"empty candidate slice matches nothing", Query{Raw: "sword", Exact: true, Candidates: []objdb.DBRef{}}, nil},
		{"dead candidates never widen", Query{Raw: "sword", Exact: true, Candidates: []objdb.DBRef{42, 43}}, nil},
		{"unknown candidates are dropped", Query{Raw: "sword", Exact: true, Candidates: []objdb.DBRef{3, 42}}, []objdb.DBRef{3}},
		{"type filter", Query{Raw: "sword", Exact: true, Types: []string{typeThing}}, []objdb.DBRef{2, 3}},
		{"type filter excludes", Query{Raw: "sword", Exact: true, Types: []string{typeRoom}}, nil},
		{"candidates filtered by type first", Query{Raw: "treasury", Exact: true, Candidates: []objdb.DBRef{2, 7}, Types: []string{typeThing}}, nil},
		{"candidates and types agree", Query{Raw: "sword", Exact: true, Candidates: []objdb.DBRef{2, 7}, Types: []string{typeThing}}, []objdb.DBRef{2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkRefs(t, tt.q, r.Resolve(tt.q), tt.want)
		})
	}
}

// Resolution is read-only and deterministic: repeating a query gives the
// same answer and leaves the store untouched.
func TestResolveIsPure(t *testing.T) {
	store := newTestStore(t)
	r := NewResolver(store, nil)
	before := store.Len()

	q := Query{Raw: "2-swo"}
	first := r.Resolve(q)
	second := r.Resolve(q)
	checkRefs(t, q, first, []objdb.DBRef{3})
	checkRefs(t, q, second, gotRefs(first))

	if store.Len() != before {
		t.Errorf("store size changed from %d to %d", before, store.Len())
	}
}
