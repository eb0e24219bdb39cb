package worldfile

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/crystal-mush/objsearch/pkg/objdb"
)

const sampleWorld = `
world:
  - ref: 0
    key: Limbo
    typepath: typeclasses.rooms.Room
  - ref: 1
    key: Wizard
    aliases: [wiz]
    typepath: typeclasses.characters.Character
    location: 0
    home: 0
  - ref: 2
    key: sword
    aliases: [blade]
    typepath: typeclasses.objects.Object
    location: 0
    owner: 1
    attrs:
      Desc: A sharp sword.
      damage: "5"
  - ref: 3
    key: north
    typepath: typeclasses.exits.Exit
    location: 0
    destination: 0
`

func TestParse(t *testing.T) {
	db, err := Parse(strings.NewReader(sampleWorld))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if db.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", db.Len())
	}

	limbo, ok := db.FindByRef(0)
	if !ok {
		t.Fatal("FindByRef(0) missing")
	}
	if limbo.Location != objdb.Nothing || limbo.Home != objdb.Nothing {
		t.Errorf("absent relations = %s, %s; want #-1, #-1", limbo.Location, limbo.Home)
	}

	sword, ok := db.FindByRef(2)
	if !ok {
		t.Fatal("FindByRef(2) missing")
	}
	if sword.Location != 0 || sword.Owner != 1 {
		t.Errorf("sword relations = %+v", sword)
	}
	// Attribute names canonicalize on load.
	if v, ok := sword.Attr("desc"); !ok || v != "A sharp sword." {
		t.Errorf(`Attr(desc) = %q, %v; want "A sharp sword.", true`, v, ok)
	}

	got := db.FindByKeyOrAlias("wiz", true, objdb.Unrestricted())
	if len(got) != 1 || got[0].DBRef != 1 {
		t.Errorf("FindByKeyOrAlias(wiz) = %v", got)
	}
}

func TestParseDuplicateRef(t *testing.T) {
	doc := `
world:
  - {ref: 1, key: first}
  - {ref: 1, key: second}
`
	if _, err := Parse(strings.NewReader(doc)); err == nil {
		t.Fatal("Parse accepted a duplicate ref")
	} else if !strings.Contains(err.Error(), "duplicate ref #1") {
		t.Errorf("error = %v, want duplicate ref #1", err)
	}
}

func TestParseRejectsBadRef(t *testing.T) {
	doc := `
world:
  - {ref: -3, key: broken}
`
	if _, err := Parse(strings.NewReader(doc)); err == nil {
		t.Fatal("Parse accepted a negative ref")
	}
}

func TestParseBadYAML(t *testing.T) {
	if _, err := Parse(strings.NewReader("world: [")); err == nil {
		t.Fatal("Parse accepted malformed YAML")
	}
}

func TestWriteRoundTrip(t *testing.T) {
	db, err := Parse(strings.NewReader(sampleWorld))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	var buf bytes.Buffer
	if err := Write(&buf, db); err != nil {
		t.Fatalf("Write: %v", err)
	}
	back, err := Parse(&buf)
	if err != nil {
		t.Fatalf("Parse(rewritten): %v", err)
	}

	if !reflect.DeepEqual(db.All(), back.All()) {
		t.Errorf("round trip changed the world:\nbefore %+v\nafter  %+v", db.All(), back.All())
	}
}

func TestWriteIsDeterministic(t *testing.T) {
	doc := `
world:
  - {ref: 3, key: north}
  - {ref: 0, key: Limbo}
  - {ref: 2, key: sword}
`
	db, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	var first, second bytes.Buffer
	if err := Write(&first, db); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := Write(&second, db); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Error("two exports of the same world differ")
	}

	out := first.String()
	if !(strings.Index(out, "ref: 0") < strings.Index(out, "ref: 2") &&
		strings.Index(out, "ref: 2") < strings.Index(out, "ref: 3")) {
		t.Errorf("entries not ref-ascending:\n%s", out)
	}
}

func TestSaveLoad(t *testing.T) {
	db, err := Parse(strings.NewReader(sampleWorld))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	path := filepath.Join(t.TempDir(), "world.yaml")
	if err := Save(path, db); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}

	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if back.Len() != db.Len() {
		t.Errorf("Len() = %d, want %d", back.Len(), db.Len())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load succeeded on a missing file")
	}
}

func TestValidate(t *testing.T) {
	db := objdb.NewDatabase()
	put := func(o *objdb.Object) {
		t.Helper()
		if err := db.Put(o); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	put(objdb.NewObject(0, "Limbo"))
	put(objdb.NewObject(1, ""))
	shield := objdb.NewObject(2, "shield")
	shield.Location = 99
	put(shield)
	box := objdb.NewObject(3, "box")
	box.Location = 3
	put(box)
	sword1 := objdb.NewObject(4, "sword")
	sword1.Location = 0
	put(sword1)
	sword2 := objdb.NewObject(5, "sword")
	sword2.Location = 0
	put(sword2)

	got := Validate(db)
	want := []Issue{
		{1, "blank key"},
		{2, "location #99 does not exist"},
		{3, "located inside itself"},
		{4, `name "sword" also answers for #5 at #0`},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Validate() = %v, want %v", got, want)
	}
}

func TestValidateCleanWorld(t *testing.T) {
	db, err := Parse(strings.NewReader(sampleWorld))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	// An object answering to its own key as an alias is not a clash.
	vault := objdb.NewObject(4, "vault")
	vault.Aliases = []string{"Vault"}
	vault.Location = 0
	if err := db.Put(vault); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if issues := Validate(db); len(issues) != 0 {
		t.Errorf("Validate() = %v, want none", issues)
	}
}
