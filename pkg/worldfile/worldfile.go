// Package worldfile reads and writes the YAML world fixture format: a
// `world:` list of objects with their refs, names, relations and
// attributes. It is the interchange format the command line tools load
// worlds from and the deterministic export target for snapshots.
package worldfile

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/crystal-mush/objsearch/pkg/objdb"
)

// File is the top-level YAML document.
type File struct {
	World []Entry `yaml:"world"`
}

// Entry is one object row. Relation fields are pointers so an absent
// field reads as unset rather than as #0.
type Entry struct {
	Ref         int               `yaml:"ref"`
	Key         string            `yaml:"key"`
	Aliases     []string          `yaml:"aliases,omitempty"`
	TypePath    string            `yaml:"typepath,omitempty"`
	Location    *int              `yaml:"location,omitempty"`
	Home        *int              `yaml:"home,omitempty"`
	Destination *int              `yaml:"destination,omitempty"`
	Owner       *int              `yaml:"owner,omitempty"`
	Attrs       map[string]string `yaml:"attrs,omitempty"`
}

// Load reads a world file from disk and returns a populated Database.
func Load(path string) (*objdb.Database, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("worldfile: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a world file from the given reader. Duplicate refs are an
// error; everything else Validate flags is left to the caller.
func Parse(r io.Reader) (*objdb.Database, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("worldfile: read: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("worldfile: parse: %w", err)
	}

	db := objdb.NewDatabase()
	for _, e := range f.World {
		ref := objdb.DBRef(e.Ref)
		if _, ok := db.FindByRef(ref); ok {
			return nil, fmt.Errorf("worldfile: duplicate ref %s", ref)
		}
		if err := db.Put(e.object()); err != nil {
			return nil, fmt.Errorf("worldfile: ref %d: %w", e.Ref, err)
		}
	}
	return db, nil
}

// Write writes the database as a world file, ref-ascending so repeated
// exports of the same world are byte-identical.
func Write(w io.Writer, db *objdb.Database) error {
	objs := db.All()
	f := File{World: make([]Entry, 0, len(objs))}
	for _, o := range objs {
		f.World = append(f.World, entryOf(o))
	}
	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("worldfile: encode: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("worldfile: write: %w", err)
	}
	return nil
}

// Save writes the database to a file path, going through a temp file so
// a crash never leaves a half-written world behind.
func Save(path string, db *objdb.Database) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("worldfile: create %s: %w", tmpPath, err)
	}
	if err := Write(f, db); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("worldfile: close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("worldfile: rename %s: %w", path, err)
	}
	return nil
}

func (e Entry) object() *objdb.Object {
	o := objdb.NewObject(objdb.DBRef(e.Ref), e.Key)
	o.Aliases = e.Aliases
	o.TypePath = e.TypePath
	o.Location = refOrNothing(e.Location)
	o.Home = refOrNothing(e.Home)
	o.Destination = refOrNothing(e.Destination)
	o.Owner = refOrNothing(e.Owner)
	for name, value := range e.Attrs {
		o.SetAttr(name, value)
	}
	return o
}

func entryOf(o *objdb.Object) Entry {
	e := Entry{
		Ref:         int(o.DBRef),
		Key:         o.Key,
		Aliases:     o.Aliases,
		TypePath:    o.TypePath,
		Location:    refPtr(o.Location),
		Home:        refPtr(o.Home),
		Destination: refPtr(o.Destination),
		Owner:       refPtr(o.Owner),
	}
	if len(o.Attrs) > 0 {
		e.Attrs = o.Attrs
	}
	return e
}

func refOrNothing(p *int) objdb.DBRef {
	if p == nil {
		return objdb.Nothing
	}
	return objdb.DBRef(*p)
}

func refPtr(r objdb.DBRef) *int {
	if r == objdb.Nothing {
		return nil
	}
	n := int(r)
	return &n
}
