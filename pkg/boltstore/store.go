// Package boltstore persists the object database in a bbolt file and
// keeps a fully indexed objdb.Database cache in front of it. Writes go
// through to disk; every query runs against the cache, so a Store can
// back a match.Resolver directly.
package boltstore

import (
	"fmt"
	"log"
	"os"

	bbolt "go.etcd.io/bbolt"

	"github.com/crystal-mush/objsearch/pkg/objdb"
)

// importBatchSize bounds objects per transaction during bulk imports.
const importBatchSize = 1000

// Store wraps a bbolt database and an in-memory cache for ACID persistence.
type Store struct {
	bolt  *bbolt.DB
	cache *objdb.Database
}

// Open opens or creates a bbolt database file, ensures all buckets exist
// and checks the on-disk format version.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("boltstore: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketMeta, bucketObjects} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		meta := tx.Bucket(bucketMeta)
		if v := meta.Get(keyFormat); v != nil {
			if got := keyToInt(v); got != formatVersion {
				return fmt.Errorf("format version %d, want %d", got, formatVersion)
			}
			return nil
		}
		return meta.Put(keyFormat, intToKey(formatVersion))
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("boltstore: init %s: %w", path, err)
	}

	return &Store{
		bolt:  db,
		cache: objdb.NewDatabase(),
	}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	if s.bolt != nil {
		return s.bolt.Close()
	}
	return nil
}

// DB returns the in-memory database cache.
func (s *Store) DB() *objdb.Database {
	return s.cache
}

// Path returns the filesystem path of the underlying bbolt database.
func (s *Store) Path() string {
	if s.bolt != nil {
		return s.bolt.Path()
	}
	return ""
}

// PutObject persists a single object (write-through) and re-indexes it
// in the cache.
func (s *Store) PutObject(obj *objdb.Object) error {
	if err := s.cache.Put(obj); err != nil {
		return err
	}
	data, err := encodeObject(obj)
	if err != nil {
		return fmt.Errorf("boltstore: encode object #%d: %w", obj.DBRef, err)
	}
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketObjects).Put(refToKey(obj.DBRef), data)
	})
}

// PutObjects persists multiple objects in a single bbolt transaction.
func (s *Store) PutObjects(objs ...*objdb.Object) error {
	for _, obj := range objs {
		if obj == nil {
			continue
		}
		if err := s.cache.Put(obj); err != nil {
			return err
		}
	}
	return s.writeBatch(objs)
}

// DeleteObject removes an object from bbolt and the cache.
func (s *Store) DeleteObject(ref objdb.DBRef) error {
	s.cache.Delete(ref)
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketObjects).Delete(refToKey(ref))
	})
}

// ImportFromDatabase bulk-loads an in-memory Database into bbolt,
// batching objects per transaction. The imported database becomes the
// cache.
func (s *Store) ImportFromDatabase(db *objdb.Database) error {
	s.cache = db

	all := db.All()
	count := 0
	for start := 0; start < len(all); start += importBatchSize {
		end := start + importBatchSize
		if end > len(all) {
			end = len(all)
		}
		if err := s.writeBatch(all[start:end]); err != nil {
			return err
		}
		count += end - start
	}

	log.Printf("boltstore: imported %d objects", count)
	return nil
}

// writeBatch writes a batch of objects in a single transaction.
func (s *Store) writeBatch(objs []*objdb.Object) error {
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketObjects)
		for _, obj := range objs {
			if obj == nil {
				continue
			}
			data, err := encodeObject(obj)
			if err != nil {
				return fmt.Errorf("encode #%d: %w", obj.DBRef, err)
			}
			if err := b.Put(refToKey(obj.DBRef), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadAll reads the entire bbolt database into the in-memory cache,
// rebuilding every index.
func (s *Store) LoadAll() error {
	count := 0
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketObjects)
		return b.ForEach(func(k, v []byte) error {
			obj, err := decodeObject(v)
			if err != nil {
				return fmt.Errorf("decode object %s: %w", keyToRef(k), err)
			}
			if err := s.cache.Put(obj); err != nil {
				return err
			}
			count++
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("boltstore: load objects: %w", err)
	}

	log.Printf("boltstore: loaded %d objects from bolt", count)
	return nil
}

// Backup creates a hot snapshot of the bbolt database using tx.WriteTo().
func (s *Store) Backup(path string) error {
	return s.bolt.View(func(tx *bbolt.Tx) error {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("boltstore: create backup %s: %w", path, err)
		}
		defer f.Close()
		_, err = tx.WriteTo(f)
		if err != nil {
			return fmt.Errorf("boltstore: write backup: %w", err)
		}
		log.Printf("boltstore: backup written to %s", path)
		return nil
	})
}

// HasData returns true if the bbolt database contains any objects.
func (s *Store) HasData() bool {
	hasData := false
	s.bolt.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketObjects)
		if b.Stats().KeyN > 0 {
			hasData = true
		}
		return nil
	})
	return hasData
}

// --- Query surface ---
//
// Reads delegate to the cache, which carries the secondary indexes. The
// delegation makes *Store usable wherever the resolver wants a store.

func (s *Store) FindByRef(ref objdb.DBRef) (*objdb.Object, bool) {
	return s.cache.FindByRef(ref)
}

func (s *Store) FindByFieldValue(field, value string, r objdb.Restriction) ([]*objdb.Object, error) {
	return s.cache.FindByFieldValue(field, value, r)
}

func (s *Store) FindByField(field string, r objdb.Restriction) ([]*objdb.Object, error) {
	return s.cache.FindByField(field, r)
}

func (s *Store) FindByAttrValue(name, value string, r objdb.Restriction) []*objdb.Object {
	return s.cache.FindByAttrValue(name, value, r)
}

func (s *Store) FindByAttr(name string, r objdb.Restriction) []*objdb.Object {
	return s.cache.FindByAttr(name, r)
}

func (s *Store) FindByKeyOrAlias(pattern string, exact bool, r objdb.Restriction) []*objdb.Object {
	return s.cache.FindByKeyOrAlias(pattern, exact, r)
}

func (s *Store) ObjectsIn(r objdb.Restriction) []*objdb.Object {
	return s.cache.ObjectsIn(r)
}

func (s *Store) AliasesOf(objs []*objdb.Object) []objdb.AliasEntry {
	return s.cache.AliasesOf(objs)
}

// Len returns the number of cached objects.
func (s *Store) Len() int {
	return s.cache.Len()
}
