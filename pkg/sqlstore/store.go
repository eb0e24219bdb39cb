// Package sqlstore keeps the object database in a SQLite file and
// answers the resolver's query surface with SQL instead of in-memory
// indexes. It suits worlds too large to hold resident and tooling that
// wants to inspect the database with ordinary sqlite3 clients.
//
// Case-insensitive matching is done against shadow columns lowercased
// in Go at write time, so SQL lookups agree exactly with the in-memory
// objdb indexes.
package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/crystal-mush/objsearch/pkg/objdb"
)

const formatVersion = 1

// Fallbacks when the caller passes zero or negative knobs.
const (
	DefaultQueryLimit = 1000
	DefaultTimeoutSec = 5
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS objects (
	ref         INTEGER PRIMARY KEY,
	key         TEXT NOT NULL,
	key_lc      TEXT NOT NULL,
	typepath    TEXT NOT NULL DEFAULT '',
	location    INTEGER NOT NULL DEFAULT -1,
	home        INTEGER NOT NULL DEFAULT -1,
	destination INTEGER NOT NULL DEFAULT -1,
	owner       INTEGER NOT NULL DEFAULT -1
);
CREATE INDEX IF NOT EXISTS objects_key_lc ON objects(key_lc);
CREATE INDEX IF NOT EXISTS objects_typepath ON objects(typepath);
CREATE TABLE IF NOT EXISTS aliases (
	obj      INTEGER NOT NULL,
	alias    TEXT NOT NULL,
	alias_lc TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS aliases_obj ON aliases(obj);
CREATE INDEX IF NOT EXISTS aliases_lc ON aliases(alias_lc);
CREATE TABLE IF NOT EXISTS attrs (
	obj   INTEGER NOT NULL,
	name  TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (obj, name)
);
CREATE INDEX IF NOT EXISTS attrs_name ON attrs(name);
`

// Store is a SQLite-backed object store. It satisfies the resolver's
// Storage interface, so a match.Resolver can sit directly on it.
type Store struct {
	db         *sql.DB
	mu         sync.Mutex
	path       string
	queryLimit int
	timeout    time.Duration
}

// Open opens (creating if needed) a SQLite object database, sets WAL
// mode and busy timeout, and ensures the schema exists. queryLimit caps
// the number of objects any single search materializes; timeoutSec
// bounds each query.
func Open(path string, queryLimit, timeoutSec int) (*Store, error) {
	if queryLimit <= 0 {
		queryLimit = DefaultQueryLimit
	}
	if timeoutSec <= 0 {
		timeoutSec = DefaultTimeoutSec
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: setting WAL mode: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", timeoutSec*1000)); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: init %s: %w", path, err)
	}
	s := &Store{
		db:         db,
		path:       path,
		queryLimit: queryLimit,
		timeout:    time.Duration(timeoutSec) * time.Second,
	}
	if err := s.checkFormat(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: init %s: %w", path, err)
	}
	return s, nil
}

// checkFormat stamps a fresh database with the current format version
// and refuses databases written under a different one.
func (s *Store) checkFormat() error {
	var got int
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'format'`).Scan(&got)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.Exec(`INSERT INTO meta (key, value) VALUES ('format', ?)`, formatVersion)
		return err
	case err != nil:
		return err
	case got != formatVersion:
		return fmt.Errorf("format version %d, want %d", got, formatVersion)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the filesystem path of the SQLite database.
func (s *Store) Path() string { return s.path }

// Checkpoint forces a WAL checkpoint to flush all writes to the main
// database file.
func (s *Store) Checkpoint() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

// PutObject writes one object, replacing any previous row set for its
// ref.
func (s *Store) PutObject(o *objdb.Object) error {
	if o == nil {
		return fmt.Errorf("sqlstore: put: nil object")
	}
	if !o.DBRef.Valid() {
		return fmt.Errorf("sqlstore: put: invalid ref %s", o.DBRef)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlstore: put %s: %w", o.DBRef, err)
	}
	if err := putObjectTx(tx, o); err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlstore: put %s: %w", o.DBRef, err)
	}
	return tx.Commit()
}

// PutObjects writes a batch of objects in one transaction.
func (s *Store) PutObjects(objs ...*objdb.Object) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlstore: put batch: %w", err)
	}
	for _, o := range objs {
		if o == nil || !o.DBRef.Valid() {
			tx.Rollback()
			return fmt.Errorf("sqlstore: put batch: invalid object")
		}
		if err := putObjectTx(tx, o); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlstore: put %s: %w", o.DBRef, err)
		}
	}
	return tx.Commit()
}

// DeleteObject removes an object and its alias and attribute rows.
// Unknown refs are a no-op.
func (s *Store) DeleteObject(ref objdb.DBRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlstore: delete %s: %w", ref, err)
	}
	if err := deleteObjectTx(tx, ref); err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlstore: delete %s: %w", ref, err)
	}
	return tx.Commit()
}

// ImportFromDatabase replaces the store's contents with every object in
// db, in a single transaction.
func (s *Store) ImportFromDatabase(db *objdb.Database) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlstore: import: %w", err)
	}
	for _, table := range []string{"attrs", "aliases", "objects"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlstore: import: clear %s: %w", table, err)
		}
	}
	count := 0
	for _, o := range db.All() {
		if err := putObjectTx(tx, o); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlstore: import %s: %w", o.DBRef, err)
		}
		count++
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: import: %w", err)
	}
	log.Printf("sqlstore: imported %d objects into %s", count, s.path)
	return nil
}

// LoadAll reads every stored object into an in-memory Database.
func (s *Store) LoadAll() (*objdb.Database, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	refs, err := s.allRefs()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: load objects: %w", err)
	}
	objs, err := s.materialize(refs, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: load objects: %w", err)
	}
	db := objdb.NewDatabase()
	for _, o := range objs {
		if err := db.Put(o); err != nil {
			return nil, fmt.Errorf("sqlstore: load objects: %w", err)
		}
	}
	log.Printf("sqlstore: loaded %d objects from %s", len(objs), s.path)
	return db, nil
}

// Len returns the number of stored objects.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM objects`).Scan(&n); err != nil {
		log.Printf("sqlstore: count: %v", err)
		return 0
	}
	return n
}

// HasData reports whether any object has been stored.
func (s *Store) HasData() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	if err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM objects)`).Scan(&n); err != nil {
		log.Printf("sqlstore: hasdata: %v", err)
		return false
	}
	return n != 0
}

// Totals counts stored objects per typeclass path.
func (s *Store) Totals() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(`SELECT typepath, COUNT(*) FROM objects GROUP BY typepath`)
	if err != nil {
		log.Printf("sqlstore: totals: %v", err)
		return nil
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var path string
		var n int
		if err := rows.Scan(&path, &n); err != nil {
			log.Printf("sqlstore: totals: %v", err)
			return out
		}
		out[path] = n
	}
	if err := rows.Err(); err != nil {
		log.Printf("sqlstore: totals: %v", err)
	}
	return out
}

func putObjectTx(tx *sql.Tx, o *objdb.Object) error {
	ref := int(o.DBRef)
	if err := deleteObjectTx(tx, o.DBRef); err != nil {
		return err
	}
	_, err := tx.Exec(
		`INSERT INTO objects (ref, key, key_lc, typepath, location, home, destination, owner)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ref, o.Key, strings.ToLower(o.Key), o.TypePath,
		int(o.Location), int(o.Home), int(o.Destination), int(o.Owner),
	)
	if err != nil {
		return err
	}
	for _, a := range o.Aliases {
		if _, err := tx.Exec(
			`INSERT INTO aliases (obj, alias, alias_lc) VALUES (?, ?, ?)`,
			ref, a, strings.ToLower(a),
		); err != nil {
			return err
		}
	}
	for name, value := range o.Attrs {
		if _, err := tx.Exec(
			`INSERT INTO attrs (obj, name, value) VALUES (?, ?, ?)`,
			ref, strings.ToLower(name), value,
		); err != nil {
			return err
		}
	}
	return nil
}

func deleteObjectTx(tx *sql.Tx, ref objdb.DBRef) error {
	for _, table := range []string{"attrs", "aliases", "objects"} {
		col := "obj"
		if table == "objects" {
			col = "ref"
		}
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE "+col+" = ?", int(ref)); err != nil {
			return err
		}
	}
	return nil
}
