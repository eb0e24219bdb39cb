// worldload inspects a YAML world file and imports it into the on-disk
// store formats.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/crystal-mush/objsearch/pkg/boltstore"
	"github.com/crystal-mush/objsearch/pkg/objdb"
	"github.com/crystal-mush/objsearch/pkg/sqlstore"
	"github.com/crystal-mush/objsearch/pkg/worldfile"
)

func main() {
	worldPath := flag.String("world", "", "Path to YAML world file")
	showObj := flag.Int("obj", -1, "Show details for a specific object by ref")
	showTypes := flag.Bool("types", false, "List object counts per typeclass path")
	validate := flag.Bool("validate", false, "Run world consistency checks")
	boltPath := flag.String("bolt", "", "Import the world into a bbolt database at this path")
	sqlitePath := flag.String("sqlite", "", "Import the world into a SQLite database at this path")
	flag.Parse()

	if *worldPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: worldload -world <path-to-world-file> [options]")
		fmt.Fprintln(os.Stderr, "  -obj <ref>      Show object details")
		fmt.Fprintln(os.Stderr, "  -types          List object counts per type")
		fmt.Fprintln(os.Stderr, "  -validate       Run consistency checks")
		fmt.Fprintln(os.Stderr, "  -bolt <path>    Import into a bbolt database")
		fmt.Fprintln(os.Stderr, "  -sqlite <path>  Import into a SQLite database")
		os.Exit(1)
	}

	fmt.Printf("Loading world file: %s\n", *worldPath)
	start := time.Now()

	db, err := worldfile.Load(*worldPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loaded in %v\n\n", time.Since(start))

	// Always print summary
	printSummary(db)

	if *showTypes {
		fmt.Println()
		printTypes(db)
	}

	if *showObj >= 0 {
		fmt.Println()
		printObject(db, objdb.DBRef(*showObj))
	}

	if *validate {
		fmt.Println()
		runValidation(db)
	}

	if *boltPath != "" {
		fmt.Println()
		importBolt(db, *boltPath)
	}

	if *sqlitePath != "" {
		fmt.Println()
		importSQLite(db, *sqlitePath)
	}
}

func printSummary(db *objdb.Database) {
	fmt.Println("=== WORLD SUMMARY ===")
	objs := db.All()
	aliasCount := 0
	attrCount := 0
	for _, o := range objs {
		aliasCount += len(o.Aliases)
		attrCount += len(o.Attrs)
	}
	fmt.Printf("Objects:    %d\n", len(objs))
	if len(objs) > 0 {
		fmt.Printf("Ref range:  %s .. %s\n", objs[0].DBRef, objs[len(objs)-1].DBRef)
	}
	fmt.Printf("Aliases:    %d\n", aliasCount)
	fmt.Printf("Attributes: %d\n", attrCount)
	fmt.Printf("Types:      %d\n", len(db.Totals()))
}

func printTypes(db *objdb.Database) {
	fmt.Println("=== OBJECTS BY TYPE ===")

	type typeCount struct {
		path  string
		count int
	}
	var counts []typeCount
	for path, n := range db.Totals() {
		counts = append(counts, typeCount{path, n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].path < counts[j].path
	})

	fmt.Printf("%-50s %s\n", "TypePath", "Count")
	fmt.Println(strings.Repeat("-", 58))
	for _, c := range counts {
		path := c.path
		if path == "" {
			path = "(none)"
		}
		fmt.Printf("%-50s %d\n", truncate(path, 50), c.count)
	}
}

func printObject(db *objdb.Database, ref objdb.DBRef) {
	o, ok := db.FindByRef(ref)
	if !ok {
		fmt.Printf("Object %s not found in world\n", ref)
		return
	}

	fmt.Printf("=== OBJECT %s ===\n", ref)
	fmt.Printf("Key:         %s\n", o.Key)
	if len(o.Aliases) > 0 {
		fmt.Printf("Aliases:     %s\n", strings.Join(o.Aliases, ", "))
	}
	fmt.Printf("Type:        %s\n", o.TypePath)
	fmt.Printf("Location:    %s\n", o.Location)
	fmt.Printf("Home:        %s\n", o.Home)
	fmt.Printf("Destination: %s\n", o.Destination)
	fmt.Printf("Owner:       %s\n", o.Owner)

	fmt.Printf("\n--- Attributes (%d) ---\n", len(o.Attrs))
	names := make([]string, 0, len(o.Attrs))
	for name := range o.Attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		val := o.Attrs[name]
		if len(val) > 120 {
			val = val[:120] + "..."
		}
		fmt.Printf("  %s = %s\n", name, val)
	}

	contents := db.Contents(ref)
	if len(contents) > 0 {
		fmt.Printf("\n--- Contents (%d) ---\n", len(contents))
		for _, c := range contents {
			fmt.Printf("  %-8s %s\n", c.DBRef, truncate(c.Key, 40))
		}
	}
}

func runValidation(db *objdb.Database) {
	fmt.Println("=== VALIDATION ===")
	issues := worldfile.Validate(db)
	for _, issue := range issues {
		fmt.Printf("WARN: %s\n", issue)
	}
	fmt.Printf("\nValidation complete: %d warnings\n", len(issues))
}

func importBolt(db *objdb.Database, path string) {
	fmt.Println("=== IMPORT (bbolt) ===")
	start := time.Now()
	s, err := boltstore.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()
	if err := s.ImportFromDatabase(db); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Imported %d objects to %s in %v\n", db.Len(), path, time.Since(start))
}

func importSQLite(db *objdb.Database, path string) {
	fmt.Println("=== IMPORT (sqlite) ===")
	start := time.Now()
	s, err := sqlstore.Open(path, 0, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()
	if err := s.ImportFromDatabase(db); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Imported %d objects to %s in %v\n", db.Len(), path, time.Since(start))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
