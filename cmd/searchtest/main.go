// searchtest drives the resolver from the command line: one-shot
// lookups with -e, or an interactive loop for poking at a world.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/crystal-mush/objsearch/pkg/boltstore"
	"github.com/crystal-mush/objsearch/pkg/match"
	"github.com/crystal-mush/objsearch/pkg/objdb"
	"github.com/crystal-mush/objsearch/pkg/sqlstore"
	"github.com/crystal-mush/objsearch/pkg/worldfile"
)

// session holds the live resolver and the query settings the loop
// toggles. The watcher goroutine swaps in a freshly loaded world under
// the lock.
type session struct {
	mu       sync.RWMutex
	resolver *match.Resolver
	store    match.Storage

	exact      bool
	attribute  string
	types      []string
	candidates []objdb.DBRef
}

func (s *session) resolve(raw string) []*objdb.Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolver.Resolve(match.Query{
		Raw:        raw,
		Exact:      s.exact,
		Attribute:  s.attribute,
		Types:      s.types,
		Candidates: s.candidates,
	})
}

func (s *session) swap(store match.Storage, conf *match.Config, m *match.Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = store
	s.resolver = match.NewResolver(store, conf)
	s.resolver.SetMetrics(m)
}

func (s *session) currentStore() match.Storage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

func main() {
	worldPath := flag.String("world", "", "Path to YAML world file")
	boltPath := flag.String("bolt", "", "Path to bbolt object database")
	sqlitePath := flag.String("sqlite", "", "Path to SQLite object database")
	confPath := flag.String("conf", "", "Path to search config (.yaml or .conf)")
	expr := flag.String("e", "", "Query to resolve (non-interactive mode)")
	exact := flag.Bool("exact", false, "Disable the fuzzy retry pass")
	attribute := flag.String("attr", "", "Search attribute/property values under this name")
	typesArg := flag.String("types", "", "Comma-separated typeclass paths to admit")
	candsArg := flag.String("candidates", "", "Comma-separated refs to search within")
	watch := flag.Bool("watch", false, "Reload the world file when it changes on disk")
	flag.Parse()

	conf := match.DefaultConfig()
	if *confPath != "" {
		c, err := match.LoadConfig(*confPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		conf = c
	}

	store, err := openStore(*worldPath, *boltPath, *sqlitePath, conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	metrics := match.NewMetrics(nil)
	sess := &session{
		exact:      *exact,
		attribute:  *attribute,
		types:      splitList(*typesArg),
		candidates: parseRefList(*candsArg),
	}
	sess.swap(store, conf, metrics)

	if conf.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
			metrics.Handler(sess.currentStore()).ServeHTTP(w, r)
		})
		go func() {
			log.Printf("searchtest: metrics on http://%s/metrics", conf.MetricsAddr)
			if err := http.ListenAndServe(conf.MetricsAddr, mux); err != nil {
				log.Printf("searchtest: metrics server: %v", err)
			}
		}()
	}

	if *expr != "" {
		printResults(sess.resolve(*expr))
		return
	}

	if *watch {
		if *worldPath == "" {
			fmt.Fprintln(os.Stderr, "WARNING: -watch needs -world, ignoring")
		} else {
			watchWorld(*worldPath, conf, metrics, sess)
		}
	}

	repl(sess)
}

func openStore(worldPath, boltPath, sqlitePath string, conf *match.Config) (match.Storage, error) {
	switch {
	case worldPath != "":
		fmt.Fprintf(os.Stderr, "Loading world from %s...\n", worldPath)
		db, err := worldfile.Load(worldPath)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(os.Stderr, "Loaded %d objects\n", db.Len())
		return db, nil

	case boltPath != "":
		fmt.Fprintf(os.Stderr, "Opening bolt store %s...\n", boltPath)
		s, err := boltstore.Open(boltPath)
		if err != nil {
			return nil, err
		}
		if err := s.LoadAll(); err != nil {
			return nil, err
		}
		fmt.Fprintf(os.Stderr, "Loaded %d objects\n", s.Len())
		return s, nil

	case sqlitePath != "":
		fmt.Fprintf(os.Stderr, "Opening sqlite store %s...\n", sqlitePath)
		s, err := sqlstore.Open(sqlitePath, conf.SQLQueryLimit, conf.SQLTimeout)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(os.Stderr, "Store has %d objects\n", s.Len())
		return s, nil
	}

	// Minimal built-in world so the tool runs without arguments.
	db := objdb.NewDatabase()
	limbo := objdb.NewObject(0, "Limbo")
	limbo.TypePath = "typeclasses.rooms.Room"
	wizard := objdb.NewObject(1, "Wizard")
	wizard.TypePath = "typeclasses.characters.Character"
	wizard.Aliases = []string{"wiz"}
	wizard.Location = 0
	wizard.Owner = 1
	db.Put(limbo)
	db.Put(wizard)
	fmt.Fprintln(os.Stderr, "Using minimal test world (no file loaded)")
	return db, nil
}

// watchWorld reloads the world file whenever it changes on disk and
// swaps the session's resolver over to the new copy.
func watchWorld(path string, conf *match.Config, m *match.Metrics, sess *session) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("WARNING: could not start world watcher: %v", err)
		return
	}

	base := filepath.Base(path)
	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if filepath.Base(event.Name) != base {
					continue
				}
				db, err := worldfile.Load(path)
				if err != nil {
					log.Printf("world reload failed: %v", err)
					continue
				}
				sess.swap(db, conf, m)
				log.Printf("world reloaded: %d objects", db.Len())

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("world watcher error: %v", err)
			}
		}
	}()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		log.Printf("WARNING: could not watch %s: %v", filepath.Dir(path), err)
		watcher.Close()
		return
	}
	log.Printf("Watching %s for changes", path)
}

func repl(sess *session) {
	fmt.Println("objsearch resolver test harness")
	fmt.Println("Type a query to resolve it, :help for commands, quit to exit.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("search> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		if strings.HasPrefix(line, ":") {
			command(sess, line)
			continue
		}
		printResults(sess.resolve(line))
	}
}

func command(sess *session, line string) {
	fields := strings.SplitN(line, " ", 2)
	cmd := fields[0]
	arg := ""
	if len(fields) == 2 {
		arg = strings.TrimSpace(fields[1])
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	switch cmd {
	case ":exact":
		sess.exact = arg == "on" || arg == "true" || arg == "1"
		fmt.Printf("exact = %v\n", sess.exact)
	case ":attr":
		sess.attribute = arg
	case ":types":
		sess.types = splitList(arg)
	case ":candidates":
		sess.candidates = parseRefList(arg)
	case ":show":
		fmt.Printf("exact:      %v\n", sess.exact)
		fmt.Printf("attribute:  %q\n", sess.attribute)
		fmt.Printf("types:      %v\n", sess.types)
		fmt.Printf("candidates: %v\n", sess.candidates)
	case ":help":
		fmt.Println(":exact on|off        toggle the fuzzy retry")
		fmt.Println(":attr <name>         search attribute values (empty to clear)")
		fmt.Println(":types a,b           admit only these typeclass paths (empty to clear)")
		fmt.Println(":candidates 1,2,3    search only these refs (empty to clear)")
		fmt.Println(":show                print current settings")
	default:
		fmt.Printf("unknown command %s (try :help)\n", cmd)
	}
}

func printResults(objs []*objdb.Object) {
	if len(objs) == 0 {
		fmt.Println("No match.")
		return
	}
	fmt.Printf("Matched %d:\n", len(objs))
	for _, o := range objs {
		aliases := ""
		if len(o.Aliases) > 0 {
			aliases = " (" + strings.Join(o.Aliases, ", ") + ")"
		}
		fmt.Printf("  %-8s %-30s %s%s\n", o.DBRef, truncate(o.Key, 30), o.TypePath, aliases)
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseRefList(s string) []objdb.DBRef {
	if s == "" {
		return nil
	}
	refs := []objdb.DBRef{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimPrefix(strings.TrimSpace(part), "#")
		n, err := strconv.Atoi(part)
		if err != nil {
			fmt.Fprintf(os.Stderr, "WARNING: skipping bad ref %q\n", part)
			continue
		}
		refs = append(refs, objdb.DBRef(n))
	}
	return refs
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
