// Package grouper fetches export objects concurrently, parses them into
// documents, and buckets the documents by the group name derived from each
// object key.
package grouper

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"graph2sql/internal/datasource"
	"graph2sql/internal/document"
	"graph2sql/internal/logging"
	"graph2sql/internal/parser"
	jsonparser "graph2sql/internal/parser/json"
)

// DefaultWorkers is the fetch pool size when Options.Workers is zero.
const DefaultWorkers = 100

// Groups maps a group name to its documents in arrival order.
type Groups map[string][]document.Document

// Names returns the group names sorted ascending.
func (g Groups) Names() []string {
	names := make([]string, 0, len(g))
	for n := range g {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Documents returns the total number of documents across all groups.
func (g Groups) Documents() int {
	n := 0
	for _, docs := range g {
		n += len(docs)
	}
	return n
}

// Failure records an object that could not be fetched or parsed.
type Failure struct {
	Key string `json:"key"`
	Err error  `json:"-"`
}

func (f Failure) Error() string { return fmt.Sprintf("%s: %v", f.Key, f.Err) }

// Unwrap returns the underlying error.
func (f Failure) Unwrap() error { return f.Err }

// Options configures Group.
type Options struct {
	Workers     int           // concurrent fetches; DefaultWorkers when zero
	TaskTimeout time.Duration // per-object deadline; none when zero
	Parser      parser.Parser // NDJSON parser when nil
	Logger      *log.Logger
}

// GroupName derives a group name from an object key. The part of the key
// after prefix is cut at the first "-". When that part has no "-" its file
// extension is dropped instead. Keys that do not contain prefix fall back to
// their base name.
//
//	GroupName("exp/nodes/person-0001.json", "exp/nodes/") == "person"
//	GroupName("exp/nodes/person.json", "exp/nodes/")      == "person"
func GroupName(key, prefix string) string {
	rest := path.Base(key)
	if prefix != "" {
		if i := strings.Index(key, prefix); i >= 0 {
			rest = key[i+len(prefix):]
		}
	}
	if j := strings.IndexByte(rest, '-'); j >= 0 {
		return rest[:j]
	}
	return strings.TrimSuffix(rest, path.Ext(rest))
}

// Group fetches and parses every key on a bounded worker pool and groups the
// resulting documents. Documents of one group are appended in the order their
// objects finished, which is not necessarily key order.
//
// A key that fails to fetch or parse contributes no documents and is reported
// in the returned failures; every other key is unaffected. Keys ending in "/"
// are folder placeholders and are ignored.
func Group(ctx context.Context, store datasource.ObjectStore, keys []string, prefix string, opts Options) (Groups, []Failure) {
	logger := logging.Or(opts.Logger)
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	p := opts.Parser
	if p == nil {
		p = jsonparser.New(jsonparser.Options{})
	}

	var (
		mu       sync.Mutex
		groups   = Groups{}
		failures []Failure
		g        errgroup.Group
	)
	g.SetLimit(workers)

	for _, key := range keys {
		key := key
		if strings.HasSuffix(key, "/") {
			continue
		}
		name := GroupName(key, prefix)
		g.Go(func() error {
			docs, err := fetch(ctx, store, p, key, opts.TaskTimeout)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Error("source read failed", "key", key, "err", err)
				failures = append(failures, Failure{Key: key, Err: err})
				return nil
			}
			groups[name] = append(groups[name], docs...)
			logger.Debug("source parsed", "key", key, "group", name, "documents", len(docs))
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(failures, func(i, j int) bool { return failures[i].Key < failures[j].Key })
	return groups, failures
}

func fetch(ctx context.Context, store datasource.ObjectStore, p parser.Parser, key string, timeout time.Duration) ([]document.Document, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	rc, err := store.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	docs, err := p.Parse(rc)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []document.Document{}
	}
	return docs, nil
}
