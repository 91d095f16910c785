// Package discovery walks an experiment root and indexes training run
// directories by their configuration. A run directory is any directory
// holding a scalar store whose base name encodes the seed; everything
// between the root and the run encodes the configuration.
package discovery

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/borkh/paper-prep/internal/eventlog"
)

// Param is one name/value pair parsed out of a configuration path
// element. Bare tokens (no "=") are flags and keep an empty Value.
type Param struct {
	Name  string
	Value string
}

// RunDir is a single discovered run: one seed of one configuration.
type RunDir struct {
	Path string
	Seed int
}

// Group collects every seed of one configuration. Key is the
// slash-joined path from the root to the runs' parent and is the
// canonical identity used for grouping, ranking and tie-breaking.
type Group struct {
	Key    string
	Params []Param
	Runs   []RunDir
}

// Skip records a directory that looked like a run but was not indexed.
type Skip struct {
	Path   string
	Reason string
}

// Snapshot is the result of one scan: groups sorted by key, runs
// sorted by seed, plus the skip diagnostics.
type Snapshot struct {
	Root    string
	Groups  []Group
	Skipped []Skip
}

// Runs counts indexed run directories across all groups.
func (s *Snapshot) Runs() int {
	n := 0
	for _, g := range s.Groups {
		n += len(g.Runs)
	}
	return n
}

// Group returns the group with the given canonical key.
func (s *Snapshot) Group(key string) (Group, bool) {
	for _, g := range s.Groups {
		if g.Key == key {
			return g, true
		}
	}
	return Group{}, false
}

// Convention describes how run directory names encode the seed.
type Convention struct {
	seedRE *regexp.Regexp
}

const defaultSeedPattern = `(?i)^(?:seed|version)[-_=]?(\d+)$`

// DefaultConvention matches seed-3, seed_3, seed=3, seed3 and
// Lightning's version_3.
func DefaultConvention() Convention {
	return Convention{seedRE: regexp.MustCompile(defaultSeedPattern)}
}

// CompileConvention builds a Convention from a custom pattern. The
// pattern must contain exactly one capture group for the seed digits.
func CompileConvention(pattern string) (Convention, error) {
	if pattern == "" {
		return DefaultConvention(), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Convention{}, fmt.Errorf("compiling seed pattern: %w", err)
	}
	if re.NumSubexp() != 1 {
		return Convention{}, fmt.Errorf("seed pattern %q: want exactly 1 capture group, got %d", pattern, re.NumSubexp())
	}
	return Convention{seedRE: re}, nil
}

// Seed parses the seed out of a run directory base name.
func (c Convention) Seed(base string) (int, bool) {
	m := c.seedRE.FindStringSubmatch(base)
	if m == nil {
		return 0, false
	}
	seed, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return seed, true
}

type candidate struct {
	path string
	rel  string
	seed int
}

// Scan walks root and indexes every run directory it can parse.
// Directories whose base name appears in exclude are not descended
// into. Unparseable or duplicate runs become Skipped entries; only a
// broken root is fatal.
func Scan(root string, conv Convention, exclude []string) (*Snapshot, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", root, err)
	}
	if fi, err := os.Stat(absRoot); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	} else if !fi.IsDir() {
		return nil, fmt.Errorf("scanning %s: not a directory", root)
	}

	excluded := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		excluded[name] = true
	}

	snap := &Snapshot{Root: absRoot}
	var cands []candidate
	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			snap.skip(path, fmt.Sprintf("unreadable: %v", err))
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != absRoot && excluded[d.Name()] {
			return fs.SkipDir
		}
		if !eventlog.HasStore(path) {
			return nil
		}
		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			snap.skip(path, fmt.Sprintf("relativizing: %v", err))
			return fs.SkipDir
		}
		if rel == "." {
			snap.skip(path, "scalar store directly under root, no seed directory")
			return fs.SkipDir
		}
		seed, ok := conv.Seed(d.Name())
		if !ok {
			snap.skip(path, fmt.Sprintf("directory name %q does not encode a seed", d.Name()))
			return fs.SkipDir
		}
		cands = append(cands, candidate{path: path, rel: filepath.ToSlash(rel), seed: seed})
		// Never look for runs nested inside a run.
		return fs.SkipDir
	})
	if walkErr != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, walkErr)
	}

	sort.Slice(cands, func(i, j int) bool { return cands[i].path < cands[j].path })

	groups := make(map[string]*Group)
	taken := make(map[string]string) // key "\x00" seed -> first path
	for _, c := range cands {
		key := keyOf(c.rel)
		id := key + "\x00" + strconv.Itoa(c.seed)
		if first, dup := taken[id]; dup {
			snap.skip(c.path, fmt.Sprintf("duplicate seed %d for %q, keeping %s", c.seed, key, first))
			continue
		}
		taken[id] = c.path
		g, ok := groups[key]
		if !ok {
			g = &Group{Key: key, Params: parseParams(key)}
			groups[key] = g
		}
		g.Runs = append(g.Runs, RunDir{Path: c.path, Seed: c.seed})
	}

	for _, g := range groups {
		sort.Slice(g.Runs, func(i, j int) bool { return g.Runs[i].Seed < g.Runs[j].Seed })
		snap.Groups = append(snap.Groups, *g)
	}
	sort.Slice(snap.Groups, func(i, j int) bool { return snap.Groups[i].Key < snap.Groups[j].Key })
	return snap, nil
}

func (s *Snapshot) skip(path, reason string) {
	log.Printf("warning: skipping %s: %s", path, reason)
	s.Skipped = append(s.Skipped, Skip{Path: path, Reason: reason})
}

// keyOf strips the seed element off a root-relative run path. Runs
// sitting directly under the root share the key ".".
func keyOf(rel string) string {
	i := strings.LastIndex(rel, "/")
	if i < 0 {
		return "."
	}
	return rel[:i]
}

// parseParams splits a canonical key into name/value pairs. Each path
// element may carry several comma-separated assignments.
func parseParams(key string) []Param {
	if key == "." {
		return nil
	}
	var params []Param
	for _, elem := range strings.Split(key, "/") {
		for _, tok := range strings.Split(elem, ",") {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			if name, val, found := strings.Cut(tok, "="); found {
				params = append(params, Param{Name: name, Value: val})
			} else {
				params = append(params, Param{Name: tok})
			}
		}
	}
	return params
}
