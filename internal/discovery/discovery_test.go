package discovery_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/borkh/paper-prep/internal/discovery"
)

func mkRun(t *testing.T, root string, elems ...string) string {
	t.Helper()
	dir := filepath.Join(append([]string{root}, elems...)...)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := `{"step": 0, "tag": "loss", "value": 1.0}` + "\n"
	if err := os.WriteFile(filepath.Join(dir, "metrics.jsonl"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestScanGroupsBySeed(t *testing.T) {
	root := t.TempDir()
	mkRun(t, root, "lr=0.001,bs=32", "seed-0")
	mkRun(t, root, "lr=0.001,bs=32", "seed-1")
	mkRun(t, root, "lr=0.01,bs=32", "seed-0")

	snap, err := discovery.Scan(root, discovery.DefaultConvention(), nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(snap.Groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(snap.Groups))
	}
	g := snap.Groups[0]
	if g.Key != "lr=0.001,bs=32" {
		t.Errorf("first key: got %q", g.Key)
	}
	if len(g.Runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(g.Runs))
	}
	if g.Runs[0].Seed != 0 || g.Runs[1].Seed != 1 {
		t.Errorf("runs not sorted by seed: %+v", g.Runs)
	}
	if snap.Runs() != 3 {
		t.Errorf("total runs: got %d, want 3", snap.Runs())
	}
}

func TestScanNestedKey(t *testing.T) {
	root := t.TempDir()
	mkRun(t, root, "resnet", "lr=0.1", "seed_0")

	snap, err := discovery.Scan(root, discovery.DefaultConvention(), nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(snap.Groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(snap.Groups))
	}
	g := snap.Groups[0]
	if g.Key != "resnet/lr=0.1" {
		t.Errorf("key: got %q, want resnet/lr=0.1", g.Key)
	}
	want := []discovery.Param{{Name: "resnet"}, {Name: "lr", Value: "0.1"}}
	if len(g.Params) != len(want) {
		t.Fatalf("params: got %+v", g.Params)
	}
	for i, p := range want {
		if g.Params[i] != p {
			t.Errorf("param %d: got %+v, want %+v", i, g.Params[i], p)
		}
	}
}

func TestSeedConventions(t *testing.T) {
	tests := []struct {
		base string
		seed int
		ok   bool
	}{
		{"seed-3", 3, true},
		{"seed_3", 3, true},
		{"seed=3", 3, true},
		{"seed3", 3, true},
		{"Seed-12", 12, true},
		{"version_0", 0, true},
		{"version-7", 7, true},
		{"trial-3", 0, false},
		{"seed-x", 0, false},
		{"checkpoints", 0, false},
	}
	conv := discovery.DefaultConvention()
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			seed, ok := conv.Seed(tt.base)
			if ok != tt.ok || seed != tt.seed {
				t.Errorf("Seed(%q): got (%d, %v), want (%d, %v)", tt.base, seed, ok, tt.seed, tt.ok)
			}
		})
	}
}

func TestScanSkipsUnparseableNames(t *testing.T) {
	root := t.TempDir()
	mkRun(t, root, "lr=0.1", "seed-0")
	mkRun(t, root, "lr=0.1", "run-final") // holds a store but no seed

	snap, err := discovery.Scan(root, discovery.DefaultConvention(), nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if snap.Runs() != 1 {
		t.Errorf("runs: got %d, want 1", snap.Runs())
	}
	if len(snap.Skipped) != 1 {
		t.Fatalf("skipped: got %+v, want 1 entry", snap.Skipped)
	}
	if !strings.Contains(snap.Skipped[0].Reason, "does not encode a seed") {
		t.Errorf("reason: got %q", snap.Skipped[0].Reason)
	}
}

func TestScanDuplicateSeedKeepsFirst(t *testing.T) {
	root := t.TempDir()
	first := mkRun(t, root, "lr=0.1", "seed-0")
	mkRun(t, root, "lr=0.1", "seed_0")

	snap, err := discovery.Scan(root, discovery.DefaultConvention(), nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if snap.Runs() != 1 {
		t.Fatalf("runs: got %d, want 1", snap.Runs())
	}
	g := snap.Groups[0]
	if g.Runs[0].Path != first {
		t.Errorf("kept %s, want lexically first %s", g.Runs[0].Path, first)
	}
	if len(snap.Skipped) != 1 || !strings.Contains(snap.Skipped[0].Reason, "duplicate seed") {
		t.Errorf("skipped: got %+v", snap.Skipped)
	}
}

func TestScanExcludesNamedDirs(t *testing.T) {
	root := t.TempDir()
	mkRun(t, root, "lr=0.1", "seed-0")
	mkRun(t, root, "paper", "images", "seed-0") // copied artifacts must not be re-indexed

	snap, err := discovery.Scan(root, discovery.DefaultConvention(), []string{"paper"})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if snap.Runs() != 1 {
		t.Errorf("runs: got %d, want 1", snap.Runs())
	}
}

func TestScanIgnoresRunsNestedInsideRuns(t *testing.T) {
	root := t.TempDir()
	run := mkRun(t, root, "lr=0.1", "seed-0")
	mkRun(t, filepath.Dir(run), "seed-0", "checkpoints", "seed-1")

	snap, err := discovery.Scan(root, discovery.DefaultConvention(), nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if snap.Runs() != 1 {
		t.Errorf("runs: got %d, want 1", snap.Runs())
	}
}

func TestScanEmptyRoot(t *testing.T) {
	snap, err := discovery.Scan(t.TempDir(), discovery.DefaultConvention(), nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(snap.Groups) != 0 {
		t.Errorf("groups: got %d, want 0", len(snap.Groups))
	}
}

func TestScanMissingRoot(t *testing.T) {
	_, err := discovery.Scan(filepath.Join(t.TempDir(), "nope"), discovery.DefaultConvention(), nil)
	if err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestCompileConvention(t *testing.T) {
	conv, err := discovery.CompileConvention(`^run(\d+)$`)
	if err != nil {
		t.Fatalf("CompileConvention: %v", err)
	}
	if seed, ok := conv.Seed("run42"); !ok || seed != 42 {
		t.Errorf("Seed(run42): got (%d, %v)", seed, ok)
	}
	if _, err := discovery.CompileConvention(`^run\d+$`); err == nil {
		t.Error("expected error for pattern without capture group")
	}
	if _, err := discovery.CompileConvention(`(((`); err == nil {
		t.Error("expected error for invalid pattern")
	}
}
