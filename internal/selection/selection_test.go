package selection_test

import (
	"testing"

	"github.com/borkh/paper-prep/internal/aggregate"
	"github.com/borkh/paper-prep/internal/discovery"
	"github.com/borkh/paper-prep/internal/selection"
)

func cand(key string, est float64, seeds int) selection.Candidate {
	return selection.Candidate{
		Group:  discovery.Group{Key: key},
		Metric: aggregate.Metric{Estimate: est, Seeds: seeds, Expected: seeds, Defined: true},
	}
}

func undefCand(key string) selection.Candidate {
	return selection.Candidate{
		Group:  discovery.Group{Key: key},
		Metric: aggregate.Metric{Partial: true},
	}
}

func keys(entries []selection.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Group.Key
	}
	return out
}

func TestRankMaximize(t *testing.T) {
	r := selection.Rank([]selection.Candidate{
		cand("a", 0.7, 3),
		cand("b", 0.9, 3),
		cand("c", 0.8, 3),
	}, selection.Maximize, 1)
	got := keys(r.Entries)
	want := []string{"b", "c", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order: got %v, want %v", got, want)
		}
	}
	w, ok := r.Winner()
	if !ok || w.Group.Key != "b" {
		t.Errorf("winner: got %+v, %v", w.Group.Key, ok)
	}
	if w.Rank != 1 {
		t.Errorf("winner rank: got %d, want 1", w.Rank)
	}
}

func TestRankMinimize(t *testing.T) {
	r := selection.Rank([]selection.Candidate{
		cand("a", 0.7, 3),
		cand("b", 0.9, 3),
	}, selection.Minimize, 1)
	if w, ok := r.Winner(); !ok || w.Group.Key != "a" {
		t.Errorf("winner: got %v, %v, want a", w.Group.Key, ok)
	}
}

func TestRankTieBreaksOnKey(t *testing.T) {
	r := selection.Rank([]selection.Candidate{
		cand("zeta", 0.9, 3),
		cand("alpha", 0.9, 3),
	}, selection.Maximize, 1)
	if w, _ := r.Winner(); w.Group.Key != "alpha" {
		t.Errorf("tied winner: got %q, want alpha", w.Group.Key)
	}
}

func TestRankIsOrderIndependent(t *testing.T) {
	forward := []selection.Candidate{cand("a", 0.7, 3), cand("b", 0.9, 3), undefCand("c")}
	backward := []selection.Candidate{undefCand("c"), cand("b", 0.9, 3), cand("a", 0.7, 3)}
	got := keys(selection.Rank(forward, selection.Maximize, 1).Entries)
	want := keys(selection.Rank(backward, selection.Maximize, 1).Entries)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rank depends on input order: %v vs %v", got, want)
		}
	}
}

func TestRankStrata(t *testing.T) {
	few := cand("few-seeds", 0.99, 1) // best value but below threshold
	r := selection.Rank([]selection.Candidate{
		undefCand("broken"),
		few,
		cand("solid", 0.8, 3),
	}, selection.Maximize, 2)
	got := keys(r.Entries)
	want := []string{"solid", "few-seeds", "broken"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("strata order: got %v, want %v", got, want)
		}
	}
	if r.Entries[1].Eligible {
		t.Error("below-threshold entry must not be eligible")
	}
	if w, ok := r.Winner(); !ok || w.Group.Key != "solid" {
		t.Errorf("winner: got %v, %v, want solid", w.Group.Key, ok)
	}
}

func TestRankNoEligibleWinner(t *testing.T) {
	r := selection.Rank([]selection.Candidate{
		undefCand("a"),
		cand("b", 0.9, 1),
	}, selection.Maximize, 3)
	if _, ok := r.Winner(); ok {
		t.Fatal("expected no winner")
	}
	if len(r.Entries) != 2 {
		t.Errorf("entries: got %d, want 2 (nothing is dropped)", len(r.Entries))
	}
	if got := r.Top(5); len(got) != 0 {
		t.Errorf("Top: got %d entries, want 0", len(got))
	}
}

func TestRankEmpty(t *testing.T) {
	r := selection.Rank(nil, selection.Maximize, 1)
	if _, ok := r.Winner(); ok {
		t.Fatal("expected no winner for empty sweep")
	}
}

func TestTop(t *testing.T) {
	r := selection.Rank([]selection.Candidate{
		cand("a", 0.7, 3),
		cand("b", 0.9, 3),
		cand("c", 0.8, 1),
		undefCand("d"),
	}, selection.Maximize, 2)
	top := r.Top(3)
	got := keys(top)
	want := []string{"b", "a"} // c is below threshold, d undefined
	if len(got) != len(want) {
		t.Fatalf("Top: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Top: got %v, want %v", got, want)
		}
	}
}

func TestIsWinner(t *testing.T) {
	r := selection.Rank([]selection.Candidate{cand("a", 0.7, 3), cand("b", 0.9, 3)}, selection.Maximize, 1)
	if !r.IsWinner("b") || r.IsWinner("a") {
		t.Error("IsWinner mismatch")
	}
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in   string
		want selection.Direction
		ok   bool
	}{
		{"", selection.Maximize, true},
		{"maximize", selection.Maximize, true},
		{"max", selection.Maximize, true},
		{"MIN", selection.Minimize, true},
		{"minimize", selection.Minimize, true},
		{"upward", 0, false},
	}
	for _, tt := range tests {
		d, err := selection.ParseDirection(tt.in)
		if tt.ok && (err != nil || d != tt.want) {
			t.Errorf("ParseDirection(%q): got %v, %v", tt.in, d, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("ParseDirection(%q): expected error", tt.in)
		}
	}
}

func TestInferDirection(t *testing.T) {
	tests := []struct {
		tag  string
		want selection.Direction
		ok   bool
	}{
		{"val/loss", selection.Minimize, true},
		{"train_rmse", selection.Minimize, true},
		{"perplexity", selection.Minimize, true},
		{"test/accuracy", selection.Maximize, true},
		{"f1_score", selection.Maximize, true},
		{"top_k_acc", selection.Maximize, true},
		{"runtime", 0, false},
		{"accuracy_loss_ratio", 0, false}, // matches both vocabularies
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			d, ok := selection.InferDirection(tt.tag)
			if ok != tt.ok {
				t.Fatalf("ok: got %v, want %v", ok, tt.ok)
			}
			if ok && d != tt.want {
				t.Errorf("direction: got %v, want %v", d, tt.want)
			}
		})
	}
}
