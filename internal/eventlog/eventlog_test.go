package eventlog_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/borkh/paper-prep/internal/eventlog"
)

func writeRun(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestJSONLReadSeries(t *testing.T) {
	dir := writeRun(t, "metrics.jsonl", `{"step": 0, "tag": "val/loss", "value": 1.5}
{"step": 0, "tag": "val/acc", "value": 0.1}
{"step": 10, "tag": "val/loss", "value": 0.9}
{"step": 20, "tag": "val/loss", "value": 0.7}
`)
	s, err := eventlog.JSONLReader{}.ReadSeries(context.Background(), dir, "val/loss")
	if err != nil {
		t.Fatalf("ReadSeries: %v", err)
	}
	if len(s) != 3 {
		t.Fatalf("got %d points, want 3", len(s))
	}
	if s.LastStep() != 20 {
		t.Errorf("last step: got %d, want 20", s.LastStep())
	}
	if s[2].Value != 0.7 {
		t.Errorf("last value: got %f, want 0.7", s[2].Value)
	}
}

func TestJSONLUnknownTagIsEmpty(t *testing.T) {
	dir := writeRun(t, "metrics.jsonl", `{"step": 0, "tag": "val/loss", "value": 1.5}
`)
	s, err := eventlog.JSONLReader{}.ReadSeries(context.Background(), dir, "val/acc")
	if err != nil {
		t.Fatalf("ReadSeries: %v", err)
	}
	if len(s) != 0 {
		t.Errorf("got %d points, want 0", len(s))
	}
}

func TestJSONLOutOfOrderStepsAreSorted(t *testing.T) {
	dir := writeRun(t, "metrics.jsonl", `{"step": 20, "tag": "loss", "value": 0.7}
{"step": 0, "tag": "loss", "value": 1.5}
{"step": 10, "tag": "loss", "value": 0.9}
`)
	s, err := eventlog.JSONLReader{}.ReadSeries(context.Background(), dir, "loss")
	if err != nil {
		t.Fatalf("ReadSeries: %v", err)
	}
	for i := 1; i < len(s); i++ {
		if s[i].Step < s[i-1].Step {
			t.Fatalf("series not sorted by step: %v", s)
		}
	}
}

func TestJSONLCorruptLine(t *testing.T) {
	dir := writeRun(t, "metrics.jsonl", `{"step": 0, "tag": "loss", "value": 1.5}
{"step": 10, "tag": "loss", "val`)
	_, err := eventlog.JSONLReader{}.ReadSeries(context.Background(), dir, "loss")
	if !errors.Is(err, eventlog.ErrCorrupt) {
		t.Fatalf("got %v, want ErrCorrupt", err)
	}
}

func TestCSVReadSeries(t *testing.T) {
	dir := writeRun(t, "metrics.csv", `epoch,step,train_loss,val_loss
0,0,1.9,
0,10,,1.5
1,20,1.1,
1,30,,0.9
`)
	s, err := eventlog.CSVReader{}.ReadSeries(context.Background(), dir, "val_loss")
	if err != nil {
		t.Fatalf("ReadSeries: %v", err)
	}
	if len(s) != 2 {
		t.Fatalf("got %d points, want 2", len(s))
	}
	if s[0].Step != 10 || s[0].Value != 1.5 {
		t.Errorf("first point: got %+v, want step 10 value 1.5", s[0])
	}
	if s[1].Step != 30 || s[1].Value != 0.9 {
		t.Errorf("second point: got %+v, want step 30 value 0.9", s[1])
	}
}

func TestCSVMissingColumnIsEmpty(t *testing.T) {
	dir := writeRun(t, "metrics.csv", `step,train_loss
0,1.9
`)
	s, err := eventlog.CSVReader{}.ReadSeries(context.Background(), dir, "val_loss")
	if err != nil {
		t.Fatalf("ReadSeries: %v", err)
	}
	if len(s) != 0 {
		t.Errorf("got %d points, want 0", len(s))
	}
}

func TestCSVBadCell(t *testing.T) {
	dir := writeRun(t, "metrics.csv", `step,val_loss
0,not-a-number
`)
	_, err := eventlog.CSVReader{}.ReadSeries(context.Background(), dir, "val_loss")
	if !errors.Is(err, eventlog.ErrCorrupt) {
		t.Fatalf("got %v, want ErrCorrupt", err)
	}
}

func TestCSVRaggedRow(t *testing.T) {
	dir := writeRun(t, "metrics.csv", `step,val_loss
0,1.5
1
`)
	_, err := eventlog.CSVReader{}.ReadSeries(context.Background(), dir, "val_loss")
	if !errors.Is(err, eventlog.ErrCorrupt) {
		t.Fatalf("got %v, want ErrCorrupt", err)
	}
}

func TestAutoPrefersJSONL(t *testing.T) {
	dir := t.TempDir()
	jsonl := `{"step": 0, "tag": "loss", "value": 2.0}
`
	csv := "step,loss\n0,9.0\n"
	if err := os.WriteFile(filepath.Join(dir, "metrics.jsonl"), []byte(jsonl), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "metrics.csv"), []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := eventlog.Auto().ReadSeries(context.Background(), dir, "loss")
	if err != nil {
		t.Fatalf("ReadSeries: %v", err)
	}
	if len(s) != 1 || s[0].Value != 2.0 {
		t.Errorf("expected jsonl store to win, got %+v", s)
	}
}

func TestAutoBinaryEventsAreCorrupt(t *testing.T) {
	dir := t.TempDir()
	name := "events.out.tfevents.1712000000.host.0"
	if err := os.WriteFile(filepath.Join(dir, name), []byte{0x00, 0x01}, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := eventlog.Auto().ReadSeries(context.Background(), dir, "loss")
	if !errors.Is(err, eventlog.ErrCorrupt) {
		t.Fatalf("got %v, want ErrCorrupt", err)
	}
}

func TestHasStore(t *testing.T) {
	tests := []struct {
		name string
		file string
		want bool
	}{
		{"jsonl", "metrics.jsonl", true},
		{"csv", "metrics.csv", true},
		{"tfevents", "events.out.tfevents.1712000000.host.0", true},
		{"unrelated", "notes.txt", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeRun(t, tt.file, "x")
			if got := eventlog.HasStore(dir); got != tt.want {
				t.Errorf("HasStore: got %v, want %v", got, tt.want)
			}
		})
	}
}
