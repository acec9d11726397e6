package journal

import (
	"path/filepath"
	"testing"
)

func TestSubmitThenLoadRoundTrips(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer j.Close()

	type row struct {
		Term uint64 `json:"term"`
		Vote string `json:"vote"`
	}

	if err := j.Submit(row{Term: 5, Vote: "peer-a"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	var out row
	found, err := j.Load(&out)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !found {
		t.Fatalf("expected found=true")
	}
	if out.Term != 5 || out.Vote != "peer-a" {
		t.Fatalf("unexpected row after round-trip: %+v", out)
	}
}

func TestLoadReportsNotFoundOnEmptyJournal(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer j.Close()

	var out struct{ Term uint64 }
	found, err := j.Load(&out)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if found {
		t.Fatalf("expected found=false on an empty journal")
	}
}

func TestSubmitOverwritesSingleRow(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer j.Close()

	type row struct{ Term uint64 }
	if err := j.Submit(row{Term: 1}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := j.Submit(row{Term: 2}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	var out row
	if _, err := j.Load(&out); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.Term != 2 {
		t.Fatalf("expected the latest submitted row to win, got Term=%d", out.Term)
	}
}
