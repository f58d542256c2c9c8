package database_test

import (
	"testing"
	"time"

	"github.com/catchingknives/teams-webapp-exporter/internal/database"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDB_CreateAndFinishRun(t *testing.T) {
	db := newTestDB(t)
	start := time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC)

	if err := db.CreateRun("run-1", "General", start); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	if err := db.FinishRun("run-1", database.StatusDone, "", 42, start.Add(time.Minute)); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}

	runs, err := db.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("ListRuns() = %d runs, want 1", len(runs))
	}

	r := runs[0]
	if r.ChatName != "General" || r.Status != database.StatusDone {
		t.Errorf("run = %+v, want General/done", r)
	}
	if r.MessagesWritten != 42 {
		t.Errorf("MessagesWritten = %d, want 42", r.MessagesWritten)
	}
	if !r.FinishedAt.Valid {
		t.Error("FinishedAt not set")
	}
}

func TestDB_FinishRun_Unknown(t *testing.T) {
	db := newTestDB(t)
	if err := db.FinishRun("nope", database.StatusFailed, "x", 0, time.Now()); err == nil {
		t.Error("FinishRun() expected error for unknown run")
	}
}

func TestDB_ListRuns_NewestFirstAndLimited(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		id := string(rune('a' + i))
		if err := db.CreateRun(id, "Chat", base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("CreateRun() error = %v", err)
		}
	}

	runs, err := db.ListRuns(3)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("ListRuns(3) = %d runs, want 3", len(runs))
	}
	if runs[0].ID != "e" || runs[2].ID != "c" {
		t.Errorf("order = %s,%s,%s, want e,d,c", runs[0].ID, runs[1].ID, runs[2].ID)
	}

	// Unfinished runs stay in the running state.
	if runs[0].Status != database.StatusRunning {
		t.Errorf("Status = %q, want running", runs[0].Status)
	}
}
