package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/catchingknives/teams-webapp-exporter/internal/archive"
	"github.com/catchingknives/teams-webapp-exporter/internal/config"
	"github.com/catchingknives/teams-webapp-exporter/internal/database"
	"github.com/catchingknives/teams-webapp-exporter/internal/encryption"
	"github.com/catchingknives/teams-webapp-exporter/internal/export"
	"github.com/catchingknives/teams-webapp-exporter/internal/mirror"
	"github.com/catchingknives/teams-webapp-exporter/internal/testutil"
)

// fakeView serves one static page of rendered nodes. The controller
// sees no progress across cycles and terminates via its stall limit.
type fakeView struct {
	ready bool
	nodes []export.RawNode
}

func (f *fakeView) Ready(context.Context) (bool, error)    { return f.ready, nil }
func (f *fakeView) Prime(context.Context) error            { return nil }
func (f *fakeView) TriggerOlder(context.Context) error     { return nil }
func (f *fakeView) StepNewer(context.Context) error        { return nil }
func (f *fakeView) JumpNewer(context.Context) error        { return nil }
func (f *fakeView) AtBottom(context.Context) (bool, error) { return true, nil }
func (f *fakeView) Collect(context.Context) ([]export.RawNode, error) {
	return f.nodes, nil
}

func node(id int64, ts time.Time) export.RawNode {
	return export.RawNode{
		ID:        id,
		Author:    fmt.Sprintf("Author %d", id),
		Timestamp: ts.Format(time.RFC3339),
		Body:      fmt.Sprintf("<p>message %d</p>", id),
	}
}

func fastOpts() export.Options {
	return export.Options{
		Settle:        time.Millisecond,
		Deadline:      5 * time.Second,
		MaxIterations: 10,
	}
}

type testApp struct {
	*App
	mirror *mirror.MemoryMirror
	store  *archive.Store
}

func newTestApp(t *testing.T, enc encryption.Encryptor) *testApp {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	clock := testutil.FixedClock()
	logger := export.NewNopLogger()
	store := archive.NewStore(t.TempDir(), clock, logger)
	m := mirror.NewMemoryMirror("test")

	a := newApp(&config.Config{}, db, store, m, enc, clock, testutil.NewStubIDGenerator(), logger)
	return &testApp{App: a, mirror: m, store: store}
}

func TestApp_ExportChat(t *testing.T) {
	ta := newTestApp(t, nil)
	base := time.Date(2025, 6, 19, 9, 0, 0, 0, time.UTC)
	view := &fakeView{ready: true, nodes: []export.RawNode{
		node(1, base),
		node(2, base.Add(time.Minute)),
		node(3, base.Add(2*time.Minute)),
	}}

	written, err := ta.ExportChat(context.Background(), view, "General", fastOpts(), nil)
	if err != nil {
		t.Fatalf("ExportChat() error = %v", err)
	}
	if written != 3 {
		t.Errorf("written = %d, want 3", written)
	}

	data, err := os.ReadFile(ta.store.Path("General"))
	if err != nil {
		t.Fatalf("reading archive: %v", err)
	}
	if !strings.Contains(string(data), "message 2") {
		t.Errorf("archive missing message content:\n%s", data)
	}

	runs, err := ta.History(10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("History() = %d runs, want 1", len(runs))
	}
	if runs[0].Status != database.StatusDone {
		t.Errorf("run status = %q, want done", runs[0].Status)
	}
	if runs[0].MessagesWritten != 3 {
		t.Errorf("run messages_written = %d, want 3", runs[0].MessagesWritten)
	}

	// Archive was mirrored under its sanitized file name.
	if _, ok := ta.mirror.Get("General.md"); !ok {
		t.Error("mirror missing General.md")
	}
}

func TestApp_ExportChat_NoNewMessages(t *testing.T) {
	ta := newTestApp(t, nil)
	view := &fakeView{ready: true}

	written, err := ta.ExportChat(context.Background(), view, "Quiet", fastOpts(), nil)
	if err != nil {
		t.Fatalf("ExportChat() error = %v", err)
	}
	if written != 0 {
		t.Errorf("written = %d, want 0", written)
	}

	runs, _ := ta.History(1)
	if len(runs) != 1 || runs[0].Status != database.StatusDone {
		t.Fatalf("expected one done run, got %+v", runs)
	}
	if runs[0].Reason != "no new messages" {
		t.Errorf("run reason = %q, want %q", runs[0].Reason, "no new messages")
	}
	if ta.mirror.Len() != 0 {
		t.Errorf("mirror has %d files, want 0", ta.mirror.Len())
	}
}

func TestApp_ExportChat_ViewUnavailable(t *testing.T) {
	ta := newTestApp(t, nil)
	view := &fakeView{ready: false}

	_, err := ta.ExportChat(context.Background(), view, "General", fastOpts(), nil)
	if err == nil {
		t.Fatal("ExportChat() expected error for unavailable view")
	}

	runs, _ := ta.History(1)
	if len(runs) != 1 || runs[0].Status != database.StatusFailed {
		t.Fatalf("expected one failed run, got %+v", runs)
	}
}

func TestApp_ExportChat_ResumesFromCursor(t *testing.T) {
	ta := newTestApp(t, nil)
	base := time.Date(2025, 6, 19, 9, 0, 0, 0, time.UTC)

	// First export establishes the archive and its cursor.
	view := &fakeView{ready: true, nodes: []export.RawNode{
		node(1, base),
		node(2, base.Add(time.Minute)),
	}}
	if _, err := ta.ExportChat(context.Background(), view, "General", fastOpts(), nil); err != nil {
		t.Fatalf("first ExportChat() error = %v", err)
	}

	// Second export sees the same two messages plus one newer.
	view.nodes = append(view.nodes, node(3, base.Add(time.Hour)))
	written, err := ta.ExportChat(context.Background(), view, "General", fastOpts(), nil)
	if err != nil {
		t.Fatalf("second ExportChat() error = %v", err)
	}
	if written != 1 {
		t.Errorf("written = %d, want 1 (only the message past the cursor)", written)
	}
}

func TestApp_ExportChat_MirrorEncryption(t *testing.T) {
	ta := newTestApp(t, encryption.NewTestEncryptor())
	base := time.Date(2025, 6, 19, 9, 0, 0, 0, time.UTC)
	view := &fakeView{ready: true, nodes: []export.RawNode{node(1, base)}}

	if _, err := ta.ExportChat(context.Background(), view, "Secret Plans", fastOpts(), nil); err != nil {
		t.Fatalf("ExportChat() error = %v", err)
	}

	if _, ok := ta.mirror.Get("Secret_Plans.md.age"); !ok {
		t.Error("mirror missing encrypted archive Secret_Plans.md.age")
	}
	if _, ok := ta.mirror.Get("Secret_Plans.md"); ok {
		t.Error("mirror has plaintext archive alongside encrypted one")
	}
}

func TestApp_MirrorPush(t *testing.T) {
	ta := newTestApp(t, nil)
	base := time.Date(2025, 6, 19, 9, 0, 0, 0, time.UTC)

	for i, name := range []string{"General", "Standup"} {
		batch := []export.Message{{
			ID:        int64(i + 1),
			Author:    "Alice",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Content:   "hello",
		}}
		if _, err := ta.store.Merge(name, batch); err != nil {
			t.Fatalf("Merge(%s) error = %v", name, err)
		}
	}

	pushed, err := ta.MirrorPush(context.Background())
	if err != nil {
		t.Fatalf("MirrorPush() error = %v", err)
	}
	if pushed != 2 {
		t.Errorf("pushed = %d, want 2", pushed)
	}
	if ta.mirror.Len() != 2 {
		t.Errorf("mirror has %d files, want 2", ta.mirror.Len())
	}
}

func TestApp_Analyze(t *testing.T) {
	ta := newTestApp(t, nil)
	base := time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)

	batch := []export.Message{{ID: 1, Author: "Alice", Timestamp: base, Content: "hi"}}
	if _, err := ta.store.Merge("General", batch); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	report, err := ta.Analyze()
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if !strings.Contains(report, "General") {
		t.Errorf("report missing chat name:\n%s", report)
	}
}
