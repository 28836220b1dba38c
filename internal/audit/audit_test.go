package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ziadkadry99/neurosphere/internal/db"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestLogRevisionGeneratesID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	rev, err := store.LogRevision(ctx, Revision{Path: "layouts/a.json", Size: 12, Checksum: "abc"})
	if err != nil {
		t.Fatalf("LogRevision: %v", err)
	}
	if rev.ID == "" {
		t.Error("expected generated ID, got empty string")
	}
	if rev.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	revs, err := store.Revisions(ctx, RevisionFilter{})
	if err != nil {
		t.Fatalf("Revisions: %v", err)
	}
	if len(revs) != 1 {
		t.Fatalf("expected 1 revision, got %d", len(revs))
	}
	if revs[0].ID != rev.ID || revs[0].Size != 12 || revs[0].Checksum != "abc" {
		t.Errorf("unexpected revision: %+v", revs[0])
	}
}

func TestRevisionsFilterAndOrder(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, p := range []string{"a.json", "b.json", "a.json"} {
		_, err := store.LogRevision(ctx, Revision{
			ID:        p + string(rune('0'+i)),
			Path:      p,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("LogRevision: %v", err)
		}
	}

	revs, err := store.Revisions(ctx, RevisionFilter{Path: "a.json"})
	if err != nil {
		t.Fatalf("Revisions: %v", err)
	}
	if len(revs) != 2 {
		t.Fatalf("expected 2 revisions for a.json, got %d", len(revs))
	}
	if revs[0].ID != "a.json2" {
		t.Errorf("expected newest first, got %q", revs[0].ID)
	}
	if !revs[0].CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("CreatedAt = %v, want %v", revs[0].CreatedAt, base.Add(2*time.Minute))
	}

	since := base.Add(time.Minute)
	revs, err = store.Revisions(ctx, RevisionFilter{Since: &since})
	if err != nil {
		t.Fatalf("Revisions: %v", err)
	}
	if len(revs) != 2 {
		t.Errorf("expected 2 revisions since %v, got %d", since, len(revs))
	}

	revs, err = store.Revisions(ctx, RevisionFilter{Limit: 1})
	if err != nil {
		t.Fatalf("Revisions: %v", err)
	}
	if len(revs) != 1 {
		t.Errorf("expected limit to apply, got %d", len(revs))
	}
}

func TestSnapshotsAndDeleteBefore(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, err := store.LogSnapshot(ctx, SnapshotSummary{Source: "old.txt", Scheme: "basic", LoadedAt: old}); err != nil {
		t.Fatalf("LogSnapshot: %v", err)
	}
	if _, err := store.LogSnapshot(ctx, SnapshotSummary{Source: "new.txt", Scheme: "phased", Devices: 3, ActiveDevices: 2, Records: 40, Skipped: 1}); err != nil {
		t.Fatalf("LogSnapshot: %v", err)
	}

	sums, err := store.Snapshots(ctx, 10)
	if err != nil {
		t.Fatalf("Snapshots: %v", err)
	}
	if len(sums) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(sums))
	}
	if sums[0].Source != "new.txt" || sums[0].ActiveDevices != 2 || sums[0].Skipped != 1 {
		t.Errorf("unexpected newest snapshot: %+v", sums[0])
	}

	n, err := store.DeleteBefore(ctx, old.Add(time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 deleted row, got %d", n)
	}
}

func TestHistoryRoutes(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	if _, err := store.LogRevision(ctx, Revision{Path: "x.json"}); err != nil {
		t.Fatalf("LogRevision: %v", err)
	}

	r := chi.NewRouter()
	RegisterRoutes(r, store)

	req := httptest.NewRequest(http.MethodGet, "/api/config/history?path=x.json", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var revs []Revision
	if err := json.NewDecoder(w.Body).Decode(&revs); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(revs) != 1 {
		t.Errorf("expected 1 revision, got %d", len(revs))
	}

	req = httptest.NewRequest(http.MethodGet, "/api/telemetry/history", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := w.Body.String(); body != "[]\n" {
		t.Errorf("expected empty JSON array, got %q", body)
	}
}
