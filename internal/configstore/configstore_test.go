package configstore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/neurosphere/internal/api"
	"github.com/ziadkadry99/neurosphere/internal/audit"
	"github.com/ziadkadry99/neurosphere/internal/db"
	"github.com/ziadkadry99/neurosphere/internal/metrics"
)

type fakeRecorder struct {
	revs []audit.Revision
	err  error
}

func (f *fakeRecorder) LogRevision(_ context.Context, rev audit.Revision) (audit.Revision, error) {
	f.revs = append(f.revs, rev)
	return rev, f.err
}

func newStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "brain-config"), opts...)
	require.NoError(t, err)
	return s
}

func newRouter(s *Store) chi.Router {
	r := chi.NewRouter()
	r.MethodNotAllowed(api.MethodNotAllowed)
	RegisterRoutes(r, s, metrics.New())
	return r
}

func TestResolve(t *testing.T) {
	s := newStore(t)
	outside := t.TempDir()

	tests := []struct {
		name    string
		path    string
		wantRel string
		wantErr error
	}{
		{"relative", "layout.json", "layout.json", nil},
		{"nested", "sessions/a/b.json", "sessions/a/b.json", nil},
		{"absolute inside", filepath.Join(s.Root(), "x.json"), "x.json", nil},
		{"cleaned inside", "a/../b.json", "b.json", nil},
		{"empty", "", "", ErrInvalid},
		{"traversal", "../escape.json", "", ErrForbidden},
		{"deep traversal", "a/../../../etc/passwd.json", "", ErrForbidden},
		{"absolute outside", filepath.Join(outside, "x.json"), "", ErrForbidden},
		{"root itself", ".", "", ErrForbidden},
		{"wrong extension", "notes.txt", "", ErrForbidden},
		{"marker substring is not enough", filepath.Join(outside, "brain-config", "x.json"), "", ErrForbidden},
		{"nul byte", "a\x00.json", "", ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			abs, rel, err := s.Resolve(tt.path)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRel, rel)
			assert.Equal(t, filepath.Join(s.Root(), filepath.FromSlash(tt.wantRel)), abs)
		})
	}
}

func TestResolveRejectsSymlinkEscape(t *testing.T) {
	s := newStore(t)
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.json"), []byte(`{}`), 0o644))
	if err := os.Symlink(outside, filepath.Join(s.Root(), "link")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	_, _, err := s.Resolve("link/secret.json")
	assert.ErrorIs(t, err, ErrForbidden)
	_, _, err = s.Resolve("link/new/file.json")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCustomPatterns(t *testing.T) {
	s := newStore(t, WithPatterns("layouts/*.json"))
	_, _, err := s.Resolve("layouts/a.json")
	assert.NoError(t, err)
	_, _, err = s.Resolve("other/a.json")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = New(t.TempDir(), WithPatterns("[bad"))
	assert.Error(t, err)
}

func TestSaveAndLoad(t *testing.T) {
	rec := &fakeRecorder{}
	s := newStore(t, WithRecorder(rec))
	ctx := context.Background()

	doc, err := s.Save(ctx, "sessions/today.json", `{"threshold": 50}`, "127.0.0.1:1234")
	require.NoError(t, err)
	assert.Equal(t, "sessions/today.json", doc.Path)

	onDisk, err := os.ReadFile(filepath.Join(s.Root(), "sessions", "today.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"threshold": 50}`, string(onDisk))

	loaded, err := s.Load(ctx, "sessions/today.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"threshold": 50}`, string(loaded.Config))
	assert.False(t, loaded.Timestamp.IsZero())

	require.Len(t, rec.revs, 1)
	assert.Equal(t, "sessions/today.json", rec.revs[0].Path)
	assert.Equal(t, len(`{"threshold": 50}`), rec.revs[0].Size)
	assert.Len(t, rec.revs[0].Checksum, 64)
	assert.Equal(t, "127.0.0.1:1234", rec.revs[0].RemoteAddr)

	// Last writer wins.
	_, err = s.Save(ctx, "sessions/today.json", `{"threshold": 75}`, "")
	require.NoError(t, err)
	loaded, err = s.Load(ctx, "sessions/today.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"threshold": 75}`, string(loaded.Config))

	entries, err := os.ReadDir(filepath.Join(s.Root(), "sessions"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestSaveRecorderFailureDoesNotFailSave(t *testing.T) {
	s := newStore(t, WithRecorder(&fakeRecorder{err: errors.New("db down")}))
	_, err := s.Save(context.Background(), "a.json", `[]`, "")
	assert.NoError(t, err)
}

func TestLoadErrors(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.Load(ctx, "missing.json")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), "broken.json"), []byte("{not json"), 0o644))
	_, err = s.Load(ctx, "broken.json")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = s.Save(ctx, "a.json", "{not json", "")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLoadHandler(t *testing.T) {
	s := newStore(t)
	_, err := s.Save(context.Background(), "layout.json", `{"markers": 64}`, "")
	require.NoError(t, err)
	r := newRouter(s)

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"ok", "/api/config?path=layout.json", http.StatusOK},
		{"missing param", "/api/config", http.StatusBadRequest},
		{"not found", "/api/config?path=nope.json", http.StatusNotFound},
		{"forbidden traversal", "/api/config?path=../../etc/passwd", http.StatusForbidden},
		{"forbidden absolute", "/api/config?path=/etc/brain-config/x.json", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.target, nil))
			assert.Equal(t, tt.status, w.Code, w.Body.String())

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Contains(t, body, "timestamp")
			if tt.status == http.StatusOK {
				assert.Equal(t, "Configuration loaded successfully", body["message"])
				assert.Equal(t, map[string]any{"markers": float64(64)}, body["config"])
			} else {
				assert.Contains(t, body, "error")
				assert.NotContains(t, w.Body.String(), s.Root(), "errors must not leak server paths")
			}
		})
	}
}

func TestSaveHandler(t *testing.T) {
	s := newStore(t)
	r := newRouter(s)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"string content", `{"path":"a.json","content":"{\"x\":1}"}`, http.StatusOK},
		{"object content", `{"path":"b/c.json","content":{"y":2}}`, http.StatusOK},
		{"missing content", `{"path":"a.json"}`, http.StatusBadRequest},
		{"missing path", `{"content":"{}"}`, http.StatusBadRequest},
		{"bad body", `not json`, http.StatusBadRequest},
		{"invalid content", `{"path":"a.json","content":"{oops"}`, http.StatusBadRequest},
		{"forbidden", `{"path":"../x.json","content":"{}"}`, http.StatusForbidden},
		{"forbidden extension", `{"path":"run.sh","content":"{}"}`, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/config", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	data, err := os.ReadFile(filepath.Join(s.Root(), "b", "c.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"y":2}`, string(data))
}

func TestMethodNotAllowed(t *testing.T) {
	r := newRouter(newStore(t))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/config?path=a.json", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, w.Body.String(), "method not allowed")
}

func TestSaveRecordsRevisionInDatabase(t *testing.T) {
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	history := audit.NewStore(database)

	s := newStore(t, WithRecorder(history))
	_, err = s.Save(context.Background(), "layout.json", `{}`, "")
	require.NoError(t, err)

	revs, err := history.Revisions(context.Background(), audit.RevisionFilter{Path: "layout.json"})
	require.NoError(t, err)
	assert.Len(t, revs, 1)
}
