// Package configstore loads and saves JSON configuration documents kept
// below a single allow-listed root directory.
package configstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/ziadkadry99/neurosphere/internal/audit"
	"github.com/ziadkadry99/neurosphere/internal/logging"
)

var (
	// ErrForbidden means the path resolves outside the root or does not
	// match an allowed pattern.
	ErrForbidden = errors.New("path is not allowed")
	// ErrNotFound means the document does not exist.
	ErrNotFound = errors.New("configuration not found")
	// ErrInvalid means the request itself is unusable.
	ErrInvalid = errors.New("invalid request")
	// ErrMalformed means a stored document is not valid JSON.
	ErrMalformed = errors.New("stored configuration is not valid JSON")
)

// DefaultPatterns allow any JSON file below the root.
var DefaultPatterns = []string{"**/*.json"}

// Recorder receives a revision for every successful save.
type Recorder interface {
	LogRevision(ctx context.Context, rev audit.Revision) (audit.Revision, error)
}

// Document is a configuration file and the time it was read or written.
type Document struct {
	Path      string          `json:"path"`
	Config    json.RawMessage `json:"config"`
	Timestamp time.Time       `json:"timestamp"`
}

// Store reads and writes configuration documents under root.
type Store struct {
	root     string
	patterns []string
	recorder Recorder
	log      *zap.Logger
}

// Option customizes a Store.
type Option func(*Store)

// WithPatterns replaces the allowed doublestar patterns. Patterns are matched
// against the slash-separated path relative to the root.
func WithPatterns(patterns ...string) Option {
	return func(s *Store) {
		if len(patterns) > 0 {
			s.patterns = patterns
		}
	}
}

// WithRecorder records a revision for each save.
func WithRecorder(r Recorder) Option {
	return func(s *Store) { s.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = logging.OrNop(l) }
}

// New creates the root directory if needed and returns a Store confined to it.
func New(root string, opts ...Option) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("config root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating config root: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving config root: %w", err)
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolving config root: %w", err)
	}

	s := &Store{root: abs, patterns: DefaultPatterns, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	for _, p := range s.patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid config pattern %q", p)
		}
	}
	return s, nil
}

// Root returns the canonical root directory.
func (s *Store) Root() string { return s.root }

// Resolve maps a requested path to an absolute file path inside the root and
// its slash-separated name relative to the root. Relative paths are taken
// from the root; absolute paths must already lie inside it. Symlinks in the
// existing part of the path are followed before the containment check.
func (s *Store) Resolve(path string) (abs, rel string, err error) {
	if strings.TrimSpace(path) == "" {
		return "", "", fmt.Errorf("%w: path is required", ErrInvalid)
	}
	if strings.ContainsRune(path, 0) {
		return "", "", ErrForbidden
	}

	if filepath.IsAbs(path) {
		abs = filepath.Clean(path)
	} else {
		abs = filepath.Join(s.root, path)
	}

	abs, err = evalExisting(abs)
	if err != nil {
		return "", "", fmt.Errorf("resolving %s: %w", path, err)
	}

	rel, err = filepath.Rel(s.root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", ErrForbidden
	}
	rel = filepath.ToSlash(rel)

	for _, p := range s.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return abs, rel, nil
		}
	}
	return "", "", ErrForbidden
}

// evalExisting resolves symlinks in the longest existing prefix of path and
// re-attaches the missing tail.
func evalExisting(path string) (string, error) {
	var tail []string
	cur := path
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			for i := len(tail) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, tail[i])
			}
			return resolved, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return path, nil
		}
		tail = append(tail, filepath.Base(cur))
		cur = parent
	}
}

// Load reads and validates the document at path.
func (s *Store) Load(ctx context.Context, path string) (*Document, error) {
	abs, rel, err := s.Resolve(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading %s: %w", rel, err)
	}
	if !json.Valid(data) {
		return nil, ErrMalformed
	}

	return &Document{Path: rel, Config: data, Timestamp: time.Now().UTC()}, nil
}

// Save writes content verbatim to path, creating parent directories. The
// content must be a JSON document. Concurrent saves to one path are
// last-writer-wins; readers see either the old or the new file.
func (s *Store) Save(ctx context.Context, path, content, remoteAddr string) (*Document, error) {
	abs, rel, err := s.Resolve(path)
	if err != nil {
		return nil, err
	}
	if !json.Valid([]byte(content)) {
		return nil, fmt.Errorf("%w: content is not valid JSON", ErrInvalid)
	}

	if err := writeFile(abs, []byte(content)); err != nil {
		return nil, fmt.Errorf("writing %s: %w", rel, err)
	}

	doc := &Document{Path: rel, Config: json.RawMessage(content), Timestamp: time.Now().UTC()}

	if s.recorder != nil {
		sum := sha256.Sum256([]byte(content))
		_, err := s.recorder.LogRevision(ctx, audit.Revision{
			Path:       rel,
			Size:       len(content),
			Checksum:   hex.EncodeToString(sum[:]),
			RemoteAddr: remoteAddr,
			CreatedAt:  doc.Timestamp,
		})
		if err != nil {
			s.log.Warn("recording config revision", zap.String("path", rel), zap.Error(err))
		}
	}

	s.log.Info("configuration saved", zap.String("path", rel), zap.Int("bytes", len(content)))
	return doc, nil
}

func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
