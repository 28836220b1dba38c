package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ziadkadry99/neurosphere/internal/db"
)

// Store persists configuration revisions and telemetry reload summaries.
type Store struct {
	db  *db.DB
	now func() time.Time
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database, now: time.Now}
}

// LogRevision inserts a configuration revision. If rev.ID is empty a UUID is
// generated; a zero CreatedAt is set to the current time.
func (s *Store) LogRevision(ctx context.Context, rev Revision) (Revision, error) {
	if rev.ID == "" {
		rev.ID = uuid.New().String()
	}
	if rev.CreatedAt.IsZero() {
		rev.CreatedAt = s.now()
	}
	rev.CreatedAt = rev.CreatedAt.UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO config_revisions (id, path, size, checksum, remote_addr, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rev.ID, rev.Path, rev.Size, rev.Checksum, rev.RemoteAddr,
		rev.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return rev, fmt.Errorf("inserting config revision: %w", err)
	}
	return rev, nil
}

// RevisionFilter controls which revisions are returned by Revisions.
type RevisionFilter struct {
	Path  string
	Since *time.Time
	Limit int
}

// Revisions returns configuration revisions, newest first.
func (s *Store) Revisions(ctx context.Context, filter RevisionFilter) ([]Revision, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.Path != "" {
		clauses = append(clauses, "path = ?")
		args = append(args, filter.Path)
	}
	if filter.Since != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, filter.Since.UTC().Format(timeLayout))
	}

	query := "SELECT id, path, size, checksum, remote_addr, created_at FROM config_revisions"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying config revisions: %w", err)
	}
	defer rows.Close()

	revs := []Revision{}
	for rows.Next() {
		var (
			r  Revision
			ts string
		)
		if err := rows.Scan(&r.ID, &r.Path, &r.Size, &r.Checksum, &r.RemoteAddr, &ts); err != nil {
			return nil, err
		}
		r.CreatedAt = parseTime(ts)
		revs = append(revs, r)
	}
	return revs, rows.Err()
}

// LogSnapshot inserts a telemetry reload summary.
func (s *Store) LogSnapshot(ctx context.Context, sum SnapshotSummary) (SnapshotSummary, error) {
	if sum.ID == "" {
		sum.ID = uuid.New().String()
	}
	if sum.LoadedAt.IsZero() {
		sum.LoadedAt = s.now()
	}
	sum.LoadedAt = sum.LoadedAt.UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO telemetry_snapshots (
			id, source, scheme, devices, active_devices, records, skipped, loaded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.ID, sum.Source, sum.Scheme, sum.Devices, sum.ActiveDevices,
		sum.Records, sum.Skipped, sum.LoadedAt.Format(timeLayout),
	)
	if err != nil {
		return sum, fmt.Errorf("inserting telemetry snapshot: %w", err)
	}
	return sum, nil
}

// Snapshots returns the most recent reload summaries, newest first.
func (s *Store) Snapshots(ctx context.Context, limit int) ([]SnapshotSummary, error) {
	query := `SELECT id, source, scheme, devices, active_devices, records, skipped, loaded_at
		FROM telemetry_snapshots ORDER BY loaded_at DESC, rowid DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying telemetry snapshots: %w", err)
	}
	defer rows.Close()

	out := []SnapshotSummary{}
	for rows.Next() {
		var (
			sum SnapshotSummary
			ts  string
		)
		if err := rows.Scan(&sum.ID, &sum.Source, &sum.Scheme, &sum.Devices,
			&sum.ActiveDevices, &sum.Records, &sum.Skipped, &ts); err != nil {
			return nil, err
		}
		sum.LoadedAt = parseTime(ts)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// DeleteBefore removes revisions and snapshot summaries older than the given
// time. Returns the number of deleted rows.
func (s *Store) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	cutoff := before.UTC().Format(timeLayout)

	var total int64
	for _, stmt := range []string{
		"DELETE FROM config_revisions WHERE created_at < ?",
		"DELETE FROM telemetry_snapshots WHERE loaded_at < ?",
	} {
		res, err := s.db.ExecContext(ctx, stmt, cutoff)
		if err != nil {
			return total, fmt.Errorf("deleting old history: %w", err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

func parseTime(ts string) time.Time {
	if t, err := time.Parse(timeLayout, ts); err == nil {
		return t
	}
	if t, err := time.Parse(time.DateTime, ts); err == nil {
		return t
	}
	t, _ := time.Parse(time.RFC3339Nano, ts)
	return t
}
