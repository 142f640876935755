// Package snapstore keeps kfun table snapshots as checkpoints in SQLite.
//
// Each checkpoint holds the bytes written by kfun.Registry.Dump, tagged
// with the driver version that wrote it. A driver only resumes from a
// checkpoint written by the same major version.
package snapstore

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-version"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/hearth/kfun"
)

// ErrNoCheckpoint indicates that no compatible checkpoint exists.
var ErrNoCheckpoint = errors.New("no compatible checkpoint")

// Checkpoint is one stored snapshot.
type Checkpoint struct {
	ID            string
	Seq           int64
	CreatedAt     time.Time
	DriverVersion string
	Extensions    int // size of the extension index range
	Data          []byte
}

// Store manages checkpoints in a SQLite database.
type Store struct {
	db  *sql.DB
	mu  sync.Mutex
	log commonlog.Logger
}

// Open creates or opens the checkpoint database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS checkpoints (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		created_at INTEGER NOT NULL,
		driver_version TEXT NOT NULL,
		extensions INTEGER NOT NULL,
		data BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Store{db: db, log: commonlog.GetLogger("hearth.snapstore")}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save dumps r and stores the snapshot as a new checkpoint.
func (s *Store) Save(ctx context.Context, driverVersion string, r *kfun.Registry) (*Checkpoint, error) {
	if _, err := version.NewVersion(driverVersion); err != nil {
		return nil, fmt.Errorf("driver version %q: %w", driverVersion, err)
	}

	var buf bytes.Buffer
	if err := r.Dump(&buf); err != nil {
		return nil, err
	}
	lo, hi := r.Range()

	cp := &Checkpoint{
		ID:            uuid.New().String(),
		CreatedAt:     time.Now().UTC(),
		DriverVersion: driverVersion,
		Extensions:    int(hi - lo),
		Data:          buf.Bytes(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO checkpoints (id, created_at, driver_version, extensions, data) VALUES (?, ?, ?, ?, ?)",
		cp.ID, cp.CreatedAt.UnixNano(), cp.DriverVersion, cp.Extensions, cp.Data,
	)
	if err != nil {
		return nil, fmt.Errorf("saving checkpoint: %w", err)
	}
	if cp.Seq, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("saving checkpoint: %w", err)
	}

	s.log.Infof("saved checkpoint %s (%d kfuns, driver %s)", cp.ID, cp.Extensions, driverVersion)
	return cp, nil
}

// List returns all checkpoints, newest first.
func (s *Store) List(ctx context.Context) ([]Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT seq, id, created_at, driver_version, extensions, data FROM checkpoints ORDER BY seq DESC")
	if err != nil {
		return nil, fmt.Errorf("listing checkpoints: %w", err)
	}
	defer rows.Close()

	var cps []Checkpoint
	for rows.Next() {
		var cp Checkpoint
		var created int64
		if err := rows.Scan(&cp.Seq, &cp.ID, &created, &cp.DriverVersion, &cp.Extensions, &cp.Data); err != nil {
			return nil, fmt.Errorf("scanning checkpoint: %w", err)
		}
		cp.CreatedAt = time.Unix(0, created).UTC()
		cps = append(cps, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing checkpoints: %w", err)
	}
	return cps, nil
}

// Latest returns the newest checkpoint written by a driver with the same
// major version as driverVersion.
func (s *Store) Latest(ctx context.Context, driverVersion string) (*Checkpoint, error) {
	want, err := version.NewVersion(driverVersion)
	if err != nil {
		return nil, fmt.Errorf("driver version %q: %w", driverVersion, err)
	}

	cps, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range cps {
		if Compatible(want, cps[i].DriverVersion) {
			return &cps[i], nil
		}
		s.log.Debugf("skipping checkpoint %s from driver %s", cps[i].ID, cps[i].DriverVersion)
	}
	return nil, ErrNoCheckpoint
}

// Compatible reports whether a checkpoint written by driver version other
// can be restored by driver version v.
func Compatible(v *version.Version, other string) bool {
	o, err := version.NewVersion(other)
	if err != nil {
		return false
	}
	return v.Segments()[0] == o.Segments()[0]
}

// Restore restores r from the newest compatible checkpoint.
func (s *Store) Restore(ctx context.Context, driverVersion string, r *kfun.Registry) (*Checkpoint, error) {
	cp, err := s.Latest(ctx, driverVersion)
	if err != nil {
		return nil, err
	}
	if err := r.Restore(bytes.NewReader(cp.Data)); err != nil {
		return nil, fmt.Errorf("checkpoint %s: %w", cp.ID, err)
	}
	return cp, nil
}

// Prune deletes all but the newest keep checkpoints and returns how many
// were deleted.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		return 0, fmt.Errorf("prune: keep must not be negative, got %d", keep)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM checkpoints WHERE seq NOT IN (SELECT seq FROM checkpoints ORDER BY seq DESC LIMIT ?)",
		keep)
	if err != nil {
		return 0, fmt.Errorf("pruning checkpoints: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning checkpoints: %w", err)
	}
	if n > 0 {
		s.log.Noticef("pruned %d checkpoints", n)
	}
	return int(n), nil
}
