// Package sqlitekv is the concrete storage.Backend shipped with the engine:
// a single SQLite table keyed by (segment_uuid, field) holding one blob per
// key, adapted from the teacher's internal/db.InitDB WAL/pragma setup. Where
// that teacher opens one database for a whole multi-table application
// schema, this backend opens one database for a single blob table, since
// the engine's storage need is exactly "durable named byte blobs".
package sqlitekv

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"seismic/internal/segment"
	"seismic/internal/sparseerr"
	"seismic/internal/storage"
)

// Backend is a storage.Backend backed by a SQLite database file.
type Backend struct {
	db *sql.DB
}

// Open opens (creating if necessary) a sqlitekv database at path, configured
// the way the teacher's InitDB configures its own database: WAL journaling,
// a busy timeout so concurrent writers block instead of failing, and a
// small connection pool since SQLite serializes writers regardless.
func Open(path string) (*Backend, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitekv: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitekv: ping: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=30000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlitekv: %s: %w", p, err)
		}
	}

	const ddl = `CREATE TABLE IF NOT EXISTS blobs (
		segment_uuid TEXT NOT NULL,
		field        TEXT NOT NULL,
		data         BLOB NOT NULL,
		PRIMARY KEY (segment_uuid, field)
	)`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitekv: create table: %w", err)
	}

	return &Backend{db: db}, nil
}

// Close closes the underlying database connection.
func (b *Backend) Close() error {
	return b.db.Close()
}

var _ storage.Backend = (*Backend)(nil)

func (b *Backend) ReadBytes(seg segment.Key, field string, r storage.Range) ([]byte, bool, error) {
	var data []byte
	err := b.db.QueryRow(`SELECT data FROM blobs WHERE segment_uuid = ? AND field = ?`, seg.SegmentUUID, field).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, sparseerr.New(sparseerr.KindStorageError, "sqlitekv.ReadBytes", err)
	}
	start := r.Offset
	if start > uint64(len(data)) {
		start = uint64(len(data))
	}
	end := start + r.Length
	if r.Length == 0 || end > uint64(len(data)) {
		end = uint64(len(data))
	}
	return data[start:end], true, nil
}

func (b *Backend) WriteFinalize(seg segment.Key, field string, data []byte) error {
	_, err := b.db.Exec(`INSERT INTO blobs (segment_uuid, field, data) VALUES (?, ?, ?)
		ON CONFLICT(segment_uuid, field) DO UPDATE SET data = excluded.data`,
		seg.SegmentUUID, field, data)
	if err != nil {
		return sparseerr.New(sparseerr.KindStorageError, "sqlitekv.WriteFinalize", err)
	}
	return nil
}

func (b *Backend) Size(seg segment.Key, field string) (uint64, bool, error) {
	var n int64
	err := b.db.QueryRow(`SELECT length(data) FROM blobs WHERE segment_uuid = ? AND field = ?`, seg.SegmentUUID, field).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, sparseerr.New(sparseerr.KindStorageError, "sqlitekv.Size", err)
	}
	return uint64(n), true, nil
}

func (b *Backend) Delete(seg segment.Key, field string) error {
	_, err := b.db.Exec(`DELETE FROM blobs WHERE segment_uuid = ? AND field = ?`, seg.SegmentUUID, field)
	if err != nil {
		return sparseerr.New(sparseerr.KindStorageError, "sqlitekv.Delete", err)
	}
	return nil
}
