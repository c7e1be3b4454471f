package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO
)

// metaDB is the SQLite side of the store: chunk rows plus a small key/value
// state table recording the embedding dimension and model.
type metaDB struct {
	db *sql.DB
}

const chunkSchema = `
CREATE TABLE IF NOT EXISTS chunks (
	id           TEXT PRIMARY KEY,
	source_path  TEXT NOT NULL,
	file_name    TEXT NOT NULL,
	file_type    TEXT NOT NULL,
	chunk_index  INTEGER NOT NULL,
	total_chunks INTEGER NOT NULL,
	modified     INTEGER NOT NULL,
	headers      TEXT NOT NULL DEFAULT '',
	token_count  INTEGER NOT NULL,
	char_start   INTEGER NOT NULL,
	char_end     INTEGER NOT NULL,
	content      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source_path);
CREATE INDEX IF NOT EXISTS idx_chunks_type ON chunks(file_type);
CREATE TABLE IF NOT EXISTS state (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const (
	stateKeyDimensions = "dimensions"
	stateKeyModel      = "model"
)

func openMetaDB(path string) (*metaDB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single connection: one writer avoids lock contention, and SQLite
	// serializes everything through it anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// modernc.org/sqlite ignores some DSN params; set pragmas explicitly.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(chunkSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &metaDB{db: db}, nil
}

func (m *metaDB) close() error {
	return m.db.Close()
}

// getState reads one state value; ok is false when the key is unset.
func (m *metaDB) getState(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := m.db.QueryRowContext(ctx, "SELECT value FROM state WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read state %q: %w", key, err)
	}
	return value, true, nil
}

func (m *metaDB) setState(ctx context.Context, key, value string) error {
	_, err := m.db.ExecContext(ctx,
		"INSERT INTO state (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	if err != nil {
		return fmt.Errorf("write state %q: %w", key, err)
	}
	return nil
}

// upsertChunks replaces chunk rows in one transaction.
func (m *metaDB) upsertChunks(ctx context.Context, records []Record) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO chunks
		(id, source_path, file_name, file_type, chunk_index, total_chunks,
		 modified, headers, token_count, char_start, char_end, content)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			r.ID, r.SourcePath, r.FileName, r.FileType, r.ChunkIndex,
			r.TotalChunks, r.Modified.UnixNano(), r.Headers, r.TokenCount,
			r.CharStart, r.CharEnd, r.Content)
		if err != nil {
			return fmt.Errorf("upsert chunk %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// deleteBySource removes all chunk rows for one source path and returns the
// IDs it removed. Deleting an absent source returns an empty slice.
func (m *metaDB) deleteBySource(ctx context.Context, sourcePath string) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT id FROM chunks WHERE source_path = ?", sourcePath)
	if err != nil {
		return nil, fmt.Errorf("select chunks for %s: %w", sourcePath, err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan chunk id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate chunk ids: %w", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return nil, nil
	}

	if _, err := m.db.ExecContext(ctx, "DELETE FROM chunks WHERE source_path = ?", sourcePath); err != nil {
		return nil, fmt.Errorf("delete chunks for %s: %w", sourcePath, err)
	}
	return ids, nil
}

// getChunks fetches records by ID, without embeddings. Missing IDs are
// silently absent from the result.
func (m *metaDB) getChunks(ctx context.Context, ids []string) (map[string]Record, error) {
	if len(ids) == 0 {
		return map[string]Record{}, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT id, source_path, file_name, file_type, chunk_index, total_chunks,
		       modified, headers, token_count, char_start, char_end, content
		FROM chunks WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("select chunks: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Record, len(ids))
	for rows.Next() {
		var r Record
		var modified int64
		if err := rows.Scan(&r.ID, &r.SourcePath, &r.FileName, &r.FileType,
			&r.ChunkIndex, &r.TotalChunks, &modified, &r.Headers,
			&r.TokenCount, &r.CharStart, &r.CharEnd, &r.Content); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		r.Modified = time.Unix(0, modified).UTC()
		out[r.ID] = r
	}
	return out, rows.Err()
}

// listSources returns every indexed source path with its recorded mtime.
// Always computed from the database, never cached.
func (m *metaDB) listSources(ctx context.Context) (map[string]time.Time, error) {
	rows, err := m.db.QueryContext(ctx,
		"SELECT source_path, MAX(modified) FROM chunks GROUP BY source_path")
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var path string
		var modified int64
		if err := rows.Scan(&path, &modified); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		out[path] = time.Unix(0, modified).UTC()
	}
	return out, rows.Err()
}

// stats aggregates chunk counts overall and per file type.
func (m *metaDB) stats(ctx context.Context) (Stats, error) {
	s := Stats{ByType: make(map[string]int)}

	err := m.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COUNT(DISTINCT source_path) FROM chunks").
		Scan(&s.TotalChunks, &s.TotalFiles)
	if err != nil {
		return Stats{}, fmt.Errorf("count chunks: %w", err)
	}

	rows, err := m.db.QueryContext(ctx,
		"SELECT file_type, COUNT(*) FROM chunks GROUP BY file_type")
	if err != nil {
		return Stats{}, fmt.Errorf("count by type: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fileType string
		var count int
		if err := rows.Scan(&fileType, &count); err != nil {
			return Stats{}, fmt.Errorf("scan type count: %w", err)
		}
		s.ByType[fileType] = count
	}
	return s, rows.Err()
}

func (m *metaDB) countChunks(ctx context.Context) (int, error) {
	var n int
	if err := m.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}
