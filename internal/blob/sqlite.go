package blob

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/inventar/internal/model"
)

// SQLite keeps blobs as rows of the blobs table.
type SQLite struct {
	db *sql.DB
}

// NewSQLite returns a store backed by db. The schema must already exist.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// Put inserts data under a fresh id. The primary key rejects duplicates.
func (s *SQLite) Put(ctx context.Context, data []byte) (string, error) {
	if data == nil {
		data = []byte{}
	}
	id := newID()
	_, err := s.db.ExecContext(ctx, `INSERT INTO blobs (id, data) VALUES (?, ?)`, id, data)
	if err != nil {
		return "", model.Storage("inserting blob", err)
	}
	return id, nil
}

// Get returns the content stored under id.
func (s *SQLite) Get(ctx context.Context, id string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM blobs WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("blob %s", id)
	}
	if err != nil {
		return nil, model.Storage("reading blob", err)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// Delete removes the row for id, if any.
func (s *SQLite) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM blobs WHERE id = ?`, id); err != nil {
		return model.Storage(fmt.Sprintf("deleting blob %s", id), err)
	}
	return nil
}
