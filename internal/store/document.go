package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/erazemk/inventar/internal/model"
)

// Document is the durable medium of the inventory. Save replaces the whole
// document; a reader of the medium sees either the old or the new version.
type Document interface {
	Load(ctx context.Context) (model.Document, error)
	Save(ctx context.Context, doc model.Document) error
}

// FileDocument keeps the inventory as one JSON file.
type FileDocument struct {
	path string
}

// NewFileDocument returns a document stored at path.
func NewFileDocument(path string) *FileDocument {
	return &FileDocument{path: path}
}

// Path returns the location of the JSON file.
func (d *FileDocument) Path() string { return d.path }

// Load reads the document, creating an empty one if the file is absent.
// A bare JSON array of items is accepted as well.
func (d *FileDocument) Load(ctx context.Context) (model.Document, error) {
	data, err := os.ReadFile(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		doc := model.Document{NextID: 1, Items: []model.Item{}}
		if err := d.Save(ctx, doc); err != nil {
			return model.Document{}, err
		}
		return doc, nil
	}
	if err != nil {
		return model.Document{}, model.Storage("reading document", err)
	}
	return decodeDocument(data)
}

// Save writes doc to a temp file next to the target and renames it into place.
func (d *FileDocument) Save(_ context.Context, doc model.Document) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}

	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return model.Storage("creating document directory", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(d.path)+"-*")
	if err != nil {
		return model.Storage("creating document", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return model.Storage("writing document", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return model.Storage("syncing document", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return model.Storage("closing document", err)
	}
	if err := os.Rename(tmpName, d.path); err != nil {
		os.Remove(tmpName)
		return model.Storage("replacing document", err)
	}
	if err := syncDir(dir); err != nil {
		return model.Storage("syncing document directory", err)
	}
	return nil
}

// syncDir flushes the directory entry so a completed rename survives a crash.
func syncDir(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

const sqliteDocumentName = "inventory"

// SQLiteDocument keeps the inventory as a single row of the documents table.
type SQLiteDocument struct {
	db *sql.DB
}

// NewSQLiteDocument returns a document stored in db. The schema must exist.
func NewSQLiteDocument(db *sql.DB) *SQLiteDocument {
	return &SQLiteDocument{db: db}
}

// Load reads the document row, creating an empty one if absent.
func (d *SQLiteDocument) Load(ctx context.Context) (model.Document, error) {
	var body string
	err := d.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE name = ?`, sqliteDocumentName,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		doc := model.Document{NextID: 1, Items: []model.Item{}}
		if err := d.Save(ctx, doc); err != nil {
			return model.Document{}, err
		}
		return doc, nil
	}
	if err != nil {
		return model.Document{}, model.Storage("reading document", err)
	}
	return decodeDocument([]byte(body))
}

// Save replaces the document row in a single statement.
func (d *SQLiteDocument) Save(ctx context.Context, doc model.Document) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	_, err = d.db.ExecContext(ctx,
		`INSERT INTO documents (name, body) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = CURRENT_TIMESTAMP`,
		sqliteDocumentName, string(data),
	)
	if err != nil {
		return model.Storage("writing document", err)
	}
	return nil
}

func encodeDocument(doc model.Document) ([]byte, error) {
	if doc.Items == nil {
		doc.Items = []model.Item{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, model.Storage("encoding document", err)
	}
	return append(data, '\n'), nil
}

func decodeDocument(data []byte) (model.Document, error) {
	var doc model.Document

	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0:
		doc.Items = []model.Item{}
	case trimmed[0] == '[':
		if err := json.Unmarshal(trimmed, &doc.Items); err != nil {
			return model.Document{}, model.Storage("decoding document", err)
		}
	default:
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return model.Document{}, model.Storage("decoding document", err)
		}
	}
	if doc.Items == nil {
		doc.Items = []model.Item{}
	}
	for i, item := range doc.Items {
		if item.PhotoRef != nil && *item.PhotoRef == "" {
			doc.Items[i].PhotoRef = nil
		}
	}
	return doc, nil
}

// describeDocument names the medium for log lines.
func describeDocument(d Document) string {
	switch v := d.(type) {
	case *FileDocument:
		return v.path
	case *SQLiteDocument:
		return fmt.Sprintf("sqlite:%s", sqliteDocumentName)
	default:
		return fmt.Sprintf("%T", d)
	}
}
