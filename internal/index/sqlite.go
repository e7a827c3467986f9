package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"albumsync/internal/index/migrations"
	"albumsync/internal/model"
)

const lastUpdatedKey = "last_updated"

// SQLiteStore persists the index in a SQLite database.
// Save replaces the whole snapshot inside one transaction.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLiteStore opens (creating if needed) the database at path and migrates it.
// path may be ":memory:".
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening index database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating index database: %w", err)
	}
	if err := migrations.Check(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load reads the full index snapshot.
func (s *SQLiteStore) Load() (*Index, error) {
	idx := New()

	var lastUpdated string
	err := s.db.QueryRow(`SELECT value FROM index_meta WHERE key = ?`, lastUpdatedKey).Scan(&lastUpdated)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("reading index metadata: %w", err)
	default:
		if idx.LastUpdated, err = parseTime(lastUpdated); err != nil {
			return nil, fmt.Errorf("parsing last_updated: %w", err)
		}
	}

	if err := s.loadItems(idx); err != nil {
		return nil, err
	}
	if err := s.loadCollections(idx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (s *SQLiteStore) loadItems(idx *Index) error {
	rows, err := s.db.Query(`SELECT id, url, checksum, caption, filename, created_at, width, height,
		media_type, last_synced, local_path, metadata, place FROM items`)
	if err != nil {
		return fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it                    model.IndexedItem
			createdAt, lastSynced string
			metadata, place       sql.NullString
		)
		if err := rows.Scan(&it.ID, &it.URL, &it.Checksum, &it.Caption, &it.Filename, &createdAt,
			&it.Width, &it.Height, &it.MediaType, &lastSynced, &it.LocalPath, &metadata, &place); err != nil {
			return fmt.Errorf("scanning item: %w", err)
		}
		if it.CreatedAt, err = parseTime(createdAt); err != nil {
			return fmt.Errorf("item %s: parsing created_at: %w", it.ID, err)
		}
		if it.LastSynced, err = parseTime(lastSynced); err != nil {
			return fmt.Errorf("item %s: parsing last_synced: %w", it.ID, err)
		}
		if metadata.Valid {
			it.Metadata = &model.Metadata{}
			if err := json.Unmarshal([]byte(metadata.String), it.Metadata); err != nil {
				return fmt.Errorf("item %s: decoding metadata: %w", it.ID, err)
			}
		}
		if place.Valid {
			it.Place = &model.Place{}
			if err := json.Unmarshal([]byte(place.String), it.Place); err != nil {
				return fmt.Errorf("item %s: decoding place: %w", it.ID, err)
			}
		}
		idx.Items[it.ID] = it
	}
	return rows.Err()
}

func (s *SQLiteStore) loadCollections(idx *Index) error {
	rows, err := s.db.Query(`SELECT id, name, slug, description, created_at, updated_at FROM collections`)
	if err != nil {
		return fmt.Errorf("querying collections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c                    model.Collection
			createdAt, updatedAt string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &createdAt, &updatedAt); err != nil {
			return fmt.Errorf("scanning collection: %w", err)
		}
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return fmt.Errorf("collection %s: parsing created_at: %w", c.ID, err)
		}
		if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return fmt.Errorf("collection %s: parsing updated_at: %w", c.ID, err)
		}
		c.Members = []string{}
		idx.Collections[c.ID] = &c
	}
	if err := rows.Err(); err != nil {
		return err
	}
	// The store holds one connection, so rows must be released before the next query.
	rows.Close()

	members, err := s.db.Query(`SELECT collection_id, item_id FROM collection_members ORDER BY collection_id, position`)
	if err != nil {
		return fmt.Errorf("querying collection members: %w", err)
	}
	defer members.Close()

	for members.Next() {
		var cid, itemID string
		if err := members.Scan(&cid, &itemID); err != nil {
			return fmt.Errorf("scanning collection member: %w", err)
		}
		if c := idx.Collections[cid]; c != nil {
			c.Members = append(c.Members, itemID)
		}
	}
	return members.Err()
}

// Save replaces the stored snapshot with idx.
func (s *SQLiteStore) Save(idx *Index) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, stmt := range []string{
		`DELETE FROM collection_members`,
		`DELETE FROM collections`,
		`DELETE FROM items`,
	} {
		if _, err = tx.Exec(stmt); err != nil {
			return fmt.Errorf("clearing snapshot: %w", err)
		}
	}

	if _, err = tx.Exec(`INSERT INTO index_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, lastUpdatedKey, formatTime(idx.LastUpdated)); err != nil {
		return fmt.Errorf("writing index metadata: %w", err)
	}

	for _, id := range idx.ItemIDs() {
		if err = insertItem(tx, idx.Items[id]); err != nil {
			return err
		}
	}

	for _, c := range idx.Collections {
		if _, err = tx.Exec(`INSERT INTO collections (id, name, slug, description, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, c.Name, c.Slug, c.Description, formatTime(c.CreatedAt), formatTime(c.UpdatedAt)); err != nil {
			return fmt.Errorf("inserting collection %s: %w", c.ID, err)
		}
		for pos, itemID := range c.Members {
			if _, err = tx.Exec(`INSERT INTO collection_members (collection_id, item_id, position) VALUES (?, ?, ?)`,
				c.ID, itemID, pos); err != nil {
				return fmt.Errorf("inserting member %s of %s: %w", itemID, c.ID, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing index: %w", err)
	}
	return nil
}

func insertItem(tx *sql.Tx, it model.IndexedItem) error {
	metadata, err := nullJSON(it.Metadata)
	if err != nil {
		return fmt.Errorf("item %s: encoding metadata: %w", it.ID, err)
	}
	place, err := nullJSON(it.Place)
	if err != nil {
		return fmt.Errorf("item %s: encoding place: %w", it.ID, err)
	}

	_, err = tx.Exec(`INSERT INTO items (id, url, checksum, caption, filename, created_at, width, height,
		media_type, last_synced, local_path, metadata, place) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID, it.URL, it.Checksum, it.Caption, it.Filename, formatTime(it.CreatedAt), it.Width, it.Height,
		it.MediaType, formatTime(it.LastSynced), it.LocalPath, metadata, place)
	if err != nil {
		return fmt.Errorf("inserting item %s: %w", it.ID, err)
	}
	return nil
}

// nullJSON encodes v, mapping a nil pointer to SQL NULL.
func nullJSON[T any](v *T) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
