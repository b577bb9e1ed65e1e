package bmpstream

import (
	"crypto/sha1"
	"database/sql"
	"fmt"

	"github.com/bodgit/bmpstream/bitmap"
	_ "github.com/mattn/go-sqlite3"
)

// ImageDB is a store of decoded bitmaps, each saved under a unique name.
// Identical bitmaps saved under different names are only stored once.
type ImageDB struct {
	db *sql.DB
}

// Entry describes a stored bitmap
type Entry struct {
	Name         string
	SHA1         string
	Width        int
	Height       int
	BitsPerPixel int
	Size         int
}

// NewImageDB opens, creating if necessary, the database at file
func NewImageDB(file string) (*ImageDB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=5000", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS bitmap (id INTEGER PRIMARY KEY NOT NULL, sha1 TEXT NOT NULL UNIQUE, width INTEGER NOT NULL, height INTEGER NOT NULL, bpp INTEGER NOT NULL, data BLOB NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS image (id INTEGER PRIMARY KEY NOT NULL, name TEXT NOT NULL UNIQUE, bitmap_id INTEGER NOT NULL, FOREIGN KEY(bitmap_id) REFERENCES bitmap(id))"); err != nil {
		db.Close()
		return nil, err
	}

	return &ImageDB{
		db: db,
	}, nil
}

// Close closes the database
func (db *ImageDB) Close() error {
	return db.db.Close()
}

func addBitmap(tx *sql.Tx, m *bitmap.Image) (int64, error) {
	b, err := m.MarshalBinary()
	if err != nil {
		return 0, err
	}
	sha := fmt.Sprintf("%X", sha1.Sum(b))

	if _, err := tx.Exec("INSERT OR IGNORE INTO bitmap (sha1, width, height, bpp, data) VALUES (?, ?, ?, ?, ?)", sha, m.Width(), m.Height(), m.BitsPerPixel(), b); err != nil {
		return 0, err
	}

	var id int64
	if err := tx.QueryRow("SELECT id FROM bitmap WHERE sha1 = ?", sha).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// Bitmaps no longer referenced by any name
func removeOrphans(tx *sql.Tx) error {
	_, err := tx.Exec("DELETE FROM bitmap WHERE id NOT IN (SELECT bitmap_id FROM image)")
	return err
}

// Put stores m under name, replacing anything already stored under that
// name
func (db *ImageDB) Put(name string, m *bitmap.Image) error {
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	id, err := addBitmap(tx, m)
	if err != nil {
		return err
	}

	if _, err := tx.Exec("INSERT OR REPLACE INTO image (name, bitmap_id) VALUES (?, ?)", name, id); err != nil {
		return err
	}

	if err := removeOrphans(tx); err != nil {
		return err
	}

	return tx.Commit()
}

// Get returns the bitmap stored under name, or nil if there isn't one
func (db *ImageDB) Get(name string) (*bitmap.Image, error) {
	var b []byte
	switch err := db.db.QueryRow("SELECT b.data FROM image AS i JOIN bitmap AS b ON i.bitmap_id = b.id WHERE i.name = ?", name).Scan(&b); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		return bitmap.DecodeBytes(b)
	default:
		return nil, err
	}
}

// Delete removes name and, if nothing else refers to it, the bitmap it
// pointed to
func (db *ImageDB) Delete(name string) error {
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM image WHERE name = ?", name); err != nil {
		return err
	}

	if err := removeOrphans(tx); err != nil {
		return err
	}

	return tx.Commit()
}

// List returns every stored name in order
func (db *ImageDB) List() ([]Entry, error) {
	rows, err := db.db.Query("SELECT i.name, b.sha1, b.width, b.height, b.bpp, length(b.data) FROM image AS i JOIN bitmap AS b ON i.bitmap_id = b.id ORDER BY i.name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Name, &e.SHA1, &e.Width, &e.Height, &e.BitsPerPixel, &e.Size); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
