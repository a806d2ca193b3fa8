// internal/store/store.go - Read access to GeoPackage SQLite containers
package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite
const DriverName = "sqlite"

// GeoPackage application_id values
const (
	ApplicationIDGPKG uint32 = 0x47504B47 // "GPKG"
	ApplicationIDGP10 uint32 = 0x47503130 // "GP10"
	ApplicationIDGP11 uint32 = 0x47503131 // "GP11"
)

// ErrNotGeoPackage is returned when the file's application_id is set to something else
var ErrNotGeoPackage = errors.New("not a GeoPackage")

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// Options controls how a container is opened
type Options struct {
	ReadOnly    bool
	BusyTimeout time.Duration
}

// DefaultOptions opens read-only with a five second busy timeout
func DefaultOptions() Options {
	return Options{ReadOnly: true, BusyTimeout: 5 * time.Second}
}

// Store wraps a database handle on one GeoPackage file
type Store struct {
	db   *sql.DB
	path string
}

// Open opens the GeoPackage at path and checks its application_id
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	db, err := sql.Open(DriverName, dsn(path, opts))
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}

	s := &Store{db: db, path: path}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "open %s", path)
	}

	id, err := s.ApplicationID(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	if id != 0 && id != ApplicationIDGPKG && id != ApplicationIDGP10 && id != ApplicationIDGP11 {
		db.Close()
		return nil, errors.Wrapf(ErrNotGeoPackage, "%s has application_id 0x%08X", path, id)
	}

	return s, nil
}

// New wraps an existing handle; the caller keeps ownership of db
func New(db *sql.DB, path string) *Store {
	return &Store{db: db, path: path}
}

// Close releases the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the file the store was opened from
func (s *Store) Path() string {
	return s.path
}

// ApplicationID reads PRAGMA application_id
func (s *Store) ApplicationID(ctx context.Context) (uint32, error) {
	var id int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA application_id").Scan(&id); err != nil {
		return 0, errors.Wrap(err, "read application_id")
	}
	return uint32(id), nil
}

func dsn(path string, opts Options) string {
	params := url.Values{}
	if opts.ReadOnly {
		params.Set("mode", "ro")
	}
	if opts.BusyTimeout > 0 {
		params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", opts.BusyTimeout.Milliseconds()))
	}
	if len(params) == 0 {
		return "file:" + path
	}
	return "file:" + path + "?" + params.Encode()
}
