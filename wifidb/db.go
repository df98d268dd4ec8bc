// Package wifidb persistently stores the WiFi credential set in a bbolt
// database. It is the single owner of the stored credentials.
package wifidb

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-errors/errors"
	"go.etcd.io/bbolt"
)

const dbFilename = "wifible.db"

type DB struct {
	*bbolt.DB
}

// Open creates the data directory if needed and opens the database in it.
func Open(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, errors.Errorf("could not create data directory: %v", err)
	}

	path := filepath.Join(dataDir, dbFilename)

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, errors.Errorf("could not open %v: %v", path, err)
	}

	return &DB{db}, nil
}
