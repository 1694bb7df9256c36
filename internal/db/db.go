package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const defaultDBName = "courseline.db"

type Config struct {
	Path string
}

// Open opens the SQLite database with foreign keys on. The parent
// directory is created if missing.
func Open(cfg Config) (*sql.DB, error) {
	path := cfg.Path
	if path == "" {
		path = defaultDBName
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=foreign_keys(1)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
