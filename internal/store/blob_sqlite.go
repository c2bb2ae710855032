package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteBlobStore 基于SQLite的blob存储。
// maxBytes为整库数据预算，超限写入返回ErrQuotaExceeded。
type SQLiteBlobStore struct {
	db       *sql.DB
	maxBytes int64
	mu       sync.Mutex
}

func NewSQLiteBlobStore(path string, maxBytes int64) (*SQLiteBlobStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &SQLiteBlobStore{db: db, maxBytes: maxBytes}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteBlobStore) initialize() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS images (
		session    TEXT NOT NULL,
		key        TEXT NOT NULL,
		data       BLOB NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (session, key)
	);`)
	return err
}

// usedBytes 当前占用量，excl指定的键不计入（覆盖写场景）
func (s *SQLiteBlobStore) usedBytes(session, exclKey string) (int64, error) {
	var used sql.NullInt64
	err := s.db.QueryRow(
		`SELECT SUM(LENGTH(data)) FROM images WHERE NOT (session = ? AND key = ?)`,
		session, exclKey,
	).Scan(&used)
	if err != nil {
		return 0, err
	}
	return used.Int64, nil
}

func (s *SQLiteBlobStore) Put(session, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxBytes > 0 {
		used, err := s.usedBytes(session, key)
		if err != nil {
			return err
		}
		if used+int64(len(data)) > s.maxBytes {
			return fmt.Errorf("%w: %d bytes used of %d budget", ErrQuotaExceeded, used, s.maxBytes)
		}
	}
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO images (session, key, data, updated_at) VALUES (?, ?, ?, ?)`,
		session, key, data, time.Now().UTC(),
	)
	return err
}

func (s *SQLiteBlobStore) Get(session, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow(
		`SELECT data FROM images WHERE session = ? AND key = ?`,
		session, key,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *SQLiteBlobStore) DeleteAll(session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM images WHERE session = ?`, session)
	return err
}

func (s *SQLiteBlobStore) Close() error {
	return s.db.Close()
}

var _ BlobStore = (*SQLiteBlobStore)(nil)
