package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStateStore 基于文件的文本状态存储，每个会话一个JSON文件。
// maxBytes模拟localStorage的容量预算，超限写入返回ErrQuotaExceeded。
type FileStateStore struct {
	dir      string
	maxBytes int
	mu       sync.Mutex
}

func NewFileStateStore(dir string, maxBytes int) (*FileStateStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	return &FileStateStore{dir: dir, maxBytes: maxBytes}, nil
}

func (s *FileStateStore) path(session string) string {
	// 会话ID由服务端生成，这里兜底防止路径逃逸
	name := strings.ReplaceAll(session, string(os.PathSeparator), "_")
	return filepath.Join(s.dir, name+".json")
}

func (s *FileStateStore) Put(session string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxBytes > 0 && len(data) > s.maxBytes {
		return fmt.Errorf("%w: %d bytes over %d budget", ErrQuotaExceeded, len(data), s.maxBytes)
	}
	return os.WriteFile(s.path(session), data, 0644)
}

func (s *FileStateStore) Get(session string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path(session))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *FileStateStore) Delete(session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path(session))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

var _ TextStateStore = (*FileStateStore)(nil)
