// Package store 提供向导状态的本地持久化：
// 小体积文本状态走KV存储，大体积图片产物走blob存储。
package store

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// TextStateKey 文本状态的固定存储键
const TextStateKey = "storybook_session_data"

// blob存储的固定键
const (
	KeyUserPhoto    = "user_photo"
	KeyCharacter    = "character_illustration"
	KeyCharacterMap = "character_map"
	PageKeyPrefix   = "page_illustration_"
)

// PageKey 第n页插画的存储键，n取1..12
func PageKey(n int) string {
	return fmt.Sprintf("%s%d", PageKeyPrefix, n)
}

// PageNumber 从存储键解析页号
func PageNumber(key string) (int, bool) {
	if !strings.HasPrefix(key, PageKeyPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(key, PageKeyPrefix))
	if err != nil {
		return 0, false
	}
	return n, true
}

var (
	// ErrQuotaExceeded 存储预算耗尽
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	// ErrNotFound 键不存在
	ErrNotFound = errors.New("value not found")
)

// IsQuotaError 判断是否为配额类错误
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrQuotaExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "quota") || strings.Contains(msg, "disk is full")
}

// TextStateStore 文本状态存储，localStorage的等价抽象
type TextStateStore interface {
	Put(session string, data []byte) error
	Get(session string) ([]byte, error) // 不存在时返回ErrNotFound
	Delete(session string) error
}

// BlobStore 二进制产物存储，IndexedDB的等价抽象
type BlobStore interface {
	Put(session, key string, data []byte) error
	Get(session, key string) ([]byte, error) // 不存在时返回ErrNotFound
	DeleteAll(session string) error
	Close() error
}
