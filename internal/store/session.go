package store

import (
	"encoding/json"
	"errors"

	"github.com/sirupsen/logrus"

	"storybook/internal/model"
)

// SessionStore 组合文本存储和blob存储，对外提供会话级的保存/恢复。
// 写入失败一律静默降级：调用方只拿到一个是否成功的标记，
// 由它去置storageError，不会收到错误。
type SessionStore struct {
	texts TextStateStore
	blobs BlobStore
}

func NewSessionStore(texts TextStateStore, blobs BlobStore) *SessionStore {
	return &SessionStore{texts: texts, blobs: blobs}
}

// SaveTextState 序列化并写入文本状态，返回是否成功
func (s *SessionStore) SaveTextState(session string, ts *model.TextState) bool {
	data, err := json.Marshal(ts)
	if err != nil {
		logrus.Warnf("序列化文本状态失败: %v", err)
		return false
	}
	if err := s.texts.Put(session, data); err != nil {
		logrus.Warnf("写入文本状态失败: %v", err)
		return false
	}
	return true
}

// LoadTextState 读取并解析文本状态。
// 键不存在或内容损坏都按"没有保存过"处理，返回初始状态，绝不抛错。
func (s *SessionStore) LoadTextState(session string) *model.TextState {
	empty := &model.TextState{
		Step:    model.StepStart,
		History: []model.Step{model.StepStart},
	}
	data, err := s.texts.Get(session)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logrus.Warnf("读取文本状态失败: %v", err)
		}
		return empty
	}
	var ts model.TextState
	if err := json.Unmarshal(data, &ts); err != nil {
		logrus.Warnf("解析文本状态失败，按空状态处理: %v", err)
		return empty
	}
	if ts.Step == "" || !model.ValidStep(ts.Step) {
		ts.Step = model.StepStart
	}
	if len(ts.History) == 0 {
		ts.History = []model.Step{model.StepStart}
	}
	return &ts
}

// SaveImage 写入一件二进制产物，配额失败时按优先级策略降级。
// 返回是否出现了配额问题（每次调用最多上报一次）。
func (s *SessionStore) SaveImage(session, key string, data []byte) (quotaErr bool) {
	if len(data) == 0 {
		return false
	}
	err := s.blobs.Put(session, key, data)
	if err == nil {
		return false
	}
	if !IsQuotaError(err) {
		logrus.Warnf("写入%s失败: %v", key, err)
		return false
	}
	logrus.Warnf("写入%s触发存储配额: %v", key, err)
	handleQuotaError(s.blobs, session, key, data)
	return true
}

// LoadImage 读取一件二进制产物，不存在或出错都返回nil
func (s *SessionStore) LoadImage(session, key string) []byte {
	data, err := s.blobs.Get(session, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logrus.Warnf("读取%s失败: %v", key, err)
		}
		return nil
	}
	return data
}

// LoadPageImages 读取全部页插画，固定返回12个元素，缺页为空串
func (s *SessionStore) LoadPageImages(session string) []string {
	pages := make([]string, model.PageCount)
	for i := 1; i <= model.PageCount; i++ {
		if data := s.LoadImage(session, PageKey(i)); data != nil {
			pages[i-1] = string(data)
		}
	}
	return pages
}

// ClearAll 清空一个会话的两侧存储，仅用于用户主动重置。
// blob清理失败不阻断文本状态清理，保证用户总能重新开始。
func (s *SessionStore) ClearAll(session string) {
	if err := s.blobs.DeleteAll(session); err != nil {
		logrus.Warnf("清空blob存储失败: %v", err)
	}
	if err := s.texts.Delete(session); err != nil {
		logrus.Warnf("清空文本状态失败: %v", err)
	}
}
