package store

import (
	"github.com/sirupsen/logrus"
)

// 配额降级时的体积上限：高优先级产物约500KB，低优先级约300KB
const (
	highPriorityLimit = 500000
	lowPriorityLimit  = 300000
)

// reduceHighPriority 收缩高优先级图片。保留data URI头部和末尾片段，
// 是一种粗粒度收缩而非重新编码。
func reduceHighPriority(data []byte) []byte {
	return trimPayload(data, highPriorityLimit)
}

// reduceLowPriority 更激进地收缩低优先级图片
func reduceLowPriority(data []byte) []byte {
	return trimPayload(data, lowPriorityLimit)
}

func trimPayload(data []byte, limit int) []byte {
	if len(data) <= limit {
		return data
	}
	out := make([]byte, 0, limit+100)
	out = append(out, data[:limit]...)
	out = append(out, data[len(data)-100:]...)
	return out
}

// retryPageOnQuota 配额压力下只重试首、中、末三页
func retryPageOnQuota(n int) bool {
	return n == 1 || n == 6 || n == 12
}

// handleQuotaError 配额失败后的降级重试。
// 高优先级键（照片、角色图、角色映射图）收缩后重试一次；
// 第1/6/12页用更激进的收缩重试；其余页直接放弃。
// 返回是否最终写入成功。
func handleQuotaError(blobs BlobStore, session, key string, data []byte) bool {
	if n, ok := PageNumber(key); ok {
		if !retryPageOnQuota(n) {
			return false
		}
		if err := blobs.Put(session, key, reduceLowPriority(data)); err != nil {
			logrus.Warnf("页面%d降级重试仍失败: %v", n, err)
			return false
		}
		logrus.Infof("页面%d已降级保存", n)
		return true
	}
	switch key {
	case KeyUserPhoto, KeyCharacter, KeyCharacterMap:
		if err := blobs.Put(session, key, reduceHighPriority(data)); err != nil {
			logrus.Warnf("高优先级产物%s降级重试仍失败: %v", key, err)
			return false
		}
		logrus.Infof("高优先级产物%s已降级保存", key)
		return true
	}
	return false
}
