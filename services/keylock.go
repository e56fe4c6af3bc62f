package services

import "sync"

// keyLock 按 key 串行化操作。
// 一把全局锁会把不相干的墙/会话卡在一起，这里按 key 各用各的锁
type keyLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyLock() *keyLock {
	return &keyLock{locks: make(map[string]*sync.Mutex)}
}

func (kl *keyLock) get(key string) *sync.Mutex {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	m, ok := kl.locks[key]
	if !ok {
		m = &sync.Mutex{}
		kl.locks[key] = m
	}
	return m
}

func (kl *keyLock) Lock(key string)   { kl.get(key).Lock() }
func (kl *keyLock) Unlock(key string) { kl.get(key).Unlock() }

// crushLocks 按 "wallID:userID" 串行化暗恋边的写入
var crushLocks = newKeyLock()

// convLocks 按会话 ID 串行化消息追加
var convLocks = newKeyLock()
