package service

import "sync"

// chatLocks enforces the at-most-one-active-run invariant per chat. Entries
// exist only while a run holds them, so the arena never grows with idle
// chats, and chats that never collide proceed fully in parallel.
type chatLocks struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func newChatLocks() *chatLocks {
	return &chatLocks{active: make(map[string]struct{})}
}

// acquire claims the chat's slot. Returns false when a run already holds it.
func (l *chatLocks) acquire(chatID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.active[chatID]; held {
		return false
	}
	l.active[chatID] = struct{}{}
	return true
}

// release frees the chat's slot.
func (l *chatLocks) release(chatID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.active, chatID)
}
