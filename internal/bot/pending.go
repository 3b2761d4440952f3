package bot

import (
	"sync"

	"tabkeeper/internal/model"
)

// pendingStore holds at most one parsed-but-untyped receipt per chat.
// Each chat has a single worker, but separate chats touch the map
// concurrently, hence the lock.
type pendingStore struct {
	mu    sync.Mutex
	slots map[int64]*model.PendingImage
}

func newPendingStore() *pendingStore {
	return &pendingStore{slots: make(map[int64]*model.PendingImage)}
}

// Get returns the chat's pending image without releasing the slot.
func (p *pendingStore) Get(chatID int64) (*model.PendingImage, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	img, ok := p.slots[chatID]
	return img, ok
}

// Put overwrites the chat's slot and returns the image it displaced, if
// any.
func (p *pendingStore) Put(chatID int64, img *model.PendingImage) *model.PendingImage {
	p.mu.Lock()
	defer p.mu.Unlock()
	prior := p.slots[chatID]
	p.slots[chatID] = img
	return prior
}

// Take removes and returns the chat's pending image.
func (p *pendingStore) Take(chatID int64) (*model.PendingImage, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	img, ok := p.slots[chatID]
	if ok {
		delete(p.slots, chatID)
	}
	return img, ok
}
