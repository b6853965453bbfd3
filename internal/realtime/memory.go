package realtime

import (
	"context"
	"strings"
	"sync"
)

// MemoryNotifier reparte avisos dentro del mismo proceso.
type MemoryNotifier struct {
	mu        sync.Mutex
	listeners map[string]map[*memoryListener]struct{}
}

func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{
		listeners: make(map[string]map[*memoryListener]struct{}),
	}
}

func (n *MemoryNotifier) Publish(_ context.Context, conversationID string) error {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return ErrEmptyConversation
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	for l := range n.listeners[conversationID] {
		signal(l.changes)
	}
	return nil
}

func (n *MemoryNotifier) Subscribe(_ context.Context, conversationID string) (Listener, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return nil, ErrEmptyConversation
	}
	l := &memoryListener{
		parent:         n,
		conversationID: conversationID,
		changes:        make(chan struct{}, 1),
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.listeners[conversationID]; !ok {
		n.listeners[conversationID] = make(map[*memoryListener]struct{})
	}
	n.listeners[conversationID][l] = struct{}{}
	return l, nil
}

// ListenerCount sirve para verificar que no quedan listeners colgados.
func (n *MemoryNotifier) ListenerCount(conversationID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners[conversationID])
}

func (n *MemoryNotifier) remove(l *memoryListener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	set, ok := n.listeners[l.conversationID]
	if !ok {
		return
	}
	if _, ok := set[l]; !ok {
		return
	}
	delete(set, l)
	close(l.changes)
	if len(set) == 0 {
		delete(n.listeners, l.conversationID)
	}
}

type memoryListener struct {
	parent         *MemoryNotifier
	conversationID string
	changes        chan struct{}
	once           sync.Once
}

func (l *memoryListener) Changes() <-chan struct{} {
	return l.changes
}

func (l *memoryListener) Close() error {
	l.once.Do(func() { l.parent.remove(l) })
	return nil
}
