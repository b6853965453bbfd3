package realtime

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"
)

const natsSubjectPrefix = "chat.conv"

// NATSNotifier publica avisos en subjects "chat.conv.<conversationID>".
type NATSNotifier struct {
	nc *nats.Conn

	mu        sync.Mutex
	listeners map[*natsListener]struct{}
}

func NewNATSNotifier(url string) (*NATSNotifier, error) {
	n := &NATSNotifier{listeners: make(map[*natsListener]struct{})}
	nc, err := nats.Connect(url,
		nats.Name("diet-coach"),
		nats.MaxReconnects(-1),
		// Tras reconectar pudimos perder avisos: forzamos una relectura en todos.
		nats.ReconnectHandler(func(_ *nats.Conn) { n.signalAll() }),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	n.nc = nc
	return n, nil
}

func (n *NATSNotifier) Close() {
	if n.nc != nil {
		n.nc.Close()
	}
}

func natsSubject(conversationID string) string {
	return natsSubjectPrefix + "." + conversationID
}

// validNATSToken evita ids que rompan la jerarquía de subjects.
func validNATSToken(id string) bool {
	return id != "" && !strings.ContainsAny(id, ".*> \t\r\n")
}

func (n *NATSNotifier) Publish(_ context.Context, conversationID string) error {
	conversationID = strings.TrimSpace(conversationID)
	if !validNATSToken(conversationID) {
		return ErrEmptyConversation
	}
	if err := n.nc.Publish(natsSubject(conversationID), []byte(conversationID)); err != nil {
		return fmt.Errorf("publish to %s: %w", natsSubject(conversationID), err)
	}
	return nil
}

func (n *NATSNotifier) Subscribe(_ context.Context, conversationID string) (Listener, error) {
	conversationID = strings.TrimSpace(conversationID)
	if !validNATSToken(conversationID) {
		return nil, ErrEmptyConversation
	}
	l := &natsListener{parent: n, changes: make(chan struct{}, 1)}
	sub, err := n.nc.Subscribe(natsSubject(conversationID), func(_ *nats.Msg) {
		l.notify()
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", natsSubject(conversationID), err)
	}
	// Flush asegura que el server registró el interés antes del snapshot inicial.
	if err := n.nc.Flush(); err != nil {
		sub.Unsubscribe()
		return nil, fmt.Errorf("flush subscription: %w", err)
	}
	l.sub = sub

	n.mu.Lock()
	n.listeners[l] = struct{}{}
	n.mu.Unlock()
	return l, nil
}

func (n *NATSNotifier) signalAll() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for l := range n.listeners {
		l.notify()
	}
}

func (n *NATSNotifier) forget(l *natsListener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.listeners, l)
}

type natsListener struct {
	parent  *NATSNotifier
	sub     *nats.Subscription
	mu      sync.Mutex
	closed  bool
	changes chan struct{}
}

func (l *natsListener) notify() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		signal(l.changes)
	}
}

func (l *natsListener) Changes() <-chan struct{} {
	return l.changes
}

func (l *natsListener) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.changes)
	l.mu.Unlock()

	l.parent.forget(l)
	return l.sub.Unsubscribe()
}
