package realtime

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// redisSubscription es la parte de *redis.PubSub que usa el listener.
type redisSubscription interface {
	Receive(ctx context.Context) (interface{}, error)
	ChannelWithSubscriptions(opts ...redis.ChannelOption) <-chan interface{}
	Close() error
}

// RedisNotifier usa pub/sub de Redis; sirve con varias instancias de la API.
type RedisNotifier struct {
	client    redisPublisher
	subscribe func(ctx context.Context, channel string) redisSubscription
	prefix    string
}

func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	if client == nil {
		return nil
	}
	return &RedisNotifier{
		client: client,
		subscribe: func(ctx context.Context, channel string) redisSubscription {
			return client.Subscribe(ctx, channel)
		},
		prefix: "chat:conv:",
	}
}

func (n *RedisNotifier) channel(conversationID string) string {
	return n.prefix + conversationID
}

func (n *RedisNotifier) Publish(ctx context.Context, conversationID string) error {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return ErrEmptyConversation
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return n.client.Publish(ctx, n.channel(conversationID), conversationID).Err()
}

func (n *RedisNotifier) Subscribe(ctx context.Context, conversationID string) (Listener, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return nil, ErrEmptyConversation
	}
	ps := n.subscribe(ctx, n.channel(conversationID))
	// Receive confirma la suscripción antes de que el caller lea el snapshot inicial.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, err
	}

	l := &redisListener{
		ps:      ps,
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go l.forward(ps.ChannelWithSubscriptions())
	return l, nil
}

type redisListener struct {
	ps      redisSubscription
	changes chan struct{}
	done    chan struct{}
	once    sync.Once
}

// forward traduce mensajes en señales. go-redis reconecta solo y vuelve a
// suscribirse; en ese hueco se pudieron perder avisos, así que un nuevo
// "subscribe" cierra Changes y el consumidor rearma todo con un snapshot fresco.
func (l *redisListener) forward(in <-chan interface{}) {
	defer close(l.changes)
	for {
		select {
		case msg, ok := <-in:
			if !ok {
				return
			}
			switch m := msg.(type) {
			case *redis.Message:
				signal(l.changes)
			case *redis.Subscription:
				if m.Kind == "subscribe" {
					return
				}
			}
		case <-l.done:
			return
		}
	}
}

func (l *redisListener) Changes() <-chan struct{} {
	return l.changes
}

func (l *redisListener) Close() error {
	var err error
	l.once.Do(func() {
		close(l.done)
		err = l.ps.Close()
	})
	return err
}
