package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"diet-coach/internal/domain"
)

var errListenerClosed = errors.New("change feed closed")

// Snapshot es el resultado completo de la consulta de una conversación.
// Messages siempre es la lista entera ordenada; Added son los mensajes que el
// consumidor todavía no vio. Fresh indica que la vista debe reemplazarse entera
// (primera entrega o reconexión).
type Snapshot struct {
	ConversationID string               `json:"conversationId"`
	Messages       []domain.ChatMessage `json:"messages"`
	Added          []domain.ChatMessage `json:"added"`
	Fresh          bool                 `json:"fresh"`
}

// Groups agrupa Messages por día en la zona de now.
func (s Snapshot) Groups(now time.Time) []DayGroup {
	return GroupByDay(s.Messages, now)
}

// Subscription entrega snapshots hasta Close, cancelación del contexto o
// agotamiento de reintentos. Un consumidor lento solo ve el último snapshot.
type Subscription struct {
	conversationID string
	snapshots      chan Snapshot
	cancel         context.CancelFunc
	done           chan struct{}
	closeOnce      sync.Once

	mu  sync.Mutex
	err error
}

func newSubscription(conversationID string, cancel context.CancelFunc) *Subscription {
	return &Subscription{
		conversationID: conversationID,
		snapshots:      make(chan Snapshot, 1),
		cancel:         cancel,
		done:           make(chan struct{}),
	}
}

func (s *Subscription) ConversationID() string {
	return s.conversationID
}

// Snapshots se cierra cuando la suscripción termina; ver Err para la causa.
func (s *Subscription) Snapshots() <-chan Snapshot {
	return s.snapshots
}

// Close libera el listener subyacente. Es idempotente y espera a que el feed termine.
func (s *Subscription) Close() {
	s.closeOnce.Do(s.cancel)
	<-s.done
}

// Err devuelve un error que envuelve ErrSubscription si el feed terminó por fallos.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *Subscription) finish() {
	close(s.snapshots)
	close(s.done)
}

// deliver reemplaza un snapshot pendiente sin leer. Solo el feed escribe en el
// canal, así que después de vaciarlo siempre hay lugar.
func (s *Subscription) deliver(snap Snapshot) {
	select {
	case prev := <-s.snapshots:
		snap.Added = mergeAdded(prev.Added, snap.Added)
		snap.Fresh = snap.Fresh || prev.Fresh
	default:
	}
	if snap.Fresh {
		snap.Added = snap.Messages
	}
	s.snapshots <- snap
}

func mergeAdded(prev, next []domain.ChatMessage) []domain.ChatMessage {
	if len(prev) == 0 {
		return next
	}
	seen := make(map[string]struct{}, len(prev))
	merged := make([]domain.ChatMessage, 0, len(prev)+len(next))
	for _, msg := range prev {
		seen[msg.ID] = struct{}{}
		merged = append(merged, msg)
	}
	for _, msg := range next {
		if _, ok := seen[msg.ID]; ok {
			continue
		}
		merged = append(merged, msg)
	}
	return merged
}

// feedState es lo que el feed recuerda entre recargas.
type feedState struct {
	known    map[string]struct{}
	lastIDs  []string
	failures int
}

func (s *Synchronizer) run(ctx context.Context, sub *Subscription) {
	defer sub.finish()

	state := &feedState{known: make(map[string]struct{})}
	logger := s.logger.With(zap.String("conversation_id", sub.conversationID))

	for {
		err := s.follow(ctx, sub, state)
		if ctx.Err() != nil {
			return
		}

		state.failures++
		if state.failures > s.opts.MaxRetries {
			logger.Error("chat subscription gave up", zap.Error(err), zap.Int("attempts", state.failures))
			sub.fail(fmt.Errorf("%w: %w", ErrSubscription, err))
			return
		}
		logger.Warn("chat subscription interrupted, retrying",
			zap.Error(err),
			zap.Int("attempt", state.failures),
		)

		wait := time.NewTimer(s.opts.RetryBackoff * time.Duration(state.failures))
		select {
		case <-ctx.Done():
			wait.Stop()
			return
		case <-wait.C:
		}
	}
}

// follow escucha el feed de cambios hasta que se cierra o falla una consulta.
// El listener se abre antes de la carga inicial para no perder cambios.
func (s *Synchronizer) follow(ctx context.Context, sub *Subscription, state *feedState) error {
	listener, err := s.notifier.Subscribe(ctx, sub.conversationID)
	if err != nil {
		return err
	}
	defer listener.Close()

	if err := s.refresh(ctx, sub, state, true); err != nil {
		return err
	}

	var resync <-chan time.Time
	if s.opts.ResyncInterval > 0 {
		ticker := time.NewTicker(s.opts.ResyncInterval)
		defer ticker.Stop()
		resync = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-listener.Changes():
			if !ok {
				return errListenerClosed
			}
			if err := s.refresh(ctx, sub, state, false); err != nil {
				return err
			}
		case <-resync:
			if err := s.refresh(ctx, sub, state, false); err != nil {
				return err
			}
		}
	}
}

// refresh relee la conversación y entrega si cambió. fresh fuerza la entrega.
func (s *Synchronizer) refresh(ctx context.Context, sub *Subscription, state *feedState, fresh bool) error {
	messages, err := s.messages.ListByConversation(ctx, sub.conversationID)
	if err != nil {
		return err
	}
	state.failures = 0

	ids := make([]string, len(messages))
	for i, msg := range messages {
		ids[i] = msg.ID
	}
	if !fresh && sameIDs(state.lastIDs, ids) {
		return nil
	}

	// Un snapshot fresco reemplaza la vista: todo lo que trae cuenta como nuevo.
	if fresh {
		state.known = make(map[string]struct{}, len(messages))
	}
	added := []domain.ChatMessage{}
	for _, msg := range messages {
		if _, ok := state.known[msg.ID]; ok {
			continue
		}
		state.known[msg.ID] = struct{}{}
		added = append(added, msg)
	}
	state.lastIDs = ids

	sub.deliver(Snapshot{
		ConversationID: sub.conversationID,
		Messages:       messages,
		Added:          added,
		Fresh:          fresh,
	})
	return nil
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
