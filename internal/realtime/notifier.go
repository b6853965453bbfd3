package realtime

import (
	"context"
	"errors"
)

// Notifier avisa a los suscriptores de una conversación que su resultado cambió.
// El aviso no lleva datos: quien escucha vuelve a leer el snapshot completo.
type Notifier interface {
	Publish(ctx context.Context, conversationID string) error
	Subscribe(ctx context.Context, conversationID string) (Listener, error)
}

// Listener entrega una señal por cambio (ráfagas coalescidas). Changes se cierra
// cuando el listener se cierra o se pierde la conexión subyacente.
type Listener interface {
	Changes() <-chan struct{}
	Close() error
}

var ErrEmptyConversation = errors.New("conversation id required")

// signal hace un envío no bloqueante: si ya hay un aviso pendiente, basta con ese.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
