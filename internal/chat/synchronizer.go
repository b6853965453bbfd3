package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"diet-coach/internal/domain"
	"diet-coach/internal/realtime"
	"diet-coach/internal/repository"
	"diet-coach/internal/storage"
)

const defaultMaxImageBytes = 10 << 20

// Options ajusta reintentos, resync y límites del Synchronizer.
type Options struct {
	// ResyncInterval relee el snapshot sin aviso previo; 0 lo desactiva.
	ResyncInterval time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	MaxImageBytes  int64
	Now            func() time.Time
}

func (o Options) withDefaults() Options {
	if o.MaxRetries <= 0 {
		o.MaxRetries = 5
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 500 * time.Millisecond
	}
	if o.MaxImageBytes <= 0 {
		o.MaxImageBytes = defaultMaxImageBytes
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Synchronizer mantiene la vista viva de una conversación y agrega mensajes.
// El backend es la única fuente de verdad: enviar no toca la vista local,
// el mensaje aparece cuando llega el siguiente snapshot.
type Synchronizer struct {
	logger   *zap.Logger
	messages repository.MessageRepository
	notifier realtime.Notifier
	blobs    storage.BlobStore
	opts     Options
}

func NewSynchronizer(
	logger *zap.Logger,
	messages repository.MessageRepository,
	notifier realtime.Notifier,
	blobs storage.BlobStore,
	opts Options,
) *Synchronizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synchronizer{
		logger:   logger,
		messages: messages,
		notifier: notifier,
		blobs:    blobs,
		opts:     opts.withDefaults(),
	}
}

// ResolveConversation decide sobre qué conversación opera la sesión. Un cliente
// tiene una sola conversación (su propio id); un counselor debe indicarla.
func ResolveConversation(session *domain.Session, requested string, now time.Time) (string, error) {
	if !session.Valid(now) {
		return "", ErrAuthRequired
	}
	requested = strings.TrimSpace(requested)
	if session.IsCounselor() {
		if requested == "" {
			return "", ErrForbiddenConversation
		}
		return requested, nil
	}
	if requested != "" && requested != session.UserID {
		return "", ErrForbiddenConversation
	}
	return session.UserID, nil
}

// Subscribe abre una suscripción de snapshots completos ordenados por createdAt.
// El caller debe llamar Close exactamente cuando deja de mostrar la conversación.
func (s *Synchronizer) Subscribe(ctx context.Context, session *domain.Session, conversationID string) (*Subscription, error) {
	conversationID, err := ResolveConversation(session, conversationID, s.opts.Now())
	if err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := newSubscription(conversationID, cancel)
	go s.run(subCtx, sub)
	return sub, nil
}

// Load lee una sola vez la conversación, sin quedar escuchando cambios.
func (s *Synchronizer) Load(ctx context.Context, session *domain.Session, conversationID string) (Snapshot, error) {
	conversationID, err := ResolveConversation(session, conversationID, s.opts.Now())
	if err != nil {
		return Snapshot{}, err
	}
	messages, err := s.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", ErrSubscription, err)
	}
	return Snapshot{
		ConversationID: conversationID,
		Messages:       messages,
		Added:          messages,
		Fresh:          true,
	}, nil
}

// SendText agrega un mensaje de texto. Texto vacío devuelve ErrEmptyInput sin escribir.
func (s *Synchronizer) SendText(ctx context.Context, session *domain.Session, conversationID, text string) (domain.ChatMessage, error) {
	conversationID, err := ResolveConversation(session, conversationID, s.opts.Now())
	if err != nil {
		return domain.ChatMessage{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ChatMessage{}, ErrEmptyInput
	}

	return s.append(ctx, newMessage(session, conversationID, domain.MessageKindText, text, ""))
}

// SendImage es una saga de dos pasos sin atomicidad: subir el blob y luego
// crear el mensaje que lo referencia. Si el segundo paso falla el blob queda
// huérfano (subido pero nunca visible en el chat); no se limpia.
func (s *Synchronizer) SendImage(ctx context.Context, session *domain.Session, conversationID string, data []byte, filename string) (domain.ChatMessage, error) {
	conversationID, err := ResolveConversation(session, conversationID, s.opts.Now())
	if err != nil {
		return domain.ChatMessage{}, err
	}
	contentType, err := s.checkImage(data)
	if err != nil {
		return domain.ChatMessage{}, err
	}

	key := storage.BuildKey("chat", session.UserID, filename, s.opts.Now())
	url, err := s.blobs.Put(ctx, key, data, contentType)
	if err != nil {
		s.logger.Warn("chat image upload failed",
			zap.Error(err),
			zap.String("conversation_id", conversationID),
			zap.String("key", key),
		)
		return domain.ChatMessage{}, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	msg, err := s.append(ctx, newMessage(session, conversationID, domain.MessageKindImage, domain.ImagePlaceholderBody, url))
	if err != nil {
		s.logger.Warn("chat image orphaned",
			zap.String("conversation_id", conversationID),
			zap.String("key", key),
			zap.String("url", url),
		)
		return domain.ChatMessage{}, err
	}
	return msg, nil
}

func (s *Synchronizer) checkImage(data []byte) (string, error) {
	contentType, err := storage.SniffImage(data, s.opts.MaxImageBytes)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidAttachment, err)
	}
	return contentType, nil
}

func newMessage(session *domain.Session, conversationID, kind, body, attachmentURL string) domain.ChatMessage {
	role := domain.SenderRoleClient
	if session.IsCounselor() {
		role = domain.SenderRoleCounselor
	}
	return domain.ChatMessage{
		ConversationID: conversationID,
		SenderID:       session.UserID,
		SenderName:     session.SenderName(),
		SenderRole:     role,
		Kind:           kind,
		Body:           body,
		AttachmentURL:  attachmentURL,
	}
}

func (s *Synchronizer) append(ctx context.Context, msg domain.ChatMessage) (domain.ChatMessage, error) {
	created, err := s.messages.Create(ctx, msg)
	if err != nil {
		s.logger.Error("chat append failed",
			zap.Error(err),
			zap.String("conversation_id", msg.ConversationID),
			zap.String("kind", msg.Kind),
		)
		return domain.ChatMessage{}, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	// El registro ya existe: si el aviso falla, los suscriptores lo verán en el
	// próximo cambio, resync o reconexión.
	if err := s.notifier.Publish(ctx, created.ConversationID); err != nil {
		s.logger.Warn("chat change notification failed",
			zap.Error(err),
			zap.String("conversation_id", created.ConversationID),
			zap.String("message_id", created.ID),
		)
	}
	return created, nil
}
