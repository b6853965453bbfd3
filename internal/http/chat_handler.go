package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"diet-coach/internal/chat"
	"diet-coach/internal/domain"
)

const defaultSessionRecheck = 15 * time.Second

// SessionChecker confirma que una sesión sigue viva mientras dura un stream.
type SessionChecker interface {
	SessionActive(sessionID string) (bool, error)
}

// ChatHandler expone el Synchronizer por JSON y SSE.
type ChatHandler struct {
	logger       *zap.Logger
	chat         *chat.Synchronizer
	sessions     SessionChecker
	sessionCheck time.Duration
	loc          *time.Location
	maxUpload    int64
	now          func() time.Time
}

func NewChatHandler(logger *zap.Logger, synchronizer *chat.Synchronizer, sessions SessionChecker, loc *time.Location, maxUpload int64) *ChatHandler {
	return &ChatHandler{
		logger:       logger,
		chat:         synchronizer,
		sessions:     sessions,
		sessionCheck: defaultSessionRecheck,
		loc:          loc,
		maxUpload:    maxUpload,
		now:          time.Now,
	}
}

type snapshotResponse struct {
	ConversationID string               `json:"conversationId"`
	Groups         []chat.DayGroup      `json:"groups"`
	Added          []domain.ChatMessage `json:"added"`
	Fresh          bool                 `json:"fresh"`
}

func (h *ChatHandler) render(c *gin.Context, snap chat.Snapshot) snapshotResponse {
	now := h.now().In(requestLocation(c, h.loc))
	added := snap.Added
	if added == nil {
		added = []domain.ChatMessage{}
	}
	return snapshotResponse{
		ConversationID: snap.ConversationID,
		Groups:         snap.Groups(now),
		Added:          added,
		Fresh:          snap.Fresh,
	}
}

// ListMessages maneja GET /chat/messages?conversation_id=&tz=.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	session, _ := GetSession(c)
	snap, err := h.chat.Load(c.Request.Context(), session, c.Query("conversation_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.render(c, snap))
}

// Stream maneja GET /chat/stream: un evento "snapshot" por cada cambio de la
// conversación hasta que el cliente se desconecta.
func (h *ChatHandler) Stream(c *gin.Context) {
	session, _ := GetSession(c)
	sub, err := h.chat.Subscribe(c.Request.Context(), session, c.Query("conversation_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer sub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	// El logout no cancela streams abiertos: la sesión se revalida periódicamente
	// y antes de cada entrega.
	var recheck <-chan time.Time
	if h.sessionCheck > 0 {
		ticker := time.NewTicker(h.sessionCheck)
		defer ticker.Stop()
		recheck = ticker.C
	}

	c.Stream(func(_ io.Writer) bool {
		select {
		case snap, ok := <-sub.Snapshots():
			if !ok {
				if err := sub.Err(); err != nil {
					h.logger.Warn("chat stream closed", zap.Error(err), zap.String("conversation_id", sub.ConversationID()))
					c.SSEvent("error", gin.H{"error": "subscription lost"})
				}
				return false
			}
			if !h.sessionLive(session) {
				c.SSEvent("error", gin.H{"error": "session ended"})
				return false
			}
			c.SSEvent("snapshot", h.render(c, snap))
			return true
		case <-recheck:
			if !h.sessionLive(session) {
				c.SSEvent("error", gin.H{"error": "session ended"})
				return false
			}
			return true
		}
	})
}

// sessionLive falla abierto si el store no responde; el middleware ya exigió
// una sesión viva al abrir el stream.
func (h *ChatHandler) sessionLive(session *domain.Session) bool {
	if !session.Valid(h.now()) {
		return false
	}
	if h.sessions == nil {
		return true
	}
	ok, err := h.sessions.SessionActive(session.ID)
	if err != nil {
		h.logger.Warn("session check failed", zap.Error(err), zap.String("session_id", session.ID))
		return true
	}
	return ok
}

// PostMessage maneja POST /chat/messages.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	session, _ := GetSession(c)
	var req struct {
		ConversationID string `json:"conversation_id"`
		Text           string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid chat message request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	msg, err := h.chat.SendText(c.Request.Context(), session, req.ConversationID, req.Text)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// PostImage maneja POST /chat/images (multipart, campo "image").
func (h *ChatHandler) PostImage(c *gin.Context) {
	session, _ := GetSession(c)
	data, filename, err := readUpload(c, "image", h.maxUpload)
	if err != nil {
		h.logger.Warn("invalid chat image upload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file required"})
		return
	}

	msg, err := h.chat.SendImage(c.Request.Context(), session, c.PostForm("conversation_id"), data, filename)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

func (h *ChatHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrEmptyInput):
		c.Status(http.StatusNoContent)
	case errors.Is(err, chat.ErrAuthRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, chat.ErrForbiddenConversation):
		c.JSON(http.StatusForbidden, gin.H{"error": "conversation not allowed"})
	case errors.Is(err, chat.ErrInvalidAttachment):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrUploadFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not upload image"})
	case errors.Is(err, chat.ErrWriteFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not send message"})
	case errors.Is(err, chat.ErrSubscription):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "could not load conversation"})
	default:
		h.logger.Error("chat request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// readUpload lee un archivo multipart completo, cortando en limit+1 bytes para
// que el servicio detecte el exceso.
func readUpload(c *gin.Context, field string, limit int64) ([]byte, string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, "", err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	var r io.Reader = f
	if limit > 0 {
		r = io.LimitReader(f, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", err
	}
	return data, fh.Filename, nil
}
