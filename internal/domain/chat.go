package domain

import "time"

const (
	SenderRoleClient    = "client"
	SenderRoleCounselor = "counselor"

	MessageKindText  = "text"
	MessageKindImage = "image"
)

// ImagePlaceholderBody es el texto que acompaña a una imagen sin caption.
const ImagePlaceholderBody = "Sent an image"

// ChatMessage es inmutable una vez creado; el backend asigna ID y CreatedAt.
type ChatMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	SenderName     string    `json:"senderName"`
	SenderRole     string    `json:"senderRole"`
	Kind           string    `json:"kind"`
	Body           string    `json:"body"`
	AttachmentURL  string    `json:"attachmentUrl,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// HasCaption indica si el body de una imagen es texto real y no el placeholder.
func (m ChatMessage) HasCaption() bool {
	if m.Kind != MessageKindImage {
		return m.Body != ""
	}
	return m.Body != "" && m.Body != ImagePlaceholderBody
}
