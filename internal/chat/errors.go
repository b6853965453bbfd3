package chat

import "errors"

var (
	// ErrAuthRequired: no hay sesión válida; la operación no se intenta.
	ErrAuthRequired = errors.New("chat: authentication required")
	// ErrForbiddenConversation: la sesión no puede operar sobre esa conversación.
	ErrForbiddenConversation = errors.New("chat: conversation not allowed")
	// ErrEmptyInput: texto vacío tras trim. El caller lo trata como no-op.
	ErrEmptyInput = errors.New("chat: empty input")
	// ErrInvalidAttachment: el adjunto no es una imagen o excede el tamaño.
	ErrInvalidAttachment = errors.New("chat: invalid attachment")
	// ErrUploadFailed: falló la subida del blob; no se creó ningún mensaje.
	ErrUploadFailed = errors.New("chat: upload failed")
	// ErrWriteFailed: falló el append del mensaje; no hubo escritura parcial.
	ErrWriteFailed = errors.New("chat: write failed")
	// ErrSubscription: la suscripción se abandonó tras fallos repetidos.
	ErrSubscription = errors.New("chat: subscription failed")
)
