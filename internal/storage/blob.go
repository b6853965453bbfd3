package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// BlobStore guarda bytes bajo una clave y devuelve una URL pública y durable.
// No ofrece borrado ni listado.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

var ErrInvalidKey = errors.New("invalid blob key")

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// BuildKey arma claves del estilo "chat/{owner}/{unixMillis}_{filename}".
// El timestamp evita colisiones entre subidas del mismo dueño.
func BuildKey(prefix, owner, filename string, at time.Time) string {
	return fmt.Sprintf("%s/%s/%d_%s", prefix, SanitizeFilename(owner), at.UnixMilli(), SanitizeFilename(filename))
}

// SanitizeFilename deja solo caracteres seguros para una ruta y una URL.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	return name
}

// CleanKey normaliza la clave y rechaza rutas absolutas o que escapan de la raíz.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
