package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// LocalStorage guarda blobs en el filesystem; el router HTTP los sirve bajo baseURL.
type LocalStorage struct {
	basePath string
	baseURL  string
	logger   *zap.Logger
}

func NewLocalStorage(basePath, baseURL string, logger *zap.Logger) (*LocalStorage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory %s: %w", basePath, err)
	}
	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger,
	}, nil
}

func (ls *LocalStorage) BasePath() string {
	return ls.basePath
}

func (ls *LocalStorage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cleaned, err := CleanKey(key)
	if err != nil {
		return "", err
	}

	dstPath := filepath.Join(ls.basePath, filepath.FromSlash(cleaned))
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return "", fmt.Errorf("create blob directory: %w", err)
	}

	// Escribimos a un temporal y renombramos para no exponer blobs a medio escribir.
	tmp, err := os.CreateTemp(filepath.Dir(dstPath), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp blob: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), dstPath); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("commit blob: %w", err)
	}

	url := ls.baseURL + "/" + cleaned
	ls.logger.Info("blob stored",
		zap.String("key", cleaned),
		zap.String("content_type", contentType),
		zap.Int("size", len(data)),
	)
	return url, nil
}
