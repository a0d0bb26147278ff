package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// LocalStorage guarda los documentos en el sistema de archivos local
type LocalStorage struct {
	basePath      string
	publicBaseURL string
	logger        *logrus.Logger
}

// NewLocalStorage crea el almacenamiento local; publicBaseURL puede estar vacío
func NewLocalStorage(basePath, publicBaseURL string, logger *logrus.Logger) *LocalStorage {
	return &LocalStorage{
		basePath:      basePath,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger,
	}
}

// Save escribe el archivo y retorna la URL pública o una ruta file:// absoluta
func (s *LocalStorage) Save(_ context.Context, key string, data []byte, _ string) (string, error) {
	path := filepath.Join(s.basePath, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("error creating storage directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("error writing %s: %w", key, err)
	}

	s.logger.WithFields(logrus.Fields{
		"path": path,
		"size": len(data),
	}).Debug("Document stored locally")

	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key, nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("error resolving storage path: %w", err)
	}
	return "file://" + filepath.ToSlash(abs), nil
}
