// Package storage persists finished decks. Keys are slash-separated paths
// such as "runs/<id>/slide-001.html"; each backend maps them onto its own
// namespace.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

var ErrNotFound = errors.New("artifact not found")

// Store is an artifact backend.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	// List returns every key under prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
}

// CleanKey validates key and returns its canonical form.
func CleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return "", fmt.Errorf("invalid key %q", key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", fmt.Errorf("invalid key %q", key)
		}
	}
	clean := path.Clean(key)
	if clean == "." {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return clean, nil
}

// Backend names accepted by Settings.
const (
	BackendFS        = "fs"
	BackendS3        = "s3"
	BackendPathstore = "pathstore"
)

// Settings selects and configures a backend.
type Settings struct {
	Backend string
	Dir     string

	S3 S3Settings

	PathstoreURL    string
	PathstoreAPIKey string
}

// New builds the configured backend.
func New(ctx context.Context, s Settings) (Store, error) {
	switch s.Backend {
	case BackendFS, "":
		return NewFS(s.Dir)
	case BackendS3:
		return NewS3(ctx, s.S3)
	case BackendPathstore:
		return NewPathstore(s.PathstoreURL, s.PathstoreAPIKey), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", s.Backend)
	}
}
