// Package blobstore provides key-based blob storage for retrieved document
// content: an S3-backed implementation for production and an in-memory one
// for tests and local development.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned by Get when no blob exists under the key.
var ErrNotFound = errors.New("blob not found")

// Blob is stored content plus the metadata that must survive a round trip.
type Blob struct {
	Data        []byte
	ContentType string
}

// Store is the blob storage contract used by the retrieval path.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) (*Blob, error)
	Exists(ctx context.Context, key string) (bool, error)
	Presign(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// DocumentKey builds the canonical storage key for a retrieved document:
// tenant, patient, then document id, with an extension derived from the
// content type.
func DocumentKey(cxID, patientID, docUniqueID, contentType string) string {
	key := fmt.Sprintf("%s/%s/%s", cxID, patientID, docUniqueID)
	if ext := extensionFor(contentType); ext != "" {
		key += ext
	}
	return key
}

func extensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	switch mediaType {
	case "text/xml", "application/xml":
		return ".xml"
	case "application/pdf":
		return ".pdf"
	case "text/plain":
		return ".txt"
	case "text/html":
		return ".html"
	case "image/tiff":
		return ".tiff"
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

// MemoryStore is the in-memory Store used by tests and local development.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]Blob
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: map[string]Blob{}}
}

func (m *MemoryStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.blobs[key] = Blob{Data: cp, ContentType: contentType}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) (*Blob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return &Blob{Data: b.Data, ContentType: b.ContentType}, nil
}

func (m *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blobs[key]
	return ok, nil
}

// Presign returns a synthetic URL; memory-store references are only
// meaningful inside the same process.
func (m *MemoryStore) Presign(_ context.Context, key string, ttl time.Duration) (string, error) {
	return "memory://" + strings.TrimPrefix(key, "/") + "?ttl=" + ttl.String(), nil
}
