// Package snapshot publishes immutable, versioned catalog documents to Redis
// and maintains a mutable pointer naming the current version. Documents are
// write-once; consumers resolve the pointer first, then fetch the document it
// names, so a half-written publish is never visible.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/centremart/catalog-service/internal/mapper"
	"github.com/redis/go-redis/v9"
)

const (
	// PointerKey holds the mutable pointer to the current snapshot.
	PointerKey = "catalog:snapshot:current"

	documentKeyPrefix = "catalog:snapshot:"
)

var (
	// ErrNoSnapshot is returned when no snapshot has been published yet.
	ErrNoSnapshot = errors.New("no snapshot published")
	// ErrVersionExists is returned when a document version is already written.
	// Published documents are immutable and never overwritten.
	ErrVersionExists = errors.New("snapshot version already exists")
)

// Document is a complete published catalog at one version.
type Document struct {
	Version   int64        `json:"version"`
	CreatedAt time.Time    `json:"createdAt"`
	Total     int          `json:"total"`
	Products  []mapper.Raw `json:"products"`
}

// PointerRef names a snapshot document by version and storage location.
type PointerRef struct {
	Version  int64  `json:"version"`
	Location string `json:"location"`
}

// Pointer is the mutable record naming the current snapshot. Previous keeps
// one step of history for rollback.
type Pointer struct {
	Version   int64       `json:"version"`
	Location  string      `json:"location"`
	Total     int         `json:"total"`
	CreatedAt time.Time   `json:"createdAt"`
	Previous  *PointerRef `json:"previous,omitempty"`
}

// Store reads and writes snapshot documents and the current pointer.
type Store struct {
	client redis.UniversalClient
}

// NewStore creates a snapshot store over a Redis client.
func NewStore(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

// DocumentKey returns the storage key for a snapshot version.
func DocumentKey(version int64) string {
	return fmt.Sprintf("%s%d", documentKeyPrefix, version)
}

// WriteDocument persists a snapshot document under its version-qualified key.
// An existing document at that version is left untouched and ErrVersionExists
// is returned.
func (s *Store) WriteDocument(ctx context.Context, doc *Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot document: %w", err)
	}

	set, err := s.client.SetNX(ctx, DocumentKey(doc.Version), payload, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to write snapshot document: %w", err)
	}
	if !set {
		return ErrVersionExists
	}
	return nil
}

// ReadDocument fetches the snapshot document for a version.
func (s *Store) ReadDocument(ctx context.Context, version int64) (*Document, error) {
	payload, err := s.client.Get(ctx, DocumentKey(version)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot document: %w", err)
	}
	return &doc, nil
}

// Pointer fetches the current snapshot pointer.
func (s *Store) Pointer(ctx context.Context) (*Pointer, error) {
	payload, err := s.client.Get(ctx, PointerKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot pointer: %w", err)
	}

	var ptr Pointer
	if err := json.Unmarshal(payload, &ptr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot pointer: %w", err)
	}
	return &ptr, nil
}

// SetPointer replaces the current snapshot pointer. Callers must have written
// the document the pointer names before calling this.
func (s *Store) SetPointer(ctx context.Context, ptr *Pointer) error {
	payload, err := json.Marshal(ptr)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot pointer: %w", err)
	}
	if err := s.client.Set(ctx, PointerKey, payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to write snapshot pointer: %w", err)
	}
	return nil
}

// CurrentDocument resolves the pointer and fetches the document it names.
func (s *Store) CurrentDocument(ctx context.Context) (*Document, error) {
	ptr, err := s.Pointer(ctx)
	if err != nil {
		return nil, err
	}
	return s.ReadDocument(ctx, ptr.Version)
}
