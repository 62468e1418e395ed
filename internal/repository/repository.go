package repository

import (
	"context"
	"errors"

	"github.com/centremart/catalog-service/internal/model"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
)

// KeyRow pairs a product's internal id with its business key. The
// reconciliation engine pages these to build its item-code join map.
type KeyRow struct {
	ID       uuid.UUID
	ItemCode string
}

// ProductStore manages canonical product rows in the relational store.
//
// PageByID and KeyPage page strictly by ascending id with a fixed limit; a
// short or empty page terminates the caller's loop. WithinTransaction scopes
// the batch operations so a failed batch leaves no partial batch behind.
type ProductStore interface {
	Create(ctx context.Context, product *model.Product) (*model.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	List(ctx context.Context, query Query) ([]*model.Product, error)
	PageByID(ctx context.Context, after uuid.UUID, limit int) ([]*model.Product, error)
	KeyPage(ctx context.Context, after uuid.UUID, limit int) ([]KeyRow, error)
	BatchInsert(ctx context.Context, products []*model.Product) error
	BatchUpdate(ctx context.Context, products []*model.Product) error
	ProtectedFields(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.ImageRefs, error)
	AddImageReference(ctx context.Context, id uuid.UUID, url string) error
	RemoveImageReference(ctx context.Context, id uuid.UUID, url string) (bool, error)
	WithinTransaction(ctx context.Context, fn func(store ProductStore) error) error
}

// EventStore manages outbox event rows.
type EventStore interface {
	Create(ctx context.Context, event *model.Event) (*model.Event, error)
	ListPending(ctx context.Context, limit int) ([]*model.Event, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.EventStatus) error
}

// UniqueConstraintError represents a database unique constraint violation error.
type UniqueConstraintError struct {
	Detail string
}

// Error implements the error interface.
func (u *UniqueConstraintError) Error() string {
	return "resource must be unique: " + u.Detail
}
