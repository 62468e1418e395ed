package repository

import (
	"errors"
	"log/slog"
)

const (
	IDField        QueryField = "id"
	ItemCodeField  QueryField = "item_code"
	GroupNameField QueryField = "group_name"
	SupplierField  QueryField = "supplier_name"
	CreatedAtField QueryField = "created_at"
)

// Query describes an admin listing request: optional field filters plus
// cursor pagination.
type Query struct {
	Values map[QueryField]string

	Limit int

	Paginator *Paginator
}

type QueryField string

func NewQuery() *Query {
	return &Query{
		Values: map[QueryField]string{},
	}
}

func (q *Query) With(field QueryField, val string) *Query {
	q.Values[field] = val
	return q
}

func (q *Query) ApplyPagination(limit int32, token string) error {
	queryLimit := DefaultPaginationLimit
	if limit > 0 {
		queryLimit = min(maxPaginationLimit, int(limit))
	}
	q.Limit = queryLimit

	if token == "" {
		return nil
	}

	paginator, err := DecodePageToken(token)
	if err != nil {
		slog.Error("failed to decode page token", slog.Any("err", err), slog.String("token", token))
		return errors.New("invalid page token")
	}
	q.Paginator = paginator
	return nil
}
