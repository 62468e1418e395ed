package model

import (
	"time"

	"github.com/google/uuid"
)

// Product represents a canonical catalog row as stored in Postgres.
//
// ItemCode is the business key supplied by upstream spreadsheets. It is unique
// among non-empty values and is the reconciliation join key; legacy rows may
// carry an empty code. Numeric fields are pointers so a cleared spreadsheet
// cell (stored as NULL) stays distinguishable from an explicit zero.
type Product struct {
	ID           uuid.UUID
	ItemCode     string
	Description  string
	BaseUnit     string
	GroupID      string
	GroupName    string
	SubGroup     string
	SupplierName string
	LastCP       *float64
	TaxableCP    *float64
	SP           *float64
	Stock        *float64
	LastPurcMiti string
	LastPurcQty  *float64
	SalesQty     *float64
	ItemNumber   string
	MarginPct    *float64
	MRP          *float64

	// ImageURL and ImageURLs are mutated only through the image reference
	// operations. Bulk reconciliation reads them back and re-applies them so a
	// spreadsheet upload can never null them out.
	ImageURL  *string
	ImageURLs []string

	UpdatedAt time.Time
	CreatedAt time.Time
}

// InitMeta initializes the product metadata including ID and timestamps.
func (p *Product) InitMeta() {
	p.ID = uuid.New()
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
}

// ImageRefs is the protected-field slice of a product row, read back before
// every reconciliation update batch.
type ImageRefs struct {
	ImageURL  *string
	ImageURLs []string
}
