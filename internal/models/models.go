package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Medicine is a sellable catalog item. Quantity is the authoritative
// on-hand count; only the catalog's conditional decrement may reduce it.
type Medicine struct {
	ID            string          `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	Description   string          `db:"description" json:"description"`
	BatchNumber   string          `db:"batch_number" json:"batch_number"`
	ExpiryDate    time.Time       `db:"expiry_date" json:"expiry_date"`
	Quantity      int             `db:"quantity" json:"quantity"`
	Price         decimal.Decimal `db:"price" json:"price"`
	MinStockLevel int             `db:"min_stock_level" json:"min_stock_level"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// LowOnStock reports whether the on-hand count is at or below the
// advisory reorder threshold.
func (m *Medicine) LowOnStock() bool {
	return m.Quantity <= m.MinStockLevel
}

// Sale is an immutable ledger record of one completed checkout.
// Line values are snapshots; later catalog edits never change them.
type Sale struct {
	ID             string          `db:"id" json:"id"`
	SellerName     string          `db:"seller_name" json:"seller_name"`
	TotalAmount    decimal.Decimal `db:"total_amount" json:"total_amount"`
	IdempotencyKey string          `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	Lines          []SaleLine      `db:"-" json:"lines"`
}

// SaleLine is one sold item within a sale. Name and UnitPrice are
// copied from the medicine at commit time, not referenced.
type SaleLine struct {
	ID         int64           `db:"id" json:"id"`
	SaleID     string          `db:"sale_id" json:"sale_id"`
	MedicineID string          `db:"medicine_id" json:"medicine_id"`
	Name       string          `db:"name" json:"name"`
	Quantity   int             `db:"quantity" json:"quantity"`
	UnitPrice  decimal.Decimal `db:"unit_price" json:"unit_price"`
	Subtotal   decimal.Decimal `db:"subtotal" json:"subtotal"`
}

// ProcessedEvent marks a consumed broker event for idempotent handling.
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
