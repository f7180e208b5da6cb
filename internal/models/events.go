package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeSaleCompleted = "SALE_COMPLETED"
	EventTypeStockLow      = "STOCK_LOW"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// SaleCompletedEvent is published after a checkout commits
type SaleCompletedEvent struct {
	BaseEvent
	SaleID      string          `json:"sale_id"`
	SellerName  string          `json:"seller_name"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Lines       []SaleLineData  `json:"lines"`
}

// StockLowEvent is published when an item falls to or below its
// reorder threshold
type StockLowEvent struct {
	BaseEvent
	MedicineID    string `json:"medicine_id"`
	Name          string `json:"name"`
	Quantity      int    `json:"quantity"`
	MinStockLevel int    `json:"min_stock_level"`
}

// SaleLineData represents line data carried in events
type SaleLineData struct {
	MedicineID string          `json:"medicine_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}
