package service

import (
	"context"

	"medistock/internal/models"
)

// Catalog is the stock catalog collaborator. The surrounding storage
// choice is interchangeable behind it; the Postgres store is the
// production implementation.
type Catalog interface {
	ListMedicines(ctx context.Context) ([]models.Medicine, error)
	GetMedicineByID(ctx context.Context, id string) (*models.Medicine, error)
	UpsertMedicine(ctx context.Context, m *models.Medicine) (*models.Medicine, error)
	DeleteMedicine(ctx context.Context, id string) error
}

// Ledger is the append-only sales record collaborator.
type Ledger interface {
	GetSaleByID(ctx context.Context, id string) (*models.Sale, error)
	GetSaleByIdempotencyKey(ctx context.Context, key string) (*models.Sale, error)
	ListSales(ctx context.Context) ([]models.Sale, error)
}

// CheckoutStore is what a checkout commit needs: live catalog reads,
// ledger lookups, and the atomic commit that applies every stock
// decrement together with the sale append, all-or-nothing.
type CheckoutStore interface {
	Catalog
	Ledger
	CommitSale(ctx context.Context, sale *models.Sale) (*models.Sale, error)
}
