package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"medistock/internal/models"

	"github.com/google/uuid"
)

// idempotency_key is nullable so keyless sales do not collide on the
// unique constraint
const saleColumns = `SELECT id, seller_name, total_amount,
	COALESCE(idempotency_key, '') AS idempotency_key, created_at FROM sales`

// CommitSale applies a checkout as one transaction: every line's
// conditional stock decrement plus the sale and its line snapshots.
// If any decrement cannot be satisfied the whole transaction rolls
// back and ErrInsufficientStock is returned; no partial state is ever
// visible outside this call.
func (s *Store) CommitSale(ctx context.Context, sale *models.Sale) (*models.Sale, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, line := range sale.Lines {
		res, err := tx.ExecContext(ctx,
			"UPDATE medicines SET quantity = quantity - $1 WHERE id = $2 AND quantity >= $1",
			line.Quantity, line.MedicineID)
		if err != nil {
			return nil, fmt.Errorf("failed to decrement stock: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, fmt.Errorf("medicine %s: %w", line.MedicineID, models.ErrInsufficientStock)
		}
	}

	if sale.ID == "" {
		sale.ID = uuid.New().String()
	}

	err = tx.GetContext(ctx, &sale.CreatedAt, `
		INSERT INTO sales (id, seller_name, total_amount, idempotency_key)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		RETURNING created_at`,
		sale.ID, sale.SellerName, sale.TotalAmount, sale.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("failed to insert sale: %w", err)
	}

	for i := range sale.Lines {
		line := &sale.Lines[i]
		line.SaleID = sale.ID
		err = tx.GetContext(ctx, &line.ID, `
			INSERT INTO sale_lines (sale_id, medicine_id, name, quantity, unit_price, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			line.SaleID, line.MedicineID, line.Name, line.Quantity, line.UnitPrice, line.Subtotal)
		if err != nil {
			return nil, fmt.Errorf("failed to insert sale line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit sale: %w", err)
	}
	return sale, nil
}

// GetSaleByID retrieves a sale with its lines
func (s *Store) GetSaleByID(ctx context.Context, id string) (*models.Sale, error) {
	var sale models.Sale
	err := s.db.GetContext(ctx, &sale, saleColumns+" WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sale %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := s.attachLines(ctx, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

// GetSaleByIdempotencyKey retrieves the sale committed under a key,
// or nil when the key has not been used
func (s *Store) GetSaleByIdempotencyKey(ctx context.Context, key string) (*models.Sale, error) {
	var sale models.Sale
	err := s.db.GetContext(ctx, &sale, saleColumns+" WHERE idempotency_key = $1", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.attachLines(ctx, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

// ListSales retrieves all sales with lines, newest first
func (s *Store) ListSales(ctx context.Context) ([]models.Sale, error) {
	var sales []models.Sale
	err := s.db.SelectContext(ctx, &sales, saleColumns+" ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	for i := range sales {
		if err := s.attachLines(ctx, &sales[i]); err != nil {
			return nil, err
		}
	}
	return sales, nil
}

func (s *Store) attachLines(ctx context.Context, sale *models.Sale) error {
	return s.db.SelectContext(ctx, &sale.Lines,
		"SELECT * FROM sale_lines WHERE sale_id = $1 ORDER BY id", sale.ID)
}
