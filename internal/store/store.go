package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"medistock/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Store is the Postgres-backed stock catalog and sales ledger.
type Store struct {
	db *sqlx.DB
}

// NewStore connects to the database
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// ListMedicines retrieves the catalog, newest first
func (s *Store) ListMedicines(ctx context.Context) ([]models.Medicine, error) {
	var medicines []models.Medicine
	err := s.db.SelectContext(ctx, &medicines,
		"SELECT * FROM medicines ORDER BY created_at DESC")
	return medicines, err
}

// GetMedicineByID retrieves a medicine by ID
func (s *Store) GetMedicineByID(ctx context.Context, id string) (*models.Medicine, error) {
	var m models.Medicine
	err := s.db.GetContext(ctx, &m, "SELECT * FROM medicines WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("medicine %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// UpsertMedicine inserts a medicine when it carries no id yet, or
// updates the existing record otherwise. An unknown non-empty id is
// ErrNotFound, never a fresh insert.
func (s *Store) UpsertMedicine(ctx context.Context, m *models.Medicine) (*models.Medicine, error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
		query := `
			INSERT INTO medicines (id, name, description, batch_number, expiry_date, quantity, price, min_stock_level)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING created_at`

		err := s.db.GetContext(ctx, &m.CreatedAt, query,
			m.ID, m.Name, m.Description, m.BatchNumber, m.ExpiryDate,
			m.Quantity, m.Price, m.MinStockLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to insert medicine: %w", err)
		}
		return m, nil
	}

	query := `
		UPDATE medicines
		SET name = $2, description = $3, batch_number = $4, expiry_date = $5,
		    quantity = $6, price = $7, min_stock_level = $8
		WHERE id = $1
		RETURNING created_at`

	err := s.db.GetContext(ctx, &m.CreatedAt, query,
		m.ID, m.Name, m.Description, m.BatchNumber, m.ExpiryDate,
		m.Quantity, m.Price, m.MinStockLevel)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("medicine %s: %w", m.ID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update medicine: %w", err)
	}
	return m, nil
}

// DeleteMedicine removes a medicine from the catalog
func (s *Store) DeleteMedicine(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM medicines WHERE id = $1", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("medicine %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// DecrementStock conditionally reduces on-hand quantity. The read-check
// and the write are one statement, so concurrent decrements on the same
// row serialize and can never drive quantity below zero.
func (s *Store) DecrementStock(ctx context.Context, id string, quantity int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE medicines SET quantity = quantity - $1 WHERE id = $2 AND quantity >= $1",
		quantity, id)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("medicine %s: %w", id, models.ErrInsufficientStock)
	}
	return nil
}

// IncrementStock adds quantity back (restock or compensation)
func (s *Store) IncrementStock(ctx context.Context, id string, quantity int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE medicines SET quantity = quantity + $1 WHERE id = $2",
		quantity, id)
	if err != nil {
		return fmt.Errorf("failed to increment stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("medicine %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// IsEventProcessed checks if a broker event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks a broker event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
