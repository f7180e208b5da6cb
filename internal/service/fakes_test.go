package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"medistock/internal/models"

	"github.com/google/uuid"
)

// fakeStore is an in-memory CheckoutStore. CommitSale mimics the
// production contract: per-line conditional decrements with a
// compensating rollback, so a failed commit leaves no trace.
type fakeStore struct {
	mu        sync.Mutex
	medicines  map[string]*models.Medicine
	sales      map[string]*models.Sale
	salesByKey map[string]string

	// calls counts every store invocation; the empty-cart path must
	// never touch the store.
	calls int

	// beforeCommit, when set, runs at the top of CommitSale with the
	// lock held. Tests use it to shrink stock between validation and
	// commit.
	beforeCommit func(medicines map[string]*models.Medicine)
}

func newFakeStore(medicines ...*models.Medicine) *fakeStore {
	fs := &fakeStore{
		medicines:  make(map[string]*models.Medicine),
		sales:      make(map[string]*models.Sale),
		salesByKey: make(map[string]string),
	}
	for _, m := range medicines {
		cp := *m
		fs.medicines[m.ID] = &cp
	}
	return fs
}

func (fs *fakeStore) stockOf(id string) int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if m, ok := fs.medicines[id]; ok {
		return m.Quantity
	}
	return 0
}

func (fs *fakeStore) saleCount() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.sales)
}

func (fs *fakeStore) ListMedicines(ctx context.Context) ([]models.Medicine, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.calls++

	out := make([]models.Medicine, 0, len(fs.medicines))
	for _, m := range fs.medicines {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (fs *fakeStore) GetMedicineByID(ctx context.Context, id string) (*models.Medicine, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.calls++

	m, ok := fs.medicines[id]
	if !ok {
		return nil, fmt.Errorf("medicine %s: %w", id, models.ErrNotFound)
	}
	cp := *m
	return &cp, nil
}

func (fs *fakeStore) UpsertMedicine(ctx context.Context, m *models.Medicine) (*models.Medicine, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.calls++

	if m.ID == "" {
		m.ID = uuid.New().String()
		m.CreatedAt = time.Now()
	} else if _, ok := fs.medicines[m.ID]; !ok {
		return nil, fmt.Errorf("medicine %s: %w", m.ID, models.ErrNotFound)
	}
	cp := *m
	fs.medicines[m.ID] = &cp
	return m, nil
}

func (fs *fakeStore) DeleteMedicine(ctx context.Context, id string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.calls++

	if _, ok := fs.medicines[id]; !ok {
		return fmt.Errorf("medicine %s: %w", id, models.ErrNotFound)
	}
	delete(fs.medicines, id)
	return nil
}

func (fs *fakeStore) CommitSale(ctx context.Context, sale *models.Sale) (*models.Sale, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.calls++

	if fs.beforeCommit != nil {
		fs.beforeCommit(fs.medicines)
	}

	var applied []models.SaleLine
	rollback := func() {
		for _, line := range applied {
			fs.medicines[line.MedicineID].Quantity += line.Quantity
		}
	}

	for _, line := range sale.Lines {
		m, ok := fs.medicines[line.MedicineID]
		if !ok || m.Quantity < line.Quantity {
			rollback()
			return nil, fmt.Errorf("medicine %s: %w", line.MedicineID, models.ErrInsufficientStock)
		}
		m.Quantity -= line.Quantity
		applied = append(applied, line)
	}

	if sale.ID == "" {
		sale.ID = uuid.New().String()
	}
	sale.CreatedAt = time.Now()

	stored := *sale
	stored.Lines = make([]models.SaleLine, len(sale.Lines))
	copy(stored.Lines, sale.Lines)
	fs.sales[sale.ID] = &stored
	if sale.IdempotencyKey != "" {
		fs.salesByKey[sale.IdempotencyKey] = sale.ID
	}
	return sale, nil
}

func (fs *fakeStore) GetSaleByID(ctx context.Context, id string) (*models.Sale, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.calls++

	s, ok := fs.sales[id]
	if !ok {
		return nil, fmt.Errorf("sale %s: %w", id, models.ErrNotFound)
	}
	cp := *s
	cp.Lines = make([]models.SaleLine, len(s.Lines))
	copy(cp.Lines, s.Lines)
	return &cp, nil
}

func (fs *fakeStore) GetSaleByIdempotencyKey(ctx context.Context, key string) (*models.Sale, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.calls++

	id, ok := fs.salesByKey[key]
	if !ok {
		return nil, nil
	}
	s := fs.sales[id]
	cp := *s
	cp.Lines = make([]models.SaleLine, len(s.Lines))
	copy(cp.Lines, s.Lines)
	return &cp, nil
}

func (fs *fakeStore) ListSales(ctx context.Context) ([]models.Sale, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.calls++

	out := make([]models.Sale, 0, len(fs.sales))
	for _, s := range fs.sales {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
