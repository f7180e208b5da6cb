package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"medistock/internal/invoice"
	"medistock/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcessedLog struct {
	seen map[string]string
}

func newFakeProcessedLog() *fakeProcessedLog {
	return &fakeProcessedLog{seen: make(map[string]string)}
}

func (f *fakeProcessedLog) IsEventProcessed(_ context.Context, eventID string) (bool, error) {
	_, ok := f.seen[eventID]
	return ok, nil
}

func (f *fakeProcessedLog) MarkEventProcessed(_ context.Context, eventID, eventType string) error {
	f.seen[eventID] = eventType
	return nil
}

func saleCompletedEvent() *models.SaleCompletedEvent {
	return &models.SaleCompletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-1",
			EventType: models.EventTypeSaleCompleted,
			Timestamp: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
		},
		SaleID:      "ab12cd34-0000-0000-0000-000000000000",
		SellerName:  "alice",
		TotalAmount: decimal.RequireFromString("15.00"),
		Lines: []models.SaleLineData{
			{
				MedicineID: "med-1",
				Name:       "Paracetamol",
				Quantity:   3,
				UnitPrice:  decimal.RequireFromString("5.00"),
				Subtotal:   decimal.RequireFromString("15.00"),
			},
		},
	}
}

func TestInvoiceWorkerWritesReceipt(t *testing.T) {
	dir := t.TempDir()
	processed := newFakeProcessedLog()
	w := NewInvoiceWorker(nil, processed, invoice.Presentation{
		ClinicName:   "Sunrise Clinic",
		CurrencyUnit: "USD",
	}, dir)

	event := saleCompletedEvent()
	require.NoError(t, w.handleSaleCompleted(context.Background(), event))

	path := filepath.Join(dir, "invoice_ab12cd34.txt")
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Invoice ID: AB12CD34")
	assert.Contains(t, string(content), "Served by:  alice")

	done, err := processed.IsEventProcessed(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestInvoiceWorkerSkipsProcessedEvent(t *testing.T) {
	dir := t.TempDir()
	processed := newFakeProcessedLog()
	require.NoError(t, processed.MarkEventProcessed(context.Background(), "evt-1", models.EventTypeSaleCompleted))

	w := NewInvoiceWorker(nil, processed, invoice.Presentation{
		ClinicName:   "Sunrise Clinic",
		CurrencyUnit: "USD",
	}, dir)

	require.NoError(t, w.handleSaleCompleted(context.Background(), saleCompletedEvent()))

	// A redelivered event writes nothing.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestInvoiceWorkerDoesNotOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "invoice_ab12cd34.txt")
	require.NoError(t, os.WriteFile(path, []byte("original"), 0o644))

	processed := newFakeProcessedLog()
	w := NewInvoiceWorker(nil, processed, invoice.Presentation{
		ClinicName:   "Sunrise Clinic",
		CurrencyUnit: "USD",
	}, dir)

	require.NoError(t, w.handleSaleCompleted(context.Background(), saleCompletedEvent()))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "original", string(content))
}

func TestStockAlertWorkerMarksEvent(t *testing.T) {
	processed := newFakeProcessedLog()
	w := NewStockAlertWorker(nil, processed)

	event := &models.StockLowEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-low-1",
			EventType: models.EventTypeStockLow,
			Timestamp: time.Now(),
		},
		MedicineID:    "med-1",
		Name:          "Insulin",
		Quantity:      2,
		MinStockLevel: 5,
	}
	require.NoError(t, w.handleStockLow(context.Background(), event))

	done, err := processed.IsEventProcessed(context.Background(), "evt-low-1")
	require.NoError(t, err)
	assert.True(t, done)
}
