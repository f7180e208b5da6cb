package worker

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"medistock/internal/broker"
	"medistock/internal/invoice"
	"medistock/internal/models"
	"medistock/internal/util"

	"go.uber.org/zap"
)

// ProcessedLog checks and records consumed events so redelivered
// messages are handled once
type ProcessedLog interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// InvoiceWorker consumes SaleCompleted events and writes the receipt
// artifact for each sale, named deterministically from the sale id.
type InvoiceWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	processed    ProcessedLog
	presentation invoice.Presentation
	outputDir    string
	logger       *zap.Logger
}

// NewInvoiceWorker creates a new invoice worker
func NewInvoiceWorker(consumer *broker.Consumer, processed ProcessedLog, presentation invoice.Presentation, outputDir string) *InvoiceWorker {
	w := &InvoiceWorker{
		consumer:     consumer,
		processed:    processed,
		presentation: presentation,
		outputDir:    outputDir,
		logger:       util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnSaleCompleted(w.handleSaleCompleted)
	w.eventHandler = eventHandler
	return w
}

// Start starts the worker
func (w *InvoiceWorker) Start(ctx context.Context) error {
	log.Println("Starting invoice worker...")
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return err
	}
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *InvoiceWorker) Stop() error {
	log.Println("Stopping invoice worker...")
	return w.consumer.Close()
}

func (w *InvoiceWorker) handleSaleCompleted(ctx context.Context, event *models.SaleCompletedEvent) error {
	done, err := w.processed.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if done {
		w.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	sale := saleFromEvent(event)
	path := filepath.Join(w.outputDir, invoice.Filename(sale))

	if _, err := os.Stat(path); err == nil {
		w.logger.Info("Receipt already written", zap.String("path", path))
	} else {
		document := invoice.Render(sale, w.presentation)
		if err := os.WriteFile(path, document, 0o644); err != nil {
			return err
		}
		util.InvoicesWrittenTotal.Inc()
		w.logger.Info("Receipt written",
			zap.String("sale_id", event.SaleID),
			zap.String("path", path))
	}

	return w.processed.MarkEventProcessed(ctx, event.EventID, event.EventType)
}

// saleFromEvent rebuilds the sale snapshot carried in the event; the
// renderer needs no ledger access
func saleFromEvent(event *models.SaleCompletedEvent) *models.Sale {
	lines := make([]models.SaleLine, 0, len(event.Lines))
	for _, l := range event.Lines {
		lines = append(lines, models.SaleLine{
			MedicineID: l.MedicineID,
			Name:       l.Name,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice,
			Subtotal:   l.Subtotal,
		})
	}
	return &models.Sale{
		ID:          event.SaleID,
		SellerName:  event.SellerName,
		TotalAmount: event.TotalAmount,
		CreatedAt:   event.Timestamp,
		Lines:       lines,
	}
}

// StockAlertWorker consumes StockLow events and logs reorder warnings
type StockAlertWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	processed    ProcessedLog
	logger       *zap.Logger
}

// NewStockAlertWorker creates a new stock alert worker
func NewStockAlertWorker(consumer *broker.Consumer, processed ProcessedLog) *StockAlertWorker {
	w := &StockAlertWorker{
		consumer:  consumer,
		processed: processed,
		logger:    util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnStockLow(w.handleStockLow)
	w.eventHandler = eventHandler
	return w
}

// Start starts the worker
func (w *StockAlertWorker) Start(ctx context.Context) error {
	log.Println("Starting stock alert worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *StockAlertWorker) Stop() error {
	log.Println("Stopping stock alert worker...")
	return w.consumer.Close()
}

func (w *StockAlertWorker) handleStockLow(ctx context.Context, event *models.StockLowEvent) error {
	done, err := w.processed.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if done {
		return nil
	}

	w.logger.Warn("Stock at or below reorder threshold",
		zap.String("medicine_id", event.MedicineID),
		zap.String("name", event.Name),
		zap.Int("quantity", event.Quantity),
		zap.Int("min_stock_level", event.MinStockLevel))

	return w.processed.MarkEventProcessed(ctx, event.EventID, event.EventType)
}
