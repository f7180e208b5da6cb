package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medistock/internal/broker"
	"medistock/internal/cart"
	"medistock/internal/models"
	"medistock/internal/redisclient"
	"medistock/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CheckoutCoordinator turns a cart into an immutable sale. It holds no
// lock of its own: the store's conditional decrement is the only
// authority that can reduce stock, and the coordinator relies on it
// rejecting over-decrements.
type CheckoutCoordinator struct {
	store          CheckoutStore
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	commitTimeout  time.Duration
	logger         *zap.Logger
}

// NewCheckoutCoordinator creates a new checkout coordinator. Redis and
// the event publisher are optional; post-commit mirroring and events
// are skipped when absent.
func NewCheckoutCoordinator(
	store CheckoutStore,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
	commitTimeout time.Duration,
) *CheckoutCoordinator {
	if commitTimeout <= 0 {
		commitTimeout = 10 * time.Second
	}
	return &CheckoutCoordinator{
		store:          store,
		redis:          redis,
		eventPublisher: eventPublisher,
		commitTimeout:  commitTimeout,
		logger:         util.GetLogger(),
	}
}

// lowStockCandidate remembers an item whose post-commit count will sit
// at or below its reorder threshold
type lowStockCandidate struct {
	medicineID    string
	name          string
	remaining     int
	minStockLevel int
}

// Checkout validates the cart against live stock, clamps what shrank,
// and commits the decrements and the sale as one transaction.
//
// The returned warning is non-fatal: it lists items that were clamped
// or dropped because stock changed since they were added. On any error
// the cart is untouched so the operator can retry.
func (cc *CheckoutCoordinator) Checkout(ctx context.Context, crt *cart.Cart, sellerName, idempotencyKey string) (*models.Sale, *models.StockChangedWarning, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutCoordinator.Checkout")
	defer span.End()

	lines := crt.Lines()
	if len(lines) == 0 {
		util.CheckoutsFailedTotal.WithLabelValues("empty_cart").Inc()
		return nil, nil, models.ErrEmptyCart
	}

	if idempotencyKey != "" {
		existing, err := cc.replayIdempotent(ctx, idempotencyKey)
		if err != nil {
			return nil, nil, err
		}
		if existing != nil {
			cc.logger.Info("Duplicate checkout request detected",
				zap.String("idempotency_key", idempotencyKey),
				zap.String("sale_id", existing.ID))
			return existing, nil, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, cc.commitTimeout)
	defer cancel()

	saleLines, lowStock, warning, err := cc.validateAgainstLiveStock(ctx, lines)
	if err != nil {
		return nil, nil, err
	}
	if len(saleLines) == 0 {
		util.CheckoutsFailedTotal.WithLabelValues("insufficient_stock").Inc()
		return nil, warning, models.ErrInsufficientStock
	}

	total := decimal.Zero
	for _, line := range saleLines {
		total = total.Add(line.Subtotal)
	}

	sale := &models.Sale{
		SellerName:     sellerName,
		TotalAmount:    total,
		IdempotencyKey: idempotencyKey,
		Lines:          saleLines,
	}

	start := time.Now()
	committed, err := cc.store.CommitSale(ctx, sale)
	util.CheckoutLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, models.ErrInsufficientStock) {
			// A concurrent sale consumed the stock between validation
			// and commit. Nothing was applied; retryable.
			util.CheckoutsFailedTotal.WithLabelValues("insufficient_stock").Inc()
			util.StockDecrementsFailedTotal.Inc()
			cc.logger.Warn("Checkout aborted, stock consumed concurrently", zap.Error(err))
			return nil, warning, err
		}
		util.CheckoutsFailedTotal.WithLabelValues("persistence").Inc()
		cc.logger.Error("Checkout commit failed", zap.Error(err))
		return nil, warning, fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}

	util.SalesCompletedTotal.Inc()
	cc.logger.Info("Sale committed",
		zap.String("sale_id", committed.ID),
		zap.String("seller", sellerName),
		zap.String("total", committed.TotalAmount.StringFixed(2)))

	cc.afterCommit(committed, lowStock, idempotencyKey)

	return committed, warning, nil
}

// replayIdempotent returns the sale already committed under the key,
// if any. Redis is probed first as a cheap check; the ledger decides.
func (cc *CheckoutCoordinator) replayIdempotent(ctx context.Context, key string) (*models.Sale, error) {
	if cc.redis != nil {
		if saleID, err := cc.redis.GetIdempotencyKey(ctx, key); err == nil && saleID != "" {
			if sale, err := cc.store.GetSaleByID(ctx, saleID); err == nil {
				return sale, nil
			}
		}
	}

	existing, err := cc.store.GetSaleByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}
	return existing, nil
}

// validateAgainstLiveStock re-fetches each line's medicine and clamps
// the requested quantity to what the catalog currently holds. Lines
// clamped to zero, or whose medicine is gone, are dropped; their names
// go into the warning.
func (cc *CheckoutCoordinator) validateAgainstLiveStock(ctx context.Context, lines []cart.Line) ([]models.SaleLine, []lowStockCandidate, *models.StockChangedWarning, error) {
	var saleLines []models.SaleLine
	var lowStock []lowStockCandidate
	var changed []string

	for _, line := range lines {
		med, err := cc.store.GetMedicineByID(ctx, line.MedicineID)
		if errors.Is(err, models.ErrNotFound) {
			changed = append(changed, line.Name)
			util.CartLinesClampedTotal.Inc()
			continue
		}
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%w: %v", models.ErrPersistence, err)
		}

		quantity := line.Quantity
		if med.Quantity < quantity {
			quantity = med.Quantity
			changed = append(changed, med.Name)
			util.CartLinesClampedTotal.Inc()
		}
		if quantity <= 0 {
			continue
		}

		// Snapshot name and price as read now, not the cart's copy.
		subtotal := med.Price.Mul(decimal.NewFromInt(int64(quantity)))
		saleLines = append(saleLines, models.SaleLine{
			MedicineID: med.ID,
			Name:       med.Name,
			Quantity:   quantity,
			UnitPrice:  med.Price,
			Subtotal:   subtotal,
		})

		if remaining := med.Quantity - quantity; remaining <= med.MinStockLevel {
			lowStock = append(lowStock, lowStockCandidate{
				medicineID:    med.ID,
				name:          med.Name,
				remaining:     remaining,
				minStockLevel: med.MinStockLevel,
			})
		}
	}

	var warning *models.StockChangedWarning
	if len(changed) > 0 {
		warning = &models.StockChangedWarning{Items: changed}
	}
	return saleLines, lowStock, warning, nil
}

// afterCommit runs the best-effort side effects: cache mirror,
// idempotency marker, domain events. Failures here are logged and
// never unwind the committed sale.
func (cc *CheckoutCoordinator) afterCommit(sale *models.Sale, lowStock []lowStockCandidate, idempotencyKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if cc.redis != nil {
		for _, line := range sale.Lines {
			if _, err := cc.redis.MirrorDecrement(ctx, line.MedicineID, line.Quantity); err != nil {
				cc.logger.Warn("Failed to mirror decrement",
					zap.String("medicine_id", line.MedicineID),
					zap.Error(err))
			}
		}
		if idempotencyKey != "" {
			if err := cc.redis.SetIdempotencyKey(ctx, idempotencyKey, sale.ID, 24*time.Hour); err != nil {
				cc.logger.Warn("Failed to store idempotency key", zap.Error(err))
			}
		}
	}

	if cc.eventPublisher == nil {
		return
	}

	lineData := make([]models.SaleLineData, 0, len(sale.Lines))
	for _, line := range sale.Lines {
		lineData = append(lineData, models.SaleLineData{
			MedicineID: line.MedicineID,
			Name:       line.Name,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			Subtotal:   line.Subtotal,
		})
	}

	event := &models.SaleCompletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeSaleCompleted,
			Timestamp: time.Now(),
		},
		SaleID:      sale.ID,
		SellerName:  sale.SellerName,
		TotalAmount: sale.TotalAmount,
		Lines:       lineData,
	}
	if err := cc.eventPublisher.PublishSaleCompleted(ctx, event); err != nil {
		cc.logger.Error("Failed to publish SaleCompleted event", zap.Error(err))
	}

	for _, candidate := range lowStock {
		lowEvent := &models.StockLowEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeStockLow,
				Timestamp: time.Now(),
			},
			MedicineID:    candidate.medicineID,
			Name:          candidate.name,
			Quantity:      candidate.remaining,
			MinStockLevel: candidate.minStockLevel,
		}
		if err := cc.eventPublisher.PublishStockLow(ctx, lowEvent); err != nil {
			cc.logger.Error("Failed to publish StockLow event", zap.Error(err))
			continue
		}
		util.StockLowEventsTotal.Inc()
	}
}

// GetSale retrieves a sale by ID
func (cc *CheckoutCoordinator) GetSale(ctx context.Context, saleID string) (*models.Sale, error) {
	return cc.store.GetSaleByID(ctx, saleID)
}

// ListSales retrieves all committed sales
func (cc *CheckoutCoordinator) ListSales(ctx context.Context) ([]models.Sale, error) {
	return cc.store.ListSales(ctx)
}
