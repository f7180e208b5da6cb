package service

import (
	"context"
	"time"

	"medistock/internal/broker"
	"medistock/internal/models"
	"medistock/internal/redisclient"
	"medistock/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatalogService handles inventory management on top of the catalog
// collaborator: validation, the stock mirror, and low-stock alerts.
type CatalogService struct {
	catalog        Catalog
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(catalog Catalog, redis *redisclient.Client, eventPublisher *broker.EventPublisher) *CatalogService {
	return &CatalogService{
		catalog:        catalog,
		redis:          redis,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// ListMedicines retrieves the catalog
func (cs *CatalogService) ListMedicines(ctx context.Context) ([]models.Medicine, error) {
	return cs.catalog.ListMedicines(ctx)
}

// GetMedicine retrieves one medicine
func (cs *CatalogService) GetMedicine(ctx context.Context, id string) (*models.Medicine, error) {
	return cs.catalog.GetMedicineByID(ctx, id)
}

// StockProbe returns the cheapest available on-hand count: the redis
// mirror when present, the catalog otherwise
func (cs *CatalogService) StockProbe(ctx context.Context, id string) (int, error) {
	if cs.redis != nil {
		if quantity, err := cs.redis.GetStock(ctx, id); err == nil {
			return quantity, nil
		}
	}
	med, err := cs.catalog.GetMedicineByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return med.Quantity, nil
}

// UpsertMedicine validates and writes a medicine. Create versus update
// is decided by whether the medicine already carries an issued id.
func (cs *CatalogService) UpsertMedicine(ctx context.Context, m *models.Medicine) (*models.Medicine, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.UpsertMedicine")
	defer span.End()

	if err := validateMedicine(m); err != nil {
		return nil, err
	}

	saved, err := cs.catalog.UpsertMedicine(ctx, m)
	if err != nil {
		return nil, err
	}

	cs.refreshMirror(ctx, saved)

	if saved.LowOnStock() {
		cs.publishStockLow(ctx, saved)
	}

	cs.logger.Info("Medicine upserted",
		zap.String("medicine_id", saved.ID),
		zap.String("name", saved.Name),
		zap.Int("quantity", saved.Quantity))
	return saved, nil
}

// DeleteMedicine removes a medicine and its mirrored stock
func (cs *CatalogService) DeleteMedicine(ctx context.Context, id string) error {
	if err := cs.catalog.DeleteMedicine(ctx, id); err != nil {
		return err
	}
	if cs.redis != nil {
		if err := cs.redis.DropStock(ctx, id); err != nil {
			cs.logger.Warn("Failed to drop mirrored stock",
				zap.String("medicine_id", id),
				zap.Error(err))
		}
	}
	return nil
}

// SyncStockMirror pushes every on-hand count into the redis mirror
func (cs *CatalogService) SyncStockMirror(ctx context.Context) error {
	if cs.redis == nil {
		return nil
	}

	medicines, err := cs.catalog.ListMedicines(ctx)
	if err != nil {
		return err
	}

	for i := range medicines {
		if err := cs.redis.SetStock(ctx, medicines[i].ID, medicines[i].Quantity); err != nil {
			cs.logger.Error("Failed to mirror stock",
				zap.String("medicine_id", medicines[i].ID),
				zap.Error(err))
		}
	}

	cs.logger.Info("Stock mirror synced", zap.Int("count", len(medicines)))
	return nil
}

func (cs *CatalogService) refreshMirror(ctx context.Context, m *models.Medicine) {
	if cs.redis == nil {
		return
	}
	if err := cs.redis.SetStock(ctx, m.ID, m.Quantity); err != nil {
		cs.logger.Warn("Failed to refresh mirrored stock",
			zap.String("medicine_id", m.ID),
			zap.Error(err))
	}
}

func (cs *CatalogService) publishStockLow(ctx context.Context, m *models.Medicine) {
	if cs.eventPublisher == nil {
		return
	}
	event := &models.StockLowEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeStockLow,
			Timestamp: time.Now(),
		},
		MedicineID:    m.ID,
		Name:          m.Name,
		Quantity:      m.Quantity,
		MinStockLevel: m.MinStockLevel,
	}
	if err := cs.eventPublisher.PublishStockLow(ctx, event); err != nil {
		cs.logger.Error("Failed to publish StockLow event", zap.Error(err))
		return
	}
	util.StockLowEventsTotal.Inc()
}

// validateMedicine rejects malformed input before any I/O
func validateMedicine(m *models.Medicine) error {
	if m.Name == "" {
		return &models.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if m.Price.IsNegative() {
		return &models.ValidationError{Field: "price", Reason: "must not be negative"}
	}
	if m.Quantity < 0 {
		return &models.ValidationError{Field: "quantity", Reason: "must not be negative"}
	}
	if m.MinStockLevel < 0 {
		return &models.ValidationError{Field: "min_stock_level", Reason: "must not be negative"}
	}
	return nil
}
