package worker

import (
	"context"
	"errors"

	"marketplace-service/internal/broker"
	"marketplace-service/internal/models"
	"marketplace-service/internal/store"
	"marketplace-service/internal/util"

	"go.uber.org/zap"
)

// SaleLedger is the slice of the store the worker writes to
type SaleLedger interface {
	CreateSaleFromOffer(ctx context.Context, sale *models.Sale) error
}

// SaleWorker turns accepted offers into Sale Ledger rows. It consumes
// OfferAccepted events so the HTTP path never blocks on the ledger write.
type SaleWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	sales        SaleLedger
	publisher    *broker.EventPublisher
	logger       *zap.Logger
}

// NewSaleWorker creates a new sale worker
func NewSaleWorker(consumer *broker.Consumer, sales SaleLedger, publisher *broker.EventPublisher) *SaleWorker {
	w := &SaleWorker{
		consumer:  consumer,
		sales:     sales,
		publisher: publisher,
		logger:    util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOfferAccepted(w.handleOfferAccepted)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *SaleWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting sale worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *SaleWorker) Stop() error {
	w.logger.Info("Stopping sale worker")
	return w.consumer.Close()
}

// handleOfferAccepted appends one Sale row per accepted offer. Kafka delivers
// at least once, so a redelivered event hits the offer_id unique constraint
// and is dropped.
func (w *SaleWorker) handleOfferAccepted(ctx context.Context, event *models.OfferAcceptedEvent) error {
	sale := &models.Sale{
		ProductID: event.ProductID,
		SellerID:  event.SellerID,
		BuyerID:   event.BuyerID,
		Price:     event.Amount,
		Discount:  event.ProductDiscount,
		Status:    models.SaleStatusCompleted,
	}
	sale.OfferID.Int64 = event.OfferID
	sale.OfferID.Valid = true

	err := w.sales.CreateSaleFromOffer(ctx, sale)
	if errors.Is(err, store.ErrDuplicateKey) {
		w.logger.Info("Sale already recorded, skipping",
			zap.Int64("offer_id", event.OfferID))
		return nil
	}
	if err != nil {
		w.logger.Error("Failed to record sale",
			zap.Int64("offer_id", event.OfferID),
			zap.Error(err))
		return err
	}

	util.SalesRecordedTotal.Inc()
	w.logger.Info("Sale recorded",
		zap.Int64("sale_id", sale.ID),
		zap.Int64("offer_id", event.OfferID),
		zap.Float64("price", sale.Price))

	if w.publisher != nil {
		recorded := &models.SaleRecordedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   event.EventID + "-sale",
				EventType: models.EventTypeSaleRecorded,
				Timestamp: sale.CreatedAt,
			},
			SaleID:   sale.ID,
			OfferID:  event.OfferID,
			SellerID: sale.SellerID,
			BuyerID:  sale.BuyerID,
			Price:    sale.Price,
		}
		if err := w.publisher.PublishSaleRecorded(ctx, recorded); err != nil {
			w.logger.Warn("Failed to publish SaleRecorded event", zap.Error(err))
		}
	}

	return nil
}
