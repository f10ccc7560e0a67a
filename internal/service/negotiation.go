package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"marketplace-service/internal/models"
	"marketplace-service/internal/store"
	"marketplace-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NegotiationService is the offer state machine: it validates submissions,
// resolves offers, and guarantees that accepting one offer rejects its
// pending siblings atomically.
type NegotiationService struct {
	users     UserStore
	products  ProductStore
	offers    OfferLedger
	publisher EventPublisher
	logger    *zap.Logger

	lowOfferRatio     float64
	suggestedMinRatio float64
}

// NewNegotiationService creates a new negotiation service
func NewNegotiationService(
	users UserStore,
	products ProductStore,
	offers OfferLedger,
	publisher EventPublisher,
	lowOfferRatio, suggestedMinRatio float64,
) *NegotiationService {
	return &NegotiationService{
		users:             users,
		products:          products,
		offers:            offers,
		publisher:         publisher,
		logger:            util.GetLogger(),
		lowOfferRatio:     lowOfferRatio,
		suggestedMinRatio: suggestedMinRatio,
	}
}

// SubmitOfferRequest is a buyer's proposed price for a product
type SubmitOfferRequest struct {
	Amount  float64 `json:"amount" binding:"required"`
	Message string  `json:"message"`
}

// submitState carries the entities resolved by earlier validators to later
// ones.
type submitState struct {
	buyerID   int64
	productID int64
	req       *SubmitOfferRequest
	buyer     *models.User
	product   *models.Product
}

// submitValidator is one named precondition of offer submission
type submitValidator struct {
	name  string
	check func(ctx context.Context, st *submitState) error
}

// submitValidators returns the submission preconditions in contract order:
// the first failure wins and nothing is mutated before all pass.
func (s *NegotiationService) submitValidators() []submitValidator {
	return []submitValidator{
		{"buyer_role", func(ctx context.Context, st *submitState) error {
			buyer, err := s.users.GetUserByID(ctx, st.buyerID)
			if errors.Is(err, store.ErrNotFound) {
				return forbidden("Only buyers can make offers")
			}
			if err != nil {
				return storageError(err)
			}
			if buyer.Role != models.RoleBuyer {
				return forbidden("Only buyers can make offers")
			}
			st.buyer = buyer
			return nil
		}},
		{"product_exists", func(ctx context.Context, st *submitState) error {
			product, err := s.products.GetProductByID(ctx, st.productID)
			if errors.Is(err, store.ErrNotFound) {
				return notFound("Product not found")
			}
			if err != nil {
				return storageError(err)
			}
			st.product = product
			return nil
		}},
		{"amount_positive", func(ctx context.Context, st *submitState) error {
			if st.req.Amount <= 0 {
				return invalidInput("Offer amount must be greater than 0")
			}
			return nil
		}},
		{"amount_within_price", func(ctx context.Context, st *submitState) error {
			if st.req.Amount > st.product.Price {
				return invalidInput("Offer cannot exceed the listed price")
			}
			return nil
		}},
		{"low_offer_guard", func(ctx context.Context, st *submitState) error {
			if st.req.Amount < st.product.Price*s.lowOfferRatio {
				return lowOffer(st.product.Price * s.suggestedMinRatio)
			}
			return nil
		}},
		{"no_duplicate_pending", func(ctx context.Context, st *submitState) error {
			exists, err := s.offers.HasPendingOffer(ctx, st.productID, st.buyerID)
			if err != nil {
				return storageError(err)
			}
			if exists {
				return conflict("You already have a pending offer on this product", 409)
			}
			return nil
		}},
	}
}

// SubmitOffer validates and creates a pending offer. seller_id is copied
// from the product here and never re-derived afterwards.
func (s *NegotiationService) SubmitOffer(ctx context.Context, buyerID, productID int64, req *SubmitOfferRequest) (*models.OfferView, error) {
	ctx, span := util.StartSpan(ctx, "NegotiationService.SubmitOffer")
	defer span.End()

	st := &submitState{buyerID: buyerID, productID: productID, req: req}
	for _, v := range s.submitValidators() {
		if err := v.check(ctx, st); err != nil {
			util.OffersFailedTotal.WithLabelValues(v.name).Inc()
			return nil, err
		}
	}

	offer := &models.Offer{
		ProductID: productID,
		BuyerID:   buyerID,
		SellerID:  st.product.SellerID,
		Amount:    req.Amount,
		Message:   sql.NullString{String: req.Message, Valid: req.Message != ""},
		Status:    models.OfferStatusPending,
	}

	if err := s.offers.CreateOffer(ctx, offer); err != nil {
		if errors.Is(err, store.ErrDuplicatePending) {
			// Lost the race against a concurrent submission by the same
			// buyer; the unique index held the invariant.
			util.OffersFailedTotal.WithLabelValues("no_duplicate_pending").Inc()
			return nil, conflict("You already have a pending offer on this product", 409)
		}
		util.OffersFailedTotal.WithLabelValues("storage").Inc()
		return nil, storageError(err)
	}

	util.OffersSubmittedTotal.Inc()
	s.logger.Info("Offer submitted",
		zap.Int64("offer_id", offer.ID),
		zap.Int64("product_id", productID),
		zap.Int64("buyer_id", buyerID),
		zap.Float64("amount", req.Amount))

	s.publishSubmitted(ctx, offer)

	return s.serializeOffer(ctx, offer.ID)
}

// AcceptOffer resolves a pending offer to accepted. Every other pending
// offer on the same product is rejected in the same storage transaction.
func (s *NegotiationService) AcceptOffer(ctx context.Context, offerID, actorID int64, responseMessage string) (*models.OfferView, error) {
	ctx, span := util.StartSpan(ctx, "NegotiationService.AcceptOffer")
	defer span.End()

	if _, err := s.resolvable(ctx, offerID, actorID); err != nil {
		return nil, err
	}

	response := responseMessage
	if response == "" {
		response = models.ResponseOfferAccepted
	}

	start := time.Now()
	accepted, rejectedSiblings, err := s.offers.AcceptOffer(ctx, offerID, response)
	util.OfferResolutionLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, s.mapResolutionErr(err)
	}

	util.OffersAcceptedTotal.Inc()
	util.OffersRejectedTotal.WithLabelValues("cascade").Add(float64(rejectedSiblings))
	s.logger.Info("Offer accepted",
		zap.Int64("offer_id", offerID),
		zap.Int64("seller_id", actorID),
		zap.Int("rejected_siblings", rejectedSiblings))

	s.publishAccepted(ctx, accepted, rejectedSiblings)

	return s.serializeOffer(ctx, offerID)
}

// RejectOffer resolves a pending offer to rejected. No cascade.
func (s *NegotiationService) RejectOffer(ctx context.Context, offerID, actorID int64, responseMessage string) (*models.OfferView, error) {
	ctx, span := util.StartSpan(ctx, "NegotiationService.RejectOffer")
	defer span.End()

	if _, err := s.resolvable(ctx, offerID, actorID); err != nil {
		return nil, err
	}

	response := responseMessage
	if response == "" {
		response = models.ResponseOfferRejected
	}

	start := time.Now()
	rejected, err := s.offers.RejectOffer(ctx, offerID, response)
	util.OfferResolutionLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, s.mapResolutionErr(err)
	}

	util.OffersRejectedTotal.WithLabelValues("seller").Inc()
	s.logger.Info("Offer rejected",
		zap.Int64("offer_id", offerID),
		zap.Int64("seller_id", actorID))

	s.publishRejected(ctx, rejected)

	return s.serializeOffer(ctx, offerID)
}

// resolvable checks the shared accept/reject preconditions in contract
// order: the offer exists, the actor owns it, and it is still pending. The
// pending check is repeated inside the storage transaction; this one exists
// to fail fast before any mutation.
func (s *NegotiationService) resolvable(ctx context.Context, offerID, actorID int64) (*models.Offer, error) {
	offer, err := s.offers.GetOfferByID(ctx, offerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("Offer not found")
	}
	if err != nil {
		return nil, storageError(err)
	}
	if offer.SellerID != actorID {
		return nil, forbidden("You do not have permission to manage this offer")
	}
	if offer.Resolved() {
		return nil, conflict("This offer was already processed", 400)
	}
	return offer, nil
}

func (s *NegotiationService) mapResolutionErr(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return notFound("Offer not found")
	case errors.Is(err, store.ErrNotPending):
		return conflict("This offer was already processed", 400)
	default:
		return storageError(err)
	}
}

// SellerOffersResult is a seller's offer listing plus dashboard stats
type SellerOffersResult struct {
	Offers []models.OfferView `json:"offers"`
	Stats  models.OfferStats  `json:"stats"`
}

// ListSellerOffers returns the seller's offers with optional status filter
// and sort order. Stats always cover the unfiltered set.
func (s *NegotiationService) ListSellerOffers(ctx context.Context, sellerID int64, status, sort string) (*SellerOffersResult, error) {
	ctx, span := util.StartSpan(ctx, "NegotiationService.ListSellerOffers")
	defer span.End()

	user, err := s.users.GetUserByID(ctx, sellerID)
	if err != nil || user.Role != models.RoleSeller {
		return nil, forbidden("Access denied, user is not a seller")
	}

	if err := validStatusFilter(status); err != nil {
		return nil, err
	}

	offers, err := s.offers.ListSellerOffers(ctx, sellerID, status, sort)
	if err != nil {
		return nil, storageError(err)
	}
	stats, err := s.offers.CountSellerOffers(ctx, sellerID)
	if err != nil {
		return nil, storageError(err)
	}

	return &SellerOffersResult{Offers: serializeOffers(offers), Stats: *stats}, nil
}

// ListBuyerOffers returns the buyer's offers, newest first
func (s *NegotiationService) ListBuyerOffers(ctx context.Context, buyerID int64, status string) ([]models.OfferView, error) {
	ctx, span := util.StartSpan(ctx, "NegotiationService.ListBuyerOffers")
	defer span.End()

	user, err := s.users.GetUserByID(ctx, buyerID)
	if err != nil || user.Role != models.RoleBuyer {
		return nil, forbidden("Access denied, user is not a buyer")
	}

	if err := validStatusFilter(status); err != nil {
		return nil, err
	}

	offers, err := s.offers.ListBuyerOffers(ctx, buyerID, status)
	if err != nil {
		return nil, storageError(err)
	}
	return serializeOffers(offers), nil
}

func validStatusFilter(status string) error {
	switch status {
	case "", models.OfferStatusPending, models.OfferStatusAccepted,
		models.OfferStatusRejected, models.OfferStatusExpired:
		return nil
	}
	return invalidInput(fmt.Sprintf("Unknown status filter: %s", status))
}

func serializeOffers(offers []models.OfferDetail) []models.OfferView {
	views := make([]models.OfferView, 0, len(offers))
	for i := range offers {
		views = append(views, offers[i].Serialize())
	}
	return views
}

func (s *NegotiationService) serializeOffer(ctx context.Context, offerID int64) (*models.OfferView, error) {
	detail, err := s.offers.GetOfferDetail(ctx, offerID)
	if err != nil {
		return nil, storageError(err)
	}
	view := detail.Serialize()
	return &view, nil
}

func (s *NegotiationService) publishSubmitted(ctx context.Context, offer *models.Offer) {
	if s.publisher == nil {
		return
	}
	event := &models.OfferSubmittedEvent{
		BaseEvent: newBaseEvent(models.EventTypeOfferSubmitted),
		OfferID:   offer.ID,
		ProductID: offer.ProductID,
		BuyerID:   offer.BuyerID,
		SellerID:  offer.SellerID,
		Amount:    offer.Amount,
	}
	if err := s.publisher.PublishOfferSubmitted(ctx, event); err != nil {
		s.logger.Error("Failed to publish OfferSubmitted event", zap.Error(err))
	}
}

func (s *NegotiationService) publishAccepted(ctx context.Context, offer *models.Offer, rejectedSiblings int) {
	if s.publisher == nil {
		return
	}
	discount := 0.0
	if product, err := s.products.GetProductByID(ctx, offer.ProductID); err == nil {
		discount = product.Discount
	}
	event := &models.OfferAcceptedEvent{
		BaseEvent:        newBaseEvent(models.EventTypeOfferAccepted),
		OfferID:          offer.ID,
		ProductID:        offer.ProductID,
		BuyerID:          offer.BuyerID,
		SellerID:         offer.SellerID,
		Amount:           offer.Amount,
		ProductDiscount:  discount,
		RejectedSiblings: rejectedSiblings,
	}
	if err := s.publisher.PublishOfferAccepted(ctx, event); err != nil {
		s.logger.Error("Failed to publish OfferAccepted event", zap.Error(err))
	}
}

func (s *NegotiationService) publishRejected(ctx context.Context, offer *models.Offer) {
	if s.publisher == nil {
		return
	}
	event := &models.OfferRejectedEvent{
		BaseEvent: newBaseEvent(models.EventTypeOfferRejected),
		OfferID:   offer.ID,
		ProductID: offer.ProductID,
		BuyerID:   offer.BuyerID,
		SellerID:  offer.SellerID,
	}
	if err := s.publisher.PublishOfferRejected(ctx, event); err != nil {
		s.logger.Error("Failed to publish OfferRejected event", zap.Error(err))
	}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
