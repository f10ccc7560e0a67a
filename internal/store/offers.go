package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"marketplace-service/internal/models"
)

const offerDetailColumns = `
	o.*,
	p.title AS product_title,
	p.price AS product_price,
	(SELECT url FROM product_images pi
	 WHERE pi.product_id = o.product_id
	 ORDER BY pi.position LIMIT 1) AS product_image,
	b.username AS buyer_username,
	b.first_name AS buyer_first_name,
	sl.username AS seller_username`

const offerDetailJoins = `
	FROM offers o
	JOIN products p ON p.id = o.product_id
	JOIN users b ON b.id = o.buyer_id
	JOIN users sl ON sl.id = o.seller_id`

// CreateOffer inserts a pending offer. The partial unique index on
// (product_id, buyer_id) WHERE status = 'pending' backs the one-pending-offer
// invariant even when two submissions race past the application check; a
// violation surfaces as ErrDuplicatePending.
func (s *Store) CreateOffer(ctx context.Context, offer *models.Offer) error {
	query := `
		INSERT INTO offers (product_id, buyer_id, seller_id, amount, message, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := s.db.QueryRowxContext(ctx, query,
		offer.ProductID, offer.BuyerID, offer.SellerID,
		offer.Amount, offer.Message, offer.Status,
	).Scan(&offer.ID, &offer.CreatedAt)
	if isUniqueViolation(err, "offers_one_pending_per_buyer") {
		return ErrDuplicatePending
	}
	return err
}

// GetOfferByID retrieves a bare offer row
func (s *Store) GetOfferByID(ctx context.Context, id int64) (*models.Offer, error) {
	var offer models.Offer
	err := s.db.GetContext(ctx, &offer, "SELECT * FROM offers WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

// GetOfferDetail retrieves an offer joined with its serialization summaries
func (s *Store) GetOfferDetail(ctx context.Context, id int64) (*models.OfferDetail, error) {
	var detail models.OfferDetail
	query := "SELECT " + offerDetailColumns + offerDetailJoins + " WHERE o.id = $1"
	err := s.db.GetContext(ctx, &detail, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// HasPendingOffer reports whether the buyer already has a pending offer on
// the product. This is the fast pre-check; the unique index is the guarantee.
func (s *Store) HasPendingOffer(ctx context.Context, productID, buyerID int64) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM offers WHERE product_id = $1 AND buyer_id = $2 AND status = $3)",
		productID, buyerID, models.OfferStatusPending)
	return exists, err
}

// AcceptOffer resolves a pending offer to accepted and rejects every other
// pending offer on the same product, all in one transaction. The row lock
// plus the in-transaction status re-check make the first commit win: a
// concurrent accept of a sibling finds this offer already rejected and fails
// with ErrNotPending.
func (s *Store) AcceptOffer(ctx context.Context, offerID int64, response string) (*models.Offer, int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback()

	var offer models.Offer
	err = tx.GetContext(ctx, &offer, "SELECT * FROM offers WHERE id = $1 FOR UPDATE", offerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to lock offer: %w", err)
	}
	if offer.Status != models.OfferStatusPending {
		return nil, 0, ErrNotPending
	}

	now := time.Now().UTC()

	_, err = tx.ExecContext(ctx,
		"UPDATE offers SET status = $1, seller_response = $2, responded_at = $3 WHERE id = $4",
		models.OfferStatusAccepted, response, now, offerID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to accept offer: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE offers
		SET status = $1, seller_response = $2, responded_at = $3
		WHERE product_id = $4 AND id != $5 AND status = $6`,
		models.OfferStatusRejected, models.ResponseSiblingAccepted, now,
		offer.ProductID, offerID, models.OfferStatusPending)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to reject sibling offers: %w", err)
	}
	rejected, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return nil, 0, err
	}

	offer.Status = models.OfferStatusAccepted
	offer.SellerResponse = sql.NullString{String: response, Valid: true}
	offer.RespondedAt = sql.NullTime{Time: now, Valid: true}
	return &offer, int(rejected), nil
}

// RejectOffer resolves a pending offer to rejected. Same locking discipline
// as AcceptOffer, no cascade.
func (s *Store) RejectOffer(ctx context.Context, offerID int64, response string) (*models.Offer, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var offer models.Offer
	err = tx.GetContext(ctx, &offer, "SELECT * FROM offers WHERE id = $1 FOR UPDATE", offerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock offer: %w", err)
	}
	if offer.Status != models.OfferStatusPending {
		return nil, ErrNotPending
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		"UPDATE offers SET status = $1, seller_response = $2, responded_at = $3 WHERE id = $4",
		models.OfferStatusRejected, response, now, offerID)
	if err != nil {
		return nil, fmt.Errorf("failed to reject offer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	offer.Status = models.OfferStatusRejected
	offer.SellerResponse = sql.NullString{String: response, Valid: true}
	offer.RespondedAt = sql.NullTime{Time: now, Valid: true}
	return &offer, nil
}

// ListSellerOffers returns a seller's offers, optionally filtered by status.
// Sort is one of newest, oldest, amount_high, amount_low.
func (s *Store) ListSellerOffers(ctx context.Context, sellerID int64, status, sort string) ([]models.OfferDetail, error) {
	query := "SELECT " + offerDetailColumns + offerDetailJoins + " WHERE o.seller_id = $1"
	args := []interface{}{sellerID}
	if status != "" {
		query += " AND o.status = $2"
		args = append(args, status)
	}

	switch sort {
	case "oldest":
		query += " ORDER BY o.created_at ASC"
	case "amount_high":
		query += " ORDER BY o.amount DESC"
	case "amount_low":
		query += " ORDER BY o.amount ASC"
	default:
		query += " ORDER BY o.created_at DESC"
	}

	offers := []models.OfferDetail{}
	err := s.db.SelectContext(ctx, &offers, query, args...)
	return offers, err
}

// ListBuyerOffers returns a buyer's offers, newest first
func (s *Store) ListBuyerOffers(ctx context.Context, buyerID int64, status string) ([]models.OfferDetail, error) {
	query := "SELECT " + offerDetailColumns + offerDetailJoins + " WHERE o.buyer_id = $1"
	args := []interface{}{buyerID}
	if status != "" {
		query += " AND o.status = $2"
		args = append(args, status)
	}
	query += " ORDER BY o.created_at DESC"

	offers := []models.OfferDetail{}
	err := s.db.SelectContext(ctx, &offers, query, args...)
	return offers, err
}

// CountSellerOffers computes per-status counts over the seller's whole offer
// set, independent of any listing filter.
func (s *Store) CountSellerOffers(ctx context.Context, sellerID int64) (*models.OfferStats, error) {
	var stats models.OfferStats
	err := s.db.GetContext(ctx, &stats, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending')  AS pending,
			COUNT(*) FILTER (WHERE status = 'accepted') AS accepted,
			COUNT(*) FILTER (WHERE status = 'rejected') AS rejected,
			COUNT(*)                                    AS total
		FROM offers WHERE seller_id = $1`, sellerID)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
