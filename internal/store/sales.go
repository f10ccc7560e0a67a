package store

import (
	"context"
	"fmt"

	"marketplace-service/internal/models"
)

// CreateSaleFromOffer appends a Sale row for an accepted offer. Idempotent:
// a second event for the same offer hits the unique offer_id and reports
// ErrDuplicateKey instead of a second row.
func (s *Store) CreateSaleFromOffer(ctx context.Context, sale *models.Sale) error {
	query := `
		INSERT INTO sales (offer_id, product_id, seller_id, buyer_id, price, discount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := s.db.QueryRowxContext(ctx, query,
		sale.OfferID, sale.ProductID, sale.SellerID, sale.BuyerID,
		sale.Price, sale.Discount, sale.Status,
	).Scan(&sale.ID, &sale.CreatedAt, &sale.UpdatedAt)
	if isUniqueViolation(err, "sales_offer_id_key") {
		return ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("failed to insert sale: %w", err)
	}
	return nil
}

// GetSalesBySeller retrieves a seller's sales, newest first
func (s *Store) GetSalesBySeller(ctx context.Context, sellerID int64) ([]models.Sale, error) {
	sales := []models.Sale{}
	err := s.db.SelectContext(ctx, &sales,
		"SELECT * FROM sales WHERE seller_id = $1 ORDER BY created_at DESC", sellerID)
	return sales, err
}
