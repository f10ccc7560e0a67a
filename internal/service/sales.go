package service

import (
	"context"
	"errors"

	"marketplace-service/internal/models"
	"marketplace-service/internal/store"
	"marketplace-service/internal/util"
)

// SalesService reads the append-only sale ledger for sellers
type SalesService struct {
	users UserStore
	sales SaleLedger
}

// NewSalesService creates a new sales service
func NewSalesService(users UserStore, sales SaleLedger) *SalesService {
	return &SalesService{users: users, sales: sales}
}

// SellerSalesResult is a seller's sale history with running totals
type SellerSalesResult struct {
	Sales         []models.Sale `json:"sales"`
	TotalSales    int           `json:"total_sales"`
	TotalEarnings float64       `json:"total_earnings"`
}

// ListSellerSales returns the seller's sales, newest first, with total count
// and earnings. Earnings are the final negotiated prices net of discounts.
func (s *SalesService) ListSellerSales(ctx context.Context, sellerID int64) (*SellerSalesResult, error) {
	ctx, span := util.StartSpan(ctx, "SalesService.ListSellerSales")
	defer span.End()

	user, err := s.users.GetUserByID(ctx, sellerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("User not found")
	}
	if err != nil {
		return nil, storageError(err)
	}
	if user.Role != models.RoleSeller {
		return nil, forbidden("Access denied, user is not a seller")
	}

	sales, err := s.sales.GetSalesBySeller(ctx, sellerID)
	if err != nil {
		return nil, storageError(err)
	}

	result := &SellerSalesResult{
		Sales:      sales,
		TotalSales: len(sales),
	}
	if result.Sales == nil {
		result.Sales = []models.Sale{}
	}
	for i := range sales {
		result.TotalEarnings += sales[i].Price - sales[i].Discount
	}
	return result, nil
}
