package service

import (
	"context"
	"database/sql"
	"testing"

	"marketplace-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSaleLedger struct {
	sales []models.Sale
}

func (f *fakeSaleLedger) CreateSaleFromOffer(_ context.Context, sale *models.Sale) error {
	sale.ID = int64(len(f.sales) + 1)
	f.sales = append(f.sales, *sale)
	return nil
}

func (f *fakeSaleLedger) GetSalesBySeller(_ context.Context, sellerID int64) ([]models.Sale, error) {
	out := []models.Sale{}
	for _, s := range f.sales {
		if s.SellerID == sellerID {
			out = append(out, s)
		}
	}
	return out, nil
}

func TestListSellerSales(t *testing.T) {
	users := newFakeUserStore()
	seller := users.seed(models.User{Username: "marco", Role: models.RoleSeller})
	buyer := users.seed(models.User{Username: "ana", Role: models.RoleBuyer})

	ledger := &fakeSaleLedger{}
	for _, price := range []float64{80, 120} {
		require.NoError(t, ledger.CreateSaleFromOffer(context.Background(), &models.Sale{
			OfferID:   sql.NullInt64{Int64: int64(price), Valid: true},
			ProductID: 1, SellerID: seller.ID, BuyerID: buyer.ID,
			Price: price, Discount: 10, Status: models.SaleStatusCompleted,
		}))
	}

	svc := NewSalesService(users, ledger)

	result, err := svc.ListSellerSales(context.Background(), seller.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalSales)
	assert.Equal(t, 180.0, result.TotalEarnings)
	assert.Len(t, result.Sales, 2)

	_, err = svc.ListSellerSales(context.Background(), buyer.ID)
	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, KindForbidden, svcErr.Kind)
}

func TestListSellerSalesEmpty(t *testing.T) {
	users := newFakeUserStore()
	seller := users.seed(models.User{Username: "marco", Role: models.RoleSeller})

	svc := NewSalesService(users, &fakeSaleLedger{})

	result, err := svc.ListSellerSales(context.Background(), seller.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalSales)
	assert.Equal(t, 0.0, result.TotalEarnings)
	assert.NotNil(t, result.Sales)
}
