package service

import (
	"context"
	"time"

	"marketplace-service/internal/models"
	"marketplace-service/internal/store"
)

// The services depend on these narrow interfaces rather than the concrete
// *store.Store so the engine can be tested against in-memory fakes. The
// sqlx store satisfies all of them.

// UserStore is the Identity Store boundary
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateUserProfile(ctx context.Context, user *models.User) error
	UpdateUserPassword(ctx context.Context, userID int64, passwordHash string) error
}

// ProductStore is the Catalog Store boundary
type ProductStore interface {
	CreateProduct(ctx context.Context, product *models.Product, imageURLs []string) error
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetProductWithImages(ctx context.Context, id int64) (*models.Product, error)
	GetProductsBySeller(ctx context.Context, sellerID int64) ([]models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product, replaceImages bool, imageURLs []string) error
	DeleteProduct(ctx context.Context, productID int64) error
	QueryCatalog(ctx context.Context, f store.CatalogFilter) (*store.CatalogPage, error)
	GetAvailableFilters(ctx context.Context) (*store.AvailableFilters, error)
	GetRelatedProducts(ctx context.Context, product *models.Product, limit int) ([]models.Product, []models.Product, error)
}

// OfferLedger is the Offer Ledger boundary. All mutations are atomic at the
// storage layer; the engine never sees partial state.
type OfferLedger interface {
	CreateOffer(ctx context.Context, offer *models.Offer) error
	GetOfferByID(ctx context.Context, id int64) (*models.Offer, error)
	GetOfferDetail(ctx context.Context, id int64) (*models.OfferDetail, error)
	HasPendingOffer(ctx context.Context, productID, buyerID int64) (bool, error)
	AcceptOffer(ctx context.Context, offerID int64, response string) (*models.Offer, int, error)
	RejectOffer(ctx context.Context, offerID int64, response string) (*models.Offer, error)
	ListSellerOffers(ctx context.Context, sellerID int64, status, sort string) ([]models.OfferDetail, error)
	ListBuyerOffers(ctx context.Context, buyerID int64, status string) ([]models.OfferDetail, error)
	CountSellerOffers(ctx context.Context, sellerID int64) (*models.OfferStats, error)
}

// SaleLedger is the append-only Sale Ledger boundary
type SaleLedger interface {
	CreateSaleFromOffer(ctx context.Context, sale *models.Sale) error
	GetSalesBySeller(ctx context.Context, sellerID int64) ([]models.Sale, error)
}

// TokenStore holds password-reset tokens in a durable shared store.
// ConsumeResetToken deletes the token atomically with the read so a token
// can be used exactly once; found reports whether it existed.
type TokenStore interface {
	StoreResetToken(ctx context.Context, token string, userID int64, ttl time.Duration) error
	ConsumeResetToken(ctx context.Context, token string) (userID int64, found bool, err error)
}

// EventPublisher publishes offer lifecycle events
type EventPublisher interface {
	PublishOfferSubmitted(ctx context.Context, event *models.OfferSubmittedEvent) error
	PublishOfferAccepted(ctx context.Context, event *models.OfferAcceptedEvent) error
	PublishOfferRejected(ctx context.Context, event *models.OfferRejectedEvent) error
}
