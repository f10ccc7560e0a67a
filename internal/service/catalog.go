package service

import (
	"context"
	"database/sql"
	"errors"

	"marketplace-service/internal/models"
	"marketplace-service/internal/store"
	"marketplace-service/internal/util"

	"go.uber.org/zap"
)

const relatedProductsLimit = 4

// CatalogService handles product CRUD and the public catalog
type CatalogService struct {
	users    UserStore
	products ProductStore
	logger   *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(users UserStore, products ProductStore) *CatalogService {
	return &CatalogService{
		users:    users,
		products: products,
		logger:   util.GetLogger(),
	}
}

// ProductRequest carries product creation or update fields
type ProductRequest struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description" binding:"required"`
	Category    string   `json:"category" binding:"required"`
	Subcategory string   `json:"subcategory"`
	Size        string   `json:"size" binding:"required"`
	Brand       string   `json:"brand"`
	Condition   string   `json:"condition" binding:"required"`
	Material    string   `json:"material"`
	Color       string   `json:"color"`
	Price       float64  `json:"price" binding:"required,gt=0"`
	Discount    float64  `json:"discount"`
	Images      []string `json:"images"`
}

// CreateProduct creates a listing for a seller with its ordered images
func (s *CatalogService) CreateProduct(ctx context.Context, sellerID int64, req *ProductRequest) (*models.ProductView, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateProduct")
	defer span.End()

	if _, err := s.requireSeller(ctx, sellerID); err != nil {
		return nil, err
	}

	product := productFromRequest(req)
	product.SellerID = sellerID

	if err := s.products.CreateProduct(ctx, product, req.Images); err != nil {
		return nil, storageError(err)
	}

	s.logger.Info("Product created",
		zap.Int64("product_id", product.ID),
		zap.Int64("seller_id", sellerID))

	view := product.Serialize()
	return &view, nil
}

// ListSellerProducts returns the seller's own listings
func (s *CatalogService) ListSellerProducts(ctx context.Context, sellerID int64) ([]models.ProductView, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListSellerProducts")
	defer span.End()

	if _, err := s.requireSeller(ctx, sellerID); err != nil {
		return nil, err
	}

	products, err := s.products.GetProductsBySeller(ctx, sellerID)
	if err != nil {
		return nil, storageError(err)
	}
	return serializeProducts(products), nil
}

// GetProduct returns one product for an authenticated user
func (s *CatalogService) GetProduct(ctx context.Context, productID int64) (*models.ProductView, error) {
	product, err := s.products.GetProductWithImages(ctx, productID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("Product not found")
	}
	if err != nil {
		return nil, storageError(err)
	}
	view := product.Serialize()
	return &view, nil
}

// UpdateProduct updates an owned listing. When req.Images is non-nil the
// whole image set is replaced in order.
func (s *CatalogService) UpdateProduct(ctx context.Context, sellerID, productID int64, req *ProductRequest) (*models.ProductView, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.UpdateProduct")
	defer span.End()

	product, err := s.ownedProduct(ctx, sellerID, productID)
	if err != nil {
		return nil, err
	}

	updated := productFromRequest(req)
	updated.ID = product.ID
	updated.SellerID = product.SellerID

	if err := s.products.UpdateProduct(ctx, updated, req.Images != nil, req.Images); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound("Product not found")
		}
		return nil, storageError(err)
	}

	view := updated.Serialize()
	return &view, nil
}

// DeleteProduct removes an owned listing. Deletion is refused while pending
// offers are open on it.
func (s *CatalogService) DeleteProduct(ctx context.Context, sellerID, productID int64) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.DeleteProduct")
	defer span.End()

	if _, err := s.ownedProduct(ctx, sellerID, productID); err != nil {
		return err
	}

	if err := s.products.DeleteProduct(ctx, productID); err != nil {
		switch {
		case errors.Is(err, store.ErrOpenOffers):
			return conflict("Product has pending offers; resolve them before deleting", 409)
		case errors.Is(err, store.ErrNotFound):
			return notFound("Product not found")
		default:
			return storageError(err)
		}
	}

	s.logger.Info("Product deleted",
		zap.Int64("product_id", productID),
		zap.Int64("seller_id", sellerID))
	return nil
}

// CatalogResult is a page of the public catalog
type CatalogResult struct {
	Products         []models.ProductView    `json:"products"`
	Pagination       Pagination              `json:"pagination"`
	AvailableFilters store.AvailableFilters  `json:"available_filters"`
	AppliedFilters   map[string]interface{}  `json:"applied_filters"`
}

// Pagination mirrors the original pagination envelope
type Pagination struct {
	Page    int  `json:"page"`
	PerPage int  `json:"per_page"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasPrev bool `json:"has_prev"`
	HasNext bool `json:"has_next"`
}

// BrowseCatalog runs the public catalog query. No authentication required.
func (s *CatalogService) BrowseCatalog(ctx context.Context, f store.CatalogFilter) (*CatalogResult, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.BrowseCatalog")
	defer span.End()

	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = 12
	}
	if f.PerPage > 50 {
		f.PerPage = 50
	}

	page, err := s.products.QueryCatalog(ctx, f)
	if err != nil {
		return nil, storageError(err)
	}
	filters, err := s.products.GetAvailableFilters(ctx)
	if err != nil {
		return nil, storageError(err)
	}

	return &CatalogResult{
		Products: serializeProducts(page.Products),
		Pagination: Pagination{
			Page:    f.Page,
			PerPage: f.PerPage,
			Total:   page.Total,
			Pages:   page.Pages,
			HasPrev: f.Page > 1,
			HasNext: f.Page < page.Pages,
		},
		AvailableFilters: *filters,
		AppliedFilters: map[string]interface{}{
			"gender":      f.Gender,
			"category":    f.Category,
			"subcategory": f.Subcategory,
			"min_price":   f.MinPrice,
			"max_price":   f.MaxPrice,
			"size":        f.Size,
			"condition":   f.Condition,
			"brand":       f.Brand,
			"color":       f.Color,
			"search":      f.Search,
			"sort":        f.Sort,
		},
	}, nil
}

// ProductDetails is the public product page: the product, its seller, and
// related listings.
type ProductDetails struct {
	models.ProductView
	Seller              map[string]interface{} `json:"seller"`
	SellerOtherProducts []models.ProductView   `json:"seller_other_products"`
	SimilarProducts     []models.ProductView   `json:"similar_products"`
}

// GetProductDetails returns the public detail view of a product
func (s *CatalogService) GetProductDetails(ctx context.Context, productID int64) (*ProductDetails, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.GetProductDetails")
	defer span.End()

	product, err := s.products.GetProductWithImages(ctx, productID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("Product not found")
	}
	if err != nil {
		return nil, storageError(err)
	}

	seller, err := s.users.GetUserByID(ctx, product.SellerID)
	if err != nil {
		return nil, storageError(err)
	}

	sellerOther, similar, err := s.products.GetRelatedProducts(ctx, product, relatedProductsLimit)
	if err != nil {
		return nil, storageError(err)
	}

	city := "No especificada"
	if seller.City.Valid {
		city = seller.City.String
	}

	return &ProductDetails{
		ProductView: product.Serialize(),
		Seller: map[string]interface{}{
			"id":         seller.ID,
			"username":   seller.Username,
			"first_name": seller.FirstName,
			"city":       city,
		},
		SellerOtherProducts: serializeProducts(sellerOther),
		SimilarProducts:     serializeProducts(similar),
	}, nil
}

func (s *CatalogService) requireSeller(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("User not found")
	}
	if err != nil {
		return nil, storageError(err)
	}
	if user.Role != models.RoleSeller {
		return nil, forbidden("Access denied, user is not a seller")
	}
	return user, nil
}

// ownedProduct resolves a product and checks the seller owns it
func (s *CatalogService) ownedProduct(ctx context.Context, sellerID, productID int64) (*models.Product, error) {
	if _, err := s.requireSeller(ctx, sellerID); err != nil {
		return nil, err
	}
	product, err := s.products.GetProductByID(ctx, productID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("Product not found")
	}
	if err != nil {
		return nil, storageError(err)
	}
	if product.SellerID != sellerID {
		return nil, forbidden("Access denied, this product belongs to another seller")
	}
	return product, nil
}

func productFromRequest(req *ProductRequest) *models.Product {
	return &models.Product{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Subcategory: sql.NullString{String: req.Subcategory, Valid: req.Subcategory != ""},
		Size:        req.Size,
		Brand:       sql.NullString{String: req.Brand, Valid: req.Brand != ""},
		Condition:   req.Condition,
		Material:    sql.NullString{String: req.Material, Valid: req.Material != ""},
		Color:       sql.NullString{String: req.Color, Valid: req.Color != ""},
		Price:       req.Price,
		Discount:    req.Discount,
	}
}

func serializeProducts(products []models.Product) []models.ProductView {
	views := make([]models.ProductView, 0, len(products))
	for i := range products {
		views = append(views, products[i].Serialize())
	}
	return views
}
