package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"marketplace-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CatalogFilter is the filter/sort/pagination surface of the public catalog.
type CatalogFilter struct {
	Gender      string
	Category    string
	Subcategory string
	MinPrice    *float64
	MaxPrice    *float64
	Size        string
	Condition   string
	Brand       string
	Color       string
	Search      string
	Sort        string // price_asc, price_desc, newest
	Page        int
	PerPage     int
}

// CatalogPage is one page of catalog results plus paging totals.
type CatalogPage struct {
	Products []models.Product
	Total    int
	Pages    int
}

// AvailableFilters are the distinct attribute values present in the catalog.
type AvailableFilters struct {
	Sizes      []string `json:"sizes"`
	Brands     []string `json:"brands"`
	Colors     []string `json:"colors"`
	Conditions []string `json:"conditions"`
}

// CreateProduct inserts a product and its ordered images in one transaction
func (s *Store) CreateProduct(ctx context.Context, product *models.Product, imageURLs []string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO products (title, description, category, subcategory, size, brand, condition, material, color, price, discount, seller_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at`

	err = tx.QueryRowxContext(ctx, query,
		product.Title, product.Description, product.Category, product.Subcategory,
		product.Size, product.Brand, product.Condition, product.Material,
		product.Color, product.Price, product.Discount, product.SellerID,
	).Scan(&product.ID, &product.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}

	if err := insertImagesTx(ctx, tx, product.ID, imageURLs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	product.Images, err = s.GetProductImages(ctx, product.ID)
	return err
}

func insertImagesTx(ctx context.Context, tx *sqlx.Tx, productID int64, urls []string) error {
	for i, url := range urls {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO product_images (url, product_id, position) VALUES ($1, $2, $3)",
			url, productID, i)
		if err != nil {
			return fmt.Errorf("failed to insert product image: %w", err)
		}
	}
	return nil
}

// GetProductByID retrieves a product without its images
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductWithImages retrieves a product with its ordered image list
func (s *Store) GetProductWithImages(ctx context.Context, id int64) (*models.Product, error) {
	product, err := s.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	product.Images, err = s.GetProductImages(ctx, id)
	if err != nil {
		return nil, err
	}
	return product, nil
}

// GetProductImages retrieves a product's images ordered by position
func (s *Store) GetProductImages(ctx context.Context, productID int64) ([]models.ProductImage, error) {
	images := []models.ProductImage{}
	err := s.db.SelectContext(ctx, &images,
		"SELECT * FROM product_images WHERE product_id = $1 ORDER BY position", productID)
	return images, err
}

// GetProductsBySeller retrieves a seller's listings, newest first, with images
func (s *Store) GetProductsBySeller(ctx context.Context, sellerID int64) ([]models.Product, error) {
	products := []models.Product{}
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products WHERE seller_id = $1 ORDER BY created_at DESC", sellerID)
	if err != nil {
		return nil, err
	}
	return s.attachImages(ctx, products)
}

// attachImages loads the image lists for a slice of products in one query
func (s *Store) attachImages(ctx context.Context, products []models.Product) ([]models.Product, error) {
	if len(products) == 0 {
		return products, nil
	}

	ids := make([]int64, len(products))
	for i := range products {
		ids[i] = products[i].ID
	}

	query, args, err := sqlx.In(
		"SELECT * FROM product_images WHERE product_id IN (?) ORDER BY product_id, position", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var images []models.ProductImage
	if err := s.db.SelectContext(ctx, &images, query, args...); err != nil {
		return nil, err
	}

	byProduct := make(map[int64][]models.ProductImage, len(products))
	for _, img := range images {
		byProduct[img.ProductID] = append(byProduct[img.ProductID], img)
	}
	for i := range products {
		products[i].Images = byProduct[products[i].ID]
		if products[i].Images == nil {
			products[i].Images = []models.ProductImage{}
		}
	}
	return products, nil
}

// UpdateProduct updates a product's fields and, when replaceImages is set,
// swaps the whole image list for the given URLs.
func (s *Store) UpdateProduct(ctx context.Context, product *models.Product, replaceImages bool, imageURLs []string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE products
		SET title = $1, description = $2, category = $3, subcategory = $4,
		    size = $5, brand = $6, condition = $7, material = $8, color = $9,
		    price = $10, discount = $11
		WHERE id = $12`

	res, err := tx.ExecContext(ctx, query,
		product.Title, product.Description, product.Category, product.Subcategory,
		product.Size, product.Brand, product.Condition, product.Material,
		product.Color, product.Price, product.Discount, product.ID)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	if replaceImages {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM product_images WHERE product_id = $1", product.ID); err != nil {
			return fmt.Errorf("failed to clear product images: %w", err)
		}
		if err := insertImagesTx(ctx, tx, product.ID, imageURLs); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	product.Images, err = s.GetProductImages(ctx, product.ID)
	return err
}

// DeleteProduct removes a product and its images in one transaction.
// Deletion is refused while the product still has pending offers; the seller
// has to resolve them first. Terminal offers go with the product via the
// schema's ON DELETE CASCADE.
func (s *Store) DeleteProduct(ctx context.Context, productID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var pending int
	err = tx.GetContext(ctx, &pending,
		"SELECT COUNT(*) FROM offers WHERE product_id = $1 AND status = $2",
		productID, models.OfferStatusPending)
	if err != nil {
		return fmt.Errorf("failed to count open offers: %w", err)
	}
	if pending > 0 {
		return ErrOpenOffers
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM product_images WHERE product_id = $1", productID); err != nil {
		return fmt.Errorf("failed to delete product images: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM products WHERE id = $1", productID)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// QueryCatalog runs the public catalog query with filters, sorting, and
// pagination. Gender narrows by category prefix since categories are stored
// as gender_category (e.g. mujer_vestidos).
func (s *Store) QueryCatalog(ctx context.Context, f CatalogFilter) (*CatalogPage, error) {
	where := []string{"TRUE"}
	args := []interface{}{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Gender != "" {
		where = append(where, fmt.Sprintf("category LIKE %s", arg(f.Gender+"\\_%")))
	}
	if f.Category != "" {
		if strings.Contains(f.Category, "_") {
			where = append(where, fmt.Sprintf("category = %s", arg(f.Category)))
		} else {
			p := arg("%" + f.Category + "%")
			where = append(where, fmt.Sprintf("category ILIKE %s", p))
		}
	}
	if f.Subcategory != "" {
		where = append(where, fmt.Sprintf("subcategory ILIKE %s", arg("%"+f.Subcategory+"%")))
	}
	if f.MinPrice != nil {
		where = append(where, fmt.Sprintf("price >= %s", arg(*f.MinPrice)))
	}
	if f.MaxPrice != nil {
		where = append(where, fmt.Sprintf("price <= %s", arg(*f.MaxPrice)))
	}
	if f.Size != "" {
		where = append(where, fmt.Sprintf("size = %s", arg(f.Size)))
	}
	if f.Condition != "" {
		where = append(where, fmt.Sprintf("condition = %s", arg(f.Condition)))
	}
	if f.Brand != "" {
		where = append(where, fmt.Sprintf("brand ILIKE %s", arg("%"+f.Brand+"%")))
	}
	if f.Color != "" {
		where = append(where, fmt.Sprintf("color ILIKE %s", arg("%"+f.Color+"%")))
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		where = append(where, fmt.Sprintf("(title ILIKE %s OR description ILIKE %s OR brand ILIKE %s)", p, p, p))
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM products WHERE " + whereClause
	if err := s.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to count catalog: %w", err)
	}

	var orderBy string
	switch f.Sort {
	case "price_asc":
		orderBy = "price ASC"
	case "price_desc":
		orderBy = "price DESC"
	default:
		orderBy = "created_at DESC"
	}

	offset := (f.Page - 1) * f.PerPage
	query := fmt.Sprintf("SELECT * FROM products WHERE %s ORDER BY %s LIMIT %s OFFSET %s",
		whereClause, orderBy, arg(f.PerPage), arg(offset))

	products := []models.Product{}
	if err := s.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	products, err := s.attachImages(ctx, products)
	if err != nil {
		return nil, err
	}

	pages := 0
	if f.PerPage > 0 {
		pages = (total + f.PerPage - 1) / f.PerPage
	}

	return &CatalogPage{Products: products, Total: total, Pages: pages}, nil
}

// GetAvailableFilters returns the distinct attribute values in the catalog
func (s *Store) GetAvailableFilters(ctx context.Context) (*AvailableFilters, error) {
	f := &AvailableFilters{
		Sizes:      []string{},
		Brands:     []string{},
		Colors:     []string{},
		Conditions: []string{},
	}

	queries := []struct {
		dest  *[]string
		query string
	}{
		{&f.Sizes, "SELECT DISTINCT size FROM products ORDER BY size"},
		{&f.Brands, "SELECT DISTINCT brand FROM products WHERE brand IS NOT NULL ORDER BY brand"},
		{&f.Colors, "SELECT DISTINCT color FROM products WHERE color IS NOT NULL ORDER BY color"},
		{&f.Conditions, "SELECT DISTINCT condition FROM products ORDER BY condition"},
	}
	for _, q := range queries {
		if err := s.db.SelectContext(ctx, q.dest, q.query); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// GetRelatedProducts returns up to limit other products of the same seller
// and up to limit products in the same category from other sellers.
func (s *Store) GetRelatedProducts(ctx context.Context, product *models.Product, limit int) (sellerOther, similar []models.Product, err error) {
	sellerOther = []models.Product{}
	err = s.db.SelectContext(ctx, &sellerOther,
		"SELECT * FROM products WHERE seller_id = $1 AND id != $2 ORDER BY created_at DESC LIMIT $3",
		product.SellerID, product.ID, limit)
	if err != nil {
		return nil, nil, err
	}
	if sellerOther, err = s.attachImages(ctx, sellerOther); err != nil {
		return nil, nil, err
	}

	similar = []models.Product{}
	err = s.db.SelectContext(ctx, &similar,
		"SELECT * FROM products WHERE category = $1 AND id != $2 ORDER BY created_at DESC LIMIT $3",
		product.Category, product.ID, limit)
	if err != nil {
		return nil, nil, err
	}
	if similar, err = s.attachImages(ctx, similar); err != nil {
		return nil, nil, err
	}
	return sellerOther, similar, nil
}
