package models

import (
	"database/sql"
	"time"
)

// User roles
const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
)

// Offer statuses. Expired is reserved in the schema; nothing transitions
// offers into it yet.
const (
	OfferStatusPending  = "pending"
	OfferStatusAccepted = "accepted"
	OfferStatusRejected = "rejected"
	OfferStatusExpired  = "expired"
)

// Sale statuses
const (
	SaleStatusPending   = "pending"
	SaleStatusCompleted = "completed"
	SaleStatusCancelled = "cancelled"
)

// Seller responses stamped by the system rather than typed by a seller.
const (
	ResponseOfferAccepted   = "Offer accepted"
	ResponseOfferRejected   = "Offer rejected"
	ResponseSiblingAccepted = "Another offer was accepted"
)

// User represents a registered buyer or seller
type User struct {
	ID           int64          `db:"id" json:"id"`
	Email        string         `db:"email" json:"email"`
	Username     string         `db:"username" json:"username"`
	PasswordHash string         `db:"password_hash" json:"-"`
	FirstName    string         `db:"first_name" json:"first_name"`
	LastName     string         `db:"last_name" json:"last_name"`
	Role         string         `db:"role" json:"role"`
	IsActive     bool           `db:"is_active" json:"is_active"`
	Address      sql.NullString `db:"address" json:"-"`
	City         sql.NullString `db:"city" json:"-"`
	ZipCode      sql.NullString `db:"zip_code" json:"-"`
	Phone        sql.NullString `db:"phone" json:"-"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

// Serialize returns the public view of a user (never the credential)
func (u *User) Serialize() map[string]interface{} {
	return map[string]interface{}{
		"id":         u.ID,
		"email":      u.Email,
		"username":   u.Username,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"role":       u.Role,
		"is_active":  u.IsActive,
	}
}

// Product is a clothing listing owned by one seller
type Product struct {
	ID          int64          `db:"id" json:"id"`
	Title       string         `db:"title" json:"title"`
	Description string         `db:"description" json:"description"`
	Category    string         `db:"category" json:"category"`
	Subcategory sql.NullString `db:"subcategory" json:"-"`
	Size        string         `db:"size" json:"size"`
	Brand       sql.NullString `db:"brand" json:"-"`
	Condition   string         `db:"condition" json:"condition"`
	Material    sql.NullString `db:"material" json:"-"`
	Color       sql.NullString `db:"color" json:"-"`
	Price       float64        `db:"price" json:"price"`
	Discount    float64        `db:"discount" json:"discount"`
	SellerID    int64          `db:"seller_id" json:"seller_id"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`

	Images []ProductImage `db:"-" json:"images"`
}

// ProductImage is one position-indexed image of a product
type ProductImage struct {
	ID        int64  `db:"id" json:"id"`
	URL       string `db:"url" json:"url"`
	ProductID int64  `db:"product_id" json:"-"`
	Position  int    `db:"position" json:"position"`
}

// ProductView is the serialized form of a product
type ProductView struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Subcategory *string        `json:"subcategory"`
	Size        string         `json:"size"`
	Brand       *string        `json:"brand"`
	Condition   string         `json:"condition"`
	Material    *string        `json:"material"`
	Color       *string        `json:"color"`
	Price       float64        `json:"price"`
	Discount    float64        `json:"discount"`
	SellerID    int64          `json:"seller_id"`
	CreatedAt   time.Time      `json:"created_at"`
	Images      []ProductImage `json:"images"`
}

// Serialize maps nullable columns to JSON nulls and keeps images ordered
func (p *Product) Serialize() ProductView {
	v := ProductView{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		Subcategory: nullableString(p.Subcategory),
		Size:        p.Size,
		Brand:       nullableString(p.Brand),
		Condition:   p.Condition,
		Material:    nullableString(p.Material),
		Color:       nullableString(p.Color),
		Price:       p.Price,
		Discount:    p.Discount,
		SellerID:    p.SellerID,
		CreatedAt:   p.CreatedAt,
		Images:      p.Images,
	}
	if v.Images == nil {
		v.Images = []ProductImage{}
	}
	return v
}

// Offer is a buyer's proposed price for a product. SellerID is copied from
// the product at creation time and never re-derived.
type Offer struct {
	ID             int64          `db:"id" json:"id"`
	ProductID      int64          `db:"product_id" json:"product_id"`
	BuyerID        int64          `db:"buyer_id" json:"buyer_id"`
	SellerID       int64          `db:"seller_id" json:"seller_id"`
	Amount         float64        `db:"amount" json:"amount"`
	Message        sql.NullString `db:"message" json:"-"`
	Status         string         `db:"status" json:"status"`
	SellerResponse sql.NullString `db:"seller_response" json:"-"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	RespondedAt    sql.NullTime   `db:"responded_at" json:"-"`
}

// Resolved reports whether the offer is in a terminal status
func (o *Offer) Resolved() bool {
	return o.Status != OfferStatusPending
}

// OfferDetail is an offer joined with the summaries its serialized form
// carries: product title/price/first image, buyer username and first name,
// seller username.
type OfferDetail struct {
	Offer
	ProductTitle   string         `db:"product_title"`
	ProductPrice   float64        `db:"product_price"`
	ProductImage   sql.NullString `db:"product_image"`
	BuyerUsername  string         `db:"buyer_username"`
	BuyerFirstName string         `db:"buyer_first_name"`
	SellerUsername string         `db:"seller_username"`
}

// OfferProductSummary is the product slice of a serialized offer
type OfferProductSummary struct {
	ID    int64   `json:"id"`
	Title string  `json:"title"`
	Price float64 `json:"price"`
	Image *string `json:"image"`
}

// OfferBuyerSummary is the buyer slice of a serialized offer
type OfferBuyerSummary struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

// OfferSellerSummary is the seller slice of a serialized offer
type OfferSellerSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// OfferView is the serialization contract for an offer
type OfferView struct {
	ID             int64               `json:"id"`
	Product        OfferProductSummary `json:"product"`
	Buyer          OfferBuyerSummary   `json:"buyer"`
	Seller         OfferSellerSummary  `json:"seller"`
	Amount         float64             `json:"amount"`
	Message        string              `json:"message"`
	Status         string              `json:"status"`
	SellerResponse *string             `json:"seller_response"`
	CreatedAt      time.Time           `json:"created_at"`
	RespondedAt    *time.Time          `json:"responded_at"`
}

// Serialize builds the wire form of a joined offer row
func (d *OfferDetail) Serialize() OfferView {
	return OfferView{
		ID: d.ID,
		Product: OfferProductSummary{
			ID:    d.ProductID,
			Title: d.ProductTitle,
			Price: d.ProductPrice,
			Image: nullableString(d.ProductImage),
		},
		Buyer: OfferBuyerSummary{
			ID:        d.BuyerID,
			Username:  d.BuyerUsername,
			FirstName: d.BuyerFirstName,
		},
		Seller: OfferSellerSummary{
			ID:       d.SellerID,
			Username: d.SellerUsername,
		},
		Amount:         d.Amount,
		Message:        d.Message.String,
		Status:         d.Status,
		SellerResponse: nullableString(d.SellerResponse),
		CreatedAt:      d.CreatedAt,
		RespondedAt:    nullableTime(d.RespondedAt),
	}
}

// OfferStats are per-status counts over a seller's full offer set,
// independent of any list filter.
type OfferStats struct {
	Pending  int `db:"pending" json:"pending"`
	Accepted int `db:"accepted" json:"accepted"`
	Rejected int `db:"rejected" json:"rejected"`
	Total    int `db:"total" json:"total"`
}

// Sale is an append-only record of a finalized negotiation
type Sale struct {
	ID        int64         `db:"id" json:"id"`
	OfferID   sql.NullInt64 `db:"offer_id" json:"-"`
	ProductID int64         `db:"product_id" json:"product_id"`
	SellerID  int64         `db:"seller_id" json:"seller_id"`
	BuyerID   int64         `db:"buyer_id" json:"buyer_id"`
	Price     float64       `db:"price" json:"price"`
	Discount  float64       `db:"discount" json:"discount"`
	Status    string        `db:"status" json:"status"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func nullableTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}
