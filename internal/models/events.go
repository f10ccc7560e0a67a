package models

import "time"

// Event types
const (
	EventTypeOfferSubmitted = "OFFER_SUBMITTED"
	EventTypeOfferAccepted  = "OFFER_ACCEPTED"
	EventTypeOfferRejected  = "OFFER_REJECTED"
	EventTypeSaleRecorded   = "SALE_RECORDED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OfferSubmittedEvent published when a buyer submits an offer
type OfferSubmittedEvent struct {
	BaseEvent
	OfferID   int64   `json:"offer_id"`
	ProductID int64   `json:"product_id"`
	BuyerID   int64   `json:"buyer_id"`
	SellerID  int64   `json:"seller_id"`
	Amount    float64 `json:"amount"`
}

// OfferAcceptedEvent published when a seller accepts an offer. The sale
// worker turns it into a Sale Ledger row.
type OfferAcceptedEvent struct {
	BaseEvent
	OfferID          int64   `json:"offer_id"`
	ProductID        int64   `json:"product_id"`
	BuyerID          int64   `json:"buyer_id"`
	SellerID         int64   `json:"seller_id"`
	Amount           float64 `json:"amount"`
	ProductDiscount  float64 `json:"product_discount"`
	RejectedSiblings int     `json:"rejected_siblings"`
}

// OfferRejectedEvent published when a seller rejects an offer
type OfferRejectedEvent struct {
	BaseEvent
	OfferID   int64 `json:"offer_id"`
	ProductID int64 `json:"product_id"`
	BuyerID   int64 `json:"buyer_id"`
	SellerID  int64 `json:"seller_id"`
}

// SaleRecordedEvent published after the sale worker appends a Sale row
type SaleRecordedEvent struct {
	BaseEvent
	SaleID   int64   `json:"sale_id"`
	OfferID  int64   `json:"offer_id"`
	SellerID int64   `json:"seller_id"`
	BuyerID  int64   `json:"buyer_id"`
	Price    float64 `json:"price"`
}
