package api

import (
	"net/http"

	"marketplace-service/internal/service"

	"github.com/gin-gonic/gin"
)

// submitOffer lets a buyer propose a price for a product
func (h *Handler) submitOffer(c *gin.Context) {
	productID, ok := pathID(c)
	if !ok {
		return
	}

	var req service.SubmitOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	offer, err := h.negotiation.SubmitOffer(c.Request.Context(), currentUserID(c), productID, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, offer)
}

type respondRequest struct {
	Response string `json:"response"`
}

// acceptOffer lets the owning seller accept a pending offer. Every sibling
// pending offer on the product is rejected in the same transaction.
func (h *Handler) acceptOffer(c *gin.Context) {
	offerID, ok := pathID(c)
	if !ok {
		return
	}

	var req respondRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}

	offer, err := h.negotiation.AcceptOffer(c.Request.Context(), offerID, currentUserID(c), req.Response)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, offer)
}

// rejectOffer lets the owning seller reject a pending offer
func (h *Handler) rejectOffer(c *gin.Context) {
	offerID, ok := pathID(c)
	if !ok {
		return
	}

	var req respondRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}

	offer, err := h.negotiation.RejectOffer(c.Request.Context(), offerID, currentUserID(c), req.Response)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, offer)
}

// listSellerOffers returns the seller's received offers with stats
func (h *Handler) listSellerOffers(c *gin.Context) {
	result, err := h.negotiation.ListSellerOffers(
		c.Request.Context(), currentUserID(c), c.Query("status"), c.Query("sort"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// listBuyerOffers returns the buyer's submitted offers, newest first
func (h *Handler) listBuyerOffers(c *gin.Context) {
	offers, err := h.negotiation.ListBuyerOffers(
		c.Request.Context(), currentUserID(c), c.Query("status"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"offers": offers})
}

// listSellerSales returns the seller's sale history and totals
func (h *Handler) listSellerSales(c *gin.Context) {
	result, err := h.sales.ListSellerSales(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
