package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/psalsa30/unithrift/internal/catalog"
	"github.com/psalsa30/unithrift/internal/domain"
	"github.com/psalsa30/unithrift/internal/service/engine"
)

const checkoutHint = "Use POST /api/cart/checkout to place an order (with JSON body)."

type statusRequest struct {
	Status string `json:"status"`
}

func (s *server) listProducts(c *gin.Context) {
	c.JSON(http.StatusOK, catalog.Products())
}

func (s *server) getProduct(c *gin.Context) {
	product, ok := catalog.Find(c.Param("productId"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	c.JSON(http.StatusOK, product)
}

func (s *server) listOrders(c *gin.Context) {
	c.JSON(http.StatusOK, s.ledger.List(c.Request.Context()))
}

func (s *server) filterOrders(c *gin.Context) {
	var criteria engine.Criteria
	if err := c.ShouldBindQuery(&criteria); err != nil {
		s.writeError(c, errors.Join(domain.ErrInvalidInput, err), "Failed to filter orders")
		return
	}
	c.JSON(http.StatusOK, s.ledger.Filter(c.Request.Context(), criteria))
}

func (s *server) getOrder(c *gin.Context) {
	order, err := s.ledger.Get(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		s.writeError(c, err, "Failed to load order")
		return
	}
	c.JSON(http.StatusOK, order)
}

// updateStatus: тело без корректного status трактуется как недопустимый статус.
func (s *server) updateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req.Status = ""
	}

	order, err := s.ledger.SetStatus(c.Request.Context(), c.Param("orderId"), req.Status)
	if err != nil {
		s.writeError(c, err, "Failed to update order")
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *server) deleteOrder(c *gin.Context) {
	if err := s.ledger.Delete(c.Request.Context(), c.Param("orderId")); err != nil {
		s.writeError(c, err, "Failed to delete order")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order deleted successfully"})
}

func (s *server) checkoutHint(c *gin.Context) {
	c.String(http.StatusMethodNotAllowed, checkoutHint)
}

// checkout: пустое тело равносильно {}.
func (s *server) checkout(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	var in domain.CheckoutInput
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	order, err := s.ledger.Checkout(c.Request.Context(), in)
	if err != nil {
		s.writeError(c, err, "Failed to save order")
		return
	}
	c.JSON(http.StatusOK, order)
}
