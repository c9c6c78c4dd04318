package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/psalsa30/unithrift/internal/service/analytics"
)

func (s *server) stats(c *gin.Context) {
	c.JSON(http.StatusOK, s.ledger.Stats(c.Request.Context()))
}

// revenueByDate принимает days - положительное целое, по умолчанию 30.
func (s *server) revenueByDate(c *gin.Context) {
	days := analytics.DefaultRevenueDays
	if raw, ok := c.GetQuery("days"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
			return
		}
		days = n
	}
	c.JSON(http.StatusOK, s.ledger.RevenueByDate(c.Request.Context(), days))
}

func (s *server) ordersByCategory(c *gin.Context) {
	c.JSON(http.StatusOK, s.ledger.OrdersByCategory(c.Request.Context()))
}

func (s *server) revenueByCampus(c *gin.Context) {
	c.JSON(http.StatusOK, s.ledger.RevenueByCampus(c.Request.Context()))
}

func (s *server) paymentMethods(c *gin.Context) {
	c.JSON(http.StatusOK, s.ledger.PaymentMethods(c.Request.Context()))
}
