package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/psalsa30/unithrift/internal/domain"
)

// writeError отвечает {"error": ...}; failureMsg - текст ответа 500 для конкретной операции.
func (s *server) writeError(c *gin.Context, err error, failureMsg string) {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	case domain.KindInvalidInput:
		msg := "Invalid input"
		if errors.Is(err, domain.ErrInvalidStatus) {
			msg = "Invalid status"
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
	default:
		s.logger.WithError(err).WithField("request_id", c.GetString(ctxRequestID)).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": failureMsg})
	}
}
