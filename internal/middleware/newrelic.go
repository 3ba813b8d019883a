package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// NewRelicAttributes annotates the New Relic transaction started by
// nrgin.Middleware with the caller and reports handler errors on it. It is a
// no-op when New Relic is disabled.
func NewRelicAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		txn := nrgin.Transaction(c)
		if txn == nil {
			c.Next()
			return
		}

		if identity, ok := IdentityFrom(c); ok {
			txn.AddAttribute("user_id", identity.ID)
			txn.AddAttribute("role", string(identity.Role))
		}
		if rideID := c.Param("id"); rideID != "" {
			txn.AddAttribute("resource_id", rideID)
		}

		c.Next()

		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
	}
}
