package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// NewRelicAttributes tags the transaction started by nrgin with the caller and request id,
// and reports handler errors collected on the context.
func NewRelicAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		txn := nrgin.Transaction(c)
		if txn == nil {
			c.Next()
			return
		}

		if rid := RequestIDFrom(c); rid != "" {
			txn.AddAttribute("request.id", rid)
		}

		c.Next()

		// Authenticate runs inside the route group, so the actor is only known afterwards.
		if actor := ActorFrom(c); actor.ID != "" {
			txn.AddAttribute("actor.id", actor.ID)
			txn.AddAttribute("actor.role", string(actor.Role))
		}

		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
	}
}
