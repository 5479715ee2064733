package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"signaling-relay/pkg/auth"
	"signaling-relay/pkg/logger"
	"signaling-relay/pkg/response"
)

// AuthMiddleware verifies the request credential before any handler runs.
// The credential comes from the Authorization header or the token query
// parameter. On success it sets user_id and email in the Gin context.
func AuthMiddleware(verifier auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		credential := auth.CredentialFromRequest(c.Request)

		identity, err := verifier.Verify(c.Request.Context(), credential)
		if err != nil {
			logger.FromContext(c.Request.Context()).Debug("Authentication failed",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err))
			response.FromError(c, err)
			c.Abort()
			return
		}

		c.Set("user_id", identity.UserID)
		c.Set("email", identity.Email)
		c.Next()
	}
}
