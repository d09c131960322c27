package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/collab-miniapp-api/internal/constants"
	apierrors "github.com/yukikurage/collab-miniapp-api/internal/errors"
	"golang.org/x/crypto/bcrypt"
)

// RequireBotKey guards the bot-to-backend endpoints with the shared API key.
// Only a bcrypt hash of the key is kept in memory. With no key configured
// every request is refused.
func RequireBotKey(apiKey string) gin.HandlerFunc {
	var hash []byte
	if apiKey != "" {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.DefaultCost)
		if err != nil {
			slog.Error("hash bot api key", "error", err)
			hash = nil
		}
	}

	return func(c *gin.Context) {
		if hash == nil {
			apierrors.ServiceUnavailable(c, "Bot API is not configured")
			return
		}

		provided := c.GetHeader(constants.HeaderBotAPIKey)
		if provided == "" || bcrypt.CompareHashAndPassword(hash, []byte(provided)) != nil {
			apierrors.Unauthorized(c, "Invalid bot API key")
			return
		}
		c.Next()
	}
}
