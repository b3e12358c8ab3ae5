package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ikkim/udonggeum-storefront/config"
)

const CartSessionKey = "cart_session_id"

// CartSession makes sure every request carries a cart session cookie. Guests
// and signed-in users alike get their cart through it.
func CartSession(cfg config.CartConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(cfg.CookieName)
		if err != nil || uuid.Validate(sessionID) != nil {
			sessionID = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cfg.CookieName, sessionID, int(cfg.Retention.Seconds()), "/", "", cfg.CookieSecure, true)

			GetLoggerFromContext(c).Debug("Issued cart session", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
		}
		c.Set(CartSessionKey, sessionID)
		c.Next()
	}
}

// GetCartSessionID returns the cart session of the request
func GetCartSessionID(c *gin.Context) string {
	return c.GetString(CartSessionKey)
}
