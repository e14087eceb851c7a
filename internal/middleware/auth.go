package middleware

import (
	"net/http"
	"strings"

	"socialboard/internal/auth"
	"socialboard/internal/models"
	"socialboard/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AuthMiddleware verifies the session token and puts the current user into
// the context. Internally distinguishable failures (malformed, bad
// signature, expired, revoked) all collapse into the same 401 here; only
// store faults become a 500.
func AuthMiddleware(manager *auth.Manager, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenStr string

		// 1) Header: Authorization: Bearer xxx
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				tokenStr = parts[1]
			}
		}

		// 2) query param ?token=xxx (downloads and other header-less cases)
		if tokenStr == "" {
			tokenStr = c.Query("token")
		}

		// 3) cookie sb_token
		if tokenStr == "" {
			if cookie, err := c.Cookie("sb_token"); err == nil {
				tokenStr = cookie
			}
		}

		if tokenStr == "" {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
			c.Abort()
			return
		}

		claims, err := manager.Verify(c.Request.Context(), tokenStr)
		if err != nil {
			if auth.IsDataError(err) {
				VerificationsTotal.WithLabelValues("error").Inc()
				util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "session lookup failed")
			} else {
				VerificationsTotal.WithLabelValues("unauthorized").Inc()
				util.Error(c, http.StatusUnauthorized, util.CodeAuth, "invalid or expired session")
			}
			c.Abort()
			return
		}
		VerificationsTotal.WithLabelValues("ok").Inc()

		var user models.User
		if err := db.First(&user, claims.UserID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				util.Error(c, http.StatusUnauthorized, util.CodeAuth, "invalid or expired session")
			} else {
				util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "user lookup failed")
			}
			c.Abort()
			return
		}

		c.Set("currentUser", &user)
		c.Set("sessionClaims", claims)
		c.Next()
	}
}
