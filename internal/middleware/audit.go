package middleware

import (
	"bytes"
	"encoding/base64"
	"io"
	"log"

	"socialboard/internal/models"
	"socialboard/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func encryptField(encryptKey, plain string) (string, error) {
	if plain == "" || encryptKey == "" {
		return plain, nil
	}
	b, err := util.EncryptAES(encryptKey, []byte(plain))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// AuditMiddleware records authenticated requests. The action (method, path
// and a bounded copy of the body) is stored encrypted; tokens never reach
// the body of these endpoints, and the Authorization header is not logged.
func AuditMiddleware(db *gorm.DB, encryptKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var userID uint
		if v, ok := c.Get("currentUser"); ok {
			if user, ok := v.(*models.User); ok && user != nil {
				userID = user.ID
			}
		}

		var bodyBytes []byte
		if c.Request.Body != nil {
			bodyBytes, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}

		c.Next()

		// only record operations of logged-in users
		if userID == 0 {
			return
		}

		path := c.Request.URL.Path
		action := c.Request.Method + " " + path
		if len(bodyBytes) > 0 && len(bodyBytes) < 2000 {
			action += " " + string(bodyBytes)
		}

		encAction, err := encryptField(encryptKey, action)
		if err != nil {
			// keep the row, but a broken audit cipher must not stay invisible
			log.Printf("audit: encrypt action: %v", err)
		}

		entry := models.AuditLog{
			UserID:    &userID,
			Method:    c.Request.Method,
			Path:      path,
			ActionEnc: encAction,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}

		_ = db.Create(&entry).Error
	}
}
