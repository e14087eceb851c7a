package middleware

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"socialboard/internal/config"
	"socialboard/internal/database"
	"socialboard/internal/models"
	"socialboard/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func setupAuditDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := config.DatabaseConfig{
		Path: filepath.Join(t.TempDir(), "audit_test.db"),
	}
	db, err := database.Init(cfg)
	if err != nil {
		t.Fatalf("Init test database failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.AuditLog{}); err != nil {
		t.Fatalf("AutoMigrate failed: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestAuditMiddleware_RecordsEncryptedAction(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupAuditDB(t)
	const encryptKey = "audit-test-key"

	user := &models.User{Username: "alice", PasswordHash: "x"}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("currentUser", user)
	}, AuditMiddleware(db, encryptKey))
	r.POST("/api/posts", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(`{"content":"hi"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var entry models.AuditLog
	if err := db.First(&entry).Error; err != nil {
		t.Fatalf("no audit row written: %v", err)
	}
	if entry.UserID == nil || *entry.UserID != user.ID {
		t.Errorf("audit row user = %v, want %d", entry.UserID, user.ID)
	}
	if entry.Method != http.MethodPost || entry.Path != "/api/posts" {
		t.Errorf("audit row method/path = %s %s", entry.Method, entry.Path)
	}
	if entry.ActionEnc == "" {
		t.Fatal("audit row has empty encrypted action")
	}

	// the stored action must decrypt back to the request summary
	raw, err := base64.StdEncoding.DecodeString(entry.ActionEnc)
	if err != nil {
		t.Fatalf("decode action: %v", err)
	}
	plain, err := util.DecryptAES(encryptKey, raw)
	if err != nil {
		t.Fatalf("decrypt action: %v", err)
	}
	action := string(plain)
	if !strings.HasPrefix(action, "POST /api/posts") || !strings.Contains(action, `"content":"hi"`) {
		t.Errorf("decrypted action = %q", action)
	}
}

func TestAuditMiddleware_SkipsAnonymousRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupAuditDB(t)

	r := gin.New()
	r.Use(AuditMiddleware(db, "audit-test-key"))
	r.GET("/api/posts", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var n int64
	if err := db.Model(&models.AuditLog{}).Count(&n).Error; err != nil {
		t.Fatalf("count audit rows: %v", err)
	}
	if n != 0 {
		t.Errorf("anonymous request wrote %d audit rows, want 0", n)
	}
}
