package auth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"socialboard/internal/config"
	"socialboard/internal/database"
	"socialboard/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testSecret = "0123456789abcdef0123456789abcdef" // 32 bytes, test only

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testDBPath := filepath.Join(t.TempDir(), "test_auth.db")

	cfg := config.DatabaseConfig{
		Path:    testDBPath,
		LogMode: false,
	}

	db, err := database.Init(cfg)
	if err != nil {
		t.Fatalf("Init test database failed: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Token{},
	); err != nil {
		t.Fatalf("AutoMigrate failed: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		_ = os.Remove(testDBPath)
	})

	return db
}

func newTestSigner(t *testing.T, ttl time.Duration) *Signer {
	t.Helper()
	s, err := NewSigner([]byte(testSecret), ttl, "socialboard-test")
	if err != nil {
		t.Fatalf("NewSigner failed: %v", err)
	}
	return s
}

func seedUser(t *testing.T, db *gorm.DB, username, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{
		Username:     username,
		PasswordHash: string(hash),
		DisplayName:  fmt.Sprintf("%s display", username),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func newTestManager(t *testing.T, db *gorm.DB, ttl time.Duration) *Manager {
	t.Helper()
	return NewManager(NewGormUserStore(db), newTestSigner(t, ttl), NewGormTokenStore(db))
}

func countTokens(t *testing.T, db *gorm.DB, userID uint) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.Token{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		t.Fatalf("count tokens: %v", err)
	}
	return n
}

var testCtx = context.Background()
