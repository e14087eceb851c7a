package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"socialboard/internal/config"
	"socialboard/internal/database"
	"socialboard/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func setupTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Server: config.ServerConfig{Mode: gin.TestMode},
		Database: config.DatabaseConfig{
			Path: filepath.Join(t.TempDir(), "router_test.db"),
		},
		JWT: config.JWTConfig{
			Secret:      "0123456789abcdef0123456789abcdef",
			Issuer:      "socialboard-test",
			ExpireHours: 24,
		},
		TokenStore: config.TokenStoreConfig{Driver: "sqlite"},
		Security:   config.SecurityConfig{BcryptCost: 4, EncryptionKey: "test-key"},
		App:        config.AppSubConfig{PageSize: 10},
	}

	db, err := database.Init(cfg.Database)
	if err != nil {
		t.Fatalf("init database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	r, err := SetupRouter(cfg, db)
	if err != nil {
		t.Fatalf("setup router: %v", err)
	}
	return r, db
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func dataField(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope struct {
		Code int                    `json:"code"`
		Data map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return envelope.Data
}

func TestFullSessionFlow(t *testing.T) {
	r, _ := setupTestRouter(t)

	// register
	w := doJSON(t, r, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice",
		"password": "Password1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("register status = %d, body %s", w.Code, w.Body.String())
	}

	// login
	w = doJSON(t, r, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice",
		"password": "Password1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", w.Code, w.Body.String())
	}
	token, _ := dataField(t, w)["token"].(string)
	if token == "" {
		t.Fatal("login returned no token")
	}

	// me
	w = doJSON(t, r, http.MethodGet, "/api/me", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me status = %d, body %s", w.Code, w.Body.String())
	}

	// create a post
	w = doJSON(t, r, http.MethodPost, "/api/posts", token, map[string]string{
		"content": "hello feed",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("create post status = %d, body %s", w.Code, w.Body.String())
	}

	// like it
	w = doJSON(t, r, http.MethodPost, "/api/posts/1/like", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("like status = %d, body %s", w.Code, w.Body.String())
	}
	post, _ := dataField(t, w)["post"].(map[string]interface{})
	if likes, _ := post["likes_count"].(float64); likes != 1 {
		t.Errorf("likes_count = %v, want 1", post["likes_count"])
	}

	// list
	w = doJSON(t, r, http.MethodGet, "/api/posts", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d, body %s", w.Code, w.Body.String())
	}

	// logout, then the token must stop working
	w = doJSON(t, r, http.MethodPost, "/api/auth/logout", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("logout status = %d, body %s", w.Code, w.Body.String())
	}
	w = doJSON(t, r, http.MethodGet, "/api/me", token, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("me after logout status = %d, want 401", w.Code)
	}
}

func TestLoginFailuresLookIdentical(t *testing.T) {
	r, _ := setupTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "bob",
		"password": "Password1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("register status = %d", w.Code)
	}

	wrongPw := doJSON(t, r, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "bob",
		"password": "wrong-Pw1",
	})
	unknownUser := doJSON(t, r, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "nobody",
		"password": "wrong-Pw1",
	})

	if wrongPw.Code != http.StatusUnauthorized || unknownUser.Code != http.StatusUnauthorized {
		t.Fatalf("statuses = %d / %d, want 401 / 401", wrongPw.Code, unknownUser.Code)
	}
	// identical bodies, so responses cannot be used to enumerate accounts
	if wrongPw.Body.String() != unknownUser.Body.String() {
		t.Errorf("wrong-password and unknown-user responses differ:\n%s\n%s",
			wrongPw.Body.String(), unknownUser.Body.String())
	}
}

func TestSecondLoginInvalidatesFirstSession(t *testing.T) {
	r, _ := setupTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "carol",
		"password": "Password1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("register status = %d", w.Code)
	}

	login := func() string {
		w := doJSON(t, r, http.MethodPost, "/api/auth/login", "", map[string]string{
			"username": "carol",
			"password": "Password1",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("login status = %d", w.Code)
		}
		token, _ := dataField(t, w)["token"].(string)
		return token
	}

	t1 := login()
	t2 := login()
	if t1 == t2 {
		t.Fatal("two logins returned the same token")
	}

	if w := doJSON(t, r, http.MethodGet, "/api/me", t1, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("old session status = %d, want 401", w.Code)
	}
	if w := doJSON(t, r, http.MethodGet, "/api/me", t2, nil); w.Code != http.StatusOK {
		t.Errorf("new session status = %d, want 200", w.Code)
	}
}

func TestStoreFaultMapsTo500(t *testing.T) {
	r, db := setupTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "dave",
		"password": "Password1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("register status = %d", w.Code)
	}
	w = doJSON(t, r, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "dave",
		"password": "Password1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d", w.Code)
	}
	token, _ := dataField(t, w)["token"].(string)

	// kill the store: subsequent requests hit a server-side fault,
	// which must surface as a 5xx, never as a 401
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	if err := sqlDB.Close(); err != nil {
		t.Fatalf("close db: %v", err)
	}

	if w := doJSON(t, r, http.MethodGet, "/api/me", token, nil); w.Code != http.StatusInternalServerError {
		t.Errorf("me with dead store status = %d, want 500", w.Code)
	}
	if w := doJSON(t, r, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "dave",
		"password": "Password1",
	}); w.Code != http.StatusInternalServerError {
		t.Errorf("login with dead store status = %d, want 500", w.Code)
	}
}

func TestLoginRecordsLastLogin(t *testing.T) {
	r, db := setupTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "erin",
		"password": "Password1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("register status = %d, body %s", w.Code, w.Body.String())
	}

	var before models.User
	if err := db.Where("username = ?", "erin").First(&before).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if before.LastLoginAt != nil {
		t.Fatal("fresh user already has a last login timestamp")
	}

	w = doJSON(t, r, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "erin",
		"password": "Password1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", w.Code, w.Body.String())
	}

	var after models.User
	if err := db.Where("username = ?", "erin").First(&after).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if after.LastLoginAt == nil {
		t.Fatal("login did not record last login time")
	}
	if after.LastLoginIP == "" {
		t.Error("login did not record last login IP")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := setupTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
	if w.Body.Len() == 0 {
		t.Error("metrics body is empty")
	}
}
