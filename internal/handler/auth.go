package handler

import (
	"log"
	"net/http"
	"strings"
	"time"

	"socialboard/internal/auth"
	"socialboard/internal/middleware"
	"socialboard/internal/models"
	"socialboard/internal/util"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthHandler serves register/login/logout/me.
type AuthHandler struct {
	DB         *gorm.DB
	Manager    *auth.Manager
	BcryptCost int
}

func NewAuthHandler(db *gorm.DB, manager *auth.Manager, bcryptCost int) *AuthHandler {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = 12
	}
	return &AuthHandler{
		DB:         db,
		Manager:    manager,
		BcryptCost: bcryptCost,
	}
}

// ---------- register ----------

type registerReq struct {
	Username    string `json:"username" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name" binding:"max=64"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)

	if err := util.ValidateUsername(req.Username); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, err.Error())
		return
	}
	if err := util.ValidatePassword(req.Password); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, err.Error())
		return
	}

	// case-insensitive uniqueness
	var count int64
	if err := h.DB.Model(&models.User{}).
		Where("LOWER(username) = LOWER(?)", req.Username).
		Count(&count).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "user lookup failed")
		return
	}
	if count > 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "username already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.BcryptCost)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "password hashing failed")
		return
	}

	user := models.User{
		Username:     req.Username,
		PasswordHash: string(hash),
		DisplayName:  req.DisplayName,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "create user failed")
		return
	}

	util.Success(c, util.Response{
		"message": "registered",
		"user": gin.H{
			"id":           user.ID,
			"username":     user.Username,
			"display_name": user.DisplayName,
		},
	})
}

// ---------- login ----------

type loginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)

	token, err := h.Manager.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if auth.IsDataError(err) {
			middleware.LoginsTotal.WithLabelValues("error").Inc()
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "login failed")
			return
		}
		// credential failures look identical regardless of cause
		middleware.LoginsTotal.WithLabelValues("unauthorized").Inc()
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "invalid username or password")
		return
	}

	now := time.Now()
	if err := h.DB.Model(&models.User{}).
		Where("LOWER(username) = LOWER(?)", req.Username).
		Updates(map[string]interface{}{
			"last_login_at": now,
			"last_login_ip": c.ClientIP(),
		}).Error; err != nil {
		// the session is already minted; losing the stat must not fail the login
		log.Printf("update last login for %s: %v", req.Username, err)
	}

	middleware.LoginsTotal.WithLabelValues("ok").Inc()
	util.Success(c, util.Response{
		"token": token,
	})
}

// ---------- logout ----------

// Logout revokes every active session of the current user. Requires auth;
// revoking when nothing is active still succeeds.
func (h *AuthHandler) Logout(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	if err := h.Manager.Logout(c.Request.Context(), user.Username); err != nil {
		if auth.IsDataError(err) {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "logout failed")
			return
		}
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	util.Success(c, util.Response{
		"message": "logged out",
	})
}

// ---------- me ----------

// Me returns the current user and session claims (requires AuthMiddleware).
func (h *AuthHandler) Me(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	resp := util.Response{
		"user": gin.H{
			"id":           user.ID,
			"username":     user.Username,
			"display_name": user.DisplayName,
			"created_at":   user.CreatedAt,
		},
	}
	if v, ok := c.Get("sessionClaims"); ok {
		if claims, ok := v.(*auth.SessionClaims); ok {
			resp["session"] = gin.H{
				"subject":    claims.Subject,
				"issued_at":  claims.IssuedAt.Time,
				"expires_at": claims.ExpiresAt.Time,
			}
		}
	}
	util.Success(c, resp)
}

// currentUser pulls the authenticated user out of the gin context.
func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get("currentUser")
	if !ok {
		return nil
	}
	user, ok := v.(*models.User)
	if !ok {
		return nil
	}
	return user
}
