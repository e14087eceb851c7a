package router

import (
	"fmt"
	"time"

	"socialboard/internal/auth"
	"socialboard/internal/config"
	"socialboard/internal/handler"
	"socialboard/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// SetupRouter configures the Gin engine and wires the auth core into the
// HTTP surface.
func SetupRouter(cfg *config.Config, db *gorm.DB) (*gin.Engine, error) {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), middleware.MetricsMiddleware())

	ttl := time.Duration(cfg.JWT.ExpireHours) * time.Hour
	signer, err := auth.NewSigner([]byte(cfg.JWT.Secret), ttl, cfg.JWT.Issuer)
	if err != nil {
		return nil, fmt.Errorf("new signer: %w", err)
	}

	tokens, err := buildTokenStore(cfg.TokenStore, db)
	if err != nil {
		return nil, err
	}

	users := auth.NewGormUserStore(db)
	manager := auth.NewManager(users, signer, tokens)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ====== API ======
	api := r.Group("/api")

	// no auth required
	authHandler := handler.NewAuthHandler(db, manager, cfg.Security.BcryptCost)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	// authenticated endpoints
	protected := api.Group("")
	protected.Use(
		middleware.AuthMiddleware(manager, db),
		middleware.AuditMiddleware(db, cfg.Security.EncryptionKey),
	)

	protected.POST("/auth/logout", authHandler.Logout)
	protected.GET("/me", authHandler.Me)

	postHandler := handler.NewPostHandler(db, cfg.App.PageSize)
	protected.POST("/posts", postHandler.CreatePost)
	protected.GET("/posts", postHandler.ListPosts)
	protected.POST("/posts/:id/like", postHandler.LikePost)

	exportHandler := handler.NewExportHandler(db)
	protected.GET("/export/posts.csv", exportHandler.ExportCSV)
	protected.GET("/export/posts.xlsx", exportHandler.ExportXLSX)

	return r, nil
}

func buildTokenStore(cfg config.TokenStoreConfig, db *gorm.DB) (auth.TokenStore, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return auth.NewGormTokenStore(db), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		return auth.NewRedisTokenStore(client), nil
	default:
		return nil, fmt.Errorf("unknown token store driver %q", cfg.Driver)
	}
}
