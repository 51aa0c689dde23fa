package coordinator

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/DrRago/YTSync-Plugin/internal/config"
)

// ClientTokenMiddleware gives every browser a stable token cookie. It is
// not the socketId: socketIds are minted per connection.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, ctl *Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("YTSyncSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)

	log.Info().Str("module", "coordinator.router").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	// A sharing session is created client-side; this endpoint just mints
	// the opaque token that gets round-tripped through join URLs.
	api.POST("/sessions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"token": uuid.NewString()})
	})

	api.GET("/ws/watch", func(c *gin.Context) {
		log.Info().Str("module", "coordinator.router").Str("ct", c.GetString("client_token")).Msg("watch endpoint hit")
		ctl.HandleWatch(ctx, c)
	})

	return r
}
