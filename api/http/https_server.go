package http

import (
	"net/http"
	"strconv"
	"time"

	"Herald/internal/config"
	jwtMiddleware "Herald/internal/middleware/jwt"
	secureMiddleware "Herald/internal/middleware/secure"
	"Herald/internal/modules/notification/domain/entity"
	handler "Herald/internal/modules/notification/interface/http"
	"Herald/pkg/util/myjwt"

	cors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers is everything the router mounts. MCP may be nil when the tool
// surface is disabled.
type Handlers struct {
	Notification *handler.NotificationHandler
	Follow       *handler.FollowHandler
	Announcement *handler.AnnouncementHandler
	Stream       *handler.StreamHandler
	Health       *handler.HealthHandler
	MCP          http.Handler
}

func NewEngine(conf config.MainConfig, signer *myjwt.Signer, h Handlers) *gin.Engine {
	GE := gin.Default()

	corsConfig := cors.DefaultConfig()
	if len(conf.AllowOrigins) > 0 {
		corsConfig.AllowOrigins = conf.AllowOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Mcp-Session-Id"}
	corsConfig.MaxAge = 12 * time.Hour
	GE.Use(cors.New(corsConfig))
	GE.Use(secureMiddleware.Handler(secureMiddleware.Options{
		SSLRedirect: conf.SSLRedirect,
		SSLHost:     conf.Host + ":" + strconv.Itoa(conf.Port),
		IsDev:       gin.Mode() != gin.ReleaseMode,
	}))

	GE.GET("/health", h.Health.Health)

	api := GE.Group("/api/v1")

	// EventSource / WebSocket 无法自定义 Header，允许 ?token=
	live := api.Group("/notifications")
	live.Use(jwtMiddleware.Auth(signer, true))
	live.GET("/stream", h.Stream.SSE)
	live.GET("/ws", h.Stream.WS)

	authed := api.Group("/")
	authed.Use(jwtMiddleware.Auth(signer, false))
	authed.GET("/notifications", h.Notification.GetFeed)
	authed.GET("/notifications/following", h.Notification.GetFollowingFeed)
	authed.GET("/notifications/unread-count", h.Notification.UnreadCount)
	authed.POST("/notifications/:id/read", h.Notification.MarkRead)
	authed.POST("/notifications/read-all", h.Notification.MarkAllRead)
	authed.POST("/follows/:personId", h.Follow.Follow)
	authed.DELETE("/follows/:personId", h.Follow.Unfollow)
	authed.GET("/announcements/timeline", h.Announcement.Timeline)

	producers := authed.Group("/")
	producers.Use(jwtMiddleware.RequireRole(entity.RoleAdmin, entity.RoleService))
	producers.POST("/notifications", h.Notification.Create)

	admin := authed.Group("/admin")
	admin.Use(jwtMiddleware.RequireRole(entity.RoleAdmin))
	admin.POST("/announcements", h.Announcement.Create)
	admin.GET("/announcements", h.Announcement.List)
	admin.POST("/announcements/:id/archive", h.Announcement.Archive)

	if h.MCP != nil {
		mcp := GE.Group("/mcp")
		mcp.Use(jwtMiddleware.Auth(signer, false), jwtMiddleware.RequireRole(entity.RoleAdmin, entity.RoleService))
		mcp.Any("", gin.WrapH(h.MCP))
	}

	return GE
}
