package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Ephemeral/internal/adapters/signal"
	"github.com/dkeye/Ephemeral/internal/app"
	"github.com/dkeye/Ephemeral/internal/config"
	"github.com/dkeye/Ephemeral/internal/core"
	"github.com/dkeye/Ephemeral/internal/domain"
)

const clientTokenKey = "client_token"

// ClientTokenMiddleware tags each browser with a stable token kept in the
// cookie session. It only correlates log lines; chat identity is the
// per-connection session id.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessions.Default(c)
		token, _ := s.Get(clientTokenKey).(string)
		if token == "" {
			token = uuid.NewString()
			s.Set(clientTokenKey, token)
			if err := s.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("client token not saved")
			}
		}
		c.Set(clientTokenKey, token)
		c.Next()
	}
}

type roomView struct {
	ID          domain.RoomID    `json:"roomId"`
	State       domain.RoomState `json:"state"`
	MemberCount int              `json:"userCount"`
	ExpiresAt   int64            `json:"expiresAt"`
}

func SetupRouter(ctx context.Context, cfg *config.Config, reg *app.Registry, store core.MessageStore, ctrl *signal.SignalWSController) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	cs := cookie.NewStore([]byte(cfg.Secret))
	cs.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions("EphemeralSessions", cs))
	r.Use(ClientTokenMiddleware())

	if cfg.StaticPath != "" {
		r.Static("/static", cfg.StaticPath)
		r.GET("/", func(c *gin.Context) {
			c.File(cfg.StaticPath + "/index.html")
		})
	}

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	api.GET("/ws", func(c *gin.Context) {
		ctrl.HandleSignal(ctx, c)
	})

	api.GET("/health", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			log.Warn().Err(err).Str("module", "adapters.http").Msg("health: store unavailable")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "store": err.Error(), "rooms": reg.Count()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "rooms": reg.Count()})
	})

	api.GET("/rooms/:id", func(c *gin.Context) {
		info, ok := reg.Info(domain.RoomID(c.Param("id")))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrRoomNotFound.Error()})
			return
		}
		c.JSON(http.StatusOK, roomView{
			ID:          info.ID,
			State:       info.State,
			MemberCount: info.MemberCount,
			ExpiresAt:   info.ExpiresAt.UnixMilli(),
		})
	})

	return r
}
