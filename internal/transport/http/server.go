package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/messageme/messageme-server/internal/auth"
	"github.com/messageme/messageme-server/internal/config"
	"github.com/messageme/messageme-server/internal/core"
	"github.com/messageme/messageme-server/internal/store"
)

// NewServer builds an HTTP server with the REST API and websocket endpoint.
func NewServer(engine *core.Engine, authService *auth.Service, st store.Store, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	apiHandlers := NewAPIHandlers(authService, logger)
	userHandlers := NewUserHandlers(st, logger)
	groupHandlers := NewGroupHandlers(st, logger)
	messageHandlers := NewMessageHandlers(st, logger)

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	router.GET("/ws", gin.WrapH(NewWSHandler(engine, logger)))

	api := router.Group("/api")
	api.POST("/register", apiHandlers.Register)
	api.POST("/login", apiHandlers.Login)

	authorized := api.Group("")
	authorized.Use(AuthMiddleware(authService, logger))
	{
		authorized.GET("/users", userHandlers.ListUsers)
		authorized.GET("/users/:id", userHandlers.GetUser)
		authorized.GET("/users/:id/messages", messageHandlers.GetConversation)

		authorized.GET("/groups", groupHandlers.ListGroups)
		authorized.POST("/groups", groupHandlers.CreateGroup)
		authorized.GET("/groups/:id", groupHandlers.GetGroup)
		authorized.POST("/groups/:id/members", groupHandlers.JoinGroup)
		authorized.DELETE("/groups/:id/members", groupHandlers.LeaveGroup)

		authorized.GET("/messages", messageHandlers.ListMessages)
		authorized.POST("/messages", messageHandlers.SendMessage)
		authorized.DELETE("/messages/:id", messageHandlers.DeleteMessage)
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
