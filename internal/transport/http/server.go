package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appsvc "aichat-backend/internal/app"
	"aichat-backend/internal/bootstrap"
	"aichat-backend/internal/cache"
	"aichat-backend/internal/platform/rabbitmq"
	"aichat-backend/internal/repository"
	"aichat-backend/internal/transport/http/handler"
	"aichat-backend/internal/transport/http/middleware"
	"aichat-backend/internal/transport/http/response"
)

type route struct {
	method    string
	path      string
	protected bool
	handle    gin.HandlerFunc
}

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(
		middleware.RequestID(),
		middleware.Logger(app.Logger),
		gin.Recovery(),
		middleware.CORS(app.Config.App.AllowedOrigins),
	)

	userRepo := repository.NewUserRepository(app.DB)
	historyRepo := repository.NewChatHistoryRepository(app.DB)
	authService := appsvc.NewAuthService(userRepo, app.Config.Auth.JWTSecret, app.Config.TokenTTL(), app.Logger)

	var chatOpts []appsvc.ChatOption
	if app.Redis != nil {
		chatOpts = append(chatOpts, appsvc.WithHistoryCache(cache.NewHistoryCache(app.Redis, app.Config.HistoryTTL(), app.Config.HistoryDirtyTTL())))
	}
	if app.MQConn != nil {
		chatOpts = append(chatOpts, appsvc.WithEventPublisher(rabbitmq.NewChatEventPublisher(app.MQConn, app.Config.RabbitMQ.ChatEventQueue)))
	}
	chatService := appsvc.NewChatService(historyRepo, app.LLM, app.Config.LLM.SystemPrompt, app.Logger, chatOpts...)

	healthHandler := handler.NewHealthHandler(app)
	authHandler := handler.NewAuthHandler(authService)
	chatHandler := handler.NewChatHandler(chatService)

	routes := []route{
		{method: http.MethodGet, path: "/health", handle: healthHandler.Check},
		{method: http.MethodGet, path: "/ready", handle: healthHandler.Ready},
		{method: http.MethodPost, path: "/register", handle: authHandler.Register},
		{method: http.MethodPost, path: "/login", handle: authHandler.Login},
		{method: http.MethodGet, path: "/auth/me", protected: true, handle: authHandler.Me},
		{method: http.MethodPost, path: "/chat", protected: true, handle: chatHandler.Chat},
		{method: http.MethodGet, path: "/chat/history", protected: true, handle: chatHandler.History},
	}

	authJWT := middleware.AuthJWT(app.Config.Auth.JWTSecret)
	api := router.Group("/api")
	for _, r := range routes {
		if r.protected {
			api.Handle(r.method, r.path, authJWT, r.handle)
		} else {
			api.Handle(r.method, r.path, r.handle)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, "not found")
	})
	router.NoMethod(func(c *gin.Context) {
		response.Error(c, http.StatusMethodNotAllowed, "method not allowed")
	})

	return router
}
