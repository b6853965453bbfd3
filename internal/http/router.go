package http

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"diet-coach/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	jwtSvc *service.JWTService,
	userH *UserHandler,
	chatH *ChatHandler,
	progressH *ProgressHandler,
	mealH *MealHandler,
	uploadDir string,
	uploadPath string,
) *gin.Engine {
	r := gin.New()
	r.Use(zapLoggerMiddleware(logger), gin.Recovery())

	// Los blobs se sirven con su propio Content-Type.
	if uploadDir != "" && strings.HasPrefix(uploadPath, "/") {
		r.Static(uploadPath, uploadDir)
	}

	api := r.Group("/", jsonContentTypeMiddleware())

	auth := api.Group("/auth")
	auth.POST("/signup", userH.Signup)
	auth.POST("/login", userH.Login)
	auth.POST("/refresh", userH.Refresh)

	private := api.Group("/", SessionAuthMiddleware(jwtSvc))
	private.POST("/auth/logout", userH.Logout)
	private.GET("/me", userH.Me)
	private.PATCH("/me/profile", userH.UpdateProfile)

	private.GET("/chat/messages", chatH.ListMessages)
	private.POST("/chat/messages", chatH.PostMessage)
	private.POST("/chat/images", chatH.PostImage)

	private.GET("/progress/today", progressH.Today)
	private.POST("/progress/today/toggle", progressH.Toggle)
	private.GET("/dashboard", progressH.Dashboard)

	private.POST("/meals", mealH.Create)
	private.GET("/meals", mealH.List)

	// SSE fuera del grupo JSON.
	r.GET("/chat/stream", SessionAuthMiddleware(jwtSvc), chatH.Stream)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
