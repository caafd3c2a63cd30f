package auth

import "github.com/gin-gonic/gin"

// RegisterRoutes registers auth routes.
func RegisterRoutes(r *gin.Engine, handler *Handler, tokens *TokenService) {
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", handler.Register)
		authGroup.POST("/login", handler.Login)
		authGroup.GET("/me", Middleware(tokens), handler.Me)
	}
}
