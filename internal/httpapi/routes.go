package httpapi

import (
	"github.com/gin-gonic/gin"
)

// Mount registers the public auth routes and the protected call, chat and
// user routes on r.
func Mount(r gin.IRouter, h Handlers, authMW gin.HandlerFunc, chatLimiter *RateLimiter) {
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.DELETE("/login", h.Logout)
	}

	protected := r.Group("")
	protected.Use(authMW)
	{
		protected.POST("/call", h.CreateCall)
		protected.PUT("/call", h.UpdateCall)
		protected.GET("/call", h.ListCalls)

		chatRoutes := []gin.HandlerFunc{}
		if chatLimiter != nil {
			chatRoutes = append(chatRoutes, Limit(chatLimiter))
		}
		protected.GET("/chat", append(chatRoutes, h.GetMessages)...)
		protected.POST("/chat", append(chatRoutes, h.SendMessage)...)

		protected.GET("/users", h.ListUsers)
	}
}
