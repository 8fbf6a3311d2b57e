package routes

import (
	"agendly/handlers"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires the messaging endpoints.
func RegisterRoutes(r *gin.Engine, mh *handlers.MessageHandler) {
	r.Use(cors.Default())

	r.GET("/healthz", mh.Health)

	api := r.Group("/api")
	{
		api.POST("/messages", mh.HandleInbound)
	}
}
