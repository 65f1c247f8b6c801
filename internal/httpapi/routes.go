package httpapi

import "github.com/gin-gonic/gin"

func registerRoutes(r *gin.Engine, h *handlers) {
	r.GET("/healthz", h.health)

	v1 := r.Group("/v1")
	{
		v1.POST("/resources", h.postResource)
		v1.POST("/spans", h.postSpan)
		v1.POST("/events", h.postEvent)

		v1.POST("/query/spans", h.postQuerySpans)
		v1.POST("/query/events", h.postQueryEvents)

		v1.GET("/subscribe/spans", h.subscribeSpans)
		v1.GET("/subscribe/events", h.subscribeEvents)
	}
}
