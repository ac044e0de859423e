package http

import "github.com/gin-gonic/gin"

// Register attaches project routes to the given router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("", h.create)
	rg.GET("", h.list)
	rg.GET("/:id", h.get)
	rg.POST("/:id/answer", h.answer)
	rg.POST("/:id/skip-interview", h.skipInterview)
	rg.POST("/:id/requirements/approval", h.approveRequirements)
	rg.POST("/:id/code/approval", h.approveCode)
	rg.GET("/:id/files", h.files)
	rg.POST("/:id/export", h.export)
	rg.GET("/:id/events", h.stream)
}
