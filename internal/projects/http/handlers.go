package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/codegen-backend/internal/logger"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/projects/domain"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/projects/service"
)

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Description) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "name and description are required"})
		return
	}

	p, err := h.svc.Start(c.Request.Context(), req.Name, req.Description, service.StartOptions{
		SkipInterview: req.SkipInterview,
		Provider:      req.Provider,
	})
	if err != nil {
		writeError(c, "projects.create", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "project": p})
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, "projects.list", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "projects": items})
}

func (h *Handler) get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "projects.get", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

func (h *Handler) answer(c *gin.Context) {
	var req answerReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Answer) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "answer is required"})
		return
	}
	p, err := h.svc.SubmitAnswer(c.Request.Context(), c.Param("id"), req.Answer)
	if err != nil {
		writeError(c, "projects.answer", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

func (h *Handler) skipInterview(c *gin.Context) {
	p, err := h.svc.SkipInterview(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "projects.skip_interview", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

func (h *Handler) approveRequirements(c *gin.Context) {
	approved, ok := bindApproval(c)
	if !ok {
		return
	}
	p, err := h.svc.ApproveRequirements(c.Request.Context(), c.Param("id"), approved)
	if err != nil {
		writeError(c, "projects.approve_requirements", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

func (h *Handler) approveCode(c *gin.Context) {
	approved, ok := bindApproval(c)
	if !ok {
		return
	}
	p, err := h.svc.ApproveCode(c.Request.Context(), c.Param("id"), approved)
	if err != nil {
		writeError(c, "projects.approve_code", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

func (h *Handler) files(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "projects.files", err)
		return
	}
	if p.Status != domain.StatusCompleted {
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": "generated code is available once the project is completed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "files": p.GeneratedCode})
}

func (h *Handler) export(c *gin.Context) {
	if h.exporter == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"ok": false, "error": "export is not configured"})
		return
	}
	p, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "projects.export", err)
		return
	}
	receipt, err := h.exporter.Export(c.Request.Context(), p)
	if err != nil {
		writeError(c, "projects.export", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "export": receipt})
}

// bindApproval reads {"approved": bool}; the field is required.
func bindApproval(c *gin.Context) (bool, bool) {
	var req approvalReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Approved == nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "approved is required"})
		return false, false
	}
	return *req.Approved, true
}

func writeError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "project not found"})
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrStaleState):
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": err.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
	default:
		logger.NewLogger(c.Request.Context()).WithProject(c.Param("id")).LogError(op, err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
	}
}
