package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"signalstore/internal/engine"
	"signalstore/internal/models"
	apperrors "signalstore/pkg/errors"
)

// handlers holds the one dependency every endpoint needs: a handle onto
// the engine's serialized command queue. There is no per-request state
// beyond what gin's Context already carries.
type handlers struct {
	engine *engine.AsyncEngine
	logger *slog.Logger
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) postResource(c *gin.Context) {
	var r models.Resource
	if err := c.ShouldBindJSON(&r); err != nil {
		respondError(c, apperrors.WrapValidationError(err, "invalid request body"))
		return
	}
	stored, err := h.engine.InsertResource(c.Request.Context(), &r)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, stored)
}

func (h *handlers) postSpan(c *gin.Context) {
	var s models.Span
	if err := c.ShouldBindJSON(&s); err != nil {
		respondError(c, apperrors.WrapValidationError(err, "invalid request body"))
		return
	}
	stored, err := h.engine.InsertSpan(c.Request.Context(), &s)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, stored)
}

func (h *handlers) postEvent(c *gin.Context) {
	var e models.Event
	if err := c.ShouldBindJSON(&e); err != nil {
		respondError(c, apperrors.WrapValidationError(err, "invalid request body"))
		return
	}
	stored, err := h.engine.InsertEvent(c.Request.Context(), &e)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, stored)
}

func (h *handlers) postQuerySpans(c *gin.Context) {
	var q engine.Query
	if err := c.ShouldBindJSON(&q); err != nil {
		respondError(c, apperrors.WrapValidationError(err, "invalid request body"))
		return
	}
	views, err := h.engine.QuerySpan(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	count, err := h.engine.QuerySpanCount(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"spans": views, "count": count})
}

func (h *handlers) postQueryEvents(c *gin.Context) {
	var q engine.Query
	if err := c.ShouldBindJSON(&q); err != nil {
		respondError(c, apperrors.WrapValidationError(err, "invalid request body"))
		return
	}
	views, err := h.engine.QueryEvent(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	count, err := h.engine.QueryEventCount(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": views, "count": count})
}
