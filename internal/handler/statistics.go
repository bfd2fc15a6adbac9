package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) systemStatistics(c *gin.Context) {
	stats, err := h.stats.System(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) sessionStatistics(c *gin.Context) {
	stats, err := h.stats.Session(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) studentStatistics(c *gin.Context) {
	stats, err := h.stats.Student(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) courseStatistics(c *gin.Context) {
	stats, err := h.stats.Course(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
