// Package handler exposes the attendance service over HTTP.
package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"qrattend/internal/attendance"
	"qrattend/internal/auth"
	"qrattend/internal/events"
	"qrattend/internal/metrics"
	"qrattend/internal/statscache"
)

// Handler holds the dependencies of the API routes.
type Handler struct {
	svc     *attendance.Service
	stats   *statscache.Reporter
	events  *events.Emitter
	metrics *metrics.Metrics
}

// New builds a Handler. emitter may be nil when no event queue is configured.
func New(svc *attendance.Service, stats *statscache.Reporter, emitter *events.Emitter, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, stats: stats, events: emitter, metrics: m}
}

// Register mounts the admin and attendance routes behind authn.
func (h *Handler) Register(r gin.IRouter, authn gin.HandlerFunc) {
	admin := r.Group("/api/admin", authn, auth.RequireRole(attendance.RoleAdmin))
	admin.POST("/courses", h.createCourse)
	admin.POST("/sessions", h.createSession)
	admin.GET("/sessions/:id", h.getSession)
	admin.GET("/sessions/course/:courseId", h.listSessionsByCourse)
	admin.POST("/sessions/:id/generate-qr", h.generateQR)

	att := r.Group("/api/attendance", authn)
	att.GET("/scan", h.scan)
	att.POST("/check-in", h.checkIn)

	adminOnly := auth.RequireRole(attendance.RoleAdmin)
	adminOrStudent := auth.RequireRole(attendance.RoleAdmin, attendance.RoleStudent)
	att.GET("/session/:id", adminOnly, h.listBySession)
	att.GET("/student/:id", adminOrStudent, h.ownStudentOnly, h.listByStudent)
	att.GET("/statistics", adminOnly, h.systemStatistics)
	att.GET("/statistics/session/:id", adminOnly, h.sessionStatistics)
	att.GET("/statistics/student/:id", adminOrStudent, h.ownStudentOnly, h.studentStatistics)
	att.GET("/statistics/course/:id", adminOnly, h.courseStatistics)
}

// ownStudentOnly restricts a STUDENT caller to their own :id.
func (h *Handler) ownStudentOnly(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	if claims.Role == attendance.RoleAdmin {
		c.Next()
		return
	}
	studentID, ok, err := h.svc.StudentIDFor(c.Request.Context(), claims.Username())
	if err != nil {
		h.fail(c, err)
		c.Abort()
		return
	}
	if !ok || studentID != c.Param("id") {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	c.Next()
}

func username(c *gin.Context) string {
	claims, _ := auth.ClaimsFrom(c)
	return claims.Username()
}

// fail writes err using the error kind to pick the status.
func (h *Handler) fail(c *gin.Context, err error) {
	switch attendance.KindOf(err) {
	case attendance.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": message(err)})
	case attendance.KindBadRequest:
		c.JSON(http.StatusBadRequest, gin.H{"error": message(err)})
	case attendance.KindUnauthorized:
		c.JSON(http.StatusUnauthorized, gin.H{"error": message(err)})
	default:
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func message(err error) string {
	var e *attendance.Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return err.Error()
}
