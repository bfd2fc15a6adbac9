package handler

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"qrattend/internal/attendance"
	"qrattend/internal/statscache"
)

// ---------- Courses ----------

type createCourseRequest struct {
	Code        string `json:"code" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

func (h *Handler) createCourse(c *gin.Context) {
	var req createCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	course, err := h.svc.CreateCourse(c.Request.Context(), attendance.Course{
		Code:        req.Code,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, course)
}

// ---------- Sessions ----------

type createSessionRequest struct {
	CourseID    string    `json:"courseId" binding:"required"`
	SessionDate string    `json:"sessionDate"`
	StartTime   time.Time `json:"startTime" binding:"required"`
	EndTime     time.Time `json:"endTime" binding:"required"`
}

func (h *Handler) createSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	date := req.StartTime.UTC().Truncate(24 * time.Hour)
	if req.SessionDate != "" {
		d, err := time.Parse(time.DateOnly, req.SessionDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sessionDate must be YYYY-MM-DD"})
			return
		}
		date = d
	}

	ctx := c.Request.Context()
	sess, err := h.svc.CreateSession(ctx, attendance.NewSession{
		CourseID:    req.CourseID,
		SessionDate: date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.stats.Invalidate(ctx, statscache.SystemKey(), statscache.CourseKey(sess.CourseID)); err != nil {
		log.Printf("invalidate stats after session %s: %v", sess.ID, err)
	}
	if err := h.stats.ExpireStudents(ctx); err != nil {
		log.Printf("expire student stats after session %s: %v", sess.ID, err)
	}
	c.JSON(http.StatusCreated, sess)
}

func (h *Handler) getSession(c *gin.Context) {
	sess, err := h.svc.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *Handler) listSessionsByCourse(c *gin.Context) {
	sessions, err := h.svc.ListSessionsByCourse(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// ---------- QR tokens ----------

func (h *Handler) generateQR(c *gin.Context) {
	validity := 0
	if v := c.Query("validityMinutes"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > attendance.MaxValidityMinutes {
			h.fail(c, attendance.ErrInvalidValidity)
			return
		}
		validity = n
	}

	grant, err := h.svc.GenerateToken(c.Request.Context(), c.Param("id"), validity)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.metrics.TokensGenerated.Inc()
	c.JSON(http.StatusOK, grant)
}
