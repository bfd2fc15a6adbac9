package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"qrattend/internal/attendance"
	"qrattend/internal/metrics"
)

// ---------- Scan and check-in ----------

type scanQuery struct {
	SessionID string `form:"sessionId" binding:"required"`
	Token     string `form:"token"`
}

// scan answers 200 for a usable token and 400 with the same payload otherwise.
func (h *Handler) scan(c *gin.Context) {
	var q scanQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	v, err := h.svc.Verify(c.Request.Context(), q.SessionID, q.Token, username(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	if !v.Valid {
		result := "invalid"
		if v.Reason == attendance.ReasonExpiredToken {
			result = "expired"
		}
		h.metrics.Scans.WithLabelValues(result).Inc()
		c.JSON(http.StatusBadRequest, v)
		return
	}
	h.metrics.Scans.WithLabelValues("valid").Inc()
	c.JSON(http.StatusOK, v)
}

type checkInRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	QRToken   string `json:"qrToken" binding:"required"`
}

func (h *Handler) checkIn(c *gin.Context) {
	var req checkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	res, err := h.svc.CheckIn(ctx, req.SessionID, req.QRToken, username(c))
	if err != nil {
		outcome := metrics.OutcomeRejected
		if attendance.KindOf(err) == attendance.KindInternal {
			outcome = metrics.OutcomeError
		}
		h.metrics.CheckIns.WithLabelValues(outcome).Inc()
		h.fail(c, err)
		return
	}

	outcome := metrics.OutcomePresent
	if res.Attendance.Status == attendance.StatusLate {
		outcome = metrics.OutcomeLate
	}
	h.metrics.CheckIns.WithLabelValues(outcome).Inc()
	h.events.CheckedIn(ctx, res)

	c.JSON(http.StatusOK, res.Attendance)
}

// ---------- Listings ----------

func (h *Handler) listBySession(c *gin.Context) {
	records, err := h.svc.ListAttendanceBySession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) listByStudent(c *gin.Context) {
	records, err := h.svc.ListAttendanceByStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}
