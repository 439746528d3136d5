package notification

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"CANIS-backend/internal/platform/auth"
	"CANIS-backend/internal/platform/domainerr"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	// 自分宛て通知のみ。他人の通知は見えない
	r.GET("/notifications", h.List)
	r.GET("/notifications/unread-count", h.UnreadCount)
	r.POST("/notifications/:notification_ulid/read", h.MarkRead)
	r.POST("/notifications/read-all", h.MarkAllRead)
}

func (h *Handler) List(c *gin.Context) {
	ac := auth.FromGin(c)
	q := ListQuery{
		UserID:     ac.EmployeeID,
		UnreadOnly: c.Query("unread_only") == "true" || c.Query("unread_only") == "1",
		Limit:      parseIntDefault(c.Query("limit"), DefaultPageLimit),
		Offset:     parseIntDefault(c.Query("offset"), 0),
	}
	res, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		c.JSON(domainerr.ToHTTPStatus(err), domainerr.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": res})
}

func (h *Handler) UnreadCount(c *gin.Context) {
	ac := auth.FromGin(c)
	n, err := h.svc.UnreadCount(c.Request.Context(), ac.EmployeeID)
	if err != nil {
		c.JSON(domainerr.ToHTTPStatus(err), domainerr.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": n})
}

func (h *Handler) MarkRead(c *gin.Context) {
	ac := auth.FromGin(c)
	if err := h.svc.MarkRead(c.Request.Context(), c.Param("notification_ulid"), ac.EmployeeID); err != nil {
		c.JSON(domainerr.ToHTTPStatus(err), domainerr.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "read"})
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	ac := auth.FromGin(c)
	n, err := h.svc.MarkAllRead(c.Request.Context(), ac.EmployeeID)
	if err != nil {
		c.JSON(domainerr.ToHTTPStatus(err), domainerr.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": n})
}

// ---------- helpers ----------

func parseIntDefault(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}
