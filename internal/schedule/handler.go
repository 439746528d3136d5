package schedule

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"CANIS-backend/internal/platform/auth"
	"CANIS-backend/internal/platform/domainerr"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.POST("/schedules", h.CreateSchedule)
	r.GET("/schedules", h.ListSchedules)
	r.GET("/schedules/:schedule_ulid", h.GetSchedule)
	r.POST("/schedules/:schedule_ulid/items", h.AddItem)
	r.POST("/schedules/:schedule_ulid/lock", h.Lock)

	r.POST("/schedule-items/:item_ulid/present", h.MarkPresent)
	r.POST("/schedule-items/:item_ulid/absent", h.MarkAbsent)
	r.POST("/schedule-items/:item_ulid/replace", h.Replace)
}

// RegisterAdminRoutes: 日次スイープの外部トリガー（cron相当が叩く）
func RegisterAdminRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.POST("/schedules/auto-lock", h.AutoLock)
}

// POST /schedules
func (h *Handler) CreateSchedule(c *gin.Context) {
	var req CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, domainerr.ErrorBody(domainerr.ErrInvalid("invalid json or missing required fields")))
		return
	}
	res, err := h.svc.CreateSchedule(c.Request.Context(), req, auth.FromGin(c))
	if err != nil {
		c.JSON(domainerr.ToHTTPStatus(err), domainerr.ErrorBody(err))
		return
	}
	c.Header("Location", "/schedules/"+res.ScheduleULID)
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) ListSchedules(c *gin.Context) {
	q := ListQuery{
		Date:   c.Query("date"),
		Status: c.Query("status"),
		Limit:  parseIntDefault(c.Query("limit"), DefaultPageLimit),
		Offset: parseIntDefault(c.Query("offset"), 0),
	}
	if v := c.Query("project_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			q.ProjectID = &id
		}
	}
	res, err := h.svc.ListSchedules(c.Request.Context(), q)
	if err != nil {
		c.JSON(domainerr.ToHTTPStatus(err), domainerr.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": res})
}

func (h *Handler) GetSchedule(c *gin.Context) {
	res, err := h.svc.GetSchedule(c.Request.Context(), c.Param("schedule_ulid"))
	if err != nil {
		c.JSON(domainerr.ToHTTPStatus(err), domainerr.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /schedules/:schedule_ulid/items
func (h *Handler) AddItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, domainerr.ErrorBody(domainerr.ErrInvalid("invalid json or missing required fields")))
		return
	}
	res, err := h.svc.AddItem(c.Request.Context(), c.Param("schedule_ulid"), req, auth.FromGin(c))
	if err != nil {
		c.JSON(domainerr.ToHTTPStatus(err), domainerr.ErrorBody(err))
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Lock(c *gin.Context) {
	res, err := h.svc.Lock(c.Request.Context(), c.Param("schedule_ulid"), auth.FromGin(c))
	if err != nil {
		c.JSON(domainerr.ToHTTPStatus(err), domainerr.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) MarkPresent(c *gin.Context) {
	res, err := h.svc.MarkPresent(c.Request.Context(), c.Param("item_ulid"), auth.FromGin(c))
	if err != nil {
		c.JSON(domainerr.ToHTTPStatus(err), domainerr.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) MarkAbsent(c *gin.Context) {
	var req MarkAbsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, domainerr.ErrorBody(domainerr.ErrInvalid("reason is required")))
		return
	}
	res, err := h.svc.MarkAbsent(c.Request.Context(), c.Param("item_ulid"), req.Reason, auth.FromGin(c))
	if err != nil {
		c.JSON(domainerr.ToHTTPStatus(err), domainerr.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Replace(c *gin.Context) {
	var req ReplaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, domainerr.ErrorBody(domainerr.ErrInvalid("invalid json or missing required fields")))
		return
	}
	res, err := h.svc.Replace(c.Request.Context(), c.Param("item_ulid"), req, auth.FromGin(c))
	if err != nil {
		c.JSON(domainerr.ToHTTPStatus(err), domainerr.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /schedules/auto-lock
func (h *Handler) AutoLock(c *gin.Context) {
	var req AutoLockRequest
	_ = c.ShouldBindJSON(&req) // bodyなしも許容
	asOf := time.Now().UTC().Format(DateLayout)
	if req.AsOf != nil && *req.AsOf != "" {
		asOf = *req.AsOf
	}
	n, err := h.svc.AutoLockStale(c.Request.Context(), asOf, auth.FromGin(c))
	if err != nil {
		c.JSON(domainerr.ToHTTPStatus(err), domainerr.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"locked": n})
}

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
