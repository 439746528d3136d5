package report

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

	r.POST("/reports", h.Create)
	r.GET("/reports", h.List)
	r.GET("/reports/:report_ulid", h.Get)
	r.PUT("/reports/:report_ulid/sections/:section_type", h.UpdateSection)
	r.DELETE("/reports/:report_ulid", h.Delete)
	r.POST("/reports/:report_ulid/submit", h.Submit)
	r.POST("/reports/:report_ulid/approve", h.Approve)
	r.POST("/reports/:report_ulid/reject", h.Reject)

	// 提出フォームを開く前に時間窓をチェックするための読み取りエンドポイント
	r.GET("/schedule-items/:item_ulid/can-submit", h.CanSubmit)
}

// POST /reports
func (h *Handler) Create(c *gin.Context) {
	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, domainerr.ErrorBody(domainerr.ErrInvalid("invalid json or missing required fields")))
		return
	}
	res, err := h.svc.CreateReport(c.Request.Context(), req, auth.FromGin(c))
	if err != nil {
		c.JSON(domainerr.ToHTTPStatus(err), domainerr.ErrorBody(err))
		return
	}
	c.Header("Location", "/reports/"+res.ReportULID)
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) List(c *gin.Context) {
	q := ListQuery{
		Status: c.Query("status"),
		From:   c.Query("from"),
		To:     c.Query("to"),
		Limit:  parseIntDefault(c.Query("limit"), DefaultPageLimit),
		Offset: parseIntDefault(c.Query("offset"), 0),
	}
	if v := c.Query("handler_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			q.HandlerID = &id
		}
	}
	res, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		c.JSON(domainerr.ToHTTPStatus(err), domainerr.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": res})
}

func (h *Handler) Get(c *gin.Context) {
	res, err := h.svc.Get(c.Request.Context(), c.Param("report_ulid"))
	if err != nil {
		c.JSON(domainerr.ToHTTPStatus(err), domainerr.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// PUT /reports/:report_ulid/sections/:section_type
func (h *Handler) UpdateSection(c *gin.Context) {
	var req UpdateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, domainerr.ErrorBody(domainerr.ErrInvalid("invalid json")))
		return
	}
	err := h.svc.UpdateSection(c.Request.Context(), c.Param("report_ulid"), c.Param("section_type"), req.Content, auth.FromGin(c))
	if err != nil {
		c.JSON(domainerr.ToHTTPStatus(err), domainerr.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("report_ulid"), auth.FromGin(c)); err != nil {
		c.JSON(domainerr.ToHTTPStatus(err), domainerr.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) Submit(c *gin.Context) {
	res, err := h.svc.Submit(c.Request.Context(), c.Param("report_ulid"), auth.FromGin(c))
	if err != nil {
		c.JSON(domainerr.ToHTTPStatus(err), domainerr.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Approve(c *gin.Context) {
	var req ReviewRequest
	_ = c.ShouldBindJSON(&req) // 承認コメントは任意
	res, err := h.svc.Approve(c.Request.Context(), c.Param("report_ulid"), req.Notes, auth.FromGin(c))
	if err != nil {
		c.JSON(domainerr.ToHTTPStatus(err), domainerr.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Reject(c *gin.Context) {
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, domainerr.ErrorBody(domainerr.ErrInvalid("notes are required")))
		return
	}
	res, err := h.svc.Reject(c.Request.Context(), c.Param("report_ulid"), req.Notes, auth.FromGin(c))
	if err != nil {
		c.JSON(domainerr.ToHTTPStatus(err), domainerr.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /schedule-items/:item_ulid/can-submit
func (h *Handler) CanSubmit(c *gin.Context) {
	err := h.svc.CanSubmitItem(c.Request.Context(), c.Param("item_ulid"), time.Now().UTC())
	if err != nil {
		code := domainerr.CodeOf(err)
		if code == domainerr.CodeWindowNotOpen || code == domainerr.CodeWindowExpired {
			c.JSON(http.StatusOK, gin.H{"can_submit": false, "reason": code})
			return
		}
		c.JSON(domainerr.ToHTTPStatus(err), domainerr.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"can_submit": true})
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
