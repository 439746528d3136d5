package attendance

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

	// グローバル(HR)経路
	r.PUT("/attendance", h.SetGlobal)
	r.GET("/attendance", h.ListEditable)
	r.GET("/attendance/export", h.Export)
}

// PUT /attendance
func (h *Handler) SetGlobal(c *gin.Context) {
	var req SetGlobalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, domainerr.ErrorBody(domainerr.ErrInvalid("invalid json or missing required fields")))
		return
	}

	res, err := h.svc.SetGlobal(c.Request.Context(), req, auth.FromGin(c))
	if err != nil {
		c.JSON(domainerr.ToHTTPStatus(err), domainerr.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /attendance?date=&search=&status=
func (h *Handler) ListEditable(c *gin.Context) {
	q := ListQuery{
		Date:   c.DefaultQuery("date", "today"),
		Search: c.Query("search"),
		Status: c.Query("status"),
		Limit:  parseIntDefault(c.Query("limit"), DefaultPageLimit),
		Offset: parseIntDefault(c.Query("offset"), 0),
	}
	rows, total, err := h.svc.ListEditable(c.Request.Context(), q)
	if err != nil {
		c.JSON(domainerr.ToHTTPStatus(err), domainerr.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"employees": rows, "total": total})
}

// GET /attendance/export?from=&to=
func (h *Handler) Export(c *gin.Context) {
	data, err := h.svc.ExportCSV(c.Request.Context(), c.Query("from"), c.Query("to"))
	if err != nil {
		c.JSON(domainerr.ToHTTPStatus(err), domainerr.ErrorBody(err))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="attendance.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=Shift_JIS", data)
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
