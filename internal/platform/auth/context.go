package auth

import "github.com/gin-gonic/gin"

const (
	CtxUserIDKey     = "user_id"
	CtxEmployeeIDKey = "employee_id"
	CtxRoleKey       = "role"
)

// Context: 認証済み呼び出し元。グローバルな current_user は持たず、
// 各サービス呼び出しに明示的に渡す。
type Context struct {
	UserID     string // auth_accounts.id
	EmployeeID int64  // 紐付く employees.employee_id（未紐付けは 0）
	Role       string
}

func (a Context) IsAdmin() bool { return a.Role == "admin" }

// FromGin: RequireAuth が詰めた値を取り出す
func FromGin(c *gin.Context) Context {
	var ac Context
	if v, ok := c.Get(CtxUserIDKey); ok {
		if s, ok := v.(string); ok {
			ac.UserID = s
		}
	}
	if v, ok := c.Get(CtxEmployeeIDKey); ok {
		if n, ok := v.(int64); ok {
			ac.EmployeeID = n
		}
	}
	if v, ok := c.Get(CtxRoleKey); ok {
		if s, ok := v.(string); ok {
			ac.Role = s
		}
	}
	return ac
}
