package domainerr

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net/http"
)

// ===== Error model (旧 assets/lends の APIError を全パッケージ共通化したもの) =====
//
// schedule / report / attendance が互いのエラー種別で分岐するため、
// パッケージごとに同型の構造体を持たせず一箇所に寄せている。

type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeInternal        Code = "INTERNAL"
	CodeUnavailable     Code = "UNAVAILABLE"

	// ドメイン固有コード
	CodeDuplicateSchedule Code = "DUPLICATE_SCHEDULE"
	CodeScheduleLocked    Code = "SCHEDULE_LOCKED"
	CodeAlreadyLocked     Code = "ALREADY_LOCKED"
	CodeOwnershipConflict Code = "OWNERSHIP_CONFLICT"
	CodeWindowNotOpen     Code = "SUBMISSION_WINDOW_NOT_OPEN"
	CodeWindowExpired     Code = "SUBMISSION_WINDOW_EXPIRED"
	CodeAlreadySubmitted  Code = "ALREADY_SUBMITTED"
)

type Error struct {
	Code    Code              `json:"code"`
	Message string            `json:"message"`
	Meta    map[string]string `json:"meta,omitempty"`
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func New(code Code, msg string) *Error { return &Error{Code: code, Message: msg} }

func ErrInvalid(msg string) *Error     { return New(CodeInvalidArgument, msg) }
func ErrNotFound(entity string) *Error { return New(CodeNotFound, entity+" not found") }
func ErrConflict(msg string) *Error    { return New(CodeConflict, msg) }
func ErrInternal(msg string) *Error    { return New(CodeInternal, msg) }
func ErrUnavailable(msg string) *Error { return New(CodeUnavailable, msg) }

func ErrDuplicateSchedule(date, projectKey string) *Error {
	e := New(CodeDuplicateSchedule, "schedule already exists for date/project")
	e.Meta = map[string]string{"date": date, "project_key": projectKey}
	return e
}

func ErrScheduleLocked() *Error {
	return New(CodeScheduleLocked, "schedule is locked")
}

func ErrAlreadyLocked() *Error {
	return New(CodeAlreadyLocked, "schedule is already locked")
}

// OwnershipConflict: グローバル勤怠編集がプロジェクト所有とぶつかった場合。
// 呼び出し側がユーザに「どのプロジェクト側で編集すべきか」を示せるよう
// project_name を必ず持たせる。
func ErrOwnershipConflict(projectName string) *Error {
	e := New(CodeOwnershipConflict, "attendance is owned by an active project assignment")
	e.Meta = map[string]string{"project_name": projectName}
	return e
}

func ErrWindowNotOpen(msg string) *Error    { return New(CodeWindowNotOpen, msg) }
func ErrWindowExpired(msg string) *Error    { return New(CodeWindowExpired, msg) }
func ErrAlreadySubmitted(msg string) *Error { return New(CodeAlreadySubmitted, msg) }

// CodeOf: 非ドメインエラーの分類。接続系の障害は UNAVAILABLE（503に対応）、
// それ以外は INTERNAL 扱い
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	if isInfra(err) {
		return CodeUnavailable
	}
	return CodeInternal
}

// isInfra: ストア層から素通ししてくるDB接続系エラーの判別。
// クエリの失敗（構文・制約）は含まない
func isInfra(err error) bool {
	return errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded)
}

func Is(err error, code Code) bool { return CodeOf(err) == code }

// Body: ハンドラが返すエラーJSON（{"error":{"code":...,"message":...}}）
type Body struct {
	Error struct {
		Code    Code              `json:"code"`
		Message string            `json:"message"`
		Meta    map[string]string `json:"meta,omitempty"`
	} `json:"error"`
}

func ErrorBody(err error) Body {
	var b Body
	b.Error.Code = CodeOf(err)
	b.Error.Message = err.Error()
	var de *Error
	if errors.As(err, &de) {
		b.Error.Message = de.Message
		b.Error.Meta = de.Meta
	}
	return b
}

func ToHTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeInvalidArgument, CodeWindowNotOpen, CodeWindowExpired:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeDuplicateSchedule, CodeScheduleLocked,
		CodeAlreadyLocked, CodeOwnershipConflict, CodeAlreadySubmitted:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
