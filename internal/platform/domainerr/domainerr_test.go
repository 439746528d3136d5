package domainerr

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeOf_DomainError(t *testing.T) {
	require.Equal(t, CodeNotFound, CodeOf(ErrNotFound("report")))
	require.Equal(t, CodeOwnershipConflict, CodeOf(ErrOwnershipConflict("訓練A")))
	require.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
}

func TestCodeOf_InfraErrorsAreUnavailable(t *testing.T) {
	for _, err := range []error{
		driver.ErrBadConn,
		sql.ErrConnDone,
		context.DeadlineExceeded,
		// ラップされていても拾う
		fmt.Errorf("query attendance: %w", driver.ErrBadConn),
	} {
		require.Equal(t, CodeUnavailable, CodeOf(err), "err=%v", err)
		require.Equal(t, http.StatusServiceUnavailable, ToHTTPStatus(err))
	}
}

func TestToHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrInvalid("bad"), http.StatusBadRequest},
		{ErrWindowNotOpen("shift not finished"), http.StatusBadRequest},
		{ErrWindowExpired("expired"), http.StatusBadRequest},
		{ErrNotFound("schedule"), http.StatusNotFound},
		{ErrConflict("locked"), http.StatusConflict},
		{ErrDuplicateSchedule("2024-06-15", "10"), http.StatusConflict},
		{ErrScheduleLocked(), http.StatusConflict},
		{ErrAlreadyLocked(), http.StatusConflict},
		{ErrOwnershipConflict("訓練A"), http.StatusConflict},
		{ErrAlreadySubmitted("submitted"), http.StatusConflict},
		{ErrUnavailable("db down"), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ToHTTPStatus(tc.err), "err=%v", tc.err)
	}
}

func TestErrorBody_CarriesMeta(t *testing.T) {
	b := ErrorBody(ErrOwnershipConflict("訓練A"))
	require.Equal(t, CodeOwnershipConflict, b.Error.Code)
	require.Equal(t, "訓練A", b.Error.Meta["project_name"])

	// 非ドメインエラーは生メッセージのまま
	b = ErrorBody(errors.New("boom"))
	require.Equal(t, CodeInternal, b.Error.Code)
	require.Equal(t, "boom", b.Error.Message)
}
