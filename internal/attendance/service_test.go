package attendance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"CANIS-backend/internal/platform/audit"
	"CANIS-backend/internal/platform/auth"
	"CANIS-backend/internal/platform/domainerr"
)

// ===== フェイク =====

type fakeStore struct {
	days map[string]*AttendanceDay // "employeeID:date"
	// ExecSetGlobal で返すエラー（所有判定コンフリクトの再現用）
	setGlobalErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{days: map[string]*AttendanceDay{}}
}

func (f *fakeStore) ExecSetGlobal(ctx context.Context, employeeID int64, date, status string, note *string, actor string) (*AttendanceDay, *AttendanceDay, error) {
	if f.setGlobalErr != nil {
		return nil, nil, f.setGlobalErr
	}
	key := dayKey(employeeID, date)
	old := f.days[key]
	if old != nil && old.Locked {
		return nil, nil, domainerr.ErrConflict("attendance day is locked (source=project)")
	}
	var oldCopy *AttendanceDay
	if old != nil {
		c := *old
		oldCopy = &c
	}
	cur := &AttendanceDay{EmployeeID: employeeID, Date: date, Status: status, Note: note, Source: SourceGlobal}
	f.days[key] = cur
	return oldCopy, cur, nil
}

func (f *fakeStore) ExecSetFromProject(ctx context.Context, employeeID int64, date, status string, projectID int64, note *string, actor string) (*AttendanceDay, *AttendanceDay, error) {
	key := dayKey(employeeID, date)
	var oldCopy *AttendanceDay
	if old := f.days[key]; old != nil {
		c := *old
		oldCopy = &c
	}
	cur := &AttendanceDay{EmployeeID: employeeID, Date: date, Status: status, Note: note, Source: SourceProject, Locked: true}
	f.days[key] = cur
	return oldCopy, cur, nil
}

func (f *fakeStore) ListEditable(ctx context.Context, q ListQuery) ([]EditableRow, int64, error) {
	return nil, 0, nil
}

func (f *fakeStore) ListRange(ctx context.Context, from, to string) ([]ExportRow, error) {
	return nil, nil
}

type captureSink struct{ entries []audit.Entry }

func (c *captureSink) Record(ctx context.Context, e audit.Entry) {
	c.entries = append(c.entries, e)
}

func testActor() auth.Context {
	return auth.Context{UserID: "hr-001", EmployeeID: 1, Role: "admin"}
}

// ===== SetGlobal =====

func TestSetGlobal_Basic(t *testing.T) {
	store := newFakeStore()
	sink := &captureSink{}
	svc := &Service{store: store, audit: sink}

	res, err := svc.SetGlobal(context.Background(), SetGlobalRequest{
		EmployeeID: 42, Date: "2024-06-15", Status: "present",
	}, testActor())
	require.NoError(t, err)
	require.Equal(t, StatusPresent, res.Status)
	require.Equal(t, SourceGlobal, res.Source)

	require.Len(t, sink.entries, 1)
	require.Equal(t, "set_global_attendance", sink.entries[0].Action)
	require.Equal(t, "42:2024-06-15", sink.entries[0].EntityID)
}

func TestSetGlobal_Validation(t *testing.T) {
	svc := &Service{store: newFakeStore(), audit: audit.Discard{}}
	ctx := context.Background()

	_, err := svc.SetGlobal(ctx, SetGlobalRequest{EmployeeID: 0, Date: "2024-06-15", Status: "PRESENT"}, testActor())
	require.True(t, domainerr.Is(err, domainerr.CodeInvalidArgument))

	_, err = svc.SetGlobal(ctx, SetGlobalRequest{EmployeeID: 1, Date: "15/06/2024", Status: "PRESENT"}, testActor())
	require.True(t, domainerr.Is(err, domainerr.CodeInvalidArgument))

	_, err = svc.SetGlobal(ctx, SetGlobalRequest{EmployeeID: 1, Date: "2024-06-15", Status: "VACATIONING"}, testActor())
	require.True(t, domainerr.Is(err, domainerr.CodeInvalidArgument))
}

func TestSetGlobal_OwnershipConflictPassthrough(t *testing.T) {
	store := newFakeStore()
	store.setGlobalErr = domainerr.ErrOwnershipConflict("訓練A")
	sink := &captureSink{}
	svc := &Service{store: store, audit: sink}

	_, err := svc.SetGlobal(context.Background(), SetGlobalRequest{
		EmployeeID: 42, Date: "2024-06-15", Status: "ABSENT",
	}, testActor())
	require.True(t, domainerr.Is(err, domainerr.CodeOwnershipConflict))
	require.Empty(t, sink.entries, "失敗した操作は監査に残らない")
}

func TestSetGlobal_LockedDayRejected(t *testing.T) {
	store := newFakeStore()
	svc := &Service{store: store, audit: audit.Discard{}}
	ctx := context.Background()

	// プロジェクト経路が先に書いた日はロック済み
	err := svc.SetFromProject(ctx, 42, "2024-06-15", "PRESENT", 10, nil, testActor())
	require.NoError(t, err)

	_, err = svc.SetGlobal(ctx, SetGlobalRequest{EmployeeID: 42, Date: "2024-06-15", Status: "ABSENT"}, testActor())
	require.True(t, domainerr.Is(err, domainerr.CodeConflict))
}

// ===== SetFromProject =====

func TestSetFromProject_OverwritesAndLocks(t *testing.T) {
	store := newFakeStore()
	sink := &captureSink{}
	svc := &Service{store: store, audit: sink}
	ctx := context.Background()

	_, err := svc.SetGlobal(ctx, SetGlobalRequest{EmployeeID: 7, Date: "2024-06-15", Status: "PRESENT"}, testActor())
	require.NoError(t, err)

	// プロジェクト経路はグローバル値を黙って上書きし、以後ロックする
	err = svc.SetFromProject(ctx, 7, "2024-06-15", "ABSENT", 10, nil, testActor())
	require.NoError(t, err)

	day := store.days[dayKey(7, "2024-06-15")]
	require.Equal(t, SourceProject, day.Source)
	require.Equal(t, StatusAbsent, day.Status)
	require.True(t, day.Locked)

	require.Len(t, sink.entries, 2)
	require.Equal(t, "set_project_attendance", sink.entries[1].Action)
}

func TestSetGlobal_StatusNormalized(t *testing.T) {
	store := newFakeStore()
	svc := &Service{store: store, audit: audit.Discard{}}

	res, err := svc.SetGlobal(context.Background(), SetGlobalRequest{
		EmployeeID: 1, Date: "2024-06-15", Status: "sick",
	}, testActor())
	require.NoError(t, err)
	require.Equal(t, StatusSick, res.Status)
}
