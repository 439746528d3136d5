package ownership

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func str(s string) *string { return &s }

func cand(id, projectID int64, name, status, pStart string, pEnd *string, aFrom string, aTo *string, created time.Time) Candidate {
	return Candidate{
		AssignmentID:  id,
		ProjectID:     projectID,
		ProjectName:   name,
		ProjectStatus: status,
		ProjectStart:  pStart,
		ProjectEnd:    pEnd,
		AssignedFrom:  aFrom,
		AssignedTo:    aTo,
		CreatedAt:     created,
	}
}

func TestResolve_NoCandidates(t *testing.T) {
	res := Resolve("2024-06-15", nil)
	require.False(t, res.IsOwned)
}

func TestResolve_IntervalEdges(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := cand(1, 10, "訓練A", ProjectActive,
		"2024-06-01", str("2024-06-30"),
		"2024-06-10", str("2024-06-20"), created)

	cases := []struct {
		date  string
		owned bool
	}{
		{"2024-06-09", false}, // assigned_from の前日
		{"2024-06-10", true},  // 開始日当日を含む
		{"2024-06-20", true},  // 終了日当日を含む
		{"2024-06-21", false}, // assigned_to の翌日
	}
	for _, tc := range cases {
		res := Resolve(tc.date, []Candidate{c})
		require.Equal(t, tc.owned, res.IsOwned, "date=%s", tc.date)
	}
}

func TestResolve_OpenEndedIntervals(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := cand(1, 10, "訓練A", ProjectActive,
		"2024-06-01", nil,
		"2024-06-10", nil, created)

	require.True(t, Resolve("2024-06-10", []Candidate{c}).IsOwned)
	require.True(t, Resolve("2030-12-31", []Candidate{c}).IsOwned)
	require.False(t, Resolve("2024-06-09", []Candidate{c}).IsOwned)
}

func TestResolve_ProjectIntervalAlsoBinds(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	// アサインメント区間は含むが、プロジェクト自体は6/15で終わっている
	c := cand(1, 10, "訓練A", ProjectActive,
		"2024-06-01", str("2024-06-15"),
		"2024-06-10", str("2024-06-30"), created)

	require.True(t, Resolve("2024-06-15", []Candidate{c}).IsOwned)
	require.False(t, Resolve("2024-06-16", []Candidate{c}).IsOwned)
}

func TestResolve_StatusFiltering(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, st := range []string{ProjectSuspended, ProjectCompleted} {
		c := cand(1, 10, "訓練A", st, "2024-06-01", nil, "2024-06-01", nil, created)
		require.False(t, Resolve("2024-06-15", []Candidate{c}).IsOwned, "status=%s", st)
	}
	for _, st := range []string{ProjectActive, ProjectPlanned} {
		c := cand(1, 10, "訓練A", st, "2024-06-01", nil, "2024-06-01", nil, created)
		require.True(t, Resolve("2024-06-15", []Candidate{c}).IsOwned, "status=%s", st)
	}
}

func TestResolve_EarliestCreatedWins(t *testing.T) {
	older := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	a := cand(7, 10, "訓練A", ProjectActive, "2024-06-01", nil, "2024-06-01", nil, newer)
	b := cand(3, 20, "訓練B", ProjectActive, "2024-06-01", nil, "2024-06-01", nil, older)

	res := Resolve("2024-06-15", []Candidate{a, b})
	require.True(t, res.IsOwned)
	require.Equal(t, int64(20), res.ProjectID)
	require.Equal(t, "訓練B", res.ProjectName)
	require.Equal(t, int64(3), res.AssignmentID)
}

func TestResolve_TieBreakOnAssignmentID(t *testing.T) {
	created := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	a := cand(9, 10, "訓練A", ProjectActive, "2024-06-01", nil, "2024-06-01", nil, created)
	b := cand(4, 20, "訓練B", ProjectActive, "2024-06-01", nil, "2024-06-01", nil, created)

	res := Resolve("2024-06-15", []Candidate{a, b})
	require.Equal(t, int64(4), res.AssignmentID)
	require.Equal(t, int64(20), res.ProjectID)
}

// 入力順に依存しないこと
func TestResolve_Deterministic(t *testing.T) {
	older := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	a := cand(1, 10, "訓練A", ProjectActive, "2024-06-01", nil, "2024-06-01", nil, older)
	b := cand(2, 20, "訓練B", ProjectActive, "2024-06-01", nil, "2024-06-01", nil, newer)

	r1 := Resolve("2024-06-15", []Candidate{a, b})
	r2 := Resolve("2024-06-15", []Candidate{b, a})
	require.Equal(t, r1, r2)
	require.Equal(t, int64(1), r1.AssignmentID)
}

// 候補3件のうち、区間外・非稼働を除いた最古1件が選ばれる
func TestResolve_MixedCandidates(t *testing.T) {
	c1 := cand(1, 10, "訓練A", ProjectCompleted, "2024-01-01", nil, "2024-01-01", nil,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	c2 := cand(2, 20, "訓練B", ProjectActive, "2024-06-01", nil, "2024-07-01", nil,
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	c3 := cand(3, 30, "訓練C", ProjectActive, "2024-06-01", nil, "2024-06-01", nil,
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	res := Resolve("2024-06-15", []Candidate{c1, c2, c3})
	require.True(t, res.IsOwned)
	require.Equal(t, int64(30), res.ProjectID)
}
