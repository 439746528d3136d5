package attendance

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"CANIS-backend/internal/platform/audit"
	"CANIS-backend/internal/platform/domainerr"
)

type fakeExportStore struct {
	fakeStore
	rows []ExportRow
}

func (f *fakeExportStore) ListRange(ctx context.Context, from, to string) ([]ExportRow, error) {
	return f.rows, nil
}

func TestExportCSV_ShiftJISRoundTrip(t *testing.T) {
	store := &fakeExportStore{rows: []ExportRow{
		{EmployeeID: 42, Name: "山田太郎", Date: "2024-06-15", Status: StatusPresent, Source: SourceGlobal, Note: "定時"},
		{EmployeeID: 43, Name: "佐藤花子", Date: "2024-06-15", Status: StatusAbsent, Source: SourceProject, Note: ""},
	}}
	svc := &Service{store: store, audit: audit.Discard{}}

	data, err := svc.ExportCSV(context.Background(), "2024-06-01", "2024-06-30")
	require.NoError(t, err)

	// Shift_JIS なので素のバイト列には日本語名は現れない
	require.NotContains(t, string(data), "山田太郎")

	r := csv.NewReader(transform.NewReader(bytes.NewReader(data), japanese.ShiftJIS.NewDecoder()))
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3) // ヘッダ + 2行
	require.Equal(t, []string{"employee_id", "name", "date", "status", "source", "note"}, records[0])
	require.Equal(t, []string{"42", "山田太郎", "2024-06-15", "PRESENT", "global", "定時"}, records[1])
	require.Equal(t, []string{"43", "佐藤花子", "2024-06-15", "ABSENT", "project", ""}, records[2])
}

func TestExportCSV_Validation(t *testing.T) {
	svc := &Service{store: &fakeExportStore{}, audit: audit.Discard{}}
	ctx := context.Background()

	_, err := svc.ExportCSV(ctx, "15/06/2024", "2024-06-30")
	require.True(t, domainerr.Is(err, domainerr.CodeInvalidArgument))

	_, err = svc.ExportCSV(ctx, "2024-06-30", "2024-06-01")
	require.True(t, domainerr.Is(err, domainerr.CodeInvalidArgument))
}
