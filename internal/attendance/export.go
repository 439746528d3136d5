package attendance

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"CANIS-backend/internal/platform/domainerr"
)

// ExportCSV: 期間分の勤怠をCSVにして返す。
// 人事側の取り込みツールがCP932前提なので Shift_JIS でエンコードする。
func (s *Service) ExportCSV(ctx context.Context, from, to string) ([]byte, error) {
	f, err := normalizeDate(from)
	if err != nil {
		return nil, domainerr.ErrInvalid("from must be YYYY-MM-DD")
	}
	t, err := normalizeDate(to)
	if err != nil {
		return nil, domainerr.ErrInvalid("to must be YYYY-MM-DD")
	}
	if t < f {
		return nil, domainerr.ErrInvalid("to must be >= from")
	}

	rows, err := s.store.ListRange(ctx, f, t)
	if err != nil {
		return nil, err
	}

	var b bytes.Buffer
	tw := transform.NewWriter(&b, japanese.ShiftJIS.NewEncoder())
	w := csv.NewWriter(tw)

	if err := w.Write([]string{"employee_id", "name", "date", "status", "source", "note"}); err != nil {
		return nil, err
	}
	for _, r := range rows {
		record := []string{
			strconv.FormatInt(r.EmployeeID, 10),
			r.Name,
			r.Date,
			r.Status,
			r.Source,
			r.Note,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	// 変換器が抱えたバイトをフラッシュしてから返す
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
