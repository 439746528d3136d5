package report

import (
	"time"

	"CANIS-backend/internal/platform/domainerr"
)

// shiftEndAt: スケジュール日付とシフト終業時刻を結合する。
// タイムゾーン変換はしない（組織ローカルの素朴な日時として扱う）
func shiftEndAt(scheduleDate, shiftEnd string) (time.Time, error) {
	return time.ParseInLocation(DateTimeLayout, scheduleDate+" "+shiftEnd, time.UTC)
}

// checkWindow: 提出可否の判定。純関数。
//
//	shift_end <= now <= shift_end + grace は提出可（両端を含む）。
//	前は「シフト未終了」、後は猶予切れでハードカットオフ
//	（警告ではなく拒否。以後の提出は帯域外のエスカレーション扱い）。
func checkWindow(now, shiftEnd time.Time, graceMinutes int) error {
	if now.Before(shiftEnd) {
		return domainerr.ErrWindowNotOpen("shift not finished")
	}
	deadline := shiftEnd.Add(time.Duration(graceMinutes) * time.Minute)
	if now.After(deadline) {
		return domainerr.ErrWindowExpired("submission window expired")
	}
	return nil
}
