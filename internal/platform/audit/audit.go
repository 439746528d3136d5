package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
)

// 監査エントリ。OldValue / NewValue はJSONにして保存する。
type Entry struct {
	ActorID  string
	Action   string // set_global_attendance / lock_schedule / submit_report など
	Entity   string // attendance_day / daily_schedule / handler_report
	EntityID string
	OldValue any
	NewValue any
}

// Sink: 各サービスが変更操作のたびに1件書き込む先。
// 書き込みはベストエフォート。失敗しても主処理はロールバックしない。
type Sink interface {
	Record(ctx context.Context, e Entry)
}

type Recorder struct{ db *sql.DB }

func NewRecorder(db *sql.DB) *Recorder { return &Recorder{db: db} }

func (r *Recorder) Record(ctx context.Context, e Entry) {
	oldJSON := marshalOrNil(e.OldValue)
	newJSON := marshalOrNil(e.NewValue)

	const q = `
	INSERT INTO audit_logs (actor_id, action, entity, entity_id, old_value, new_value, created_at)
	VALUES (?, ?, ?, ?, ?, ?, UTC_TIMESTAMP(6))`

	if _, err := r.db.ExecContext(ctx, q, e.ActorID, e.Action, e.Entity, e.EntityID, oldJSON, newJSON); err != nil {
		// fire-and-log（監査失敗で主処理を巻き戻さない）
		log.Printf("[WARN] audit write failed action=%s entity=%s id=%s: %v", e.Action, e.Entity, e.EntityID, err)
	}
}

func marshalOrNil(v any) any {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(b)
}

// Discard: テスト用の何もしないSink
type Discard struct{}

func (Discard) Record(ctx context.Context, e Entry) {}
