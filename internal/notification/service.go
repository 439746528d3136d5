package notification

import (
	"context"
	"crypto/rand"
	"database/sql"
	"time"

	"github.com/oklog/ulid/v2"

	"CANIS-backend/internal/platform/domainerr"
)

// ===== インターフェース群 =====

type IDGen interface {
	New() (string, error)
}

type ulidGen struct{}

func (ulidGen) New() (string, error) {
	t := time.Now().UTC()
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Enqueuer: schedule / report の各ワークフローが状態遷移時に叩く口。
// fire-and-forget 前提（呼び出し側は失敗してもログを残すだけで遷移を続行する）。
type Enqueuer interface {
	Enqueue(ctx context.Context, in Input) (*Response, error)
}

// ===== Service本体 =====

type Service struct {
	store NotificationStore
	id    IDGen
}

func NewService(db *sql.DB) *Service {
	return &Service{store: NewStore(db), id: ulidGen{}}
}

// Enqueue: 通知を1件永続化する。本コアの責務は「確実に保存する」まで。
// 配送（メール/プッシュ）は外部の配送器が notifications を読む。
func (s *Service) Enqueue(ctx context.Context, in Input) (*Response, error) {
	if in.UserID == 0 {
		return nil, domainerr.ErrInvalid("user_id is required")
	}
	if in.Type == "" || in.Title == "" {
		return nil, domainerr.ErrInvalid("type and title are required")
	}

	uid, err := s.id.New()
	if err != nil {
		return nil, err
	}
	n := &Notification{
		NotificationULID: uid,
		UserID:           in.UserID,
		Type:             in.Type,
		Title:            in.Title,
		Message:          in.Message,
	}
	if in.RelatedType != "" {
		rt, ri := in.RelatedType, in.RelatedID
		n.RelatedType = &rt
		n.RelatedID = &ri
	}
	if err := s.store.Insert(ctx, n); err != nil {
		return nil, err
	}
	resp := n.toDTO()
	return &resp, nil
}

// MarkRead: 受信者本人のみ既読化できる
func (s *Service) MarkRead(ctx context.Context, ulidStr string, userID int64) error {
	n, err := s.store.GetByULID(ctx, ulidStr)
	if err != nil {
		return err
	}
	if n == nil {
		return domainerr.ErrNotFound("notification")
	}
	if n.UserID != userID {
		return domainerr.ErrNotFound("notification")
	}
	// 既読済みは no-op
	_, err = s.store.MarkRead(ctx, n.NotificationID)
	return err
}

func (s *Service) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return s.store.MarkAllRead(ctx, userID)
}

func (s *Service) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	return s.store.UnreadCount(ctx, userID)
}

func (s *Service) List(ctx context.Context, q ListQuery) ([]Response, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
	rows, err := s.store.List(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]Response, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDTO())
	}
	return out, nil
}
