package notification

import "time"

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// Input: 各ワークフローが状態遷移時に投げ込む内容
type Input struct {
	UserID      int64
	Type        string
	Title       string
	Message     string
	RelatedType string // 空なら関連なし
	RelatedID   string
}

type Response struct {
	NotificationULID string    `json:"notification_ulid"`
	UserID           int64     `json:"user_id"`
	Type             string    `json:"type"`
	Title            string    `json:"title"`
	Message          string    `json:"message"`
	RelatedType      *string   `json:"related_type,omitempty"`
	RelatedID        *string   `json:"related_id,omitempty"`
	IsRead           bool      `json:"is_read"`
	CreatedAt        time.Time `json:"created_at"`
}

type ListQuery struct {
	UserID     int64
	UnreadOnly bool
	Limit      int
	Offset     int
}
