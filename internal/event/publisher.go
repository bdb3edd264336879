package event

import (
	"context"
	"time"
)

// 注文のライフサイクルイベント。
// 失敗しても注文処理は失敗させない（ログのみ）。
type OrderEvent struct {
	OrderID    int64     `json:"order_id"`
	Status     string    `json:"status"`
	Total      string    `json:"total"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	PublishOrderEvent(ctx context.Context, ev OrderEvent) error
}

// ブローカー未設定時のダミー
type NopPublisher struct{}

func (NopPublisher) PublishOrderEvent(ctx context.Context, ev OrderEvent) error {
	return nil
}
