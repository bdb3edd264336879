package repository

import (
	"context"

	"app/internal/domain/model"
)

type OrderListFilter struct {
	Status string
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	// webhookで使う。TransactionRefはPaymentIntent ID / Session ID
	FindByTransactionRef(ctx context.Context, ref string) (model.Order, bool, error)
	// 新しい順
	List(ctx context.Context, f OrderListFilter) ([]model.Order, error)
	Create(ctx context.Context, order model.Order) (int64, error)
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error
	// 現在ステータスがfromのいずれかのときだけ更新（webhookの冪等化）
	UpdateStatusFrom(ctx context.Context, orderID int64, from []model.OrderStatus, to model.OrderStatus) (bool, error)
}
