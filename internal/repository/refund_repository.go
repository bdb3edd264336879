package repository

import (
	"context"

	"app/internal/domain/model"

	"github.com/shopspring/decimal"
)

type RefundRepository interface {
	Create(ctx context.Context, r model.Refund) (model.Refund, error)
	ListByOrderID(ctx context.Context, orderID int64) ([]model.Refund, error)
	// COMPLETEDの合計。返金上限の判定に使う
	SumCompletedByOrderID(ctx context.Context, orderID int64) (decimal.Decimal, error)
}
