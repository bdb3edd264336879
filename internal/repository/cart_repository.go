package repository

import (
	"context"

	"app/internal/domain/model"
)

type CartRepository interface {
	FindByID(ctx context.Context, cartID string) (model.Cart, error)
	Create(ctx context.Context, cart model.Cart) (model.Cart, error)
	// チェックアウト済みにする（明細は監査用に残す）
	MarkCheckedOut(ctx context.Context, cartID string) error
}
