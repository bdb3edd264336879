package repository

import (
	"context"

	"app/internal/domain/model"
)

type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID string) ([]model.CartItem, error)
	// 同一商品はプラス
	UpsertByCartAndProduct(ctx context.Context, cartID string, productID int64, addQty int64) error
	// 無ければ何もしない
	DeleteByCartAndProduct(ctx context.Context, cartID string, productID int64) error
}
