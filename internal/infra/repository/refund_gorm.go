package repository

import (
	"context"

	"app/internal/domain/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RefundGormRepository struct {
	db *gorm.DB
}

func NewRefundGormRepository(db *gorm.DB) *RefundGormRepository {
	return &RefundGormRepository{db: db}
}

func (r *RefundGormRepository) Create(ctx context.Context, refund model.Refund) (model.Refund, error) {
	if err := r.db.WithContext(ctx).Create(&refund).Error; err != nil {
		return model.Refund{}, err
	}
	return refund, nil
}

func (r *RefundGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.Refund, error) {
	var items []model.Refund

	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return []model.Refund{}, err
	}

	return items, nil
}

// COMPLETEDの合計額
func (r *RefundGormRepository) SumCompletedByOrderID(ctx context.Context, orderID int64) (decimal.Decimal, error) {
	var sum decimal.NullDecimal

	err := r.db.WithContext(ctx).Model(&model.Refund{}).
		Select("SUM(amount)").
		Where("order_id = ? AND status = ?", orderID, model.RefundStatusCompleted).
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}
