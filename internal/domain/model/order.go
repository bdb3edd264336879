package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending           OrderStatus = "PENDING"
	OrderStatusPaid              OrderStatus = "PAID"
	OrderStatusCancelled         OrderStatus = "CANCELLED"
	OrderStatusRefunded          OrderStatus = "REFUNDED"
	OrderStatusPartiallyRefunded OrderStatus = "PARTIALLY_REFUNDED"
)

// ステータス遷移の許可判定。
// PENDING → PAID / CANCELLED
// PAID → REFUNDED / PARTIALLY_REFUNDED
// PARTIALLY_REFUNDED → さらに返金可。REFUNDEDからの遷移は無し。
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return next == OrderStatusPaid || next == OrderStatusCancelled
	case OrderStatusPaid:
		return next == OrderStatusRefunded || next == OrderStatusPartiallyRefunded
	case OrderStatusPartiallyRefunded:
		return next == OrderStatusRefunded || next == OrderStatusPartiallyRefunded
	}
	return false
}

// 注文。Totalは作成時に確定し、以後変更しない。
// TransactionRefは決済ゲートウェイのPaymentIntent IDまたはCheckout Session ID。
type Order struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Total          decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`
	Status         OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	CartID         string          `gorm:"type:varchar(64);index" json:"cart_id,omitempty"`
	TransactionRef string          `gorm:"type:varchar(255);index" json:"transaction_ref,omitempty"`
	Email          string          `gorm:"type:varchar(255)" json:"email,omitempty"`
	Phone          string          `gorm:"type:varchar(30)" json:"phone,omitempty"`
	CreatedAt      time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
