package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "PENDING"
	RefundStatusCompleted RefundStatus = "COMPLETED"
	RefundStatusFailed    RefundStatus = "FAILED"
	RefundStatusCancelled RefundStatus = "CANCELLED"
)

// 返金。1注文に複数作れるが、COMPLETED合計は注文Totalを超えない。
// MetadataJSONは自由形式のメタデータをJSON文字列で保存する。
type Refund struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID         int64           `gorm:"not null;index" json:"order_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Status          RefundStatus    `gorm:"type:varchar(20);not null;index" json:"status"`
	GatewayRefundID string          `gorm:"type:varchar(255)" json:"gateway_refund_id,omitempty"`
	Reason          string          `gorm:"type:text" json:"reason,omitempty"`
	MetadataJSON    string          `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt       time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
