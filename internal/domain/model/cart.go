package model

import (
	"time"

	"github.com/google/uuid"
)

type CartStatus string

const (
	CartStatusActive CartStatus = "ACTIVE"
	//注文が作られたカート。以後の変更は受け付けない。
	CartStatusCheckedOut CartStatus = "CHECKED_OUT"
)

// 買い物カート。IDは cookie で持ち回る不透明トークン。
// CHECKED_OUT後も明細は監査用に残す。
type Cart struct {
	ID        string     `gorm:"type:varchar(64);primaryKey" json:"id"`
	SessionID string     `gorm:"type:varchar(255)" json:"session_id,omitempty"`
	Status    CartStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedAt time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 新しいカートトークンを発行
func NewCartID() string {
	return "cart_" + uuid.NewString()
}
