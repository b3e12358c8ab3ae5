package model

import "time"

// CartRecord holds a persisted cart document for one cart session.
type CartRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	SessionID string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_cart_session_key" json:"session_id"`         // 장바구니 세션 ID
	Key       string    `gorm:"column:doc_key;type:varchar(64);not null;uniqueIndex:idx_cart_session_key" json:"key"` // 저장 키
	Data      string    `gorm:"type:text;not null" json:"data"`                                                       // JSON 문서
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`
}

func (CartRecord) TableName() string {
	return "cart_records"
}
