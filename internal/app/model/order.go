package model

import (
	"time"

	"gorm.io/gorm"
)

type OrderStatus string   // 주문 상태 코드
type PaymentStatus string // 결제 상태 코드

const (
	OrderStatusPending   OrderStatus = "pending"   // 주문 접수
	OrderStatusConfirmed OrderStatus = "confirmed" // 주문 확정
	OrderStatusShipping  OrderStatus = "shipping"  // 배송 중
	OrderStatusDelivered OrderStatus = "delivered" // 배송 완료
	OrderStatusCancelled OrderStatus = "cancelled" // 주문 취소

	PaymentStatusPending   PaymentStatus = "pending"   // 결제 대기
	PaymentStatusCompleted PaymentStatus = "completed" // 결제 완료
	PaymentStatusFailed    PaymentStatus = "failed"    // 결제 실패
	PaymentStatusRefunded  PaymentStatus = "refunded"  // 환불 완료
)

type Order struct {
	ID                uint           `gorm:"primarykey" json:"id"`                                      // 주문 ID
	UserID            *uint          `gorm:"index" json:"user_id,omitempty"`                            // 주문자 ID (비회원은 없음)
	CartSessionID     string         `gorm:"type:varchar(64);index" json:"cart_session_id"`             // 장바구니 세션 ID
	Subtotal          int64          `gorm:"not null" json:"subtotal"`                                  // 상품 금액
	ShippingFee       int64          `gorm:"not null;default:0" json:"shipping_fee"`                    // 배송비
	TotalAmount       int64          `gorm:"not null" json:"total_amount"`                              // 총 결제 금액
	Status            OrderStatus    `gorm:"type:varchar(20);default:'pending'" json:"status"`          // 주문 상태
	PaymentStatus     PaymentStatus  `gorm:"type:varchar(20);default:'pending'" json:"payment_status"`  // 결제 상태
	PaymentChargeID   string         `gorm:"type:varchar(64);index" json:"payment_charge_id,omitempty"` // 결제 승인 ID
	PaymentApprovedAt *time.Time     `json:"payment_approved_at,omitempty"`                             // 결제 승인 시각
	ShippingRateID    string         `gorm:"type:varchar(64)" json:"shipping_rate_id,omitempty"`        // 배송 요금 ID
	ShippingAddress   string         `gorm:"type:text" json:"shipping_address"`                         // 배송지 주소
	CreatedAt         time.Time      `json:"created_at"`                                                // 생성 시각
	UpdatedAt         time.Time      `json:"updated_at"`                                                // 수정 시각
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`                                            // 삭제 시각(소프트 삭제)

	OrderItems []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"order_items,omitempty"` // 주문 항목 목록
}

func (Order) TableName() string {
	return "orders"
}

type OrderItem struct {
	ID        uint      `gorm:"primarykey" json:"id"`             // 주문 항목 ID
	OrderID   uint      `gorm:"not null;index" json:"order_id"`   // 주문 ID
	ProductID uint      `gorm:"not null;index" json:"product_id"` // 상품 ID
	VariantID uint      `gorm:"not null;index" json:"variant_id"` // 변형 ID
	Name      string    `gorm:"not null" json:"name"`             // 상품명 (옵션 포함) 스냅샷
	Quantity  int       `gorm:"not null" json:"quantity"`         // 수량
	Price     int64     `gorm:"not null" json:"price"`            // 단가
	CreatedAt time.Time `json:"created_at"`                       // 생성 시각
}

func (OrderItem) TableName() string {
	return "order_items"
}
