package model

import (
	"time"

	"gorm.io/gorm"
)

type OptionGroup struct {
	ID        uint          `gorm:"primarykey" json:"id"`             // 옵션 그룹 ID
	ProductID uint          `gorm:"not null;index" json:"product_id"` // 소속 상품 ID
	Name      string        `gorm:"not null" json:"name"`             // 옵션 그룹명 (예: 색상, 사이즈)
	Position  int           `gorm:"default:0" json:"position"`        // 노출 순서
	Values    []OptionValue `gorm:"foreignKey:OptionGroupID" json:"values,omitempty"`
}

func (OptionGroup) TableName() string {
	return "option_groups"
}

type OptionValue struct {
	ID            uint   `gorm:"primarykey" json:"id"`                  // 옵션 값 ID
	OptionGroupID uint   `gorm:"not null;index" json:"option_group_id"` // 소속 그룹 ID
	Name          string `gorm:"not null" json:"name"`                  // 옵션 값 (예: 18K, 11호)
	Position      int    `gorm:"default:0" json:"position"`             // 노출 순서

	Group OptionGroup `gorm:"foreignKey:OptionGroupID" json:"-"`
}

func (OptionValue) TableName() string {
	return "option_values"
}

// ProductVariant is one purchasable combination of option values. The base
// variant carries no option values and is used when a product has no options.
type ProductVariant struct {
	ID              uint           `gorm:"primarykey" json:"id"`              // 변형 ID
	ProductID       uint           `gorm:"not null;index" json:"product_id"`  // 소속 상품 ID
	SKU             string         `gorm:"index" json:"sku"`                  // 재고 관리 코드
	AdditionalPrice int64          `gorm:"default:0" json:"additional_price"` // 추가 금액
	StockQuantity   int            `gorm:"default:0" json:"stock_quantity"`   // 재고
	IsBase          bool           `gorm:"default:false" json:"is_base"`      // 기본 변형 여부
	ImageKey        string         `json:"image_key,omitempty"`               // 변형 이미지 키
	CreatedAt       time.Time      `json:"created_at"`                        // 생성 시각
	UpdatedAt       time.Time      `json:"updated_at"`                        // 수정 시각
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                    // 삭제 시각(소프트 삭제)

	Product Product       `gorm:"foreignKey:ProductID" json:"-"`
	Options []OptionValue `gorm:"many2many:variant_option_values" json:"options,omitempty"`
}

func (ProductVariant) TableName() string {
	return "product_variants"
}
