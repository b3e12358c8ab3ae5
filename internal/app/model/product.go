package model

import (
	"time"

	"gorm.io/gorm"
)

type Category struct {
	ID        uint      `gorm:"primarykey" json:"id"`             // 카테고리 ID
	Name      string    `gorm:"not null" json:"name"`             // 카테고리명
	Slug      string    `gorm:"uniqueIndex;not null" json:"slug"` // URL 식별자 (예: rings)
	Position  int       `gorm:"default:0" json:"position"`        // 노출 순서
	CreatedAt time.Time `json:"created_at"`                       // 생성 시각
	UpdatedAt time.Time `json:"updated_at"`                       // 수정 시각
}

func (Category) TableName() string {
	return "categories"
}

// Product is a catalog item. Amounts are in KRW (minor units, no decimals).
type Product struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Price       int64          `gorm:"not null" json:"price"` // 기본 가격
	Weight      float64        `json:"weight"`                // 무게 (g)
	Purity      string         `json:"purity"`                // 순도 (예: 24K, 18K, 999)
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Categories   []Category         `gorm:"many2many:product_categories" json:"categories,omitempty"`
	Images       []ProductImage     `gorm:"foreignKey:ProductID" json:"images,omitempty"`
	OptionGroups []OptionGroup      `gorm:"foreignKey:ProductID" json:"option_groups,omitempty"`
	Variants     []ProductVariant   `gorm:"foreignKey:ProductID" json:"variants,omitempty"`
	Attributes   []ProductAttribute `gorm:"foreignKey:ProductID" json:"attributes,omitempty"`
}

func (Product) TableName() string {
	return "products"
}

// BaseVariant returns the option-less variant every product carries.
func (p *Product) BaseVariant() *ProductVariant {
	for i := range p.Variants {
		if p.Variants[i].IsBase {
			return &p.Variants[i]
		}
	}
	return nil
}

type ProductImage struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	ProductID uint   `gorm:"not null;index" json:"product_id"`
	Key       string `gorm:"not null" json:"key"`       // S3 오브젝트 키
	Position  int    `gorm:"default:0" json:"position"` // 노출 순서
}

func (ProductImage) TableName() string {
	return "product_images"
}
