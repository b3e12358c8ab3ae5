package model

// AttributeDefinition is a filterable custom attribute (e.g. metal, stone).
type AttributeDefinition struct {
	ID            uint     `gorm:"primarykey" json:"id"`                            // 속성 정의 ID
	Name          string   `gorm:"uniqueIndex;not null" json:"name"`                // 속성명
	AllowedValues []string `gorm:"type:text;serializer:json" json:"allowed_values"` // 허용 값 목록
	Position      int      `gorm:"default:0" json:"position"`                       // 노출 순서
}

func (AttributeDefinition) TableName() string {
	return "attribute_definitions"
}

type ProductAttribute struct {
	ID                    uint   `gorm:"primarykey" json:"id"`
	ProductID             uint   `gorm:"not null;uniqueIndex:idx_product_attribute" json:"product_id"`
	AttributeDefinitionID uint   `gorm:"not null;uniqueIndex:idx_product_attribute" json:"attribute_definition_id"`
	Value                 string `gorm:"not null" json:"value"`

	Definition AttributeDefinition `gorm:"foreignKey:AttributeDefinitionID" json:"-"`
}

func (ProductAttribute) TableName() string {
	return "product_attributes"
}
