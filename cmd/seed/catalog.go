package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ikkim/udonggeum-storefront/internal/app/model"
	"github.com/ikkim/udonggeum-storefront/internal/app/repository"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const (
	productsSheet = "Products"
	variantsSheet = "Variants"
)

// Products 시트 컬럼
const (
	colHandle = iota
	colName
	colDescription
	colPrice
	colWeight
	colPurity
	colCategories // 쉼표 구분 slug
	colAttributes // "소재=18K;스톤=다이아"
	colImages     // 쉼표 구분 S3 키
	colBaseStock
	productColumns
)

// Variants 시트 컬럼
const (
	vColHandle = iota
	vColSKU
	vColOptions // "색상=골드;사이즈=11호"
	vColAdditionalPrice
	vColStock
	vColImageKey
	variantColumns
)

type optionPair struct {
	Group string
	Value string
}

type variantRow struct {
	SKU             string
	Options         []optionPair
	AdditionalPrice int64
	Stock           int
	ImageKey        string
}

type productRow struct {
	Handle      string
	Name        string
	Description string
	Price       int64
	Weight      float64
	Purity      string
	Categories  []string
	Attributes  []optionPair
	Images      []string
	BaseStock   int
	Variants    []variantRow
}

func readCatalogFromXLSX(filePath string) ([]*productRow, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()
	return readCatalog(f)
}

func readCatalog(f *excelize.File) ([]*productRow, error) {
	rows, err := f.GetRows(productsSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s sheet: %w", productsSheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("no products found in XLSX file")
	}

	var products []*productRow
	byHandle := make(map[string]*productRow)
	skipped := 0

	// 첫 행은 헤더이므로 스킵
	for i, row := range rows[1:] {
		row = pad(row, productColumns)
		handle := strings.TrimSpace(row[colHandle])
		name := strings.TrimSpace(row[colName])
		if handle == "" || name == "" {
			skipped++
			continue
		}
		if _, dup := byHandle[handle]; dup {
			return nil, fmt.Errorf("%s row %d: duplicate handle %q", productsSheet, i+2, handle)
		}

		price, err := parseInt64(row[colPrice])
		if err != nil || price < 0 {
			return nil, fmt.Errorf("%s row %d: invalid price %q", productsSheet, i+2, row[colPrice])
		}
		weight, _ := strconv.ParseFloat(strings.TrimSpace(row[colWeight]), 64)
		attrs, err := parsePairs(row[colAttributes])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", productsSheet, i+2, err)
		}
		stock, _ := strconv.Atoi(strings.TrimSpace(row[colBaseStock]))

		p := &productRow{
			Handle:      handle,
			Name:        name,
			Description: strings.TrimSpace(row[colDescription]),
			Price:       price,
			Weight:      weight,
			Purity:      strings.TrimSpace(row[colPurity]),
			Categories:  splitList(row[colCategories]),
			Attributes:  attrs,
			Images:      splitList(row[colImages]),
			BaseStock:   stock,
		}
		byHandle[handle] = p
		products = append(products, p)
	}

	// Variants 시트는 선택 사항
	vrows, err := f.GetRows(variantsSheet)
	if err == nil && len(vrows) > 1 {
		for i, row := range vrows[1:] {
			row = pad(row, variantColumns)
			handle := strings.TrimSpace(row[vColHandle])
			p, ok := byHandle[handle]
			if !ok {
				return nil, fmt.Errorf("%s row %d: unknown product handle %q", variantsSheet, i+2, handle)
			}
			options, err := parsePairs(row[vColOptions])
			if err != nil || len(options) == 0 {
				return nil, fmt.Errorf("%s row %d: invalid options %q", variantsSheet, i+2, row[vColOptions])
			}
			extra, _ := parseInt64(row[vColAdditionalPrice])
			stock, _ := strconv.Atoi(strings.TrimSpace(row[vColStock]))
			p.Variants = append(p.Variants, variantRow{
				SKU:             strings.TrimSpace(row[vColSKU]),
				Options:         options,
				AdditionalPrice: extra,
				Stock:           stock,
				ImageKey:        strings.TrimSpace(row[vColImageKey]),
			})
		}
	}

	fmt.Printf("\nSummary:\n")
	fmt.Printf("  Total product rows: %d\n", len(rows)-1)
	fmt.Printf("  Valid products: %d\n", len(products))
	fmt.Printf("  Skipped rows: %d\n", skipped)

	return products, nil
}

// importCatalog stores every product with its option groups and variants in
// one transaction. Categories and attribute definitions are created on demand.
func importCatalog(db *gorm.DB, products []*productRow) error {
	return db.Transaction(func(tx *gorm.DB) error {
		productRepo := repository.NewProductRepository(tx)
		categories := make(map[string]model.Category)
		definitions := make(map[string]model.AttributeDefinition)

		for _, p := range products {
			product := &model.Product{
				Name:        p.Name,
				Description: p.Description,
				Price:       p.Price,
				Weight:      p.Weight,
				Purity:      p.Purity,
			}
			for _, slug := range p.Categories {
				c, ok := categories[slug]
				if !ok {
					if err := tx.Where(model.Category{Slug: slug}).
						Attrs(model.Category{Name: slug}).
						FirstOrCreate(&c).Error; err != nil {
						return fmt.Errorf("category %s: %w", slug, err)
					}
					categories[slug] = c
				}
				product.Categories = append(product.Categories, c)
			}
			for _, attr := range p.Attributes {
				def, ok := definitions[attr.Group]
				if !ok {
					if err := tx.Where(model.AttributeDefinition{Name: attr.Group}).
						FirstOrCreate(&def).Error; err != nil {
						return fmt.Errorf("attribute %s: %w", attr.Group, err)
					}
					definitions[attr.Group] = def
				}
				product.Attributes = append(product.Attributes, model.ProductAttribute{
					AttributeDefinitionID: def.ID,
					Value:                 attr.Value,
				})
			}
			for i, key := range p.Images {
				product.Images = append(product.Images, model.ProductImage{Key: key, Position: i + 1})
			}

			if err := productRepo.Create(product); err != nil {
				return fmt.Errorf("product %s: %w", p.Handle, err)
			}
			if err := importVariants(tx, product.ID, p); err != nil {
				return fmt.Errorf("product %s: %w", p.Handle, err)
			}
		}
		return nil
	})
}

func importVariants(tx *gorm.DB, productID uint, p *productRow) error {
	base := model.ProductVariant{
		ProductID:     productID,
		SKU:           p.Handle + "-BASE",
		IsBase:        true,
		StockQuantity: p.BaseStock,
	}
	if err := tx.Create(&base).Error; err != nil {
		return err
	}

	// 옵션 그룹과 값은 시트에 처음 등장한 순서대로 노출
	groups := make(map[string]*model.OptionGroup)
	values := make(map[optionPair]model.OptionValue)
	groupCount := 0

	for _, v := range p.Variants {
		variant := model.ProductVariant{
			ProductID:       productID,
			SKU:             v.SKU,
			AdditionalPrice: v.AdditionalPrice,
			StockQuantity:   v.Stock,
			ImageKey:        v.ImageKey,
		}
		for _, opt := range v.Options {
			g, ok := groups[opt.Group]
			if !ok {
				groupCount++
				g = &model.OptionGroup{ProductID: productID, Name: opt.Group, Position: groupCount}
				if err := tx.Create(g).Error; err != nil {
					return err
				}
				groups[opt.Group] = g
			}
			val, ok := values[opt]
			if !ok {
				val = model.OptionValue{OptionGroupID: g.ID, Name: opt.Value, Position: len(g.Values) + 1}
				if err := tx.Create(&val).Error; err != nil {
					return err
				}
				g.Values = append(g.Values, val)
				values[opt] = val
			}
			variant.Options = append(variant.Options, val)
		}
		if err := tx.Create(&variant).Error; err != nil {
			return err
		}
	}
	return nil
}

func pad(row []string, n int) []string {
	for len(row) < n {
		row = append(row, "")
	}
	return row
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parsePairs reads "name=value;name=value"
func parsePairs(s string) ([]optionPair, error) {
	var out []optionPair
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		name, value = strings.TrimSpace(name), strings.TrimSpace(value)
		if !ok || name == "" || value == "" {
			return nil, fmt.Errorf("invalid pair %q", part)
		}
		out = append(out, optionPair{Group: name, Value: value})
	}
	return out, nil
}

func parseInt64(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
