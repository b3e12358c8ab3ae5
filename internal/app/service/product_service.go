package service

import (
	"context"
	"errors"
	"sort"
	"strconv"

	"github.com/ikkim/udonggeum-storefront/internal/app/model"
	"github.com/ikkim/udonggeum-storefront/internal/app/repository"
	"github.com/ikkim/udonggeum-storefront/internal/catalog"
	"github.com/ikkim/udonggeum-storefront/internal/storage"
	"github.com/ikkim/udonggeum-storefront/internal/variant"
	"github.com/ikkim/udonggeum-storefront/pkg/logger"
	"github.com/ikkim/udonggeum-storefront/pkg/lookup"
	"gorm.io/gorm"
)

const searchLimit = 20

var (
	ErrProductNotFound = errors.New("product not found")
)

// ProductCard is the listing view of a product.
type ProductCard struct {
	ID         uint     `json:"id"`
	Name       string   `json:"name"`
	Price      int64    `json:"price"`
	Thumbnail  string   `json:"thumbnail"`
	Categories []string `json:"categories"`
}

// ProductDetail is a product with its option picker data.
type ProductDetail struct {
	Product       *model.Product         `json:"product"`
	Images        []string               `json:"images"`
	OptionGroups  []variant.OptionGroup  `json:"option_groups"`
	Variants      []variant.VariantGroup `json:"variants"`
	BaseVariantID *uint                  `json:"base_variant_id,omitempty"`
}

// VariantResolution answers a partial option selection. When the product
// has no options UseBaseVariant is set and the other fields are empty.
type VariantResolution struct {
	ValidVariantIDs []string                   `json:"valid_variant_ids"`
	Match           *variant.VariantGroup      `json:"match,omitempty"`
	Availability    map[string]map[string]bool `json:"availability"`
	UseBaseVariant  bool                       `json:"use_base_variant"`
	BaseVariantID   *uint                      `json:"base_variant_id,omitempty"`
}

type ProductService interface {
	ListProducts(sel catalog.Selection) ([]ProductCard, error)
	Facets() ([]catalog.Facet, error)
	GetProduct(id uint) (*ProductDetail, error)
	ResolveVariants(productID uint, selections []variant.Selection) (*VariantResolution, error)
	// Search runs a name/description search. A newer search with the same
	// key cancels the previous one, which then fails with lookup.ErrSuperseded.
	Search(ctx context.Context, key, query string) ([]ProductCard, error)
}

type productService struct {
	productRepo repository.ProductRepository
	urls        *storage.URLBuilder
	searches    lookup.Group
}

func NewProductService(productRepo repository.ProductRepository, urls *storage.URLBuilder) ProductService {
	return &productService{
		productRepo: productRepo,
		urls:        urls,
	}
}

func (s *productService) listing() ([]model.Product, []catalog.Entry, error) {
	products, err := s.productRepo.FindAll()
	if err != nil {
		return nil, nil, err
	}
	categories, err := s.productRepo.ListCategories()
	if err != nil {
		return nil, nil, err
	}
	definitions, err := s.productRepo.ListAttributeDefinitions()
	if err != nil {
		return nil, nil, err
	}
	return products, catalogEntries(products, categories, definitions), nil
}

// catalogEntries flattens the catalog into filter entries. Categories are
// keyed by slug, attribute definitions by their numeric id.
func catalogEntries(products []model.Product, categories []model.Category, definitions []model.AttributeDefinition) []catalog.Entry {
	entries := make([]catalog.Entry, 0, len(products)+len(categories)+len(definitions))
	for _, c := range categories {
		entries = append(entries, catalog.Entry{Type: catalog.EntryCategory, ID: c.Slug, Name: c.Name})
	}
	for _, d := range definitions {
		entries = append(entries, catalog.Entry{
			Type:          catalog.EntryCustomAttributeDefinition,
			ID:            idString(d.ID),
			Name:          d.Name,
			AllowedValues: d.AllowedValues,
		})
	}
	for _, p := range products {
		entry := catalog.Entry{
			Type:        catalog.EntryItem,
			ID:          idString(p.ID),
			Name:        p.Name,
			CategoryIDs: categorySlugs(p),
			Attributes:  make(map[string]string, len(p.Attributes)),
		}
		for _, a := range p.Attributes {
			entry.Attributes[idString(a.AttributeDefinitionID)] = a.Value
		}
		entries = append(entries, entry)
	}
	return entries
}

func (s *productService) ListProducts(sel catalog.Selection) ([]ProductCard, error) {
	products, entries, err := s.listing()
	if err != nil {
		logger.Error("Failed to load catalog listing", err, nil)
		return nil, err
	}

	byID := make(map[string]*model.Product, len(products))
	for i := range products {
		byID[idString(products[i].ID)] = &products[i]
	}

	matched := catalog.Filter(entries, sel)
	cards := make([]ProductCard, 0, len(matched))
	for _, e := range matched {
		if p, ok := byID[e.ID]; ok {
			cards = append(cards, s.card(p))
		}
	}

	logger.Debug("Catalog filtered", map[string]interface{}{
		"category":   sel.CategoryID,
		"attributes": sel.Attributes,
		"count":      len(cards),
	})
	return cards, nil
}

func (s *productService) Facets() ([]catalog.Facet, error) {
	_, entries, err := s.listing()
	if err != nil {
		logger.Error("Failed to load catalog facets", err, nil)
		return nil, err
	}
	return catalog.Facets(entries), nil
}

func (s *productService) findProduct(id uint) (*model.Product, error) {
	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *productService) GetProduct(id uint) (*ProductDetail, error) {
	product, err := s.findProduct(id)
	if err != nil {
		return nil, err
	}

	resolver := resolverFor(product)
	detail := &ProductDetail{
		Product:      product,
		Images:       s.urls.URLs(imageKeys(product)),
		OptionGroups: resolver.Groups(),
		Variants:     resolver.Variants(),
	}
	if base := product.BaseVariant(); base != nil {
		detail.BaseVariantID = &base.ID
	}
	return detail, nil
}

func (s *productService) ResolveVariants(productID uint, selections []variant.Selection) (*VariantResolution, error) {
	product, err := s.findProduct(productID)
	if err != nil {
		return nil, err
	}

	res := &VariantResolution{
		ValidVariantIDs: []string{},
		Availability:    map[string]map[string]bool{},
	}
	if base := product.BaseVariant(); base != nil {
		res.BaseVariantID = &base.ID
	}

	resolver := resolverFor(product)
	if resolver.Empty() {
		res.UseBaseVariant = true
		return res, nil
	}

	res.ValidVariantIDs = resolver.ValidVariantIDs(selections)
	res.Availability = resolver.Availability(selections)
	if v, ok := resolver.Match(selections); ok {
		res.Match = &v
	}

	logger.Debug("Variant selection resolved", map[string]interface{}{
		"product_id": productID,
		"selections": len(selections),
		"valid":      len(res.ValidVariantIDs),
		"matched":    res.Match != nil,
	})
	return res, nil
}

func (s *productService) Search(ctx context.Context, key, query string) ([]ProductCard, error) {
	search := func(ctx context.Context) ([]model.Product, error) {
		return s.productRepo.Search(ctx, query, searchLimit)
	}

	var (
		products []model.Product
		err      error
	)
	if key == "" {
		products, err = search(ctx)
	} else {
		products, err = lookup.Do(ctx, &s.searches, key, search)
	}
	if err != nil {
		if errors.Is(err, lookup.ErrSuperseded) {
			logger.FromContext(ctx).Debug("Product search superseded", map[string]interface{}{
				"query": query,
			})
		}
		return nil, err
	}

	cards := make([]ProductCard, 0, len(products))
	for i := range products {
		cards = append(cards, s.card(&products[i]))
	}
	return cards, nil
}

func (s *productService) card(p *model.Product) ProductCard {
	thumbnail := s.urls.Placeholder()
	if urls := s.urls.URLs(imageKeys(p)); len(urls) > 0 {
		thumbnail = urls[0]
	}
	return ProductCard{
		ID:         p.ID,
		Name:       p.Name,
		Price:      p.Price,
		Thumbnail:  thumbnail,
		Categories: categorySlugs(*p),
	}
}

// resolverFor feeds the product's variants to the resolver with each
// variant's options in group display order.
func resolverFor(p *model.Product) *variant.Resolver {
	raw := make([]variant.RawVariant, 0, len(p.Variants))
	for _, v := range p.Variants {
		options := append([]model.OptionValue(nil), v.Options...)
		sort.SliceStable(options, func(i, j int) bool {
			if options[i].Group.Position != options[j].Group.Position {
				return options[i].Group.Position < options[j].Group.Position
			}
			return options[i].OptionGroupID < options[j].OptionGroupID
		})

		refs := make([]variant.OptionRef, 0, len(options))
		for _, o := range options {
			refs = append(refs, variant.OptionRef{
				GroupID:   idString(o.OptionGroupID),
				GroupName: o.Group.Name,
				ValueID:   idString(o.ID),
				ValueName: o.Name,
			})
		}
		stock := v.StockQuantity
		raw = append(raw, variant.RawVariant{ID: idString(v.ID), Options: refs, Stock: &stock})
	}
	return variant.New(raw)
}

func imageKeys(p *model.Product) []string {
	keys := make([]string, 0, len(p.Images))
	for _, img := range p.Images {
		keys = append(keys, img.Key)
	}
	return keys
}

func categorySlugs(p model.Product) []string {
	slugs := make([]string, 0, len(p.Categories))
	for _, c := range p.Categories {
		slugs = append(slugs, c.Slug)
	}
	return slugs
}

func idString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func parseID(s string) (uint, bool) {
	n, err := strconv.ParseUint(s, 10, 0)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}
