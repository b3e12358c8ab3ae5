package controller

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/udonggeum-storefront/internal/app/service"
	"github.com/ikkim/udonggeum-storefront/internal/catalog"
	apperrors "github.com/ikkim/udonggeum-storefront/internal/errors"
	"github.com/ikkim/udonggeum-storefront/internal/middleware"
	"github.com/ikkim/udonggeum-storefront/internal/variant"
	"github.com/ikkim/udonggeum-storefront/pkg/lookup"
)

// attributeParamPrefix marks attribute facets in the listing query,
// e.g. ?attr.3=18K
const attributeParamPrefix = "attr."

type ProductController struct {
	productService service.ProductService
}

func NewProductController(productService service.ProductService) *ProductController {
	return &ProductController{
		productService: productService,
	}
}

// parseSelection reads ?category=<slug>&attr.<id>=<value>
func parseSelection(c *gin.Context) catalog.Selection {
	sel := catalog.Selection{
		CategoryID: c.Query("category"),
		Attributes: map[string]string{},
	}
	for key, values := range c.Request.URL.Query() {
		if !strings.HasPrefix(key, attributeParamPrefix) || len(values) == 0 {
			continue
		}
		if id := strings.TrimPrefix(key, attributeParamPrefix); id != "" && values[0] != "" {
			sel.Attributes[id] = values[0]
		}
	}
	return sel
}

// ListProducts returns the catalog filtered by category and attributes
// GET /api/v1/products
func (ctrl *ProductController) ListProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	sel := parseSelection(c)
	products, err := ctrl.productService.ListProducts(sel)
	if err != nil {
		log.Error("Failed to list products", err, map[string]interface{}{
			"category": sel.CategoryID,
		})
		apperrors.InternalError(c, "상품 목록을 불러오지 못했습니다")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

// ListFacets returns every facet with its value counts
// GET /api/v1/products/facets
func (ctrl *ProductController) ListFacets(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	facets, err := ctrl.productService.Facets()
	if err != nil {
		log.Error("Failed to build facets", err, nil)
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"facets": facets,
	})
}

// SearchProducts runs a text search. A newer search from the same cart
// session supersedes the one still running.
// GET /api/v1/products/search?q=
func (ctrl *ProductController) SearchProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "검색어를 입력해주세요")
		return
	}

	products, err := ctrl.productService.Search(c.Request.Context(), middleware.GetCartSessionID(c), query)
	if err != nil {
		if errors.Is(err, lookup.ErrSuperseded) {
			apperrors.Conflict(c, apperrors.RequestSuperseded, "새로운 검색 요청으로 대체되었습니다")
			return
		}
		log.Error("Product search failed", err, map[string]interface{}{
			"query": query,
		})
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

// GetProductByID returns product detail with its option picker data
// GET /api/v1/products/:id
func (ctrl *ProductController) GetProductByID(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	detail, err := ctrl.productService.GetProduct(id)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			apperrors.NotFound(c, apperrors.ProductNotFound, "상품을 찾을 수 없습니다")
			return
		}
		log.Error("Failed to fetch product", err, map[string]interface{}{
			"product_id": id,
		})
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, detail)
}

// ResolveVariants answers a partial option selection given as
// ?<groupID>=<valueID> pairs
// GET /api/v1/products/:id/variants
func (ctrl *ProductController) ResolveVariants(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	query := c.Request.URL.Query()
	groups := make([]string, 0, len(query))
	for group := range query {
		groups = append(groups, group)
	}
	sort.Strings(groups)

	selections := make([]variant.Selection, 0, len(groups))
	for _, group := range groups {
		if value := query.Get(group); value != "" {
			selections = append(selections, variant.Selection{GroupID: group, ValueID: value})
		}
	}

	res, err := ctrl.productService.ResolveVariants(id, selections)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			apperrors.NotFound(c, apperrors.ProductNotFound, "상품을 찾을 수 없습니다")
			return
		}
		log.Error("Failed to resolve variants", err, map[string]interface{}{
			"product_id": id,
		})
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, res)
}

// parseUintParam reads a numeric path parameter and answers 400 if it is not one
func parseUintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "잘못된 ID입니다")
		return 0, false
	}
	return uint(id), true
}
