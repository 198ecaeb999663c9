package catalog

import (
	"slices"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// SortOrder задаёт порядок выдачи в листинге товаров.
type SortOrder string

const (
	// SortFeatured — порядок каталога, без сортировки.
	SortFeatured   SortOrder = "featured"
	SortPriceAsc   SortOrder = "price-asc"
	SortPriceDesc  SortOrder = "price-desc"
	SortRatingDesc SortOrder = "rating-desc"
	SortNameAsc    SortOrder = "name-asc"
)

const (
	defaultRelatedLimit  = 3
	defaultFeaturedLimit = 3
)

// ParseSortOrder нормализует значение из запроса; неизвестное значение — featured.
func ParseSortOrder(raw string) SortOrder {
	switch order := SortOrder(strings.ToLower(strings.TrimSpace(raw))); order {
	case SortPriceAsc, SortPriceDesc, SortRatingDesc, SortNameAsc:
		return order
	default:
		return SortFeatured
	}
}

// Query — параметры листинга: фильтр по категории и сортировка.
type Query struct {
	Category string
	Sort     SortOrder
}

// Catalog — статический каталог товаров в памяти.
type Catalog struct {
	products []domain.Product
	byID     map[string]int
}

// New возвращает каталог со стандартным ассортиментом витрины.
func New() *Catalog {
	return NewWithProducts(defaultProducts)
}

// NewWithProducts строит каталог из произвольного набора товаров (используется в тестах).
// При повторе ID побеждает первый товар.
func NewWithProducts(products []domain.Product) *Catalog {
	c := &Catalog{
		products: make([]domain.Product, 0, len(products)),
		byID:     make(map[string]int, len(products)),
	}
	for _, p := range products {
		if _, exists := c.byID[p.ID]; exists {
			continue
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, cloneProduct(p))
	}
	return c
}

// GetProductByID возвращает товар по идентификатору.
func (c *Catalog) GetProductByID(id string) (domain.Product, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return domain.Product{}, false
	}
	return cloneProduct(c.products[idx]), true
}

// GetProductsByCategory возвращает товары категории в порядке каталога.
func (c *Catalog) GetProductsByCategory(category string) []domain.Product {
	result := make([]domain.Product, 0)
	for _, p := range c.products {
		if p.Category == category {
			result = append(result, cloneProduct(p))
		}
	}
	return result
}

// GetAllCategories возвращает уникальные категории в порядке первого появления.
func (c *Catalog) GetAllCategories() []string {
	seen := make(map[string]struct{}, len(c.products))
	result := make([]string, 0, len(c.products))
	for _, p := range c.products {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		result = append(result, p.Category)
	}
	return result
}

// All возвращает все товары в порядке каталога.
func (c *Catalog) All() []domain.Product {
	result := make([]domain.Product, 0, len(c.products))
	for _, p := range c.products {
		result = append(result, cloneProduct(p))
	}
	return result
}

// List применяет фильтр категории и сортировку. Пустая категория — все товары.
func (c *Catalog) List(q Query) []domain.Product {
	var result []domain.Product
	if q.Category == "" {
		result = c.All()
	} else {
		result = c.GetProductsByCategory(q.Category)
	}

	switch q.Sort {
	case SortPriceAsc:
		sort.SliceStable(result, func(i, j int) bool { return result[i].PriceMinor < result[j].PriceMinor })
	case SortPriceDesc:
		sort.SliceStable(result, func(i, j int) bool { return result[i].PriceMinor > result[j].PriceMinor })
	case SortRatingDesc:
		sort.SliceStable(result, func(i, j int) bool { return result[i].Rating > result[j].Rating })
	case SortNameAsc:
		// Collator не потокобезопасен, поэтому создаётся на каждый вызов.
		col := collate.New(language.French)
		sort.SliceStable(result, func(i, j int) bool {
			return col.CompareString(result[i].Name, result[j].Name) < 0
		})
	}

	return result
}

// Related возвращает товары той же категории, кроме самого товара.
// limit <= 0 означает значение по умолчанию (3).
func (c *Catalog) Related(id string, limit int) []domain.Product {
	if limit <= 0 {
		limit = defaultRelatedLimit
	}
	product, ok := c.GetProductByID(id)
	if !ok {
		return []domain.Product{}
	}

	result := make([]domain.Product, 0, limit)
	for _, p := range c.products {
		if p.Category != product.Category || p.ID == product.ID {
			continue
		}
		result = append(result, cloneProduct(p))
		if len(result) >= limit {
			break
		}
	}
	return result
}

// Featured возвращает первые limit товаров каталога.
func (c *Catalog) Featured(limit int) []domain.Product {
	if limit <= 0 {
		limit = defaultFeaturedLimit
	}
	if limit > len(c.products) {
		limit = len(c.products)
	}
	result := make([]domain.Product, 0, limit)
	for _, p := range c.products[:limit] {
		result = append(result, cloneProduct(p))
	}
	return result
}

func cloneProduct(p domain.Product) domain.Product {
	p.Features = slices.Clone(p.Features)
	p.Specifications = slices.Clone(p.Specifications)
	return p
}

var _ domain.Catalog = (*Catalog)(nil)
