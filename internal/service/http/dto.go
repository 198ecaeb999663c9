package httpapi

import (
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/cart"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
)

type productDTO struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	Category       string                 `json:"category"`
	PriceMinor     int64                  `json:"priceMinor"`
	Currency       string                 `json:"currency"`
	Description    string                 `json:"description"`
	Features       []string               `json:"features"`
	Rating         float64                `json:"rating"`
	Image          string                 `json:"image"`
	Specifications []domain.Specification `json:"specifications"`
}

func toProductDTO(p domain.Product) productDTO {
	features := p.Features
	if features == nil {
		features = []string{}
	}
	specs := p.Specifications
	if specs == nil {
		specs = []domain.Specification{}
	}
	return productDTO{
		ID:             p.ID,
		Name:           p.Name,
		Category:       p.Category,
		PriceMinor:     p.PriceMinor,
		Currency:       domain.Currency,
		Description:    p.Description,
		Features:       features,
		Rating:         p.Rating,
		Image:          p.Image,
		Specifications: specs,
	}
}

func toProductDTOs(products []domain.Product) []productDTO {
	out := make([]productDTO, 0, len(products))
	for _, p := range products {
		out = append(out, toProductDTO(p))
	}
	return out
}

type cartLineDTO struct {
	Product        productDTO `json:"product"`
	Quantity       int        `json:"quantity"`
	LineTotalMinor int64      `json:"lineTotalMinor"`
}

type cartDTO struct {
	Items         []cartLineDTO `json:"items"`
	TotalItems    int           `json:"totalItems"`
	SubtotalMinor int64         `json:"subtotalMinor"`
	Currency      string        `json:"currency"`
	IsOpen        bool          `json:"isOpen"`
}

func toCartDTO(s cart.Snapshot) cartDTO {
	items := make([]cartLineDTO, 0, len(s.Items))
	for _, item := range s.Items {
		items = append(items, cartLineDTO{
			Product:        toProductDTO(item.Product),
			Quantity:       item.Quantity,
			LineTotalMinor: item.TotalMinor(),
		})
	}
	return cartDTO{
		Items:         items,
		TotalItems:    s.TotalItems,
		SubtotalMinor: s.Subtotal,
		Currency:      domain.Currency,
		IsOpen:        s.IsOpen,
	}
}

type checkoutDTO struct {
	State checkout.State `json:"state"`
	Quote domain.Quote   `json:"quote"`
}

type orderLineDTO struct {
	ProductID  string `json:"productId"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	PriceMinor int64  `json:"priceMinor"`
}

type orderDTO struct {
	ID            string              `json:"id"`
	Status        domain.OrderStatus  `json:"status"`
	Customer      domain.CheckoutForm `json:"customer"`
	Lines         []orderLineDTO      `json:"lines"`
	SubtotalMinor int64               `json:"subtotalMinor"`
	ShippingMinor int64               `json:"shippingMinor"`
	TotalMinor    int64               `json:"totalMinor"`
	Currency      string              `json:"currency"`
	CreatedAt     time.Time           `json:"createdAt"`
}

func toOrderDTO(o domain.Order) orderDTO {
	lines := make([]orderLineDTO, 0, len(o.Lines))
	for _, line := range o.Lines {
		lines = append(lines, orderLineDTO{
			ProductID:  line.ProductID,
			Name:       line.Name,
			Quantity:   line.Qty,
			PriceMinor: line.PriceMinor,
		})
	}
	return orderDTO{
		ID:            o.ID,
		Status:        o.Status,
		Customer:      o.Customer,
		Lines:         lines,
		SubtotalMinor: o.SubtotalMinor,
		ShippingMinor: o.ShippingMinor,
		TotalMinor:    o.TotalMinor,
		Currency:      o.Currency,
		CreatedAt:     o.CreatedAt,
	}
}
