package domain

// Currency — единственная валюта витрины, суммы хранятся в центах.
const Currency = "EUR"

// Specification — одна строка таблицы характеристик товара.
type Specification struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Product описывает товар каталога. Значения неизменяемы и принадлежат каталогу.
type Product struct {
	ID       string
	Name     string
	Category string
	// PriceMinor — цена за единицу в центах (59.99 € = 5999).
	PriceMinor     int64
	Description    string
	Features       []string
	Rating         float64
	Image          string
	Specifications []Specification
}
