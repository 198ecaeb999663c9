package domain

// MaxLineQuantity — верхняя граница количества одной позиции.
// Держит TotalItems и Subtotal далеко от переполнения.
const MaxLineQuantity = 9999

// ValidLineQuantity сообщает, укладывается ли количество в [1, MaxLineQuantity].
func ValidLineQuantity(quantity int) bool {
	return quantity >= 1 && quantity <= MaxLineQuantity
}

// LineItem — одна позиция корзины: товар и его количество (1..MaxLineQuantity).
type LineItem struct {
	Product  Product
	Quantity int
}

// TotalMinor возвращает стоимость позиции: цена × количество.
func (l LineItem) TotalMinor() int64 {
	return l.Product.PriceMinor * int64(l.Quantity)
}

// PersistedLine — формат позиции в локальном хранилище корзины.
// Детали товара не дублируются и восстанавливаются из каталога по ID.
type PersistedLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// TotalItems считает суммарное количество единиц по позициям.
func TotalItems(items []LineItem) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}

// Subtotal считает сумму позиций без доставки и налогов.
func Subtotal(items []LineItem) int64 {
	var total int64
	for _, item := range items {
		total += item.TotalMinor()
	}
	return total
}
