// Package catalog - статический каталог товаров витрины.
package catalog

// Product - карточка товара.
type Product struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
	Campus   string  `json:"campus"`
	Image    string  `json:"image"`
}

var products = []Product{
	{ID: "s-201", Name: "A4 Bond Paper (500s)", Price: 180, Category: "School Supplies", Campus: "ADMU", Image: "bondpaper.jpg"},
	{ID: "s-202", Name: "Yellow Pad (80 leaves)", Price: 45, Category: "School Supplies", Campus: "ADMU", Image: "yellowpad.jpg"},
	{ID: "s-203", Name: "UniThrift Tote Bag", Price: 150, Category: "Preloved", Campus: "UPD", Image: "totebag.jpg"},
	{ID: "s-204", Name: "Refillable Notebook", Price: 120, Category: "School Supplies", Campus: "UST", Image: "notebook.jpg"},
	{ID: "b-101", Name: "GE Book: Ethics", Price: 120, Category: "Books", Campus: "ADMU", Image: "ethics.jpg"},
	{ID: "g-301", Name: "Wired Earphones", Price: 150, Category: "Gadgets", Campus: "UPD", Image: "earphones.jpg"},
}

// Products возвращает копию каталога в фиксированном порядке.
func Products() []Product {
	out := make([]Product, len(products))
	copy(out, products)
	return out
}

// Find ищет товар по id.
func Find(id string) (Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}
