package domain

// Product is a catalog entry. Orders embed a snapshot of product data in
// their items blob, so deleting a product never touches existing orders.
type Product struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}
