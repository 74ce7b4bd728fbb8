package domain

import "time"

// OrderRecord is one persisted checkout line. All records of one confirmed
// checkout share OrderID.
type OrderRecord struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"orderId"`
	UserID    string    `json:"userId"`
	ProductID int       `json:"productId"`
	Title     string    `json:"title"`
	Price     string    `json:"price"`
	Quantity  int       `json:"quantity"`
	Subtotal  string    `json:"subtotal"`
	CreatedAt time.Time `json:"createdAt"`
}

type OrderLine struct {
	ProductID int    `json:"productId"`
	Title     string `json:"title"`
	UnitPrice string `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	Subtotal  string `json:"subtotal"`
}

type Order struct {
	OrderID   string      `json:"orderId"`
	UserID    string      `json:"userId"`
	Lines     []OrderLine `json:"lines"`
	CreatedAt time.Time   `json:"createdAt"`
}

// OrderFromRecords assembles an order from records sharing one order id.
// CreatedAt is the earliest record timestamp.
func OrderFromRecords(orderID, userID string, records []OrderRecord) Order {
	order := Order{OrderID: orderID, UserID: userID, Lines: make([]OrderLine, 0, len(records))}
	for _, r := range records {
		if order.CreatedAt.IsZero() || r.CreatedAt.Before(order.CreatedAt) {
			order.CreatedAt = r.CreatedAt
		}
		order.Lines = append(order.Lines, OrderLine{
			ProductID: r.ProductID,
			Title:     r.Title,
			UnitPrice: r.Price,
			Quantity:  r.Quantity,
			Subtotal:  r.Subtotal,
		})
	}
	return order
}
