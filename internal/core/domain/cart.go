package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartLine pairs a product with a quantity. UnitPrice and Title are read
// from the live catalog every time the cart is loaded.
type CartLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Subtotal is UnitPrice * Quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is owned 1:1 by a user. Its total is always derived from the lines.
type Cart struct {
	UserID uuid.UUID  `json:"user_id"`
	Lines  []CartLine `json:"lines"`
}

// Total recomputes the cart total from its lines.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Lines) == 0
}
