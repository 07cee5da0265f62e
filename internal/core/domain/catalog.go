package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the slice of a catalog item settlement needs: its owner, live
// price and quantity on hand.
type Product struct {
	ID      uuid.UUID       `json:"id"`
	OwnerID uuid.UUID       `json:"owner_id"`
	Title   string          `json:"title"`
	Price   decimal.Decimal `json:"price"`
	Stock   int             `json:"stock"`
}

// Address is a saved delivery address from a user's address book.
type Address struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Recipient  string    `json:"recipient"`
	Street     string    `json:"street"`
	City       string    `json:"city"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
}

// OwnedBy reports whether the address belongs to userID.
func (a *Address) OwnedBy(userID uuid.UUID) bool {
	return a.UserID == userID
}
