package domain

import (
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountNumberLength is the number of digits in a generated account number.
const AccountNumberLength = 12

var pinRe = regexp.MustCompile(`^\d{4}$`)

// Wallet is a user's balance-holding account. Balance is never negative and
// the PIN is kept only as a salted hash.
type Wallet struct {
	ID            uuid.UUID       `json:"id"`
	AccountNumber string          `json:"account_number"`
	OwnerID       uuid.UUID       `json:"owner_id"`
	Balance       decimal.Decimal `json:"balance"`
	PinHash       string          `json:"-"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// CanDebit reports whether the balance covers amount.
func (w *Wallet) CanDebit(amount decimal.Decimal) bool {
	return w.Balance.GreaterThanOrEqual(amount)
}

// ValidAmount reports whether amount is strictly positive with at most two
// fractional digits.
func ValidAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Equal(amount.Round(2))
}

// ValidPin reports whether pin is exactly four digits.
func ValidPin(pin string) bool {
	return pinRe.MatchString(pin)
}
