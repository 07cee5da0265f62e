package dto

import (
	"time"

	"marketplace-settlement/internal/core/domain"
	"marketplace-settlement/internal/core/ports"

	"github.com/shopspring/decimal"
)

// CreateWalletRequest is the request body for opening a wallet.
type CreateWalletRequest struct {
	Pin string `json:"pin" binding:"required,pin"`
}

// DepositRequest is the request body for funding a wallet through the gateway.
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"money"`
}

// TransferRequest is the request body for a wallet-to-wallet transfer.
type TransferRequest struct {
	ToAccount string          `json:"to_account" binding:"required,numeric,len=12"`
	Amount    decimal.Decimal `json:"amount" binding:"money"`
	Pin       string          `json:"pin" binding:"required,pin"`
}

// ChangePinRequest is the request body for rotating a wallet PIN.
type ChangePinRequest struct {
	OldPin string `json:"old_pin" binding:"required,pin"`
	NewPin string `json:"new_pin" binding:"required,pin"`
}

// AddCartItemRequest is the request body for adding a product to the cart.
type AddCartItemRequest struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
	Quantity  int    `json:"quantity" binding:"required,gte=1,lte=1000"`
}

// PayOrderRequest is the request body for settling an order. The address id
// is parsed by the handler so a malformed one is reported after ownership.
type PayOrderRequest struct {
	AddressID *string `json:"address_id,omitempty"`
}

// WalletResponse is the caller-facing view of a wallet.
type WalletResponse struct {
	ID            string          `json:"id"`
	AccountNumber string          `json:"account_number"`
	Balance       decimal.Decimal `json:"balance"`
	CreatedAt     string          `json:"created_at"`
	UpdatedAt     string          `json:"updated_at"`
}

// LedgerEntryResponse is one row of wallet history.
type LedgerEntryResponse struct {
	ID           string          `json:"id"`
	Kind         string          `json:"kind"`
	Direction    string          `json:"direction"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Counterparty string          `json:"counterparty,omitempty"`
	Reference    string          `json:"reference,omitempty"`
	CreatedAt    string          `json:"created_at"`
}

// LedgerPageResponse wraps a paginated ledger listing.
type LedgerPageResponse struct {
	Items      []LedgerEntryResponse `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}

// CartLineResponse is one cart line priced from the live catalog.
type CartLineResponse struct {
	ProductID string          `json:"product_id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// CartResponse is the caller's cart with a recomputed total.
type CartResponse struct {
	Lines []CartLineResponse `json:"lines"`
	Total decimal.Decimal    `json:"total"`
}

// OrderLineResponse is an order line with its captured unit price.
type OrderLineResponse struct {
	ProductID string          `json:"product_id"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Amount    decimal.Decimal `json:"amount"`
}

// OrderResponse is the caller-facing view of an order.
type OrderResponse struct {
	ID                string              `json:"id"`
	Status            string              `json:"status"`
	TotalPrice        decimal.Decimal     `json:"total_price"`
	DeliveryAddressID *string             `json:"delivery_address_id,omitempty"`
	Lines             []OrderLineResponse `json:"lines"`
	CreatedAt         string              `json:"created_at"`
	UpdatedAt         string              `json:"updated_at"`
	PaidAt            *string             `json:"paid_at,omitempty"`
}

// DependencyStatus is the health of one backing service.
type DependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthResponse reports the state of every configured dependency.
type HealthResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]DependencyStatus `json:"dependencies"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// NewWalletResponse maps a wallet, leaving the PIN hash out.
func NewWalletResponse(w *domain.Wallet) WalletResponse {
	return WalletResponse{
		ID:            w.ID.String(),
		AccountNumber: w.AccountNumber,
		Balance:       w.Balance,
		CreatedAt:     formatTime(w.CreatedAt),
		UpdatedAt:     formatTime(w.UpdatedAt),
	}
}

// NewLedgerEntryResponse maps a single ledger entry.
func NewLedgerEntryResponse(e *domain.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:           e.ID.String(),
		Kind:         string(e.Kind),
		Direction:    string(e.Direction),
		Amount:       e.Amount,
		BalanceAfter: e.BalanceAfter,
		Counterparty: e.Counterparty,
		Reference:    e.Reference,
		CreatedAt:    formatTime(e.CreatedAt),
	}
}

// NewLedgerPageResponse maps a page of ledger entries.
func NewLedgerPageResponse(p *ports.LedgerPage) LedgerPageResponse {
	items := make([]LedgerEntryResponse, 0, len(p.Entries))
	for i := range p.Entries {
		items = append(items, NewLedgerEntryResponse(&p.Entries[i]))
	}
	totalPages := 0
	if p.PageSize > 0 {
		totalPages = int((p.Total + int64(p.PageSize) - 1) / int64(p.PageSize))
	}
	return LedgerPageResponse{
		Items:      items,
		Total:      p.Total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: totalPages,
	}
}

// NewCartResponse maps a cart and recomputes its total.
func NewCartResponse(c *domain.Cart) CartResponse {
	lines := make([]CartLineResponse, 0, len(c.Lines))
	for _, l := range c.Lines {
		lines = append(lines, CartLineResponse{
			ProductID: l.ProductID.String(),
			Title:     l.Title,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			Subtotal:  l.Subtotal(),
		})
	}
	return CartResponse{Lines: lines, Total: c.Total()}
}

// NewOrderResponse maps an order with its lines.
func NewOrderResponse(o *domain.Order) OrderResponse {
	lines := make([]OrderLineResponse, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, OrderLineResponse{
			ProductID: l.ProductID.String(),
			Title:     l.Title,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Amount:    l.Amount(),
		})
	}

	resp := OrderResponse{
		ID:         o.ID.String(),
		Status:     string(o.Status),
		TotalPrice: o.TotalPrice,
		Lines:      lines,
		CreatedAt:  formatTime(o.CreatedAt),
		UpdatedAt:  formatTime(o.UpdatedAt),
	}
	if o.DeliveryAddressID != nil {
		s := o.DeliveryAddressID.String()
		resp.DeliveryAddressID = &s
	}
	if o.PaidAt != nil {
		s := formatTime(*o.PaidAt)
		resp.PaidAt = &s
	}
	return resp
}
