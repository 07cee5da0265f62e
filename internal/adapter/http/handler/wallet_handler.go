package handler

import (
	"strconv"

	"marketplace-settlement/internal/adapter/http/dto"
	"marketplace-settlement/internal/core/ports"
	"marketplace-settlement/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles wallet endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// Create handles POST /api/v1/wallets.
func (h *WalletHandler) Create(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req dto.CreateWalletRequest
	if !bindJSON(c, &req) {
		return
	}

	wallet, err := h.walletSvc.CreateWallet(c.Request.Context(), p, req.Pin)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewWalletResponse(wallet))
}

// Get handles GET /api/v1/wallets/me.
func (h *WalletHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	wallet, err := h.walletSvc.GetWallet(c.Request.Context(), p)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewWalletResponse(wallet))
}

// ListEntries handles GET /api/v1/wallets/me/entries.
func (h *WalletHandler) ListEntries(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	// Out-of-range values fall back to the service defaults.
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	result, err := h.walletSvc.ListEntries(c.Request.Context(), p, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewLedgerPageResponse(result))
}

// Deposit handles POST /api/v1/wallets/me/deposit.
func (h *WalletHandler) Deposit(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req dto.DepositRequest
	if !bindJSON(c, &req) {
		return
	}

	wallet, err := h.walletSvc.Deposit(c.Request.Context(), p, ports.DepositRequest{Amount: req.Amount})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewWalletResponse(wallet))
}

// Transfer handles POST /api/v1/wallets/me/transfer.
func (h *WalletHandler) Transfer(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req dto.TransferRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, err := h.walletSvc.Transfer(c.Request.Context(), p, ports.TransferRequest{
		ToAccount: req.ToAccount,
		Amount:    req.Amount,
		Pin:       req.Pin,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewLedgerEntryResponse(entry))
}

// ChangePin handles PUT /api/v1/wallets/me/pin.
func (h *WalletHandler) ChangePin(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req dto.ChangePinRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.walletSvc.ChangePin(c.Request.Context(), p, req.OldPin, req.NewPin); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
