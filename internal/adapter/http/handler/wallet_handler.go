package handler

import (
	"time"

	"github.com/Meghwin-Dave/Discount-Buddy/internal/adapter/http/dto"
	"github.com/Meghwin-Dave/Discount-Buddy/internal/adapter/http/middleware"
	"github.com/Meghwin-Dave/Discount-Buddy/internal/core/ports"
	"github.com/Meghwin-Dave/Discount-Buddy/pkg/apperror"
	"github.com/Meghwin-Dave/Discount-Buddy/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles wallet endpoints. The caller's identity always comes
// from the token, never from the request body.
type WalletHandler struct {
	walletSvc ports.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// Get handles GET /api/v1/wallet. A wallet is created lazily on first access.
func (h *WalletHandler) Get(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	wallet, err := h.walletSvc.GetOrCreate(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.WalletResponse{
		ID:      wallet.ID.String(),
		Balance: wallet.Balance.StringFixed(2),
	})
}

// Topup handles POST /api/v1/wallet/topup.
func (h *WalletHandler) Topup(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.TopupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	wallet, err := h.walletSvc.Credit(c.Request.Context(), userID, req.Amount, "Top-up")
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.WalletResponse{
		ID:      wallet.ID.String(),
		Balance: wallet.Balance.StringFixed(2),
	})
}

// ListTransactions handles GET /api/v1/wallet/transactions. Entries come back
// newest first.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	entries, err := h.walletSvc.ListEntries(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.LedgerEntryResponse, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		out = append(out, dto.LedgerEntryResponse{
			ID:        e.ID.String(),
			Kind:      string(e.Kind),
			Amount:    e.Amount.StringFixed(2),
			Reason:    e.Reason,
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	response.OK(c, out)
}
