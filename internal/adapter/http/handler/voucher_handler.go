package handler

import (
	"time"

	"github.com/Meghwin-Dave/Discount-Buddy/internal/adapter/http/dto"
	"github.com/Meghwin-Dave/Discount-Buddy/internal/adapter/http/middleware"
	"github.com/Meghwin-Dave/Discount-Buddy/internal/core/domain"
	"github.com/Meghwin-Dave/Discount-Buddy/internal/core/ports"
	"github.com/Meghwin-Dave/Discount-Buddy/pkg/apperror"
	"github.com/Meghwin-Dave/Discount-Buddy/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// VoucherHandler handles voucher endpoints: public browsing, purchase and
// merchant management.
type VoucherHandler struct {
	catalogSvc    ports.CatalogService
	redemptionSvc ports.RedemptionService
}

// NewVoucherHandler creates a new VoucherHandler.
func NewVoucherHandler(catalogSvc ports.CatalogService, redemptionSvc ports.RedemptionService) *VoucherHandler {
	return &VoucherHandler{catalogSvc: catalogSvc, redemptionSvc: redemptionSvc}
}

// ListActive handles GET /api/v1/vouchers/active.
func (h *VoucherHandler) ListActive(c *gin.Context) {
	vouchers, err := h.catalogSvc.ListActiveVouchers(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.VoucherResponse, 0, len(vouchers))
	for i := range vouchers {
		out = append(out, toVoucherResponse(&vouchers[i]))
	}
	response.OK(c, out)
}

// Get handles GET /api/v1/vouchers/:id.
func (h *VoucherHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid voucher id"))
		return
	}

	v, err := h.catalogSvc.GetVoucher(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toVoucherResponse(v))
}

// Purchase handles POST /api/v1/vouchers/:id/purchase.
func (h *VoucherHandler) Purchase(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	voucherID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid voucher id"))
		return
	}

	redemption, err := h.redemptionSvc.PurchaseVoucher(c.Request.Context(), ports.PurchaseVoucherRequest{
		VoucherID: voucherID,
		UserID:    userID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toRedemptionResponse(redemption))
}

// ListRedemptions handles GET /api/v1/vouchers/redemptions.
func (h *VoucherHandler) ListRedemptions(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	redemptions, err := h.redemptionSvc.ListVoucherRedemptions(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.VoucherRedemptionResponse, 0, len(redemptions))
	for i := range redemptions {
		out = append(out, toRedemptionResponse(&redemptions[i]))
	}
	response.OK(c, out)
}

// Create handles POST /api/v1/merchant/vouchers.
func (h *VoucherHandler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.VoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	v, err := h.catalogSvc.CreateVoucher(c.Request.Context(), userID, voucherFromRequest(uuid.Nil, &req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toVoucherResponse(v))
}

// Update handles PUT /api/v1/merchant/vouchers/:id.
func (h *VoucherHandler) Update(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid voucher id"))
		return
	}

	var req dto.VoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	v, err := h.catalogSvc.UpdateVoucher(c.Request.Context(), userID, voucherFromRequest(id, &req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toVoucherResponse(v))
}

// Delete handles DELETE /api/v1/merchant/vouchers/:id.
func (h *VoucherHandler) Delete(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid voucher id"))
		return
	}

	if err := h.catalogSvc.DeleteVoucher(c.Request.Context(), userID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func voucherFromRequest(id uuid.UUID, req *dto.VoucherRequest) *domain.Voucher {
	restaurantID, _ := uuid.Parse(req.RestaurantID)

	v := &domain.Voucher{
		ID:              id,
		RestaurantID:    restaurantID,
		Title:           req.Title,
		Description:     req.Description,
		Code:            req.Code,
		DiscountPercent: req.DiscountPercent,
		OriginalPrice:   req.OriginalPrice,
		SalePrice:       req.SalePrice,
		TotalQuantity:   req.TotalQuantity,
		MaxPerUser:      req.MaxPerUser,
		StartsAt:        req.StartsAt,
		EndsAt:          req.EndsAt,
		IsActive:        true,
	}
	if req.IsActive != nil {
		v.IsActive = *req.IsActive
	}
	return v
}

func toVoucherResponse(v *domain.Voucher) dto.VoucherResponse {
	return dto.VoucherResponse{
		ID:              v.ID.String(),
		RestaurantID:    v.RestaurantID.String(),
		Title:           v.Title,
		Description:     v.Description,
		Code:            v.Code,
		DiscountPercent: v.DiscountPercent,
		OriginalPrice:   v.OriginalPrice.StringFixed(2),
		SalePrice:       v.SalePrice.StringFixed(2),
		Remaining:       v.Remaining(),
		MaxPerUser:      v.MaxPerUser,
		StartsAt:        v.StartsAt,
		EndsAt:          v.EndsAt,
		IsActive:        v.IsActive,
	}
}

func toRedemptionResponse(r *domain.VoucherRedemption) dto.VoucherRedemptionResponse {
	return dto.VoucherRedemptionResponse{
		ID:           r.ID.String(),
		VoucherID:    r.VoucherID.String(),
		PricePaid:    r.PricePaid.StringFixed(2),
		IsSuccessful: r.IsSuccessful,
		RedeemedAt:   r.RedeemedAt.UTC().Format(time.RFC3339),
	}
}
