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

// DealHandler handles deal endpoints: public browsing, redemption and
// merchant management.
type DealHandler struct {
	catalogSvc    ports.CatalogService
	redemptionSvc ports.RedemptionService
}

// NewDealHandler creates a new DealHandler.
func NewDealHandler(catalogSvc ports.CatalogService, redemptionSvc ports.RedemptionService) *DealHandler {
	return &DealHandler{catalogSvc: catalogSvc, redemptionSvc: redemptionSvc}
}

// ListActive handles GET /api/v1/deals/active.
func (h *DealHandler) ListActive(c *gin.Context) {
	deals, err := h.catalogSvc.ListActiveDeals(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.DealResponse, 0, len(deals))
	for i := range deals {
		out = append(out, toDealResponse(&deals[i]))
	}
	response.OK(c, out)
}

// Get handles GET /api/v1/deals/:id.
func (h *DealHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid deal id"))
		return
	}

	deal, err := h.catalogSvc.GetDeal(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toDealResponse(deal))
}

// Redeem handles POST /api/v1/deals/:id/use.
func (h *DealHandler) Redeem(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	dealID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid deal id"))
		return
	}

	// Body is optional; an empty body means no notes.
	var req dto.RedeemDealRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, apperror.Validation(err.Error()))
			return
		}
		dto.SanitizeStruct(&req)
	}

	use, err := h.redemptionSvc.RedeemDeal(c.Request.Context(), ports.RedeemDealRequest{
		DealID: dealID,
		UserID: userID,
		Notes:  req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toDealUseResponse(use))
}

// ListUses handles GET /api/v1/deals/uses.
func (h *DealHandler) ListUses(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	uses, err := h.redemptionSvc.ListDealUses(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.DealUseResponse, 0, len(uses))
	for i := range uses {
		out = append(out, toDealUseResponse(&uses[i]))
	}
	response.OK(c, out)
}

// Create handles POST /api/v1/merchant/deals.
func (h *DealHandler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.DealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	deal, err := h.catalogSvc.CreateDeal(c.Request.Context(), userID, dealFromRequest(uuid.Nil, &req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toDealResponse(deal))
}

// Update handles PUT /api/v1/merchant/deals/:id.
func (h *DealHandler) Update(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid deal id"))
		return
	}

	var req dto.DealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	deal, err := h.catalogSvc.UpdateDeal(c.Request.Context(), userID, dealFromRequest(id, &req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toDealResponse(deal))
}

// Delete handles DELETE /api/v1/merchant/deals/:id.
func (h *DealHandler) Delete(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid deal id"))
		return
	}

	if err := h.catalogSvc.DeleteDeal(c.Request.Context(), userID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func dealFromRequest(id uuid.UUID, req *dto.DealRequest) *domain.Deal {
	// restaurant_id was validated by the uuid binding tag
	restaurantID, _ := uuid.Parse(req.RestaurantID)

	deal := &domain.Deal{
		ID:           id,
		RestaurantID: restaurantID,
		Title:        req.Title,
		Description:  req.Description,
		DealType:     domain.DealType(req.DealType),
		MaxUses:      req.MaxUses,
		MaxPerUser:   req.MaxPerUser,
		StartsAt:     req.StartsAt,
		EndsAt:       req.EndsAt,
		IsActive:     true,
	}
	if req.IsActive != nil {
		deal.IsActive = *req.IsActive
	}
	return deal
}

func toDealResponse(d *domain.Deal) dto.DealResponse {
	return dto.DealResponse{
		ID:           d.ID.String(),
		RestaurantID: d.RestaurantID.String(),
		Title:        d.Title,
		Description:  d.Description,
		DealType:     string(d.DealType),
		MaxUses:      d.MaxUses,
		Remaining:    d.Remaining(),
		MaxPerUser:   d.MaxPerUser,
		StartsAt:     d.StartsAt,
		EndsAt:       d.EndsAt,
		IsActive:     d.IsActive,
	}
}

func toDealUseResponse(u *domain.DealUse) dto.DealUseResponse {
	return dto.DealUseResponse{
		ID:                  u.ID.String(),
		DealID:              u.DealID.String(),
		RestaurantConfirmed: u.RestaurantConfirmed,
		Notes:               u.Notes,
		UsedAt:              u.UsedAt.UTC().Format(time.RFC3339),
	}
}
