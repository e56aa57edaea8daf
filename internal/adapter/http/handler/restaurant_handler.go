package handler

import (
	"github.com/Meghwin-Dave/Discount-Buddy/internal/adapter/http/dto"
	"github.com/Meghwin-Dave/Discount-Buddy/internal/adapter/http/middleware"
	"github.com/Meghwin-Dave/Discount-Buddy/internal/core/domain"
	"github.com/Meghwin-Dave/Discount-Buddy/internal/core/ports"
	"github.com/Meghwin-Dave/Discount-Buddy/pkg/apperror"
	"github.com/Meghwin-Dave/Discount-Buddy/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RestaurantHandler handles restaurant endpoints: public browsing and
// merchant management.
type RestaurantHandler struct {
	catalogSvc ports.CatalogService
}

// NewRestaurantHandler creates a new RestaurantHandler.
func NewRestaurantHandler(catalogSvc ports.CatalogService) *RestaurantHandler {
	return &RestaurantHandler{catalogSvc: catalogSvc}
}

// List handles GET /api/v1/restaurants.
func (h *RestaurantHandler) List(c *gin.Context) {
	restaurants, err := h.catalogSvc.ListRestaurants(c.Request.Context(), c.Query("city"))
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.RestaurantResponse, 0, len(restaurants))
	for i := range restaurants {
		out = append(out, toRestaurantResponse(&restaurants[i]))
	}
	response.OK(c, out)
}

// Get handles GET /api/v1/restaurants/:id.
func (h *RestaurantHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid restaurant id"))
		return
	}

	rest, err := h.catalogSvc.GetRestaurant(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toRestaurantResponse(rest))
}

// ListMine handles GET /api/v1/merchant/restaurants.
func (h *RestaurantHandler) ListMine(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	restaurants, err := h.catalogSvc.ListMyRestaurants(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.RestaurantResponse, 0, len(restaurants))
	for i := range restaurants {
		out = append(out, toRestaurantResponse(&restaurants[i]))
	}
	response.OK(c, out)
}

// Create handles POST /api/v1/merchant/restaurants.
func (h *RestaurantHandler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.RestaurantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	rest, err := h.catalogSvc.CreateRestaurant(c.Request.Context(), userID, &domain.Restaurant{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Address:     req.Address,
		City:        req.City,
		PriceRange:  req.PriceRange,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toRestaurantResponse(rest))
}

// Update handles PUT /api/v1/merchant/restaurants/:id.
func (h *RestaurantHandler) Update(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid restaurant id"))
		return
	}

	var req dto.RestaurantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	rest, err := h.catalogSvc.UpdateRestaurant(c.Request.Context(), userID, &domain.Restaurant{
		ID:          id,
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Address:     req.Address,
		City:        req.City,
		PriceRange:  req.PriceRange,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toRestaurantResponse(rest))
}

// Delete handles DELETE /api/v1/merchant/restaurants/:id.
func (h *RestaurantHandler) Delete(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid restaurant id"))
		return
	}

	if err := h.catalogSvc.DeleteRestaurant(c.Request.Context(), userID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func toRestaurantResponse(r *domain.Restaurant) dto.RestaurantResponse {
	return dto.RestaurantResponse{
		ID:          r.ID.String(),
		Name:        r.Name,
		Slug:        r.Slug,
		Description: r.Description,
		Address:     r.Address,
		City:        r.City,
		PriceRange:  r.PriceRange,
		IsVerified:  r.IsVerified,
		IsFeatured:  r.IsFeatured,
	}
}
