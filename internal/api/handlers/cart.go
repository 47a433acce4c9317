package handlers

import (
	"net/http"

	"github.com/aaravmahajanofficial/sellit-backend/internal/models"
	service "github.com/aaravmahajanofficial/sellit-backend/internal/services"
	"github.com/aaravmahajanofficial/sellit-backend/internal/utils"
	"github.com/aaravmahajanofficial/sellit-backend/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

// CartHandler serves the caller's own cart. No route takes a cart id.
type CartHandler struct {
	cartService service.CartService
	validator   *validator.Validate
}

func NewCartHandler(cartService service.CartService) *CartHandler {
	return &CartHandler{cartService: cartService, validator: utils.NewValidator()}
}

func (h *CartHandler) GetCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}

		cart, err := h.cartService.GetCart(r.Context(), userID)
		if err != nil {
			writeServiceError(w, r, "Failed to fetch cart", err)
			return
		}

		response.Success(w, http.StatusOK, cart)
	}
}

func (h *CartHandler) AddItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}

		var req models.AddItemRequest

		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		cart, err := h.cartService.AddItem(r.Context(), userID, &req)
		if err != nil {
			writeServiceError(w, r, "Failed to add item to cart", err)
			return
		}

		response.Success(w, http.StatusOK, cart)
	}
}

func (h *CartHandler) UpdateItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}

		itemID, err := utils.ParseIDParam(r, "item_id")
		if err != nil {
			response.Error(w, err)
			return
		}

		var req models.UpdateQuantityRequest

		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		cart, err := h.cartService.UpdateItemQuantity(r.Context(), userID, itemID, &req)
		if err != nil {
			writeServiceError(w, r, "Failed to update cart item", err)
			return
		}

		response.Success(w, http.StatusOK, cart)
	}
}

func (h *CartHandler) RemoveItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}

		itemID, err := utils.ParseIDParam(r, "item_id")
		if err != nil {
			response.Error(w, err)
			return
		}

		if err := h.cartService.RemoveItem(r.Context(), userID, itemID); err != nil {
			writeServiceError(w, r, "Failed to remove cart item", err)
			return
		}

		response.NoContent(w)
	}
}

func (h *CartHandler) ClearCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}

		if err := h.cartService.ClearCart(r.Context(), userID); err != nil {
			writeServiceError(w, r, "Failed to clear cart", err)
			return
		}

		response.NoContent(w)
	}
}
