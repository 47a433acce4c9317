package handlers

import (
	"log/slog"
	"net/http"

	"github.com/aaravmahajanofficial/sellit-backend/internal/api/middleware"
	"github.com/aaravmahajanofficial/sellit-backend/internal/models"
	service "github.com/aaravmahajanofficial/sellit-backend/internal/services"
	"github.com/aaravmahajanofficial/sellit-backend/internal/utils"
	"github.com/aaravmahajanofficial/sellit-backend/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

type ProductHandler struct {
	productService service.ProductService
	validator      *validator.Validate
}

func NewProductHandler(productService service.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService, validator: utils.NewValidator()}
}

func (h *ProductHandler) CreateProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		sellerID, ok := currentUserID(w, r)
		if !ok {
			return
		}

		var req models.CreateProductRequest

		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		product, err := h.productService.CreateProduct(r.Context(), sellerID, &req)
		if err != nil {
			writeServiceError(w, r, "Product creation failed", err)
			return
		}

		response.Success(w, http.StatusCreated, product)
	}
}

func (h *ProductHandler) GetProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		id, err := utils.ParseIDParam(r, "product_id")
		if err != nil {
			response.Error(w, err)
			return
		}

		product, err := h.productService.GetProductByID(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, "Failed to fetch product", err)
			return
		}

		response.Success(w, http.StatusOK, product)
	}
}

func (h *ProductHandler) UpdateProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		sellerID, ok := currentUserID(w, r)
		if !ok {
			return
		}

		id, err := utils.ParseIDParam(r, "product_id")
		if err != nil {
			response.Error(w, err)
			return
		}

		var req models.UpdateProductRequest

		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		product, err := h.productService.UpdateProduct(r.Context(), sellerID, id, &req)
		if err != nil {
			writeServiceError(w, r, "Product update failed", err)
			return
		}

		middleware.LoggerFromContext(r.Context()).Info("Product updated", slog.Int64("productId", product.ID))
		response.Success(w, http.StatusOK, product)
	}
}

func (h *ProductHandler) DeleteProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		sellerID, ok := currentUserID(w, r)
		if !ok {
			return
		}

		id, err := utils.ParseIDParam(r, "product_id")
		if err != nil {
			response.Error(w, err)
			return
		}

		if err := h.productService.DeleteProduct(r.Context(), sellerID, id); err != nil {
			writeServiceError(w, r, "Product deletion failed", err)
			return
		}

		response.NoContent(w)
	}
}

// for eg: GET /api/products?page=1&page_size=10
func (h *ProductHandler) ListProducts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		page, pageSize := utils.ParsePagination(r)

		products, total, err := h.productService.ListProducts(r.Context(), page, pageSize)
		if err != nil {
			writeServiceError(w, r, "Failed to fetch products", err)
			return
		}

		response.Success(w, http.StatusOK, models.PaginatedResponse{
			Data:     products,
			Total:    total,
			Page:     page,
			PageSize: pageSize,
		})
	}
}

func (h *ProductHandler) ListSellerProducts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		sellerID, ok := currentUserID(w, r)
		if !ok {
			return
		}

		products, err := h.productService.ListSellerProducts(r.Context(), sellerID)
		if err != nil {
			writeServiceError(w, r, "Failed to fetch seller products", err)
			return
		}

		response.Success(w, http.StatusOK, products)
	}
}

func (h *ProductHandler) SearchProducts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		products, err := h.productService.SearchProducts(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			writeServiceError(w, r, "Product search failed", err)
			return
		}

		response.Success(w, http.StatusOK, products)
	}
}
