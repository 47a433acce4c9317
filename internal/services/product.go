package service

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/aaravmahajanofficial/sellit-backend/internal/api/middleware"
	"github.com/aaravmahajanofficial/sellit-backend/internal/cache"
	"github.com/aaravmahajanofficial/sellit-backend/internal/errors"
	"github.com/aaravmahajanofficial/sellit-backend/internal/models"
	repository "github.com/aaravmahajanofficial/sellit-backend/internal/repositories"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
)

type ProductService interface {
	CreateProduct(ctx context.Context, sellerID int64, req *models.CreateProductRequest) (*models.Product, error)
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	UpdateProduct(ctx context.Context, sellerID, id int64, req *models.UpdateProductRequest) (*models.Product, error)
	DeleteProduct(ctx context.Context, sellerID, id int64) error
	ListProducts(ctx context.Context, page, pageSize int) ([]*models.Product, int, error)
	ListSellerProducts(ctx context.Context, sellerID int64) ([]*models.Product, error)
	SearchProducts(ctx context.Context, query string) ([]*models.Product, error)
}

type productService struct {
	repo      repository.ProductRepository
	cartRepo  repository.CartRepository
	tx        repository.Transactor
	cache     cache.Cache
	cacheTTL  time.Duration
	sanitizer *bluemonday.Policy
}

func NewProductService(repo repository.ProductRepository, cartRepo repository.CartRepository, tx repository.Transactor, cache cache.Cache, cacheTTL time.Duration) ProductService {
	return &productService{
		repo:      repo,
		cartRepo:  cartRepo,
		tx:        tx,
		cache:     cache,
		cacheTTL:  cacheTTL,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// clean strips all markup. Entities the sanitizer escapes are decoded again so
// "Salt & Pepper" is stored as typed.
func (s *productService) clean(text string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(text)))
}

func nullDecimal(value *float64) decimal.NullDecimal {
	if value == nil {
		return decimal.NullDecimal{}
	}

	return decimal.NewNullDecimal(decimal.NewFromFloat(*value).Round(2))
}

func (s *productService) CreateProduct(ctx context.Context, sellerID int64, req *models.CreateProductRequest) (*models.Product, error) {

	product := &models.Product{
		SellerID:      sellerID,
		Name:          s.clean(req.Name),
		Description:   s.clean(req.Description),
		Price:         nullDecimal(req.Price),
		OriginalPrice: nullDecimal(req.OriginalPrice),
		ImageURL:      req.ImageURL,
		Stock:         req.Stock,
	}

	if req.Rating != nil {
		product.Rating = *req.Rating
	}

	if req.Sold != nil {
		product.Sold = *req.Sold
	}

	if product.Name == "" {
		return nil, errors.AddValidationError("name", "must contain text")
	}

	var created *models.Product

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {

		if err := s.repo.CreateProduct(ctx, product); err != nil {
			if stdErrors.Is(err, repository.ErrUnknownUser) {
				return accountGone(err)
			}

			return errors.DatabaseError("Failed to create product").WithError(err)
		}

		// re-read for the joined seller name
		var err error
		created, err = s.repo.GetProductByID(ctx, product.ID)
		if err != nil {
			return errors.DatabaseError("Failed to load created product").WithError(err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	middleware.LoggerFromContext(ctx).Info("Product created", slog.Int64("productId", created.ID), slog.Int64("sellerId", sellerID))

	return created, nil
}

// GetProductByID is read-through cached. Cache failures only cost a database read.
func (s *productService) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {

	logger := middleware.LoggerFromContext(ctx)
	key := cache.ProductKey(id)

	var cached models.Product

	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		logger.Warn("Product cache read failed", slog.String("key", key), slog.Any("error", err))
	}

	if found {
		return &cached, nil
	}

	product, err := s.loadProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, product, s.cacheTTL); err != nil {
		logger.Warn("Product cache write failed", slog.String("key", key), slog.Any("error", err))
	}

	return product, nil
}

func (s *productService) loadProduct(ctx context.Context, id int64) (*models.Product, error) {

	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundError("Product not found").WithError(err)
		}

		return nil, errors.DatabaseError("Failed to fetch product").WithError(err)
	}

	return product, nil
}

// ownedProduct loads the product and checks that sellerID may change it.
func (s *productService) ownedProduct(ctx context.Context, sellerID, id int64) (*models.Product, error) {

	product, err := s.loadProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if product.SellerID != sellerID {
		return nil, errors.ForbiddenError("You can only modify your own products")
	}

	return product, nil
}

func (s *productService) invalidate(ctx context.Context, id int64) {
	if err := s.cache.Delete(ctx, cache.ProductKey(id)); err != nil {
		middleware.LoggerFromContext(ctx).Warn("Product cache invalidation failed", slog.Int64("productId", id), slog.Any("error", err))
	}
}

func (s *productService) UpdateProduct(ctx context.Context, sellerID, id int64, req *models.UpdateProductRequest) (*models.Product, error) {

	var product *models.Product

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {

		var err error

		product, err = s.ownedProduct(ctx, sellerID, id)
		if err != nil {
			return err
		}

		if req.Name != nil {
			product.Name = s.clean(*req.Name)
			if product.Name == "" {
				return errors.AddValidationError("name", "must contain text")
			}
		}
		if req.Description != nil {
			product.Description = s.clean(*req.Description)
		}
		if req.Price != nil {
			product.Price = nullDecimal(req.Price)
		}
		if req.OriginalPrice != nil {
			product.OriginalPrice = nullDecimal(req.OriginalPrice)
		}
		if req.ImageURL != nil {
			product.ImageURL = req.ImageURL
		}
		if req.Rating != nil {
			product.Rating = *req.Rating
		}
		if req.Sold != nil {
			product.Sold = *req.Sold
		}
		if req.Stock != nil {
			product.Stock = req.Stock
		}

		if err := s.repo.UpdateProduct(ctx, product); err != nil {
			if stdErrors.Is(err, sql.ErrNoRows) {
				return errors.NotFoundError("Product not found").WithError(err)
			}

			return errors.DatabaseError("Failed to update product").WithError(err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)

	return product, nil
}

// DeleteProduct removes the product and every cart line holding it in one transaction.
func (s *productService) DeleteProduct(ctx context.Context, sellerID, id int64) error {

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {

		if _, err := s.ownedProduct(ctx, sellerID, id); err != nil {
			return err
		}

		if err := s.cartRepo.DeleteItemsByProductID(ctx, id); err != nil {
			return errors.DatabaseError("Failed to remove product from carts").WithError(err)
		}

		if err := s.repo.DeleteProduct(ctx, id); err != nil {
			if stdErrors.Is(err, sql.ErrNoRows) {
				return errors.NotFoundError("Product not found").WithError(err)
			}

			return errors.DatabaseError("Failed to delete product").WithError(err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, id)

	middleware.LoggerFromContext(ctx).Info("Product deleted", slog.Int64("productId", id))

	return nil
}

// page means "page number requested"
// pageSize means "number of products to be displayed per page"
func (s *productService) ListProducts(ctx context.Context, page, pageSize int) ([]*models.Product, int, error) {

	products, total, err := s.repo.ListProducts(ctx, page, pageSize)
	if err != nil {
		return nil, 0, errors.DatabaseError("Failed to fetch products").WithError(err)
	}

	return products, total, nil
}

func (s *productService) ListSellerProducts(ctx context.Context, sellerID int64) ([]*models.Product, error) {

	products, err := s.repo.ListProductsBySeller(ctx, sellerID)
	if err != nil {
		return nil, errors.DatabaseError("Failed to fetch seller products").WithError(err)
	}

	return products, nil
}

// SearchProducts returns an empty list for a blank query rather than every product.
func (s *productService) SearchProducts(ctx context.Context, query string) ([]*models.Product, error) {

	query = strings.TrimSpace(query)
	if query == "" {
		return []*models.Product{}, nil
	}

	products, err := s.repo.SearchProducts(ctx, query)
	if err != nil {
		return nil, errors.DatabaseError("Failed to search products").WithError(err)
	}

	return products, nil
}
