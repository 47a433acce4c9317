package service

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"fmt"
	"log/slog"

	"github.com/aaravmahajanofficial/sellit-backend/internal/api/middleware"
	"github.com/aaravmahajanofficial/sellit-backend/internal/errors"
	"github.com/aaravmahajanofficial/sellit-backend/internal/metrics"
	"github.com/aaravmahajanofficial/sellit-backend/internal/models"
	repository "github.com/aaravmahajanofficial/sellit-backend/internal/repositories"
)

type CartService interface {
	GetCart(ctx context.Context, userID int64) (*models.Cart, error)
	AddItem(ctx context.Context, userID int64, req *models.AddItemRequest) (*models.Cart, error)
	UpdateItemQuantity(ctx context.Context, userID, itemID int64, req *models.UpdateQuantityRequest) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, itemID int64) error
	ClearCart(ctx context.Context, userID int64) error
}

type cartService struct {
	repo        repository.CartRepository
	productRepo repository.ProductRepository
	tx          repository.Transactor
}

func NewCartService(repo repository.CartRepository, productRepo repository.ProductRepository, tx repository.Transactor) CartService {
	return &cartService{repo: repo, productRepo: productRepo, tx: tx}
}

func (s *cartService) GetCart(ctx context.Context, userID int64) (*models.Cart, error) {

	var cart *models.Cart

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {

		var err error

		cart, err = s.getOrCreate(ctx, userID)
		if err != nil {
			return err
		}

		return s.load(ctx, cart)
	})
	if err != nil {
		return nil, err
	}

	return cart, nil
}

// AddItem puts quantity units of a product in the user's cart. A product already
// in the cart has its quantity raised and keeps the price it was first added at.
// Stock is checked, not reserved: two concurrent requests can both pass the check.
func (s *cartService) AddItem(ctx context.Context, userID int64, req *models.AddItemRequest) (*models.Cart, error) {

	logger := middleware.LoggerFromContext(ctx)

	var cart *models.Cart

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {

		product, err := s.product(ctx, req.ProductID)
		if err != nil {
			return err
		}

		if !product.Price.Valid {
			return errors.InvalidProductError("Product has no price and cannot be added to a cart")
		}

		if !product.HasStockFor(req.Quantity) {
			return insufficientStock(product)
		}

		cart, err = s.getOrCreate(ctx, userID)
		if err != nil {
			return err
		}

		existing, err := s.repo.GetItemByProduct(ctx, cart.ID, product.ID)
		if err != nil && !stdErrors.Is(err, sql.ErrNoRows) {
			return errors.DatabaseError("Failed to fetch cart item").WithError(err)
		}

		if existing != nil {

			newQuantity := existing.Quantity + req.Quantity
			if newQuantity > models.MaxQuantity {
				return errors.ValidationError("Quantity too large").
					WithDetail(fmt.Sprintf("a cart line holds at most %d units", models.MaxQuantity))
			}

			if !product.HasStockFor(newQuantity) {
				return insufficientStock(product)
			}

			if err := s.repo.UpdateItemQuantity(ctx, existing.ID, newQuantity); err != nil {
				return errors.DatabaseError("Failed to update cart item").WithError(err)
			}

		} else {

			item := &models.CartItem{
				CartID:     cart.ID,
				ProductID:  product.ID,
				Quantity:   req.Quantity,
				PriceAtAdd: product.Price.Decimal,
			}

			if err := s.repo.AddItem(ctx, item); err != nil {
				return errors.DatabaseError("Failed to add item to cart").WithError(err)
			}
		}

		if err := s.repo.Touch(ctx, cart.ID); err != nil {
			return errors.DatabaseError("Failed to update cart").WithError(err)
		}

		return s.load(ctx, cart)
	})

	metrics.ObserveCartOperation("add_item", err)

	if err != nil {
		return nil, err
	}

	metrics.ObserveUnitsAdded(req.Quantity)
	logger.Info("Item added to cart", slog.Int64("cartId", cart.ID), slog.Int64("productId", req.ProductID), slog.Int("quantity", req.Quantity))

	return cart, nil
}

// UpdateItemQuantity sets an item's quantity. Zero removes the item.
func (s *cartService) UpdateItemQuantity(ctx context.Context, userID, itemID int64, req *models.UpdateQuantityRequest) (*models.Cart, error) {

	quantity := *req.Quantity

	var cart *models.Cart

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {

		item, err := s.ownedItem(ctx, userID, itemID)
		if err != nil {
			return err
		}

		product, err := s.product(ctx, item.ProductID)
		if err != nil {
			return err
		}

		if quantity > 0 && !product.HasStockFor(quantity) {
			return insufficientStock(product)
		}

		if quantity == 0 {
			err = s.repo.DeleteItem(ctx, item.ID)
		} else {
			err = s.repo.UpdateItemQuantity(ctx, item.ID, quantity)
		}

		if err != nil {
			if stdErrors.Is(err, sql.ErrNoRows) {
				return errors.NotFoundError("Cart item not found").WithError(err)
			}

			return errors.DatabaseError("Failed to update cart item").WithError(err)
		}

		cart, err = s.getOrCreate(ctx, userID)
		if err != nil {
			return err
		}

		if err := s.repo.Touch(ctx, cart.ID); err != nil {
			return errors.DatabaseError("Failed to update cart").WithError(err)
		}

		return s.load(ctx, cart)
	})

	metrics.ObserveCartOperation("update_item", err)

	if err != nil {
		return nil, err
	}

	return cart, nil
}

func (s *cartService) RemoveItem(ctx context.Context, userID, itemID int64) error {

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {

		item, err := s.ownedItem(ctx, userID, itemID)
		if err != nil {
			return err
		}

		if err := s.repo.DeleteItem(ctx, item.ID); err != nil {
			if stdErrors.Is(err, sql.ErrNoRows) {
				return errors.NotFoundError("Cart item not found").WithError(err)
			}

			return errors.DatabaseError("Failed to remove cart item").WithError(err)
		}

		if err := s.repo.Touch(ctx, item.CartID); err != nil {
			return errors.DatabaseError("Failed to update cart").WithError(err)
		}

		return nil
	})

	metrics.ObserveCartOperation("remove_item", err)

	return err
}

func (s *cartService) ClearCart(ctx context.Context, userID int64) error {

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {

		cart, err := s.getOrCreate(ctx, userID)
		if err != nil {
			return err
		}

		if err := s.repo.ClearItems(ctx, cart.ID); err != nil {
			return errors.DatabaseError("Failed to clear cart").WithError(err)
		}

		if err := s.repo.Touch(ctx, cart.ID); err != nil {
			return errors.DatabaseError("Failed to update cart").WithError(err)
		}

		return nil
	})

	metrics.ObserveCartOperation("clear", err)

	return err
}

func (s *cartService) getOrCreate(ctx context.Context, userID int64) (*models.Cart, error) {

	cart, err := s.repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		if stdErrors.Is(err, repository.ErrUnknownUser) {
			return nil, accountGone(err)
		}

		return nil, errors.DatabaseError("Failed to get cart").WithError(err)
	}

	return cart, nil
}

// load fills the cart's items and derived totals.
func (s *cartService) load(ctx context.Context, cart *models.Cart) error {

	items, err := s.repo.ListItems(ctx, cart.ID)
	if err != nil {
		return errors.DatabaseError("Failed to fetch cart items").WithError(err)
	}

	cart.Items = items
	cart.Recalculate()

	return nil
}

func (s *cartService) product(ctx context.Context, productID int64) (*models.Product, error) {

	product, err := s.productRepo.GetProductByID(ctx, productID)
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundError("Product not found").WithError(err)
		}

		return nil, errors.DatabaseError("Failed to fetch product").WithError(err)
	}

	return product, nil
}

// ownedItem loads a cart item, checking that it belongs to userID's cart.
func (s *cartService) ownedItem(ctx context.Context, userID, itemID int64) (*models.CartItem, error) {

	item, ownerID, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundError("Cart item not found").WithError(err)
		}

		return nil, errors.DatabaseError("Failed to fetch cart item").WithError(err)
	}

	if ownerID != userID {
		return nil, errors.ForbiddenError("Cart item does not belong to you")
	}

	return item, nil
}

func insufficientStock(product *models.Product) *errors.AppError {
	return errors.InsufficientStockError("Not enough stock available").
		WithDetail(fmt.Sprintf("only %d of %q in stock", *product.Stock, product.Name))
}
