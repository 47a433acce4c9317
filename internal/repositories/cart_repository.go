package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aaravmahajanofficial/sellit-backend/internal/models"
)

type CartRepository interface {
	GetOrCreateCart(ctx context.Context, userID int64) (*models.Cart, error)
	GetItem(ctx context.Context, itemID int64) (*models.CartItem, int64, error)
	GetItemByProduct(ctx context.Context, cartID, productID int64) (*models.CartItem, error)
	AddItem(ctx context.Context, item *models.CartItem) error
	UpdateItemQuantity(ctx context.Context, itemID int64, quantity int) error
	DeleteItem(ctx context.Context, itemID int64) error
	ClearItems(ctx context.Context, cartID int64) error
	ListItems(ctx context.Context, cartID int64) ([]models.CartItem, error)
	Touch(ctx context.Context, cartID int64) error
	DeleteItemsByProductID(ctx context.Context, productID int64) error
}

type cartRepository struct {
	DB *sql.DB
}

func NewCartRepo(db *sql.DB) CartRepository {
	return &cartRepository{DB: db}
}

// GetOrCreateCart returns the user's single cart, creating it on first use.
// The upsert keeps two concurrent first requests from creating two carts.
func (r *cartRepository) GetOrCreateCart(ctx context.Context, userID int64) (*models.Cart, error) {

	db, dbCtx, cancel := conn(ctx, r.DB)
	defer cancel()

	query := `
		INSERT INTO carts (user_id, created_at, updated_at)
		VALUES ($1, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id, user_id, created_at, updated_at`

	cart := &models.Cart{}

	err := db.QueryRowContext(dbCtx, query, userID).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if err = mapForeignKeyViolation(err); errors.Is(err, ErrUnknownUser) {
			return nil, err
		}

		return nil, fmt.Errorf("failed to get or create cart: %w", err)
	}

	return cart, nil
}

// GetItem returns the item along with the id of the user owning its cart.
func (r *cartRepository) GetItem(ctx context.Context, itemID int64) (*models.CartItem, int64, error) {

	db, dbCtx, cancel := conn(ctx, r.DB)
	defer cancel()

	query := `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.price_at_add, ci.added_at, c.user_id
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		WHERE ci.id = $1`

	item := &models.CartItem{}
	var ownerID int64

	err := db.QueryRowContext(dbCtx, query, itemID).Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity,
		&item.PriceAtAdd, &item.AddedAt, &ownerID)
	if err != nil {
		return nil, 0, err
	}

	return item, ownerID, nil
}

func (r *cartRepository) GetItemByProduct(ctx context.Context, cartID, productID int64) (*models.CartItem, error) {

	db, dbCtx, cancel := conn(ctx, r.DB)
	defer cancel()

	query := `
		SELECT id, cart_id, product_id, quantity, price_at_add, added_at
		FROM cart_items
		WHERE cart_id = $1 AND product_id = $2`

	item := &models.CartItem{}

	err := db.QueryRowContext(dbCtx, query, cartID, productID).Scan(&item.ID, &item.CartID, &item.ProductID,
		&item.Quantity, &item.PriceAtAdd, &item.AddedAt)
	if err != nil {
		return nil, err
	}

	return item, nil
}

// AddItem inserts a line. If the product already has a line in the cart the
// quantities are merged and the original price_at_add is kept.
func (r *cartRepository) AddItem(ctx context.Context, item *models.CartItem) error {

	db, dbCtx, cancel := conn(ctx, r.DB)
	defer cancel()

	query := `
		INSERT INTO cart_items (cart_id, product_id, quantity, price_at_add, added_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING id, quantity, price_at_add, added_at`

	return db.QueryRowContext(dbCtx, query, item.CartID, item.ProductID, item.Quantity, item.PriceAtAdd).
		Scan(&item.ID, &item.Quantity, &item.PriceAtAdd, &item.AddedAt)
}

func (r *cartRepository) UpdateItemQuantity(ctx context.Context, itemID int64, quantity int) error {

	db, dbCtx, cancel := conn(ctx, r.DB)
	defer cancel()

	result, err := db.ExecContext(dbCtx, `UPDATE cart_items SET quantity = $1 WHERE id = $2`, quantity, itemID)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}

	return expectAffected(result)
}

func (r *cartRepository) DeleteItem(ctx context.Context, itemID int64) error {

	db, dbCtx, cancel := conn(ctx, r.DB)
	defer cancel()

	result, err := db.ExecContext(dbCtx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}

	return expectAffected(result)
}

func (r *cartRepository) ClearItems(ctx context.Context, cartID int64) error {

	db, dbCtx, cancel := conn(ctx, r.DB)
	defer cancel()

	if _, err := db.ExecContext(dbCtx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	return nil
}

// ListItems loads every line of the cart with its current product, oldest first.
func (r *cartRepository) ListItems(ctx context.Context, cartID int64) ([]models.CartItem, error) {

	db, dbCtx, cancel := conn(ctx, r.DB)
	defer cancel()

	query := `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.price_at_add, ci.added_at,
		       p.id, p.seller_id, u.username, p.name, p.description, p.price, p.original_price,
		       p.image_url, p.rating, p.sold, p.stock, p.created_at, p.updated_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		JOIN users u ON u.id = p.seller_id
		WHERE ci.cart_id = $1
		ORDER BY ci.added_at, ci.id`

	rows, err := db.QueryContext(dbCtx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer rows.Close()

	items := []models.CartItem{}

	for rows.Next() {

		var item models.CartItem

		product, err := scanProduct(prefixedScanner{rows: rows, prefix: []any{
			&item.ID, &item.CartID, &item.ProductID, &item.Quantity, &item.PriceAtAdd, &item.AddedAt,
		}})
		if err != nil {
			return nil, err
		}

		item.Product = product
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *cartRepository) Touch(ctx context.Context, cartID int64) error {

	db, dbCtx, cancel := conn(ctx, r.DB)
	defer cancel()

	if _, err := db.ExecContext(dbCtx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID); err != nil {
		return fmt.Errorf("failed to touch cart: %w", err)
	}

	return nil
}

func (r *cartRepository) DeleteItemsByProductID(ctx context.Context, productID int64) error {

	db, dbCtx, cancel := conn(ctx, r.DB)
	defer cancel()

	if _, err := db.ExecContext(dbCtx, `DELETE FROM cart_items WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("failed to delete cart items for product: %w", err)
	}

	return nil
}

// prefixedScanner scans the leading columns into prefix and hands the rest to the caller.
type prefixedScanner struct {
	rows   *sql.Rows
	prefix []any
}

func (s prefixedScanner) Scan(dest ...any) error {
	return s.rows.Scan(append(s.prefix, dest...)...)
}
