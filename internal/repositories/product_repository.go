package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/aaravmahajanofficial/sellit-backend/internal/models"
)

type ProductRepository interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id int64) error
	ListProducts(ctx context.Context, page, size int) ([]*models.Product, int, error)
	ListProductsBySeller(ctx context.Context, sellerID int64) ([]*models.Product, error)
	SearchProducts(ctx context.Context, term string) ([]*models.Product, error)
}

// seller is a display name joined from users, never stored on the product row
const productSelect = `
		SELECT p.id, p.seller_id, u.username, p.name, p.description, p.price, p.original_price,
		       p.image_url, p.rating, p.sold, p.stock, p.created_at, p.updated_at
		FROM products p
		JOIN users u ON u.id = p.seller_id`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type productRepository struct {
	DB *sql.DB
}

func NewProductRepo(db *sql.DB) ProductRepository {
	return &productRepository{DB: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*models.Product, error) {

	product := &models.Product{}

	var imageURL sql.NullString
	var stock sql.NullInt64

	err := row.Scan(&product.ID, &product.SellerID, &product.Seller, &product.Name, &product.Description,
		&product.Price, &product.OriginalPrice, &imageURL, &product.Rating, &product.Sold, &stock,
		&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if imageURL.Valid {
		product.ImageURL = &imageURL.String
	}

	if stock.Valid {
		s := int(stock.Int64)
		product.Stock = &s
	}

	return product, nil
}

func (r *productRepository) CreateProduct(ctx context.Context, product *models.Product) error {

	db, dbCtx, cancel := conn(ctx, r.DB)
	defer cancel()

	query := `
		INSERT INTO products (seller_id, name, description, price, original_price, image_url, rating, sold, stock)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	err := db.QueryRowContext(dbCtx, query, product.SellerID, product.Name, product.Description, product.Price,
		product.OriginalPrice, product.ImageURL, product.Rating, product.Sold, product.Stock).
		Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)

	return mapForeignKeyViolation(err)
}

func (r *productRepository) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {

	db, dbCtx, cancel := conn(ctx, r.DB)
	defer cancel()

	return scanProduct(db.QueryRowContext(dbCtx, productSelect+` WHERE p.id = $1`, id))
}

func (r *productRepository) UpdateProduct(ctx context.Context, product *models.Product) error {

	db, dbCtx, cancel := conn(ctx, r.DB)
	defer cancel()

	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, original_price = $4, image_url = $5,
		    rating = $6, sold = $7, stock = $8, updated_at = NOW()
		WHERE id = $9
		RETURNING updated_at`

	return db.QueryRowContext(dbCtx, query, product.Name, product.Description, product.Price, product.OriginalPrice,
		product.ImageURL, product.Rating, product.Sold, product.Stock, product.ID).
		Scan(&product.UpdatedAt)
}

func (r *productRepository) DeleteProduct(ctx context.Context, id int64) error {

	db, dbCtx, cancel := conn(ctx, r.DB)
	defer cancel()

	result, err := db.ExecContext(dbCtx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	return expectAffected(result)
}

func (r *productRepository) ListProducts(ctx context.Context, page, size int) ([]*models.Product, int, error) {

	db, dbCtx, cancel := conn(ctx, r.DB)
	defer cancel()

	var total int

	if err := db.QueryRowContext(dbCtx, `SELECT COUNT(*) FROM products`).Scan(&total); err != nil {
		return nil, 0, err
	}

	// Offset
	offset := (page - 1) * size

	rows, err := db.QueryContext(dbCtx, productSelect+` ORDER BY p.id LIMIT $1 OFFSET $2`, size, offset)
	if err != nil {
		return nil, 0, err
	}

	products, err := collectProducts(rows)
	if err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func (r *productRepository) ListProductsBySeller(ctx context.Context, sellerID int64) ([]*models.Product, error) {

	db, dbCtx, cancel := conn(ctx, r.DB)
	defer cancel()

	rows, err := db.QueryContext(dbCtx, productSelect+` WHERE p.seller_id = $1 ORDER BY p.id`, sellerID)
	if err != nil {
		return nil, err
	}

	return collectProducts(rows)
}

// SearchProducts matches term as a case-insensitive substring of name or description.
// LIKE wildcards in term are matched literally.
func (r *productRepository) SearchProducts(ctx context.Context, term string) ([]*models.Product, error) {

	db, dbCtx, cancel := conn(ctx, r.DB)
	defer cancel()

	pattern := "%" + likeEscaper.Replace(term) + "%"

	rows, err := db.QueryContext(dbCtx, productSelect+` WHERE p.name ILIKE $1 OR p.description ILIKE $1 ORDER BY p.id`, pattern)
	if err != nil {
		return nil, err
	}

	return collectProducts(rows)
}

func collectProducts(rows *sql.Rows) ([]*models.Product, error) {

	defer rows.Close()

	products := []*models.Product{}

	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}

		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}
