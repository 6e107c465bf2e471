package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/izposoja/internal/model"
)

const productColumns = `id, name, manufacturer, model, category, upc, is_consumable, active,
	image_mime, timecreated, timemodified`

// CreateProduct creates a catalog entry. The UPC must already be normalized.
func CreateProduct(ctx context.Context, q Querier, p model.Product, now time.Time) (*model.Product, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO products (name, manufacturer, model, category, upc, is_consumable, active, timecreated, timemodified)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Manufacturer, p.Model, p.Category, nullString(p.UPC),
		boolInt(p.IsConsumable), boolInt(p.Active), unix(now), unix(now),
	)
	if err != nil {
		return nil, fmt.Errorf("creating product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting product id: %w", err)
	}

	return GetProduct(ctx, q, id)
}

// GetProduct returns a product by ID.
func GetProduct(ctx context.Context, q Querier, id int64) (*model.Product, error) {
	row := q.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting product: %w", err)
	}
	return p, nil
}

// GetProductByUPC returns the active product with the given normalized UPC.
func GetProductByUPC(ctx context.Context, q Querier, upc string) (*model.Product, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE upc = ? AND active = 1`, upc)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting product by upc: %w", err)
	}
	return p, nil
}

// ListProducts returns products ordered by name, optionally only active ones.
func ListProducts(ctx context.Context, q Querier, activeOnly bool) ([]model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY name, id`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// UpdateProduct updates a product's descriptive fields and active flag. The
// UPC is not editable once set.
func UpdateProduct(ctx context.Context, q Querier, p model.Product, now time.Time) error {
	_, err := q.ExecContext(ctx,
		`UPDATE products SET name = ?, manufacturer = ?, model = ?, category = ?,
		        is_consumable = ?, active = ?, timemodified = ?
		 WHERE id = ?`,
		p.Name, p.Manufacturer, p.Model, p.Category,
		boolInt(p.IsConsumable), boolInt(p.Active), unix(now), p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating product: %w", err)
	}
	return nil
}

// DeleteProduct deletes a product. Fails if any item references it.
func DeleteProduct(ctx context.Context, q Querier, id int64) error {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items WHERE product_id = ?`, id,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking product items: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("cannot delete product: still referenced by %d items", count)
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting product: %w", err)
	}
	return nil
}

// SetProductImage sets a product's photo.
func SetProductImage(ctx context.Context, q Querier, id int64, image []byte, mime string, now time.Time) error {
	_, err := q.ExecContext(ctx,
		`UPDATE products SET image = ?, image_mime = ?, timemodified = ? WHERE id = ?`,
		image, mime, unix(now), id,
	)
	if err != nil {
		return fmt.Errorf("setting product image: %w", err)
	}
	return nil
}

// GetProductImage returns a product's photo and MIME type.
func GetProductImage(ctx context.Context, q Querier, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT image, image_mime FROM products WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting product image: %w", err)
	}
	return image, mime.String, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(s rowScanner) (*model.Product, error) {
	p := &model.Product{}
	var upc, mime sql.NullString
	var created, modified int64
	if err := s.Scan(&p.ID, &p.Name, &p.Manufacturer, &p.Model, &p.Category, &upc,
		&p.IsConsumable, &p.Active, &mime, &created, &modified); err != nil {
		return nil, err
	}
	p.UPC = upc.String
	p.ImageMime = mime.String
	p.TimeCreated = fromUnix(created)
	p.TimeModified = fromUnix(modified)
	return p, nil
}
