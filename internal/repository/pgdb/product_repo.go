package pgdb

import (
	"context"
	"errors"

	"github.com/DRSN-tech/cryptoshop-bot/internal/domain"
	"github.com/DRSN-tech/cryptoshop-bot/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/e"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/tr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

const productColumns = `id, name, description, price, image1_key, image2_key, coordinates, is_available, created_at`

// ProductRepo реализует репозиторий продуктов поверх PostgreSQL.
type ProductRepo struct {
	pool *pgxpool.Pool
	conv converter.ProductConverter
}

func NewProductRepo(pool *pgxpool.Pool, conv converter.ProductConverter) *ProductRepo {
	return &ProductRepo{
		pool: pool,
		conv: conv,
	}
}

func (p *ProductRepo) Create(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	model := p.conv.ToModel(product)
	query := `
		INSERT INTO products (name, description, price, image1_key, image2_key, coordinates, is_available)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + productColumns

	row := tr.Querier(ctx, p.pool).QueryRow(ctx, query,
		model.Name,
		model.Description,
		model.Price,
		model.Image1Key,
		model.Image2Key,
		model.Coordinates,
		model.IsAvailable,
	)

	created, err := scanProduct(row)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return p.conv.ToEntity(created), nil
}

func (p *ProductRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	model, err := scanProduct(tr.Querier(ctx, p.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, e.ErrProductNotFound
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return p.conv.ToEntity(model), nil
}

// ListAvailable возвращает товары в продаже в порядке добавления.
func (p *ProductRepo) ListAvailable(ctx context.Context) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE is_available ORDER BY id`

	rows, err := tr.Querier(ctx, p.pool).Query(ctx, query)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make([]domain.Product, 0)
	for rows.Next() {
		model, err := scanProduct(rows)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		result = append(result, *p.conv.ToEntity(model))
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}

// SetAvailability снимает товар с продажи (или возвращает) только если флаг отличается.
// Условие в WHERE не даёт продать один товар дважды при конкурентных подтверждениях.
func (p *ProductRepo) SetAvailability(ctx context.Context, id int64, available bool) error {
	query := `
		UPDATE products
		SET is_available = $2
		WHERE id = $1 AND is_available IS DISTINCT FROM $2
	`

	db := tr.Querier(ctx, p.pool)
	tag, err := db.Exec(ctx, query, id, available)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var current bool
	if err := db.QueryRow(ctx, `SELECT is_available FROM products WHERE id = $1`, id).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return e.ErrProductNotFound
		}
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if !available && !current {
		return e.ErrProductUnavailable
	}

	return nil
}

func scanProduct(row pgx.Row) (*converter.ProductModel, error) {
	var model converter.ProductModel
	err := row.Scan(
		&model.ID,
		&model.Name,
		&model.Description,
		&model.Price,
		&model.Image1Key,
		&model.Image2Key,
		&model.Coordinates,
		&model.IsAvailable,
		&model.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &model, nil
}
