package pgdb

import (
	"context"
	"errors"
	"time"

	"github.com/DRSN-tech/cryptoshop-bot/internal/domain"
	"github.com/DRSN-tech/cryptoshop-bot/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/cryptoshop-bot/internal/usecase"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/e"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/tr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

const orderColumns = `id, product_id, customer_id, customer_username, customer_address,
	payment_token, blockchain, transaction_hash, status, created_at, confirmed_at, admin_id`

// OrderRepo реализует репозиторий заказов поверх PostgreSQL.
type OrderRepo struct {
	pool        *pgxpool.Pool
	conv        converter.OrderConverter
	productConv converter.ProductConverter
}

func NewOrderRepo(pool *pgxpool.Pool, conv converter.OrderConverter, productConv converter.ProductConverter) *OrderRepo {
	return &OrderRepo{
		pool:        pool,
		conv:        conv,
		productConv: productConv,
	}
}

func (o *OrderRepo) Create(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	model := o.conv.ToModel(order)
	query := `
		INSERT INTO orders (
			product_id,
			customer_id,
			customer_username,
			customer_address,
			payment_token,
			blockchain,
			transaction_hash,
			status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + orderColumns

	created, err := scanOrder(tr.Querier(ctx, o.pool).QueryRow(ctx, query,
		model.ProductID,
		model.CustomerID,
		model.CustomerUsername,
		model.CustomerAddress,
		model.PaymentToken,
		model.Blockchain,
		model.TransactionHash,
		model.Status,
	))
	if err != nil {
		if foreignKeyViolation(err) {
			return nil, e.ErrProductNotFound
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return o.conv.ToEntity(created), nil
}

func (o *OrderRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	model, err := scanOrder(tr.Querier(ctx, o.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, e.ErrOrderNotFound
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return o.conv.ToEntity(model), nil
}

// SetStatus меняет статус через compare-and-set: строка обновляется, только если её текущий
// статус равен req.From. admin_id и confirmed_at перезаписываются, только если переданы.
func (o *OrderRepo) SetStatus(ctx context.Context, req *usecase.SetStatusReq) (*domain.Order, error) {
	if !domain.CanTransition(req.From, req.To) {
		return nil, e.Wrap(whereami.WhereAmI(), statusConflict(req.From))
	}

	query := `
		UPDATE orders
		SET status = $3,
			admin_id = COALESCE($4, admin_id),
			confirmed_at = COALESCE($5, confirmed_at)
		WHERE id = $1 AND status = $2
		RETURNING ` + orderColumns

	db := tr.Querier(ctx, o.pool)
	model, err := scanOrder(db.QueryRow(ctx, query, req.OrderID, string(req.From), string(req.To), req.AdminID, req.ConfirmedAt))
	if err == nil {
		return o.conv.ToEntity(model), nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	// Ни одна строка не обновилась: заказа нет или статус уже другой
	var exists bool
	if err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, req.OrderID).Scan(&exists); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	if !exists {
		return nil, e.ErrOrderNotFound
	}

	return nil, statusConflict(req.From)
}

func (o *OrderRepo) ListPending(ctx context.Context) ([]domain.OrderWithProduct, error) {
	query := `
		SELECT ` + joinedColumns + `
		FROM orders o
		JOIN products p ON p.id = o.product_id
		WHERE o.status = $1
		ORDER BY o.id
	`

	return o.listJoined(ctx, query, string(domain.OrderPending))
}

// ListByStatusBefore возвращает заказы в статусе status, решение по которым (или создание,
// если решения нет) было раньше before.
func (o *OrderRepo) ListByStatusBefore(ctx context.Context, status domain.OrderStatus, before time.Time) ([]domain.OrderWithProduct, error) {
	query := `
		SELECT ` + joinedColumns + `
		FROM orders o
		JOIN products p ON p.id = o.product_id
		WHERE o.status = $1 AND COALESCE(o.confirmed_at, o.created_at) < $2
		ORDER BY o.id
	`

	return o.listJoined(ctx, query, string(status), before)
}

const joinedColumns = `
	o.id, o.product_id, o.customer_id, o.customer_username, o.customer_address,
	o.payment_token, o.blockchain, o.transaction_hash, o.status, o.created_at, o.confirmed_at, o.admin_id,
	p.id, p.name, p.description, p.price, p.image1_key, p.image2_key, p.coordinates, p.is_available, p.created_at`

func (o *OrderRepo) listJoined(ctx context.Context, query string, args ...any) ([]domain.OrderWithProduct, error) {
	rows, err := tr.Querier(ctx, o.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make([]domain.OrderWithProduct, 0)
	for rows.Next() {
		var (
			order   converter.OrderModel
			product converter.ProductModel
		)
		err := rows.Scan(
			&order.ID, &order.ProductID, &order.CustomerID, &order.CustomerUsername, &order.CustomerAddress,
			&order.PaymentToken, &order.Blockchain, &order.TransactionHash, &order.Status,
			&order.CreatedAt, &order.ConfirmedAt, &order.AdminID,
			&product.ID, &product.Name, &product.Description, &product.Price, &product.Image1Key,
			&product.Image2Key, &product.Coordinates, &product.IsAvailable, &product.CreatedAt,
		)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		result = append(result, domain.OrderWithProduct{
			Order:   *o.conv.ToEntity(&order),
			Product: *o.productConv.ToEntity(&product),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}

func scanOrder(row pgx.Row) (*converter.OrderModel, error) {
	var model converter.OrderModel
	err := row.Scan(
		&model.ID,
		&model.ProductID,
		&model.CustomerID,
		&model.CustomerUsername,
		&model.CustomerAddress,
		&model.PaymentToken,
		&model.Blockchain,
		&model.TransactionHash,
		&model.Status,
		&model.CreatedAt,
		&model.ConfirmedAt,
		&model.AdminID,
	)
	if err != nil {
		return nil, err
	}
	return &model, nil
}

func statusConflict(from domain.OrderStatus) error {
	if from == domain.OrderConfirmed {
		return e.ErrOrderNotConfirmed
	}
	return e.ErrOrderNotPending
}
