package tr

import (
	"context"

	"github.com/DRSN-tech/cryptoshop-bot/pkg/e"
	transaction "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type txKey struct{}

// DBTX — общий набор методов pgx.Tx и *pgxpool.Pool, которым пользуются репозитории.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxFromCtx извлекает объект транзакции (pgx.Tx) из контекста
func TxFromCtx(ctx context.Context) (pgx.Tx, error) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	if !ok {
		return nil, e.ErrTransactionNotFound
	}
	return tx, nil
}

// Querier возвращает транзакцию из контекста, а если её нет — пул.
func Querier(ctx context.Context, pool DBTX) DBTX {
	if tx, err := TxFromCtx(ctx); err == nil {
		return tx
	}
	return pool
}

// Transactor выполняет функцию в рамках одной транзакции PostgreSQL.
type Transactor struct {
	db   transaction.Transactional
	opts pgx.TxOptions
}

func NewTransactor(db transaction.Transactional) *Transactor {
	return &Transactor{
		db:   db,
		opts: pgx.TxOptions{IsoLevel: pgx.ReadCommitted},
	}
}

// WithinTx открывает транзакцию, кладёт её в контекст и коммитит, если fn не вернула ошибку.
// При ошибке происходит Rollback.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	const op = "Transactor.WithinTx"

	ctx, tx, err := transaction.NewTransaction(ctx, t.opts, t.db)
	if err != nil {
		return e.Wrap(op, err)
	}
	defer func() {
		if err != nil && tx.IsActive() {
			_ = tx.Rollback(ctx)
		}
	}()

	pgxTx, ok := tx.Transaction().(pgx.Tx)
	if !ok {
		err = e.ErrTransactionNotFound
		return e.Wrap(op, err)
	}

	if err = fn(context.WithValue(ctx, txKey{}, pgxTx)); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return e.Wrap(op, err)
	}

	return nil
}
