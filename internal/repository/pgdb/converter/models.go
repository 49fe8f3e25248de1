package converter

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductModel представляет запись таблицы products в PostgreSQL.
type ProductModel struct {
	ID          int64           `db:"id"`
	Name        string          `db:"name"`
	Description string          `db:"description"`
	Price       decimal.Decimal `db:"price"`
	Image1Key   string          `db:"image1_key"`
	Image2Key   string          `db:"image2_key"`
	Coordinates string          `db:"coordinates"`
	IsAvailable bool            `db:"is_available"`
	CreatedAt   time.Time       `db:"created_at"`
}

// OrderModel представляет запись таблицы orders в PostgreSQL.
type OrderModel struct {
	ID               int64      `db:"id"`
	ProductID        int64      `db:"product_id"`
	CustomerID       int64      `db:"customer_id"`
	CustomerUsername string     `db:"customer_username"`
	CustomerAddress  string     `db:"customer_address"`
	PaymentToken     string     `db:"payment_token"`
	Blockchain       string     `db:"blockchain"`
	TransactionHash  *string    `db:"transaction_hash"`
	Status           string     `db:"status"`
	CreatedAt        time.Time  `db:"created_at"`
	ConfirmedAt      *time.Time `db:"confirmed_at"`
	AdminID          *int64     `db:"admin_id"`
}

// OutboxEventModel представляет запись таблицы outbox_events в PostgreSQL.
type OutboxEventModel struct {
	ID          int64      `db:"id"`
	EventID     string     `db:"event_id"`
	EventType   string     `db:"event_type"`
	AggregateID int64      `db:"aggregate_id"`
	Payload     []byte     `db:"payload"`
	Status      string     `db:"status"`
	CreatedAt   time.Time  `db:"created_at"`
	ProcessedAt *time.Time `db:"processed_at"`
}
