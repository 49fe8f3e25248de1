package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/DRSN-tech/cryptoshop-bot/internal/domain"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/e"
)

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewErrorResponse(code int, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
	}
}

// ProductResponse не содержит изображений и координат: это сам товар, он выдаётся только покупателю.
type ProductResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
}

type OrderResponse struct {
	ID               int64      `json:"id"`
	ProductID        int64      `json:"product_id"`
	ProductName      string     `json:"product_name"`
	Amount           string     `json:"amount"`
	Token            string     `json:"token"`
	Blockchain       string     `json:"blockchain"`
	CustomerID       int64      `json:"customer_id"`
	CustomerUsername string     `json:"customer_username"`
	CustomerAddress  string     `json:"customer_address"`
	TransactionHash  *string    `json:"transaction_hash"`
	Status           string     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	ConfirmedAt      *time.Time `json:"confirmed_at,omitempty"`
}

func ToHTTPResponse(err error) (int, string) {
	switch {
	case errors.Is(err, e.ErrStatusBadRequest):
		return http.StatusBadRequest, e.ErrStatusBadRequest.Error()
	case errors.Is(err, e.ErrUnauthorized):
		return http.StatusUnauthorized, e.ErrUnauthorized.Error()
	case errors.Is(err, e.ErrNotAdmin):
		return http.StatusForbidden, e.ErrNotAdmin.Error()
	default:
		return http.StatusInternalServerError, e.ErrInternalServerError.Error()
	}
}

func WriteError(w http.ResponseWriter, err error) {
	code, msg := ToHTTPResponse(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(NewErrorResponse(code, msg))
}

func WriteSuccess(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func toProductResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.String(),
		IsAvailable: p.IsAvailable,
		CreatedAt:   p.CreatedAt,
	}
}

func toArrProductResponse(products []domain.Product) []ProductResponse {
	res := make([]ProductResponse, len(products))
	for i := range products {
		res[i] = toProductResponse(&products[i])
	}
	return res
}

func toOrderResponse(o *domain.OrderWithProduct) OrderResponse {
	return OrderResponse{
		ID:               o.Order.ID,
		ProductID:        o.Product.ID,
		ProductName:      o.Product.Name,
		Amount:           o.Product.Price.String(),
		Token:            string(o.Order.Token),
		Blockchain:       string(o.Order.Blockchain),
		CustomerID:       o.Order.CustomerID,
		CustomerUsername: o.Order.CustomerUsername,
		CustomerAddress:  o.Order.CustomerAddress,
		TransactionHash:  o.Order.TransactionHash,
		Status:           string(o.Order.Status),
		CreatedAt:        o.Order.CreatedAt,
		ConfirmedAt:      o.Order.ConfirmedAt,
	}
}

func toArrOrderResponse(orders []domain.OrderWithProduct) []OrderResponse {
	res := make([]OrderResponse, len(orders))
	for i := range orders {
		res[i] = toOrderResponse(&orders[i])
	}
	return res
}
