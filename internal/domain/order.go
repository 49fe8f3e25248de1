package domain

import (
	"strings"
	"time"
)

// OrderStatus — статус заказа.
//
//	pending -> confirmed -> completed
//	pending -> rejected
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderRejected  OrderStatus = "rejected"
	OrderCompleted OrderStatus = "completed"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderConfirmed, OrderRejected},
	OrderConfirmed: {OrderCompleted},
}

// CanTransition проверяет, разрешён ли переход из from в to.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal возвращает true для статусов без исходящих переходов.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderRejected || s == OrderCompleted
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderRejected, OrderCompleted:
		return true
	}
	return false
}

// Blockchain — сеть, в которой клиент платит.
type Blockchain string

const (
	Polygon Blockchain = "polygon"
	Solana  Blockchain = "solana"
	BSC     Blockchain = "bsc"
)

// SupportedChains в порядке отображения клиенту.
var SupportedChains = []Blockchain{Polygon, Solana, BSC}

func ParseBlockchain(s string) (Blockchain, bool) {
	chain := Blockchain(strings.ToLower(strings.TrimSpace(s)))
	for _, c := range SupportedChains {
		if c == chain {
			return chain, true
		}
	}
	return "", false
}

// Title возвращает человекочитаемое название сети.
func (b Blockchain) Title() string {
	switch b {
	case Polygon:
		return "Polygon"
	case Solana:
		return "Solana"
	case BSC:
		return "Binance Smart Chain"
	default:
		return string(b)
	}
}

// Token — стейблкоин, которым оплачивается заказ.
type Token string

const (
	USDT Token = "USDT"
	USDC Token = "USDC"
)

var SupportedTokens = []Token{USDT, USDC}

func ParseToken(s string) (Token, bool) {
	token := Token(strings.ToUpper(strings.TrimSpace(s)))
	for _, t := range SupportedTokens {
		if t == token {
			return token, true
		}
	}
	return "", false
}

// Order описывает заказ клиента на один товар.
type Order struct {
	ID               int64
	ProductID        int64
	CustomerID       int64
	CustomerUsername string
	CustomerAddress  string
	Token            Token
	Blockchain       Blockchain
	TransactionHash  *string
	Status           OrderStatus
	CreatedAt        time.Time
	ConfirmedAt      *time.Time // Заполняется только при подтверждении
	AdminID          *int64     // Админ, принявший решение
}

// OrderDraft — данные заказа, собранные в диалоге оплаты.
type OrderDraft struct {
	ProductID        int64
	CustomerID       int64
	CustomerUsername string
	CustomerAddress  string
	Token            Token
	Blockchain       Blockchain
	TransactionHash  *string
}

func NewOrder(draft OrderDraft) *Order {
	return &Order{
		ProductID:        draft.ProductID,
		CustomerID:       draft.CustomerID,
		CustomerUsername: draft.CustomerUsername,
		CustomerAddress:  draft.CustomerAddress,
		Token:            draft.Token,
		Blockchain:       draft.Blockchain,
		TransactionHash:  draft.TransactionHash,
		Status:           OrderPending,
	}
}

// OrderWithProduct — заказ вместе с товаром, на который он ссылается.
type OrderWithProduct struct {
	Order   Order
	Product Product
}
