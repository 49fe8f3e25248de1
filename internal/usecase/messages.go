package usecase

import (
	"fmt"
	"strings"

	"github.com/DRSN-tech/cryptoshop-bot/internal/domain"
)

// Тексты, которые usecase отправляет через Notifier. Тексты диалогов живут в транспорте.
const (
	imageCaption1   = "📸 Image 1 of your purchase"
	imageCaption2   = "📸 Image 2 of your purchase"
	rejectionNotice = "❌ Your payment was rejected by admin. Please contact support."
	notProvided     = "Not provided"
)

func goodsNotice(p *domain.Product) string {
	return fmt.Sprintf("✅ Your payment has been confirmed! Here are your purchased items:\n\nProduct: %s", p.Name)
}

func coordinatesNotice(p *domain.Product) string {
	return fmt.Sprintf("📍 Coordinates: %s", p.Coordinates)
}

// OrderSummary — карточка заказа для админа. header различает новый заказ и очередь pending.
func OrderSummary(header string, o *domain.Order, p *domain.Product) string {
	hash := notProvided
	if o.TransactionHash != nil {
		hash = *o.TransactionHash
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s #%d\n", header, o.ID)
	fmt.Fprintf(&b, "Product: %s\n", p.Name)
	fmt.Fprintf(&b, "Customer: @%s\n", o.CustomerUsername)
	fmt.Fprintf(&b, "Amount: %s %s\n", p.Price.String(), o.Token)
	fmt.Fprintf(&b, "Blockchain: %s\n", o.Blockchain.Title())
	fmt.Fprintf(&b, "Customer Address: %s\n", o.CustomerAddress)
	fmt.Fprintf(&b, "Transaction Hash: %s", hash)
	return b.String()
}

const (
	HeaderNewOrder     = "🔄 New Pending Order"
	HeaderPendingOrder = "🔄 Pending Order"
	HeaderStuckOrder   = "⚠️ Confirmed but not delivered, order"
)
