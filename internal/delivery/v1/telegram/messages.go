package telegram

import (
	"errors"
	"fmt"
	"strings"

	"github.com/DRSN-tech/cryptoshop-bot/internal/conversation"
	"github.com/DRSN-tech/cryptoshop-bot/internal/domain"
	"github.com/DRSN-tech/cryptoshop-bot/internal/usecase"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/e"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Подписи кнопок. Нажатие кнопки reply-клавиатуры приходит обычным сообщением с этим текстом.
const (
	BtnBrowse        = "🛍 Browse Products"
	BtnInfo          = "ℹ️ Information"
	BtnSupport       = "📞 Support"
	BtnAddProduct    = "➕ Add Product"
	BtnViewOrders    = "📊 View Orders"
	BtnAvailable     = "📦 Available Products"
	BtnMainMenu      = "🏠 Main Menu"
	BtnBuy           = "🛒 Buy This Product"
	BtnConfirm       = "✅ Confirm"
	BtnReject        = "❌ Reject"
	BtnYes           = "✅ Yes"
	BtnNo            = "❌ No"
	BtnRetryDelivery = "🔁 Retry delivery"
)

const (
	welcomeText = "🛍 Welcome to Crypto Shop Bot!\n\n" +
		"Browse available products and pay with USDT/USDC on Polygon, Solana, or BSC networks."
	adminPanelText   = "👨‍💼 Admin Panel"
	notAdminText     = "🚫 You are not authorized as admin."
	notAuthorized    = "🚫 You are not authorized."
	supportText      = "Contact support for help."
	noProductsText   = "📭 No products available at the moment."
	noPendingText    = "📭 No pending orders."
	selectChainText  = "Select blockchain network:"
	selectTokenText  = "Select payment token:"
	orderCreatedText = "✅ Order created! Admin has been notified and will verify your payment. " +
		"You'll receive your digital goods once payment is confirmed."
	productAddedText = "✅ Product added successfully!"
	cancelledText    = "❌ Action cancelled."
	confirmedText    = "✅ Payment confirmed and digital goods sent to customer!"
	deliveryFailed   = "⚠️ Payment confirmed, but the goods could not be delivered to the customer. " +
		"The order stays confirmed, use the button below to retry."
	rejectedText   = "❌ Payment rejected and customer notified."
	genericErrText = "⚠️ Something went wrong. Please try again later."
)

const infoText = "ℹ️ Important Information\n\n" +
	"💳 Payment Methods:\n" +
	"• USDT or USDC tokens only\n" +
	"• Supported blockchains: Polygon, Solana, BSC\n\n" +
	"🔄 Payment Process:\n" +
	"1. Select product and payment method\n" +
	"2. Provide your crypto address\n" +
	"3. Make payment to our address\n" +
	"4. Admin manually verifies transaction\n" +
	"5. Receive digital goods after confirmation\n\n" +
	"⏱ Processing Time: Manual verification may take some time\n" +
	"📞 Contact support if you have issues"

var stepPrompts = map[conversation.Step]string{
	conversation.StepName:            "📝 Enter product name:",
	conversation.StepDescription:     "📄 Enter product description:",
	conversation.StepPrice:           "💰 Enter product price (in USDT/USDC):",
	conversation.StepImage1:          "🖼 Please send the first image for this product:",
	conversation.StepImage2:          "🖼 Now send the second image:",
	conversation.StepCoordinates:     "📍 Now send the coordinates (format: latitude,longitude):",
	conversation.StepCustomerAddress: "Please provide YOUR crypto address (where we can verify the payment came from):",
	conversation.StepTransactionHash: "📝 Now please provide the transaction hash (if you've already made payment), or type 'skip' to provide it later:",
}

func stepPrompt(step conversation.Step) string {
	return stepPrompts[step]
}

func productCard(p *domain.Product) string {
	return fmt.Sprintf("🏷 %s\n📄 %s\n💰 Price: %s USDT/USDC", p.Name, p.Description, p.Price.String())
}

// adminProductLine — строка списка товаров в админке.
func adminProductLine(p *domain.Product) string {
	return fmt.Sprintf("#%d 🏷 %s | 💰 %s", p.ID, p.Name, p.Price.String())
}

// paymentInstructions размечены Markdown: адрес магазина в `code`, чтобы его было удобно скопировать.
// Название товара вводит админ, поэтому оно экранируется.
func paymentInstructions(in *usecase.PaymentInstructions) string {
	chain := strings.ToUpper(string(in.Blockchain))

	var b strings.Builder
	b.WriteString("💳 Payment Instructions\n\n")
	fmt.Fprintf(&b, "Product: %s\n", tgbotapi.EscapeText(tgbotapi.ModeMarkdown, in.ProductName))
	fmt.Fprintf(&b, "Amount: %s %s\n", in.Amount.String(), in.Token)
	fmt.Fprintf(&b, "Blockchain: %s\n", chain)
	fmt.Fprintf(&b, "Send to: `%s`\n\n", markdownCode(in.ShopAddress))
	b.WriteString("⚠️ Important:\n")
	b.WriteString("• Send exact amount\n")
	fmt.Fprintf(&b, "• Use only %s network\n", chain)
	b.WriteString("• Keep transaction hash\n\n")
	b.WriteString("Now please provide YOUR crypto address (where we can verify the payment came from):")
	return b.String()
}

// markdownCode готовит текст для `code`: внутри него Markdown не экранируется, поэтому обратные кавычки убираются.
func markdownCode(s string) string {
	return strings.ReplaceAll(s, "`", "")
}

func decisionQuestion(action usecase.DecisionAction) string {
	return fmt.Sprintf("Are you sure you want to %s this payment?", strings.ToUpper(string(action)))
}

// rejectionText — ответ на отклонённый ввод в диалоге. Шаг не меняется, поэтому
// для части причин повторяется подсказка шага.
func rejectionText(reason error, step conversation.Step) string {
	switch {
	case errors.Is(reason, e.ErrPriceMustBePositive):
		return "❌ Price must be greater than zero. Please enter the price:"
	case errors.Is(reason, e.ErrPricePrecision):
		return "❌ Price can have at most 6 decimal places. Please enter the price:"
	case errors.Is(reason, e.ErrInvalidPrice):
		return "❌ Please enter a valid number for the price:"
	case errors.Is(reason, e.ErrImageExpected):
		return "❌ Please send an image:"
	case errors.Is(reason, e.ErrTextExpected):
		return "❌ Please send a text message.\n" + stepPrompt(step)
	default:
		return stepPrompt(step)
	}
}

// errorText переводит ошибку usecase в текст для пользователя. Внутренние детали не раскрываются.
func errorText(err error) string {
	switch {
	case errors.Is(err, e.ErrNotAdmin):
		return notAuthorized
	case errors.Is(err, e.ErrProductUnavailable), errors.Is(err, e.ErrProductNotFound):
		return "😔 Sorry, this product is no longer available."
	case errors.Is(err, e.ErrNoActiveFlow), errors.Is(err, e.ErrSelectionIncomplete), errors.Is(err, e.ErrSessionCorrupt):
		return "⌛ This session has expired. Please start again from " + BtnBrowse + "."
	case errors.Is(err, e.ErrUnsupportedChain), errors.Is(err, e.ErrUnsupportedToken):
		return "❌ Payments on this network are temporarily unavailable."
	case errors.Is(err, e.ErrUnsupportedMediaType):
		return "❌ Unsupported image format. Please send a JPEG, PNG or WebP image:"
	case errors.Is(err, e.ErrImageTooLarge):
		return "❌ The image is too large. Please send a smaller one:"
	case errors.Is(err, e.ErrOrderNotPending):
		return "⚠️ This order has already been processed."
	case errors.Is(err, e.ErrDeliveryInProgress):
		return "⏳ Another admin is already delivering this order."
	case errors.Is(err, e.ErrOrderNotConfirmed):
		return "⚠️ This order is not awaiting delivery."
	case errors.Is(err, e.ErrOrderNotFound):
		return "❌ Order not found."
	case errors.Is(err, e.ErrNoDecisionIntent):
		return "⌛ This action has expired. Please open the order again from " + BtnViewOrders + "."
	case errors.Is(err, e.ErrUnknownCommand):
		return "❌ Unknown action."
	default:
		return genericErrText
	}
}
