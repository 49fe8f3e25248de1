package e

import "fmt"

var (
	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = fmt.Errorf("transaction not found")

	// Конфигурация
	ErrIncorrectEnvVariable = fmt.Errorf("incorrect environment variable")

	// Не найдено
	ErrProductNotFound = fmt.Errorf("product not found")
	ErrOrderNotFound   = fmt.Errorf("order not found")
	ErrImageNotFound   = fmt.Errorf("image not found")

	// Конфликты состояния заказа
	ErrOrderNotPending    = fmt.Errorf("order is not pending")
	ErrOrderNotConfirmed  = fmt.Errorf("order is not confirmed")
	ErrProductUnavailable = fmt.Errorf("product is no longer available")
	ErrNoDecisionIntent   = fmt.Errorf("no matching decision intent")
	ErrDeliveryInProgress = fmt.Errorf("goods delivery is already in progress")

	// Авторизация
	ErrNotAdmin = fmt.Errorf("not authorized")

	// Валидация ввода в диалогах
	ErrInvalidPrice         = fmt.Errorf("invalid price")
	ErrPriceMustBePositive  = fmt.Errorf("price must be positive")
	ErrPricePrecision       = fmt.Errorf("price must have at most 6 decimal places")
	ErrTextExpected         = fmt.Errorf("text input expected")
	ErrImageExpected        = fmt.Errorf("image input expected")
	ErrEmptyInput           = fmt.Errorf("empty input")
	ErrSelectionIncomplete  = fmt.Errorf("product, blockchain and token must be selected first")
	ErrUnsupportedChain     = fmt.Errorf("unsupported blockchain")
	ErrUnsupportedToken     = fmt.Errorf("unsupported payment token")
	ErrUnsupportedMediaType = fmt.Errorf("unsupported media type")
	ErrImageTooLarge        = fmt.Errorf("image is too large")
	ErrUnexpectedInput      = fmt.Errorf("unexpected input for current step")

	// Транспорт
	ErrStatusBadRequest    = fmt.Errorf("bad request")
	ErrUnauthorized        = fmt.Errorf("unauthorized")
	ErrInternalServerError = fmt.Errorf("internal server error")

	// Диалоги и команды
	ErrNoActiveFlow   = fmt.Errorf("no active conversation")
	ErrUnknownCommand = fmt.Errorf("unknown command")
	ErrSessionCorrupt = fmt.Errorf("conversation session is corrupt")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
