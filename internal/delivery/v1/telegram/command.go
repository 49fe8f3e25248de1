package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/DRSN-tech/cryptoshop-bot/internal/domain"
	"github.com/DRSN-tech/cryptoshop-bot/internal/usecase"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/e"
)

// CommandKind — тип нажатой inline-кнопки.
type CommandKind string

const (
	CmdBuy       CommandKind = "buy"    // buy:<product_id>
	CmdChain     CommandKind = "chain"  // chain:<blockchain>
	CmdToken     CommandKind = "token"  // token:<token>
	CmdDecide    CommandKind = "decide" // decide:<action>:<order_id>, первое нажатие
	CmdYes       CommandKind = "yes"    // yes:<action>:<order_id>
	CmdNo        CommandKind = "no"     // no:<action>:<order_id>
	CmdRedeliver CommandKind = "redeliver"
)

const sep = ":"

// Command — разобранные callback-данные. Строка разбирается один раз на входе,
// дальше обработчики работают только с типизированными полями.
type Command struct {
	Kind      CommandKind
	ProductID int64
	OrderID   int64
	Chain     domain.Blockchain
	Token     domain.Token
	Action    usecase.DecisionAction
}

func BuyCommand(productID int64) Command {
	return Command{Kind: CmdBuy, ProductID: productID}
}

func ChainCommand(chain domain.Blockchain) Command {
	return Command{Kind: CmdChain, Chain: chain}
}

func TokenCommand(token domain.Token) Command {
	return Command{Kind: CmdToken, Token: token}
}

func DecisionCommand(kind CommandKind, action usecase.DecisionAction, orderID int64) Command {
	return Command{Kind: kind, Action: action, OrderID: orderID}
}

func RedeliverCommand(orderID int64) Command {
	return Command{Kind: CmdRedeliver, OrderID: orderID}
}

// Encode возвращает callback_data (не длиннее 64 байт).
func (c Command) Encode() string {
	switch c.Kind {
	case CmdBuy:
		return join(string(c.Kind), strconv.FormatInt(c.ProductID, 10))
	case CmdChain:
		return join(string(c.Kind), string(c.Chain))
	case CmdToken:
		return join(string(c.Kind), string(c.Token))
	case CmdDecide, CmdYes, CmdNo:
		return join(string(c.Kind), string(c.Action), strconv.FormatInt(c.OrderID, 10))
	case CmdRedeliver:
		return join(string(c.Kind), strconv.FormatInt(c.OrderID, 10))
	default:
		return ""
	}
}

// ParseCommand разбирает callback_data. Любая нераспознанная строка — e.ErrUnknownCommand.
func ParseCommand(data string) (Command, error) {
	parts := strings.Split(data, sep)
	if len(parts) < 2 {
		return Command{}, unknown(data)
	}

	kind := CommandKind(parts[0])
	switch kind {
	case CmdBuy:
		if len(parts) != 2 {
			return Command{}, unknown(data)
		}
		id, err := parseID(parts[1])
		if err != nil {
			return Command{}, unknown(data)
		}
		return BuyCommand(id), nil

	case CmdChain:
		chain, ok := domain.ParseBlockchain(parts[1])
		if len(parts) != 2 || !ok {
			return Command{}, unknown(data)
		}
		return ChainCommand(chain), nil

	case CmdToken:
		token, ok := domain.ParseToken(parts[1])
		if len(parts) != 2 || !ok {
			return Command{}, unknown(data)
		}
		return TokenCommand(token), nil

	case CmdDecide, CmdYes, CmdNo:
		if len(parts) != 3 {
			return Command{}, unknown(data)
		}
		action := usecase.DecisionAction(parts[1])
		id, err := parseID(parts[2])
		if err != nil || !action.Valid() {
			return Command{}, unknown(data)
		}
		return DecisionCommand(kind, action, id), nil

	case CmdRedeliver:
		if len(parts) != 2 {
			return Command{}, unknown(data)
		}
		id, err := parseID(parts[1])
		if err != nil {
			return Command{}, unknown(data)
		}
		return RedeliverCommand(id), nil

	default:
		return Command{}, unknown(data)
	}
}

// IsAdmin сообщает, что команда доступна только администраторам.
func (c Command) IsAdmin() bool {
	switch c.Kind {
	case CmdDecide, CmdYes, CmdNo, CmdRedeliver:
		return true
	}
	return false
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("non-positive id %d", id)
	}
	return id, nil
}

func join(parts ...string) string {
	return strings.Join(parts, sep)
}

func unknown(data string) error {
	return fmt.Errorf("%w: %q", e.ErrUnknownCommand, data)
}
