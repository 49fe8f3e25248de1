package clients

import (
	"github.com/DRSN-tech/cryptoshop-bot/internal/cfg"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/e"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jimlawless/whereami"
)

// NewTelegramBot создаёт клиента Bot API. Конструктор сразу вызывает getMe,
// поэтому неверный токен обнаруживается при старте.
func NewTelegramBot(cfg *cfg.BotCfg) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return bot, nil
}

// UpdatesChannel запускает long polling.
func UpdatesChannel(bot *tgbotapi.BotAPI, cfg *cfg.BotCfg) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = cfg.PollTimeout
	u.AllowedUpdates = []string{"message", "callback_query"}

	return bot.GetUpdatesChan(u)
}
