package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kyanzach/HGF-Connect-V2-sub001/models"
)

type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSink pushes messages to members who linked a Telegram chat.
type TelegramSink struct {
	bot telegramSender
}

// NewTelegramSink connects to the Bot API with token.
func NewTelegramSink(token string) (*TelegramSink, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &TelegramSink{bot: bot}, nil
}

func (s *TelegramSink) Name() string { return "telegram" }

func (s *TelegramSink) Deliver(_ context.Context, to models.Member, msg Message) error {
	if to.TelegramChatID == 0 {
		return ErrUnreachable
	}
	text := fmt.Sprintf("🎁 *%s*\n\n%s", tgbotapi.EscapeText(tgbotapi.ModeMarkdown, msg.Title),
		tgbotapi.EscapeText(tgbotapi.ModeMarkdown, msg.Body))
	out := tgbotapi.NewMessage(to.TelegramChatID, text)
	out.ParseMode = tgbotapi.ModeMarkdown
	if msg.Link != "" {
		out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("Open", msg.Link)),
		)
	}
	_, err := s.bot.Send(out)
	return err
}
