package service

import (
	"context"
	"fmt"
	"unicode/utf8"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"smc_bot/pkg/logger"
)

const maxMessageLen = 4096

// Sender delivers operator notifications to one Telegram chat. Without a
// token it only logs, which keeps local runs and tests free of the network.
type Sender struct {
	bot    *tgbot.BotAPI
	chatID int64
}

func NewSender(token string, chatID int64) (*Sender, error) {
	if token == "" {
		return &Sender{chatID: chatID}, nil
	}
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	logger.Info("[TG] authorized as @%s", b.Self.UserName)
	return &Sender{bot: b, chatID: chatID}, nil
}

// Enabled reports whether messages actually reach Telegram.
func (s *Sender) Enabled() bool { return s.bot != nil && s.chatID != 0 }

func (s *Sender) ChatID() int64 { return s.chatID }

// Notify sends msg to the operator chat. Failures are logged, never
// returned: a lost notification must not fail the caller's transition.
func (s *Sender) Notify(ctx context.Context, msg string) {
	if !s.Enabled() {
		logger.Info("[NOTIFY] %s", msg)
		return
	}
	if _, err := s.Send(ctx, s.chatID, msg); err != nil {
		logger.Error("[TG] notify: %v", err)
	}
}

func (s *Sender) Send(ctx context.Context, chatID int64, msg string) (tgbot.Message, error) {
	return s.SendMessage(ctx, tgbot.NewMessage(chatID, msg))
}

func (s *Sender) SendF(ctx context.Context, chatID int64, format string, args ...any) (tgbot.Message, error) {
	return s.Send(ctx, chatID, fmt.Sprintf(format, args...))
}

func (s *Sender) SendMessage(_ context.Context, message tgbot.MessageConfig) (tgbot.Message, error) {
	if s.bot == nil {
		logger.Info("[TG] %d: %s", message.ChatID, message.Text)
		return tgbot.Message{}, nil
	}
	message.Text = truncate(message.Text, maxMessageLen)
	return s.bot.Send(message)
}

func (s *Sender) editReplyMarkupRemove(chatID int64, msgID int) error {
	if s.bot == nil {
		return nil
	}
	rm := tgbot.InlineKeyboardMarkup{InlineKeyboard: [][]tgbot.InlineKeyboardButton{}}
	edit := tgbot.NewEditMessageReplyMarkup(chatID, msgID, rm)
	_, err := s.bot.Request(edit)
	return err
}

func (s *Sender) editText(chatID int64, msgID int, text string) error {
	if s.bot == nil {
		return nil
	}
	edit := tgbot.NewEditMessageText(chatID, msgID, truncate(text, maxMessageLen))
	_, err := s.bot.Request(edit)
	return err
}

func (s *Sender) answerCallback(id string) {
	if s.bot == nil {
		return
	}
	_, _ = s.bot.Request(tgbot.NewCallback(id, ""))
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
}
