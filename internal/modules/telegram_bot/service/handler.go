package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"smc_bot/internal/helper"
	"smc_bot/internal/models"
	signals "smc_bot/internal/modules/signals/service"
	tracker "smc_bot/internal/modules/tracker/service"
	"smc_bot/internal/smc"
	"smc_bot/pkg/logger"
)

const (
	defaultListLimit = 10
	maxListLimit     = 50
)

type Generator interface {
	Generate(ctx context.Context, symbol string) (models.Signal, error)
	Analyze(ctx context.Context, symbol string) (smc.Report, error)
}

type Tracking interface {
	Track(ctx context.Context, id string) (models.Signal, error)
	Untrack(ctx context.Context, id string) error
	Forget(id string)
	Stats(ctx context.Context) (models.Stats, error)
}

type SignalStore interface {
	List(ctx context.Context, userID string, limit int) ([]models.Signal, error)
	Delete(ctx context.Context, id string) error
}

type Settings interface {
	Get() signals.Settings
	Toggle(name string) (bool, error)
}

// Reply is the answer to one command; Keyboard is optional.
type Reply struct {
	Text     string
	Keyboard *tgbot.InlineKeyboardMarkup
}

// Commands serves the operator chat: signal generation, tracking control,
// statistics and settings. Only the configured chat is answered.
type Commands struct {
	sender   *Sender
	userID   string
	gen      Generator
	tracker  Tracking
	store    SignalStore
	settings Settings

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewCommands(sender *Sender, userID string, gen Generator, tr Tracking, store SignalStore, settings Settings) *Commands {
	return &Commands{
		sender:   sender,
		userID:   userID,
		gen:      gen,
		tracker:  tr,
		store:    store,
		settings: settings,
	}
}

// Start long-polls updates until Stop. It is a no-op without a bot token.
func (c *Commands) Start(ctx context.Context) {
	if !c.sender.Enabled() {
		logger.Warn("[TG] no bot token or chat id, commands disabled")
		return
	}
	ctx, c.cancel = context.WithCancel(ctx)

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message", "callback_query"}
	updates := c.sender.bot.GetUpdatesChan(u)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case upd, ok := <-updates:
				if !ok {
					return
				}
				c.handleUpdate(ctx, upd)
			}
		}
	}()
}

func (c *Commands) Stop() {
	if c.cancel == nil {
		return
	}
	c.sender.bot.StopReceivingUpdates()
	c.cancel()
	c.wg.Wait()
}

func (c *Commands) handleUpdate(ctx context.Context, update tgbot.Update) {
	if msg := update.Message; msg != nil && msg.Chat != nil {
		if msg.Chat.ID != c.sender.ChatID() || !msg.IsCommand() {
			return
		}
		chatID := msg.Chat.ID
		// generation can wait for candle history; keep polling responsive
		go func() {
			r := c.Handle(ctx, msg.Text)
			if r.Text == "" {
				return
			}
			out := tgbot.NewMessage(chatID, r.Text)
			if r.Keyboard != nil {
				out.ReplyMarkup = *r.Keyboard
			}
			if _, err := c.sender.SendMessage(ctx, out); err != nil {
				logger.Error("[TG] reply: %v", err)
			}
		}()
		return
	}

	if cb := update.CallbackQuery; cb != nil {
		if cb.Message == nil || cb.Message.Chat == nil || cb.Message.Chat.ID != c.sender.ChatID() {
			return
		}
		c.sender.answerCallback(cb.ID)
		text := c.HandleCallback(ctx, cb.Data)
		if text == "" {
			return
		}
		chatID, msgID := cb.Message.Chat.ID, cb.Message.MessageID
		_ = c.sender.editReplyMarkupRemove(chatID, msgID)
		_ = c.sender.editText(chatID, msgID, text)
	}
}

// Handle executes one command line such as "/track abc".
func (c *Commands) Handle(ctx context.Context, text string) Reply {
	cmd, args := splitCommand(text)
	switch cmd {
	case "start", "help":
		return Reply{Text: helpText}
	case "generate":
		return c.handleGenerate(ctx, args)
	case "analyze":
		return c.handleAnalyze(ctx, args)
	case "signals":
		return c.handleSignals(ctx, args)
	case "track":
		return c.handleTrack(ctx, args)
	case "untrack":
		return c.handleUntrack(ctx, args)
	case "delete":
		return c.handleDelete(args)
	case "stats":
		return c.handleStats(ctx)
	case "settings":
		return Reply{Text: formatSettings(c.settings.Get())}
	case "toggle":
		return c.handleToggle(args)
	default:
		return Reply{Text: "Unknown command, see /help"}
	}
}

// HandleCallback resolves inline keyboard presses: DEL::<id> and KEEP::<id>.
func (c *Commands) HandleCallback(ctx context.Context, data string) string {
	verb, id, ok := strings.Cut(data, "::")
	if !ok || id == "" {
		return ""
	}
	switch verb {
	case "DEL":
		if err := c.store.Delete(ctx, id); err != nil {
			if errors.Is(err, models.ErrSignalNotFound) {
				return "Signal " + id + " is already gone"
			}
			return "⚠️ Delete failed: " + err.Error()
		}
		c.tracker.Forget(id)
		return "🗑 Signal " + id + " deleted"
	case "KEEP":
		return "Signal " + id + " kept"
	}
	return ""
}

func (c *Commands) handleGenerate(ctx context.Context, args string) Reply {
	symbol := helper.NormSymbol(args)
	if symbol == "" {
		return Reply{Text: "Usage: /generate SYMBOL"}
	}
	// the signal itself reaches the chat as a notification
	if _, err := c.gen.Generate(ctx, symbol); err != nil {
		return Reply{Text: fmt.Sprintf("❌ Failed to generate signal for %s: %v", symbol, err)}
	}
	return Reply{}
}

func (c *Commands) handleAnalyze(ctx context.Context, args string) Reply {
	symbol := helper.NormSymbol(args)
	if symbol == "" {
		return Reply{Text: "Usage: /analyze SYMBOL"}
	}
	r, err := c.gen.Analyze(ctx, symbol)
	if err != nil {
		return Reply{Text: fmt.Sprintf("❌ Analysis failed for %s: %v", symbol, err)}
	}
	return Reply{Text: formatReport(symbol, r)}
}

func (c *Commands) handleSignals(ctx context.Context, args string) Reply {
	limit := mustInt(args, defaultListLimit)
	if limit > maxListLimit {
		limit = maxListLimit
	}
	list, err := c.store.List(ctx, c.userID, limit)
	if err != nil {
		return Reply{Text: "⚠️ Failed to load signals: " + err.Error()}
	}
	return Reply{Text: formatSignals(list)}
}

func (c *Commands) handleTrack(ctx context.Context, id string) Reply {
	if id == "" {
		return Reply{Text: "Usage: /track ID"}
	}
	s, err := c.tracker.Track(ctx, id)
	switch {
	case errors.Is(err, models.ErrSignalNotFound):
		return Reply{Text: "Signal " + id + " not found"}
	case errors.Is(err, tracker.ErrClosed):
		return Reply{Text: "Signal " + id + " is already closed"}
	case errors.Is(err, tracker.ErrNotTradeable):
		return Reply{Text: "Signal " + id + " is neutral, nothing to track"}
	case err != nil:
		return Reply{Text: "⚠️ Track failed: " + err.Error()}
	}
	return Reply{Text: fmt.Sprintf("👀 Tracking %s %s from %s", s.Symbol, s.Direction, helper.FormatPrice(s.Entry))}
}

func (c *Commands) handleUntrack(ctx context.Context, id string) Reply {
	if id == "" {
		return Reply{Text: "Usage: /untrack ID"}
	}
	if err := c.tracker.Untrack(ctx, id); err != nil {
		if errors.Is(err, models.ErrSignalNotFound) {
			return Reply{Text: "Signal " + id + " not found"}
		}
		return Reply{Text: "⚠️ Untrack failed: " + err.Error()}
	}
	return Reply{Text: "Stopped tracking " + id}
}

func (c *Commands) handleDelete(id string) Reply {
	if id == "" {
		return Reply{Text: "Usage: /delete ID"}
	}
	kb := tgbot.NewInlineKeyboardMarkup(tgbot.NewInlineKeyboardRow(
		tgbot.NewInlineKeyboardButtonData("🗑 Delete", "DEL::"+id),
		tgbot.NewInlineKeyboardButtonData("❌ Keep", "KEEP::"+id),
	))
	return Reply{Text: "Delete signal " + id + "?", Keyboard: &kb}
}

func (c *Commands) handleStats(ctx context.Context) Reply {
	st, err := c.tracker.Stats(ctx)
	if err != nil {
		return Reply{Text: "⚠️ Failed to load stats: " + err.Error()}
	}
	return Reply{Text: formatStats(st)}
}

func (c *Commands) handleToggle(name string) Reply {
	if name == "" {
		return Reply{Text: "Usage: /toggle NAME\n" + strings.Join(signals.ToggleNames(), ", ")}
	}
	v, err := c.settings.Toggle(name)
	if err != nil {
		return Reply{Text: "⚠️ " + err.Error()}
	}
	return Reply{Text: fmt.Sprintf("%s is now %s", strings.ToLower(strings.TrimSpace(name)), onOff(v))}
}
