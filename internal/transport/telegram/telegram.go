// Package telegram реализует transport.Transport поверх Telegram Bot API (long polling).
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/duragon35SG/habit-bot/internal/config"
	"github.com/duragon35SG/habit-bot/internal/lib/sl"
	"github.com/duragon35SG/habit-bot/internal/transport"
)

// BotAPI часть tgbotapi.BotAPI, которой пользуется клиент.
type BotAPI interface {
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Client отправляет сообщения в Telegram и получает обновления.
type Client struct {
	api         BotAPI
	limiter     *rate.Limiter
	sendTimeout time.Duration
	pollTimeout int
	logger      *slog.Logger
}

var _ transport.Transport = (*Client)(nil)

// NewBotAPI авторизуется в Telegram с токеном из конфигурации.
func NewBotAPI(cfg config.Bot) (*tgbotapi.BotAPI, error) {
	const op = "telegram.NewBotAPI"
	client := &http.Client{
		Timeout: time.Duration(cfg.PollTimeout)*time.Second + cfg.SendTimeout,
	}
	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return api, nil
}

// New создаёт клиента. RateLimit ограничивает число исходящих запросов в секунду.
func New(api BotAPI, cfg config.Bot, logger *slog.Logger) *Client {
	limit := rate.Inf
	burst := 1
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
		burst = max(1, int(cfg.RateLimit))
	}
	return &Client{
		api:         api,
		limiter:     rate.NewLimiter(limit, burst),
		sendTimeout: cfg.SendTimeout,
		pollTimeout: cfg.PollTimeout,
		logger:      logger,
	}
}

// Send отправляет сообщение пользователю userID.
func (c *Client) Send(ctx context.Context, userID string, msg transport.OutMessage) error {
	const op = "telegram.Send"
	chatID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: invalid chat id %q: %w", op, userID, err)
	}

	out := tgbotapi.NewMessage(chatID, msg.Text)
	if markup := replyMarkup(msg); markup != nil {
		out.ReplyMarkup = markup
	}
	if err := c.do(ctx, out); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Edit заменяет текст отправленного сообщения и убирает встроенное меню.
func (c *Client) Edit(ctx context.Context, ref transport.MessageRef, text string) error {
	const op = "telegram.Edit"
	chatID, err := strconv.ParseInt(ref.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: invalid chat id %q: %w", op, ref.ChatID, err)
	}
	if err := c.do(ctx, tgbotapi.NewEditMessageText(chatID, ref.MessageID, text)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// do выполняет запрос с ограничением частоты и таймаутом.
func (c *Client) do(ctx context.Context, chattable tgbotapi.Chattable) error {
	if c.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.sendTimeout)
		defer cancel()
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		_, err := c.api.Request(chattable)
		done <- err
	}()

	select {
	case err := <-done:
		return classify(err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// classify переводит ответ 403 (бот заблокирован, чат удалён) в transport.ErrRecipientUnavailable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusForbidden {
		return fmt.Errorf("%w: %s", transport.ErrRecipientUnavailable, apiErr.Message)
	}
	return err
}

// Listen запускает long polling и возвращает канал нормализованных событий.
// Канал закрывается после отмены ctx.
func (c *Client) Listen(ctx context.Context) <-chan transport.Event {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = c.pollTimeout
	updates := c.api.GetUpdatesChan(u)

	events := make(chan transport.Event)
	go func() {
		defer close(events)
		defer c.api.StopReceivingUpdates()
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.CallbackQuery != nil {
					c.answerCallback(ctx, update.CallbackQuery.ID)
				}
				ev, ok := toEvent(update)
				if !ok {
					continue
				}
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return events
}

func (c *Client) answerCallback(ctx context.Context, id string) {
	if err := c.do(ctx, tgbotapi.NewCallback(id, "")); err != nil {
		c.logger.Warn("failed to answer callback", sl.Err(err))
	}
}
