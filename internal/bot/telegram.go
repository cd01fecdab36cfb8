package bot

import (
	"context"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Telegram adapts the Bot API to Sender and feeds updates to a handler
type Telegram struct {
	api         *tgbotapi.BotAPI
	logger      *zap.Logger
	pollTimeout int
}

// NewTelegram connects with token and verifies it with getMe. Empty
// endpoint means the public Bot API.
func NewTelegram(token, endpoint string, client *http.Client, pollTimeout int, logger *zap.Logger) (*Telegram, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if client == nil {
		client = &http.Client{}
	}
	if pollTimeout <= 0 {
		pollTimeout = 60
	}

	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram: connect: %w", err)
	}

	logger = logger.Named("telegram")
	logger.Info("authorized", zap.String("username", api.Self.UserName))

	return &Telegram{api: api, logger: logger, pollTimeout: pollTimeout}, nil
}

// Send delivers r as a text message or, with PhotoURL, as a photo with caption
// The Bot API client has no context support, so ctx is only checked up front.
func (t *Telegram) Send(ctx context.Context, r Reply) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}

	var msg tgbotapi.Chattable

	if r.PhotoURL != "" {
		photo := tgbotapi.NewPhoto(r.ChatID, tgbotapi.FileURL(r.PhotoURL))
		photo.Caption = r.Text
		if r.HTML {
			photo.ParseMode = tgbotapi.ModeHTML
		}
		if r.Keyboard != nil {
			photo.ReplyMarkup = toMarkup(r.Keyboard)
		}
		msg = photo
	} else {
		text := tgbotapi.NewMessage(r.ChatID, r.Text)
		if r.HTML {
			text.ParseMode = tgbotapi.ModeHTML
		}
		if r.Keyboard != nil {
			text.ReplyMarkup = toMarkup(r.Keyboard)
		}
		msg = text
	}

	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	return nil
}

// AnswerCallback stops the client-side spinner of an inline button
func (t *Telegram) AnswerCallback(ctx context.Context, callbackID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("telegram: answer callback: %w", err)
	}
	if _, err := t.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		return fmt.Errorf("telegram: answer callback: %w", err)
	}
	return nil
}

// Run long-polls for updates until ctx is done. Up to workers updates are
// handled at once; further updates wait for a free slot. Updates still
// waiting when ctx is done are dropped.
func (t *Telegram) Run(ctx context.Context, handler *Handler, workers int) error {
	if workers <= 0 {
		workers = 1
	}

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = t.pollTimeout
	updates := t.api.GetUpdatesChan(cfg)

	var g errgroup.Group
	slots := make(chan struct{}, workers)

	t.logger.Info("polling started", zap.Int("workers", workers))
	defer t.logger.Info("polling stopped")

	stop := func() error {
		t.api.StopReceivingUpdates()
		_ = g.Wait()
		return nil
	}

	for {
		var raw tgbotapi.Update
		select {
		case <-ctx.Done():
			return stop()
		case r, ok := <-updates:
			if !ok {
				_ = g.Wait()
				return nil
			}
			raw = r
		}

		u, ok := convertUpdate(raw)
		if !ok {
			continue
		}

		select {
		case <-ctx.Done():
			return stop()
		case slots <- struct{}{}:
		}

		updateID := raw.UpdateID
		g.Go(func() error {
			defer func() { <-slots }()
			if err := handler.Handle(ctx, u); err != nil {
				t.logger.Warn("handle update failed",
					zap.Int("update_id", updateID), zap.Error(err))
			}
			return nil
		})
	}
}

// convertUpdate keeps the fields the handler cares about. Updates other
// than messages and callback queries are dropped.
func convertUpdate(raw tgbotapi.Update) (Update, bool) {
	switch {
	case raw.Message != nil:
		m := raw.Message
		if m.From == nil || m.Chat == nil {
			return Update{}, false
		}
		u := Update{
			UserID: m.From.ID,
			ChatID: m.Chat.ID,
			Text:   m.Text,
		}
		if m.IsCommand() {
			u.Command = m.Command()
		}
		return u, true

	case raw.CallbackQuery != nil:
		cq := raw.CallbackQuery
		if cq.From == nil {
			return Update{}, false
		}
		u := Update{
			UserID:       cq.From.ID,
			CallbackID:   cq.ID,
			CallbackData: cq.Data,
		}
		if cq.Message != nil && cq.Message.Chat != nil {
			u.ChatID = cq.Message.Chat.ID
		}
		return u, true
	}
	return Update{}, false
}

func toMarkup(kb *Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb.Rows))
	for _, row := range kb.Rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
			} else {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
			}
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
