// SPDX-License-Identifier: MIT

// Package telegram adapts the Bot API to the daemon's gateway interface.
package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/ersatzworld/smarthomebot/internal/gateway"
	"github.com/ersatzworld/smarthomebot/internal/log"
)

// Adapter implements gateway.Gateway over the Telegram Bot API and feeds
// inbound updates from authorized chats to a handler.
type Adapter struct {
	api        *tgbotapi.BotAPI
	authorized map[int64]bool
	http       *http.Client
	logger     zerolog.Logger
}

// New connects to the Bot API with the given token. Only updates from the
// authorized chat ids are forwarded; everything else is dropped with a log
// line.
func New(token string, authorized []int64) (*Adapter, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram connect: %w", err)
	}
	auth := make(map[int64]bool, len(authorized))
	for _, id := range authorized {
		auth[id] = true
	}
	return &Adapter{
		api:        api,
		authorized: auth,
		http:       &http.Client{Timeout: 30 * time.Second},
		logger:     log.WithComponent("telegram"),
	}, nil
}

// Username returns the bot account name, for startup logging.
func (a *Adapter) Username() string {
	return a.api.Self.UserName
}

// Run receives updates until ctx is cancelled, converting each into a
// gateway event and handing it to handle.
func (a *Adapter) Run(ctx context.Context, handle func(gateway.Event)) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := a.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			ev := a.convert(ctx, update)
			if ev == nil {
				continue
			}
			if !a.authorized[ev.Chat()] {
				a.logger.Warn().
					Int64("chat_id", ev.Chat()).
					Str("event", "update.unauthorized").
					Msg("dropping update from unauthorized chat")
				continue
			}
			handle(ev)
		}
	}
}

func (a *Adapter) convert(ctx context.Context, update tgbotapi.Update) gateway.Event {
	switch {
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		if cb.Message == nil {
			return nil
		}
		return gateway.CallbackQuery{
			ChatID:  cb.Message.Chat.ID,
			QueryID: cb.ID,
			Data:    cb.Data,
		}
	case update.Message != nil:
		msg := update.Message
		switch {
		case msg.Voice != nil:
			path, err := a.downloadVoice(ctx, msg.Voice.FileID)
			if err != nil {
				a.logger.Warn().
					Err(err).
					Int64("chat_id", msg.Chat.ID).
					Str("event", "voice.download_failed").
					Msg("could not download voice note")
				return gateway.Unsupported{ChatID: msg.Chat.ID, Kind: "voice"}
			}
			return gateway.VoiceMessage{ChatID: msg.Chat.ID, Path: path}
		case msg.Text != "":
			return gateway.TextMessage{ChatID: msg.Chat.ID, Text: msg.Text}
		default:
			return gateway.Unsupported{ChatID: msg.Chat.ID, Kind: contentKind(msg)}
		}
	default:
		return nil
	}
}

// downloadVoice fetches the voice note into a temp file owned by the caller.
func (a *Adapter) downloadVoice(ctx context.Context, fileID string) (string, error) {
	url, err := a.api.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("resolve voice file: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	res, err := a.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch voice file: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch voice file: status %d", res.StatusCode)
	}

	out, err := os.CreateTemp("", "smarthomebot-voice-*.ogg")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, res.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(out.Name())
		return "", err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(out.Name())
		return "", err
	}
	return out.Name(), nil
}

func contentKind(msg *tgbotapi.Message) string {
	switch {
	case msg.Photo != nil:
		return "photo"
	case msg.Video != nil:
		return "video"
	case msg.Sticker != nil:
		return "sticker"
	case msg.Document != nil:
		return "document"
	case msg.Audio != nil:
		return "audio"
	default:
		return "message"
	}
}
