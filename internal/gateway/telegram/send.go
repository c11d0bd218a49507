// SPDX-License-Identifier: MIT

package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ersatzworld/smarthomebot/internal/gateway"
)

// SendText delivers a plain text message.
func (a *Adapter) SendText(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := a.api.Send(msg); err != nil {
		return fmt.Errorf("%w: text to %d: %v", gateway.ErrDeliveryFailed, chatID, err)
	}
	return nil
}

// SendMenu delivers a text message with a single-row inline keyboard.
func (a *Adapter) SendMenu(ctx context.Context, chatID int64, text string, buttons []gateway.Button) error {
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, b := range buttons {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	if _, err := a.api.Send(msg); err != nil {
		return fmt.Errorf("%w: menu to %d: %v", gateway.ErrDeliveryFailed, chatID, err)
	}
	return nil
}

// SendPhoto uploads the photo file at path with a caption.
func (a *Adapter) SendPhoto(ctx context.Context, chatID int64, path, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(path))
	photo.Caption = caption
	if _, err := a.api.Send(photo); err != nil {
		return fmt.Errorf("%w: photo to %d: %v", gateway.ErrDeliveryFailed, chatID, err)
	}
	return nil
}

// SendVideo uploads the video file at path with a caption.
func (a *Adapter) SendVideo(ctx context.Context, chatID int64, path, caption string) error {
	video := tgbotapi.NewVideo(chatID, tgbotapi.FilePath(path))
	video.Caption = caption
	if _, err := a.api.Send(video); err != nil {
		return fmt.Errorf("%w: video to %d: %v", gateway.ErrDeliveryFailed, chatID, err)
	}
	return nil
}

// SendChatAction shows a transient activity hint in the chat.
func (a *Adapter) SendChatAction(ctx context.Context, chatID int64, action gateway.Action) error {
	if _, err := a.api.Request(tgbotapi.NewChatAction(chatID, string(action))); err != nil {
		return fmt.Errorf("%w: chat action to %d: %v", gateway.ErrDeliveryFailed, chatID, err)
	}
	return nil
}

// AnswerCallback acknowledges an inline keyboard selection.
func (a *Adapter) AnswerCallback(ctx context.Context, queryID, text string) error {
	if _, err := a.api.Request(tgbotapi.NewCallback(queryID, text)); err != nil {
		return fmt.Errorf("%w: callback %s: %v", gateway.ErrDeliveryFailed, queryID, err)
	}
	return nil
}

var _ gateway.Gateway = (*Adapter)(nil)
