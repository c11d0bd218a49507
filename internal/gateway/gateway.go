// SPDX-License-Identifier: MIT

// Package gateway abstracts the chat transport. It is the only seam through
// which the daemon talks to the messaging service, so every other component
// stays testable against a mock.
package gateway

import (
	"context"
	"errors"
)

// ErrDeliveryFailed wraps transport failures. Callers decide whether to echo
// the failure back to the requesting chat or just log it; deliveries are
// never retried to avoid duplicate-notification storms.
var ErrDeliveryFailed = errors.New("delivery failed")

// Action is a chat action hint shown while a longer operation runs.
type Action string

const (
	ActionTyping      Action = "typing"
	ActionUploadPhoto Action = "upload_photo"
	ActionUploadVideo Action = "upload_video"
)

// Button is one inline keyboard entry.
type Button struct {
	Text string
	Data string
}

// Gateway is the outbound messaging interface.
type Gateway interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendMenu(ctx context.Context, chatID int64, text string, buttons []Button) error
	SendPhoto(ctx context.Context, chatID int64, path, caption string) error
	SendVideo(ctx context.Context, chatID int64, path, caption string) error
	SendChatAction(ctx context.Context, chatID int64, action Action) error
	AnswerCallback(ctx context.Context, queryID, text string) error
}
