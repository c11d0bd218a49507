// SPDX-License-Identifier: MIT

package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey string

const chatIDKey ctxKey = "chat_id"

// ContextWithChatID stores the chat id in the context so that workers spawned
// on behalf of a chat carry it into their log entries.
func ContextWithChatID(ctx context.Context, id int64) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, chatIDKey, id)
}

// ChatIDFromContext extracts the chat id from context if present.
func ChatIDFromContext(ctx context.Context) (int64, bool) {
	if ctx == nil {
		return 0, false
	}
	v, ok := ctx.Value(chatIDKey).(int64)
	return v, ok
}

// WithComponentFromContext returns a logger annotated with the component name
// and enriched with the chat id from ctx when one is set.
func WithComponentFromContext(ctx context.Context, component string) zerolog.Logger {
	l := WithComponent(component)
	if id, ok := ChatIDFromContext(ctx); ok {
		l = l.With().Int64("chat_id", id).Logger()
	}
	return l
}
