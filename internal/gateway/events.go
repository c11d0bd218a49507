// SPDX-License-Identifier: MIT

package gateway

// Event is one inbound chat event. The transport adapter produces these;
// chat sessions consume them sequentially per chat.
type Event interface {
	Chat() int64
}

// TextMessage is an inbound text (or command) message.
type TextMessage struct {
	ChatID int64
	Text   string
}

// VoiceMessage is an inbound voice note, already downloaded to a local file
// owned by the receiver.
type VoiceMessage struct {
	ChatID int64
	Path   string
}

// CallbackQuery is an inline keyboard selection.
type CallbackQuery struct {
	ChatID  int64
	QueryID string
	Data    string
}

// Unsupported is any other message kind (stickers, documents, ...).
type Unsupported struct {
	ChatID int64
	Kind   string
}

func (e TextMessage) Chat() int64   { return e.ChatID }
func (e VoiceMessage) Chat() int64  { return e.ChatID }
func (e CallbackQuery) Chat() int64 { return e.ChatID }
func (e Unsupported) Chat() int64   { return e.ChatID }
