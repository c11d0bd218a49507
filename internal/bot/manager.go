// SPDX-License-Identifier: MIT

// Package bot implements the per-chat sessions behind the messaging
// frontend: command dispatch, alert-state mutations, on-demand snapshots and
// the per-chat periodic snapshot job.
package bot

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ersatzworld/smarthomebot/internal/alert"
	"github.com/ersatzworld/smarthomebot/internal/camera"
	"github.com/ersatzworld/smarthomebot/internal/config"
	"github.com/ersatzworld/smarthomebot/internal/gateway"
	"github.com/ersatzworld/smarthomebot/internal/log"
	"github.com/ersatzworld/smarthomebot/internal/media"
	"github.com/ersatzworld/smarthomebot/internal/scheduler"
	"github.com/ersatzworld/smarthomebot/internal/settings"
)

// Settings is the slice of the persistent store the sessions need.
type Settings interface {
	SnapshotInterval(chatID int64) (secs int, ok bool, err error)
	SetSnapshotInterval(chatID int64, secs int) error
}

// Snapshotter performs a multi-camera snapshot batch for a chat.
type Snapshotter interface {
	Snapshot(ctx context.Context, chatID int64, cameraIDs []string)
	Schedule(chatID int64, intervalSecs int, cameraIDs []string) error
	Cancel(chatID int64)
}

// Manager creates sessions lazily, one per authorized chat, and fans inbound
// events out to them. Events for the same chat are handled strictly in
// arrival order; chats are independent of each other.
type Manager struct {
	ctx        context.Context
	gw         gateway.Gateway
	alerts     *alert.State
	registry   *camera.Registry
	store      Settings
	sched      Snapshotter
	transcoder *media.Transcoder

	matching    config.Matching
	idleTimeout time.Duration
	logger      zerolog.Logger

	mu       sync.Mutex
	sessions map[int64]*Session
	closed   bool
}

// NewManager wires a session manager. ctx bounds all background work.
func NewManager(
	ctx context.Context,
	gw gateway.Gateway,
	alerts *alert.State,
	registry *camera.Registry,
	store Settings,
	sched Snapshotter,
	transcoder *media.Transcoder,
	matching config.Matching,
	idleTimeout time.Duration,
) *Manager {
	return &Manager{
		ctx:         ctx,
		gw:          gw,
		alerts:      alerts,
		registry:    registry,
		store:       store,
		sched:       sched,
		transcoder:  transcoder,
		matching:    matching,
		idleTimeout: idleTimeout,
		logger:      log.WithComponent("bot"),
		sessions:    make(map[int64]*Session),
	}
}

// Dispatch routes one inbound event to its chat's session, creating the
// session on first contact.
func (m *Manager) Dispatch(ev gateway.Event) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	s, ok := m.sessions[ev.Chat()]
	if !ok {
		s = m.newSession(ev.Chat())
		m.sessions[ev.Chat()] = s
	}
	m.mu.Unlock()
	s.enqueue(ev)
}

// Session returns the live session for a chat, if any. Test hook.
func (m *Manager) Session(chatID int64) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[chatID]
	return s, ok
}

// Close shuts down every session: each removes its scheduled job and joins
// its in-flight background tasks before Close returns.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	open := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		open = append(open, s)
	}
	m.sessions = make(map[int64]*Session)
	m.mu.Unlock()

	for _, s := range open {
		s.Close()
	}
}

var _ Snapshotter = (*scheduler.Scheduler)(nil)
var _ Settings = (*settings.Store)(nil)
