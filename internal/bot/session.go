// SPDX-License-Identifier: MIT

package bot

import (
	"context"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ersatzworld/smarthomebot/internal/gateway"
	"github.com/ersatzworld/smarthomebot/internal/log"
)

// Session is the sequential event handler for one chat. All events for the
// chat pass through a single goroutine, so handlers never race each other.
// Longer work (voice transcodes, snapshot fetches) runs in tracked
// background tasks that Close joins.
type Session struct {
	chatID int64
	m      *Manager
	logger zerolog.Logger

	events chan gateway.Event
	quit   chan struct{}
	loop   sync.WaitGroup

	taskMu sync.Mutex
	tasks  map[string]struct{}
	taskWG sync.WaitGroup

	closeOnce sync.Once
}

func (m *Manager) newSession(chatID int64) *Session {
	s := &Session{
		chatID: chatID,
		m:      m,
		logger: m.logger.With().Int64("chat_id", chatID).Logger(),
		events: make(chan gateway.Event, 16),
		quit:   make(chan struct{}),
		tasks:  make(map[string]struct{}),
	}
	s.logger.Info().Str("event", "session.open").Msg("chat session opened")

	// Restore the chat's periodic snapshot job from persisted settings.
	if secs, ok, err := m.store.SnapshotInterval(chatID); err != nil {
		s.logger.Error().Err(err).Str("event", "session.settings_failed").Msg("could not load chat settings")
	} else if ok && secs > 0 {
		if err := m.sched.Schedule(chatID, secs, m.registry.IDs()); err != nil {
			s.logger.Error().Err(err).Str("event", "session.restore_failed").Msg("could not restore snapshot job")
		}
	}

	s.loop.Add(1)
	go s.run()
	return s
}

func (s *Session) enqueue(ev gateway.Event) {
	select {
	case s.events <- ev:
	case <-s.quit:
	}
}

func (s *Session) run() {
	defer s.loop.Done()

	idle := time.NewTimer(s.m.idleTimeout)
	defer idle.Stop()

	for {
		select {
		case <-s.quit:
			return
		case <-s.m.ctx.Done():
			return
		case ev := <-s.events:
			s.handle(ev)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(s.m.idleTimeout)
		case <-idle.C:
			s.handleIdle()
			idle.Reset(s.m.idleTimeout)
		}
	}
}

func (s *Session) handle(ev gateway.Event) {
	ctx := s.m.ctx
	switch e := ev.(type) {
	case gateway.TextMessage:
		s.handleText(ctx, e.Text)
	case gateway.VoiceMessage:
		s.handleVoice(e.Path)
	case gateway.CallbackQuery:
		s.handleCallback(ctx, e)
	case gateway.Unsupported:
		s.send(ctx, msgNirvana(e.Kind))
	}
}

// handleIdle sends a cosmetic filler while alerting is on. State is never
// touched here.
func (s *Session) handleIdle() {
	if !s.m.alerts.IsEnabled() {
		return
	}
	msg := idleMessages[rand.Intn(len(idleMessages))]
	s.send(s.m.ctx, msg)
}

// handleVoice transcodes the voice note in a tracked background task; the
// transcoder plays it on the local speaker when a player is configured.
func (s *Session) handleVoice(path string) {
	if !s.m.transcoder.Available() {
		_ = os.Remove(path)
		s.send(s.m.ctx, msgNirvana("voice"))
		return
	}
	s.spawn("voice", func(ctx context.Context) {
		defer func() { _ = os.Remove(path) }()
		out, err := s.m.transcoder.TranscodeVoice(ctx, path)
		if err != nil {
			s.logger.Warn().Err(err).Str("event", "voice.transcode_failed").Msg("discarding voice note")
			return
		}
		_ = os.Remove(out)
	})
}

// spawn runs fn as a tracked background task and returns its handle. Close
// waits for every spawned task to finish.
func (s *Session) spawn(kind string, fn func(ctx context.Context)) string {
	id := uuid.NewString()
	s.taskMu.Lock()
	s.tasks[id] = struct{}{}
	s.taskMu.Unlock()
	s.taskWG.Add(1)

	s.logger.Debug().Str("task", id).Str("kind", kind).Str("event", "task.start").Msg("background task started")
	go func() {
		defer func() {
			s.taskMu.Lock()
			delete(s.tasks, id)
			s.taskMu.Unlock()
			s.taskWG.Done()
			s.logger.Debug().Str("task", id).Str("kind", kind).Str("event", "task.done").Msg("background task finished")
		}()
		fn(log.ContextWithChatID(s.m.ctx, s.chatID))
	}()
	return id
}

// InFlight reports the number of running background tasks. Test hook.
func (s *Session) InFlight() int {
	s.taskMu.Lock()
	defer s.taskMu.Unlock()
	return len(s.tasks)
}

// Close stops the event loop, removes the chat's scheduled job and joins
// every in-flight background task. Workers are never killed mid-flight;
// half-sent media and dangling temp files would be worse than a slow close.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
		s.loop.Wait()
		s.m.sched.Cancel(s.chatID)
		s.taskWG.Wait()
		s.logger.Info().Str("event", "session.close").Msg("chat session closed")
	})
}

func (s *Session) send(ctx context.Context, text string) {
	if err := s.m.gw.SendText(ctx, s.chatID, text); err != nil {
		s.logger.Error().Err(err).Str("event", "send.failed").Msg("text delivery failed")
	}
}

func (s *Session) sendMenu(ctx context.Context, text string, buttons []gateway.Button) {
	if err := s.m.gw.SendMenu(ctx, s.chatID, text, buttons); err != nil {
		s.logger.Error().Err(err).Str("event", "send.failed").Msg("menu delivery failed")
	}
}
