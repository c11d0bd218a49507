// SPDX-License-Identifier: MIT

package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ersatzworld/smarthomebot/internal/config"
	"github.com/ersatzworld/smarthomebot/internal/gateway"
)

func (s *Session) handleText(ctx context.Context, text string) {
	switch {
	case strings.HasPrefix(text, "/start"):
		s.send(ctx, msgGreeting)
		s.sendMenu(ctx, msgChooseAction, s.m.mainMenuButtons())
	case strings.HasPrefix(text, "/enable"):
		s.m.alerts.SetEnabled(true)
		s.send(ctx, msgAlertsOn)
	case strings.HasPrefix(text, "/disable"):
		s.m.alerts.SetEnabled(false)
		s.send(ctx, msgAlertsOff)
	case strings.HasPrefix(text, "/toggle"):
		s.send(ctx, msgToggled(s.m.alerts.Toggle()))
	case strings.HasPrefix(text, "/snapshot"):
		s.handleSnapshot(ctx, text)
	case strings.HasPrefix(text, "/help"):
		s.send(ctx, msgHelp)
	case strings.HasPrefix(text, "/"):
		s.send(ctx, msgUnknownCommand)
	default:
		s.handleFreeText(ctx, text)
	}
}

func (s *Session) handleSnapshot(ctx context.Context, text string) {
	args := strings.Fields(text)[1:]
	if len(args) == 0 {
		s.sendMenu(ctx, msgChooseCamera, s.m.cameraMenuButtons())
		return
	}
	if args[0] != "interval" {
		s.send(ctx, msgUnknownCommand)
		return
	}

	if len(args) == 1 {
		secs, ok, err := s.m.store.SnapshotInterval(s.chatID)
		if err != nil {
			s.logger.Error().Err(err).Str("event", "settings.read_failed").Msg("could not read chat settings")
			s.send(ctx, fmt.Sprintf("Could not read your settings: %v", err))
			return
		}
		if !ok {
			s.send(ctx, msgIntervalUnset)
			return
		}
		s.send(ctx, msgIntervalCurrent(secs))
		return
	}

	secs, err := strconv.Atoi(args[1])
	if err != nil || secs < 0 {
		s.send(ctx, fmt.Sprintf("Invalid interval %q; give a number of seconds (0 to disable).", args[1]))
		return
	}

	if err := s.m.sched.Schedule(s.chatID, secs, s.m.registry.IDs()); err != nil {
		s.logger.Error().Err(err).Str("event", "schedule.failed").Msg("could not (re)schedule snapshot job")
		s.send(ctx, fmt.Sprintf("Could not schedule snapshots: %v", err))
		return
	}
	if err := s.m.store.SetSnapshotInterval(s.chatID, secs); err != nil {
		s.logger.Error().Err(err).Str("event", "settings.write_failed").Msg("could not persist chat settings")
		s.send(ctx, fmt.Sprintf("Could not save your settings: %v", err))
		return
	}

	if secs == 0 {
		s.send(ctx, msgIntervalOff)
		return
	}
	s.send(ctx, msgIntervalSet(secs))
}

// handleFreeText is the fallback for plain messages. In loose matching mode
// a bare "on"/"off" anywhere in the message drives the alert flag; in exact
// mode the bot just hints at /help.
func (s *Session) handleFreeText(ctx context.Context, text string) {
	if s.m.matching == config.MatchLoose {
		for _, word := range strings.Fields(strings.ToLower(text)) {
			switch word {
			case "on":
				s.m.alerts.SetEnabled(true)
				s.send(ctx, msgAlertsOn)
				return
			case "off":
				s.m.alerts.SetEnabled(false)
				s.send(ctx, msgAlertsOff)
				return
			}
		}
	}
	s.send(ctx, msgNotTalkative)
}

func (s *Session) handleCallback(ctx context.Context, e gateway.CallbackQuery) {
	if cam, err := s.m.registry.Get(e.Data); err == nil {
		s.answer(ctx, e.QueryID, fmt.Sprintf("Snapshot from your camera '%s'", cam.Name))
		s.spawn("snapshot", func(ctx context.Context) {
			s.m.sched.Snapshot(ctx, s.chatID, []string{cam.ID})
			s.sendMenu(ctx, msgChooseCamera, s.m.cameraMenuButtons())
		})
		return
	}

	switch e.Data {
	case "snapshot":
		s.answer(ctx, e.QueryID, "")
		s.sendMenu(ctx, msgChooseCamera, s.m.cameraMenuButtons())
	case "enable":
		s.m.alerts.SetEnabled(true)
		s.answer(ctx, e.QueryID, msgAlertsOn)
		s.sendMenu(ctx, msgChooseAction, s.m.mainMenuButtons())
	case "disable":
		s.m.alerts.SetEnabled(false)
		s.answer(ctx, e.QueryID, msgAlertsOff)
		s.sendMenu(ctx, msgChooseAction, s.m.mainMenuButtons())
	default:
		// Stale callback data, e.g. a camera removed from config.
		s.answer(ctx, e.QueryID, "")
		s.logger.Warn().Str("data", e.Data).Str("event", "callback.unknown").Msg("unknown callback selection")
	}
}

func (s *Session) answer(ctx context.Context, queryID, text string) {
	if err := s.m.gw.AnswerCallback(ctx, queryID, text); err != nil {
		s.logger.Error().Err(err).Str("event", "callback.answer_failed").Msg("callback answer failed")
	}
}
