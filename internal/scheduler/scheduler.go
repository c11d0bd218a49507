// SPDX-License-Identifier: MIT

// Package scheduler runs the periodic snapshot jobs, at most one per chat.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/ersatzworld/smarthomebot/internal/camera"
	"github.com/ersatzworld/smarthomebot/internal/gateway"
	"github.com/ersatzworld/smarthomebot/internal/log"
	"github.com/ersatzworld/smarthomebot/internal/metrics"
)

const captionTimeFormat = "02.01.2006 15:04:05"

// Fetcher pulls one snapshot from a camera endpoint into a temp file.
type Fetcher interface {
	Fetch(ctx context.Context, cam camera.Camera) (string, error)
}

// Scheduler owns the mapping from chat id to its single periodic job.
// Replacing a job removes the old entry before installing the new one, so a
// chat never has two concurrently active jobs.
type Scheduler struct {
	cron     *cron.Cron
	registry *camera.Registry
	fetch    Fetcher
	gw       gateway.Gateway
	logger   zerolog.Logger

	ctx context.Context

	mu   sync.Mutex
	jobs map[int64]cron.EntryID
}

// New builds a scheduler; ctx bounds every tick's outbound work.
func New(ctx context.Context, registry *camera.Registry, fetch Fetcher, gw gateway.Gateway) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		registry: registry,
		fetch:    fetch,
		gw:       gw,
		logger:   log.WithComponent("scheduler"),
		ctx:      ctx,
		jobs:     make(map[int64]cron.EntryID),
	}
}

// Start begins firing scheduled jobs.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the timer and waits for any in-flight tick to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Schedule installs a periodic snapshot job for chatID. An interval of zero
// or less removes any existing job and installs nothing. Any previously
// active job for the chat is removed first.
func (s *Scheduler) Schedule(chatID int64, intervalSecs int, cameraIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(chatID)
	if intervalSecs <= 0 {
		return nil
	}

	ids := make([]string, len(cameraIDs))
	copy(ids, cameraIDs)

	entry, err := s.cron.AddFunc(fmt.Sprintf("@every %ds", intervalSecs), func() {
		s.tick(chatID, ids)
	})
	if err != nil {
		return fmt.Errorf("schedule chat %d: %w", chatID, err)
	}
	s.jobs[chatID] = entry
	metrics.ScheduledJobs.Set(float64(len(s.jobs)))

	s.logger.Info().
		Int64("chat_id", chatID).
		Int("interval_secs", intervalSecs).
		Str("event", "job.scheduled").
		Msg("periodic snapshot job installed")
	return nil
}

// Cancel removes the chat's job. Removing a non-existent job is a no-op.
func (s *Scheduler) Cancel(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(chatID)
}

func (s *Scheduler) removeLocked(chatID int64) {
	entry, ok := s.jobs[chatID]
	if !ok {
		return
	}
	s.cron.Remove(entry)
	delete(s.jobs, chatID)
	metrics.ScheduledJobs.Set(float64(len(s.jobs)))

	s.logger.Info().
		Int64("chat_id", chatID).
		Str("event", "job.removed").
		Msg("periodic snapshot job removed")
}

// ActiveChats returns the chat ids with a live job.
func (s *Scheduler) ActiveChats() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, 0, len(s.jobs))
	for id := range s.jobs {
		out = append(out, id)
	}
	return out
}

// HasJob reports whether the chat currently has a scheduled job.
func (s *Scheduler) HasJob(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[chatID]
	return ok
}

// tick snapshots every camera in configured order. A failing camera is
// reported to the chat and never aborts the rest of the batch.
func (s *Scheduler) tick(chatID int64, cameraIDs []string) {
	s.Snapshot(s.ctx, chatID, cameraIDs)
}

// Snapshot performs one multi-camera snapshot batch for a chat. It is also
// used directly for on-demand /snapshot requests.
func (s *Scheduler) Snapshot(ctx context.Context, chatID int64, cameraIDs []string) {
	logger := log.WithComponentFromContext(ctx, "scheduler")
	for _, id := range cameraIDs {
		cam, err := s.registry.Get(id)
		if err != nil {
			// Stored job referencing a camera removed from config.
			logger.Warn().
				Str("camera", id).
				Str("event", "snapshot.camera_unknown").
				Msg("skipping unknown camera")
			continue
		}

		path, err := s.fetch.Fetch(ctx, cam)
		metrics.RecordSnapshotFetch(err)
		if err != nil {
			logger.Warn().
				Err(err).
				Int64("chat_id", chatID).
				Str("camera", cam.ID).
				Str("event", "snapshot.fetch_failed").
				Msg("snapshot fetch failed")
			sendErr := s.gw.SendText(ctx, chatID,
				fmt.Sprintf("Could not fetch snapshot from %s: %v", cam.Name, err))
			if sendErr != nil {
				logger.Error().
					Err(sendErr).
					Int64("chat_id", chatID).
					Str("event", "snapshot.report_failed").
					Msg("could not report fetch failure")
			}
			continue
		}

		caption := time.Now().Format(captionTimeFormat)
		err = s.gw.SendPhoto(ctx, chatID, path, caption)
		metrics.RecordDelivery("snapshot", err)
		if err != nil {
			logger.Error().
				Err(err).
				Int64("chat_id", chatID).
				Str("camera", cam.ID).
				Str("event", "snapshot.delivery_failed").
				Msg("snapshot delivery failed")
		}
		_ = os.Remove(path)
	}
}
