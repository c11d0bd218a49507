// SPDX-License-Identifier: MIT

// Package watcher observes the upload directory and routes new media files
// to transformation and delivery.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/ersatzworld/smarthomebot/internal/alert"
	"github.com/ersatzworld/smarthomebot/internal/gateway"
	"github.com/ersatzworld/smarthomebot/internal/log"
	"github.com/ersatzworld/smarthomebot/internal/media"
	"github.com/ersatzworld/smarthomebot/internal/metrics"
)

const captionTimeFormat = "02.01.2006 15:04:05"

var (
	photoExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}
	videoExts = map[string]bool{".avi": true, ".mp4": true, ".mkv": true, ".m4v": true, ".mov": true, ".mpg": true}
)

// Config captures the dispatcher's delivery policy.
type Config struct {
	Root         string
	Recipients   []int64
	SendPhotos   bool
	SendVideos   bool
	MaxPhotoSize int
	VideoWidth   int
}

// Dispatcher watches the upload tree and classifies created files. Photos
// are handled inline; each video spawns an independent worker so a slow
// transcode never blocks detection of subsequent files.
type Dispatcher struct {
	cfg        Config
	alerts     *alert.State
	transcoder *media.Transcoder
	gw         gateway.Gateway
	logger     zerolog.Logger

	// resize is swappable for tests.
	resize func(ctx context.Context, path string, maxDim int) (string, error)

	mu   sync.Mutex
	seen map[string]bool

	workers sync.WaitGroup
}

// New builds a dispatcher for the configured upload root.
func New(cfg Config, alerts *alert.State, transcoder *media.Transcoder, gw gateway.Gateway) *Dispatcher {
	return &Dispatcher{
		cfg:        cfg,
		alerts:     alerts,
		transcoder: transcoder,
		gw:         gw,
		logger:     log.WithComponent("watcher"),
		resize:     media.ResizePhoto,
		seen:       make(map[string]bool),
	}
}

// Run watches the upload tree until ctx is cancelled, then waits for any
// in-flight video workers before returning.
func (d *Dispatcher) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify.NewWatcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	if err := addTree(w, d.cfg.Root); err != nil {
		return fmt.Errorf("watch %s: %w", d.cfg.Root, err)
	}

	d.logger.Info().
		Str("root", d.cfg.Root).
		Str("event", "watch.start").
		Msg("monitoring upload folder")

	for {
		select {
		case <-ctx.Done():
			d.workers.Wait()
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				d.workers.Wait()
				return nil
			}
			if !ev.Op.Has(fsnotify.Create) {
				continue
			}
			if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
				// New subdirectory: extend the recursive watch, nothing else.
				if err := w.Add(ev.Name); err != nil {
					d.logger.Warn().Err(err).Str("dir", ev.Name).Msg("could not watch new directory")
				}
				continue
			}
			d.handleCreated(ctx, ev.Name)
		case err, ok := <-w.Errors:
			if !ok {
				d.workers.Wait()
				return nil
			}
			d.logger.Warn().Err(err).Str("event", "watch.error").Msg("fsnotify error")
		}
	}
}

// addTree registers the root and all existing subdirectories.
func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}

// handleCreated classifies one created file. Only the first create event on
// a path is acted on; editors and FTP servers can fire duplicates.
func (d *Dispatcher) handleCreated(ctx context.Context, path string) {
	d.mu.Lock()
	if d.seen[path] {
		d.mu.Unlock()
		return
	}
	d.seen[path] = true
	d.mu.Unlock()

	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case photoExts[ext]:
		metrics.FilesDetected.WithLabelValues("photo").Inc()
		d.handlePhoto(ctx, path)
	case videoExts[ext]:
		metrics.FilesDetected.WithLabelValues("video").Inc()
		d.handleVideo(ctx, path)
	default:
		metrics.FilesDetected.WithLabelValues("other").Inc()
		d.logger.Debug().Str("path", path).Str("event", "file.ignored").Msg("unrecognized extension")
	}
}

func (d *Dispatcher) handlePhoto(ctx context.Context, path string) {
	logger := d.logger.With().Str("path", path).Logger()
	logger.Debug().Str("event", "photo.detected").Msg("new photo file")

	if !d.alerts.IsEnabled() || !d.cfg.SendPhotos {
		_ = os.Remove(path)
		return
	}

	out, err := d.resize(ctx, path, d.cfg.MaxPhotoSize)
	if err != nil {
		logger.Warn().Err(err).Str("event", "photo.transform_failed").Msg("discarding photo")
		_ = os.Remove(path)
		return
	}

	caption := time.Now().Format(captionTimeFormat)
	for _, user := range d.cfg.Recipients {
		err := d.gw.SendPhoto(ctx, user, out, caption)
		metrics.RecordDelivery("photo", err)
		if err != nil {
			// Logged and swallowed: passive deliveries are never retried.
			logger.Error().Err(err).Int64("chat_id", user).Str("event", "photo.delivery_failed").Msg("photo delivery failed")
		}
	}
	_ = os.Remove(out)
}

func (d *Dispatcher) handleVideo(ctx context.Context, path string) {
	logger := d.logger.With().Str("path", path).Logger()
	logger.Debug().Str("event", "video.detected").Msg("new video file")

	if !d.alerts.IsEnabled() || !d.cfg.SendVideos || !d.transcoder.Available() {
		_ = os.Remove(path)
		return
	}

	d.workers.Add(1)
	go func() {
		defer d.workers.Done()
		defer func() { _ = os.Remove(path) }()

		out, err := d.transcoder.TranscodeVideo(ctx, path, d.cfg.VideoWidth)
		if err != nil {
			metrics.TranscodeFailures.Inc()
			logger.Warn().Err(err).Str("event", "video.transcode_failed").Msg("discarding video")
			return
		}
		defer func() { _ = os.Remove(out) }()

		caption := fmt.Sprintf("%s (%s)", filepath.Base(path), time.Now().Format(captionTimeFormat))
		for _, user := range d.cfg.Recipients {
			err := d.gw.SendVideo(ctx, user, out, caption)
			metrics.RecordDelivery("video", err)
			if err != nil {
				logger.Error().Err(err).Int64("chat_id", user).Str("event", "video.delivery_failed").Msg("video delivery failed")
			}
		}
	}()
}

// Wait blocks until all spawned video workers have finished. Run calls it on
// shutdown; tests use it to avoid races.
func (d *Dispatcher) Wait() {
	d.workers.Wait()
}
