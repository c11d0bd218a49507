// SPDX-License-Identifier: MIT

package watcher

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersatzworld/smarthomebot/internal/alert"
	"github.com/ersatzworld/smarthomebot/internal/gateway"
	"github.com/ersatzworld/smarthomebot/internal/media"
)

type recordingGateway struct {
	mu     sync.Mutex
	photos []string
	videos []string
}

func (g *recordingGateway) SendText(ctx context.Context, chatID int64, text string) error { return nil }
func (g *recordingGateway) SendMenu(ctx context.Context, chatID int64, text string, buttons []gateway.Button) error {
	return nil
}

func (g *recordingGateway) SendPhoto(ctx context.Context, chatID int64, path, caption string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.photos = append(g.photos, fmt.Sprintf("%d:%s", chatID, filepath.Base(path)))
	return nil
}

func (g *recordingGateway) SendVideo(ctx context.Context, chatID int64, path, caption string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.videos = append(g.videos, fmt.Sprintf("%d:%s", chatID, caption))
	return nil
}

func (g *recordingGateway) SendChatAction(ctx context.Context, chatID int64, action gateway.Action) error {
	return nil
}
func (g *recordingGateway) AnswerCallback(ctx context.Context, queryID, text string) error {
	return nil
}

func (g *recordingGateway) photoCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.photos)
}

func (g *recordingGateway) videoCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.videos)
}

func newDispatcher(cfg Config, alerts *alert.State, tr *media.Transcoder, gw gateway.Gateway) *Dispatcher {
	d := New(cfg, alerts, tr, gw)
	// Identity transform keeps the tests free of real image decoding.
	d.resize = func(ctx context.Context, path string, maxDim int) (string, error) {
		return path, nil
	}
	return d
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o600))
	return path
}

// fakeFFmpeg writes a script that produces a non-empty output file (the last
// argument), standing in for a successful transcode.
func fakeFFmpeg(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	script := "#!/bin/sh\nfor last; do :; done\necho transcoded > \"$last\"\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o700))
	return path
}

func TestUnknownExtensionIsDiscarded(t *testing.T) {
	gw := &recordingGateway{}
	d := newDispatcher(Config{Recipients: []int64{1}, SendPhotos: true, SendVideos: true}, alert.NewState(), &media.Transcoder{}, gw)

	path := writeFile(t, t.TempDir(), "notes.txt")
	d.handleCreated(context.Background(), path)
	d.Wait()

	assert.Zero(t, gw.photoCount())
	assert.Zero(t, gw.videoCount())
}

func TestDuplicateEventsHandledOnce(t *testing.T) {
	gw := &recordingGateway{}
	d := newDispatcher(Config{Recipients: []int64{1}, SendPhotos: true}, alert.NewState(), &media.Transcoder{}, gw)

	path := writeFile(t, t.TempDir(), "motion.jpg")
	d.handleCreated(context.Background(), path)
	d.handleCreated(context.Background(), path)

	assert.Equal(t, 1, gw.photoCount())
}

func TestPhotoDeliveredToAllRecipients(t *testing.T) {
	gw := &recordingGateway{}
	d := newDispatcher(Config{Recipients: []int64{1, 2, 3}, SendPhotos: true}, alert.NewState(), &media.Transcoder{}, gw)

	path := writeFile(t, t.TempDir(), "motion.jpg")
	d.handleCreated(context.Background(), path)

	assert.Equal(t, 3, gw.photoCount())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "consumed photo must be removed")
}

func TestPhotoDiscardedWhenAlertingOff(t *testing.T) {
	gw := &recordingGateway{}
	alerts := alert.NewState()
	alerts.SetEnabled(false)
	d := newDispatcher(Config{Recipients: []int64{1}, SendPhotos: true}, alerts, &media.Transcoder{}, gw)

	path := writeFile(t, t.TempDir(), "motion.jpg")
	d.handleCreated(context.Background(), path)

	assert.Zero(t, gw.photoCount())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "discarded photo must be removed")
}

func TestPhotoDiscardedWhenDisabledByConfig(t *testing.T) {
	gw := &recordingGateway{}
	d := newDispatcher(Config{Recipients: []int64{1}, SendPhotos: false}, alert.NewState(), &media.Transcoder{}, gw)

	path := writeFile(t, t.TempDir(), "motion.jpg")
	d.handleCreated(context.Background(), path)

	assert.Zero(t, gw.photoCount())
}

func TestVideoDiscardedWithoutTranscoder(t *testing.T) {
	gw := &recordingGateway{}
	d := newDispatcher(Config{Recipients: []int64{1}, SendVideos: true}, alert.NewState(), &media.Transcoder{}, gw)

	path := writeFile(t, t.TempDir(), "motion.avi")
	d.handleCreated(context.Background(), path)
	d.Wait()

	assert.Zero(t, gw.videoCount())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestVideoTranscodedAndDelivered(t *testing.T) {
	gw := &recordingGateway{}
	tr := &media.Transcoder{BinPath: fakeFFmpeg(t)}
	d := newDispatcher(Config{Recipients: []int64{1, 2}, SendVideos: true, VideoWidth: 480}, alert.NewState(), tr, gw)

	path := writeFile(t, t.TempDir(), "motion.avi")
	d.handleCreated(context.Background(), path)
	d.Wait()

	assert.Equal(t, 2, gw.videoCount())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "source video must be removed after the worker finishes")
}

func TestRunDeliversCreatedPhoto(t *testing.T) {
	dir := t.TempDir()
	gw := &recordingGateway{}
	d := New(Config{Root: dir, Recipients: []int64{7}, SendPhotos: true, MaxPhotoSize: 1280}, alert.NewState(), &media.Transcoder{}, gw)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = d.Run(ctx)
		close(done)
	}()

	// Give the watcher a moment to install before writing.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(dir, "motion.jpg")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, jpeg.Encode(f, image.NewRGBA(image.Rect(0, 0, 32, 32)), nil))
	require.NoError(t, f.Close())

	require.Eventually(t, func() bool { return gw.photoCount() == 1 }, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not shut down")
	}
}
