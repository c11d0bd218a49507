// SPDX-License-Identifier: MIT

package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/ersatzworld/smarthomebot/internal/log"
)

// Transcoder wraps the external ffmpeg binary. A zero BinPath means no
// transcoder is configured; callers get ErrTranscoderUnavailable and are
// expected to discard the source file.
type Transcoder struct {
	BinPath     string
	AudioPlayer string
}

// Available reports whether an ffmpeg binary is configured.
func (t *Transcoder) Available() bool {
	return t != nil && t.BinPath != ""
}

// TranscodeVideo converts the video at src into a web-streamable mp4 scaled
// to targetWidth (height follows proportionally). The output is a fresh temp
// file owned by the caller; on failure no output file is left behind.
func (t *Transcoder) TranscodeVideo(ctx context.Context, src string, targetWidth int) (string, error) {
	if !t.Available() {
		return "", ErrTranscoderUnavailable
	}
	if err := WaitForStable(ctx, src); err != nil {
		return "", err
	}

	out, err := os.CreateTemp("", "smarthomebot-*.mp4")
	if err != nil {
		return "", fmt.Errorf("create temp video: %w", err)
	}
	outPath := out.Name()
	_ = out.Close()

	args := []string{
		"-y",
		"-loglevel", "error",
		"-i", src,
		"-vf", fmt.Sprintf("scale=%d:-2", targetWidth),
		"-movflags", "+faststart",
		"-c:v", "libx264",
		"-preset", "fast",
		outPath,
	}
	cmd := exec.CommandContext(ctx, t.BinPath, args...) // #nosec G204
	if output, err := cmd.CombinedOutput(); err != nil {
		_ = os.Remove(outPath)
		return "", fmt.Errorf("%w: %s: %v (%s)", ErrTranscodeFailed, src, err, string(output))
	}

	info, err := os.Stat(outPath)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(outPath)
		return "", fmt.Errorf("%w: %s: empty output", ErrTranscodeFailed, src)
	}
	return outPath, nil
}

// TranscodeVoice converts a voice note into an mp3 and, when an audio player
// is configured, plays it on the local speaker. Playback is best-effort; a
// missing or failing player never fails the transcode.
func (t *Transcoder) TranscodeVoice(ctx context.Context, src string) (string, error) {
	if !t.Available() {
		return "", ErrTranscoderUnavailable
	}
	if err := WaitForStable(ctx, src); err != nil {
		return "", err
	}

	out, err := os.CreateTemp("", "smarthomebot-*.mp3")
	if err != nil {
		return "", fmt.Errorf("create temp audio: %w", err)
	}
	outPath := out.Name()
	_ = out.Close()

	cmd := exec.CommandContext(ctx, t.BinPath, "-y", "-loglevel", "error", "-i", src, outPath) // #nosec G204
	if output, err := cmd.CombinedOutput(); err != nil {
		_ = os.Remove(outPath)
		return "", fmt.Errorf("%w: %s: %v (%s)", ErrTranscodeFailed, src, err, string(output))
	}

	if t.AudioPlayer != "" {
		play := exec.CommandContext(ctx, t.AudioPlayer, outPath) // #nosec G204
		if err := play.Run(); err != nil {
			logger := log.WithComponent("media")
			logger.Warn().
				Err(err).
				Str("event", "voice.playback_failed").
				Str("player", t.AudioPlayer).
				Msg("local voice playback failed")
		}
	}
	return outPath, nil
}
