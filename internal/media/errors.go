// SPDX-License-Identifier: MIT

package media

import "errors"

var (
	// ErrTranscoderUnavailable is returned when no ffmpeg binary is
	// configured. Callers must skip transcoding and discard the source.
	ErrTranscoderUnavailable = errors.New("transcoder unavailable")

	// ErrTranscodeFailed is returned when the external transcoder exits
	// non-zero or produces no usable output.
	ErrTranscodeFailed = errors.New("transcode failed")

	// ErrFileNotStable is returned when a file never reaches a non-zero
	// size within the polling budget.
	ErrFileNotStable = errors.New("file did not stabilize")
)
