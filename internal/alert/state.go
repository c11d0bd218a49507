// SPDX-License-Identifier: MIT

// Package alert holds the process-wide alerting flag.
package alert

import "sync/atomic"

// State is the mutable alerting switch. It is read on every detected file
// and by every chat command handler, so it is a single atomic boolean rather
// than a mutex-guarded struct.
type State struct {
	enabled atomic.Bool
}

// NewState returns a State with alerting enabled, the power-on default.
func NewState() *State {
	s := &State{}
	s.enabled.Store(true)
	return s
}

// IsEnabled reports whether alerting is currently on.
func (s *State) IsEnabled() bool {
	return s.enabled.Load()
}

// SetEnabled switches alerting on or off.
func (s *State) SetEnabled(on bool) {
	s.enabled.Store(on)
}

// Toggle flips the flag and returns the new value.
func (s *State) Toggle() bool {
	for {
		old := s.enabled.Load()
		if s.enabled.CompareAndSwap(old, !old) {
			return !old
		}
	}
}
