// SPDX-License-Identifier: MIT

// Package camera provides the static registry of configured cameras.
package camera

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a camera id is not present in the registry.
// Stale ids can reach us through stored callback data after a config change,
// so lookups by id must be treated as fallible.
var ErrNotFound = errors.New("camera not found")

// Camera describes one configured snapshot source. Immutable after load.
type Camera struct {
	ID          string
	Name        string
	SnapshotURL string
	Username    string
	Password    string
}

// Registry is the ordered, read-only camera collection. It is built once at
// startup and safe for concurrent reads without locking.
type Registry struct {
	byID  map[string]Camera
	order []string
}

// NewRegistry builds a registry preserving the configuration order.
// Duplicate ids are rejected.
func NewRegistry(cams []Camera) (*Registry, error) {
	r := &Registry{byID: make(map[string]Camera, len(cams))}
	for _, c := range cams {
		if c.ID == "" {
			return nil, fmt.Errorf("camera %q: empty id", c.Name)
		}
		if _, dup := r.byID[c.ID]; dup {
			return nil, fmt.Errorf("camera %q: duplicate id", c.ID)
		}
		r.byID[c.ID] = c
		r.order = append(r.order, c.ID)
	}
	return r, nil
}

// Get looks up a camera by id.
func (r *Registry) Get(id string) (Camera, error) {
	c, ok := r.byID[id]
	if !ok {
		return Camera{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c, nil
}

// All returns the cameras in configuration order.
func (r *Registry) All() []Camera {
	out := make([]Camera, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// IDs returns the camera ids in configuration order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len reports the number of configured cameras.
func (r *Registry) Len() int {
	return len(r.order)
}
