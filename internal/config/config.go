// SPDX-License-Identifier: MIT

// Package config loads and validates the daemon configuration file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ersatzworld/smarthomebot/internal/camera"
)

// Matching selects how inbound free text is mapped onto commands.
type Matching string

const (
	// MatchExact recognises commands by their /prefix only.
	MatchExact Matching = "exact"
	// MatchLoose additionally treats bare "on"/"off" keywords in free text
	// as enable/disable requests.
	MatchLoose Matching = "loose"
)

// ErrInvalid classifies fatal configuration errors. The daemon refuses to
// start when the config fails validation.
var ErrInvalid = errors.New("invalid configuration")

// CameraConfig is one entry of the ordered camera list.
type CameraConfig struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	SnapshotURL string `json:"snapshot_url,omitempty"`
	Username    string `json:"username,omitempty"`
	Password    string `json:"password,omitempty"`
}

// Config is the full daemon configuration.
type Config struct {
	BotToken        string         `json:"telegram_bot_token"`
	AuthorizedUsers []int64        `json:"authorized_users"`
	Cameras         []CameraConfig `json:"cameras"`

	ImageFolder  string `json:"image_folder"`
	PathToFFmpeg string `json:"path_to_ffmpeg"`
	MaxPhotoSize int    `json:"max_photo_size"`
	VideoWidth   int    `json:"video_width"`

	SendPhotos bool `json:"send_photos"`
	SendVideos bool `json:"send_videos"`

	TimeoutSecs     int      `json:"timeout_secs"`
	CommandMatching Matching `json:"command_matching"`
	AudioPlayer     string   `json:"audio_player"`

	DataDir       string `json:"data_dir"`
	MetricsListen string `json:"metrics_listen"`
	LogLevel      string `json:"log_level"`
}

// Defaults mirrors the values the daemon assumes when the file omits a field.
func Defaults() Config {
	return Config{
		ImageFolder:     "/home/ftp-upload",
		MaxPhotoSize:    1280,
		VideoWidth:      480,
		SendPhotos:      true,
		SendVideos:      true,
		TimeoutSecs:     10 * 60,
		CommandMatching: MatchExact,
		DataDir:         "/var/lib/smarthomebot",
		LogLevel:        "info",
	}
}

// Load reads the JSON config file at path, applies environment overrides and
// validates the result.
func Load(path string) (Config, error) {
	cfg := Defaults()

	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return Config{}, fmt.Errorf("%w: read %s: %v", ErrInvalid, path, err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: parse %s: %v", ErrInvalid, path, err)
	}

	applyEnv(&cfg)

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv lets deployments override secrets without editing the file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("SMARTHOMEBOT_TOKEN"); v != "" {
		cfg.BotToken = v
	}
	if v := os.Getenv("SMARTHOMEBOT_DATA"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("SMARTHOMEBOT_IMAGE_FOLDER"); v != "" {
		cfg.ImageFolder = v
	}
	if v := os.Getenv("SMARTHOMEBOT_MAX_PHOTO_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxPhotoSize = n
		}
	}
}

// Validate checks the invariants the rest of the daemon relies on.
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.BotToken) == "" {
		return fmt.Errorf("%w: missing telegram_bot_token", ErrInvalid)
	}
	if len(cfg.AuthorizedUsers) == 0 {
		return fmt.Errorf("%w: empty authorized_users list", ErrInvalid)
	}
	if cfg.ImageFolder == "" {
		return fmt.Errorf("%w: missing image_folder", ErrInvalid)
	}
	if cfg.MaxPhotoSize < 0 {
		return fmt.Errorf("%w: max_photo_size must be >= 0", ErrInvalid)
	}
	if cfg.VideoWidth <= 0 {
		return fmt.Errorf("%w: video_width must be > 0", ErrInvalid)
	}
	switch cfg.CommandMatching {
	case MatchExact, MatchLoose:
	default:
		return fmt.Errorf("%w: command_matching must be %q or %q", ErrInvalid, MatchExact, MatchLoose)
	}
	for _, c := range cfg.Cameras {
		if c.ID == "" {
			return fmt.Errorf("%w: camera %q has no id", ErrInvalid, c.Name)
		}
	}
	return nil
}

// CameraList converts the configured cameras into registry entries,
// preserving order.
func (c Config) CameraList() []camera.Camera {
	out := make([]camera.Camera, 0, len(c.Cameras))
	for _, cc := range c.Cameras {
		out = append(out, camera.Camera{
			ID:          cc.ID,
			Name:        cc.Name,
			SnapshotURL: cc.SnapshotURL,
			Username:    cc.Username,
			Password:    cc.Password,
		})
	}
	return out
}
