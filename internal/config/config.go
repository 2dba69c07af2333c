package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/solidcopy/mptag/internal/formatter"
	"github.com/solidcopy/mptag/internal/track"
)

const appName = "mptag"

type Config struct {
	RatingUser     string `koanf:"rating_user"`
	Workers        int    `koanf:"workers"`
	ReadProperties bool   `koanf:"read_properties"`

	Log      LogConfig      `koanf:"log"`
	Tags     TagsConfig     `koanf:"tags"`
	Pictures PicturesConfig `koanf:"pictures"`
}

type LogConfig struct {
	Level  string `koanf:"level"`  // "debug", "info", "warn", "error"
	Format string `koanf:"format"` // "text" or "json"
}

// TagsConfig はmp3の保存時の整形。
type TagsConfig struct {
	ID3Version  int      `koanf:"id3_version"` // 3 or 4, 0 keeps the file's version
	ID3v1       *bool    `koanf:"id3v1"`       // unset leaves ID3v1 alone
	StripAPE    bool     `koanf:"strip_ape"`
	StripFrames []string `koanf:"strip_frames"`
}

type PicturesConfig struct {
	MaxSize int `koanf:"max_size"` // longest edge in pixels, 0 keeps the size
}

// DefaultPaths は設定ファイルを探す場所。後のものが優先される。
func DefaultPaths() []string {
	return []string{
		filepath.Join(xdg.ConfigHome, appName, "config.toml"),
		appName + ".toml",
	}
}

// Load は存在する設定ファイルを順に読み込む。paths が空なら DefaultPaths を使う。
func Load(paths ...string) (*Config, error) {
	if len(paths) == 0 {
		paths = DefaultPaths()
	}

	k := koanf.New(".")
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.RatingUser) == "" {
		c.RatingUser = track.DefaultRatingUser
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) Validate() error {
	switch c.Tags.ID3Version {
	case 0, 3, 4:
	default:
		return fmt.Errorf("tags.id3_version must be 3 or 4, got %d", c.Tags.ID3Version)
	}
	if c.Pictures.MaxSize < 0 {
		return fmt.Errorf("pictures.max_size must not be negative, got %d", c.Pictures.MaxSize)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// TrackOptions はタグの読み書きの設定に変換する。
func (c *Config) TrackOptions() track.Options {
	return track.Options{
		RatingUser: c.RatingUser,
		Format: formatter.Options{
			ID3Version:  c.Tags.ID3Version,
			ID3v1:       c.Tags.ID3v1,
			StripAPE:    c.Tags.StripAPE,
			StripFrames: c.Tags.StripFrames,
		},
		MaxPictureSize: c.Pictures.MaxSize,
		ReadProperties: c.ReadProperties,
	}
}
