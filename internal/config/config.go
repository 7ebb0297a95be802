package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Server    ServerConfig
	Chrome    ChromeConfig
	Playback  PlaybackConfig
	Capture   CaptureConfig
	Storage   StorageConfig
	Scheduler SchedulerConfig
}

type ServerConfig struct {
	Host string `env:"SERVER_HOST" env-default:"0.0.0.0"`
	Port string `env:"SERVER_PORT" env-default:"8080"`
	Mode string `env:"SERVER_MODE" env-default:"debug"`
}

type ChromeConfig struct {
	Headless     bool   `env:"CHROME_HEADLESS" env-default:"true"`
	UserAgent    string `env:"CHROME_USER_AGENT" env-default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"`
	ViewportW    int    `env:"CHROME_VIEWPORT_WIDTH" env-default:"1280"`
	ViewportH    int    `env:"CHROME_VIEWPORT_HEIGHT" env-default:"900"`
	NavTimeoutMs int    `env:"CHROME_NAV_TIMEOUT_MS" env-default:"30000"`
}

type PlaybackConfig struct {
	// Inter-action sleep is the recorded gap clamped into [Min, Max] so
	// replay keeps the recorded pacing without amplifying outliers.
	MinWaitMs int `env:"PLAYBACK_MIN_WAIT_MS" env-default:"500"`
	MaxWaitMs int `env:"PLAYBACK_MAX_WAIT_MS" env-default:"5000"`
	// Strict mode halts on the first failed action instead of continuing.
	Strict bool `env:"PLAYBACK_STRICT" env-default:"false"`
	// Per-strategy resolution waits, cheap to expensive.
	ResolveShortMs int `env:"RESOLVE_SHORT_WAIT_MS" env-default:"3000"`
	ResolveLongMs  int `env:"RESOLVE_LONG_WAIT_MS" env-default:"15000"`
}

type CaptureConfig struct {
	// CorrelationWindowMs is the max delay after an interaction within
	// which a beacon is still attributed to it.
	CorrelationWindowMs int `env:"CAPTURE_CORRELATION_WINDOW_MS" env-default:"2000"`
	// PostActionWaitMs bounds the poll for beacons after each action.
	PostActionWaitMs int `env:"CAPTURE_POST_ACTION_WAIT_MS" env-default:"1000"`
	PostLoadWaitMs   int `env:"CAPTURE_POST_LOAD_WAIT_MS" env-default:"1500"`
}

type StorageConfig struct {
	MacroDir string `env:"MACRO_DIR" env-default:"data/macros"`
}

type SchedulerConfig struct {
	// CronExpr enables scheduled catalog audits when non-empty,
	// e.g. "0 0 3 * * *" (seconds field included).
	CronExpr string `env:"AUDIT_CRON" env-default:""`
	AuditURL string `env:"AUDIT_URL" env-default:""`
	PageType string `env:"AUDIT_PAGE_TYPE" env-default:"DEFAULT"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if cfg.Playback.MinWaitMs > cfg.Playback.MaxWaitMs {
		return nil, fmt.Errorf("PLAYBACK_MIN_WAIT_MS (%d) exceeds PLAYBACK_MAX_WAIT_MS (%d)",
			cfg.Playback.MinWaitMs, cfg.Playback.MaxWaitMs)
	}
	return &cfg, nil
}
