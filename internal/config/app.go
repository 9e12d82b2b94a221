package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

// WhatsApp Web element locators (XPath).
const (
	DefaultChatInputLocator    = "//div[@contenteditable='true'][@data-tab='10'] | //div[@contenteditable='true'][@data-tab='1']"
	DefaultInvalidPopupLocator = "//div[contains(@data-testid, 'popup-controls-ok')]"
	DefaultSendControlLocator  = "//button[@aria-label='Enviar'] | //span[@data-icon='send']/ancestor::button | //div[@role='button'][.//span[@data-icon='wds-ic-send-filled']]"
)

// Settings holds everything a run needs besides its RunConfig.
type Settings struct {
	LogsDir     string
	LandingURL  string
	SendURL     string
	MetricsAddr string
	Browser     BrowserConfig
	Phone       PhoneConfig
	Timeouts    Timeouts
	Pacing      Pacing
	Locators    Locators
	Redis       RedisConfig
}

// BrowserConfig controls how the browser is launched.
type BrowserConfig struct {
	Headless    bool
	Bin         string // empty: let the launcher find or download one
	UserDataDir string // keeps the login session between runs when set
}

// PhoneConfig controls how numero is turned into a destination.
type PhoneConfig struct {
	Prefix string
	Digits int // required digit count; 0 accepts any length
}

// Timeouts bounds each browser wait.
type Timeouts struct {
	ChatLoad    time.Duration
	Popup       time.Duration
	SendControl time.Duration
}

// Range is a closed interval for randomized pauses.
type Range struct {
	Min time.Duration
	Max time.Duration
}

// Pacing holds the throttling pauses around each send.
type Pacing struct {
	PreClick          Range
	PostClick         Range
	BetweenRecipients Range
	PopupDismiss      Range
}

// Locators identifies the chat client's elements.
type Locators struct {
	ChatInput    string
	SendControl  string
	InvalidPopup string
}

// RedisConfig holds Redis connection settings. An empty Addr disables run history.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
	HistoryTTL   time.Duration
}

// Enabled reports whether run history should be stored.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// Default returns the built-in settings.
func Default() *Settings {
	return &Settings{
		LogsDir:    "logs",
		LandingURL: "https://web.whatsapp.com",
		SendURL:    "https://web.whatsapp.com/send",
		Timeouts: Timeouts{
			ChatLoad:    20 * time.Second,
			Popup:       5 * time.Second,
			SendControl: 40 * time.Second,
		},
		Pacing: Pacing{
			PreClick:          Range{Min: 1500 * time.Millisecond, Max: 3 * time.Second},
			PostClick:         Range{Min: 4 * time.Second, Max: 7 * time.Second},
			BetweenRecipients: Range{Min: 2500 * time.Millisecond, Max: 5500 * time.Millisecond},
			PopupDismiss:      Range{Min: time.Second, Max: time.Second},
		},
		Locators: Locators{
			ChatInput:    DefaultChatInputLocator,
			SendControl:  DefaultSendControlLocator,
			InvalidPopup: DefaultInvalidPopupLocator,
		},
		Redis: RedisConfig{
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     4,
			MinIdleConns: 1,
			HistoryTTL:   30 * 24 * time.Hour,
		},
	}
}

// environment is the env var surface. Durations are parsed separately so
// they accept Go duration syntax.
type environment struct {
	LogsDir     string `env:"BULKSENDER_LOGS_DIR,default=logs"`
	LandingURL  string `env:"BULKSENDER_LANDING_URL,default=https://web.whatsapp.com"`
	SendURL     string `env:"BULKSENDER_SEND_URL,default=https://web.whatsapp.com/send"`
	Headless    bool   `env:"BULKSENDER_HEADLESS,default=false"`
	BrowserBin  string `env:"BULKSENDER_BROWSER_BIN"`
	UserDataDir string `env:"BULKSENDER_USER_DATA_DIR"`
	PhonePrefix string `env:"BULKSENDER_PHONE_PREFIX"`
	PhoneDigits int    `env:"BULKSENDER_PHONE_DIGITS,default=0"`
	RedisAddr   string `env:"REDIS_ADDR"`
	RedisPass   string `env:"REDIS_PASSWORD"`
	HistoryTTL  string `env:"BULKSENDER_HISTORY_TTL,default=720h"`
	MetricsAddr string `env:"BULKSENDER_METRICS_ADDR"`
}

// LoadFromEnv loads settings from environment variables on top of Default.
func LoadFromEnv() (*Settings, error) {
	var e environment
	if _, err := env.UnmarshalFromEnviron(&e); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	ttl, err := time.ParseDuration(e.HistoryTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: BULKSENDER_HISTORY_TTL: %w", err)
	}

	cfg := Default()
	cfg.LogsDir = e.LogsDir
	cfg.LandingURL = e.LandingURL
	cfg.SendURL = e.SendURL
	cfg.MetricsAddr = e.MetricsAddr
	cfg.Browser = BrowserConfig{
		Headless:    e.Headless,
		Bin:         e.BrowserBin,
		UserDataDir: e.UserDataDir,
	}
	cfg.Phone = PhoneConfig{Prefix: e.PhonePrefix, Digits: e.PhoneDigits}
	cfg.Redis.Addr = e.RedisAddr
	cfg.Redis.Password = e.RedisPass
	cfg.Redis.HistoryTTL = ttl

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
