package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/stars-relay/internal/adapters/browser"
	"github.com/bnema/stars-relay/internal/domain"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	FileName  = "settings.toml"
	EnvPrefix = "RELAY"

	configName = "settings"
	configType = "toml"
	homeDir    = ".stars-relay"

	BackendFile  = "file"
	BackendRedis = "redis"

	DefaultMessageEndpoint  = "https://playerok.com/graphql"
	DefaultPurchaseEndpoint = "https://fragmentapi.nightstranger.space/api/buyStars"
)

type Settings struct {
	Purchase PurchaseSettings `mapstructure:"purchase"`
	Chat     ChatSettings     `mapstructure:"chat"`
	Browser  BrowserSettings  `mapstructure:"browser"`
	State    StateSettings    `mapstructure:"state"`
	Monitor  MonitorSettings  `mapstructure:"monitor"`
	API      APISettings      `mapstructure:"api"`
	Log      LogSettings      `mapstructure:"log"`
	Metrics  MetricsSettings  `mapstructure:"metrics"`
}

type PurchaseSettings struct {
	Endpoint        string `mapstructure:"endpoint"`
	FragmentCookies string `mapstructure:"fragment_cookies"`
	Seed            string `mapstructure:"seed"`
	ShowSender      bool   `mapstructure:"show_sender"`
}

type ChatSettings struct {
	BaseURL         string  `mapstructure:"base_url"`
	ThreadsPath     string  `mapstructure:"threads_path"`
	MessageEndpoint string  `mapstructure:"message_endpoint"`
	QueryHash       string  `mapstructure:"query_hash"`
	CookiesFile     string  `mapstructure:"cookies_file"`
	PaymentPhrase   string  `mapstructure:"payment_phrase"`
	QuantityPattern string  `mapstructure:"quantity_pattern"`
	RateLimit       float64 `mapstructure:"rate_limit"`
	RateBurst       int     `mapstructure:"rate_burst"`
}

type BrowserSettings struct {
	ControlURL  string                     `mapstructure:"control_url"`
	Headless    bool                       `mapstructure:"headless"`
	LoadTimeout time.Duration              `mapstructure:"load_timeout"`
	IdleTimeout time.Duration              `mapstructure:"idle_timeout"`
	Selectors   map[string]browser.Locator `mapstructure:"selectors"`
}

type StateSettings struct {
	Backend     string `mapstructure:"backend"`
	Dir         string `mapstructure:"dir"`
	RedisURL    string `mapstructure:"redis_url"`
	RedisPrefix string `mapstructure:"redis_prefix"`
}

type MonitorSettings struct {
	CheckInterval time.Duration `mapstructure:"check_interval"`
	SyncInterval  time.Duration `mapstructure:"sync_interval"`
	Tick          time.Duration `mapstructure:"tick"`
	MaxChats      int           `mapstructure:"max_chats"`
	RecoverDelay  time.Duration `mapstructure:"recover_delay"`
	RecipientPoll time.Duration `mapstructure:"recipient_poll"`
	ClickTimeout  time.Duration `mapstructure:"click_timeout"`
}

type APISettings struct {
	RetryAttempts   int           `mapstructure:"retry_attempts"`
	BackoffFactor   float64       `mapstructure:"backoff_factor"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	PurchaseTimeout time.Duration `mapstructure:"purchase_timeout"`
}

type LogSettings struct {
	Format string `mapstructure:"format"`
	Level  string `mapstructure:"level"`
	File   string `mapstructure:"file"`
}

type MetricsSettings struct {
	Addr string `mapstructure:"addr"`
}

type LoadOptions struct {
	// ConfigFile pins the settings file; empty searches WorkDir then
	// $HOME/.stars-relay.
	ConfigFile string
	WorkDir    string
	EnvFile    string
}

// MissingError reports where the settings template belongs.
type MissingError struct {
	Path string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%s: fill %s and start again", domain.ErrSettingsMissing, e.Path)
}

func (e *MissingError) Unwrap() error {
	return domain.ErrSettingsMissing
}

// Load resolves settings from the TOML file, RELAY_* env vars and an optional
// .env file. A missing settings file yields *MissingError.
func Load(opts LoadOptions) (Settings, string, error) {
	workDir := opts.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Settings{}, "", fmt.Errorf("resolve working directory: %w", err)
		}
		workDir = wd
	}

	if err := loadEnvFile(opts.EnvFile, workDir); err != nil {
		return Settings{}, "", err
	}

	v := viper.New()
	v.SetConfigType(configType)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if opts.ConfigFile != "" {
		if _, err := os.Stat(opts.ConfigFile); errors.Is(err, os.ErrNotExist) {
			return Settings{}, opts.ConfigFile, &MissingError{Path: opts.ConfigFile}
		}
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(workDir)
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, homeDir))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			path := filepath.Join(workDir, FileName)
			return Settings{}, path, &MissingError{Path: path}
		}
		return Settings{}, "", fmt.Errorf("read settings: %w", err)
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return Settings{}, "", fmt.Errorf("decode settings: %w", err)
	}

	path := v.ConfigFileUsed()
	settings.resolvePaths(filepath.Dir(path))

	if err := settings.Validate(); err != nil {
		return Settings{}, path, err
	}

	return settings, path, nil
}

func (s Settings) Validate() error {
	var errs []error
	if s.Purchase.Endpoint == "" {
		errs = append(errs, errors.New("purchase.endpoint is required"))
	}
	if s.Chat.MessageEndpoint == "" {
		errs = append(errs, errors.New("chat.message_endpoint is required"))
	}
	switch s.State.Backend {
	case BackendFile:
		if s.State.Dir == "" {
			errs = append(errs, errors.New("state.dir is required for the file backend"))
		}
	case BackendRedis:
		if s.State.RedisURL == "" {
			errs = append(errs, errors.New("state.redis_url is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported state.backend %q", s.State.Backend))
	}
	if s.Monitor.MaxChats <= 0 {
		errs = append(errs, errors.New("monitor.max_chats must be positive"))
	}
	if s.API.RetryAttempts <= 0 {
		errs = append(errs, errors.New("api.retry_attempts must be positive"))
	}
	if s.Chat.RateLimit < 0 {
		errs = append(errs, errors.New("chat.rate_limit must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid settings: %w", errors.Join(errs...))
	}
	return nil
}

// BrowserSelectors converts the configured overrides to adapter selectors.
func (s Settings) BrowserSelectors() browser.Selectors {
	selectors := make(browser.Selectors, len(s.Browser.Selectors))
	for role, loc := range s.Browser.Selectors {
		selectors[domain.Selector(role)] = loc
	}
	return selectors
}

func (s *Settings) resolvePaths(base string) {
	if base == "" || base == "." {
		return
	}
	for _, p := range []*string{&s.State.Dir, &s.Chat.CookiesFile, &s.Log.File} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

func loadEnvFile(envFile, workDir string) error {
	path := envFile
	if path == "" {
		path = filepath.Join(workDir, ".env")
	}

	if err := godotenv.Load(path); err != nil {
		if envFile == "" && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}
