package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bnema/stars-relay/internal/adapters/browser"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	templateFileMode = 0o600
	templateDirMode  = 0o700
)

var ErrTemplateExists = errors.New("settings file already exists")

type templateFile struct {
	Purchase templatePurchase `toml:"purchase" comment:"Purchase service credentials. Both values are required."`
	Chat     templateChat     `toml:"chat"`
	Browser  templateBrowser  `toml:"browser"`
	State    templateState    `toml:"state" comment:"backend is \"file\" or \"redis\"."`
	Monitor  templateMonitor  `toml:"monitor"`
	API      templateAPI      `toml:"api"`
	Log      templateLog      `toml:"log" comment:"format is \"console\" or \"json\"."`
	Metrics  templateMetrics  `toml:"metrics" comment:"addr serves /metrics when set, e.g. \":9102\"."`
}

type templatePurchase struct {
	Endpoint        string `toml:"endpoint"`
	FragmentCookies string `toml:"fragment_cookies"`
	Seed            string `toml:"seed"`
	ShowSender      bool   `toml:"show_sender"`
}

type templateChat struct {
	BaseURL         string  `toml:"base_url"`
	ThreadsPath     string  `toml:"threads_path"`
	MessageEndpoint string  `toml:"message_endpoint"`
	QueryHash       string  `toml:"query_hash"`
	CookiesFile     string  `toml:"cookies_file" comment:"JSON cookie export of a logged-in session."`
	PaymentPhrase   string  `toml:"payment_phrase"`
	QuantityPattern string  `toml:"quantity_pattern"`
	RateLimit       float64 `toml:"rate_limit" comment:"Outgoing messages per second."`
	RateBurst       int     `toml:"rate_burst"`
}

type templateBrowser struct {
	ControlURL  string                     `toml:"control_url" comment:"Attach to a running browser instead of launching one."`
	Headless    bool                       `toml:"headless"`
	LoadTimeout string                     `toml:"load_timeout"`
	IdleTimeout string                     `toml:"idle_timeout"`
	Selectors   map[string]browser.Locator `toml:"selectors"`
}

type templateState struct {
	Backend     string `toml:"backend"`
	Dir         string `toml:"dir"`
	RedisURL    string `toml:"redis_url"`
	RedisPrefix string `toml:"redis_prefix"`
}

type templateMonitor struct {
	CheckInterval string `toml:"check_interval"`
	SyncInterval  string `toml:"sync_interval"`
	Tick          string `toml:"tick"`
	MaxChats      int    `toml:"max_chats"`
	RecoverDelay  string `toml:"recover_delay"`
	RecipientPoll string `toml:"recipient_poll"`
	ClickTimeout  string `toml:"click_timeout"`
}

type templateAPI struct {
	RetryAttempts   int     `toml:"retry_attempts"`
	BackoffFactor   float64 `toml:"backoff_factor"`
	RequestTimeout  string  `toml:"request_timeout"`
	PurchaseTimeout string  `toml:"purchase_timeout"`
}

type templateLog struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

type templateMetrics struct {
	Addr string `toml:"addr"`
}

func newTemplate(s Settings) templateFile {
	selectors := make(map[string]browser.Locator)
	for role, loc := range browser.DefaultSelectors() {
		selectors[string(role)] = loc
	}

	return templateFile{
		Purchase: templatePurchase{
			Endpoint:        s.Purchase.Endpoint,
			FragmentCookies: s.Purchase.FragmentCookies,
			Seed:            s.Purchase.Seed,
			ShowSender:      s.Purchase.ShowSender,
		},
		Chat: templateChat{
			BaseURL:         s.Chat.BaseURL,
			ThreadsPath:     s.Chat.ThreadsPath,
			MessageEndpoint: s.Chat.MessageEndpoint,
			QueryHash:       s.Chat.QueryHash,
			CookiesFile:     s.Chat.CookiesFile,
			PaymentPhrase:   s.Chat.PaymentPhrase,
			QuantityPattern: s.Chat.QuantityPattern,
			RateLimit:       s.Chat.RateLimit,
			RateBurst:       s.Chat.RateBurst,
		},
		Browser: templateBrowser{
			ControlURL:  s.Browser.ControlURL,
			Headless:    s.Browser.Headless,
			LoadTimeout: s.Browser.LoadTimeout.String(),
			IdleTimeout: s.Browser.IdleTimeout.String(),
			Selectors:   selectors,
		},
		State: templateState{
			Backend:     s.State.Backend,
			Dir:         s.State.Dir,
			RedisURL:    s.State.RedisURL,
			RedisPrefix: s.State.RedisPrefix,
		},
		Monitor: templateMonitor{
			CheckInterval: s.Monitor.CheckInterval.String(),
			SyncInterval:  s.Monitor.SyncInterval.String(),
			Tick:          s.Monitor.Tick.String(),
			MaxChats:      s.Monitor.MaxChats,
			RecoverDelay:  s.Monitor.RecoverDelay.String(),
			RecipientPoll: s.Monitor.RecipientPoll.String(),
			ClickTimeout:  s.Monitor.ClickTimeout.String(),
		},
		API: templateAPI{
			RetryAttempts:   s.API.RetryAttempts,
			BackoffFactor:   s.API.BackoffFactor,
			RequestTimeout:  s.API.RequestTimeout.String(),
			PurchaseTimeout: s.API.PurchaseTimeout.String(),
		},
		Log:     templateLog{Format: s.Log.Format, Level: s.Log.Level, File: s.Log.File},
		Metrics: templateMetrics{Addr: s.Metrics.Addr},
	}
}

// WriteTemplate writes the default settings to path. It refuses to replace an
// existing file unless overwrite is set.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrTemplateExists, path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("stat settings file: %w", err)
		}
	}

	encoded, err := toml.Marshal(newTemplate(Default()))
	if err != nil {
		return fmt.Errorf("encode settings template: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), templateDirMode); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".settings-*.toml.tmp")
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := tmp.Chmod(templateFileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp settings file: %w", err)
	}
	if _, err := tmp.Write(encoded); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp settings file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp settings file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace settings file: %w", err)
	}

	return nil
}
