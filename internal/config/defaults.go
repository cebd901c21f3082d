package config

import (
	"github.com/bnema/stars-relay/internal/adapters/browser"
	"github.com/bnema/stars-relay/internal/adapters/httpapi"
	"github.com/bnema/stars-relay/internal/adapters/state/redis"
	"github.com/bnema/stars-relay/internal/application"
	"github.com/bnema/stars-relay/internal/domain"
	"github.com/spf13/viper"
)

// Default returns the settings a fresh template carries.
func Default() Settings {
	opts := application.DefaultOptions()
	return Settings{
		Purchase: PurchaseSettings{Endpoint: DefaultPurchaseEndpoint},
		Chat: ChatSettings{
			BaseURL:         browser.DefaultBaseURL,
			ThreadsPath:     browser.DefaultThreadsPath,
			MessageEndpoint: DefaultMessageEndpoint,
			QueryHash:       httpapi.DefaultSendMessageHash,
			CookiesFile:     "cookies.json",
			PaymentPhrase:   domain.DefaultPaymentPhrase,
			QuantityPattern: domain.DefaultQuantityPattern,
			RateLimit:       1,
			RateBurst:       3,
		},
		Browser: BrowserSettings{
			Headless:    true,
			LoadTimeout: browser.DefaultLoadTimeout,
			IdleTimeout: browser.DefaultIdleTimeout,
		},
		State: StateSettings{
			Backend:     BackendFile,
			Dir:         "state",
			RedisPrefix: redis.DefaultPrefix,
		},
		Monitor: MonitorSettings{
			CheckInterval: opts.CheckInterval,
			SyncInterval:  opts.SyncInterval,
			Tick:          opts.Tick,
			MaxChats:      opts.MaxChats,
			RecoverDelay:  opts.RecoverDelay,
			RecipientPoll: opts.RecipientPoll,
			ClickTimeout:  opts.ClickTimeout,
		},
		API: APISettings{
			RetryAttempts:   httpapi.DefaultAttempts,
			BackoffFactor:   httpapi.DefaultBackoffFactor,
			RequestTimeout:  httpapi.DefaultRequestTimeout,
			PurchaseTimeout: httpapi.DefaultPurchaseTimeout,
		},
		Log: LogSettings{Format: "console", Level: "info"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("purchase.endpoint", d.Purchase.Endpoint)
	v.SetDefault("purchase.fragment_cookies", d.Purchase.FragmentCookies)
	v.SetDefault("purchase.seed", d.Purchase.Seed)
	v.SetDefault("purchase.show_sender", d.Purchase.ShowSender)

	v.SetDefault("chat.base_url", d.Chat.BaseURL)
	v.SetDefault("chat.threads_path", d.Chat.ThreadsPath)
	v.SetDefault("chat.message_endpoint", d.Chat.MessageEndpoint)
	v.SetDefault("chat.query_hash", d.Chat.QueryHash)
	v.SetDefault("chat.cookies_file", d.Chat.CookiesFile)
	v.SetDefault("chat.payment_phrase", d.Chat.PaymentPhrase)
	v.SetDefault("chat.quantity_pattern", d.Chat.QuantityPattern)
	v.SetDefault("chat.rate_limit", d.Chat.RateLimit)
	v.SetDefault("chat.rate_burst", d.Chat.RateBurst)

	v.SetDefault("browser.control_url", d.Browser.ControlURL)
	v.SetDefault("browser.headless", d.Browser.Headless)
	v.SetDefault("browser.load_timeout", d.Browser.LoadTimeout)
	v.SetDefault("browser.idle_timeout", d.Browser.IdleTimeout)

	v.SetDefault("state.backend", d.State.Backend)
	v.SetDefault("state.dir", d.State.Dir)
	v.SetDefault("state.redis_url", d.State.RedisURL)
	v.SetDefault("state.redis_prefix", d.State.RedisPrefix)

	v.SetDefault("monitor.check_interval", d.Monitor.CheckInterval)
	v.SetDefault("monitor.sync_interval", d.Monitor.SyncInterval)
	v.SetDefault("monitor.tick", d.Monitor.Tick)
	v.SetDefault("monitor.max_chats", d.Monitor.MaxChats)
	v.SetDefault("monitor.recover_delay", d.Monitor.RecoverDelay)
	v.SetDefault("monitor.recipient_poll", d.Monitor.RecipientPoll)
	v.SetDefault("monitor.click_timeout", d.Monitor.ClickTimeout)

	v.SetDefault("api.retry_attempts", d.API.RetryAttempts)
	v.SetDefault("api.backoff_factor", d.API.BackoffFactor)
	v.SetDefault("api.request_timeout", d.API.RequestTimeout)
	v.SetDefault("api.purchase_timeout", d.API.PurchaseTimeout)

	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)

	v.SetDefault("metrics.addr", d.Metrics.Addr)
}
