package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/bnema/stars-relay/internal/adapters/browser"
	"github.com/bnema/stars-relay/internal/adapters/httpapi"
	"github.com/bnema/stars-relay/internal/adapters/metrics"
	"github.com/bnema/stars-relay/internal/application"
	"github.com/bnema/stars-relay/internal/config"
	"github.com/bnema/stars-relay/internal/domain"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const metricsShutdownTimeout = 5 * time.Second

func newRunCmd(flags *rootFlags) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Monitor chats and fulfill orders until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := wireApp(ctx, flags)
			if err != nil {
				var missing *config.MissingError
				if errors.As(err, &missing) {
					if werr := config.WriteTemplate(missing.Path, false); werr != nil && !errors.Is(werr, config.ErrTemplateExists) {
						return errors.Join(err, werr)
					}
				}
				return err
			}
			defer func() { _ = app.Close() }()

			if metricsAddr != "" {
				app.settings.Metrics.Addr = metricsAddr
			}

			return runRelay(ctx, app)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9102")

	return cmd
}

func runRelay(ctx context.Context, app *app) error {
	s := app.settings

	logger, logCloser, err := initLogging(s.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()

	cookies, err := config.LoadCookies(s.Chat.CookiesFile)
	if err != nil {
		return err
	}

	matcher, err := domain.NewMatcher(s.Chat.PaymentPhrase, s.Chat.QuantityPattern)
	if err != nil {
		return fmt.Errorf("build text matcher: %w", err)
	}

	recorder := metrics.NewRecorder()
	if s.Metrics.Addr != "" {
		stopMetrics := serveMetrics(s.Metrics.Addr, recorder, logger)
		defer stopMetrics()
	}

	messenger := httpapi.Messenger{
		Endpoint:       s.Chat.MessageEndpoint,
		QueryHash:      s.Chat.QueryHash,
		Cookies:        cookies,
		RequestTimeout: s.API.RequestTimeout,
		Limiter:        newLimiter(s.Chat),
		Retrier:        newRetrier(s.API, recorder),
		Metrics:        recorder,
		Logger:         logger,
	}
	purchaser := httpapi.Purchaser{
		Endpoint:        s.Purchase.Endpoint,
		FragmentCookies: s.Purchase.FragmentCookies,
		Seed:            s.Purchase.Seed,
		ShowSender:      s.Purchase.ShowSender,
		AttemptTimeout:  s.API.PurchaseTimeout,
		Retrier:         newRetrier(s.API, recorder),
		Metrics:         recorder,
		Logger:          logger,
	}

	driver, err := browser.Launch(ctx, browser.Config{
		ControlURL:  s.Browser.ControlURL,
		Headless:    s.Browser.Headless,
		BaseURL:     s.Chat.BaseURL,
		ThreadsPath: s.Chat.ThreadsPath,
		Cookies:     cookies,
		Selectors:   s.BrowserSelectors(),
		LoadTimeout: s.Browser.LoadTimeout,
		IdleTimeout: s.Browser.IdleTimeout,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := driver.Close(); err != nil {
			logger.Warn().Err(err).Msg("close browser")
		}
	}()

	supervisor := application.NewSupervisor(driver, application.Deps{
		Store:     app.store,
		Messenger: messenger,
		Purchaser: purchaser,
		Matcher:   matcher,
		Metrics:   recorder,
		Logger:    logger,
	}, application.Options{
		CheckInterval: s.Monitor.CheckInterval,
		SyncInterval:  s.Monitor.SyncInterval,
		Tick:          s.Monitor.Tick,
		MaxChats:      s.Monitor.MaxChats,
		RecoverDelay:  s.Monitor.RecoverDelay,
		RecipientPoll: s.Monitor.RecipientPoll,
		ClickTimeout:  s.Monitor.ClickTimeout,
	})

	logger.Info().Str("settings", app.settingsPath).Str("state_backend", s.State.Backend).Msg("relay started")
	err = supervisor.Run(ctx)
	logger.Info().Msg("relay stopped")
	return err
}

func serveMetrics(addr string, recorder *metrics.Recorder, logger zerolog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())

	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()
	logger.Info().Str("addr", addr).Msg("serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}
